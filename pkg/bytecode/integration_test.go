package bytecode

import (
	"bytes"
	"testing"
)

func TestIntegrationFibonacci(t *testing.T) {
	src := `function fib(n)
  if n < 2 then
    return n;
  end
  return fib(n - 1) + fib(n - 2);
end
return fib(10);`

	if got := run(t, src); got != 55 {
		t.Errorf("Expected fib(10)=55, got %d", got)
	}
}

func TestIntegrationMutualRecursion(t *testing.T) {
	src := `function isEven(n)
  if n < 1 then
    return 1;
  end
  return isOdd(n - 1);
end
function isOdd(n)
  if n < 1 then
    return 0;
  end
  return isEven(n - 1);
end
return isEven(10);`

	if got := run(t, src); got != 1 {
		t.Errorf("Expected isEven(10)=1, got %d", got)
	}
}

func TestIntegrationProgramOutput(t *testing.T) {
	src := `function double(x)
  return x + x;
end
local a = double(3);
local b = double(a);
print(a, b);
print(a + b);`

	out := runOutput(t, src)
	want := "6 12\n18\n"
	if out != want {
		t.Errorf("Expected output %q, got %q", want, out)
	}
}

func TestIntegrationSerializedProgramRuns(t *testing.T) {
	src := `function sum(n)
  if n < 1 then
    return 0;
  end
  return n + sum(n - 1);
end
print(sum(4));
return sum(10);`

	p := compileSource(t, src)
	data, err := MarshalProgram(p)
	if err != nil {
		t.Fatalf("MarshalProgram failed: %v", err)
	}
	restored, err := UnmarshalProgram(data)
	if err != nil {
		t.Fatalf("UnmarshalProgram failed: %v", err)
	}

	vm := NewVM()
	var out bytes.Buffer
	vm.SetOutput(&out)
	result, err := vm.Run(restored)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result != 55 {
		t.Errorf("Expected 55, got %d", result)
	}
	if out.String() != "10\n" {
		t.Errorf("Expected output %q, got %q", "10\n", out.String())
	}
}

func TestIntegrationDeepCallChain(t *testing.T) {
	src := `function down(n)
  if n < 1 then
    return 0;
  end
  return down(n - 1);
end
return down(1000);`

	if got := run(t, src); got != 0 {
		t.Errorf("Expected 0, got %d", got)
	}
}
