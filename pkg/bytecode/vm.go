package bytecode

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// maxCallDepth bounds the frame list so runaway recursion fails with a
// diagnosable error instead of exhausting memory.
const maxCallDepth = 4096

// frame is one activation record. Arguments live on the operand stack
// below base until OpBindArg copies them into locals; return truncates
// the stack to base minus arity so they are consumed with the frame.
type frame struct {
	returnAddr int // ip to resume at after OpReturn
	base       int // operand stack depth at entry (args already pushed)
	arity      int // argument count consumed from the stack on return
	locals     []int64
}

// VM executes a compiled Program. It is single-threaded; create one VM
// per concurrent execution.
type VM struct {
	program *Program

	ip     int
	stack  []int64
	frames []frame

	out io.Writer

	// Trace enables per-instruction execution logging to stderr.
	Trace bool
}

// NewVM creates a VM writing builtin output to stdout.
func NewVM() *VM {
	return &VM{out: os.Stdout}
}

// SetOutput redirects builtin output (print) to w.
func (vm *VM) SetOutput(w io.Writer) {
	vm.out = w
}

// StackDepth returns the current operand stack depth. Mostly useful for
// asserting that calls are stack-neutral.
func (vm *VM) StackDepth() int {
	return len(vm.stack)
}

// Run executes a program from offset zero and returns its result: the
// value of a top-level return if one executes, otherwise the value left
// on top of the stack (or zero if the stack is empty).
func (vm *VM) Run(p *Program) (int64, error) {
	if p.Version != ProgramVersion {
		return 0, errors.Errorf("program version %d is not supported (want %d)", p.Version, ProgramVersion)
	}

	vm.program = p
	vm.ip = 0
	vm.stack = vm.stack[:0]
	vm.frames = vm.frames[:0]
	vm.frames = append(vm.frames, frame{}) // top-level frame

	for vm.ip < len(p.Code) {
		op := Opcode(p.Code[vm.ip])
		info, known := opcodeInfoTable[op]
		if !known {
			return 0, vm.fatalf("unknown opcode 0x%02x", byte(op))
		}
		if vm.ip+info.OperandLen >= len(p.Code) {
			return 0, vm.fatalf("truncated %s instruction", info.Name)
		}
		if info.StackPop > 0 && len(vm.stack) < info.StackPop {
			return 0, vm.fatalf("stack underflow: %s needs %d value(s), have %d",
				info.Name, info.StackPop, len(vm.stack))
		}
		if vm.Trace {
			vm.traceInstruction(op)
		}

		switch op {
		case OpNop:
			vm.ip++

		case OpPop:
			vm.pop()
			vm.ip++

		case OpConst:
			idx := vm.readUint16(vm.ip + 1)
			if int(idx) >= len(p.Constants) {
				return 0, vm.fatalf("constant index %d out of range (pool size %d)", idx, len(p.Constants))
			}
			vm.push(p.Constants[idx])
			vm.ip += 3

		case OpConstZero:
			vm.push(0)
			vm.ip++

		case OpLoadSlot:
			slot := int(p.Code[vm.ip+1])
			fr := &vm.frames[len(vm.frames)-1]
			if slot >= len(fr.locals) {
				return 0, vm.fatalf("load from slot %d out of range (frame has %d)", slot, len(fr.locals))
			}
			vm.push(fr.locals[slot])
			vm.ip += 2

		case OpStoreSlot:
			slot := int(p.Code[vm.ip+1])
			fr := &vm.frames[len(vm.frames)-1]
			if slot >= len(fr.locals) {
				// Function frames are sized from the symbol table at
				// call time; only the top-level frame grows on demand.
				if len(vm.frames) > 1 {
					return 0, vm.fatalf("store to slot %d out of range (frame has %d)", slot, len(fr.locals))
				}
				for len(fr.locals) <= slot {
					fr.locals = append(fr.locals, 0)
				}
			}
			fr.locals[slot] = vm.pop()
			vm.ip += 2

		case OpBindArg:
			slot := int(p.Code[vm.ip+1])
			arg := int(p.Code[vm.ip+2])
			fr := &vm.frames[len(vm.frames)-1]
			if slot >= len(fr.locals) {
				return 0, vm.fatalf("bind to slot %d out of range (frame has %d)", slot, len(fr.locals))
			}
			if arg >= fr.arity {
				return 0, vm.fatalf("bind of argument %d out of range (arity %d)", arg, fr.arity)
			}
			fr.locals[slot] = vm.stack[fr.base-fr.arity+arg]
			vm.ip += 3

		case OpAdd:
			right := vm.pop()
			left := vm.pop()
			vm.push(left + right)
			vm.ip++

		case OpSub:
			right := vm.pop()
			left := vm.pop()
			vm.push(left - right)
			vm.ip++

		case OpLt:
			right := vm.pop()
			left := vm.pop()
			if left < right {
				vm.push(1)
			} else {
				vm.push(0)
			}
			vm.ip++

		case OpJump:
			delta := vm.readInt16(vm.ip + 1)
			vm.ip += 3 + int(delta)

		case OpJumpFalse:
			delta := vm.readInt16(vm.ip + 1)
			vm.ip += 3
			if vm.pop() == 0 {
				vm.ip += int(delta)
			}

		case OpCall:
			if err := vm.call(); err != nil {
				return 0, err
			}

		case OpReturn:
			result := vm.pop()
			fr := vm.frames[len(vm.frames)-1]
			if len(vm.frames) == 1 {
				// Top-level return terminates the program.
				return result, nil
			}
			vm.frames = vm.frames[:len(vm.frames)-1]
			vm.stack = vm.stack[:fr.base-fr.arity]
			vm.push(result)
			vm.ip = fr.returnAddr

		default:
			return 0, vm.fatalf("opcode %s has no handler", op)
		}
	}

	if len(vm.stack) == 0 {
		return 0, nil
	}
	return vm.stack[len(vm.stack)-1], nil
}

// call handles OpCall: builtins are dispatched by name first, then the
// symbol table. A name matching neither is a fatal error.
func (vm *VM) call() error {
	nameIdx := vm.readUint16(vm.ip + 1)
	argc := int(vm.program.Code[vm.ip+3])

	if int(nameIdx) >= len(vm.program.Names) {
		return vm.fatalf("call name index %d out of range (pool size %d)", nameIdx, len(vm.program.Names))
	}
	name := vm.program.Names[nameIdx]

	if len(vm.stack) < argc {
		return vm.fatalf("stack underflow: call to %q needs %d argument(s), have %d", name, argc, len(vm.stack))
	}

	if fn, ok := builtins[name]; ok {
		args := vm.stack[len(vm.stack)-argc:]
		result, err := fn(vm, args)
		if err != nil {
			return vm.fatalf("builtin %q: %v", name, err)
		}
		vm.stack = vm.stack[:len(vm.stack)-argc]
		vm.push(result)
		vm.ip += 4
		return nil
	}

	sym, ok := vm.program.Symbols.Lookup(name)
	if !ok {
		return vm.fatalf("call to undefined function %q", name)
	}
	if argc != sym.Arity {
		return vm.fatalf("function %q expects %d argument(s), got %d", name, sym.Arity, argc)
	}
	if len(vm.frames) >= maxCallDepth {
		return vm.fatalf("call depth limit exceeded (%d) in call to %q", maxCallDepth, name)
	}

	vm.frames = append(vm.frames, frame{
		returnAddr: vm.ip + 4,
		base:       len(vm.stack),
		arity:      sym.Arity,
		locals:     make([]int64, sym.Arity+sym.LocalCount),
	})
	vm.ip = sym.Location
	return nil
}

func (vm *VM) push(v int64) {
	vm.stack = append(vm.stack, v)
}

func (vm *VM) pop() int64 {
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) readUint16(offset int) uint16 {
	return uint16(vm.program.Code[offset])<<8 | uint16(vm.program.Code[offset+1])
}

func (vm *VM) readInt16(offset int) int16 {
	return int16(vm.readUint16(offset))
}

func (vm *VM) fatalf(format string, args ...interface{}) error {
	return errors.Errorf("[%04x] "+format, append([]interface{}{vm.ip}, args...)...)
}

func (vm *VM) traceInstruction(op Opcode) {
	fmt.Fprintf(os.Stderr, "[%04x] %-12s sp=%d fp=%d\n", vm.ip, op, len(vm.stack), len(vm.frames))
}

// builtinFunc is the signature of a native function. args is a view into
// the operand stack in source order; it must not be retained.
type builtinFunc func(vm *VM, args []int64) (int64, error)

var builtins = map[string]builtinFunc{
	"print": builtinPrint,
}

// IsBuiltin reports whether a name is reserved for a native function.
func IsBuiltin(name string) bool {
	_, ok := builtins[name]
	return ok
}

// builtinPrint writes its arguments space-separated in source order,
// followed by a newline, and yields 0.
func builtinPrint(vm *VM, args []int64) (int64, error) {
	var b strings.Builder
	for i, v := range args {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d", v)
	}
	b.WriteByte('\n')
	if _, err := io.WriteString(vm.out, b.String()); err != nil {
		return 0, err
	}
	return 0, nil
}
