package bytecode

import (
	"sort"

	"github.com/pkg/errors"
)

// Symbol describes a compiled user function: where its body starts and
// the calling metadata the VM needs to size its frame.
type Symbol struct {
	Location   int `cbor:"location"`   // instruction offset of the first in-body instruction
	Arity      int `cbor:"arity"`      // declared parameter count
	LocalCount int `cbor:"localCount"` // declared locals beyond the parameters
}

// SymbolTable maps function names to symbols. It is written during
// compilation and read-only during execution.
//
// Registration is two-phase: Declare records the location and arity when
// the compiler reaches the body, Finalize fills in the local count once
// the whole body has been compiled. The table never holds synthetic
// control-flow labels; those are resolved at compile time into relative
// jump offsets.
type SymbolTable struct {
	Functions map[string]*Symbol `cbor:"functions"`

	pending map[string]bool
}

// NewSymbolTable creates an empty symbol table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		Functions: make(map[string]*Symbol),
		pending:   make(map[string]bool),
	}
}

// Declare registers a function at the given code location with its arity.
// The local count is not yet known; Finalize must be called before the
// program is executed. Redeclaring a name is an error.
func (t *SymbolTable) Declare(name string, location, arity int) error {
	if _, exists := t.Functions[name]; exists {
		return errors.Errorf("function %q is already declared", name)
	}
	t.Functions[name] = &Symbol{Location: location, Arity: arity}
	t.pending[name] = true
	return nil
}

// Finalize records the local count for a previously declared function.
func (t *SymbolTable) Finalize(name string, localCount int) error {
	sym, ok := t.Functions[name]
	if !ok {
		return errors.Errorf("cannot finalize undeclared function %q", name)
	}
	if !t.pending[name] {
		return errors.Errorf("function %q is already finalized", name)
	}
	sym.LocalCount = localCount
	delete(t.pending, name)
	return nil
}

// Lookup returns the symbol for a function name.
func (t *SymbolTable) Lookup(name string) (*Symbol, bool) {
	sym, ok := t.Functions[name]
	return sym, ok
}

// Len returns the number of registered functions.
func (t *SymbolTable) Len() int {
	return len(t.Functions)
}

// Names returns the registered function names in sorted order.
func (t *SymbolTable) Names() []string {
	names := make([]string, 0, len(t.Functions))
	for name := range t.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
