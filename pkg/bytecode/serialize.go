package bytecode

import (
	"bytes"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
)

// fileMagic identifies a serialized program on disk.
var fileMagic = []byte("LNBC")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bytecode: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalProgram serializes a Program: a 4-byte magic followed by the
// canonical CBOR encoding of the program. Canonical mode keeps the
// encoding deterministic, so equal programs produce equal bytes (the
// compile cache keys on content).
func MarshalProgram(p *Program) ([]byte, error) {
	body, err := cborEncMode.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "marshal program")
	}
	out := make([]byte, 0, len(fileMagic)+len(body))
	out = append(out, fileMagic...)
	out = append(out, body...)
	return out, nil
}

// UnmarshalProgram deserializes a Program, validating the magic and the
// format version.
func UnmarshalProgram(data []byte) (*Program, error) {
	if len(data) < len(fileMagic) || !bytes.Equal(data[:len(fileMagic)], fileMagic) {
		return nil, errors.New("not a bytecode file (bad magic)")
	}
	var p Program
	if err := cbor.Unmarshal(data[len(fileMagic):], &p); err != nil {
		return nil, errors.Wrap(err, "unmarshal program")
	}
	if p.Version != ProgramVersion {
		return nil, errors.Errorf("unsupported bytecode version %d (want %d)", p.Version, ProgramVersion)
	}
	if p.Symbols == nil {
		p.Symbols = NewSymbolTable()
	}
	return &p, nil
}

// WriteFile serializes a program to the given path.
func WriteFile(path string, p *Program) error {
	data, err := MarshalProgram(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}

// ReadFile deserializes a program from the given path.
func ReadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return UnmarshalProgram(data)
}
