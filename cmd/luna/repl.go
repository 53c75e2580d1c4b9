package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/pkg/errors"

	"github.com/lunalang/luna/pkg/ast"
	"github.com/lunalang/luna/pkg/bytecode"
	"github.com/lunalang/luna/pkg/parser"
)

const (
	historyFile = ".luna_history"
	promptMain  = "luna> "
	promptCont  = "  ... "
)

// runREPL reads statements interactively, compiling and running each
// complete input. Function declarations persist across inputs; each
// evaluation recompiles the accumulated declarations plus the new
// statements, so the VM state stays disposable.
func runREPL() error {
	fmt.Println("Luna REPL. Type :quit to exit.")

	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}

	var decls []ast.Statement

	for {
		code, ok := readStatement(ln)
		if !ok {
			fmt.Println()
			return nil
		}
		trimmed := strings.TrimSpace(code)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ":") {
			switch strings.ToLower(trimmed) {
			case ":quit":
				return nil
			case ":reset":
				decls = nil
			default:
				fmt.Println("unknown command. Type :quit to exit.")
			}
			continue
		}

		stmts, err := parser.Parse(code)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))

		program, err := bytecode.Compile(mergeInput(decls, stmts))
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		vm := bytecode.NewVM()
		result, err := vm.Run(program)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}

		// Keep declarations for later inputs only once they compile and run.
		onlyDecls := true
		for _, s := range stmts {
			if fd, ok := s.(*ast.FunctionDecl); ok {
				decls = retainDecl(decls, fd)
			} else {
				onlyDecls = false
			}
		}
		if !onlyDecls {
			fmt.Printf("= %d\n", result)
		}
	}
}

// mergeInput prepends the persisted declarations to the new statements,
// dropping any persisted function the new input redefines.
func mergeInput(decls, stmts []ast.Statement) []ast.Statement {
	redefined := make(map[string]bool)
	for _, s := range stmts {
		if fd, ok := s.(*ast.FunctionDecl); ok {
			redefined[fd.Name] = true
		}
	}

	merged := make([]ast.Statement, 0, len(decls)+len(stmts))
	for _, d := range decls {
		if fd, ok := d.(*ast.FunctionDecl); ok && redefined[fd.Name] {
			continue
		}
		merged = append(merged, d)
	}
	return append(merged, stmts...)
}

// retainDecl records a function declaration for later inputs, replacing
// any earlier declaration of the same name.
func retainDecl(decls []ast.Statement, fd *ast.FunctionDecl) []ast.Statement {
	for i, d := range decls {
		if old, ok := d.(*ast.FunctionDecl); ok && old.Name == fd.Name {
			decls[i] = fd
			return decls
		}
	}
	return append(decls, fd)
}

// readStatement reads lines until the parser accepts the buffer as a
// complete program, prompting for continuations while the only failure
// is running out of input. Returns false on EOF or interrupt.
func readStatement(ln *liner.State) (string, bool) {
	var b strings.Builder

	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := ln.Prompt(prompt)
		if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.HasPrefix(strings.TrimSpace(src), ":") {
			return src, true
		}
		if _, perr := parser.Parse(src); errors.Is(perr, parser.ErrUnexpectedEOF) {
			continue
		}
		// Complete, or broken in a way more input cannot fix; let the
		// caller surface the parse error.
		return src, true
	}
}
