// Luna CLI - compiles and runs Luna programs on the bytecode VM.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/lunalang/luna/pkg/bytecode"
	"github.com/lunalang/luna/pkg/cache"
	"github.com/lunalang/luna/pkg/parser"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("luna")

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	interactive := flag.Bool("i", false, "Start interactive REPL")
	disasm := flag.Bool("disasm", false, "Print disassembly instead of running")
	trace := flag.Bool("trace", false, "Trace instruction execution to stderr")
	output := flag.String("o", "", "Compile to a .lnc bytecode file instead of running")
	useCache := flag.Bool("cache", false, "Cache compiled bytecode by source hash")
	cachePath := flag.String("cache-path", "", "Compile cache location (default ~/.luna/cache.db)")
	configPath := flag.String("config", "luna.toml", "Configuration file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: luna [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a .luna source file, or runs a compiled .lnc file directly.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  luna fib.luna              # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  luna -i                    # Start REPL\n")
		fmt.Fprintf(os.Stderr, "  luna -disasm fib.luna      # Show bytecode listing\n")
		fmt.Fprintf(os.Stderr, "  luna -o fib.lnc fib.luna   # Compile to bytecode file\n")
		fmt.Fprintf(os.Stderr, "  luna fib.lnc               # Run compiled bytecode\n")
	}
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fatal(err)
	}
	applyConfig(cfg, verbose, disasm, trace, useCache, cachePath)

	verbosity := 0
	if *verbose {
		verbosity = 1
	}
	commonlog.Configure(verbosity, nil)

	if *interactive {
		if err := runREPL(); err != nil {
			fatal(err)
		}
		return
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	path := flag.Arg(0)

	program, err := loadProgram(path, *useCache, *cachePath)
	if err != nil {
		fatal(err)
	}

	if *disasm {
		fmt.Print(program.DisassembleWithName(path))
		return
	}

	if *output != "" {
		if err := bytecode.WriteFile(*output, program); err != nil {
			fatal(err)
		}
		log.Infof("wrote %s (%d instructions)", *output, program.InstructionCount())
		return
	}

	vm := bytecode.NewVM()
	vm.Trace = *trace
	result, err := vm.Run(program)
	if err != nil {
		fatal(err)
	}
	if *verbose {
		fmt.Printf("result: %d\n", result)
	}
}

// applyConfig fills in defaults from luna.toml for flags the user did not
// set on the command line.
func applyConfig(cfg *Config, verbose, disasm, trace, useCache *bool, cachePath *string) {
	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if !set["v"] && cfg.Run.Verbose {
		*verbose = true
	}
	if !set["disasm"] && cfg.Run.Disasm {
		*disasm = true
	}
	if !set["trace"] && cfg.Run.Trace {
		*trace = true
	}
	if !set["cache"] && cfg.Cache.Enabled {
		*useCache = true
	}
	if !set["cache-path"] && cfg.Cache.Path != "" {
		*cachePath = cfg.Cache.Path
	}
}

// loadProgram produces a runnable program from a path: .lnc files are
// deserialized directly, anything else is treated as source and compiled
// (through the cache when enabled).
func loadProgram(path string, useCache bool, cachePath string) (*bytecode.Program, error) {
	if strings.HasSuffix(path, ".lnc") {
		return bytecode.ReadFile(path)
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if !useCache {
		return compile(string(src))
	}

	c, err := openCache(cachePath)
	if err != nil {
		// A broken cache should not stop the program from running.
		log.Warningf("compile cache unavailable: %v", err)
		return compile(string(src))
	}
	defer c.Close()

	key := cache.Key(string(src))
	if data, err := c.Get(key); err == nil {
		program, err := bytecode.UnmarshalProgram(data)
		if err == nil {
			log.Debugf("cache hit for %s", path)
			return program, nil
		}
		log.Warningf("discarding corrupt cache entry for %s: %v", path, err)
	}

	program, err := compile(string(src))
	if err != nil {
		return nil, err
	}
	data, err := bytecode.MarshalProgram(program)
	if err != nil {
		return nil, err
	}
	if err := c.Put(key, data); err != nil {
		log.Warningf("failed to cache %s: %v", path, err)
	}
	return program, nil
}

func openCache(path string) (*cache.Cache, error) {
	if path != "" {
		return cache.Open(path)
	}
	return cache.OpenDefault()
}

func compile(src string) (*bytecode.Program, error) {
	stmts, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}
	return bytecode.Compile(stmts)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
