// Command graphc compiles node graph documents to bytecode programs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/manifest"
	"github.com/chazu/graphc/pkg/bytecode"
	"github.com/chazu/graphc/symbols"
	"github.com/chazu/graphc/types"
)

// argList collects repeated -arg flags.
type argList []string

func (a *argList) String() string     { return strings.Join(*a, " ") }
func (a *argList) Set(s string) error { *a = append(*a, s); return nil }

func main() {
	configPath := flag.String("config", "", "Path to graphc.toml (default: search upward from the working directory)")
	outDir := flag.String("o", "", "Write compiled .gbc programs to this directory")
	disasm := flag.Bool("disasm", false, "Print the disassembly of each program")
	runEntry := flag.String("run", "", "Run the named entry of each compiled program")
	cachePath := flag.String("cache", "", "Program cache path, or \"off\" (default: [cache] path when a manifest is found)")
	workers := flag.Int("j", 0, "Parallel compilations (default: [compile] workers)")
	verbose := flag.Bool("v", false, "Verbose output")
	var args argList
	flag.Var(&args, "arg", "Argument text for -run, repeatable, in parameter order")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: graphc [options] files...\n\n")
		fmt.Fprintf(os.Stderr, "Compiles graph documents (.json or .cbor) to bytecode programs.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  graphc -o build graphs/*.json        # Compile into build/\n")
		fmt.Fprintf(os.Stderr, "  graphc -disasm adder.json            # Show the generated code\n")
		fmt.Fprintf(os.Stderr, "  graphc -run main -arg 3 adder.json   # Compile and run entry main(3)\n")
	}
	flag.Parse()

	verbosity := -1
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	m, found, err := loadManifest(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fns := symbols.Builtins(os.Stdout)
	opts, err := m.Options(fns)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *workers > 0 {
		opts.Workers = *workers
	}

	var units []*graph.Graph
	for _, path := range flag.Args() {
		g, err := graph.LoadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		units = append(units, g)
	}

	cache := *cachePath
	if cache == "" && found {
		cache = m.CachePath()
	}
	if cache == "off" {
		cache = ""
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	b := &builder{opts: opts, driver: m.Cache.Driver, cachePath: cache}
	results, err := b.build(ctx, units)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	failed := false
	for _, r := range results {
		for _, d := range r.Diagnostics {
			fmt.Fprintf(os.Stderr, "%s: %s\n", r.Name, d)
		}
		if r.Err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, r.Err)
			failed = true
			continue
		}
		if r.Diagnostics.HasErrors() {
			failed = true
		}
		p := r.Program

		if *outDir != "" {
			if err := writeProgram(*outDir, p); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		if *disasm {
			fmt.Print(p.Disassemble())
		}
		if *runEntry != "" {
			if err := run(ctx, p, fns, opts.Types, *runEntry, args); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", r.Name, err)
				failed = true
			}
		}
	}
	if failed {
		os.Exit(1)
	}
}

// loadManifest reads the manifest named by -config, or searches for one.
// found reports whether a manifest file was read.
func loadManifest(path string) (m *manifest.Manifest, found bool, err error) {
	if path != "" {
		m, err = manifest.LoadFile(path)
		return m, err == nil, err
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, false, err
	}
	m, err = manifest.FindAndLoad(wd)
	if err != nil {
		return nil, false, err
	}
	if m == nil {
		m = manifest.Default()
		m.Dir = wd
		return m, false, nil
	}
	return m, true, nil
}

func writeProgram(dir string, p *bytecode.Program) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, p.Name+".gbc"), data, 0644)
}

// run executes entry with argument text parsed for each parameter's type
// and prints the results.
func run(ctx context.Context, p *bytecode.Program, fns *symbols.Registry, reg *types.Registry, entry string, texts []string) error {
	e, ok := p.Entry(entry)
	if !ok {
		return fmt.Errorf("no entry named %q", entry)
	}
	if len(texts) > len(e.Params) {
		return fmt.Errorf("entry %s takes %d arguments, got %d", entry, len(e.Params), len(texts))
	}
	values := make([]types.Value, len(e.Params))
	for i, idx := range e.Params {
		t, err := types.Parse(p.Params[idx].Type)
		if err != nil {
			return err
		}
		if i >= len(texts) {
			values[i] = reg.Zero(t)
			continue
		}
		v, err := reg.ParseLiteral(t, texts[i])
		if err != nil {
			return fmt.Errorf("argument %d: %w", i+1, err)
		}
		values[i] = v
	}

	m, err := bytecode.NewMachine(p, fns, reg)
	if err != nil {
		return err
	}
	results, err := m.Run(ctx, entry, values...)
	if err != nil {
		return err
	}
	for i, v := range results {
		fmt.Printf("%s = %s\n", p.Results[i].Name, types.FormatLiteral(v))
	}
	return nil
}
