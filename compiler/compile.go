// Package compiler lowers a node graph to a bytecode program. Compile runs
// the pipeline for one function unit: prune, expand, resolve types,
// linearize, generate statements and assemble.
package compiler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/graphc/diag"
	"github.com/chazu/graphc/expand"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/graph/hash"
	"github.com/chazu/graphc/linearize"
	"github.com/chazu/graphc/pkg/bytecode"
	"github.com/chazu/graphc/symbols"
	"github.com/chazu/graphc/types"
)

var log = commonlog.GetLogger("graphc.compiler")

// buildNamespace seeds the name-based build UUID of every program.
var buildNamespace = uuid.MustParse("6f1c2b7e-3d5a-5e8f-9b42-0c7d1e2a4f60")

// Options configures a Compiler. Registries are shared read-only by every
// compilation.
type Options struct {
	Width         bytecode.Width
	MaxExpansions int
	// Workers bounds CompileAll's parallelism; zero means one per unit.
	Workers int

	Types     *types.Registry
	Functions *symbols.Registry
	Macros    *expand.MacroLibrary
	Generator *Generator
}

// Compiler compiles function units. It holds no per-unit state and may be
// used from several goroutines.
type Compiler struct {
	opts     Options
	expander *expand.Expander
	gen      *Generator
}

// New creates a compiler. Nil registries are replaced by empty ones, a nil
// function registry by the builtins.
func New(opts Options) *Compiler {
	if opts.Types == nil {
		opts.Types = types.NewRegistry()
	}
	if opts.Functions == nil {
		opts.Functions = symbols.Builtins(nil)
	}
	if opts.Macros == nil {
		opts.Macros = expand.NewMacroLibrary()
	}
	gen := opts.Generator
	if gen == nil {
		gen = NewGenerator()
	}
	return &Compiler{
		opts: opts,
		expander: expand.New(expand.Options{
			MaxExpansions: opts.MaxExpansions,
			Macros:        opts.Macros,
			Types:         opts.Types,
		}),
		gen: gen,
	}
}

// Fingerprint digests the options that change compiled output besides the
// graph itself: offset width, expansion limit, the type registry, function
// signatures and macro graphs. Build caches salt their keys with it.
func (c *Compiler) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "width %s\nexpansions %d\n", c.opts.Width, c.opts.MaxExpansions)
	fmt.Fprintf(h, "types %s\n", c.opts.Types.Fingerprint())
	for _, name := range c.opts.Functions.Names() {
		if f, ok := c.opts.Functions.Lookup(name); ok {
			fmt.Fprintf(h, "func %s\n", f.Signature())
		}
	}
	fmt.Fprintf(h, "macros %s\n", c.opts.Macros.Fingerprint())
	return hex.EncodeToString(h.Sum(nil))
}

// Compile is New(opts).Compile(ctx, g).
func Compile(ctx context.Context, g *graph.Graph, opts Options) (*bytecode.Program, diag.List, error) {
	return New(opts).Compile(ctx, g)
}

// Compile compiles g, which is not modified. Recoverable problems are
// returned as diagnostics alongside a program that should not ship. A
// structural or encoding error, or cancellation, returns no program.
func (c *Compiler) Compile(ctx context.Context, g *graph.Graph) (*bytecode.Program, diag.List, error) {
	var diags diag.List
	p, err := c.compile(ctx, g, &diags)
	if err != nil {
		log.Errorf("%s: %v", g.Name(), err)
		return nil, diags, err
	}
	return p, diags, nil
}

func (c *Compiler) compile(ctx context.Context, g *graph.Graph, diags *diag.List) (*bytecode.Program, error) {
	name := g.Name()
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if _, err := g.RequireEntries(); err != nil {
		return nil, err
	}
	sum := hash.Graph(g)

	work := g.Clone()
	stage := timer(name)

	if n := linearize.Prune(work); n > 0 {
		log.Debugf("%s: pruned %d unreachable nodes", name, n)
	}
	expDiags, err := c.expander.Expand(work)
	*diags = append(*diags, expDiags...)
	if err != nil {
		return nil, err
	}
	linearize.Prune(work)
	stage("expand")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	resolveTypes(work, c.opts.Types, c.opts.Functions, diags)
	stage("resolve")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	scheds, err := linearize.Linearize(work)
	if err != nil {
		return nil, err
	}
	stage("linearize")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alloc := NewAllocator(work, c.opts.Types, diags)
	code := c.gen.Generate(work, scheds, alloc, c.opts.Functions, diags)
	unit, err := lower(name, code, alloc)
	if err != nil {
		return nil, err
	}
	stage("generate")
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, err := bytecode.Assemble(unit, c.opts.Width)
	if err != nil {
		return nil, err
	}
	stage("assemble")

	p.Hash = hash.String(sum)
	p.Build = uuid.NewSHA1(buildNamespace, append(sum[:], byte(p.OffsetWidth))).String()
	p.Diagnostics = append(diag.List(nil), *diags...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	log.Infof("%s: %d bytes, %d diagnostics", name, len(p.Code), len(p.Diagnostics))
	return p, nil
}

// timer returns a function logging the time since its previous call.
func timer(unit string) func(stage string) {
	last := time.Now()
	return func(stage string) {
		now := time.Now()
		log.Debugf("%s: %s took %v", unit, stage, now.Sub(last))
		last = now
	}
}

// String renders statements one per line, for debugging.
func (code *Code) String() string {
	s := ""
	for i := range code.Statements {
		st := &code.Statements[i]
		if st.Kind == StmtLabel {
			s += fmt.Sprintf("%s\n", st)
			continue
		}
		s += fmt.Sprintf("  %-40s ; %s\n", st, st.Node)
	}
	return s
}
