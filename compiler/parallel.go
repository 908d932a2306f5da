package compiler

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/chazu/graphc/diag"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/pkg/bytecode"
)

// Result is the outcome of compiling one unit.
type Result struct {
	Name        string
	Program     *bytecode.Program
	Diagnostics diag.List
	Err         error
}

// CompileAll is New(opts).CompileAll(ctx, units).
func CompileAll(ctx context.Context, units []*graph.Graph, opts Options) ([]Result, error) {
	return New(opts).CompileAll(ctx, units)
}

// CompileAll compiles independent units in parallel, at most
// Options.Workers at a time. Results are in input order. A failed unit
// does not stop the others; the returned error is non-nil only when ctx
// ends first.
func (c *Compiler) CompileAll(ctx context.Context, units []*graph.Graph) ([]Result, error) {
	results := make([]Result, len(units))
	var eg errgroup.Group
	if c.opts.Workers > 0 {
		eg.SetLimit(c.opts.Workers)
	}
	for i, g := range units {
		if ctx.Err() != nil {
			break
		}
		eg.Go(func() error {
			p, diags, err := c.Compile(ctx, g)
			results[i] = Result{Name: g.Name(), Program: p, Diagnostics: diags, Err: err}
			return nil
		})
	}
	_ = eg.Wait()
	if err := ctx.Err(); err != nil {
		for i := range results {
			if results[i].Program == nil && results[i].Err == nil {
				results[i] = Result{Name: units[i].Name(), Err: err}
			}
		}
		return results, err
	}
	return results, nil
}
