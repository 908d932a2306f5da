package main

import (
	"context"
	"errors"

	"github.com/tliron/commonlog"

	"github.com/chazu/graphc/compiler"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/store"
)

var log = commonlog.GetLogger("graphc.cmd")

// builder compiles units, consulting the program cache when one is
// configured. Only programs without error diagnostics are cached.
type builder struct {
	opts      compiler.Options
	driver    string
	cachePath string
}

func (b *builder) build(ctx context.Context, units []*graph.Graph) ([]compiler.Result, error) {
	c := compiler.New(b.opts)
	if b.cachePath == "" {
		return c.CompileAll(ctx, units)
	}

	s, err := store.Open(b.driver, b.cachePath)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	salt := c.Fingerprint()
	results := make([]compiler.Result, len(units))
	keys := make([]string, len(units))
	var misses []*graph.Graph
	var missIdx []int
	for i, g := range units {
		keys[i] = store.Key(g, salt)
		p, err := s.Get(ctx, keys[i])
		switch {
		case err == nil:
			results[i] = compiler.Result{Name: g.Name(), Program: p, Diagnostics: p.Diagnostics}
		case errors.Is(err, store.ErrNotFound):
			misses = append(misses, g)
			missIdx = append(missIdx, i)
		default:
			log.Warningf("cache lookup for %s: %v", g.Name(), err)
			misses = append(misses, g)
			missIdx = append(missIdx, i)
		}
	}
	log.Infof("%d cached, %d to compile", len(units)-len(misses), len(misses))

	compiled, err := c.CompileAll(ctx, misses)
	for j, r := range compiled {
		i := missIdx[j]
		results[i] = r
		if r.Err != nil || r.Diagnostics.HasErrors() {
			continue
		}
		if perr := s.Put(ctx, keys[i], r.Program); perr != nil {
			log.Warningf("caching %s: %v", r.Name, perr)
		}
	}
	return results, err
}
