// Package manifest handles graphc.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/graphc/compiler"
	"github.com/chazu/graphc/expand"
	"github.com/chazu/graphc/graph"
	"github.com/chazu/graphc/pkg/bytecode"
	"github.com/chazu/graphc/symbols"
	"github.com/chazu/graphc/types"
)

// FileName is the manifest file looked up by Load and FindAndLoad.
const FileName = "graphc.toml"

var log = commonlog.GetLogger("graphc.manifest")

// Manifest represents a graphc.toml project configuration.
type Manifest struct {
	Project Project           `toml:"project"`
	Compile CompileConfig     `toml:"compile"`
	Cache   CacheConfig       `toml:"cache"`
	Types   TypesConfig       `toml:"types"`
	Macros  map[string]string `toml:"macros"`

	// Dir is the directory containing the graphc.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// CompileConfig holds compiler settings.
type CompileConfig struct {
	OffsetWidth   string      `toml:"offset-width"`
	MaxExpansions int         `toml:"max-expansions"`
	Workers       int         `toml:"workers"`
	Promotions    []Promotion `toml:"promotions"`
}

// Promotion is an extra edge in the type promotion table.
type Promotion struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

// CacheConfig selects the program store.
type CacheConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path"`
}

// TypesConfig declares the aggregate and object types graphs may use.
type TypesConfig struct {
	Structs []StructConfig `toml:"structs"`
	Classes []ClassConfig  `toml:"classes"`
}

// StructConfig declares a struct type.
type StructConfig struct {
	Name   string        `toml:"name"`
	Fields []types.Field `toml:"fields"`
}

// ClassConfig declares an object class.
type ClassConfig struct {
	Name   string `toml:"name"`
	Parent string `toml:"parent"`
}

// Load parses and validates a graphc.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	return LoadFile(filepath.Join(dir, FileName))
}

// LoadFile parses and validates the manifest at path. Relative paths in
// the manifest are resolved against its directory.
func LoadFile(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Dir, err = filepath.Abs(filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}
	log.Debugf("loaded %s", path)
	return m, nil
}

// Parse decodes manifest text, checks it against the schema and applies
// defaults. Dir is left empty.
func Parse(data []byte) (*Manifest, error) {
	var raw map[string]interface{}
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}
	var m Manifest
	if _, err := toml.Decode(string(data), &m); err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	m.applyDefaults()
	return &m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Compile.OffsetWidth == "" {
		m.Compile.OffsetWidth = "auto"
	}
	if m.Compile.Workers == 0 {
		m.Compile.Workers = runtime.NumCPU()
	}
	if m.Cache.Driver == "" {
		m.Cache.Driver = "sqlite"
	}
	if m.Cache.Path == "" {
		m.Cache.Path = filepath.Join(".graphc", "cache.db")
	}
}

// FindAndLoad walks up from startDir to find a graphc.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return nil, nil
		}
		dir = parent
	}
}

// Default returns the manifest used when a project has none.
func Default() *Manifest {
	m := &Manifest{}
	m.applyDefaults()
	return m
}

// CachePath returns the absolute path of the program store.
func (m *Manifest) CachePath() string {
	if filepath.IsAbs(m.Cache.Path) {
		return m.Cache.Path
	}
	return filepath.Join(m.Dir, m.Cache.Path)
}

// Width returns the configured jump offset width.
func (m *Manifest) Width() (bytecode.Width, error) {
	return bytecode.ParseWidth(m.Compile.OffsetWidth)
}

// TypeRegistry builds the type registry declared by the manifest,
// including extra promotions.
func (m *Manifest) TypeRegistry() (*types.Registry, error) {
	reg := types.NewRegistry()
	for _, s := range m.Types.Structs {
		reg.DefineStruct(s.Name, s.Fields...)
	}
	for _, c := range m.Types.Classes {
		reg.DefineClass(c.Name, c.Parent)
	}
	for _, s := range m.Types.Structs {
		for _, f := range s.Fields {
			t, err := types.Parse(f.Type)
			if err != nil {
				return nil, fmt.Errorf("struct %s field %s: %w", s.Name, f.Name, err)
			}
			if err := reg.Check(t); err != nil {
				return nil, fmt.Errorf("struct %s field %s: %w", s.Name, f.Name, err)
			}
		}
	}
	for _, p := range m.Compile.Promotions {
		from, err := types.Parse(p.From)
		if err != nil {
			return nil, fmt.Errorf("promotion %s -> %s: %w", p.From, p.To, err)
		}
		to, err := types.Parse(p.To)
		if err != nil {
			return nil, fmt.Errorf("promotion %s -> %s: %w", p.From, p.To, err)
		}
		if err := reg.AddPromotion(from, to); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// MacroLibrary loads every macro graph named in [macros]. Paths are
// relative to the manifest directory.
func (m *Manifest) MacroLibrary() (*expand.MacroLibrary, error) {
	lib := expand.NewMacroLibrary()
	names := make([]string, 0, len(m.Macros))
	for name := range m.Macros {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := m.Macros[name]
		if !filepath.IsAbs(path) {
			path = filepath.Join(m.Dir, path)
		}
		g, err := graph.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("macro %s: %w", name, err)
		}
		if err := lib.Add(name, g); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

// Options assembles compiler options from the manifest. fns may be nil
// for the builtin library.
func (m *Manifest) Options(fns *symbols.Registry) (compiler.Options, error) {
	width, err := m.Width()
	if err != nil {
		return compiler.Options{}, err
	}
	reg, err := m.TypeRegistry()
	if err != nil {
		return compiler.Options{}, err
	}
	macros, err := m.MacroLibrary()
	if err != nil {
		return compiler.Options{}, err
	}
	return compiler.Options{
		Width:         width,
		MaxExpansions: m.Compile.MaxExpansions,
		Workers:       m.Compile.Workers,
		Types:         reg,
		Functions:     fns,
		Macros:        macros,
	}, nil
}
