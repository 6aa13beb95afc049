package contract

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/sanctum"
)

// Set is a collection of contracts loaded together. Guards in a set
// can extend each other.
type Set struct {
	contracts map[string]*Contract
	order     []string
}

// LoadDir loads guard contracts from a directory of CUE files.
// The directory is loaded as a single CUE package: files unify, and
// conflicting guard definitions surface as CUE errors.
func LoadDir(dir string) (*Set, error) {
	value, _, err := BuildDir(dir)
	if err != nil {
		return nil, err
	}
	return FromValue(value)
}

// BuildDir loads a directory of CUE files into a single value and
// returns it with the file count. Callers that want per-guard error
// collection iterate the guard block themselves; LoadDir is the
// fail-fast path.
func BuildDir(dir string) (cue.Value, int, error) {
	info, err := os.Stat(dir)
	if os.IsNotExist(err) {
		return cue.Value{}, 0, fmt.Errorf("contracts directory not found: %s", dir)
	}
	if err != nil {
		return cue.Value{}, 0, fmt.Errorf("error accessing contracts directory: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, 0, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, 0, fmt.Errorf("error scanning directory: %w", err)
	}
	if len(files) == 0 {
		return cue.Value{}, 0, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	cfg := &load.Config{Dir: dir}
	instances := load.Instances([]string{"."}, cfg)
	if len(instances) == 0 {
		return cue.Value{}, 0, fmt.Errorf("no CUE instances loaded from %s", dir)
	}

	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, 0, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, 0, formatCUEError(err)
	}

	return value, len(files), nil
}

// LoadBytes compiles one CUE source into a contract set.
// The filename only labels error positions.
func LoadBytes(filename string, src []byte) (*Set, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(src, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	return FromValue(value)
}

// FromValue extracts the guard block from a built CUE value.
func FromValue(value cue.Value) (*Set, error) {
	guards := value.LookupPath(cue.ParsePath("guard"))
	if !guards.Exists() {
		return nil, fmt.Errorf("no guard block found")
	}

	iter, err := guards.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	set := &Set{contracts: make(map[string]*Contract)}
	for iter.Next() {
		c, err := CompileContract(iter.Value())
		if err != nil {
			return nil, err
		}
		set.contracts[c.Name] = c
		set.order = append(set.order, c.Name)
	}

	if len(set.order) == 0 {
		return nil, fmt.Errorf("guard block is empty")
	}

	return set, nil
}

// FindCUEFiles walks the directory and returns all .cue file paths.
func FindCUEFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".cue" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// Len returns the number of guards in the set.
func (s *Set) Len() int {
	return len(s.order)
}

// Names returns the guard names in declaration order.
func (s *Set) Names() []string {
	return slices.Clone(s.order)
}

// Contract returns the named guard.
func (s *Set) Contract(name string) (*Contract, bool) {
	c, ok := s.contracts[name]
	return c, ok
}

// Contracts returns all guards in declaration order.
func (s *Set) Contracts() []*Contract {
	out := make([]*Contract, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.contracts[name])
	}
	return out
}

// Declaration converts the named guard into a registrable declaration,
// resolving extends against the set. The base guard must carry a type
// reference, since that is what the declaration's Extends names.
func (s *Set) Declaration(name string) (sanctum.Declaration, error) {
	c, ok := s.contracts[name]
	if !ok {
		return sanctum.Declaration{}, fmt.Errorf("unknown guard %q", name)
	}

	decl := sanctum.Declaration{
		Names:    slices.Clone(c.Attrs),
		Defaults: maps.Clone(c.Defaults),
	}

	if c.Extends != "" {
		base, ok := s.contracts[c.Extends]
		if !ok {
			return sanctum.Declaration{}, fmt.Errorf("guard %q extends unknown guard %q", name, c.Extends)
		}
		if base.TypeRef == "" {
			return sanctum.Declaration{}, fmt.Errorf("guard %q extends %q, which declares no type reference", name, c.Extends)
		}
		decl.Extends = sanctum.TypeRef(base.TypeRef)
	}

	return decl, nil
}
