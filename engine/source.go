package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/milk9111/mapengine/rmp"
)

// MapSource resolves a map name to a decoded map. A source that does not
// know the name returns an error wrapping fs.ErrNotExist.
type MapSource interface {
	LoadMap(name string) (*rmp.Map, error)
}

// DirSource loads .rmp files relative to a maps directory.
type DirSource struct {
	Dir string
}

func (d DirSource) LoadMap(name string) (*rmp.Map, error) {
	return rmp.Load(d.Resolve(name))
}

// Resolve turns a map name into a file path. Absolute paths and paths that
// already start with the maps directory are used as given.
func (d DirSource) Resolve(name string) string {
	if name == "" || filepath.IsAbs(name) || d.Dir == "" {
		return name
	}
	clean := filepath.ToSlash(filepath.Clean(name))
	dir := filepath.ToSlash(filepath.Clean(d.Dir))
	if strings.HasPrefix(clean, dir+"/") {
		return filepath.FromSlash(clean)
	}
	return filepath.Join(d.Dir, name)
}

// MultiSource tries each source in order and returns the first map found.
type MultiSource []MapSource

func (ms MultiSource) LoadMap(name string) (*rmp.Map, error) {
	for _, src := range ms {
		m, err := src.LoadMap(name)
		if err == nil {
			return m, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("map %q: %w: %w", name, ErrIO, fs.ErrNotExist)
}

// SourceFunc adapts a function to MapSource.
type SourceFunc func(name string) (*rmp.Map, error)

func (f SourceFunc) LoadMap(name string) (*rmp.Map, error) {
	return f(name)
}
