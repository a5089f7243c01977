// Package levels holds the bundled demo maps as YAML sources and builds them
// into .rmp maps.
package levels

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/milk9111/mapengine/rmp"
)

//go:embed *.yaml
var LevelsFS embed.FS

//go:embed game.tengo
var gameScript string

// Game returns the bundled game script.
func Game() string {
	return gameScript
}

// Names lists the bundled level names without extension.
func Names() []string {
	entries, err := fs.ReadDir(LevelsFS, ".")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		if n, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, n)
		}
	}
	slices.Sort(names)
	return names
}

// Load reads a level by name. A copy under ./levels on disk wins over the
// bundled one.
func Load(name string) (*Level, error) {
	clean := cleanLevelPath(name)
	data, err := os.ReadFile(filepath.Join("levels", filepath.FromSlash(clean)))
	if err != nil {
		data, err = LevelsFS.ReadFile(clean)
	}
	if err != nil {
		return nil, fmt.Errorf("levels: load %s: %w", name, err)
	}
	lvl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("levels: load %s: %w", name, err)
	}
	return lvl, nil
}

// ReadFile parses a level source at an arbitrary path.
func ReadFile(p string) (*Level, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("levels: read %s: %w", p, err)
	}
	lvl, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("levels: read %s: %w", p, err)
	}
	return lvl, nil
}

// Source serves levels as maps. "town.rmp", "town.yaml" and "town" all name
// the same level.
type Source struct{}

func (Source) LoadMap(name string) (*rmp.Map, error) {
	lvl, err := Load(name)
	if err != nil {
		return nil, err
	}
	m, err := lvl.Build()
	if err != nil {
		return nil, fmt.Errorf("levels: build %s: %w: %w", name, rmp.ErrFormat, err)
	}
	return m, nil
}

func cleanLevelPath(name string) string {
	s := path.Base(filepath.ToSlash(name))
	if after, ok := strings.CutSuffix(s, ".rmp"); ok {
		s = after
	}
	if !strings.HasSuffix(s, ".yaml") {
		s += ".yaml"
	}
	return s
}
