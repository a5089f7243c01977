package levels

import (
	"bytes"
	"errors"
	"io/fs"
	"slices"
	"strings"
	"testing"

	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/rmp"
)

func TestBundledLevelsBuild(t *testing.T) {
	names := Names()
	if !slices.Equal(names, []string{"field", "town"}) {
		t.Fatalf("names = %v", names)
	}
	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			lvl, err := Load(name)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			m, err := lvl.Build()
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			var buf bytes.Buffer
			if err := rmp.Encode(&buf, m); err != nil {
				t.Fatalf("encode: %v", err)
			}
			back, err := rmp.Decode(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(back.Layers) != len(m.Layers) || len(back.Entities) != len(m.Entities) {
				t.Fatalf("decoded %d layers %d entities, want %d and %d",
					len(back.Layers), len(back.Entities), len(m.Layers), len(m.Entities))
			}
		})
	}
}

func TestTownLayout(t *testing.T) {
	m, err := Source{}.LoadMap("maps/town.rmp")
	if err != nil {
		t.Fatalf("load map: %v", err)
	}
	ground := m.Layers[0]
	if ground.Width != 20 || ground.Height != 15 {
		t.Fatalf("ground is %dx%d", ground.Width, ground.Height)
	}
	if got := ground.TileAt(0, 0); got != 2 {
		t.Fatalf("corner tile = %d, want 2", got)
	}
	if got := ground.TileAt(19, 5); got != 1 {
		t.Fatalf("road exit tile = %d, want 1", got)
	}
	if m.Header.StartDirection != int8(person.East) {
		t.Fatalf("start direction = %d", m.Header.StartDirection)
	}
	if !strings.Contains(m.String(rmp.StringLeaveEast), `ChangeMap("field.rmp")`) {
		t.Fatalf("leave east script = %q", m.String(rmp.StringLeaveEast))
	}
	var people []string
	for _, e := range m.Entities {
		if e.Type == rmp.EntityPerson {
			people = append(people, e.Name)
		}
	}
	if !slices.Equal(people, []string{"elder", "cat"}) {
		t.Fatalf("persons = %v", people)
	}
}

func TestSourceMissingLevel(t *testing.T) {
	_, err := Source{}.LoadMap("nowhere.rmp")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
}

func TestBuildRejects(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"no layers", `name: empty`},
		{"ragged rows", `
layers:
  - rows: ["000", "00"]
`},
		{"bad tile", `
layers:
  - rows: ["0!0"]
`},
		{"bad direction", `
start: {direction: up}
layers:
  - rows: ["0"]
`},
		{"start layer", `
start: {layer: 2}
layers:
  - rows: ["0"]
`},
		{"unnamed person", `
layers:
  - rows: ["0"]
persons:
  - x: 1
`},
		{"inverted zone", `
layers:
  - rows: ["0"]
zones:
  - {x1: 10, y1: 0, x2: 5, y2: 5}
`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lvl, err := Parse([]byte(tc.src))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if _, err := lvl.Build(); !errors.Is(err, ErrInvalid) {
				t.Fatalf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestBase36Tiles(t *testing.T) {
	lvl, err := Parse([]byte(`
toric: true
layers:
  - name: ground
    rows: ["09az", "ZZ00"]
    segments: [[0, 0, 16, 0]]
  - name: roof
    hidden: true
    rows: ["0000", "0000"]
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	m, err := lvl.Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !slices.Equal(m.Layers[0].Tiles, []int16{0, 9, 10, 35, 35, 35, 0, 0}) {
		t.Fatalf("tiles = %v", m.Layers[0].Tiles)
	}
	if !m.Toric() || !m.Layers[1].Hidden() || len(m.Layers[0].Segments) != 1 {
		t.Fatalf("flags not carried: toric=%v hidden=%v segments=%d", m.Toric(), m.Layers[1].Hidden(), len(m.Layers[0].Segments))
	}
}

func TestGameScript(t *testing.T) {
	if !strings.Contains(Game(), `MapEngine("town.rmp"`) {
		t.Fatalf("game script does not start the town map")
	}
}
