package levels

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/rmp"
	"gopkg.in/yaml.v3"
)

var ErrInvalid = errors.New("invalid level")

// Level is the YAML source of a map.
type Level struct {
	Name     string        `yaml:"name"`
	Tileset  string        `yaml:"tileset"`
	Music    string        `yaml:"music"`
	Toric    bool          `yaml:"toric"`
	Start    Start         `yaml:"start"`
	Scripts  MapScripts    `yaml:"scripts"`
	Layers   []LayerSpec   `yaml:"layers"`
	Persons  []PersonSpec  `yaml:"persons,omitempty"`
	Triggers []TriggerSpec `yaml:"triggers,omitempty"`
	Zones    []ZoneSpec    `yaml:"zones,omitempty"`
}

type Start struct {
	X         int    `yaml:"x"`
	Y         int    `yaml:"y"`
	Layer     int    `yaml:"layer"`
	Direction string `yaml:"direction"`
}

type MapScripts struct {
	Enter      string `yaml:"enter"`
	Leave      string `yaml:"leave"`
	LeaveNorth string `yaml:"leave_north"`
	LeaveEast  string `yaml:"leave_east"`
	LeaveSouth string `yaml:"leave_south"`
	LeaveWest  string `yaml:"leave_west"`
}

// LayerSpec is one tile layer. Each row is a string of base-36 tile indices,
// one character per tile.
type LayerSpec struct {
	Name     string   `yaml:"name"`
	Hidden   bool     `yaml:"hidden"`
	Rows     []string `yaml:"rows"`
	Segments [][4]int `yaml:"segments,omitempty"`
}

type PersonSpec struct {
	Name      string        `yaml:"name"`
	Spriteset string        `yaml:"spriteset"`
	X         int           `yaml:"x"`
	Y         int           `yaml:"y"`
	Layer     int           `yaml:"layer"`
	Scripts   PersonScripts `yaml:"scripts"`
}

type PersonScripts struct {
	Create    string `yaml:"create"`
	Destroy   string `yaml:"destroy"`
	Touch     string `yaml:"touch"`
	Talk      string `yaml:"talk"`
	Generator string `yaml:"generator"`
}

type TriggerSpec struct {
	X      int    `yaml:"x"`
	Y      int    `yaml:"y"`
	Layer  int    `yaml:"layer"`
	Script string `yaml:"script"`
}

type ZoneSpec struct {
	X1     int    `yaml:"x1"`
	Y1     int    `yaml:"y1"`
	X2     int    `yaml:"x2"`
	Y2     int    `yaml:"y2"`
	Layer  int    `yaml:"layer"`
	Reach  int    `yaml:"reach"`
	Script string `yaml:"script"`
}

func Parse(data []byte) (*Level, error) {
	var lvl Level
	if err := yaml.Unmarshal(data, &lvl); err != nil {
		return nil, fmt.Errorf("unmarshal level: %w", err)
	}
	return &lvl, nil
}

// Build converts the level into a map ready to encode or run.
func (l *Level) Build() (*rmp.Map, error) {
	if len(l.Layers) == 0 {
		return nil, fmt.Errorf("%w: no layers", ErrInvalid)
	}
	if len(l.Layers) > 127 {
		return nil, fmt.Errorf("%w: %d layers", ErrInvalid, len(l.Layers))
	}

	dir := person.South
	if l.Start.Direction != "" {
		d, err := person.ParseDirection(l.Start.Direction)
		if err != nil {
			return nil, fmt.Errorf("%w: start: %w", ErrInvalid, err)
		}
		dir = d
	}
	if l.Start.Layer < 0 || l.Start.Layer >= len(l.Layers) {
		return nil, fmt.Errorf("%w: start layer %d", ErrInvalid, l.Start.Layer)
	}

	m := &rmp.Map{
		Header: rmp.Header{
			StartX:         int16(l.Start.X),
			StartY:         int16(l.Start.Y),
			StartLayer:     int8(l.Start.Layer),
			StartDirection: int8(dir),
		},
		Strings: make([]string, rmp.NumMapStrings),
	}
	if l.Toric {
		m.Header.ToricMap = 1
	}
	m.Strings[rmp.StringTileset] = l.Tileset
	m.Strings[rmp.StringMusic] = l.Music
	m.Strings[rmp.StringEnter] = l.Scripts.Enter
	m.Strings[rmp.StringLeave] = l.Scripts.Leave
	m.Strings[rmp.StringLeaveNorth] = l.Scripts.LeaveNorth
	m.Strings[rmp.StringLeaveEast] = l.Scripts.LeaveEast
	m.Strings[rmp.StringLeaveSouth] = l.Scripts.LeaveSouth
	m.Strings[rmp.StringLeaveWest] = l.Scripts.LeaveWest

	for i, ls := range l.Layers {
		layer, err := ls.build()
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %w", ErrInvalid, i, err)
		}
		m.Layers = append(m.Layers, layer)
	}

	for _, p := range l.Persons {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: person without a name", ErrInvalid)
		}
		s := p.Scripts
		m.Entities = append(m.Entities, rmp.Entity{
			X: p.X, Y: p.Y, Layer: p.Layer,
			Type:      rmp.EntityPerson,
			Name:      p.Name,
			Spriteset: p.Spriteset,
			Scripts:   []string{s.Create, s.Destroy, s.Touch, s.Talk, s.Generator},
		})
	}
	for _, t := range l.Triggers {
		m.Entities = append(m.Entities, rmp.Entity{
			X: t.X, Y: t.Y, Layer: t.Layer,
			Type:    rmp.EntityTrigger,
			Scripts: []string{t.Script},
		})
	}
	for _, z := range l.Zones {
		if z.X2 < z.X1 || z.Y2 < z.Y1 {
			return nil, fmt.Errorf("%w: zone %d,%d-%d,%d", ErrInvalid, z.X1, z.Y1, z.X2, z.Y2)
		}
		m.Zones = append(m.Zones, rmp.Zone{
			X1: z.X1, Y1: z.Y1, X2: z.X2, Y2: z.Y2,
			Layer: z.Layer, Reach: z.Reach, Script: z.Script,
		})
	}
	return m, nil
}

func (ls LayerSpec) build() (*rmp.Layer, error) {
	if len(ls.Rows) == 0 {
		return nil, errors.New("no rows")
	}
	w := len(ls.Rows[0])
	layer := &rmp.Layer{
		Name:      ls.Name,
		Width:     w,
		Height:    len(ls.Rows),
		Tiles:     make([]int16, 0, w*len(ls.Rows)),
		ParallaxX: 1,
		ParallaxY: 1,
	}
	if ls.Hidden {
		layer.Flags |= rmp.LayerHidden
	}
	for y, row := range ls.Rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d is %d tiles wide, want %d", y, len(row), w)
		}
		for x, c := range row {
			v, err := strconv.ParseInt(string(c), 36, 16)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: tile %q", y, x, c)
			}
			layer.Tiles = append(layer.Tiles, int16(v))
		}
	}
	for _, s := range ls.Segments {
		layer.Segments = append(layer.Segments, rmp.Segment{X1: int32(s[0]), Y1: int32(s[1]), X2: int32(s[2]), Y2: int32(s[3])})
	}
	return layer, nil
}
