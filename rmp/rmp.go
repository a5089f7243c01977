// Package rmp reads and writes version 1 ".rmp" map files.
package rmp

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

var (
	// ErrFormat reports a malformed, truncated or unsupported map file.
	ErrFormat = errors.New("map format error")
	// ErrIO reports a failure to open or read a map file.
	ErrIO = errors.New("map i/o error")
)

// Signature is the magic found at offset 0 of every map file.
const Signature = ".rmp"

// Version is the only supported map file version.
const Version = 1

// HeaderSize is the fixed on-disk size of Header.
const HeaderSize = 256

// maxPrealloc caps capacity reserved from counts read out of a file.
const maxPrealloc = 1024

// Indices into Map.Strings.
const (
	StringTileset = iota
	StringMusic
	StringScript
	StringEnter
	StringLeave
	StringLeaveNorth
	StringLeaveEast
	StringLeaveSouth
	StringLeaveWest

	NumMapStrings
)

// Entity types.
const (
	EntityPerson  = 1
	EntityTrigger = 2
)

// Number of scripts stored with a person entity.
const NumPersonScripts = 5

// LayerHidden is set in Layer.Flags when the layer is not drawn.
const LayerHidden = 1 << 0

// Header is the fixed 256 byte little-endian file header.
type Header struct {
	Signature      [4]byte
	Version        int16
	Type           uint8
	NumLayers      int8
	Reserved1      uint8
	NumEntities    int16
	StartX         int16
	StartY         int16
	StartLayer     int8
	StartDirection int8
	NumStrings     int16
	NumZones       int16
	ToricMap       uint8
	Reserved       [234]byte
}

type layerHeader struct {
	Width       int16
	Height      int16
	Flags       uint16
	ParallaxX   float32
	ParallaxY   float32
	ScrollX     float32
	ScrollY     float32
	NumSegments int32
	Reflective  uint8
	Reserved    [3]byte
}

type entityHeader struct {
	X        int16
	Y        int16
	Layer    int16
	Type     int16
	Reserved [8]byte
}

type zoneHeader struct {
	X1       int16
	Y1       int16
	X2       int16
	Y2       int16
	Layer    int16
	Reach    int16
	Reserved [4]byte
}

// Segment is an obstruction line in layer pixel space.
type Segment struct {
	X1, Y1, X2, Y2 int32
}

// Layer is one tile grid of a map.
type Layer struct {
	Name       string
	Width      int
	Height     int
	Flags      uint16
	ParallaxX  float32
	ParallaxY  float32
	ScrollX    float32
	ScrollY    float32
	Reflective bool
	Tiles      []int16
	Segments   []Segment
}

// Hidden reports whether the layer is flagged as not drawn.
func (l *Layer) Hidden() bool {
	return l != nil && l.Flags&LayerHidden != 0
}

// TileAt returns the tile index at grid position x,y or -1 when out of range.
func (l *Layer) TileAt(x, y int) int {
	if l == nil || x < 0 || y < 0 || x >= l.Width || y >= l.Height {
		return -1
	}
	return int(l.Tiles[y*l.Width+x])
}

// Entity is a person or trigger placed on the map.
type Entity struct {
	X, Y      int
	Layer     int
	Type      int
	Name      string
	Spriteset string
	// Scripts holds the person scripts in person.ScriptType order, or the single
	// trigger script.
	Scripts []string
}

// Zone is a rectangular script area on one layer.
type Zone struct {
	X1, Y1, X2, Y2 int
	Layer          int
	Reach          int
	Script         string
}

// Map is a decoded map file.
type Map struct {
	Header   Header
	Strings  []string
	Layers   []*Layer
	Entities []Entity
	Zones    []Zone
}

// Toric reports whether the map wraps at its edges.
func (m *Map) Toric() bool {
	return m != nil && m.Header.ToricMap != 0
}

// String returns map string i, or "" when the map has fewer strings.
func (m *Map) String(i int) string {
	if m == nil || i < 0 || i >= len(m.Strings) {
		return ""
	}
	return m.Strings[i]
}

// Load decodes the map file at path.
func Load(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rmp: open %s: %w: %w", path, ErrIO, err)
	}
	defer f.Close()

	m, err := Decode(bufio.NewReader(f))
	if err != nil {
		return nil, fmt.Errorf("rmp: load %s: %w", path, err)
	}
	return m, nil
}

// Decode reads a complete map from r. No partially decoded map is ever returned.
func Decode(r io.Reader) (*Map, error) {
	var hdr Header
	if err := read(r, &hdr); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	if string(hdr.Signature[:]) != Signature {
		return nil, fmt.Errorf("bad signature %q: %w", hdr.Signature[:], ErrFormat)
	}
	if hdr.Version != Version {
		return nil, fmt.Errorf("unsupported version %d: %w", hdr.Version, ErrFormat)
	}
	if hdr.NumStrings < 0 || hdr.NumLayers < 0 || hdr.NumEntities < 0 || hdr.NumZones < 0 {
		return nil, fmt.Errorf("negative section count: %w", ErrFormat)
	}

	m := &Map{Header: hdr}

	m.Strings = make([]string, 0, hdr.NumStrings)
	for i := 0; i < int(hdr.NumStrings); i++ {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("string %d: %w", i, err)
		}
		m.Strings = append(m.Strings, s)
	}

	m.Layers = make([]*Layer, 0, hdr.NumLayers)
	for i := 0; i < int(hdr.NumLayers); i++ {
		layer, err := readLayer(r)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		m.Layers = append(m.Layers, layer)
	}

	m.Entities = make([]Entity, 0, hdr.NumEntities)
	for i := 0; i < int(hdr.NumEntities); i++ {
		ent, err := readEntity(r)
		if err != nil {
			return nil, fmt.Errorf("entity %d: %w", i, err)
		}
		m.Entities = append(m.Entities, ent)
	}

	m.Zones = make([]Zone, 0, hdr.NumZones)
	for i := 0; i < int(hdr.NumZones); i++ {
		zone, err := readZone(r)
		if err != nil {
			return nil, fmt.Errorf("zone %d: %w", i, err)
		}
		m.Zones = append(m.Zones, zone)
	}

	return m, nil
}

func readLayer(r io.Reader) (*Layer, error) {
	var lh layerHeader
	if err := read(r, &lh); err != nil {
		return nil, err
	}
	if lh.Width < 0 || lh.Height < 0 || lh.NumSegments < 0 {
		return nil, fmt.Errorf("bad layer size %dx%d segments=%d: %w", lh.Width, lh.Height, lh.NumSegments, ErrFormat)
	}
	name, err := readString(r)
	if err != nil {
		return nil, err
	}

	layer := &Layer{
		Name:       name,
		Width:      int(lh.Width),
		Height:     int(lh.Height),
		Flags:      lh.Flags,
		ParallaxX:  lh.ParallaxX,
		ParallaxY:  lh.ParallaxY,
		ScrollX:    lh.ScrollX,
		ScrollY:    lh.ScrollY,
		Reflective: lh.Reflective != 0,
	}

	// Sizes come from the file, so storage grows one row at a time and a
	// truncated body fails before it can claim more than it delivered.
	row := make([]int16, layer.Width)
	for y := 0; y < layer.Height; y++ {
		if err := read(r, row); err != nil {
			return nil, err
		}
		layer.Tiles = append(layer.Tiles, row...)
	}
	if layer.Tiles == nil {
		layer.Tiles = []int16{}
	}

	layer.Segments = make([]Segment, 0, min(int(lh.NumSegments), maxPrealloc))
	for i := 0; i < int(lh.NumSegments); i++ {
		var seg Segment
		if err := read(r, &seg); err != nil {
			return nil, err
		}
		layer.Segments = append(layer.Segments, seg)
	}
	return layer, nil
}

func readEntity(r io.Reader) (Entity, error) {
	var eh entityHeader
	if err := read(r, &eh); err != nil {
		return Entity{}, err
	}
	ent := Entity{X: int(eh.X), Y: int(eh.Y), Layer: int(eh.Layer), Type: int(eh.Type)}

	var err error
	switch eh.Type {
	case EntityPerson:
		if ent.Name, err = readString(r); err != nil {
			return Entity{}, err
		}
		if ent.Spriteset, err = readString(r); err != nil {
			return Entity{}, err
		}
		var count uint16
		if err := read(r, &count); err != nil {
			return Entity{}, err
		}
		ent.Scripts = make([]string, 0, min(int(count), maxPrealloc))
		for i := 0; i < int(count); i++ {
			s, err := readString(r)
			if err != nil {
				return Entity{}, err
			}
			ent.Scripts = append(ent.Scripts, s)
		}
		var reserved [16]byte
		if err := read(r, &reserved); err != nil {
			return Entity{}, err
		}
	case EntityTrigger:
		script, err := readString(r)
		if err != nil {
			return Entity{}, err
		}
		ent.Scripts = []string{script}
	default:
		return Entity{}, fmt.Errorf("unknown entity type %d: %w", eh.Type, ErrFormat)
	}
	return ent, nil
}

func readZone(r io.Reader) (Zone, error) {
	var zh zoneHeader
	if err := read(r, &zh); err != nil {
		return Zone{}, err
	}
	script, err := readString(r)
	if err != nil {
		return Zone{}, err
	}
	return Zone{
		X1: int(zh.X1), Y1: int(zh.Y1),
		X2: int(zh.X2), Y2: int(zh.Y2),
		Layer:  int(zh.Layer),
		Reach:  int(zh.Reach),
		Script: script,
	}, nil
}

// read fills v from r. Short reads are format errors, anything else is an i/o error.
func read(r io.Reader, v any) error {
	if err := binary.Read(r, binary.LittleEndian, v); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("short read: %w", ErrFormat)
		}
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint16
	if err := read(r, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", fmt.Errorf("short string: %w", ErrFormat)
		}
		return "", fmt.Errorf("%w: %w", ErrIO, err)
	}
	return string(buf), nil
}
