package rmp

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
)

// Encode writes m to w. Section counts in the header are taken from the map's
// slices, everything else from m.Header.
func Encode(w io.Writer, m *Map) error {
	if m == nil {
		return fmt.Errorf("rmp: encode nil map")
	}
	if len(m.Strings) > math.MaxInt16 || len(m.Layers) > math.MaxInt8 ||
		len(m.Entities) > math.MaxInt16 || len(m.Zones) > math.MaxInt16 {
		return fmt.Errorf("rmp: encode: section too large: %w", ErrFormat)
	}

	hdr := m.Header
	copy(hdr.Signature[:], Signature)
	hdr.Version = Version
	hdr.NumStrings = int16(len(m.Strings))
	hdr.NumLayers = int8(len(m.Layers))
	hdr.NumEntities = int16(len(m.Entities))
	hdr.NumZones = int16(len(m.Zones))

	bw := bufio.NewWriter(w)
	if err := write(bw, &hdr); err != nil {
		return err
	}
	for _, s := range m.Strings {
		if err := writeString(bw, s); err != nil {
			return err
		}
	}
	for i, layer := range m.Layers {
		if err := writeLayer(bw, layer); err != nil {
			return fmt.Errorf("rmp: encode layer %d: %w", i, err)
		}
	}
	for i, ent := range m.Entities {
		if err := writeEntity(bw, ent); err != nil {
			return fmt.Errorf("rmp: encode entity %d: %w", i, err)
		}
	}
	for _, zone := range m.Zones {
		zh := zoneHeader{
			X1: int16(zone.X1), Y1: int16(zone.Y1),
			X2: int16(zone.X2), Y2: int16(zone.Y2),
			Layer: int16(zone.Layer),
			Reach: int16(zone.Reach),
		}
		if err := write(bw, &zh); err != nil {
			return err
		}
		if err := writeString(bw, zone.Script); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// Save encodes m into the file at path.
func Save(path string, m *Map) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rmp: create %s: %w: %w", path, ErrIO, err)
	}
	if err := Encode(f, m); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeLayer(w io.Writer, layer *Layer) error {
	if layer == nil {
		return fmt.Errorf("nil layer: %w", ErrFormat)
	}
	if len(layer.Tiles) != layer.Width*layer.Height {
		return fmt.Errorf("tile count %d does not match %dx%d: %w", len(layer.Tiles), layer.Width, layer.Height, ErrFormat)
	}
	var reflective uint8
	if layer.Reflective {
		reflective = 1
	}
	lh := layerHeader{
		Width:       int16(layer.Width),
		Height:      int16(layer.Height),
		Flags:       layer.Flags,
		ParallaxX:   layer.ParallaxX,
		ParallaxY:   layer.ParallaxY,
		ScrollX:     layer.ScrollX,
		ScrollY:     layer.ScrollY,
		NumSegments: int32(len(layer.Segments)),
		Reflective:  reflective,
	}
	if err := write(w, &lh); err != nil {
		return err
	}
	if err := writeString(w, layer.Name); err != nil {
		return err
	}
	if err := write(w, layer.Tiles); err != nil {
		return err
	}
	if len(layer.Segments) > 0 {
		return write(w, layer.Segments)
	}
	return nil
}

func writeEntity(w io.Writer, ent Entity) error {
	eh := entityHeader{X: int16(ent.X), Y: int16(ent.Y), Layer: int16(ent.Layer), Type: int16(ent.Type)}
	if err := write(w, &eh); err != nil {
		return err
	}
	switch ent.Type {
	case EntityPerson:
		if err := writeString(w, ent.Name); err != nil {
			return err
		}
		if err := writeString(w, ent.Spriteset); err != nil {
			return err
		}
		scripts := make([]string, NumPersonScripts)
		copy(scripts, ent.Scripts)
		if err := write(w, uint16(len(scripts))); err != nil {
			return err
		}
		for _, s := range scripts {
			if err := writeString(w, s); err != nil {
				return err
			}
		}
		var reserved [16]byte
		return write(w, &reserved)
	case EntityTrigger:
		var script string
		if len(ent.Scripts) > 0 {
			script = ent.Scripts[0]
		}
		return writeString(w, script)
	default:
		return fmt.Errorf("unknown entity type %d: %w", ent.Type, ErrFormat)
	}
}

func write(w io.Writer, v any) error {
	if err := binary.Write(w, binary.LittleEndian, v); err != nil {
		return fmt.Errorf("rmp: write: %w: %w", ErrIO, err)
	}
	return nil
}

func writeString(w io.Writer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("rmp: string of %d bytes too long: %w", len(s), ErrFormat)
	}
	if err := write(w, uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}
