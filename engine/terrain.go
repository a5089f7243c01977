package engine

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/rmp"
)

// terrain adapts a loaded map to the person obstruction query.
type terrain struct {
	m          *rmp.Map
	tileW      float64
	tileH      float64
	obstructed map[int]bool
}

func newTerrain(m *rmp.Map, tileW, tileH int, obstructed map[int]bool) *terrain {
	return &terrain{m: m, tileW: float64(tileW), tileH: float64(tileH), obstructed: obstructed}
}

// Bounds is the pixel size of the base layer.
func (t *terrain) Bounds() (float64, float64) {
	if t == nil || len(t.m.Layers) == 0 {
		return 0, 0
	}
	base := t.m.Layers[0]
	return float64(base.Width) * t.tileW, float64(base.Height) * t.tileH
}

func (t *terrain) Toric() bool {
	return t != nil && t.m.Toric()
}

func (t *terrain) TileObstruction(layer int, box cp.BB) (int, bool) {
	if t == nil || layer < 0 || layer >= len(t.m.Layers) {
		return person.NoTile, false
	}
	l := t.m.Layers[layer]

	tx0 := int(math.Floor(box.L / t.tileW))
	tx1 := int(math.Ceil(box.R/t.tileW)) - 1
	ty0 := int(math.Floor(box.B / t.tileH))
	ty1 := int(math.Ceil(box.T/t.tileH)) - 1
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			tile := t.tileAt(l, tx, ty)
			if tile >= 0 && t.obstructed[tile] {
				return tile, true
			}
		}
	}

	for _, seg := range l.Segments {
		a := cp.Vector{X: float64(seg.X1), Y: float64(seg.Y1)}
		b := cp.Vector{X: float64(seg.X2), Y: float64(seg.Y2)}
		if box.IntersectsSegment(a, b) {
			return person.NoTile, true
		}
	}
	return person.NoTile, false
}

func (t *terrain) tileAt(l *rmp.Layer, tx, ty int) int {
	if t.m.Toric() && l.Width > 0 && l.Height > 0 {
		tx = ((tx % l.Width) + l.Width) % l.Width
		ty = ((ty % l.Height) + l.Height) % l.Height
	}
	return l.TileAt(tx, ty)
}

// tileOf returns the tile grid cell containing the world point x,y.
func (t *terrain) tileOf(x, y float64) (int, int) {
	return int(math.Floor(x / t.tileW)), int(math.Floor(y / t.tileH))
}
