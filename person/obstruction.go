package person

import "github.com/jakecoffman/cp"

// NoTile is the Obstruction.Tile value when no tile blocks.
const NoTile = -1

// Terrain is the static geometry persons move across.
type Terrain interface {
	// Bounds returns the map size in pixels. Zero means unbounded.
	Bounds() (w, h float64)
	Toric() bool
	// TileObstruction reports the first obstructing tile under box on layer.
	// Geometry that blocks without a tile index reports blocked with NoTile.
	TileObstruction(layer int, box cp.BB) (tile int, blocked bool)
}

// Obstruction describes what stops a person from standing somewhere.
type Obstruction struct {
	// Person is the first blocking person in registry order.
	Person *Person
	// Tile is the first blocking tile index, or NoTile.
	Tile int
	// Terrain is set when map geometry blocks, with or without a tile index.
	Terrain bool
	// Edge is set when the position lies outside a non-toric map.
	Edge bool
	// EdgeDirection is the map side that was crossed when Edge is set.
	EdgeDirection Direction
}

func (o Obstruction) Blocked() bool {
	return o.Person != nil || o.Terrain || o.Edge
}

// ObstructionAt reports what would block p at x,y. Map edges come first, then
// terrain, then other persons on p's layer in registry order.
func (r *Registry) ObstructionAt(p *Person, x, y float64, t Terrain) Obstruction {
	ob := Obstruction{Tile: NoTile}
	if p == nil {
		return ob
	}

	if t != nil && !t.Toric() {
		w, h := t.Bounds()
		if d, out := outside(x, y, w, h); out {
			ob.Edge = true
			ob.EdgeDirection = d
			return ob
		}
	}

	box := p.BaseAt(x, y)
	if t != nil {
		if tile, blocked := t.TileObstruction(p.Layer, box); blocked {
			ob.Terrain = true
			ob.Tile = tile
		}
	}

	// On toric maps q is compared at its copy nearest to x,y so bases that
	// overlap across the seam collide.
	toric := t != nil && t.Toric()
	var w, h float64
	if toric {
		w, h = t.Bounds()
	}
	for _, q := range r.persons {
		if q == p || q.Layer != p.Layer {
			continue
		}
		qx, qy := q.X, q.Y
		if toric {
			qx, qy = x+nearest(q.X-x, w), y+nearest(q.Y-y, h)
		}
		if Overlaps(box, q.BaseAt(qx, qy)) {
			ob.Person = q
			break
		}
	}
	return ob
}

// Overlaps reports whether a and b share interior area. Boxes that only touch
// do not overlap.
func Overlaps(a, b cp.BB) bool {
	return a.L < b.R && b.L < a.R && a.B < b.T && b.B < a.T
}

func outside(x, y, w, h float64) (Direction, bool) {
	switch {
	case h > 0 && y < 0:
		return North, true
	case w > 0 && x >= w:
		return East, true
	case h > 0 && y >= h:
		return South, true
	case w > 0 && x < 0:
		return West, true
	}
	return North, false
}
