package engine

import (
	"cmp"
	"math"
	"slices"

	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/rmp"
	"github.com/milk9111/mapengine/script"
)

// render draws visible layers at the camera offset with each layer's persons
// on top of it, then runs the render script.
func (e *Engine) render(s *Session) error {
	e.renderer.Clear()
	left, top := s.cam.ViewTopLeft()
	persons := e.drawOrder()

	if s.m != nil {
		for li, layer := range s.m.Layers {
			if !layer.Hidden() {
				e.drawLayer(s, layer, left, top)
			}
			for _, p := range persons {
				if p.Layer == li {
					e.drawPerson(s, p, left, top)
				}
			}
		}
	}
	for _, p := range persons {
		if s.m == nil || p.Layer < 0 || p.Layer >= len(s.m.Layers) {
			e.drawPerson(s, p, left, top)
		}
	}

	return e.dispatch(e.stash.Get(script.SlotRender))
}

// drawOrder sorts persons by layer then y. Ties keep registry order.
func (e *Engine) drawOrder() []*person.Person {
	persons := e.persons.All()
	slices.SortStableFunc(persons, func(a, b *person.Person) int {
		if c := cmp.Compare(a.Layer, b.Layer); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})
	return persons
}

func (e *Engine) drawLayer(s *Session, l *rmp.Layer, left, top float64) {
	tw, th := s.terrain.tileW, s.terrain.tileH
	vw, vh := s.cam.ViewSize()

	tx0 := int(math.Floor(left / tw))
	ty0 := int(math.Floor(top / th))
	tx1 := int(math.Floor((left + vw) / tw))
	ty1 := int(math.Floor((top + vh) / th))
	for ty := ty0; ty <= ty1; ty++ {
		for tx := tx0; tx <= tx1; tx++ {
			tile := s.terrain.tileAt(l, tx, ty)
			if tile < 0 {
				continue
			}
			e.renderer.DrawTile(tile, float64(tx)*tw-left, float64(ty)*th-top, tw, th)
		}
	}
}

func (e *Engine) drawPerson(s *Session, p *person.Person, left, top float64) {
	x, y := p.X, p.Y
	if s.terrain != nil && s.m.Toric() {
		w, h := s.terrain.Bounds()
		x = nearest(x, s.cam.PosX, w)
		y = nearest(y, s.cam.PosY, h)
	}
	e.renderer.DrawPerson(p, x-left, y-top)
}

// nearest returns the copy of v, shifted by multiples of size, closest to ref.
func nearest(v, ref, size float64) float64 {
	if size <= 0 {
		return v
	}
	return v - size*math.Round((v-ref)/size)
}
