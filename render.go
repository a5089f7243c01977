package main

import (
	"hash/fnv"
	"image/color"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/colornames"
	"golang.org/x/image/font/basicfont"

	"github.com/milk9111/mapengine/config"
	"github.com/milk9111/mapengine/engine"
	"github.com/milk9111/mapengine/person"
)

var (
	missingTile  = color.NRGBA{R: 0xff, G: 0x00, B: 0xff, A: 0xff}
	personShades = []color.RGBA{
		colornames.Crimson,
		colornames.Dodgerblue,
		colornames.Gold,
		colornames.Orchid,
		colornames.Tomato,
		colornames.Turquoise,
		colornames.Chartreuse,
		colornames.Sandybrown,
	}
)

// screenRenderer draws the engine's frame into an offscreen image with flat
// colours: tiles come from the configured palette and persons get a colour
// derived from their spriteset name.
type screenRenderer struct {
	dst     *ebiten.Image
	palette map[int]color.Color
	face    ebtext.Face
}

func newScreenRenderer(dst *ebiten.Image, cfg config.Config, logger *log.Logger) *screenRenderer {
	r := &screenRenderer{
		dst:     dst,
		palette: make(map[int]color.Color, len(cfg.Tileset.Palette)),
		face:    ebtext.NewGoXFace(basicfont.Face7x13),
	}
	for tile, name := range cfg.Tileset.Palette {
		c, err := engine.ParseColor(name)
		if err != nil {
			logger.Warn("palette entry ignored", "tile", tile, "err", err)
			continue
		}
		r.palette[tile] = c
	}
	return r
}

func (r *screenRenderer) Clear() {
	r.dst.Fill(color.Black)
}

func (r *screenRenderer) DrawTile(tile int, x, y, w, h float64) {
	c, ok := r.palette[tile]
	if !ok {
		c = missingTile
	}
	vector.DrawFilledRect(r.dst, float32(x), float32(y), float32(w), float32(h), c, false)
}

func (r *screenRenderer) DrawPerson(p *person.Person, x, y float64) {
	bb := p.Base
	w, h := bb.R-bb.L, bb.T-bb.B
	vector.DrawFilledRect(r.dst, float32(x+bb.L), float32(y+bb.B), float32(w), float32(h), shadeOf(p.Spriteset), false)

	// facing marker
	dx, dy := p.Direction.Delta()
	cx, cy := x+bb.L+w/2, y+bb.B+h/2
	mx, my := cx+dx*w/2, cy+dy*h/2
	vector.DrawFilledRect(r.dst, float32(mx-1), float32(my-1), 2, 2, color.White, false)
}

func (r *screenRenderer) DrawText(x, y float64, s string) {
	op := &ebtext.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(color.White)
	ebtext.Draw(r.dst, s, r.face, op)
}

func (r *screenRenderer) FillRect(x, y, w, h float64, c color.Color) {
	vector.DrawFilledRect(r.dst, float32(x), float32(y), float32(w), float32(h), c, false)
}

func shadeOf(spriteset string) color.Color {
	h := fnv.New32a()
	h.Write([]byte(spriteset))
	return personShades[h.Sum32()%uint32(len(personShades))]
}
