package engine

import (
	"image/color"

	"github.com/milk9111/mapengine/person"
)

// Host is the frame clock the run loop waits on. Pace blocks until the next
// frame at frameRate may start; zero means as fast as possible. Any error is
// treated as the host shutting down.
type Host interface {
	Pace(frameRate int) error
}

// Renderer receives the draw calls of one frame in screen coordinates.
type Renderer interface {
	Clear()
	DrawTile(tile int, x, y, w, h float64)
	DrawPerson(p *person.Person, x, y float64)
	DrawText(x, y float64, text string)
	FillRect(x, y, w, h float64, c color.Color)
}

type nopRenderer struct{}

func (nopRenderer) Clear() {}
func (nopRenderer) DrawTile(int, float64, float64, float64, float64) {}
func (nopRenderer) DrawPerson(*person.Person, float64, float64) {}
func (nopRenderer) DrawText(float64, float64, string) {}
func (nopRenderer) FillRect(float64, float64, float64, float64, color.Color) {}

type noKeys struct{}

func (noKeys) IsKeyDown(Key) bool { return false }
