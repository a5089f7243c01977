// Package person models the movable, scriptable actors that live on a map.
package person

import (
	"errors"
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/mapengine/script"
)

var (
	ErrDuplicateName     = errors.New("person already exists")
	ErrInvalidCommand    = errors.New("invalid person command")
	ErrInvalidScriptType = errors.New("invalid person script type")
	ErrInvalidDirection  = errors.New("invalid direction")
)

// Direction is one of the eight compass facings. Values are part of the
// scripting contract.
type Direction int

const (
	North Direction = iota
	NorthEast
	East
	SouthEast
	South
	SouthWest
	West
	NorthWest

	NumDirections
)

var directionNames = [NumDirections]string{"north", "northeast", "east", "southeast", "south", "southwest", "west", "northwest"}

func (d Direction) Valid() bool {
	return d >= North && d < NumDirections
}

func (d Direction) String() string {
	if !d.Valid() {
		return fmt.Sprintf("direction(%d)", int(d))
	}
	return directionNames[d]
}

// ParseDirection accepts the lowercase names returned by Direction.String.
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return North, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Delta returns the unit step for d in screen space (y grows downward).
func (d Direction) Delta() (dx, dy float64) {
	switch d {
	case North:
		return 0, -1
	case NorthEast:
		return 1, -1
	case East:
		return 1, 0
	case SouthEast:
		return 1, 1
	case South:
		return 0, 1
	case SouthWest:
		return -1, 1
	case West:
		return -1, 0
	case NorthWest:
		return -1, -1
	}
	return 0, 0
}

// Command is a queued person instruction. Values are part of the scripting
// contract.
type Command int

const (
	CommandWait Command = iota
	CommandAnimate
	CommandFaceNorth
	CommandFaceNorthEast
	CommandFaceEast
	CommandFaceSouthEast
	CommandFaceSouth
	CommandFaceSouthWest
	CommandFaceWest
	CommandFaceNorthWest
	CommandMoveNorth
	CommandMoveNorthEast
	CommandMoveEast
	CommandMoveSouthEast
	CommandMoveSouth
	CommandMoveSouthWest
	CommandMoveWest
	CommandMoveNorthWest

	NumCommands
)

func (c Command) Valid() bool {
	return c >= CommandWait && c < NumCommands
}

func FaceCommand(d Direction) Command {
	return CommandFaceNorth + Command(d)
}

func MoveCommand(d Direction) Command {
	return CommandMoveNorth + Command(d)
}

func (c Command) IsFace() bool {
	return c >= CommandFaceNorth && c <= CommandFaceNorthWest
}

func (c Command) IsMove() bool {
	return c >= CommandMoveNorth && c <= CommandMoveNorthWest
}

// Direction returns the direction carried by a face or move command.
func (c Command) Direction() (Direction, bool) {
	switch {
	case c.IsFace():
		return Direction(c - CommandFaceNorth), true
	case c.IsMove():
		return Direction(c - CommandMoveNorth), true
	}
	return North, false
}

func (c Command) String() string {
	switch {
	case c == CommandWait:
		return "wait"
	case c == CommandAnimate:
		return "animate"
	case c.IsFace():
		d, _ := c.Direction()
		return "face_" + d.String()
	case c.IsMove():
		d, _ := c.Direction()
		return "move_" + d.String()
	}
	return fmt.Sprintf("command(%d)", int(c))
}

// ScriptType names a person lifecycle hook. Values are part of the scripting
// contract.
type ScriptType int

const (
	ScriptOnCreate ScriptType = iota
	ScriptOnDestroy
	ScriptOnTouch
	ScriptOnTalk
	ScriptGenerator

	NumScriptTypes
)

func (t ScriptType) Valid() bool {
	return t >= ScriptOnCreate && t < NumScriptTypes
}

// Person is a single map actor. Positions are in map pixels.
type Person struct {
	X, Y      float64
	Layer     int
	Direction Direction
	Speed     float64
	// Base is the collision box relative to X,Y.
	Base cp.BB
	// Frame is the animation step counter; spritesets reduce it modulo their
	// frame count.
	Frame     int
	Spriteset string

	name       string
	persistent bool
	order      uint64
	alive      bool
	queue      []Command
	scripts    [NumScriptTypes]*script.Script
}

func (p *Person) Name() string {
	if p == nil {
		return ""
	}
	return p.name
}

func (p *Person) Persistent() bool {
	return p != nil && p.persistent
}

func (p *Person) SetPersistent(v bool) {
	if p == nil {
		return
	}
	p.persistent = v
}

// Alive reports whether the person is still registered.
func (p *Person) Alive() bool {
	return p != nil && p.alive
}

// SetPosition places the person without an obstruction check.
func (p *Person) SetPosition(x, y float64, layer int) {
	if p == nil {
		return
	}
	p.X = x
	p.Y = y
	p.Layer = layer
}

// BaseAt returns the collision box the person would occupy at x,y.
func (p *Person) BaseAt(x, y float64) cp.BB {
	return p.Base.Offset(cp.Vector{X: x, Y: y})
}

// Queue appends a command to the person's FIFO.
func (p *Person) Queue(cmd Command) error {
	if p == nil {
		return nil
	}
	if !cmd.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCommand, int(cmd))
	}
	p.queue = append(p.queue, cmd)
	return nil
}

func (p *Person) QueueLen() int {
	if p == nil {
		return 0
	}
	return len(p.queue)
}

// Commands returns a copy of the pending commands.
func (p *Person) Commands() []Command {
	if p == nil {
		return nil
	}
	return append([]Command(nil), p.queue...)
}

func (p *Person) ClearQueue() {
	if p == nil {
		return
	}
	p.queue = p.queue[:0]
}

func (p *Person) pop() (Command, bool) {
	if len(p.queue) == 0 {
		return CommandWait, false
	}
	cmd := p.queue[0]
	p.queue = p.queue[1:]
	return cmd, true
}

// SetScript replaces one lifecycle hook; a nil script clears it.
func (p *Person) SetScript(t ScriptType, s *script.Script) error {
	if !t.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidScriptType, int(t))
	}
	if p == nil {
		return nil
	}
	p.scripts[t] = s
	return nil
}

// Script returns the hook for t, or nil when unset.
func (p *Person) Script(t ScriptType) *script.Script {
	if p == nil || !t.Valid() {
		return nil
	}
	return p.scripts[t]
}

// Normalized returns the position wrapped into a w x h map when toric.
func (p *Person) Normalized(w, h float64, toric bool) (float64, float64) {
	if p == nil {
		return 0, 0
	}
	if !toric {
		return p.X, p.Y
	}
	return wrap(p.X, w), wrap(p.Y, h)
}

// nearest shifts the offset d by whole multiples of size into
// (-size/2, size/2].
func nearest(d, size float64) float64 {
	if size <= 0 {
		return d
	}
	d = wrap(d, size)
	if d > size/2 {
		d -= size
	}
	return d
}

// wrap folds v into [0, size). Non-finite values are returned unchanged.
func wrap(v, size float64) float64 {
	if size <= 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return v
	}
	v = math.Mod(v, size)
	if v < 0 {
		v += size
	}
	if v >= size {
		v = 0
	}
	return v
}
