package person

import (
	"errors"
	"math"
	"testing"

	"github.com/jakecoffman/cp"
)

type gridTerrain struct {
	w, h    float64
	toric   bool
	tile    float64
	blocked map[[2]int]int
}

func (g *gridTerrain) Bounds() (float64, float64) { return g.w, g.h }
func (g *gridTerrain) Toric() bool                { return g.toric }

func (g *gridTerrain) TileObstruction(layer int, box cp.BB) (int, bool) {
	for ty := int(box.B / g.tile); float64(ty)*g.tile < box.T; ty++ {
		for tx := int(box.L / g.tile); float64(tx)*g.tile < box.R; tx++ {
			if tile, ok := g.blocked[[2]int{tx, ty}]; ok {
				return tile, true
			}
		}
	}
	return NoTile, false
}

func newPerson(t *testing.T, r *Registry, name string, x, y float64) *Person {
	t.Helper()
	p, err := r.Create(name, Template{Speed: 2, Base: cp.NewBBForExtents(cp.Vector{}, 4, 4)})
	if err != nil {
		t.Fatalf("create %s: %v", name, err)
	}
	p.SetPosition(x, y, 0)
	return p
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry()
	a := newPerson(t, r, "a", 0, 0)
	b := newPerson(t, r, "b", 0, 0)
	newPerson(t, r, "c", 0, 0)

	if _, err := r.Create("b", Template{}); !errors.Is(err, ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
	if !r.Destroy(b) {
		t.Fatalf("Destroy should return true for a live person")
	}
	if r.Destroy(b) {
		t.Fatalf("Destroy should return false the second time")
	}
	if b.Alive() || r.Find("b") != nil {
		t.Fatalf("b should be gone")
	}
	if got := r.Names(); len(got) != 2 || got[0] != "a" || got[1] != "c" {
		t.Fatalf("unexpected order %v", got)
	}

	// the name is free again once destroyed
	if _, err := r.Create("b", Template{}); err != nil {
		t.Fatalf("recreate b: %v", err)
	}

	a.SetPersistent(true)
	gone := r.Doomed(true)
	for _, p := range gone {
		r.Destroy(p)
	}
	if len(gone) != 2 || r.Len() != 1 || r.Find("a") != a {
		t.Fatalf("doomed(keep) left %v, destroyed %d", r.Names(), len(gone))
	}
	if all := r.Doomed(false); len(all) != 1 || all[0] != a {
		t.Fatalf("doomed(all) = %d persons, want just a", len(all))
	}
}

func TestCommandValues(t *testing.T) {
	cases := []struct {
		cmd  Command
		want int
	}{
		{CommandWait, 0},
		{CommandAnimate, 1},
		{CommandFaceNorth, 2},
		{CommandFaceNorthWest, 9},
		{CommandMoveNorth, 10},
		{CommandMoveEast, 12},
		{CommandMoveNorthWest, 17},
	}
	for _, c := range cases {
		if int(c.cmd) != c.want {
			t.Fatalf("%s = %d, want %d", c.cmd, int(c.cmd), c.want)
		}
	}
	if FaceCommand(West) != CommandFaceWest || MoveCommand(SouthEast) != CommandMoveSouthEast {
		t.Fatalf("direction to command mapping broken")
	}
	if d, ok := CommandMoveSouthWest.Direction(); !ok || d != SouthWest {
		t.Fatalf("CommandMoveSouthWest.Direction() = %v, %v", d, ok)
	}
	if _, ok := CommandAnimate.Direction(); ok {
		t.Fatalf("animate carries no direction")
	}
	p := &Person{}
	if err := p.Queue(NumCommands); !errors.Is(err, ErrInvalidCommand) {
		t.Fatalf("expected ErrInvalidCommand, got %v", err)
	}
	if err := p.SetScript(NumScriptTypes, nil); !errors.Is(err, ErrInvalidScriptType) {
		t.Fatalf("expected ErrInvalidScriptType, got %v", err)
	}
}

func TestStepMoveEast(t *testing.T) {
	r := NewRegistry()
	p := newPerson(t, r, "hero", 32, 32)
	p.Layer = 1
	terrain := &gridTerrain{w: 320, h: 320, tile: 16}

	if err := p.Queue(CommandMoveEast); err != nil {
		t.Fatal(err)
	}
	if _, blocked := r.Step(p, terrain); blocked {
		t.Fatalf("unexpected obstruction")
	}
	if p.X != 34 || p.Y != 32 || p.Layer != 1 {
		t.Fatalf("got (%v,%v,%d), want (34,32,1)", p.X, p.Y, p.Layer)
	}
	if p.Frame != 1 {
		t.Fatalf("committed move should advance the frame, got %d", p.Frame)
	}
}

func TestToricSeamCollision(t *testing.T) {
	terrain := &gridTerrain{w: 64, h: 64, tile: 16, toric: true}
	cases := []struct {
		name    string
		otherX  float64
		blocked bool
	}{
		{"across the seam", 2, true},
		{"far side", 20, false},
		{"same side", 56, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewRegistry()
			p := newPerson(t, r, "hero", 60, 20)
			q := newPerson(t, r, "npc", c.otherX, 20)
			_ = p.Queue(CommandMoveEast)
			ob, blocked := r.Step(p, terrain)
			if blocked != c.blocked {
				t.Fatalf("blocked = %v, want %v", blocked, c.blocked)
			}
			if c.blocked && ob.Person != q {
				t.Fatalf("blocked by %v, want npc", ob.Person.Name())
			}
			if !c.blocked && p.X != 62 {
				t.Fatalf("x = %v, want 62", p.X)
			}
		})
	}
}

func TestStepOneCommandPerTick(t *testing.T) {
	r := NewRegistry()
	p := newPerson(t, r, "hero", 32, 32)
	for i := 0; i < 3; i++ {
		_ = p.Queue(CommandMoveSouth)
	}
	if err := r.Update(nil, nil); err != nil {
		t.Fatal(err)
	}
	if p.Y != 34 || p.QueueLen() != 2 {
		t.Fatalf("one tick should move once: y=%v queue=%d", p.Y, p.QueueLen())
	}
}

func TestStepFaceAndAnimate(t *testing.T) {
	r := NewRegistry()
	p := newPerson(t, r, "hero", 10, 10)
	_ = p.Queue(CommandFaceWest)
	_ = p.Queue(CommandAnimate)
	_ = p.Queue(CommandWait)

	r.Step(p, nil)
	if p.Direction != West || p.X != 10 {
		t.Fatalf("face should only turn: dir=%v x=%v", p.Direction, p.X)
	}
	r.Step(p, nil)
	if p.Frame != 1 {
		t.Fatalf("animate should advance frame")
	}
	r.Step(p, nil)
	if p.Frame != 1 || p.QueueLen() != 0 {
		t.Fatalf("wait should consume without effect")
	}
}

func TestStepBlockedByTile(t *testing.T) {
	r := NewRegistry()
	p := newPerson(t, r, "hero", 14, 8)
	terrain := &gridTerrain{w: 320, h: 320, tile: 16, blocked: map[[2]int]int{{1, 0}: 7}}

	_ = p.Queue(CommandMoveEast)
	ob, blocked := r.Step(p, terrain)
	if !blocked || ob.Tile != 7 || ob.Person != nil {
		t.Fatalf("expected tile 7 obstruction, got %+v blocked=%v", ob, blocked)
	}
	if p.X != 14 || p.Y != 8 || p.Frame != 0 {
		t.Fatalf("blocked move must leave position unchanged, got (%v,%v)", p.X, p.Y)
	}
}

func TestObstructionOrder(t *testing.T) {
	r := NewRegistry()
	hero := newPerson(t, r, "hero", 20, 20)
	first := newPerson(t, r, "first", 28, 20)
	newPerson(t, r, "second", 27, 20)
	other := newPerson(t, r, "other_layer", 22, 20)
	other.Layer = 1

	terrain := &gridTerrain{w: 320, h: 320, tile: 16, blocked: map[[2]int]int{{1, 1}: 3}}
	ob := r.ObstructionAt(hero, 22, 20, terrain)
	if ob.Tile != 3 || !ob.Terrain {
		t.Fatalf("expected tile 3, got %+v", ob)
	}
	if ob.Person != first {
		t.Fatalf("expected first person in registry order, got %s", ob.Person.Name())
	}
}

func TestObstructionTouchingDoesNotCollide(t *testing.T) {
	r := NewRegistry()
	a := newPerson(t, r, "a", 0, 0)
	newPerson(t, r, "b", 8, 0)
	if ob := r.ObstructionAt(a, 0, 0, nil); ob.Blocked() {
		t.Fatalf("touching boxes should not collide: %+v", ob)
	}
	if ob := r.ObstructionAt(a, 1, 0, nil); ob.Person == nil {
		t.Fatalf("overlapping boxes should collide")
	}
}

func TestMapEdges(t *testing.T) {
	cases := []struct {
		name  string
		cmd   Command
		x, y  float64
		toric bool
		edge  Direction
		wantX float64
		wantY float64
	}{
		{"north", CommandMoveNorth, 10, 1, false, North, 10, 1},
		{"east", CommandMoveEast, 63, 10, false, East, 63, 10},
		{"south", CommandMoveSouth, 10, 63, false, South, 10, 63},
		{"west", CommandMoveWest, 1, 10, false, West, 1, 10},
		{"toric_east", CommandMoveEast, 63, 10, true, North, 1, 10},
		{"toric_north", CommandMoveNorth, 10, 1, true, North, 10, 63},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			r := NewRegistry()
			p := newPerson(t, r, "hero", c.x, c.y)
			_ = p.Queue(c.cmd)
			ob, blocked := r.Step(p, &gridTerrain{w: 64, h: 64, tile: 16, toric: c.toric})
			if c.toric {
				if blocked {
					t.Fatalf("toric maps have no edges: %+v", ob)
				}
			} else if !blocked || !ob.Edge || ob.EdgeDirection != c.edge {
				t.Fatalf("expected %v edge, got %+v", c.edge, ob)
			}
			if p.X != c.wantX || p.Y != c.wantY {
				t.Fatalf("got (%v,%v), want (%v,%v)", p.X, p.Y, c.wantX, c.wantY)
			}
		})
	}
}

type recordingHooks struct {
	generated []string
	blocked   []string
	onGen     func(p *Person)
}

func (h *recordingHooks) Generate(p *Person) error {
	h.generated = append(h.generated, p.Name())
	if h.onGen != nil {
		h.onGen(p)
	}
	return nil
}

func (h *recordingHooks) Blocked(p *Person, ob Obstruction) error {
	h.blocked = append(h.blocked, p.Name()+">"+ob.Person.Name())
	return nil
}

func TestUpdateHooks(t *testing.T) {
	r := NewRegistry()
	a := newPerson(t, r, "a", 0, 0)
	b := newPerson(t, r, "b", 7, 0)
	_ = b.Queue(CommandWait)

	h := &recordingHooks{onGen: func(p *Person) { _ = p.Queue(CommandMoveEast) }}
	if err := r.Update(nil, h); err != nil {
		t.Fatal(err)
	}
	if len(h.generated) != 1 || h.generated[0] != "a" {
		t.Fatalf("generator should only run for empty queues, got %v", h.generated)
	}
	if len(h.blocked) != 1 || h.blocked[0] != "a>b" {
		t.Fatalf("expected a blocked by b, got %v", h.blocked)
	}
	if a.X != 0 {
		t.Fatalf("blocked move must not commit")
	}
}

func TestUpdateSkipsDestroyed(t *testing.T) {
	r := NewRegistry()
	a := newPerson(t, r, "a", 0, 0)
	b := newPerson(t, r, "b", 50, 0)
	_ = b.Queue(CommandMoveEast)

	h := &recordingHooks{onGen: func(p *Person) {
		if p == a {
			r.Destroy(b)
		}
	}}
	if err := r.Update(nil, h); err != nil {
		t.Fatal(err)
	}
	if b.X != 50 {
		t.Fatalf("destroyed person should not be stepped")
	}
}

func TestNormalized(t *testing.T) {
	p := &Person{X: -4, Y: 70}
	x, y := p.Normalized(64, 64, true)
	if x != 60 || y != 6 {
		t.Fatalf("got (%v,%v), want (60,6)", x, y)
	}
	x, y = p.Normalized(64, 64, false)
	if x != -4 || y != 70 {
		t.Fatalf("non-toric positions are unchanged")
	}
}

func TestNormalizedFarAndNonFinite(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want float64
	}{
		{"far positive", 1e13 + 5, 5},
		{"far negative", -1e13 - 5, 251},
		{"exact multiple", 512, 0},
		{"tiny negative", -1e-18, 0},
		{"+inf", math.Inf(1), math.Inf(1)},
		{"-inf", math.Inf(-1), math.Inf(-1)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			x, _ := (&Person{X: tc.x}).Normalized(256, 256, true)
			if x != tc.want {
				t.Fatalf("x = %v, want %v", x, tc.want)
			}
		})
	}
	x, _ := (&Person{X: math.NaN()}).Normalized(256, 256, true)
	if !math.IsNaN(x) {
		t.Fatalf("NaN wrapped to %v", x)
	}
}
