package engine

import (
	"slices"

	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/rmp"
	"github.com/milk9111/mapengine/script"
)

// inputOrder is the priority in which held arrow keys steer the input person.
var inputOrder = []struct {
	key Key
	dir person.Direction
}{
	{KeyUp, person.North},
	{KeyRight, person.East},
	{KeyDown, person.South},
	{KeyLeft, person.West},
}

var edgeScripts = map[person.Direction]struct {
	slot script.Slot
	idx  int
}{
	person.North: {script.SlotLeaveNorth, rmp.StringLeaveNorth},
	person.East:  {script.SlotLeaveEast, rmp.StringLeaveEast},
	person.South: {script.SlotLeaveSouth, rmp.StringLeaveSouth},
	person.West:  {script.SlotLeaveWest, rmp.StringLeaveWest},
}

// update runs one update phase: persons, triggers and zones, key bindings,
// talk activation, input sampling, camera, then the update script.
func (e *Engine) update(s *Session) error {
	if err := e.persons.Update(s.obstacles, personHooks{e: e, s: s}); err != nil {
		return err
	}
	if err := e.checkTriggers(s, true); err != nil {
		return err
	}
	if err := e.updateKeys(s); err != nil {
		return err
	}
	e.sampleInput(s)
	e.updateCamera(s)
	return e.dispatch(e.stash.Get(script.SlotUpdate))
}

type personHooks struct {
	e *Engine
	s *Session
}

func (h personHooks) Generate(p *person.Person) error {
	return h.e.runPersonScript(p, person.ScriptGenerator)
}

func (h personHooks) Blocked(p *person.Person, ob person.Obstruction) error {
	if p != h.s.InputPerson() {
		return nil
	}
	switch {
	case ob.Person != nil:
		return h.e.runPersonScript(ob.Person, person.ScriptOnTouch)
	case ob.Edge:
		return h.e.leaveEdge(h.s, ob.EdgeDirection)
	}
	return nil
}

// leaveEdge runs the default and map leave scripts for the crossed edge.
func (e *Engine) leaveEdge(s *Session, d person.Direction) error {
	if s.m == nil {
		return nil
	}
	es, ok := edgeScripts[d]
	if !ok {
		return nil
	}
	e.log.Debug("map edge crossed", "map", s.mapFile, "edge", d)
	return e.runMapScripts(s, es.slot, es.idx)
}

// checkTriggers fires trigger and zone scripts the input person has just
// stepped into. With fire unset it only records where the person stands.
func (e *Engine) checkTriggers(s *Session, fire bool) error {
	in := s.InputPerson()
	if in == nil || s.terrain == nil {
		return nil
	}
	m := s.m
	w, h := s.terrain.Bounds()
	x, y := in.Normalized(w, h, m.Toric())
	tx, ty := s.terrain.tileOf(x, y)

	for _, t := range s.triggers {
		on := t.layer == in.Layer && t.tx == tx && t.ty == ty
		entered := on && !t.inside
		t.inside = on
		if entered && fire {
			if err := e.dispatch(t.script); err != nil {
				return err
			}
			if s.m != m {
				return nil
			}
		}
	}

	for _, z := range s.zones {
		on := z.layer == in.Layer && x >= z.area.L && x < z.area.R && y >= z.area.B && y < z.area.T
		entered := on && !z.inside
		z.inside = on
		if entered && fire {
			if err := e.dispatch(z.script); err != nil {
				return err
			}
			if s.m != m {
				return nil
			}
		}
	}
	return nil
}

// updateKeys runs key binding scripts on press and release edges and
// activates talk on the talk key's press edge.
func (e *Engine) updateKeys(s *Session) error {
	keys := make([]Key, 0, len(e.bindings))
	for k := range e.bindings {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		b := e.bindings[k]
		if b == nil {
			continue
		}
		down := e.keyboard.IsKeyDown(k)
		was := e.keyDown[k]
		e.keyDown[k] = down

		var run *script.Script
		switch {
		case down && !was:
			run = b.down
		case !down && was:
			run = b.up
		}
		if err := e.dispatch(run); err != nil {
			return err
		}
	}

	if e.talkKey == 0 {
		return nil
	}
	down := e.keyboard.IsKeyDown(e.talkKey)
	pressed := down && !e.talkDown
	e.talkDown = down
	if !pressed {
		return nil
	}
	return e.talk(s)
}

// talk fires ON_TALK for the first person in front of the input person.
func (e *Engine) talk(s *Session) error {
	in := s.InputPerson()
	if in == nil {
		return nil
	}
	dx, dy := in.Direction.Delta()
	dist := e.cfg.Talk.Distance
	ob := e.persons.ObstructionAt(in, in.X+dx*dist, in.Y+dy*dist, nil)
	if ob.Person == nil {
		return nil
	}
	return e.runPersonScript(ob.Person, person.ScriptOnTalk)
}

// sampleInput queues a face and move pair for the highest priority arrow key
// held. Nothing is queued while the input person still has commands pending.
func (e *Engine) sampleInput(s *Session) {
	in := s.InputPerson()
	if in == nil || in.QueueLen() > 0 {
		return
	}
	for _, c := range inputOrder {
		if e.keyboard.IsKeyDown(c.key) {
			_ = in.Queue(person.FaceCommand(c.dir))
			_ = in.Queue(person.MoveCommand(c.dir))
			return
		}
	}
}

func (e *Engine) updateCamera(s *Session) {
	p := s.CameraPerson()
	if p == nil {
		return
	}
	var w, h float64
	toric := false
	if s.terrain != nil {
		w, h = s.terrain.Bounds()
		toric = s.m.Toric()
	}
	x, y := p.Normalized(w, h, toric)
	s.cam.Update(x, y)
}
