package person

import (
	"fmt"

	"github.com/jakecoffman/cp"
)

// Registry owns every live person. Iteration order is creation order and is
// what the obstruction query and the update step walk.
type Registry struct {
	persons   []*Person
	byName    map[string]*Person
	nextOrder uint64
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Person)}
}

// Template holds the initial state for a newly created person.
type Template struct {
	Spriteset  string
	Persistent bool
	Speed      float64
	Base       cp.BB
}

// Create registers a new person. Names are unique among live persons.
func (r *Registry) Create(name string, tmpl Template) (*Person, error) {
	if _, ok := r.byName[name]; ok {
		return nil, fmt.Errorf("person: create %q: %w", name, ErrDuplicateName)
	}

	p := &Person{
		name:       name,
		persistent: tmpl.Persistent,
		Spriteset:  tmpl.Spriteset,
		Speed:      tmpl.Speed,
		Base:       tmpl.Base,
		Direction:  South,
		order:      r.nextOrder,
		alive:      true,
	}
	r.nextOrder++

	r.persons = append(r.persons, p)
	r.byName[name] = p
	return p, nil
}

// Destroy unregisters p. It reports false when p was not live.
func (r *Registry) Destroy(p *Person) bool {
	if p == nil || !p.alive || r.byName[p.name] != p {
		return false
	}
	p.alive = false
	delete(r.byName, p.name)
	for i, q := range r.persons {
		if q == p {
			r.persons = append(r.persons[:i], r.persons[i+1:]...)
			break
		}
	}
	return true
}

// Find returns the live person called name, or nil.
func (r *Registry) Find(name string) *Person {
	return r.byName[name]
}

func (r *Registry) Len() int {
	return len(r.persons)
}

// All returns a snapshot of live persons in registry order.
func (r *Registry) All() []*Person {
	return append([]*Person(nil), r.persons...)
}

// Names returns the live person names in registry order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.persons))
	for _, p := range r.persons {
		names = append(names, p.name)
	}
	return names
}

// Doomed lists the persons a map change destroys, in registry order.
func (r *Registry) Doomed(keepPersistent bool) []*Person {
	var out []*Person
	for _, p := range r.persons {
		if keepPersistent && p.persistent {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Hooks receives the script-driven parts of a person tick.
type Hooks interface {
	// Generate runs before a person with an empty queue is stepped.
	Generate(p *Person) error
	// Blocked runs after p's move was dropped.
	Blocked(p *Person, ob Obstruction) error
}

// Update advances every live person by one tick. Persons created during the
// pass wait for the next tick; persons destroyed during it are skipped.
// terrain is asked again for every person, so a map change made by a hook
// applies to the rest of the pass. A nil terrain func means no terrain.
func (r *Registry) Update(terrain func() Terrain, h Hooks) error {
	for _, p := range r.All() {
		if !p.alive {
			continue
		}
		if h != nil && len(p.queue) == 0 {
			if err := h.Generate(p); err != nil {
				return err
			}
			if !p.alive {
				continue
			}
		}
		var t Terrain
		if terrain != nil {
			t = terrain()
		}
		ob, blocked := r.Step(p, t)
		if blocked && h != nil {
			if err := h.Blocked(p, ob); err != nil {
				return err
			}
		}
	}
	return nil
}

// Step drains one command from p's queue. When the command was a move that got
// dropped it returns the blocking obstruction and true.
func (r *Registry) Step(p *Person, t Terrain) (Obstruction, bool) {
	cmd, ok := p.pop()
	if !ok {
		return Obstruction{Tile: NoTile}, false
	}

	switch {
	case cmd == CommandAnimate:
		p.Frame++
	case cmd.IsFace():
		p.Direction, _ = cmd.Direction()
	case cmd.IsMove():
		d, _ := cmd.Direction()
		dx, dy := d.Delta()
		x := p.X + dx*p.Speed
		y := p.Y + dy*p.Speed

		ob := r.ObstructionAt(p, x, y, t)
		if ob.Blocked() {
			return ob, true
		}
		if t != nil && t.Toric() {
			w, h := t.Bounds()
			x, y = wrap(x, w), wrap(y, h)
		}
		p.X, p.Y = x, y
		p.Frame++
	}
	return Obstruction{Tile: NoTile}, false
}
