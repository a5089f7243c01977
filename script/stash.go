package script

import (
	"errors"
	"fmt"
)

var ErrInvalidSlot = errors.New("invalid script slot")

// Slot identifies one of the process-wide script hooks. The first six values
// are part of the scripting contract.
type Slot int

const (
	SlotEnter Slot = iota
	SlotLeave
	SlotLeaveNorth
	SlotLeaveEast
	SlotLeaveSouth
	SlotLeaveWest
	SlotRender
	SlotUpdate

	NumSlots
)

var slotKeys = [NumSlots]string{
	"map_def_enter_script",
	"map_def_leave_script",
	"map_def_leave_north_script",
	"map_def_leave_east_script",
	"map_def_leave_south_script",
	"map_def_leave_west_script",
	"render_script",
	"update_script",
}

func (s Slot) Valid() bool {
	return s >= SlotEnter && s < NumSlots
}

// Default reports whether s is one of the default map scripts.
func (s Slot) Default() bool {
	return s >= SlotEnter && s <= SlotLeaveWest
}

// Key is the fixed name the slot is stored under.
func (s Slot) Key() string {
	if !s.Valid() {
		return fmt.Sprintf("slot(%d)", int(s))
	}
	return slotKeys[s]
}

func (s Slot) String() string {
	return s.Key()
}

// Stash holds at most one script per slot. Setting a slot replaces what was
// there.
type Stash struct {
	scripts map[string]*Script
}

func NewStash() *Stash {
	return &Stash{scripts: make(map[string]*Script, NumSlots)}
}

// Set stores s under slot; a nil s clears the slot.
func (st *Stash) Set(slot Slot, s *Script) error {
	if !slot.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidSlot, int(slot))
	}
	if s == nil {
		delete(st.scripts, slot.Key())
		return nil
	}
	st.scripts[slot.Key()] = s
	return nil
}

// Get returns the script in slot, or nil.
func (st *Stash) Get(slot Slot) *Script {
	return st.scripts[slot.Key()]
}

func (st *Stash) Clear(slot Slot) {
	delete(st.scripts, slot.Key())
}
