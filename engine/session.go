package engine

import (
	"github.com/jakecoffman/cp"
	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/rmp"
	"github.com/milk9111/mapengine/script"
)

// Session is the state of one Run invocation. Nested runs push a new session
// that starts with the enclosing session's attachments.
type Session struct {
	mapFile   string
	m         *rmp.Map
	terrain   *terrain
	scripts   [rmp.NumMapStrings]*script.Script
	triggers  []*trigger
	zones     []*zone
	camera    *person.Person
	input     *person.Person
	frameRate int
	exiting   bool
	cam       Camera
	frames    int
}

type trigger struct {
	tx, ty int
	layer  int
	script *script.Script
	inside bool
}

type zone struct {
	area   cp.BB
	layer  int
	script *script.Script
	inside bool
}

// MapFile returns the name the current map was loaded under, or "".
func (s *Session) MapFile() string {
	return s.mapFile
}

// Map returns the current map, or nil when no map is loaded.
func (s *Session) Map() *rmp.Map {
	return s.m
}

func (s *Session) FrameRate() int {
	return s.frameRate
}

// Camera returns the session camera.
func (s *Session) Camera() Camera {
	return s.cam
}

// CameraPerson returns the live camera attachment, or nil.
func (s *Session) CameraPerson() *person.Person {
	if s.camera != nil && !s.camera.Alive() {
		s.camera = nil
	}
	return s.camera
}

// InputPerson returns the live input attachment, or nil.
func (s *Session) InputPerson() *person.Person {
	if s.input != nil && !s.input.Alive() {
		s.input = nil
	}
	return s.input
}

func (s *Session) obstacles() person.Terrain {
	if s.terrain == nil {
		return nil
	}
	return s.terrain
}

func (s *Session) clearMap() {
	s.m = nil
	s.mapFile = ""
	s.terrain = nil
	s.scripts = [rmp.NumMapStrings]*script.Script{}
	s.triggers = nil
	s.zones = nil
	s.cam.SetWorld(0, 0, false)
}
