// Package engine runs maps: it owns the session stack, drives the per-frame
// update and render phases and exposes the whole surface to tengo scripts.
package engine

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/jakecoffman/cp"
	"github.com/milk9111/mapengine/config"
	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/rmp"
	"github.com/milk9111/mapengine/script"
)

// Options wires an Engine to its host.
type Options struct {
	Config config.Config
	Logger *log.Logger
	// Host paces frames. Required for Run.
	Host Host
	// Renderer defaults to one that draws nothing.
	Renderer Renderer
	// Keyboard defaults to one with no keys held.
	Keyboard Keyboard
	// Maps defaults to a DirSource on Config.MapsDir.
	Maps MapSource
}

// Engine is the map engine. It is not safe for concurrent use; everything but
// QueueReload must be called from the goroutine that runs the loop.
type Engine struct {
	cfg      config.Config
	log      *log.Logger
	host     Host
	renderer Renderer
	keyboard Keyboard
	maps     MapSource

	persons *person.Registry
	stash   *script.Stash
	env     script.Env

	sessions []*Session
	// idle holds attachments and the frame rate while no map runs.
	idle Session

	obstructed map[int]bool
	talkKey    Key
	talkDown   bool
	bindings   map[Key]*binding
	keyDown    map[Key]bool
	current    []*person.Person

	slotFiles map[string]script.Slot
	reloads   chan string
}

type binding struct {
	down *script.Script
	up   *script.Script
}

func New(opts Options) (*Engine, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		cfg:        cfg,
		log:        opts.Logger,
		host:       opts.Host,
		renderer:   opts.Renderer,
		keyboard:   opts.Keyboard,
		maps:       opts.Maps,
		persons:    person.NewRegistry(),
		stash:      script.NewStash(),
		obstructed: make(map[int]bool, len(cfg.Tileset.Obstructed)),
		bindings:   make(map[Key]*binding),
		keyDown:    make(map[Key]bool),
		slotFiles:  make(map[string]script.Slot),
		reloads:    make(chan string, 16),
	}
	if e.log == nil {
		e.log = log.New(io.Discard)
	}
	if e.renderer == nil {
		e.renderer = nopRenderer{}
	}
	if e.keyboard == nil {
		e.keyboard = noKeys{}
	}
	if e.maps == nil {
		e.maps = DirSource{Dir: cfg.MapsDir}
	}
	for _, t := range cfg.Tileset.Obstructed {
		e.obstructed[t] = true
	}
	if cfg.Talk.Key != "" {
		k, err := ParseKey(cfg.Talk.Key)
		if err != nil {
			return nil, fmt.Errorf("engine: talk key: %w", err)
		}
		e.talkKey = k
	}

	e.idle = Session{frameRate: cfg.FrameRate, cam: NewCamera(cfg.Window.Width, cfg.Window.Height)}
	e.env = e.buildEnv()

	for slot, path := range slotPaths(cfg.Scripts) {
		if path == "" {
			continue
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		e.slotFiles[abs] = slot
	}
	return e, nil
}

func slotPaths(s config.Scripts) map[script.Slot]string {
	return map[script.Slot]string{
		script.SlotEnter:      s.Enter,
		script.SlotLeave:      s.Leave,
		script.SlotLeaveNorth: s.LeaveNorth,
		script.SlotLeaveEast:  s.LeaveEast,
		script.SlotLeaveSouth: s.LeaveSouth,
		script.SlotLeaveWest:  s.LeaveWest,
		script.SlotUpdate:     s.Update,
		script.SlotRender:     s.Render,
	}
}

func (e *Engine) Persons() *person.Registry { return e.persons }
func (e *Engine) Stash() *script.Stash      { return e.stash }
func (e *Engine) Env() script.Env           { return e.env }
func (e *Engine) Config() config.Config     { return e.cfg }

// Session returns the innermost running session, or nil when idle.
func (e *Engine) Session() *Session {
	if len(e.sessions) == 0 {
		return nil
	}
	return e.sessions[len(e.sessions)-1]
}

func (e *Engine) top() *Session {
	if s := e.Session(); s != nil {
		return s
	}
	return &e.idle
}

// IsRunning reports whether any session is active.
func (e *Engine) IsRunning() bool {
	return len(e.sessions) > 0
}

// Depth returns the number of nested sessions.
func (e *Engine) Depth() int {
	return len(e.sessions)
}

// Compile builds a script against the engine's host API.
func (e *Engine) Compile(name, src string) (*script.Script, error) {
	return script.Compile(name, src, e.env)
}

// RunScript compiles and runs a top-level game script.
func (e *Engine) RunScript(name, src string) error {
	s, err := e.Compile(name, src)
	if err != nil {
		return err
	}
	return s.Run()
}

// LoadSlotScripts compiles the slot script files named in the configuration.
func (e *Engine) LoadSlotScripts() error {
	for path, slot := range e.slotFiles {
		if err := e.loadSlotFile(slot, path); err != nil {
			return err
		}
	}
	return nil
}

// SlotFiles returns the configured slot script paths.
func (e *Engine) SlotFiles() []string {
	out := make([]string, 0, len(e.slotFiles))
	for path := range e.slotFiles {
		out = append(out, path)
	}
	return out
}

func (e *Engine) loadSlotFile(slot script.Slot, path string) error {
	s, err := script.LoadFile(path, e.env)
	if err != nil {
		return err
	}
	return e.stash.Set(slot, s)
}

// QueueReload asks the loop to recompile a slot script file at the top of its
// next iteration. It is safe to call from any goroutine.
func (e *Engine) QueueReload(path string) {
	select {
	case e.reloads <- path:
	default:
		e.log.Warn("reload queue full, dropping", "path", path)
	}
}

func (e *Engine) applyReloads() {
	for {
		select {
		case path := <-e.reloads:
			abs, err := filepath.Abs(path)
			if err != nil {
				abs = path
			}
			slot, ok := e.slotFiles[abs]
			if !ok {
				continue
			}
			if err := e.loadSlotFile(slot, abs); err != nil {
				e.log.Error("reload failed", "path", path, "err", err)
				continue
			}
			e.log.Info("script reloaded", "slot", slot, "path", path)
		default:
			return
		}
	}
}

// Run executes a map session until RequestExit is called. Map load failures
// are not fatal; only a host abort ends Run with an error, wrapping
// ErrFatalHost.
func (e *Engine) Run(name string, frameRate int) error {
	if e.host == nil {
		return fmt.Errorf("engine: run %s: no host: %w", name, ErrFatalHost)
	}
	if frameRate < 0 {
		return invalidArgument("MapEngine", fmt.Errorf("frame rate %d", frameRate))
	}

	parent := e.top()
	s := &Session{
		camera:    parent.CameraPerson(),
		input:     parent.InputPerson(),
		frameRate: frameRate,
		cam:       NewCamera(e.cfg.Window.Width, e.cfg.Window.Height),
	}
	e.sessions = append(e.sessions, s)
	defer e.pop(s)
	e.log.Debug("map engine started", "map", name, "depth", len(e.sessions))

	e.renderer.Clear()
	if err := e.ChangeMap(name); err != nil {
		if IsFatal(err) {
			return err
		}
		e.log.Debug("map change failed", "map", name, "err", err)
	}

	for !s.exiting {
		e.applyReloads()
		if err := e.host.Pace(s.frameRate); err != nil {
			return fmt.Errorf("engine: run %s: %w: %w", name, ErrFatalHost, err)
		}
		s.frames++
		if err := e.update(s); err != nil {
			return err
		}
		if err := e.render(s); err != nil {
			return err
		}
	}
	e.log.Debug("map engine exited", "map", s.mapFile, "frames", s.frames)
	return nil
}

func (e *Engine) pop(s *Session) {
	for i := len(e.sessions) - 1; i >= 0; i-- {
		if e.sessions[i] == s {
			e.sessions = append(e.sessions[:i], e.sessions[i+1:]...)
			return
		}
	}
}

// ChangeMap swaps the current session's map. On a load failure the session is
// left without a map and the error wraps ErrIO or ErrFormat.
func (e *Engine) ChangeMap(name string) error {
	s := e.Session()
	if s == nil {
		return notRunning("ChangeMap")
	}

	m, err := e.maps.LoadMap(name)
	if err != nil {
		s.clearMap()
		return fmt.Errorf("engine: change map %s: %w", name, err)
	}

	if s.m != nil {
		if err := e.runMapScripts(s, script.SlotLeave, rmp.StringLeave); err != nil {
			return err
		}
	}
	return e.enterMap(s, name, m)
}

func (e *Engine) enterMap(s *Session, name string, m *rmp.Map) error {
	s.clearMap()
	s.m = m
	s.mapFile = name
	s.terrain = newTerrain(m, e.cfg.Tileset.TileWidth, e.cfg.Tileset.TileHeight, e.obstructed)
	for i := rmp.StringEnter; i <= rmp.StringLeaveWest; i++ {
		s.scripts[i] = e.compileLogged(fmt.Sprintf("%s:%d", name, i), m.String(i))
	}
	w, h := s.terrain.Bounds()
	s.cam.SetWorld(w, h, m.Toric())

	if err := e.resetPersons(); err != nil {
		return err
	}
	if err := e.spawn(s, m); err != nil {
		return err
	}

	if in := s.InputPerson(); in != nil {
		in.SetPosition(float64(m.Header.StartX), float64(m.Header.StartY), int(m.Header.StartLayer))
		if d := person.Direction(m.Header.StartDirection); d.Valid() {
			in.Direction = d
		}
	}
	e.checkTriggers(s, false)
	e.updateCamera(s)

	e.log.Info("entered map", "map", name, "layers", len(m.Layers), "persons", e.persons.Len())
	return e.runMapScripts(s, script.SlotEnter, rmp.StringEnter)
}

// runMapScripts runs the default script in slot, then the current map's
// script at index idx.
func (e *Engine) runMapScripts(s *Session, slot script.Slot, idx int) error {
	own := s.scripts[idx]
	if err := e.dispatch(e.stash.Get(slot)); err != nil {
		return err
	}
	return e.dispatch(own)
}

func (e *Engine) spawn(s *Session, m *rmp.Map) error {
	for i, ent := range m.Entities {
		switch ent.Type {
		case rmp.EntityPerson:
			p, err := e.persons.Create(ent.Name, e.template(ent.Spriteset, false))
			if err != nil {
				e.log.Warn("skipping map person", "map", s.mapFile, "person", ent.Name, "err", err)
				continue
			}
			p.SetPosition(float64(ent.X), float64(ent.Y), ent.Layer)
			for t, src := range ent.Scripts {
				if t >= int(person.NumScriptTypes) {
					break
				}
				_ = p.SetScript(person.ScriptType(t), e.compileLogged(fmt.Sprintf("%s:%s:%d", s.mapFile, ent.Name, t), src))
			}
			if err := e.runPersonScript(p, person.ScriptOnCreate); err != nil {
				return err
			}
		case rmp.EntityTrigger:
			var src string
			if len(ent.Scripts) > 0 {
				src = ent.Scripts[0]
			}
			tx, ty := s.terrain.tileOf(float64(ent.X), float64(ent.Y))
			s.triggers = append(s.triggers, &trigger{
				tx: tx, ty: ty, layer: ent.Layer,
				script: e.compileLogged(fmt.Sprintf("%s:trigger:%d", s.mapFile, i), src),
			})
		}
	}
	for i, z := range m.Zones {
		s.zones = append(s.zones, &zone{
			area:   cp.BB{L: float64(z.X1), B: float64(z.Y1), R: float64(z.X2), T: float64(z.Y2)},
			layer:  z.Layer,
			script: e.compileLogged(fmt.Sprintf("%s:zone:%d", s.mapFile, i), z.Script),
		})
	}
	return nil
}

func (e *Engine) template(spriteset string, persistent bool) person.Template {
	return person.Template{
		Spriteset:  spriteset,
		Persistent: persistent,
		Speed:      e.cfg.Person.Speed,
		Base:       cp.NewBBForExtents(cp.Vector{}, e.cfg.Person.BaseWidth/2, e.cfg.Person.BaseHeight/2),
	}
}

// resetPersons destroys every non-persistent person, firing ON_DESTROY.
func (e *Engine) resetPersons() error {
	for _, p := range e.persons.Doomed(true) {
		if err := e.destroy(p); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) destroy(p *person.Person) error {
	if !p.Alive() {
		return nil
	}
	err := e.runPersonScript(p, person.ScriptOnDestroy)
	e.persons.Destroy(p)
	return err
}

func (e *Engine) compileLogged(name, src string) *script.Script {
	s, err := e.Compile(name, src)
	if err != nil {
		e.log.Error("script compile failed", "script", name, "err", err)
		return nil
	}
	return s
}

// dispatch runs s. Script failures are logged; only a host abort is returned.
func (e *Engine) dispatch(s *script.Script) error {
	if err := s.Run(); err != nil {
		if IsFatal(err) {
			return err
		}
		e.log.Error("script failed", "script", s.Name(), "err", err)
	}
	return nil
}

func (e *Engine) runPersonScript(p *person.Person, t person.ScriptType) error {
	s := p.Script(t)
	if s == nil {
		return nil
	}
	e.current = append(e.current, p)
	defer func() { e.current = e.current[:len(e.current)-1] }()
	return e.dispatch(s)
}

// CurrentPerson returns the person whose script is running, or nil.
func (e *Engine) CurrentPerson() *person.Person {
	if len(e.current) == 0 {
		return nil
	}
	return e.current[len(e.current)-1]
}

// CurrentMap returns the running session's map name.
func (e *Engine) CurrentMap() (string, error) {
	s := e.Session()
	if s == nil {
		return "", notRunning("GetCurrentMap")
	}
	return s.mapFile, nil
}

// FrameRate returns the innermost session's frame rate, or the default when
// idle.
func (e *Engine) FrameRate() int {
	return e.top().frameRate
}

func (e *Engine) SetFrameRate(fps int) error {
	if fps < 0 {
		return invalidArgument("SetMapEngineFrameRate", fmt.Errorf("frame rate %d", fps))
	}
	e.top().frameRate = fps
	return nil
}

// SetDefaultMapScript compiles src into one of the default map slots. Blank
// source clears the slot.
func (e *Engine) SetDefaultMapScript(slot script.Slot, src string) error {
	if !slot.Default() {
		return invalidArgument("SetDefaultMapScript", fmt.Errorf("%w: %d", script.ErrInvalidSlot, int(slot)))
	}
	return e.setSlot(slot, "[def-mapscript]", src)
}

func (e *Engine) SetRenderScript(src string) error {
	return e.setSlot(script.SlotRender, "[renderscript]", src)
}

func (e *Engine) SetUpdateScript(src string) error {
	return e.setSlot(script.SlotUpdate, "[updatescript]", src)
}

func (e *Engine) setSlot(slot script.Slot, name, src string) error {
	s, err := e.Compile(name, src)
	if err != nil {
		return err
	}
	if s == nil {
		e.stash.Clear(slot)
		return nil
	}
	return e.stash.Set(slot, s)
}

// AttachCamera makes the camera follow the named person. Unknown names leave
// the attachment unchanged.
func (e *Engine) AttachCamera(name string) error {
	p := e.persons.Find(name)
	if p == nil {
		return personNotFound("AttachCamera", name)
	}
	s := e.top()
	s.camera = p
	if e.IsRunning() {
		e.updateCamera(s)
	}
	return nil
}

// AttachInput gives keyboard control to the named person. Unknown names leave
// the attachment unchanged.
func (e *Engine) AttachInput(name string) error {
	p := e.persons.Find(name)
	if p == nil {
		return personNotFound("AttachInput", name)
	}
	e.top().input = p
	return nil
}

func (e *Engine) DetachCamera() { e.top().camera = nil }
func (e *Engine) DetachInput()  { e.top().input = nil }

func (e *Engine) CameraPerson() *person.Person { return e.top().CameraPerson() }
func (e *Engine) InputPerson() *person.Person  { return e.top().InputPerson() }

// RequestExit stops the innermost session at the top of its next iteration.
func (e *Engine) RequestExit() error {
	s := e.Session()
	if s == nil {
		return notRunning("ExitMapEngine")
	}
	s.exiting = true
	return nil
}

// RenderNow runs the render phase outside the loop.
func (e *Engine) RenderNow() error {
	s := e.Session()
	if s == nil {
		return notRunning("RenderMap")
	}
	return e.render(s)
}

// UpdateNow runs the update phase outside the loop.
func (e *Engine) UpdateNow() error {
	s := e.Session()
	if s == nil {
		return notRunning("UpdateMapEngine")
	}
	return e.update(s)
}

// CreatePerson registers a new person with the configured defaults.
func (e *Engine) CreatePerson(name, spriteset string, persistent bool) (*person.Person, error) {
	p, err := e.persons.Create(name, e.template(spriteset, persistent))
	if err != nil {
		return nil, invalidArgument("CreatePerson", err)
	}
	return p, nil
}

// DestroyPerson fires the person's ON_DESTROY script and removes it.
func (e *Engine) DestroyPerson(name string) error {
	p := e.persons.Find(name)
	if p == nil {
		return personNotFound("DestroyPerson", name)
	}
	return e.destroy(p)
}

func (e *Engine) findPerson(op, name string) (*person.Person, error) {
	p := e.persons.Find(name)
	if p == nil {
		return nil, personNotFound(op, name)
	}
	return p, nil
}

// SetPersonScript compiles src into one of the person's hooks.
func (e *Engine) SetPersonScript(name string, t person.ScriptType, src string) error {
	p, err := e.findPerson("SetPersonScript", name)
	if err != nil {
		return err
	}
	if !t.Valid() {
		return invalidArgument("SetPersonScript", fmt.Errorf("%w: %d", person.ErrInvalidScriptType, int(t)))
	}
	s, err := e.Compile(fmt.Sprintf("%s:%d", name, t), src)
	if err != nil {
		return err
	}
	return p.SetScript(t, s)
}

// CallPersonScript runs one of the person's hooks now.
func (e *Engine) CallPersonScript(name string, t person.ScriptType) error {
	p, err := e.findPerson("CallPersonScript", name)
	if err != nil {
		return err
	}
	if !t.Valid() {
		return invalidArgument("CallPersonScript", fmt.Errorf("%w: %d", person.ErrInvalidScriptType, int(t)))
	}
	return e.runPersonScript(p, t)
}

// BindKey runs down when k is pressed and up when it is released. Either may
// be blank.
func (e *Engine) BindKey(k Key, down, up string) error {
	if k <= 0 {
		return invalidArgument("BindKey", fmt.Errorf("key %d", int(k)))
	}
	d, err := e.Compile(fmt.Sprintf("%s:down", k), down)
	if err != nil {
		return err
	}
	u, err := e.Compile(fmt.Sprintf("%s:up", k), up)
	if err != nil {
		return err
	}
	e.bindings[k] = &binding{down: d, up: u}
	e.keyDown[k] = e.keyboard.IsKeyDown(k)
	return nil
}

func (e *Engine) UnbindKey(k Key) {
	delete(e.bindings, k)
	delete(e.keyDown, k)
}

// IsKeyPressed reports the host key state.
func (e *Engine) IsKeyPressed(k Key) bool {
	return e.keyboard.IsKeyDown(k)
}
