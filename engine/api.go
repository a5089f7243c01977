package engine

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/mapengine/person"
	"github.com/milk9111/mapengine/script"
	"golang.org/x/image/colornames"
)

func fn(name string, f tengo.CallableFunc) *tengo.UserFunction {
	return &tengo.UserFunction{Name: name, Value: f}
}

func wantArgs(args []tengo.Object, min, max int) error {
	if len(args) < min || len(args) > max {
		return tengo.ErrWrongNumArguments
	}
	return nil
}

func argString(args []tengo.Object, i int, name string) (string, error) {
	s, ok := tengo.ToString(args[i])
	if !ok {
		return "", tengo.ErrInvalidArgumentType{Name: name, Expected: "string", Found: args[i].TypeName()}
	}
	return s, nil
}

func argInt(args []tengo.Object, i int, name string) (int, error) {
	n, ok := tengo.ToInt(args[i])
	if !ok {
		return 0, tengo.ErrInvalidArgumentType{Name: name, Expected: "int", Found: args[i].TypeName()}
	}
	return n, nil
}

func argFloat(args []tengo.Object, i int, name string) (float64, error) {
	f, ok := tengo.ToFloat64(args[i])
	if !ok {
		return 0, tengo.ErrInvalidArgumentType{Name: name, Expected: "float", Found: args[i].TypeName()}
	}
	return f, nil
}

func finite(f float64) bool {
	return !math.IsInf(f, 0) && !math.IsNaN(f)
}

func boolObject(b bool) tengo.Object {
	if b {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func stringObject(s string) tengo.Object {
	return &tengo.String{Value: s}
}

func intObject(n int) tengo.Object {
	return &tengo.Int{Value: int64(n)}
}

// nameFn builds a function taking a single person name.
func (e *Engine) nameFn(op string, f func(p *person.Person) (tengo.Object, error)) *tengo.UserFunction {
	return fn(op, func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		p, err := e.findPerson(op, name)
		if err != nil {
			return nil, err
		}
		return f(p)
	})
}

// obstructionFn builds an obstruction query taking a person name and a position.
func (e *Engine) obstructionFn(op string, f func(ob person.Obstruction) tengo.Object) *tengo.UserFunction {
	return fn(op, func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 3, 3); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		x, err := argFloat(args, 1, "x")
		if err != nil {
			return nil, err
		}
		y, err := argFloat(args, 2, "y")
		if err != nil {
			return nil, err
		}
		p, err := e.findPerson(op, name)
		if err != nil {
			return nil, err
		}
		var t person.Terrain
		if s := e.Session(); s != nil {
			t = s.obstacles()
		}
		return f(e.persons.ObstructionAt(p, x, y, t)), nil
	})
}

// buildEnv assembles the globals every engine script is compiled with.
func (e *Engine) buildEnv() script.Env {
	env := script.Env{}

	// map engine
	env["MapEngine"] = fn("MapEngine", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 2); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "filename")
		if err != nil {
			return nil, err
		}
		fps := e.cfg.FrameRate
		if len(args) == 2 {
			if fps, err = argInt(args, 1, "framerate"); err != nil {
				return nil, err
			}
		}
		return nil, e.Run(name, fps)
	})
	env["ChangeMap"] = fn("ChangeMap", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "filename")
		if err != nil {
			return nil, err
		}
		if err := e.ChangeMap(name); err != nil {
			if IsFatal(err) || !e.IsRunning() {
				return nil, err
			}
			e.log.Warn("change map failed", "map", name, "err", err)
			return tengo.FalseValue, nil
		}
		return tengo.TrueValue, nil
	})
	env["GetCurrentMap"] = fn("GetCurrentMap", func(args ...tengo.Object) (tengo.Object, error) {
		name, err := e.CurrentMap()
		if err != nil {
			return nil, err
		}
		return stringObject(name), nil
	})
	env["GetMapEngineFrameRate"] = fn("GetMapEngineFrameRate", func(args ...tengo.Object) (tengo.Object, error) {
		return intObject(e.FrameRate()), nil
	})
	env["SetMapEngineFrameRate"] = fn("SetMapEngineFrameRate", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		fps, err := argInt(args, 0, "framerate")
		if err != nil {
			return nil, err
		}
		return nil, e.SetFrameRate(fps)
	})
	env["SetDefaultMapScript"] = fn("SetDefaultMapScript", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 2, 2); err != nil {
			return nil, err
		}
		slot, err := argInt(args, 0, "type")
		if err != nil {
			return nil, err
		}
		src, err := argString(args, 1, "script")
		if err != nil {
			return nil, err
		}
		return nil, e.SetDefaultMapScript(script.Slot(slot), src)
	})
	env["SetRenderScript"] = fn("SetRenderScript", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		src, err := argString(args, 0, "script")
		if err != nil {
			return nil, err
		}
		return nil, e.SetRenderScript(src)
	})
	env["SetUpdateScript"] = fn("SetUpdateScript", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		src, err := argString(args, 0, "script")
		if err != nil {
			return nil, err
		}
		return nil, e.SetUpdateScript(src)
	})
	env["IsMapEngineRunning"] = fn("IsMapEngineRunning", func(args ...tengo.Object) (tengo.Object, error) {
		return boolObject(e.IsRunning()), nil
	})
	env["AttachCamera"] = fn("AttachCamera", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		return nil, e.AttachCamera(name)
	})
	env["AttachInput"] = fn("AttachInput", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		return nil, e.AttachInput(name)
	})
	env["DetachCamera"] = fn("DetachCamera", func(args ...tengo.Object) (tengo.Object, error) {
		e.DetachCamera()
		return nil, nil
	})
	env["DetachInput"] = fn("DetachInput", func(args ...tengo.Object) (tengo.Object, error) {
		e.DetachInput()
		return nil, nil
	})
	env["GetCameraPerson"] = fn("GetCameraPerson", func(args ...tengo.Object) (tengo.Object, error) {
		return stringObject(e.CameraPerson().Name()), nil
	})
	env["GetInputPerson"] = fn("GetInputPerson", func(args ...tengo.Object) (tengo.Object, error) {
		return stringObject(e.InputPerson().Name()), nil
	})
	env["ExitMapEngine"] = fn("ExitMapEngine", func(args ...tengo.Object) (tengo.Object, error) {
		return nil, e.RequestExit()
	})
	env["RenderMap"] = fn("RenderMap", func(args ...tengo.Object) (tengo.Object, error) {
		return nil, e.RenderNow()
	})
	env["UpdateMapEngine"] = fn("UpdateMapEngine", func(args ...tengo.Object) (tengo.Object, error) {
		return nil, e.UpdateNow()
	})

	// persons
	env["CreatePerson"] = fn("CreatePerson", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 2, 3); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		spriteset, err := argString(args, 1, "spriteset")
		if err != nil {
			return nil, err
		}
		persistent := false
		if len(args) == 3 {
			persistent = !args[2].IsFalsy()
		}
		_, err = e.CreatePerson(name, spriteset, persistent)
		return nil, err
	})
	env["DestroyPerson"] = fn("DestroyPerson", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		return nil, e.DestroyPerson(name)
	})
	env["DoesPersonExist"] = fn("DoesPersonExist", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		return boolObject(e.persons.Find(name) != nil), nil
	})
	env["GetPersonList"] = fn("GetPersonList", func(args ...tengo.Object) (tengo.Object, error) {
		names := e.persons.Names()
		arr := &tengo.Array{Value: make([]tengo.Object, 0, len(names))}
		for _, n := range names {
			arr.Value = append(arr.Value, stringObject(n))
		}
		return arr, nil
	})
	env["GetPersonX"] = e.nameFn("GetPersonX", func(p *person.Person) (tengo.Object, error) {
		return &tengo.Float{Value: p.X}, nil
	})
	env["GetPersonY"] = e.nameFn("GetPersonY", func(p *person.Person) (tengo.Object, error) {
		return &tengo.Float{Value: p.Y}, nil
	})
	env["GetPersonLayer"] = e.nameFn("GetPersonLayer", func(p *person.Person) (tengo.Object, error) {
		return intObject(p.Layer), nil
	})
	env["GetPersonDirection"] = e.nameFn("GetPersonDirection", func(p *person.Person) (tengo.Object, error) {
		return intObject(int(p.Direction)), nil
	})
	env["GetPersonSpeed"] = e.nameFn("GetPersonSpeed", func(p *person.Person) (tengo.Object, error) {
		return &tengo.Float{Value: p.Speed}, nil
	})
	env["IsCommandQueueEmpty"] = e.nameFn("IsCommandQueueEmpty", func(p *person.Person) (tengo.Object, error) {
		return boolObject(p.QueueLen() == 0), nil
	})
	env["ClearPersonCommands"] = e.nameFn("ClearPersonCommands", func(p *person.Person) (tengo.Object, error) {
		p.ClearQueue()
		return nil, nil
	})
	env["SetPersonXYZ"] = fn("SetPersonXYZ", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 4, 4); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		x, err := argFloat(args, 1, "x")
		if err != nil {
			return nil, err
		}
		y, err := argFloat(args, 2, "y")
		if err != nil {
			return nil, err
		}
		layer, err := argInt(args, 3, "layer")
		if err != nil {
			return nil, err
		}
		p, err := e.findPerson("SetPersonXYZ", name)
		if err != nil {
			return nil, err
		}
		if !finite(x) || !finite(y) {
			return nil, invalidArgument("SetPersonXYZ", fmt.Errorf("position %v,%v", x, y))
		}
		p.SetPosition(x, y, layer)
		return nil, nil
	})
	env["SetPersonDirection"] = fn("SetPersonDirection", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 2, 2); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		d, err := argInt(args, 1, "direction")
		if err != nil {
			return nil, err
		}
		p, err := e.findPerson("SetPersonDirection", name)
		if err != nil {
			return nil, err
		}
		if !person.Direction(d).Valid() {
			return nil, invalidArgument("SetPersonDirection", fmt.Errorf("%w: %d", person.ErrInvalidDirection, d))
		}
		p.Direction = person.Direction(d)
		return nil, nil
	})
	env["SetPersonSpeed"] = fn("SetPersonSpeed", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 2, 2); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		speed, err := argFloat(args, 1, "speed")
		if err != nil {
			return nil, err
		}
		p, err := e.findPerson("SetPersonSpeed", name)
		if err != nil {
			return nil, err
		}
		if speed < 0 || !finite(speed) {
			return nil, invalidArgument("SetPersonSpeed", fmt.Errorf("speed %v", speed))
		}
		p.Speed = speed
		return nil, nil
	})
	env["QueuePersonCommand"] = fn("QueuePersonCommand", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 2, 2); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		cmd, err := argInt(args, 1, "command")
		if err != nil {
			return nil, err
		}
		p, err := e.findPerson("QueuePersonCommand", name)
		if err != nil {
			return nil, err
		}
		if err := p.Queue(person.Command(cmd)); err != nil {
			return nil, invalidArgument("QueuePersonCommand", err)
		}
		return nil, nil
	})
	env["SetPersonScript"] = fn("SetPersonScript", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 3, 3); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		t, err := argInt(args, 1, "type")
		if err != nil {
			return nil, err
		}
		src, err := argString(args, 2, "script")
		if err != nil {
			return nil, err
		}
		return nil, e.SetPersonScript(name, person.ScriptType(t), src)
	})
	env["CallPersonScript"] = fn("CallPersonScript", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 2, 2); err != nil {
			return nil, err
		}
		name, err := argString(args, 0, "name")
		if err != nil {
			return nil, err
		}
		t, err := argInt(args, 1, "type")
		if err != nil {
			return nil, err
		}
		return nil, e.CallPersonScript(name, person.ScriptType(t))
	})
	env["GetCurrentPerson"] = fn("GetCurrentPerson", func(args ...tengo.Object) (tengo.Object, error) {
		p := e.CurrentPerson()
		if p == nil {
			return nil, fmt.Errorf("GetCurrentPerson: no person script running: %w", ErrPrecondition)
		}
		return stringObject(p.Name()), nil
	})
	env["IsPersonObstructed"] = e.obstructionFn("IsPersonObstructed", func(ob person.Obstruction) tengo.Object {
		return boolObject(ob.Blocked())
	})
	env["GetObstructingPerson"] = e.obstructionFn("GetObstructingPerson", func(ob person.Obstruction) tengo.Object {
		return stringObject(ob.Person.Name())
	})
	env["GetObstructingTile"] = e.obstructionFn("GetObstructingTile", func(ob person.Obstruction) tengo.Object {
		return intObject(ob.Tile)
	})

	// input
	env["IsKeyPressed"] = fn("IsKeyPressed", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		k, err := argInt(args, 0, "key")
		if err != nil {
			return nil, err
		}
		return boolObject(e.IsKeyPressed(Key(k))), nil
	})
	env["BindKey"] = fn("BindKey", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 2, 3); err != nil {
			return nil, err
		}
		k, err := argInt(args, 0, "key")
		if err != nil {
			return nil, err
		}
		down, err := argString(args, 1, "on_down")
		if err != nil {
			return nil, err
		}
		var up string
		if len(args) == 3 {
			if up, err = argString(args, 2, "on_up"); err != nil {
				return nil, err
			}
		}
		return nil, e.BindKey(Key(k), down, up)
	})
	env["UnbindKey"] = fn("UnbindKey", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 1, 1); err != nil {
			return nil, err
		}
		k, err := argInt(args, 0, "key")
		if err != nil {
			return nil, err
		}
		e.UnbindKey(Key(k))
		return nil, nil
	})

	// output
	env["Print"] = fn("Print", func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			s, _ := tengo.ToString(a)
			parts = append(parts, s)
		}
		e.log.Info(strings.Join(parts, " "), "source", "script")
		return nil, nil
	})
	env["DrawText"] = fn("DrawText", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 3, 3); err != nil {
			return nil, err
		}
		x, err := argFloat(args, 0, "x")
		if err != nil {
			return nil, err
		}
		y, err := argFloat(args, 1, "y")
		if err != nil {
			return nil, err
		}
		text, err := argString(args, 2, "text")
		if err != nil {
			return nil, err
		}
		e.renderer.DrawText(x, y, text)
		return nil, nil
	})
	env["Rectangle"] = fn("Rectangle", func(args ...tengo.Object) (tengo.Object, error) {
		if err := wantArgs(args, 5, 5); err != nil {
			return nil, err
		}
		var v [4]float64
		for i, name := range []string{"x", "y", "w", "h"} {
			f, err := argFloat(args, i, name)
			if err != nil {
				return nil, err
			}
			v[i] = f
		}
		name, err := argString(args, 4, "color")
		if err != nil {
			return nil, err
		}
		c, err := ParseColor(name)
		if err != nil {
			return nil, invalidArgument("Rectangle", err)
		}
		e.renderer.FillRect(v[0], v[1], v[2], v[3], c)
		return nil, nil
	})

	// constants
	for c := person.CommandWait; c < person.NumCommands; c++ {
		env["COMMAND_"+strings.ToUpper(c.String())] = intObject(int(c))
	}
	env["SCRIPT_ON_ENTER_MAP"] = intObject(int(script.SlotEnter))
	env["SCRIPT_ON_LEAVE_MAP"] = intObject(int(script.SlotLeave))
	env["SCRIPT_ON_LEAVE_MAP_NORTH"] = intObject(int(script.SlotLeaveNorth))
	env["SCRIPT_ON_LEAVE_MAP_EAST"] = intObject(int(script.SlotLeaveEast))
	env["SCRIPT_ON_LEAVE_MAP_SOUTH"] = intObject(int(script.SlotLeaveSouth))
	env["SCRIPT_ON_LEAVE_MAP_WEST"] = intObject(int(script.SlotLeaveWest))
	env["SCRIPT_ON_CREATE"] = intObject(int(person.ScriptOnCreate))
	env["SCRIPT_ON_DESTROY"] = intObject(int(person.ScriptOnDestroy))
	env["SCRIPT_ON_ACTIVATE_TOUCH"] = intObject(int(person.ScriptOnTouch))
	env["SCRIPT_ON_ACTIVATE_TALK"] = intObject(int(person.ScriptOnTalk))
	env["SCRIPT_COMMAND_GENERATOR"] = intObject(int(person.ScriptGenerator))
	for d := person.North; d < person.NumDirections; d++ {
		env["DIRECTION_"+strings.ToUpper(d.String())] = intObject(int(d))
	}
	for name, k := range KeyNames {
		env["KEY_"+name] = intObject(int(k))
	}
	return env
}

// ParseColor accepts "#rrggbb", "#rrggbbaa" or an SVG colour name.
func ParseColor(s string) (color.Color, error) {
	s = strings.TrimSpace(s)
	if hex, ok := strings.CutPrefix(s, "#"); ok {
		if len(hex) != 6 && len(hex) != 8 {
			return nil, fmt.Errorf("colour %q: want #rrggbb or #rrggbbaa", s)
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if err != nil {
			return nil, fmt.Errorf("colour %q: %w", s, err)
		}
		if len(hex) == 6 {
			v = v<<8 | 0xff
		}
		return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("unknown colour %q", s)
}
