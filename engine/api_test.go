package engine

import (
	"errors"
	"image/color"
	"slices"
	"testing"

	"github.com/d5/tengo/v2"
	"github.com/milk9111/mapengine/person"
)

func TestScriptConstants(t *testing.T) {
	h := newHarness(t)
	env := h.e.Env()

	tests := []struct {
		name string
		want int64
	}{
		{"COMMAND_WAIT", 0},
		{"COMMAND_ANIMATE", 1},
		{"COMMAND_FACE_NORTH", 2},
		{"COMMAND_FACE_NORTHWEST", 9},
		{"COMMAND_MOVE_NORTH", 10},
		{"COMMAND_MOVE_EAST", 12},
		{"COMMAND_MOVE_NORTHWEST", 17},
		{"SCRIPT_ON_ENTER_MAP", 0},
		{"SCRIPT_ON_LEAVE_MAP", 1},
		{"SCRIPT_ON_LEAVE_MAP_NORTH", 2},
		{"SCRIPT_ON_LEAVE_MAP_WEST", 5},
		{"SCRIPT_ON_CREATE", 0},
		{"SCRIPT_ON_ACTIVATE_TALK", 3},
		{"SCRIPT_COMMAND_GENERATOR", 4},
		{"DIRECTION_SOUTH", 4},
		{"KEY_A", 1},
		{"KEY_ESCAPE", 59},
		{"KEY_SPACE", 75},
		{"KEY_UP", 84},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, ok := env[tc.name].(*tengo.Int)
			if !ok {
				t.Fatalf("%s missing or not an int: %v", tc.name, env[tc.name])
			}
			if v.Value != tc.want {
				t.Fatalf("%s = %d, want %d", tc.name, v.Value, tc.want)
			}
		})
	}
}

func TestPersonAPI(t *testing.T) {
	h := newHarness(t)
	h.run(t, `
CreatePerson("bob", "bob.rss")
CreatePerson("amy", "amy.rss", true)
SetPersonXYZ("bob", 12, 34.5, 1)
SetPersonDirection("bob", DIRECTION_WEST)
SetPersonSpeed("bob", 3)
QueuePersonCommand("bob", COMMAND_ANIMATE)
QueuePersonCommand("bob", COMMAND_MOVE_WEST)
Note(GetPersonX("bob"), GetPersonY("bob"), GetPersonLayer("bob"))
Note(GetPersonDirection("bob"), GetPersonSpeed("bob"))
Note(IsCommandQueueEmpty("bob"))
ClearPersonCommands("bob")
Note(IsCommandQueueEmpty("bob"))
list := GetPersonList()
Note(len(list), list[0], list[1])
DestroyPerson("amy")
Note(DoesPersonExist("amy"))
`)
	h.wantNotes(t, "12", "34.5", "1", "6", "3", "false", "true", "2", "bob", "amy", "false")

	bob := h.e.Persons().Find("bob")
	if bob.X != 12 || bob.Y != 34.5 || bob.Layer != 1 || bob.Direction != person.West {
		t.Fatalf("bob = %+v", bob)
	}
}

func TestPersonAPIErrors(t *testing.T) {
	h := newHarness(t)
	h.run(t, `CreatePerson("bob", "bob.rss")`)

	tests := []struct {
		name string
		src  string
		want error
	}{
		{"unknown person", `GetPersonX("ghost")`, ErrNotFound},
		{"duplicate", `CreatePerson("bob", "bob.rss")`, ErrInvalidArgument},
		{"bad command", `QueuePersonCommand("bob", 99)`, ErrInvalidArgument},
		{"bad direction", `SetPersonDirection("bob", 8)`, ErrInvalidArgument},
		{"negative speed", `SetPersonSpeed("bob", -1)`, ErrInvalidArgument},
		{"infinite speed", `SetPersonSpeed("bob", 1e308 * 10)`, ErrInvalidArgument},
		{"infinite position", `SetPersonXYZ("bob", 1e308 * 10, 0, 0)`, ErrInvalidArgument},
		{"bad script type", `SetPersonScript("bob", 7, "Note(1)")`, ErrInvalidArgument},
		{"no current person", `GetCurrentPerson()`, ErrPrecondition},
		{"bad colour", `Rectangle(0, 0, 4, 4, "plaid")`, ErrInvalidArgument},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := h.e.RunScript(tc.name, tc.src)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestArgumentChecks(t *testing.T) {
	h := newHarness(t)
	for _, src := range []string{
		`GetPersonX()`,
		`GetPersonX(1, 2)`,
		`SetPersonXYZ("bob", "left", 0, 0)`,
		`ChangeMap([1, 2])`,
		`BindKey(KEY_A)`,
	} {
		if err := h.e.RunScript("args", src); err == nil {
			t.Fatalf("%s: expected an error", src)
		}
	}
}

func TestCallPersonScript(t *testing.T) {
	h := newHarness(t)
	h.run(t, `
CreatePerson("bob", "bob.rss")
SetPersonScript("bob", SCRIPT_ON_ACTIVATE_TALK, "Note(GetCurrentPerson())")
CallPersonScript("bob", SCRIPT_ON_ACTIVATE_TALK)
CallPersonScript("bob", SCRIPT_ON_ACTIVATE_TOUCH)
`)
	h.wantNotes(t, "bob")
	if h.e.CurrentPerson() != nil {
		t.Fatalf("current person left set after the script returned")
	}
}

func TestDestroyRunsOnDestroy(t *testing.T) {
	h := newHarness(t)
	h.run(t, `
CreatePerson("bob", "bob.rss")
SetPersonScript("bob", SCRIPT_ON_DESTROY, "Note(\"bye \" + GetCurrentPerson())")
DestroyPerson("bob")
`)
	h.wantNotes(t, "bye bob")
}

func TestDrawingAPI(t *testing.T) {
	h := newHarness(t)
	h.run(t, `
DrawText(4, 8, "hello")
Rectangle(0, 0, 10, 10, "#ff000080")
Rectangle(0, 0, 10, 10, "teal")
Print("printed", 1, true)
`)
	if !slices.Equal(h.draw.texts, []string{"hello"}) {
		t.Fatalf("texts = %q", h.draw.texts)
	}
	if len(h.draw.rects) != 2 {
		t.Fatalf("rects = %v", h.draw.rects)
	}
	if got := h.draw.rects[0]; got != (color.NRGBA{R: 0xff, A: 0x80}) {
		t.Fatalf("rect colour = %v", got)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.Color
		wantErr bool
	}{
		{in: "#102030", want: color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}},
		{in: "#10203040", want: color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0x40}},
		{in: "White", want: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}},
		{in: "#12", wantErr: true},
		{in: "#zzzzzz", wantErr: true},
		{in: "nope", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseColor(tc.in)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestKeyNames(t *testing.T) {
	tests := []struct {
		in   string
		want Key
	}{
		{"SPACE", KeySpace},
		{"KEY_UP", KeyUp},
		{"a", KeyA},
	}
	for _, tc := range tests {
		k, err := ParseKey(tc.in)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", tc.in, err)
		}
		if k != tc.want {
			t.Fatalf("ParseKey(%q) = %d, want %d", tc.in, k, tc.want)
		}
	}
	if _, err := ParseKey("HYPER"); err == nil {
		t.Fatalf("expected error for unknown key")
	}
}
