package script

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/d5/tengo/v2"
)

func counterEnv(calls *[]string) Env {
	return Env{
		"Record": &tengo.UserFunction{Name: "Record", Value: func(args ...tengo.Object) (tengo.Object, error) {
			s, _ := tengo.ToString(args[0])
			*calls = append(*calls, s)
			return tengo.UndefinedValue, nil
		}},
	}
}

func TestCompileBlankIsAbsent(t *testing.T) {
	for _, src := range []string{"", "   ", "\n\t"} {
		s, err := Compile("blank", src, nil)
		if err != nil || s != nil {
			t.Fatalf("blank source %q: got %v, %v", src, s, err)
		}
		if err := s.Run(); err != nil {
			t.Fatalf("running an absent script should be a no-op, got %v", err)
		}
	}
}

func TestCompileError(t *testing.T) {
	if _, err := Compile("broken", "x := ", nil); err == nil {
		t.Fatalf("expected a compile error")
	}
	if _, err := Compile("undefined", "Nope()", nil); err == nil {
		t.Fatalf("expected an unresolved symbol error")
	}
}

func TestRunUsesEnvAndStdlib(t *testing.T) {
	var calls []string
	s, err := Compile("greet", `fmt := import("fmt"); Record(fmt.sprintf("hi %d", 3))`, counterEnv(&calls))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if err := s.Run(); err != nil {
			t.Fatal(err)
		}
	}
	if len(calls) != 2 || calls[0] != "hi 3" {
		t.Fatalf("unexpected calls %v", calls)
	}
}

func TestRunErrorUnwraps(t *testing.T) {
	boom := errors.New("boom")
	env := Env{
		"Fail": &tengo.UserFunction{Name: "Fail", Value: func(args ...tengo.Object) (tengo.Object, error) {
			return nil, boom
		}},
	}
	s, err := Compile("failing", "Fail()", env)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); !errors.Is(err, boom) {
		t.Fatalf("expected boom through the VM, got %v", err)
	}
}

func TestRunReentrant(t *testing.T) {
	var s *Script
	depth := 0
	env := Env{
		"Again": &tengo.UserFunction{Name: "Again", Value: func(args ...tengo.Object) (tengo.Object, error) {
			depth++
			if depth < 3 {
				return tengo.UndefinedValue, s.Run()
			}
			return tengo.UndefinedValue, nil
		}},
	}
	var err error
	s, err = Compile("recursive", "Again()", env)
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- s.Run() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("re-entrant run deadlocked")
	}
	if depth != 3 {
		t.Fatalf("expected 3 nested calls, got %d", depth)
	}
}

func TestStashReplaces(t *testing.T) {
	var calls []string
	env := counterEnv(&calls)
	st := NewStash()

	first, _ := Compile("first", `Record("first")`, env)
	second, _ := Compile("second", `Record("second")`, env)

	if err := st.Set(SlotUpdate, first); err != nil {
		t.Fatal(err)
	}
	if err := st.Set(SlotUpdate, second); err != nil {
		t.Fatal(err)
	}
	if err := st.Run(SlotUpdate); err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != "second" {
		t.Fatalf("only the latest script should run, got %v", calls)
	}

	st.Clear(SlotUpdate)
	if st.Get(SlotUpdate) != nil {
		t.Fatalf("slot should be empty after Clear")
	}
	if err := st.Run(SlotRender); err != nil {
		t.Fatalf("empty slot should be a no-op: %v", err)
	}
}

func TestStashInvalidSlot(t *testing.T) {
	st := NewStash()
	for _, slot := range []Slot{-1, NumSlots, 42} {
		if err := st.Set(slot, nil); !errors.Is(err, ErrInvalidSlot) {
			t.Fatalf("slot %d: expected ErrInvalidSlot, got %v", slot, err)
		}
	}
}

func TestSlotKeys(t *testing.T) {
	cases := []struct {
		slot Slot
		key  string
		val  int
	}{
		{SlotEnter, "map_def_enter_script", 0},
		{SlotLeave, "map_def_leave_script", 1},
		{SlotLeaveNorth, "map_def_leave_north_script", 2},
		{SlotLeaveWest, "map_def_leave_west_script", 5},
		{SlotRender, "render_script", 6},
		{SlotUpdate, "update_script", 7},
	}
	for _, c := range cases {
		if c.slot.Key() != c.key || int(c.slot) != c.val {
			t.Fatalf("slot %d: key %q", c.slot, c.slot.Key())
		}
	}
	if SlotRender.Default() || !SlotLeaveEast.Default() {
		t.Fatalf("Default() misclassifies slots")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "update.tengo")
	if err := os.WriteFile(path, []byte(`Record("file")`), 0o644); err != nil {
		t.Fatal(err)
	}
	var calls []string
	s, err := LoadFile(path, counterEnv(&calls))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Run(); err != nil || len(calls) != 1 {
		t.Fatalf("run: %v calls=%v", err, calls)
	}
	if _, err := LoadFile(filepath.Join(dir, "missing.tengo"), nil); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist, got %v", err)
	}
}

func TestWatcherReportsScriptWrites(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "render.tengo")
	if err := os.WriteFile(path, []byte("a := 1"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-w.Events:
		if got != path {
			t.Fatalf("expected %s, got %s", path, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event for script write")
	}
}

func TestIsScriptFile(t *testing.T) {
	cases := map[string]bool{
		"a.tengo":     true,
		"dir/B.TENGO": true,
		"a.yaml":      false,
		"tengo":       false,
	}
	for path, want := range cases {
		if got := IsScriptFile(path); got != want {
			t.Fatalf("IsScriptFile(%q) = %v", path, got)
		}
	}
}
