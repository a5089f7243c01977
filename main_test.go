package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/milk9111/mapengine/engine"
	"github.com/milk9111/mapengine/levels"
	"github.com/milk9111/mapengine/pace"
	"github.com/milk9111/mapengine/rmp"
)

func TestKeymap(t *testing.T) {
	tests := []struct {
		key  engine.Key
		want ebiten.Key
	}{
		{engine.KeyA, ebiten.KeyA},
		{engine.KeyZ, ebiten.KeyZ},
		{engine.Key7, ebiten.KeyDigit7},
		{engine.KeyPad3, ebiten.KeyNumpad3},
		{engine.KeyF12, ebiten.KeyF12},
		{engine.KeyLeft, ebiten.KeyArrowLeft},
		{engine.KeyCtrl, ebiten.KeyControl},
	}
	for _, tc := range tests {
		if got, ok := keymap[tc.key]; !ok || got != tc.want {
			t.Fatalf("keymap[%d] = %v, %v; want %v", tc.key, got, ok, tc.want)
		}
	}
	for name, k := range engine.KeyNames {
		if _, ok := keymap[k]; !ok {
			t.Fatalf("KEY_%s has no window key", name)
		}
	}
}

func TestFinish(t *testing.T) {
	logger := log.New(io.Discard)
	boom := errors.New("boom")
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"budget", fmt.Errorf("run: %w", pace.ErrBudget), nil},
		{"aborted", pace.ErrAborted, nil},
		{"window", errWindowClosed, nil},
		{"other", boom, boom},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := finish(logger, tc.err); !errors.Is(got, tc.want) || (tc.want == nil && got != nil) {
				t.Fatalf("finish = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestBuildAndDump(t *testing.T) {
	out := filepath.Join(t.TempDir(), "town.rmp")
	var buf bytes.Buffer
	buildCmd.SetOut(&buf)
	if err := buildCmd.RunE(buildCmd, []string{filepath.Join("levels", "town.yaml"), out}); err != nil {
		t.Fatalf("build: %v", err)
	}
	if !strings.Contains(buf.String(), "wrote") {
		t.Fatalf("build output = %q", buf.String())
	}

	m, err := rmp.Load(out)
	if err != nil {
		t.Fatalf("load built map: %v", err)
	}
	want, err := levels.Source{}.LoadMap("town")
	if err != nil {
		t.Fatalf("load level: %v", err)
	}
	if len(m.Layers) != len(want.Layers) || len(m.Entities) != len(want.Entities) {
		t.Fatalf("built map differs from level source")
	}

	buf.Reset()
	dumpMap(&buf, m)
	for _, s := range []string{"Header", "facing east", "elder", "cat", "trigger", "field.rmp"} {
		if !strings.Contains(buf.String(), s) {
			t.Fatalf("dump missing %q:\n%s", s, buf.String())
		}
	}
}
