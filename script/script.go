// Package script compiles and runs the tengo callables the engine stores in its
// slots, map strings, person hooks and key bindings.
package script

import (
	"fmt"
	"os"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
)

// Env is the set of globals every compiled script can see.
type Env map[string]tengo.Object

// Script is a compiled callable. A nil *Script is an absent script and running
// it does nothing.
type Script struct {
	name     string
	compiled *tengo.Compiled
	// template is never run, so it can be cloned while compiled is locked
	// by an outer run.
	template *tengo.Compiled
	depth    int
}

// Compile builds src against env. Blank sources yield a nil Script and no error.
func Compile(name, src string, env Env) (*Script, error) {
	if strings.TrimSpace(src) == "" {
		return nil, nil
	}

	s := tengo.NewScript([]byte(src))
	for k, v := range env {
		if err := s.Add(k, v); err != nil {
			return nil, fmt.Errorf("script: %s: add %s: %w", name, k, err)
		}
	}
	s.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := s.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", name, err)
	}
	return &Script{name: name, compiled: compiled.Clone(), template: compiled}, nil
}

// LoadFile reads and compiles the script at path.
func LoadFile(path string, env Env) (*Script, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: load %s: %w", path, err)
	}
	return Compile(path, string(src), env)
}

func (s *Script) Name() string {
	if s == nil {
		return ""
	}
	return s.name
}

// Run executes the script to completion. A script may run itself again while
// it is already running (a person hook that triggers itself, a nested map
// loop); the inner run executes on a private copy of the globals.
func (s *Script) Run() error {
	if s == nil {
		return nil
	}

	c := s.compiled
	if s.depth > 0 {
		c = s.template.Clone()
	}
	s.depth++
	defer func() { s.depth-- }()

	if err := c.Run(); err != nil {
		return fmt.Errorf("script %s: %w", s.name, err)
	}
	return nil
}
