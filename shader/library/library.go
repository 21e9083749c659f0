// Package library holds the built-in WGSL fragment programs.
//
// Each program's entry point is named after the program, so backends that
// evaluate fragments in Go (backend/cpu) find their kernel by entry point.
package library

import (
	"embed"
	"fmt"
	"slices"
	"sync"

	"github.com/ronan-kerviche/glip-lib-sub003/shader"
)

// Built-in program names.
const (
	Identity    = "identity"
	Invert      = "invert"
	Add         = "add"
	Multiply    = "multiply"
	ColorMatrix = "color_matrix"
	GaussianH   = "gaussian_h"
	GaussianV   = "gaussian_v"
	Threshold   = "threshold"
	GameOfLife  = "game_of_life"
)

//go:embed wgsl/*.wgsl
var files embed.FS

var (
	mu     sync.Mutex
	loaded = make(map[string]*shader.Source)
)

// Names returns the built-in program names, sorted.
func Names() []string {
	entries, err := files.ReadDir("wgsl")
	if err != nil {
		return nil
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		names = append(names, name[:len(name)-len(".wgsl")])
	}
	slices.Sort(names)
	return names
}

// Code returns the WGSL code of a built-in program.
func Code(name string) (string, error) {
	b, err := files.ReadFile("wgsl/" + name + ".wgsl")
	if err != nil {
		return "", fmt.Errorf("library: unknown program %q", name)
	}
	return string(b), nil
}

// Load returns the parsed built-in program. Sources are parsed once and
// shared.
func Load(name string) (*shader.Source, error) {
	mu.Lock()
	defer mu.Unlock()

	if s, ok := loaded[name]; ok {
		return s, nil
	}
	code, err := Code(name)
	if err != nil {
		return nil, err
	}
	s, err := shader.Parse(name, code)
	if err != nil {
		return nil, err
	}
	loaded[name] = s
	return s, nil
}

// MustLoad is like Load but panics on error.
func MustLoad(name string) *shader.Source {
	s, err := Load(name)
	if err != nil {
		panic(err)
	}
	return s
}
