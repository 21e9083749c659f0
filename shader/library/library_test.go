package library

import (
	"slices"
	"testing"

	"github.com/ronan-kerviche/glip-lib-sub003/shader"
)

func TestNames(t *testing.T) {
	want := []string{
		Add, ColorMatrix, GameOfLife, GaussianH, GaussianV,
		Identity, Invert, Multiply, Threshold,
	}
	slices.Sort(want)
	if got := Names(); !slices.Equal(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestLoad_All(t *testing.T) {
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			s, err := Load(name)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			ep, ok := s.EntryPoint(shader.StageFragment)
			if !ok || ep.Name != name {
				t.Errorf("fragment entry point = %v, %v, want %s", ep, ok, name)
			}
			if len(s.OutputNames()) != 1 || s.OutputNames()[0] != "outTex" {
				t.Errorf("OutputNames() = %v, want [outTex]", s.OutputNames())
			}
			again, _ := Load(name)
			if again != s {
				t.Error("Load() parsed the program twice")
			}
		})
	}
}

func TestLoad_Interfaces(t *testing.T) {
	tests := []struct {
		name     string
		inputs   []string
		uniforms []string
	}{
		{Identity, []string{"inTex"}, nil},
		{Add, []string{"inA", "inB"}, nil},
		{ColorMatrix, []string{"inTex"}, []string{"red", "green", "blue", "alpha", "bias"}},
		{GaussianH, []string{"inTex"}, []string{"sigma"}},
		{Threshold, []string{"inTex"}, []string{"level"}},
		{GameOfLife, []string{"inTex"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := MustLoad(tt.name)
			if got := s.InputNames(); !slices.Equal(got, tt.inputs) {
				t.Errorf("InputNames() = %v, want %v", got, tt.inputs)
			}
			var got []string
			for _, u := range s.Uniforms() {
				got = append(got, u.Name)
			}
			if !slices.Equal(got, tt.uniforms) {
				t.Errorf("Uniforms() = %v, want %v", got, tt.uniforms)
			}
		})
	}
}

func TestLoad_Unknown(t *testing.T) {
	if _, err := Load("nope"); err == nil {
		t.Error("Load(nope) error = nil")
	}
}
