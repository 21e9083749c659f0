package main

import (
	"fmt"
	"slices"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/internal/filter"
	"github.com/ronan-kerviche/glip-lib-sub003/layout"
	"github.com/ronan-kerviche/glip-lib-sub003/pipeline"
	"github.com/ronan-kerviche/glip-lib-sub003/shader/library"
)

// demo builds a pipeline around the input format and runs it.
type demo struct {
	// needsInput is false for demos that can generate their own input.
	needsInput bool
	run        func(ctx *pipeline.Context, conf *config, desc format.Descriptor, data []byte) (format.Descriptor, []byte, error)
}

var demos = map[string]demo{
	"life":      {run: runLife},
	"blur":      {needsInput: true, run: runBlur},
	"color":     {needsInput: true, run: runColor},
	"threshold": {needsInput: true, run: runThreshold},
	"invert":    {needsInput: true, run: runInvert},
}

func demoNames() []string {
	names := make([]string, 0, len(demos))
	for name := range demos {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// singleLayout returns Input -> Pass -> Output around one library program.
func singleLayout(program string, desc format.Descriptor) (*layout.PipelineLayout, error) {
	fl, err := layout.NewFilterLayout(program, desc, library.MustLoad(program))
	if err != nil {
		return nil, err
	}
	pl, err := layout.NewPipelineLayout("Single")
	if err != nil {
		return nil, err
	}
	if _, err := pl.AddInputPort("Input"); err != nil {
		return nil, err
	}
	if _, err := pl.AddOutputPort("Output"); err != nil {
		return nil, err
	}
	if _, err := pl.Add(fl, "Pass"); err != nil {
		return nil, err
	}
	if err := pl.ConnectToInput("Input", "Pass", "inTex"); err != nil {
		return nil, err
	}
	if err := pl.ConnectToOutput("Pass", "outTex", "Output"); err != nil {
		return nil, err
	}
	return pl, nil
}

// blurLayout chains the horizontal and vertical gaussian passes.
func blurLayout(desc format.Descriptor) (*layout.PipelineLayout, error) {
	h, err := layout.NewFilterLayout("GaussianH", desc, library.MustLoad(library.GaussianH))
	if err != nil {
		return nil, err
	}
	v, err := layout.NewFilterLayout("GaussianV", desc, library.MustLoad(library.GaussianV))
	if err != nil {
		return nil, err
	}
	pl, err := layout.NewPipelineLayout("Blur")
	if err != nil {
		return nil, err
	}
	steps := []func() error{
		func() error { _, err := pl.AddInputPort("Input"); return err },
		func() error { _, err := pl.AddOutputPort("Output"); return err },
		func() error { _, err := pl.Add(h, "Horizontal"); return err },
		func() error { _, err := pl.Add(v, "Vertical"); return err },
		func() error { return pl.ConnectToInput("Input", "Horizontal", "inTex") },
		func() error { return pl.Connect("Horizontal", "outTex", "Vertical", "inTex") },
		func() error { return pl.ConnectToOutput("Vertical", "outTex", "Output") },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return pl, nil
}

// runOnce instantiates pl, lets setup configure it and processes one input.
func runOnce(ctx *pipeline.Context, pl *layout.PipelineLayout, desc format.Descriptor, data []byte, setup func(*pipeline.Pipeline) error) (format.Descriptor, []byte, error) {
	p, err := pipeline.New(ctx, pl, pl.TypeName())
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	defer func() {
		if err := p.Release(); err != nil {
			glip.Logger().Warn("glipcompute: release", "pipeline", p.Name(), "err", err)
		}
	}()
	if setup != nil {
		if err := setup(p); err != nil {
			return format.Descriptor{}, nil, err
		}
	}

	in, err := ctx.CreateTexture(desc, data)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	defer ctx.DestroyTexture(in)

	if err := p.Process(in); err != nil {
		return format.Descriptor{}, nil, err
	}
	out, err := p.Output(0)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	result, err := ctx.ReadTexture(out)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	return desc, result, nil
}

func runBlur(ctx *pipeline.Context, conf *config, desc format.Descriptor, data []byte) (format.Descriptor, []byte, error) {
	pl, err := blurLayout(desc)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	sigma := float32(conf.Blur.Sigma)
	return runOnce(ctx, pl, desc, data, func(p *pipeline.Pipeline) error {
		for _, path := range []string{"Horizontal", "Vertical"} {
			if err := p.SetUniform(path, "sigma", sigma); err != nil {
				return err
			}
		}
		return nil
	})
}

func runColor(ctx *pipeline.Context, conf *config, desc format.Descriptor, data []byte) (format.Descriptor, []byte, error) {
	m, ok := filter.Preset(conf.Color.Preset, float32(conf.Color.Amount))
	if !ok {
		return format.Descriptor{}, nil, fmt.Errorf("color: unknown preset %q", conf.Color.Preset)
	}
	pl, err := singleLayout(library.ColorMatrix, desc)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	red, green, blue, alpha, bias := m.Rows()
	return runOnce(ctx, pl, desc, data, func(p *pipeline.Pipeline) error {
		rows := []struct {
			name string
			v    [4]float32
		}{{"red", red}, {"green", green}, {"blue", blue}, {"alpha", alpha}, {"bias", bias}}
		for _, row := range rows {
			if err := p.SetUniform("Pass", row.name, row.v[:]...); err != nil {
				return err
			}
		}
		return nil
	})
}

func runThreshold(ctx *pipeline.Context, conf *config, desc format.Descriptor, data []byte) (format.Descriptor, []byte, error) {
	pl, err := singleLayout(library.Threshold, desc)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	return runOnce(ctx, pl, desc, data, func(p *pipeline.Pipeline) error {
		return p.SetUniform("Pass", "level", float32(conf.Threshold.Level))
	})
}

func runInvert(ctx *pipeline.Context, _ *config, desc format.Descriptor, data []byte) (format.Descriptor, []byte, error) {
	pl, err := singleLayout(library.Invert, desc)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	return runOnce(ctx, pl, desc, data, nil)
}

// runLife runs the game of life on two buffer cells, each generation
// reading the previous one. Without an input image the board starts with a
// glider in its top left corner.
func runLife(ctx *pipeline.Context, conf *config, desc format.Descriptor, data []byte) (format.Descriptor, []byte, error) {
	if data == nil {
		desc = format.New(conf.Life.Width, conf.Life.Height, format.RGBA, format.Uint8)
		data = board(desc, glider)
	}
	pl, err := singleLayout(library.GameOfLife, desc)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	if conf.Life.Generations == 0 {
		return desc, data, nil
	}

	p, err := pipeline.New(ctx, pl, "life")
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	defer func() {
		if err := p.Release(); err != nil {
			glip.Logger().Warn("glipcompute: release", "pipeline", p.Name(), "err", err)
		}
	}()

	seed, err := ctx.CreateTexture(desc, data)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	defer ctx.DestroyTexture(seed)

	prev := p.CurrentCell()
	next, err := p.CreateBuffersCell()
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	if err := p.Process(seed); err != nil {
		return format.Descriptor{}, nil, err
	}
	for gen := 2; gen <= conf.Life.Generations; gen++ {
		if err := p.ChangeTargetBuffersCell(next); err != nil {
			return format.Descriptor{}, nil, err
		}
		in, err := p.OutputInCell(0, prev)
		if err != nil {
			return format.Descriptor{}, nil, err
		}
		if err := p.Process(in); err != nil {
			return format.Descriptor{}, nil, fmt.Errorf("generation %d: %w", gen, err)
		}
		prev, next = next, prev
	}

	out, err := p.Output(0)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	result, err := ctx.ReadTexture(out)
	if err != nil {
		return format.Descriptor{}, nil, err
	}
	return desc, result, nil
}

var glider = [][2]int{{1, 0}, {2, 1}, {0, 2}, {1, 2}, {2, 2}}

// board returns an opaque black RGBA8 image with the given cells white.
func board(desc format.Descriptor, alive [][2]int) []byte {
	data := make([]byte, desc.Size())
	for i := 3; i < len(data); i += 4 {
		data[i] = 255
	}
	for _, c := range alive {
		if c[0] >= desc.Width || c[1] >= desc.Height {
			continue
		}
		i := (c[1]*desc.Width + c[0]) * 4
		data[i], data[i+1], data[i+2] = 255, 255, 255
	}
	return data
}
