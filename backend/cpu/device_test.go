package cpu

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/ronan-kerviche/glip-lib-sub003/backend"
	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/internal/filter"
	"github.com/ronan-kerviche/glip-lib-sub003/shader"
	"github.com/ronan-kerviche/glip-lib-sub003/shader/library"
)

const solidCode = `
struct FragmentOutput {
    @location(0) outTex: vec4<f32>,
}

@fragment
fn solid(@location(0) texCoord: vec2<f32>) -> FragmentOutput {
    var result: FragmentOutput;
    result.outTex = vec4<f32>(1.0, 0.0, 0.0, 0.5);
    return result;
}
`

func solidKernel(f *Fragment) { f.Set(0, [4]float32{1, 0, 0, 0.5}) }

func newTestDevice(t *testing.T, opts ...Option) *Device {
	t.Helper()
	d := New(append([]Option{WithWorkers(2)}, opts...)...)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func programDesc(src *shader.Source, target format.Descriptor) *backend.ProgramDescriptor {
	return &backend.ProgramDescriptor{
		Label:    src.Label(),
		Vertex:   shader.StandardVertex(),
		Fragment: src,
		Inputs:   src.InputNames(),
		Outputs:  src.OutputNames(),
		Target:   target,
		Model:    geometry.StandardQuad(),
	}
}

func createProgram(t *testing.T, d *Device, desc *backend.ProgramDescriptor) backend.ProgramID {
	t.Helper()
	id, err := d.CreateProgram(desc)
	if err != nil {
		t.Fatalf("CreateProgram(%s) error = %v", desc.Label, err)
	}
	return id
}

func createQuad(t *testing.T, d *Device) backend.GeometryID {
	t.Helper()
	id, err := d.CreateGeometry(geometry.StandardQuad())
	if err != nil {
		t.Fatalf("CreateGeometry() error = %v", err)
	}
	return id
}

func upload(t *testing.T, d *Device, desc format.Descriptor, rgba []float32) backend.TextureID {
	t.Helper()
	id, err := d.CreateTexture(desc)
	if err != nil {
		t.Fatalf("CreateTexture(%s) error = %v", desc, err)
	}
	if rgba != nil {
		data, err := desc.Pack(rgba)
		if err != nil {
			t.Fatalf("Pack() error = %v", err)
		}
		if err := d.WriteTexture(id, data); err != nil {
			t.Fatalf("WriteTexture() error = %v", err)
		}
	}
	return id
}

func download(t *testing.T, d *Device, id backend.TextureID) []float32 {
	t.Helper()
	desc, err := d.TextureFormat(id)
	if err != nil {
		t.Fatalf("TextureFormat() error = %v", err)
	}
	data, err := d.ReadTexture(id)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	rgba, err := desc.Unpack(data)
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	return rgba
}

func fill(n int, c [4]float32) []float32 {
	out := make([]float32, 0, n*4)
	for range n {
		out = append(out, c[:]...)
	}
	return out
}

func closeTo(a, b []float32, eps float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(float64(a[i]-b[i])) > eps {
			return false
		}
	}
	return true
}

// =============================================================================
// Resources
// =============================================================================

func TestDevice_Info(t *testing.T) {
	d := newTestDevice(t)

	if got := d.Info(); got.Type != gpucontext.AdapterTypeSoftware || got.Name != AdapterName {
		t.Errorf("Info() = %+v, want software adapter %q", got, AdapterName)
	}
	if got := d.Limits(); got != gputypes.DefaultLimits() {
		t.Errorf("Limits() = %+v, want DefaultLimits()", got)
	}
	if got := d.Workers(); got != 2 {
		t.Errorf("Workers() = %d, want 2", got)
	}
}

func TestDevice_TextureRoundTrip(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(3, 2, format.RGBA, format.Uint8)

	id, err := d.CreateTexture(desc)
	if err != nil {
		t.Fatalf("CreateTexture() error = %v", err)
	}

	zero, err := d.ReadTexture(id)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if !bytes.Equal(zero, make([]byte, desc.Size())) {
		t.Errorf("new texture = %v, want zeros", zero)
	}

	data := make([]byte, desc.Size())
	for i := range data {
		data[i] = byte(i * 10)
	}
	if err := d.WriteTexture(id, data); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	got, err := d.ReadTexture(id)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("ReadTexture() = %v, want %v", got, data)
	}

	if got, _ := d.TextureFormat(id); got != desc {
		t.Errorf("TextureFormat() = %v, want %v", got, desc)
	}
}

func TestDevice_TextureErrors(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(2, 2, format.RGBA, format.Uint8)
	id := upload(t, d, desc, nil)

	if err := d.WriteTexture(id, make([]byte, 3)); !errors.Is(err, backend.ErrSizeMismatch) {
		t.Errorf("WriteTexture(short) error = %v, want ErrSizeMismatch", err)
	}
	if _, err := d.CreateTexture(format.New(0, 2, format.RGBA, format.Uint8)); !errors.Is(err, backend.ErrResourceAllocation) {
		t.Errorf("CreateTexture(0x2) error = %v, want ErrResourceAllocation", err)
	}

	small := newTestDevice(t, WithLimits(gputypes.Limits{MaxTextureDimension2D: 4}))
	if _, err := small.CreateTexture(format.New(8, 2, format.RGBA, format.Uint8)); !errors.Is(err, backend.ErrResourceAllocation) {
		t.Errorf("CreateTexture(8x2) over limit error = %v, want ErrResourceAllocation", err)
	}

	d.DestroyTexture(id)
	if _, err := d.ReadTexture(id); !errors.Is(err, backend.ErrInvalidID) {
		t.Errorf("ReadTexture(destroyed) error = %v, want ErrInvalidID", err)
	}
	if _, err := d.TextureFormat(backend.InvalidID); !errors.Is(err, backend.ErrInvalidID) {
		t.Errorf("TextureFormat(InvalidID) error = %v, want ErrInvalidID", err)
	}
}

func TestDevice_Closed(t *testing.T) {
	d := New(WithWorkers(1))
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if _, err := d.CreateTexture(format.New(1, 1, format.RGBA, format.Uint8)); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("CreateTexture() after Close error = %v, want ErrClosed", err)
	}
	if err := d.Draw(&backend.DrawPass{}); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("Draw() after Close error = %v, want ErrClosed", err)
	}
}

// =============================================================================
// Programs
// =============================================================================

func TestDevice_CreateProgramErrors(t *testing.T) {
	d := newTestDevice(t)
	target := format.New(4, 4, format.RGBA, format.Uint8)
	identity := library.MustLoad(library.Identity)

	grid, err := geometry.PointsGrid2D(4, 4)
	if err != nil {
		t.Fatalf("PointsGrid2D() error = %v", err)
	}
	custom := shader.MustParse("custom", `
@fragment
fn mystery(@location(0) texCoord: vec2<f32>) -> @location(0) vec4<f32> {
    return vec4<f32>(texCoord, 0.0, 1.0);
}
`)

	tests := []struct {
		name   string
		modify func(*backend.ProgramDescriptor)
	}{
		{"nil fragment", func(p *backend.ProgramDescriptor) { p.Fragment = nil }},
		{"points geometry", func(p *backend.ProgramDescriptor) { p.Model = grid }},
		{"no kernel", func(p *backend.ProgramDescriptor) { p.Fragment, p.Inputs, p.Outputs = custom, nil, custom.OutputNames() }},
		{"unbound input", func(p *backend.ProgramDescriptor) { p.Inputs = nil }},
		{"unknown output", func(p *backend.ProgramDescriptor) { p.Outputs = []string{"nowhere"} }},
		{"no output", func(p *backend.ProgramDescriptor) { p.Outputs = nil }},
		{"invalid target", func(p *backend.ProgramDescriptor) { p.Target = format.Descriptor{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := programDesc(identity, target)
			tt.modify(desc)
			if _, err := d.CreateProgram(desc); !errors.Is(err, backend.ErrResourceAllocation) {
				t.Errorf("CreateProgram() error = %v, want ErrResourceAllocation", err)
			}
		})
	}
}

func TestDevice_CreateProgramLimits(t *testing.T) {
	limits := gputypes.DefaultLimits()
	limits.MaxSampledTexturesPerShaderStage = 1
	d := newTestDevice(t, WithLimits(limits))
	target := format.New(4, 4, format.RGBA, format.Uint8)

	if _, err := d.CreateProgram(programDesc(library.MustLoad(library.Identity), target)); err != nil {
		t.Errorf("CreateProgram(identity) error = %v", err)
	}
	if _, err := d.CreateProgram(programDesc(library.MustLoad(library.Add), target)); !errors.Is(err, backend.ErrResourceAllocation) {
		t.Errorf("CreateProgram(add) with one texture slot error = %v, want ErrResourceAllocation", err)
	}
}

func TestDevice_WithKernelOverridesRegistry(t *testing.T) {
	d := newTestDevice(t, WithKernel(library.Identity, func(f *Fragment) {
		f.Set(0, [4]float32{0, 1, 0, 1})
	}))
	desc := format.New(2, 2, format.RGBA, format.Float32)

	prog := createProgram(t, d, programDesc(library.MustLoad(library.Identity), desc))
	in := upload(t, d, desc, fill(4, [4]float32{1, 0, 0, 1}))
	out := upload(t, d, desc, nil)
	if err := d.Draw(&backend.DrawPass{Program: prog, Geometry: createQuad(t, d), Inputs: []backend.TextureID{in}, Outputs: []backend.TextureID{out}}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	if got, want := download(t, d, out), fill(4, [4]float32{0, 1, 0, 1}); !closeTo(got, want, 0) {
		t.Errorf("output = %v, want %v", got, want)
	}
}

// =============================================================================
// Draw
// =============================================================================

func TestDraw_IdentityIsExact(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(5, 3, format.RGBA, format.Uint8)

	data := make([]byte, desc.Size())
	for i := range data {
		data[i] = byte(i*37 + 11)
	}
	in := upload(t, d, desc, nil)
	if err := d.WriteTexture(in, data); err != nil {
		t.Fatalf("WriteTexture() error = %v", err)
	}
	out := upload(t, d, desc, nil)
	prog := createProgram(t, d, programDesc(library.MustLoad(library.Identity), desc))

	pass := &backend.DrawPass{Program: prog, Geometry: createQuad(t, d), Inputs: []backend.TextureID{in}, Outputs: []backend.TextureID{out}}
	if err := d.Draw(pass); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	got, err := d.ReadTexture(out)
	if err != nil {
		t.Fatalf("ReadTexture() error = %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("identity output = %v, want %v", got, data)
	}
}

func TestDraw_BuiltinPrograms(t *testing.T) {
	desc := format.New(2, 1, format.RGBA, format.Float32)
	a := []float32{0.25, 0.5, 0.75, 1, 0, 0.1, 0.2, 0.5}
	b := []float32{0.5, 0.5, 0.5, 0.5, 1, 1, 1, 1}
	invert := filter.InvertMatrix()
	red, green, blue, alpha, bias := invert.Rows()

	tests := []struct {
		name     string
		inputs   [][]float32
		uniforms map[string][]float32
		want     []float32
	}{
		{"identity", [][]float32{a}, nil, a},
		{"invert", [][]float32{a}, nil, []float32{0.75, 0.5, 0.25, 1, 1, 0.9, 0.8, 0.5}},
		{"add", [][]float32{a, b}, nil, []float32{0.75, 1, 1.25, 1.5, 1, 1.1, 1.2, 1.5}},
		{"multiply", [][]float32{a, b}, nil, []float32{0.125, 0.25, 0.375, 0.5, 0, 0.1, 0.2, 0.5}},
		{"color_matrix", [][]float32{a}, map[string][]float32{
			"red": red[:], "green": green[:], "blue": blue[:], "alpha": alpha[:], "bias": bias[:],
		}, []float32{0.75, 0.5, 0.25, 1, 1, 0.9, 0.8, 0.5}},
		{"threshold", [][]float32{a}, map[string][]float32{"level": {0.4}}, []float32{1, 1, 1, 1, 0, 0, 0, 0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t)
			prog := createProgram(t, d, programDesc(library.MustLoad(tt.name), desc))
			var ins []backend.TextureID
			for _, data := range tt.inputs {
				ins = append(ins, upload(t, d, desc, data))
			}
			out := upload(t, d, desc, nil)

			pass := &backend.DrawPass{Program: prog, Geometry: createQuad(t, d), Inputs: ins, Outputs: []backend.TextureID{out}, Uniforms: tt.uniforms}
			if err := d.Draw(pass); err != nil {
				t.Fatalf("Draw() error = %v", err)
			}
			if got := download(t, d, out); !closeTo(got, tt.want, 1e-6) {
				t.Errorf("%s output = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestDraw_Uint8OutputIsClamped(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(1, 1, format.RGBA, format.Uint8)
	prog := createProgram(t, d, programDesc(library.MustLoad(library.Add), desc))
	a := upload(t, d, desc, []float32{0.8, 0.2, 0, 1})
	b := upload(t, d, desc, []float32{0.8, 0.2, 0, 1})
	out := upload(t, d, desc, nil)

	if err := d.Draw(&backend.DrawPass{Program: prog, Geometry: createQuad(t, d), Inputs: []backend.TextureID{a, b}, Outputs: []backend.TextureID{out}}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	got, _ := d.ReadTexture(out)
	if want := []byte{255, 102, 0, 255}; !bytes.Equal(got, want) {
		t.Errorf("ReadTexture() = %v, want %v", got, want)
	}
}

func TestDraw_GaussianImpulse(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(8, 1, format.RGBA, format.Float32)
	impulse := make([]float32, 8*4)
	copy(impulse[3*4:], []float32{1, 1, 1, 1})

	in := upload(t, d, desc, impulse)
	out := upload(t, d, desc, nil)
	prog := createProgram(t, d, programDesc(library.MustLoad(library.GaussianH), desc))
	pass := &backend.DrawPass{
		Program:  prog,
		Geometry: createQuad(t, d),
		Inputs:   []backend.TextureID{in},
		Outputs:  []backend.TextureID{out},
		Uniforms: map[string][]float32{"sigma": {1}},
	}
	if err := d.Draw(pass); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	weights := filter.GaussianKernel(1)
	got := download(t, d, out)
	for x := range 8 {
		var want float32
		if i := 6 - x; i >= 0 {
			want = weights[i]
		}
		if math.Abs(float64(got[x*4]-want)) > 1e-6 {
			t.Errorf("output[%d] = %v, want %v", x, got[x*4], want)
		}
	}
}

func TestDraw_GaussianZeroSigmaIsIdentity(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(3, 3, format.RGBA, format.Uint8)
	data := make([]float32, 9*4)
	for i := range data {
		data[i] = float32(i%5) / 4
	}
	in := upload(t, d, desc, data)
	out := upload(t, d, desc, nil)
	prog := createProgram(t, d, programDesc(library.MustLoad(library.GaussianV), desc))

	if err := d.Draw(&backend.DrawPass{Program: prog, Geometry: createQuad(t, d), Inputs: []backend.TextureID{in}, Outputs: []backend.TextureID{out}}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	want, _ := d.ReadTexture(in)
	if got, _ := d.ReadTexture(out); !bytes.Equal(got, want) {
		t.Errorf("gaussian_v(sigma=0) = %v, want %v", got, want)
	}
}

func TestDraw_GameOfLifeBlinker(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(5, 5, format.RGBA, format.Uint8)
	board := func(cells ...[2]int) []float32 {
		out := fill(25, [4]float32{0, 0, 0, 1})
		for _, c := range cells {
			copy(out[(c[1]*5+c[0])*4:], []float32{1, 1, 1, 1})
		}
		return out
	}

	a := upload(t, d, desc, board([2]int{1, 2}, [2]int{2, 2}, [2]int{3, 2}))
	b := upload(t, d, desc, nil)
	prog := createProgram(t, d, programDesc(library.MustLoad(library.GameOfLife), desc))
	quad := createQuad(t, d)

	step := func(src, dst backend.TextureID) {
		t.Helper()
		if err := d.Draw(&backend.DrawPass{Program: prog, Geometry: quad, Inputs: []backend.TextureID{src}, Outputs: []backend.TextureID{dst}}); err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
	}

	step(a, b)
	if got, want := download(t, d, b), board([2]int{2, 1}, [2]int{2, 2}, [2]int{2, 3}); !closeTo(got, want, 0) {
		t.Errorf("generation 1 = %v, want vertical blinker", got)
	}
	step(b, a)
	if got, want := download(t, d, a), board([2]int{1, 2}, [2]int{2, 2}, [2]int{3, 2}); !closeTo(got, want, 0) {
		t.Errorf("generation 2 = %v, want horizontal blinker", got)
	}
}

func TestDraw_GameOfLifeWrapsAround(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(4, 4, format.RGBA, format.Uint8)
	in := fill(16, [4]float32{0, 0, 0, 1})
	// Blinker across the left and right edges on row 0.
	for _, x := range []int{3, 0, 1} {
		copy(in[x*4:], []float32{1, 1, 1, 1})
	}
	src := upload(t, d, desc, in)
	dst := upload(t, d, desc, nil)
	prog := createProgram(t, d, programDesc(library.MustLoad(library.GameOfLife), desc))

	if err := d.Draw(&backend.DrawPass{Program: prog, Geometry: createQuad(t, d), Inputs: []backend.TextureID{src}, Outputs: []backend.TextureID{dst}}); err != nil {
		t.Fatalf("Draw() error = %v", err)
	}
	got := download(t, d, dst)
	for _, y := range []int{3, 0, 1} {
		if got[(y*4)*4] != 1 {
			t.Errorf("cell (0, %d) = %v, want alive", y, got[(y*4)*4])
		}
	}
	if got[(0*4+1)*4] != 0 {
		t.Errorf("cell (1, 0) = %v, want dead", got[4])
	}
}

func TestDraw_ClearBlendDepthDiscard(t *testing.T) {
	solid := shader.MustParse("solid", solidCode)
	desc := format.New(2, 2, format.RGBA, format.Float32)
	background := fill(4, [4]float32{0, 0, 1, 1})
	overBlend := &gputypes.BlendState{
		Color: gputypes.BlendComponent{SrcFactor: gputypes.BlendFactorSrcAlpha, DstFactor: gputypes.BlendFactorOneMinusSrcAlpha, Operation: gputypes.BlendOperationAdd},
		Alpha: gputypes.BlendComponent{SrcFactor: gputypes.BlendFactorOne, DstFactor: gputypes.BlendFactorOneMinusSrcAlpha, Operation: gputypes.BlendOperationAdd},
	}

	tests := []struct {
		name   string
		kernel Kernel
		blend  *gputypes.BlendState
		depth  gputypes.CompareFunction
		clear  bool
		want   [4]float32
	}{
		{"replace", solidKernel, nil, gputypes.CompareFunctionUndefined, false, [4]float32{1, 0, 0, 0.5}},
		{"source over", solidKernel, overBlend, gputypes.CompareFunctionUndefined, false, [4]float32{0.5, 0, 0.5, 1}},
		{"clear then blend", solidKernel, overBlend, gputypes.CompareFunctionUndefined, true, [4]float32{0.5, 0, 0, 0.5}},
		{"depth less passes", solidKernel, nil, gputypes.CompareFunctionLess, false, [4]float32{1, 0, 0, 0.5}},
		{"depth greater fails", solidKernel, nil, gputypes.CompareFunctionGreater, false, [4]float32{0, 0, 1, 1}},
		{"depth never clears only", solidKernel, nil, gputypes.CompareFunctionNever, true, [4]float32{}},
		{"discard", func(f *Fragment) { f.Discard() }, nil, gputypes.CompareFunctionUndefined, false, [4]float32{0, 0, 1, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDevice(t, WithKernel("solid", tt.kernel))
			pd := programDesc(solid, desc)
			pd.Blend = tt.blend
			pd.DepthCompare = tt.depth
			prog := createProgram(t, d, pd)
			out := upload(t, d, desc, background)

			if err := d.Draw(&backend.DrawPass{Program: prog, Geometry: createQuad(t, d), Outputs: []backend.TextureID{out}, Clear: tt.clear}); err != nil {
				t.Fatalf("Draw() error = %v", err)
			}
			if got, want := download(t, d, out), fill(4, tt.want); !closeTo(got, want, 1e-6) {
				t.Errorf("output = %v, want %v", got[:4], tt.want)
			}
		})
	}
}

func TestDraw_Errors(t *testing.T) {
	d := newTestDevice(t)
	desc := format.New(2, 2, format.RGBA, format.Uint8)
	prog := createProgram(t, d, programDesc(library.MustLoad(library.Identity), desc))
	quad := createQuad(t, d)
	in := upload(t, d, desc, nil)
	out := upload(t, d, desc, nil)
	wrongSize := upload(t, d, format.New(3, 2, format.RGBA, format.Uint8), nil)

	tests := []struct {
		name string
		pass backend.DrawPass
		want error
	}{
		{"unknown program", backend.DrawPass{Program: 999, Geometry: quad, Inputs: []backend.TextureID{in}, Outputs: []backend.TextureID{out}}, backend.ErrInvalidID},
		{"unknown geometry", backend.DrawPass{Program: prog, Geometry: 999, Inputs: []backend.TextureID{in}, Outputs: []backend.TextureID{out}}, backend.ErrInvalidID},
		{"missing input", backend.DrawPass{Program: prog, Geometry: quad, Outputs: []backend.TextureID{out}}, backend.ErrSizeMismatch},
		{"unknown input", backend.DrawPass{Program: prog, Geometry: quad, Inputs: []backend.TextureID{999}, Outputs: []backend.TextureID{out}}, backend.ErrInvalidID},
		{"wrong output size", backend.DrawPass{Program: prog, Geometry: quad, Inputs: []backend.TextureID{in}, Outputs: []backend.TextureID{wrongSize}}, backend.ErrSizeMismatch},
		{"feedback", backend.DrawPass{Program: prog, Geometry: quad, Inputs: []backend.TextureID{in}, Outputs: []backend.TextureID{in}}, backend.ErrTextureAliasing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := d.Draw(&tt.pass); !errors.Is(err, tt.want) {
				t.Errorf("Draw() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDraw_ParallelMatchesSerial(t *testing.T) {
	desc := format.New(37, 29, format.RGBA, format.Uint8)
	data := make([]float32, 37*29*4)
	for i := range data {
		data[i] = float32((i*7919)%256) / 255
	}

	render := func(workers int) []byte {
		d := New(WithWorkers(workers))
		defer d.Close()
		in := upload(t, d, desc, data)
		mid := upload(t, d, desc, nil)
		out := upload(t, d, desc, nil)
		quad := createQuad(t, d)
		h := createProgram(t, d, programDesc(library.MustLoad(library.GaussianH), desc))
		v := createProgram(t, d, programDesc(library.MustLoad(library.GaussianV), desc))
		u := map[string][]float32{"sigma": {1.5}}
		if err := d.Draw(&backend.DrawPass{Program: h, Geometry: quad, Inputs: []backend.TextureID{in}, Outputs: []backend.TextureID{mid}, Uniforms: u}); err != nil {
			t.Fatalf("Draw(h) error = %v", err)
		}
		if err := d.Draw(&backend.DrawPass{Program: v, Geometry: quad, Inputs: []backend.TextureID{mid}, Outputs: []backend.TextureID{out}, Uniforms: u}); err != nil {
			t.Fatalf("Draw(v) error = %v", err)
		}
		got, err := d.ReadTexture(out)
		if err != nil {
			t.Fatalf("ReadTexture() error = %v", err)
		}
		return got
	}

	if serial, parallel := render(1), render(8); !bytes.Equal(serial, parallel) {
		t.Error("8 workers produced a different blur than 1 worker")
	}
}

// =============================================================================
// Registry
// =============================================================================

func TestRegisteredBackend(t *testing.T) {
	if !backend.IsRegistered(backend.NameCPU) {
		t.Fatalf("IsRegistered(%q) = false, want true", backend.NameCPU)
	}
	dev, err := backend.Open(backend.Config{Backend: backend.NameCPU, Workers: 1})
	if err != nil {
		t.Fatalf("Open(cpu) error = %v", err)
	}
	defer dev.Close()

	if _, ok := dev.(*Device); !ok {
		t.Errorf("Open(cpu) = %T, want *cpu.Device", dev)
	}
}

func TestKernels(t *testing.T) {
	registered := Kernels()
	for _, name := range library.Names() {
		found := false
		for _, k := range registered {
			if k == name {
				found = true
			}
		}
		if !found {
			t.Errorf("library program %q has no kernel", name)
		}
	}
}
