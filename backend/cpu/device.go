package cpu

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/internal/parallel"
	"github.com/ronan-kerviche/glip-lib-sub003/shader"
)

// AdapterName is the adapter name reported by Info.
const AdapterName = "glip CPU reference device"

// Device is the CPU implementation of backend.Device.
//
// Device is safe for concurrent use; draws are serialized.
type Device struct {
	mu     sync.Mutex
	limits gputypes.Limits
	pool   *parallel.Pool
	local  map[string]Kernel

	textures   map[backend.TextureID]*texture
	geometries map[backend.GeometryID]*geometry.Model
	programs   map[backend.ProgramID]*program
	lastID     uint64
	closed     bool
}

var _ backend.Device = (*Device)(nil)

// program is a kernel bound to the port layout of a ProgramDescriptor.
type program struct {
	label  string
	kernel Kernel
	target format.Descriptor
	blend  *gputypes.BlendState
	depth  gputypes.CompareFunction

	// inputs maps each shader texture, in declaration order, to its slot in
	// DrawPass.Inputs.
	inputs []int
	// outputs maps each shader output, in location order, to its slot in
	// DrawPass.Outputs, or -1 when the output is not bound.
	outputs  []int
	nInputs  int
	nOutputs int
}

type options struct {
	workers int
	limits  gputypes.Limits
	kernels map[string]Kernel
}

// Option configures a Device.
type Option func(*options)

// WithWorkers sets the number of draw workers. Zero or less means one per
// CPU.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithLimits overrides the limits reported by the device and enforced at
// program creation.
func WithLimits(l gputypes.Limits) Option {
	return func(o *options) { o.limits = l }
}

// WithKernel binds a kernel to a fragment entry point for this device only.
// It takes precedence over kernels registered with RegisterKernel.
func WithKernel(entry string, k Kernel) Option {
	return func(o *options) {
		if o.kernels == nil {
			o.kernels = make(map[string]Kernel)
		}
		o.kernels[entry] = k
	}
}

// New creates a CPU device.
func New(opts ...Option) *Device {
	o := options{limits: gputypes.DefaultLimits()}
	for _, opt := range opts {
		opt(&o)
	}
	d := &Device{
		limits:     o.limits,
		pool:       parallel.NewPool(o.workers),
		local:      o.kernels,
		textures:   make(map[backend.TextureID]*texture),
		geometries: make(map[backend.GeometryID]*geometry.Model),
		programs:   make(map[backend.ProgramID]*program),
	}
	glip.Logger().Info("cpu: device created", "workers", d.pool.Workers())
	return d
}

// Info describes the device as a software adapter.
func (d *Device) Info() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: AdapterName, Type: gpucontext.AdapterTypeSoftware}
}

// Limits returns the device limits.
func (d *Device) Limits() gputypes.Limits { return d.limits }

// Workers returns the number of draw workers.
func (d *Device) Workers() int { return d.pool.Workers() }

func (d *Device) nextID() uint64 {
	d.lastID++
	return d.lastID
}

// CreateTexture allocates a zeroed texture.
func (d *Device) CreateTexture(desc format.Descriptor) (backend.TextureID, error) {
	if err := desc.Validate(); err != nil {
		return backend.InvalidID, fmt.Errorf("%w: texture %s: %w", backend.ErrResourceAllocation, desc, err)
	}
	if max(desc.Width, desc.Height) > int(d.limits.MaxTextureDimension2D) {
		return backend.InvalidID, fmt.Errorf("%w: texture %s exceeds %d texels per side",
			backend.ErrResourceAllocation, desc, d.limits.MaxTextureDimension2D)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.InvalidID, backend.ErrClosed
	}
	id := backend.TextureID(d.nextID())
	d.textures[id] = newTexture(desc)
	return id, nil
}

// DestroyTexture releases a texture. Unknown IDs are ignored.
func (d *Device) DestroyTexture(id backend.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.textures, id)
}

func (d *Device) texture(id backend.TextureID) (*texture, error) {
	if d.closed {
		return nil, backend.ErrClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return nil, fmt.Errorf("%w: texture %d", backend.ErrInvalidID, id)
	}
	return t, nil
}

// WriteTexture replaces the texture content with packed data.
func (d *Device) WriteTexture(id backend.TextureID, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.texture(id)
	if err != nil {
		return err
	}
	if len(data) != t.desc.Size() {
		return fmt.Errorf("%w: got %d bytes, want %d for %s", backend.ErrSizeMismatch, len(data), t.desc.Size(), t.desc)
	}
	texels, err := t.desc.Unpack(data)
	if err != nil {
		return err
	}
	t.texels = texels
	return nil
}

// ReadTexture returns the packed texture content.
func (d *Device) ReadTexture(id backend.TextureID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.texture(id)
	if err != nil {
		return nil, err
	}
	return t.desc.Pack(t.texels)
}

// TextureFormat returns the format a texture was created with.
func (d *Device) TextureFormat(id backend.TextureID) (format.Descriptor, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.texture(id)
	if err != nil {
		return format.Descriptor{}, err
	}
	return t.desc, nil
}

// CreateGeometry stores a model. Any valid model is accepted; programs
// decide what they can draw.
func (d *Device) CreateGeometry(m *geometry.Model) (backend.GeometryID, error) {
	if m == nil {
		return backend.InvalidID, fmt.Errorf("%w: nil model", backend.ErrResourceAllocation)
	}
	if err := m.Validate(); err != nil {
		return backend.InvalidID, fmt.Errorf("%w: %w", backend.ErrResourceAllocation, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.InvalidID, backend.ErrClosed
	}
	id := backend.GeometryID(d.nextID())
	d.geometries[id] = m
	return id, nil
}

// DestroyGeometry releases a geometry. Unknown IDs are ignored.
func (d *Device) DestroyGeometry(id backend.GeometryID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.geometries, id)
}

// CreateProgram binds the kernel of the fragment entry point to the port
// layout of desc. Only the standard vertex stage and the standard quad are
// supported.
func (d *Device) CreateProgram(desc *backend.ProgramDescriptor) (backend.ProgramID, error) {
	p, err := d.link(desc)
	if err != nil {
		label := ""
		if desc != nil {
			label = desc.Label
		}
		return backend.InvalidID, fmt.Errorf("%w: program %q: %w", backend.ErrResourceAllocation, label, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.InvalidID, backend.ErrClosed
	}
	id := backend.ProgramID(d.nextID())
	d.programs[id] = p
	glip.Logger().Debug("cpu: program created", "label", p.label, "inputs", p.nInputs, "outputs", p.nOutputs)
	return id, nil
}

func (d *Device) link(desc *backend.ProgramDescriptor) (*program, error) {
	if desc == nil || desc.Fragment == nil {
		return nil, errors.New("missing fragment stage")
	}
	if desc.Vertex != nil && !desc.Vertex.IsStandardVertex() {
		return nil, fmt.Errorf("custom vertex stage %q is not supported", desc.Vertex.Label())
	}
	if desc.Model != nil && !desc.Model.IsStandard() {
		return nil, fmt.Errorf("geometry %s is not supported, only the standard quad", desc.Model)
	}
	if err := desc.Target.Validate(); err != nil {
		return nil, err
	}
	if len(desc.Outputs) == 0 {
		return nil, errors.New("no output")
	}
	if len(desc.Outputs) > int(d.limits.MaxColorAttachments) {
		return nil, fmt.Errorf("%d outputs exceed %d color attachments", len(desc.Outputs), d.limits.MaxColorAttachments)
	}
	if len(desc.Inputs) > int(d.limits.MaxSampledTexturesPerShaderStage) {
		return nil, fmt.Errorf("%d inputs exceed %d sampled textures", len(desc.Inputs), d.limits.MaxSampledTexturesPerShaderStage)
	}

	ep, ok := desc.Fragment.EntryPoint(shader.StageFragment)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no fragment entry point", shader.ErrIntrospection, desc.Fragment.Label())
	}
	k, ok := d.local[ep.Name]
	if !ok {
		k, ok = lookupKernel(ep.Name)
	}
	if !ok {
		return nil, fmt.Errorf("no kernel for entry point %q", ep.Name)
	}

	p := &program{
		label:    desc.Label,
		kernel:   k,
		target:   desc.Target,
		blend:    desc.Blend,
		depth:    desc.DepthCompare,
		nInputs:  len(desc.Inputs),
		nOutputs: len(desc.Outputs),
	}
	for _, name := range desc.Fragment.InputNames() {
		slot := slices.Index(desc.Inputs, name)
		if slot < 0 {
			return nil, fmt.Errorf("texture %q is not bound to an input", name)
		}
		p.inputs = append(p.inputs, slot)
	}
	shaderOutputs := desc.Fragment.OutputNames()
	p.outputs = make([]int, len(shaderOutputs))
	for i := range p.outputs {
		p.outputs[i] = -1
	}
	for slot, name := range desc.Outputs {
		i := slices.Index(shaderOutputs, name)
		if i < 0 {
			return nil, fmt.Errorf("fragment stage has no output %q", name)
		}
		p.outputs[i] = slot
	}
	return p, nil
}

// DestroyProgram releases a program. Unknown IDs are ignored.
func (d *Device) DestroyProgram(id backend.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.programs, id)
}

// Draw runs the program kernel over every texel of the outputs.
func (d *Device) Draw(pass *backend.DrawPass) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.ErrClosed
	}

	p, ok := d.programs[pass.Program]
	if !ok {
		return fmt.Errorf("%w: program %d", backend.ErrInvalidID, pass.Program)
	}
	if _, ok := d.geometries[pass.Geometry]; !ok {
		return fmt.Errorf("%w: geometry %d", backend.ErrInvalidID, pass.Geometry)
	}
	if len(pass.Inputs) != p.nInputs || len(pass.Outputs) != p.nOutputs {
		return fmt.Errorf("%w: program %q takes %d inputs and %d outputs, got %d and %d",
			backend.ErrSizeMismatch, p.label, p.nInputs, p.nOutputs, len(pass.Inputs), len(pass.Outputs))
	}

	inputs := make([]*texture, len(p.inputs))
	for i, slot := range p.inputs {
		t, err := d.texture(pass.Inputs[slot])
		if err != nil {
			return err
		}
		inputs[i] = t
	}
	outputs := make([]*texture, len(pass.Outputs))
	for slot, id := range pass.Outputs {
		if slices.Contains(pass.Inputs, id) {
			return fmt.Errorf("%w: texture %d in program %q", backend.ErrTextureAliasing, id, p.label)
		}
		t, err := d.texture(id)
		if err != nil {
			return err
		}
		if !t.desc.IsCompatibleWith(p.target) {
			return fmt.Errorf("%w: output %d is %s, program %q renders %s",
				backend.ErrSizeMismatch, slot, t.desc, p.label, p.target)
		}
		outputs[slot] = t
	}

	if pass.Clear {
		for _, t := range outputs {
			clear(t.texels)
		}
	}

	w, h := p.target.Width, p.target.Height
	var depth []float32
	if p.depth != gputypes.CompareFunctionUndefined {
		depth = make([]float32, w*h)
		for i := range depth {
			depth[i] = 1
		}
	}
	clampLo, clampHi := outputRange(p.target.Element)

	var errMu sync.Mutex
	var firstErr error
	d.pool.Rows(h, func(y0, y1 int) {
		f := &Fragment{
			Width:    w,
			Height:   h,
			inputs:   inputs,
			uniforms: pass.Uniforms,
			outputs:  make([][4]float32, len(p.outputs)),
		}
		for y := y0; y < y1; y++ {
			for x := range w {
				f.reset(x, y)
				p.kernel(f)
				if f.discard {
					continue
				}
				if depth != nil {
					i := y*w + x
					if !depthPasses(p.depth, f.Depth, depth[i]) {
						continue
					}
					depth[i] = f.Depth
				}
				for i, slot := range p.outputs {
					if slot < 0 {
						continue
					}
					src := clampColor(f.outputs[i], clampLo, clampHi)
					dst := outputs[slot].at(x, y)
					if p.blend != nil {
						src = blend(p.blend, src, [4]float32(dst))
					}
					copy(dst, src[:])
				}
			}
		}
		for _, t := range outputs {
			if err := t.quantize(y0, y1); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
		}
	})
	return firstErr
}

// Close releases every resource and stops the workers.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	clear(d.textures)
	clear(d.geometries)
	clear(d.programs)
	d.pool.Close()
	glip.Logger().Info("cpu: device closed")
	return nil
}

// outputRange returns the range fragment outputs are clamped to before
// blending: [0, 1] for unsigned normalized targets, [-1, 1] for signed ones.
func outputRange(e format.ElementType) (lo, hi float32) {
	switch e {
	case format.Uint8, format.Uint16:
		return 0, 1
	case format.Int8, format.Int16:
		return -1, 1
	}
	return float32(math.Inf(-1)), float32(math.Inf(1))
}

func clampColor(c [4]float32, lo, hi float32) [4]float32 {
	for k := range c {
		c[k] = min(max(c[k], lo), hi)
	}
	return c
}
