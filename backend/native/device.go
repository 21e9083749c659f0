package native

import (
	"fmt"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/internal/cache"
)

// Cache capacities. Every sampler key fits in samplerCacheSize, so samplers
// are only destroyed by Close.
const (
	samplerCacheSize = 256
	depthCacheSize   = 8
)

// Device is the wgpu HAL implementation of backend.Device.
//
// Device is safe for concurrent use; all calls are serialized. Draw and
// ReadTexture wait for the GPU before returning.
type Device struct {
	mu      sync.Mutex
	device  hal.Device
	queue   hal.Queue
	info    gpucontext.AdapterInfo
	limits  gputypes.Limits
	release func()

	samplers *cache.Cache[samplerKey, hal.Sampler]
	depths   *cache.Cache[depthKey, *depthTarget]

	textures   map[backend.TextureID]*texture
	geometries map[backend.GeometryID]*mesh
	programs   map[backend.ProgramID]*program
	lastID     uint64
	closed     bool
}

var _ backend.Device = (*Device)(nil)

type options struct {
	info    gpucontext.AdapterInfo
	limits  gputypes.Limits
	release func()
}

// Option configures a Device.
type Option func(*options)

// WithAdapterInfo sets the adapter description returned by Info.
func WithAdapterInfo(info gpucontext.AdapterInfo) Option {
	return func(o *options) { o.info = info }
}

// WithDeviceLimits sets the limits the device was opened with. They are reported
// by Limits and enforced at program creation.
func WithDeviceLimits(l gputypes.Limits) Option {
	return func(o *options) { o.limits = l }
}

// withRelease registers a function run by Close after the HAL device is
// destroyed.
func withRelease(f func()) Option {
	return func(o *options) { o.release = f }
}

// New wraps an open HAL device and its queue. The Device takes ownership of
// hal: Close destroys it.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	o := options{
		info:   gpucontext.AdapterInfo{Name: "wgpu", Type: gpucontext.AdapterTypeUnknown},
		limits: gputypes.DefaultLimits(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Device{
		device:     device,
		queue:      queue,
		info:       o.info,
		limits:     o.limits,
		release:    o.release,
		textures:   make(map[backend.TextureID]*texture),
		geometries: make(map[backend.GeometryID]*mesh),
		programs:   make(map[backend.ProgramID]*program),
	}
	d.samplers = cache.NewWithEvict(samplerCacheSize, func(_ samplerKey, s hal.Sampler) {
		device.DestroySampler(s)
	})
	d.depths = cache.NewWithEvict(depthCacheSize, func(_ depthKey, t *depthTarget) {
		t.destroy(device)
	})
	glip.Logger().Info("native: device created", "adapter", d.info.Name, "type", d.info.Type)
	return d, nil
}

// NewFromProvider wraps the device of a host application. The provider must
// expose HAL objects.
func NewFromProvider(p gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	if p == nil {
		return nil, ErrNilDevice
	}
	device, ok := p.Device().(hal.Device)
	if !ok {
		return nil, fmt.Errorf("%w: device is %T", ErrNotHAL, p.Device())
	}
	queue, ok := p.Queue().(hal.Queue)
	if !ok {
		return nil, fmt.Errorf("%w: queue is %T", ErrNotHAL, p.Queue())
	}
	return New(device, queue, append([]Option{WithAdapterInfo(p.AdapterInfo())}, opts...)...)
}

// Info describes the adapter behind the device.
func (d *Device) Info() gpucontext.AdapterInfo { return d.info }

// Limits returns the device limits.
func (d *Device) Limits() gputypes.Limits { return d.limits }

// HAL returns the underlying HAL device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

func (d *Device) nextID() uint64 {
	d.lastID++
	return d.lastID
}

// CreateTexture allocates a texture usable as a draw input, a draw output
// and a copy source or destination.
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
	t, err := newTexture(d.device, desc)
	if err != nil {
		return backend.InvalidID, fmt.Errorf("%w: texture %s: %w", backend.ErrResourceAllocation, desc, err)
	}
	id := backend.TextureID(d.nextID())
	d.textures[id] = t
	return id, nil
}

// DestroyTexture releases a texture. Unknown IDs are ignored.
func (d *Device) DestroyTexture(id backend.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.textures[id]; ok {
		t.destroy(d.device)
		delete(d.textures, id)
	}
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

// WriteTexture uploads packed data to the base level.
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
	return t.write(d.queue, data)
}

// ReadTexture copies the base level back to host memory.
func (d *Device) ReadTexture(id backend.TextureID) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.texture(id)
	if err != nil {
		return nil, err
	}
	return d.readback(t)
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

// CreateGeometry uploads the vertex and element data of a model.
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
	g, err := newMesh(d.device, d.queue, m)
	if err != nil {
		return backend.InvalidID, fmt.Errorf("%w: geometry %s: %w", backend.ErrResourceAllocation, m, err)
	}
	id := backend.GeometryID(d.nextID())
	d.geometries[id] = g
	return id, nil
}

// DestroyGeometry releases a geometry. Unknown IDs are ignored.
func (d *Device) DestroyGeometry(id backend.GeometryID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if g, ok := d.geometries[id]; ok {
		g.destroy(d.device)
		delete(d.geometries, id)
	}
}

// CreateProgram compiles the shader stages and links a render pipeline.
func (d *Device) CreateProgram(desc *backend.ProgramDescriptor) (backend.ProgramID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.InvalidID, backend.ErrClosed
	}

	p, err := d.link(desc)
	if err != nil {
		label := ""
		if desc != nil {
			label = desc.Label
		}
		return backend.InvalidID, fmt.Errorf("%w: program %q: %w", backend.ErrResourceAllocation, label, err)
	}
	id := backend.ProgramID(d.nextID())
	d.programs[id] = p
	glip.Logger().Debug("native: program linked", "label", p.label, "inputs", p.nInputs, "outputs", len(p.outputs))
	return id, nil
}

// DestroyProgram releases a program. Unknown IDs are ignored.
func (d *Device) DestroyProgram(id backend.ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if p, ok := d.programs[id]; ok {
		p.destroy(d.device)
		delete(d.programs, id)
	}
}

// Close waits for the GPU, releases every resource and destroys the HAL
// device. Close is idempotent.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true

	err := d.device.WaitIdle()
	for id, p := range d.programs {
		p.destroy(d.device)
		delete(d.programs, id)
	}
	for id, g := range d.geometries {
		g.destroy(d.device)
		delete(d.geometries, id)
	}
	for id, t := range d.textures {
		t.destroy(d.device)
		delete(d.textures, id)
	}
	d.samplers.Clear()
	d.depths.Clear()
	d.device.Destroy()
	if d.release != nil {
		d.release()
	}
	glip.Logger().Info("native: device closed", "adapter", d.info.Name)
	return err
}
