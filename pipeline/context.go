package pipeline

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/metrics"
	"github.com/ronan-kerviche/glip-lib-sub003/stream"
)

// Context holds the state shared by the pipelines of one device: the socket
// table, the geometry cache and the metrics.
//
// The device is borrowed: Close releases what the context created and leaves
// the device open.
type Context struct {
	id         uuid.UUID
	device     backend.Device
	sockets    *stream.Manager
	geometries *geometry.Cache[backend.GeometryID]
	metrics    *metrics.Metrics

	mu     sync.Mutex
	closed bool
	names  map[string]bool
}

type contextOptions struct {
	sockets int
	metrics *metrics.Metrics
}

// Option configures a Context.
type Option func(*contextOptions)

// WithSocketCapacity sets the maximum number of live sockets. The default is
// stream.DefaultCapacity.
func WithSocketCapacity(n int) Option {
	return func(o *contextOptions) { o.sockets = n }
}

// WithMetrics records pipeline activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *contextOptions) { o.metrics = m }
}

// NewContext returns a context drawing on dev.
func NewContext(dev backend.Device, opts ...Option) (*Context, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	var o contextOptions
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context{
		id:      uuid.New(),
		device:  dev,
		sockets: stream.NewManager(o.sockets),
		metrics: o.metrics,
		names:   make(map[string]bool),
	}
	c.geometries = geometry.NewCache(dev.CreateGeometry, func(id backend.GeometryID) error {
		dev.DestroyGeometry(id)
		return nil
	})
	glip.Logger().Info("pipeline: context created",
		"context", c.id, "adapter", dev.Info().Name, "sockets", c.sockets.Capacity())
	return c, nil
}

// ID identifies the context in logs.
func (c *Context) ID() uuid.UUID { return c.id }

// Device returns the device the context draws on.
func (c *Context) Device() backend.Device { return c.device }

// Sockets returns the socket table.
func (c *Context) Sockets() *stream.Manager { return c.sockets }

// Geometries returns the geometry cache.
func (c *Context) Geometries() *geometry.Cache[backend.GeometryID] { return c.geometries }

func (c *Context) check() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("%w: context %s", ErrReleased, c.id)
	}
	return nil
}

// claimName reserves a pipeline name. Metric series are labelled by name,
// so two live pipelines of a context cannot share one.
func (c *Context) claimName(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.names[name] {
		return fmt.Errorf("%w: %s in context %s", ErrDuplicateName, name, c.id)
	}
	c.names[name] = true
	return nil
}

func (c *Context) releaseName(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.names, name)
}

// CreateTexture allocates a texture and fills it with data when data is not
// nil.
func (c *Context) CreateTexture(desc format.Descriptor, data []byte) (backend.TextureID, error) {
	if err := c.check(); err != nil {
		return backend.InvalidID, err
	}
	id, err := c.device.CreateTexture(desc)
	if err != nil {
		return backend.InvalidID, err
	}
	if data != nil {
		if err := c.device.WriteTexture(id, data); err != nil {
			c.device.DestroyTexture(id)
			return backend.InvalidID, err
		}
	}
	return id, nil
}

// ReadTexture returns the packed content of a texture.
func (c *Context) ReadTexture(id backend.TextureID) ([]byte, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	return c.device.ReadTexture(id)
}

// DestroyTexture releases a texture created by CreateTexture.
func (c *Context) DestroyTexture(id backend.TextureID) {
	c.device.DestroyTexture(id)
}

func (c *Context) updateSockets() {
	c.metrics.SetLiveSockets(c.sockets.Len())
}

// Close stops geometry sharing. Pipelines still alive keep their resources
// until released. Close does not close the device.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.geometries.Close()
	glip.Logger().Info("pipeline: context closed", "context", c.id, "sockets", c.sockets.Len())
	return nil
}
