package geometry

import (
	"errors"
	"sync"

	"github.com/ronan-kerviche/glip-lib-sub003/internal/cache"
)

// ErrReleased is returned when a handle is released twice.
var ErrReleased = errors.New("geometry: handle already released")

// Cache shares one device geometry between all users of an identical model.
//
// The cache owns a private copy of every model it stores. Each Acquire
// returns a [Handle]; the device geometry is created on the first Acquire of
// a model and destroyed by whichever holder releases the last handle, even
// after the cache itself is closed.
//
// ID is the device geometry identifier.
type Cache[ID any] struct {
	mu      sync.Mutex
	index   *cache.Cache[uint64, []*shared[ID]]
	create  func(*Model) (ID, error)
	destroy func(ID) error
	closed  bool
	live    int
}

type shared[ID any] struct {
	owner *Cache[ID]
	hash  uint64
	model *Model
	id    ID
	refs  int
}

// NewCache creates a cache that allocates geometries with create and frees
// them with destroy.
func NewCache[ID any](create func(*Model) (ID, error), destroy func(ID) error) *Cache[ID] {
	return &Cache[ID]{
		index:   cache.New[uint64, []*shared[ID]](0),
		create:  create,
		destroy: destroy,
	}
}

// Acquire returns a handle on the device geometry for m, creating it when no
// identical model is cached.
func (c *Cache[ID]) Acquire(m *Model) (*Handle[ID], error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	h := m.Hash()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		bucket, _ := c.index.Get(h)
		for _, s := range bucket {
			if s.model.Equal(m) {
				s.refs++
				return &Handle[ID]{s: s}, nil
			}
		}
	}

	own := m.Clone()
	id, err := c.create(own)
	if err != nil {
		return nil, err
	}
	s := &shared[ID]{owner: c, hash: h, model: own, id: id, refs: 1}
	c.live++
	if !c.closed {
		bucket, _ := c.index.Peek(h)
		c.index.Set(h, append(bucket, s))
	}
	return &Handle[ID]{s: s}, nil
}

// Len returns the number of live device geometries created by the cache.
func (c *Cache[ID]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.live
}

// Stats returns lookup statistics of the model index.
func (c *Cache[ID]) Stats() cache.Stats {
	return c.index.Stats()
}

// Close stops sharing. Geometries still referenced stay alive until their
// last handle is released.
func (c *Cache[ID]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	c.index.Clear()
}

func (c *Cache[ID]) release(s *shared[ID]) error {
	c.mu.Lock()
	s.refs--
	last := s.refs == 0
	if last {
		c.live--
	}
	if last && !c.closed {
		bucket, _ := c.index.Peek(s.hash)
		kept := bucket[:0:0]
		for _, o := range bucket {
			if o != s {
				kept = append(kept, o)
			}
		}
		if len(kept) == 0 {
			c.index.Delete(s.hash)
		} else {
			c.index.Set(s.hash, kept)
		}
	}
	c.mu.Unlock()

	if last {
		return c.destroy(s.id)
	}
	return nil
}

// Handle is a shared reference to a cached device geometry.
type Handle[ID any] struct {
	mu       sync.Mutex
	s        *shared[ID]
	released bool
}

// ID returns the device geometry identifier.
func (h *Handle[ID]) ID() ID { return h.s.id }

// Model returns the cached model. It must not be modified.
func (h *Handle[ID]) Model() *Model { return h.s.model }

// Retain returns a new handle on the same geometry.
func (h *Handle[ID]) Retain() *Handle[ID] {
	c := h.s.owner
	c.mu.Lock()
	h.s.refs++
	c.mu.Unlock()
	return &Handle[ID]{s: h.s}
}

// Release drops the reference. The last release destroys the geometry.
func (h *Handle[ID]) Release() error {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return ErrReleased
	}
	h.released = true
	h.mu.Unlock()
	return h.s.owner.release(h.s)
}
