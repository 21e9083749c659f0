package geometry

import (
	"errors"
	"testing"
)

type fakeDevice struct {
	next      int
	live      map[int]*Model
	destroyed []int
	fail      bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{live: make(map[int]*Model)}
}

func (d *fakeDevice) create(m *Model) (int, error) {
	if d.fail {
		return 0, errors.New("out of memory")
	}
	d.next++
	d.live[d.next] = m
	return d.next, nil
}

func (d *fakeDevice) destroy(id int) error {
	delete(d.live, id)
	d.destroyed = append(d.destroyed, id)
	return nil
}

func TestCache_SharesIdenticalModels(t *testing.T) {
	dev := newFakeDevice()
	c := NewCache(dev.create, dev.destroy)

	a, err := c.Acquire(StandardQuad())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	b, err := c.Acquire(StandardQuad())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if a.ID() != b.ID() {
		t.Errorf("identical models got IDs %d and %d", a.ID(), b.ID())
	}
	grid, _ := PointsGrid2D(4, 4)
	g, err := c.Acquire(grid)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if g.ID() == a.ID() {
		t.Error("different models share an ID")
	}
	if c.Len() != 2 || len(dev.live) != 2 {
		t.Errorf("Len() = %d, device live = %d, want 2", c.Len(), len(dev.live))
	}

	if err := a.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if len(dev.destroyed) != 0 {
		t.Errorf("geometry destroyed while still referenced: %v", dev.destroyed)
	}
	if err := b.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if len(dev.destroyed) != 1 || dev.destroyed[0] != 1 {
		t.Errorf("destroyed = %v, want [1]", dev.destroyed)
	}
	if err := b.Release(); !errors.Is(err, ErrReleased) {
		t.Errorf("second Release() error = %v, want ErrReleased", err)
	}

	// A fresh acquire after the last release creates a new geometry.
	again, _ := c.Acquire(StandardQuad())
	if again.ID() == 1 {
		t.Error("released geometry was reused")
	}
}

func TestCache_HandleOutlivesCache(t *testing.T) {
	dev := newFakeDevice()
	c := NewCache(dev.create, dev.destroy)

	h, err := c.Acquire(StandardQuad())
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	r := h.Retain()
	c.Close()

	if len(dev.destroyed) != 0 {
		t.Fatal("Close() destroyed a referenced geometry")
	}
	_ = h.Release()
	if len(dev.destroyed) != 0 {
		t.Fatal("geometry destroyed before the last handle was released")
	}
	_ = r.Release()
	if len(dev.destroyed) != 1 {
		t.Errorf("destroyed = %v, want one geometry", dev.destroyed)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCache_OwnsModelCopy(t *testing.T) {
	dev := newFakeDevice()
	c := NewCache(dev.create, dev.destroy)

	m := StandardQuad()
	h, _ := c.Acquire(m)
	m.Vertices[0] = 42
	if h.Model().Vertices[0] != -1 {
		t.Error("cached model shares storage with the caller")
	}
}

func TestCache_CreateFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.fail = true
	c := NewCache(dev.create, dev.destroy)

	if _, err := c.Acquire(StandardQuad()); err == nil {
		t.Error("Acquire() error = nil, want device failure")
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
	if _, err := c.Acquire(&Model{Dimensions: 5}); !errors.Is(err, ErrInvalidModel) {
		t.Errorf("Acquire(invalid) error = %v, want ErrInvalidModel", err)
	}
}
