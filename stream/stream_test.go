package stream

import (
	"errors"
	"math"
	"slices"
	"sync"
	"testing"

	"github.com/ronan-kerviche/glip-lib-sub003/backend"
)

func mustQuery(t *testing.T, m *Manager, desc string) Socket {
	t.Helper()
	s, err := m.Query(desc)
	if err != nil {
		t.Fatalf("Query(%q) error = %v", desc, err)
	}
	return s
}

func mustTexture(t *testing.T, m *Manager, tex backend.TextureID) Socket {
	t.Helper()
	s, err := m.QueryTexture(tex, "texture")
	if err != nil {
		t.Fatalf("QueryTexture(%d) error = %v", tex, err)
	}
	return s
}

func TestManager_Handles(t *testing.T) {
	m := NewManager(0)
	if m.Capacity() != DefaultCapacity {
		t.Errorf("Capacity() = %d, want %d", m.Capacity(), DefaultCapacity)
	}

	a := mustQuery(t, m, "a")
	b := mustQuery(t, m, "b")
	if a == NullSocket || b <= a {
		t.Errorf("handles = %d, %d, want increasing non-zero", a, b)
	}
	if err := m.Release(a); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	c := mustQuery(t, m, "c")
	if c == a {
		t.Errorf("released handle %d reissued", a)
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}
	if err := m.Release(a); !errors.Is(err, ErrInvalidSocket) {
		t.Errorf("second Release() error = %v, want ErrInvalidSocket", err)
	}
}

func TestManager_HandleWrap(t *testing.T) {
	m := NewManager(4)
	m.last = math.MaxUint32 - 1
	first := mustQuery(t, m, "first")   // MaxUint32
	second := mustQuery(t, m, "second") // wraps, skipping 0
	if first != math.MaxUint32 || second != 1 {
		t.Errorf("handles = %d, %d, want %d, 1", first, second, uint32(math.MaxUint32))
	}
	// A live handle is skipped after the wrap.
	m.last = 0
	if got := mustQuery(t, m, "third"); got != 2 {
		t.Errorf("handle after wrap = %d, want 2", got)
	}
}

func TestManager_Capacity(t *testing.T) {
	m := NewManager(2)
	mustQuery(t, m, "a")
	mustTexture(t, m, 7)
	if _, err := m.Query("c"); !errors.Is(err, ErrCapacity) {
		t.Errorf("Query() on a full table error = %v, want ErrCapacity", err)
	}
}

func TestManager_Resolve(t *testing.T) {
	m := NewManager(16)
	tex := mustTexture(t, m, 42)
	a := mustQuery(t, m, "a")
	b := mustQuery(t, m, "b")
	c := mustQuery(t, m, "c")

	// c -> b -> a -> tex
	for _, link := range [][2]Socket{{a, tex}, {b, a}, {c, b}} {
		if err := m.Connect(link[0], link[1]); err != nil {
			t.Fatalf("Connect(%d, %d) error = %v", link[0], link[1], err)
		}
	}
	for _, s := range []Socket{tex, a, b, c} {
		got, err := m.Resolve(s)
		if err != nil || got != 42 {
			t.Errorf("Resolve(%d) = %d, %v, want 42, nil", s, got, err)
		}
	}
	chain, err := m.Trace(c)
	if err != nil {
		t.Fatalf("Trace() error = %v", err)
	}
	if want := []Socket{c, b, a, tex}; !slices.Equal(chain, want) {
		t.Errorf("Trace() = %v, want %v", chain, want)
	}

	// Rebinding the end of the chain is seen by every consumer.
	if err := m.Bind(tex, 43); err != nil {
		t.Fatalf("Bind() error = %v", err)
	}
	if got, _ := m.Resolve(c); got != 43 {
		t.Errorf("Resolve() after Bind = %d, want 43", got)
	}
}

func TestManager_Cycles(t *testing.T) {
	m := NewManager(16)
	a := mustQuery(t, m, "a")
	b := mustQuery(t, m, "b")
	c := mustQuery(t, m, "c")

	if err := m.Connect(a, a); !errors.Is(err, ErrCyclicConnection) {
		t.Errorf("Connect(a, a) error = %v, want ErrCyclicConnection", err)
	}
	m.Connect(a, b)
	m.Connect(b, c)
	err := m.Connect(c, a)
	if !errors.Is(err, ErrCyclicConnection) {
		t.Fatalf("Connect(c, a) error = %v, want ErrCyclicConnection", err)
	}
	var se *SocketError
	if !errors.As(err, &se) || se.Socket != c || se.Description != "c" {
		t.Errorf("error = %v, want a SocketError for c", err)
	}
	if st, _ := m.State(c); st != StateFree {
		t.Errorf("State(c) after refused connect = %v, want free", st)
	}
}

func TestManager_Unresolved(t *testing.T) {
	m := NewManager(16)
	a := mustQuery(t, m, "a")
	b := mustQuery(t, m, "b")
	m.Connect(b, a)

	for _, s := range []Socket{a, b} {
		if _, err := m.Resolve(s); !errors.Is(err, ErrUnresolvedSocket) {
			t.Errorf("Resolve(%d) error = %v, want ErrUnresolvedSocket", s, err)
		}
	}
	chain, _ := m.Trace(b)
	if !slices.Equal(chain, []Socket{b, a}) {
		t.Errorf("Trace() = %v, want [%d %d]", chain, b, a)
	}
}

func TestManager_Dangling(t *testing.T) {
	m := NewManager(16)
	tex := mustTexture(t, m, 1)
	a := mustQuery(t, m, "a")
	m.Connect(a, tex)

	// Release does not check for linkers; the next resolution does.
	if err := m.Release(tex); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := m.Resolve(a); !errors.Is(err, ErrDanglingSocket) {
		t.Errorf("Resolve() error = %v, want ErrDanglingSocket", err)
	}
	if _, err := m.Resolve(tex); !errors.Is(err, ErrInvalidSocket) {
		t.Errorf("Resolve(released) error = %v, want ErrInvalidSocket", err)
	}
}

func TestManager_StateTransitions(t *testing.T) {
	m := NewManager(16)
	tex := mustTexture(t, m, 5)
	s := mustQuery(t, m, "input")

	check := func(want State) {
		t.Helper()
		if got, err := m.State(s); err != nil || got != want {
			t.Errorf("State() = %v, %v, want %v", got, err, want)
		}
	}
	check(StateFree)
	m.Connect(s, tex)
	check(StateLinked)
	if link, _ := m.Link(s); link != tex {
		t.Errorf("Link() = %d, want %d", link, tex)
	}
	m.Bind(s, 9)
	check(StateBound)
	if err := m.Connect(s, tex); !errors.Is(err, ErrSocketBound) {
		t.Errorf("Connect(bound, ...) error = %v, want ErrSocketBound", err)
	}
	m.Disconnect(s)
	check(StateFree)

	if err := m.Bind(s, backend.InvalidID); !errors.Is(err, backend.ErrInvalidID) {
		t.Errorf("Bind(InvalidID) error = %v, want ErrInvalidID", err)
	}
	if _, err := m.QueryTexture(backend.InvalidID, "x"); !errors.Is(err, backend.ErrInvalidID) {
		t.Errorf("QueryTexture(InvalidID) error = %v, want ErrInvalidID", err)
	}
	if desc, _ := m.Describe(s); desc != "input" {
		t.Errorf("Describe() = %q, want input", desc)
	}
	if _, err := m.Describe(999); !errors.Is(err, ErrInvalidSocket) {
		t.Errorf("Describe(999) error = %v, want ErrInvalidSocket", err)
	}
	for st, want := range map[State]string{StateFree: "free", StateBound: "bound", StateLinked: "linked"} {
		if st.String() != want {
			t.Errorf("String() = %q, want %q", st.String(), want)
		}
	}
}

func TestManager_Unconnected(t *testing.T) {
	m := NewManager(16)
	a := mustQuery(t, m, "a")
	tex := mustTexture(t, m, 1)
	b := mustQuery(t, m, "b")
	c := mustQuery(t, m, "c")
	m.Connect(b, tex)

	if got := m.Unconnected(); !slices.Equal(got, []Socket{a, c}) {
		t.Errorf("Unconnected() = %v, want [%d %d]", got, a, c)
	}
}

func TestManager_Concurrent(t *testing.T) {
	m := NewManager(1024)
	tex := mustTexture(t, m, 3)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				s, err := m.Query("worker")
				if err != nil {
					t.Errorf("Query() error = %v", err)
					return
				}
				m.Connect(s, tex)
				if got, err := m.Resolve(s); err != nil || got != 3 {
					t.Errorf("Resolve() = %d, %v", got, err)
				}
				m.Release(s)
			}
		}()
	}
	wg.Wait()
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}
