// Package stream resolves texture producers to consumers through sockets.
//
// A socket is an integer handle owned by a [Manager]. It is either free
// (issued but unconnected), bound to a device texture, or linked to another
// socket. Consumers hold sockets instead of textures, so a producer can
// change the texture it exposes (a new buffer cell, a new input frame)
// without its consumers noticing: they resolve the chain at read time.
//
// Handles are issued from a monotonically increasing 32-bit counter that
// skips zero. A released handle is not reissued until the counter wraps.
package stream

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ronan-kerviche/glip-lib-sub003/backend"
)

// DefaultCapacity is the number of live sockets a Manager holds when no
// capacity is given.
const DefaultCapacity = 4096

// Socket errors.
var (
	// ErrCyclicConnection is returned by Connect when the new link would
	// close a loop.
	ErrCyclicConnection = errors.New("stream: cyclic connection")

	// ErrUnresolvedSocket is returned when a chain ends on a free socket.
	ErrUnresolvedSocket = errors.New("stream: unresolved socket")

	// ErrDanglingSocket is returned when a chain steps onto a released
	// socket.
	ErrDanglingSocket = errors.New("stream: dangling socket")

	// ErrInvalidSocket is returned for a handle that is not live.
	ErrInvalidSocket = errors.New("stream: invalid socket")

	// ErrCapacity is returned when the socket table is full.
	ErrCapacity = errors.New("stream: socket table full")

	// ErrSocketBound is returned by Connect when the destination is bound to
	// a texture.
	ErrSocketBound = errors.New("stream: socket is bound")
)

// Socket is an opaque socket handle. The zero value is never issued.
type Socket uint32

// NullSocket is the invalid socket.
const NullSocket Socket = 0

// State is the state of a live socket.
type State uint8

const (
	// StateFree is an issued socket without a texture or link.
	StateFree State = iota
	// StateBound resolves directly to a texture.
	StateBound
	// StateLinked resolves through another socket.
	StateLinked
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateBound:
		return "bound"
	case StateLinked:
		return "linked"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}

// SocketError reports a failed operation on a socket.
type SocketError struct {
	Op     string
	Socket Socket
	// Description is the description given when the socket was issued, if
	// it is still live.
	Description string
	Err         error
}

func (e *SocketError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s socket %d: %v", e.Op, e.Socket, e.Err)
	}
	return fmt.Sprintf("%s socket %d (%s): %v", e.Op, e.Socket, e.Description, e.Err)
}

func (e *SocketError) Unwrap() error { return e.Err }

type entry struct {
	state       State
	link        Socket
	texture     backend.TextureID
	description string
}

// Manager is a socket table. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	entries  map[Socket]*entry
	last     Socket
	capacity int
}

// NewManager returns a manager holding at most capacity live sockets. A
// capacity of zero or less selects DefaultCapacity.
func NewManager(capacity int) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		entries:  make(map[Socket]*entry),
		capacity: capacity,
	}
}

// Capacity returns the maximum number of live sockets.
func (m *Manager) Capacity() int { return m.capacity }

// Len returns the number of live sockets.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Query issues a free socket.
func (m *Manager) Query(description string) (Socket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issue(&entry{state: StateFree, description: description})
}

// QueryTexture issues a socket bound to tex.
func (m *Manager) QueryTexture(tex backend.TextureID, description string) (Socket, error) {
	if tex == backend.InvalidID {
		return NullSocket, &SocketError{Op: "query", Description: description, Err: fmt.Errorf("%w: texture", backend.ErrInvalidID)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.issue(&entry{state: StateBound, texture: tex, description: description})
}

func (m *Manager) issue(e *entry) (Socket, error) {
	if len(m.entries) >= m.capacity {
		return NullSocket, &SocketError{Op: "query", Description: e.description, Err: fmt.Errorf("%w: %d sockets", ErrCapacity, m.capacity)}
	}
	for {
		m.last++
		if m.last == NullSocket {
			continue
		}
		if _, taken := m.entries[m.last]; !taken {
			break
		}
	}
	m.entries[m.last] = e
	return m.last, nil
}

func (m *Manager) lookup(op string, s Socket) (*entry, error) {
	e, ok := m.entries[s]
	if !ok {
		return nil, &SocketError{Op: op, Socket: s, Err: ErrInvalidSocket}
	}
	return e, nil
}

// Bind binds s to tex, replacing its link or previous texture.
func (m *Manager) Bind(s Socket, tex backend.TextureID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup("bind", s)
	if err != nil {
		return err
	}
	if tex == backend.InvalidID {
		return &SocketError{Op: "bind", Socket: s, Description: e.description, Err: fmt.Errorf("%w: texture", backend.ErrInvalidID)}
	}
	e.state, e.link, e.texture = StateBound, NullSocket, tex
	return nil
}

// Connect links dst to src: resolving dst then resolves src. A linked dst is
// relinked. Connecting a socket to itself, or to a chain leading back to
// it, fails with ErrCyclicConnection and leaves dst unchanged.
func (m *Manager) Connect(dst, src Socket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, err := m.lookup("connect", dst)
	if err != nil {
		return err
	}
	if _, err := m.lookup("connect", src); err != nil {
		return err
	}
	if d.state == StateBound {
		return &SocketError{Op: "connect", Socket: dst, Description: d.description, Err: ErrSocketBound}
	}

	// Walk from src; the walk is bounded by the table size so that an
	// existing corruption cannot hang it.
	cur := src
	for range len(m.entries) + 1 {
		if cur == dst {
			return &SocketError{
				Op:          "connect",
				Socket:      dst,
				Description: d.description,
				Err:         fmt.Errorf("%w: %d already resolves through it", ErrCyclicConnection, src),
			}
		}
		e, ok := m.entries[cur]
		if !ok || e.state != StateLinked {
			break
		}
		cur = e.link
	}
	d.state, d.link, d.texture = StateLinked, src, backend.InvalidID
	return nil
}

// Disconnect returns s to the free state.
func (m *Manager) Disconnect(s Socket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup("disconnect", s)
	if err != nil {
		return err
	}
	e.state, e.link, e.texture = StateFree, NullSocket, backend.InvalidID
	return nil
}

// Resolve follows the chain from s and returns the texture it ends on.
func (m *Manager) Resolve(s Socket) (backend.TextureID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tex, _, err := m.walk(s)
	return tex, err
}

// Trace returns the chain from s, s first, up to the bound socket. On
// error, the chain walked so far is returned with it.
func (m *Manager) Trace(s Socket) ([]Socket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, chain, err := m.walk(s)
	return chain, err
}

func (m *Manager) walk(s Socket) (backend.TextureID, []Socket, error) {
	var chain []Socket
	cur := s
	for range len(m.entries) + 1 {
		e, ok := m.entries[cur]
		if !ok {
			if cur == s {
				return backend.InvalidID, chain, &SocketError{Op: "resolve", Socket: s, Err: ErrInvalidSocket}
			}
			return backend.InvalidID, chain, m.resolveError(s, fmt.Errorf("%w: %d was released", ErrDanglingSocket, cur))
		}
		chain = append(chain, cur)
		switch e.state {
		case StateBound:
			return e.texture, chain, nil
		case StateFree:
			if cur == s {
				return backend.InvalidID, chain, m.resolveError(s, ErrUnresolvedSocket)
			}
			return backend.InvalidID, chain, m.resolveError(s, fmt.Errorf("%w: chain ends on %d (%s)", ErrUnresolvedSocket, cur, e.description))
		}
		cur = e.link
	}
	return backend.InvalidID, chain, m.resolveError(s, ErrCyclicConnection)
}

func (m *Manager) resolveError(s Socket, err error) error {
	se := &SocketError{Op: "resolve", Socket: s, Err: err}
	if e, ok := m.entries[s]; ok {
		se.Description = e.description
	}
	return se
}

// Release frees s. Sockets still linked to s become dangling and fail at
// their next resolution.
func (m *Manager) Release(s Socket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, err := m.lookup("release", s); err != nil {
		return err
	}
	delete(m.entries, s)
	return nil
}

// State returns the state of a live socket.
func (m *Manager) State(s Socket) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup("state", s)
	if err != nil {
		return StateFree, err
	}
	return e.state, nil
}

// Link returns the socket s is linked to, or NullSocket when s is not
// linked.
func (m *Manager) Link(s Socket) (Socket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup("link", s)
	if err != nil {
		return NullSocket, err
	}
	return e.link, nil
}

// Describe returns the description s was issued with.
func (m *Manager) Describe(s Socket) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, err := m.lookup("describe", s)
	if err != nil {
		return "", err
	}
	return e.description, nil
}

// Unconnected returns the free sockets in handle order.
func (m *Manager) Unconnected() []Socket {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Socket
	for s, e := range m.entries {
		if e.state == StateFree {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return out
}
