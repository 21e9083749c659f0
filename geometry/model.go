// Package geometry provides the vertex models a filter draws and a cache
// that shares identical models between filters.
//
// Vertices are interleaved float32 values: the position (2 or 3 components)
// followed, when present, by a 2D texture coordinate. Positions are in
// normalized device coordinates, texture coordinates have their origin at
// the top-left texel.
package geometry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"slices"

	"github.com/gogpu/gputypes"
)

// ErrInvalidModel is returned for a model whose vertex data is inconsistent.
var ErrInvalidModel = errors.New("geometry: invalid model")

// Primitive is the topology used to assemble vertices.
type Primitive uint8

const (
	// Triangles assembles each group of three vertices into a triangle.
	Triangles Primitive = iota
	// Points draws one point per vertex.
	Points
	// Lines assembles each pair of vertices into a segment.
	Lines
)

// String returns the primitive name.
func (p Primitive) String() string {
	switch p {
	case Triangles:
		return "Triangles"
	case Points:
		return "Points"
	case Lines:
		return "Lines"
	default:
		return fmt.Sprintf("Primitive(%d)", uint8(p))
	}
}

// Topology returns the GPU primitive topology.
func (p Primitive) Topology() gputypes.PrimitiveTopology {
	switch p {
	case Points:
		return gputypes.PrimitiveTopologyPointList
	case Lines:
		return gputypes.PrimitiveTopologyLineList
	default:
		return gputypes.PrimitiveTopologyTriangleList
	}
}

// Model is a vertex model. Models are treated as immutable once handed to a
// filter or a cache.
type Model struct {
	Primitive    Primitive
	Dimensions   int
	HasTexCoords bool
	Vertices     []float32
	// Elements optionally indexes Vertices.
	Elements []uint32

	standard bool
}

// NewCustomModel validates and returns a model over a copy of the given data.
func NewCustomModel(p Primitive, dimensions int, hasTexCoords bool, vertices []float32, elements []uint32) (*Model, error) {
	m := &Model{
		Primitive:    p,
		Dimensions:   dimensions,
		HasTexCoords: hasTexCoords,
		Vertices:     slices.Clone(vertices),
		Elements:     slices.Clone(elements),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// StandardQuad returns the full-screen quad: two triangles covering
// [-1, 1]² with texture coordinates spanning [0, 1]².
func StandardQuad() *Model {
	return &Model{
		Primitive:    Triangles,
		Dimensions:   2,
		HasTexCoords: true,
		Vertices: []float32{
			-1, 1, 0, 0,
			1, 1, 1, 0,
			-1, -1, 0, 1,
			1, -1, 1, 1,
		},
		Elements: []uint32{0, 1, 2, 2, 1, 3},
		standard: true,
	}
}

// PointsGrid2D returns one point per texel of a width x height grid, placed
// at the texel centre, with its texture coordinate.
func PointsGrid2D(width, height int) (*Model, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%d", ErrInvalidModel, width, height)
	}
	v := make([]float32, 0, width*height*4)
	for y := range height {
		for x := range width {
			u := (float32(x) + 0.5) / float32(width)
			t := (float32(y) + 0.5) / float32(height)
			v = append(v, 2*u-1, 1-2*t, u, t)
		}
	}
	return &Model{Primitive: Points, Dimensions: 2, HasTexCoords: true, Vertices: v}, nil
}

// PointsGrid3D returns one point per cell of a width x height x depth grid
// with positions in [0, 1]³ at cell centres and no texture coordinates.
func PointsGrid3D(width, height, depth int) (*Model, error) {
	if width <= 0 || height <= 0 || depth <= 0 {
		return nil, fmt.Errorf("%w: grid %dx%dx%d", ErrInvalidModel, width, height, depth)
	}
	v := make([]float32, 0, width*height*depth*3)
	for z := range depth {
		for y := range height {
			for x := range width {
				v = append(v,
					(float32(x)+0.5)/float32(width),
					(float32(y)+0.5)/float32(height),
					(float32(z)+0.5)/float32(depth))
			}
		}
	}
	return &Model{Primitive: Points, Dimensions: 3, Vertices: v}, nil
}

// IsStandard reports whether m was created by StandardQuad.
func (m *Model) IsStandard() bool { return m.standard }

// Stride returns the number of floats per vertex.
func (m *Model) Stride() int {
	if m.HasTexCoords {
		return m.Dimensions + 2
	}
	return m.Dimensions
}

// VertexCount returns the number of vertices.
func (m *Model) VertexCount() int {
	if s := m.Stride(); s > 0 {
		return len(m.Vertices) / s
	}
	return 0
}

// DrawCount returns the number of vertices or elements a draw call submits.
func (m *Model) DrawCount() int {
	if len(m.Elements) > 0 {
		return len(m.Elements)
	}
	return m.VertexCount()
}

// Validate checks the dimensions, the vertex data length and the elements.
func (m *Model) Validate() error {
	if m.Dimensions != 2 && m.Dimensions != 3 {
		return fmt.Errorf("%w: %d dimensions", ErrInvalidModel, m.Dimensions)
	}
	if m.Primitive > Lines {
		return fmt.Errorf("%w: %s", ErrInvalidModel, m.Primitive)
	}
	if len(m.Vertices) == 0 || len(m.Vertices)%m.Stride() != 0 {
		return fmt.Errorf("%w: %d floats for stride %d", ErrInvalidModel, len(m.Vertices), m.Stride())
	}
	n := uint32(m.VertexCount())
	for i, e := range m.Elements {
		if e >= n {
			return fmt.Errorf("%w: element %d references vertex %d of %d", ErrInvalidModel, i, e, n)
		}
	}
	return nil
}

// Equal reports whether two models describe the same geometry.
func (m *Model) Equal(o *Model) bool {
	if m == o {
		return true
	}
	if m == nil || o == nil {
		return false
	}
	return m.Primitive == o.Primitive && m.Dimensions == o.Dimensions &&
		m.HasTexCoords == o.HasTexCoords &&
		slices.Equal(m.Vertices, o.Vertices) && slices.Equal(m.Elements, o.Elements)
}

// Hash returns a 64-bit FNV-1a digest of the model contents.
func (m *Model) Hash() uint64 {
	h := fnv.New64a()
	var buf [4]byte
	_, _ = h.Write([]byte{byte(m.Primitive), byte(m.Dimensions), boolByte(m.HasTexCoords)})
	for _, v := range m.Vertices {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		_, _ = h.Write(buf[:])
	}
	_, _ = h.Write([]byte{0xff})
	for _, e := range m.Elements {
		binary.LittleEndian.PutUint32(buf[:], e)
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

// Clone returns a deep copy of m.
func (m *Model) Clone() *Model {
	c := *m
	c.Vertices = slices.Clone(m.Vertices)
	c.Elements = slices.Clone(m.Elements)
	return &c
}

// Bytes returns the vertex data as little-endian bytes.
func (m *Model) Bytes() []byte {
	out := make([]byte, len(m.Vertices)*4)
	for i, v := range m.Vertices {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// ElementBytes returns the element data as little-endian bytes.
func (m *Model) ElementBytes() []byte {
	out := make([]byte, len(m.Elements)*4)
	for i, e := range m.Elements {
		binary.LittleEndian.PutUint32(out[i*4:], e)
	}
	return out
}

// String returns a short description such as "Triangles[4 vertices]".
func (m *Model) String() string {
	return fmt.Sprintf("%s[%d vertices]", m.Primitive, m.VertexCount())
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
