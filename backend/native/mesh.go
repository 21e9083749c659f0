package native

import (
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/shader"
)

// mesh is a model uploaded to vertex and index buffers.
type mesh struct {
	model    *geometry.Model
	vertices hal.Buffer
	// indices is nil for models without elements.
	indices hal.Buffer
}

func newMesh(device hal.Device, queue hal.Queue, m *geometry.Model) (*mesh, error) {
	g := &mesh{model: m.Clone()}
	var err error
	g.vertices, err = upload(device, queue, "glip vertices", m.Bytes(), gputypes.BufferUsageVertex)
	if err != nil {
		return nil, err
	}
	if len(m.Elements) > 0 {
		g.indices, err = upload(device, queue, "glip elements", m.ElementBytes(), gputypes.BufferUsageIndex)
		if err != nil {
			g.destroy(device)
			return nil, err
		}
	}
	return g, nil
}

func upload(device hal.Device, queue hal.Queue, label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, err
	}
	if err := queue.WriteBuffer(buf, 0, data); err != nil {
		device.DestroyBuffer(buf)
		return nil, err
	}
	return buf, nil
}

func (g *mesh) destroy(device hal.Device) {
	if g.indices != nil {
		device.DestroyBuffer(g.indices)
		g.indices = nil
	}
	if g.vertices != nil {
		device.DestroyBuffer(g.vertices)
		g.vertices = nil
	}
}

// sameLayout reports whether two models share a vertex layout and topology.
func sameLayout(a, b *geometry.Model) bool {
	return a.Primitive == b.Primitive && a.Dimensions == b.Dimensions && a.HasTexCoords == b.HasTexCoords
}

// vertexLayout describes the interleaved vertices of m: the position at
// shader.PositionLocation and, when present, the texture coordinate at
// shader.TexCoordLocation.
func vertexLayout(m *geometry.Model) gputypes.VertexBufferLayout {
	pos := gputypes.VertexFormatFloat32x2
	if m.Dimensions == 3 {
		pos = gputypes.VertexFormatFloat32x3
	}
	attrs := []gputypes.VertexAttribute{{Format: pos, ShaderLocation: shader.PositionLocation}}
	if m.HasTexCoords {
		attrs = append(attrs, gputypes.VertexAttribute{
			Format:         gputypes.VertexFormatFloat32x2,
			Offset:         uint64(m.Dimensions) * 4,
			ShaderLocation: shader.TexCoordLocation,
		})
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(m.Stride()) * 4,
		StepMode:    gputypes.VertexStepModeVertex,
		Attributes:  attrs,
	}
}
