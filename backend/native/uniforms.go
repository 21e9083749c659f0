package native

import (
	"encoding/binary"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/ronan-kerviche/glip-lib-sub003/shader"
)

// uniformBlock is one var<uniform> variable and the buffer backing it.
type uniformBlock struct {
	name     string
	group    uint32
	binding  uint32
	size     uint32
	uniforms []shader.Uniform

	buffer hal.Buffer
	data   []byte
}

// groupBlocks collects uniforms into blocks, in order of first appearance.
// A uniform listed twice is kept once.
func groupBlocks(uniforms []shader.Uniform) []*uniformBlock {
	var blocks []*uniformBlock
	index := make(map[[2]uint32]*uniformBlock)
	seen := make(map[[2]string]bool)
	for _, u := range uniforms {
		if seen[[2]string{u.Block, u.Name}] {
			continue
		}
		seen[[2]string{u.Block, u.Name}] = true

		key := [2]uint32{u.Group, u.Binding}
		b, ok := index[key]
		if !ok {
			b = &uniformBlock{name: u.Block, group: u.Group, binding: u.Binding, size: u.BlockSize}
			index[key] = b
			blocks = append(blocks, b)
		}
		b.size = max(b.size, u.BlockSize)
		b.uniforms = append(b.uniforms, u)
	}
	return blocks
}

func (b *uniformBlock) allocate(device hal.Device) error {
	buf, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: b.name,
		Size:  uint64(b.size),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return err
	}
	b.buffer = buf
	b.data = make([]byte, b.size)
	return nil
}

func (b *uniformBlock) release(device hal.Device) {
	if b.buffer != nil {
		device.DestroyBuffer(b.buffer)
		b.buffer = nil
	}
}

// update packs values into the block and uploads it. Uniforms without a
// value are zero.
func (b *uniformBlock) update(queue hal.Queue, values map[string][]float32) error {
	clear(b.data)
	for _, u := range b.uniforms {
		packUniform(b.data, u, values[u.Name])
	}
	return queue.WriteBuffer(b.buffer, 0, b.data)
}

// packUniform writes v into dst with the std140-like layout WGSL uses for
// uniform buffers: matrix columns are ColumnStride bytes apart. Extra values
// are ignored and missing ones left untouched.
func packUniform(dst []byte, u shader.Uniform, v []float32) {
	for c := range u.Columns {
		for r := range u.Rows {
			i := c*u.Rows + r
			if i >= len(v) {
				return
			}
			off := u.Offset + uint32(c)*u.ColumnStride + uint32(r)*4
			if int(off)+4 > len(dst) {
				return
			}
			binary.LittleEndian.PutUint32(dst[off:], uniformBits(u.Kind, v[i]))
		}
	}
}

func uniformBits(kind shader.ScalarKind, v float32) uint32 {
	switch kind {
	case shader.KindSint:
		return uint32(int32(math.Round(float64(v))))
	case shader.KindUint:
		if v <= 0 {
			return 0
		}
		return uint32(math.Round(float64(v)))
	default:
		return math.Float32bits(v)
	}
}
