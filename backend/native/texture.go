package native

import (
	"fmt"
	"unsafe"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/ronan-kerviche/glip-lib-sub003/format"
)

// copyRowAlignment is the required alignment of BytesPerRow in
// texture-to-buffer copies.
const copyRowAlignment = 256

const textureUsage = gputypes.TextureUsageCopySrc | gputypes.TextureUsageCopyDst |
	gputypes.TextureUsageTextureBinding | gputypes.TextureUsageRenderAttachment

// texture is a HAL texture with its sampled view and its render target view.
// The target view covers the base level only.
type texture struct {
	desc   format.Descriptor
	tex    hal.Texture
	view   hal.TextureView
	target hal.TextureView

	// usage is the last usage the texture was transitioned to.
	usage gputypes.TextureUsage
}

func newTexture(device hal.Device, desc format.Descriptor) (*texture, error) {
	levels := desc.MipLevelCount()
	tex, err := device.CreateTexture(&hal.TextureDescriptor{
		Label: desc.String(),
		Size: hal.Extent3D{
			Width:              uint32(desc.Width),
			Height:             uint32(desc.Height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: levels,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        desc.TextureFormat(),
		Usage:         textureUsage,
	})
	if err != nil {
		return nil, err
	}
	t := &texture{desc: desc, tex: tex}

	base := uint32(desc.BaseLevel)
	t.view, err = device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.String() + " view",
		Format:        desc.TextureFormat(),
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		BaseMipLevel:  base,
		MipLevelCount: levels - base,
	})
	if err != nil {
		t.destroy(device)
		return nil, err
	}
	t.target, err = device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         desc.String() + " target",
		Format:        desc.TextureFormat(),
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		t.destroy(device)
		return nil, err
	}
	return t, nil
}

func (t *texture) destroy(device hal.Device) {
	if t.target != nil {
		device.DestroyTextureView(t.target)
		t.target = nil
	}
	if t.view != nil {
		device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

// write uploads tightly packed rows to the base level.
func (t *texture) write(queue hal.Queue, data []byte) error {
	err := queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		data,
		&hal.ImageDataLayout{BytesPerRow: uint32(t.desc.RowSize()), RowsPerImage: uint32(t.desc.Height)},
		&hal.Extent3D{Width: uint32(t.desc.Width), Height: uint32(t.desc.Height), DepthOrArrayLayers: 1},
	)
	if err != nil {
		return fmt.Errorf("native: write %s: %w", t.desc, err)
	}
	t.usage = gputypes.TextureUsageCopyDst
	return nil
}

// barrier returns the transition of t to usage and records it.
func (t *texture) barrier(usage gputypes.TextureUsage) hal.TextureBarrier {
	b := hal.TextureBarrier{
		Texture: t.tex,
		Usage:   hal.TextureUsageTransition{OldUsage: t.usage, NewUsage: usage},
	}
	t.usage = usage
	return b
}

// alignedRowSize returns the row pitch of a staging buffer.
func alignedRowSize(row int) uint32 {
	return (uint32(row) + copyRowAlignment - 1) &^ (copyRowAlignment - 1)
}

// readback copies the base level of t into a mappable staging buffer, waits
// for the copy and strips the row padding.
func (d *Device) readback(t *texture) ([]byte, error) {
	row := t.desc.RowSize()
	pitch := alignedRowSize(row)
	size := uint64(pitch) * uint64(t.desc.Height)

	staging, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "glip readback",
		Size:  size,
		Usage: gputypes.BufferUsageMapRead | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: staging buffer: %w", ErrReadback, err)
	}
	defer d.device.DestroyBuffer(staging)

	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "glip readback"})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadback, err)
	}
	if err := encoder.BeginEncoding("glip readback"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadback, err)
	}
	encoder.TransitionTextures([]hal.TextureBarrier{t.barrier(gputypes.TextureUsageCopySrc)})
	encoder.CopyTextureToBuffer(t.tex, staging, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{BytesPerRow: pitch, RowsPerImage: uint32(t.desc.Height)},
		TextureBase:  hal.ImageCopyTexture{Texture: t.tex, Aspect: gputypes.TextureAspectAll},
		Size:         hal.Extent3D{Width: uint32(t.desc.Width), Height: uint32(t.desc.Height), DepthOrArrayLayers: 1},
	}})
	cmd, err := encoder.EndEncoding()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadback, err)
	}
	defer d.device.FreeCommandBuffer(cmd)

	if err := d.submit(cmd); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrReadback, err)
	}

	mapping, err := d.device.MapBuffer(staging, 0, size)
	if err != nil {
		return nil, fmt.Errorf("%w: map: %w", ErrReadback, err)
	}
	src := unsafe.Slice((*byte)(mapping.Ptr), size)
	out := make([]byte, row*t.desc.Height)
	for y := range t.desc.Height {
		off := int(pitch) * y
		copy(out[y*row:(y+1)*row], src[off:off+row])
	}
	if err := d.device.UnmapBuffer(staging); err != nil {
		return nil, fmt.Errorf("%w: unmap: %w", ErrReadback, err)
	}
	return out, nil
}

// submit submits one command buffer and waits until the GPU is idle.
func (d *Device) submit(cmd hal.CommandBuffer) error {
	if _, err := d.queue.Submit([]hal.CommandBuffer{cmd}); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	if err := d.device.WaitIdle(); err != nil {
		return fmt.Errorf("wait: %w", err)
	}
	return nil
}

// depthKey identifies a depth attachment by size.
type depthKey struct{ width, height int }

// depthTarget is a Depth32Float attachment shared by draws of the same size.
type depthTarget struct {
	tex  hal.Texture
	view hal.TextureView
}

func (t *depthTarget) destroy(device hal.Device) {
	device.DestroyTextureView(t.view)
	device.DestroyTexture(t.tex)
}

func (d *Device) depthTarget(width, height int) (*depthTarget, error) {
	return d.depths.GetOrCreate(depthKey{width, height}, func() (*depthTarget, error) {
		tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
			Label:         fmt.Sprintf("glip depth %dx%d", width, height),
			Size:          hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     gputypes.TextureDimension2D,
			Format:        gputypes.TextureFormatDepth32Float,
			Usage:         gputypes.TextureUsageRenderAttachment,
		})
		if err != nil {
			return nil, err
		}
		view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
			Format:        gputypes.TextureFormatDepth32Float,
			Dimension:     gputypes.TextureViewDimension2D,
			Aspect:        gputypes.TextureAspectAll,
			MipLevelCount: 1,
		})
		if err != nil {
			d.device.DestroyTexture(tex)
			return nil, err
		}
		return &depthTarget{tex: tex, view: view}, nil
	})
}
