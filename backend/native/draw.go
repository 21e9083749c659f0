package native

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
)

// Draw records one render pass into the pass outputs, submits it and waits
// for the GPU.
func (d *Device) Draw(pass *backend.DrawPass) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return backend.ErrClosed
	}

	p, ok := d.programs[pass.Program]
	if !ok {
		return fmt.Errorf("%w: program %d", backend.ErrInvalidID, pass.Program)
	}
	g, ok := d.geometries[pass.Geometry]
	if !ok {
		return fmt.Errorf("%w: geometry %d", backend.ErrInvalidID, pass.Geometry)
	}
	if !sameLayout(g.model, p.model) {
		return fmt.Errorf("%w: program %q is linked for %s, got %s",
			backend.ErrSizeMismatch, p.label, p.model, g.model)
	}
	if len(pass.Inputs) != p.nInputs || len(pass.Outputs) != len(p.outputs) {
		return fmt.Errorf("%w: program %q takes %d inputs and %d outputs, got %d and %d",
			backend.ErrSizeMismatch, p.label, p.nInputs, len(p.outputs), len(pass.Inputs), len(pass.Outputs))
	}

	outputs := make([]*texture, len(p.outputs))
	for i, slot := range p.outputs {
		t, err := d.texture(pass.Outputs[slot])
		if err != nil {
			return err
		}
		if !t.desc.IsCompatibleWith(p.target) {
			return fmt.Errorf("%w: output %d is %s, program %q renders %s",
				backend.ErrSizeMismatch, slot, t.desc, p.label, p.target)
		}
		outputs[i] = t
	}
	inputs := make([]*texture, len(p.textures))
	var mask uint32
	for i, ts := range p.textures {
		t, err := d.texture(pass.Inputs[ts.input])
		if err != nil {
			return err
		}
		for _, o := range outputs {
			if o == t {
				return fmt.Errorf("%w: program %q, input %d", backend.ErrTextureAliasing, p.label, ts.input)
			}
		}
		if !t.desc.Filterable() {
			mask |= 1 << i
		}
		inputs[i] = t
	}

	v, err := p.variant(d.device, mask)
	if err != nil {
		return fmt.Errorf("%w: program %q: %w", backend.ErrResourceAllocation, p.label, err)
	}
	for _, b := range p.blocks {
		if err := b.update(d.queue, pass.Uniforms); err != nil {
			return fmt.Errorf("program %q: uniforms %s: %w", p.label, b.name, err)
		}
	}
	groups, err := d.bindGroups(p, v, inputs, mask)
	defer func() {
		for _, bg := range groups {
			d.device.DestroyBindGroup(bg)
		}
	}()
	if err != nil {
		return fmt.Errorf("program %q: %w", p.label, err)
	}

	if err := d.encodePass(p, v, g, groups, inputs, outputs, pass.Clear); err != nil {
		return fmt.Errorf("program %q: %w", p.label, err)
	}
	glip.Logger().Debug("native: draw", "program", p.label, "size", p.target.String())
	return nil
}

// bindGroups creates one transient bind group per layout of v.
func (d *Device) bindGroups(p *program, v *variant, inputs []*texture, mask uint32) ([]hal.BindGroup, error) {
	entries := make([][]gputypes.BindGroupEntry, len(v.groups))
	for i, ts := range p.textures {
		entries[ts.binding.Group] = append(entries[ts.binding.Group], gputypes.BindGroupEntry{
			Binding:  ts.binding.Binding,
			Resource: gputypes.TextureViewBinding{TextureView: inputs[i].view.NativeHandle()},
		})
	}
	for _, ss := range p.samplers {
		key := defaultSampler
		if len(ss.textures) > 0 {
			filterable := true
			for _, i := range ss.textures {
				if unfilterable(mask, i) || p.textures[i].binding.SampleType != gputypes.TextureSampleTypeFloat {
					filterable = false
				}
			}
			key = samplerKeyOf(inputs[ss.textures[0]].desc, filterable)
		}
		key.compare = ss.binding.Comparison
		s, err := d.sampler(key)
		if err != nil {
			return nil, fmt.Errorf("sampler %s: %w", ss.binding.Name, err)
		}
		entries[ss.binding.Group] = append(entries[ss.binding.Group], gputypes.BindGroupEntry{
			Binding:  ss.binding.Binding,
			Resource: gputypes.SamplerBinding{Sampler: s.NativeHandle()},
		})
	}
	for _, b := range p.blocks {
		entries[b.group] = append(entries[b.group], gputypes.BindGroupEntry{
			Binding:  b.binding,
			Resource: gputypes.BufferBinding{Buffer: b.buffer.NativeHandle(), Size: uint64(b.size)},
		})
	}

	groups := make([]hal.BindGroup, 0, len(v.groups))
	for i, layout := range v.groups {
		bg, err := d.device.CreateBindGroup(&hal.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.label, i),
			Layout:  layout,
			Entries: entries[i],
		})
		if err != nil {
			return groups, fmt.Errorf("bind group %d: %w", i, err)
		}
		groups = append(groups, bg)
	}
	return groups, nil
}

func (d *Device) encodePass(p *program, v *variant, g *mesh, groups []hal.BindGroup, inputs, outputs []*texture, clearOutputs bool) error {
	encoder, err := d.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: p.label})
	if err != nil {
		return err
	}
	if err := encoder.BeginEncoding(p.label); err != nil {
		return err
	}

	barriers := make([]hal.TextureBarrier, 0, len(inputs)+len(outputs))
	for _, t := range inputs {
		if t.usage != gputypes.TextureUsageTextureBinding {
			barriers = append(barriers, t.barrier(gputypes.TextureUsageTextureBinding))
		}
	}
	for _, t := range outputs {
		if t.usage != gputypes.TextureUsageRenderAttachment {
			barriers = append(barriers, t.barrier(gputypes.TextureUsageRenderAttachment))
		}
	}
	if len(barriers) > 0 {
		encoder.TransitionTextures(barriers)
	}

	load := gputypes.LoadOpLoad
	if clearOutputs {
		load = gputypes.LoadOpClear
	}
	attachments := make([]hal.RenderPassColorAttachment, len(outputs))
	for i, t := range outputs {
		attachments[i] = hal.RenderPassColorAttachment{
			View:    t.target,
			LoadOp:  load,
			StoreOp: gputypes.StoreOpStore,
		}
	}
	desc := &hal.RenderPassDescriptor{Label: p.label, ColorAttachments: attachments}
	if p.depth != gputypes.CompareFunctionUndefined {
		depth, err := d.depthTarget(p.target.Width, p.target.Height)
		if err != nil {
			encoder.DiscardEncoding()
			return fmt.Errorf("depth attachment: %w", err)
		}
		desc.DepthStencilAttachment = &hal.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     gputypes.LoadOpClear,
			DepthStoreOp:    gputypes.StoreOpDiscard,
			DepthClearValue: 1,
		}
	}

	rp := encoder.BeginRenderPass(desc)
	rp.SetPipeline(v.pipeline)
	for i, bg := range groups {
		rp.SetBindGroup(uint32(i), bg, nil)
	}
	rp.SetViewport(0, 0, float32(p.target.Width), float32(p.target.Height), 0, 1)
	rp.SetVertexBuffer(0, g.vertices, 0)
	if g.indices != nil {
		rp.SetIndexBuffer(g.indices, gputypes.IndexFormatUint32, 0)
		rp.DrawIndexed(uint32(len(g.model.Elements)), 1, 0, 0, 0)
	} else {
		rp.Draw(uint32(g.model.VertexCount()), 1, 0, 0)
	}
	rp.End()

	cmd, err := encoder.EndEncoding()
	if err != nil {
		return err
	}
	defer d.device.FreeCommandBuffer(cmd)
	return d.submit(cmd)
}
