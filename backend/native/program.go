package native

import (
	"errors"
	"fmt"
	"slices"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	glip "github.com/ronan-kerviche/glip-lib-sub003"
	"github.com/ronan-kerviche/glip-lib-sub003/backend"
	"github.com/ronan-kerviche/glip-lib-sub003/format"
	"github.com/ronan-kerviche/glip-lib-sub003/geometry"
	"github.com/ronan-kerviche/glip-lib-sub003/shader"
)

// program is a linked ProgramDescriptor. Its render pipeline depends on
// which inputs can be filtered, so pipelines are built per variant.
type program struct {
	label  string
	target format.Descriptor
	model  *geometry.Model
	blend  *gputypes.BlendState
	depth  gputypes.CompareFunction

	vertex        hal.ShaderModule
	fragment      hal.ShaderModule
	vertexEntry   string
	fragmentEntry string

	textures []textureSlot
	samplers []samplerSlot
	blocks   []*uniformBlock

	// outputs maps each color target, in location order, to its slot in
	// DrawPass.Outputs.
	outputs []int
	nInputs int
	groups  uint32

	variants map[uint32]*variant
}

// textureSlot binds a shader texture to a DrawPass input slot.
type textureSlot struct {
	binding shader.Binding
	input   int
}

// samplerSlot is a shader sampler and the textures it is paired with, as
// indices into program.textures.
type samplerSlot struct {
	binding  shader.Binding
	textures []int
}

// variant is the pipeline built for one filterability mask: bit i is set
// when textures[i] holds a format that cannot be filtered.
type variant struct {
	groups   []hal.BindGroupLayout
	layout   hal.PipelineLayout
	pipeline hal.RenderPipeline
}

func (d *Device) link(desc *backend.ProgramDescriptor) (*program, error) {
	if desc == nil || desc.Fragment == nil {
		return nil, errors.New("missing fragment stage")
	}
	vs := desc.Vertex
	if vs == nil {
		vs = shader.StandardVertex()
	}
	model := desc.Model
	if model == nil {
		model = geometry.StandardQuad()
	}
	if err := desc.Target.Validate(); err != nil {
		return nil, err
	}
	if len(desc.Outputs) == 0 {
		return nil, errors.New("no output")
	}
	if len(desc.Outputs) > int(d.limits.MaxColorAttachments) {
		return nil, fmt.Errorf("%d outputs exceed %d color attachments", len(desc.Outputs), d.limits.MaxColorAttachments)
	}
	if len(desc.Inputs) > int(d.limits.MaxSampledTexturesPerShaderStage) {
		return nil, fmt.Errorf("%d inputs exceed %d sampled textures", len(desc.Inputs), d.limits.MaxSampledTexturesPerShaderStage)
	}
	if desc.Blend != nil && desc.Target.Element.IsInteger() {
		return nil, fmt.Errorf("blending is not available for %s targets", desc.Target.Element)
	}

	vep, ok := vs.EntryPoint(shader.StageVertex)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no vertex entry point", shader.ErrIntrospection, vs.Label())
	}
	fep, ok := desc.Fragment.EntryPoint(shader.StageFragment)
	if !ok {
		return nil, fmt.Errorf("%w: %s has no fragment entry point", shader.ErrIntrospection, desc.Fragment.Label())
	}
	if vs.IsStandardVertex() && (!model.HasTexCoords || model.Dimensions != 2) {
		return nil, fmt.Errorf("geometry %s does not match the standard vertex stage", model)
	}
	// IR validation issues are logged. Compile failures come from the HAL.
	for _, src := range []*shader.Source{vs, desc.Fragment} {
		if errs := src.Validate(); errs != nil {
			glip.Logger().Warn("native: shader validation", "source", src.Label(), "err", errors.Join(errs...))
		}
	}

	p := &program{
		label:         desc.Label,
		target:        desc.Target,
		model:         model.Clone(),
		blend:         desc.Blend,
		depth:         desc.DepthCompare,
		vertexEntry:   vep.Name,
		fragmentEntry: fep.Name,
		nInputs:       len(desc.Inputs),
		variants:      make(map[uint32]*variant),
	}

	textures := desc.Fragment.Textures()
	for _, t := range textures {
		slot := slices.Index(desc.Inputs, t.Name)
		if slot < 0 {
			return nil, fmt.Errorf("texture %q is not bound to an input", t.Name)
		}
		p.textures = append(p.textures, textureSlot{binding: t, input: slot})
	}
	for _, s := range desc.Fragment.Samplers() {
		slot := samplerSlot{binding: s}
		for i, t := range textures {
			if paired, ok := desc.Fragment.SamplerFor(t.Name); ok && paired.Name == s.Name {
				slot.textures = append(slot.textures, i)
			}
		}
		p.samplers = append(p.samplers, slot)
	}

	outputs := desc.Fragment.Outputs()
	p.outputs = make([]int, len(outputs))
	for i, o := range outputs {
		slot := slices.Index(desc.Outputs, o.Name)
		if slot < 0 {
			return nil, fmt.Errorf("fragment output %q is not bound", o.Name)
		}
		if int(o.Location) != i {
			return nil, fmt.Errorf("fragment output %q at location %d leaves a gap", o.Name, o.Location)
		}
		p.outputs[i] = slot
	}
	for _, name := range desc.Outputs {
		if !slices.ContainsFunc(outputs, func(o shader.Output) bool { return o.Name == name }) {
			return nil, fmt.Errorf("fragment stage has no output %q", name)
		}
	}

	uniforms := desc.Fragment.Uniforms()
	if vs != desc.Fragment {
		uniforms = append(uniforms, vs.Uniforms()...)
	}
	p.blocks = groupBlocks(uniforms)
	p.groups = p.groupCount()
	if p.groups > d.limits.MaxBindGroups {
		return nil, fmt.Errorf("%d bind groups exceed %d", p.groups, d.limits.MaxBindGroups)
	}

	var err error
	if p.fragment, err = d.createModule(desc.Fragment); err != nil {
		p.destroy(d.device)
		return nil, err
	}
	if vs == desc.Fragment {
		p.vertex = p.fragment
	} else if p.vertex, err = d.createModule(vs); err != nil {
		p.destroy(d.device)
		return nil, err
	}
	for _, b := range p.blocks {
		if err := b.allocate(d.device); err != nil {
			p.destroy(d.device)
			return nil, err
		}
	}

	// Inputs are assumed to share the target format until a draw says
	// otherwise.
	var mask uint32
	if !desc.Target.Filterable() {
		mask = 1<<len(p.textures) - 1
	}
	if _, err := p.variant(d.device, mask); err != nil {
		p.destroy(d.device)
		return nil, err
	}
	return p, nil
}

func (d *Device) createModule(src *shader.Source) (hal.ShaderModule, error) {
	m, err := d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  src.Label(),
		Source: hal.ShaderSource{WGSL: src.Code()},
	})
	if err != nil {
		return nil, fmt.Errorf("shader module %s: %w", src.Label(), err)
	}
	return m, nil
}

func (p *program) groupCount() uint32 {
	var n uint32
	for _, t := range p.textures {
		n = max(n, t.binding.Group+1)
	}
	for _, s := range p.samplers {
		n = max(n, s.binding.Group+1)
	}
	for _, b := range p.blocks {
		n = max(n, b.group+1)
	}
	return n
}

// unfilterable reports whether the mask marks texture i.
func unfilterable(mask uint32, i int) bool {
	return mask&(1<<i) != 0
}

// layoutEntries returns the bind group layout entries of group g.
func (p *program) layoutEntries(g uint32, mask uint32) []gputypes.BindGroupLayoutEntry {
	var entries []gputypes.BindGroupLayoutEntry
	for i, t := range p.textures {
		if t.binding.Group != g {
			continue
		}
		sampleType := t.binding.SampleType
		if sampleType == gputypes.TextureSampleTypeFloat && unfilterable(mask, i) {
			sampleType = gputypes.TextureSampleTypeUnfilterableFloat
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    t.binding.Binding,
			Visibility: gputypes.ShaderStagesVertexFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    sampleType,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	for _, s := range p.samplers {
		if s.binding.Group != g {
			continue
		}
		kind := gputypes.SamplerBindingTypeFiltering
		switch {
		case s.binding.Comparison:
			kind = gputypes.SamplerBindingTypeComparison
		case slices.ContainsFunc(s.textures, func(i int) bool {
			return unfilterable(mask, i) || p.textures[i].binding.SampleType != gputypes.TextureSampleTypeFloat
		}):
			kind = gputypes.SamplerBindingTypeNonFiltering
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    s.binding.Binding,
			Visibility: gputypes.ShaderStagesVertexFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: kind},
		})
	}
	for _, b := range p.blocks {
		if b.group != g {
			continue
		}
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    b.binding,
			Visibility: gputypes.ShaderStagesVertexFragment,
			Buffer: &gputypes.BufferBindingLayout{
				Type:           gputypes.BufferBindingTypeUniform,
				MinBindingSize: uint64(b.size),
			},
		})
	}
	return entries
}

// variant returns the pipeline for mask, building it on first use.
func (p *program) variant(device hal.Device, mask uint32) (*variant, error) {
	if v, ok := p.variants[mask]; ok {
		return v, nil
	}
	v := &variant{}
	for g := range p.groups {
		layout, err := device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
			Label:   fmt.Sprintf("%s group %d", p.label, g),
			Entries: p.layoutEntries(g, mask),
		})
		if err != nil {
			v.destroy(device)
			return nil, fmt.Errorf("bind group layout %d: %w", g, err)
		}
		v.groups = append(v.groups, layout)
	}
	var err error
	v.layout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            p.label,
		BindGroupLayouts: v.groups,
	})
	if err != nil {
		v.destroy(device)
		return nil, fmt.Errorf("pipeline layout: %w", err)
	}
	v.pipeline, err = device.CreateRenderPipeline(p.pipelineDescriptor(v.layout))
	if err != nil {
		v.destroy(device)
		return nil, fmt.Errorf("render pipeline: %w", err)
	}
	p.variants[mask] = v
	return v, nil
}

func (p *program) pipelineDescriptor(layout hal.PipelineLayout) *hal.RenderPipelineDescriptor {
	targets := make([]gputypes.ColorTargetState, len(p.outputs))
	for i := range targets {
		targets[i] = gputypes.ColorTargetState{
			Format:    p.target.TextureFormat(),
			Blend:     p.blend,
			WriteMask: gputypes.ColorWriteMaskAll,
		}
	}
	desc := &hal.RenderPipelineDescriptor{
		Label:  p.label,
		Layout: layout,
		Vertex: hal.VertexState{
			Module:     p.vertex,
			EntryPoint: p.vertexEntry,
			Buffers:    []gputypes.VertexBufferLayout{vertexLayout(p.model)},
		},
		Primitive: gputypes.PrimitiveState{
			Topology:  p.model.Primitive.Topology(),
			FrontFace: gputypes.FrontFaceCCW,
			CullMode:  gputypes.CullModeNone,
		},
		Multisample: gputypes.DefaultMultisampleState(),
		Fragment: &hal.FragmentState{
			Module:     p.fragment,
			EntryPoint: p.fragmentEntry,
			Targets:    targets,
		},
	}
	if p.depth != gputypes.CompareFunctionUndefined {
		keep := hal.StencilFaceState{Compare: gputypes.CompareFunctionAlways}
		desc.DepthStencil = &hal.DepthStencilState{
			Format:            gputypes.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      p.depth,
			StencilFront:      keep,
			StencilBack:       keep,
		}
	}
	return desc
}

func (v *variant) destroy(device hal.Device) {
	if v.pipeline != nil {
		device.DestroyRenderPipeline(v.pipeline)
	}
	if v.layout != nil {
		device.DestroyPipelineLayout(v.layout)
	}
	for _, g := range v.groups {
		device.DestroyBindGroupLayout(g)
	}
	*v = variant{}
}

func (p *program) destroy(device hal.Device) {
	for mask, v := range p.variants {
		v.destroy(device)
		delete(p.variants, mask)
	}
	for _, b := range p.blocks {
		b.release(device)
	}
	if p.vertex != nil && p.vertex != p.fragment {
		device.DestroyShaderModule(p.vertex)
	}
	if p.fragment != nil {
		device.DestroyShaderModule(p.fragment)
	}
	p.vertex, p.fragment = nil, nil
}
