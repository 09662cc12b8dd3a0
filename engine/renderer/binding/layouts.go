// Package binding owns the bind group layouts and immutable samplers shared
// by every pass. Group numbering is fixed across the shaders: 0 samplers,
// 1 culled objects, 2 materials, 3 surface textures, 4 lights, 5 uniforms.
package binding

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Layouts holds every bind group layout the render routine uses. Layouts are
// created once at routine construction and shared by pipelines, managers,
// and per-frame bind group creation.
type Layouts struct {
	// Samplers is group 0: the immutable sampler set.
	Samplers *wgpu.BindGroupLayout
	// CulledObject is group 1: the per-object shading data produced by culling.
	CulledObject *wgpu.BindGroupLayout
	// Material is group 2: the material parameter array.
	Material *wgpu.BindGroupLayout
	// Texture is group 3: the surface texture atlas.
	Texture *wgpu.BindGroupLayout
	// Light is group 4: the light buffer and shadow atlas.
	Light *wgpu.BindGroupLayout
	// Uniform is group 5: the per-frame camera uniform.
	Uniform *wgpu.BindGroupLayout
	// Skybox binds the background cube for the skybox pass.
	Skybox *wgpu.BindGroupLayout
	// TonemapInput binds the HDR buffer for the tonemap pass.
	TonemapInput *wgpu.BindGroupLayout
	// Cull binds the GPU culling inputs and outputs.
	Cull *wgpu.BindGroupLayout
}

// NewLayouts creates every bind group layout.
//
// Parameters:
//   - device: the device to create layouts on
//
// Returns:
//   - *Layouts: the layout set
//   - error: an error if any layout creation failed
func NewLayouts(device *wgpu.Device) (*Layouts, error) {
	l := &Layouts{}

	create := func(label string, entries []wgpu.BindGroupLayoutEntry) (*wgpu.BindGroupLayout, error) {
		layout, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
			Label:   label,
			Entries: entries,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create %s bind group layout: %w", label, err)
		}
		return layout, nil
	}

	var err error

	samplerEntry := func(binding uint32, t wgpu.SamplerBindingType) wgpu.BindGroupLayoutEntry {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
		}
		entry.Sampler.Type = t
		return entry
	}
	if l.Samplers, err = create("samplers", []wgpu.BindGroupLayoutEntry{
		samplerEntry(0, wgpu.SamplerBindingTypeFiltering),
		samplerEntry(1, wgpu.SamplerBindingTypeFiltering),
		samplerEntry(2, wgpu.SamplerBindingTypeComparison),
	}); err != nil {
		return nil, err
	}

	storageEntry := func(binding uint32, visibility wgpu.ShaderStage, t wgpu.BufferBindingType) wgpu.BindGroupLayoutEntry {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: visibility,
		}
		entry.Buffer.Type = t
		return entry
	}
	if l.CulledObject, err = create("culled-objects", []wgpu.BindGroupLayoutEntry{
		storageEntry(0, wgpu.ShaderStageVertex, wgpu.BufferBindingTypeReadOnlyStorage),
	}); err != nil {
		return nil, err
	}
	if l.Material, err = create("materials", []wgpu.BindGroupLayoutEntry{
		storageEntry(0, wgpu.ShaderStageFragment, wgpu.BufferBindingTypeReadOnlyStorage),
	}); err != nil {
		return nil, err
	}

	textureEntry := func(binding uint32, dimension wgpu.TextureViewDimension, sampleType wgpu.TextureSampleType) wgpu.BindGroupLayoutEntry {
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageFragment,
		}
		entry.Texture.SampleType = sampleType
		entry.Texture.ViewDimension = dimension
		return entry
	}
	if l.Texture, err = create("surface-textures", []wgpu.BindGroupLayoutEntry{
		textureEntry(0, wgpu.TextureViewDimension2DArray, wgpu.TextureSampleTypeFloat),
	}); err != nil {
		return nil, err
	}
	if l.Light, err = create("lights", []wgpu.BindGroupLayoutEntry{
		storageEntry(0, wgpu.ShaderStageFragment, wgpu.BufferBindingTypeReadOnlyStorage),
		textureEntry(1, wgpu.TextureViewDimension2DArray, wgpu.TextureSampleTypeDepth),
	}); err != nil {
		return nil, err
	}
	if l.Uniform, err = create("uniforms", []wgpu.BindGroupLayoutEntry{
		storageEntry(0, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, wgpu.BufferBindingTypeUniform),
	}); err != nil {
		return nil, err
	}
	if l.Skybox, err = create("skybox", []wgpu.BindGroupLayoutEntry{
		textureEntry(0, wgpu.TextureViewDimensionCube, wgpu.TextureSampleTypeFloat),
	}); err != nil {
		return nil, err
	}
	if l.TonemapInput, err = create("tonemap-input", []wgpu.BindGroupLayoutEntry{
		textureEntry(0, wgpu.TextureViewDimension2D, wgpu.TextureSampleTypeFloat),
	}); err != nil {
		return nil, err
	}
	if l.Cull, err = create("cull", []wgpu.BindGroupLayoutEntry{
		storageEntry(0, wgpu.ShaderStageCompute, wgpu.BufferBindingTypeUniform),
		storageEntry(1, wgpu.ShaderStageCompute, wgpu.BufferBindingTypeReadOnlyStorage),
		storageEntry(2, wgpu.ShaderStageCompute, wgpu.BufferBindingTypeStorage),
		storageEntry(3, wgpu.ShaderStageCompute, wgpu.BufferBindingTypeStorage),
	}); err != nil {
		return nil, err
	}

	return l, nil
}

// Release frees every layout.
func (l *Layouts) Release() {
	for _, layout := range []*wgpu.BindGroupLayout{
		l.Samplers, l.CulledObject, l.Material, l.Texture, l.Light,
		l.Uniform, l.Skybox, l.TonemapInput, l.Cull,
	} {
		if layout != nil {
			layout.Release()
		}
	}
}
