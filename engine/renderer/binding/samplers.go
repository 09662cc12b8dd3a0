package binding

import (
	"fmt"

	"github.com/ember-gfx/ember-go/engine/renderer/encode"

	"github.com/cogentcore/webgpu/wgpu"
)

// Samplers holds the immutable sampler set bound at group 0 of every
// shading pass: linear filtering, nearest filtering, and the shadow
// comparison sampler.
type Samplers struct {
	// Primary is the trilinear repeat sampler most surfaces use.
	Primary *wgpu.Sampler
	// Nearest is the point sampler.
	Nearest *wgpu.Sampler
	// Shadow is the less-equal comparison sampler for shadow lookups.
	Shadow *wgpu.Sampler
	// BindGroup binds all three at group 0.
	BindGroup encode.BindGroup
}

// NewSamplers creates the sampler set and its bind group.
//
// Parameters:
//   - device: the device to create samplers on
//   - alloc: the allocator to create the bind group with
//   - layout: the samplers bind group layout
//
// Returns:
//   - *Samplers: the sampler set
//   - error: an error if creation failed
func NewSamplers(device *wgpu.Device, alloc encode.Allocator, layout *wgpu.BindGroupLayout) (*Samplers, error) {
	s := &Samplers{}

	var err error
	s.Primary, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Primary Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeLinear,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create primary sampler: %w", err)
	}
	s.Nearest, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Nearest Sampler",
		AddressModeU:  wgpu.AddressModeRepeat,
		AddressModeV:  wgpu.AddressModeRepeat,
		AddressModeW:  wgpu.AddressModeRepeat,
		MagFilter:     wgpu.FilterModeNearest,
		MinFilter:     wgpu.FilterModeNearest,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create nearest sampler: %w", err)
	}
	s.Shadow, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Shadow Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
		Compare:       wgpu.CompareFunctionLessEqual,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create shadow sampler: %w", err)
	}

	s.BindGroup, err = alloc.CreateBindGroup("samplers", layout, []encode.BindGroupEntry{
		{Binding: 0, Sampler: s.Primary},
		{Binding: 1, Sampler: s.Nearest},
		{Binding: 2, Sampler: s.Shadow},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create sampler bind group: %w", err)
	}
	return s, nil
}

// Release frees the samplers and their bind group.
func (s *Samplers) Release() {
	if s.BindGroup != nil {
		s.BindGroup.Release()
		s.BindGroup = nil
	}
	for _, sampler := range []*wgpu.Sampler{s.Primary, s.Nearest, s.Shadow} {
		if sampler != nil {
			sampler.Release()
		}
	}
	s.Primary, s.Nearest, s.Shadow = nil, nil, nil
}
