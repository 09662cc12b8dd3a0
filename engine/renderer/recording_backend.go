package renderer

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
)

// RecordingBackend is a RoutineBackend that runs without a device. Pass
// structure, pipeline registrations, and resource allocations are
// captured for inspection, which is how the frame logic is tested.
type RecordingBackend struct {
	// Alloc is the recording allocator every resource goes through.
	Alloc *encode.RecordingAllocator

	// RegisteredRender and RegisteredCompute list registration calls in order.
	RegisteredRender  []pipeline.Pipeline
	RegisteredCompute []pipeline.Pipeline

	// FailRenderRegistrationAt makes the n-th render registration fail,
	// counted from 1 across the backend's lifetime. Zero disables it.
	FailRenderRegistrationAt int

	// ComputePasses and RenderPasses list opened passes in order.
	ComputePasses []*encode.RecordingComputePass
	RenderPasses  []*encode.RecordingRenderPass

	// Frames counts BeginFrame calls, Finished counts Finish calls.
	Frames   int
	Finished int

	// TexturesCreated lists every CreateRenderTextures call as w, h, samples.
	TexturesCreated [][3]uint32

	samplers encode.BindGroup
	layouts  *binding.Layouts
}

var _ RoutineBackend = &RecordingBackend{}

// NewRecordingBackend creates an empty RecordingBackend.
//
// Returns:
//   - *RecordingBackend: the backend
func NewRecordingBackend() *RecordingBackend {
	alloc := encode.NewRecordingAllocator()
	samplers, _ := alloc.CreateBindGroup("samplers", nil, nil)
	return &RecordingBackend{
		Alloc:    alloc,
		layouts:  &binding.Layouts{},
		samplers: samplers,
	}
}

func (b *RecordingBackend) Allocator() encode.Allocator { return b.Alloc }

func (b *RecordingBackend) Layouts() *binding.Layouts { return b.layouts }

func (b *RecordingBackend) Samplers() encode.BindGroup { return b.samplers }

func (b *RecordingBackend) RegisterRenderPipeline(p pipeline.Pipeline, desc *pipeline.RenderDescriptor) error {
	if b.FailRenderRegistrationAt > 0 && len(b.RegisteredRender)+1 == b.FailRenderRegistrationAt {
		return fmt.Errorf("registration %d failed", b.FailRenderRegistrationAt)
	}
	b.RegisteredRender = append(b.RegisteredRender, p)
	return nil
}

func (b *RecordingBackend) RegisterComputePipeline(p pipeline.Pipeline, desc *pipeline.ComputeDescriptor) error {
	b.RegisteredCompute = append(b.RegisteredCompute, p)
	return nil
}

func (b *RecordingBackend) CreateRenderTextures(width, height, samples uint32) (*RenderTextures, error) {
	b.TexturesCreated = append(b.TexturesCreated, [3]uint32{width, height, samples})
	hdrInput, err := b.Alloc.CreateBindGroup("tonemap-input", nil, nil)
	if err != nil {
		return nil, err
	}
	return &RenderTextures{
		Width:    width,
		Height:   height,
		Samples:  samples,
		HDRInput: hdrInput,
	}, nil
}

func (b *RecordingBackend) BeginFrame(label string) error {
	b.Frames++
	return nil
}

func (b *RecordingBackend) BeginComputePass(label string) encode.ComputePass {
	pass := encode.NewRecordingComputePass(label)
	b.ComputePasses = append(b.ComputePasses, pass)
	return pass
}

func (b *RecordingBackend) BeginShadowPass(label string, view *wgpu.TextureView) encode.RenderPass {
	return b.beginRenderPass(label)
}

func (b *RecordingBackend) BeginPrimaryPass(label string, rt *RenderTextures, clear wgpu.Color) encode.RenderPass {
	return b.beginRenderPass(label)
}

func (b *RecordingBackend) BeginTonemapPass(label string, target *wgpu.TextureView) encode.RenderPass {
	return b.beginRenderPass(label)
}

func (b *RecordingBackend) beginRenderPass(label string) encode.RenderPass {
	pass := encode.NewRecordingRenderPass(label)
	b.RenderPasses = append(b.RenderPasses, pass)
	return pass
}

func (b *RecordingBackend) Finish() (*wgpu.CommandBuffer, error) {
	b.Finished++
	return nil, nil
}

func (b *RecordingBackend) Release() {}

// PassLabels returns the labels of every render pass opened so far.
//
// Returns:
//   - []string: the labels in open order
func (b *RecordingBackend) PassLabels() []string {
	labels := make([]string, 0, len(b.RenderPasses))
	for _, pass := range b.RenderPasses {
		labels = append(labels, pass.Label)
	}
	return labels
}

// PassByLabel returns the most recently opened render pass with the given
// label, or nil if none exists.
//
// Parameters:
//   - label: the pass label to look up
//
// Returns:
//   - *encode.RecordingRenderPass: the pass, or nil
func (b *RecordingBackend) PassByLabel(label string) *encode.RecordingRenderPass {
	for i := len(b.RenderPasses) - 1; i >= 0; i-- {
		if b.RenderPasses[i].Label == label {
			return b.RenderPasses[i]
		}
	}
	return nil
}

// String summarizes the recorded frame structure.
//
// Returns:
//   - string: a summary of frames, passes, and registrations
func (b *RecordingBackend) String() string {
	return fmt.Sprintf("frames=%d renderPasses=%d computePasses=%d registered=%d",
		b.Frames, len(b.RenderPasses), len(b.ComputePasses), len(b.RegisteredRender)+len(b.RegisteredCompute))
}
