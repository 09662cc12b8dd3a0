package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
	"github.com/ember-gfx/ember-go/engine/renderer/shader"
	"go.uber.org/zap"
)

// wgpuBackend is the RoutineBackend implementation over a real device.
type wgpuBackend struct {
	mu *sync.Mutex

	device *wgpu.Device
	queue  *wgpu.Queue
	logger *zap.Logger

	alloc    encode.Allocator
	layouts  *binding.Layouts
	samplers *binding.Samplers

	// modules caches compiled shader modules by shader key so pipelines
	// sharing a source file share one module.
	modules map[string]*wgpu.ShaderModule

	encoder *wgpu.CommandEncoder
}

var _ RoutineBackend = &wgpuBackend{}

// NewWGPUBackend creates the device-backed routine backend, allocating
// the shared bind group layouts and the immutable sampler set.
//
// Parameters:
//   - device: the WebGPU device
//   - queue: the queue resource writes are scheduled on
//   - logger: the logger for device-level diagnostics
//
// Returns:
//   - RoutineBackend: the backend
//   - error: an error if layout or sampler creation failed
func NewWGPUBackend(device *wgpu.Device, queue *wgpu.Queue, logger *zap.Logger) (RoutineBackend, error) {
	layouts, err := binding.NewLayouts(device)
	if err != nil {
		return nil, fmt.Errorf("failed to create bind group layouts: %w", err)
	}
	alloc := encode.NewWGPUAllocator(device, queue)
	samplers, err := binding.NewSamplers(device, alloc, layouts.Samplers)
	if err != nil {
		layouts.Release()
		return nil, fmt.Errorf("failed to create samplers: %w", err)
	}
	return &wgpuBackend{
		mu:       &sync.Mutex{},
		device:   device,
		queue:    queue,
		logger:   logger,
		alloc:    alloc,
		layouts:  layouts,
		samplers: samplers,
		modules:  make(map[string]*wgpu.ShaderModule),
	}, nil
}

func (b *wgpuBackend) Allocator() encode.Allocator {
	return b.alloc
}

func (b *wgpuBackend) Layouts() *binding.Layouts {
	return b.layouts
}

func (b *wgpuBackend) Samplers() encode.BindGroup {
	return b.samplers.BindGroup
}

// module compiles the shader's source, reusing a previous compilation of
// the same source when the shader set shares files between stages.
func (b *wgpuBackend) module(s shader.Shader) (*wgpu.ShaderModule, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cached, ok := b.modules[s.Source()]; ok {
		return cached, nil
	}
	compiled, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: s.Key(),
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.Source(),
		},
	})
	if err != nil {
		return nil, err
	}
	b.modules[s.Source()] = compiled
	return compiled, nil
}

func (b *wgpuBackend) RegisterRenderPipeline(p pipeline.Pipeline, desc *pipeline.RenderDescriptor) error {
	vertexShader := p.Shader(shader.ShaderTypeVertex)
	if vertexShader == nil {
		return errors.New("a vertex shader must be set to create a render pipeline")
	}
	vs, err := b.module(vertexShader)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", vertexShader.Key(), err)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: desc.BindGroupLayouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	descriptor := &wgpu.RenderPipelineDescriptor{
		Label:  p.PipelineKey() + " Render Pipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     vs,
			EntryPoint: vertexShader.EntryPoint(),
			Buffers:    desc.VertexLayouts,
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  p.Topology(),
			FrontFace: p.FrontFace(),
			CullMode:  p.CullMode(),
		},
		Multisample: wgpu.MultisampleState{
			Count: max(desc.Samples, 1),
			Mask:  0xFFFFFFFF,
		},
	}

	// Depth-only pipelines omit the fragment stage entirely.
	if fragmentShader := p.Shader(shader.ShaderTypeFragment); fragmentShader != nil {
		fs, fsErr := b.module(fragmentShader)
		if fsErr != nil {
			return fmt.Errorf("failed to compile %s: %w", fragmentShader.Key(), fsErr)
		}
		targets := make([]wgpu.ColorTargetState, 0, len(desc.ColorFormats))
		for _, format := range desc.ColorFormats {
			state := wgpu.ColorTargetState{
				Format:    format,
				WriteMask: p.WriteMask(),
			}
			if p.BlendEnabled() {
				state.Blend = p.BlendState()
			}
			targets = append(targets, state)
		}
		descriptor.Fragment = &wgpu.FragmentState{
			Module:     fs,
			EntryPoint: fragmentShader.EntryPoint(),
			Targets:    targets,
		}
	}

	if desc.DepthFormat != wgpu.TextureFormatUndefined {
		descriptor.DepthStencil = &wgpu.DepthStencilState{
			Format:              desc.DepthFormat,
			DepthWriteEnabled:   p.DepthWriteEnabled(),
			DepthCompare:        p.DepthCompare(),
			DepthBias:           p.DepthBias(),
			DepthBiasSlopeScale: p.DepthBiasSlopeScale(),
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		}
	}

	created, err := b.device.CreateRenderPipeline(descriptor)
	if err != nil {
		return err
	}
	p.SetRenderPipeline(created)
	return nil
}

func (b *wgpuBackend) RegisterComputePipeline(p pipeline.Pipeline, desc *pipeline.ComputeDescriptor) error {
	computeShader := p.Shader(shader.ShaderTypeCompute)
	if computeShader == nil {
		return errors.New("a compute shader must be set to create a compute pipeline")
	}
	cs, err := b.module(computeShader)
	if err != nil {
		return fmt.Errorf("failed to compile %s: %w", computeShader.Key(), err)
	}

	pipelineLayout, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            p.PipelineKey(),
		BindGroupLayouts: desc.BindGroupLayouts,
	})
	if err != nil {
		return err
	}
	defer pipelineLayout.Release()

	created, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.PipelineKey() + " Compute Pipeline",
		Layout: pipelineLayout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     cs,
			EntryPoint: computeShader.EntryPoint(),
		},
	})
	if err != nil {
		return err
	}
	p.SetComputePipeline(created)
	return nil
}

func (b *wgpuBackend) CreateRenderTextures(width, height, samples uint32) (*RenderTextures, error) {
	rt := &RenderTextures{Width: width, Height: height, Samples: samples}

	colorUsage := wgpu.TextureUsageRenderAttachment
	if samples <= 1 {
		colorUsage |= wgpu.TextureUsageTextureBinding
	}
	color, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "HDR Color",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   max(samples, 1),
		Dimension:     wgpu.TextureDimension2D,
		Format:        HDRFormat,
		Usage:         colorUsage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create HDR color texture: %w", err)
	}
	rt.Color = color
	rt.ColorView, err = color.CreateView(nil)
	if err != nil {
		rt.Release()
		return nil, fmt.Errorf("failed to create HDR color view: %w", err)
	}

	resolvedView := rt.ColorView
	if samples > 1 {
		resolve, resolveErr := b.device.CreateTexture(&wgpu.TextureDescriptor{
			Label:         "HDR Resolve",
			Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
			MipLevelCount: 1,
			SampleCount:   1,
			Dimension:     wgpu.TextureDimension2D,
			Format:        HDRFormat,
			Usage:         wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding,
		})
		if resolveErr != nil {
			rt.Release()
			return nil, fmt.Errorf("failed to create HDR resolve texture: %w", resolveErr)
		}
		rt.Resolve = resolve
		rt.ResolveView, err = resolve.CreateView(nil)
		if err != nil {
			rt.Release()
			return nil, fmt.Errorf("failed to create HDR resolve view: %w", err)
		}
		resolvedView = rt.ResolveView
	}

	depth, err := b.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Primary Depth",
		Size:          wgpu.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   max(samples, 1),
		Dimension:     wgpu.TextureDimension2D,
		Format:        DepthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		rt.Release()
		return nil, fmt.Errorf("failed to create depth texture: %w", err)
	}
	rt.Depth = depth
	rt.DepthView, err = depth.CreateView(nil)
	if err != nil {
		rt.Release()
		return nil, fmt.Errorf("failed to create depth view: %w", err)
	}

	rt.HDRInput, err = b.alloc.CreateBindGroup("tonemap-input", b.layouts.TonemapInput, []encode.BindGroupEntry{
		{Binding: 0, TextureView: resolvedView},
	})
	if err != nil {
		rt.Release()
		return nil, fmt.Errorf("failed to create tonemap input bind group: %w", err)
	}
	return rt, nil
}

func (b *wgpuBackend) BeginFrame(label string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.encoder != nil {
		return errors.New("a frame is already open")
	}
	encoder, err := b.device.CreateCommandEncoder(&wgpu.CommandEncoderDescriptor{Label: label})
	if err != nil {
		return err
	}
	b.encoder = encoder
	return nil
}

func (b *wgpuBackend) BeginComputePass(label string) encode.ComputePass {
	pass := b.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: label})
	return encode.NewWGPUComputePass(pass)
}

func (b *wgpuBackend) BeginShadowPass(label string, view *wgpu.TextureView) encode.RenderPass {
	pass := b.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: label,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            view,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
	return encode.NewWGPURenderPass(pass)
}

func (b *wgpuBackend) BeginPrimaryPass(label string, rt *RenderTextures, clear wgpu.Color) encode.RenderPass {
	pass := b.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:          rt.ColorView,
				ResolveTarget: rt.ResolveView,
				LoadOp:        wgpu.LoadOpClear,
				StoreOp:       wgpu.StoreOpStore,
				ClearValue:    clear,
			},
		},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            rt.DepthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpDiscard,
			DepthClearValue: 1.0,
		},
	})
	return encode.NewWGPURenderPass(pass)
}

func (b *wgpuBackend) BeginTonemapPass(label string, target *wgpu.TextureView) encode.RenderPass {
	pass := b.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: label,
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       target,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	return encode.NewWGPURenderPass(pass)
}

func (b *wgpuBackend) Finish() (*wgpu.CommandBuffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.encoder == nil {
		return nil, errors.New("no frame is open")
	}
	buffer, err := b.encoder.Finish(nil)
	b.encoder.Release()
	b.encoder = nil
	if err != nil {
		return nil, err
	}
	return buffer, nil
}

func (b *wgpuBackend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, module := range b.modules {
		module.Release()
	}
	b.modules = make(map[string]*wgpu.ShaderModule)
	if b.samplers != nil {
		b.samplers.Release()
		b.samplers = nil
	}
	if b.layouts != nil {
		b.layouts.Release()
		b.layouts = nil
	}
}
