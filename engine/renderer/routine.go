// Package renderer orchestrates a frame: it readies the resource
// managers, culls the scene for every camera that draws this frame,
// records the shadow, primary, and tonemap passes, and hands the
// finished command buffer back to the caller for submission.
package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/camera"
	"github.com/ember-gfx/ember-go/engine/light"
	"github.com/ember-gfx/ember-go/engine/mesh"
	"github.com/ember-gfx/ember-go/engine/object"
	"github.com/ember-gfx/ember-go/engine/profiler"
	"github.com/ember-gfx/ember-go/engine/renderer/culling"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/forward"
	"github.com/ember-gfx/ember-go/engine/renderer/material"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"
	"github.com/ember-gfx/ember-go/engine/renderer/shader"
	"github.com/ember-gfx/ember-go/engine/renderer/shadow"
	"github.com/ember-gfx/ember-go/engine/renderer/skybox"
	"github.com/ember-gfx/ember-go/engine/renderer/texture"
	"github.com/ember-gfx/ember-go/engine/renderer/tonemap"
	"github.com/ember-gfx/ember-go/engine/renderer/uniforms"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// RenderRoutine records complete frames. One routine owns the pipelines
// and internal render targets for one output surface.
type RenderRoutine interface {
	// Render records one frame targeting the given surface view and
	// appends the resulting command buffer to encoders. The caller submits
	// the buffers and presents.
	//
	// Parameters:
	//   - encoders: the list the frame's command buffer is appended to
	//   - target: the surface view the tonemapped frame lands in
	//
	// Returns:
	//   - error: an error if any stage of the frame failed
	Render(encoders *[]*wgpu.CommandBuffer, target *wgpu.TextureView) error

	// Resize recreates the internal render targets for a new output size
	// and sample count. Pipelines are rebuilt only when the sample count
	// changes.
	//
	// Parameters:
	//   - width: the new output width in pixels
	//   - height: the new output height in pixels
	//   - samples: the MSAA sample count, 1 to disable
	//
	// Returns:
	//   - error: an error if target or pipeline creation failed
	Resize(width, height, samples uint32) error

	// SetAmbient sets the ambient light term added to every shaded pixel.
	//
	// Parameters:
	//   - color: the ambient color, alpha unused
	SetAmbient(color mgl32.Vec4)

	// SetClearColor sets the color the HDR buffer is cleared to.
	//
	// Parameters:
	//   - color: the clear color
	SetClearColor(color wgpu.Color)

	// Mode returns where culling runs.
	//
	// Returns:
	//   - Mode: the culling mode
	Mode() Mode

	// Camera returns the primary camera.
	//
	// Returns:
	//   - camera.Camera: the camera
	Camera() camera.Camera

	// Release frees the routine's pipelines and render targets.
	Release()
}

// renderRoutineImpl is the implementation of the RenderRoutine interface.
type renderRoutineImpl struct {
	mu *sync.Mutex

	backend RoutineBackend
	mode    Mode
	logger  *zap.Logger
	prof    *profiler.Profiler

	cam       camera.Camera
	meshes    mesh.Manager
	objects   object.Manager
	materials material.Manager
	textures  texture.Manager
	lights    light.Manager

	shaders       *shader.ShaderSet
	forwardPasses *forward.Passes
	shadowPasses  *shadow.Passes
	skyboxPass    *skybox.Pass
	tonemapPass   *tonemap.Pass
	cullPipeline  pipeline.Pipeline
	culler        culling.Culler

	surfaceFormat  wgpu.TextureFormat
	renderTextures *RenderTextures
	width          uint32
	height         uint32
	samples        uint32
	ambient        mgl32.Vec4
	clearColor     wgpu.Color
}

var _ RenderRoutine = &renderRoutineImpl{}

// NewRenderRoutine creates a RenderRoutine over the given backend,
// compiling every pipeline and allocating the internal render targets.
// The texture and light managers are device-bound and must be supplied;
// the mesh, object, and material managers default to fresh instances.
//
// Parameters:
//   - backend: the device backend frames are recorded through
//   - opts: variadic list of RenderRoutineOption functions
//
// Returns:
//   - RenderRoutine: the routine
//   - error: an error if a required manager is missing or setup failed
func NewRenderRoutine(backend RoutineBackend, opts ...RenderRoutineOption) (RenderRoutine, error) {
	r := &renderRoutineImpl{
		mu:            &sync.Mutex{},
		backend:       backend,
		mode:          ModeCPUPowered,
		logger:        zap.NewNop(),
		surfaceFormat: wgpu.TextureFormatBGRA8UnormSrgb,
		width:         1280,
		height:        720,
		samples:       1,
		ambient:       mgl32.Vec4{0.03, 0.03, 0.03, 1},
		clearColor:    wgpu.Color{R: 0, G: 0, B: 0, A: 1},
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.textures == nil {
		return nil, errors.New("a texture manager is required")
	}
	if r.lights == nil {
		return nil, errors.New("a light manager is required")
	}
	if r.cam == nil {
		r.cam = camera.NewCamera()
	}
	if r.meshes == nil {
		r.meshes = mesh.NewManager()
	}
	if r.objects == nil {
		r.objects = object.NewManager()
	}
	if r.materials == nil {
		r.materials = material.NewManager()
	}
	r.cam.SetAspect(float32(r.width) / float32(r.height))

	r.shaders = shader.NewShaderSet()
	if err := r.buildPipelines(); err != nil {
		return nil, err
	}

	layouts := backend.Layouts()
	switch r.mode {
	case ModeGPUPowered:
		r.cullPipeline = pipeline.NewPipeline(
			"cull",
			pipeline.PipelineTypeCompute,
			pipeline.ClassCull,
			pipeline.WithComputeShader(r.shaders.Cull),
		)
		err := backend.RegisterComputePipeline(r.cullPipeline, &pipeline.ComputeDescriptor{
			BindGroupLayouts: []*wgpu.BindGroupLayout{layouts.Cull},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to register cull pipeline: %w", err)
		}
		r.culler = culling.NewGPUCuller(layouts, r.cullPipeline)
	default:
		r.culler = culling.NewCPUCuller(layouts)
	}

	rt, err := backend.CreateRenderTextures(r.width, r.height, r.samples)
	if err != nil {
		return nil, fmt.Errorf("failed to create render textures: %w", err)
	}
	r.renderTextures = rt

	r.logger.Info("render routine ready",
		zap.Stringer("mode", r.mode),
		zap.Uint32("width", r.width),
		zap.Uint32("height", r.height),
		zap.Uint32("samples", r.samples),
	)
	return r, nil
}

// buildPipelines registers every render pipeline against the current
// sample count. Called at construction and again when Resize changes the
// sample count.
func (r *renderRoutineImpl) buildPipelines() error {
	layouts := r.backend.Layouts()

	forwardPasses, err := forward.NewPasses(r.backend, r.shaders, layouts, HDRFormat, DepthFormat, r.samples)
	if err != nil {
		return err
	}
	shadowPasses, err := shadow.NewPasses(r.backend, r.shaders, layouts, ShadowFormat)
	if err != nil {
		forwardPasses.Release()
		return err
	}
	skyboxPass, err := skybox.NewPass(r.backend, r.shaders, layouts, HDRFormat, DepthFormat, r.samples)
	if err != nil {
		forwardPasses.Release()
		shadowPasses.Release()
		return err
	}
	tonemapPass, err := tonemap.NewPass(r.backend, r.shaders, layouts, r.surfaceFormat)
	if err != nil {
		forwardPasses.Release()
		shadowPasses.Release()
		skyboxPass.Release()
		return err
	}

	if r.forwardPasses != nil {
		r.forwardPasses.Release()
	}
	if r.shadowPasses != nil {
		r.shadowPasses.Release()
	}
	if r.skyboxPass != nil {
		r.skyboxPass.Release()
	}
	if r.tonemapPass != nil {
		r.tonemapPass.Release()
	}
	r.forwardPasses = forwardPasses
	r.shadowPasses = shadowPasses
	r.skyboxPass = skyboxPass
	r.tonemapPass = tonemapPass
	return nil
}

func (r *renderRoutineImpl) Render(encoders *[]*wgpu.CommandBuffer, target *wgpu.TextureView) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.backend.BeginFrame("frame"); err != nil {
		return err
	}
	alloc := r.backend.Allocator()
	layouts := r.backend.Layouts()

	// Frame-scoped resources live until the command buffer is handed off;
	// the device keeps anything it still references alive after that.
	var frameSets []*culling.CulledObjectSet
	var frameUniform *uniforms.FrameUniform
	defer func() {
		for _, set := range frameSets {
			set.Release()
		}
		if frameUniform != nil {
			frameUniform.Release()
		}
	}()

	done := r.prof.Scope("ready")
	if err := r.meshes.Ready(alloc); err != nil {
		return r.abortFrame(fmt.Errorf("mesh upload failed: %w", err))
	}
	if err := r.materials.Ready(alloc, layouts.Material); err != nil {
		return r.abortFrame(fmt.Errorf("material upload failed: %w", err))
	}
	if err := r.textures.Ready(alloc, layouts.Texture, layouts.Skybox); err != nil {
		return r.abortFrame(fmt.Errorf("texture upload failed: %w", err))
	}
	if err := r.lights.Ready(alloc, layouts.Light, r.cam.Position()); err != nil {
		return r.abortFrame(fmt.Errorf("light upload failed: %w", err))
	}
	done()

	done = r.prof.Scope("snapshot")
	var opaque, cutout, blend []culling.Candidate
	for _, obj := range r.objects.Ready() {
		gpuMesh := r.meshes.Mesh(obj.Mesh)
		if gpuMesh == nil {
			continue
		}
		cand := culling.Candidate{
			MeshHandle:     obj.Mesh,
			Mesh:           gpuMesh,
			MaterialIdx:    r.materials.Index(obj.Material),
			Transform:      obj.Transform,
			BoundingRadius: gpuMesh.BoundingRadius,
		}
		switch r.materials.Material(obj.Material).Transparency {
		case material.TransparencyCutout:
			cutout = append(cutout, cand)
		case material.TransparencyBlend:
			blend = append(blend, cand)
		default:
			opaque = append(opaque, cand)
		}
	}
	done()

	done = r.prof.Scope("culling")
	var computePass encode.ComputePass
	if r.mode == ModeGPUPowered {
		computePass = r.backend.BeginComputePass("culling")
	}
	cullOne := func(label string, cam culling.Camera, cands []culling.Candidate) (*culling.CulledObjectSet, error) {
		set, err := r.culler.Cull(culling.Args{
			Alloc:       alloc,
			ComputePass: computePass,
			Camera:      cam,
			ObjectLabel: label,
			Candidates:  cands,
		})
		if err != nil {
			return nil, err
		}
		frameSets = append(frameSets, set)
		return set, nil
	}

	type shadowDraw struct {
		view           light.ShadowView
		opaque, cutout *culling.CulledObjectSet
	}
	shadowViews := r.lights.ShadowViews()
	shadowDraws := make([]shadowDraw, 0, len(shadowViews))
	for _, sv := range shadowViews {
		lightCam := culling.Camera{View: sv.View, ViewProj: sv.ViewProj, Frustum: sv.Frustum}
		o, err := cullOne(fmt.Sprintf("shadow-%d-opaque", sv.Layer), lightCam, opaque)
		if err != nil {
			return r.abortFrame(fmt.Errorf("shadow culling failed: %w", err))
		}
		c, err := cullOne(fmt.Sprintf("shadow-%d-cutout", sv.Layer), lightCam, cutout)
		if err != nil {
			return r.abortFrame(fmt.Errorf("shadow culling failed: %w", err))
		}
		shadowDraws = append(shadowDraws, shadowDraw{view: sv, opaque: o, cutout: c})
	}

	primaryCam := culling.Camera{
		View:     r.cam.View(),
		ViewProj: r.cam.ViewProjection(),
		Frustum:  r.cam.Frustum(),
	}
	opaqueSet, err := cullOne("opaque", primaryCam, opaque)
	if err != nil {
		return r.abortFrame(fmt.Errorf("primary culling failed: %w", err))
	}
	cutoutSet, err := cullOne("cutout", primaryCam, cutout)
	if err != nil {
		return r.abortFrame(fmt.Errorf("primary culling failed: %w", err))
	}
	blendSet, err := cullOne("blend", primaryCam, blend)
	if err != nil {
		return r.abortFrame(fmt.Errorf("primary culling failed: %w", err))
	}
	if computePass != nil {
		computePass.End()
	}
	done()

	frameUniform, err = uniforms.CreateShaderUniform(alloc, layouts.Uniform, r.cam, r.ambient)
	if err != nil {
		return r.abortFrame(fmt.Errorf("frame uniform creation failed: %w", err))
	}

	done = r.prof.Scope("shadow-passes")
	shadowBindings := shadow.Bindings{
		Samplers:  r.backend.Samplers(),
		Materials: r.materials.BindGroup(),
		Textures:  r.textures.BindGroup(),
	}
	for _, draw := range shadowDraws {
		pass := r.backend.BeginShadowPass(fmt.Sprintf("shadow-%d", draw.view.Layer), draw.view.Target)
		r.shadowPasses.Encode(pass, shadowBindings, draw.opaque, draw.cutout)
		pass.End()
	}
	done()

	done = r.prof.Scope("primary-pass")
	frameBindings := forward.Bindings{
		Samplers:  r.backend.Samplers(),
		Materials: r.materials.BindGroup(),
		Textures:  r.textures.BindGroup(),
		Lights:    r.lights.BindGroup(),
		Uniforms:  frameUniform.BindGroup,
	}
	primary := r.backend.BeginPrimaryPass("primary", r.renderTextures, r.clearColor)
	r.forwardPasses.EncodeDepthPrepass(primary, frameBindings, opaqueSet, cutoutSet)
	if r.textures.HasBackground() && r.textures.SkyboxBindGroup() != nil {
		r.skyboxPass.Encode(primary, frameBindings.Samplers, r.textures.SkyboxBindGroup(), frameBindings.Uniforms)
	}
	r.forwardPasses.EncodeShading(primary, frameBindings, opaqueSet, cutoutSet, blendSet)
	primary.End()
	done()

	done = r.prof.Scope("tonemap-pass")
	tonemapPass := r.backend.BeginTonemapPass("tonemap", target)
	r.tonemapPass.Encode(tonemapPass, frameBindings.Samplers, r.renderTextures.HDRInput)
	tonemapPass.End()
	done()

	buffer, err := r.backend.Finish()
	if err != nil {
		return fmt.Errorf("frame encoding failed: %w", err)
	}
	if buffer != nil && encoders != nil {
		*encoders = append(*encoders, buffer)
	}
	r.prof.Tick()
	return nil
}

// abortFrame closes the open frame encoder after a mid-frame failure,
// discarding whatever was recorded, and passes the error through.
func (r *renderRoutineImpl) abortFrame(err error) error {
	if buffer, finishErr := r.backend.Finish(); finishErr == nil && buffer != nil {
		buffer.Release()
	}
	return err
}

func (r *renderRoutineImpl) Resize(width, height, samples uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if samples == 0 {
		samples = 1
	}
	if samples != r.samples {
		r.samples = samples
		if err := r.buildPipelines(); err != nil {
			return fmt.Errorf("pipeline rebuild failed: %w", err)
		}
	}
	rt, err := r.backend.CreateRenderTextures(width, height, samples)
	if err != nil {
		return fmt.Errorf("failed to create render textures: %w", err)
	}
	if r.renderTextures != nil {
		r.renderTextures.Release()
	}
	r.renderTextures = rt
	r.width = width
	r.height = height
	r.cam.SetAspect(float32(width) / float32(height))
	return nil
}

func (r *renderRoutineImpl) SetAmbient(color mgl32.Vec4) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ambient = color
}

func (r *renderRoutineImpl) SetClearColor(color wgpu.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearColor = color
}

func (r *renderRoutineImpl) Mode() Mode {
	return r.mode
}

func (r *renderRoutineImpl) Camera() camera.Camera {
	return r.cam
}

func (r *renderRoutineImpl) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.renderTextures != nil {
		r.renderTextures.Release()
		r.renderTextures = nil
	}
	if r.forwardPasses != nil {
		r.forwardPasses.Release()
	}
	if r.shadowPasses != nil {
		r.shadowPasses.Release()
	}
	if r.skyboxPass != nil {
		r.skyboxPass.Release()
	}
	if r.tonemapPass != nil {
		r.tonemapPass.Release()
	}
	if r.cullPipeline != nil {
		r.cullPipeline.Release()
	}
}
