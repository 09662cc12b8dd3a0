package renderer

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/engine/camera"
	"github.com/ember-gfx/ember-go/engine/light"
	"github.com/ember-gfx/ember-go/engine/mesh"
	"github.com/ember-gfx/ember-go/engine/object"
	"github.com/ember-gfx/ember-go/engine/profiler"
	"github.com/ember-gfx/ember-go/engine/renderer/material"
	"github.com/ember-gfx/ember-go/engine/renderer/texture"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// RenderRoutineOption configures a RenderRoutine during construction.
type RenderRoutineOption func(*renderRoutineImpl)

// WithMode selects where culling runs.
//
// Parameters:
//   - mode: the culling mode
//
// Returns:
//   - RenderRoutineOption: the option function
func WithMode(mode Mode) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.mode = mode
	}
}

// WithCamera sets the primary camera.
//
// Parameters:
//   - cam: the camera
//
// Returns:
//   - RenderRoutineOption: the option function
func WithCamera(cam camera.Camera) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.cam = cam
	}
}

// WithMeshManager sets the mesh manager.
//
// Parameters:
//   - m: the manager
//
// Returns:
//   - RenderRoutineOption: the option function
func WithMeshManager(m mesh.Manager) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.meshes = m
	}
}

// WithObjectManager sets the object manager.
//
// Parameters:
//   - m: the manager
//
// Returns:
//   - RenderRoutineOption: the option function
func WithObjectManager(m object.Manager) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.objects = m
	}
}

// WithMaterialManager sets the material manager.
//
// Parameters:
//   - m: the manager
//
// Returns:
//   - RenderRoutineOption: the option function
func WithMaterialManager(m material.Manager) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.materials = m
	}
}

// WithTextureManager sets the texture manager. Required.
//
// Parameters:
//   - m: the manager
//
// Returns:
//   - RenderRoutineOption: the option function
func WithTextureManager(m texture.Manager) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.textures = m
	}
}

// WithLightManager sets the light manager. Required.
//
// Parameters:
//   - m: the manager
//
// Returns:
//   - RenderRoutineOption: the option function
func WithLightManager(m light.Manager) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.lights = m
	}
}

// WithSurfaceFormat sets the output surface format the tonemap pass
// targets. Defaults to BGRA8UnormSrgb.
//
// Parameters:
//   - format: the surface format
//
// Returns:
//   - RenderRoutineOption: the option function
func WithSurfaceFormat(format wgpu.TextureFormat) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.surfaceFormat = format
	}
}

// WithSize sets the initial output size. Defaults to 1280 by 720.
//
// Parameters:
//   - width: the output width in pixels
//   - height: the output height in pixels
//
// Returns:
//   - RenderRoutineOption: the option function
func WithSize(width, height uint32) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.width = width
		r.height = height
	}
}

// WithSamples sets the MSAA sample count. Defaults to 1.
//
// Parameters:
//   - samples: the sample count
//
// Returns:
//   - RenderRoutineOption: the option function
func WithSamples(samples uint32) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		if samples == 0 {
			samples = 1
		}
		r.samples = samples
	}
}

// WithAmbient sets the ambient light term. Defaults to a dim gray.
//
// Parameters:
//   - color: the ambient color, alpha unused
//
// Returns:
//   - RenderRoutineOption: the option function
func WithAmbient(color mgl32.Vec4) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.ambient = color
	}
}

// WithClearColor sets the HDR clear color. Defaults to opaque black.
//
// Parameters:
//   - color: the clear color
//
// Returns:
//   - RenderRoutineOption: the option function
func WithClearColor(color wgpu.Color) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.clearColor = color
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
//
// Parameters:
//   - logger: the logger
//
// Returns:
//   - RenderRoutineOption: the option function
func WithLogger(logger *zap.Logger) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.logger = logger
	}
}

// WithProfiler sets the profiler frame stages report to. Nil disables
// profiling.
//
// Parameters:
//   - p: the profiler
//
// Returns:
//   - RenderRoutineOption: the option function
func WithProfiler(p *profiler.Profiler) RenderRoutineOption {
	return func(r *renderRoutineImpl) {
		r.prof = p
	}
}
