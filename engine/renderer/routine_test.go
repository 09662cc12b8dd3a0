package renderer

import (
	"fmt"
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/ember-gfx/ember-go/common"
	"github.com/ember-gfx/ember-go/engine/camera"
	"github.com/ember-gfx/ember-go/engine/light"
	"github.com/ember-gfx/ember-go/engine/mesh"
	"github.com/ember-gfx/ember-go/engine/object"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/material"
	"github.com/ember-gfx/ember-go/engine/renderer/texture"

	"github.com/go-gl/mathgl/mgl32"
)

// fakeTextureManager satisfies texture.Manager without a device.
type fakeTextureManager struct {
	background  bool
	bindGroup   encode.BindGroup
	skyboxGroup encode.BindGroup
}

var _ texture.Manager = &fakeTextureManager{}

func (f *fakeTextureManager) Add(img common.ImportedTexture) (texture.Handle, error) {
	return texture.Handle(1), nil
}

func (f *fakeTextureManager) AddPixels(pixels []byte, width, height uint32) (texture.Handle, error) {
	return texture.Handle(1), nil
}

func (f *fakeTextureManager) SetBackground(faces [6][]byte, size uint32) error {
	f.background = true
	return nil
}

func (f *fakeTextureManager) ClearBackground() {
	f.background = false
}

func (f *fakeTextureManager) Ready(alloc encode.Allocator, textureLayout, skyboxLayout *wgpu.BindGroupLayout) error {
	if f.bindGroup == nil {
		f.bindGroup, _ = alloc.CreateBindGroup("surface-textures", textureLayout, nil)
		f.skyboxGroup, _ = alloc.CreateBindGroup("skybox-texture", skyboxLayout, nil)
	}
	return nil
}

func (f *fakeTextureManager) BindGroup() encode.BindGroup       { return f.bindGroup }
func (f *fakeTextureManager) SkyboxBindGroup() encode.BindGroup { return f.skyboxGroup }
func (f *fakeTextureManager) HasBackground() bool               { return f.background }
func (f *fakeTextureManager) Release()                          {}

// fakeLightManager satisfies light.Manager without a device.
type fakeLightManager struct {
	lights      map[light.Handle]light.DirectionalLight
	next        light.Handle
	shadowViews []light.ShadowView
	bindGroup   encode.BindGroup
}

var _ light.Manager = &fakeLightManager{}

func newFakeLightManager() *fakeLightManager {
	return &fakeLightManager{lights: map[light.Handle]light.DirectionalLight{}}
}

func (f *fakeLightManager) Add(l light.DirectionalLight) light.Handle {
	f.next++
	f.lights[f.next] = l
	if l.CastShadows {
		dir := l.Direction.Normalize()
		up := mgl32.Vec3{0, 1, 0}
		if mgl32.Abs(dir.Y()) > 0.99 {
			up = mgl32.Vec3{0, 0, 1}
		}
		view := mgl32.LookAtV(dir.Mul(-50), mgl32.Vec3{}, up)
		viewProj := common.OrthoMatrix(-50, 50, -50, 50, 0.1, 100).Mul4(view)
		f.shadowViews = append(f.shadowViews, light.ShadowView{
			Light:    f.next,
			Layer:    uint32(len(f.shadowViews)),
			View:     view,
			ViewProj: viewProj,
			Frustum:  common.FrustumFromMatrix(viewProj),
		})
	}
	return f.next
}

func (f *fakeLightManager) Update(h light.Handle, l light.DirectionalLight) { f.lights[h] = l }
func (f *fakeLightManager) Remove(h light.Handle)                           { delete(f.lights, h) }
func (f *fakeLightManager) Count() int                                      { return len(f.lights) }

func (f *fakeLightManager) Ready(alloc encode.Allocator, layout *wgpu.BindGroupLayout, focus mgl32.Vec3) error {
	if f.bindGroup == nil {
		f.bindGroup, _ = alloc.CreateBindGroup("lights", layout, nil)
	}
	return nil
}

func (f *fakeLightManager) ShadowViews() []light.ShadowView { return f.shadowViews }
func (f *fakeLightManager) BindGroup() encode.BindGroup     { return f.bindGroup }
func (f *fakeLightManager) Release()                        {}

// cubeMesh registers a unit cube and returns its handle.
func cubeMesh(t *testing.T, meshes mesh.Manager) mesh.Handle {
	t.Helper()
	vertices := make([]mesh.GPUVertex, 8)
	for i := range vertices {
		x := float32(i&1)*2 - 1
		y := float32(i>>1&1)*2 - 1
		z := float32(i>>2&1)*2 - 1
		vertices[i] = mesh.GPUVertex{Position: [3]float32{x, y, z}, Normal: [3]float32{0, 1, 0}, Color: [4]float32{1, 1, 1, 1}}
	}
	indices := make([]uint32, 36)
	for i := range indices {
		indices[i] = uint32(i % 8)
	}
	h, err := meshes.Add(vertices, indices)
	if err != nil {
		t.Fatalf("failed to add mesh: %v", err)
	}
	return h
}

type testScene struct {
	backend   *RecordingBackend
	routine   RenderRoutine
	meshes    mesh.Manager
	objects   object.Manager
	materials material.Manager
	textures  *fakeTextureManager
	lights    *fakeLightManager
}

func newTestScene(t *testing.T, mode Mode, opts ...RenderRoutineOption) *testScene {
	t.Helper()
	s := &testScene{
		backend:   NewRecordingBackend(),
		meshes:    mesh.NewManager(),
		objects:   object.NewManager(),
		materials: material.NewManager(),
		textures:  &fakeTextureManager{},
		lights:    newFakeLightManager(),
	}
	cam := camera.NewCamera(camera.WithPosition(mgl32.Vec3{0, 0, 10}), camera.WithTarget(mgl32.Vec3{0, 0, 0}))
	all := append([]RenderRoutineOption{
		WithMode(mode),
		WithCamera(cam),
		WithMeshManager(s.meshes),
		WithObjectManager(s.objects),
		WithMaterialManager(s.materials),
		WithTextureManager(s.textures),
		WithLightManager(s.lights),
	}, opts...)
	routine, err := NewRenderRoutine(s.backend, all...)
	if err != nil {
		t.Fatalf("failed to create routine: %v", err)
	}
	s.routine = routine
	return s
}

func (s *testScene) render(t *testing.T) {
	t.Helper()
	var encoders []*wgpu.CommandBuffer
	if err := s.routine.Render(&encoders, nil); err != nil {
		t.Fatalf("render failed: %v", err)
	}
}

func TestNewRenderRoutineRequiresManagers(t *testing.T) {
	if _, err := NewRenderRoutine(NewRecordingBackend()); err == nil {
		t.Fatal("expected an error without a texture manager")
	}
	if _, err := NewRenderRoutine(NewRecordingBackend(), WithTextureManager(&fakeTextureManager{})); err == nil {
		t.Fatal("expected an error without a light manager")
	}
}

func TestRenderPassOrder(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	s.lights.Add(light.DirectionalLight{Direction: mgl32.Vec3{0, -1, 0}, Color: mgl32.Vec3{1, 1, 1}, Intensity: 1, CastShadows: true})
	meshHandle := cubeMesh(t, s.meshes)
	s.objects.Add(meshHandle, material.Handle(0), mgl32.Ident4())

	s.render(t)

	labels := s.backend.PassLabels()
	want := []string{"shadow-0", "primary", "tonemap"}
	if len(labels) != len(want) {
		t.Fatalf("expected passes %v, got %v", want, labels)
	}
	for i := range want {
		if labels[i] != want[i] {
			t.Fatalf("pass %d: expected %q, got %q", i, want[i], labels[i])
		}
	}
	for _, pass := range s.backend.RenderPasses {
		if !pass.Ended {
			t.Errorf("pass %q was not ended", pass.Label)
		}
	}
	if s.backend.Frames != 1 || s.backend.Finished != 1 {
		t.Errorf("expected one frame begin and finish, got %d and %d", s.backend.Frames, s.backend.Finished)
	}
}

func TestRenderPrimaryPipelineOrder(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	meshHandle := cubeMesh(t, s.meshes)
	opaqueMat := s.materials.Add(material.DefaultMaterial())
	cutout := material.DefaultMaterial()
	cutout.Transparency = material.TransparencyCutout
	cutoutMat := s.materials.Add(cutout)
	blend := material.DefaultMaterial()
	blend.Transparency = material.TransparencyBlend
	blendMat := s.materials.Add(blend)

	s.objects.Add(meshHandle, opaqueMat, mgl32.Ident4())
	s.objects.Add(meshHandle, cutoutMat, mgl32.Translate3D(2, 0, 0))
	s.objects.Add(meshHandle, blendMat, mgl32.Translate3D(-2, 0, 0))

	s.render(t)

	primary := s.backend.PassByLabel("primary")
	if primary == nil {
		t.Fatal("primary pass was not opened")
	}
	want := []string{
		"depth-prepass-opaque",
		"depth-prepass-cutout",
		"forward-opaque",
		"forward-cutout",
		"forward-blend",
	}
	got := primary.Pipelines()
	if len(got) != len(want) {
		t.Fatalf("expected pipelines %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("pipeline %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestRenderPrepassExcludesBlend(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	meshHandle := cubeMesh(t, s.meshes)
	blend := material.DefaultMaterial()
	blend.Transparency = material.TransparencyBlend
	s.objects.Add(meshHandle, s.materials.Add(blend), mgl32.Ident4())

	s.render(t)

	primary := s.backend.PassByLabel("primary")
	for _, key := range primary.Pipelines() {
		if strings.HasPrefix(key, "depth-prepass") {
			t.Errorf("blend-only scene must not run the depth prepass, saw %q", key)
		}
	}
	if got := primary.DrawCount(); got != 1 {
		t.Errorf("expected 1 draw for the blend object, got %d", got)
	}
}

func TestRenderSkipsSkyboxWithoutBackground(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	s.render(t)

	primary := s.backend.PassByLabel("primary")
	for _, key := range primary.Pipelines() {
		if key == "skybox" {
			t.Fatal("skybox must not draw without a background")
		}
	}

	// Setting a background turns the skybox draw on.
	if err := s.textures.SetBackground([6][]byte{}, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.render(t)
	primary = s.backend.PassByLabel("primary")
	found := false
	for _, key := range primary.Pipelines() {
		if key == "skybox" {
			found = true
		}
	}
	if !found {
		t.Fatal("skybox did not draw after SetBackground")
	}

	// Clearing the background turns it back off.
	s.textures.ClearBackground()
	s.render(t)
	primary = s.backend.PassByLabel("primary")
	for _, key := range primary.Pipelines() {
		if key == "skybox" {
			t.Fatal("skybox must not draw after ClearBackground")
		}
	}
}

func TestRenderSkyboxDrawsBetweenPrepassAndShading(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	s.textures.SetBackground([6][]byte{}, 1)
	meshHandle := cubeMesh(t, s.meshes)
	s.objects.Add(meshHandle, s.materials.Add(material.DefaultMaterial()), mgl32.Ident4())

	s.render(t)

	got := s.backend.PassByLabel("primary").Pipelines()
	want := []string{"depth-prepass-opaque", "skybox", "forward-opaque"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("expected pipelines %v, got %v", want, got)
	}
}

func TestRenderShadowPassesCullPerLight(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	s.lights.Add(light.DirectionalLight{Direction: mgl32.Vec3{0, -1, 0}, Intensity: 1, CastShadows: true})
	s.lights.Add(light.DirectionalLight{Direction: mgl32.Vec3{1, -1, 0}, Intensity: 1, CastShadows: true})
	s.lights.Add(light.DirectionalLight{Direction: mgl32.Vec3{0, -1, 1}, Intensity: 1}) // no shadows
	meshHandle := cubeMesh(t, s.meshes)
	s.objects.Add(meshHandle, material.Handle(0), mgl32.Ident4())

	s.render(t)

	labels := s.backend.PassLabels()
	if labels[0] != "shadow-0" || labels[1] != "shadow-1" {
		t.Fatalf("expected two shadow passes first, got %v", labels)
	}
	if len(labels) != 4 {
		t.Fatalf("expected 4 passes, got %v", labels)
	}
	shadow0 := s.backend.PassByLabel("shadow-0")
	if shadow0.DrawCount() != 1 {
		t.Errorf("expected 1 shadow draw, got %d", shadow0.DrawCount())
	}
	if got := shadow0.Pipelines(); len(got) != 1 || got[0] != "shadow-opaque" {
		t.Errorf("unexpected shadow pipelines: %v", got)
	}
}

func TestRenderZeroDrawShadowViewStillClears(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	s.lights.Add(light.DirectionalLight{Direction: mgl32.Vec3{0, -1, 0}, Intensity: 1, CastShadows: true})

	// No objects at all: the shadow pass must still open and end so the
	// atlas layer is cleared.
	s.render(t)

	shadowPass := s.backend.PassByLabel("shadow-0")
	if shadowPass == nil {
		t.Fatal("shadow pass was not opened")
	}
	if !shadowPass.Ended {
		t.Error("shadow pass was not ended")
	}
	if shadowPass.DrawCount() != 0 {
		t.Errorf("expected no draws, got %d", shadowPass.DrawCount())
	}
}

func TestRenderGPUModeSharesOneComputePass(t *testing.T) {
	s := newTestScene(t, ModeGPUPowered)
	s.lights.Add(light.DirectionalLight{Direction: mgl32.Vec3{0, -1, 0}, Intensity: 1, CastShadows: true})
	meshHandle := cubeMesh(t, s.meshes)
	s.objects.Add(meshHandle, material.Handle(0), mgl32.Ident4())
	s.objects.Add(meshHandle, material.Handle(0), mgl32.Translate3D(2, 0, 0))

	s.render(t)

	if len(s.backend.ComputePasses) != 1 {
		t.Fatalf("expected one culling compute pass, got %d", len(s.backend.ComputePasses))
	}
	cull := s.backend.ComputePasses[0]
	if !cull.Ended {
		t.Error("compute pass was not ended")
	}
	dispatches := 0
	for _, cmd := range cull.Commands {
		if cmd.Op == "DispatchWorkgroups" {
			dispatches++
		}
	}
	// One dispatch per cull: shadow opaque, shadow cutout is empty and
	// skipped, primary opaque. Cutout and blend candidate lists are empty.
	if dispatches != 2 {
		t.Errorf("expected 2 dispatches, got %d", dispatches)
	}

	primary := s.backend.PassByLabel("primary")
	indirect := 0
	for _, cmd := range primary.Commands {
		if cmd.Op == "DrawIndexedIndirect" {
			indirect++
		}
	}
	if indirect == 0 {
		t.Error("gpu mode must draw indirectly")
	}
}

func TestRenderCPUModeOpensNoComputePass(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	meshHandle := cubeMesh(t, s.meshes)
	s.objects.Add(meshHandle, material.Handle(0), mgl32.Ident4())

	s.render(t)

	if len(s.backend.ComputePasses) != 0 {
		t.Fatalf("cpu mode opened %d compute passes", len(s.backend.ComputePasses))
	}
	if len(s.backend.RegisteredCompute) != 0 {
		t.Fatalf("cpu mode registered %d compute pipelines", len(s.backend.RegisteredCompute))
	}
}

func TestRenderCulledObjectOutsideFrustumDrawsNothing(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	meshHandle := cubeMesh(t, s.meshes)
	s.objects.Add(meshHandle, material.Handle(0), mgl32.Translate3D(0, 0, 500))

	s.render(t)

	primary := s.backend.PassByLabel("primary")
	if got := primary.DrawCount(); got != 0 {
		t.Errorf("expected 0 draws for an off-screen object, got %d", got)
	}
}

func TestRenderReleasesFrameResources(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	meshHandle := cubeMesh(t, s.meshes)
	s.objects.Add(meshHandle, material.Handle(0), mgl32.Ident4())

	s.render(t)

	for _, buf := range s.backend.Alloc.Buffers {
		switch {
		case strings.HasSuffix(buf.Label(), "-objects"), buf.Label() == "frame-uniforms":
			if !buf.Released {
				t.Errorf("frame-scoped buffer %q was not released", buf.Label())
			}
		case strings.HasPrefix(buf.Label(), "mesh-"), buf.Label() == "materials":
			if buf.Released {
				t.Errorf("persistent buffer %q was released", buf.Label())
			}
		}
	}
}

func TestResizeRecreatesRenderTextures(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)

	if err := s.routine.Resize(1920, 1080, 1); err != nil {
		t.Fatalf("resize failed: %v", err)
	}
	if err := s.routine.Resize(1920, 1080, 1); err != nil {
		t.Fatalf("resize failed: %v", err)
	}

	// Construction plus both resizes.
	if len(s.backend.TexturesCreated) != 3 {
		t.Fatalf("expected 3 render texture allocations, got %d", len(s.backend.TexturesCreated))
	}
	if s.backend.TexturesCreated[2] != [3]uint32{1920, 1080, 1} {
		t.Errorf("unexpected final allocation: %v", s.backend.TexturesCreated[2])
	}
}

func TestResizeRebuildsPipelinesOnSampleChange(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	registered := len(s.backend.RegisteredRender)

	if err := s.routine.Resize(1280, 720, 1); err != nil {
		t.Fatalf("resize failed: %v", err)
	}
	if len(s.backend.RegisteredRender) != registered {
		t.Fatal("same-sample resize must not rebuild pipelines")
	}

	if err := s.routine.Resize(1280, 720, 4); err != nil {
		t.Fatalf("resize failed: %v", err)
	}
	if len(s.backend.RegisteredRender) != registered*2 {
		t.Fatalf("expected %d registrations after sample change, got %d", registered*2, len(s.backend.RegisteredRender))
	}

	// Rendering still works against the rebuilt pipelines.
	s.render(t)
}

func TestResizeFailedRebuildKeepsOldPasses(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)
	impl := s.routine.(*renderRoutineImpl)
	oldForward := impl.forwardPasses
	oldShadow := impl.shadowPasses

	// Let the forward set's five registrations succeed and fail the shadow
	// set's first, so the rebuild dies halfway through.
	s.backend.FailRenderRegistrationAt = len(s.backend.RegisteredRender) + 6
	if err := s.routine.Resize(1280, 720, 4); err == nil {
		t.Fatal("expected the rebuild to fail")
	}
	if impl.forwardPasses != oldForward || impl.shadowPasses != oldShadow {
		t.Fatal("a failed rebuild must keep the previous pass sets")
	}

	// The old pipelines still carry the frame.
	s.backend.FailRenderRegistrationAt = 0
	s.render(t)
}

func TestRenderAppendsOneCommandBufferPerFrame(t *testing.T) {
	s := newTestScene(t, ModeCPUPowered)

	var encoders []*wgpu.CommandBuffer
	if err := s.routine.Render(&encoders, nil); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	// The recording backend produces no real command buffer, but the frame
	// must balance begin and finish.
	if s.backend.Frames != s.backend.Finished {
		t.Errorf("unbalanced frame: %d begins, %d finishes", s.backend.Frames, s.backend.Finished)
	}

	s.render(t)
	if s.backend.Frames != 2 {
		t.Errorf("expected 2 frames, got %d", s.backend.Frames)
	}
}
