package culling

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/ember-gfx/ember-go/common"
	"github.com/ember-gfx/ember-go/engine/mesh"
	"github.com/ember-gfx/ember-go/engine/renderer/binding"
	"github.com/ember-gfx/ember-go/engine/renderer/encode"
	"github.com/ember-gfx/ember-go/engine/renderer/pipeline"

	"github.com/go-gl/mathgl/mgl32"
)

func testCamera() Camera {
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 10}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	proj := common.ProjectionMatrix(mgl32.DegToRad(60), 1.0, 0.1, 100)
	viewProj := proj.Mul4(view)
	return Camera{
		View:     view,
		ViewProj: viewProj,
		Frustum:  common.FrustumFromMatrix(viewProj),
	}
}

func testMesh(indexCount uint32) *mesh.GPUMesh {
	return &mesh.GPUMesh{IndexCount: indexCount, BoundingRadius: 1}
}

func candidateAt(m *mesh.GPUMesh, handle mesh.Handle, pos mgl32.Vec3, materialIdx uint32) Candidate {
	return Candidate{
		MeshHandle:     handle,
		Mesh:           m,
		MaterialIdx:    materialIdx,
		Transform:      mgl32.Translate3D(pos.X(), pos.Y(), pos.Z()),
		BoundingRadius: m.BoundingRadius,
	}
}

func TestCPUCullerFiltersAgainstFrustum(t *testing.T) {
	culler := NewCPUCuller(&binding.Layouts{})
	alloc := encode.NewRecordingAllocator()
	cam := testCamera()
	m := testMesh(36)

	candidates := []Candidate{
		candidateAt(m, 1, mgl32.Vec3{0, 0, 0}, 1),    // dead ahead
		candidateAt(m, 1, mgl32.Vec3{500, 0, 0}, 2),  // far off to the right
		candidateAt(m, 1, mgl32.Vec3{0, 0, 200}, 3),  // behind the camera
		candidateAt(m, 1, mgl32.Vec3{2, 1, -5}, 4),   // ahead, offset
		candidateAt(m, 1, mgl32.Vec3{0, 0, -200}, 5), // past the far plane
	}

	set, err := culler.Cull(Args{Alloc: alloc, Camera: cam, ObjectLabel: "opaque", Candidates: candidates})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Release()

	if len(set.Calls) != 2 {
		t.Fatalf("expected 2 surviving draws, got %d", len(set.Calls))
	}
	for i, call := range set.Calls {
		if call.Slot != uint32(i) {
			t.Errorf("call %d: expected slot %d, got %d", i, i, call.Slot)
		}
	}
	if set.IndirectBuffer != nil || len(set.Batches) != 0 {
		t.Error("cpu cull should not produce indirect draws")
	}
}

func TestCPUCullerMatchesBruteForcePlaneTest(t *testing.T) {
	culler := NewCPUCuller(&binding.Layouts{})
	cam := testCamera()
	m := testMesh(6)

	// Deterministic pseudo-random positions spread around the frustum.
	var candidates []Candidate
	seed := uint32(12345)
	next := func() float32 {
		seed = seed*1664525 + 1013904223
		return float32(seed%2000)/100.0 - 10.0
	}
	for i := 0; i < 200; i++ {
		candidates = append(candidates, candidateAt(m, 1, mgl32.Vec3{next() * 4, next() * 4, next() * 8}, 0))
	}

	// Recompute visibility from raw plane dot products, independently of
	// the Frustum helpers the culler uses.
	expected := 0
	for _, cand := range candidates {
		center := cand.Transform.Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
		radius := cand.BoundingRadius * common.MaxScale(cand.Transform)
		inside := true
		for _, plane := range cam.Frustum.Planes {
			d := plane.Normal.X()*center.X() + plane.Normal.Y()*center.Y() + plane.Normal.Z()*center.Z() + plane.Distance
			if d < -radius {
				inside = false
				break
			}
		}
		if inside {
			expected++
		}
	}
	if expected == 0 || expected == len(candidates) {
		t.Fatalf("degenerate test distribution: %d of %d visible", expected, len(candidates))
	}

	alloc := encode.NewRecordingAllocator()
	set, err := culler.Cull(Args{Alloc: alloc, Camera: cam, ObjectLabel: "opaque", Candidates: candidates})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Release()

	if len(set.Calls) != expected {
		t.Errorf("expected %d surviving draws, got %d", expected, len(set.Calls))
	}
}

func TestCPUCullerUploadsObjectData(t *testing.T) {
	culler := NewCPUCuller(&binding.Layouts{})
	alloc := encode.NewRecordingAllocator()
	cam := testCamera()
	m := testMesh(36)

	cand := candidateAt(m, 1, mgl32.Vec3{1, 2, -3}, 7)
	set, err := culler.Cull(Args{Alloc: alloc, Camera: cam, ObjectLabel: "opaque", Candidates: []Candidate{cand}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Release()

	buf := alloc.BufferByLabel("opaque-objects")
	if buf == nil {
		t.Fatal("object buffer was not created")
	}
	want := newObjectData(cam.View, cam.ViewProj, cand.Transform, 7)
	if len(buf.Contents) != want.Size() {
		t.Fatalf("expected %d bytes of object data, got %d", want.Size(), len(buf.Contents))
	}
	gotIdx := binary.LittleEndian.Uint32(buf.Contents[176:180])
	if gotIdx != 7 {
		t.Errorf("expected material index 7, got %d", gotIdx)
	}
	wantMVP := want.ModelViewProj
	for i := 0; i < 16; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf.Contents[64+i*4 : 68+i*4]))
		if mgl32.Abs(got-wantMVP[i]) > 1e-6 {
			t.Fatalf("mvp element %d: expected %f, got %f", i, wantMVP[i], got)
		}
	}
}

func TestCPUCullerEmptyCandidates(t *testing.T) {
	culler := NewCPUCuller(&binding.Layouts{})
	alloc := encode.NewRecordingAllocator()

	set, err := culler.Cull(Args{Alloc: alloc, Camera: testCamera(), ObjectLabel: "opaque"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Release()

	if !set.Empty() {
		t.Error("expected an empty set")
	}
	if set.ObjectBuffer == nil || set.BindGroup == nil {
		t.Error("empty set must still carry a bindable object buffer")
	}
}

func TestGPUCullerRequiresComputePass(t *testing.T) {
	culler := NewGPUCuller(&binding.Layouts{}, cullTestPipeline())
	alloc := encode.NewRecordingAllocator()

	if _, err := culler.Cull(Args{Alloc: alloc, Camera: testCamera(), ObjectLabel: "opaque"}); err == nil {
		t.Fatal("expected an error without a compute pass")
	}
}

func cullTestPipeline() pipeline.Pipeline {
	return pipeline.NewPipeline("cull", pipeline.PipelineTypeCompute, pipeline.ClassCull)
}

func TestGPUCullerBatchesByMesh(t *testing.T) {
	culler := NewGPUCuller(&binding.Layouts{}, cullTestPipeline())
	alloc := encode.NewRecordingAllocator()
	pass := encode.NewRecordingComputePass("cull")
	cam := testCamera()

	cube := testMesh(36)
	quad := testMesh(6)
	candidates := []Candidate{
		candidateAt(cube, 1, mgl32.Vec3{0, 0, 0}, 0),
		candidateAt(quad, 2, mgl32.Vec3{1, 0, 0}, 0),
		candidateAt(cube, 1, mgl32.Vec3{2, 0, 0}, 0),
		candidateAt(cube, 1, mgl32.Vec3{3, 0, 0}, 0),
		candidateAt(quad, 2, mgl32.Vec3{4, 0, 0}, 0),
	}

	set, err := culler.Cull(Args{Alloc: alloc, ComputePass: pass, Camera: cam, ObjectLabel: "opaque", Candidates: candidates})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Release()

	if len(set.Batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(set.Batches))
	}
	if set.Batches[0].Mesh != cube || set.Batches[1].Mesh != quad {
		t.Error("batches must appear in order of first mesh appearance")
	}
	if set.Batches[0].Offset != 0 || set.Batches[1].Offset != 20 {
		t.Errorf("unexpected batch offsets: %d, %d", set.Batches[0].Offset, set.Batches[1].Offset)
	}

	indirect := alloc.BufferByLabel("opaque-indirect")
	if indirect == nil {
		t.Fatal("indirect buffer was not created")
	}
	// Batch 0 covers three cubes at base 0, batch 1 two quads at base 3.
	if got := binary.LittleEndian.Uint32(indirect.Contents[0:4]); got != 36 {
		t.Errorf("batch 0 index count: expected 36, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(indirect.Contents[4:8]); got != 0 {
		t.Errorf("batch 0 instance count must start at 0, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(indirect.Contents[16:20]); got != 0 {
		t.Errorf("batch 0 first instance: expected 0, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(indirect.Contents[20:24]); got != 6 {
		t.Errorf("batch 1 index count: expected 6, got %d", got)
	}
	if got := binary.LittleEndian.Uint32(indirect.Contents[36:40]); got != 3 {
		t.Errorf("batch 1 first instance: expected 3, got %d", got)
	}

	input := alloc.BufferByLabel("opaque-cull-input")
	if input == nil {
		t.Fatal("cull input buffer was not created")
	}
	if len(input.Contents) != len(candidates)*224 {
		t.Errorf("expected %d input bytes, got %d", len(candidates)*224, len(input.Contents))
	}
	// Candidate 4 is the second quad, so it belongs to batch 1.
	if got := binary.LittleEndian.Uint32(input.Contents[4*224+208 : 4*224+212]); got != 1 {
		t.Errorf("candidate 4 batch index: expected 1, got %d", got)
	}
}

func TestGPUCullerDispatchesWorkgroups(t *testing.T) {
	culler := NewGPUCuller(&binding.Layouts{}, cullTestPipeline())
	alloc := encode.NewRecordingAllocator()
	pass := encode.NewRecordingComputePass("cull")
	cam := testCamera()
	m := testMesh(36)

	var candidates []Candidate
	for i := 0; i < 130; i++ {
		candidates = append(candidates, candidateAt(m, 1, mgl32.Vec3{float32(i), 0, 0}, 0))
	}

	set, err := culler.Cull(Args{Alloc: alloc, ComputePass: pass, Camera: cam, ObjectLabel: "shadow-0", Candidates: candidates})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Release()

	var dispatch *encode.Command
	for i := range pass.Commands {
		if pass.Commands[i].Op == "DispatchWorkgroups" {
			dispatch = &pass.Commands[i]
		}
	}
	if dispatch == nil {
		t.Fatal("expected a dispatch")
	}
	// 130 objects at workgroup size 64 needs 3 groups.
	if dispatch.Detail != "x=3 y=1 z=1" {
		t.Errorf("unexpected dispatch: %s", dispatch.Detail)
	}
}

func TestGPUCullerEmptyCandidatesSkipsDispatch(t *testing.T) {
	culler := NewGPUCuller(&binding.Layouts{}, cullTestPipeline())
	alloc := encode.NewRecordingAllocator()
	pass := encode.NewRecordingComputePass("cull")

	set, err := culler.Cull(Args{Alloc: alloc, ComputePass: pass, Camera: testCamera(), ObjectLabel: "opaque"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Release()

	if !set.Empty() {
		t.Error("expected an empty set")
	}
	for _, cmd := range pass.Commands {
		if cmd.Op == "DispatchWorkgroups" {
			t.Error("empty cull must not dispatch")
		}
	}
}

func TestCulledObjectSetEncode(t *testing.T) {
	cam := testCamera()
	m := testMesh(36)
	alloc := encode.NewRecordingAllocator()

	vb, _ := alloc.CreateBufferInit("mesh-1-vertices", make([]byte, 64), 0)
	ib, _ := alloc.CreateBufferInit("mesh-1-indices", make([]byte, 144), 0)
	m.VertexBuffer = vb
	m.IndexBuffer = ib

	culler := NewCPUCuller(&binding.Layouts{})
	set, err := culler.Cull(Args{Alloc: alloc, Camera: cam, ObjectLabel: "opaque", Candidates: []Candidate{
		candidateAt(m, 1, mgl32.Vec3{0, 0, 0}, 0),
		candidateAt(m, 1, mgl32.Vec3{1, 0, 0}, 0),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer set.Release()

	pass := encode.NewRecordingRenderPass("opaque")
	set.Encode(pass)

	if got := pass.DrawCount(); got != 2 {
		t.Fatalf("expected 2 draws, got %d", got)
	}
	var draws []string
	for _, cmd := range pass.Commands {
		if cmd.Op == "DrawIndexed" {
			draws = append(draws, cmd.Detail)
		}
	}
	if draws[0] != "indices=36 instances=1 firstIndex=0 baseVertex=0 firstInstance=0" {
		t.Errorf("unexpected first draw: %s", draws[0])
	}
	if draws[1] != "indices=36 instances=1 firstIndex=0 baseVertex=0 firstInstance=1" {
		t.Errorf("unexpected second draw: %s", draws[1])
	}
}

func TestCulledObjectSetRelease(t *testing.T) {
	alloc := encode.NewRecordingAllocator()
	culler := NewGPUCuller(&binding.Layouts{}, cullTestPipeline())
	pass := encode.NewRecordingComputePass("cull")
	m := testMesh(36)

	set, err := culler.Cull(Args{Alloc: alloc, ComputePass: pass, Camera: testCamera(), ObjectLabel: "opaque", Candidates: []Candidate{
		candidateAt(m, 1, mgl32.Vec3{0, 0, 0}, 0),
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set.Release()

	for _, buf := range alloc.Buffers {
		if !buf.Released {
			t.Errorf("buffer %q was not released", buf.Label())
		}
	}
	for _, bg := range alloc.BindGroups {
		if !bg.Released {
			t.Errorf("bind group %q was not released", bg.Label())
		}
	}
}

func TestGPUStructSizes(t *testing.T) {
	cases := []struct {
		name string
		got  int
		want int
	}{
		{"GPUObjectData", (&GPUObjectData{}).Size(), 192},
		{"GPUCullObject", (&GPUCullObject{}).Size(), 224},
		{"GPUCullCamera", (&GPUCullCamera{}).Size(), 112},
		{"GPUIndirectDraw", (&GPUIndirectDraw{}).Size(), 20},
	}
	for _, tc := range cases {
		if tc.got != tc.want {
			t.Errorf("%s: expected size %d, got %d", tc.name, tc.want, tc.got)
		}
		var g interface{ Marshal() []byte }
		switch tc.name {
		case "GPUObjectData":
			g = &GPUObjectData{}
		case "GPUCullObject":
			g = &GPUCullObject{}
		case "GPUCullCamera":
			g = &GPUCullCamera{}
		case "GPUIndirectDraw":
			g = &GPUIndirectDraw{}
		}
		if len(g.Marshal()) != tc.want {
			t.Errorf("%s: marshal produced %d bytes, expected %d", tc.name, len(g.Marshal()), tc.want)
		}
	}
}
