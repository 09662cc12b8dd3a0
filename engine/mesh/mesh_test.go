package mesh

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/ember-gfx/ember-go/engine/renderer/encode"
)

func triangleVertices() []GPUVertex {
	return []GPUVertex{
		{Position: [3]float32{0, 0, 0}, Color: [4]float32{1, 1, 1, 1}},
		{Position: [3]float32{1, 0, 0}, Color: [4]float32{1, 1, 1, 1}},
		{Position: [3]float32{0, 2, 0}, Color: [4]float32{1, 1, 1, 1}},
	}
}

func TestAddRejectsEmptyMeshes(t *testing.T) {
	m := NewManager()
	if _, err := m.Add(nil, []uint32{0, 1, 2}); err == nil {
		t.Error("expected an error for empty vertices")
	}
	if _, err := m.Add(triangleVertices(), nil); err == nil {
		t.Error("expected an error for empty indices")
	}
}

func TestBoundingRadiusAvailableBeforeUpload(t *testing.T) {
	m := NewManager()
	h, err := m.Add(triangleVertices(), []uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Mesh(h) != nil {
		t.Error("mesh must not be visible before Ready")
	}
	// The farthest vertex is (0, 2, 0).
	if got := m.BoundingRadius(h); got != 2 {
		t.Errorf("expected radius 2, got %f", got)
	}
	if got := m.BoundingRadius(Handle(99)); got != 0 {
		t.Errorf("expected radius 0 for unknown handle, got %f", got)
	}
}

func TestReadyUploadsStagedMeshes(t *testing.T) {
	m := NewManager()
	alloc := encode.NewRecordingAllocator()
	h, err := m.Add(triangleVertices(), []uint32{0, 1, 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Ready(alloc); err != nil {
		t.Fatalf("ready failed: %v", err)
	}

	uploaded := m.Mesh(h)
	if uploaded == nil {
		t.Fatal("mesh was not uploaded")
	}
	if uploaded.IndexCount != 3 {
		t.Errorf("expected index count 3, got %d", uploaded.IndexCount)
	}

	vb := alloc.BufferByLabel("mesh-1-vertices")
	if vb == nil {
		t.Fatal("vertex buffer was not created")
	}
	if len(vb.Contents) != 3*64 {
		t.Errorf("expected %d vertex bytes, got %d", 3*64, len(vb.Contents))
	}
	// Second vertex starts at byte 64; its position x is 1.
	x := math.Float32frombits(binary.LittleEndian.Uint32(vb.Contents[64:68]))
	if x != 1 {
		t.Errorf("expected second vertex x 1, got %f", x)
	}

	ib := alloc.BufferByLabel("mesh-1-indices")
	if ib == nil {
		t.Fatal("index buffer was not created")
	}
	if len(ib.Contents) != 12 {
		t.Errorf("expected 12 index bytes, got %d", len(ib.Contents))
	}
	if got := binary.LittleEndian.Uint32(ib.Contents[8:12]); got != 2 {
		t.Errorf("expected third index 2, got %d", got)
	}

	// A second Ready has nothing left to upload.
	buffers := len(alloc.Buffers)
	if err := m.Ready(alloc); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	if len(alloc.Buffers) != buffers {
		t.Error("second Ready must not re-upload")
	}
}

func TestVertexMarshalSizeAndLayout(t *testing.T) {
	v := GPUVertex{
		Position: [3]float32{1, 2, 3},
		Normal:   [3]float32{0, 1, 0},
		TexCoord: [2]float32{0.5, 0.25},
		Color:    [4]float32{1, 0, 0, 1},
		Tangent:  [4]float32{1, 0, 0, 1},
	}
	data := v.Marshal()
	if len(data) != 64 {
		t.Fatalf("expected 64 bytes, got %d", len(data))
	}
	// TexCoord u sits at offset 24.
	u := math.Float32frombits(binary.LittleEndian.Uint32(data[24:28]))
	if u != 0.5 {
		t.Errorf("expected u 0.5, got %f", u)
	}

	layouts := VertexBufferLayout()
	if len(layouts) != 1 {
		t.Fatalf("expected one interleaved layout, got %d", len(layouts))
	}
	if layouts[0].ArrayStride != 64 {
		t.Errorf("expected stride 64, got %d", layouts[0].ArrayStride)
	}
	if len(layouts[0].Attributes) != 5 {
		t.Errorf("expected 5 attributes, got %d", len(layouts[0].Attributes))
	}
}

func TestComputeBoundingRadius(t *testing.T) {
	vertices := []GPUVertex{
		{Position: [3]float32{0, 0, 0}},
		{Position: [3]float32{3, 4, 0}}, // length 5
		{Position: [3]float32{-1, -1, -1}},
	}
	if got := ComputeBoundingRadius(vertices); got != 5 {
		t.Errorf("expected radius 5, got %f", got)
	}
	if got := ComputeBoundingRadius(nil); got != 0 {
		t.Errorf("expected radius 0 for no vertices, got %f", got)
	}
}

func TestReleaseFreesBuffers(t *testing.T) {
	m := NewManager()
	alloc := encode.NewRecordingAllocator()
	if _, err := m.Add(triangleVertices(), []uint32{0, 1, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.Ready(alloc); err != nil {
		t.Fatalf("ready failed: %v", err)
	}
	m.Release()
	for _, buf := range alloc.Buffers {
		if !buf.Released {
			t.Errorf("buffer %q was not released", buf.Label())
		}
	}
}
