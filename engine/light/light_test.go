package light

import (
	"encoding/binary"
	"math"
	"sync"
	"testing"

	"github.com/ember-gfx/ember-go/engine/renderer/encode"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
)

// newTestManager builds a manager without touching the GPU. The layer views
// stay nil, which the recording allocator never dereferences.
func newTestManager(layers uint32) *managerImpl {
	return &managerImpl{
		mu:          &sync.RWMutex{},
		nextHandle:  1,
		lights:      make(map[Handle]DirectionalLight),
		dirty:       true,
		atlasSize:   2048,
		atlasLayers: layers,
		layerViews:  make([]*wgpu.TextureView, layers),
	}
}

// lightEntry returns the 96-byte GPU record of the light at the given index
// in the uploaded buffer, skipping the 16-byte header.
func lightEntry(t *testing.T, alloc *encode.RecordingAllocator, index int) []byte {
	t.Helper()
	buf := alloc.BufferByLabel("lights")
	if buf == nil {
		t.Fatal("expected a lights buffer upload")
	}
	offset := 16 + index*96
	if len(buf.Contents) < offset+96 {
		t.Fatalf("lights buffer too short: %d bytes, need %d", len(buf.Contents), offset+96)
	}
	return buf.Contents[offset : offset+96]
}

func TestReadyMarksNonCastingLightsWithSentinelLayer(t *testing.T) {
	m := newTestManager(4)
	m.Add(DirectionalLight{
		Direction:   mgl32.Vec3{0, -1, 0},
		Color:       mgl32.Vec3{1, 1, 1},
		Intensity:   2,
		CastShadows: true,
	})
	m.Add(DirectionalLight{
		Direction: mgl32.Vec3{-1, -1, 0},
		Color:     mgl32.Vec3{1, 0.9, 0.8},
		Intensity: 5,
	})

	alloc := encode.NewRecordingAllocator()
	if err := m.Ready(alloc, nil, mgl32.Vec3{0, 0, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	views := m.ShadowViews()
	if len(views) != 1 {
		t.Fatalf("expected 1 shadow view, got %d", len(views))
	}
	if views[0].Layer != 0 {
		t.Errorf("expected the caster on layer 0, got %d", views[0].Layer)
	}

	caster := lightEntry(t, alloc, 0)
	if got := binary.LittleEndian.Uint32(caster[92:96]); got != 0 {
		t.Errorf("expected caster shadow layer 0, got %d", got)
	}
	casterProjZero := true
	for i := 0; i < 64; i += 4 {
		if binary.LittleEndian.Uint32(caster[i:i+4]) != 0 {
			casterProjZero = false
			break
		}
	}
	if casterProjZero {
		t.Error("expected a non-zero view-projection matrix for the caster")
	}

	plain := lightEntry(t, alloc, 1)
	if got := binary.LittleEndian.Uint32(plain[92:96]); got != ShadowLayerNone {
		t.Errorf("expected sentinel shadow layer %#x, got %#x", ShadowLayerNone, got)
	}
	for i := 0; i < 64; i += 4 {
		if binary.LittleEndian.Uint32(plain[i:i+4]) != 0 {
			t.Fatalf("expected a zero view-projection matrix for the non-caster, byte %d differs", i)
		}
	}
	intensity := math.Float32frombits(binary.LittleEndian.Uint32(plain[76:80]))
	if intensity != 5 {
		t.Errorf("expected non-caster intensity 5, got %f", intensity)
	}
}

func TestReadyOverflowingCastersGetSentinelLayer(t *testing.T) {
	m := newTestManager(1)
	m.Add(DirectionalLight{Direction: mgl32.Vec3{0, -1, 0}, Intensity: 1, CastShadows: true})
	m.Add(DirectionalLight{Direction: mgl32.Vec3{1, -1, 0}, Intensity: 1, CastShadows: true})

	alloc := encode.NewRecordingAllocator()
	if err := m.Ready(alloc, nil, mgl32.Vec3{0, 0, 0}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := len(m.ShadowViews()); got != 1 {
		t.Fatalf("expected 1 shadow view with a single atlas layer, got %d", got)
	}
	overflow := lightEntry(t, alloc, 1)
	if got := binary.LittleEndian.Uint32(overflow[92:96]); got != ShadowLayerNone {
		t.Errorf("expected sentinel shadow layer %#x for the overflowing caster, got %#x", ShadowLayerNone, got)
	}
}
