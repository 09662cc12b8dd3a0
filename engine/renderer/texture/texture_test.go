package texture

import (
	"bytes"
	"image"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/ember-gfx/ember-go/common"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"go.uber.org/zap"
)

// newTestManager builds a manager without touching the GPU. Release and the
// staging paths never dereference the nil device or textures.
func newTestManager() *managerImpl {
	return &managerImpl{
		mu:         &sync.Mutex{},
		logger:     zap.NewNop(),
		layerSize:  2,
		capacity:   4,
		decodePool: worker.NewDynamicWorkerPool(1, 4, 50*time.Millisecond),
	}
}

// encodePNG renders a solid square of the given edge length as PNG bytes.
func encodePNG(t *testing.T, size int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for i := range img.Pix {
		img.Pix[i] = 0xFF
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return buf.Bytes()
}

func TestSetBackgroundRejectsShortFaces(t *testing.T) {
	m := newTestManager()
	faces := [6][]byte{{0xFF, 0xFF, 0xFF, 0xFF}}
	if err := m.SetBackground(faces, 1); err == nil {
		t.Fatal("expected an error for undersized cube faces")
	}
}

func TestClearBackgroundDropsTheStagedCube(t *testing.T) {
	m := newTestManager()
	var faces [6][]byte
	for i := range faces {
		faces[i] = []byte{0xFF, 0xFF, 0xFF, 0xFF}
	}
	if err := m.SetBackground(faces, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.HasBackground() {
		t.Fatal("expected a background after SetBackground")
	}

	m.ClearBackground()

	if m.HasBackground() {
		t.Error("expected no background after ClearBackground")
	}
	if m.pendingCube != nil {
		t.Error("expected the staged cube to be discarded")
	}
}

func TestReleaseDrainsPendingDecodes(t *testing.T) {
	m := newTestManager()
	if _, err := m.Add(common.ImportedTexture{Name: "white", Data: encodePNG(t, 2)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.Release()

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.pendingLayers) != 1 {
		t.Fatalf("expected Release to wait for 1 staged decode, got %d", len(m.pendingLayers))
	}
	if m.pendingLayers[0].width != 2 || m.pendingLayers[0].height != 2 {
		t.Errorf("expected a 2x2 staged layer, got %dx%d", m.pendingLayers[0].width, m.pendingLayers[0].height)
	}
}
