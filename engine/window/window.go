// Package window provides the presentation window the render routine
// draws into. It wraps GLFW behind a small interface and produces the
// WebGPU surface descriptor for the swapchain.
package window

import (
	"runtime"

	"github.com/cogentcore/webgpu/wgpu"
)

// Window owns the OS window and its event loop.
type Window interface {
	// SetFrameCallback sets the function called once per loop iteration,
	// after events have been polled. The render routine's frame submission
	// belongs here.
	//
	// Parameters:
	//   - callback: function to call each frame, or nil to disable
	SetFrameCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer
	// size changes. Dimensions are in pixels, not screen coordinates.
	//
	// Parameters:
	//   - callback: function receiving the new width and height in pixels
	SetResizeCallback(callback func(width, height uint32))

	// SetScrollCallback sets the callback for mouse wheel events.
	//
	// Parameters:
	//   - callback: function receiving the vertical scroll delta
	SetScrollCallback(callback func(delta float32))

	// SetKeyCallback sets the callback for key press and release events.
	//
	// Parameters:
	//   - callback: function receiving the key code and whether the key went down
	SetKeyCallback(callback func(keyCode uint32, pressed bool))

	// SetCursorCallback sets the callback for cursor movement, together
	// with whether the left mouse button is held. Orbit controls hang off
	// this.
	//
	// Parameters:
	//   - callback: function receiving the cursor position and drag state
	SetCursorCallback(callback func(x, y float32, dragging bool))

	// SurfaceDescriptor returns the platform surface descriptor for
	// creating the WebGPU surface, or nil before the window exists.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// Run blocks in the event loop until the window closes, invoking the
	// frame callback each iteration.
	Run()

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - uint32: width in pixels
	Width() uint32

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - uint32: height in pixels
	Height() uint32

	// Close destroys the window and shuts the platform layer down.
	//
	// Returns:
	//   - error: an error if the window was never opened
	Close() error
}

// presentWindow is the implementation of the Window interface.
type presentWindow struct {
	title  string
	width  uint32
	height uint32

	glfw *glfwState

	onFrame  func()
	onResize func(width, height uint32)
	onScroll func(delta float32)
	onKey    func(keyCode uint32, pressed bool)
	onCursor func(x, y float32, dragging bool)
}

var _ Window = &presentWindow{}

// NewWindow opens the OS window. Must be called from the main goroutine;
// the calling goroutine is locked to its OS thread for the window's
// lifetime.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the opened window
//   - error: an error if the platform layer failed to initialize
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &presentWindow{
		title:  "ember",
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	runtime.LockOSThread()
	if err := w.open(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *presentWindow) SetFrameCallback(callback func()) {
	w.onFrame = callback
}

func (w *presentWindow) SetResizeCallback(callback func(width, height uint32)) {
	w.onResize = callback
}

func (w *presentWindow) SetScrollCallback(callback func(delta float32)) {
	w.onScroll = callback
}

func (w *presentWindow) SetKeyCallback(callback func(keyCode uint32, pressed bool)) {
	w.onKey = callback
}

func (w *presentWindow) SetCursorCallback(callback func(x, y float32, dragging bool)) {
	w.onCursor = callback
}

func (w *presentWindow) Run() {
	for w.running() {
		w.poll()
		if w.onFrame != nil {
			w.onFrame()
		}
		runtime.Gosched()
	}
}

func (w *presentWindow) Width() uint32 {
	return w.width
}

func (w *presentWindow) Height() uint32 {
	return w.height
}
