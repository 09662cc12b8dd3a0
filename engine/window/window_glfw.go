package window

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwState holds the GLFW window and loop state.
type glfwState struct {
	window *glfw.Window
	open   bool
}

// open creates the GLFW window and registers the event callbacks.
func (w *presentWindow) open() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}

	// WebGPU owns the graphics API, so no OpenGL context.
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(int(w.width), int(w.height), w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	w.glfw = &glfwState{window: win, open: true}

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			win.SetShouldClose(true)
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			if w.onKey != nil {
				w.onKey(uint32(key), true)
			}
		case glfw.Release:
			if w.onKey != nil {
				w.onKey(uint32(key), false)
			}
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, xoff, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, xpos, ypos float64) {
		if w.onCursor != nil {
			dragging := win.GetMouseButton(glfw.MouseButtonLeft) == glfw.Press
			w.onCursor(float32(xpos), float32(ypos), dragging)
		}
	})

	// The framebuffer size callback reports pixels, which is what the
	// swapchain and render targets need. On high-DPI displays it differs
	// from the window size in screen coordinates.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width = uint32(width)
		w.height = uint32(height)
		if w.onResize != nil {
			w.onResize(w.width, w.height)
		}
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.width = uint32(fbWidth)
	w.height = uint32(fbHeight)

	return nil
}

func (w *presentWindow) running() bool {
	return w.glfw != nil && w.glfw.open && !w.glfw.window.ShouldClose()
}

func (w *presentWindow) poll() {
	glfw.PollEvents()
}

func (w *presentWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.glfw == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.glfw.window)
}

func (w *presentWindow) Close() error {
	if w.glfw == nil {
		return fmt.Errorf("window is not open")
	}
	w.glfw.open = false
	w.glfw.window.SetShouldClose(true)
	w.glfw.window.Destroy()
	glfw.Terminate()
	return nil
}
