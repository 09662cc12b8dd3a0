package window

// WindowBuilderOption is a functional option for configuring a window
// before it opens.
type WindowBuilderOption func(w *presentWindow)

// WithTitle sets the window title.
//
// Parameters:
//   - title: the title bar text
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithTitle(title string) WindowBuilderOption {
	return func(w *presentWindow) {
		w.title = title
	}
}

// WithSize sets the requested window size. The framebuffer the window
// actually gets may differ on high-DPI displays; Width and Height report
// the real pixel dimensions once the window is open.
//
// Parameters:
//   - width: requested width in pixels
//   - height: requested height in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(width, height uint32) WindowBuilderOption {
	return func(w *presentWindow) {
		w.width = width
		w.height = height
	}
}
