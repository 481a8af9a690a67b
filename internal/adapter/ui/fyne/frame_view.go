package fyne

import (
	"image"
	"sync"
	"sync/atomic"

	fyneapp "fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"

	"github.com/fspecii/ace-step-ui/internal/ports"
)

// FrameView shows live frames on a canvas.Image.
//
// Present copies the frame into the buffer that is not on screen and hands it to
// the UI thread. While a hand-off is still pending, new frames are dropped, so a
// slow UI thread never queues up work.
type FrameView struct {
	image *canvas.Image

	mu      sync.Mutex
	buffers [2]*image.RGBA
	shown   int
	pending bool

	dropped atomic.Uint64
}

// NewFrameView creates an empty view.
func NewFrameView() *FrameView {
	img := canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1)))
	img.FillMode = canvas.ImageFillContain
	img.ScaleMode = canvas.ImageScaleFastest
	return &FrameView{image: img}
}

// CanvasObject returns the widget to place in a layout.
func (v *FrameView) CanvasObject() fyneapp.CanvasObject {
	return v.image
}

// Present implements ports.FrameSink.
func (v *FrameView) Present(frame *image.RGBA) {
	v.mu.Lock()
	if v.pending {
		v.mu.Unlock()
		v.dropped.Add(1)
		return
	}
	back := 1 - v.shown
	buf := v.buffers[back]
	if buf == nil || buf.Rect != frame.Rect {
		buf = image.NewRGBA(frame.Rect)
		v.buffers[back] = buf
	}
	copy(buf.Pix, frame.Pix)
	v.pending = true
	v.mu.Unlock()

	fyneapp.Do(func() {
		v.mu.Lock()
		v.shown = back
		v.pending = false
		v.mu.Unlock()

		v.image.Image = buf
		v.image.Refresh()
	})
}

// Dropped returns how many frames arrived while the UI thread was busy.
func (v *FrameView) Dropped() uint64 {
	return v.dropped.Load()
}

var _ ports.FrameSink = (*FrameView)(nil)
