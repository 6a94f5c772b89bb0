// Package input handles SDL2 input events.
package input

import (
	"github.com/veandco/go-sdl2/sdl"
)

// Input collects the events of one frame.
type Input struct {
	// Quit is set by a window close or the Escape key.
	Quit bool
	// Resized is set when the window size changed this frame.
	Resized bool
	// DragX and DragY sum the mouse motion while the left button is held.
	DragX, DragY float32
	// Scroll sums the vertical wheel motion, positive away from the user.
	Scroll float32

	pressed []sdl.Keycode
}

// New creates a new input handler.
func New() *Input {
	return &Input{
		pressed: make([]sdl.Keycode, 0, 8),
	}
}

// Update polls SDL events for this frame.
// Returns true if the viewer should quit.
func (i *Input) Update() bool {
	i.reset()
	for event := sdl.PollEvent(); event != nil; event = sdl.PollEvent() {
		i.handle(event)
	}
	return i.Quit
}

func (i *Input) reset() {
	i.Resized = false
	i.DragX, i.DragY, i.Scroll = 0, 0, 0
	i.pressed = i.pressed[:0]
}

func (i *Input) handle(event sdl.Event) {
	switch e := event.(type) {
	case *sdl.QuitEvent:
		i.Quit = true

	case *sdl.WindowEvent:
		if e.Event == sdl.WINDOWEVENT_SIZE_CHANGED {
			i.Resized = true
		}

	case *sdl.KeyboardEvent:
		if e.Type != sdl.KEYDOWN || e.Repeat != 0 {
			return
		}
		i.pressed = append(i.pressed, e.Keysym.Sym)
		if e.Keysym.Sym == sdl.K_ESCAPE {
			i.Quit = true
		}

	case *sdl.MouseMotionEvent:
		if e.State&sdl.ButtonLMask() != 0 {
			i.DragX += float32(e.XRel)
			i.DragY += float32(e.YRel)
		}

	case *sdl.MouseWheelEvent:
		i.Scroll += float32(e.Y)
	}
}

// IsKeyPressed checks if a key went down this frame.
func (i *Input) IsKeyPressed(key sdl.Keycode) bool {
	for _, k := range i.pressed {
		if k == key {
			return true
		}
	}
	return false
}
