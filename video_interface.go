// video_interface.go - video output and input interfaces

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

/*
video_interface.go - Video Output Interface

The compositor renders machine frames; a VideoOutput puts them on a
host display. Exactly one backend is compiled in per build: the ebiten
windowed backend by default, or a frame-counting stub under the
headless build tag. The windowed backend is also where host input
enters the machine, forwarded through an InputSink so the backend
stays ignorant of the device model on the other side.
*/

package main

import "fmt"

// VideoError provides error context for video operations.
type VideoError struct {
	Operation string // What operation was being attempted
	Details   string // Additional error context
	Err       error  // Underlying error if any
}

func (e *VideoError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("video %s failed: %s: %v", e.Operation, e.Details, e.Err)
	}
	return fmt.Sprintf("video %s failed: %s", e.Operation, e.Details)
}

// DisplayConfig contains hardware-independent display configuration.
type DisplayConfig struct {
	Width       int
	Height      int
	Scale       int // Integer scaling factor for output
	RefreshRate int // Target refresh rate in Hz
	Filtering   int // 0 = nearest pixel, 1 = linear
	Fullscreen  bool
}

func ClampScale(s int) int {
	if s < 1 {
		return 1
	}
	if s > 4 {
		return 4
	}
	return s
}

// VideoOutput is the minimal interface a display backend implements.
type VideoOutput interface {
	Start() error
	Stop() error
	Close() error
	IsStarted() bool

	SetDisplayConfig(config DisplayConfig) error
	GetDisplayConfig() DisplayConfig
	UpdateFrame(buffer []byte) error // raw RGBA pixels

	GetFrameCount() uint64
	GetRefreshRate() int
}

// VideoSource is a device that produces frames for the compositor.
type VideoSource interface {
	GetFrame() []byte          // current rendered frame (nil if disabled)
	IsEnabled() bool           // whether this source is active
	GetLayer() int             // z-order for compositing (higher = on top)
	GetDimensions() (w, h int) // frame dimensions
	SignalVSync()              // called by compositor after frame sent
}

// InputSink receives host input events from a windowed video backend.
// The machine implements it and routes each event to the keyboard,
// mouse or serial device.
type InputSink interface {
	Key(hostKey int, pressed bool)
	MouseMove(dx, dy int)
	MouseButton(pressed bool)
	Paste(text string)
	Screenshot()
}

// InputCapable is implemented by video outputs that can forward host
// input events.
type InputCapable interface {
	SetInputSink(sink InputSink)
}

// CloseNotifier is implemented by video outputs whose window can be
// closed by the user; the handler asks the machine to shut down.
type CloseNotifier interface {
	SetCloseHandler(fn func())
}

// Predefined video backend types
const (
	VIDEO_BACKEND_EBITEN = iota // Pure Go Ebiten backend
)

// NewVideoOutput creates a new video output instance using the specified backend
func NewVideoOutput(backend int) (VideoOutput, error) {
	switch backend {
	case VIDEO_BACKEND_EBITEN:
		return NewEbitenOutput()
	}
	return nil, &VideoError{
		Operation: "backend creation",
		Details:   fmt.Sprintf("unknown backend type: %d", backend),
	}
}
