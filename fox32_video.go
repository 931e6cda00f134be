// fox32_video.go - framebuffer and overlay compositing source

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

/*
fox32_video.go - Framebuffer and Overlays

The display is a 640x480 RGBA framebuffer living in ordinary RAM at
0x02000000, with up to 32 overlays layered on top of it. An overlay is
a sprite-like rectangle with its own framebuffer pointer, position,
size and enable bit, each programmed through four ports:

    0x800000nn + (s << 8)   overlay nn, setting s
        s=0  position, packed (y << 16) | x
        s=1  size, packed (height << 16) | width
        s=2  framebuffer pointer (RAM address of the overlay's pixels)
        s=3  enable (nonzero = visible)

VideoChip renders one complete frame per compositor tick: the base
framebuffer copied out of RAM with alpha forced opaque, then each
enabled overlay blitted over it in slot order, clipped to the display
and skipping fully transparent pixels so cursor-shaped overlays don't
stamp a black rectangle. The rendered frame is handed to the video
compositor as a VideoSource.
*/

package main

import (
	"encoding/binary"
	"sync"
	"sync/atomic"
)

const (
	FRAMEBUFFER_WIDTH  = 640
	FRAMEBUFFER_HEIGHT = 480
	FRAMEBUFFER_BASE   = 0x02000000
	BYTES_PER_PIXEL    = 4

	overlayCount     = 32
	portOverlayStart = 0x80000000
	portOverlayEnd   = 0x8000031F
)

// Overlay is one compositable surface: a rectangle of RAM-resident
// pixels positioned over the base framebuffer.
type Overlay struct {
	x, y          uint32
	width, height uint32
	pointer       uint32
	enabled       bool
}

// VideoChip owns the 32 overlay registers and renders the composited
// display image out of bus RAM. It implements VideoSource; the
// compositor pulls one frame per tick.
type VideoChip struct {
	mu       sync.Mutex
	overlays [overlayCount]Overlay
	frame    []byte
	scratch  []byte
	bus      *Bus
	enabled  atomic.Bool
	frames   atomic.Uint64
}

func NewVideoChip(bus *Bus) *VideoChip {
	return &VideoChip{
		bus:   bus,
		frame: make([]byte, FRAMEBUFFER_WIDTH*FRAMEBUFFER_HEIGHT*BYTES_PER_PIXEL),
	}
}

// Start makes the chip visible to the compositor. Stop hides it again;
// a stopped chip still accepts port traffic.
func (v *VideoChip) Start() { v.enabled.Store(true) }
func (v *VideoChip) Stop()  { v.enabled.Store(false) }

// PortRead implements IN for the overlay port range.
func (v *VideoChip) PortRead(port uint32) uint32 {
	number := port & 0x000000FF
	setting := (port & 0x0000FF00) >> 8
	if number >= overlayCount {
		return 0
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	ov := &v.overlays[number]
	switch setting {
	case 0x00:
		return (ov.y << 16) | ov.x
	case 0x01:
		return (ov.height << 16) | ov.width
	case 0x02:
		return ov.pointer
	case 0x03:
		if ov.enabled {
			return 1
		}
		return 0
	}
	return 0
}

// PortWrite implements OUT for the overlay port range.
func (v *VideoChip) PortWrite(port uint32, value uint32) {
	number := port & 0x000000FF
	setting := (port & 0x0000FF00) >> 8
	if number >= overlayCount {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	ov := &v.overlays[number]
	switch setting {
	case 0x00:
		ov.x = value & 0x0000FFFF
		ov.y = (value & 0xFFFF0000) >> 16
	case 0x01:
		ov.width = value & 0x0000FFFF
		ov.height = (value & 0xFFFF0000) >> 16
	case 0x02:
		ov.pointer = value
	case 0x03:
		ov.enabled = value != 0
	}
}

// GetFrame renders and returns the current display image: base
// framebuffer plus enabled overlays. The returned slice is reused
// between calls; the compositor consumes it before the next tick.
func (v *VideoChip) GetFrame() []byte {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.renderBase()
	for i := range v.overlays {
		if v.overlays[i].enabled {
			v.renderOverlay(&v.overlays[i])
		}
	}
	return v.frame
}

func (v *VideoChip) renderBase() {
	v.bus.ReadBlockInto(FRAMEBUFFER_BASE, v.frame)
	// Force the base layer opaque: guest software treats the display as
	// RGB and leaves alpha at whatever the last store happened to carry.
	for i := 0; i < len(v.frame); i += BYTES_PER_PIXEL {
		v.frame[i+3] = 0xFF
	}
}

// renderOverlay blits one overlay over the base image, clipped to the
// display. Fully transparent pixels (zero alpha) are skipped so a
// cursor overlay shows its shape rather than its bounding box.
func (v *VideoChip) renderOverlay(ov *Overlay) {
	w, h := int(ov.width), int(ov.height)
	if w <= 0 || h <= 0 {
		return
	}
	need := w * h * BYTES_PER_PIXEL
	if cap(v.scratch) < need {
		v.scratch = make([]byte, need)
	}
	src := v.scratch[:need]
	v.bus.ReadBlockInto(ov.pointer, src)
	for sy := 0; sy < h; sy++ {
		dy := int(ov.y) + sy
		if dy < 0 || dy >= FRAMEBUFFER_HEIGHT {
			continue
		}
		srcRow := sy * w * BYTES_PER_PIXEL
		dstRow := dy * FRAMEBUFFER_WIDTH * BYTES_PER_PIXEL
		for sx := 0; sx < w; sx++ {
			dx := int(ov.x) + sx
			if dx < 0 || dx >= FRAMEBUFFER_WIDTH {
				continue
			}
			srcOff := srcRow + sx*BYTES_PER_PIXEL
			pixel := binary.LittleEndian.Uint32(src[srcOff : srcOff+4])
			if pixel&0xFF000000 == 0 {
				continue
			}
			dstOff := dstRow + dx*BYTES_PER_PIXEL
			binary.LittleEndian.PutUint32(v.frame[dstOff:dstOff+4], pixel)
		}
	}
}

// IsEnabled reports whether the chip should be composited this tick.
func (v *VideoChip) IsEnabled() bool { return v.enabled.Load() }

// GetLayer returns the compositing z-order; the machine has a single
// video source, so it sits at layer zero.
func (v *VideoChip) GetLayer() int { return 0 }

// GetDimensions returns the fixed display size.
func (v *VideoChip) GetDimensions() (int, int) {
	return FRAMEBUFFER_WIDTH, FRAMEBUFFER_HEIGHT
}

// SignalVSync is called by the compositor after each frame is sent to
// the output. The VSYNC interrupt itself is paced by the machine's own
// tick loop, which owns the CPU; this just counts presented frames.
func (v *VideoChip) SignalVSync() {
	v.frames.Add(1)
}

// FramesPresented reports how many frames the compositor has consumed.
func (v *VideoChip) FramesPresented() uint64 {
	return v.frames.Load()
}
