// video_compositor.go - blends video sources into the display frame

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

/*
video_compositor.go - Video Compositor

Collects frames from registered VideoSource implementations at the
display refresh rate, blends them in layer order, and hands the result
to the VideoOutput backend. The fox32 machine registers a single
source (the VideoChip, which already folds its 32 overlays into one
frame), but the compositor keeps the multi-source layering so a debug
overlay or a second display card can be slotted in without touching
the refresh plumbing.

The fast 1:1 blend path splits the frame into horizontal strips blended
concurrently; scaled sources fall back to an integer-arithmetic
nearest-pixel loop.
*/

package main

import (
	"fmt"
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"
)

const (
	COMPOSITOR_REFRESH_RATE     = 60
	COMPOSITOR_REFRESH_INTERVAL = time.Second / COMPOSITOR_REFRESH_RATE
)

// VideoCompositor blends multiple video sources into a single output.
type VideoCompositor struct {
	mu          sync.Mutex
	output      VideoOutput
	sources     []VideoSource
	finalFrame  []byte
	done        chan struct{}
	stopOnce    sync.Once
	frameWidth  int
	frameHeight int
}

// NewVideoCompositor creates a compositor targeting the given output.
func NewVideoCompositor(output VideoOutput) *VideoCompositor {
	return &VideoCompositor{
		output:      output,
		done:        make(chan struct{}),
		frameWidth:  FRAMEBUFFER_WIDTH,
		frameHeight: FRAMEBUFFER_HEIGHT,
		finalFrame:  make([]byte, FRAMEBUFFER_WIDTH*FRAMEBUFFER_HEIGHT*BYTES_PER_PIXEL),
	}
}

// RegisterSource adds a video source to the compositor.
func (c *VideoCompositor) RegisterSource(source VideoSource) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, source)
	// Keep layer order stable: lower layers blend first.
	for i := len(c.sources) - 1; i > 0; i-- {
		if c.sources[i].GetLayer() < c.sources[i-1].GetLayer() {
			c.sources[i], c.sources[i-1] = c.sources[i-1], c.sources[i]
		}
	}
}

// Start begins the compositor refresh loop.
func (c *VideoCompositor) Start() error {
	go c.refreshLoop()
	return nil
}

// Stop halts the compositor refresh loop.
func (c *VideoCompositor) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}

func (c *VideoCompositor) refreshLoop() {
	ticker := time.NewTicker(COMPOSITOR_REFRESH_INTERVAL)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.composite()
		}
	}
}

// composite collects and blends frames from all enabled sources.
func (c *VideoCompositor) composite() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.finalFrame {
		c.finalFrame[i] = 0
	}

	hasContent := false
	for _, source := range c.sources {
		if !source.IsEnabled() {
			continue
		}
		frame := source.GetFrame()
		if frame == nil {
			continue
		}
		w, h := source.GetDimensions()
		hasContent = true
		c.blendFrame(frame, w, h)
		source.SignalVSync()
	}

	if hasContent && c.output != nil && c.output.IsStarted() {
		if err := c.output.UpdateFrame(c.finalFrame); err != nil {
			fmt.Printf("Compositor: Error updating frame: %v\n", err)
		}
	}
}

// FinalFrame returns a copy of the most recently composited frame, for
// the debug screenshot path.
func (c *VideoCompositor) FinalFrame() ([]byte, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]byte, len(c.finalFrame))
	copy(out, c.finalFrame)
	return out, c.frameWidth, c.frameHeight
}

// blendFrame blends a source frame into the final frame.
func (c *VideoCompositor) blendFrame(srcFrame []byte, srcW, srcH int) {
	dstW := c.frameWidth
	dstH := c.frameHeight

	if srcW <= 0 || srcH <= 0 || len(srcFrame) < srcW*srcH*BYTES_PER_PIXEL {
		return
	}
	if dstW <= 0 || dstH <= 0 || len(c.finalFrame) < dstW*dstH*BYTES_PER_PIXEL {
		return
	}

	if srcW == dstW && srcH == dstH {
		c.blendFrame1to1(srcFrame, srcW, srcH)
		return
	}
	c.blendFrameScaled(srcFrame, srcW, srcH)
}

// blendFrame1to1 is the fast path for same-size source and destination.
// Large frames split into horizontal strips blended in parallel.
func (c *VideoCompositor) blendFrame1to1(srcFrame []byte, width, height int) {
	const stripHeight = 60
	if height <= stripHeight {
		c.blendStrip(srcFrame, width, 0, height)
		return
	}

	var g errgroup.Group
	for y0 := 0; y0 < height; y0 += stripHeight {
		startY, endY := y0, min(y0+stripHeight, height)
		g.Go(func() error {
			c.blendStrip(srcFrame, width, startY, endY)
			return nil
		})
	}
	g.Wait()
}

// blendStrip blends rows [startY, endY) from srcFrame into finalFrame.
func (c *VideoCompositor) blendStrip(srcFrame []byte, width, startY, endY int) {
	rowBytes := width * BYTES_PER_PIXEL
	offset := startY * rowBytes

	for y := startY; y < endY; y++ {
		for x := 0; x < rowBytes; x += BYTES_PER_PIXEL {
			srcPixel := *(*uint32)(unsafe.Pointer(&srcFrame[offset+x]))
			if srcPixel&0xFF000000 != 0 {
				*(*uint32)(unsafe.Pointer(&c.finalFrame[offset+x])) = srcPixel
			}
		}
		offset += rowBytes
	}
}

// blendFrameScaled maps destination pixels back to source pixels with
// integer arithmetic (nearest pixel).
func (c *VideoCompositor) blendFrameScaled(srcFrame []byte, srcW, srcH int) {
	dstW := c.frameWidth
	dstH := c.frameHeight

	srcRowBytes := srcW * BYTES_PER_PIXEL
	dstOffset := 0

	for dstY := 0; dstY < dstH; dstY++ {
		srcY := dstY * srcH / dstH
		srcRowOffset := srcY * srcRowBytes

		for dstX := 0; dstX < dstW; dstX++ {
			srcX := dstX * srcW / dstW
			srcIdx := srcRowOffset + srcX*BYTES_PER_PIXEL
			dstIdx := dstOffset + dstX*BYTES_PER_PIXEL

			srcPixel := *(*uint32)(unsafe.Pointer(&srcFrame[srcIdx]))
			if srcPixel&0xFF000000 != 0 {
				*(*uint32)(unsafe.Pointer(&c.finalFrame[dstIdx])) = srcPixel
			}
		}

		dstOffset += dstW * BYTES_PER_PIXEL
	}
}
