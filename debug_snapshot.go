// debug_snapshot.go - framebuffer screenshot export

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

/*
debug_snapshot.go - Screenshot Export

F12 (or a debug-trace request) dumps the most recently composited frame
to a timestamped PNG next to the working directory, scaled up by the
display's configured integer scale so the file matches what was on
screen rather than the raw 640x480 guest framebuffer.
*/

package main

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"time"

	"golang.org/x/image/draw"
)

// SaveScreenshot writes frame (RGBA, w x h) to a PNG at path, scaled by
// the given integer factor with nearest-neighbour sampling so guest
// pixels stay crisp.
func SaveScreenshot(path string, frame []byte, w, h, scale int) error {
	if len(frame) < w*h*4 {
		return fmt.Errorf("frame buffer too small for %dx%d image", w, h)
	}
	scale = ClampScale(scale)

	src := &image.RGBA{
		Pix:    frame,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}

	out := src
	if scale != 1 {
		out = image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
		draw.NearestNeighbor.Scale(out, out.Bounds(), src, src.Bounds(), draw.Src, nil)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, out)
}

// screenshotName builds a collision-resistant filename for a screenshot
// taken now.
func screenshotName(now time.Time) string {
	return fmt.Sprintf("fox32-%s.png", now.Format("20060102-150405"))
}
