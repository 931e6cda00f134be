// fox32_video_test.go - overlay register and compositing tests

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

package main

import (
	"encoding/binary"
	"testing"
)

func overlayPort(n, setting uint32) uint32 {
	return portOverlayStart + n + setting<<8
}

func TestOverlayRegisterReadback(t *testing.T) {
	bus := NewBus()
	v := NewVideoChip(bus)

	position := uint32(0x00640028) // y=100, x=40
	size := uint32(0x00F00020)     // h=240, w=32
	v.PortWrite(overlayPort(5, 0), position)
	v.PortWrite(overlayPort(5, 1), size)
	v.PortWrite(overlayPort(5, 2), 0x00100000)
	v.PortWrite(overlayPort(5, 3), 1)

	if got := v.PortRead(overlayPort(5, 0)); got != position {
		t.Fatalf("position readback: %08X", got)
	}
	if got := v.PortRead(overlayPort(5, 1)); got != size {
		t.Fatalf("size readback: %08X", got)
	}
	if got := v.PortRead(overlayPort(5, 2)); got != 0x00100000 {
		t.Fatalf("pointer readback: %08X", got)
	}
	if got := v.PortRead(overlayPort(5, 3)); got != 1 {
		t.Fatalf("enable readback: %d", got)
	}

	// Other overlays are untouched.
	if got := v.PortRead(overlayPort(6, 0)); got != 0 {
		t.Fatalf("neighbouring overlay dirty: %08X", got)
	}
}

func TestOverlayReadbackThroughPorts(t *testing.T) {
	bus, _, cpu := testRig(t)
	v := NewVideoChip(bus)
	bus.MapPort(portOverlayStart, portOverlayEnd, v.PortRead, v.PortWrite)

	code := asm(nil, szWord, opOUT, cdAlways, tyImm, tyImm,
		imm32(0x00640028), imm32(overlayPort(5, 0)))
	code = asm(code, szWord, opIN, cdAlways, tyReg, tyImm,
		imm32(overlayPort(5, 0)), reg(0))
	load(t, bus, 0x1000, code)

	step(t, cpu)
	step(t, cpu)
	if cpu.registers[0] != 0x00640028 {
		t.Fatalf("overlay position via IN: %08X", cpu.registers[0])
	}
}

func putPixel(bus *Bus, addr uint32, pixel uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], pixel)
	bus.WriteBlock(addr, b[:])
}

func frameAt(frame []byte, x, y int) uint32 {
	off := (y*FRAMEBUFFER_WIDTH + x) * BYTES_PER_PIXEL
	return binary.LittleEndian.Uint32(frame[off : off+4])
}

func TestBaseFramebufferRendersOpaque(t *testing.T) {
	bus := NewBus()
	v := NewVideoChip(bus)
	putPixel(bus, FRAMEBUFFER_BASE+(10*FRAMEBUFFER_WIDTH+20)*4, 0x00112233)

	frame := v.GetFrame()
	if got := frameAt(frame, 20, 10); got != 0xFF112233 {
		t.Fatalf("base pixel: %08X", got)
	}
}

func TestOverlayBlitsOverBase(t *testing.T) {
	bus := NewBus()
	v := NewVideoChip(bus)

	// 2x2 overlay at (100, 50), pixels in a scratch region.
	const ovPtr = 0x00300000
	putPixel(bus, ovPtr+0, 0xFF0000FF)
	putPixel(bus, ovPtr+4, 0xFF00FF00)
	putPixel(bus, ovPtr+8, 0x00000000) // transparent
	putPixel(bus, ovPtr+12, 0xFFFF0000)

	v.PortWrite(overlayPort(0, 0), 50<<16|100)
	v.PortWrite(overlayPort(0, 1), 2<<16|2)
	v.PortWrite(overlayPort(0, 2), ovPtr)
	v.PortWrite(overlayPort(0, 3), 1)

	frame := v.GetFrame()
	if got := frameAt(frame, 100, 50); got != 0xFF0000FF {
		t.Fatalf("overlay (0,0): %08X", got)
	}
	if got := frameAt(frame, 101, 50); got != 0xFF00FF00 {
		t.Fatalf("overlay (1,0): %08X", got)
	}
	// Transparent overlay pixel leaves the (opaque black) base visible.
	if got := frameAt(frame, 100, 51); got != 0xFF000000 {
		t.Fatalf("transparent pixel: %08X", got)
	}
	if got := frameAt(frame, 101, 51); got != 0xFFFF0000 {
		t.Fatalf("overlay (1,1): %08X", got)
	}
}

func TestDisabledOverlayIsInvisible(t *testing.T) {
	bus := NewBus()
	v := NewVideoChip(bus)
	const ovPtr = 0x00300000
	putPixel(bus, ovPtr, 0xFFFFFFFF)
	v.PortWrite(overlayPort(3, 0), 0)
	v.PortWrite(overlayPort(3, 1), 1<<16|1)
	v.PortWrite(overlayPort(3, 2), ovPtr)

	frame := v.GetFrame()
	if got := frameAt(frame, 0, 0); got != 0xFF000000 {
		t.Fatalf("disabled overlay drew: %08X", got)
	}
}

func TestOverlayClipsAtDisplayEdge(t *testing.T) {
	bus := NewBus()
	v := NewVideoChip(bus)
	const ovPtr = 0x00300000
	for i := uint32(0); i < 4; i++ {
		putPixel(bus, ovPtr+i*4, 0xFFABCDEF)
	}
	// 2x2 overlay hanging off the bottom-right corner.
	v.PortWrite(overlayPort(1, 0), uint32(FRAMEBUFFER_HEIGHT-1)<<16|uint32(FRAMEBUFFER_WIDTH-1))
	v.PortWrite(overlayPort(1, 1), 2<<16|2)
	v.PortWrite(overlayPort(1, 2), ovPtr)
	v.PortWrite(overlayPort(1, 3), 1)

	frame := v.GetFrame() // must not panic
	if got := frameAt(frame, FRAMEBUFFER_WIDTH-1, FRAMEBUFFER_HEIGHT-1); got != 0xFFABCDEF {
		t.Fatalf("corner pixel: %08X", got)
	}
}

func TestVideoSourceContract(t *testing.T) {
	bus := NewBus()
	v := NewVideoChip(bus)

	if v.IsEnabled() {
		t.Fatal("chip enabled before Start")
	}
	v.Start()
	if !v.IsEnabled() {
		t.Fatal("chip not enabled after Start")
	}
	w, h := v.GetDimensions()
	if w != FRAMEBUFFER_WIDTH || h != FRAMEBUFFER_HEIGHT {
		t.Fatalf("dimensions %dx%d", w, h)
	}
	v.SignalVSync()
	v.SignalVSync()
	if v.FramesPresented() != 2 {
		t.Fatalf("frames presented: %d", v.FramesPresented())
	}
}
