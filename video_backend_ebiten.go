//go:build !headless

// video_backend_ebiten.go - ebiten windowed video backend

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

/*
video_backend_ebiten.go - Ebiten Video Backend

Hosts the composited display in an ebiten window and feeds host input
back into the machine: key press/release pairs (translated to the
machine's host-key identifiers), mouse motion deltas and left-button
transitions, and Ctrl+Shift+V clipboard paste into the serial line.

F11 toggles fullscreen, F12 dumps a screenshot; both are host-side
chords that never reach the guest.
*/

package main

import (
	"fmt"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"golang.design/x/clipboard"
)

type EbitenOutput struct {
	running      bool
	window       *ebiten.Image
	width        int
	height       int
	fullscreen   bool
	scale        int
	filtering    int
	frameBuffer  []byte
	bufferMutex  sync.RWMutex
	frameCount   uint64
	refreshRate  int
	vsyncChan    chan struct{}
	inputSink    InputSink
	closeHandler func()

	lastCursorX int
	lastCursorY int
	haveCursor  bool

	clipboardOnce sync.Once
	clipboardOK   bool
}

func NewEbitenOutput() (VideoOutput, error) {
	return &EbitenOutput{
		width:       FRAMEBUFFER_WIDTH,
		height:      FRAMEBUFFER_HEIGHT,
		scale:       1,
		frameBuffer: make([]byte, FRAMEBUFFER_WIDTH*FRAMEBUFFER_HEIGHT*BYTES_PER_PIXEL),
		refreshRate: 60,
		vsyncChan:   make(chan struct{}, 1),
	}, nil
}

func (eo *EbitenOutput) Start() error {
	if eo.running {
		return nil
	}
	eo.running = true
	ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
	ebiten.SetWindowTitle("fox32 emulator")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetRunnableOnUnfocused(true)
	ebiten.SetVsyncEnabled(true)
	ebiten.SetCursorMode(ebiten.CursorModeHidden)
	if eo.fullscreen {
		ebiten.SetFullscreen(true)
	}

	go func() {
		if err := ebiten.RunGame(eo); err != nil {
			fmt.Printf("Ebiten error: %v\n", err)
		}
	}()

	// Wait for first Draw call to ensure ebiten is ready
	<-eo.vsyncChan
	return nil
}

func (eo *EbitenOutput) Stop() error {
	eo.running = false
	return nil
}

func (eo *EbitenOutput) Close() error {
	return eo.Stop()
}

func (eo *EbitenOutput) IsStarted() bool {
	return eo.running
}

func (eo *EbitenOutput) UpdateFrame(data []byte) error {
	eo.bufferMutex.Lock()
	copy(eo.frameBuffer, data)
	eo.bufferMutex.Unlock()
	return nil
}

func (eo *EbitenOutput) SetDisplayConfig(config DisplayConfig) error {
	eo.bufferMutex.Lock()
	defer eo.bufferMutex.Unlock()
	eo.scale = ClampScale(config.Scale)
	eo.filtering = config.Filtering
	eo.fullscreen = config.Fullscreen
	if eo.running {
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
		}
	}
	return nil
}

func (eo *EbitenOutput) GetDisplayConfig() DisplayConfig {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return DisplayConfig{
		Width:       eo.width,
		Height:      eo.height,
		Scale:       eo.scale,
		Filtering:   eo.filtering,
		RefreshRate: eo.refreshRate,
		Fullscreen:  eo.fullscreen,
	}
}

func (eo *EbitenOutput) GetFrameCount() uint64 {
	return eo.frameCount
}

func (eo *EbitenOutput) GetRefreshRate() int {
	return eo.refreshRate
}

func (eo *EbitenOutput) SetInputSink(sink InputSink) {
	eo.bufferMutex.Lock()
	eo.inputSink = sink
	eo.bufferMutex.Unlock()
}

func (eo *EbitenOutput) SetCloseHandler(fn func()) {
	eo.bufferMutex.Lock()
	eo.closeHandler = fn
	eo.bufferMutex.Unlock()
}

// ebitenKeys maps ebiten key constants to the machine's host-key
// identifiers. Keys outside this table never reach the guest.
var ebitenKeys = map[ebiten.Key]int{
	ebiten.KeyA: keyA, ebiten.KeyB: keyB, ebiten.KeyC: keyC, ebiten.KeyD: keyD,
	ebiten.KeyE: keyE, ebiten.KeyF: keyF, ebiten.KeyG: keyG, ebiten.KeyH: keyH,
	ebiten.KeyI: keyI, ebiten.KeyJ: keyJ, ebiten.KeyK: keyK, ebiten.KeyL: keyL,
	ebiten.KeyM: keyM, ebiten.KeyN: keyN, ebiten.KeyO: keyO, ebiten.KeyP: keyP,
	ebiten.KeyQ: keyQ, ebiten.KeyR: keyR, ebiten.KeyS: keyS, ebiten.KeyT: keyT,
	ebiten.KeyU: keyU, ebiten.KeyV: keyV, ebiten.KeyW: keyW, ebiten.KeyX: keyX,
	ebiten.KeyY: keyY, ebiten.KeyZ: keyZ,
	ebiten.KeyDigit0: key0, ebiten.KeyDigit1: key1, ebiten.KeyDigit2: key2,
	ebiten.KeyDigit3: key3, ebiten.KeyDigit4: key4, ebiten.KeyDigit5: key5,
	ebiten.KeyDigit6: key6, ebiten.KeyDigit7: key7, ebiten.KeyDigit8: key8,
	ebiten.KeyDigit9: key9,
	ebiten.KeyEnter: keyEnter, ebiten.KeySpace: keySpace,
	ebiten.KeyBackspace: keyBackspace, ebiten.KeyTab: keyTab,
	ebiten.KeyEscape: keyEscape,
	ebiten.KeyArrowLeft: keyLeft, ebiten.KeyArrowRight: keyRight,
	ebiten.KeyArrowUp: keyUp, ebiten.KeyArrowDown: keyDown,
	ebiten.KeyShiftLeft: keyLeftShift, ebiten.KeyShiftRight: keyRightShift,
	ebiten.KeyControlLeft: keyLeftControl, ebiten.KeyAltLeft: keyAlt,
}

func (eo *EbitenOutput) sink() InputSink {
	eo.bufferMutex.RLock()
	defer eo.bufferMutex.RUnlock()
	return eo.inputSink
}

func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() || !eo.running {
		eo.bufferMutex.RLock()
		closeHandler := eo.closeHandler
		eo.bufferMutex.RUnlock()
		if closeHandler != nil {
			closeHandler()
		}
		return ebiten.Termination
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.bufferMutex.Lock()
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
		if !eo.fullscreen {
			ebiten.SetWindowSize(eo.width*eo.scale, eo.height*eo.scale)
		}
		eo.bufferMutex.Unlock()
	}

	sink := eo.sink()
	if sink == nil {
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyF12) {
		sink.Screenshot()
	}

	ctrl := ebiten.IsKeyPressed(ebiten.KeyControlLeft) || ebiten.IsKeyPressed(ebiten.KeyControlRight)
	shift := ebiten.IsKeyPressed(ebiten.KeyShiftLeft) || ebiten.IsKeyPressed(ebiten.KeyShiftRight)
	if ctrl && shift && inpututil.IsKeyJustPressed(ebiten.KeyV) {
		eo.handleClipboardPaste(sink)
		return nil
	}

	for _, k := range inpututil.AppendJustPressedKeys(nil) {
		if hostKey, ok := ebitenKeys[k]; ok {
			sink.Key(hostKey, true)
		}
	}
	for _, k := range inpututil.AppendJustReleasedKeys(nil) {
		if hostKey, ok := ebitenKeys[k]; ok {
			sink.Key(hostKey, false)
		}
	}

	eo.handleMouse(sink)
	return nil
}

func (eo *EbitenOutput) handleMouse(sink InputSink) {
	x, y := ebiten.CursorPosition()
	if eo.haveCursor {
		dx, dy := x-eo.lastCursorX, y-eo.lastCursorY
		if dx != 0 || dy != 0 {
			sink.MouseMove(dx, dy)
		}
	}
	eo.lastCursorX, eo.lastCursorY = x, y
	eo.haveCursor = true

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		sink.MouseButton(true)
	}
	if inpututil.IsMouseButtonJustReleased(ebiten.MouseButtonLeft) {
		sink.MouseButton(false)
	}
}

func normalizePasteText(raw []byte) []byte {
	norm := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\r' {
			if i+1 < len(raw) && raw[i+1] == '\n' {
				i++
			}
			norm = append(norm, '\n')
			continue
		}
		norm = append(norm, raw[i])
	}
	return norm
}

func capPasteText(raw []byte, max int) []byte {
	if len(raw) <= max {
		return raw
	}
	return raw[:max]
}

func (eo *EbitenOutput) handleClipboardPaste(sink InputSink) {
	eo.clipboardOnce.Do(func() {
		eo.clipboardOK = clipboard.Init() == nil
	})
	if !eo.clipboardOK {
		return
	}
	data := clipboard.Read(clipboard.FmtText)
	if len(data) == 0 {
		return
	}
	data = normalizePasteText(data)
	data = capPasteText(data, 4096)
	sink.Paste(string(data))
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	if eo.window == nil {
		eo.window = ebiten.NewImage(eo.width, eo.height)
	}

	eo.bufferMutex.RLock()
	eo.window.WritePixels(eo.frameBuffer)
	filtering := eo.filtering
	eo.bufferMutex.RUnlock()

	opts := &ebiten.DrawImageOptions{}
	if filtering == 1 {
		opts.Filter = ebiten.FilterLinear
	}
	screen.DrawImage(eo.window, opts)

	eo.frameCount++
	select {
	case eo.vsyncChan <- struct{}{}:
	default:
	}
}

func (eo *EbitenOutput) Layout(_, _ int) (int, int) {
	return eo.width, eo.height
}
