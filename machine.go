// machine.go - whole-machine assembly and the outer emulation loop

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

/*
machine.go - Machine

One Machine owns every piece of emulated hardware: the bus with its RAM
and ROM, the MMU, the CPU, and all the devices hanging off the port
space. Construction registers each device's port range with the bus;
Run is the outer loop that paces the CPU against wall time at 60 ticks
per second, feeds the RTC's uptime counter, raises the VSYNC interrupt
once per tick, and watches for the power port or the host window to
request exit.

The emulation thread owns all CPU/MMU/device control state. The video
compositor and audio callback run on their own goroutines, but only
ever read RAM and device registers through their own locks, never CPU
state.
*/

package main

import (
	"fmt"
	"os"
	"sync/atomic"
	"time"
)

const (
	cpuHz          = 33000000
	ticksPerSecond = 60
	vsyncVector    = 0xFF

	portPower = 0x80010000
)

// MachineConfig carries everything the CLI decides.
type MachineConfig struct {
	MemoryMiB int
	Debug     bool
	Headless  bool
	Verbose   bool
	Scale     int
	Filtering int
}

// Machine is one complete fox32 computer.
type Machine struct {
	bus   *Bus
	mmu   *MMU
	cpu   *CPU
	video *VideoChip
	sound *SoundChip
	disks *DiskController

	serial   *Serial
	keyboard *Keyboard
	mouse    *Mouse
	rtc      *RTC

	compositor *VideoCompositor
	output     VideoOutput
	audio      *OtoPlayer

	config        MachineConfig
	exitRequested atomic.Bool
}

// NewMachine builds and wires a machine. No host-facing backend is
// started yet; that happens in Start, so tests can drive a machine
// without a window or audio device.
func NewMachine(config MachineConfig) *Machine {
	if config.MemoryMiB <= 0 {
		config.MemoryMiB = RAM_SIZE / (1024 * 1024)
	}

	m := &Machine{config: config}
	m.bus = NewBusWithMemory(uint32(config.MemoryMiB) * 1024 * 1024)
	m.mmu = NewMMU(m.bus)
	m.cpu = NewCPU(m.bus, m.mmu)

	m.serial = NewSerial(os.Stdout)
	m.keyboard = NewKeyboard()
	m.mouse = NewMouse()
	m.rtc = NewRTC()
	m.video = NewVideoChip(m.bus)
	m.sound = NewSoundChip(m.bus)
	m.disks = NewDiskController(m.bus)

	m.mapPorts()

	if config.Debug {
		m.cpu.SetDebug(true, func(line string) { fmt.Println(line) })
	}
	return m
}

func (m *Machine) mapPorts() {
	m.bus.MapPort(portSerial, portSerial, m.serial.PortRead, m.serial.PortWrite)
	m.bus.MapPort(portOverlayStart, portOverlayEnd, m.video.PortRead, m.video.PortWrite)
	m.bus.MapPort(portMouseButtons, portMousePosition, m.mouse.PortRead, m.mouse.PortWrite)
	m.bus.MapPort(portKeyboard, portKeyboard, m.keyboard.PortRead, nil)
	m.bus.MapPort(portAudioStart, portAudioEnd, m.sound.PortRead, m.sound.PortWrite)
	m.bus.MapPort(portRTCStart, portRTCEnd, m.rtc.PortRead, nil)
	m.bus.MapPort(portDiskStart, portDiskEnd, m.disks.PortRead, m.disks.PortWrite)
	m.bus.MapPort(portPower, portPower, nil, func(port, value uint32) {
		if value == 0 {
			m.RequestExit()
		}
	})
}

// LoadROMFile loads a boot ROM image, which must be exactly ROM_SIZE
// bytes - the ROM chip has no partial population.
func (m *Machine) LoadROMFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("couldn't find ROM file %s: %w", path, err)
	}
	if len(data) != ROM_SIZE {
		return fmt.Errorf("ROM file %s is %d bytes, must be %d", path, len(data), ROM_SIZE)
	}
	return m.bus.LoadROM(data)
}

// MountDisk opens an image file into the given slot.
func (m *Machine) MountDisk(path string, id int) error {
	return m.disks.Insert(path, id)
}

// RequestExit asks the outer loop to wind down after the current tick.
// Written by the power port, the host window's close button, or a
// signal handler.
func (m *Machine) RequestExit() {
	m.exitRequested.Store(true)
}

// Start brings up the host-facing backends. In headless mode nothing
// is started: the machine runs without video, audio or input.
func (m *Machine) Start() error {
	if m.config.Headless {
		return nil
	}

	output, err := NewVideoOutput(VIDEO_BACKEND_EBITEN)
	if err != nil {
		return err
	}
	m.output = output
	m.output.SetDisplayConfig(DisplayConfig{
		Width:     FRAMEBUFFER_WIDTH,
		Height:    FRAMEBUFFER_HEIGHT,
		Scale:     m.config.Scale,
		Filtering: m.config.Filtering,
	})
	if in, ok := output.(InputCapable); ok {
		in.SetInputSink(m)
	}
	if cn, ok := output.(CloseNotifier); ok {
		cn.SetCloseHandler(m.RequestExit)
	}
	if err := m.output.Start(); err != nil {
		return err
	}

	m.video.Start()
	m.compositor = NewVideoCompositor(m.output)
	m.compositor.RegisterSource(m.video)
	if err := m.compositor.Start(); err != nil {
		return err
	}

	audio, err := NewOtoPlayer(audioSampleRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "audio unavailable: %v\n", err)
	} else {
		m.audio = audio
		m.audio.SetupPlayer(m.sound)
		m.audio.Start()
	}
	return nil
}

// Stop winds down the backends and releases disk images.
func (m *Machine) Stop() {
	if m.compositor != nil {
		m.compositor.Stop()
	}
	if m.audio != nil {
		m.audio.Close()
	}
	if m.output != nil {
		m.output.Close()
	}
	m.disks.Close()
}

// Run is the outer emulation loop: 60 ticks per second, each spending
// the tick's share of the 33 MHz cycle budget, recovering CPU faults
// into exception deliveries, and raising VSYNC once per tick.
func (m *Machine) Run() error {
	m.cpu.halted = false

	ticker := time.NewTicker(time.Second / ticksPerSecond)
	defer ticker.Stop()
	last := time.Now()

	for !m.exitRequested.Load() {
		<-ticker.C
		now := time.Now()
		elapsedMs := uint32(now.Sub(last).Milliseconds())
		if elapsedMs == 0 {
			elapsedMs = 1
		}
		last = now
		m.rtc.AddUptime(elapsedMs)

		if err := m.runTick(cpuHz / ticksPerSecond); err != nil {
			return err
		}

		m.cpu.Raise(vsyncVector)
		// A masked VSYNC still releases a HALTed CPU; the firmware
		// HALT-loops between frames with interrupts off during boot.
		m.cpu.halted = false
	}
	return nil
}

// runTick burns up to budget instruction slots, converting recoverable
// faults into exception deliveries as it goes.
func (m *Machine) runTick(budget uint32) error {
	remaining := budget
	for remaining > 0 {
		executed, err := m.cpu.Resume(remaining)
		remaining -= executed
		if err != ErrOK {
			if m.config.Debug {
				fmt.Println(err.String())
			}
			if rerr := m.cpu.Recover(err); rerr != ErrOK {
				return fmt.Errorf("unrecoverable CPU error: %s", err.String())
			}
			// Recovery charges one slot so a fault storm cannot stall
			// the tick accounting.
			if remaining > 0 {
				remaining--
			}
			continue
		}
		if m.cpu.Halted() {
			break
		}
	}
	return nil
}

// Key routes a host key event into the keyboard's scancode queue.
func (m *Machine) Key(hostKey int, pressed bool) {
	if sc, ok := scancodeFor(hostKey); ok {
		m.keyboard.Push(sc, pressed)
	}
}

// MouseMove routes a host cursor delta into the mouse device.
func (m *Machine) MouseMove(dx, dy int) {
	m.mouse.Move(dx, dy)
}

// MouseButton routes a left-button transition into the mouse device.
func (m *Machine) MouseButton(pressed bool) {
	if pressed {
		m.mouse.Press()
	} else {
		m.mouse.Release()
	}
}

// Paste feeds clipboard text into the serial receive FIFO.
func (m *Machine) Paste(text string) {
	m.serial.PushRXString(text)
}

// Screenshot dumps the most recent composited frame to a PNG.
func (m *Machine) Screenshot() {
	if m.compositor == nil {
		return
	}
	frame, w, h := m.compositor.FinalFrame()
	name := screenshotName(time.Now())
	if err := SaveScreenshot(name, frame, w, h, m.config.Scale); err != nil {
		fmt.Fprintf(os.Stderr, "screenshot failed: %v\n", err)
		return
	}
	fmt.Printf("saved %s\n", name)
}
