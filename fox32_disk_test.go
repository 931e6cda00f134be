// fox32_disk_test.go - disk controller tests

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func tempImage(t *testing.T, sectors int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "disk.img")
	data := make([]byte, sectors*diskSectorSize)
	for i := range data {
		data[i] = byte(i)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing image: %v", err)
	}
	return path
}

func TestDiskSizeAndEmptySlots(t *testing.T) {
	bus := NewBus()
	dc := NewDiskController(bus)
	t.Cleanup(dc.Close)

	if got := dc.PortRead(0x80001000); got != 0 {
		t.Fatalf("empty slot size: %d", got)
	}

	path := tempImage(t, 2)
	if err := dc.Insert(path, 1); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if got := dc.PortRead(0x80001001); got != 2*diskSectorSize {
		t.Fatalf("slot 1 size: %d", got)
	}
	if got := dc.PortRead(0x80001000); got != 0 {
		t.Fatalf("slot 0 still empty: %d", got)
	}
}

func TestDiskSectorRoundTrip(t *testing.T) {
	bus := NewBus()
	dc := NewDiskController(bus)
	t.Cleanup(dc.Close)
	path := tempImage(t, 2)
	if err := dc.Insert(path, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// Stage a recognizable sector in RAM and write it to sector 0.
	pattern := make([]byte, diskSectorSize)
	for i := range pattern {
		pattern[i] = byte(255 - i%256)
	}
	bus.WriteBlock(0x1000, pattern)
	dc.PortWrite(0x80002000, 0x1000) // buffer pointer
	dc.PortWrite(0x80004000, 0)      // write sector 0

	// Clobber RAM, then read it back.
	bus.WriteBlock(0x1000, make([]byte, diskSectorSize))
	dc.PortWrite(0x80003000, 0) // read sector 0

	got := bus.ReadBlock(0x1000, diskSectorSize)
	if !bytes.Equal(got, pattern) {
		t.Fatal("sector round trip lost data")
	}
}

func TestDiskSecondSectorSeeks(t *testing.T) {
	bus := NewBus()
	dc := NewDiskController(bus)
	t.Cleanup(dc.Close)
	path := tempImage(t, 2)
	if err := dc.Insert(path, 0); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dc.PortWrite(0x80002000, 0x2000)
	dc.PortWrite(0x80003000, 1) // read sector 1

	got := bus.ReadBlock(0x2000, 4)
	// The image's sector 1 starts at byte 512, whose fill is byte(512).
	want := []byte{byte(512 % 256), byte(513 % 256), byte(514 % 256), byte(515 % 256)}
	if !bytes.Equal(got, want) {
		t.Fatalf("sector 1 content: % X want % X", got, want)
	}
}

func TestDiskBufferPointerReadback(t *testing.T) {
	bus := NewBus()
	dc := NewDiskController(bus)
	dc.PortWrite(0x80002000, 0xCAFE00)
	if got := dc.PortRead(0x80002000); got != 0xCAFE00 {
		t.Fatalf("buffer pointer readback: %08X", got)
	}
}

func TestDiskEject(t *testing.T) {
	bus := NewBus()
	dc := NewDiskController(bus)
	t.Cleanup(dc.Close)
	path := tempImage(t, 1)
	if err := dc.Insert(path, 2); err != nil {
		t.Fatalf("insert: %v", err)
	}

	dc.PortWrite(0x80005002, 0)
	if got := dc.Size(2); got != 0 {
		t.Fatalf("ejected slot still reports size %d", got)
	}
}

func TestDiskMissingOperationsReturnZero(t *testing.T) {
	bus := NewBus()
	dc := NewDiskController(bus)
	if n := dc.readSector(0, 0); n != 0 {
		t.Fatalf("read from empty slot transferred %d", n)
	}
	if n := dc.writeSector(0, 0); n != 0 {
		t.Fatalf("write to empty slot transferred %d", n)
	}
	if n := dc.readSector(9, 0); n != 0 {
		t.Fatalf("out-of-range read transferred %d", n)
	}
}

func TestDropFileSlotSelectionCountsOccupied(t *testing.T) {
	bus := NewBus()
	dc := NewDiskController(bus)
	t.Cleanup(dc.Close)

	dc.DropFile(tempImage(t, 1))
	dc.DropFile(tempImage(t, 1))
	if dc.Size(0) == 0 || dc.Size(1) == 0 {
		t.Fatal("sequential drops did not fill slots 0 and 1")
	}

	// With a gap at slot 0, the occupied count points at slot 1 - which
	// is already taken, so the new disk replaces it. Deliberate quirk.
	dc.Remove(0)
	dropped := tempImage(t, 2)
	dc.DropFile(dropped)
	if dc.Size(0) != 0 {
		t.Fatal("drop with gap unexpectedly filled slot 0")
	}
	if dc.Size(1) != 2*diskSectorSize {
		t.Fatalf("drop with gap did not land on slot 1: size %d", dc.Size(1))
	}
}
