// fox32_mmu.go - paged MMU and software-refilled TLB for the fox32 CPU

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

/*
fox32_mmu.go - MMU / TLB

fox32 pages virtual addresses through a 64-entry, fully-associative TLB
that software refills from a two-level page table in RAM on a miss. There
is no hardware page-table walker beyond what this file implements: a miss
reads the page directory entry and page table entry directly out of bus
RAM, exactly the way the original C reference's insert_tlb_entry_from_tables
does, and caches the result as one more TLB entry.

Address layout (4 KiB pages):

    bits 31..22  page directory index (1024 entries)
    bits 21..12  page table index (1024 entries)
    bits 11..0   byte offset within the page

A directory/table entry's low two bits are PRESENT (bit 0) and RW (bit 1);
the remaining bits are the page-aligned physical address. RW is parsed and
recorded but not enforced by Translate itself, matching an open question
left unresolved in the hardware description this emulator follows; callers
that want write protection consult Page.RW themselves.
*/

package main

// Page is one cached virtual->physical translation.
type Page struct {
	Physical uint32
	Virtual  uint32 // page-aligned virtual address this entry covers
	Present  bool
	RW       bool
}

const tlbSize = 64

// MMU implements the fox32 TLB and its software refill path. It reads page
// tables directly out of the bus's RAM backing store.
type MMU struct {
	tlb           [tlbSize]Page
	pageDirectory uint32 // physical address of the active page directory
	bus           *Bus
}

func NewMMU(bus *Bus) *MMU {
	return &MMU{bus: bus}
}

// SetAndFlushTLB installs a new page directory pointer and invalidates
// every TLB entry. Issued by the MMU's "set page directory" opcode.
func (m *MMU) SetAndFlushTLB(pageDirectory uint32) {
	m.pageDirectory = pageDirectory
	for i := range m.tlb {
		m.tlb[i] = Page{}
	}
}

// FlushSinglePage invalidates the one TLB entry covering virtualAddr, if
// any is cached.
func (m *MMU) FlushSinglePage(virtualAddr uint32) {
	page := virtualAddr & 0xFFFFF000
	for i := range m.tlb {
		if m.tlb[i].Present && m.tlb[i].Virtual == page {
			m.tlb[i] = Page{}
			return
		}
	}
}

func (m *MMU) findFreeEntry() int {
	for i := range m.tlb {
		if !m.tlb[i].Present {
			return i
		}
	}
	return 0
}

func (m *MMU) findCached(page uint32) *Page {
	for i := range m.tlb {
		if m.tlb[i].Present && m.tlb[i].Virtual == page {
			return &m.tlb[i]
		}
	}
	return nil
}

// readTableEntry reads one little-endian 32-bit page table entry directly
// out of RAM, bypassing the I/O dispatch table the way a hardware walker
// would.
func (m *MMU) readTableEntry(addr uint32) uint32 {
	b := m.bus.ReadBlock(addr, 4)
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// refill walks the two-level page table for virtualAddr and, if the
// directory entry is present, inserts a fresh TLB entry. Returns whether
// the directory entry was present at all — a caller uses this to
// distinguish "no mapping configured" from "present but not yet cached".
func (m *MMU) refill(virtualAddr uint32) bool {
	dirIndex := virtualAddr >> 22
	tableIndex := (virtualAddr >> 12) & 0x3FF

	directory := m.readTableEntry(m.pageDirectory + dirIndex*4)
	directoryPresent := directory&0b1 != 0
	if !directoryPresent {
		return false
	}
	directoryAddr := directory & 0xFFFFF000

	table := m.readTableEntry(directoryAddr + tableIndex*4)
	tablePresent := table&0b01 != 0
	tableRW := table&0b10 != 0
	tableAddr := table & 0xFFFFF000

	if tablePresent {
		entry := Page{
			Physical: tableAddr,
			Virtual:  (dirIndex << 22) | (tableIndex << 12),
			Present:  true,
			RW:       tableRW,
		}
		m.tlb[m.findFreeEntry()] = entry
	}
	return true
}

// Translate resolves a virtual address to its physical page, refilling
// the TLB from the in-RAM page tables on a miss. ok is false if no
// present mapping exists for this address at all (neither directory nor
// table entry present) — the caller raises a FAULT_RD/FAULT_WR exception
// in that case.
func (m *MMU) Translate(virtualAddr uint32) (page Page, ok bool) {
	virtualPage := virtualAddr & 0xFFFFF000
	if cached := m.findCached(virtualPage); cached != nil {
		if cached.Present {
			return *cached, true
		}
		return Page{}, false
	}

	if !m.refill(virtualAddr) {
		return Page{}, false
	}
	if cached := m.findCached(virtualPage); cached != nil && cached.Present {
		return *cached, true
	}
	return Page{}, false
}

// Reset clears the TLB and page directory pointer, for hard reset.
func (m *MMU) Reset() {
	m.pageDirectory = 0
	for i := range m.tlb {
		m.tlb[i] = Page{}
	}
}
