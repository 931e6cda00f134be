// main.go - entry point for the fox32 emulator

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"
)

const defaultROMPath = "fox32.rom"

func main() {
	os.Exit(run())
}

func run() int {
	optDisks := getopt.ListLong("disk", 'd', "Specify a disk image to use (repeatable)")
	optROM := getopt.StringLong("rom", 'r', defaultROMPath, "Specify a ROM image to use")
	optDebug := getopt.BoolLong("debug", 0, "Enable debug output")
	optHeadless := getopt.BoolLong("headless", 0, "Headless mode: don't open a window")
	optMemory := getopt.IntLong("memory", 'm', RAM_SIZE/(1024*1024), "RAM size in MiB")
	optScale := getopt.IntLong("scale", 's', 1, "Scale display by MULT")
	optFiltering := getopt.IntLong("filtering", 0, 0, "Scale filtering: 0 = nearest pixel, 1 = linear")
	optVerbose := getopt.BoolLong("verbose", 'v', "Print info about options specified")
	optVersion := getopt.BoolLong("version", 0, "Print version and compiled features")
	optHelp := getopt.BoolLong("help", 'h', "Print this message")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		return 0
	}
	if *optVersion {
		printFeatures()
		return 0
	}
	if *optMemory <= 0 {
		fmt.Fprintln(os.Stderr, "bad memory size specified")
		return 1
	}
	if *optFiltering != 0 && *optFiltering != 1 {
		fmt.Fprintln(os.Stderr, "incorrect scale filtering mode specified")
		return 1
	}

	machine := NewMachine(MachineConfig{
		MemoryMiB: *optMemory,
		Debug:     *optDebug,
		Headless:  *optHeadless,
		Verbose:   *optVerbose,
		Scale:     *optScale,
		Filtering: *optFiltering,
	})

	if err := machine.LoadROMFile(*optROM); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *optVerbose {
		fmt.Printf("using %s as boot ROM\n", *optROM)
		fmt.Printf("memory size: %d MiB\n", *optMemory)
	}

	for id, path := range *optDisks {
		if err := machine.MountDisk(path, id); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	if err := machine.Start(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer machine.Stop()

	// The serial console owns the terminal while the machine runs.
	var termHost *TerminalHost
	if !*optHeadless {
		termHost = NewTerminalHost(machine.serial)
		termHost.Start()
		defer termHost.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		machine.RequestExit()
	}()

	if err := machine.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
