// features.go - build-time feature reporting

/*
fox32-emu - a whole-machine emulator for the fox32 32-bit fantasy computer

Copyright (C) 2026 fox32-emu contributors
License: GPLv3 or later
*/

package main

import (
	"fmt"
	"runtime"
	"sort"
)

const Version = "0.1.0"

// compiledFeatures tracks build-time feature flags via init() registration.
var compiledFeatures []string

func printFeatures() {
	fmt.Printf("fox32-emu %s\n", Version)
	fmt.Printf("  Go version: %s\n", runtime.Version())
	fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Println()
	fmt.Println("Compiled features:")

	sort.Strings(compiledFeatures)
	for _, f := range compiledFeatures {
		fmt.Printf("  %s\n", f)
	}
	if len(compiledFeatures) == 0 {
		fmt.Println("  (none)")
	}
}
