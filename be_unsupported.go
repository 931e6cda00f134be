//go:build !(amd64 || arm64 || 386 || arm || riscv64 || loong64 || mipsle || mips64le || ppc64le || wasm)

package main

// fox32-emu uses unsafe.Pointer uint32 loads for framebuffer compositing,
// which assume little-endian byte order - as does the guest machine itself.
var _ = "fox32-emu requires a little-endian architecture" + 1
