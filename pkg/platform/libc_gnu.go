//go:build !musl

package platform

// libc is the C runtime family the binary is built for.
// Build with -tags musl for musl based systems.
const libc = "gnu"
