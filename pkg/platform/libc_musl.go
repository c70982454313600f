//go:build musl

package platform

const libc = "musl"
