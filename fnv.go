package wwise

import (
	"hash/fnv"
	"strings"
)

// HashName returns the 32-bit FNV-1 hash Wwise uses to turn a name into an
// ID. The name is lower-cased first, so "SFX" and "sfx" hash alike.
func HashName(name string) uint32 {
	h := fnv.New32()
	h.Write([]byte(strings.ToLower(name)))

	return h.Sum32()
}

// align16 returns the padding needed to bring x up to a multiple of 16.
func align16(x int) int {
	return (16 - x%16) % 16
}
