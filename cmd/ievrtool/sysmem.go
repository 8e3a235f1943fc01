package main

import "github.com/shirou/gopsutil/v3/mem"

// availableSystemMemory returns the host's currently available RAM in
// bytes, used to resolve "--memory 0" to "use everything available."
// fallback is returned if the host's memory stats can't be read.
func availableSystemMemory(fallback int64) int64 {
	v, err := mem.VirtualMemory()
	if err != nil {
		return fallback
	}
	return int64(v.Available)
}
