// Package cliutil holds small helpers shared by every ievrtool
// subcommand: path sanitization and the "0 means auto-detect" rule
// applied to thread-count and memory-limit flags.
package cliutil

import (
	"path/filepath"
	"runtime"
	"strings"
)

// CleanPath strips surrounding double-quotes, then a trailing
// backslash, from a user-supplied path argument — a Windows
// copy-paste artifact ("C:\Games\Foo\" pasted with its quoting intact)
// that every subcommand's path flags need stripped before use.
func CleanPath(p string) string {
	p = strings.Trim(p, `"`)
	p = strings.TrimSuffix(p, `\`)
	if p == "" {
		return "."
	}
	return filepath.Clean(p)
}

// ResolveThreads returns requested if positive, otherwise
// runtime.NumCPU().
func ResolveThreads(requested int) int {
	if requested > 0 {
		return requested
	}
	return runtime.NumCPU()
}

// ComputeThreadCounts splits the available parallelism into the three
// pipeline stage widths, per §5: extraction is single-threaded to
// keep the heap loop race-free, decryption gets half of the total
// parallelism (never fewer than one), decompression gets whatever is
// left (never fewer than one).
func ComputeThreadCounts(parallelism int) (decrypt, extract, decompress int) {
	extract = 1
	decrypt = parallelism / 2
	if decrypt < 1 {
		decrypt = 1
	}
	decompress = parallelism - decrypt - extract
	if decompress < 1 {
		decompress = 1
	}
	return decrypt, extract, decompress
}

// ResolveMemoryLimit returns requested if positive, otherwise a
// default budget derived from the number of decrypt workers: each
// worker may hold one resident buffer, so the default limit is sized
// to let every worker's largest plausible buffer coexist.
func ResolveMemoryLimit(requested int64, decryptThreads int) int64 {
	if requested > 0 {
		return requested
	}
	const perWorkerDefault = int64(256 * 1024 * 1024)
	return perWorkerDefault * int64(decryptThreads)
}

// ResidentThreshold returns the file-size cutoff below which a
// container is read fully into RAM rather than memory-mapped from a
// temp file, per §4.B: half of the per-decrypt-worker share of the
// memory budget.
func ResidentThreshold(memoryLimit int64, decryptThreads int) int64 {
	if decryptThreads < 1 {
		decryptThreads = 1
	}
	return memoryLimit / int64(decryptThreads) / 2
}
