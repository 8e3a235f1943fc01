// Package cpkview provides a uniform, shared, read-only view over a
// decrypted CPK container, backed either by a memory-mapped temp file
// (large inputs) or by a resident in-memory buffer (small inputs).
package cpkview

import (
	"fmt"
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// View is a shared-ownership, immutable byte view over a decrypted
// CPK. Every clone of a View (via Clone) increments an internal
// reference count; Release decrements it and reports whether this
// call observed the last surviving reference, per DESIGN NOTES in
// spec.md §9 ("expose an explicit last_reference() capability rather
// than relying on raw count inspection").
type View struct {
	data     []byte
	resident bool
	mapping  mmap.MMap
	file     *os.File
	tmpPath  string
	refs     *int64
}

// NewResident wraps an owned, already-decrypted byte buffer.
func NewResident(data []byte) *View {
	refs := int64(1)
	return &View{data: data, resident: true, refs: &refs}
}

// NewMapped memory-maps tmpPath (expected to already contain the
// decrypted bytes, written by the caller) read-only.
func NewMapped(tmpPath string) (*View, error) {
	f, err := os.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("cpkview: open %s: %w", tmpPath, err)
	}
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("cpkview: mmap %s: %w", tmpPath, err)
	}
	refs := int64(1)
	return &View{
		data:    m,
		mapping: m,
		file:    f,
		tmpPath: tmpPath,
		refs:    &refs,
	}, nil
}

// Bytes returns the full decrypted content as a read-only slice.
func (v *View) Bytes() []byte { return v.data }

// Len reports the byte length of the decrypted content.
func (v *View) Len() int { return len(v.data) }

// Resident reports whether this view is a RAM-resident buffer (as
// opposed to a memory-mapped temp file); resident views are the ones
// charged against the memory arbiter and must be released from it.
func (v *View) Resident() bool { return v.resident }

// Clone increments the reference count and returns the same View,
// mirroring the shared-ownership clone operation of the source
// reference-counted wrapper.
func (v *View) Clone() *View {
	atomic.AddInt64(v.refs, 1)
	return v
}

// Release decrements the reference count and reports whether this
// call observed the count drop to zero, i.e. whether the caller held
// the last surviving reference. Call exactly once per Clone (including
// the initial owning reference from NewResident/NewMapped).
func (v *View) Release() bool {
	return atomic.AddInt64(v.refs, -1) == 0
}

// Close unmaps a mapped view and closes its backing temp file; the
// file itself is left on disk. A no-op for resident views.
func (v *View) Close() error {
	if v.mapping == nil {
		return nil
	}
	if err := v.mapping.Unmap(); err != nil {
		v.file.Close()
		return err
	}
	return v.file.Close()
}
