package toc

import "github.com/ievr/ievrtool/internal/cpkview"

// File is one member entry resolved from a TOC sub-table: the bytes
// needed to locate, decrypt (already done, at the container level),
// and decompress a single packed file, plus a private clone of the
// container view so Stage 3 (internal/pipeline) can release it the
// moment the file is fully decompressed.
type File struct {
	Directory   *string // nil when DirName is absent for this row
	FileName    string
	FileSize    uint64
	ExtractSize uint64
	FileOffset  uint64
	UserString  *string // nil when UserString is absent for this row

	view *cpkview.View
}

// View returns the container view backing this entry's bytes.
func (f *File) View() *cpkview.View { return f.view }

// ReleaseView releases this entry's private reference to the
// container view, reporting whether this was the last reference.
func (f *File) ReleaseView() bool { return f.view.Release() }

// Data returns this entry's raw (still compressed, if applicable)
// slice of the container view.
func (f *File) Data() []byte {
	return f.view.Bytes()[f.FileOffset : f.FileOffset+f.FileSize]
}

// Path joins Directory and FileName with a forward slash, matching
// the archive's own path convention; files with no Directory return
// just FileName.
func (f *File) Path() string {
	if f.Directory == nil || *f.Directory == "" {
		return f.FileName
	}
	return *f.Directory + "/" + f.FileName
}

// Heap is a container/heap max-heap of *File ordered by ExtractSize
// descending, so the extractor (§4.G Stage 2) always pops the
// largest pending member first — the ordering rule that lets the
// memory arbiter reason about worst-case pending decompression size.
type Heap []*File

func (h Heap) Len() int { return len(h) }

func (h Heap) Less(i, j int) bool { return h[i].ExtractSize > h[j].ExtractSize }

func (h Heap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *Heap) Push(x any) {
	*h = append(*h, x.(*File))
}

func (h *Heap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
