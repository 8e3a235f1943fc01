package toc

import (
	"container/heap"
	"testing"
)

func newFileStub(extractSize uint64) *File {
	return &File{ExtractSize: extractSize}
}

func TestHeapPopsLargestFirst(t *testing.T) {
	h := &Heap{}
	heap.Init(h)

	sizes := []uint64{10, 500, 1, 9999, 42}
	for _, s := range sizes {
		heap.Push(h, newFileStub(s))
	}

	var popped []uint64
	for h.Len() > 0 {
		f := heap.Pop(h).(*File)
		popped = append(popped, f.ExtractSize)
	}

	want := []uint64{9999, 500, 42, 10, 1}
	if len(popped) != len(want) {
		t.Fatalf("popped %d items, want %d", len(popped), len(want))
	}
	for i := range want {
		if popped[i] != want[i] {
			t.Fatalf("pop order = %v, want %v", popped, want)
		}
	}
}
