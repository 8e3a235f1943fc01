package cliutil

import "testing"

func TestCleanPath(t *testing.T) {
	cases := map[string]string{
		`"C:\Games\Foo\"`: "C:\\Games\\Foo",
		`"/mnt/data"`:     "/mnt/data",
		`/mnt/data/`:      "/mnt/data",
		``:                ".",
		`""`:              ".",
	}
	for in, want := range cases {
		if got := CleanPath(in); got != want {
			t.Fatalf("CleanPath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveThreads(t *testing.T) {
	if got := ResolveThreads(4); got != 4 {
		t.Fatalf("ResolveThreads(4) = %d, want 4", got)
	}
	if got := ResolveThreads(0); got <= 0 {
		t.Fatalf("ResolveThreads(0) = %d, want a positive auto-detected value", got)
	}
}

func TestComputeThreadCounts(t *testing.T) {
	dec, ext, dcmp := ComputeThreadCounts(8)
	if ext != 1 {
		t.Fatalf("extract threads = %d, want 1", ext)
	}
	if dec != 4 {
		t.Fatalf("decrypt threads = %d, want 4", dec)
	}
	if dcmp != 3 {
		t.Fatalf("decompress threads = %d, want 3", dcmp)
	}

	dec, ext, dcmp = ComputeThreadCounts(1)
	if dec < 1 || ext < 1 || dcmp < 1 {
		t.Fatalf("ComputeThreadCounts(1) produced a non-positive count: dec=%d ext=%d dcmp=%d", dec, ext, dcmp)
	}
}

func TestResidentThreshold(t *testing.T) {
	if got := ResidentThreshold(1000, 5); got != 100 {
		t.Fatalf("ResidentThreshold(1000, 5) = %d, want 100", got)
	}
	if got := ResidentThreshold(1000, 0); got != 500 {
		t.Fatalf("ResidentThreshold(1000, 0) = %d, want 500 (zero threads clamped to 1)", got)
	}
}

func TestResolveMemoryLimit(t *testing.T) {
	if got := ResolveMemoryLimit(2048, 4); got != 2048 {
		t.Fatalf("ResolveMemoryLimit(2048, 4) = %d, want 2048", got)
	}
	if got := ResolveMemoryLimit(0, 4); got <= 0 {
		t.Fatalf("ResolveMemoryLimit(0, 4) = %d, want a positive default", got)
	}
}
