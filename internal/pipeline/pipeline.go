// Package pipeline orchestrates the three-stage extraction pipeline:
// decryption workers feed a single extractor, which maintains a
// max-heap of pending members and feeds a pool of decompression
// workers, all gated by a shared memory arbiter.
package pipeline

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ievr/ievrtool/internal/arbiter"
	"github.com/ievr/ievrtool/internal/cpkcrypt"
	"github.com/ievr/ievrtool/internal/cpkview"
	"github.com/ievr/ievrtool/internal/layla"
	"github.com/ievr/ievrtool/internal/toc"
)

// Config bundles a run's thread counts and resource limits.
type Config struct {
	DecryptThreads    int
	DecompressThreads int
	MemoryLimit       int64 // total resident-byte budget
	Threshold         int64 // files smaller than this decrypt to RAM, not disk
	TempDir           string
	OutputDir         string

	// SelectedFiles, if non-empty, restricts extraction to members
	// whose FileName is a key of the map; empty means "extract all."
	SelectedFiles map[string]bool
}

// Container is a decrypted CPK handed from Stage 1 to Stage 2.
type Container struct {
	View       *cpkview.View
	SourcePath string
}

// Progress receives byte counters as the pipeline runs. All methods
// must be safe for concurrent use; a nil *Progress is valid and
// discards updates.
type Progress struct {
	DecryptedBytes  int64
	ExtractedBytes  int64
	ExtractedTotal  int64
}

func (p *Progress) addDecrypted(n int64) {
	if p != nil {
		atomic.AddInt64(&p.DecryptedBytes, n)
	}
}

func (p *Progress) addExtractedTotal(n int64) {
	if p != nil {
		atomic.AddInt64(&p.ExtractedTotal, n)
	}
}

func (p *Progress) addExtracted(n int64) {
	if p != nil {
		atomic.AddInt64(&p.ExtractedBytes, n)
	}
}

// firstError collects the first error raised by any worker and
// cancels the run.
type firstError struct {
	once   sync.Once
	err    error
	cancel context.CancelFunc
}

func (f *firstError) set(err error) {
	f.once.Do(func() {
		f.err = err
		f.cancel()
	})
}

var tempCounter int64

func nextTempName(dir string) string {
	n := atomic.AddInt64(&tempCounter, 1)
	return filepath.Join(dir, fmt.Sprintf("%d.dec", n))
}

// Run decrypts, extracts, and decompresses every CPK in paths,
// writing member files under cfg.OutputDir. paths should already be
// sorted largest-first by the caller (cliutil/cmd layer) to balance
// Stage-1 tail latency.
func Run(ctx context.Context, paths []string, cfg Config, prog *Progress) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	fe := &firstError{cancel: cancel}

	arb := arbiter.New(uint64(cfg.MemoryLimit))

	decQueue := make(chan *Container, cfg.DecryptThreads)
	extQueue := make(chan *toc.File, cfg.DecompressThreads*2)

	var decryptWG sync.WaitGroup
	for i := 0; i < cfg.DecryptThreads; i++ {
		decryptWG.Add(1)
		go func(worker int) {
			defer decryptWG.Done()
			decryptWorker(ctx, worker, cfg, paths, arb, decQueue, prog, fe)
		}(i)
	}

	var extractorWG sync.WaitGroup
	extractorWG.Add(1)
	go func() {
		defer extractorWG.Done()
		extractor(ctx, decQueue, extQueue, cfg.SelectedFiles, arb, prog, fe)
	}()

	var decompressWG sync.WaitGroup
	for i := 0; i < cfg.DecompressThreads; i++ {
		decompressWG.Add(1)
		go func() {
			defer decompressWG.Done()
			decompressWorker(ctx, extQueue, arb, cfg.OutputDir, prog, fe)
		}()
	}

	decryptWG.Wait()
	close(decQueue)

	extractorWG.Wait()

	decompressWG.Wait()

	return fe.err
}

func decryptWorker(ctx context.Context, worker int, cfg Config, paths []string, arb *arbiter.Arbiter, decQueue chan<- *Container, prog *Progress, fe *firstError) {
	for i := worker; i < len(paths); i += cfg.DecryptThreads {
		select {
		case <-ctx.Done():
			return
		default:
		}

		path := paths[i]
		info, err := os.Stat(path)
		if err != nil {
			fe.set(fmt.Errorf("pipeline: stat %s: %w", path, err))
			return
		}
		size := info.Size()

		var view *cpkview.View
		if size < cfg.Threshold {
			arb.AcquireDecryption(uint64(size))
			data, err := cpkcrypt.New(path).DecryptToMemory()
			if err != nil {
				fe.set(fmt.Errorf("pipeline: decrypt %s: %w", path, err))
				return
			}
			view = cpkview.NewResident(data)
		} else {
			tmp := nextTempName(cfg.TempDir)
			if err := cpkcrypt.New(path).DecryptToFile(tmp); err != nil {
				fe.set(fmt.Errorf("pipeline: decrypt %s: %w", path, err))
				return
			}
			view, err = cpkview.NewMapped(tmp)
			if err != nil {
				fe.set(fmt.Errorf("pipeline: map %s: %w", tmp, err))
				return
			}
		}

		prog.addDecrypted(size)

		select {
		case decQueue <- &Container{View: view, SourcePath: path}:
		case <-ctx.Done():
			return
		}
	}
}

func extractor(ctx context.Context, decQueue <-chan *Container, extQueue chan<- *toc.File, selected map[string]bool, arb *arbiter.Arbiter, prog *Progress, fe *firstError) {
	defer close(extQueue)

	resolver := toc.NewResolver()
	h := &toc.Heap{}
	heap.Init(h)

	upstreamOpen := true

	drain := func() bool {
		for h.Len() > 0 {
			f := heap.Pop(h).(*toc.File)
			prog.addExtractedTotal(int64(f.ExtractSize))
			select {
			case extQueue <- f:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for {
		if !upstreamOpen {
			drain()
			return
		}

		if h.Len() == 0 {
			select {
			case c, ok := <-decQueue:
				if !ok {
					upstreamOpen = false
					continue
				}
				if err := pushContainer(c, resolver, toc.NewStringPool(), h, selected, arb); err != nil {
					fe.set(err)
					return
				}
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case c, ok := <-decQueue:
			if !ok {
				upstreamOpen = false
				continue
			}
			if err := pushContainer(c, resolver, toc.NewStringPool(), h, selected, arb); err != nil {
				fe.set(err)
				return
			}
		case <-ctx.Done():
			return
		default:
			f := heap.Pop(h).(*toc.File)
			prog.addExtractedTotal(int64(f.ExtractSize))
			select {
			case extQueue <- f:
			case <-ctx.Done():
				return
			}
		}
	}
}

// pushContainer resolves a decrypted container's TOC, pushes the
// selected members onto the heap, and releases the container's own
// base reference — ownership of the bytes now lives entirely with the
// per-member clones taken during resolution.
func pushContainer(c *Container, resolver *toc.Resolver, pool *toc.StringPool, h *toc.Heap, selected map[string]bool, arb *arbiter.Arbiter) error {
	files, err := resolver.Resolve(c.View, pool)
	if err != nil {
		return fmt.Errorf("pipeline: resolve %s: %w", c.SourcePath, err)
	}

	for _, f := range files {
		if len(selected) == 0 || selected[f.FileName] {
			heap.Push(h, f)
			continue
		}
		releaseView(f.View(), f.ReleaseView(), arb)
	}

	releaseView(c.View, c.View.Release(), arb)
	return nil
}

// releaseView does nothing unless isLast reports that v was the last
// surviving reference; then it closes v (a no-op for resident views)
// and, for a resident view, returns its bytes to the arbiter.
func releaseView(v *cpkview.View, isLast bool, arb *arbiter.Arbiter) {
	if !isLast {
		return
	}
	if v.Resident() {
		arb.Release(uint64(v.Len()))
	}
	v.Close()
}

func decompressWorker(ctx context.Context, extQueue <-chan *toc.File, arb *arbiter.Arbiter, outputDir string, prog *Progress, fe *firstError) {
	for {
		select {
		case f, ok := <-extQueue:
			if !ok {
				return
			}
			if f.ExtractSize > arb.Limit() {
				fe.set(fmt.Errorf("insufficient memory allocation for decompression"))
				return
			}

			arb.AcquireDecompression(f.ExtractSize)
			err := writeMember(f, outputDir)
			arb.Release(f.ExtractSize)

			if err != nil {
				fe.set(fmt.Errorf("pipeline: write %s: %w", f.Path(), err))
				return
			}

			releaseView(f.View(), f.ReleaseView(), arb)

			prog.addExtracted(int64(f.ExtractSize))
		case <-ctx.Done():
			return
		}
	}
}

func writeMember(f *toc.File, outputDir string) error {
	dest := filepath.Join(outputDir, filepath.FromSlash(f.Path()))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}

	raw := f.Data()
	var out []byte
	if layla.IsCompressed(raw) {
		decoded, err := layla.Decompress(raw, int(f.ExtractSize))
		if err != nil {
			return fmt.Errorf("decompress: %w", err)
		}
		out = decoded
	} else {
		out = raw
	}

	return os.WriteFile(dest, out, 0o644)
}
