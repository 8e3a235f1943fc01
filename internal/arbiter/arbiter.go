// Package arbiter gates RAM-resident decrypt and decompress buffers
// against a shared memory budget, reserving headroom for pending
// decompression so a flood of decrypt admissions can never starve it.
package arbiter

import "sync"

// Arbiter tracks in-flight resident allocation against a fixed limit,
// per §4.F. Decompression requests are favored over decryption
// admission via a reservation counter: once any goroutine is waiting
// to decompress, decryption admission must also wait until that
// waiter's worst-case request size would fit.
//
// The caller is responsible for rejecting a request that can never
// fit (extract_size greater than limit) before calling
// AcquireDecompression; the arbiter itself simply blocks, since it
// has no notion of "never" versus "not yet."
type Arbiter struct {
	mu   sync.Mutex
	cond *sync.Cond

	limit                    uint64
	used                     uint64
	waitingDecompression     int
	reservedForDecompression uint64
}

// New returns an arbiter with the given resident-byte budget.
func New(limit uint64) *Arbiter {
	a := &Arbiter{limit: limit}
	a.cond = sync.NewCond(&a.mu)
	return a
}

// Limit returns the configured resident-byte budget.
func (a *Arbiter) Limit() uint64 { return a.limit }

// AcquireDecompression blocks until size bytes are available for a
// decompression buffer, then charges them against the budget.
func (a *Arbiter) AcquireDecompression(size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.waitingDecompression++
	if size > a.reservedForDecompression {
		a.reservedForDecompression = size
	}

	for a.used+size > a.limit {
		a.cond.Wait()
	}

	a.waitingDecompression--
	if a.waitingDecompression == 0 {
		a.reservedForDecompression = 0
	}
	a.used += size
}

// AcquireDecryption blocks until size bytes are available for a
// decryption buffer, additionally waiting out any outstanding
// decompression reservation so decrypt throughput can never push
// decompression into indefinite deferral.
func (a *Arbiter) AcquireDecryption(size uint64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for a.used+size > a.limit || a.used+size+a.reservedForDecompression > a.limit {
		a.cond.Wait()
	}
	a.used += size
}

// Release returns size bytes to the budget and wakes any waiters that
// might now be able to proceed.
func (a *Arbiter) Release(size uint64) {
	a.mu.Lock()
	a.used -= size
	a.mu.Unlock()
	a.cond.Broadcast()
}
