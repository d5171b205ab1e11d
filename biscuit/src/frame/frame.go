// Package frame implements the frame table: the global list of
// resident physical frames, its clock-hand eviction scan, and
// per-frame pinning. It knows nothing about page descriptors beyond
// the narrow Resident interface, so it never imports package page.
package frame

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"mem"
	"vmerr"
	"vmstat"
)

// Resident is the slice of a page descriptor the frame table needs in
// order to evict it: its virtual address, the page table that maps
// it, a way to write its contents out before the frame is reused, and
// a way to sever the page's back-reference once that's done.
type Resident interface {
	VA() uintptr
	PageTable() mem.PageTable
	SwapOut(fr *Frame) error
	Detach()
}

// Frame is one resident physical page.
type Frame struct {
	Kva  []byte
	Pa   mem.Pa
	page Resident
	pin  bool
}

// Page returns the descriptor currently resident in this frame, or
// nil if the frame is free-standing (mid-eviction).
func (f *Frame) Page() Resident { return f.page }

// SetPage installs the descriptor resident in this frame.
func (f *Frame) SetPage(r Resident) { f.page = r }

// Table is the frame table: a fixed-growth list of frames backed by a
// physical user-page pool, a clock cursor for eviction, and a
// semaphore bounding how many frames may be pinned (mid swap-in or
// mid hardware-install) at once.
type Table struct {
	mu     sync.Mutex
	pool   mem.UserPool
	frames []*Frame
	cursor int
	pinSem *semaphore.Weighted
	stats  *vmstat.Stats
}

// NewTable builds a frame table over pool. maxPinned bounds the
// number of frames that may be pinned concurrently, which in turn
// bounds how many swap-ins/installs can be in flight at once. stats
// receives an Evictions count each time the clock scan picks a victim.
func NewTable(pool mem.UserPool, maxPinned int64, stats *vmstat.Stats) *Table {
	return &Table{
		pool:   pool,
		pinSem: semaphore.NewWeighted(maxPinned),
		stats:  stats,
	}
}

// Len reports the number of frames currently tracked by the table.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

// Acquire returns a frame backed by a freshly zeroed physical page,
// evicting a victim if the underlying pool is exhausted.
func (t *Table) Acquire() (*Frame, error) {
	pa, kva, ok := t.pool.AcquireZero()
	if ok {
		fr := &Frame{Kva: kva, Pa: pa}
		t.mu.Lock()
		t.frames = append(t.frames, fr)
		t.mu.Unlock()
		return fr, nil
	}
	return t.evict()
}

// Release returns fr to the underlying pool. Any hardware mapping for
// its resident page must already be cleared by the caller.
func (t *Table) Release(fr *Frame) {
	t.mu.Lock()
	for i, f := range t.frames {
		if f == fr {
			t.frames = append(t.frames[:i], t.frames[i+1:]...)
			break
		}
	}
	t.mu.Unlock()
	fr.page = nil
	t.pool.Release(fr.Pa)
}

// Pin marks fr as ineligible for eviction, blocking on ctx if the
// concurrently-pinned bound is currently saturated.
func (t *Table) Pin(ctx context.Context, fr *Frame) error {
	if err := t.pinSem.Acquire(ctx, 1); err != nil {
		return err
	}
	t.mu.Lock()
	fr.pin = true
	t.mu.Unlock()
	return nil
}

// Unpin clears fr's pin, making it eligible for eviction again.
func (t *Table) Unpin(fr *Frame) {
	t.mu.Lock()
	fr.pin = false
	t.mu.Unlock()
	t.pinSem.Release(1)
}

// evict runs the clock/second-chance scan: at most 2*frame_count
// iterations, skipping pinned or empty frames, clearing and advancing
// past any frame whose page was recently accessed, and returning the
// first frame found cold. The chosen victim is pinned and detached
// from the scan before its (possibly blocking) swap_out runs, so a
// concurrent scan never selects it twice.
func (t *Table) evict() (*Frame, error) {
	t.mu.Lock()
	n := len(t.frames)
	if n == 0 {
		t.mu.Unlock()
		return nil, vmerr.ErrOutOfFrames
	}

	bound := 2 * n
	for i := 0; i < bound; i++ {
		idx := t.cursor
		t.cursor = (t.cursor + 1) % n
		fr := t.frames[idx]
		if fr.page == nil || fr.pin {
			continue
		}
		pg := fr.page
		pt := pg.PageTable()
		va := pg.VA()
		if pt.IsAccessed(va) {
			pt.SetAccessed(va, false)
			continue
		}

		fr.pin = true
		t.mu.Unlock()

		pt.ClearPage(va)
		err := pg.SwapOut(fr)

		t.mu.Lock()
		fr.pin = false
		fr.page = nil
		t.mu.Unlock()

		pg.Detach()
		if err != nil {
			return nil, err
		}
		t.stats.Evictions.Inc()
		return fr, nil
	}
	t.mu.Unlock()
	return nil, vmerr.ErrNoVictim
}
