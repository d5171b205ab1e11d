// Package vm ties the frame table, swap allocator and SPT together
// into the per-process address space: claiming descriptors into
// frames, handling page faults (including stack growth), and driving
// fork-time SPT copy and process teardown.
package vm

import (
	"context"
	"sync"

	"defs"
	"frame"
	"mem"
	"page"
	"spt"
	"swap"
	"vmerr"
	"vmstat"
)

// Config carries the values spec.md §9's "Global mutable state" note
// says should be passed explicitly rather than read off free-floating
// globals: frame pool sizing and the stack-growth window.
type Config struct {
	// MaxPinnedFrames bounds how many frames may be pinned
	// concurrently (mid swap-in or mid hardware install).
	MaxPinnedFrames int64
	// UserStackTop is the USER_STACK ceiling: the first address past
	// the top of every process's stack region.
	UserStackTop uintptr
	// StackLimit is the maximum size the stack may grow to (1 MiB in
	// spec.md §4.5).
	StackLimit uintptr
	// RedZone is the number of bytes below rsp a fault may still
	// land in and count as a stack-growth access (32, to admit the
	// x86-64 red-zone push patterns).
	RedZone uintptr
}

// Subsystem is the VM core's single initialized instance: the shared
// frame table and swap allocator every process's AddressSpace draws
// from, plus the shared counters. This is vm_init's Go shape.
type Subsystem struct {
	Frames *frame.Table
	Swap   *swap.Allocator
	Stats  *vmstat.Stats
	cfg    Config
}

// Init initializes the frame table (over pool) and the swap allocator
// (over disk) and returns the subsystem handle every AddressSpace is
// built from.
func Init(cfg Config, pool mem.UserPool, disk swap.Disk) *Subsystem {
	stats := vmstat.New()
	return &Subsystem{
		Frames: frame.NewTable(pool, cfg.MaxPinnedFrames, stats),
		Swap:   swap.NewAllocator(disk),
		Stats:  stats,
		cfg:    cfg,
	}
}

// NewAddressSpace allocates an empty address space for owner, backed
// by pt and this subsystem's shared frame table and swap allocator.
// This is spt_init's Go shape.
func (s *Subsystem) NewAddressSpace(owner defs.Tid_t, pt mem.PageTable) *AddressSpace {
	return &AddressSpace{
		Owner: owner,
		PT:    pt,
		Spt:   spt.NewSPT(),
		sub:   s,
	}
}

// AddressSpace represents one process's virtual address space: its
// SPT plus the hardware page table it is installed into. The mutex
// protects SPT mutation and hardware-mapping installs, grounded on
// the teacher's Vm_t (embedded sync.Mutex, Lock_pmap/Unlock_pmap/
// Lockassert_pmap convention, pgfltaken double-lock guard).
type AddressSpace struct {
	sync.Mutex
	pgfltaken bool

	Owner   defs.Tid_t
	PT      mem.PageTable
	Spt     *spt.SPT
	Regions []*Region

	sub *Subsystem
}

// Lock_pmap acquires the address space mutex and marks that a page
// fault (or equivalent SPT/hardware-mapping mutation) is being
// handled.
func (as *AddressSpace) Lock_pmap() {
	as.Lock()
	as.pgfltaken = true
}

// Unlock_pmap releases the address space mutex.
func (as *AddressSpace) Unlock_pmap() {
	as.pgfltaken = false
	as.Unlock()
}

// Lockassert_pmap panics if the address space mutex is not held.
func (as *AddressSpace) Lockassert_pmap() {
	if !as.pgfltaken {
		panic("vm: pgfl lock must be held")
	}
}

// Frames returns the shared frame table.
func (as *AddressSpace) Frames() *frame.Table { return as.sub.Frames }

// SwapAllocator returns the shared swap allocator.
func (as *AddressSpace) SwapAllocator() *swap.Allocator { return as.sub.Swap }

// Stats returns the shared statistics counters.
func (as *AddressSpace) Stats() *vmstat.Stats { return as.sub.Stats }

// InUserRange reports whether va falls within the user-addressable
// range (below the stack ceiling, non-zero).
func (as *AddressSpace) InUserRange(va uintptr) bool {
	return va > 0 && va < as.sub.cfg.UserStackTop
}

// ClaimPage materializes the SPT descriptor at va into a frame,
// installs the hardware mapping, and runs its swap-in handler. The
// caller must hold Lock_pmap. This is spec.md §4.3's Claim steps.
func (as *AddressSpace) ClaimPage(va uintptr) error {
	as.Lockassert_pmap()
	va = mem.Rounddown(va)

	p, ok := as.Spt.Find(va)
	if !ok {
		return vmerr.ErrInvalidAccess
	}

	fr, err := as.sub.Frames.Acquire()
	if err != nil {
		return err
	}
	if err := as.sub.Frames.Pin(context.Background(), fr); err != nil {
		as.sub.Frames.Release(fr)
		return err
	}

	if !as.PT.SetPage(va, fr.Pa, p.Writable()) {
		as.sub.Frames.Unpin(fr)
		as.sub.Frames.Release(fr)
		return vmerr.ErrMapInstall
	}
	fr.SetPage(p)

	if err := p.SwapIn(fr); err != nil {
		as.PT.ClearPage(va)
		as.sub.Frames.Unpin(fr)
		as.sub.Frames.Release(fr)
		return err
	}
	as.sub.Frames.Unpin(fr)
	return nil
}

// Fork builds a child address space over childPT, copying this
// address space's SPT into it eagerly (spec.md §4.4 copy, no
// copy-on-write per the Non-goals). The caller's address space is
// locked for the duration, matching "fork copy runs in the parent
// with the child suspended" (spec.md §5).
func (as *AddressSpace) Fork(childOwner defs.Tid_t, childPT mem.PageTable) (*AddressSpace, error) {
	as.Lock_pmap()
	defer as.Unlock_pmap()

	child := as.sub.NewAddressSpace(childOwner, childPT)
	if err := spt.Copy(child.Spt, as.Spt, as.sub.Frames, childPT, childOwner); err != nil {
		return nil, err
	}
	return child, nil
}

// Kill destroys every descriptor in the address space (spec.md §4.7
// process teardown): dirty file-backed pages are written back, swap
// slots and frames released, and the SPT left empty.
func (as *AddressSpace) Kill() {
	as.Lock_pmap()
	defer as.Unlock_pmap()
	spt.Kill(as.Spt, as.sub.Frames)
}

// Region is the mmap bookkeeping record tying a contiguous virtual
// range to a reopened file handle and page count, per spec.md §3's
// mmap Region. Lives in vm (rather than mmap) so AddressSpace can hold
// a Regions list without an import cycle back to package mmap.
type Region struct {
	Start uintptr
	Pages int
	File  page.File
}
