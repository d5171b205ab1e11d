package vm

import (
	"defs"
	"mem"
	"page"
	"vmerr"
)

// FaultContext is the Go shape of thread_current()/intr_frame.rsp: the
// faulting stack pointer and the process the fault occurred in,
// collected by the caller (no global current-thread lookup here).
type FaultContext struct {
	RSP   uintptr
	Owner defs.Tid_t
}

// TryHandleFault classifies a hardware page fault and drives Claim,
// per spec.md §4.5: a protection fault always fails; otherwise an SPT
// hit is claimed, an address within the stack-growth window gets a
// fresh Anonymous descriptor, and anything else is InvalidAccess.
func (as *AddressSpace) TryHandleFault(ctx FaultContext, addr uintptr, user, write, notPresent bool) error {
	as.sub.Stats.Faults.Inc()

	if !notPresent {
		return vmerr.ErrInvalidAccess
	}

	pa := mem.Rounddown(addr)
	if !as.InUserRange(pa) {
		return vmerr.ErrInvalidAccess
	}

	as.Lock_pmap()
	defer as.Unlock_pmap()

	if _, ok := as.Spt.Find(pa); ok {
		return as.ClaimPage(pa)
	}

	if as.isStackGrowth(addr, ctx.RSP) {
		p := page.NewAnonymousUninit(pa, true, as.Owner, as.PT, as.sub.Swap, as.sub.Stats)
		if !as.Spt.Insert(pa, p) {
			return vmerr.ErrAlreadyMapped
		}
		return as.ClaimPage(pa)
	}

	return vmerr.ErrInvalidAccess
}

// isStackGrowth reports whether addr qualifies as an implicit stack
// extension: below USER_STACK, at or above rsp-RedZone (admitting the
// x86-64 red-zone push patterns), and within StackLimit of the stack
// ceiling.
func (as *AddressSpace) isStackGrowth(addr, rsp uintptr) bool {
	top := as.sub.cfg.UserStackTop
	if addr >= top {
		return false
	}
	lowBound := rsp
	if lowBound >= as.sub.cfg.RedZone {
		lowBound -= as.sub.cfg.RedZone
	} else {
		lowBound = 0
	}
	if addr < lowBound {
		return false
	}
	return top-addr <= as.sub.cfg.StackLimit
}
