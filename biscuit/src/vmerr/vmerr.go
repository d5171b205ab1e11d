// Package vmerr holds the sentinel errors returned by the VM core's
// fallible operations. It is the idiomatic-Go face of the teacher's
// negative-errno `defs.Err_t` convention: internal plumbing still
// checks `err != 0` against `defs.Err_t` at its boundary, but anything
// a caller outside the core sees is one of these sentinels.
package vmerr

import (
	"errors"

	"defs"
)

var (
	// ErrOutOfSwap means the swap allocator has no free slot.
	ErrOutOfSwap = errors.New("swap allocator exhausted")
	// ErrOutOfFrames means the frame table could not acquire a frame
	// and eviction found no victim.
	ErrOutOfFrames = errors.New("frame pool exhausted")
	// ErrNoVictim means the clock scan completed its bound without
	// finding an unpinned frame.
	ErrNoVictim = errors.New("no evictable victim frame")
	// ErrAlreadyMapped means the SPT already holds a descriptor at
	// the given VA.
	ErrAlreadyMapped = errors.New("address already mapped")
	// ErrMapInstall means the hardware page table rejected an install.
	ErrMapInstall = errors.New("page table install failed")
	// ErrInvalidAccess means a fault address is outside the user
	// range, or matches neither an SPT entry nor a stack-growth
	// window.
	ErrInvalidAccess = errors.New("invalid memory access")
	// ErrBadUserPointer is raised by syscall-side copy-in helpers,
	// outside the VM core; named here only so callers can compare
	// against the full taxonomy of spec.md §7.
	ErrBadUserPointer = errors.New("bad user pointer")
)

// FromErrno adapts a defs.Err_t returned by boundary code (disk,
// file, hardware page-table shims) into one of the sentinels above.
func FromErrno(e defs.Err_t) error {
	switch e {
	case 0:
		return nil
	case defs.EOOSWAP:
		return ErrOutOfSwap
	case defs.EOOFRAME:
		return ErrOutOfFrames
	case defs.EALREADY:
		return ErrAlreadyMapped
	case defs.EMAPFAIL:
		return ErrMapInstall
	case defs.EBADACCESS:
		return ErrInvalidAccess
	default:
		return e
	}
}
