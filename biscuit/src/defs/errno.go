// Package defs holds the small set of types shared by every other VM
// package: the errno-flavored internal error codes and a thread
// identifier type.
package defs

import "fmt"

/// Err_t is a negative-errno-style internal error code. Zero means
/// success; callers check `err != 0`.
type Err_t int

const (
	EFAULT       Err_t = -14 /// bad address
	ENOMEM       Err_t = -12 /// out of memory / frames
	EINVAL       Err_t = -22 /// invalid argument
	ENAMETOOLONG Err_t = -36 /// name too long
	ENOHEAP      Err_t = -48 /// resource accounting exhausted

	// VM-core specific conditions named by the fault/claim/mmap paths.
	EOOSWAP    Err_t = -100 /// swap allocator exhausted
	EOOFRAME   Err_t = -101 /// no frame available and no evictable victim
	EALREADY   Err_t = -102 /// SPT already has a descriptor at this VA
	EMAPFAIL   Err_t = -103 /// hardware page-table install failed
	EBADACCESS Err_t = -104 /// fault address is not a mapped page nor valid stack growth
)

/// Tid_t identifies the thread/process that owns a page descriptor or
/// address space. The scheduler that allocates these values lives
/// outside the VM core.
type Tid_t int

/// Error implements the error interface so an Err_t can be returned and
/// compared wherever idiomatic Go code expects one, while the internal
/// plumbing keeps returning the bare Err_t for cheap == 0 checks.
func (e Err_t) Error() string {
	switch e {
	case 0:
		return "success"
	case EFAULT:
		return "bad address"
	case ENOMEM:
		return "out of memory"
	case EINVAL:
		return "invalid argument"
	case ENAMETOOLONG:
		return "name too long"
	case ENOHEAP:
		return "resource accounting exhausted"
	case EOOSWAP:
		return "out of swap"
	case EOOFRAME:
		return "out of frames"
	case EALREADY:
		return "already mapped"
	case EMAPFAIL:
		return "page table install failed"
	case EBADACCESS:
		return "invalid access"
	default:
		return fmt.Sprintf("errno %d", int(e))
	}
}

/// ToError converts a nonzero Err_t into an error, and a zero Err_t
/// into nil, matching the teacher's `if err != 0` convention while
/// still handing idiomatic callers a plain error.
func (e Err_t) ToError() error {
	if e == 0 {
		return nil
	}
	return e
}
