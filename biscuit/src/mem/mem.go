// Package mem defines the physical-page primitives and the narrow
// hardware interfaces the VM core consumes from the surrounding
// kernel: a zeroed-page allocator and a hardware page-table view. The
// allocator and page-table walker themselves live outside this
// module; mem only names the shape the VM core needs from them.
package mem

// PageShift is the base-2 exponent of the page size.
const PageShift uint = 12

// PageSize is the size of a single page in bytes.
const PageSize int = 1 << PageShift

// PageOffset masks the in-page offset bits of an address.
const PageOffset uintptr = uintptr(PageSize) - 1

// PageMask masks the page-number bits of an address.
const PageMask uintptr = ^PageOffset

// Pa is a physical address of a page-pool frame.
type Pa uintptr

// Bytepg is one page's worth of bytes.
type Bytepg [PageSize]uint8

// Rounddown rounds a virtual or physical address down to its
// containing page boundary.
func Rounddown(addr uintptr) uintptr {
	return addr &^ PageOffset
}

// PageAligned reports whether addr falls exactly on a page boundary.
func PageAligned(addr uintptr) bool {
	return addr&PageOffset == 0
}

// UserPool abstracts the kernel's physical user-page allocator:
// palloc_acquire_user_zero / palloc_release.
type UserPool interface {
	// AcquireZero returns a freshly zeroed physical page and a byte
	// slice mapping it, or ok=false if the pool is exhausted.
	AcquireZero() (pa Pa, kva []byte, ok bool)
	// Release returns a page previously returned by AcquireZero.
	Release(pa Pa)
}

// PageTable abstracts the hardware page-table walker (pml4_*) for one
// process's address space.
type PageTable interface {
	// SetPage installs va -> pa with the given writable bit. It
	// reports false (MapInstallError at the caller) if a page-table
	// page could not be allocated.
	SetPage(va uintptr, pa Pa, writable bool) bool
	// ClearPage removes any mapping at va. It is a no-op if none exists.
	ClearPage(va uintptr)
	// GetPage reports whether va is currently mapped and to which
	// physical page.
	GetPage(va uintptr) (pa Pa, present bool)
	IsAccessed(va uintptr) bool
	SetAccessed(va uintptr, v bool)
	IsDirty(va uintptr) bool
	SetDirty(va uintptr, v bool)
}
