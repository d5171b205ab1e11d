// Package mmap implements do_mmap/do_munmap: region bookkeeping over
// an AddressSpace, lazy per-page file loading via Uninit descriptors,
// and dirty write-back on unmap. Grounded on the teacher's
// vm.Vmadd_file/_mkvmi (region + fops + offset bookkeeping) and
// Uvmfree's "close all open mmap'ed files" teardown comment.
package mmap

import (
	"mem"
	"page"
	"util"
	"vm"
	"vmerr"
)

// Do installs a file-backed mapping of length bytes of file (from
// offset) at addr in as, per spec.md §4.6's preconditions and
// rollback rules.
func Do(as *vm.AddressSpace, addr uintptr, length int, writable bool, file page.File, offset int64) (uintptr, error) {
	if err := validate(addr, length, offset, file); err != nil {
		return 0, err
	}
	if !as.InUserRange(addr) {
		return 0, vmerr.ErrInvalidAccess
	}
	end := addr + uintptr(length) - 1
	if end < addr || !as.InUserRange(end) {
		return 0, vmerr.ErrInvalidAccess
	}

	reopened, err := file.Reopen()
	if err != nil {
		return 0, err
	}

	npages := (length + mem.PageSize - 1) / mem.PageSize

	as.Lock_pmap()
	defer as.Unlock_pmap()

	inserted := make([]uintptr, 0, npages)
	rollback := func() {
		for _, va := range inserted {
			as.Spt.Remove(va)
		}
		reopened.Close()
	}

	remaining := length
	fileRemaining := file.Len() - offset
	for i := 0; i < npages; i++ {
		va := addr + uintptr(i*mem.PageSize)
		if _, exists := as.Spt.Find(va); exists {
			rollback()
			return 0, vmerr.ErrAlreadyMapped
		}

		readBytes := util.Min(remaining, mem.PageSize)
		if fr := int(fileRemaining); readBytes > fr {
			readBytes = fr
		}
		if readBytes < 0 {
			readBytes = 0
		}
		zeroBytes := mem.PageSize - readBytes

		p := page.NewFileBackedUninit(va, writable, as.Owner, as.PT, as.SwapAllocator(), as.Stats(), reopened, offset+int64(i*mem.PageSize), readBytes, zeroBytes)
		if !as.Spt.Insert(va, p) {
			rollback()
			return 0, vmerr.ErrAlreadyMapped
		}
		inserted = append(inserted, va)
		remaining -= readBytes
		fileRemaining -= int64(readBytes)
	}

	as.Regions = append(as.Regions, &vm.Region{Start: addr, Pages: npages, File: reopened})
	return addr, nil
}

// Undo unmaps the region starting at addr (a no-op if none is found),
// per spec.md §4.6 munmap: each resident page's dirty bytes are
// written back, then the descriptor is destroyed, the file is closed
// and the region record freed.
func Undo(as *vm.AddressSpace, addr uintptr) {
	as.Lock_pmap()
	defer as.Unlock_pmap()

	idx := -1
	for i, r := range as.Regions {
		if r.Start == addr {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}

	r := as.Regions[idx]
	for i := 0; i < r.Pages; i++ {
		va := r.Start + uintptr(i*mem.PageSize)
		p, ok := as.Spt.Find(va)
		if !ok {
			continue
		}
		p.Destroy(as.Frames())
		as.Spt.Remove(va)
	}
	r.File.Close()
	as.Regions = append(as.Regions[:idx], as.Regions[idx+1:]...)
}

func validate(addr uintptr, length int, offset int64, file page.File) error {
	if addr == 0 || !mem.PageAligned(addr) {
		return vmerr.ErrInvalidAccess
	}
	if length <= 0 {
		return vmerr.ErrInvalidAccess
	}
	if offset%int64(mem.PageSize) != 0 {
		return vmerr.ErrInvalidAccess
	}
	if file == nil || file.Len() <= 0 {
		return vmerr.ErrInvalidAccess
	}
	return nil
}
