// Package page implements the page descriptor: the polymorphic record
// that starts life Uninit and transitions exactly once to Anonymous
// or FileBacked, with kind-dispatched swap-in, swap-out and destroy.
package page

import (
	"io"
	"sync"

	"defs"
	"frame"
	"mem"
	"swap"
	"vmerr"
	"vmstat"
)

// Kind is the tag of a page descriptor's current variant.
type Kind int

const (
	// Uninit pages have not yet been materialized.
	Uninit Kind = iota
	// Anonymous pages have no file backing; evicted contents go to swap.
	Anonymous
	// FileBacked pages are authoritatively backed by a file at an offset.
	FileBacked
)

func (k Kind) String() string {
	switch k {
	case Uninit:
		return "uninit"
	case Anonymous:
		return "anonymous"
	case FileBacked:
		return "filebacked"
	default:
		return "unknown"
	}
}

// File abstracts the surrounding kernel's open file handle.
type File interface {
	ReadAt(buf []byte, off int64) (int, error)
	WriteAt(buf []byte, off int64) (int, error)
	Len() int64
	Reopen() (File, error)
	Close() error
}

// Loader materializes the first-fault contents of an Uninit page into
// fr, given the opaque aux argument captured at creation time.
type Loader func(p *Page, fr *frame.Frame, aux interface{}) error

type uninitPayload struct {
	target Kind
	loader Loader
	aux    interface{}
}

type anonPayload struct {
	slot  swap.Slot
	held  bool
}

type filePayload struct {
	file      File
	offset    int64
	readBytes int
	zeroBytes int
}

// Page is one user virtual page's descriptor. It implements
// frame.Resident so the frame table can evict it without importing
// this package.
type Page struct {
	mu       sync.Mutex
	va       uintptr
	kind     Kind
	writable bool
	owner    defs.Tid_t
	pt       mem.PageTable
	sw       *swap.Allocator
	frame    *frame.Frame
	stats    *vmstat.Stats

	uninit *uninitPayload
	anon   *anonPayload
	file   *filePayload
}

// NewWithInitializer creates an Uninit descriptor that will transition
// to target on first fault by running loader with the given aux
// value. This is the Go shape of spec.md §6's
// alloc_page_with_initializer. stats receives the minor-fault/swap-in/
// file-read/swap-out/file-write counts this descriptor generates over
// its lifetime.
func NewWithInitializer(target Kind, va uintptr, writable bool, owner defs.Tid_t, pt mem.PageTable, sw *swap.Allocator, stats *vmstat.Stats, loader Loader, aux interface{}) *Page {
	return &Page{
		va:       mem.Rounddown(va),
		kind:     Uninit,
		writable: writable,
		owner:    owner,
		pt:       pt,
		sw:       sw,
		stats:    stats,
		uninit:   &uninitPayload{target: target, loader: loader, aux: aux},
	}
}

// NewAnonymousUninit creates an Uninit descriptor that zero-fills on
// first fault, the shape used for lazily-grown stack and bss pages.
func NewAnonymousUninit(va uintptr, writable bool, owner defs.Tid_t, pt mem.PageTable, sw *swap.Allocator, stats *vmstat.Stats) *Page {
	return NewWithInitializer(Anonymous, va, writable, owner, pt, sw, stats, anonLoader, nil)
}

// NewFileBackedUninit creates an Uninit descriptor that loads
// (file, offset, readBytes, zeroBytes) on first fault, the shape used
// by mmap.
func NewFileBackedUninit(va uintptr, writable bool, owner defs.Tid_t, pt mem.PageTable, sw *swap.Allocator, stats *vmstat.Stats, file File, offset int64, readBytes, zeroBytes int) *Page {
	aux := &filePayload{file: file, offset: offset, readBytes: readBytes, zeroBytes: zeroBytes}
	return NewWithInitializer(FileBacked, va, writable, owner, pt, sw, stats, fileLoader, aux)
}

func anonLoader(p *Page, fr *frame.Frame, aux interface{}) error {
	zeroFill(fr)
	p.anon = &anonPayload{}
	return nil
}

func fileLoader(p *Page, fr *frame.Frame, aux interface{}) error {
	fp := aux.(*filePayload)
	p.file = fp
	return p.loadFile(fr)
}

func zeroFill(fr *frame.Frame) {
	for i := range fr.Kva {
		fr.Kva[i] = 0
	}
}

func (p *Page) loadFile(fr *frame.Frame) error {
	fp := p.file
	if fp.readBytes > 0 {
		if _, err := fp.file.ReadAt(fr.Kva[:fp.readBytes], fp.offset); err != nil && err != io.EOF {
			return err
		}
	}
	for i := fp.readBytes; i < len(fr.Kva); i++ {
		fr.Kva[i] = 0
	}
	return nil
}

// VA implements frame.Resident.
func (p *Page) VA() uintptr { return p.va }

// PageTable implements frame.Resident.
func (p *Page) PageTable() mem.PageTable { return p.pt }

// Writable reports whether user writes to this page are permitted.
func (p *Page) Writable() bool { return p.writable }

// Owner returns the process/thread that owns this descriptor.
func (p *Page) Owner() defs.Tid_t { return p.owner }

// Kind returns the descriptor's current variant.
func (p *Page) Kind() Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.kind
}

// Frame returns the resident frame, or nil if swapped out / not yet
// loaded.
func (p *Page) Frame() *frame.Frame {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.frame
}

// Detach implements frame.Resident: clears the back-reference to the
// frame that was just evicted.
func (p *Page) Detach() {
	p.mu.Lock()
	p.frame = nil
	p.mu.Unlock()
}

// SwapIn materializes the descriptor's contents into fr: Uninit runs
// its loader and mutates kind in place (a minor fault); Anonymous
// reads from its held swap slot (if any) and releases it (a swap-in);
// FileBacked (re)reads from the file and zero-fills the tail (a file
// read-back).
func (p *Page) SwapIn(fr *frame.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.kind {
	case Uninit:
		if err := p.uninit.loader(p, fr, p.uninit.aux); err != nil {
			return err
		}
		p.kind = p.uninit.target
		p.uninit = nil
		p.stats.MinorFaults.Inc()
	case Anonymous:
		if p.anon != nil && p.anon.held {
			if err := p.sw.ReadInto(p.anon.slot, fr.Kva); err != nil {
				return err
			}
			p.sw.Release(p.anon.slot)
			p.anon.held = false
			p.stats.SwapIns.Inc()
		}
	case FileBacked:
		if err := p.loadFile(fr); err != nil {
			return err
		}
		p.stats.FileReads.Inc()
	}
	p.frame = fr
	return nil
}

// SwapOut implements frame.Resident: writes the victim frame's
// contents to swap (Anonymous) or back to the file if dirty
// (FileBacked), called by the frame table before the frame is reused.
func (p *Page) SwapOut(fr *frame.Frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.kind {
	case Anonymous:
		slot, err := p.sw.Allocate()
		if err != nil {
			return err
		}
		if err := p.sw.WriteFrom(slot, fr.Kva); err != nil {
			p.sw.Release(slot)
			return err
		}
		p.anon = &anonPayload{slot: slot, held: true}
		p.stats.SwapOuts.Inc()
	case FileBacked:
		if p.pt.IsDirty(p.va) {
			if _, err := p.file.file.WriteAt(fr.Kva[:p.file.readBytes], p.file.offset); err != nil {
				return err
			}
			p.pt.SetDirty(p.va, false)
			p.stats.FileWrites.Inc()
		}
	}
	return nil
}

// Destroy releases all resources held by the descriptor: dirty
// file-backed contents are written back, a held swap slot is
// released (the fix for the source's anon_destroy leak, see
// DESIGN.md), and a resident frame is returned to ft.
func (p *Page) Destroy(ft *frame.Table) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.kind {
	case FileBacked:
		if p.frame != nil && p.pt.IsDirty(p.va) {
			if _, err := p.file.file.WriteAt(p.frame.Kva[:p.file.readBytes], p.file.offset); err != nil {
				return err
			}
			p.pt.SetDirty(p.va, false)
		}
	case Anonymous:
		if p.anon != nil && p.anon.held {
			p.sw.Release(p.anon.slot)
			p.anon.held = false
		}
	}
	if p.frame != nil {
		p.pt.ClearPage(p.va)
		ft.Release(p.frame)
		p.frame = nil
	}
	return nil
}

// ForkCopy builds the descriptor fork(2) installs in the child's SPT
// for this page, per spec.md §4.4 copy:
//   - Uninit: duplicate the loader/aux (reopening any held file).
//   - Anonymous/FileBacked: claim a fresh frame in the child and copy
//     bytes eagerly (see DESIGN.md's Open Question decision on
//     fork of file-backed pages).
func (p *Page) ForkCopy(ft *frame.Table, childPT mem.PageTable, childOwner defs.Tid_t) (*Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	switch p.kind {
	case Uninit:
		np := &Page{va: p.va, kind: Uninit, writable: p.writable, owner: childOwner, pt: childPT, sw: p.sw, stats: p.stats}
		if p.uninit.target == FileBacked {
			fp := p.uninit.aux.(*filePayload)
			reopened, err := fp.file.Reopen()
			if err != nil {
				return nil, err
			}
			nfp := &filePayload{file: reopened, offset: fp.offset, readBytes: fp.readBytes, zeroBytes: fp.zeroBytes}
			np.uninit = &uninitPayload{target: FileBacked, loader: fileLoader, aux: nfp}
		} else {
			np.uninit = &uninitPayload{target: p.uninit.target, loader: p.uninit.loader, aux: p.uninit.aux}
		}
		return np, nil

	case Anonymous, FileBacked:
		np := &Page{va: p.va, kind: p.kind, writable: p.writable, owner: childOwner, pt: childPT, sw: p.sw, stats: p.stats}
		if p.kind == FileBacked {
			reopened, err := p.file.file.Reopen()
			if err != nil {
				return nil, err
			}
			np.file = &filePayload{file: reopened, offset: p.file.offset, readBytes: p.file.readBytes, zeroBytes: p.file.zeroBytes}
		}

		fr, err := ft.Acquire()
		if err != nil {
			return nil, err
		}
		if !childPT.SetPage(p.va, fr.Pa, p.writable) {
			ft.Release(fr)
			return nil, vmerr.ErrMapInstall
		}
		fr.SetPage(np)
		np.frame = fr

		switch {
		case p.frame != nil:
			copy(fr.Kva, p.frame.Kva)
		case p.kind == Anonymous && p.anon != nil && p.anon.held:
			if err := p.sw.ReadInto(p.anon.slot, fr.Kva); err != nil {
				return nil, err
			}
		case p.kind == FileBacked:
			if err := np.loadFile(fr); err != nil {
				return nil, err
			}
		}
		return np, nil
	}
	return nil, nil
}
