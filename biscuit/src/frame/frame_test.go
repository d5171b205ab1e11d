package frame

import (
	"context"
	"testing"

	"mem"
	"vmstat"
)

type fakePool struct {
	n, cap int
}

func newFakePool(cap int) *fakePool { return &fakePool{cap: cap} }

func (p *fakePool) AcquireZero() (mem.Pa, []byte, bool) {
	if p.n >= p.cap {
		return 0, nil, false
	}
	p.n++
	return mem.Pa(p.n), make([]byte, mem.PageSize), true
}
func (p *fakePool) Release(mem.Pa) {}

type fakePT struct {
	accessed map[uintptr]bool
	mapped   map[uintptr]mem.Pa
}

func newFakePT() *fakePT {
	return &fakePT{accessed: map[uintptr]bool{}, mapped: map[uintptr]mem.Pa{}}
}
func (pt *fakePT) SetPage(va uintptr, pa mem.Pa, w bool) bool { pt.mapped[va] = pa; return true }
func (pt *fakePT) ClearPage(va uintptr)                       { delete(pt.mapped, va); delete(pt.accessed, va) }
func (pt *fakePT) GetPage(va uintptr) (mem.Pa, bool)          { pa, ok := pt.mapped[va]; return pa, ok }
func (pt *fakePT) IsAccessed(va uintptr) bool                 { return pt.accessed[va] }
func (pt *fakePT) SetAccessed(va uintptr, v bool)             { pt.accessed[va] = v }
func (pt *fakePT) IsDirty(uintptr) bool                       { return false }
func (pt *fakePT) SetDirty(uintptr, bool)                     {}

type fakeResident struct {
	va       uintptr
	pt       *fakePT
	detached bool
}

func (r *fakeResident) VA() uintptr              { return r.va }
func (r *fakeResident) PageTable() mem.PageTable { return r.pt }
func (r *fakeResident) SwapOut(fr *Frame) error  { return nil }
func (r *fakeResident) Detach()                  { r.detached = true }

func TestAcquireRelease(t *testing.T) {
	pool := newFakePool(2)
	tbl := NewTable(pool, 2, vmstat.New())
	fr, err := tbl.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if tbl.Len() != 1 {
		t.Fatalf("want 1 frame, got %d", tbl.Len())
	}
	tbl.Release(fr)
	if tbl.Len() != 0 {
		t.Fatalf("want 0 frames after release, got %d", tbl.Len())
	}
}

func TestEvictPicksColdFrame(t *testing.T) {
	pool := newFakePool(2)
	stats := vmstat.New()
	tbl := NewTable(pool, 4, stats)
	pt := newFakePT()

	fr1, _ := tbl.Acquire()
	r1 := &fakeResident{va: 0x1000, pt: pt}
	fr1.SetPage(r1)
	pt.accessed[r1.va] = true

	fr2, _ := tbl.Acquire()
	r2 := &fakeResident{va: 0x2000, pt: pt}
	fr2.SetPage(r2)

	fr3, err := tbl.Acquire()
	if err != nil {
		t.Fatalf("acquire after eviction: %v", err)
	}
	if !r2.detached {
		t.Fatal("expected cold frame's page to be detached")
	}
	if r1.detached {
		t.Fatal("hot frame should not have been evicted")
	}
	if fr3 != fr2 {
		t.Fatal("expected the evicted frame to be reused")
	}
	if stats.Evictions.Get() != 1 {
		t.Fatalf("want 1 eviction counted, got %d", stats.Evictions.Get())
	}
}

func TestEvictFailsWhenAllPinned(t *testing.T) {
	pool := newFakePool(1)
	tbl := NewTable(pool, 4, vmstat.New())
	pt := newFakePT()
	fr, _ := tbl.Acquire()
	r := &fakeResident{va: 0x1000, pt: pt}
	fr.SetPage(r)
	if err := tbl.Pin(context.Background(), fr); err != nil {
		t.Fatal(err)
	}

	if _, err := tbl.Acquire(); err == nil {
		t.Fatal("expected an error when every frame is pinned")
	}
}
