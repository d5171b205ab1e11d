package swap

import (
	"testing"

	"mem"
	"vmerr"
)

type fakeDisk struct{ sectors [][]byte }

func newFakeDisk(n int) *fakeDisk {
	d := &fakeDisk{sectors: make([][]byte, n)}
	for i := range d.sectors {
		d.sectors[i] = make([]byte, SectorSize)
	}
	return d
}
func (d *fakeDisk) ReadSector(s int, buf []byte) error  { copy(buf, d.sectors[s]); return nil }
func (d *fakeDisk) WriteSector(s int, buf []byte) error { copy(d.sectors[s], buf); return nil }
func (d *fakeDisk) NumSectors() int                     { return len(d.sectors) }

func TestAllocateReleaseReusesFirstFreeSlot(t *testing.T) {
	disk := newFakeDisk(SectorsPerPage * 4)
	a := NewAllocator(disk)

	s1, err := a.Allocate()
	if err != nil {
		t.Fatal(err)
	}
	s2, err := a.Allocate()
	if err != nil {
		t.Fatal(err)
	}
	if s1 == s2 {
		t.Fatal("expected distinct slots")
	}

	a.Release(s1)
	s3, err := a.Allocate()
	if err != nil {
		t.Fatal(err)
	}
	if s3 != s1 {
		t.Fatalf("expected reuse of freed slot %v, got %v", s1, s3)
	}
}

func TestAllocateExhausted(t *testing.T) {
	disk := newFakeDisk(SectorsPerPage)
	a := NewAllocator(disk)
	if _, err := a.Allocate(); err != nil {
		t.Fatal(err)
	}
	if _, err := a.Allocate(); err != vmerr.ErrOutOfSwap {
		t.Fatalf("want ErrOutOfSwap, got %v", err)
	}
}

func TestReleaseOfFreeSlotPanics(t *testing.T) {
	disk := newFakeDisk(SectorsPerPage)
	a := NewAllocator(disk)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic releasing a free slot")
		}
	}()
	a.Release(0)
}

func TestWriteFromReadIntoRoundTrip(t *testing.T) {
	disk := newFakeDisk(SectorsPerPage * 2)
	a := NewAllocator(disk)
	slot, err := a.Allocate()
	if err != nil {
		t.Fatal(err)
	}

	want := make([]byte, mem.PageSize)
	for i := range want {
		want[i] = byte(i)
	}
	if err := a.WriteFrom(slot, want); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, mem.PageSize)
	if err := a.ReadInto(slot, got); err != nil {
		t.Fatal(err)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d: got %d want %d", i, got[i], want[i])
		}
	}
}
