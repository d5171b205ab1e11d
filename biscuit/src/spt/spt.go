// Package spt implements the Supplemental Page Table: a per-process
// hash-keyed map from page-aligned virtual address to page
// descriptor, genericized from the teacher's hashtable.Hashtable_t
// (bucket array + per-bucket RWMutex chain, lock-free Find via atomic
// pointer loads) now specialized to uintptr keys via Go generics
// instead of the teacher's interface{}-plus-type-switch hash/equal.
package spt

import (
	"sync"
	"sync/atomic"

	"defs"
	"frame"
	"mem"
	"page"
)

type entry[V any] struct {
	key  uintptr
	val  V
	next atomic.Pointer[entry[V]]
}

type bucket[V any] struct {
	sync.RWMutex
	first atomic.Pointer[entry[V]]
}

// Table is a hash map from page-aligned virtual address to V.
type Table[V any] struct {
	buckets []*bucket[V]
}

// New allocates a table with nbuckets buckets.
func New[V any](nbuckets int) *Table[V] {
	t := &Table[V]{buckets: make([]*bucket[V], nbuckets)}
	for i := range t.buckets {
		t.buckets[i] = &bucket[V]{}
	}
	return t
}

func (t *Table[V]) bucketFor(va uintptr) *bucket[V] {
	idx := (va >> mem.PageShift) % uintptr(len(t.buckets))
	return t.buckets[idx]
}

// Find rounds va down to its page boundary and returns the stored
// value, if any.
func (t *Table[V]) Find(va uintptr) (V, bool) {
	var zero V
	va = mem.Rounddown(va)
	b := t.bucketFor(va)
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.key == va {
			return e.val, true
		}
	}
	return zero, false
}

// Insert adds val at va's page boundary, failing if a value is
// already present there.
func (t *Table[V]) Insert(va uintptr, val V) bool {
	va = mem.Rounddown(va)
	b := t.bucketFor(va)
	b.Lock()
	defer b.Unlock()

	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.key == va {
			return false
		}
	}
	n := &entry[V]{key: va, val: val}
	n.next.Store(b.first.Load())
	b.first.Store(n)
	return true
}

// Remove deletes the entry at va's page boundary, if any.
func (t *Table[V]) Remove(va uintptr) (V, bool) {
	var zero V
	va = mem.Rounddown(va)
	b := t.bucketFor(va)
	b.Lock()
	defer b.Unlock()

	var prev *entry[V]
	for e := b.first.Load(); e != nil; e = e.next.Load() {
		if e.key == va {
			if prev == nil {
				b.first.Store(e.next.Load())
			} else {
				prev.next.Store(e.next.Load())
			}
			return e.val, true
		}
		prev = e
	}
	return zero, false
}

// Each visits every (va, value) pair. Iteration order is unspecified
// but stable during a single call, matching spec.md §3.
func (t *Table[V]) Each(f func(uintptr, V)) {
	for _, b := range t.buckets {
		b.RLock()
		for e := b.first.Load(); e != nil; e = e.next.Load() {
			f(e.key, e.val)
		}
		b.RUnlock()
	}
}

// Size returns the total number of entries across all buckets.
func (t *Table[V]) Size() int {
	n := 0
	t.Each(func(uintptr, V) { n++ })
	return n
}

// SPT is the concrete Supplemental Page Table: VA -> *page.Page.
type SPT = Table[*page.Page]

// defaultBuckets is the bucket count used by NewSPT; chosen generous
// enough that a typical process's working set rarely chains.
const defaultBuckets = 256

// NewSPT allocates an empty Supplemental Page Table.
func NewSPT() *SPT {
	return New[*page.Page](defaultBuckets)
}

// Copy duplicates every descriptor in src into dst, per spec.md §4.4:
// Uninit descriptors are recreated with a duplicated loader/aux;
// Anonymous and FileBacked descriptors are claimed into a fresh frame
// in the child and their contents copied eagerly.
func Copy(dst, src *SPT, ft *frame.Table, childPT mem.PageTable, childOwner defs.Tid_t) error {
	var ferr error
	src.Each(func(va uintptr, p *page.Page) {
		if ferr != nil {
			return
		}
		np, err := p.ForkCopy(ft, childPT, childOwner)
		if err != nil {
			ferr = err
			return
		}
		dst.Insert(va, np)
	})
	return ferr
}

// Kill destroys every descriptor in t (writing back dirty file-backed
// pages, releasing swap slots and frames) and empties t itself, per
// spec.md §4.7 ("The SPT itself is then cleared"). Keys are collected
// before mutation since Remove locks the same per-bucket mutex Each
// holds for reading.
func Kill(t *SPT, ft *frame.Table) {
	var keys []uintptr
	t.Each(func(va uintptr, p *page.Page) {
		p.Destroy(ft)
		keys = append(keys, va)
	})
	for _, va := range keys {
		t.Remove(va)
	}
}
