// Package vmstat counts fault/eviction/swap/file activity, grounded
// on the teacher's stats.Counter_t (atomic int64 behind a package-
// level enable flag) and accnt.go's per-unit accounting idiom, and
// exports a snapshot as a github.com/google/pprof profile so the
// counters can be inspected with standard pprof tooling.
package vmstat

import (
	"sync/atomic"
	"time"

	"github.com/google/pprof/profile"
)

// Enabled gates counter updates, mirroring the teacher's
// stats.Stats/stats.Timing package-level flags.
var Enabled = true

// Counter is an atomically-updated statistic.
type Counter int64

// Inc increments the counter by one, when Enabled.
func (c *Counter) Inc() {
	if Enabled {
		atomic.AddInt64((*int64)(c), 1)
	}
}

// Get returns the counter's current value.
func (c *Counter) Get() int64 {
	return atomic.LoadInt64((*int64)(c))
}

// Stats holds the VM core's activity counters.
type Stats struct {
	Faults      Counter
	MinorFaults Counter
	Evictions   Counter
	SwapIns     Counter
	SwapOuts    Counter
	FileReads   Counter
	FileWrites  Counter
}

// New returns a zeroed Stats.
func New() *Stats {
	return &Stats{}
}

// Profile renders the current counter values as a pprof profile.Profile
// snapshot, one sample per counter, labeled by counter name.
func (s *Stats) Profile() *profile.Profile {
	now := time.Now()

	fn := &profile.Function{ID: 1, Name: "vmstat"}
	loc := &profile.Location{ID: 1, Line: []profile.Line{{Function: fn}}}

	p := &profile.Profile{
		TimeNanos:  now.UnixNano(),
		SampleType: []*profile.ValueType{{Type: "count", Unit: "count"}},
		Function:   []*profile.Function{fn},
		Location:   []*profile.Location{loc},
	}

	counters := []struct {
		name string
		val  int64
	}{
		{"faults", s.Faults.Get()},
		{"minor_faults", s.MinorFaults.Get()},
		{"evictions", s.Evictions.Get()},
		{"swap_ins", s.SwapIns.Get()},
		{"swap_outs", s.SwapOuts.Get()},
		{"file_reads", s.FileReads.Get()},
		{"file_writes", s.FileWrites.Get()},
	}
	for _, c := range counters {
		p.Sample = append(p.Sample, &profile.Sample{
			Location: []*profile.Location{loc},
			Value:    []int64{c.val},
			Label:    map[string][]string{"counter": {c.name}},
		})
	}
	return p
}
