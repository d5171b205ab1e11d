package vmstat

import "testing"

func TestCounterIncrementsAndGet(t *testing.T) {
	s := New()
	s.Faults.Inc()
	s.Faults.Inc()
	s.Evictions.Inc()

	if got := s.Faults.Get(); got != 2 {
		t.Fatalf("want 2 faults, got %d", got)
	}
	if got := s.Evictions.Get(); got != 1 {
		t.Fatalf("want 1 eviction, got %d", got)
	}
}

func TestDisabledCounterDoesNotIncrement(t *testing.T) {
	Enabled = false
	defer func() { Enabled = true }()

	s := New()
	s.Faults.Inc()
	if got := s.Faults.Get(); got != 0 {
		t.Fatalf("want 0 while disabled, got %d", got)
	}
}

func TestProfileReportsEveryCounter(t *testing.T) {
	s := New()
	s.Faults.Inc()
	s.Faults.Inc()

	p := s.Profile()
	var found bool
	for _, sample := range p.Sample {
		if sample.Label["counter"][0] == "faults" {
			found = true
			if sample.Value[0] != 2 {
				t.Fatalf("want sample value 2, got %d", sample.Value[0])
			}
		}
	}
	if !found {
		t.Fatal("expected a faults sample in the profile")
	}
	if len(p.Sample) != 7 {
		t.Fatalf("want 7 samples (one per counter), got %d", len(p.Sample))
	}
}
