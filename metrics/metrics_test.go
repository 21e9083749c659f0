package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_NilRegistry(t *testing.T) {
	m, err := New(nil)
	if err != nil || m != nil {
		t.Fatalf("New(nil) = %v, %v, want nil, nil", m, err)
	}

	// Every method is a no-op on nil.
	m.ObserveProcess("p", time.Millisecond, nil)
	m.ObserveDraw("p::f", time.Millisecond, nil)
	m.FilterBroken("p::f")
	m.BrokenFilterReleased()
	m.SetCells("p", 2)
	m.SetLiveSockets(3)
	m.Forget("p", []string{"p::f"})
	m.Unregister(prometheus.NewRegistry())
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := New(reg); err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := New(reg); err == nil {
		t.Fatal("second New() on the same registry: error = nil")
	}
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	m.ObserveProcess("main", 2*time.Millisecond, nil)
	m.ObserveProcess("main", time.Millisecond, nil)
	m.ObserveProcess("main", time.Millisecond, errors.New("boom"))
	m.ObserveDraw("main::Pass", time.Millisecond, nil)
	m.ObserveDraw("main::Pass", time.Millisecond, errors.New("boom"))
	m.FilterBroken("main::Pass")
	m.SetCells("main", 2)
	m.SetLiveSockets(7)

	tests := []struct {
		name string
		c    prometheus.Collector
		want float64
	}{
		{"processes ok", m.processes.WithLabelValues("main", StatusOK), 2},
		{"processes error", m.processes.WithLabelValues("main", StatusError), 1},
		{"draws ok", m.draws.WithLabelValues("main::Pass", StatusOK), 1},
		{"draws error", m.draws.WithLabelValues("main::Pass", StatusError), 1},
		{"draws broken", m.draws.WithLabelValues("main::Pass", StatusBroken), 1},
		{"broken filters", m.brokenFilters, 1},
		{"cells", m.cells.WithLabelValues("main"), 2},
		{"live sockets", m.liveSockets, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := testutil.ToFloat64(tt.c); got != tt.want {
				t.Errorf("value = %v, want %v", got, tt.want)
			}
		})
	}

	if got := testutil.CollectAndCount(m.processDuration); got != 1 {
		t.Errorf("process_duration series = %d, want 1", got)
	}

	m.BrokenFilterReleased()
	if got := testutil.ToFloat64(m.brokenFilters); got != 0 {
		t.Errorf("broken filters after release = %v, want 0", got)
	}
}

func TestMetrics_Forget(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.ObserveProcess("a", time.Millisecond, nil)
	m.ObserveProcess("b", time.Millisecond, nil)
	m.ObserveDraw("a::F", time.Millisecond, nil)
	m.SetCells("a", 1)

	m.Forget("a", []string{"a::F"})

	if got := testutil.CollectAndCount(m.processes); got != 1 {
		t.Errorf("processes series = %d, want 1", got)
	}
	if got := testutil.CollectAndCount(m.draws); got != 0 {
		t.Errorf("draws series = %d, want 0", got)
	}
	if got := testutil.CollectAndCount(m.cells); got != 0 {
		t.Errorf("cells series = %d, want 0", got)
	}
}

func TestMetrics_Unregister(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := New(reg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	m.Unregister(reg)
	if _, err := New(reg); err != nil {
		t.Errorf("New() after Unregister error = %v", err)
	}
}
