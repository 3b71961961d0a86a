package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/example/study-scheduler/internal/scheduler"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	r := NewRecorder(reg)

	r.SessionProposed()
	r.SessionProposed()
	r.SessionTransition(scheduler.StatusConfirmed, "ok")
	r.SessionTransition(scheduler.StatusConfirmed, "scheduling_conflict")
	r.ConflictDetected()
	r.MatchCandidates(3)

	if got := testutil.ToFloat64(r.SessionsProposed); got != 2 {
		t.Fatalf("expected 2 proposals, got %v", got)
	}
	if got := testutil.ToFloat64(r.SessionTransitions.WithLabelValues("confirmed", "ok")); got != 1 {
		t.Fatalf("expected 1 confirmed transition, got %v", got)
	}
	if got := testutil.ToFloat64(r.Conflicts); got != 1 {
		t.Fatalf("expected 1 conflict, got %v", got)
	}
	if got := testutil.CollectAndCount(r.MatchResults); got != 1 {
		t.Fatalf("expected histogram to be collected, got %d", got)
	}

	if count, err := testutil.GatherAndCount(reg); err != nil || count != 5 {
		t.Fatalf("expected 5 series on the registry, got %d (%v)", count, err)
	}
}
