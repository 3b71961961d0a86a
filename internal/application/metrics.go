package application

import "github.com/example/study-scheduler/internal/scheduler"

// MetricsRecorder receives domain events worth counting. Implementations must
// be safe for concurrent use.
type MetricsRecorder interface {
	SessionProposed()
	SessionTransition(target scheduler.Status, outcome string)
	ConflictDetected()
	MatchCandidates(count int)
}

type noopMetrics struct{}

func (noopMetrics) SessionProposed() {}
func (noopMetrics) SessionTransition(scheduler.Status, string) {}
func (noopMetrics) ConflictDetected() {}
func (noopMetrics) MatchCandidates(int) {}

func defaultMetrics(recorder MetricsRecorder) MetricsRecorder {
	if recorder != nil {
		return recorder
	}
	return noopMetrics{}
}

func outcomeLabel(err error) string {
	if err == nil {
		return "ok"
	}
	return ErrorKind(err)
}
