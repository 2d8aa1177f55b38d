package workflow

import "math"

// ProgressPolicy decides which step statuses count toward OverallProgress.
type ProgressPolicy int

const (
	// ProgressCompletedOnly counts completed steps only. Skipped steps move
	// the current position past themselves but add nothing to the percentage.
	ProgressCompletedOnly ProgressPolicy = iota
	// ProgressCountsSkipped counts completed and skipped steps.
	ProgressCountsSkipped
)

func (p ProgressPolicy) counts(s Status) bool {
	switch p {
	case ProgressCountsSkipped:
		return s == StatusCompleted || s == StatusSkipped
	default:
		return s == StatusCompleted
	}
}

// CurrentStepIndex returns the index of the first step that is neither
// completed nor skipped. When every step is, the last index is returned.
// An empty slice yields 0.
func CurrentStepIndex(steps []Step) int {
	if len(steps) == 0 {
		return 0
	}
	for i, s := range steps {
		if !s.Status.advances() {
			return i
		}
	}
	return len(steps) - 1
}

// OverallProgress returns round(100 * counted / total) in [0, 100].
// An empty slice yields 0.
func OverallProgress(steps []Step, policy ProgressPolicy) int {
	if len(steps) == 0 {
		return 0
	}
	counted := 0
	for _, s := range steps {
		if policy.counts(s.Status) {
			counted++
		}
	}
	return int(math.Round(100 * float64(counted) / float64(len(steps))))
}

// Snapshot is the derived state of a workflow at one point in time.
type Snapshot struct {
	CurrentStepIndex int
	OverallProgress  int
	Done             bool
}

// Snapshot computes the derived fields of w under policy.
func (w *Workflow) Snapshot(policy ProgressPolicy) Snapshot {
	return Snapshot{
		CurrentStepIndex: w.CurrentStepIndex(),
		OverallProgress:  w.OverallProgress(policy),
		Done:             w.IsDone(),
	}
}
