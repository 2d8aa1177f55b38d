package workflow

// Status is the state of a single workflow step.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusSkipped    Status = "skipped"
)

// Statuses lists every step status in display order.
func Statuses() []Status {
	return []Status{StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped}
}

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed, StatusSkipped:
		return true
	}
	return false
}

// IsTerminal reports whether a step in this status is done with, successfully or not.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusSkipped
}

// advances reports whether a step in this status lets the workflow move past it.
// A failed step does not, so the workflow stays stuck on it.
func (s Status) advances() bool {
	return s == StatusCompleted || s == StatusSkipped
}

// CanTransition reports whether a step may move from s to next. Steps only
// move forward: terminal statuses are final.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusInProgress || next.IsTerminal()
	case StatusInProgress:
		return next.IsTerminal()
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
