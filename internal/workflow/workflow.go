package workflow

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrUnknownStage      = errors.New("unknown stage")
	ErrDuplicateStage    = errors.New("duplicate stage")
	ErrUnknownStep       = errors.New("step not part of this workflow")
	ErrInvalidStatus     = errors.New("invalid step status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Step is one stage of a workflow instance.
type Step struct {
	ID          StageID
	Name        string
	Description string
	Status      Status
	CompletedAt *time.Time
	CompletedBy *string
	Notes       *string
}

// Workflow is a purchase-order workflow instance. Position and progress are
// always derived from Steps; see CurrentStepIndex and OverallProgress.
type Workflow struct {
	Steps       []Step
	CompletedAt *time.Time
}

// New creates a workflow with every step pending. With no ids the full
// canonical stage set is used. A subset is sorted into canonical order.
func New(ids ...StageID) (*Workflow, error) {
	if len(ids) == 0 {
		ids = Stages()
	}

	picked := make([]bool, len(stages))
	for _, id := range ids {
		pos := Position(id)
		if pos < 0 {
			return nil, fmt.Errorf("%w: %q", ErrUnknownStage, id)
		}
		if picked[pos] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateStage, id)
		}
		picked[pos] = true
	}

	steps := make([]Step, 0, len(ids))
	for pos, ok := range picked {
		if !ok {
			continue
		}
		st := stages[pos]
		steps = append(steps, Step{
			ID:          st.ID,
			Name:        st.Name,
			Description: st.Description,
			Status:      StatusPending,
		})
	}
	return &Workflow{Steps: steps}, nil
}

// Find returns the index of the step with the given id, or -1.
func (w *Workflow) Find(id StageID) int {
	for i := range w.Steps {
		if w.Steps[i].ID == id {
			return i
		}
	}
	return -1
}

// CurrentStepIndex returns the index of the step the workflow is waiting on.
func (w *Workflow) CurrentStepIndex() int {
	return CurrentStepIndex(w.Steps)
}

// OverallProgress returns the completion percentage under policy.
func (w *Workflow) OverallProgress(policy ProgressPolicy) int {
	return OverallProgress(w.Steps, policy)
}

// IsDone reports whether every step has reached a terminal status.
func (w *Workflow) IsDone() bool {
	if len(w.Steps) == 0 {
		return false
	}
	for _, s := range w.Steps {
		if !s.Status.IsTerminal() {
			return false
		}
	}
	return true
}

// Transition moves step id to status next on behalf of actor. Entering a
// terminal status stamps CompletedAt/CompletedBy. The workflow's CompletedAt
// is set by the transition that makes it done.
func (w *Workflow) Transition(id StageID, next Status, actor string, notes *string, now time.Time) error {
	if !next.IsValid() {
		return fmt.Errorf("transition %s: %w: %q", id, ErrInvalidStatus, next)
	}
	i := w.Find(id)
	if i < 0 {
		return fmt.Errorf("transition %s: %w", id, ErrUnknownStep)
	}

	step := &w.Steps[i]
	if !step.Status.CanTransition(next) {
		return fmt.Errorf("transition %s: %w: %s -> %s", id, ErrInvalidTransition, step.Status, next)
	}

	step.Status = next
	if next.IsTerminal() {
		at := now
		step.CompletedAt = &at
		if actor != "" {
			by := actor
			step.CompletedBy = &by
		}
	} else {
		step.CompletedAt = nil
		step.CompletedBy = nil
	}
	if notes != nil {
		step.Notes = notes
	}

	if w.IsDone() {
		at := now
		w.CompletedAt = &at
	} else {
		w.CompletedAt = nil
	}
	return nil
}
