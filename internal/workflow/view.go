package workflow

import (
	"fmt"
	"time"
)

// Badge is how a status is displayed on the dashboard.
type Badge struct {
	Label string `json:"label"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// BadgeFor maps a status to its badge. Unknown statuses get a neutral badge.
func BadgeFor(s Status) Badge {
	switch s {
	case StatusPending:
		return Badge{Label: "Menunggu", Color: "gray", Icon: "clock"}
	case StatusInProgress:
		return Badge{Label: "Diproses", Color: "blue", Icon: "loader"}
	case StatusCompleted:
		return Badge{Label: "Selesai", Color: "green", Icon: "check"}
	case StatusFailed:
		return Badge{Label: "Gagal", Color: "red", Icon: "x"}
	case StatusSkipped:
		return Badge{Label: "Dilewati", Color: "yellow", Icon: "skip-forward"}
	}
	return Badge{Label: string(s), Color: "gray", Icon: "help-circle"}
}

// WIB is Western Indonesia Time. Fixed offset, no DST.
var WIB = time.FixedZone("WIB", 7*60*60)

var indonesianMonths = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// FormatTimestamp renders t as e.g. "2 Januari 2024, 14:05 WIB".
func FormatTimestamp(t time.Time) string {
	t = t.In(WIB)
	return fmt.Sprintf("%d %s %d, %02d:%02d WIB",
		t.Day(), indonesianMonths[t.Month()-1], t.Year(), t.Hour(), t.Minute())
}

// Summary is the compact view: progress bar plus "step X of N".
type Summary struct {
	Progress        int     `json:"progress"`
	CurrentStep     int     `json:"current_step"` // 1-based
	TotalSteps      int     `json:"total_steps"`
	CurrentStepID   StageID `json:"current_step_id,omitempty"`
	CurrentStepName string  `json:"current_step_name,omitempty"`
	Label           string  `json:"label"`
	Done            bool    `json:"done"`
}

// StepView is one step card of the full view.
type StepView struct {
	ID                 StageID    `json:"id"`
	Name               string     `json:"name"`
	Description        string     `json:"description"`
	Icon               string     `json:"icon"`
	Status             Status     `json:"status"`
	Badge              Badge      `json:"badge"`
	Current            bool       `json:"current"`
	Notes              *string    `json:"notes"`
	CompletedAt        *time.Time `json:"completed_at"`
	CompletedAtDisplay string     `json:"completed_at_display,omitempty"`
	CompletedBy        *string    `json:"completed_by"`
}

// View is the full workflow view.
type View struct {
	Summary     Summary    `json:"summary"`
	Steps       []StepView `json:"steps"`
	CompletedAt *time.Time `json:"completed_at"`
}

// Summarize builds the compact view of w.
func Summarize(w *Workflow, policy ProgressPolicy) Summary {
	snap := w.Snapshot(policy)
	sum := Summary{
		Progress:   snap.OverallProgress,
		TotalSteps: len(w.Steps),
		Done:       snap.Done,
	}
	if len(w.Steps) == 0 {
		sum.Label = "Belum ada langkah"
		return sum
	}
	cur := w.Steps[snap.CurrentStepIndex]
	sum.CurrentStep = snap.CurrentStepIndex + 1
	sum.CurrentStepID = cur.ID
	sum.CurrentStepName = cur.Name
	sum.Label = fmt.Sprintf("Langkah %d dari %d", sum.CurrentStep, sum.TotalSteps)
	return sum
}

// Render builds the full view of w.
func Render(w *Workflow, policy ProgressPolicy) View {
	sum := Summarize(w, policy)
	views := make([]StepView, len(w.Steps))
	for i, s := range w.Steps {
		v := StepView{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Status:      s.Status,
			Badge:       BadgeFor(s.Status),
			Current:     i+1 == sum.CurrentStep && !sum.Done,
			Notes:       s.Notes,
			CompletedAt: s.CompletedAt,
			CompletedBy: s.CompletedBy,
		}
		if st, ok := Lookup(s.ID); ok {
			v.Icon = st.Icon
		}
		if s.CompletedAt != nil {
			v.CompletedAtDisplay = FormatTimestamp(*s.CompletedAt)
		}
		views[i] = v
	}
	return View{Summary: sum, Steps: views, CompletedAt: w.CompletedAt}
}
