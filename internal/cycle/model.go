package cycle

import (
	"errors"
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrNotFound          = fmt.Errorf("cycle %w", core.ErrNotFound)
	ErrExists            = fmt.Errorf("%w: cycle already open for this date", core.ErrConflict)
	ErrInvalidTransition = fmt.Errorf("%w: invalid phase transition", core.ErrConflict)

	// ErrCancelCycle is wrapped by transition hooks that want the cycle
	// cancelled instead of retried.
	ErrCancelCycle = errors.New("cancel cycle")
)

// Cycle is one zone's daily cycle.
type Cycle struct {
	ID            string    `json:"id"`
	ZoneID        string    `json:"zone_id"`
	Date          string    `json:"date"` // YYYY-MM-DD, zone local
	Phase         Phase     `json:"phase"`
	WinningDishID *string   `json:"winning_dish_id,omitempty"`
	WinningBidID  *string   `json:"winning_bid_id,omitempty"`
	PhaseEndsAt   time.Time `json:"phase_ends_at"`
	CancelReason  *string   `json:"cancel_reason,omitempty"`
	CancelledFrom *Phase    `json:"cancelled_from,omitempty"`
	Unsourced     []string  `json:"unsourced"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Require returns core.ErrPhaseClosed unless the cycle is in phase p.
func (c *Cycle) Require(p Phase) error {
	if c.Phase != p {
		return fmt.Errorf("%w: cycle is %s, not %s", core.ErrPhaseClosed, c.Phase, p)
	}
	return nil
}

// Transition is the payload of a cycle.phase event.
type Transition struct {
	CycleID     string    `json:"cycle_id"`
	ZoneID      string    `json:"zone_id"`
	From        Phase     `json:"from"`
	To          Phase     `json:"to"`
	PhaseEndsAt time.Time `json:"phase_ends_at"`
	Reason      string    `json:"reason,omitempty"`
}

// Step states used by the timeline.
const (
	StepDone      = "done"
	StepCurrent   = "current"
	StepUpcoming  = "upcoming"
	StepCancelled = "cancelled"
	StepSkipped   = "skipped"
)

type TimelineEntry struct {
	Phase    Phase     `json:"phase"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
	State    string    `json:"state"`
}
