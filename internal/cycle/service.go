package cycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"dotted/internal/core"
	"dotted/internal/metrics"
	"dotted/internal/realtime"
	"dotted/internal/zone"

	"go.uber.org/zap"
)

// Zones is the part of the zone service the cycle engine reads.
type Zones interface {
	Get(ctx context.Context, id string) (*zone.Zone, error)
	ListActive(ctx context.Context) ([]*zone.Zone, error)
}

// --------------------------------------------------
// Transition hooks
// --------------------------------------------------
// Each hook runs before the cycle leaves its phase. A hook error that wraps
// ErrCancelCycle cancels the cycle; any other error leaves the cycle where it
// is so the next tick retries.

// Suggester makes sure the cycle has dishes to vote on and returns how many
// it has.
type Suggester interface {
	EnsureSuggestions(ctx context.Context, c *Cycle) (int, error)
}

// DishPicker tallies the votes and returns the winning dish id.
type DishPicker interface {
	PickWinner(ctx context.Context, c *Cycle) (string, error)
}

// BidPicker scores the bids and returns the winning bid id.
type BidPicker interface {
	SelectWinner(ctx context.Context, c *Cycle) (string, error)
}

// Sourcer raises purchase orders and returns the ingredients nobody could
// supply.
type Sourcer interface {
	SourceCycle(ctx context.Context, c *Cycle) ([]string, error)
}

// OrderCloser closes ordering at the end of the day.
type OrderCloser interface {
	CloseCycle(ctx context.Context, c *Cycle) error
}

// Settler is implemented by hooks whose phase takes writes from other
// requests. Settle runs after the next phase is persisted and sweeps up
// writes that landed while the hook itself was running.
type Settler interface {
	Settle(ctx context.Context, c *Cycle) error
}

type Hooks struct {
	Suggester   Suggester
	DishPicker  DishPicker
	BidPicker   BidPicker
	Sourcer     Sourcer
	OrderCloser OrderCloser
}

type Service struct {
	repo      Repository
	zones     Zones
	schedule  *Schedule
	publisher realtime.Publisher
	logger    *zap.Logger
	now       func() time.Time

	hooksMu sync.RWMutex
	hooks   Hooks

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func NewService(repo Repository, zones Zones, schedule *Schedule, publisher realtime.Publisher, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = realtime.Discard
	}
	return &Service{
		repo:      repo,
		zones:     zones,
		schedule:  schedule,
		publisher: publisher,
		logger:    logger.Named("cycle"),
		now:       time.Now,
		locks:     make(map[string]*sync.Mutex),
	}
}

// SetHooks installs the transition hooks. The services behind them depend on
// this one, so they are wired after construction.
func (s *Service) SetHooks(h Hooks) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = h
}

func (s *Service) currentHooks() Hooks {
	s.hooksMu.RLock()
	defer s.hooksMu.RUnlock()
	return s.hooks
}

func (s *Service) Schedule() *Schedule {
	return s.schedule
}

// lock serialises transitions of one cycle between the scheduler and admin
// calls.
func (s *Service) lock(id string) func() {
	s.locksMu.Lock()
	m, ok := s.locks[id]
	if !ok {
		m = &sync.Mutex{}
		s.locks[id] = m
	}
	s.locksMu.Unlock()

	m.Lock()
	return m.Unlock
}

func (s *Service) forget(id string) {
	s.locksMu.Lock()
	delete(s.locks, id)
	s.locksMu.Unlock()
}

// --------------------------------------------------
// Opening cycles
// --------------------------------------------------

// Open returns the zone's cycle for date, creating it in SUGGESTING when
// there is none yet.
func (s *Service) Open(ctx context.Context, zoneID, date string) (*Cycle, error) {
	z, err := s.zones.Get(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if !z.Active {
		return nil, zone.ErrInactive
	}
	loc := z.Location()
	if _, err := midnight(date, loc); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", core.ErrInvalid)
	}

	if c, err := s.repo.GetByZoneDate(ctx, zoneID, date); err == nil {
		return c, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	c := &Cycle{
		ZoneID:      zoneID,
		Date:        date,
		Phase:       PhaseSuggesting,
		PhaseEndsAt: s.schedule.EndsAt(PhaseSuggesting, date, loc),
		Unsourced:   []string{},
	}
	err = s.repo.Create(ctx, c)
	if errors.Is(err, ErrExists) {
		// Lost a race with another opener.
		return s.repo.GetByZoneDate(ctx, zoneID, date)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("cycle opened",
		zap.String("cycle_id", c.ID),
		zap.String("zone_id", zoneID),
		zap.String("date", date),
	)
	return c, nil
}

// OpenToday opens the zone-local current day's cycle in every active zone
// and returns how many zones it touched.
func (s *Service) OpenToday(ctx context.Context) (int, error) {
	zones, err := s.zones.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	now := s.now()
	var errs []error
	opened := 0
	for _, z := range zones {
		if _, err := s.Open(ctx, z.ID, Today(now, z.Location())); err != nil {
			errs = append(errs, fmt.Errorf("zone %s: %w", z.Slug, err))
			continue
		}
		opened++
	}
	return opened, errors.Join(errs...)
}

// --------------------------------------------------
// Reads
// --------------------------------------------------

func (s *Service) Get(ctx context.Context, id string) (*Cycle, error) {
	return s.repo.Get(ctx, id)
}

// Current returns the zone's cycle for its local today.
func (s *Service) Current(ctx context.Context, zoneID string) (*Cycle, error) {
	z, err := s.zones.Get(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByZoneDate(ctx, zoneID, Today(s.now(), z.Location()))
}

// RecentWinners returns up to limit winning dish ids of the zone, newest
// first.
func (s *Service) RecentWinners(ctx context.Context, zoneID string, limit int) ([]string, error) {
	return s.repo.RecentWinners(ctx, zoneID, limit)
}

// Timeline lists every timeline phase of the cycle with its window and state.
func (s *Service) Timeline(ctx context.Context, id string) ([]TimelineEntry, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	z, err := s.zones.Get(ctx, c.ZoneID)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(c, s.schedule, z.Location()), nil
}

// BuildTimeline is Timeline without the lookups.
func BuildTimeline(c *Cycle, schedule *Schedule, loc *time.Location) []TimelineEntry {
	current := c.Phase
	if c.Phase == PhaseCancelled && c.CancelledFrom != nil {
		current = *c.CancelledFrom
	}

	entries := make([]TimelineEntry, 0, len(Timeline))
	for _, p := range Timeline {
		e := TimelineEntry{
			Phase:    p,
			StartsAt: schedule.StartsAt(p, c.Date, loc),
			EndsAt:   schedule.EndsAt(p, c.Date, loc),
		}
		switch {
		case c.Phase == PhaseCompleted:
			e.State = StepDone
		case p.Before(current):
			e.State = StepDone
		case p == current && c.Phase == PhaseCancelled:
			e.State = StepCancelled
		case p == current:
			e.State = StepCurrent
		case c.Phase == PhaseCancelled:
			e.State = StepSkipped
		default:
			e.State = StepUpcoming
		}
		entries = append(entries, e)
	}
	return entries
}

// --------------------------------------------------
// Advancing
// --------------------------------------------------

// Advance walks the cycle forward until it reaches the phase the schedule
// says is current. It returns the cycle as it ended up.
func (s *Service) Advance(ctx context.Context, id string) (*Cycle, error) {
	unlock := s.lock(id)
	defer unlock()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	z, err := s.zones.Get(ctx, c.ZoneID)
	if err != nil {
		return nil, err
	}
	loc := z.Location()
	target := s.schedule.PhaseAt(c.Date, s.now(), loc)

	for c.Phase.Before(target) {
		if err := ctx.Err(); err != nil {
			return c, err
		}
		c, err = s.step(ctx, c, loc)
		if err != nil {
			return c, err
		}
	}
	if c.Phase.IsTerminal() {
		s.forget(c.ID)
	}
	return c, nil
}

// ForceAdvance moves the cycle exactly one phase forward regardless of the
// clock, running the transition hook. Admins use it to drive demos and to
// unstick a zone.
func (s *Service) ForceAdvance(ctx context.Context, id string) (*Cycle, error) {
	unlock := s.lock(id)
	defer unlock()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Phase.IsTerminal() {
		return nil, fmt.Errorf("%w: cycle is %s", ErrInvalidTransition, c.Phase)
	}
	z, err := s.zones.Get(ctx, c.ZoneID)
	if err != nil {
		return nil, err
	}
	return s.step(ctx, c, z.Location())
}

// AdvanceAll advances every open cycle and returns how many changed phase.
func (s *Service) AdvanceAll(ctx context.Context) (int, error) {
	open, err := s.repo.ListOpen(ctx)
	if err != nil {
		return 0, err
	}
	moved := 0
	for _, c := range open {
		if ctx.Err() != nil {
			return moved, ctx.Err()
		}
		after, err := s.Advance(ctx, c.ID)
		if after != nil && after.Phase != c.Phase {
			moved++
		}
		if err != nil {
			s.logger.Warn("advance failed",
				zap.String("cycle_id", c.ID),
				zap.String("phase", string(c.Phase)),
				zap.Error(err),
			)
		}
	}
	return moved, nil
}

// step runs the hook for leaving c's phase and persists the next phase, or
// cancels the cycle when the hook asks for it.
func (s *Service) step(ctx context.Context, c *Cycle, loc *time.Location) (*Cycle, error) {
	from := c.Phase
	next := from.Next()
	if next == "" {
		return c, fmt.Errorf("%w: %s is terminal", ErrInvalidTransition, from)
	}

	updated := clone(c)
	if err := s.runHook(ctx, updated); err != nil {
		if errors.Is(err, ErrCancelCycle) {
			return s.cancel(ctx, c, reasonOf(err), loc)
		}
		return c, fmt.Errorf("leave %s: %w", from, err)
	}

	updated.Phase = next
	updated.PhaseEndsAt = s.phaseEnd(next, c.Date, loc)
	if err := s.repo.Update(ctx, updated, from); err != nil {
		return c, err
	}
	s.settle(ctx, from, updated)
	s.announce(ctx, updated, from, "")
	return updated, nil
}

func (s *Service) settle(ctx context.Context, from Phase, c *Cycle) {
	h := s.currentHooks()
	var hook any
	switch from {
	case PhaseBidding:
		hook = h.BidPicker
	case PhaseOrdering:
		hook = h.OrderCloser
	}
	st, ok := hook.(Settler)
	if !ok {
		return
	}
	if err := st.Settle(ctx, c); err != nil {
		s.logger.Warn("settle after transition",
			zap.String("cycle_id", c.ID),
			zap.String("from", string(from)),
			zap.Error(err),
		)
	}
}

func (s *Service) runHook(ctx context.Context, c *Cycle) error {
	h := s.currentHooks()

	switch c.Phase {
	case PhaseSuggesting:
		if h.Suggester == nil {
			return nil
		}
		n, err := h.Suggester.EnsureSuggestions(ctx, c)
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: no dishes suggested", ErrCancelCycle)
		}

	case PhaseVoting:
		if h.DishPicker == nil {
			return nil
		}
		dishID, err := h.DishPicker.PickWinner(ctx, c)
		if err != nil {
			return err
		}
		c.WinningDishID = &dishID

	case PhaseBidding:
		if h.BidPicker == nil {
			return nil
		}
		bidID, err := h.BidPicker.SelectWinner(ctx, c)
		if err != nil {
			return err
		}
		c.WinningBidID = &bidID

	case PhaseSourcing:
		if h.Sourcer == nil {
			return nil
		}
		unsourced, err := h.Sourcer.SourceCycle(ctx, c)
		if err != nil {
			return err
		}
		c.Unsourced = append([]string{}, unsourced...)

	case PhaseOrdering:
		if h.OrderCloser == nil {
			return nil
		}
		return h.OrderCloser.CloseCycle(ctx, c)
	}
	return nil
}

// reasonOf strips the ErrCancelCycle prefix from a hook error.
func reasonOf(err error) string {
	return strings.TrimPrefix(err.Error(), ErrCancelCycle.Error()+": ")
}

func (s *Service) phaseEnd(p Phase, date string, loc *time.Location) time.Time {
	if p.IsTerminal() {
		return s.now().UTC()
	}
	return s.schedule.EndsAt(p, date, loc)
}

// --------------------------------------------------
// Cancelling
// --------------------------------------------------

// Cancel moves a non-terminal cycle to CANCELLED.
func (s *Service) Cancel(ctx context.Context, id, reason string) (*Cycle, error) {
	unlock := s.lock(id)
	defer unlock()

	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	z, err := s.zones.Get(ctx, c.ZoneID)
	if err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "cancelled by admin"
	}
	return s.cancel(ctx, c, reason, z.Location())
}

func (s *Service) cancel(ctx context.Context, c *Cycle, reason string, loc *time.Location) (*Cycle, error) {
	from := c.Phase
	if !from.CanTransitionTo(PhaseCancelled) {
		return c, fmt.Errorf("%w: cycle is %s", ErrInvalidTransition, from)
	}

	updated := clone(c)
	updated.Phase = PhaseCancelled
	updated.PhaseEndsAt = s.phaseEnd(PhaseCancelled, c.Date, loc)
	updated.CancelReason = &reason
	updated.CancelledFrom = &from
	if err := s.repo.Update(ctx, updated, from); err != nil {
		return c, err
	}
	s.forget(c.ID)
	s.announce(ctx, updated, from, reason)
	return updated, nil
}

func (s *Service) announce(ctx context.Context, c *Cycle, from Phase, reason string) {
	metrics.CycleTransitions.WithLabelValues(string(from), string(c.Phase)).Inc()

	s.logger.Info("cycle transition",
		zap.String("cycle_id", c.ID),
		zap.String("zone_id", c.ZoneID),
		zap.String("from", string(from)),
		zap.String("to", string(c.Phase)),
		zap.String("reason", reason),
	)

	evt := Transition{
		CycleID:     c.ID,
		ZoneID:      c.ZoneID,
		From:        from,
		To:          c.Phase,
		PhaseEndsAt: c.PhaseEndsAt,
		Reason:      reason,
	}
	for _, room := range []string{realtime.ZoneRoom(c.ZoneID), realtime.CycleRoom(c.ID)} {
		if err := s.publisher.Publish(ctx, room, realtime.EventCyclePhase, evt); err != nil {
			s.logger.Warn("publish cycle.phase", zap.String("room", room), zap.Error(err))
		}
	}
}
