package dish

import (
	"context"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"

	"dotted/internal/core"
	"dotted/internal/cycle"
	"dotted/internal/llm"
	"dotted/internal/metrics"
	"dotted/internal/realtime"
	"dotted/internal/storage"
	"dotted/internal/zone"

	"go.uber.org/zap"
)

// recentWinners is how many past winners the suggestion prompt avoids.
const recentWinners = 14

type Cycles interface {
	Get(ctx context.Context, id string) (*cycle.Cycle, error)
	RecentWinners(ctx context.Context, zoneID string, limit int) ([]string, error)
}

type Zones interface {
	Get(ctx context.Context, id string) (*zone.Zone, error)
}

type Options struct {
	MinSuggestions int
	MaxSuggestions int
}

type Service struct {
	repo      Repository
	cycles    Cycles
	zones     Zones
	members   core.MembershipReader
	llm       llm.Client
	fallback  llm.Client
	store     storage.Store
	publisher realtime.Publisher
	opts      Options
	logger    *zap.Logger
}

func NewService(
	repo Repository,
	cycles Cycles,
	zones Zones,
	members core.MembershipReader,
	client llm.Client,
	store storage.Store,
	publisher realtime.Publisher,
	opts Options,
	logger *zap.Logger,
) *Service {
	if publisher == nil {
		publisher = realtime.Discard
	}
	if store == nil {
		store = storage.Disabled
	}
	return &Service{
		repo:      repo,
		cycles:    cycles,
		zones:     zones,
		members:   members,
		llm:       client,
		fallback:  llm.NewStatic(),
		store:     store,
		publisher: publisher,
		opts:      opts,
		logger:    logger.Named("dish"),
	}
}

// --------------------------------------------------
// Suggestions
// --------------------------------------------------

// Suggest tops the cycle up to the maximum number of dishes.
func (s *Service) Suggest(ctx context.Context, cycleID string) ([]*Dish, error) {
	c, err := s.cycles.Get(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if err := c.Require(cycle.PhaseSuggesting); err != nil {
		return nil, err
	}
	existing, err := s.repo.ListByCycle(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	return s.generate(ctx, c, existing, s.opts.MaxSuggestions-len(existing))
}

// EnsureSuggestions makes sure the cycle has at least the minimum number of
// dishes before voting opens. It implements cycle.Suggester.
func (s *Service) EnsureSuggestions(ctx context.Context, c *cycle.Cycle) (int, error) {
	existing, err := s.repo.ListByCycle(ctx, c.ID)
	if err != nil {
		return 0, err
	}
	if len(existing) >= s.opts.MinSuggestions {
		return len(existing), nil
	}
	created, err := s.generate(ctx, c, existing, s.opts.MinSuggestions-len(existing))
	if err != nil {
		return 0, err
	}
	return len(existing) + len(created), nil
}

func (s *Service) generate(ctx context.Context, c *cycle.Cycle, existing []*Dish, want int) ([]*Dish, error) {
	if want <= 0 {
		return nil, nil
	}
	z, err := s.zones.Get(ctx, c.ZoneID)
	if err != nil {
		return nil, err
	}
	winnerIDs, err := s.cycles.RecentWinners(ctx, c.ZoneID, recentWinners)
	if err != nil {
		return nil, err
	}
	avoid, err := s.repo.Names(ctx, winnerIDs)
	if err != nil {
		return nil, err
	}

	taken := make(map[string]bool, len(existing)+len(avoid))
	for _, d := range existing {
		taken[strings.ToLower(d.Name)] = true
		avoid = append(avoid, d.Name)
	}
	for _, name := range avoid {
		taken[strings.ToLower(name)] = true
	}

	req := llm.SuggestRequest{
		ZoneName: z.Name,
		City:     z.City,
		Date:     c.Date,
		Count:    want,
		Avoid:    avoid,
	}
	ideas, err := s.llm.SuggestDishes(ctx, req)
	if err != nil || len(ideas) == 0 {
		s.logger.Warn("suggestion model failed, using static menu",
			zap.String("cycle_id", c.ID),
			zap.Error(err),
		)
		ideas, err = s.fallback.SuggestDishes(ctx, req)
		if err != nil {
			return nil, err
		}
	}

	var created []*Dish
	for _, idea := range ideas {
		if len(created) == want {
			break
		}
		if taken[strings.ToLower(idea.Name)] {
			continue
		}
		d := &Dish{
			CycleID:        c.ID,
			Name:           idea.Name,
			Description:    idea.Description,
			Cuisine:        idea.Cuisine,
			EstimatedPrice: idea.EstimatedPrice,
			Source:         SourceAI,
		}
		for _, ing := range idea.Ingredients {
			d.Ingredients = append(d.Ingredients, Ingredient(ing))
		}
		if err := s.repo.Create(ctx, d); err != nil {
			return created, err
		}
		taken[strings.ToLower(d.Name)] = true
		created = append(created, d)
	}

	s.logger.Info("dishes suggested",
		zap.String("cycle_id", c.ID),
		zap.Int("requested", want),
		zap.Int("created", len(created)),
	)
	return created, nil
}

// --------------------------------------------------
// Admin dishes
// --------------------------------------------------

type AddInput struct {
	Name           string
	Description    string
	Cuisine        string
	EstimatedPrice float64
	Ingredients    []Ingredient
}

// AddDish puts a hand-picked dish on the ballot.
func (s *Service) AddDish(ctx context.Context, cycleID string, in AddInput) (*Dish, error) {
	c, err := s.cycles.Get(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if err := c.Require(cycle.PhaseSuggesting); err != nil {
		return nil, err
	}

	d := &Dish{
		CycleID:        c.ID,
		Name:           strings.TrimSpace(in.Name),
		Description:    strings.TrimSpace(in.Description),
		Cuisine:        strings.TrimSpace(in.Cuisine),
		EstimatedPrice: in.EstimatedPrice,
		Source:         SourceAdmin,
	}
	if d.Name == "" {
		return nil, fmt.Errorf("%w: name required", core.ErrInvalid)
	}
	for _, ing := range in.Ingredients {
		qty, unit, ok := core.NormalizeQuantity(ing.Quantity, ing.Unit)
		if !ok || qty <= 0 || strings.TrimSpace(ing.Name) == "" {
			return nil, fmt.Errorf("%w: bad ingredient %q", core.ErrInvalid, ing.Name)
		}
		d.Ingredients = append(d.Ingredients, Ingredient{Name: strings.TrimSpace(ing.Name), Quantity: qty, Unit: unit})
	}
	if len(d.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: at least one ingredient required", core.ErrInvalid)
	}

	existing, err := s.repo.ListByCycle(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	for _, e := range existing {
		if strings.EqualFold(e.Name, d.Name) {
			return nil, fmt.Errorf("%w: %s is already on the ballot", core.ErrConflict, d.Name)
		}
	}

	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) UploadImage(ctx context.Context, dishID string, file *multipart.FileHeader) (*Dish, error) {
	d, err := s.repo.Get(ctx, dishID)
	if err != nil {
		return nil, err
	}
	url, err := storage.UploadImage(ctx, s.store, "dishes", d.ID, file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetImage(ctx, d.ID, url); err != nil {
		s.dropImage(ctx, url)
		return nil, err
	}
	if d.ImageURL != nil {
		s.dropImage(ctx, *d.ImageURL)
	}
	d.ImageURL = &url
	return d, nil
}

func (s *Service) dropImage(ctx context.Context, url string) {
	if err := storage.Remove(ctx, s.store, url); err != nil {
		s.logger.Warn("remove image", zap.String("url", url), zap.Error(err))
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Dish, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, cycleID string) ([]*Dish, error) {
	if _, err := s.cycles.Get(ctx, cycleID); err != nil {
		return nil, err
	}
	return s.repo.ListByCycle(ctx, cycleID)
}

// --------------------------------------------------
// Votes
// --------------------------------------------------

// Vote records the user's choice, replacing an earlier one, and broadcasts
// the new tally.
func (s *Service) Vote(ctx context.Context, cycleID, userID, dishID string) (*Vote, []DishTally, error) {
	c, err := s.cycles.Get(ctx, cycleID)
	if err != nil {
		return nil, nil, err
	}
	if err := c.Require(cycle.PhaseVoting); err != nil {
		return nil, nil, err
	}
	ok, err := s.members.IsMember(ctx, userID, c.ZoneID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNotMember
	}
	d, err := s.repo.Get(ctx, dishID)
	if err != nil {
		return nil, nil, err
	}
	if d.CycleID != c.ID {
		return nil, nil, ErrWrongCycle
	}

	v := &Vote{CycleID: c.ID, DishID: d.ID, UserID: userID}
	if err := s.repo.UpsertVote(ctx, v); err != nil {
		return nil, nil, err
	}
	metrics.VotesCast.Inc()

	tally, err := s.Tally(ctx, c.ID)
	if err != nil {
		return v, nil, err
	}

	update := TallyUpdate{CycleID: c.ID, Tally: tally}
	for _, t := range tally {
		update.Total += t.Votes
	}
	if err := s.publisher.Publish(ctx, realtime.CycleRoom(c.ID), realtime.EventVoteUpdated, update); err != nil {
		s.logger.Warn("publish vote.updated", zap.Error(err))
	}
	return v, tally, nil
}

// MyVote returns the user's vote in the cycle, or nil.
func (s *Service) MyVote(ctx context.Context, cycleID, userID string) (*Vote, error) {
	return s.repo.GetVote(ctx, cycleID, userID)
}

// Tally counts votes per dish, most votes first. Dishes with equal votes keep
// the order they were suggested in.
func (s *Service) Tally(ctx context.Context, cycleID string) ([]DishTally, error) {
	dishes, err := s.repo.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	counts, err := s.repo.CountVotes(ctx, cycleID)
	if err != nil {
		return nil, err
	}

	tally := make([]DishTally, 0, len(dishes))
	for _, d := range dishes {
		tally = append(tally, DishTally{DishID: d.ID, Name: d.Name, Votes: counts[d.ID]})
	}
	sort.SliceStable(tally, func(i, j int) bool { return tally[i].Votes > tally[j].Votes })
	return tally, nil
}

// PickWinner implements cycle.DishPicker.
func (s *Service) PickWinner(ctx context.Context, c *cycle.Cycle) (string, error) {
	tally, err := s.Tally(ctx, c.ID)
	if err != nil {
		return "", err
	}
	if len(tally) == 0 || tally[0].Votes == 0 {
		return "", fmt.Errorf("%w: no votes", cycle.ErrCancelCycle)
	}
	s.logger.Info("dish picked",
		zap.String("cycle_id", c.ID),
		zap.String("dish", tally[0].Name),
		zap.Int("votes", tally[0].Votes),
	)
	return tally[0].DishID, nil
}

// Winner returns the cycle's winning dish.
func (s *Service) Winner(ctx context.Context, c *cycle.Cycle) (*Dish, error) {
	if c.WinningDishID == nil {
		return nil, fmt.Errorf("%w: cycle has no winning dish yet", core.ErrConflict)
	}
	return s.repo.Get(ctx, *c.WinningDishID)
}
