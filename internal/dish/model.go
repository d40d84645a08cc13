package dish

import (
	"fmt"
	"time"

	"dotted/internal/core"
)

var (
	ErrNotFound   = fmt.Errorf("dish %w", core.ErrNotFound)
	ErrNotMember  = fmt.Errorf("%w: only members of the zone can vote", core.ErrForbidden)
	ErrWrongCycle = fmt.Errorf("%w: dish is not part of this cycle", core.ErrInvalid)
)

// Source says who put a dish on the ballot.
type Source string

const (
	SourceAI    Source = "AI"
	SourceAdmin Source = "ADMIN"
)

type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"` // per serving, canonical unit
	Unit     string  `json:"unit"`
}

type Dish struct {
	ID             string       `json:"id"`
	CycleID        string       `json:"cycle_id"`
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Cuisine        string       `json:"cuisine"`
	Ingredients    []Ingredient `json:"ingredients"`
	EstimatedPrice float64      `json:"estimated_price"`
	Source         Source       `json:"source"`
	ImageURL       *string      `json:"image_url,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

type Vote struct {
	ID        string    `json:"id"`
	CycleID   string    `json:"cycle_id"`
	DishID    string    `json:"dish_id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type DishTally struct {
	DishID string `json:"dish_id"`
	Name   string `json:"name"`
	Votes  int    `json:"votes"`
}

// TallyUpdate is the payload of a vote.updated event.
type TallyUpdate struct {
	CycleID string      `json:"cycle_id"`
	Tally   []DishTally `json:"tally"`
	Total   int         `json:"total"`
}
