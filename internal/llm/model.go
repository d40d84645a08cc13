package llm

// SuggestRequest describes the zone and day a menu is wanted for.
type SuggestRequest struct {
	ZoneName string
	City     string
	Date     string
	Count    int
	// Avoid lists recent winners that must not be suggested again.
	Avoid []string
}

type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"` // per serving
	Unit     string  `json:"unit"`
}

// DishIdea is one suggested dish.
type DishIdea struct {
	Name           string       `json:"name"`
	Description    string       `json:"description"`
	Cuisine        string       `json:"cuisine"`
	Ingredients    []Ingredient `json:"ingredients"`
	EstimatedPrice float64      `json:"estimated_price"`
}
