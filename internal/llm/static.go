package llm

import (
	"context"
	"hash/fnv"
	"strings"

	"dotted/internal/core"
)

// Static is a Client that rotates through a fixed menu. It is used when no
// Gemini key is configured and in tests.
type Static struct {
	Menu []DishIdea
}

func NewStatic() *Static {
	return &Static{Menu: defaultMenu}
}

// SuggestDishes picks req.Count dishes, skipping req.Avoid. The starting
// point depends only on the date and zone, so a retry returns the same ideas.
func (s *Static) SuggestDishes(_ context.Context, req SuggestRequest) ([]DishIdea, error) {
	avoid := make(map[string]bool, len(req.Avoid))
	for _, name := range req.Avoid {
		avoid[strings.ToLower(name)] = true
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(req.ZoneName + "|" + req.Date))
	offset := int(h.Sum32() % uint32(max(len(s.Menu), 1)))

	var out []DishIdea
	for i := 0; i < len(s.Menu) && len(out) < req.Count; i++ {
		d := s.Menu[(offset+i)%len(s.Menu)]
		if avoid[strings.ToLower(d.Name)] {
			continue
		}
		d.Ingredients = append([]Ingredient(nil), d.Ingredients...)
		out = append(out, d)
	}
	return out, nil
}

var defaultMenu = []DishIdea{
	{
		Name:           "Vegetable Biryani",
		Description:    "Layered basmati rice with seasonal vegetables and whole spices.",
		Cuisine:        "Indian",
		EstimatedPrice: 180,
		Ingredients: []Ingredient{
			{Name: "basmati rice", Quantity: 0.15, Unit: core.UnitKg},
			{Name: "mixed vegetables", Quantity: 0.12, Unit: core.UnitKg},
			{Name: "yogurt", Quantity: 0.05, Unit: core.UnitKg},
		},
	},
	{
		Name:           "Rajma Chawal",
		Description:    "Slow-cooked kidney beans in onion tomato gravy with steamed rice.",
		Cuisine:        "North Indian",
		EstimatedPrice: 140,
		Ingredients: []Ingredient{
			{Name: "kidney beans", Quantity: 0.08, Unit: core.UnitKg},
			{Name: "rice", Quantity: 0.12, Unit: core.UnitKg},
			{Name: "tomato", Quantity: 0.1, Unit: core.UnitKg},
		},
	},
	{
		Name:           "Bisi Bele Bath",
		Description:    "Rice, lentils and vegetables cooked with a tangy spice blend.",
		Cuisine:        "Karnataka",
		EstimatedPrice: 120,
		Ingredients: []Ingredient{
			{Name: "rice", Quantity: 0.1, Unit: core.UnitKg},
			{Name: "toor dal", Quantity: 0.05, Unit: core.UnitKg},
			{Name: "mixed vegetables", Quantity: 0.1, Unit: core.UnitKg},
		},
	},
	{
		Name:           "Paneer Butter Masala with Roti",
		Description:    "Cottage cheese in a mild tomato butter gravy, with whole wheat rotis.",
		Cuisine:        "North Indian",
		EstimatedPrice: 200,
		Ingredients: []Ingredient{
			{Name: "paneer", Quantity: 0.1, Unit: core.UnitKg},
			{Name: "tomato", Quantity: 0.1, Unit: core.UnitKg},
			{Name: "wheat flour", Quantity: 0.08, Unit: core.UnitKg},
		},
	},
	{
		Name:           "Lemon Rice and Curd",
		Description:    "Tempered lemon rice with peanuts, served with fresh curd.",
		Cuisine:        "South Indian",
		EstimatedPrice: 100,
		Ingredients: []Ingredient{
			{Name: "rice", Quantity: 0.12, Unit: core.UnitKg},
			{Name: "lemon", Quantity: 1, Unit: core.UnitPiece},
			{Name: "curd", Quantity: 0.1, Unit: core.UnitKg},
		},
	},
	{
		Name:           "Chole Bhature",
		Description:    "Spiced chickpeas with fried leavened bread.",
		Cuisine:        "Punjabi",
		EstimatedPrice: 160,
		Ingredients: []Ingredient{
			{Name: "chickpeas", Quantity: 0.08, Unit: core.UnitKg},
			{Name: "all purpose flour", Quantity: 0.1, Unit: core.UnitKg},
			{Name: "onion", Quantity: 0.05, Unit: core.UnitKg},
		},
	},
}
