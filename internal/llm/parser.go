package llm

import (
	"encoding/json"
	"errors"
	"strings"

	"dotted/internal/core"
)

var ErrInvalidOutput = errors.New("invalid LLM JSON output")

type suggestionEnvelope struct {
	Dishes []DishIdea `json:"dishes"`
}

// ParseSuggestions reads the model output. Ideas without a name or without a
// usable ingredient are dropped, and quantities are converted to canonical
// units. Duplicate names keep the first idea.
func ParseSuggestions(raw string) ([]DishIdea, error) {
	jsonText := extractJSON(raw)
	if jsonText == "" {
		return nil, ErrInvalidOutput
	}

	var parsed suggestionEnvelope
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, ErrInvalidOutput
	}

	seen := make(map[string]bool)
	ideas := make([]DishIdea, 0, len(parsed.Dishes))
	for _, d := range parsed.Dishes {
		d.Name = strings.TrimSpace(d.Name)
		key := strings.ToLower(d.Name)
		if d.Name == "" || seen[key] {
			continue
		}

		ingredients := make([]Ingredient, 0, len(d.Ingredients))
		for _, ing := range d.Ingredients {
			name := strings.TrimSpace(ing.Name)
			if name == "" || ing.Quantity <= 0 {
				continue
			}
			qty, unit, ok := core.NormalizeQuantity(ing.Quantity, ing.Unit)
			if !ok {
				continue
			}
			ingredients = append(ingredients, Ingredient{Name: name, Quantity: qty, Unit: unit})
		}
		if len(ingredients) == 0 {
			continue
		}
		if d.EstimatedPrice < 0 {
			d.EstimatedPrice = 0
		}

		d.Ingredients = ingredients
		d.Description = strings.TrimSpace(d.Description)
		d.Cuisine = strings.TrimSpace(d.Cuisine)
		seen[key] = true
		ideas = append(ideas, d)
	}
	return ideas, nil
}

// extractJSON returns the outermost {...} of text, tolerating code fences and
// chatter around it.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start == -1 || end == -1 || end <= start {
		return ""
	}

	return text[start : end+1]
}
