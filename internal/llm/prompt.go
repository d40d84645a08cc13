package llm

import (
	"fmt"
	"strings"
)

func BuildSuggestionPrompt(req SuggestRequest) string {
	avoid := "none"
	if len(req.Avoid) > 0 {
		avoid = strings.Join(req.Avoid, ", ")
	}

	return fmt.Sprintf(`
You are the menu planner for a neighbourhood food collective.

Your task:
- Suggest %d different dishes that one local restaurant can cook in bulk for
  lunch and dinner on %s in %s, %s.
- Use seasonal, locally available ingredients.
- Do NOT suggest any of these recent dishes: %s.
- Quantities are PER SERVING.
- Units MUST be one of: kg, g, l, ml, pc, bunch, dozen.
- Output MUST be valid JSON.
- Output MUST contain ONLY JSON.
- NO explanations.
- NO markdown.

Required JSON schema:
{
  "dishes": [
    {
      "name": "string",
      "description": "string",
      "cuisine": "string",
      "estimated_price": number,
      "ingredients": [
        {"name": "string", "quantity": number, "unit": "string"}
      ]
    }
  ]
}
`, req.Count, req.Date, req.ZoneName, req.City, avoid)
}
