package core

import "strings"

// Canonical ingredient units. Dishes and offerings both store quantities in
// one of these so supplier matching can compare them.
const (
	UnitKg    = "kg"
	UnitLitre = "l"
	UnitPiece = "pc"
	UnitBunch = "bunch"
	UnitDozen = "dozen"
)

var Units = []string{UnitKg, UnitLitre, UnitPiece, UnitBunch, UnitDozen}

type unitAlias struct {
	unit   string
	factor float64
}

var unitAliases = map[string]unitAlias{
	"kg": {UnitKg, 1}, "kgs": {UnitKg, 1}, "kilo": {UnitKg, 1}, "kilogram": {UnitKg, 1}, "kilograms": {UnitKg, 1},
	"g": {UnitKg, 0.001}, "gm": {UnitKg, 0.001}, "gms": {UnitKg, 0.001}, "gram": {UnitKg, 0.001}, "grams": {UnitKg, 0.001},
	"l": {UnitLitre, 1}, "ltr": {UnitLitre, 1}, "litre": {UnitLitre, 1}, "litres": {UnitLitre, 1}, "liter": {UnitLitre, 1}, "liters": {UnitLitre, 1},
	"ml": {UnitLitre, 0.001}, "millilitre": {UnitLitre, 0.001}, "milliliter": {UnitLitre, 0.001},
	"pc": {UnitPiece, 1}, "pcs": {UnitPiece, 1}, "piece": {UnitPiece, 1}, "pieces": {UnitPiece, 1}, "unit": {UnitPiece, 1}, "units": {UnitPiece, 1},
	"bunch": {UnitBunch, 1}, "bunches": {UnitBunch, 1},
	"dozen": {UnitDozen, 1}, "dozens": {UnitDozen, 1},
}

// NormalizeQuantity converts qty in unit to its canonical unit. ok is false
// for unknown units.
func NormalizeQuantity(qty float64, unit string) (float64, string, bool) {
	a, found := unitAliases[strings.ToLower(strings.TrimSpace(unit))]
	if !found {
		return 0, "", false
	}
	return qty * a.factor, a.unit, true
}

// KnownUnit reports whether unit is a canonical unit or one of its aliases,
// in any case.
func KnownUnit(unit string) bool {
	_, _, ok := NormalizeQuantity(0, unit)
	return ok
}

// NormalizeIngredient folds an ingredient name for case-insensitive matching.
func NormalizeIngredient(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
