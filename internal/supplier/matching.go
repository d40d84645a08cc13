package supplier

import (
	"math"
	"sort"
	"time"

	"dotted/internal/config"
	"dotted/internal/core"
)

// Requirement is how much of one ingredient a cycle needs.
type Requirement struct {
	Ingredient string  `json:"ingredient"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
}

// Candidate is an offering together with where its supplier is.
type Candidate struct {
	Offering *Offering
	Lat      float64
	Lng      float64
}

type Location struct {
	Lat float64
	Lng float64
}

type Allocation struct {
	OfferingID string  `json:"offering_id"`
	SupplierID string  `json:"supplier_id"`
	Ingredient string  `json:"ingredient"`
	Quantity   float64 `json:"quantity"`
	Unit       string  `json:"unit"`
	UnitCost   float64 `json:"unit_cost"`
	DistanceKm float64 `json:"distance_km"`
	Score      float64 `json:"score"`
}

type Shortfall struct {
	Ingredient string  `json:"ingredient"`
	Unit       string  `json:"unit"`
	Missing    float64 `json:"missing"`
}

type MatchResult struct {
	Allocations []Allocation `json:"allocations"`
	Shortfalls  []Shortfall  `json:"shortfalls"`
}

// epsilon absorbs float noise when a requirement is fully covered.
const epsilon = 1e-9

type scoredOffering struct {
	c     Candidate
	km    float64
	score float64
}

// Match allocates offerings to every requirement, best score first,
// splitting a requirement across suppliers until it is covered.
func Match(reqs []Requirement, candidates []Candidate, at Location, now time.Time, opt config.OptimizationConfig) MatchResult {
	res := MatchResult{Allocations: []Allocation{}, Shortfalls: []Shortfall{}}
	w := opt.Supplier
	total := w.Freshness + w.Distance + w.Cost

	// Stock left per offering while allocating this batch.
	left := make(map[string]float64, len(candidates))
	for _, c := range candidates {
		left[c.Offering.ID] = c.Offering.Available
	}

	for _, req := range reqs {
		name := core.NormalizeIngredient(req.Ingredient)

		var eligible []scoredOffering
		minCost := math.Inf(1)
		for _, c := range candidates {
			o := c.Offering
			if core.NormalizeIngredient(o.Ingredient) != name || o.Unit != req.Unit {
				continue
			}
			if left[o.ID] <= epsilon || o.UnitCost <= 0 {
				continue
			}
			km := haversineKm(at.Lat, at.Lng, c.Lat, c.Lng)
			if km > opt.MaxDistanceKm {
				continue
			}
			eligible = append(eligible, scoredOffering{c: c, km: km})
			minCost = math.Min(minCost, o.UnitCost)
		}

		for i := range eligible {
			e := &eligible[i]
			o := e.c.Offering
			ageHours := now.Sub(o.HarvestedAt).Hours()
			freshness := math.Max(0, 1-math.Max(0, ageHours)/opt.MaxFreshnessHrs)
			distance := math.Max(0, 1-e.km/opt.MaxDistanceKm)
			cost := minCost / o.UnitCost
			if total > 0 {
				e.score = (w.Freshness*freshness + w.Distance*distance + w.Cost*cost) / total
			}
		}
		sort.SliceStable(eligible, func(i, j int) bool {
			a, b := eligible[i], eligible[j]
			if a.score != b.score {
				return a.score > b.score
			}
			if a.c.Offering.UnitCost != b.c.Offering.UnitCost {
				return a.c.Offering.UnitCost < b.c.Offering.UnitCost
			}
			return a.c.Offering.ID < b.c.Offering.ID
		})

		need := req.Quantity
		for _, e := range eligible {
			if need <= epsilon {
				break
			}
			o := e.c.Offering
			take := math.Min(need, left[o.ID])
			left[o.ID] -= take
			need -= take
			res.Allocations = append(res.Allocations, Allocation{
				OfferingID: o.ID,
				SupplierID: o.SupplierID,
				Ingredient: req.Ingredient,
				Quantity:   take,
				Unit:       req.Unit,
				UnitCost:   o.UnitCost,
				DistanceKm: e.km,
				Score:      e.score,
			})
		}
		if need > epsilon {
			res.Shortfalls = append(res.Shortfalls, Shortfall{
				Ingredient: req.Ingredient,
				Unit:       req.Unit,
				Missing:    need,
			})
		}
	}
	return res
}

const earthRadiusKm = 6371.0

// haversineKm is the great-circle distance between two points.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}
