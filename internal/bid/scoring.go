package bid

import (
	"sort"

	"dotted/internal/config"
)

// Components are the normalised per-factor scores, each within [0,1].
type Components struct {
	Price    float64 `json:"price"`
	Quality  float64 `json:"quality"`
	PrepTime float64 `json:"prep_time"`
	Capacity float64 `json:"capacity"`
}

type Scored struct {
	BidID        string     `json:"bid_id"`
	RestaurantID string     `json:"restaurant_id"`
	Score        float64    `json:"score"`
	Components   Components `json:"components"`
}

// Score ranks bids best first.
//
// quality maps a restaurant id to its quality in [0,1]; restaurants missing
// from the map get neutral. Ties go to the lower price, then the earlier bid.
func Score(bids []*Bid, quality map[string]float64, neutral float64, w config.BidWeights) []Scored {
	if len(bids) == 0 {
		return nil
	}

	minPrice, minPrep, maxCap := bids[0].PricePerServing, bids[0].PrepMinutes, bids[0].Capacity
	for _, b := range bids[1:] {
		minPrice = min(minPrice, b.PricePerServing)
		minPrep = min(minPrep, b.PrepMinutes)
		maxCap = max(maxCap, b.Capacity)
	}
	total := w.Price + w.Quality + w.PrepTime + w.Capacity

	byID := make(map[string]*Bid, len(bids))
	out := make([]Scored, 0, len(bids))
	for _, b := range bids {
		byID[b.ID] = b

		q, ok := quality[b.RestaurantID]
		if !ok {
			q = neutral
		}
		c := Components{
			Price:    ratio(minPrice, b.PricePerServing),
			Quality:  clamp01(q),
			PrepTime: ratio(float64(minPrep), float64(b.PrepMinutes)),
			Capacity: ratio(float64(b.Capacity), float64(maxCap)),
		}

		score := 0.0
		if total > 0 {
			score = (w.Price*c.Price + w.Quality*c.Quality + w.PrepTime*c.PrepTime + w.Capacity*c.Capacity) / total
		}
		out = append(out, Scored{BidID: b.ID, RestaurantID: b.RestaurantID, Score: score, Components: c})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		a, b := byID[out[i].BidID], byID[out[j].BidID]
		if a.PricePerServing != b.PricePerServing {
			return a.PricePerServing < b.PricePerServing
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
	return out
}

func ratio(num, den float64) float64 {
	if den <= 0 {
		return 0
	}
	return clamp01(num / den)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
