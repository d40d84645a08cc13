// Package core holds the error kinds and the narrow cross-domain read
// contracts that let domain packages depend on each other without import
// cycles.
package core

import "context"

// RestaurantInfo is the slice of a restaurant other domains need.
type RestaurantInfo struct {
	ID      string
	OwnerID string
	ZoneID  string
	Name    string
	Lat     float64
	Lng     float64
}

type RestaurantReader interface {
	RestaurantInfo(ctx context.Context, restaurantID string) (*RestaurantInfo, error)
}

type MembershipReader interface {
	IsMember(ctx context.Context, userID, zoneID string) (bool, error)
}

// QualityReader exposes a restaurant's overall quality average on a 1..5
// scale. samples is zero when the restaurant has never been rated.
type QualityReader interface {
	OverallAverage(ctx context.Context, restaurantID string) (avg float64, samples int, err error)
}
