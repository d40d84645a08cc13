package zone

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"dotted/internal/core"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	Slug     string
	Name     string
	City     string
	Timezone string
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// --------------------------------------------------
// Create zone (admin)
// --------------------------------------------------
func (s *Service) Create(ctx context.Context, in CreateInput) (*Zone, error) {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	if !slugPattern.MatchString(in.Slug) {
		return nil, fmt.Errorf("%w: slug must be lowercase words joined by dashes", core.ErrInvalid)
	}
	if in.Name == "" || in.City == "" {
		return nil, fmt.Errorf("%w: name and city required", core.ErrInvalid)
	}
	if in.Timezone == "" {
		in.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(in.Timezone); err != nil {
		return nil, fmt.Errorf("%w: unknown timezone %q", core.ErrInvalid, in.Timezone)
	}
	if in.RadiusKm <= 0 {
		in.RadiusKm = 3
	}

	z := &Zone{
		Slug:     in.Slug,
		Name:     in.Name,
		City:     in.City,
		Timezone: in.Timezone,
		Lat:      in.Lat,
		Lng:      in.Lng,
		RadiusKm: in.RadiusKm,
		Active:   true,
	}
	if err := s.repo.Create(ctx, z); err != nil {
		return nil, err
	}
	return z, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Zone, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListActive(ctx context.Context) ([]*Zone, error) {
	return s.repo.List(ctx, true)
}

// --------------------------------------------------
// Memberships
// --------------------------------------------------

// Join moves the user into zoneID, leaving any previous zone.
func (s *Service) Join(ctx context.Context, userID, zoneID string) (*Membership, error) {
	z, err := s.repo.Get(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if !z.Active {
		return nil, ErrInactive
	}
	m := &Membership{UserID: userID, ZoneID: zoneID}
	if err := s.repo.SetMembership(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Service) Leave(ctx context.Context, userID, zoneID string) error {
	return s.repo.DeleteMembership(ctx, userID, zoneID)
}

// Membership returns the user's current membership or nil.
func (s *Service) Membership(ctx context.Context, userID string) (*Membership, error) {
	return s.repo.GetMembership(ctx, userID)
}

// IsMember implements core.MembershipReader.
func (s *Service) IsMember(ctx context.Context, userID, zoneID string) (bool, error) {
	m, err := s.repo.GetMembership(ctx, userID)
	if err != nil {
		return false, err
	}
	return m != nil && m.ZoneID == zoneID, nil
}

func (s *Service) MemberCount(ctx context.Context, zoneID string) (int, error) {
	return s.repo.CountMembers(ctx, zoneID)
}
