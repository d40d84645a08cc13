package restaurant

import (
	"context"
	"fmt"
	"mime/multipart"
	"strings"

	"dotted/internal/core"
	"dotted/internal/storage"
	"dotted/internal/zone"

	"go.uber.org/zap"
)

type Zones interface {
	Get(ctx context.Context, id string) (*zone.Zone, error)
}

type Service struct {
	repo   Repository
	zones  Zones
	store  storage.Store
	logger *zap.Logger
}

func NewService(repo Repository, zones Zones, store storage.Store, logger *zap.Logger) *Service {
	if store == nil {
		store = storage.Disabled
	}
	return &Service{
		repo:   repo,
		zones:  zones,
		store:  store,
		logger: logger.Named("restaurant"),
	}
}

type CreateInput struct {
	ZoneID   string
	Name     string
	Cuisine  string
	Address  string
	Lat      float64
	Lng      float64
	Capacity int
}

// --------------------------------------------------
// Create restaurant
// --------------------------------------------------
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*Restaurant, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, fmt.Errorf("%w: name required", core.ErrInvalid)
	}
	if in.Capacity < 0 {
		return nil, fmt.Errorf("%w: capacity must not be negative", core.ErrInvalid)
	}

	z, err := s.zones.Get(ctx, in.ZoneID)
	if err != nil {
		return nil, err
	}
	if !z.Active {
		return nil, zone.ErrInactive
	}

	restaurant := &Restaurant{
		OwnerID:  ownerID,
		ZoneID:   z.ID,
		Name:     in.Name,
		Cuisine:  strings.TrimSpace(in.Cuisine),
		Address:  strings.TrimSpace(in.Address),
		Lat:      in.Lat,
		Lng:      in.Lng,
		Capacity: in.Capacity,
	}

	if err := s.repo.Create(ctx, restaurant); err != nil {
		return nil, err
	}

	return restaurant, nil
}

// --------------------------------------------------
// List restaurants owned by user
// --------------------------------------------------
func (s *Service) ListMine(ctx context.Context, ownerID string) ([]*Restaurant, error) {
	return s.repo.ListByOwner(ctx, ownerID)
}

func (s *Service) Get(ctx context.Context, id string) (*Restaurant, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) IsOwner(ctx context.Context, restaurantID, userID string) (bool, error) {
	return s.repo.IsOwner(ctx, restaurantID, userID)
}

// RestaurantInfo implements core.RestaurantReader.
func (s *Service) RestaurantInfo(ctx context.Context, id string) (*core.RestaurantInfo, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return r.Info(), nil
}

// --------------------------------------------------
// Photo
// --------------------------------------------------
func (s *Service) UploadImage(ctx context.Context, restaurantID, userID string, file *multipart.FileHeader) (*Restaurant, error) {
	// 🔒 Ownership enforced here
	isOwner, err := s.repo.IsOwner(ctx, restaurantID, userID)
	if err != nil {
		return nil, err
	}
	if !isOwner {
		if _, err := s.repo.Get(ctx, restaurantID); err != nil {
			return nil, err
		}
		return nil, ErrNotOwner
	}

	before, err := s.repo.Get(ctx, restaurantID)
	if err != nil {
		return nil, err
	}
	url, err := storage.UploadImage(ctx, s.store, "restaurants", restaurantID, file)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetImage(ctx, restaurantID, url); err != nil {
		s.dropImage(ctx, url)
		return nil, err
	}
	if before.ImageURL != nil {
		s.dropImage(ctx, *before.ImageURL)
	}
	return s.repo.Get(ctx, restaurantID)
}

func (s *Service) dropImage(ctx context.Context, url string) {
	if err := storage.Remove(ctx, s.store, url); err != nil {
		s.logger.Warn("remove image", zap.String("url", url), zap.Error(err))
	}
}
