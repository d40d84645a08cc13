package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"dotted/internal/core"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = fmt.Errorf("%w: email already exists", core.ErrConflict)
	ErrUserNotFound       = fmt.Errorf("user %w", core.ErrNotFound)
	ErrMissingFields      = fmt.Errorf("%w: missing required fields", core.ErrInvalid)
	ErrRoleNotAllowed     = fmt.Errorf("%w: role cannot be self-registered", core.ErrForbidden)
)

type Service struct {
	repo   UserRepository
	tokens *TokenIssuer
}

func NewService(repo UserRepository, tokens *TokenIssuer) *Service {
	return &Service{repo: repo, tokens: tokens}
}

// REGISTER
func (s *Service) Register(ctx context.Context, name, email, password, role string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(strings.ToLower(email))
	if name == "" || email == "" || password == "" {
		return nil, ErrMissingFields
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, fmt.Errorf("%w: malformed email", core.ErrInvalid)
	}

	if role == "" {
		role = RoleConsumer
	}
	switch role {
	case RoleConsumer, RoleRestaurant, RoleSupplier:
	case RoleAdmin:
		return nil, ErrRoleNotAllowed
	default:
		return nil, fmt.Errorf("%w: unknown role %q", core.ErrInvalid, role)
	}

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword(
		[]byte(password),
		bcrypt.DefaultCost,
	)
	if err != nil {
		return nil, err
	}

	user := &User{
		Name:     name,
		Email:    email,
		Password: string(hashedPassword),
		Role:     role,
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// LOGIN
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	err = bcrypt.CompareHashAndPassword(
		[]byte(user.Password),
		[]byte(password),
	)
	if err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", err
	}

	return user, token, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// Tokens exposes the issuer for middleware and the websocket upgrade.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}
