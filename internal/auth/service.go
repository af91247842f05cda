package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

type ProfileRepository interface {
	GetPasswordForEmail(ctx context.Context, email string) (passwordHash string, userID string, err error)
	GetByID(ctx context.Context, userID string) (*Profile, error)
	Create(ctx context.Context, profile *Profile) error
	UpdateLastLogin(ctx context.Context, userID string, at time.Time) error
}

type Service struct {
	profiles   ProfileRepository
	sessions   SessionStore
	tokens     TokenGeneratorAPI
	refreshTTL time.Duration
	bcryptCost int
	logger     *slog.Logger
}

func NewService(profiles ProfileRepository, sessions SessionStore, tokens TokenGeneratorAPI, refreshTTL time.Duration, bcryptCost int, logger *slog.Logger) *Service {
	return &Service{
		profiles:   profiles,
		sessions:   sessions,
		tokens:     tokens,
		refreshTTL: refreshTTL,
		bcryptCost: bcryptCost,
		logger:     logger,
	}
}

// Authenticate verifies credentials and issues a fresh token pair. The
// refresh token becomes the user's single live session.
func (s *Service) Authenticate(ctx context.Context, dto LoginDTO) (AuthTokens, *Principal, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, nil, err
	}

	storedHash, userID, err := s.profiles.GetPasswordForEmail(ctx, dto.Email)
	if err != nil {
		return AuthTokens{}, nil, ErrInvalidCredentials
	}

	if err := VerifyPassword(storedHash, dto.Password); err != nil {
		return AuthTokens{}, nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return AuthTokens{}, nil, ErrInvalidCredentials
	}
	if profile.Status == StatusInactive {
		return AuthTokens{}, nil, ErrUserInactive
	}

	principal := profile.ToPrincipal()
	tokens, err := s.issueTokens(ctx, principal)
	if err != nil {
		return AuthTokens{}, nil, err
	}

	if err := s.profiles.UpdateLastLogin(ctx, userID, time.Now()); err != nil {
		s.logger.Warn("failed to stamp last login", "error", err, "user_id", userID)
	}

	return tokens, principal, nil
}

// Register creates a profile and logs the new user in. Defaults: role
// general_user, plan Free, status active.
func (s *Service) Register(ctx context.Context, dto RegisterDTO) (AuthTokens, *Principal, error) {
	if err := dto.Validate(); err != nil {
		return AuthTokens{}, nil, err
	}

	hash, err := HashPassword(dto.Password, s.bcryptCost)
	if err != nil {
		return AuthTokens{}, nil, err
	}

	now := time.Now()
	profile := &Profile{
		ID:           uuid.NewString(),
		Email:        dto.Email,
		FullName:     dto.FullName,
		CompanyName:  dto.CompanyName,
		Position:     dto.Position,
		PhoneNumber:  dto.PhoneNumber,
		PasswordHash: hash,
		Role:         "general_user",
		Plan:         "Free",
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.profiles.Create(ctx, profile); err != nil {
		s.logger.Error("failed to create profile", "error", err, "email", dto.Email)
		return AuthTokens{}, nil, err
	}

	// The profile row may lag the write on a read replica; retry the load
	// with a bounded constant backoff instead of failing the signup.
	loaded, err := s.loadProfileWithRetry(ctx, profile.ID)
	if err != nil {
		return AuthTokens{}, nil, err
	}

	principal := loaded.ToPrincipal()
	tokens, err := s.issueTokens(ctx, principal)
	if err != nil {
		return AuthTokens{}, nil, err
	}

	s.logger.Info("user registered", "user_id", principal.ID, "email", principal.Email)
	return tokens, principal, nil
}

func (s *Service) loadProfileWithRetry(ctx context.Context, userID string) (*Profile, error) {
	var profile *Profile
	backoff := retry.WithMaxRetries(3, retry.NewConstant(500*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := s.profiles.GetByID(ctx, userID)
		if err != nil {
			s.logger.Warn("profile load failed, retrying", "error", err, "user_id", userID)
			return retry.RetryableError(err)
		}
		profile = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// RefreshTokens rotates the pair after checking the presented refresh
// token against the live session.
func (s *Service) RefreshTokens(ctx context.Context, refreshToken string) (AuthTokens, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return AuthTokens{}, err
	}

	if err := s.sessions.Validate(ctx, claims.UserID, refreshToken); err != nil {
		return AuthTokens{}, ErrSessionRevoked
	}

	profile, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil {
		return AuthTokens{}, ErrInvalidToken
	}
	if profile.Status == StatusInactive {
		return AuthTokens{}, ErrUserInactive
	}

	return s.issueTokens(ctx, profile.ToPrincipal())
}

func (s *Service) Logout(ctx context.Context, userID string) error {
	return s.sessions.Revoke(ctx, userID)
}

// ValidateAccessToken resolves a bearer token to a live Principal. Role
// and plan come from the store, not the claims, so a demotion takes
// effect on the next request.
func (s *Service) ValidateAccessToken(ctx context.Context, tokenString string) (*Principal, error) {
	claims, err := s.tokens.ValidateAccessToken(tokenString)
	if err != nil {
		return nil, err
	}

	profile, err := s.profiles.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if profile.Status == StatusInactive {
		return nil, ErrUserInactive
	}

	return profile.ToPrincipal(), nil
}

func (s *Service) issueTokens(ctx context.Context, principal *Principal) (AuthTokens, error) {
	accessToken, err := s.tokens.GenerateAccessToken(principal)
	if err != nil {
		return AuthTokens{}, err
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(principal)
	if err != nil {
		return AuthTokens{}, err
	}

	if err := s.sessions.Store(ctx, principal.ID, refreshToken, s.refreshTTL); err != nil {
		s.logger.Error("failed to store session", "error", err, "user_id", principal.ID)
		return AuthTokens{}, err
	}

	return AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
