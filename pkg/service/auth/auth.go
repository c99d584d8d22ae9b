// Package auth issues and validates credentials: password login, JWT access
// tokens and rotating refresh tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/barncase/barn/pkg/authz"
	"github.com/barncase/barn/pkg/config"
	"github.com/barncase/barn/pkg/domain"
	"github.com/barncase/barn/pkg/domain/user"
	"github.com/barncase/barn/pkg/repository"
	"github.com/barncase/barn/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the access token payload.
type Claims struct {
	Name string    `json:"name"`
	Role user.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens is what a successful login or refresh hands back.
type Tokens struct {
	AccessToken      string     `json:"accessToken"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	RefreshToken     string     `json:"refreshToken"`
	RefreshExpiresAt time.Time  `json:"refreshExpiresAt"`
	User             *user.User `json:"user"`
}

// Login compares against these when the name is unknown so both paths cost
// one key derivation.
var (
	dummyHash = make([]byte, utils.PasswordKeySize)
	dummySalt = make([]byte, utils.PasswordSaltSize)
)

type Service struct {
	uow    repository.UnitOfWork
	cfg    *config.Auth
	logger *slog.Logger
	now    func() time.Time
}

func New(uow repository.UnitOfWork, cfg *config.Auth, logger *slog.Logger) *Service {
	return &Service{
		uow:    uow,
		cfg:    cfg,
		logger: logger.With("service", "auth"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates a user. Only an admin caller may create another admin;
// caller is nil for anonymous sign-up.
func (s *Service) Register(
	ctx context.Context,
	caller *authz.Caller,
	name, password string,
	role user.Role,
) (*user.User, error) {
	log := s.logger.With("context", "Register", "name", name, "role", role)
	log.Debug("Register called")

	if role == user.RoleAdmin && (caller == nil || !caller.IsAdmin()) {
		log.Warn("Register failed", "error", domain.ErrForbidden)
		return nil, domain.ErrForbidden
	}
	u, err := user.New(name, password, role)
	if err != nil {
		log.Error("Register failed", "error", err)
		return nil, err
	}
	err = s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		return repo.Create(ctx, u)
	})
	if err != nil {
		log.Error("Register failed", "error", err)
		return nil, err
	}
	log.Info("Register successful", "userID", u.ID)
	return u, nil
}

// Login checks name and password and issues a token pair.
func (s *Service) Login(ctx context.Context, name, password string) (*Tokens, error) {
	log := s.logger.With("context", "Login", "name", name)
	log.Debug("Login called")

	var tokens *Tokens
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		u, err := repo.GetByName(ctx, name)
		if errors.Is(err, domain.ErrNotFound) {
			_ = utils.CheckPasswordHash(password, dummyHash, dummySalt)
			return domain.ErrUnauthorized
		}
		if err != nil {
			return err
		}
		if !u.CheckPassword(password) {
			return domain.ErrUnauthorized
		}
		tokens, err = s.issue(ctx, uow, u)
		return err
	})
	if err != nil {
		log.Error("Login failed", "error", err)
		return nil, err
	}
	log.Info("Login successful", "userID", tokens.User.ID)
	return tokens, nil
}

// Refresh revokes the presented refresh token and issues a new pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	log := s.logger.With("context", "Refresh")
	log.Debug("Refresh called")

	var tokens *Tokens
	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.TokenRepository()
		if err != nil {
			return fmt.Errorf("failed to get token repository: %w", err)
		}
		now := s.now()
		stored, err := repo.GetByHash(ctx, utils.HashToken(refreshToken))
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		if err != nil {
			return err
		}
		if !stored.Active(now) {
			return domain.ErrUnauthorized
		}
		if err := repo.Revoke(ctx, stored.ID, now); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				return domain.ErrUnauthorized
			}
			return err
		}

		users, err := uow.UserRepository()
		if err != nil {
			return fmt.Errorf("failed to get user repository: %w", err)
		}
		u, err := users.Get(ctx, stored.UserID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUnauthorized
		}
		if err != nil {
			return err
		}
		tokens, err = s.issue(ctx, uow, u)
		return err
	})
	if err != nil {
		log.Error("Refresh failed", "error", err)
		return nil, err
	}
	log.Info("Refresh successful", "userID", tokens.User.ID)
	return tokens, nil
}

// Revoke invalidates a refresh token. Unknown or already revoked tokens
// are not an error.
func (s *Service) Revoke(ctx context.Context, refreshToken string) error {
	log := s.logger.With("context", "Revoke")
	log.Debug("Revoke called")

	err := s.uow.Do(ctx, func(uow repository.UnitOfWork) error {
		repo, err := uow.TokenRepository()
		if err != nil {
			return fmt.Errorf("failed to get token repository: %w", err)
		}
		stored, err := repo.GetByHash(ctx, utils.HashToken(refreshToken))
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if stored.RevokedAt != nil {
			return nil
		}
		if err := repo.Revoke(ctx, stored.ID, s.now()); err != nil && !errors.Is(err, domain.ErrConflict) {
			return err
		}
		return nil
	})
	if err != nil {
		log.Error("Revoke failed", "error", err)
		return err
	}
	log.Info("Revoke successful")
	return nil
}

// WhoAmI loads the caller's user record.
func (s *Service) WhoAmI(ctx context.Context, caller authz.Caller) (*user.User, error) {
	repo, err := s.uow.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository: %w", err)
	}
	u, err := repo.Get(ctx, caller.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUnauthorized
	}
	return u, err
}

func (s *Service) issue(ctx context.Context, uow repository.UnitOfWork, u *user.User) (*Tokens, error) {
	access, exp, err := s.GenerateAccessToken(u)
	if err != nil {
		return nil, err
	}
	raw, err := utils.RandomToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	rt := user.NewRefreshToken(u.ID, utils.HashToken(raw), s.now(), s.cfg.RefreshTTL)

	repo, err := uow.TokenRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get token repository: %w", err)
	}
	if err := repo.Create(ctx, rt); err != nil {
		return nil, err
	}
	return &Tokens{
		AccessToken:      access,
		ExpiresAt:        exp,
		RefreshToken:     raw,
		RefreshExpiresAt: rt.ExpiresAt,
		User:             u,
	}, nil
}

// GenerateAccessToken signs an HS256 access token for u.
func (s *Service) GenerateAccessToken(u *user.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.cfg.Jwt.Expiry)
	claims := Claims{
		Name: u.Name,
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			Issuer:    s.cfg.Jwt.Issuer,
			Audience:  jwt.ClaimStrings{s.cfg.Jwt.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Jwt.Secret))
	if err != nil {
		s.logger.Error("GenerateAccessToken failed", "userID", u.ID, "error", err)
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseAccessToken verifies signature, lifetime, issuer and audience.
func (s *Service) ParseAccessToken(token string) (authz.Caller, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return []byte(s.cfg.Jwt.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Jwt.Issuer),
		jwt.WithAudience(s.cfg.Jwt.Audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return authz.Caller{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return CallerFromClaims(claims)
}

// ValidateClaims checks issuer and audience on claims already verified for
// signature and lifetime, and returns the caller they describe.
func (s *Service) ValidateClaims(claims *Claims) (authz.Caller, error) {
	v := jwt.NewValidator(
		jwt.WithIssuer(s.cfg.Jwt.Issuer),
		jwt.WithAudience(s.cfg.Jwt.Audience),
		jwt.WithTimeFunc(s.now),
	)
	if err := v.Validate(claims); err != nil {
		return authz.Caller{}, fmt.Errorf("%w: %v", domain.ErrUnauthorized, err)
	}
	return CallerFromClaims(claims)
}

// CallerFromClaims extracts the principal.
func CallerFromClaims(claims *Claims) (authz.Caller, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return authz.Caller{}, fmt.Errorf("%w: bad subject", domain.ErrUnauthorized)
	}
	role, err := user.ParseRole(string(claims.Role))
	if err != nil {
		return authz.Caller{}, fmt.Errorf("%w: bad role", domain.ErrUnauthorized)
	}
	return authz.Caller{UserID: id, Role: role}, nil
}

// Secret exposes the signing key to the HTTP middleware.
func (s *Service) Secret() []byte {
	return []byte(s.cfg.Jwt.Secret)
}
