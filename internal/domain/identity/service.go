package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/INFO333/mhoms-api/internal/platform/apperr"
	"github.com/INFO333/mhoms-api/internal/platform/auth"
	"github.com/INFO333/mhoms-api/internal/platform/db"
)

const tokenType = "Bearer"

const (
	msgUserNotFound       = "User not found"
	detailsUserNotFound   = "The username you entered doesn't exist. Please register first."
	msgBadCredentials     = "Invalid username or password"
	detailsBadCredentials = "Please check your credentials and try again."
	msgBadRefreshToken    = "Invalid refresh token"
	detailsBadRefresh     = "The refresh token is invalid or expired. Please log in again."
)

type Service struct {
	users  UserRepository
	hasher auth.PasswordHasher
	tokens *auth.TokenManager
	tx     db.Transactor
}

func NewService(users UserRepository, hasher auth.PasswordHasher, tokens *auth.TokenManager, tx db.Transactor) *Service {
	return &Service{users: users, hasher: hasher, tokens: tokens, tx: tx}
}

// Register creates an account and signs it in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	u := &User{
		Username: strings.TrimSpace(req.Username),
		Email:    strings.TrimSpace(req.Email),
		FullName: strings.TrimSpace(req.FullName),
		Role:     req.Role,
	}
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		exists, err := s.users.ExistsByUsername(ctx, u.Username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			return apperr.Conflict("Username already exists")
		}
		exists, err = s.users.ExistsByEmail(ctx, u.Email)
		if err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if exists {
			return apperr.Conflict("Email already exists")
		}
		if err := s.users.Create(ctx, u); err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.issue(u, "")
}

// Login verifies the password and issues a fresh token pair.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	u, err := s.findUser(ctx, req.Username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthorized(msgUserNotFound, detailsUserNotFound)
	}
	if !s.hasher.Compare(u.PasswordHash, req.Password) {
		return nil, apperr.Unauthorized(msgBadCredentials, detailsBadCredentials)
	}
	return s.issue(u, "")
}

// Refresh issues a new access token for the refresh token's subject. The
// refresh token itself is returned unchanged.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	username, err := s.tokens.ParseSubject(refreshToken)
	if err != nil {
		return nil, apperr.Unauthorized(msgBadRefreshToken, detailsBadRefresh)
	}
	u, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperr.Unauthorized(msgUserNotFound, detailsUserNotFound)
	}
	if !s.tokens.ValidateFor(refreshToken, u.Username) {
		return nil, apperr.Unauthorized(msgBadRefreshToken, detailsBadRefresh)
	}
	return s.issue(u, refreshToken)
}

// LoadPrincipal resolves a token subject for the auth middleware.
func (s *Service) LoadPrincipal(ctx context.Context, username string) (*auth.Principal, error) {
	u, err := s.findUser(ctx, username)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, db.ErrNotFound
	}
	return &auth.Principal{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

// findUser returns nil, nil for an unknown username.
func (s *Service) findUser(ctx context.Context, username string) (*User, error) {
	var u *User
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		u, err = s.users.GetByUsername(ctx, username)
		return err
	})
	if errors.Is(err, db.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load user %q: %w", username, err)
	}
	return u, nil
}

// issue signs a new access token and, when refreshToken is empty, a new
// refresh token.
func (s *Service) issue(u *User, refreshToken string) (*AuthResponse, error) {
	access, err := s.tokens.GenerateAccessToken(u.Username)
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		if refreshToken, err = s.tokens.GenerateRefreshToken(u.Username); err != nil {
			return nil, err
		}
	}
	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		FullName:     u.FullName,
		Role:         u.Role,
	}, nil
}

// CountUsers returns the total and per-role account counts.
func (s *Service) CountUsers(ctx context.Context) (*UserCounts, error) {
	var uc UserCounts
	err := s.tx.InReadTx(ctx, func(ctx context.Context) error {
		var err error
		if uc.Total, err = s.users.Count(ctx); err != nil {
			return err
		}
		if uc.Admins, err = s.users.CountByRole(ctx, auth.RoleAdmin); err != nil {
			return err
		}
		if uc.Doctors, err = s.users.CountByRole(ctx, auth.RoleDoctor); err != nil {
			return err
		}
		uc.Patients, err = s.users.CountByRole(ctx, auth.RolePatient)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	return &uc, nil
}
