// Package services contains the server-side business logic. AuthService is the
// authentication engine: it owns the identity invariants (one record per
// email, only active accounts log in), delegates secret handling to a Cipher
// and the token lifecycle to a token issuer, and runs every mutation in a
// single transaction so an operation commits its one write or nothing.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/msauth/internal/common"
	"github.com/dmitrijs2005/msauth/internal/dbx"
	"github.com/dmitrijs2005/msauth/internal/logging"
	"github.com/dmitrijs2005/msauth/internal/server/models"
	"github.com/dmitrijs2005/msauth/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/msauth/internal/server/repositories/users"
)

// Cipher protects stored passwords. See cryptox.Cipher.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Tokens issues and verifies bearer tokens. See auth.TokenIssuer.
type Tokens interface {
	Issue(user *models.User) (string, error)
	Verify(token string) (*models.TokenClaims, error)
}

type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	cipher      Cipher
	tokens      Tokens
	logger      logging.Logger
	now         func() time.Time
}

type Option func(*AuthService)

func WithLogger(l logging.Logger) Option {
	return func(s *AuthService) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cipher Cipher, tokens Tokens, opts ...Option) *AuthService {
	s := &AuthService{
		db:          db,
		repomanager: m,
		cipher:      cipher,
		tokens:      tokens,
		logger:      logging.Nop(),
		now:         time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Register creates a user. An email that is already taken yields
// DuplicateEmail, whether the engine sees the existing row or the store's
// unique index rejects a concurrent insert.
func (s *AuthService) Register(ctx context.Context, r models.Registration) (*models.User, error) {
	if err := validateRegistration(&r); err != nil {
		return nil, err
	}

	var created *models.User
	err := s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		_, err := repo.FindByEmail(ctx, r.Email)
		switch {
		case err == nil:
			return &common.Error{Kind: common.KindDuplicateEmail, Email: r.Email}
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		encrypted, err := s.cipher.Encrypt(r.Password)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		created, err = repo.Create(ctx, &models.User{
			Name:      r.Name,
			Email:     r.Email,
			Password:  encrypted,
			Status:    r.Status,
			Type:      r.Type,
			CreatedAt: now,
			UpdatedAt: now,
			CreatedBy: r.CreatedBy,
			UpdatedBy: r.UpdatedBy,
		})
		return err
	})
	if err != nil {
		s.logger.Warn(ctx, "register failed", "email", r.Email, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "user registered", "email", created.Email, "user_id", created.ID)
	return created, nil
}

// Login checks credentials and issues a token. An unknown email and a wrong
// password are reported identically as InvalidCredentials. The account status
// is only checked once the password has matched.
func (s *AuthService) Login(ctx context.Context, email, password string) (*models.LoginResult, error) {
	email = normalizeEmail(email)
	user, err := s.login(ctx, email, password)
	if err != nil {
		s.logger.Warn(ctx, "login rejected", "email", email, "reason", common.KindOf(err).String())
		return nil, err
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "login succeeded", "email", user.Email, "user_id", user.ID)
	user.Password = ""
	return &models.LoginResult{User: user, Token: token}, nil
}

func (s *AuthService) login(ctx context.Context, email, password string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, &common.Error{Kind: common.KindInvalidCredentials, Email: email}
		}
		return nil, common.StoreUnavailable(err)
	}

	stored, err := s.cipher.Decrypt(user.Password)
	if err != nil {
		var ce *common.Error
		if errors.As(err, &ce) {
			return nil, &common.Error{Kind: ce.Kind, Email: email, UserID: user.ID, Err: ce.Err}
		}
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(stored), []byte(password)) != 1 {
		return nil, &common.Error{Kind: common.KindInvalidCredentials, Email: email}
	}

	if user.Status != models.StatusActive {
		return nil, &common.Error{Kind: common.KindAccountInactive, Email: email, UserID: user.ID}
	}
	return user, nil
}

// ResetPassword replaces the stored password of the account owning email.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) (*models.User, error) {
	email = normalizeEmail(email)
	if newPassword == "" {
		return nil, validation("password is required")
	}

	var updated *models.User
	err := s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		user, err := repo.FindByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return &common.Error{Kind: common.KindUserNotFound, Email: email}
			}
			return err
		}

		encrypted, err := s.cipher.Encrypt(newPassword)
		if err != nil {
			return err
		}
		user.Password = encrypted
		user.UpdatedAt = s.stamp(user.UpdatedAt)

		updated, err = repo.Update(ctx, user)
		if errors.Is(err, common.ErrorNotFound) {
			return &common.Error{Kind: common.KindUserNotFound, Email: email}
		}
		return err
	})
	if err != nil {
		s.logger.Warn(ctx, "password reset failed", "email", email, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "password reset", "email", updated.Email, "user_id", updated.ID)
	return updated, nil
}

// UpdateUser applies the non-nil fields of u to the user with the given id.
// UpdatedAt is always refreshed; UpdatedBy is left as it was.
func (s *AuthService) UpdateUser(ctx context.Context, id int64, u models.UserUpdate) (*models.User, error) {
	if u.Email != nil {
		email := normalizeEmail(*u.Email)
		u.Email = &email
	}
	if err := validateUpdate(u); err != nil {
		return nil, err
	}

	var updated *models.User
	err := s.inTx(ctx, func(ctx context.Context, repo users.Repository) error {
		user, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return &common.Error{Kind: common.KindUserNotFound, UserID: id}
			}
			return err
		}

		if u.Email != nil && *u.Email != user.Email {
			other, err := repo.FindByEmail(ctx, *u.Email)
			switch {
			case err == nil && other.ID != user.ID:
				return &common.Error{Kind: common.KindEmailConflict, Email: *u.Email, UserID: id}
			case err != nil && !errors.Is(err, common.ErrorNotFound):
				return err
			}
			user.Email = *u.Email
		}

		if u.Password != nil {
			encrypted, err := s.cipher.Encrypt(*u.Password)
			if err != nil {
				return err
			}
			user.Password = encrypted
		}
		if u.Name != nil {
			user.Name = *u.Name
		}
		if u.Status != nil {
			user.Status = *u.Status
		}
		user.UpdatedAt = s.stamp(user.UpdatedAt)

		updated, err = repo.Update(ctx, user)
		if errors.Is(err, common.ErrorNotFound) {
			return &common.Error{Kind: common.KindUserNotFound, UserID: id}
		}
		return err
	})
	if err != nil {
		s.logger.Warn(ctx, "update failed", "user_id", id, "error", err)
		return nil, err
	}

	s.logger.Info(ctx, "user updated", "email", updated.Email, "user_id", updated.ID)
	return updated, nil
}

// ValidateToken verifies token and returns its claims. Verification errors
// are returned as they come from the issuer.
func (s *AuthService) ValidateToken(_ context.Context, token string) (*models.TokenClaims, error) {
	return s.tokens.Verify(token)
}

// ListUsers returns every stored record with its encrypted password.
func (s *AuthService) ListUsers(ctx context.Context) ([]*models.User, error) {
	list, err := s.repomanager.Users(s.db).List(ctx)
	if err != nil {
		return nil, common.StoreUnavailable(err)
	}
	return list, nil
}

func (s *AuthService) inTx(ctx context.Context, fn func(ctx context.Context, repo users.Repository) error) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, s.repomanager.Users(tx))
	})
	return common.StoreUnavailable(err)
}

// stamp returns the new UpdatedAt, never earlier than prev.
func (s *AuthService) stamp(prev time.Time) time.Time {
	now := s.now().UTC()
	if now.Before(prev) {
		return prev
	}
	return now
}

func validation(msg string) error {
	return common.NewError(common.KindValidation, errors.New(msg))
}

// normalizeEmail is applied to every email the engine looks up or stores.
func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func validateRegistration(r *models.Registration) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)

	switch {
	case r.Name == "":
		return validation("name is required")
	case r.Email == "":
		return validation("email is required")
	case r.Password == "":
		return validation("password is required")
	}

	if r.Status == "" {
		r.Status = models.StatusActive
	}
	if !r.Status.Valid() {
		return validation(fmt.Sprintf("invalid status %q", r.Status))
	}
	if r.Type == "" {
		r.Type = models.TypeUser
	}
	if !r.Type.Valid() {
		return validation(fmt.Sprintf("invalid type %q", r.Type))
	}
	if r.CreatedBy == "" {
		r.CreatedBy = common.SystemActor
	}
	if r.UpdatedBy == "" {
		r.UpdatedBy = common.SystemActor
	}
	return nil
}

func validateUpdate(u models.UserUpdate) error {
	switch {
	case u.Name != nil && strings.TrimSpace(*u.Name) == "":
		return validation("name must not be empty")
	case u.Email != nil && *u.Email == "":
		return validation("email must not be empty")
	case u.Password != nil && *u.Password == "":
		return validation("password must not be empty")
	case u.Status != nil && !u.Status.Valid():
		return validation(fmt.Sprintf("invalid status %q", *u.Status))
	}
	return nil
}
