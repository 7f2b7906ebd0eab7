// Package services contains server-side business logic. This file implements
// AuthService: signup, login, token verification, password change and the
// forgot/verify/reset password flow.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eyad010/postfeed/internal/common"
	"github.com/Eyad010/postfeed/internal/logging"
	"github.com/Eyad010/postfeed/internal/server/auth"
	"github.com/Eyad010/postfeed/internal/server/config"
	"github.com/Eyad010/postfeed/internal/server/models"
	"github.com/Eyad010/postfeed/internal/server/notify"
	"github.com/Eyad010/postfeed/internal/server/repositories/repomanager"
	"github.com/Eyad010/postfeed/internal/server/repositories/users"
)

var (
	errBadCredentials = common.NewError(common.ErrorUnauthorized, "Incorrect email or password")
	errEmailTaken     = common.NewError(common.ErrorConflict, "The email address is already registered. Please use a different email.")
	errNoUserForEmail = common.NewError(common.ErrorNotFound, "There is no user with that email address.")
)

// Session is a freshly issued token and the user it belongs to.
type Session struct {
	Token string
	User  *models.User
}

type SignupInput struct {
	Name            string
	Email           string
	Password        string
	PasswordConfirm string
	Phone           string
}

type UpdatePasswordInput struct {
	PasswordCurrent string
	Password        string
	PasswordConfirm string
}

type ResetPasswordInput struct {
	Email           string
	Password        string
	PasswordConfirm string
}

// AuthService owns the credential lifecycle of users.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       *auth.TokenCodec
	hasher      auth.PasswordHasher
	sender      notify.Sender
	resetTTL    time.Duration
	log         logging.Logger

	now          func() time.Time
	generateCode func() (string, error)
}

// NewAuthService constructs an AuthService signing tokens with cfg.SecretKey.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config,
	hasher auth.PasswordHasher, sender notify.Sender, log logging.Logger) *AuthService {
	return &AuthService{
		db:           db,
		repomanager:  m,
		codec:        auth.NewTokenCodec([]byte(cfg.SecretKey), cfg.JWTExpiresIn),
		hasher:       hasher,
		sender:       sender,
		resetTTL:     cfg.ResetCodeTTL,
		log:          log.With("service", "auth"),
		now:          time.Now,
		generateCode: auth.GenerateResetCode,
	}
}

// TokenValidity is the lifetime of issued session tokens.
func (s *AuthService) TokenValidity() time.Duration {
	return s.codec.Validity()
}

func (s *AuthService) users() users.Repository {
	return s.repomanager.Users(s.db)
}

func (s *AuthService) newSession(user *models.User) (*Session, error) {
	token, err := s.codec.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	user.PasswordHash = ""
	return &Session{Token: token, User: user}, nil
}

// Signup creates a user and logs them in.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateSignup(in); err != nil {
		return nil, err
	}

	repo := s.users()
	if _, err := repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, errEmailTaken
	} else if !errors.Is(err, common.ErrorNotFound) {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user, err := repo.Create(ctx, &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, errEmailTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	s.log.Info(ctx, "user signed up", "user_id", user.ID)
	return s.newSession(user)
}

// Login checks the credentials and issues a token. Unknown emails and wrong
// passwords fail with the same error after a hash comparison.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, common.NewError(common.ErrorValidation, "Please provide an email and a password")
	}

	user, err := s.users().GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.Compare("", password)
			return nil, errBadCredentials
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		return nil, errBadCredentials
	}

	return s.newSession(user)
}

// Authenticate resolves the user owning token. Tokens issued at or before the
// last password change are rejected.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, common.NewError(common.ErrorUnauthorized, "You are not logged in! Please log in to get access.")
	}

	claims, err := s.codec.Parse(token)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return nil, common.NewError(common.ErrorUnauthorized, "Your token has expired! Please log in again.")
		}
		return nil, common.NewError(common.ErrorUnauthorized, "Invalid token. Please log in again!")
	}

	user, err := s.users().GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorUnauthorized, "The user belonging to this token does no longer exist.")
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if user.ChangedPasswordAfter(claims.IssuedTime()) {
		return nil, common.NewError(common.ErrorUnauthorized, "User recently changed password! Please log in again.")
	}

	user.PasswordHash = ""
	return user, nil
}

// setPassword stores a new hash and clears any pending reset. The change
// time is backdated by one second so that a token minted right after it,
// whose iat has whole second precision, stays valid.
func (s *AuthService) setPassword(ctx context.Context, repo users.Repository, user *models.User, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	changedAt := s.now().Add(-time.Second)
	if err := repo.UpdatePassword(ctx, user.ID, hash, changedAt); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}

	user.PasswordHash = hash
	user.PasswordChangedAt = &changedAt
	user.PasswordResetCodeHash = ""
	user.PasswordResetExpiresAt = nil
	user.PasswordResetVerified = false
	return nil
}

// UpdatePassword changes the password of an authenticated user and issues a
// new token, since earlier tokens become stale.
func (s *AuthService) UpdatePassword(ctx context.Context, userID string, in UpdatePasswordInput) (*Session, error) {
	repo := s.users()

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if in.PasswordCurrent == "" || !s.hasher.Compare(user.PasswordHash, in.PasswordCurrent) {
		return nil, common.NewError(common.ErrorUnauthorized, "Your current password is wrong.")
	}
	if err := validatePassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	if err := s.setPassword(ctx, repo, user, in.Password); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "password changed", "user_id", user.ID)
	return s.newSession(user)
}

// ForgotPassword issues a reset code and mails it. If delivery fails the
// code is cleared again before the error is returned.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return common.NewError(common.ErrorValidation, "Please provide your email")
	}

	repo := s.users()
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return errNoUserForEmail
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	code, err := s.generateCode()
	if err != nil {
		return fmt.Errorf("error generating reset code: %w", err)
	}

	expiresAt := s.now().Add(s.resetTTL)
	if err := repo.SetResetCode(ctx, user.ID, auth.HashResetCode(code), expiresAt); err != nil {
		return fmt.Errorf("error storing reset code: %w", err)
	}

	if err := s.sender.Send(ctx, notify.ResetCodeMessage(user.Email, code, s.resetTTL)); err != nil {
		s.log.Error(ctx, "reset code delivery failed", "user_id", user.ID, "error", err)

		if clearErr := repo.ClearResetCode(context.WithoutCancel(ctx), user.ID); clearErr != nil {
			s.log.Error(ctx, "reset code rollback failed", "user_id", user.ID, "error", clearErr)
		}
		return common.NewError(common.ErrorDelivery, "There was an error sending the email. Try again later!")
	}

	s.log.Info(ctx, "reset code issued", "user_id", user.ID)
	return nil
}

// VerifyResetCode marks the reset of the user with email as verified when
// code matches the active, unexpired reset code.
func (s *AuthService) VerifyResetCode(ctx context.Context, email, code string) error {
	email = normalizeEmail(email)
	code = strings.TrimSpace(code)
	if email == "" || code == "" {
		return common.NewError(common.ErrorValidation, "Please provide your email and the reset code")
	}

	_, err := s.users().MarkResetVerified(ctx, email, auth.HashResetCode(code), s.now())
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NewError(common.ErrorValidation, "Reset code is invalid or has expired")
		}
		return fmt.Errorf("error verifying reset code: %w", err)
	}

	return nil
}

// ResetPassword sets a new password once the reset code was verified.
func (s *AuthService) ResetPassword(ctx context.Context, in ResetPasswordInput) (*Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" {
		return nil, common.NewError(common.ErrorValidation, "Please provide your email")
	}

	repo := s.users()
	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errNoUserForEmail
		}
		return nil, fmt.Errorf("error searching user: %w", err)
	}

	if !user.PasswordResetVerified || !user.ResetCodeActive(s.now()) {
		return nil, common.NewError(common.ErrorUnauthorized, "Reset code has not been verified or has expired")
	}
	if err := validatePassword(in.Password, in.PasswordConfirm); err != nil {
		return nil, err
	}

	if err := s.setPassword(ctx, repo, user, in.Password); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "password reset", "user_id", user.ID)
	return s.newSession(user)
}
