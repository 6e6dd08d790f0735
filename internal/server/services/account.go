package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/cryptox"
	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/ratelimit"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dovol/internal/timex"
)

// TokenIssuer mints bearer tokens for a user id.
type TokenIssuer interface {
	Issue(subjectID string) (string, error)
}

// SignupProfile is what a new account supplies alongside its signup code.
type SignupProfile struct {
	FullName string
	Password string
	Role     models.Role
	Location string
}

// AccountService implements the self-service account flows: signup with an
// emailed code, login, password reset and profile edits.
type AccountService struct {
	repos   repomanager.RepositoryManager
	tx      dbx.Transactor
	otp     *OTPService
	tokens  TokenIssuer
	limiter ratelimit.Limiter
	clock   timex.Clock
	logger  logging.Logger

	dummyOnce sync.Once
	dummyHash string
}

func NewAccountService(m repomanager.RepositoryManager, tx dbx.Transactor, otp *OTPService, tokens TokenIssuer,
	limiter ratelimit.Limiter, clock timex.Clock, l logging.Logger) *AccountService {
	if limiter == nil {
		limiter = ratelimit.Unlimited{}
	}
	return &AccountService{
		repos:   m,
		tx:      tx,
		otp:     otp,
		tokens:  tokens,
		limiter: limiter,
		clock:   clock,
		logger:  l.With("module", "account_service"),
	}
}

// RequestSignupOTP emails a signup code unless the address already has an
// account, in which case no code is created and common.ErrorConflict is
// returned.
func (s *AccountService) RequestSignupOTP(ctx context.Context, email string) (*models.OTP, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, validationErr("email is required")
	}

	_, err := s.repos.Users(s.tx.Conn()).GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, fmt.Errorf("email already registered: %w", common.ErrorConflict)
	case !errors.Is(err, common.ErrorNotFound):
		return nil, wrapErr("lookup user", err)
	}

	if err := s.throttle(ctx, models.PurposeSignup, email); err != nil {
		return nil, err
	}
	return s.otp.Issue(ctx, email, models.PurposeSignup)
}

// CompleteSignup consumes the signup code and creates the account in one
// transaction. Admin accounts cannot be self-registered.
func (s *AccountService) CompleteSignup(ctx context.Context, email, code string, p SignupProfile) (*models.User, error) {
	email = normalizeEmail(email)
	switch p.Role {
	case models.RoleVolunteer, models.RoleNGO:
	case models.RoleAdmin:
		return nil, validationErr("role %s cannot be self-selected", p.Role)
	default:
		return nil, validationErr("unknown role %q", p.Role)
	}
	if strings.TrimSpace(p.FullName) == "" {
		return nil, validationErr("full name is required")
	}
	if p.Password == "" {
		return nil, validationErr("password is required")
	}

	hash, err := cryptox.HashPassword(p.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var user *models.User
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)

		if _, err := repo.GetByEmail(ctx, email); err == nil {
			return fmt.Errorf("email already registered: %w", common.ErrorConflict)
		} else if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		if _, err := s.otp.Consume(ctx, tx, email, code, models.PurposeSignup, false); err != nil {
			return err
		}

		now := s.clock.Now()
		var err error
		user, err = repo.Create(ctx, &models.User{
			Email:        email,
			PasswordHash: hash,
			Role:         p.Role,
			FullName:     strings.TrimSpace(p.FullName),
			Location:     strings.TrimSpace(p.Location),
			IsActive:     true,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		return err
	})
	if err != nil {
		return nil, wrapErr("complete signup", err)
	}

	s.logger.Info(ctx, "account created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login checks credentials and returns a bearer token. Unknown emails and
// wrong passwords are indistinguishable to the caller. A legacy password
// hash is upgraded after a successful check.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	repo := s.repos.Users(s.tx.Conn())

	user, err := repo.GetByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, common.ErrorNotFound) {
		// Spend the same effort as a real check.
		_, _ = cryptox.VerifyPassword(password, s.timingHash())
		return "", common.ErrInvalidCredentials
	}
	if err != nil {
		return "", wrapErr("lookup user", err)
	}

	ok, err := cryptox.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		s.logger.Error(ctx, "unverifiable password hash", "user_id", user.ID, "error", err)
		return "", common.ErrInvalidCredentials
	}
	if !ok {
		return "", common.ErrInvalidCredentials
	}

	if !user.IsActive {
		return "", fmt.Errorf("%w: account disabled", common.ErrorForbidden)
	}

	if cryptox.NeedsRehash(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *AccountService) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		s.logger.Warn(ctx, "password rehash failed", "user_id", user.ID, "error", err)
		return
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.clock.Now()
	if err := s.repos.Users(s.tx.Conn()).Update(ctx, user); err != nil {
		s.logger.Warn(ctx, "password rehash not stored", "user_id", user.ID, "error", err)
		return
	}
	s.logger.Info(ctx, "legacy password hash upgraded", "user_id", user.ID)
}

func (s *AccountService) timingHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = cryptox.HashPassword("dovol-timing-equaliser")
	})
	return s.dummyHash
}

// ForgotPassword sends a reset code when the address has an account. The
// result is the same whether or not it does: every address is charged
// against the request budget before the lookup, and a spent budget answers
// like success without issuing a code. Only a delivery failure for a real
// account is reported.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)

	if err := s.throttle(ctx, models.PurposePasswordReset, email); err != nil {
		if errors.Is(err, common.ErrRateLimited) {
			s.logger.Info(ctx, "password reset throttled", "email", email)
			return nil
		}
		return err
	}

	_, err := s.repos.Users(s.tx.Conn()).GetByEmail(ctx, email)
	if errors.Is(err, common.ErrorNotFound) {
		s.logger.Debug(ctx, "password reset for unknown email")
		return nil
	}
	if err != nil {
		return wrapErr("lookup user", err)
	}

	_, err = s.otp.Issue(ctx, email, models.PurposePasswordReset)
	return err
}

// VerifyResetOTP marks a reset code verified without spending it.
func (s *AccountService) VerifyResetOTP(ctx context.Context, email, code string) error {
	_, err := s.otp.Verify(ctx, email, code, models.PurposePasswordReset)
	return err
}

// ResetPassword spends a verified reset code and stores the new password in
// the same transaction.
func (s *AccountService) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if newPassword == "" {
		return validationErr("password is required")
	}
	email = normalizeEmail(email)

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.otp.Consume(ctx, tx, email, code, models.PurposePasswordReset, true); err != nil {
			return err
		}

		repo := s.repos.Users(tx)
		user, err := repo.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		user.PasswordHash = hash
		user.UpdatedAt = s.clock.Now()
		return repo.Update(ctx, user)
	})
	if err != nil {
		return wrapErr("reset password", err)
	}

	s.logger.Info(ctx, "password reset", "email", email)
	return nil
}

// Profile returns the stored copy of the caller's account.
func (s *AccountService) Profile(ctx context.Context, user *models.User) (*models.User, error) {
	u, err := s.repos.Users(s.tx.Conn()).GetByID(ctx, user.ID)
	return u, wrapErr("load profile", err)
}

// UpdateProfile changes the caller's name and location. Nil leaves a field
// as it is. Role and active flag are never touched here.
func (s *AccountService) UpdateProfile(ctx context.Context, user *models.User, fullName, location *string) (*models.User, error) {
	var out *models.User
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Users(tx)
		cur, err := repo.GetByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if fullName != nil {
			name := strings.TrimSpace(*fullName)
			if name == "" {
				return validationErr("full name cannot be empty")
			}
			cur.FullName = name
		}
		if location != nil {
			cur.Location = strings.TrimSpace(*location)
		}
		cur.UpdatedAt = s.clock.Now()
		if err := repo.Update(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		return nil, wrapErr("update profile", err)
	}
	return out, nil
}

// throttle applies the per-(purpose, email) request budget. A limiter that
// cannot reach its store lets the request through.
func (s *AccountService) throttle(ctx context.Context, purpose models.Purpose, email string) error {
	err := s.limiter.Allow(ctx, string(purpose)+":"+email)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ratelimit.ErrUnavailable):
		s.logger.Warn(ctx, "rate limiter unavailable", "error", err)
		return nil
	default:
		return fmt.Errorf("%s code requests: %w", purpose, err)
	}
}
