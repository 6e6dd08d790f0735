// Package services contains server-side business logic. This file implements
// OTPService, the state machine behind signup confirmation and password
// reset codes: issue, verify and consume, plus housekeeping used by the
// admin CLI and the background sweeper.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/metrics"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/notify"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/otps"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/dovol/internal/timex"
)

const (
	codeLength = 6
	// DefaultOTPValidity is how long an issued code stays usable.
	DefaultOTPValidity = 10 * time.Minute
)

// OTPService issues and checks one-time codes. Only the newest matching
// record is ever consulted; issuing a code leaves older ones untouched.
type OTPService struct {
	repos      repomanager.RepositoryManager
	tx         dbx.Transactor
	dispatcher notify.Dispatcher
	clock      timex.Clock
	metrics    *metrics.Metrics
	logger     logging.Logger
	validity   time.Duration
}

func NewOTPService(m repomanager.RepositoryManager, tx dbx.Transactor, d notify.Dispatcher,
	clock timex.Clock, mt *metrics.Metrics, l logging.Logger, validity time.Duration) *OTPService {
	if validity <= 0 {
		validity = DefaultOTPValidity
	}
	return &OTPService{
		repos:      m,
		tx:         tx,
		dispatcher: d,
		clock:      clock,
		metrics:    mt,
		logger:     l.With("module", "otp_service"),
		validity:   validity,
	}
}

// Issue stores a fresh code for (email, purpose) and then hands it to the
// dispatcher. Delivery happens after the insert has committed. When
// delivery fails the stored record is returned along with an error wrapping
// common.ErrDeliveryFailure; the code remains valid.
func (s *OTPService) Issue(ctx context.Context, email string, purpose models.Purpose) (*models.OTP, error) {
	if !purpose.Valid() {
		return nil, validationErr("unknown purpose %q", purpose)
	}

	code, err := common.RandomDigits(codeLength)
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}

	now := s.clock.Now()
	otp := &models.OTP{
		Email:     normalizeEmail(email),
		Code:      code,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(s.validity),
	}

	if err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		otp, err = s.repos.OTPs(tx).Create(ctx, otp)
		return err
	}); err != nil {
		return nil, wrapErr("store otp", err)
	}
	s.metrics.OTPIssued(string(purpose))

	ok := s.dispatcher.SendOTP(ctx, otp.Email, otp.Code, purpose)
	s.metrics.OTPDelivery(ok)
	if !ok {
		s.logger.Warn(ctx, "otp delivery failed", "email", otp.Email, "purpose", purpose, "id", otp.ID)
		return otp, fmt.Errorf("send %s code: %w", purpose, common.ErrDeliveryFailure)
	}

	s.logger.Info(ctx, "otp issued", "email", otp.Email, "purpose", purpose, "id", otp.ID)
	return otp, nil
}

// Verify checks a code without consuming it. Password reset codes are
// flagged verified so the later reset can require that step; signup codes
// come back unchanged.
func (s *OTPService) Verify(ctx context.Context, email, code string, purpose models.Purpose) (*models.OTP, error) {
	var otp *models.OTP
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.OTPs(tx)

		var err error
		otp, err = repo.FindNewest(ctx, models.OTPLookup{
			Email:      normalizeEmail(email),
			Code:       code,
			Purpose:    purpose,
			OnlyUnused: true,
		}, true)
		if err != nil {
			return err
		}

		if otp.Expired(s.clock.Now()) {
			return common.ErrExpired
		}

		if purpose == models.PurposePasswordReset && !otp.Verified {
			if err := repo.MarkVerified(ctx, otp.ID); err != nil {
				return err
			}
			otp.Verified = true
		}
		return nil
	})
	s.metrics.OTPVerify(resultLabel(err))
	if err != nil {
		return nil, wrapErr("verify otp", err)
	}
	return otp, nil
}

// Consume marks the newest matching unused code as used. It must run on the
// caller's transaction so the privileged change that follows commits or
// rolls back together with it. With requireVerified only codes that went
// through Verify qualify.
func (s *OTPService) Consume(ctx context.Context, tx dbx.DBTX, email, code string, purpose models.Purpose, requireVerified bool) (otp *models.OTP, err error) {
	defer func() { s.metrics.OTPConsume(resultLabel(err)) }()

	repo := s.repos.OTPs(tx)
	otp, err = repo.FindNewest(ctx, models.OTPLookup{
		Email:        normalizeEmail(email),
		Code:         code,
		Purpose:      purpose,
		OnlyUnused:   true,
		OnlyVerified: requireVerified,
	}, true)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrInvalid
	}
	if err != nil {
		return nil, wrapErr("find otp", err)
	}

	now := s.clock.Now()
	if otp.Expired(now) {
		return nil, common.ErrExpired
	}

	won, err := repo.MarkUsed(ctx, otp.ID, now)
	if err != nil {
		return nil, wrapErr("mark otp used", err)
	}
	if !won {
		return nil, common.ErrInvalid
	}

	otp.Used = true
	otp.UsedAt = &now
	return otp, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, common.ErrExpired):
		return "expired"
	case errors.Is(err, common.ErrorNotFound), errors.Is(err, common.ErrInvalid):
		return "invalid"
	default:
		return "error"
	}
}

// List returns the most recent records, newest first.
func (s *OTPService) List(ctx context.Context, limit int) ([]*models.OTP, error) {
	out, err := s.repos.OTPs(s.tx.Conn()).List(ctx, otps.ListFilter{Limit: limit})
	return out, wrapErr("list otps", err)
}

// ListActive returns unused records that have not expired yet.
func (s *OTPService) ListActive(ctx context.Context, limit int) ([]*models.OTP, error) {
	now := s.clock.Now()
	out, err := s.repos.OTPs(s.tx.Conn()).List(ctx, otps.ListFilter{ActiveAt: &now, Limit: limit})
	return out, wrapErr("list active otps", err)
}

func (s *OTPService) FindByEmail(ctx context.Context, email string, limit int) ([]*models.OTP, error) {
	out, err := s.repos.OTPs(s.tx.Conn()).List(ctx, otps.ListFilter{Email: normalizeEmail(email), Limit: limit})
	return out, wrapErr("find otps", err)
}

func (s *OTPService) Stats(ctx context.Context) (*models.OTPStats, error) {
	st, err := s.repos.OTPs(s.tx.Conn()).Stats(ctx, s.clock.Now())
	return st, wrapErr("otp stats", err)
}

func (s *OTPService) Delete(ctx context.Context, id string) error {
	return wrapErr("delete otp", s.repos.OTPs(s.tx.Conn()).Delete(ctx, id))
}

// PurgeExpired deletes every record past its expiry and reports how many
// went.
func (s *OTPService) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.repos.OTPs(s.tx.Conn()).DeleteExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, wrapErr("purge expired otps", err)
	}
	s.logger.Info(ctx, "expired otps purged", "count", n)
	return n, nil
}

func (s *OTPService) PurgeAll(ctx context.Context) (int64, error) {
	n, err := s.repos.OTPs(s.tx.Conn()).DeleteAll(ctx)
	if err != nil {
		return 0, wrapErr("purge otps", err)
	}
	s.logger.Warn(ctx, "all otps purged", "count", n)
	return n, nil
}

// RunSweeper purges expired records every interval until ctx is done.
func (s *OTPService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "otp sweeper started", "interval", interval.String())
	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "otp sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error(ctx, "otp sweep failed", "error", err)
			}
		}
	}
}
