package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/dbx"
	"github.com/dmitrijs2005/dovol/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const otpColumns = `id, email, code, purpose, verified, used, created_at, expires_at, used_at`

func (r *PostgresRepository) Create(ctx context.Context, otp *models.OTP) (*models.OTP, error) {

	query :=
		`INSERT INTO otp_codes (email, code, purpose, verified, used, created_at, expires_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		otp.Email, otp.Code, string(otp.Purpose), otp.Verified, otp.Used, otp.CreatedAt, otp.ExpiresAt).Scan(&otp.ID)

	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return otp, nil
}

func (r *PostgresRepository) FindNewest(ctx context.Context, lookup models.OTPLookup, lock bool) (*models.OTP, error) {
	query := `SELECT ` + otpColumns + ` FROM otp_codes
		 WHERE email = $1 AND code = $2 AND purpose = $3`
	if lookup.OnlyUnused {
		query += ` AND used = false`
	}
	if lookup.OnlyVerified {
		query += ` AND verified = true`
	}
	query += ` ORDER BY created_at DESC LIMIT 1`
	if lock {
		query += ` FOR UPDATE`
	}

	return scanOTP(r.db.QueryRowContext(ctx, query, lookup.Email, lookup.Code, string(lookup.Purpose)))
}

func (r *PostgresRepository) MarkVerified(ctx context.Context, id string) error {
	query :=
		`UPDATE otp_codes SET verified = true
		 WHERE id = $1 AND used = false
		 `

	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string, at time.Time) (bool, error) {
	query :=
		`UPDATE otp_codes SET used = true, used_at = $2
		 WHERE id = $1 AND used = false
		 `

	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n == 1, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otp_codes`)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*models.OTP, error) {
	var (
		where []string
		args  []any
	)
	if filter.Email != "" {
		args = append(args, filter.Email)
		where = append(where, fmt.Sprintf("email = $%d", len(args)))
	}
	if filter.ActiveAt != nil {
		args = append(args, *filter.ActiveAt)
		where = append(where, fmt.Sprintf("used = false AND expires_at >= $%d", len(args)))
	}

	query := `SELECT ` + otpColumns + ` FROM otp_codes`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.OTP
	for rows.Next() {
		o, err := scanOTP(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Stats(ctx context.Context, now time.Time) (*models.OTPStats, error) {
	query :=
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE used),
		        COUNT(*) FILTER (WHERE verified),
		        COUNT(*) FILTER (WHERE expires_at < $1),
		        COUNT(*) FILTER (WHERE NOT used AND expires_at >= $1)
		 FROM otp_codes
		 `

	s := &models.OTPStats{}
	err := r.db.QueryRowContext(ctx, query, now).Scan(&s.Total, &s.Used, &s.Verified, &s.Expired, &s.Active)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	s.Unused = s.Total - s.Used
	return s, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOTP(row rowScanner) (*models.OTP, error) {
	o := &models.OTP{}
	var (
		purpose string
		usedAt  sql.NullTime
	)
	err := row.Scan(&o.ID, &o.Email, &o.Code, &purpose, &o.Verified, &o.Used, &o.CreatedAt, &o.ExpiresAt, &usedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	o.Purpose = models.Purpose(purpose)
	if usedAt.Valid {
		t := usedAt.Time
		o.UsedAt = &t
	}
	return o, nil
}
