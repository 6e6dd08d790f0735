package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/dovol/internal/common"
	"github.com/dmitrijs2005/dovol/internal/dbx"
)

// domainErrors are the sentinels that already carry a caller-facing meaning
// and must not be reclassified as storage failures.
var domainErrors = []error{
	common.ErrorNotFound,
	common.ErrorConflict,
	common.ErrorForbidden,
	common.ErrorUnauthenticated,
	common.ErrUserNotFound,
	common.ErrInvalid,
	common.ErrInvalidCredentials,
	common.ErrorValidation,
	common.ErrExpired,
	common.ErrInvalidToken,
	common.ErrTokenExpired,
	common.ErrDeliveryFailure,
	common.ErrStorageFailure,
	common.ErrRateLimited,
}

func isDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// wrapErr prefixes err with op. A key the database cannot even parse names
// no row, so it is reported as common.ErrorNotFound. Anything else that is
// not a domain sentinel is reported as common.ErrStorageFailure.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if dbx.IsInvalidText(err) {
		return fmt.Errorf("%s: %w: %w", op, common.ErrorNotFound, err)
	}
	return fmt.Errorf("%s: %w: %w", op, common.ErrStorageFailure, err)
}

func validationErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
