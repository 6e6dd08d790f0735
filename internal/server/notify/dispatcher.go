// Package notify delivers one-time codes to users.
package notify

import (
	"context"

	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/models"
)

// Dispatcher delivers a code for purpose to email. It reports success as a
// bool and never returns an error; failures are logged by the implementation.
type Dispatcher interface {
	SendOTP(ctx context.Context, email, code string, purpose models.Purpose) bool
}

// LogDispatcher writes codes to the log instead of mailing them. It is used
// when no SMTP host is configured.
type LogDispatcher struct {
	log logging.Logger
}

func NewLogDispatcher(log logging.Logger) *LogDispatcher {
	return &LogDispatcher{log: log}
}

func (d *LogDispatcher) SendOTP(ctx context.Context, email, code string, purpose models.Purpose) bool {
	d.log.Info(ctx, "smtp not configured, logging one-time code", "email", email, "purpose", string(purpose), "code", code)
	return true
}
