package admincli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server"
	"github.com/dmitrijs2005/dovol/internal/server/config"
	"github.com/dmitrijs2005/dovol/internal/server/metrics"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/notify"
	"github.com/dmitrijs2005/dovol/internal/server/services"
	"github.com/dmitrijs2005/dovol/internal/timex"
)

// otpAdmin is the housekeeping surface of services.OTPService.
type otpAdmin interface {
	List(ctx context.Context, limit int) ([]*models.OTP, error)
	ListActive(ctx context.Context, limit int) ([]*models.OTP, error)
	FindByEmail(ctx context.Context, email string, limit int) ([]*models.OTP, error)
	Stats(ctx context.Context) (*models.OTPStats, error)
	Delete(ctx context.Context, id string) error
	PurgeExpired(ctx context.Context) (int64, error)
	PurgeAll(ctx context.Context) (int64, error)
}

type adminCreator interface {
	CreateAdmin(ctx context.Context, email, fullName, password, location string) (*models.User, error)
}

type App struct {
	otps   otpAdmin
	admins adminCreator
	clock  timex.Clock
	reader *bufio.Reader
	out    io.Writer
	close  func() error
}

// NewApp opens the configured store and builds the services the console
// drives. Codes are never sent from here, so delivery only logs.
func NewApp(c *config.Config) (*App, error) {

	ctx := context.Background()

	logger, err := server.NewLogger(c)
	if err != nil {
		return nil, err
	}

	store, err := server.OpenStore(ctx, c, logger)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	clock := timex.SystemClock{}
	otp := services.NewOTPService(store.Repos, store.Tx, notify.NewLogDispatcher(logger), clock, metrics.New(), logger, c.OTPValidity)
	admin := services.NewAdminService(store.Repos, store.Tx, clock, logging.Nop{})

	return newApp(otp, admin, clock, os.Stdin, os.Stdout, store.Close), nil
}

func newApp(otps otpAdmin, admins adminCreator, clock timex.Clock, in io.Reader, out io.Writer, closeFn func() error) *App {
	if closeFn == nil {
		closeFn = func() error { return nil }
	}
	return &App{otps: otps, admins: admins, clock: clock, reader: bufio.NewReader(in), out: out, close: closeFn}
}

func (a *App) Run(ctx context.Context) {
	defer func() { _ = a.close() }()

	fmt.Fprintln(a.out, "Dovol admin console (type 'help' for commands)")
	runREPL(ctx, a, a.reader, a.out)
}
