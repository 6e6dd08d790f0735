package admincli

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/dmitrijs2005/dovol/internal/cryptox"
	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/metrics"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/notify"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/memory"
	"github.com/dmitrijs2005/dovol/internal/server/services"
	"github.com/dmitrijs2005/dovol/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	cryptox.Params = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

type console struct {
	app   *App
	out   *bytes.Buffer
	otp   *services.OTPService
	admin *services.AdminService
	store *memory.Store
	clock *timex.FixedClock
}

func newConsole(t *testing.T, input string) *console {
	t.Helper()
	store := memory.NewStore()
	clock := timex.NewFixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	log := logging.Nop{}

	c := &console{
		out:   &bytes.Buffer{},
		store: store,
		clock: clock,
		otp:   services.NewOTPService(store, store, notify.NewLogDispatcher(log), clock, metrics.New(), log, 10*time.Minute),
		admin: services.NewAdminService(store, store, clock, log),
	}
	c.app = newApp(c.otp, c.admin, clock, strings.NewReader(input), c.out, nil)
	return c
}

func (c *console) issue(t *testing.T, email string, purpose models.Purpose) *models.OTP {
	t.Helper()
	o, err := c.otp.Issue(context.Background(), email, purpose)
	require.NoError(t, err)
	return o
}

func TestCreateAdmin(t *testing.T) {
	stubPasswords(t, "admin-password", "admin-password")
	c := newConsole(t, "Root\nroot@example.com\nHQ\n")

	require.NoError(t, c.app.CreateAdmin(context.Background()))
	assert.Contains(t, c.out.String(), "Admin root@example.com created")

	u, err := c.store.Users(c.store.Conn()).GetByEmail(context.Background(), "root@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.Equal(t, "HQ", u.Location)
}

func TestCreateAdmin_PasswordMismatch(t *testing.T) {
	stubPasswords(t, "admin-password", "different")
	c := newConsole(t, "Root\nroot@example.com\n\n")

	err := c.app.CreateAdmin(context.Background())
	require.EqualError(t, err, "passwords do not match")

	_, err = c.store.Users(c.store.Conn()).GetByEmail(context.Background(), "root@example.com")
	assert.Error(t, err)
}

func TestListingCommands(t *testing.T) {
	c := newConsole(t, "")
	ctx := context.Background()

	old := c.issue(t, "old@example.com", models.PurposeSignup)
	c.clock.Advance(11 * time.Minute)
	fresh := c.issue(t, "new@example.com", models.PurposePasswordReset)

	require.NoError(t, c.app.ListOTPs(ctx, nil))
	out := c.out.String()
	assert.Contains(t, out, old.ID)
	assert.Contains(t, out, fresh.ID)
	assert.Contains(t, out, "Total: 2")

	c.out.Reset()
	require.NoError(t, c.app.ListActive(ctx, []string{"10"}))
	assert.NotContains(t, c.out.String(), old.ID)
	assert.Contains(t, c.out.String(), fresh.Code)

	c.out.Reset()
	require.NoError(t, c.app.Find(ctx, []string{"OLD@example.com"}))
	assert.Contains(t, c.out.String(), old.ID)
	assert.NotContains(t, c.out.String(), fresh.ID)

	c.out.Reset()
	require.NoError(t, c.app.Find(ctx, []string{"ghost@example.com"}))
	assert.Contains(t, c.out.String(), "No codes found for ghost@example.com")

	assert.Error(t, c.app.Find(ctx, nil))
	assert.Error(t, c.app.ListOTPs(ctx, []string{"zero"}))
	assert.Error(t, c.app.ListOTPs(ctx, []string{"-1"}))

	c.out.Reset()
	require.NoError(t, c.app.Stats(ctx))
	stats := c.out.String()
	assert.Regexp(t, `Total\s+2`, stats)
	assert.Regexp(t, `Expired\s+1`, stats)
	assert.Regexp(t, `Active\s+1`, stats)
}

func TestDeleteAndPurge(t *testing.T) {
	c := newConsole(t, "n\ny\nno\nyes\n")
	ctx := context.Background()

	a := c.issue(t, "a@example.com", models.PurposeSignup)
	c.issue(t, "b@example.com", models.PurposeSignup)
	c.clock.Advance(11 * time.Minute)
	c.issue(t, "c@example.com", models.PurposeSignup)
	c.issue(t, "d@example.com", models.PurposeSignup)

	require.NoError(t, c.app.Delete(ctx, []string{a.ID}))
	assert.Error(t, c.app.Delete(ctx, nil))

	// "n" declines
	require.NoError(t, c.app.PurgeExpired(ctx))
	assert.Contains(t, c.out.String(), "Cancelled")

	c.out.Reset()
	require.NoError(t, c.app.PurgeExpired(ctx))
	assert.Contains(t, c.out.String(), "Deleted 1 expired code(s)")

	// purge-all needs the full word
	c.out.Reset()
	require.NoError(t, c.app.PurgeAll(ctx))
	assert.Contains(t, c.out.String(), "Cancelled")

	c.out.Reset()
	require.NoError(t, c.app.PurgeAll(ctx))
	assert.Contains(t, c.out.String(), "Deleted 2 code(s)")

	st, err := c.otp.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total)
}
