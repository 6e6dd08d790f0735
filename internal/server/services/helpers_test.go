package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/dmitrijs2005/dovol/internal/cryptox"
	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/auth"
	"github.com/dmitrijs2005/dovol/internal/server/metrics"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/dmitrijs2005/dovol/internal/server/ratelimit"
	"github.com/dmitrijs2005/dovol/internal/server/repositories/memory"
	"github.com/dmitrijs2005/dovol/internal/timex"
	"github.com/stretchr/testify/require"
)

func init() {
	cryptox.Params = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type sentCode struct {
	Email   string
	Code    string
	Purpose models.Purpose
}

type fakeDispatcher struct {
	mu   sync.Mutex
	fail bool
	sent []sentCode
}

func (d *fakeDispatcher) SendOTP(_ context.Context, email, code string, purpose models.Purpose) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return false
	}
	d.sent = append(d.sent, sentCode{Email: email, Code: code, Purpose: purpose})
	return true
}

func (d *fakeDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

func (d *fakeDispatcher) last(t *testing.T) sentCode {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sent, "nothing was sent")
	return d.sent[len(d.sent)-1]
}

type fakeLimiter struct {
	err  error
	keys []string
}

func (l *fakeLimiter) Allow(_ context.Context, key string) error {
	l.keys = append(l.keys, key)
	return l.err
}

// testEnv wires every service over one in-memory store and a fixed clock.
type testEnv struct {
	store    *memory.Store
	clock    *timex.FixedClock
	disp     *fakeDispatcher
	limiter  ratelimit.Limiter
	metrics  *metrics.Metrics
	tokens   *auth.TokenManager
	otp      *OTPService
	gate     *Gate
	accounts *AccountService
	admin    *AdminService
	tasks    *TaskService
	apps     *ApplicationService
	skills   *SkillService
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWithLimiter(t, ratelimit.Unlimited{})
}

func newTestEnvWithLimiter(t *testing.T, limiter ratelimit.Limiter) *testEnv {
	t.Helper()

	e := &testEnv{
		store:   memory.NewStore(),
		clock:   timex.NewFixedClock(t0),
		disp:    &fakeDispatcher{},
		limiter: limiter,
		metrics: metrics.New(),
	}
	log := logging.Nop{}

	e.tokens = auth.NewTokenManager("test-secret", 7*24*time.Hour, e.clock)
	e.otp = NewOTPService(e.store, e.store, e.disp, e.clock, e.metrics, log, 10*time.Minute)
	e.gate = NewGate(e.tokens, e.store, e.store, e.metrics)
	e.accounts = NewAccountService(e.store, e.store, e.otp, e.tokens, limiter, e.clock, log)
	e.admin = NewAdminService(e.store, e.store, e.clock, log)
	e.tasks = NewTaskService(e.store, e.store, e.clock, log)
	e.apps = NewApplicationService(e.store, e.store, e.clock, log)
	e.skills = NewSkillService(e.store, e.store)
	return e
}

// signup runs the whole signup flow and returns the new user.
func (e *testEnv) signup(t *testing.T, email, password string, role models.Role) *models.User {
	t.Helper()
	ctx := context.Background()

	otp, err := e.accounts.RequestSignupOTP(ctx, email)
	require.NoError(t, err)

	u, err := e.accounts.CompleteSignup(ctx, email, otp.Code, SignupProfile{
		FullName: "Test " + string(role),
		Password: password,
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

// seedUser inserts a user directly, bypassing signup. Used for admins.
func (e *testEnv) seedUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	hash, err := cryptox.HashPassword("pw-" + email)
	require.NoError(t, err)

	u, err := e.store.Users(e.store.Conn()).Create(context.Background(), &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		FullName:     "Seeded",
		IsActive:     true,
		CreatedAt:    e.clock.Now(),
		UpdatedAt:    e.clock.Now(),
	})
	require.NoError(t, err)
	return u
}
