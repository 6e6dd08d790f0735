package grpc

import (
	"context"
	"net"
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
	"github.com/dmitrijs2005/dovol/internal/server/services"
	"github.com/dmitrijs2005/dovol/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func init() {
	cryptox.Params = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

type capturingDispatcher struct {
	mu    sync.Mutex
	fail  bool
	codes map[string]string
}

func (d *capturingDispatcher) SendOTP(_ context.Context, email, code string, _ models.Purpose) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return false
	}
	d.codes[email] = code
	return true
}

func (d *capturingDispatcher) code(email string) string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.codes[email]
}

type harness struct {
	conn   *grpc.ClientConn
	store  *memory.Store
	clock  *timex.FixedClock
	disp   *capturingDispatcher
	tokens *auth.TokenManager
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		store: memory.NewStore(),
		clock: timex.NewFixedClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		disp:  &capturingDispatcher{codes: map[string]string{}},
	}
	log := logging.Nop{}
	m := metrics.New()

	h.tokens = auth.NewTokenManager("e2e-secret", 7*24*time.Hour, h.clock)
	otp := services.NewOTPService(h.store, h.store, h.disp, h.clock, m, log, 10*time.Minute)
	svc := Services{
		Gate:         services.NewGate(h.tokens, h.store, h.store, m),
		Accounts:     services.NewAccountService(h.store, h.store, otp, h.tokens, ratelimit.Unlimited{}, h.clock, log),
		Admin:        services.NewAdminService(h.store, h.store, h.clock, log),
		Tasks:        services.NewTaskService(h.store, h.store, h.clock, log),
		Applications: services.NewApplicationService(h.store, h.store, h.clock, log),
		Skills:       services.NewSkillService(h.store, h.store),
	}

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer("bufnet", log, svc).NewServer()
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	h.conn = conn
	return h
}

func (h *harness) call(token, method string, req, resp any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if token != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
	}
	return h.conn.Invoke(ctx, FullMethod(method), req, resp)
}

func (h *harness) signup(t *testing.T, email, password, role string) string {
	t.Helper()
	require.NoError(t, h.call("", "RequestSignupOTP", &EmailRequest{Email: email}, &OTPSentResponse{}))

	var u User
	require.NoError(t, h.call("", "CompleteSignup", &CompleteSignupRequest{
		Email: email, OTP: h.disp.code(email), FullName: "Someone", Password: password, Role: role,
	}, &u))

	var login LoginResponse
	require.NoError(t, h.call("", "Login", &LoginRequest{Email: email, Password: password}, &login))
	return login.AccessToken
}

func (h *harness) seedAdmin(t *testing.T, email string) (*models.User, string) {
	t.Helper()
	hash, err := cryptox.HashPassword("admin-password")
	require.NoError(t, err)
	u, err := h.store.Users(h.store.Conn()).Create(context.Background(), &models.User{
		Email: email, PasswordHash: hash, Role: models.RoleAdmin, FullName: "Admin", IsActive: true,
	})
	require.NoError(t, err)
	tok, err := h.tokens.Issue(u.ID)
	require.NoError(t, err)
	return u, tok
}

func TestE2E_SignupLoginProfile(t *testing.T) {
	h := newHarness(t)

	var ping PingResponse
	require.NoError(t, h.call("", "Ping", &Empty{}, &ping))
	assert.Equal(t, "OK", ping.Status)

	var sent OTPSentResponse
	require.NoError(t, h.call("", "RequestSignupOTP", &EmailRequest{Email: "vol@example.com"}, &sent))
	assert.True(t, sent.Success)
	assert.Equal(t, 10, sent.ExpiresInMinutes)

	err := h.call("", "CompleteSignup", &CompleteSignupRequest{
		Email: "vol@example.com", OTP: h.disp.code("vol@example.com"), FullName: "V", Password: "password1", Role: "admin",
	}, &User{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "admin is not self-selectable")

	var u User
	require.NoError(t, h.call("", "CompleteSignup", &CompleteSignupRequest{
		Email: "vol@example.com", OTP: h.disp.code("vol@example.com"), FullName: "V", Password: "password1", Role: "volunteer",
	}, &u))
	assert.Equal(t, "volunteer", u.Role)

	err = h.call("", "RequestSignupOTP", &EmailRequest{Email: "vol@example.com"}, &OTPSentResponse{})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	err = h.call("", "Login", &LoginRequest{Email: "vol@example.com", Password: "wrong-pass"}, &LoginResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	var login LoginResponse
	require.NoError(t, h.call("", "Login", &LoginRequest{Email: "vol@example.com", Password: "password1"}, &login))
	assert.Equal(t, "bearer", login.TokenType)

	var me User
	require.NoError(t, h.call(login.AccessToken, "GetProfile", &Empty{}, &me))
	assert.Equal(t, u.ID, me.ID)

	name := "Renamed"
	require.NoError(t, h.call(login.AccessToken, "UpdateProfile", &UpdateProfileRequest{FullName: &name}, &me))
	assert.Equal(t, "Renamed", me.FullName)
	assert.Equal(t, "volunteer", me.Role)
}

func TestE2E_AuthGate(t *testing.T) {
	h := newHarness(t)
	volTok := h.signup(t, "vol@example.com", "password1", "volunteer")

	err := h.call("", "GetProfile", &Empty{}, &User{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "missing token", status.Convert(err).Message())

	err = h.call("garbage", "GetProfile", &Empty{}, &User{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	err = h.call(volTok, "CreateTask", &TaskRequest{Title: "T", Description: "D"}, &Task{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	err = h.call(volTok, "AdminDashboardStats", &Empty{}, &DashboardStats{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	// the bare access_token header is accepted too
	ctx := metadata.AppendToOutgoingContext(context.Background(), "access_token", volTok)
	require.NoError(t, h.conn.Invoke(ctx, FullMethod("GetProfile"), &Empty{}, &User{}))

	h.clock.Advance(8 * 24 * time.Hour)
	err = h.call(volTok, "GetProfile", &Empty{}, &User{})
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
	assert.Equal(t, "token expired", status.Convert(err).Message())
}

func TestE2E_PasswordReset(t *testing.T) {
	h := newHarness(t)
	h.signup(t, "vol@example.com", "password1", "volunteer")

	var st Status
	require.NoError(t, h.call("", "ForgotPassword", &EmailRequest{Email: "ghost@example.com"}, &st))
	unknown := st
	require.NoError(t, h.call("", "ForgotPassword", &EmailRequest{Email: "vol@example.com"}, &st))
	assert.Equal(t, unknown, st, "same response for known and unknown addresses")
	assert.Empty(t, h.disp.code("ghost@example.com"))

	code := h.disp.code("vol@example.com")
	err := h.call("", "ResetPassword", &ResetPasswordRequest{Email: "vol@example.com", OTP: code, NewPassword: "password2"}, &Status{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "unverified")

	require.NoError(t, h.call("", "VerifyResetOTP", &VerifyOTPRequest{Email: "vol@example.com", OTP: code}, &Status{}))
	require.NoError(t, h.call("", "ResetPassword", &ResetPasswordRequest{Email: "vol@example.com", OTP: code, NewPassword: "password2"}, &Status{}))

	err = h.call("", "Login", &LoginRequest{Email: "vol@example.com", Password: "password1"}, &LoginResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	require.NoError(t, h.call("", "Login", &LoginRequest{Email: "vol@example.com", Password: "password2"}, &LoginResponse{}))

	// expired code
	require.NoError(t, h.call("", "ForgotPassword", &EmailRequest{Email: "vol@example.com"}, &st))
	h.clock.Advance(11 * time.Minute)
	err = h.call("", "VerifyResetOTP", &VerifyOTPRequest{Email: "vol@example.com", OTP: h.disp.code("vol@example.com")}, &Status{})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestE2E_ValidationAndDelivery(t *testing.T) {
	h := newHarness(t)

	err := h.call("", "RequestSignupOTP", &EmailRequest{Email: "not-an-email"}, &OTPSentResponse{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = h.call("", "VerifyResetOTP", &VerifyOTPRequest{Email: "a@example.com", OTP: "12ab56"}, &Status{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	h.disp.fail = true
	err = h.call("", "RequestSignupOTP", &EmailRequest{Email: "a@example.com"}, &OTPSentResponse{})
	assert.Equal(t, codes.Unavailable, status.Code(err))
}

func TestE2E_TasksApplicationsSkills(t *testing.T) {
	h := newHarness(t)
	ngoTok := h.signup(t, "ngo@example.com", "password1", "ngo")
	volTok := h.signup(t, "vol@example.com", "password1", "volunteer")

	var task Task
	require.NoError(t, h.call(ngoTok, "CreateTask", &TaskRequest{Title: "Beach", Description: "Cleanup", SkillsRequired: []string{"lifting"}}, &task))
	assert.Equal(t, []string{"lifting"}, task.SkillsRequired)

	var list TaskList
	require.NoError(t, h.call(volTok, "ListTasks", &ListRequest{}, &list))
	require.Len(t, list.Tasks, 1)

	var app Application
	require.NoError(t, h.call(volTok, "Apply", &ApplyRequest{TaskID: task.ID}, &app))
	assert.Equal(t, "pending", app.Status)
	err := h.call(volTok, "Apply", &ApplyRequest{TaskID: task.ID}, &Application{})
	assert.Equal(t, codes.AlreadyExists, status.Code(err))

	require.NoError(t, h.call(ngoTok, "UpdateApplicationStatus", &ApplicationStatusRequest{ID: app.ID, Status: "accepted"}, &app))
	assert.Equal(t, "accepted", app.Status)

	var apps ApplicationList
	require.NoError(t, h.call(volTok, "MyApplications", &Empty{}, &apps))
	require.Len(t, apps.Applications, 1)
	assert.Equal(t, "accepted", apps.Applications[0].Status)

	var skills SkillList
	require.NoError(t, h.call(volTok, "AddSkills", &SkillsRequest{Skills: []string{"cooking", "first aid"}}, &skills))
	assert.Len(t, skills.Skills, 2)
	err = h.call(ngoTok, "AddSkills", &SkillsRequest{Skills: []string{"x"}}, &SkillList{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	require.NoError(t, h.call(ngoTok, "DeleteTask", &IDRequest{ID: task.ID}, &Empty{}))
	require.NoError(t, h.call(volTok, "ListTasks", &ListRequest{}, &list))
	assert.Empty(t, list.Tasks)
}

func TestE2E_AdminSelfGuard(t *testing.T) {
	h := newHarness(t)
	me, adminTok := h.seedAdmin(t, "admin@example.com")
	h.signup(t, "vol@example.com", "password1", "volunteer")

	err := h.call(adminTok, "AdminUpdateUserStatus", &UserStatusRequest{ID: me.ID, IsActive: true}, &User{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	err = h.call(adminTok, "AdminUpdateUserRole", &UserRoleRequest{ID: me.ID, Role: "admin"}, &User{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	err = h.call(adminTok, "AdminDeleteUser", &IDRequest{ID: me.ID}, &Empty{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	var users UserList
	require.NoError(t, h.call(adminTok, "AdminListUsers", &AdminListUsersRequest{Role: "volunteer"}, &users))
	require.Len(t, users.Users, 1)
	vol := users.Users[0]

	var u User
	require.NoError(t, h.call(adminTok, "AdminUpdateUserStatus", &UserStatusRequest{ID: vol.ID, IsActive: false}, &u))
	assert.False(t, u.IsActive)

	err = h.call("", "Login", &LoginRequest{Email: "vol@example.com", Password: "password1"}, &LoginResponse{})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	var stats DashboardStats
	require.NoError(t, h.call(adminTok, "AdminDashboardStats", &Empty{}, &stats))
	assert.Equal(t, 2, stats.TotalUsers)
	assert.Equal(t, 1, stats.ActiveUsers)

	var health SystemHealth
	require.NoError(t, h.call(adminTok, "AdminSystemHealth", &Empty{}, &health))
	assert.True(t, health.DatabaseConnected)

	err = h.call(adminTok, "AdminListUsers", &AdminListUsersRequest{Limit: 101}, &UserList{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestE2E_MalformedIDs(t *testing.T) {
	h := newHarness(t)
	_, adminTok := h.seedAdmin(t, "admin@example.com")
	volTok := h.signup(t, "vol@example.com", "password1", "volunteer")

	calls := []struct {
		token  string
		method string
		req    any
	}{
		{adminTok, "AdminGetUser", &IDRequest{ID: "abc"}},
		{adminTok, "AdminUpdateUserRole", &UserRoleRequest{ID: "abc", Role: "ngo"}},
		{adminTok, "AdminListApplications", &AdminListApplicationsRequest{TaskID: "abc"}},
		{adminTok, "AdminListTasks", &AdminListTasksRequest{PostedBy: "1; drop table users"}},
		{volTok, "Apply", &ApplyRequest{TaskID: "abc"}},
		{volTok, "GetTask", &IDRequest{ID: "00000000-0000"}},
	}
	for _, c := range calls {
		err := h.call(c.token, c.method, c.req, &Empty{})
		assert.Equal(t, codes.InvalidArgument, status.Code(err), c.method)
	}

	err := h.call(adminTok, "AdminGetUser", &IDRequest{ID: "4b0c6a52-5f5e-4c1e-9d55-2f1f8b0e9a11"}, &User{})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestE2E_RequestIDHeader(t *testing.T) {
	h := newHarness(t)

	var header metadata.MD
	err := h.conn.Invoke(context.Background(), FullMethod("Ping"), &Empty{}, &PingResponse{}, grpc.Header(&header))
	require.NoError(t, err)

	ids := header.Get("x-request-id")
	require.Len(t, ids, 1)
	assert.Len(t, ids[0], 16)
}
