package client

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/dovol/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	gs "github.com/dmitrijs2005/dovol/internal/server/grpc"
)

const defaultTimeout = 12 * time.Second

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn

	mu          sync.RWMutex
	accessToken string
}

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	if md == nil {
		md = metadata.MD{}
	}
	md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	return metadata.NewOutgoingContext(ctx, md)
}

func (c *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	if token := c.Token(); token != "" {
		ctx = withAccessToken(ctx, token)
	}
	return invoker(ctx, method, req, reply, cc, opts...)
}

// NewDovolClient connects to endpointURL. Extra dial options are appended
// after the defaults, so tests can swap in a bufconn dialer.
func NewDovolClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	dial := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(gs.CodecName)),
	}
	conn, err := grpc.NewClient(endpointURL, append(dial, opts...)...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	return c, nil
}

func (c *GRPCClient) Close() error {
	return c.conn.Close()
}

// Token returns the bearer token from the last successful Login.
func (c *GRPCClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accessToken
}

func (c *GRPCClient) SetToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

func (c *GRPCClient) Logout() {
	c.SetToken("")
}

// Call invokes any method of the service by its short name.
func (c *GRPCClient) Call(ctx context.Context, method string, req, resp any) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}
	return mapError(c.conn.Invoke(ctx, gs.FullMethod(method), req, resp))
}

func (c *GRPCClient) Ping(ctx context.Context) error {
	var resp gs.PingResponse
	if err := c.Call(ctx, "Ping", &gs.Empty{}, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *GRPCClient) RequestSignupOTP(ctx context.Context, email string) (*gs.OTPSentResponse, error) {
	var resp gs.OTPSentResponse
	if err := c.Call(ctx, "RequestSignupOTP", &gs.EmailRequest{Email: strings.TrimSpace(email)}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GRPCClient) CompleteSignup(ctx context.Context, req *gs.CompleteSignupRequest) (*gs.User, error) {
	var resp gs.User
	if err := c.Call(ctx, "CompleteSignup", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login authenticates and keeps the returned token for later calls.
func (c *GRPCClient) Login(ctx context.Context, email, password string) error {
	var resp gs.LoginResponse
	if err := c.Call(ctx, "Login", &gs.LoginRequest{Email: strings.TrimSpace(email), Password: password}, &resp); err != nil {
		return err
	}
	c.SetToken(resp.AccessToken)
	return nil
}

func (c *GRPCClient) ForgotPassword(ctx context.Context, email string) error {
	return c.Call(ctx, "ForgotPassword", &gs.EmailRequest{Email: strings.TrimSpace(email)}, &gs.Status{})
}

func (c *GRPCClient) VerifyResetOTP(ctx context.Context, email, code string) error {
	return c.Call(ctx, "VerifyResetOTP", &gs.VerifyOTPRequest{Email: strings.TrimSpace(email), OTP: code}, &gs.Status{})
}

func (c *GRPCClient) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	req := &gs.ResetPasswordRequest{Email: strings.TrimSpace(email), OTP: code, NewPassword: newPassword}
	return c.Call(ctx, "ResetPassword", req, &gs.Status{})
}

func (c *GRPCClient) Profile(ctx context.Context) (*gs.User, error) {
	var resp gs.User
	if err := c.Call(ctx, "GetProfile", &gs.Empty{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GRPCClient) ListTasks(ctx context.Context, search string, skip, limit int) ([]*gs.Task, error) {
	var resp gs.TaskList
	if err := c.Call(ctx, "ListTasks", &gs.ListRequest{Search: search, Skip: skip, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

func (c *GRPCClient) CreateTask(ctx context.Context, req *gs.TaskRequest) (*gs.Task, error) {
	var resp gs.Task
	if err := c.Call(ctx, "CreateTask", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *GRPCClient) Apply(ctx context.Context, taskID string) (*gs.Application, error) {
	var resp gs.Application
	if err := c.Call(ctx, "Apply", &gs.ApplyRequest{TaskID: taskID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
