package grpc

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/dovol/internal/logging"
)

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:0", logging.Nop{}, Services{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	select {
	case err := <-done:
		t.Fatalf("server exited too early: %v", err)
	case <-time.After(150 * time.Millisecond):
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error on graceful stop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop within timeout after context cancel")
	}
}

func TestRun_ReturnsErrorOnBadAddress(t *testing.T) {
	t.Parallel()

	srv := NewGRPCServer("127.0.0.1:99999", logging.Nop{}, Services{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := srv.Run(ctx); err == nil {
		t.Fatal("expected listen error for invalid port")
	}
}

func TestServiceDesc_EveryMethodHasPolicy(t *testing.T) {
	t.Parallel()

	desc, policies := serviceDesc()
	if desc.ServiceName != ServiceName {
		t.Fatalf("service name = %q", desc.ServiceName)
	}
	if len(desc.Methods) != len(policies) {
		t.Fatalf("%d methods but %d policies (duplicate method name?)", len(desc.Methods), len(policies))
	}
	for _, m := range desc.Methods {
		if _, ok := policies[FullMethod(m.MethodName)]; !ok {
			t.Errorf("method %s has no policy", m.MethodName)
		}
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	t.Parallel()

	c := Codec{}
	if c.Name() != "json" {
		t.Fatalf("codec name = %q", c.Name())
	}

	b, err := c.Marshal(&LoginRequest{Email: "a@example.com", Password: "pw"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got LoginRequest
	if err := c.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Email != "a@example.com" || got.Password != "pw" {
		t.Fatalf("round trip mismatch: %+v", got)
	}
}
