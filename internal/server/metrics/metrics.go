// Package metrics defines the Prometheus counters exported by the server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dovol"

// Metrics groups the server's counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry    *prometheus.Registry
	otpIssued   *prometheus.CounterVec
	otpVerify   *prometheus.CounterVec
	otpConsume  *prometheus.CounterVec
	otpDelivery *prometheus.CounterVec
	auth        *prometheus.CounterVec
}

// New registers every counter on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		otpIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "otp_issued_total", Help: "One-time codes issued.",
		}, []string{"purpose"}),
		otpVerify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "otp_verify_total", Help: "One-time code verifications by result.",
		}, []string{"result"}),
		otpConsume: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "otp_consume_total", Help: "One-time code consumptions by result.",
		}, []string{"result"}),
		otpDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "otp_delivery_total", Help: "One-time code deliveries by result.",
		}, []string{"result"}),
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "auth_total", Help: "Bearer token authentications by result.",
		}, []string{"result"}),
	}
	m.registry.MustRegister(m.otpIssued, m.otpVerify, m.otpConsume, m.otpDelivery, m.auth)
	return m
}

func (m *Metrics) OTPIssued(purpose string) {
	if m != nil {
		m.otpIssued.WithLabelValues(purpose).Inc()
	}
}

func (m *Metrics) OTPVerify(result string) {
	if m != nil {
		m.otpVerify.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) OTPConsume(result string) {
	if m != nil {
		m.otpConsume.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) OTPDelivery(ok bool) {
	if m != nil {
		m.otpDelivery.WithLabelValues(okLabel(ok)).Inc()
	}
}

func (m *Metrics) Auth(result string) {
	if m != nil {
		m.auth.WithLabelValues(result).Inc()
	}
}

func okLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
