package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dovol/internal/logging"
	"github.com/dmitrijs2005/dovol/internal/server/config"
	"github.com/dmitrijs2005/dovol/internal/server/models"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
	"github.com/wneessen/go-mail"
)

// sender is the part of *mail.Client used here.
type sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPDispatcher mails codes through an SMTP relay. Each delivery is bounded
// by timeout, retried with exponential backoff inside that bound, and guarded
// by a circuit breaker so a dead relay fails fast.
type SMTPDispatcher struct {
	from        string
	client      sender
	cb          *gobreaker.CircuitBreaker
	timeout     time.Duration
	otpValidity time.Duration
	retries     uint64
	backoffBase time.Duration
	log         logging.Logger
}

// NewSMTPDispatcher builds a dispatcher from the SMTP settings in cfg.
func NewSMTPDispatcher(cfg *config.Config, log logging.Logger) (*SMTPDispatcher, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.SMTPPort),
		mail.WithTimeout(cfg.MailTimeout),
	}
	if cfg.SMTPSSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	}
	if cfg.SMTPUser != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.SMTPUser),
			mail.WithPassword(cfg.SMTPPassword),
		)
	}

	client, err := mail.NewClient(cfg.SMTPHost, opts...)
	if err != nil {
		return nil, fmt.Errorf("smtp client: %w", err)
	}
	return newSMTPDispatcher(cfg.SMTPFrom, client, cfg.MailTimeout, cfg.OTPValidity, log), nil
}

func newSMTPDispatcher(from string, client sender, timeout, otpValidity time.Duration, log logging.Logger) *SMTPDispatcher {
	d := &SMTPDispatcher{
		from:        from,
		client:      client,
		timeout:     timeout,
		otpValidity: otpValidity,
		retries:     2,
		backoffBase: 250 * time.Millisecond,
		log:         log,
	}
	d.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn(context.Background(), "circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return d
}

func (d *SMTPDispatcher) SendOTP(ctx context.Context, email, code string, purpose models.Purpose) bool {
	msg, err := d.buildMessage(email, code, purpose)
	if err != nil {
		d.log.Error(ctx, "build otp email", "email", email, "error", err)
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	_, err = d.cb.Execute(func() (interface{}, error) {
		backoff := retry.WithMaxRetries(d.retries, retry.NewExponential(d.backoffBase))
		return nil, retry.Do(ctx, backoff, func(ctx context.Context) error {
			if err := d.client.DialAndSendWithContext(ctx, msg); err != nil {
				return retry.RetryableError(err)
			}
			return nil
		})
	})
	if err != nil {
		d.log.Warn(ctx, "otp email delivery failed", "email", email, "purpose", string(purpose), "error", err)
		return false
	}

	d.log.Info(ctx, "otp email sent", "email", email, "purpose", string(purpose))
	return true
}

func (d *SMTPDispatcher) buildMessage(email, code string, purpose models.Purpose) (*mail.Msg, error) {
	subject, text, html, err := render(purpose, messageData{Code: code, Validity: d.otpValidity})
	if err != nil {
		return nil, err
	}

	m := mail.NewMsg()
	if err := m.From(d.from); err != nil {
		return nil, err
	}
	if err := m.To(email); err != nil {
		return nil, err
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextPlain, text)
	m.AddAlternativeString(mail.TypeTextHTML, html)
	return m, nil
}
