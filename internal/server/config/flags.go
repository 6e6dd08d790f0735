package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/dovol/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string          gRPC bind address (e.g., ":50051")
//	-d string          PostgreSQL DSN or "memory://"
//	-s string          JWT HMAC secret key
//	-t int             access token validity, days
//	-o duration        OTP validity (e.g., "10m")
//	-m string          metrics listen address
//	-r string          Redis address for OTP throttling
//	-l string          log format: json, text or zap
//	-otp-sweep duration  expired OTP purge interval, 0 disables
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-s", "-t", "-o", "-m", "-r", "-l", "-otp-sweep"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.IntVar(&config.AccessTokenValidityDays, "t", config.AccessTokenValidityDays, "access token validity (in days)")
	fs.DurationVar(&config.OTPValidity, "o", config.OTPValidity, "one-time code validity")
	fs.StringVar(&config.MetricsAddr, "m", config.MetricsAddr, "metrics listen address")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.LogFormat, "l", config.LogFormat, "log format (json|text|zap)")
	fs.DurationVar(&config.OTPSweepInterval, "otp-sweep", config.OTPSweepInterval, "expired OTP purge interval")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
