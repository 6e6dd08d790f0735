package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envPrefix namespaces every variable read by parseEnv, so the key
// "grpc_addr" is read from DOVOL_GRPC_ADDR.
const envPrefix = "DOVOL"

// envKeys are the mapstructure keys of Config that the environment may set.
var envKeys = []string{
	"grpc_addr",
	"database_dsn",
	"secret_key",
	"access_token_days",
	"otp_validity",
	"smtp_host",
	"smtp_port",
	"smtp_user",
	"smtp_password",
	"smtp_from",
	"smtp_ssl",
	"mail_timeout",
	"redis_addr",
	"throttle_window",
	"throttle_max",
	"metrics_addr",
	"log_format",
	"log_level",
	"otp_sweep_interval",
}

// parseEnv overlays values from DOVOL_* environment variables. A .env file in
// the working directory is loaded first if present; real environment
// variables win over it. A malformed .env file or value panics, like
// malformed JSON does.
func parseEnv(config *Config) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic(fmt.Errorf("load .env: %w", err))
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			panic(err)
		}
	}

	// Only variables that are set reach the decoder, so the rest of config
	// keeps its current values.
	if err := v.Unmarshal(config); err != nil {
		panic(fmt.Errorf("environment: %w", err))
	}
}
