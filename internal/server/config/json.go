package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dovol/internal/flagx"
	"github.com/dmitrijs2005/dovol/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "10m" and integer nanoseconds are accepted.
// Pointer fields distinguish "absent" from an explicit zero/false.
type JsonConfig struct {
	EndpointAddrGRPC        string         `json:"endpoint_addr_grpc"`
	DatabaseDSN             string         `json:"database_dsn"`
	SecretKey               string         `json:"secret_key"`
	AccessTokenValidityDays int            `json:"access_token_validity_days"`
	OTPValidity             timex.Duration `json:"otp_validity"`
	SMTPHost                string         `json:"smtp_host"`
	SMTPPort                int            `json:"smtp_port"`
	SMTPUser                string         `json:"smtp_user"`
	SMTPPassword            string         `json:"smtp_password"`
	SMTPFrom                string         `json:"smtp_from"`
	SMTPSSL                 *bool          `json:"smtp_ssl"`
	MailTimeout             timex.Duration `json:"mail_timeout"`
	RedisAddr               string         `json:"redis_addr"`
	ThrottleWindow          timex.Duration `json:"throttle_window"`
	ThrottleMax             *int           `json:"throttle_max"`
	MetricsAddr             string         `json:"metrics_addr"`
	LogFormat               string         `json:"log_format"`
	LogLevel                string         `json:"log_level"`
	OTPSweepInterval        timex.Duration `json:"otp_sweep_interval"`
}

// parseJson loads configuration values from the file named by -c/-config
// into config. Only keys present in the file override existing values.
// If the file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	if c.AccessTokenValidityDays != 0 {
		config.AccessTokenValidityDays = c.AccessTokenValidityDays
	}
	if c.OTPValidity.Duration != 0 {
		config.OTPValidity = c.OTPValidity.Duration
	}
	setString(&config.SMTPHost, c.SMTPHost)
	if c.SMTPPort != 0 {
		config.SMTPPort = c.SMTPPort
	}
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.SMTPFrom, c.SMTPFrom)
	if c.SMTPSSL != nil {
		config.SMTPSSL = *c.SMTPSSL
	}
	if c.MailTimeout.Duration != 0 {
		config.MailTimeout = c.MailTimeout.Duration
	}
	setString(&config.RedisAddr, c.RedisAddr)
	if c.ThrottleWindow.Duration != 0 {
		config.ThrottleWindow = c.ThrottleWindow.Duration
	}
	if c.ThrottleMax != nil {
		config.ThrottleMax = *c.ThrottleMax
	}
	setString(&config.MetricsAddr, c.MetricsAddr)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
	if c.OTPSweepInterval.Duration != 0 {
		config.OTPSweepInterval = c.OTPSweepInterval.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
