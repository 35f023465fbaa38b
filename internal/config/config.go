// Package config loads and validates Twilio client configuration.
//
// Credentials live in a TOML file with per-environment tables:
//
//	[project]
//	name = "sms-extract"
//	version = "0.1.0"
//
//	[twilio.LIVE]
//	account_sid = "AC..."
//	auth_token = "..."
//
//	[twilio.digits]
//	to_number = "+13604442000"
//	from_number = "+13035551000"
//
// Individual values can be overridden with TWILIO_* environment variables.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/smslab/sms-extract/internal/phone"
)

const (
	// EnvLive selects the live Twilio account credentials.
	EnvLive = "LIVE"
	// EnvTest selects the test account credentials.
	EnvTest = "TEST"
)

// Config holds the validated application configuration. Values are immutable
// after Load; the orchestrator receives the struct by pointer, there is no
// package-level state.
type Config struct {
	Name        string
	Version     string
	Environment string
	AccountSID  string
	AuthToken   string
	ToNumber    string
	FromNumber  string
	LogLevel    string
	DataDir     string
}

// Identity returns the banner string used in demo payloads.
func (c *Config) Identity() string {
	return fmt.Sprintf("%s (v%s) %s", c.Name, c.Version, c.Environment)
}

// Load reads the TOML file at path (or the default search locations when path
// is empty), applies TWILIO_* environment overrides, and validates every field.
// All failing fields are reported together in a single *ValidationError.
func Load(path, environment string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("twilio_sms")
		v.SetConfigType("toml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("TWILIO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("project.name", "sms-extract")
	v.SetDefault("project.version", "0.0.0")
	v.SetDefault("log_level", "info")
	v.SetDefault("data_dir", "data")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read %s: %w", v.ConfigFileUsed(), err)
		}
		// No file found: environment variables may still carry everything.
	}

	env := strings.ToUpper(strings.TrimSpace(environment))
	cfg := &Config{
		Name:        v.GetString("project.name"),
		Version:     v.GetString("project.version"),
		Environment: env,
		AccountSID:  v.GetString("twilio." + env + ".account_sid"),
		AuthToken:   v.GetString("twilio." + env + ".auth_token"),
		ToNumber:    v.GetString("twilio.digits.to_number"),
		FromNumber:  v.GetString("twilio.digits.from_number"),
		LogLevel:    v.GetString("log_level"),
		DataDir:     v.GetString("data_dir"),
	}

	// TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_TO_PHONE_NUMBER, and
	// TWILIO_FROM_PHONE_NUMBER trump the file when set.
	if s := v.GetString("account_sid"); s != "" {
		cfg.AccountSID = s
	}
	if s := v.GetString("auth_token"); s != "" {
		cfg.AuthToken = s
	}
	if s := v.GetString("to_phone_number"); s != "" {
		cfg.ToNumber = s
	}
	if s := v.GetString("from_phone_number"); s != "" {
		cfg.FromNumber = s
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks every field, canonicalizes both phone numbers, and collects
// all failures into one ValidationError.
func (c *Config) validate() error {
	var verr ValidationError

	if c.Environment != EnvLive && c.Environment != EnvTest {
		verr.add("environment", fmt.Sprintf("%q not in [%s %s]", c.Environment, EnvLive, EnvTest))
	}
	if reason := checkAccountSID(c.AccountSID); reason != "" {
		verr.add("account_sid", reason)
	}
	if reason := checkAuthToken(c.AuthToken); reason != "" {
		verr.add("auth_token", reason)
	}

	if canonical, err := phone.Normalize(c.ToNumber); err != nil {
		verr.add("to_number", fmt.Sprintf("invalid number format: %q", c.ToNumber))
	} else {
		c.ToNumber = canonical
	}
	if canonical, err := phone.Normalize(c.FromNumber); err != nil {
		verr.add("from_number", fmt.Sprintf("invalid number format: %q", c.FromNumber))
	} else {
		c.FromNumber = canonical
	}

	if len(verr.Fields) > 0 {
		return &verr
	}
	return nil
}
