/*
config.go - Runtime configuration

PURPOSE:
  Loads server and financial-policy configuration from an optional .env
  file with environment variable overrides. Financial parameters set
  here are the cooperative-wide defaults; individual products in the
  catalog may override them per credit line.

SOURCES (highest precedence first):
  1. Environment variables
  2. .env file in the working directory
  3. Built-in defaults

VARIABLES:
  SERVER_PORT                  HTTP port                    (default 8080)
  DATABASE_PATH                SQLite database file         (default credit.db)
  SCHEDULER_ENABLED            Delinquency scheduler on/off (default true)
  SCHEDULER_INTERVAL_HOURS     Evaluation pass interval     (default 6)
  PENALTY_DAILY_RATE_PERCENT   Daily penalty on overdue     (default 0.1)
  GUARANTEE_FREEZE_PERCENT     Savings frozen per guarantor (default 10)
  INSURANCE_PREMIUM_PERCENT    Premium financed into credit (default 2)
  MAX_ACTIVE_GUARANTEES        Per-guarantor commitment cap (default 5)

  Rates and percentages are decimal strings, never floats.

SEE ALSO:
  - cmd/server/main.go: Consumes the loaded Config
  - credit/service.go: Params applied to credit operations
*/
package config

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/coopfin/credit-engine/credit"
)

// Config holds everything the server needs to start.
type Config struct {
	Port                   int
	DatabasePath           string
	SchedulerEnabled       bool
	SchedulerIntervalHours int

	PenaltyDailyRatePercent decimal.Decimal
	GuaranteeFreezePercent  decimal.Decimal
	InsurancePremiumPercent decimal.Decimal
	MaxActiveGuarantees     int
}

// Load reads configuration from .env and the environment.
// A missing .env file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "credit.db")
	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.interval_hours", 6)
	v.SetDefault("penalty.daily_rate_percent", "0.1")
	v.SetDefault("guarantee.freeze_percent", "10")
	v.SetDefault("insurance.premium_percent", "2")
	v.SetDefault("guarantee.max_active", 5)

	v.BindEnv("server.port", "SERVER_PORT")
	v.BindEnv("database.path", "DATABASE_PATH")
	v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	v.BindEnv("scheduler.interval_hours", "SCHEDULER_INTERVAL_HOURS")
	v.BindEnv("penalty.daily_rate_percent", "PENALTY_DAILY_RATE_PERCENT")
	v.BindEnv("guarantee.freeze_percent", "GUARANTEE_FREEZE_PERCENT")
	v.BindEnv("insurance.premium_percent", "INSURANCE_PREMIUM_PERCENT")
	v.BindEnv("guarantee.max_active", "MAX_ACTIVE_GUARANTEES")

	if err := v.ReadInConfig(); err != nil {
		log.Printf("No .env file found, using environment and defaults: %v", err)
	}

	cfg := &Config{
		Port:                   v.GetInt("server.port"),
		DatabasePath:           v.GetString("database.path"),
		SchedulerEnabled:       v.GetBool("scheduler.enabled"),
		SchedulerIntervalHours: v.GetInt("scheduler.interval_hours"),
		MaxActiveGuarantees:    v.GetInt("guarantee.max_active"),
	}

	var err error
	if cfg.PenaltyDailyRatePercent, err = parseRate(v, "penalty.daily_rate_percent"); err != nil {
		return nil, err
	}
	if cfg.GuaranteeFreezePercent, err = parseRate(v, "guarantee.freeze_percent"); err != nil {
		return nil, err
	}
	if cfg.InsurancePremiumPercent, err = parseRate(v, "insurance.premium_percent"); err != nil {
		return nil, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("config: invalid port %d", cfg.Port)
	}
	if cfg.SchedulerIntervalHours <= 0 {
		return nil, fmt.Errorf("config: scheduler interval must be positive, got %d", cfg.SchedulerIntervalHours)
	}
	if cfg.MaxActiveGuarantees <= 0 {
		return nil, fmt.Errorf("config: max active guarantees must be positive, got %d", cfg.MaxActiveGuarantees)
	}

	return cfg, nil
}

// DefaultParams returns the cooperative-wide financial parameters,
// applied to credits whose product does not override them.
func (c *Config) DefaultParams() credit.Params {
	return credit.Params{
		DailyPenaltyRatePercent:      c.PenaltyDailyRatePercent,
		GuaranteeFreezePercent:       c.GuaranteeFreezePercent,
		InsurancePremiumRatePercent:  c.InsurancePremiumPercent,
		MaxActiveGuaranteesPerMember: c.MaxActiveGuarantees,
	}
}

func parseRate(v *viper.Viper, key string) (decimal.Decimal, error) {
	raw := v.GetString(key)
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("config: %s: %q is not a decimal: %w", key, raw, err)
	}
	if d.IsNegative() {
		return decimal.Decimal{}, fmt.Errorf("config: %s must not be negative, got %s", key, d)
	}
	return d, nil
}
