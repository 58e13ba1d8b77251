package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	BusinessKey    string        `mapstructure:"BUSINESS_KEY"`
	EscrowURL      string        `mapstructure:"ESCROW_URL"`
	EscrowAPIKey   string        `mapstructure:"ESCROW_API_KEY"`
	VerifierURL    string        `mapstructure:"VERIFIER_URL"`
	VerifierAPIKey string        `mapstructure:"VERIFIER_API_KEY"`
	SupervisorCode string        `mapstructure:"SUPERVISOR_CODE"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`

	GeofenceRadiusM          float64       `mapstructure:"GEOFENCE_RADIUS_M"`
	ClockInEarlyTolerance    time.Duration `mapstructure:"CLOCK_IN_EARLY_TOLERANCE"`
	ClockInLateTolerance     time.Duration `mapstructure:"CLOCK_IN_LATE_TOLERANCE"`
	MandatoryBreakMinutes    int           `mapstructure:"MANDATORY_BREAK_MINUTES"`
	MandatoryBreakShiftHours float64       `mapstructure:"MANDATORY_BREAK_SHIFT_HOURS"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("GEOFENCE_RADIUS_M", 100)
	v.SetDefault("CLOCK_IN_EARLY_TOLERANCE", "15m")
	v.SetDefault("CLOCK_IN_LATE_TOLERANCE", "2h")
	v.SetDefault("MANDATORY_BREAK_MINUTES", 30)
	v.SetDefault("MANDATORY_BREAK_SHIFT_HOURS", 6)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
