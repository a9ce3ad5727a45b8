package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// -----------------------------------------------------------------------------
// Environment variable configuration guidelines:
// - required: Values that differ between environments (port, DB connection, etc.), security settings
// - default: Values common across all environments (deadlines, sweep cadence, etc.), standard settings
// -----------------------------------------------------------------------------

type Config struct {
	Server ServerConfig
	DB     DBConfig
	CORS   CORSConfig
	Log    LogConfig
	JWT    JWTConfig
	Hold   HoldConfig
	Sweep  SweepConfig
	Offer  OfferConfig
	Assign AssignConfig
}

type ServerConfig struct {
	Port string `envconfig:"PORT" required:"true"`
}

type DBConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" required:"true"`
	Password string `envconfig:"DB_PASSWORD" required:"true"`
	DBName   string `envconfig:"DB_NAME" required:"true"`
	SSLMode  string `envconfig:"DB_SSL_MODE" default:"disable"`
	TimeZone string `envconfig:"DB_TIMEZONE" default:"UTC"`
}

type CORSConfig struct {
	AllowOrigins     []string      `envconfig:"CORS_ALLOW_ORIGINS" default:"http://localhost:3000,http://localhost:8080"`
	AllowMethods     []string      `envconfig:"CORS_ALLOW_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	AllowHeaders     []string      `envconfig:"CORS_ALLOW_HEADERS" default:"Origin,Content-Type,Accept,Authorization"`
	ExposeHeaders    []string      `envconfig:"CORS_EXPOSE_HEADERS" default:"Content-Length"`
	AllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"true"`
	MaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"12h"`
}

type LogConfig struct {
	Level          string `envconfig:"LOG_LEVEL" default:"info"`
	TimeZone       string `envconfig:"LOG_TIMEZONE" default:"UTC"`
	TimeFormat     string `envconfig:"LOG_TIME_FORMAT" default:"2006-01-02 15:04:05.000"`
	TimeZoneOffset int    `envconfig:"LOG_TIMEZONE_OFFSET" default:"0"`
}

type JWTConfig struct {
	Secret   string        `envconfig:"JWT_SECRET" required:"true"`
	Duration time.Duration `envconfig:"JWT_DURATION" default:"24h"`
}

// HoldConfig carries the deadline windows of the hold lifecycle.
type HoldConfig struct {
	SignatureDeadline time.Duration `envconfig:"HOLD_SIGNATURE_DEADLINE" default:"2h"`
	PaymentDeadline   time.Duration `envconfig:"HOLD_PAYMENT_DEADLINE" default:"4h"`
	MaxWriteRetries   int           `envconfig:"HOLD_MAX_WRITE_RETRIES" default:"3"`
}

type SweepConfig struct {
	Interval      time.Duration `envconfig:"SWEEP_INTERVAL" default:"15m"`
	WarningWindow time.Duration `envconfig:"SWEEP_WARNING_WINDOW" default:"1h"`
	RunTimeout    time.Duration `envconfig:"SWEEP_RUN_TIMEOUT" default:"2m"`
}

type OfferConfig struct {
	TTL          time.Duration `envconfig:"OFFER_TTL" default:"24h"`
	MaxProposals int           `envconfig:"OFFER_MAX_PROPOSALS" default:"4"`
	DateWindow   int           `envconfig:"OFFER_DATE_WINDOW_DAYS" default:"3"`
	// TimeSlots is the canonical slot grid used when generating alternatives.
	TimeSlots []string `envconfig:"OFFER_TIME_SLOTS" default:"11:00,14:00,18:00,20:00"`
}

type AssignConfig struct {
	TravelWeight      float64 `envconfig:"ASSIGN_TRAVEL_WEIGHT" default:"1.0"`
	TierWeight        float64 `envconfig:"ASSIGN_TIER_WEIGHT" default:"0.5"`
	PerformanceWeight float64 `envconfig:"ASSIGN_PERFORMANCE_WEIGHT" default:"0.8"`
}

func (c *DBConfig) BuildDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&timezone=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode, c.TimeZone,
	)
}

func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("failed to process env config: %w", err)
	}
	return cfg, nil
}

func NewTestConfig() Config {
	return Config{
		Server: ServerConfig{
			Port: "8889",
		},
		DB: DBConfig{
			Host:     "localhost",
			Port:     "15433",
			User:     "test",
			Password: "test",
			DBName:   "test_db",
			SSLMode:  "disable",
			TimeZone: "UTC",
		},
		Log: LogConfig{
			Level:          "error",
			TimeZone:       "UTC",
			TimeFormat:     "2006-01-02 15:04:05.000",
			TimeZoneOffset: 0,
		},
		JWT: JWTConfig{
			Secret:   "test-secret",
			Duration: time.Hour,
		},
		Hold: HoldConfig{
			SignatureDeadline: 2 * time.Hour,
			PaymentDeadline:   4 * time.Hour,
			MaxWriteRetries:   3,
		},
		Sweep: SweepConfig{
			Interval:      15 * time.Minute,
			WarningWindow: time.Hour,
			RunTimeout:    2 * time.Minute,
		},
		Offer: OfferConfig{
			TTL:          24 * time.Hour,
			MaxProposals: 4,
			DateWindow:   3,
			TimeSlots:    []string{"11:00", "14:00", "18:00", "20:00"},
		},
		Assign: AssignConfig{
			TravelWeight:      1.0,
			TierWeight:        0.5,
			PerformanceWeight: 0.8,
		},
	}
}
