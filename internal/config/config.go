package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Logging   LoggingConfig
	Risk      RiskConfig
	Scheduler SchedulerConfig
	Defaults  PreferenceDefaults
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port             string
	Host             string
	Environment      string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
}

type DatabaseConfig struct {
	Driver          string
	SQLitePath      string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConnections  int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

// RiskConfig holds the scoring weights and band thresholds used by the risk assessor.
// The values are defaults and may be tuned per deployment.
type RiskConfig struct {
	AmountCriticalWeight float64
	AmountHighWeight     float64
	AmountMediumWeight   float64
	HistoryHighWeight    float64
	HistoryMediumWeight  float64
	LocationNearbyWeight float64
	TimeNightWeight      float64
	TimeWeekendWeight    float64
	FrequencyHighWeight  float64
	FrequencyMedWeight   float64
	BaselineWeight       float64

	WeeklyShareThreshold  float64
	MonthlyShareThreshold float64

	CautionThreshold  float64
	WarningThreshold  float64
	DangerThreshold   float64
	CriticalThreshold float64

	WarnScore            float64
	RequireApprovalScore float64
	BlockScore           float64

	NearbyRadiusMeters float64
	NightStartHour     int
	NightEndHour       int
}

type SchedulerConfig struct {
	ShallowScanInterval time.Duration
	DeepScanInterval    time.Duration
}

type PreferenceDefaults struct {
	DailyLimit      decimal.Decimal
	WeeklyLimit     decimal.Decimal
	MonthlyLimit    decimal.Decimal
	TrackingEnabled bool
	AlertsEnabled   bool
}

type RateLimitConfig struct {
	RequestsPerSecond int
	Burst             int
}

// Load reads configuration from the environment. A .env file in the working directory
// is loaded first when present; real environment variables take precedence.
func Load() *Config {
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "localhost"),
			Environment:     getEnv("APP_ENV", "development"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", DriverSQLite),
			SQLitePath:      getEnv("DB_SQLITE_PATH", "spending_guard.db"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "guard_user"),
			Password:        getEnv("DB_PASSWORD", "guard_password"),
			Name:            getEnv("DB_NAME", "spending_guard"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConnections:  getIntEnv("DB_MAX_CONNECTIONS", 10),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Risk: DefaultRiskConfig(),
		Scheduler: SchedulerConfig{
			ShallowScanInterval: getDurationEnv("INSIGHT_SHALLOW_INTERVAL", 5*time.Minute),
			DeepScanInterval:    getDurationEnv("INSIGHT_DEEP_INTERVAL", time.Hour),
		},
		Defaults: PreferenceDefaults{
			DailyLimit:      getDecimalEnv("DEFAULT_DAILY_LIMIT", decimal.NewFromInt(200)),
			WeeklyLimit:     getDecimalEnv("DEFAULT_WEEKLY_LIMIT", decimal.NewFromInt(1000)),
			MonthlyLimit:    getDecimalEnv("DEFAULT_MONTHLY_LIMIT", decimal.NewFromInt(4000)),
			TrackingEnabled: getBoolEnv("DEFAULT_TRACKING_ENABLED", false),
			AlertsEnabled:   getBoolEnv("DEFAULT_ALERTS_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getIntEnv("RATE_LIMIT_PER_SECOND", 20),
			Burst:             getIntEnv("RATE_LIMIT_BURST", 40),
		},
	}

	config.Risk.NearbyRadiusMeters = getFloatEnv("RISK_NEARBY_RADIUS_METERS", config.Risk.NearbyRadiusMeters)
	config.Risk.CautionThreshold = getFloatEnv("RISK_CAUTION_THRESHOLD", config.Risk.CautionThreshold)
	config.Risk.WarningThreshold = getFloatEnv("RISK_WARNING_THRESHOLD", config.Risk.WarningThreshold)
	config.Risk.DangerThreshold = getFloatEnv("RISK_DANGER_THRESHOLD", config.Risk.DangerThreshold)
	config.Risk.CriticalThreshold = getFloatEnv("RISK_CRITICAL_THRESHOLD", config.Risk.CriticalThreshold)

	config.Server.CORSAllowOrigins = config.loadCORSAllowOrigins()

	return config
}

// DefaultRiskConfig returns the stock factor weights and thresholds.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		AmountCriticalWeight: 30,
		AmountHighWeight:     20,
		AmountMediumWeight:   10,
		HistoryHighWeight:    25,
		HistoryMediumWeight:  15,
		LocationNearbyWeight: 10,
		TimeNightWeight:      15,
		TimeWeekendWeight:    8,
		FrequencyHighWeight:  20,
		FrequencyMedWeight:   10,
		BaselineWeight:       5,

		WeeklyShareThreshold:  0.30,
		MonthlyShareThreshold: 0.10,

		CautionThreshold:  20,
		WarningThreshold:  40,
		DangerThreshold:   60,
		CriticalThreshold: 80,

		WarnScore:            50,
		RequireApprovalScore: 70,
		BlockScore:           90,

		NearbyRadiusMeters: 500,
		NightStartHour:     22,
		NightEndHour:       6,
	}
}

// DefaultPreferenceDefaults mirrors the limits Load uses when no env overrides are set.
func DefaultPreferenceDefaults() PreferenceDefaults {
	return PreferenceDefaults{
		DailyLimit:      decimal.NewFromInt(200),
		WeeklyLimit:     decimal.NewFromInt(1000),
		MonthlyLimit:    decimal.NewFromInt(4000),
		TrackingEnabled: false,
		AlertsEnabled:   true,
	}
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

func (c *Config) Address() string {
	return c.Server.Host + ":" + c.Server.Port
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getDecimalEnv(key string, defaultValue decimal.Decimal) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil && d.IsPositive() {
			return d
		}
		slog.Warn("ignoring invalid decimal env value", "key", key, "value", value)
	}
	return defaultValue
}

// loadCORSAllowOrigins retrieves CORS allowed origins from environment or returns default
func (c *Config) loadCORSAllowOrigins() []string {
	corsOrigins := os.Getenv("CORS_ALLOW_ORIGINS")
	if corsOrigins == "" {
		return []string{"*"}
	}

	origins := strings.Split(corsOrigins, ",")
	for i, origin := range origins {
		origins[i] = strings.TrimSpace(origin)
	}
	return origins
}
