package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	ActivityDriverPostgres = "postgres"
	ActivityDriverMongo    = "mongo"
	ActivityDriverMemory   = "memory"
)

type Config struct {
	Env        string
	Port       string
	GinMode    string
	CORSOrigin string

	LogLevel  string
	LogFile   string
	LogFormat string

	StoreDriver    string
	ActivityDriver string

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret  string
	SessionTTL time.Duration

	BootstrapAdminPassword string
	PasswordMinLength      int

	MessagePollInterval time.Duration
	HQDeleteTicks       int
	HQDeleteTick        time.Duration

	TargetRevenue       float64
	TargetAppointments  int
	TargetConsultations int
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", "development")
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("CORS_ORIGIN", "http://localhost:5173")

	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("LOG_FORMAT", "text")

	v.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	v.SetDefault("ACTIVITY_DRIVER", ActivityDriverPostgres)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "saleflow")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_NAME", "saleflow")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("MONGO_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGO_DATABASE", "saleflow")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("SESSION_TTL", "24h")

	v.SetDefault("BOOTSTRAP_ADMIN_PASSWORD", "")
	v.SetDefault("PASSWORD_MIN_LENGTH", 6)

	v.SetDefault("MESSAGE_POLL_INTERVAL", "10s")
	v.SetDefault("HQ_DELETE_TICKS", 10)
	v.SetDefault("HQ_DELETE_TICK", "1s")

	v.SetDefault("TARGET_REVENUE", 40_000_000)
	v.SetDefault("TARGET_APPOINTMENTS", 16)
	v.SetDefault("TARGET_CONSULTATIONS", 12)
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Env:        v.GetString("ENV"),
		Port:       v.GetString("PORT"),
		GinMode:    v.GetString("GIN_MODE"),
		CORSOrigin: v.GetString("CORS_ORIGIN"),

		LogLevel:  v.GetString("LOG_LEVEL"),
		LogFile:   v.GetString("LOG_FILE"),
		LogFormat: v.GetString("LOG_FORMAT"),

		StoreDriver:    strings.ToLower(v.GetString("STORE_DRIVER")),
		ActivityDriver: strings.ToLower(v.GetString("ACTIVITY_DRIVER")),

		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),
		DBSSLMode:  v.GetString("DB_SSLMODE"),

		MongoURI:      v.GetString("MONGO_URI"),
		MongoDatabase: v.GetString("MONGO_DATABASE"),

		RedisAddr:     v.GetString("REDIS_ADDR"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisDB:       v.GetInt("REDIS_DB"),

		JWTSecret:  v.GetString("JWT_SECRET"),
		SessionTTL: v.GetDuration("SESSION_TTL"),

		BootstrapAdminPassword: v.GetString("BOOTSTRAP_ADMIN_PASSWORD"),
		PasswordMinLength:      v.GetInt("PASSWORD_MIN_LENGTH"),

		MessagePollInterval: v.GetDuration("MESSAGE_POLL_INTERVAL"),
		HQDeleteTicks:       v.GetInt("HQ_DELETE_TICKS"),
		HQDeleteTick:        v.GetDuration("HQ_DELETE_TICK"),

		TargetRevenue:       v.GetFloat64("TARGET_REVENUE"),
		TargetAppointments:  v.GetInt("TARGET_APPOINTMENTS"),
		TargetConsultations: v.GetInt("TARGET_CONSULTATIONS"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.ActivityDriver {
	case ActivityDriverPostgres, ActivityDriverMongo, ActivityDriverMemory:
	default:
		return fmt.Errorf("unknown ACTIVITY_DRIVER %q", c.ActivityDriver)
	}
	if c.ActivityDriver == ActivityDriverPostgres && c.StoreDriver != StoreDriverPostgres {
		return fmt.Errorf("ACTIVITY_DRIVER=postgres requires STORE_DRIVER=postgres")
	}
	if c.JWTSecret == "" && c.Env != "development" && c.Env != "test" {
		return fmt.Errorf("JWT_SECRET is required outside development")
	}
	if c.PasswordMinLength < 1 {
		return fmt.Errorf("PASSWORD_MIN_LENGTH must be positive")
	}
	if c.HQDeleteTicks < 1 || c.HQDeleteTick <= 0 {
		return fmt.Errorf("HQ deletion countdown must be positive")
	}
	if c.MessagePollInterval <= 0 {
		return fmt.Errorf("MESSAGE_POLL_INTERVAL must be positive")
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort, c.DBSSLMode)
}

// Secret returns the token signing key, with a fixed key in development.
func (c *Config) Secret() []byte {
	if c.JWTSecret == "" {
		return []byte("saleflow-dev-secret")
	}
	return []byte(c.JWTSecret)
}
