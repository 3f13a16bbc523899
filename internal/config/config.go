package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the root application configuration. It is built once in main
// and handed to component constructors; nothing reads it globally.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Mongo     MongoConfig     `yaml:"mongo"`
	Session   SessionConfig   `yaml:"session"`
	Auth      AuthConfig      `yaml:"auth"`
	EventBus  EventBusConfig  `yaml:"eventbus"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Metrics toggles the /metrics endpoint and HTTP collectors.
	Metrics bool `yaml:"metrics"`
}

type MongoConfig struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type SessionConfig struct {
	Secret     string `yaml:"secret"`
	CookieName string `yaml:"cookie_name"`
	TTLMinutes int    `yaml:"ttl_minutes"`
	// Backend is one of memory, redis, badger.
	Backend       string `yaml:"backend"`
	RedisURL      string `yaml:"redis_url"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	BadgerPath    string `yaml:"badger_path"`
	// Secure marks the cookie HTTPS-only.
	Secure bool `yaml:"cookie_secure"`
}

type AuthConfig struct {
	// Backend is one of mongo, maria, memory.
	Backend string      `yaml:"backend"`
	Maria   MariaConfig `yaml:"maria"`
}

type MariaConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type EventBusConfig struct {
	// URL of the NATS server; empty selects the in-memory bus.
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

type LoggingConfig struct {
	Dir          string `yaml:"dir"`
	ConsoleLevel string `yaml:"console_level"`
	FileLevel    string `yaml:"file_level"`
}

// Default returns a configuration usable for local development.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    5000,
			Metrics: true,
		},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "game_hub",
			TimeoutSeconds: 5,
		},
		Session: SessionConfig{
			CookieName: "gh_session",
			TTLMinutes: 24 * 60,
			Backend:    "memory",
			RedisURL:   "localhost:6379",
			BadgerPath: "data/sessions",
		},
		Auth: AuthConfig{
			Backend: "mongo",
			Maria: MariaConfig{
				Host:     "localhost",
				Port:     3306,
				Database: "game_hub",
			},
		},
		EventBus: EventBusConfig{
			Stream:    "CONTENT",
			Retention: 72,
		},
		Telemetry: TelemetryConfig{
			ServiceName: "game-hub",
		},
		Logging: LoggingConfig{
			Dir:          "logs",
			ConsoleLevel: "info",
			FileLevel:    "debug",
		},
	}
}

// LoadDotEnv loads variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

// Load reads the YAML file at path (or GAMEHUB_CONFIG when path is empty)
// over the defaults and then applies environment overrides. A missing path
// is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("GAMEHUB_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Session.Secret) == "" {
		return fmt.Errorf("session secret is not set (SECRET_KEY)")
	}
	switch c.Session.Backend {
	case "memory", "redis", "badger":
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}
	switch c.Auth.Backend {
	case "mongo", "maria", "memory":
	default:
		return fmt.Errorf("unknown auth backend %q", c.Auth.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}
	return nil
}

// Addr returns host:port for the HTTP listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Timeout returns the per-operation store timeout.
func (m MongoConfig) Timeout() time.Duration {
	if m.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// TTL returns the session lifetime.
func (s SessionConfig) TTL() time.Duration {
	if s.TTLMinutes <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(s.TTLMinutes) * time.Minute
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Host, "IP")
	cfg.Server.Port = getIntWithEnvFallback(cfg.Server.Port, "PORT")
	setString(&cfg.Mongo.URI, "MONGO_URI")
	setString(&cfg.Mongo.Database, "MONGO_DBNAME")
	setString(&cfg.Session.Secret, "SECRET_KEY")
	setString(&cfg.Session.Backend, "SESSION_BACKEND")
	setString(&cfg.Session.RedisURL, "REDIS_URL")
	setString(&cfg.Session.RedisPassword, "REDIS_PASSWORD")
	setString(&cfg.Session.BadgerPath, "BADGER_PATH")
	setString(&cfg.Auth.Backend, "AUTH_BACKEND")
	setString(&cfg.Auth.Maria.Host, "MARIA_HOST")
	cfg.Auth.Maria.Port = getIntWithEnvFallback(cfg.Auth.Maria.Port, "MARIA_PORT")
	setString(&cfg.Auth.Maria.Database, "MARIA_DATABASE")
	setString(&cfg.Auth.Maria.Username, "MARIA_USER")
	setString(&cfg.Auth.Maria.Password, "MARIA_PASSWORD")
	setString(&cfg.EventBus.URL, "NATS_URL")
	setString(&cfg.Logging.Dir, "LOG_DIR")
	if raw := os.Getenv("OTEL_ENABLED"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Telemetry.Enabled = value
		}
	}
	if raw := os.Getenv("SESSION_COOKIE_SECURE"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Session.Secure = value
		}
	}
	if raw := os.Getenv("METRICS_ENABLED"); raw != "" {
		if value, err := strconv.ParseBool(raw); err == nil {
			cfg.Server.Metrics = value
		}
	}
}

func setString(dst *string, envVar string) {
	if raw := strings.TrimSpace(os.Getenv(envVar)); raw != "" {
		*dst = raw
	}
}

// getIntWithEnvFallback returns the environment value when it parses as a
// positive integer, otherwise the current value.
func getIntWithEnvFallback(current int, envVar string) int {
	if envVal := os.Getenv(envVar); envVal != "" {
		if value, err := strconv.Atoi(envVal); err == nil && value > 0 {
			return value
		}
	}
	return current
}
