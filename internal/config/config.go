package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Policy     PolicyConfig
	Auth       AuthConfig
	Events     EventsConfig
	Credential CredentialConfig
	Tracing    TracingConfig
	Log        LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
	MaxConns int
}

// DSN builds the pgx connection string.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type PolicyConfig struct {
	RefundDeadline        time.Duration
	RefundPercent         int
	TransportLateDeadline time.Duration
	TransportLatePercent  int
	DefaultPerAccountCap  int
	PurchasesPerHour      int
	BulkCancelWorkers     int
}

type AuthConfig struct {
	JWTSecret string
}

type EventsConfig struct {
	// Driver is "none", "kafka" or "amqp".
	Driver       string
	KafkaBrokers []string
	KafkaTopic   string
	AMQPURL      string
	AMQPQueue    string
}

type CredentialConfig struct {
	Secret string
}

type TracingConfig struct {
	Endpoint string
	Insecure bool
}

type LogConfig struct {
	Level string
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: strEnv("SERVER_HOST", "localhost"),
		Port: serverPort,
	}

	storageCfg := StorageConfig{Driver: strings.ToLower(strEnv("STORAGE_DRIVER", "postgres"))}

	var postgresCfg PostgresConfig
	switch storageCfg.Driver {
	case "postgres":
		postgresCfg, err = loadPostgres()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	case "memory":
	default:
		return nil, fmt.Errorf("%s: unknown STORAGE_DRIVER %q", op, storageCfg.Driver)
	}

	redisEnabled, err := boolEnv("REDIS_ENABLED", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	redisCfg := RedisConfig{
		Enabled:  redisEnabled,
		Addr:     strEnv("REDIS_ADDR", "localhost:6380"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	}

	policyCfg, err := loadPolicy()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	credentialSecret := os.Getenv("CREDENTIAL_SECRET")
	if credentialSecret == "" {
		return nil, fmt.Errorf("%s: missing CREDENTIAL_SECRET", op)
	}

	eventsCfg, err := loadEvents()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tracingInsecure, err := boolEnv("OTEL_EXPORTER_OTLP_INSECURE", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Config{
		Server:     serverCfg,
		Storage:    storageCfg,
		Postgres:   postgresCfg,
		Redis:      redisCfg,
		Policy:     policyCfg,
		Auth:       AuthConfig{JWTSecret: jwtSecret},
		Events:     eventsCfg,
		Credential: CredentialConfig{Secret: credentialSecret},
		Tracing: TracingConfig{
			Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			Insecure: tracingInsecure,
		},
		Log: LogConfig{Level: strings.ToLower(strEnv("LOG_LEVEL", "info"))},
	}, nil
}

func loadPostgres() (PostgresConfig, error) {
	port, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return PostgresConfig{}, err
	}

	maxConns, err := intEnv("POSTGRES_MAX_CONNS", 0)
	if err != nil {
		return PostgresConfig{}, err
	}

	user := os.Getenv("POSTGRES_USER")
	if user == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_USER")
	}

	password := os.Getenv("POSTGRES_PASSWORD")
	if password == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_PASSWORD")
	}

	name := os.Getenv("POSTGRES_DB")
	if name == "" {
		return PostgresConfig{}, fmt.Errorf("missing POSTGRES_DB")
	}

	return PostgresConfig{
		User:     user,
		Password: password,
		Name:     name,
		Host:     strEnv("POSTGRES_HOST", "localhost"),
		Port:     port,
		SSLMode:  strEnv("POSTGRES_SSLMODE", "disable"),
		MaxConns: maxConns,
	}, nil
}

func loadPolicy() (PolicyConfig, error) {
	var (
		cfg PolicyConfig
		err error
	)

	if cfg.RefundDeadline, err = durationEnv("REFUND_DEADLINE", 24*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.RefundPercent, err = percentEnv("REFUND_PERCENT", 80); err != nil {
		return cfg, err
	}
	if cfg.TransportLateDeadline, err = durationEnv("TRANSPORT_LATE_DEADLINE", 2*time.Hour); err != nil {
		return cfg, err
	}
	if cfg.TransportLatePercent, err = percentEnv("TRANSPORT_LATE_PERCENT", 50); err != nil {
		return cfg, err
	}
	if cfg.RefundDeadline < 0 || cfg.TransportLateDeadline < 0 {
		return cfg, fmt.Errorf("refund deadlines must not be negative")
	}
	if cfg.DefaultPerAccountCap, err = intEnv("DEFAULT_PER_ACCOUNT_CAP", 10); err != nil {
		return cfg, err
	}
	if cfg.PurchasesPerHour, err = intEnv("PURCHASES_PER_HOUR", 5); err != nil {
		return cfg, err
	}
	if cfg.BulkCancelWorkers, err = intEnv("BULK_CANCEL_WORKERS", 8); err != nil {
		return cfg, err
	}

	return cfg, nil
}

func loadEvents() (EventsConfig, error) {
	cfg := EventsConfig{
		Driver:     strings.ToLower(strEnv("EVENTS_DRIVER", "none")),
		KafkaTopic: strEnv("KAFKA_TOPIC", "tixengine.events"),
		AMQPURL:    os.Getenv("AMQP_URL"),
		AMQPQueue:  strEnv("AMQP_QUEUE", "tixengine.events"),
	}

	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
		}
	}

	switch cfg.Driver {
	case "none":
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			return cfg, fmt.Errorf("missing KAFKA_BROKERS")
		}
	case "amqp":
		if cfg.AMQPURL == "" {
			return cfg, fmt.Errorf("missing AMQP_URL")
		}
	default:
		return cfg, fmt.Errorf("unknown EVENTS_DRIVER %q", cfg.Driver)
	}

	return cfg, nil
}

func strEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func percentEnv(key string, def int) (int, error) {
	v, err := intEnv(key, def)
	if err != nil {
		return 0, err
	}

	if v < 0 || v > 100 {
		return 0, fmt.Errorf("invalid %s: %d is not a percentage", key, v)
	}

	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}

	return v, nil
}
