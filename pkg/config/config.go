package config

import (
	"fmt"
	"time"

	"teleconsult-backend/pkg/env"
)

// Config holds the full runtime configuration of the consultation
// service. Every value comes from the environment with a development
// friendly default.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Cassandra CassandraConfig
	MinIO    MinIOConfig
	JWT      JWTConfig
	Relay    RelayConfig
	Invite   InviteConfig
	Timeout  TimeoutConfig
	Push     PushConfig
	SMTP     SMTPConfig
	Log      LogConfig

	// DefaultQueueID receives consultations created without an explicit
	// queue.
	DefaultQueueID string
}

type ServerConfig struct {
	Port            string
	Env             string
	ShutdownTimeout time.Duration
	CORSOrigins     []string
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CassandraConfig struct {
	Hosts    []string
	Keyspace string
	Timeout  time.Duration
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

// RelayConfig describes the media relay fleet the service issues room
// tokens for.
type RelayConfig struct {
	Servers  []string
	Secret   string
	TokenTTL time.Duration
}

// InviteConfig points at the invitation service consulted on close.
type InviteConfig struct {
	BaseURL string
	Timeout time.Duration
}

// TimeoutConfig carries the call and consultation lifecycle deadlines.
type TimeoutConfig struct {
	Ringing       time.Duration
	CallDuration  time.Duration
	Consultation  time.Duration
	PollInterval  time.Duration
}

type PushConfig struct {
	Provider            string
	FCMCredentialsFile  string
	APNSKeyFile         string
	APNSKeyID           string
	APNSTeamID          string
	APNSTopic           string
	APNSProduction      bool
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Enabled  bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            env.GetString("SERVER_PORT", "8080"),
			Env:             env.GetString("APP_ENV", "development"),
			ShutdownTimeout: env.GetDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSOrigins:     env.GetStringSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			URL:             env.GetString("DATABASE_URL", "postgresql://root@localhost:26257/teleconsult?sslmode=disable"),
			MaxConns:        int32(env.GetInt("DB_MAX_CONNS", 25)),
			MinConns:        int32(env.GetInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime: env.GetDuration("DB_MAX_CONN_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			Addr:     env.GetString("REDIS_ADDR", "localhost:6379"),
			Password: env.GetString("REDIS_PASSWORD", ""),
			DB:       env.GetInt("REDIS_DB", 0),
		},
		Cassandra: CassandraConfig{
			Hosts:    env.GetStringSlice("CASSANDRA_HOSTS", []string{"localhost:9042"}),
			Keyspace: env.GetString("CASSANDRA_KEYSPACE", "teleconsult"),
			Timeout:  env.GetDuration("CASSANDRA_TIMEOUT", 10*time.Second),
		},
		MinIO: MinIOConfig{
			Endpoint:  env.GetString("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env.GetString("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env.GetString("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    env.GetString("MINIO_BUCKET", "consultation-attachments"),
			UseSSL:    env.GetBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret: env.GetString("JWT_SECRET", ""),
			Issuer: env.GetString("JWT_ISSUER", "teleconsult"),
			TTL:    env.GetDuration("JWT_TTL", 24*time.Hour),
		},
		Relay: RelayConfig{
			Servers:  env.GetStringSlice("RELAY_SERVERS", []string{"wss://relay-1.teleconsult.local"}),
			Secret:   env.GetString("RELAY_SECRET", ""),
			TokenTTL: env.GetDuration("RELAY_TOKEN_TTL", 4*time.Hour),
		},
		Invite: InviteConfig{
			BaseURL: env.GetString("INVITE_SERVICE_URL", ""),
			Timeout: env.GetDuration("INVITE_SERVICE_TIMEOUT", 5*time.Second),
		},
		Timeout: TimeoutConfig{
			Ringing:      env.GetDuration("CALL_RINGING_TIMEOUT", 5*time.Minute),
			CallDuration: env.GetDuration("CALL_DURATION_TIMEOUT", 2*time.Hour),
			Consultation: env.GetDuration("CONSULTATION_MAX_AGE", 24*time.Hour),
			PollInterval: env.GetDuration("SCHEDULER_POLL_INTERVAL", time.Second),
		},
		Push: PushConfig{
			Provider:           env.GetString("PUSH_PROVIDER", "mock"),
			FCMCredentialsFile: env.GetString("FCM_CREDENTIALS_FILE", ""),
			APNSKeyFile:        env.GetString("APNS_KEY_FILE", ""),
			APNSKeyID:          env.GetString("APNS_KEY_ID", ""),
			APNSTeamID:         env.GetString("APNS_TEAM_ID", ""),
			APNSTopic:          env.GetString("APNS_TOPIC", "com.teleconsult.app"),
			APNSProduction:     env.GetBool("APNS_PRODUCTION", false),
		},
		SMTP: SMTPConfig{
			Host:     env.GetString("SMTP_HOST", ""),
			Port:     env.GetInt("SMTP_PORT", 587),
			Username: env.GetString("SMTP_USERNAME", ""),
			Password: env.GetString("SMTP_PASSWORD", ""),
			From:     env.GetString("SMTP_FROM", "no-reply@teleconsult.local"),
			Enabled:  env.GetBool("SMTP_ENABLED", false),
		},
		Log: LogConfig{
			Level:  env.GetString("LOG_LEVEL", "info"),
			Format: env.GetString("LOG_FORMAT", "json"),
		},
		DefaultQueueID: env.GetString("DEFAULT_QUEUE_ID", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Env == "production" {
		if c.JWT.Secret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.Relay.Secret == "" {
			return fmt.Errorf("RELAY_SECRET is required in production")
		}
	}
	if c.JWT.Secret == "" {
		c.JWT.Secret = "dev-only-insecure-secret"
	}
	if c.Relay.Secret == "" {
		c.Relay.Secret = c.JWT.Secret
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}
