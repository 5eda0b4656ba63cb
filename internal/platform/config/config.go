// Package config loads process configuration from the environment so main
// stays lean. A local .env file is honored in development.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AuditPolicy controls what happens to the triggering request when an audit
// write fails: "closed" fails the request, "open" proceeds with a warning.
type AuditPolicy string

const (
	PolicyClosed AuditPolicy = "closed"
	PolicyOpen   AuditPolicy = "open"
)

type Server struct {
	Addr        string `env:"ADDR" envDefault:":8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
}

type DB struct {
	URL             string        `env:"DATABASE_URL,required"`
	MigrationsDir   string        `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS" envDefault:"16"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS" envDefault:"8"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME" envDefault:"1h"`
}

type Redis struct {
	URL string `env:"REDIS_URL"`
}

type HIPAA struct {
	// EncryptionSecret enables the PHI encryption engine. When empty the
	// engine reports itself disabled and PHI-bearing submissions are refused.
	EncryptionSecret    string        `env:"ENCRYPTION_SECRET"`
	KDFIterations       int           `env:"KDF_ITERATIONS" envDefault:"100000"`
	RetentionYears      int           `env:"RETENTION_YEARS" envDefault:"6"`
	AuditRetentionYears int           `env:"AUDIT_RETENTION_YEARS" envDefault:"6"`
	SweepInterval       time.Duration `env:"RETENTION_SWEEP_INTERVAL" envDefault:"24h"`
	WritePolicy         AuditPolicy   `env:"AUDIT_FAILURE_POLICY_WRITE" envDefault:"closed"`
	ReadPolicy          AuditPolicy   `env:"AUDIT_FAILURE_POLICY_READ" envDefault:"open"`
}

type RateLimit struct {
	PerMinute int  `env:"RATE_LIMIT_PER_MINUTE" envDefault:"100"`
	Disabled  bool `env:"RATE_LIMIT_DISABLED" envDefault:"false"`
}

type Kafka struct {
	Brokers    string `env:"KAFKA_BROKERS"`
	AuditTopic string `env:"KAFKA_AUDIT_TOPIC" envDefault:"vetdocs.audit"`
}

type Files struct {
	S3Bucket     string `env:"S3_BUCKET"`
	AWSRegion    string `env:"AWS_REGION" envDefault:"us-east-1"`
	MaxSizeBytes int64  `env:"UPLOAD_MAX_SIZE_BYTES" envDefault:"10485760"`
}

type Auth struct {
	JWTSigningKey string `env:"JWT_SIGNING_KEY,required"`
}

type Config struct {
	Server    Server
	DB        DB
	Redis     Redis
	HIPAA     HIPAA
	RateLimit RateLimit
	Kafka     Kafka
	Files     Files
	Auth      Auth
}

// Load reads the environment into a Config. Missing required values are
// reported together by the env parser.
func Load() (*Config, error) {
	// Absence of a .env file is the normal production case.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	for _, p := range []AuditPolicy{c.HIPAA.WritePolicy, c.HIPAA.ReadPolicy} {
		if p != PolicyClosed && p != PolicyOpen {
			return fmt.Errorf("audit failure policy must be %q or %q, got %q", PolicyClosed, PolicyOpen, p)
		}
	}
	if c.HIPAA.RetentionYears <= 0 {
		return fmt.Errorf("RETENTION_YEARS must be positive, got %d", c.HIPAA.RetentionYears)
	}
	if c.RateLimit.PerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimit.PerMinute)
	}
	return nil
}

// FilesEnabled reports whether the upload helper has object storage configured.
func (c *Config) FilesEnabled() bool { return c.Files.S3Bucket != "" }

// KafkaEnabled reports whether audit events should be mirrored to a broker.
func (c *Config) KafkaEnabled() bool { return c.Kafka.Brokers != "" }
