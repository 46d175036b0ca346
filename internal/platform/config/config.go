// Package config loads process configuration from AEGIS_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	id "aegis/pkg/domain"
)

// Server captures process level configuration.
type Server struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// FactoryIdentity is the identity the orchestrator presents to the treasury.
	FactoryIdentity string   `env:"FACTORY_IDENTITY" envDefault:"event-factory"`
	TreasuryFunders []string `env:"TREASURY_FUNDERS" envSeparator:","`

	// CompensateUnfunded discards a governance instance whose initial funding failed.
	CompensateUnfunded bool `env:"COMPENSATE_UNFUNDED" envDefault:"false"`

	Log       LogConfig       `envPrefix:"LOG_"`
	Postgres  PostgresConfig  `envPrefix:"POSTGRES_"`
	Redis     RedisConfig     `envPrefix:"REDIS_"`
	Kafka     KafkaConfig     `envPrefix:"KAFKA_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Audit     AuditConfig     `envPrefix:"AUDIT_"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// PostgresConfig selects the treasury store. An empty URL keeps the vault in memory.
type PostgresConfig struct {
	URL             string        `env:"URL"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

// RedisConfig selects the governance store. An empty URL keeps instances in memory.
type RedisConfig struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT" envDefault:"3s"`
	MaxRetries   int           `env:"TX_MAX_RETRIES" envDefault:"10"`
}

// KafkaConfig selects the audit sink. No brokers keeps audit events in memory.
type KafkaConfig struct {
	Brokers []string `env:"BROKERS" envSeparator:","`
	Topic   string   `env:"TOPIC" envDefault:"aegis.audit"`
}

type RateLimitConfig struct {
	RPS   float64 `env:"RPS" envDefault:"20"`
	Burst int     `env:"BURST" envDefault:"40"`
	// TrustForwarded keys anonymous callers on X-Forwarded-For; enable only behind a proxy.
	TrustForwarded bool `env:"TRUST_FORWARDED" envDefault:"false"`
}

type AuditConfig struct {
	BufferSize int `env:"BUFFER_SIZE" envDefault:"1024"`
}

// FromEnv parses the AEGIS_* environment.
func FromEnv() (Server, error) {
	return parse(env.Options{Prefix: "AEGIS_"})
}

func parse(opts env.Options) (Server, error) {
	var cfg Server
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func (c Server) Validate() error {
	if _, err := id.ParseIdentity(c.FactoryIdentity); err != nil {
		return fmt.Errorf("AEGIS_FACTORY_IDENTITY: %w", err)
	}
	if _, err := id.ParseIdentities(c.TreasuryFunders); err != nil {
		return fmt.Errorf("AEGIS_TREASURY_FUNDERS: %w", err)
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		return fmt.Errorf("AEGIS_KAFKA_TOPIC is required when brokers are set")
	}
	if c.Audit.BufferSize <= 0 {
		return fmt.Errorf("AEGIS_AUDIT_BUFFER_SIZE must be positive")
	}
	return nil
}

// Factory is the trimmed factory identity. Call after Validate.
func (c Server) Factory() id.Identity {
	factory, _ := id.ParseIdentity(c.FactoryIdentity)
	return factory
}

// Funders is the trimmed, de-duplicated bootstrap funder list. Call after Validate.
func (c Server) Funders() []id.Identity {
	funders, _ := id.ParseIdentities(c.TreasuryFunders)
	return funders
}
