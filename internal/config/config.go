// Package config loads the engine configuration from the environment.
// A .env file is honoured through godotenv before viper reads the variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	HTTP        HTTPConfig     `mapstructure:"http"`
	Database    DatabaseConfig `mapstructure:"db"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Kafka       KafkaConfig    `mapstructure:"kafka"`
	Auth        AuthConfig     `mapstructure:"jwt"`
	Engine      EngineConfig   `mapstructure:"twk"`
	Tax         ClientConfig   `mapstructure:"tax"`
	PayrollRun  ClientConfig   `mapstructure:"payroll_run"`
}

type HTTPConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	Host       string `mapstructure:"host"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	Port       string `mapstructure:"port"`
	SSLMode    string `mapstructure:"sslmode"`
	MaxRetries int    `mapstructure:"max_retries"`
}

type RedisConfig struct {
	Addr string `mapstructure:"addr"`
}

type KafkaConfig struct {
	Broker  string `mapstructure:"broker"`
	GroupID string `mapstructure:"group_id"`
}

type AuthConfig struct {
	Secret string `mapstructure:"secret"`
}

// EngineConfig tunes the batch engine.
type EngineConfig struct {
	Workers          int           `mapstructure:"workers"`
	DispatchMode     string        `mapstructure:"dispatch_mode"` // outbox | inline
	FormulaMaxSteps  int           `mapstructure:"formula_max_steps"`
	FormulaTimeout   time.Duration `mapstructure:"formula_timeout"`
	Rounding         string        `mapstructure:"rounding"` // half_up | bankers
	PaymentRetries   int           `mapstructure:"payment_retries"`
	CancelPollPeriod time.Duration `mapstructure:"cancel_poll_period"`
	// StaleAfter is how long a running job may go without a progress flush
	// before the worker reclaims it.
	StaleAfter time.Duration `mapstructure:"stale_after"`
	OutboxPoll time.Duration `mapstructure:"outbox_poll"`
	PolicyPath string        `mapstructure:"policy_path"`
	ModelPath  string        `mapstructure:"model_path"`
}

type ClientConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

const (
	DispatchOutbox = "outbox"
	DispatchInline = "inline"
)

// Load reads configuration from the process environment. Variables use the
// upper-cased key path joined by underscores, e.g. DB_HOST or TWK_WORKERS.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	// AutomaticEnv only resolves keys viper already knows about.
	for _, key := range v.AllKeys() {
		_ = v.BindEnv(key)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("http.port", "3000")
	v.SetDefault("http.read_timeout", 5*time.Second)
	v.SetDefault("http.write_timeout", 10*time.Second)
	v.SetDefault("http.idle_timeout", 60*time.Second)

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "twk")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_retries", 5)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("kafka.broker", "")
	v.SetDefault("kafka.group_id", "go-twk-jobs")
	v.SetDefault("jwt.secret", "")

	v.SetDefault("twk.workers", 8)
	v.SetDefault("twk.dispatch_mode", DispatchOutbox)
	v.SetDefault("twk.formula_max_steps", 10000)
	v.SetDefault("twk.formula_timeout", 50*time.Millisecond)
	v.SetDefault("twk.rounding", "half_up")
	v.SetDefault("twk.payment_retries", 3)
	v.SetDefault("twk.cancel_poll_period", 500*time.Millisecond)
	v.SetDefault("twk.stale_after", 5*time.Minute)
	v.SetDefault("twk.outbox_poll", 3*time.Second)
	v.SetDefault("twk.policy_path", "configs/rbac_policy.csv")
	v.SetDefault("twk.model_path", "configs/rbac_model.conf")

	v.SetDefault("tax.base_url", "http://localhost:8081")
	v.SetDefault("tax.timeout", 5*time.Second)
	v.SetDefault("payroll_run.base_url", "http://localhost:8082")
	v.SetDefault("payroll_run.timeout", 5*time.Second)
}

func (c *Config) validate() error {
	if c.Engine.Workers < 1 {
		return fmt.Errorf("TWK_WORKERS must be >= 1, got %d", c.Engine.Workers)
	}
	switch c.Engine.DispatchMode {
	case DispatchOutbox, DispatchInline:
	default:
		return fmt.Errorf("TWK_DISPATCH_MODE must be %q or %q", DispatchOutbox, DispatchInline)
	}
	switch c.Engine.Rounding {
	case "half_up", "bankers":
	default:
		return fmt.Errorf("TWK_ROUNDING must be half_up or bankers")
	}
	if c.Engine.StaleAfter <= 4*c.Engine.CancelPollPeriod {
		return fmt.Errorf("TWK_STALE_AFTER must exceed four cancel poll periods, got %s", c.Engine.StaleAfter)
	}
	if c.Engine.DispatchMode == DispatchOutbox && c.Kafka.Broker == "" {
		return fmt.Errorf("KAFKA_BROKER is required when TWK_DISPATCH_MODE=outbox")
	}
	return nil
}
