// internal/pkg/bootstrap/config.go
package bootstrap

import (
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "configs/quote-service.yaml"

type Config struct {
	App     AppConfig     `yaml:"app"`
	Intake  IntakeConfig  `yaml:"intake"`
	Session SessionConfig `yaml:"session"`
	Rules   RulesConfig   `yaml:"rules"`
	Infra   InfraConfig   `yaml:"infra"`
}

type AppConfig struct {
	Name      string `yaml:"name"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"logLevel"`
	LogPretty bool   `yaml:"logPretty"`
}

// IntakeConfig 是外部接单端点的配置
type IntakeConfig struct {
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

type SessionConfig struct {
	TTL           time.Duration `yaml:"ttl"`
	EvictInterval time.Duration `yaml:"evictInterval"`
}

// ContactRuleConfig 是一条 CEL 表达式形式的联系信息校验规则
type ContactRuleConfig struct {
	Field string `yaml:"field"`
	Expr  string `yaml:"expr"`
}

type RulesConfig struct {
	Contact []ContactRuleConfig `yaml:"contact"`
}

type InfraConfig struct {
	Jaeger struct {
		Endpoint string `yaml:"endpoint"`
	} `yaml:"jaeger"`
	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"kafka"`
	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		GuardTTL time.Duration `yaml:"guardTTL"`
	} `yaml:"redis"`
}

var currentConfig atomic.Pointer[Config]

// GetCurrentConfig 返回最近一次加载的配置，未加载时返回默认配置
func GetCurrentConfig() *Config {
	if cfg := currentConfig.Load(); cfg != nil {
		return cfg
	}
	return DefaultConfig()
}

func DefaultConfig() *Config {
	cfg := &Config{
		App: AppConfig{
			Name:     "quote-service",
			Port:     8080,
			LogLevel: "info",
		},
		Intake: IntakeConfig{
			Timeout: 15 * time.Second,
		},
		Session: SessionConfig{
			TTL:           2 * time.Hour,
			EvictInterval: time.Minute,
		},
	}
	cfg.Infra.Jaeger.Endpoint = "http://localhost:14268/api/traces"
	cfg.Infra.Kafka.Topic = "quote-order-submitted"
	cfg.Infra.Redis.GuardTTL = 30 * time.Second
	return cfg
}

// LoadConfig 读取 YAML 配置文件，再用环境变量覆盖。
// 文件不存在时使用默认值，解析失败则返回错误。
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parse config %s", path)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "read config %s", path)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	currentConfig.Store(cfg)
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Intake.Endpoint == "" {
		return errors.New("intake.endpoint is required")
	}
	if c.App.Port <= 0 {
		return errors.Errorf("app.port must be positive, got %d", c.App.Port)
	}
	if c.Intake.Timeout <= 0 {
		return errors.New("intake.timeout must be positive")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.Session.EvictInterval <= 0 {
		return errors.New("session.evictInterval must be positive")
	}
	// 守卫的过期时间必须长于一次提交的超时
	if c.Infra.Redis.Addr != "" && c.Infra.Redis.GuardTTL <= c.Intake.Timeout {
		return errors.Errorf("infra.redis.guardTTL (%s) must exceed intake.timeout (%s)", c.Infra.Redis.GuardTTL, c.Intake.Timeout)
	}
	for i, r := range c.Rules.Contact {
		if r.Field == "" || r.Expr == "" {
			return errors.Errorf("rules.contact[%d] needs both field and expr", i)
		}
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.Intake.Endpoint = getEnv("INTAKE_ENDPOINT", cfg.Intake.Endpoint)
	cfg.Infra.Jaeger.Endpoint = getEnv("JAEGER_ENDPOINT", cfg.Infra.Jaeger.Endpoint)
	cfg.Infra.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Infra.Kafka.Topic)
	cfg.Infra.Redis.Addr = getEnv("REDIS_ADDR", cfg.Infra.Redis.Addr)
	cfg.Infra.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Infra.Redis.Password)

	if v, ok := os.LookupEnv("KAFKA_BROKERS"); ok {
		cfg.Infra.Kafka.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.Infra.Kafka.Brokers = append(cfg.Infra.Kafka.Brokers, b)
			}
		}
	}
	if v, ok := os.LookupEnv("HTTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrap(err, "HTTP_PORT")
		}
		cfg.App.Port = port
	}
	for key, dst := range map[string]*time.Duration{
		"SUBMIT_TIMEOUT": &cfg.Intake.Timeout,
		"SESSION_TTL":    &cfg.Session.TTL,
	} {
		if v, ok := os.LookupEnv(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return errors.Wrap(err, key)
			}
			*dst = d
		}
	}
	return nil
}

// getEnv 从环境变量中读取配置
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}
