package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		ReadTimeout    Duration `yaml:"readTimeout"`
		WriteTimeout   Duration `yaml:"writeTimeout"`
	} `yaml:"server"`

	Database struct {
		Driver   string `yaml:"driver"` // mysql | postgres
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"sslMode"`

		MaxOpenConns    int      `yaml:"maxOpenConns"`
		MaxIdleConns    int      `yaml:"maxIdleConns"`
		ConnMaxLifetime Duration `yaml:"connMaxLifetime"`
	} `yaml:"database"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`

	LLM struct {
		APIKey       string   `yaml:"apiKey"`
		BaseURL      string   `yaml:"baseURL"`
		Model        string   `yaml:"model"`
		MaxTokens    int      `yaml:"maxTokens"`
		MaxRetries   int      `yaml:"maxRetries"`
		InitialDelay Duration `yaml:"initialDelay"`
	} `yaml:"llm"`

	Auth struct {
		JWTSecret string   `yaml:"jwtSecret"`
		TokenTTL  Duration `yaml:"tokenTTL"`
	} `yaml:"auth"`

	RateLimit struct {
		Backend           string  `yaml:"backend"` // memory | redis
		RequestsPerSecond float64 `yaml:"requestsPerSecond"`
		Burst             int     `yaml:"burst"`
	} `yaml:"rateLimit"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Upload struct {
		MaxBytes int64 `yaml:"maxBytes"`
	} `yaml:"upload"`

	Analysis struct {
		MaxContentBytes int `yaml:"maxContentBytes"`
	} `yaml:"analysis"`

	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Duration reads "1s", "250ms" style values from yaml.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = v
	return nil
}

// Load baca file config.yaml, then .env / environment overrides for secrets.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// .env is optional
	_ = godotenv.Load()
	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	overrideInt(&c.Server.Port, "PORT")
	override(&c.Database.Driver, "DB_DRIVER")
	override(&c.Database.Host, "DB_HOST")
	override(&c.Database.User, "DB_USER")
	override(&c.Database.Password, "DB_PASSWORD")
	override(&c.Database.Name, "DB_NAME")
	override(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	override(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	override(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	override(&c.LLM.APIKey, "LLM_API_KEY")
	override(&c.LLM.BaseURL, "LLM_BASE_URL")
	override(&c.LLM.Model, "LLM_MODEL")
	override(&c.Auth.JWTSecret, "JWT_SECRET")
	override(&c.Redis.Addr, "REDIS_ADDR")
	override(&c.Redis.Password, "REDIS_PASSWORD")
	override(&c.Log.Level, "LOG_LEVEL")
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Server.ReadTimeout.Duration == 0 {
		c.Server.ReadTimeout.Duration = 30 * time.Second
	}
	if c.Server.WriteTimeout.Duration == 0 {
		// room for the LLM call plus its backoff waits
		c.Server.WriteTimeout.Duration = 2 * time.Minute
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.LLM.MaxRetries <= 0 {
		c.LLM.MaxRetries = 3
	}
	if c.LLM.InitialDelay.Duration == 0 {
		c.LLM.InitialDelay.Duration = time.Second
	}
	if c.Auth.TokenTTL.Duration == 0 {
		c.Auth.TokenTTL.Duration = 24 * time.Hour
	}
	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = "memory"
	}
	if c.RateLimit.RequestsPerSecond <= 0 {
		c.RateLimit.RequestsPerSecond = 5
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = 20
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = 25 << 20
	}
	if c.Analysis.MaxContentBytes <= 0 {
		c.Analysis.MaxContentBytes = 100_000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("unsupported rate limit backend: %s", c.RateLimit.Backend)
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("auth.jwtSecret (JWT_SECRET) is required")
	}
	if c.Minio.Endpoint == "" || c.Minio.BucketName == "" {
		return errors.New("minio.endpoint and minio.bucketName are required")
	}
	return nil
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
