// Package config предоставялет структуры и функции для парсинга и загрузки конфига
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string          `yaml:"env" env:"ENV" env-default:"local"`
	AppName                 string          `yaml:"app_name" env:"APP_NAME" env-default:"Stock Insight"`
	FrontendHost            string          `yaml:"frontend_host" env:"FRONTEND_HOST" env-default:"http://localhost:3000"`
	StorageConnectionString string          `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING" env-required:"true"`
	MigrationsPath          string          `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"./migrations"`
	HTTPServer              HTTPServer      `yaml:"http_server"`
	JWTToken                JWTToken        `yaml:"jwttoken"`
	RedisConnection         RedisConnection `yaml:"redis_connection"`
	RabbitMQ                RabbitMQ        `yaml:"rabbitmq"`
	SMTP                    SMTP            `yaml:"smtp"`
	RateLimit               RateLimit       `yaml:"rate_limit"`
	TokenCleanup            TokenCleanup    `yaml:"token_cleanup"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env:"HTTP_ADDRESS" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"5s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// JWTToken настройки подписи токенов. Access и refresh токены подписываются разными секретами.
type JWTToken struct {
	JWTSecret                 string `yaml:"jwt_secret" env:"JWT_SECRET"`
	JWTAlgorithm              string `yaml:"jwt_algorithm" env:"JWT_ALGORITHM" env-default:"HS256"`
	AccessTokenExpireMinutes  int    `yaml:"access_token_expire_minutes" env:"ACCESS_TOKEN_EXPIRE_MINUTES" env-default:"15"`
	RefreshTokenExpireMinutes int    `yaml:"refresh_token_expire_minutes" env:"REFRESH_TOKEN_EXPIRE_MINUTES" env-default:"1440"`
	SecretKey                 string `yaml:"secret_key" env:"SECRET_KEY"`
}

// AccessTTL время жизни access токена
func (j JWTToken) AccessTTL() time.Duration {
	return time.Duration(j.AccessTokenExpireMinutes) * time.Minute
}

// RefreshTTL время жизни refresh токена и записи о токене в базе
func (j JWTToken) RefreshTTL() time.Duration {
	return time.Duration(j.RefreshTokenExpireMinutes) * time.Minute
}

// RedisConnection структура для настройки подключения к redis. Пустой адрес отключает кэш.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
	TTL          time.Duration `yaml:"ttl" env-default:"5m"`
}

// RabbitMQ настройки брокера для отправки писем
type RabbitMQ struct {
	URL             string        `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	Exchange        string        `yaml:"exchange" env-default:"notifications"`
	EmailQueue      string        `yaml:"email_queue" env-default:"email_notifications"`
	EmailRoutingKey string        `yaml:"email_routing_key" env-default:"email"`
	MaxRetries      int           `yaml:"max_retries" env-default:"5"`
	RetryDelay      time.Duration `yaml:"retry_delay" env-default:"10s"`
}

// SMTP настройки почтового сервера
type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	User     string `yaml:"user" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM"`
}

// TokenCleanup периодическое удаление истёкших записей токенов
type TokenCleanup struct {
	Interval  time.Duration `yaml:"interval" env-default:"1h"`
	Retention time.Duration `yaml:"retention" env-default:"168h"`
}

// RateLimit ограничение частоты запросов на публичные auth-ручки
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

var (
	ErrMissingSecret = errors.New("jwt_secret and secret_key must be set")
	ErrSharedSecret  = errors.New("jwt_secret and secret_key must differ")
	ErrAlgorithm     = errors.New("jwt_algorithm must be one of HS256, HS384, HS512")
	ErrTTL           = errors.New("token expire minutes must be positive")
	ErrRateLimit     = errors.New("rate_limit.rps and rate_limit.burst must be positive")
	ErrCleanup       = errors.New("token_cleanup.interval must be positive and retention not negative")
	ErrRetry         = errors.New("rabbitmq.max_retries and rabbitmq.retry_delay must not be negative")
)

// MustLoad функция для загрузки конфига по пути из CONFIG_PATH, при ошибке завершает процесс
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return cfg
}

// Load читает yaml-файл, накладывает переменные окружения и валидирует результат
func Load(configPath string) (*Config, error) {
	const op = "config.Load"
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: file %s does not exist", op, configPath)
	}
	var cfg Config
	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

// Validate проверяет настройки токенов и значения, которые не могут быть нулевыми
func (c *Config) Validate() error {
	j := c.JWTToken
	if j.JWTSecret == "" || j.SecretKey == "" {
		return ErrMissingSecret
	}
	if j.JWTSecret == j.SecretKey {
		return ErrSharedSecret
	}
	switch j.JWTAlgorithm {
	case "HS256", "HS384", "HS512":
	default:
		return ErrAlgorithm
	}
	if j.AccessTokenExpireMinutes <= 0 || j.RefreshTokenExpireMinutes <= 0 {
		return ErrTTL
	}
	if c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0 {
		return ErrRateLimit
	}
	if c.TokenCleanup.Interval <= 0 || c.TokenCleanup.Retention < 0 {
		return ErrCleanup
	}
	if c.RabbitMQ.MaxRetries < 0 || c.RabbitMQ.RetryDelay < 0 {
		return ErrRetry
	}
	return nil
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	return "***"
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"AppName: %s\n"+
			"FrontendHost: %s\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"JWTToken:\n"+
			"  JWTSecret: %s\n"+
			"  JWTAlgorithm: %s\n"+
			"  AccessTTL: %s\n"+
			"  RefreshTTL: %s\n"+
			"  SecretKey: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  Password: %s\n"+
			"  DB: %d\n"+
			"RabbitMQ:\n"+
			"  Exchange: %s\n"+
			"  EmailQueue: %s\n"+
			"SMTP:\n"+
			"  Host: %s\n"+
			"  Port: %d\n"+
			"  Password: %s\n",
		c.Env,
		c.AppName,
		c.FrontendHost,
		c.HTTPServer.AddressHTTP,
		c.HTTPServer.TimeoutHTTP,
		c.HTTPServer.IdleTimeout,
		mask(c.JWTToken.JWTSecret),
		c.JWTToken.JWTAlgorithm,
		c.JWTToken.AccessTTL(),
		c.JWTToken.RefreshTTL(),
		mask(c.JWTToken.SecretKey),
		c.RedisConnection.AddressRedis,
		mask(c.RedisConnection.Password),
		c.RedisConnection.DB,
		c.RabbitMQ.Exchange,
		c.RabbitMQ.EmailQueue,
		c.SMTP.Host,
		c.SMTP.Port,
		mask(c.SMTP.Password),
	)
}
