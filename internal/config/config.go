// Package config предоставляет структуры и функцию для парсинга и загрузки конфига.
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек движка и его окружения.
type Config struct {
	Env                     string `yaml:"env"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	RabbitMQ                `yaml:"rabbitmq"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Engine                  `yaml:"engine"`
	TicketProvider          `yaml:"ticket_provider"`
	TokenBank               `yaml:"token_bank"`
	Admin                   `yaml:"admin"`
	BatchRunner             `yaml:"batch_runner"`
}

// Engine параметры ядра движка.
type Engine struct {
	BatchSize               uint64        `yaml:"batch_size" env-default:"100"`
	ProcessingInterval      time.Duration `yaml:"processing_interval" env-default:"24h"`
	ImmediateCashbackBps    uint64        `yaml:"immediate_cashback_bps" env-default:"500"`
	SubscriptionCashbackBps uint64        `yaml:"subscription_cashback_bps" env-default:"300"`
	CancellationTaxBps      uint64        `yaml:"cancellation_tax_bps" env-default:"2000"`
	Referrer                string        `yaml:"referrer"`
	ReserveAccount          string        `yaml:"reserve_account"`
}

// TicketProvider настройки клиента внешнего лотерейного сервиса.
type TicketProvider struct {
	TicketAPIURL  string        `yaml:"api_url"`
	TicketAPIKey  string        `yaml:"api_key"`
	TicketAccount string        `yaml:"account"` // токен-аккаунт сервиса, получающий allowance
	TicketTimeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// TokenBank настройки клиента токен-банка.
type TokenBank struct {
	TokenAPIURL  string        `yaml:"api_url"`
	TokenAPIKey  string        `yaml:"api_key"`
	TokenTimeout time.Duration `yaml:"timeout" env-default:"10s"`
}

// Admin учётные данные администратора движка.
type Admin struct {
	AdminUsername     string `yaml:"username"`
	AdminPasswordHash string `yaml:"password_hash"` // bcrypt-хэш пароля
}

// BatchRunner настройки внешнего драйвера батчей.
type BatchRunner struct {
	EngineAPIURL   string        `yaml:"engine_api_url"`
	RunnerInterval time.Duration `yaml:"runner_interval" env-default:"1h"`
}

// HTTPServer структура для настройки сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp"`
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// RedisConnection структура для настройки подключения к redis.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// RabbitMQ структура для настройки подключения к брокеру событий.
type RabbitMQ struct {
	RabbitMQURL        string        `yaml:"url"`
	RabbitMQMaxRetries int           `yaml:"max_retries" env-default:"10"`
	RabbitMQRetryDelay time.Duration `yaml:"retry_delay" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном администратора.
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
}

// MustLoad загружает конфиг по пути из CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	return &cfg
}
