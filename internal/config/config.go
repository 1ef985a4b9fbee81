// Package config предоставляет структуры и функцию для парсинга и загрузки конфига
package config

import (
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config общая структура для хранения настроек
type Config struct {
	Env                     string `yaml:"env" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	JWTToken                `yaml:"jwttoken"`
	Inference               `yaml:"inference"`
	Billing                 `yaml:"billing"`
	Dispatcher              `yaml:"dispatcher"`
	Telegram                `yaml:"telegram"`
}

// HTTPServer структура для настройки сервера
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:"0.0.0.0:8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"90s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"120s"`
}

// RedisConnection структура для настройки подключения к redis
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env-default:"localhost:6379"`
	Password     string        `yaml:"password"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries" env-default:"3"`
	DialTimeout  time.Duration `yaml:"dial_timeout" env-default:"5s"`
	TimeoutRedis time.Duration `yaml:"timeoutredis" env-default:"3s"`
}

// JWTToken структура для работы с jwt-токеном
type JWTToken struct {
	JWTSecretKey string        `yaml:"jwt_secret_key"`
	TokenTTL     time.Duration `yaml:"token_ttl" env-default:"720h"`
}

// Inference структура для настройки клиента внешнего inference-сервиса.
// APIURL указывает на базовый адрес OpenAI-совместимого endpoint (например, vLLM).
type Inference struct {
	APIURL         string        `yaml:"api_url"`
	ModelName      string        `yaml:"model_name" env-default:"default"`
	RequestTimeout time.Duration `yaml:"request_timeout" env-default:"30s"`
}

// Billing структура для настройки тарификации.
// Стоимость покупки подписки считается как RatePerDay * SubscriptionDays.
type Billing struct {
	RatePerDay       int `yaml:"rate_per_day" env-default:"10"`
	SubscriptionDays int `yaml:"subscription_days" env-default:"30"`
}

// Dispatcher структура для настройки ожидания ответа от inference-воркера
type Dispatcher struct {
	ReplyTimeout time.Duration `yaml:"reply_timeout" env-default:"60s"`
	PollInterval time.Duration `yaml:"poll_interval" env-default:"500ms"`
}

// Telegram структура для настройки телеграм-бота
type Telegram struct {
	BotToken string `yaml:"bot_token"`
}

// MustLoad функция для загрузки конфига, путь берется из переменной окружения CONFIG_PATH
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
