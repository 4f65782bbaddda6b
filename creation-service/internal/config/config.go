package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"nicepods-server/shared/utils"

	"github.com/kelseyhightower/envconfig"
)

// Config содержит инфраструктурную конфигурацию Creation Service.
type Config struct {
	// Настройки сервера
	Port               string `envconfig:"CREATION_SERVER_PORT" default:"8085"`
	Env                string `envconfig:"ENV" default:"production"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding        string `envconfig:"LOG_ENCODING" default:"json"`
	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`

	// Настройки PostgreSQL
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int32         `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Секретное поле БЕЗ envconfig тега
	DBPassword string

	// Настройки Redis (сессии мастера)
	RedisAddr string `envconfig:"REDIS_ADDR" default:"redis:6379"`
	RedisDB   int    `envconfig:"REDIS_DB" default:"0"`
	// Необязательный секрет
	RedisPassword string

	// Настройки RabbitMQ
	RabbitMQURL            string `envconfig:"RABBITMQ_URL" required:"true"`
	CacheInvalidationQueue string `envconfig:"CACHE_INVALIDATION_QUEUE" default:"cache_invalidation"`
	ProductionTaskQueue    string `envconfig:"PRODUCTION_TASK_QUEUE" default:"podcast_production_tasks"`
	ProductionDLX          string `envconfig:"PRODUCTION_TASK_DLX" default:"podcast_production_dlx"`

	// Настройки AI
	AIClientType     string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL        string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel          string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout        time.Duration `envconfig:"AI_TIMEOUT" default:"150s"`
	AIMaxInputTokens int           `envconfig:"AI_MAX_INPUT_TOKENS" default:"12000"`
	// Секрет, обязателен только для openai
	AIAPIKey string

	// Путь к файлу тонкой настройки мастера
	WizardConfigPath string `envconfig:"WIZARD_CONFIG_PATH" default:"wizard.yml"`

	// Секретное поле БЕЗ envconfig тега
	JWTSecret string
}

// GetDSN возвращает строку подключения (DSN) для PostgreSQL
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// GetAllowedOrigins разбивает CORSAllowedOrigins на список.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	var origins []string
	for _, o := range strings.Split(strings.ReplaceAll(c.CORSAllowedOrigins, " ", ""), ",") {
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// LoadConfig загружает конфигурацию из переменных окружения и секретов
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("ошибка загрузки конфигурации creation-service: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = utils.ReadSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.JWTSecret, loadErr = utils.ReadSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}
	cfg.RedisPassword = utils.ReadOptionalSecret("redis_password")
	cfg.AIAPIKey = utils.ReadOptionalSecret("ai_api_key")
	if cfg.AIClientType == "openai" && cfg.AIAPIKey == "" {
		return nil, fmt.Errorf("secret ai_api_key is required for AI_CLIENT_TYPE=openai")
	}

	log.Printf("Конфигурация Creation Service загружена (секреты из файлов):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Redis: %s (db %d)", cfg.RedisAddr, cfg.RedisDB)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  Queues: %s, %s (dlx %s)", cfg.CacheInvalidationQueue, cfg.ProductionTaskQueue, cfg.ProductionDLX)
	log.Printf("  AI: %s %s (%s)", cfg.AIClientType, cfg.AIModel, cfg.AIBaseURL)
	log.Printf("  Wizard config: %s", cfg.WizardConfigPath)
	log.Println("  JWT Secret: [ЗАГРУЖЕН]")

	return &cfg, nil
}
