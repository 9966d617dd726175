// config реализует конфигурацию thinkedin: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
//
// Перед чтением подхватывается ./.env (уже заданные переменные не перетираются).
type Config struct {
	Env        string           `yaml:"env" env:"ENV" env-default:"local"`
	GRPC       GRPCConfig       `yaml:"grpc"`
	HTTP       HTTPConfig       `yaml:"http"`
	DB         DBConfig         `yaml:"db"`
	Redis      RedisConfig      `yaml:"redis"`
	NATS       NATSConfig       `yaml:"nats"`
	Auth       AuthConfig       `yaml:"auth"`
	Limits     LimitsConfig     `yaml:"limits"`
	Moderation ModerationConfig `yaml:"moderation"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Reactions  ReactionsConfig  `yaml:"reactions"`
	Chatbot    ChatbotConfig    `yaml:"chatbot"`
	Timeouts   TimeoutConfig    `yaml:"timeouts"`
}

// TimeoutConfig — сервисные таймауты.
type TimeoutConfig struct {
	// Service — общий дедлайн обработки запроса (HTTP и gRPC).
	Service time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
	// Shutdown — сколько ждём корректной остановки.
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// GRPCConfig — сетевые настройки gRPC-сервера (health).
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50055"`
	// HealthInterval — период проверки хранилища для статуса health.
	HealthInterval time.Duration `yaml:"health_interval" env:"GRPC_HEALTH_INTERVAL" env-default:"15s"`
}

// HTTPConfig — публичный HTTP API + health/metrics.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api"`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// DBConfig — настройки подключения к MongoDB.
type DBConfig struct {
	URL string `yaml:"url" env:"DATABASE_URL" env-required:"true"`
}

// RedisConfig — состояние устройств и rate limit.
// Пустой URL включает in-memory реализации (только для одного инстанса).
type RedisConfig struct {
	URL       string        `yaml:"url" env:"REDIS_URL"`
	Prefix    string        `yaml:"prefix" env:"REDIS_PREFIX" env-default:"thinkedin:"`
	DeviceTTL time.Duration `yaml:"device_ttl" env:"REDIS_DEVICE_TTL" env-default:"8760h"`
}

// NATSConfig — рассылка изменений счётчиков между инстансами.
// Пустой URL включает локальный hub.
type NATSConfig struct {
	URL           string `yaml:"url" env:"NATS_URL"`
	SubjectPrefix string `yaml:"subject_prefix" env:"NATS_SUBJECT_PREFIX" env-default:"thinkedin.reactions"`
}

// AuthConfig — проверка access-токенов внешнего провайдера.
type AuthConfig struct {
	JWTSecret string   `yaml:"jwt_secret" env:"JWT_SECRET" env-required:"true"`
	Issuer    string   `yaml:"issuer" env:"JWT_ISSUER" env-default:"auth-service"`
	Audience  []string `yaml:"audience" env:"JWT_AUDIENCE" env-default:"thinkedin"`
}

// LimitsConfig — лимиты выдачи и содержимого.
type LimitsConfig struct {
	// Размер ленты: limit=0 -> Default; верхняя граница — Max.
	Default int `yaml:"default" env:"DEFAULT_LIMIT" env-default:"50"`
	Max     int `yaml:"max" env:"MAX_LIMIT" env-default:"200"`
	// MaxDepth — глубина, после которой UI скрывает кнопку ответа. Данные не обрезаются.
	MaxDepth       int `yaml:"max_depth" env:"MAX_DEPTH" env-default:"3"`
	PostMaxLen     int `yaml:"post_max_len" env:"POST_MAX_LEN" env-default:"1000"`
	CommentMaxLen  int `yaml:"comment_max_len" env:"COMMENT_MAX_LEN" env-default:"500"`
	MaxTags        int `yaml:"max_tags" env:"MAX_TAGS" env-default:"10"`
	TagMaxLen      int `yaml:"tag_max_len" env:"TAG_MAX_LEN" env-default:"32"`
	SearchQueryMax int `yaml:"search_query_max" env:"SEARCH_QUERY_MAX" env-default:"100"`
}

// ModerationConfig — правила фильтра содержимого.
type ModerationConfig struct {
	PostMinLen            int           `yaml:"post_min_len" env:"MODERATION_POST_MIN_LEN" env-default:"10"`
	PostMaxLen            int           `yaml:"post_max_len" env:"MODERATION_POST_MAX_LEN" env-default:"1000"`
	PostDuplicateLimit    int           `yaml:"post_duplicate_limit" env:"MODERATION_POST_DUPLICATES" env-default:"2"`
	CommentDuplicateLimit int           `yaml:"comment_duplicate_limit" env:"MODERATION_COMMENT_DUPLICATES" env-default:"3"`
	DuplicateWindow       time.Duration `yaml:"duplicate_window" env:"MODERATION_DUPLICATE_WINDOW" env-default:"24h"`
	// RemoteURL — внешний валидатор (AI); пусто — только статические правила.
	RemoteURL     string        `yaml:"remote_url" env:"MODERATION_REMOTE_URL"`
	RemoteTimeout time.Duration `yaml:"remote_timeout" env:"MODERATION_REMOTE_TIMEOUT" env-default:"2s"`
}

// ChatbotConfig — подбор постов языковой моделью.
// URL пустой — подбор выключен.
type ChatbotConfig struct {
	URL     string        `yaml:"url" env:"CHATBOT_URL"`
	APIKey  string        `yaml:"api_key" env:"CHATBOT_API_KEY"`
	Timeout time.Duration `yaml:"timeout" env:"CHATBOT_TIMEOUT" env-default:"15s"`
	// Posts — сколько свежих постов показывать модели.
	Posts        int `yaml:"posts" env:"CHATBOT_POSTS" env-default:"20"`
	PromptMaxLen int `yaml:"prompt_max_len" env:"CHATBOT_PROMPT_MAX_LEN" env-default:"500"`
}

// RateLimitConfig — частота публикаций с одного устройства.
type RateLimitConfig struct {
	PostWindow time.Duration `yaml:"post_window" env:"RATE_LIMIT_POST_WINDOW" env-default:"10s"`
}

// ReactionsConfig — фоновая синхронизация счётчиков.
type ReactionsConfig struct {
	SyncTimeout time.Duration `yaml:"sync_timeout" env:"REACTIONS_SYNC_TIMEOUT" env-default:"5s"`
	// CacheSize — сколько постов держать с отображаемыми счётчиками в памяти.
	CacheSize int `yaml:"cache_size" env:"REACTIONS_CACHE_SIZE" env-default:"10000"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла накладываем ENV-переменные поверх значений из YAML.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	var cfg Config

	readFile := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return &cfg, nil
	}

	var (
		c   *Config
		err error
	)

	switch {
	case path != "":
		c, err = readFile(path)
	case os.Getenv("CONFIG_PATH") != "":
		c, err = readFile(os.Getenv("CONFIG_PATH"))
	default:
		if _, statErr := os.Stat("local.yaml"); statErr == nil {
			c, err = readFile("local.yaml")
			break
		}

		if envErr := cleanenv.ReadEnv(&cfg); envErr != nil {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", envErr)
		}
		c = &cfg
	}

	if err != nil {
		return nil, err
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// loadDotEnv подхватывает .env, если файл есть. Отсутствие файла — не ошибка.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	return nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	if c.DB.URL == "" {
		return fmt.Errorf("db.url is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}

	if c.Limits.Default <= 0 || c.Limits.Max <= 0 {
		return fmt.Errorf("limits.default and limits.max must be > 0")
	}

	if c.Limits.Default > c.Limits.Max {
		return fmt.Errorf("limits.default must be <= limits.max")
	}

	if c.Limits.MaxDepth <= 0 || c.Limits.MaxDepth > 32 {
		return fmt.Errorf("limits.max_depth must be in [1, 32]")
	}

	if c.Limits.PostMaxLen <= 0 || c.Limits.CommentMaxLen <= 0 {
		return fmt.Errorf("limits.post_max_len and limits.comment_max_len must be > 0")
	}

	if c.Moderation.PostMinLen < 0 || c.Moderation.PostMinLen > c.Moderation.PostMaxLen {
		return fmt.Errorf("moderation.post_min_len must be in [0, post_max_len]")
	}

	if c.Moderation.PostDuplicateLimit <= 0 || c.Moderation.CommentDuplicateLimit <= 0 {
		return fmt.Errorf("moderation duplicate limits must be > 0")
	}

	if c.Moderation.DuplicateWindow <= 0 {
		return fmt.Errorf("moderation.duplicate_window must be > 0")
	}

	if c.RateLimit.PostWindow < 0 {
		return fmt.Errorf("rate_limit.post_window must be >= 0")
	}

	if c.Chatbot.Posts <= 0 || c.Chatbot.PromptMaxLen <= 0 {
		return fmt.Errorf("chatbot.posts and chatbot.prompt_max_len must be > 0")
	}

	return nil
}
