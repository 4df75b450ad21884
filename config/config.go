package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// AppConfig holds file and environment driven configuration values.
// Credentials should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort          string   `env:"APP_PORT"`
	AllowedOrigins   []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimitPerMin  int      `env:"RATE_LIMIT_PER_MINUTE"`
	DiagnosticsToken string   `env:"DIAGNOSTICS_TOKEN"`
	// Gin framework configuration
	GinMode string `env:"GIN_MODE"`
	GinPath string `env:"GIN_PATH"`
	// Logging configuration
	LogLevel      string `env:"LOG_LEVEL"`
	LogPath       string `env:"LOG_PATH"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS"`
	LogCompress   bool   `env:"LOG_COMPRESS"`
	// Redis backs the session store
	RedisHost     string `env:"REDIS_HOST"`
	RedisPort     int    `env:"REDIS_PORT"`
	RedisDB       int    `env:"REDIS_DB"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	// Session store
	SessionBackend string        `env:"SESSION_BACKEND"`
	SessionTTL     time.Duration `env:"SESSION_TTL"`
	// Database for uploaded file metadata
	DBDriver    string `env:"DB_DRIVER"`
	DatabaseURI string `env:"DATABASE_URI"`
	DBHost      string `env:"DB_HOST"`
	DBPort      string `env:"DB_PORT"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`
	// Blob storage
	StorageDriver   string `env:"STORAGE_DRIVER"`
	StorageDir      string `env:"STORAGE_DIR"`
	MediaURLPrefix  string `env:"MEDIA_URL_PREFIX"`
	MinioEndpoint   string `env:"MINIO_ENDPOINT"`
	MinioAccessKey  string `env:"MINIO_ACCESS_KEY"`
	MinioSecretKey  string `env:"MINIO_SECRET_KEY"`
	MinioBucket     string `env:"MINIO_BUCKET"`
	MinioRegion     string `env:"MINIO_REGION"`
	MinioUseSSL     bool   `env:"MINIO_USE_SSL"`
	FileRetention   int    `env:"FILE_RETENTION_HOURS"`
	CleanerInterval string `env:"CLEANER_INTERVAL"`
	// Completion provider; a provider counts as configured only when its key is set
	ProviderName    string        `env:"PROVIDER"`
	ProviderModel   string        `env:"PROVIDER_MODEL"`
	ProviderBaseURL string        `env:"PROVIDER_BASE_URL"`
	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT"`
	OpenAIAPIKey    string        `env:"OPENAI_API_KEY"`
	AnthropicAPIKey string        `env:"ANTHROPIC_API_KEY"`
}

// fileConfig mirrors the grouped layout of config/config.json.
type fileConfig struct {
	App struct {
		AppPort          string   `json:"AppPort"`
		AllowedOrigins   []string `json:"AllowedOrigins"`
		RateLimitPerMin  int      `json:"RateLimitPerMinute"`
		DiagnosticsToken string   `json:"DiagnosticsToken"`
	} `json:"app"`
	Log struct {
		Level      string `json:"Level"`
		Path       string `json:"Path"`
		GinMode    string `json:"GinMode"`
		GinPath    string `json:"GinPath"`
		MaxSizeMB  int    `json:"MaxSizeMB"`
		MaxBackups int    `json:"MaxBackups"`
		MaxAgeDays int    `json:"MaxAgeDays"`
		Compress   bool   `json:"Compress"`
	} `json:"log"`
	Redis struct {
		Host     string `json:"RedisHost"`
		Port     int    `json:"RedisPort"`
		DB       int    `json:"RedisDB"`
		Password string `json:"RedisPassword"`
	} `json:"redis"`
	Session struct {
		Backend    string `json:"Backend"`
		TTLMinutes int    `json:"TTLMinutes"`
	} `json:"session"`
	Database struct {
		Driver      string `json:"Driver"`
		DatabaseURI string `json:"DatabaseURI"`
		DBHost      string `json:"DBHost"`
		DBPort      string `json:"DBPort"`
		DBUser      string `json:"DBUser"`
		DBPassword  string `json:"DBPassword"`
		DBName      string `json:"DBName"`
	} `json:"database"`
	Storage struct {
		Driver         string `json:"Driver"`
		Dir            string `json:"Dir"`
		MediaURLPrefix string `json:"MediaURLPrefix"`
		MinioEndpoint  string `json:"MinioEndpoint"`
		MinioAccessKey string `json:"MinioAccessKey"`
		MinioSecretKey string `json:"MinioSecretKey"`
		MinioBucket    string `json:"MinioBucket"`
		MinioRegion    string `json:"MinioRegion"`
		MinioUseSSL    bool   `json:"MinioUseSSL"`
	} `json:"storage"`
	Files struct {
		RetentionHours  int    `json:"RetentionHours"`
		CleanerInterval string `json:"CleanerInterval"`
	} `json:"files"`
	Provider struct {
		Name           string `json:"Name"`
		Model          string `json:"Model"`
		BaseURL        string `json:"BaseURL"`
		TimeoutSeconds int    `json:"TimeoutSeconds"`
	} `json:"provider"`
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration once during boot and caches it.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// A local .env is optional; real environment variables still win.
	_ = godotenv.Load()

	c, err := LoadFrom(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// LoadFrom builds a configuration without touching the cache.
// Precedence: JSON file -> defaults -> environment variables.
func LoadFrom(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, err
	}
	applyDefaults(&c)
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	return c, nil
}

// ProviderAPIKey returns the credential of the selected completion provider.
func (c AppConfig) ProviderAPIKey() string {
	switch c.ProviderName {
	case "anthropic":
		return c.AnthropicAPIKey
	default:
		return c.OpenAIAPIKey
	}
}

// loadJSONConfig reads the JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}

	var fc fileConfig
	if err := json.Unmarshal(b, &fc); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out.AppPort = fc.App.AppPort
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.RateLimitPerMin = fc.App.RateLimitPerMin
	out.DiagnosticsToken = fc.App.DiagnosticsToken

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.GinMode = fc.Log.GinMode
	out.GinPath = fc.Log.GinPath
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.RedisHost = fc.Redis.Host
	out.RedisPort = fc.Redis.Port
	out.RedisDB = fc.Redis.DB
	out.RedisPassword = fc.Redis.Password

	out.SessionBackend = fc.Session.Backend
	if fc.Session.TTLMinutes > 0 {
		out.SessionTTL = time.Duration(fc.Session.TTLMinutes) * time.Minute
	}

	out.DBDriver = fc.Database.Driver
	out.DatabaseURI = fc.Database.DatabaseURI
	out.DBHost = fc.Database.DBHost
	out.DBPort = fc.Database.DBPort
	out.DBUser = fc.Database.DBUser
	out.DBPassword = fc.Database.DBPassword
	out.DBName = fc.Database.DBName

	out.StorageDriver = fc.Storage.Driver
	out.StorageDir = fc.Storage.Dir
	out.MediaURLPrefix = fc.Storage.MediaURLPrefix
	out.MinioEndpoint = fc.Storage.MinioEndpoint
	out.MinioAccessKey = fc.Storage.MinioAccessKey
	out.MinioSecretKey = fc.Storage.MinioSecretKey
	out.MinioBucket = fc.Storage.MinioBucket
	out.MinioRegion = fc.Storage.MinioRegion
	out.MinioUseSSL = fc.Storage.MinioUseSSL

	out.FileRetention = fc.Files.RetentionHours
	out.CleanerInterval = fc.Files.CleanerInterval

	out.ProviderName = fc.Provider.Name
	out.ProviderModel = fc.Provider.Model
	out.ProviderBaseURL = fc.Provider.BaseURL
	if fc.Provider.TimeoutSeconds > 0 {
		out.ProviderTimeout = time.Duration(fc.Provider.TimeoutSeconds) * time.Second
	}
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMin == 0 {
		c.RateLimitPerMin = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.SessionBackend == "" {
		c.SessionBackend = "redis"
	}
	if c.SessionTTL == 0 {
		c.SessionTTL = 24 * time.Hour
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "chatdesk"
	}
	if c.StorageDriver == "" {
		c.StorageDriver = "local"
	}
	if c.StorageDir == "" {
		c.StorageDir = "media"
	}
	if c.MediaURLPrefix == "" {
		c.MediaURLPrefix = "/media"
	}
	if c.MinioBucket == "" {
		c.MinioBucket = "chatdesk-uploads"
	}
	if c.CleanerInterval == "" {
		c.CleanerInterval = "@every 5m"
	}
	if c.ProviderName == "" {
		c.ProviderName = "openai"
	}
	if c.ProviderTimeout == 0 {
		c.ProviderTimeout = 30 * time.Second
	}
}
