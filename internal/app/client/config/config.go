package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

const (
	defaultLogLevel             = "info"
	defaultEnv                  = EnvLocal
	defaultDataDir              = ".wealthtracker"
	defaultBackend              = BackendBolt
	defaultSessionTTL           = 8 * time.Hour
	defaultCleanupInitialDelay  = 5 * time.Second
	defaultCleanupInterval      = time.Hour
	defaultExpiryDays           = 30
	defaultCompressionThreshold = 10 * 1024
)

type Config struct {
	Env                  string        `mapstructure:"app_env"`
	LogLevel             string        `mapstructure:"log_level"`
	LogFile              string        `mapstructure:"log_file"`
	DataDir              string        `mapstructure:"data_dir"`
	DurableBackend       string        `mapstructure:"durable_backend"`
	DurablePath          string        `mapstructure:"durable_path"`
	LegacyPath           string        `mapstructure:"legacy_path"`
	SessionPath          string        `mapstructure:"session_path"`
	SessionTTL           time.Duration `mapstructure:"session_ttl"`
	CleanupInitialDelay  time.Duration `mapstructure:"cleanup_initial_delay"`
	CleanupInterval      time.Duration `mapstructure:"cleanup_interval"`
	DefaultExpiryDays    float64       `mapstructure:"default_expiry_days"`
	CompressionThreshold int           `mapstructure:"compression_threshold"`
	ManualCompression    bool          `mapstructure:"manual_compression"`
}

// MustLoad загружает конфигурацию клиента
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации: %v", err))
	}
	return cfg
}

// Load читает .env, переменные окружения и уже прочитанный viper-конфиг
func Load() (*Config, error) {
	// Определяем путь к .env файлу (относительно места запуска)
	envPath := ".env"
	if _, err := os.Stat(envPath); os.IsNotExist(err) {
		envPath = "../.env"
	}

	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()

	// Устанавливаем значения по умолчанию
	viper.SetDefault("APP_ENV", defaultEnv)
	viper.SetDefault("LOG_LEVEL", defaultLogLevel)
	viper.SetDefault("DATA_DIR", defaultDataDir)
	viper.SetDefault("DURABLE_BACKEND", defaultBackend)
	viper.SetDefault("SESSION_TTL", defaultSessionTTL)
	viper.SetDefault("CLEANUP_INITIAL_DELAY", defaultCleanupInitialDelay)
	viper.SetDefault("CLEANUP_INTERVAL", defaultCleanupInterval)
	viper.SetDefault("DEFAULT_EXPIRY_DAYS", defaultExpiryDays)
	viper.SetDefault("COMPRESSION_THRESHOLD", defaultCompressionThreshold)

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	dataDir := viper.GetString("DATA_DIR")
	if dataDir == defaultDataDir {
		dataDir = filepath.Join(homeDir, dataDir)
	}

	cfg := &Config{
		Env:                  viper.GetString("APP_ENV"),
		LogLevel:             viper.GetString("LOG_LEVEL"),
		LogFile:              viper.GetString("LOG_FILE"),
		DataDir:              dataDir,
		DurableBackend:       viper.GetString("DURABLE_BACKEND"),
		DurablePath:          viper.GetString("DURABLE_PATH"),
		LegacyPath:           viper.GetString("LEGACY_PATH"),
		SessionPath:          viper.GetString("SESSION_PATH"),
		SessionTTL:           viper.GetDuration("SESSION_TTL"),
		CleanupInitialDelay:  viper.GetDuration("CLEANUP_INITIAL_DELAY"),
		CleanupInterval:      viper.GetDuration("CLEANUP_INTERVAL"),
		DefaultExpiryDays:    viper.GetFloat64("DEFAULT_EXPIRY_DAYS"),
		CompressionThreshold: viper.GetInt("COMPRESSION_THRESHOLD"),
		ManualCompression:    viper.GetBool("MANUAL_COMPRESSION"),
	}
	cfg.applyPathDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyPathDefaults вычисляет пути хранилищ относительно DataDir
func (c *Config) applyPathDefaults() {
	if c.DurablePath == "" {
		switch c.DurableBackend {
		case BackendSQLite:
			c.DurablePath = filepath.Join(c.DataDir, "records.sqlite")
		default:
			c.DurablePath = filepath.Join(c.DataDir, "records.db")
		}
	}
	if c.LegacyPath == "" {
		c.LegacyPath = filepath.Join(c.DataDir, "legacy.json")
	}
	if c.SessionPath == "" {
		// Сессионное хранилище живет во временном каталоге и не переживает перезагрузку
		c.SessionPath = filepath.Join(os.TempDir(), "wealthtracker-"+sanitizeUser()+".session")
	}
}

func sanitizeUser() string {
	if u := os.Getenv("USER"); u != "" {
		return filepath.Base(u)
	}
	return "default"
}

func (c *Config) validate() error {
	switch c.DurableBackend {
	case BackendBolt, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("durable_backend должен быть bolt, sqlite или memory, получено %q", c.DurableBackend)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir не может быть пустым")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session_ttl должен быть положительным")
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("cleanup_interval должен быть положительным")
	}
	if c.CleanupInitialDelay < 0 {
		return fmt.Errorf("cleanup_initial_delay не может быть отрицательным")
	}
	if c.CompressionThreshold < 0 {
		return fmt.Errorf("compression_threshold не может быть отрицательным")
	}
	return nil
}

// IsProd проверяет, prod ли окружение
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// IsDev проверяет, dev ли окружение
func (c *Config) IsDev() bool {
	return c.Env == EnvDev
}

// IsLocal проверяет, local ли окружение
func (c *Config) IsLocal() bool {
	return c.Env == EnvLocal || c.Env == ""
}
