package config

import (
	"fmt"
	"net"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath = ".env"

	defaultRunAddress = "127.0.0.1:8080"
	defaultEnv        = "local"
)

// Config локального API поверх движка хранения
type Config struct {
	Env    string
	Server server
	Auth   auth
}

type server struct {
	RunAddress string `env:"RUN_ADDRESS"`
}

type auth struct {
	// Token - статический bearer-токен, пустой отключает проверку
	Token string `env:"API_TOKEN"`
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("Ошибка конфигурации API: %v", err))
	}
	return cfg
}

func Load() (*Config, error) {
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			fmt.Fprintf(os.Stderr, "Ошибка загрузки .env файла: %v\n", err)
		}
	}

	viper.AutomaticEnv()
	viper.SetDefault("RUN_ADDRESS", defaultRunAddress)
	viper.SetDefault("APP_ENV", defaultEnv)

	cfg := &Config{
		Env:    viper.GetString("APP_ENV"),
		Server: server{RunAddress: viper.GetString("RUN_ADDRESS")},
		Auth:   auth{Token: viper.GetString("API_TOKEN")},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	host, _, err := net.SplitHostPort(c.Server.RunAddress)
	if err != nil {
		return fmt.Errorf("run_address %q: %w", c.Server.RunAddress, err)
	}
	if !isLoopback(host) && c.Auth.Token == "" {
		return fmt.Errorf("api_token обязателен при адресе %q вне loopback", c.Server.RunAddress)
	}
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
