package main

import (
	"errors"
	"fmt"
	"strings"

	"questmart/internal/repository"

	"github.com/spf13/viper"
)

const (
	configPath   = "./"
	configName   = "config"
	configFormat = "yaml"
)

const (
	storageMemory   = "memory"
	storagePostgres = "postgres"
)

type Config struct {
	Database repository.Config `mapstructure:"database"`
	Server   ServerConfig      `mapstructure:"server"`
	Storage  StorageConfig     `mapstructure:"storage"`
	Catalog  CatalogConfig     `mapstructure:"catalog"`
	Ledger   LedgerConfig      `mapstructure:"ledger"`
	Level    LevelConfig       `mapstructure:"level"`

	TelegramAuth TelegramAuthConfig `mapstructure:"telegramAuth"`

	LogLevel    string `mapstructure:"logLevel"`
	LogEncoding string `mapstructure:"logEncoding"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type CatalogConfig struct {
	Path string `mapstructure:"path"`
}

type LedgerConfig struct {
	StartingBalance int64 `mapstructure:"startingBalance"`
	StartingLevel   int   `mapstructure:"startingLevel"`
}

type LevelConfig struct {
	QuestsPerLevel int   `mapstructure:"questsPerLevel"`
	CoinsPerLevel  int64 `mapstructure:"coinsPerLevel"`
}

type TelegramAuthConfig struct {
	TelegramBotToken string `mapstructure:"telegramBotToken"`
	DebugMode        bool   `mapstructure:"debugMode"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logLevel", "info")
	v.SetDefault("logEncoding", "json")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("storage.driver", storageMemory)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.name", "questmart")
	v.SetDefault("catalog.path", "")
	v.SetDefault("ledger.startingBalance", 100)
	v.SetDefault("ledger.startingLevel", 1)
	v.SetDefault("level.questsPerLevel", 5)
	v.SetDefault("level.coinsPerLevel", 0)
	v.SetDefault("telegramAuth.telegramBotToken", "")
	v.SetDefault("telegramAuth.debugMode", false)
}

// LoadConfig reads config.yaml if present. Every key can be overridden from
// the environment, e.g. APP_SERVER_PORT.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigName(configName)
	v.AddConfigPath(configPath)
	v.SetConfigType(configFormat)

	v.AutomaticEnv()
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case storageMemory, storagePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if !c.TelegramAuth.DebugMode && c.TelegramAuth.TelegramBotToken == "" {
		return errors.New("telegramAuth.telegramBotToken is required unless debugMode is set")
	}
	return nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}
