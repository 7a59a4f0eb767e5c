package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config 程序运行配置，全部来自环境变量 (可由 .env 提供)
type Config struct {
	Log LogConfig

	// DefaultAttacks is used when -num_attacks / .dpr omit the attack count.
	DefaultAttacks int    `env:"DPR_DEFAULT_ATTACKS" envDefault:"1"`
	SnapshotDir    string `env:"SNAPSHOT_DIR" envDefault:"."`

	OneBot OneBotConfig
	AI     AIConfig
}

// LogConfig controls logrus output and the optional rotating file.
type LogConfig struct {
	Level          string `env:"LOG_LEVEL" envDefault:"info"`
	Format         string `env:"LOG_FORMAT" envDefault:"text"`
	FileEnabled    bool   `env:"LOG_FILE_ENABLED" envDefault:"false"`
	FilePath       string `env:"LOG_FILE_PATH" envDefault:"logs/dprcalc.log"`
	FileMaxSizeMB  int    `env:"LOG_FILE_MAX_SIZE_MB" envDefault:"10"`
	FileMaxBackups int    `env:"LOG_FILE_MAX_BACKUPS" envDefault:"5"`
	FileMaxAgeDays int    `env:"LOG_FILE_MAX_AGE_DAYS" envDefault:"30"`
}

type OneBotConfig struct {
	WSURL       string `env:"ONEBOT_WS_URL"`
	AccessToken string `env:"ONEBOT_ACCESS_TOKEN"`
}

type AIConfig struct {
	APIKey  string `env:"OPENAI_API_KEY"`
	BaseURL string `env:"OPENAI_BASE_URL" envDefault:"https://api.deepseek.com"`
	Model   string `env:"MODEL_NAME" envDefault:"deepseek-chat"`
}

// Load reads the given .env files (default ".env") and parses the environment.
// A missing .env file is not an error.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil {
		logrus.Warn("Error loading .env file, relying on system environment variables")
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DefaultAttacks < 0 {
		return nil, fmt.Errorf("DPR_DEFAULT_ATTACKS must not be negative, got %d", cfg.DefaultAttacks)
	}
	return cfg, nil
}
