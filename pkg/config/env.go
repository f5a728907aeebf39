package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	EnvConfigPath    = "BOT_CONFIG_PATH"
	EnvTelegramToken = "TELEGRAM_BOT_TOKEN"
	EnvBackendURL    = "BACKEND_BASE_URL"
	EnvOpsAddr       = "OPS_ADDR"
	EnvJournalDSN    = "JOURNAL_DSN"
)

// ConfigPath returns BOT_CONFIG_PATH or the default file name.
func ConfigPath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return "bot_config.yaml"
}

// TelegramToken reads TELEGRAM_BOT_TOKEN.
func TelegramToken() (string, error) {
	token := strings.TrimSpace(os.Getenv(EnvTelegramToken))
	if token == "" {
		return "", fmt.Errorf("%s environment variable not set", EnvTelegramToken)
	}
	return token, nil
}

func applyEnvOverrides(cfg *BotConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvOpsAddr)); v != "" {
		cfg.Ops.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJournalDSN)); v != "" {
		cfg.Journal.DSN = v
	}
}
