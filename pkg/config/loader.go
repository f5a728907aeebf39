package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"sync"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

var (
	loadedConfig *BotConfig

	configMutex sync.RWMutex
)

// LoadEnvFile loads KEY=VALUE pairs from the given dotenv files into the process
// environment. Missing files are skipped; variables already set are kept.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file '%s': %w", path, err)
		}
		log.Printf("Environment loaded from %s", path)
	}
	return nil
}

func LoadConfig(filePath string) error {
	log.Printf("Loading configuration from %s...", filePath)

	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file '%s': %w", filePath, err)
	}

	cfg, err := Parse(yamlFile)
	if err != nil {
		return fmt.Errorf("failed to load '%s': %w", filePath, err)
	}

	configMutex.Lock()
	loadedConfig = cfg
	configMutex.Unlock()

	log.Printf("Configuration loaded and validated successfully. %d business types, backend %s.", len(cfg.BusinessTypes), cfg.Backend.BaseURL)
	return nil
}

// Parse decodes YAML, fills defaults, applies environment overrides and validates.
func Parse(data []byte) (*BotConfig, error) {
	var cfg BotConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	cfg.ApplyDefaults()
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func GetConfig() *BotConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if loadedConfig == nil {
		log.Println("Warning: GetConfig() called before configuration was loaded.")
	}
	return loadedConfig
}

// SetConfig is intended for tests.
func SetConfig(cfg *BotConfig) {
	configMutex.Lock()
	loadedConfig = cfg
	configMutex.Unlock()
}
