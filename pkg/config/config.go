package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App       AppConfig                 `yaml:"app"`
	Providers map[string]ProviderConfig `yaml:"providers"`
	Storage   StorageConfig             `yaml:"storage"`
	Engine    EngineConfig              `yaml:"engine"`
}

type AppConfig struct {
	Name       string `yaml:"name"`
	PromptsDir string `yaml:"prompts_dir"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url,omitempty"`
	Enabled bool   `yaml:"enabled"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type EngineConfig struct {
	GenerationTimeoutSeconds int    `yaml:"generation_timeout_seconds"`
	MaxDepth                 int    `yaml:"max_depth"`
	DefaultEnergy            string `yaml:"default_energy"`
}

func LoadConfig(path string) *Config {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("failed to decode config file: %v", err)
	}

	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "tukda.db"
	}
	if cfg.App.PromptsDir == "" {
		cfg.App.PromptsDir = "./prompts"
	}
	if cfg.Engine.GenerationTimeoutSeconds <= 0 {
		cfg.Engine.GenerationTimeoutSeconds = 20
	}

	return &cfg
}

// GetDefaultProvider returns the first enabled provider
func (c *Config) GetDefaultProvider() (string, ProviderConfig) {
	for name, p := range c.Providers {
		if p.Enabled {
			return name, p
		}
	}
	return "", ProviderConfig{}
}
