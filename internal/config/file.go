package config

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML overlay. Only set fields override the
// environment-derived values.
type fileConfig struct {
	APIPort  string `yaml:"api_port"`
	LogLevel string `yaml:"log_level"`

	PostgresDSN string `yaml:"postgres_dsn"`

	NATS struct {
		URL     string `yaml:"url"`
		Subject string `yaml:"subject"`
	} `yaml:"nats"`

	OpenAI struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
		Model   string `yaml:"model"`
	} `yaml:"openai"`

	UploadDir      string `yaml:"upload_dir"`
	MaxFileBytes   int64  `yaml:"max_file_bytes"`
	MaxFilesPerJob int    `yaml:"max_files_per_job"`
}

func applyFile(cfg *Config, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Warn("config file unreadable, using environment", "path", path, "error", err)
		return
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		slog.Warn("config file invalid, using environment", "path", path, "error", err)
		return
	}

	setString(&cfg.APIPort, fc.APIPort)
	setString(&cfg.LogLevel, fc.LogLevel)
	setString(&cfg.PostgresDSN, fc.PostgresDSN)
	setString(&cfg.NATSURL, fc.NATS.URL)
	setString(&cfg.NATSSubject, fc.NATS.Subject)
	setString(&cfg.OpenAIAPIKey, fc.OpenAI.APIKey)
	setString(&cfg.OpenAIBaseURL, fc.OpenAI.BaseURL)
	setString(&cfg.OpenAIModel, fc.OpenAI.Model)
	setString(&cfg.UploadDir, fc.UploadDir)
	if fc.MaxFileBytes > 0 {
		cfg.MaxFileBytes = fc.MaxFileBytes
	}
	if fc.MaxFilesPerJob > 0 {
		cfg.MaxFilesPerJob = fc.MaxFilesPerJob
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
