package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default location for the YAML config file.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	BaseURL           string `yaml:"baseURL"`
	APIKey            string `yaml:"apiKey"`
	LogLevel          string `yaml:"logLevel"`
	RequestTimeout    string `yaml:"requestTimeout"`
	CredentialBackend string `yaml:"credentialBackend"`
	CredentialsFile   string `yaml:"credentialsFile"`
	CredentialsSecret string `yaml:"credentialsSecret"`
	RedisAddr         string `yaml:"redisAddr"`
	RedisPassword     string `yaml:"redisPassword"`
}

// Load reads config from path (defaults to config.yaml) and applies
// CLASSFEED_* environment overrides.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("CLASSFEED_BASE_URL"); v != "" {
		cfg.BaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("CLASSFEED_API_KEY"); v != "" {
		cfg.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("CLASSFEED_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("CLASSFEED_REQUEST_TIMEOUT"); v != "" {
		cfg.RequestTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("CLASSFEED_CREDENTIAL_BACKEND"); v != "" {
		cfg.CredentialBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("CLASSFEED_CREDENTIALS_FILE"); v != "" {
		cfg.CredentialsFile = strings.TrimSpace(v)
	}
	if v := os.Getenv("CLASSFEED_CREDENTIALS_SECRET"); v != "" {
		cfg.CredentialsSecret = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.CredentialBackend == "" {
		cfg.CredentialBackend = "file"
	}
	if cfg.CredentialsFile == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.CredentialsFile = filepath.Join(home, ".classfeed", "session.json")
		}
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.BaseURL == "" {
		return errors.New("config: baseURL is required (set in config.yaml or CLASSFEED_BASE_URL)")
	}
	if cfg.APIKey == "" {
		return errors.New("config: apiKey is required (set in config.yaml or CLASSFEED_API_KEY)")
	}
	switch cfg.CredentialBackend {
	case "file":
		if cfg.CredentialsFile == "" {
			return errors.New("config: credentialsFile is required for the file backend")
		}
	case "redis":
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return errors.New("config: redisAddr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown credentialBackend %q (want file or redis)", cfg.CredentialBackend)
	}
	return nil
}

// ParseRequestTimeout parses the optional request timeout duration string.
func ParseRequestTimeout(timeoutStr string) (time.Duration, error) {
	if timeoutStr == "" {
		return 10 * time.Second, nil
	}
	dur, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return 0, fmt.Errorf("invalid requestTimeout duration: %w", err)
	}
	return dur, nil
}
