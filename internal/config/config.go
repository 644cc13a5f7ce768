package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full runtime configuration for the ventiscan service.
type Config struct {
	Server  ServerConfig
	Scanner ScannerConfig
	Storage StorageConfig
	Poll    PollConfig
	Agent   AgentConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type ScannerConfig struct {
	// BaseURL of the external scanner service, e.g. http://localhost:8000.
	BaseURL  string
	Username string
	Password string

	// TokenLifetime is the fallback token validity used when the bearer
	// token carries no readable expiry claim.
	TokenLifetimeMinutes int
}

type StorageConfig struct {
	// Path is the directory holding the local SQLite database.
	Path string
}

type PollConfig struct {
	IntervalSeconds int
	FindingsRetries int
}

type AgentConfig struct {
	// ContextURL is where reconciled results are pushed for the chat
	// agent. Empty disables the bridge.
	ContextURL string
}

type LogConfig struct {
	// Backend selects the logger implementation: "stdout" or "zap".
	Backend string
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ScannerConfig) TokenLifetime() time.Duration {
	return time.Duration(s.TokenLifetimeMinutes) * time.Minute
}

func (p *PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// Load reads configuration from defaults, an optional .env file and the
// environment, in increasing precedence.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8089)
	v.SetDefault("SCANNER_BASE_URL", "http://localhost:8000")
	v.SetDefault("SCANNER_USERNAME", "admin")
	v.SetDefault("SCANNER_PASSWORD", "")
	v.SetDefault("SCANNER_TOKEN_LIFETIME_MINUTES", 30)
	v.SetDefault("STORAGE_PATH", "~/.config/ventiscan")
	v.SetDefault("POLL_INTERVAL_SECONDS", 4)
	v.SetDefault("POLL_FINDINGS_RETRIES", 5)
	v.SetDefault("AGENT_CONTEXT_URL", "")
	v.SetDefault("LOG_BACKEND", "stdout")

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Scanner: ScannerConfig{
			BaseURL:              v.GetString("SCANNER_BASE_URL"),
			Username:             v.GetString("SCANNER_USERNAME"),
			Password:             v.GetString("SCANNER_PASSWORD"),
			TokenLifetimeMinutes: v.GetInt("SCANNER_TOKEN_LIFETIME_MINUTES"),
		},
		Storage: StorageConfig{
			Path: v.GetString("STORAGE_PATH"),
		},
		Poll: PollConfig{
			IntervalSeconds: v.GetInt("POLL_INTERVAL_SECONDS"),
			FindingsRetries: v.GetInt("POLL_FINDINGS_RETRIES"),
		},
		Agent: AgentConfig{
			ContextURL: v.GetString("AGENT_CONTEXT_URL"),
		},
		Log: LogConfig{
			Backend: v.GetString("LOG_BACKEND"),
		},
	}

	return cfg, nil
}
