package internal

import (
	"fmt"
	"strings"
	"time"

	"traceforge/moderation"

	"github.com/Netflix/go-env"
)

type Config struct {
	LogLevel             string        `env:"LOG_LEVEL,default=INFO"`
	Host                 string        `env:"HOST,default=localhost"`
	Port                 int           `env:"PORT,default=8080"`
	GrpcPort             int           `env:"GRPC_PORT,default=9090"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath        string        `env:"BLUGE_FILEPATH,required=true"`
	HistoryWindow        int           `env:"HISTORY_WINDOW,default=50"`
	CensoredWords        string        `env:"CENSORED_WORDS"`
	CensorPlaceholder    string        `env:"CENSOR_PLACEHOLDER,default=***"`
	AuthTokenDuration    time.Duration `env:"AUTH_TOKEN_DURATION,default=24h"`
	AuthTokenSecret      string        `env:"AUTH_TOKEN_SECRET,required=true"`
	AllowedOrigins       string        `env:"ALLOWED_ORIGINS"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=5s"`
	LLMBaseURL           string        `env:"LLM_BASE_URL,default=https://api.openai.com/v1"`
	LLMAPIKey            string        `env:"LLM_API_KEY"`
	LLMModel             string        `env:"LLM_MODEL,default=gpt-4"`
	TranscriptionModel   string        `env:"TRANSCRIPTION_MODEL,default=whisper-1"`
	LLMTimeout           time.Duration `env:"LLM_TIMEOUT,default=60s"`
	LLMRatePerMinute     int           `env:"LLM_RATE_PER_MINUTE,default=20"`
}

// LoadConfig reads the process environment.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	// required=true only checks presence, a blank value still gets through
	for name, value := range map[string]string{
		"BADGER_FILEPATH":   c.BadgerFilepath,
		"BLUGE_FILEPATH":    c.BlugeFilepath,
		"AUTH_TOKEN_SECRET": c.AuthTokenSecret,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be blank", name)
		}
	}
	for name, value := range map[string]time.Duration{
		"AUTH_TOKEN_DURATION": c.AuthTokenDuration,
		"SINK_TIMEOUT":        c.SinkTimeout,
		"RESTART_INTERVAL":    c.RestartInterval,
		"METRIC_INTERVAL":     c.MetricInterval,
		"LLM_TIMEOUT":         c.LLMTimeout,
	} {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, value)
		}
	}
	if c.AIEnabled() && c.LLMRatePerMinute <= 0 {
		return fmt.Errorf("LLM_RATE_PER_MINUTE must be positive, got %d", c.LLMRatePerMinute)
	}
	if c.HistoryWindow < 0 {
		return fmt.Errorf("HISTORY_WINDOW must not be negative, got %d", c.HistoryWindow)
	}
	if strings.TrimSpace(c.CensorPlaceholder) == "" {
		return fmt.Errorf("CENSOR_PLACEHOLDER must not be blank")
	}
	if c.ConnectionBufferSize <= 0 {
		return fmt.Errorf("CONNECTION_BUFFER_SIZE must be positive, got %d", c.ConnectionBufferSize)
	}
	return nil
}

// CensoredWordList falls back to the built-in denylist when unset.
func (c Config) CensoredWordList() []string {
	if words := splitList(c.CensoredWords); len(words) > 0 {
		return words
	}
	return moderation.DefaultCensoredWords
}

func (c Config) AllowedOriginList() []string {
	return splitList(c.AllowedOrigins)
}

// AIEnabled is true when an LLM key is configured.
func (c Config) AIEnabled() bool {
	return c.LLMAPIKey != ""
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
