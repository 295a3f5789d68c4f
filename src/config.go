package storyverse

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Config holds every runtime setting. Values come from the environment,
// optionally seeded from a .env file.
type Config struct {
	TextProvider string `envconfig:"TEXT_PROVIDER" default:"claude" validate:"oneof=claude openai gemini"`
	ClaudeAPIKey string `envconfig:"CLAUDE_API_KEY" validate:"required_if=TextProvider claude"`
	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY" validate:"required_if=TextProvider openai"`
	OpenAIURL    string `envconfig:"OPENAI_BASE_URL" default:"https://openrouter.ai/api/v1" validate:"omitempty,url"`
	OpenAIModel  string `envconfig:"OPENAI_MODEL" default:"deepseek/deepseek-chat"`
	GeminiAPIKey string `envconfig:"GEMINI_API_KEY" validate:"required_if=TextProvider gemini,required_if=ImageProvider gemini"`
	GeminiModel  string `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	ImagenModel  string `envconfig:"IMAGEN_MODEL" default:"imagen-3.0-generate-002"`

	ImageProvider string `envconfig:"IMAGE_PROVIDER" default:"none" validate:"oneof=none horde local gemini"`
	HordeAPIKey   string `envconfig:"HORDE_API_KEY" default:"0000000000"`
	SDWebUIURL    string `envconfig:"SD_WEBUI_URL" validate:"required_if=ImageProvider local"`

	Protocol          Protocol      `envconfig:"STORY_PROTOCOL" default:"rich" validate:"oneof=rich simple"`
	RequestTimeout    time.Duration `envconfig:"REQUEST_TIMEOUT" default:"90s" validate:"min=1s"`
	RequestsPerMinute int           `envconfig:"REQUESTS_PER_MINUTE" default:"30" validate:"min=0"`

	DataDir   string `envconfig:"DATA_DIR" default:"data" validate:"required"`
	Addr      string `envconfig:"ADDR" default:":8080" validate:"required"`
	CertFile  string `envconfig:"TLS_CERT" default:"certs/server.crt"`
	KeyFile   string `envconfig:"TLS_KEY" default:"certs/server.key"`
	RateLimit int    `envconfig:"RATE_LIMIT" default:"20" validate:"min=1"`

	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"console" validate:"oneof=console json"`
}

// LoadConfig reads envFile (if present) and then the environment.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// StoryDir is where per-session story logs are kept.
func (c *Config) StoryDir() string {
	return filepath.Join(c.DataDir, "stories")
}

// NewTextGenerator builds the configured text collaborator, rate limited.
func (c *Config) NewTextGenerator(ctx context.Context) (TextGenerator, error) {
	var gen TextGenerator
	switch c.TextProvider {
	case "claude":
		gen = NewClaudeClient(c.ClaudeAPIKey)
	case "openai":
		gen = NewLLMClient(c.OpenAIAPIKey, c.OpenAIURL, c.OpenAIModel)
	case "gemini":
		g, err := NewGeminiClient(ctx, c.GeminiAPIKey, c.GeminiModel, c.ImagenModel)
		if err != nil {
			return nil, err
		}
		gen = g
	default:
		return nil, fmt.Errorf("unknown text provider %q", c.TextProvider)
	}
	return NewRateLimited(gen, c.RequestsPerMinute), nil
}

// NewImageClient builds the configured image collaborator. It returns nil
// when image generation is switched off.
func (c *Config) NewImageClient(ctx context.Context, logger *zap.Logger) (ImageClient, error) {
	switch c.ImageProvider {
	case "none", "":
		return nil, nil
	case "horde":
		return NewHordeClient(c.HordeAPIKey, logger), nil
	case "local":
		return NewLocalClient(c.SDWebUIURL, logger), nil
	case "gemini":
		g, err := NewGeminiClient(ctx, c.GeminiAPIKey, c.GeminiModel, c.ImagenModel)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return nil, fmt.Errorf("unknown image provider %q", c.ImageProvider)
}
