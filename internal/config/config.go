package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// Backend names
const (
	BackendGemini   = "gemini"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
)

// Config holds the application configuration
type Config struct {
	Inference InferenceConfig `json:"inference"`
	Input     InputConfig     `json:"input"`
	Card      CardConfig      `json:"card"`
	Output    OutputConfig    `json:"output"`
}

// InferenceConfig selects and tunes the vision model backend
type InferenceConfig struct {
	Backend        string  `json:"backend"`
	Model          string  `json:"model"`
	URL            string  `json:"url"`
	APIKey         string  `json:"-"` // env only, never written to disk
	Temperature    float32 `json:"temperature"`
	TimeoutSeconds int     `json:"timeout_seconds"`
}

// InputConfig controls how photos are prepared for the model
type InputConfig struct {
	SendFormat   string `json:"send_format"`
	SendSize     int    `json:"send_size"`
	SendQuality  int    `json:"send_quality"`
	MinImageSize int    `json:"min_image_size"`
}

// CardConfig overrides share card layout
type CardConfig struct {
	Width       int     `json:"width"`
	FontSize    float64 `json:"font_size"`
	MinFontSize float64 `json:"min_font_size"`
}

// OutputConfig holds configuration for exported cards and logs
type OutputConfig struct {
	OutputDir string `json:"output_dir"`
	LogFile   string `json:"log_file"`
}

// MaxCardWidth bounds card.width so a card canvas stays allocatable
const MaxCardWidth = 8192

// DefaultModels maps each backend to the model used when none is set
var DefaultModels = map[string]string{
	BackendGemini:   "gemini-3-pro-preview",
	BackendOllama:   "llava",
	BackendLlamaCpp: "openbmb/minicpm-v4.5",
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Inference: InferenceConfig{
			Backend:        BackendGemini,
			Model:          DefaultModels[BackendGemini],
			Temperature:    1,
			TimeoutSeconds: 120,
		},
		Input: InputConfig{
			SendFormat:   "jpg",
			SendSize:     1536,
			SendQuality:  85,
			MinImageSize: 1,
		},
		Card: CardConfig{
			Width:       1080,
			FontSize:    48,
			MinFontSize: 28,
		},
		Output: OutputConfig{
			OutputDir: "./roasts",
			LogFile:   "roast-cam.log",
		},
	}
}

// LoadFromFile loads configuration from a JSON file. Keys missing from the
// file keep their default values.
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads filename when it exists and falls back to defaults otherwise
func Load(filename string) (*Config, error) {
	if filename == "" {
		return Default(), nil
	}
	cfg, err := LoadFromFile(filename)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadDotEnv loads .env files into the process environment. Missing files
// are ignored; variables already set are not overridden.
func LoadDotEnv(files ...string) {
	_ = godotenv.Load(files...)
}

// ApplyEnv overrides settings from environment variables read via getenv
func (c *Config) ApplyEnv(getenv func(string) string) {
	if key := getenv("GEMINI_API_KEY"); key != "" {
		c.Inference.APIKey = key
	} else if key := getenv("API_KEY"); key != "" {
		c.Inference.APIKey = key
	}
	if backend := getenv("ROAST_CAM_BACKEND"); backend != "" {
		c.SetBackend(backend)
	}
	if model := getenv("ROAST_CAM_MODEL"); model != "" {
		c.Inference.Model = model
	}
	if url := getenv("ROAST_CAM_URL"); url != "" {
		c.Inference.URL = url
	}
}

// SetBackend switches backend and, when the model is still the previous
// backend's default, the model along with it
func (c *Config) SetBackend(backend string) {
	backend = strings.ToLower(strings.TrimSpace(backend))
	if c.Inference.Model == "" || c.Inference.Model == DefaultModels[c.Inference.Backend] {
		c.Inference.Model = DefaultModels[backend]
	}
	c.Inference.Backend = backend
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if _, ok := DefaultModels[c.Inference.Backend]; !ok {
		return fmt.Errorf("inference.backend must be one of gemini, ollama, llamacpp (got %q)", c.Inference.Backend)
	}

	if c.Inference.Model == "" {
		return fmt.Errorf("inference.model cannot be empty")
	}

	if c.Inference.Temperature < 0 || c.Inference.Temperature > 2 {
		return fmt.Errorf("inference.temperature must be between 0 and 2")
	}

	if c.Inference.TimeoutSeconds < 1 {
		return fmt.Errorf("inference.timeout_seconds must be positive")
	}

	if f := strings.ToLower(c.Input.SendFormat); f != "jpg" && f != "jpeg" && f != "png" {
		return fmt.Errorf("input.send_format must be jpg or png")
	}

	if c.Input.SendQuality < 1 || c.Input.SendQuality > 100 {
		return fmt.Errorf("input.send_quality must be between 1 and 100")
	}

	if c.Input.SendSize < 0 {
		return fmt.Errorf("input.send_size cannot be negative")
	}

	if c.Input.MinImageSize < 1 {
		return fmt.Errorf("input.min_image_size must be positive")
	}

	if c.Card.Width < 1 || c.Card.Width > MaxCardWidth {
		return fmt.Errorf("card.width must be between 1 and %d", MaxCardWidth)
	}

	if c.Card.MinFontSize <= 0 || c.Card.FontSize < c.Card.MinFontSize {
		return fmt.Errorf("card.font_size must be at least card.min_font_size, which must be positive")
	}

	if c.Output.OutputDir == "" {
		return fmt.Errorf("output.output_dir cannot be empty")
	}

	return nil
}

// RequiresAPIKey reports whether the selected backend needs an API key
func (c *Config) RequiresAPIKey() bool {
	return c.Inference.Backend == BackendGemini
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "roast-cam", "config.json")
}
