// Package config holds the YAML configuration of the osvos command.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sugarme/gotch"
	"gopkg.in/yaml.v3"

	"github.com/sugarme/osvos/encoder"
	"github.com/sugarme/osvos/osvos"
)

// Config is the complete configuration.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Weights WeightsConfig `yaml:"weights"`
	Predict PredictConfig `yaml:"predict"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig describes the network.
type ModelConfig struct {
	Stages       [][]string `yaml:"stages"`
	InChannels   int64      `yaml:"in_channels"`
	SideChannels int64      `yaml:"side_channels"`
	AlignCorners bool       `yaml:"align_corners"`
	Device       string     `yaml:"device"` // cpu or cuda
}

// WeightsConfig locates pretrained weights.
type WeightsConfig struct {
	// Pretrained transplants the VGG16 convolutions into the backbone.
	Pretrained bool `yaml:"pretrained"`
	// VGG is a gotch .ot file or an http(s) URL of torchvision's vgg16.
	VGG      string `yaml:"vgg"`
	CacheDir string `yaml:"cache_dir"`
	Timeout  string `yaml:"timeout"`
	// Model is a trained OSVOS .ot file used by predict and inspect.
	Model string `yaml:"model"`
}

// PredictConfig controls mask prediction.
type PredictConfig struct {
	// Size is the longer image side fed to the network; 0 keeps the original.
	Size      int     `yaml:"size"`
	Threshold float64 `yaml:"threshold"`
	Sides     bool    `yaml:"sides"`
	Overlay   bool    `yaml:"overlay"`
}

// LoggingConfig controls the zap logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			Stages:       copyTokens(encoder.DefaultStageTokens),
			InChannels:   3,
			SideChannels: 16,
			Device:       "cpu",
		},
		Weights: WeightsConfig{
			Pretrained: true,
			VGG:        "models/vgg16.ot",
			CacheDir:   defaultCacheDir(),
			Timeout:    "10m",
			Model:      "models/osvos_parent.ot",
		},
		Predict: PredictConfig{
			Size:      480,
			Threshold: 0.5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func copyTokens(tokens [][]string) [][]string {
	out := make([][]string, len(tokens))
	for i, t := range tokens {
		out[i] = append([]string(nil), t...)
	}
	return out
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "osvos")
	}
	return filepath.Join(os.TempDir(), "osvos")
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OSVOS_VGG_WEIGHTS"); v != "" {
		c.Weights.VGG = v
	}
	if v := os.Getenv("OSVOS_MODEL_WEIGHTS"); v != "" {
		c.Weights.Model = v
	}
	if v := os.Getenv("OSVOS_DEVICE"); v != "" {
		c.Model.Device = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.Model.OSVOS(); err != nil {
		return err
	}
	if c.Model.Device != "cpu" && c.Model.Device != "cuda" {
		return fmt.Errorf("invalid device: %q (valid: cpu, cuda)", c.Model.Device)
	}
	if c.Predict.Threshold <= 0 || c.Predict.Threshold >= 1 {
		return fmt.Errorf("invalid threshold: %v (must be in (0, 1))", c.Predict.Threshold)
	}
	if c.Predict.Size < 0 {
		return fmt.Errorf("invalid predict size: %d", c.Predict.Size)
	}
	if c.Weights.Pretrained && c.Weights.VGG == "" {
		return fmt.Errorf("pretrained weights requested but no VGG weights configured")
	}
	return nil
}

// OSVOS returns the network configuration.
func (c ModelConfig) OSVOS() (osvos.Config, error) {
	stages, err := encoder.ParseStages(c.Stages)
	if err != nil {
		return osvos.Config{}, err
	}

	cfg := osvos.DefaultConfig()
	cfg.Stages = stages
	cfg.InChannels = c.InChannels
	cfg.SideChannels = c.SideChannels
	cfg.AlignCorners = c.AlignCorners
	cfg.Donor.Features = encoder.Flatten(stages)
	cfg.Donor.InChannels = c.InChannels

	return cfg, cfg.Validate()
}

// GetDevice returns the configured device, CPU when CUDA is unavailable.
func (c ModelConfig) GetDevice() gotch.Device {
	if c.Device == "cuda" {
		return gotch.NewCuda().CudaIfAvailable()
	}
	return gotch.CPU
}

// GetTimeout returns the download timeout as a duration.
func (c WeightsConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return osvos.DefaultDownloadTimeout
	}
	return d
}

// Loader returns the loader of the donor weights, nil when pretrained
// weights are disabled.
func (c WeightsConfig) Loader() osvos.WeightLoader {
	if !c.Pretrained {
		return nil
	}
	return osvos.NewWeightLoader(c.VGG, c.CacheDir, c.GetTimeout())
}
