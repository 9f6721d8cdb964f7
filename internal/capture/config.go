package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/viper"
)

// Config drives the field capture agent.
type Config struct {
	Camera CameraConfig `mapstructure:"camera"`
	API    APIConfig    `mapstructure:"api"`
}

type CameraConfig struct {
	// SourceDir is watched for new frames; on the bench this stands in
	// for the camera device.
	SourceDir       string        `mapstructure:"source_dir"`
	CaptureInterval time.Duration `mapstructure:"capture_interval"`
	MaxSpool        int           `mapstructure:"max_spool"`
}

type APIConfig struct {
	Endpoint       string        `mapstructure:"endpoint"`
	Token          string        `mapstructure:"token"`
	Timeout        time.Duration `mapstructure:"timeout"`
	RetryAttempts  int           `mapstructure:"retry_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// LoadConfig reads the agent's YAML configuration, falling back to
// defaults when the file is absent.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("camera.source_dir", "/tmp/disaster_images")
	v.SetDefault("camera.capture_interval", 10*time.Second)
	v.SetDefault("camera.max_spool", 50)

	v.SetDefault("api.endpoint", "http://localhost:8080")
	v.SetDefault("api.token", "")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.retry_attempts", 3)
	v.SetDefault("api.initial_backoff", time.Second)
	v.SetDefault("api.max_backoff", 30*time.Second)
}
