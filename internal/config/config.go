package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the split worker.
type Config struct {
	Broker   BrokerConfig  `yaml:"broker"`
	Storage  StorageConfig `yaml:"storage"`
	Split    SplitConfig   `yaml:"split"`
	Worker   WorkerConfig  `yaml:"worker"`
	LogLevel string        `yaml:"log_level"`
}

// BrokerConfig defines the message broker connection. URL wins when set;
// otherwise it is assembled from the individual fields.
type BrokerConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

// AMQPURL returns the connection URL for the broker.
func (b BrokerConfig) AMQPURL() string {
	if b.URL != "" {
		return b.URL
	}
	vhost := b.VHost
	if vhost == "/" {
		vhost = ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		url.QueryEscape(b.Username), url.QueryEscape(b.Password), b.Host, b.Port, vhost)
}

// StorageConfig defines the part store.
type StorageConfig struct {
	// BucketURL is a gocloud bucket URL (s3://, gs://, file://). Empty
	// degrades the store to an in-memory stand-in.
	BucketURL     string `yaml:"bucket_url"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// SplitConfig bounds part sizes.
type SplitConfig struct {
	DefaultSize int `yaml:"default_size"`
	MinSize     int `yaml:"min_size"`
	MaxSize     int `yaml:"max_size"`
}

// WorkerConfig defines processing behavior.
type WorkerConfig struct {
	ConcurrentParts int           `yaml:"concurrent_parts"`
	MaxRetries      int           `yaml:"max_retries"`
	TempDir         string        `yaml:"temp_dir"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
	DownloadRetries int           `yaml:"download_retries"`
}

// yamlWorkerConfig mirrors WorkerConfig with string durations for YAML.
type yamlWorkerConfig struct {
	ConcurrentParts int    `yaml:"concurrent_parts"`
	MaxRetries      *int   `yaml:"max_retries"`
	TempDir         string `yaml:"temp_dir"`
	DownloadTimeout string `yaml:"download_timeout"`
	DownloadRetries int    `yaml:"download_retries"`
}

// UnmarshalYAML accepts "60s"-style duration strings.
func (w *WorkerConfig) UnmarshalYAML(value *yaml.Node) error {
	var yw yamlWorkerConfig
	if err := value.Decode(&yw); err != nil {
		return err
	}
	if yw.ConcurrentParts != 0 {
		w.ConcurrentParts = yw.ConcurrentParts
	}
	if yw.MaxRetries != nil {
		w.MaxRetries = *yw.MaxRetries
	}
	if yw.TempDir != "" {
		w.TempDir = yw.TempDir
	}
	if yw.DownloadTimeout != "" {
		d, err := time.ParseDuration(yw.DownloadTimeout)
		if err != nil {
			return fmt.Errorf("parse worker.download_timeout: %w", err)
		}
		w.DownloadTimeout = d
	}
	if yw.DownloadRetries != 0 {
		w.DownloadRetries = yw.DownloadRetries
	}
	return nil
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Broker: BrokerConfig{
			Host:     "localhost",
			Port:     5672,
			Username: "guest",
			Password: "guest",
			VHost:    "/",
		},
		Split: SplitConfig{
			DefaultSize: 25,
			MinSize:     10,
			MaxSize:     100,
		},
		Worker: WorkerConfig{
			ConcurrentParts: 3,
			MaxRetries:      3,
			TempDir:         os.TempDir(),
			DownloadTimeout: 60 * time.Second,
			DownloadRetries: 3,
		},
		LogLevel: "info",
	}
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// LoadFromEnv overlays environment variables. Names follow the deployment's
// existing conventions.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.Broker.URL = v
	}
	if v := os.Getenv("RABBITMQ_HOSTNAME"); v != "" {
		c.Broker.Host = v
	}
	if v := os.Getenv("RABBITMQ_PORT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse RABBITMQ_PORT: %w", err)
		}
		c.Broker.Port = n
	}
	if v := os.Getenv("RABBITMQ_USERNAME"); v != "" {
		c.Broker.Username = v
	}
	if v := os.Getenv("RABBITMQ_PASSWORD"); v != "" {
		c.Broker.Password = v
	}
	if v := os.Getenv("RABBITMQ_VHOST"); v != "" {
		c.Broker.VHost = v
	}
	if v := os.Getenv("PDF_BUCKET_URL"); v != "" {
		c.Storage.BucketURL = v
	}
	if v := os.Getenv("PDF_PUBLIC_BASE_URL"); v != "" {
		c.Storage.PublicBaseURL = v
	}
	if v := os.Getenv("DEFAULT_SPLIT_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse DEFAULT_SPLIT_SIZE: %w", err)
		}
		c.Split.DefaultSize = n
	}
	if v := os.Getenv("MIN_SPLIT_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MIN_SPLIT_SIZE: %w", err)
		}
		c.Split.MinSize = n
	}
	if v := os.Getenv("MAX_SPLIT_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAX_SPLIT_SIZE: %w", err)
		}
		c.Split.MaxSize = n
	}
	if v := os.Getenv("CONCURRENT_PART_PROCESSING"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CONCURRENT_PART_PROCESSING: %w", err)
		}
		c.Worker.ConcurrentParts = n
	}
	if v := os.Getenv("MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse MAX_RETRIES: %w", err)
		}
		c.Worker.MaxRetries = n
	}
	if v := os.Getenv("TEMP_DIR"); v != "" {
		c.Worker.TempDir = v
	}
	if v := os.Getenv("DOWNLOAD_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse DOWNLOAD_TIMEOUT: %w", err)
		}
		c.Worker.DownloadTimeout = d
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Broker.URL == "" {
		if c.Broker.Host == "" {
			return errors.New("config: broker host is required")
		}
		if c.Broker.Port <= 0 {
			return errors.New("config: broker port must be positive")
		}
	}
	if c.Split.MinSize <= 0 {
		return errors.New("config: split min_size must be positive")
	}
	if c.Split.MaxSize < c.Split.MinSize {
		return errors.New("config: split max_size must be >= min_size")
	}
	if c.Split.DefaultSize < c.Split.MinSize || c.Split.DefaultSize > c.Split.MaxSize {
		return fmt.Errorf("config: split default_size %d outside [%d, %d]",
			c.Split.DefaultSize, c.Split.MinSize, c.Split.MaxSize)
	}
	if c.Worker.ConcurrentParts <= 0 {
		return errors.New("config: worker concurrent_parts must be positive")
	}
	if c.Worker.MaxRetries < 0 {
		return errors.New("config: worker max_retries must not be negative")
	}
	if c.Worker.TempDir == "" {
		return errors.New("config: worker temp_dir is required")
	}
	return nil
}
