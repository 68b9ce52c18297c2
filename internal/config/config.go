package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/voguh/unichat-sub000/internal/kick"
)

// Config holds the application configuration
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Twitch     TwitchConfig     `yaml:"twitch"`
	Kick       KickConfig       `yaml:"kick"`
	Emotes     EmotesConfig     `yaml:"emotes"`
	Redemption RedemptionConfig `yaml:"redemption"`
	Sink       SinkConfig       `yaml:"sink"`
	Server     ServerConfig     `yaml:"server"`
	Assets     AssetsConfig     `yaml:"assets"`
	DeadLetter DeadLetterConfig `yaml:"deadletter"`
	S3         S3Config         `yaml:"s3"`
	Uploader   UploaderConfig   `yaml:"uploader"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level         string `yaml:"level"`  // debug, info, warn, error
	Format        string `yaml:"format"` // json or console
	UnknownEvents bool   `yaml:"unknown_events"`
}

// TwitchConfig holds Twitch-specific configuration
type TwitchConfig struct {
	Username   string   `yaml:"username"`
	OAuth      string   `yaml:"oauth"` // empty connects anonymously
	Channels   []string `yaml:"channels"`
	Cheermotes []string `yaml:"cheermotes"`
}

// KickConfig holds Kick-specific configuration
type KickConfig struct {
	Enabled  bool                 `yaml:"enabled"`
	APIURL   string               `yaml:"api_url"`
	Channels []kick.ChannelConfig `yaml:"channels"`
}

// EmotesConfig holds shared emote provider configuration
type EmotesConfig struct {
	BTTVURL        string `yaml:"bttv_url"`
	FFZURL         string `yaml:"ffz_url"`
	SevenTVURL     string `yaml:"seventv_url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// RedemptionConfig holds redemption correlation configuration
type RedemptionConfig struct {
	TTLSeconds   int `yaml:"ttl_seconds"`
	SweepSeconds int `yaml:"sweep_seconds"`
}

// SinkConfig holds event sink configuration
type SinkConfig struct {
	BufferSize int  `yaml:"buffer_size"`
	Stdout     bool `yaml:"stdout"` // write every event as a JSON line to stdout
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AssetsConfig holds the base URL of locally served badge images
type AssetsConfig struct {
	BaseURL string `yaml:"base_url"`
}

// DeadLetterConfig holds configuration for the parse failure archive
type DeadLetterConfig struct {
	Enabled         bool   `yaml:"enabled"`
	OutputDir       string `yaml:"output_dir"`
	RotateMinutes   int    `yaml:"rotate_minutes"`
	RotateMegabytes int    `yaml:"rotate_megabytes"`
	BufferSize      int    `yaml:"buffer_size"`
}

// S3Config holds S3 upload configuration
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	RoleARN         string `yaml:"role_arn"`          // IAM role ARN for OIDC authentication
	AccessKeyID     string `yaml:"access_key_id"`     // Legacy: static credentials
	SecretAccessKey string `yaml:"secret_access_key"` // Legacy: static credentials
}

// UploaderConfig holds uploader configuration
type UploaderConfig struct {
	DeleteAfterUpload bool `yaml:"delete_after_upload"`
	MaxRetries        int  `yaml:"max_retries"`
}

// EmoteTimeout returns the per refresh provider timeout.
func (c *Config) EmoteTimeout() time.Duration {
	return time.Duration(c.Emotes.TimeoutSeconds) * time.Second
}

// RedemptionTTL returns how long an unmatched redemption half waits.
func (c *Config) RedemptionTTL() time.Duration {
	return time.Duration(c.Redemption.TTLSeconds) * time.Second
}

// RedemptionSweep returns the redemption sweep interval.
func (c *Config) RedemptionSweep() time.Duration {
	return time.Duration(c.Redemption.SweepSeconds) * time.Second
}

// UploadEnabled reports whether dead letter files are shipped to S3.
func (c *Config) UploadEnabled() bool {
	return c.DeadLetter.Enabled && c.S3.Bucket != ""
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses configuration from YAML, then applies environment overrides,
// defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnv(&cfg)
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if oauth := os.Getenv("TWITCH_OAUTH"); oauth != "" {
		cfg.Twitch.OAuth = oauth
	}
	if roleARN := os.Getenv("AWS_ROLE_ARN"); roleARN != "" {
		cfg.S3.RoleARN = roleARN
	}
	if keyID := os.Getenv("S3_ACCESS_KEY_ID"); keyID != "" {
		cfg.S3.AccessKeyID = keyID
	}
	if secretKey := os.Getenv("S3_SECRET_ACCESS_KEY"); secretKey != "" {
		cfg.S3.SecretAccessKey = secretKey
	}
	if level := os.Getenv("UNICHAT_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Emotes.TimeoutSeconds == 0 {
		cfg.Emotes.TimeoutSeconds = 15
	}
	if cfg.Redemption.TTLSeconds == 0 {
		cfg.Redemption.TTLSeconds = 300
	}
	if cfg.Redemption.SweepSeconds == 0 {
		cfg.Redemption.SweepSeconds = 30
	}
	if cfg.Sink.BufferSize == 0 {
		cfg.Sink.BufferSize = 1024
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.DeadLetter.BufferSize == 0 {
		cfg.DeadLetter.BufferSize = 100
	}
	if cfg.DeadLetter.RotateMinutes == 0 {
		cfg.DeadLetter.RotateMinutes = 60
	}
	if cfg.DeadLetter.RotateMegabytes == 0 {
		cfg.DeadLetter.RotateMegabytes = 100
	}
	if cfg.DeadLetter.OutputDir == "" {
		cfg.DeadLetter.OutputDir = "./data/deadletter"
	}
	if cfg.Uploader.MaxRetries == 0 {
		cfg.Uploader.MaxRetries = 3
	}
}

// Validate checks required fields and value ranges.
func (c *Config) Validate() error {
	if c.Twitch.OAuth != "" && c.Twitch.Username == "" {
		return fmt.Errorf("twitch.username is required when twitch.oauth is set")
	}
	for _, ch := range c.Kick.Channels {
		if ch.Slug == "" {
			return fmt.Errorf("kick.channels: every channel needs a slug")
		}
	}
	if c.Emotes.TimeoutSeconds < 0 || c.Redemption.TTLSeconds < 0 || c.Redemption.SweepSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.Sink.BufferSize < 0 {
		return fmt.Errorf("sink.buffer_size must not be negative")
	}

	// S3 is only checked when uploads are configured
	if c.S3.Bucket != "" {
		if c.S3.Region == "" {
			return fmt.Errorf("s3.region is required")
		}
		if c.S3.RoleARN == "" && c.S3.AccessKeyID == "" {
			return fmt.Errorf("either s3.role_arn (OIDC) or s3.access_key_id (legacy) is required")
		}
		if c.S3.AccessKeyID != "" && c.S3.SecretAccessKey == "" {
			return fmt.Errorf("s3.secret_access_key is required when using access_key_id")
		}
	}
	return nil
}
