// Package config はサーバの設定を TOML ファイル、.env、環境変数の順に読み込みます。
// 後に読んだものが優先されます。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

type constError string

func (e constError) Error() string { return string(e) }

// ErrInvalidConfig は設定値が不正であることを表します。
const ErrInvalidConfig = constError("invalid config")

// Duration は "30s" のような文字列で書ける time.Duration です。
type Duration struct {
	time.Duration
}

// UnmarshalText は TOML の文字列を Duration に変換します。
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Config はサーバ全体の設定です。
type Config struct {
	HTTPAddr         string   `toml:"http_addr"`
	Capacity         int      `toml:"capacity"`
	Shards           int      `toml:"shards"`
	CleanupInterval  Duration `toml:"cleanup_interval"`
	AsyncEviction    bool     `toml:"async_eviction"`
	RateLimit        float64  `toml:"rate_limit"` // 1 秒あたりのリクエスト数。0 で無効
	RateBurst        int      `toml:"rate_burst"`
	MaxValueBytes    int      `toml:"max_value_bytes"` // 1 エントリの値の上限
	MetricsNamespace string   `toml:"metrics_namespace"`
	ShutdownTimeout  Duration `toml:"shutdown_timeout"`
	LogLevel         string   `toml:"log_level"`
	LogFormat        string   `toml:"log_format"`
	LogFile          string   `toml:"log_file"`
}

// Default は既定値を返します。
func Default() Config {
	return Config{
		HTTPAddr:         ":8080",
		Capacity:         10_000,
		Shards:           16,
		RateBurst:        100,
		MaxValueBytes:    64 << 10,
		MetricsNamespace: "clockkv",
		ShutdownTimeout:  Duration{5 * time.Second},
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load は path の TOML（空なら読まない）、envFiles（未指定なら .env）、
// 環境変数の順に設定を重ねて検証します。.env が存在しないのはエラーではありません。
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("%w: unsupported key in %s: [%s]", ErrInvalidConfig, path, undecoded[0])
		}
	}
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var err error
	c.HTTPAddr = getString("CLOCKKV_HTTP_ADDR", c.HTTPAddr)
	c.Capacity = getInt("CLOCKKV_CAPACITY", c.Capacity)
	c.Shards = getInt("CLOCKKV_SHARDS", c.Shards)
	if c.CleanupInterval.Duration, err = getDuration("CLOCKKV_CLEANUP_INTERVAL", c.CleanupInterval.Duration); err != nil {
		return err
	}
	c.AsyncEviction = getBool("CLOCKKV_ASYNC_EVICTION", c.AsyncEviction)
	c.RateLimit = getFloat("CLOCKKV_RATE_LIMIT", c.RateLimit)
	c.RateBurst = getInt("CLOCKKV_RATE_BURST", c.RateBurst)
	c.MaxValueBytes = getInt("CLOCKKV_MAX_VALUE_BYTES", c.MaxValueBytes)
	c.MetricsNamespace = getString("CLOCKKV_METRICS_NAMESPACE", c.MetricsNamespace)
	if c.ShutdownTimeout.Duration, err = getDuration("CLOCKKV_SHUTDOWN_TIMEOUT", c.ShutdownTimeout.Duration); err != nil {
		return err
	}
	c.LogLevel = getString("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getString("LOG_FORMAT", c.LogFormat)
	c.LogFile = getString("LOG_FILE", c.LogFile)
	return nil
}

// Validate は設定値を検証します。
func (c *Config) Validate() error {
	var errs []error
	if c.HTTPAddr == "" {
		errs = append(errs, errors.New("http_addr is empty"))
	}
	if c.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("capacity must be positive, got %d", c.Capacity))
	}
	if c.Shards <= 0 {
		errs = append(errs, fmt.Errorf("shards must be positive, got %d", c.Shards))
	}
	if c.CleanupInterval.Duration < 0 {
		errs = append(errs, fmt.Errorf("cleanup_interval must not be negative, got %s", c.CleanupInterval))
	}
	if c.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("rate_limit must not be negative, got %g", c.RateLimit))
	}
	if c.RateLimit > 0 && c.RateBurst < 1 {
		errs = append(errs, fmt.Errorf("rate_burst must be at least 1 when rate_limit is set, got %d", c.RateBurst))
	}
	if c.MaxValueBytes <= 0 {
		errs = append(errs, fmt.Errorf("max_value_bytes must be positive, got %d", c.MaxValueBytes))
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log_format must be text, json or console, got %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
