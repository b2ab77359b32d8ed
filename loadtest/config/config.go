// Package config は負荷試験の設定をフラグと LT_* 環境変数から読み込みます。
package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config は負荷試験の設定です。
type Config struct {
	BaseURL     string
	KeySpace    int     // キーの種類数。サーバの容量より大きくすると追い出しが起きる
	ReadRatio   float64 // GET の割合
	DeleteRatio float64 // 書き込みのうち DELETE の割合
	Skew        float64 // Zipf 分布の s (>1)。0 なら一様
	Rate        int
	Duration    time.Duration
	ValueSize   int
	TTLRatio    float64
	TTLMillis   int
	Output      string
	Timeout     time.Duration
	Name        string
	ReadOnly    bool
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseFloatEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func parseIntEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// Load はフラグを解析して Config を返します。
func Load() (*Config, error) {
	var c Config
	fs := flag.CommandLine
	readOnly := os.Getenv("LT_READ_ONLY") == "1" || os.Getenv("LT_READ_ONLY") == "true"

	fs.StringVar(&c.BaseURL, "base-url", envOr("LT_BASE_URL", "http://localhost:8080"), "Base URL of the clockkv server")
	fs.IntVar(&c.KeySpace, "key-space", parseIntEnv("LT_KEY_SPACE", 20_000), "Number of distinct keys")
	fs.Float64Var(&c.ReadRatio, "read-ratio", parseFloatEnv("LT_READ_RATIO", 0.8), "Ratio of GET requests")
	fs.Float64Var(&c.DeleteRatio, "delete-ratio", parseFloatEnv("LT_DELETE_RATIO", 0.05), "Ratio of DELETE among writes")
	fs.Float64Var(&c.Skew, "skew", parseFloatEnv("LT_SKEW", 1.1), "Zipf s parameter for key popularity (0 = uniform)")
	fs.IntVar(&c.Rate, "rate", parseIntEnv("LT_RATE", 100), "Requests per second")
	fs.DurationVar(&c.Duration, "duration", parseDurationEnv("LT_DURATION", 30*time.Second), "Duration of the load test")
	fs.IntVar(&c.ValueSize, "value-size", parseIntEnv("LT_VALUE_SIZE", 128), "Size of each value")
	fs.Float64Var(&c.TTLRatio, "ttl-ratio", parseFloatEnv("LT_TTL_RATIO", 0.0), "Ratio of PUTs carrying a TTL")
	fs.IntVar(&c.TTLMillis, "ttl-millis", parseIntEnv("LT_TTL_MILLIS", 10000), "TTL value in milliseconds")
	fs.StringVar(&c.Output, "output", envOr("LT_OUTPUT", "vegeta_results.bin"), "Raw vegeta results file")
	fs.DurationVar(&c.Timeout, "timeout", parseDurationEnv("LT_TIMEOUT", 5*time.Second), "Request timeout")
	fs.StringVar(&c.Name, "name", envOr("LT_NAME", "mixed"), "Name of the load test")
	fs.BoolVar(&c.ReadOnly, "read-only", readOnly, "Send GET requests only")

	flag.Parse()
	return &c, c.Validate()
}

// Validate は設定値の範囲を検証します。
func (c *Config) Validate() error {
	switch {
	case c.KeySpace <= 0:
		return fmt.Errorf("key-space must be positive, got %d", c.KeySpace)
	case c.Rate <= 0:
		return fmt.Errorf("rate must be positive, got %d", c.Rate)
	case c.Skew != 0 && c.Skew <= 1:
		return fmt.Errorf("skew must be 0 or greater than 1, got %g", c.Skew)
	case c.ValueSize < 0:
		return fmt.Errorf("value-size must not be negative, got %d", c.ValueSize)
	}
	return nil
}
