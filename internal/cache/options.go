package cache

import (
	"time"

	"github.com/amakane-hakari/clockkv/internal/metrics"
)

type logLike interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config はキャッシュの設定を表します。
type Config struct {
	Shards          int           // 2 の冪推奨。0/未指定なら 16
	InitialSlots    int           // シャードあたりの初期スロット数。0/未指定なら 8
	CleanupInterval time.Duration // 0 で無効
	AsyncEviction   bool          // true なら追い出しをバックグラウンドで行う
	Logger          logLike
	Metrics         metrics.Interface
	Clock           func() int64 // UnixNano。nil なら time.Now
}

// Option はキャッシュのオプションを設定する関数です。
type Option func(*Config)

// WithLogger はキャッシュのロガーを設定するオプションです。
func WithLogger(l logLike) Option {
	return func(c *Config) { c.Logger = l }
}

// WithMetrics はキャッシュのメトリクスを設定するオプションです。
func WithMetrics(m metrics.Interface) Option {
	return func(c *Config) { c.Metrics = m }
}

// WithShards はキャッシュのシャード数を設定するオプションです。
func WithShards(n int) Option {
	return func(c *Config) { c.Shards = n }
}

// WithInitialSlots はシャードあたりの初期スロット数を設定するオプションです。
func WithInitialSlots(n int) Option {
	return func(c *Config) { c.InitialSlots = n }
}

// WithCleanupInterval は期限切れエントリのクリーンアップ間隔を設定するオプションです。
func WithCleanupInterval(d time.Duration) Option {
	return func(c *Config) { c.CleanupInterval = d }
}

// WithAsyncEviction は追い出しをバックグラウンドのゴルーチンに任せるオプションです。
// Put は容量超過を通知するだけで、スイープの完了を待ちません。
func WithAsyncEviction() Option {
	return func(c *Config) { c.AsyncEviction = true }
}

// WithClock は TTL 判定に使う時刻関数を差し替えるオプションです。
func WithClock(now func() int64) Option {
	return func(c *Config) { c.Clock = now }
}
