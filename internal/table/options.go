package table

import "time"

// Config はテーブルの設定を表します。
type Config struct {
	Shards       int     // 2 の冪に切り上げ。0/未指定なら 16
	InitialSlots int     // シャードあたりの初期スロット数。0/未指定なら 8
	MaxLoad      float64 // (live+tombstone)/slots の上限。範囲外なら 0.75
	Now          func() int64
	OnRehash     func(RehashEvent)
}

// RehashEvent はシャードのリハッシュ 1 回分の情報です。
type RehashEvent struct {
	Shard           int
	Generation      uint64 // テーブル全体の世代
	ShardGeneration uint64 // リハッシュしたシャードの世代
	OldSlots        int
	NewSlots        int
	Live            int
	Reclaimed       int
}

// Option はテーブルのオプションを設定する関数です。
type Option func(*Config)

// WithShards はシャード数を設定するオプションです。
func WithShards(n int) Option {
	return func(c *Config) { c.Shards = n }
}

// WithInitialSlots はシャードあたりの初期スロット数を設定するオプションです。
func WithInitialSlots(n int) Option {
	return func(c *Config) { c.InitialSlots = n }
}

// WithMaxLoad はリハッシュを起こす負荷率を設定するオプションです。
func WithMaxLoad(f float64) Option {
	return func(c *Config) { c.MaxLoad = f }
}

// WithClock は TTL 判定に使う時刻関数を差し替えるオプションです。
func WithClock(now func() int64) Option {
	return func(c *Config) { c.Now = now }
}

// WithRehashHook はリハッシュ完了時に呼ばれる関数を設定するオプションです。
// シャードの書き込みロック下で呼ばれるため、テーブルを操作してはいけません。
func WithRehashHook(fn func(RehashEvent)) Option {
	return func(c *Config) { c.OnRehash = fn }
}

func defaultConfig() Config {
	return Config{
		Shards:       16,
		InitialSlots: 8,
		MaxLoad:      0.75,
		Now:          func() int64 { return time.Now().UnixNano() },
	}
}
