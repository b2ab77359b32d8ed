// Package main は 負荷試験ツールのエントリーポイントを提供します。
package main

import (
	"fmt"
	"os"

	"github.com/amakane-hakari/clockkv/loadtest/attacker"
	"github.com/amakane-hakari/clockkv/loadtest/config"
	"github.com/amakane-hakari/clockkv/loadtest/scenario"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(2)
	}

	fmt.Printf("[INFO] base-url=%s rate=%d duration=%s read-ratio=%.2f delete-ratio=%.2f key-space=%d skew=%.2f value-size=%d ttl-ratio=%.2f ttl-ms=%d read-only=%v\n",
		cfg.BaseURL, cfg.Rate, cfg.Duration, cfg.ReadRatio, cfg.DeleteRatio, cfg.KeySpace, cfg.Skew, cfg.ValueSize, cfg.TTLRatio, cfg.TTLMillis, cfg.ReadOnly)

	gen := scenario.NewGenerator(cfg.BaseURL, cfg.KeySpace, cfg.ValueSize, cfg.Skew, scenario.Mix{
		ReadRatio:   cfg.ReadRatio,
		DeleteRatio: cfg.DeleteRatio,
		TTLRatio:    cfg.TTLRatio,
		TTLms:       cfg.TTLMillis,
		ReadOnly:    cfg.ReadOnly,
	}, 0)

	r := attacker.Runner{
		Rate:     cfg.Rate,
		Duration: cfg.Duration,
		Timeout:  cfg.Timeout,
		Name:     cfg.Name,
		Output:   cfg.Output,
		StatsURL: cfg.BaseURL + "/stats",
	}

	if _, err := r.Run(gen.Targeter()); err != nil {
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
