// Package scenario は clockkv の /kvs に向けたリクエスト列を生成します。
package scenario

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

// Mix は操作の割合です。
type Mix struct {
	ReadRatio   float64
	DeleteRatio float64
	TTLRatio    float64
	TTLms       int
	ReadOnly    bool
}

// Generator は負荷試験のターゲットを生成します。
// キーの人気度は Zipf 分布に従うため、一部のキーが繰り返し読まれ参照ビットが立ち続けます。
type Generator struct {
	BaseURL  string
	KeySpace int
	Mix      Mix

	mu   sync.Mutex
	rnd  *rand.Rand
	zipf *rand.Zipf
	buf  []byte
}

// NewGenerator は Generator を作成します。skew が 0 の場合キーは一様に選ばれます。
func NewGenerator(base string, keySpace, valueSize int, skew float64, mix Mix, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := rand.New(rand.NewSource(seed))
	g := &Generator{
		BaseURL:  base,
		KeySpace: keySpace,
		Mix: Mix{
			ReadRatio:   clamp(mix.ReadRatio, 0, 1),
			DeleteRatio: clamp(mix.DeleteRatio, 0, 1),
			TTLRatio:    clamp(mix.TTLRatio, 0, 1),
			TTLms:       mix.TTLms,
			ReadOnly:    mix.ReadOnly,
		},
		rnd: r,
		buf: make([]byte, valueSize),
	}
	if skew > 1 && keySpace > 1 {
		g.zipf = rand.NewZipf(r, skew, 1, uint64(keySpace-1))
	}
	return g
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Key は i 番目のキー名を返します。
func Key(i int) string { return fmt.Sprintf("k%06d", i) }

func (g *Generator) nextKey() string {
	if g.zipf != nil {
		return Key(int(g.zipf.Uint64()))
	}
	return Key(g.rnd.Intn(g.KeySpace))
}

// Targeter は vegeta.Targeter を返します。
func (g *Generator) Targeter() vegeta.Targeter {
	return func(t *vegeta.Target) error {
		g.mu.Lock()
		defer g.mu.Unlock()

		url := fmt.Sprintf("%s/kvs/%s", g.BaseURL, g.nextKey())
		t.URL = url
		t.Body = nil
		t.Header = nil

		if g.Mix.ReadOnly || g.rnd.Float64() < g.Mix.ReadRatio {
			t.Method = http.MethodGet
			return nil
		}
		if g.rnd.Float64() < g.Mix.DeleteRatio {
			t.Method = http.MethodDelete
			return nil
		}

		fillRandomLetters(g.rnd, g.buf)
		bodyObj := map[string]any{
			"value": string(g.buf),
		}
		if g.Mix.TTLms > 0 && g.rnd.Float64() < g.Mix.TTLRatio {
			bodyObj["ttl_ms"] = g.Mix.TTLms
		}
		b, err := json.Marshal(bodyObj)
		if err != nil {
			return err
		}
		t.Method = http.MethodPut
		t.Body = b
		t.Header = http.Header{"Content-Type": []string{"application/json"}}
		return nil
	}
}

func fillRandomLetters(r *rand.Rand, buf []byte) {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	for i := range buf {
		buf[i] = letters[r.Intn(len(letters))]
	}
}
