package scenario

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	vegeta "github.com/tsenart/vegeta/v12/lib"
)

func TestGeneratorMix(t *testing.T) {
	g := NewGenerator("http://x", 100, 8, 0, Mix{ReadRatio: 0.5, DeleteRatio: 0.5, TTLRatio: 1, TTLms: 50}, 42)
	tr := g.Targeter()

	counts := map[string]int{}
	for range 2000 {
		var tgt vegeta.Target
		if err := tr(&tgt); err != nil {
			t.Fatalf("targeter: %v", err)
		}
		if !strings.HasPrefix(tgt.URL, "http://x/kvs/k") {
			t.Fatalf("unexpected url %s", tgt.URL)
		}
		counts[tgt.Method]++
		if tgt.Method == http.MethodPut {
			var body struct {
				Value string `json:"value"`
				TTLMs int    `json:"ttl_ms"`
			}
			if err := json.Unmarshal(tgt.Body, &body); err != nil {
				t.Fatalf("body: %v", err)
			}
			if len(body.Value) != 8 || body.TTLMs != 50 {
				t.Fatalf("unexpected body %+v", body)
			}
		}
	}
	for _, m := range []string{http.MethodGet, http.MethodPut, http.MethodDelete} {
		if counts[m] == 0 {
			t.Fatalf("expected some %s requests, got %v", m, counts)
		}
	}
}

func TestGeneratorReadOnly(t *testing.T) {
	g := NewGenerator("http://x", 10, 4, 1.2, Mix{ReadOnly: true}, 7)
	tr := g.Targeter()
	for range 100 {
		var tgt vegeta.Target
		if err := tr(&tgt); err != nil {
			t.Fatalf("targeter: %v", err)
		}
		if tgt.Method != http.MethodGet {
			t.Fatalf("read-only generator produced %s", tgt.Method)
		}
	}
}

func TestGeneratorSkewStaysInKeySpace(t *testing.T) {
	g := NewGenerator("http://x", 50, 1, 1.5, Mix{ReadRatio: 1}, 1)
	for range 1000 {
		k := g.nextKey()
		if k > Key(49) {
			t.Fatalf("key %s outside key space", k)
		}
	}
}
