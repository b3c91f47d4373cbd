package commands

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/l3aro/divergence-lint/internal/diag"
	"github.com/l3aro/divergence-lint/pkg/cache"
	"github.com/l3aro/divergence-lint/pkg/dirty"
)

// verdictCacheFile holds lint verdicts keyed by the SHA256 hash of a
// module's raw bytes, so relinting an unchanged module (even under a
// different path, as `dlint lint --dir` scans turn up after a rename)
// replays the previous diagnostics instead of rerunning the analysis.
const verdictCacheFile = "verdicts.msgpack"

// cachedVerdict is the JSON-encoded form stored as a cache.LRUCache
// value: a plain string, so the msgpack round trip through Save/Load
// never has to reconstruct a concrete Go type from an interface{}.
type cachedVerdict struct {
	OK       bool          `json:"ok"`
	Messages []diag.Message `json:"messages"`
}

func verdictCachePath() string {
	return filepath.Join(dirty.DefaultCacheDir, verdictCacheFile)
}

// loadVerdictCache opens the on-disk verdict cache, starting empty if
// it doesn't exist yet or fails to decode (a corrupt cache is not
// fatal to linting, only to the speedup it provides).
func loadVerdictCache() *cache.LRUCache {
	c := cache.New(cache.Options{MaxSize: 4096})
	_ = cache.LoadFromFile(c, verdictCachePath())
	return c
}

func saveVerdictCache(c *cache.LRUCache) error {
	if err := os.MkdirAll(dirty.DefaultCacheDir, 0755); err != nil {
		return err
	}
	return cache.PersistToFile(c, verdictCachePath())
}

// lookupVerdict returns the cached verdict for hash, if one was
// recorded and is still decodable.
func lookupVerdict(c *cache.LRUCache, hash string) (cachedVerdict, bool) {
	raw, found := c.Get(hash)
	if !found {
		return cachedVerdict{}, false
	}
	s, ok := raw.(string)
	if !ok {
		return cachedVerdict{}, false
	}
	var v cachedVerdict
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return cachedVerdict{}, false
	}
	return v, true
}

func storeVerdict(c *cache.LRUCache, hash string, v cachedVerdict) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(hash, string(data))
}

// replayVerdict re-emits a cached verdict's recorded messages through
// consumer, exactly as they were reported the first time.
func replayVerdict(v cachedVerdict, consumer diag.Consumer) {
	for _, m := range v.Messages {
		consumer(m.Level, m.Source, m.Position, m.Text)
	}
}
