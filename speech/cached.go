package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/charmbracelet/log"
)

// CacheKey identifies synthesized audio by language, voice and text
func CacheKey(req Request) string {
	hash := sha256.Sum256([]byte(req.LanguageCode + "|" + req.VoiceName + "|" + req.Text))
	return hex.EncodeToString(hash[:16])
}

// SynthesisStats counts cache hits and upstream calls
type SynthesisStats struct {
	Hits   int64
	Misses int64
}

// CachedSynthesizer memoizes another Synthesizer. The memory tier is checked
// first, then the disk tier when configured; disk hits are promoted to memory.
type CachedSynthesizer struct {
	next   Synthesizer
	memory *MemoryCache
	disk   *DiskCache // optional
	logger *log.Logger

	mu    sync.Mutex
	stats SynthesisStats
}

// NewCachedSynthesizer wraps next. disk may be nil.
func NewCachedSynthesizer(next Synthesizer, memory *MemoryCache, disk *DiskCache, logger *log.Logger) *CachedSynthesizer {
	if memory == nil {
		memory = NewMemoryCache(32 << 20)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CachedSynthesizer{next: next, memory: memory, disk: disk, logger: logger}
}

// Synthesize returns cached audio when an identical request was seen before
func (c *CachedSynthesizer) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	key := CacheKey(req)

	if data, ok := c.memory.Get(key); ok {
		c.count(true)
		return &Audio{Data: data, MIMEType: MIMETypeMP3}, nil
	}
	if c.disk != nil {
		if data, ok := c.disk.Get(key); ok {
			c.count(true)
			c.store(key, data, false)
			return &Audio{Data: data, MIMEType: MIMETypeMP3}, nil
		}
	}

	audio, err := c.next.Synthesize(ctx, req)
	if err != nil {
		return nil, err
	}
	c.count(false)
	c.store(key, audio.Data, c.disk != nil)
	return audio, nil
}

// store never fails the synthesis
func (c *CachedSynthesizer) store(key string, data []byte, toDisk bool) {
	if err := c.memory.Put(key, data); err != nil {
		c.logger.Debug("audio not kept in memory cache", "key", key, "err", err)
	}
	if toDisk {
		if err := c.disk.Put(key, data); err != nil {
			c.logger.Warn("could not write audio cache", "key", key, "err", err)
		}
	}
}

func (c *CachedSynthesizer) count(hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
	}
}

// Stats returns hit and miss counts
func (c *CachedSynthesizer) Stats() SynthesisStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
