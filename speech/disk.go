package speech

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// DiskCache persists synthesized audio across sessions as zstd-compressed files
type DiskCache struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

const diskCacheExt = ".mp3.zst"

// NewDiskCache creates the cache directory if needed
func NewDiskCache(dir string) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	return &DiskCache{dir: dir, encoder: encoder, decoder: decoder}, nil
}

func (d *DiskCache) path(key string) string {
	// 2文字のサブディレクトリで分散させる
	if len(key) > 2 {
		return filepath.Join(d.dir, key[:2], key+diskCacheExt)
	}
	return filepath.Join(d.dir, key+diskCacheExt)
}

// Get reads and decompresses an entry. Corrupted entries are removed.
func (d *DiskCache) Get(key string) ([]byte, bool) {
	path := d.path(key)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	decoded, err := d.decoder.DecodeAll(data, nil)
	if err != nil {
		_ = os.Remove(path)
		return nil, false
	}
	return decoded, true
}

// Put compresses and writes an entry atomically
func (d *DiskCache) Put(key string, value []byte) error {
	path := d.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if _, err := tmp.Write(d.encoder.EncodeAll(value, nil)); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Clear removes every cached entry
func (d *DiskCache) Clear() error {
	return filepath.Walk(d.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, diskCacheExt) {
			return os.Remove(path)
		}
		return nil
	})
}

// Close releases the compression resources
func (d *DiskCache) Close() error {
	d.decoder.Close()
	return d.encoder.Close()
}
