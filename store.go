package sheetcrud

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

// Store wraps an Adapter with retry logic and error classification
type Store struct {
	adapter Adapter
	config  Config
	logger  *log.Logger
}

// NewStore creates a new Store with the given adapter and configuration
func NewStore(adapter Adapter, config *Config) *Store {
	cfg := config.withDefaults()
	return &Store{
		adapter: adapter,
		config:  cfg,
		logger:  cfg.Logger,
	}
}

// Adapter returns the wrapped adapter
func (s *Store) Adapter() Adapter {
	return s.adapter
}

// Load loads all records from the adapter. Failures after all retries are
// returned as *ReadError.
func (s *Store) Load(ctx context.Context) ([]*Record, []string, error) {
	var records []*Record
	var schema []string

	err := s.retry(ctx, "load", func() error {
		var err error
		records, schema, err = s.adapter.Load(ctx)
		return err
	})
	if err != nil {
		return nil, nil, &ReadError{Err: err}
	}

	s.logger.Debug("loaded records", "count", len(records), "columns", len(schema))
	return records, schema, nil
}

// Save replaces the backing store contents. Failures after all retries are
// returned as *WriteError.
func (s *Store) Save(ctx context.Context, records []*Record, schema []string) error {
	err := s.retry(ctx, "save", func() error {
		return s.adapter.Save(ctx, records, schema)
	})
	if err != nil {
		return &WriteError{Err: err}
	}

	s.logger.Debug("saved records", "count", len(records))
	return nil
}

func (s *Store) retry(ctx context.Context, op string, fn func() error) error {
	var err error
	for i := 0; i <= s.config.MaxRetries; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		s.logger.Warn(op+" attempt failed", "attempt", i+1, "err", err)
		if i == s.config.MaxRetries {
			break
		}

		// Exponential backoff with reasonable limits
		backoff := time.Duration(1<<uint(i)) * 100 * time.Millisecond
		if backoff > s.config.RetryInterval {
			backoff = s.config.RetryInterval
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return fmt.Errorf("failed after %d retries: %w", s.config.MaxRetries, err)
}
