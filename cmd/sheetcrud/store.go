package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	sheetcrud "github.com/ideamans/go-sheetcrud"
	"github.com/ideamans/go-sheetcrud/adapters/excel"
	"github.com/ideamans/go-sheetcrud/adapters/googlesheets"
	"github.com/ideamans/go-sheetcrud/adapters/sqlite"
	"github.com/ideamans/go-sheetcrud/internal/gauth"
	"github.com/ideamans/go-sheetcrud/speech"
)

// openStore builds the configured adapter wrapped in a retrying store. The
// returned closer releases adapter resources.
func openStore(ctx context.Context, cfg storeConfig, logger *log.Logger) (*sheetcrud.Store, func() error, error) {
	var (
		adapter  sheetcrud.Adapter
		defaults *sheetcrud.Config
		closer   = func() error { return nil }
	)

	switch cfg.Type {
	case "googlesheets":
		sc := googlesheets.Config{
			SpreadsheetID: cfg.GoogleSheets.SpreadsheetID,
			SheetName:     cfg.GoogleSheets.SheetName,
		}
		var (
			a   *googlesheets.SheetsAdaptor
			err error
		)
		if keyFile, kerr := gauth.ResolveKeyFile(cfg.GoogleSheets.CredentialsFile); kerr == nil {
			a, err = googlesheets.NewWithJSONKeyFile(ctx, sc, keyFile)
		} else {
			a, err = googlesheets.NewWithDefaultCredentials(ctx, sc)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open google sheets store: %w", err)
		}
		adapter, defaults = a, googlesheets.DefaultStoreConfig()

	case "excel", "":
		a, err := excel.New(&excel.Config{
			FilePath:  cfg.Excel.Path,
			SheetName: cfg.Excel.SheetName,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open excel store: %w", err)
		}
		adapter, defaults = a, excel.DefaultStoreConfig()

	case "sqlite":
		a, err := sqlite.Open(sqlite.Config{
			Path:  cfg.SQLite.Path,
			Table: cfg.SQLite.Table,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		adapter, defaults, closer = a, sqlite.DefaultStoreConfig(), a.Close

	default:
		return nil, nil, fmt.Errorf("unknown store type %q: use googlesheets, excel or sqlite", cfg.Type)
	}

	if cfg.MaxRetries > 0 {
		defaults.MaxRetries = cfg.MaxRetries
	}
	if cfg.RetryInterval > 0 {
		defaults.RetryInterval = cfg.RetryInterval
	}
	defaults.Logger = logger

	logger.Debug("opened store", "type", cfg.Type, "max_retries", defaults.MaxRetries, "retry_interval", defaults.RetryInterval)
	return sheetcrud.NewStore(adapter, defaults), closer, nil
}

// openSynthesizer returns the cached Google synthesizer, or nil when speech
// is disabled.
func openSynthesizer(ctx context.Context, cfg speechConfig, logger *log.Logger) (speech.Synthesizer, func() error, error) {
	noop := func() error { return nil }
	if !cfg.Enabled {
		return nil, noop, nil
	}

	gcfg := speech.GoogleConfig{
		RequestsPerMinute: cfg.RequestsPerMinute,
		Logger:            logger,
	}
	var (
		google *speech.GoogleSynthesizer
		err    error
	)
	if keyFile, kerr := gauth.ResolveKeyFile(cfg.CredentialsFile); kerr == nil {
		google, err = speech.NewWithJSONKeyFile(ctx, gcfg, keyFile)
	} else {
		google, err = speech.NewWithDefaultCredentials(ctx, gcfg)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create synthesizer: %w", err)
	}

	memoryMB := cfg.Cache.MemoryMB
	if memoryMB <= 0 {
		memoryMB = 32
	}
	memory := speech.NewMemoryCache(int64(memoryMB) << 20)

	var disk *speech.DiskCache
	closer := noop
	if cfg.Cache.Dir != "" {
		disk, err = speech.NewDiskCache(cfg.Cache.Dir)
		if err != nil {
			return nil, nil, err
		}
		closer = disk.Close
	}
	return speech.NewCachedSynthesizer(google, memory, disk, logger), closer, nil
}
