package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/SafeerAbbas624/lead-management-system/internal/cleaner"
	"github.com/SafeerAbbas624/lead-management-system/internal/config"
	"github.com/SafeerAbbas624/lead-management-system/internal/distribution"
	"github.com/SafeerAbbas624/lead-management-system/internal/lead"
	"github.com/SafeerAbbas624/lead-management-system/internal/session"
)

// env bundles the wired application components for a command run.
type env struct {
	Store     lead.Store
	Arena     *session.MemArena
	Pipeline  *session.Pipeline
	Allocator *distribution.Allocator
}

func (e *env) Close() {
	if e.Arena != nil {
		e.Arena.Close()
	}
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.S().Warnw("close store", "error", err)
		}
	}
}

// initEnv opens the configured store and wires the pipeline and allocator.
func initEnv(ctx context.Context) (*env, error) {
	store, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		store.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	arena := session.NewMemArena(
		time.Duration(cfg.Session.TTLMinutes)*time.Minute,
		time.Duration(cfg.Session.SweepSeconds)*time.Second,
	)
	pipeline := session.NewPipeline(store, arena, cleanOptions(cfg.Cleaning), cfg.Session.PreviewRows, cfg.Session.SampleRows)
	allocator := distribution.NewAllocator(store, cfg.Distribution.HistoryBatchSize, nil)

	return &env{
		Store:     store,
		Arena:     arena,
		Pipeline:  pipeline,
		Allocator: allocator,
	}, nil
}

func openStore(ctx context.Context) (lead.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		return lead.NewMem(), nil
	case "postgres", "":
		if cfg.Store.DatabaseURL == "" {
			return nil, eris.New("database url is required (LEADS_STORE_DATABASE_URL)")
		}
		return lead.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.MaxConns, cfg.Store.MinConns)
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// cleanOptions builds cleaner options from config, merging configured typo
// corrections over the built-in table.
func cleanOptions(c config.CleaningConfig) cleaner.Options {
	opts := cleaner.DefaultOptions()
	if c.NameFormat != "" {
		opts.NameFormat = c.NameFormat
	}
	if c.PhoneFormat != "" {
		opts.PhoneFormat = c.PhoneFormat
	}
	if c.EmailFormat != "" {
		opts.EmailFormat = c.EmailFormat
	}
	if c.AddressFormat != "" {
		opts.AddressFormat = c.AddressFormat
	}
	if c.TypoCorrections != "" {
		opts.TypoCorrections = map[string]string{}
		for _, line := range strings.Split(c.TypoCorrections, "\n") {
			typo, fix, ok := strings.Cut(strings.TrimSpace(line), "=")
			if !ok || typo == "" || fix == "" {
				continue
			}
			opts.TypoCorrections[typo] = fix
		}
	}
	return opts
}
