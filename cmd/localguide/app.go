package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/local-guide/internal/common"
	"github.com/Veraticus/local-guide/internal/config"
	"github.com/Veraticus/local-guide/internal/generator"
	"github.com/Veraticus/local-guide/internal/guard"
	"github.com/Veraticus/local-guide/internal/knowledge"
	"github.com/Veraticus/local-guide/internal/llm"
	"github.com/Veraticus/local-guide/internal/pipeline"
	"github.com/Veraticus/local-guide/internal/scope"
	"github.com/Veraticus/local-guide/internal/service"
	"github.com/Veraticus/local-guide/internal/storage"
)

// app is the wired pipeline plus the resources it owns.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	source *knowledge.FileSource
	store  *storage.SQLiteStorage
	engine *pipeline.Engine
}

// openApp builds the app with the configured LLM provider.
func openApp(ctx context.Context, cfg config.Config) (*app, error) {
	completer, err := llm.NewCompleter(ctx, llm.Config{
		Provider:  cfg.LLM.Provider,
		APIKey:    cfg.LLM.APIKey,
		Model:     cfg.LLM.Model,
		BaseURL:   cfg.LLM.BaseURL,
		RateLimit: cfg.LLM.RateLimit,
		Burst:     cfg.LLM.Burst,
	})
	if err != nil {
		return nil, common.NewUserError("could not set up the "+cfg.LLM.Provider+" provider", err)
	}
	return newApp(ctx, cfg, completer, slog.Default())
}

// newApp wires every pipeline component from cfg around completer.
func newApp(ctx context.Context, cfg config.Config, completer llm.Completer, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	registry := knowledge.NewRegistryFromCities(cfg.Cities)
	a.source = knowledge.NewFileSource(cfg.Knowledge.Dir, cfg.Knowledge.CacheTTL, logger)
	if cfg.Knowledge.Watch {
		if err := a.source.Watch(ctx); err != nil {
			logger.Warn("knowledge watcher unavailable, edits need a restart", "error", err)
		}
	}

	binder := knowledge.NewBinder(registry,
		knowledge.WithMinLength(cfg.Knowledge.MinLength),
		knowledge.WithLogger(logger))

	classifier, err := scope.NewKeywordClassifier(
		scope.WithCities(registry.Cities()),
		scope.WithExcludedPlaces(cfg.Scope.ExcludedPlaces),
		scope.WithMaxQueryLength(cfg.Scope.MaxQueryLength),
		scope.WithMemoSize(cfg.Scope.MemoSize))
	if err != nil {
		return nil, a.fail(fmt.Errorf("failed to create classifier: %w", err))
	}

	gen, err := generator.New(completer, llm.Options{
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		Timeout:     cfg.LLM.Timeout,
	}, logger)
	if err != nil {
		return nil, a.fail(fmt.Errorf("failed to create generator: %w", err))
	}

	g := guard.NewRuleGuard(guard.Config{
		AllowedTerms:       cfg.Guard.AllowedTerms,
		MaxUngroundedRatio: cfg.Guard.MaxUngroundedRatio,
		MinOverlap:         cfg.Guard.MinOverlap,
	}, logger)

	var history service.HistoryStore
	if cfg.Database.Enabled {
		a.store, err = storage.Open(ctx, cfg.Database.Path)
		if err != nil {
			return nil, a.fail(fmt.Errorf("failed to open history database: %w", err))
		}
		history = a.store
	}

	refusals, err := cfg.Pipeline.Refusals.Phrases()
	if err != nil {
		return nil, a.fail(err)
	}

	a.engine, err = pipeline.New(pipeline.Components{
		Binder:     binder,
		Source:     a.source,
		Classifier: classifier,
		Generator:  gen,
		Guard:      g,
		Store:      history,
	}, pipeline.Config{
		Refusals: refusals,
		Retry: service.RetryOptions{
			MaxAttempts:  cfg.LLM.MaxRetries,
			InitialDelay: cfg.LLM.RetryDelay,
			MaxDelay:     10 * cfg.LLM.RetryDelay,
			Multiplier:   2,
		},
	}, logger)
	if err != nil {
		return nil, a.fail(err)
	}

	logger.Debug("pipeline ready",
		"cities", registry.Names(),
		"provider", completer.Name(),
		"history", cfg.Database.Enabled)
	return a, nil
}

// requireStore returns the history store or a user error when history is off.
func (a *app) requireStore() (*storage.SQLiteStorage, error) {
	if a.store == nil {
		return nil, common.NewUserError("history is disabled; enable database.enabled or pass --history", common.ErrMissingConfig)
	}
	return a.store, nil
}

func (a *app) fail(err error) error {
	return errors.Join(err, a.Close())
}

// Close releases everything the app opened.
func (a *app) Close() error {
	if a.engine != nil {
		a.engine.Close()
	}
	var errs []error
	if a.source != nil {
		errs = append(errs, a.source.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx, appCfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			a.logger.Warn("failed to close resources", "error", closeErr)
		}
	}()
	return fn(a)
}

// askTimeout bounds a single one-shot question, retries included.
func askTimeout(cfg config.Config) time.Duration {
	return time.Duration(cfg.LLM.MaxRetries+1) * cfg.LLM.Timeout
}
