package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/thinkscotty/blogzin/internal/ai"
	"github.com/thinkscotty/blogzin/internal/config"
	"github.com/thinkscotty/blogzin/internal/database"
	"github.com/thinkscotty/blogzin/internal/database/postgres"
	"github.com/thinkscotty/blogzin/internal/database/sqlite"
	"github.com/thinkscotty/blogzin/internal/facts"
	"github.com/thinkscotty/blogzin/internal/pipeline"
)

func openStore(ctx context.Context, cfg config.DatabaseConfig) (database.Store, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.URL, cfg.MaxConns, database.Options{})
		if err != nil {
			return nil, err
		}
		slog.Info("Database initialized", "driver", "postgres")
		return db, nil
	default:
		db, err := sqlite.New(cfg.Path, database.Options{})
		if err != nil {
			return nil, err
		}
		slog.Info("Database initialized", "driver", "sqlite", "path", cfg.Path)
		return db, nil
	}
}

func factSources(cfg config.FactsConfig) []facts.Source {
	sources := make([]facts.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		name := s.Name
		if name == "" {
			name = s.ID
		}
		sources = append(sources, facts.Source{ID: s.ID, Name: name, URL: s.URL, Kind: s.Kind})
	}
	return sources
}

// newPipeline wires the fact client, the configured AI provider and store.
func newPipeline(cfg config.Config, store database.Store) (*pipeline.Pipeline, *facts.Client, error) {
	factClient := facts.New(factSources(cfg.Facts), time.Duration(cfg.Facts.TimeoutSeconds)*time.Second)

	provider, err := ai.NewProvider(cfg.AI.Provider, ai.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
		Timeout: time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create ai provider: %w", err)
	}
	if cfg.AI.APIKey == "" && cfg.AI.Provider == "gemini" {
		slog.Warn("No Gemini API key configured; generation will fail until GEMINI_API_KEY is set")
	}

	synth := ai.NewSynthesizer(provider, ai.Options{
		Locale:      cfg.AI.Locale,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
	})
	return pipeline.New(factClient, synth, store), factClient, nil
}
