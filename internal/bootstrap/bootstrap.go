// Package bootstrap turns a config.Config into the stores and backends the
// API server and the operator CLI share.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"kiosk-backend/internal/backend"
	"kiosk-backend/internal/checklist"
	"kiosk-backend/internal/config"
	"kiosk-backend/internal/models"
	"kiosk-backend/internal/service"
)

// Template returns the checklist template from CHECKLIST_FILE, or the
// built-in one.
func Template(cfg config.Config) ([]models.ChecklistItem, error) {
	if cfg.ChecklistFile == "" {
		return checklist.DefaultTemplate(), nil
	}
	items, err := checklist.LoadTemplate(cfg.ChecklistFile)
	if err != nil {
		return nil, err
	}
	log.Printf("bootstrap: loaded %d checklist items from %s", len(items), cfg.ChecklistFile)
	return items, nil
}

// OpenStore opens the configured session registry, creating the schema for
// SQL drivers and seeding the demo sessions when enabled.
func OpenStore(ctx context.Context, cfg config.Config, template []models.ChecklistItem) (service.Store, error) {
	var seed []models.Session
	if cfg.SeedDemoSessions {
		seed = service.DemoSessions(time.Now().UTC(), template)
	}

	switch cfg.RegistryDriver {
	case config.RegistryMemory:
		log.Println("bootstrap: using in-memory session registry")
		return service.NewMemoryStore(seed...), nil

	case config.RegistrySQLite, config.RegistryPostgres:
		store, err := OpenSQL(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, err
		}
		if err := seedMissing(ctx, store, seed); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown registry driver %q", cfg.RegistryDriver)
	}
}

// OpenSQL opens the SQL registry without touching its schema.
func OpenSQL(ctx context.Context, cfg config.Config) (*service.SQLStore, error) {
	switch cfg.RegistryDriver {
	case config.RegistrySQLite:
		log.Println("bootstrap: using sqlite session registry at", cfg.SQLitePath)
		return service.OpenSQLite(ctx, cfg.SQLitePath)
	case config.RegistryPostgres:
		log.Println("bootstrap: using postgres session registry")
		return service.OpenPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("registry driver %q is not SQL backed", cfg.RegistryDriver)
	}
}

func seedMissing(ctx context.Context, store service.Store, seed []models.Session) error {
	for _, s := range seed {
		_, err := store.Get(ctx, s.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, service.ErrSessionNotFound) {
			return err
		}
		if err := store.Insert(ctx, s); err != nil {
			return fmt.Errorf("seed session %s: %w", s.ID, err)
		}
	}
	return nil
}

// Backend builds the configured backend wrapped in retries and circuit
// breakers. The returned func releases any client connections.
func Backend(ctx context.Context, cfg config.Config) (backend.Backend, func() error, error) {
	mock := backend.NewMock(backend.DefaultLatency().Scaled(cfg.MockLatencyScale))

	policy := backend.DefaultPolicy()
	policy.MaxAttempts = cfg.RetryMaxAttempts

	switch cfg.Backend {
	case config.BackendMock:
		log.Println("bootstrap: using mock backend")
		return backend.NewResilient(mock, policy), func() error { return nil }, nil

	case config.BackendGemini:
		gemini, err := backend.NewGemini(ctx, backend.GeminiConfig{
			ProjectID:       cfg.GoogleProject,
			Location:        cfg.GoogleLocation,
			CredentialsFile: cfg.GoogleCreds,
			Model:           cfg.GeminiModel,
		}, mock)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("bootstrap: using gemini backend (%s in %s)", cfg.GeminiModel, cfg.GoogleLocation)
		return backend.NewResilient(gemini, policy), gemini.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
