package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/CristopherRL/talent-inbound-os/internal/pipeline"
	"github.com/CristopherRL/talent-inbound-os/internal/store"
)

// appEnv holds the initialized store, processor, and emitter shared by the
// process/draft/serve commands.
type appEnv struct {
	Store     store.Store
	Processor *pipeline.Processor
	Emitter   *pipeline.Emitter
	Drafts    *pipeline.DraftService
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "talent.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, runs migrations, and builds the processor.
// Callers should defer env.Close().
func initEnv(ctx context.Context) (*appEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	router := pipeline.NewModelRouter(cfg.Anthropic)
	emitter := pipeline.NewEmitter()
	processor, err := pipeline.NewProcessor(cfg, router, st, emitter)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	return &appEnv{
		Store:     st,
		Processor: processor,
		Emitter:   emitter,
		Drafts:    pipeline.NewDraftService(st, processor.Communicator()),
	}, nil
}
