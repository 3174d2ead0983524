package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/ma-discovery/internal/connector"
	"github.com/sells-group/ma-discovery/internal/crawl"
	"github.com/sells-group/ma-discovery/internal/enrich"
	"github.com/sells-group/ma-discovery/internal/pipeline"
	"github.com/sells-group/ma-discovery/internal/runs"
	"github.com/sells-group/ma-discovery/internal/score"
	"github.com/sells-group/ma-discovery/internal/store"
	anthropicpkg "github.com/sells-group/ma-discovery/pkg/anthropic"
)

// pipelineEnv holds the initialized store, registry, and pipeline shared
// by the search and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Registry *runs.Registry
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		path := cfg.Store.Path
		if path == "" {
			path = "ma_discovery.db"
		}
		return store.NewSQLite(path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

func initConnector() (connector.Connector, error) {
	switch cfg.Search.Connector {
	case "websearch":
		return connector.NewWebSearchConnector(), nil
	case "mock":
		zap.L().Warn("using mock connector, results are canned fixtures")
		return connector.NewMockConnector(), nil
	default:
		return nil, eris.Errorf("unsupported search connector: %s", cfg.Search.Connector)
	}
}

// initPipeline sets up the store, connector, enricher, and scorer, and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	conn, err := initConnector()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	fetcher := crawl.NewFetcher(
		crawl.WithUserAgent(cfg.Crawl.UserAgent),
		crawl.WithRequestInterval(time.Duration(cfg.Crawl.RequestIntervalMS)*time.Millisecond),
	)
	cached := pipeline.NewCachingFetcher(fetcher, st, time.Duration(cfg.Crawl.CacheTTLHours)*time.Hour)

	enrichOpts := []enrich.EnricherOption{
		enrich.WithEnrichWorkers(cfg.Enrich.Workers),
		enrich.WithLLMThreshold(cfg.Enrich.LLMConfidenceThreshold),
	}
	paths := cfg.Crawl.PagePaths
	if cfg.Crawl.MaxPages > 0 && len(paths) > cfg.Crawl.MaxPages {
		paths = paths[:cfg.Crawl.MaxPages]
	}
	if len(paths) > 0 {
		enrichOpts = append(enrichOpts, enrich.WithPagePaths(paths))
	}
	if cfg.Anthropic.Key != "" {
		client := anthropicpkg.NewClient(cfg.Anthropic.Key)
		enrichOpts = append(enrichOpts, enrich.WithLLMParser(enrich.NewLLMParser(client, cfg.Anthropic.Model)))
		zap.L().Info("llm extraction enabled", zap.String("model", cfg.Anthropic.Model))
	} else {
		zap.L().Debug("MADISCO_ANTHROPIC_KEY not set, running rule-based extraction only")
	}

	registry := runs.NewRegistry(st)
	p := pipeline.New(
		registry,
		conn,
		enrich.NewEnricher(cached, enrichOpts...),
		score.NewScorer(score.WithWorkers(cfg.Score.Workers)),
	)

	return &pipelineEnv{Store: st, Registry: registry, Pipeline: p}, nil
}
