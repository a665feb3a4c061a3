package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/skillquest/internal/config"
	"github.com/abhisek/skillquest/internal/kvcache"
	"github.com/abhisek/skillquest/internal/learning"
	"github.com/abhisek/skillquest/internal/llm"
	"github.com/abhisek/skillquest/internal/logging"
	"github.com/abhisek/skillquest/internal/metrics"
	"github.com/abhisek/skillquest/internal/quest"
	"github.com/abhisek/skillquest/internal/questapi"
	"github.com/abhisek/skillquest/internal/review"
	"github.com/abhisek/skillquest/internal/roadmap"
	"github.com/abhisek/skillquest/internal/store"
)

// env is everything one command invocation needs.
type env struct {
	cfg      *config.Config
	log      *zap.Logger
	store    *store.Store
	metrics  *metrics.Recorder
	learning *learning.Service
	quest    *quest.Service

	closers []func() error
}

// meteredRecorder counts model calls before persisting them.
type meteredRecorder struct {
	store   *store.Store
	metrics *metrics.Recorder
}

func (r meteredRecorder) AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error {
	r.metrics.LLMRequest(data.Purpose, data.Success)
	return r.store.AppendLLMRequest(ctx, data)
}

// setup loads config and opens the database, cache and services. The
// caller must Close the returned env.
func setup(cmd *cobra.Command) (_ *env, err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfgPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	if l, _ := cmd.Flags().GetString("learner"); l != "" {
		cfg.Learner = l
	}

	log, closeLog, err := logging.New(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	e := &env{cfg: cfg, log: log, metrics: metrics.New()}
	e.closers = append(e.closers, closeLog)
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	dbPath, err := resolveDBPath(cmd, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	e.store = st
	e.closers = append(e.closers, st.Close)

	cache, err := kvcache.OpenBadger(kvcache.BadgerConfig{Path: cfg.CachePath(dbPath), Logger: log})
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	e.closers = append(e.closers, func() error {
		return errors.Join(cache.Flush(), cache.Close())
	})

	catalog, err := roadmap.LoadCatalog(cfg.RoadmapDir)
	if err != nil {
		return nil, fmt.Errorf("load roadmaps: %w", err)
	}

	opts := []learning.Option{
		learning.WithCache(cache),
		learning.WithMetrics(e.metrics),
		learning.WithLogger(log.Named("learning")),
	}
	if llmCfg, ok := llm.Resolve(); ok {
		provider, err := llm.NewProvider(ctx, llmCfg, meteredRecorder{store: st, metrics: e.metrics}, log.Named("llm"))
		if err != nil {
			return nil, err
		}
		opts = append(opts, learning.WithReviewer(review.NewService(provider, review.DefaultConfig(), log.Named("review"))))
	} else {
		log.Debug("no LLM provider configured; AI review disabled")
	}

	e.learning, err = learning.Open(ctx, cfg.Learner, catalog, st, opts...)
	if err != nil {
		return nil, err
	}

	apiOpts := []questapi.Option{questapi.WithTimeout(cfg.API.Timeout), questapi.WithLogger(log.Named("questapi"))}
	if cfg.API.RateLimit > 0 {
		apiOpts = append(apiOpts, questapi.WithRateLimit(cfg.API.RateLimit, max(cfg.API.Burst, 1)))
	}
	e.quest = quest.NewService(
		questapi.New(cfg.API.BaseURL, apiOpts...),
		e.learning,
		quest.WithConfig(quest.Config{
			PassScore:        cfg.Quest.PassScore,
			FinalPassScore:   cfg.Quest.FinalPassScore,
			FetchConcurrency: quest.DefaultConfig().FetchConcurrency,
		}),
		quest.WithCache(cache),
		quest.WithMetrics(e.metrics),
		quest.WithLogger(log.Named("quest")),
	)
	return e, nil
}

// Close writes the metrics textfile when configured and releases
// resources in reverse order of acquisition.
func (e *env) Close() error {
	var errList []error
	if e.cfg != nil && e.cfg.Metrics.Textfile != "" {
		if err := e.metrics.WriteTextfile(e.cfg.Metrics.Textfile); err != nil {
			e.log.Warn("write metrics textfile", zap.Error(err))
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errList = append(errList, err)
		}
	}
	return errors.Join(errList...)
}

// withEnv adapts a command body that needs an env.
func withEnv(run func(cmd *cobra.Command, args []string, e *env) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := setup(cmd)
		if err != nil {
			return err
		}
		defer e.Close()
		return run(cmd, args, e)
	}
}
