package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/explore-jakarta/recocache/pkg/cache"
	"github.com/explore-jakarta/recocache/pkg/client"
	"github.com/explore-jakarta/recocache/pkg/config"
	"github.com/explore-jakarta/recocache/pkg/models"
	"github.com/explore-jakarta/recocache/pkg/recommend"
	"github.com/explore-jakarta/recocache/pkg/tracker"
)

// stack is the wired gateway and its dependencies.
type stack struct {
	gateway  *recommend.Gateway
	upstream *client.Client
	// tracker is nil when lookup tracking is disabled.
	tracker *tracker.SQLiteTracker
	closers []func() error
}

// buildStack wires cache, upstream client, tracker and gateway from cfg.
func buildStack(cfg *config.Config, log *slog.Logger) (*stack, error) {
	s := &stack{}

	upstream, err := client.New(cfg.Upstream.BaseURL, &http.Client{})
	if err != nil {
		return nil, fmt.Errorf("init upstream client: %w", err)
	}
	s.upstream = upstream

	store := cache.New[[]models.Place](cache.WithLogger(log))
	store.StartSweeper(cfg.Cache.SweepInterval)
	s.closers = append(s.closers, store.Close)

	opts := recommend.Options{
		TTL:     cfg.Cache.TTL,
		TopN:    cfg.Upstream.TopN,
		Timeout: cfg.Upstream.Timeout,
		Dedupe:  cfg.Cache.DedupeInflight,
		Logger:  log,
	}

	if cfg.Tracker.Enabled {
		tr, err := tracker.New(cfg.Tracker.DBPath, cfg.Tracker.Retention, log)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("init tracker: %w", err)
		}
		rec := tracker.NewAsyncRecorder(tr, 0, log)
		// Closed in reverse: the recorder flushes before the db closes.
		s.closers = append(s.closers, tr.Close, rec.Close)
		s.tracker = tr
		opts.Recorder = rec
	}

	s.gateway = recommend.New(store, upstream, opts)
	return s, nil
}

// Close releases everything buildStack opened, newest first.
func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
