package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultFlushSpec  = "*/5 * * * *"
	flushCacheTimeout = time.Minute
)

// Flusher is a cache whose failed snapshot writes can be retried.
type Flusher interface {
	Dirty() bool
	Flush(ctx context.Context) error
	Len() int
}

type Scheduler struct {
	ctx   context.Context
	cron  *cron.Cron
	spec  string
	cache Flusher
	log   *slog.Logger
}

func New(ctx context.Context, spec string, cache Flusher, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.UTC))

	if spec == "" {
		spec = DefaultFlushSpec
	}

	return &Scheduler{
		ctx:   ctx,
		cron:  c,
		spec:  spec,
		cache: cache,
		log:   log,
	}
}

func (s *Scheduler) Spec() string {
	return s.spec
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.flushCache); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

// Stop halts the schedule and waits for a running flush to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) flushCache() {
	ctx, cancel := context.WithTimeout(s.ctx, flushCacheTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	if !s.cache.Dirty() {
		return
	}

	if err := s.cache.Flush(ctx); err != nil {
		s.log.ErrorContext(ctx, "Failed to flush summary cache",
			"error", err,
			"entries", s.cache.Len())

		return
	}

	s.log.InfoContext(ctx, "Summary cache is flushed",
		"entries", s.cache.Len())
}
