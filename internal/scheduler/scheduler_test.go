package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlusher struct {
	dirty   bool
	flushes int
	err     error
}

func (f *fakeFlusher) Dirty() bool { return f.dirty }

func (f *fakeFlusher) Len() int { return 1 }

func (f *fakeFlusher) Flush(context.Context) error {
	f.flushes++
	if f.err != nil {
		return f.err
	}
	f.dirty = false
	return nil
}

func TestFlushCacheSkipsCleanCache(t *testing.T) {
	f := &fakeFlusher{}
	s := New(context.Background(), "", f, slog.New(slog.DiscardHandler))

	s.flushCache()

	assert.Equal(t, 0, f.flushes)
}

func TestFlushCacheFlushesDirtyCache(t *testing.T) {
	f := &fakeFlusher{dirty: true}
	s := New(context.Background(), "", f, slog.New(slog.DiscardHandler))

	s.flushCache()

	assert.Equal(t, 1, f.flushes)
	assert.False(t, f.dirty)
}

func TestFlushCacheKeepsDirtyOnError(t *testing.T) {
	f := &fakeFlusher{dirty: true, err: errors.New("disk full")}
	s := New(context.Background(), "", f, slog.New(slog.DiscardHandler))

	s.flushCache()

	assert.Equal(t, 1, f.flushes)
	assert.True(t, f.dirty)
}

func TestFlushCacheSkipsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFlusher{dirty: true}
	s := New(ctx, "", f, slog.New(slog.DiscardHandler))

	s.flushCache()

	assert.Equal(t, 0, f.flushes)
}

func TestStartRejectsBadSpec(t *testing.T) {
	s := New(context.Background(), "not a spec", &fakeFlusher{}, slog.New(slog.DiscardHandler))

	require.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := New(context.Background(), DefaultFlushSpec, &fakeFlusher{}, slog.New(slog.DiscardHandler))

	require.NoError(t, s.Start())
	s.Stop()
}
