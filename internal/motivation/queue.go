package motivation

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Manager owns every user's motivation queue. It is the only code that
// changes Queue.Items or Queue.Position.
//
// Callers must serialize Next and Regenerate per user; Manager itself keeps
// no per-user state.
type Manager struct {
	pool      *Pool
	generator BatchGenerator
	now       func() time.Time
	logger    *zap.Logger
}

// NewManager builds a queue manager. A nil generator means no generator is
// configured, and every call is answered from the pool.
func NewManager(pool *Pool, generator BatchGenerator, logger *zap.Logger, now func() time.Time) *Manager {
	if pool == nil {
		pool = DefaultPool()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{
		pool:      pool,
		generator: generator,
		now:       now,
		logger:    logger.Named("queue"),
	}
}

// GeneratorConfigured reports whether batches can be generated at all.
func (m *Manager) GeneratorConfigured() bool {
	return m.generator != nil
}

// Daily returns today's pool selection.
func (m *Manager) Daily() Item {
	now := m.now()
	return m.pool.SelectDaily(now, now)
}

// Next serves the next motivation for st and advances st.Queue. A new batch
// is requested only when the queue is empty or depleted. Every failure
// falls back to the daily pool selection and leaves st.Queue as it was.
func (m *Manager) Next(ctx context.Context, st *State) Item {
	if m.generator == nil {
		return m.Daily()
	}

	if st.Queue.Depleted() {
		batch, err := m.generator.RequestBatch(ctx)
		if err == nil && len(batch) == 0 {
			err = ErrGenerationFailed
		}
		if err != nil {
			m.logger.Warn("batch generation failed, serving daily pool selection", zap.Error(err))
			return m.Daily()
		}
		st.Queue = &Queue{Items: batch}
		m.logger.Debug("queue refilled", zap.Int("size", len(batch)))
	}

	q := st.Queue
	item := q.Items[q.Position].Serve(m.now())
	q.Position++

	m.logger.Debug("served queued motivation", zap.Int("position", q.Position), zap.Int("size", len(q.Items)))
	return item
}

// Regenerate replaces st.Queue with a new batch regardless of what is left
// in it, returning the batch size. On error st.Queue is untouched.
func (m *Manager) Regenerate(ctx context.Context, st *State) (int, error) {
	if m.generator == nil {
		return 0, ErrGeneratorUnavailable
	}

	batch, err := m.generator.RequestBatch(ctx)
	if err != nil {
		return 0, err
	}
	if len(batch) == 0 {
		return 0, ErrGenerationFailed
	}
	st.Queue = &Queue{Items: batch}
	return len(batch), nil
}
