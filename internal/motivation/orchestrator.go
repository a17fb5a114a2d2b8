package motivation

import (
	"context"
	"time"
)

// Orchestrator decides when a user's daily motivation is replaced.
type Orchestrator struct {
	manager *Manager
	now     func() time.Time
	loc     *time.Location
}

// NewOrchestrator compares calendar dates in loc; nil means the server's
// local time zone.
func NewOrchestrator(manager *Manager, now func() time.Time, loc *time.Location) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Orchestrator{manager: manager, now: now, loc: loc}
}

// EnsureFresh serves a new motivation when st has none from today, or when a
// generator is configured and the user has no queue yet. It reports whether
// st changed and needs saving.
func (o *Orchestrator) EnsureFresh(ctx context.Context, st *State) bool {
	if !o.Stale(st) {
		return false
	}
	o.Refresh(ctx, st)
	return true
}

// Refresh always serves the next motivation.
func (o *Orchestrator) Refresh(ctx context.Context, st *State) {
	item := o.manager.Next(ctx, st)
	st.DailyMotivation = &item
}

// Stale reports whether EnsureFresh would replace st.DailyMotivation.
func (o *Orchestrator) Stale(st *State) bool {
	if o.manager.GeneratorConfigured() && st.Queue.Empty() {
		return true
	}
	if st.DailyMotivation == nil || st.DailyMotivation.ServedAt.IsZero() {
		return true
	}
	return !IsSameDay(st.DailyMotivation.ServedAt, o.now(), o.loc)
}
