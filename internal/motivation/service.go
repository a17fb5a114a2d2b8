package motivation

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/taiwoajasa245/streak-api/pkg/util"
)

// Service runs the orchestrator against stored user documents. Every
// operation on a user holds that user's lock from load to save.
type Service struct {
	repo         Repository
	manager      *Manager
	orchestrator *Orchestrator
	locks        *util.KeyedMutex
	logger       *zap.Logger
}

func NewService(repo Repository, manager *Manager, orchestrator *Orchestrator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:         repo,
		manager:      manager,
		orchestrator: orchestrator,
		locks:        util.NewKeyedMutex(),
		logger:       logger.Named("motivation"),
	}
}

// Lock takes the per-user lock shared with every Service operation. Code
// writing the same document elsewhere must hold it.
func (s *Service) Lock(username string) func() {
	return s.locks.Lock(username)
}

func (s *Service) GeneratorConfigured() bool {
	return s.manager.GeneratorConfigured()
}

// Initial is the motivation a newly registered user starts with.
func (s *Service) Initial() Item {
	return s.manager.Daily()
}

// Today returns the user's motivation for today, serving a new one first if
// the stored one is stale.
func (s *Service) Today(ctx context.Context, username string) (Item, error) {
	unlock := s.Lock(username)
	defer unlock()

	return s.today(ctx, username)
}

// WithToday runs Today and then calls fn with the result before releasing
// the user's lock, so fn reads the document exactly as Today left it.
func (s *Service) WithToday(ctx context.Context, username string, fn func(Item) error) error {
	unlock := s.Lock(username)
	defer unlock()

	item, err := s.today(ctx, username)
	if err != nil {
		return err
	}
	return fn(item)
}

func (s *Service) today(ctx context.Context, username string) (Item, error) {
	st, err := s.repo.LoadMotivation(ctx, username)
	if err != nil {
		return Item{}, err
	}

	if s.orchestrator.EnsureFresh(ctx, st) {
		if err := s.repo.SaveMotivation(ctx, username, st); err != nil {
			s.logger.Error("failed to save fresh motivation", zap.String("username", username), zap.Error(err))
			return Item{}, err
		}
		s.logger.Debug("served new daily motivation", zap.String("username", username))
	}
	return *st.DailyMotivation, nil
}

// Refresh serves the next motivation unconditionally.
func (s *Service) Refresh(ctx context.Context, username string) (Item, error) {
	unlock := s.Lock(username)
	defer unlock()

	st, err := s.repo.LoadMotivation(ctx, username)
	if err != nil {
		return Item{}, err
	}

	s.orchestrator.Refresh(ctx, st)
	if err := s.repo.SaveMotivation(ctx, username, st); err != nil {
		s.logger.Error("failed to save refreshed motivation", zap.String("username", username), zap.Error(err))
		return Item{}, err
	}
	return *st.DailyMotivation, nil
}

// Regenerate replaces the user's queue with a new batch and returns its size.
// The current daily motivation is kept.
func (s *Service) Regenerate(ctx context.Context, username string) (int, error) {
	if !s.manager.GeneratorConfigured() {
		return 0, ErrGeneratorUnavailable
	}

	unlock := s.Lock(username)
	defer unlock()

	st, err := s.repo.LoadMotivation(ctx, username)
	if err != nil {
		return 0, err
	}

	n, err := s.manager.Regenerate(ctx, st)
	if err != nil {
		return 0, fmt.Errorf("failed to regenerate queue: %w", err)
	}
	if err := s.repo.SaveMotivation(ctx, username, st); err != nil {
		return 0, err
	}

	s.logger.Info("queue regenerated", zap.String("username", username), zap.Int("size", n))
	return n, nil
}
