package motivation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// BatchSize is how many pairs one generator call asks for.
	BatchSize = 10
	// MinBatchSize is the smallest batch accepted, before and after filtering.
	MinBatchSize = 7

	DefaultGeneratorTimeout = 20 * time.Second
)

var (
	ErrGeneratorUnavailable = errors.New("motivation generator not configured")
	ErrGenerationFailed     = errors.New("motivation batch generation failed")
)

// BatchGenerator produces a fresh, validated and shuffled batch of pairs.
type BatchGenerator interface {
	RequestBatch(ctx context.Context) ([]Pair, error)
}

// Completer sends one prompt to a text generation service and returns its
// raw text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator turns a Completer into a BatchGenerator. It makes exactly one
// Complete call per RequestBatch and never retries.
type Generator struct {
	completer Completer
	timeout   time.Duration
	shuffle   func(n int, swap func(i, j int))
	logger    *zap.Logger
}

type GeneratorOption func(*Generator)

// WithTimeout bounds each generator call. Non-positive values are ignored.
func WithTimeout(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithShuffle replaces the batch shuffle, mainly for tests.
func WithShuffle(shuffle func(n int, swap func(i, j int))) GeneratorOption {
	return func(g *Generator) {
		if shuffle != nil {
			g.shuffle = shuffle
		}
	}
}

func NewGenerator(completer Completer, logger *zap.Logger, opts ...GeneratorOption) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{
		completer: completer,
		timeout:   DefaultGeneratorTimeout,
		shuffle:   rand.Shuffle,
		logger:    logger.Named("generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) RequestBatch(ctx context.Context) ([]Pair, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	raw, err := g.completer.Complete(ctx, batchPrompt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}
	g.logger.Debug("generator responded", zap.Duration("elapsed", time.Since(start)), zap.Int("bytes", len(raw)))

	batch, err := ParseBatch(raw, g.logger)
	if err != nil {
		return nil, err
	}

	g.shuffle(len(batch), func(i, j int) { batch[i], batch[j] = batch[j], batch[i] })

	g.logger.Info("generated motivation batch", zap.Int("count", len(batch)))
	return batch, nil
}

// ParseBatch strips code fences from raw, decodes it as a JSON array of
// pairs and drops incomplete items. It fails when the array, or what is left
// of it after filtering, is shorter than MinBatchSize.
func ParseBatch(raw string, logger *zap.Logger) ([]Pair, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &items); err != nil {
		return nil, fmt.Errorf("%w: response is not a JSON array: %w", ErrGenerationFailed, err)
	}
	if len(items) < MinBatchSize {
		return nil, fmt.Errorf("%w: got %d items, need at least %d", ErrGenerationFailed, len(items), MinBatchSize)
	}

	valid := make([]Pair, 0, len(items))
	for i, item := range items {
		var p Pair
		if err := json.Unmarshal(item, &p); err != nil {
			logger.Warn("dropping malformed batch item", zap.Int("index", i), zap.Error(err))
			continue
		}
		if field := missingField(p); field != "" {
			logger.Warn("dropping incomplete batch item", zap.Int("index", i), zap.String("missing", field))
			continue
		}
		valid = append(valid, p)
	}

	if len(valid) < MinBatchSize {
		return nil, fmt.Errorf("%w: only %d of %d items valid", ErrGenerationFailed, len(valid), len(items))
	}
	return valid, nil
}

// stripCodeFence removes a surrounding ``` or ```json fence.
func stripCodeFence(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "[{") {
		s = s[nl+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	if end := strings.LastIndex(s, "```"); end >= 0 {
		s = s[:end]
	}
	return strings.TrimSpace(s)
}
