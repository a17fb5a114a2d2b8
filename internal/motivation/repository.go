package motivation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/taiwoajasa245/streak-api/internal/store"
)

// Top-level document fields owned by this package.
const (
	FieldDailyMotivation = "dailyMotivation"
	FieldQuoteQueue      = "quoteQueue"
	FieldQueuePosition   = "queuePosition"
)

// BackendFields are the fields a client document write must never overwrite.
var BackendFields = []string{FieldQuoteQueue, FieldQueuePosition}

// DocumentStore is the part of store.Store the repository needs.
type DocumentStore interface {
	GetUser(ctx context.Context, username string) (*store.User, error)
	MergeData(ctx context.Context, username string, fields map[string]json.RawMessage) error
}

type Repository interface {
	LoadMotivation(ctx context.Context, username string) (*State, error)
	SaveMotivation(ctx context.Context, username string, st *State) error
}

type repository struct {
	docs DocumentStore
}

func NewRepository(docs DocumentStore) Repository {
	return &repository{docs: docs}
}

func (r *repository) LoadMotivation(ctx context.Context, username string) (*State, error) {
	user, err := r.docs.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return DecodeState(user.Data)
}

func (r *repository) SaveMotivation(ctx context.Context, username string, st *State) error {
	fields, err := EncodeState(st)
	if err != nil {
		return err
	}
	if err := r.docs.MergeData(ctx, username, fields); err != nil {
		return fmt.Errorf("failed to save motivation: %w", err)
	}
	return nil
}

// storedPair also reads documents written before the verse field was
// renamed from bibleVerse.
type storedPair struct {
	Verse      *Verse `json:"verse"`
	BibleVerse *Verse `json:"bibleVerse"`
	Quote      Quote  `json:"quote"`
}

func (sp storedPair) pair() Pair {
	p := Pair{Quote: sp.Quote}
	switch {
	case sp.Verse != nil:
		p.Verse = *sp.Verse
	case sp.BibleVerse != nil:
		p.Verse = *sp.BibleVerse
	}
	return p
}

// storedItem accepts servedAt values with or without a zone offset, and the
// older date field in place of servedAt.
type storedItem struct {
	storedPair
	ServedAt string `json:"servedAt"`
	Date     string `json:"date"`
}

func (si storedItem) item() Item {
	servedAt := si.ServedAt
	if servedAt == "" {
		servedAt = si.Date
	}
	p := si.pair()
	return Item{Verse: p.Verse, Quote: p.Quote, ServedAt: parseServedAt(servedAt)}
}

var servedAtLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
}

// DecodeState extracts the motivation fields from a user document. Damaged
// fields decode as absent: an unreadable dailyMotivation is nil, and a
// quoteQueue holding anything but complete pairs is dropped so it refills.
func DecodeState(data json.RawMessage) (*State, error) {
	fields, err := store.Fields(data)
	if err != nil {
		return nil, err
	}

	st := &State{}

	if raw, ok := fields[FieldDailyMotivation]; ok {
		var si *storedItem
		if json.Unmarshal(raw, &si) == nil && si != nil {
			item := si.item()
			st.DailyMotivation = &item
		}
	}

	if raw, ok := fields[FieldQuoteQueue]; ok {
		var stored []storedPair
		if json.Unmarshal(raw, &stored) == nil && stored != nil {
			items := make([]Pair, len(stored))
			for i, sp := range stored {
				items[i] = sp.pair()
			}
			st.Queue = decodeQueue(items, fields)
		}
	}

	return st, nil
}

// decodeQueue returns nil when any item is incomplete so the queue refills.
func decodeQueue(items []Pair, fields map[string]json.RawMessage) *Queue {
	if !allValid(items) {
		return nil
	}
	q := &Queue{Items: items}
	if rawPos, ok := fields[FieldQueuePosition]; ok {
		if json.Unmarshal(rawPos, &q.Position) != nil {
			q.Position = len(items)
		}
	}
	return q
}

// EncodeState renders st as the fields SaveMotivation merges. A nil queue is
// stored as an empty one.
func EncodeState(st *State) (map[string]json.RawMessage, error) {
	var (
		items    = []Pair{}
		position int
	)
	if st.Queue != nil {
		if st.Queue.Items != nil {
			items = st.Queue.Items
		}
		position = st.Queue.Position
	}

	daily, err := json.Marshal(st.DailyMotivation)
	if err != nil {
		return nil, fmt.Errorf("failed to encode daily motivation: %w", err)
	}
	queue, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode quote queue: %w", err)
	}
	pos, err := json.Marshal(position)
	if err != nil {
		return nil, fmt.Errorf("failed to encode queue position: %w", err)
	}

	return map[string]json.RawMessage{
		FieldDailyMotivation: daily,
		FieldQuoteQueue:      queue,
		FieldQueuePosition:   pos,
	}, nil
}

// parseServedAt returns the zero time for values it cannot read, which makes
// the item stale.
func parseServedAt(v string) time.Time {
	for _, layout := range servedAtLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

func allValid(items []Pair) bool {
	for _, p := range items {
		if !p.Valid() {
			return false
		}
	}
	return true
}
