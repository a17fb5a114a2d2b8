package motivation

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taiwoajasa245/streak-api/internal/store"
)

type fixture struct {
	clk   *clock
	gen   *stubGenerator
	store store.Store
	svc   *Service
}

// newFixture wires a Service over a JSON file store. A nil gen leaves the
// generator unconfigured.
func newFixture(t *testing.T, gen *stubGenerator) *fixture {
	t.Helper()
	s := store.NewFile(filepath.Join(t.TempDir(), "users_data.json"))
	require.NoError(t, s.Init(context.Background()))
	return newFixtureWithDocs(t, gen, s, s)
}

func newFixtureWithDocs(t *testing.T, gen *stubGenerator, s store.Store, docs DocumentStore) *fixture {
	t.Helper()
	clk := newClock(morning)

	var bg BatchGenerator
	if gen != nil {
		bg = gen
	}
	m := NewManager(nil, bg, nil, clk.Now)
	o := NewOrchestrator(m, clk.Now, time.Local)
	return &fixture{
		clk:   clk,
		gen:   gen,
		store: s,
		svc:   NewService(NewRepository(docs), m, o, nil),
	}
}

func (f *fixture) createUser(t *testing.T, username string, data string) {
	t.Helper()
	require.NoError(t, f.store.CreateUser(context.Background(), store.User{
		Username: username,
		Passcode: "x",
		Data:     json.RawMessage(data),
	}))
}

func (f *fixture) state(t *testing.T, username string) *State {
	t.Helper()
	st, err := NewRepository(f.store).LoadMotivation(context.Background(), username)
	require.NoError(t, err)
	return st
}

func (f *fixture) fields(t *testing.T, username string) map[string]json.RawMessage {
	t.Helper()
	u, err := f.store.GetUser(context.Background(), username)
	require.NoError(t, err)
	fields, err := store.Fields(u.Data)
	require.NoError(t, err)
	return fields
}

func TestEnsureFreshTwiceSameDay(t *testing.T) {
	f := newFixture(t, newStubGenerator(10))
	f.createUser(t, "alice", `{"categories": []}`)
	ctx := context.Background()

	first, err := f.svc.Today(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, f.gen.Calls())
	assert.Equal(t, 1, f.state(t, "alice").Queue.Position)

	f.clk.Advance(5 * time.Hour)

	second, err := f.svc.Today(ctx, "alice")
	require.NoError(t, err)
	assertSameItem(t, first, second)
	assert.True(t, morning.Equal(second.ServedAt))
	assert.Equal(t, 1, f.gen.Calls())
	assert.Equal(t, 1, f.state(t, "alice").Queue.Position)
}

func TestEnsureFreshNextDay(t *testing.T) {
	f := newFixture(t, newStubGenerator(10))
	f.createUser(t, "alice", `{}`)
	ctx := context.Background()

	_, err := f.svc.Today(ctx, "alice")
	require.NoError(t, err)

	f.clk.Advance(24 * time.Hour)

	next, err := f.svc.Today(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "batch1 verse 1", next.Verse.Text)
	assert.Equal(t, morning.Add(24*time.Hour), next.ServedAt)
	assert.Equal(t, 2, f.state(t, "alice").Queue.Position)
	assert.Equal(t, 1, f.gen.Calls())
}

func TestEnsureFreshWithoutGenerator(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	yesterday := DefaultPool().SelectDaily(morning.AddDate(0, 0, -1), morning.AddDate(0, 0, -1))
	raw, err := json.Marshal(map[string]any{"dailyMotivation": yesterday, "endGoal": "ship it"})
	require.NoError(t, err)
	f.createUser(t, "bob", string(raw))

	item, err := f.svc.Today(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, DefaultPool().SelectDaily(morning, morning), item)

	// The queue is still empty, but with no generator that alone is not stale.
	f.clk.Advance(time.Hour)
	again, err := f.svc.Today(ctx, "bob")
	require.NoError(t, err)
	assertSameItem(t, item, again)

	fields := f.fields(t, "bob")
	assert.JSONEq(t, `"ship it"`, string(fields["endGoal"]))
	assert.JSONEq(t, `[]`, string(fields[FieldQuoteQueue]))
	assert.JSONEq(t, `0`, string(fields[FieldQueuePosition]))
}

func TestRefreshTwiceAdvancesByTwo(t *testing.T) {
	f := newFixture(t, newStubGenerator(10))
	f.createUser(t, "carol", `{}`)
	ctx := context.Background()

	_, err := f.svc.Today(ctx, "carol")
	require.NoError(t, err)
	before := f.state(t, "carol").Queue.Position

	a, err := f.svc.Refresh(ctx, "carol")
	require.NoError(t, err)
	b, err := f.svc.Refresh(ctx, "carol")
	require.NoError(t, err)

	assert.Equal(t, before+2, f.state(t, "carol").Queue.Position)
	assert.NotEqual(t, a.Verse, b.Verse)
	assert.Equal(t, 1, f.gen.Calls())
}

func TestRefreshAcrossDepletion(t *testing.T) {
	f := newFixture(t, newStubGenerator(10))
	ctx := context.Background()

	raw, err := json.Marshal(map[string]any{
		FieldQuoteQueue:    makeBatch("old", 10),
		FieldQueuePosition: 9,
	})
	require.NoError(t, err)
	f.createUser(t, "dave", string(raw))

	last, err := f.svc.Refresh(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, "old verse 9", last.Verse.Text)
	assert.Equal(t, 0, f.gen.Calls())

	first, err := f.svc.Refresh(ctx, "dave")
	require.NoError(t, err)
	assert.Equal(t, "batch1 verse 0", first.Verse.Text)
	assert.Equal(t, 1, f.gen.Calls())
	assert.Equal(t, 1, f.state(t, "dave").Queue.Position)
}

func TestGenerationFailureIsInvisible(t *testing.T) {
	gen := newStubGenerator(10)
	gen.SetErr(ErrGenerationFailed)
	f := newFixture(t, gen)
	f.createUser(t, "erin", `{}`)

	item, err := f.svc.Refresh(context.Background(), "erin")
	require.NoError(t, err)
	assert.Equal(t, DefaultPool().SelectDaily(morning, morning), item)
	assert.True(t, f.state(t, "erin").Queue.Empty())
}

func TestConcurrentRefreshIsSerialized(t *testing.T) {
	gen := newStubGenerator(10)
	gen.delay = 5 * time.Millisecond
	f := newFixture(t, gen)
	f.createUser(t, "frank", `{}`)

	const n = 20
	served := make(chan Item, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := f.svc.Refresh(context.Background(), "frank")
			assert.NoError(t, err)
			served <- item
		}()
	}
	wg.Wait()
	close(served)

	seen := map[string]bool{}
	for item := range served {
		seen[item.Verse.Text] = true
	}
	assert.Len(t, seen, n, "every refresh served a different queued item")
	assert.Equal(t, 2, gen.Calls())
	assert.Equal(t, 10, f.state(t, "frank").Queue.Position)
	assert.Equal(t, 0, f.svc.locks.Len())
}

type failingDocs struct {
	DocumentStore
}

func (failingDocs) MergeData(ctx context.Context, username string, fields map[string]json.RawMessage) error {
	return errors.New("disk full")
}

func TestSaveErrorsAreReturned(t *testing.T) {
	s := store.NewFile(filepath.Join(t.TempDir(), "users_data.json"))
	require.NoError(t, s.Init(context.Background()))
	f := newFixtureWithDocs(t, newStubGenerator(10), s, failingDocs{DocumentStore: s})
	f.createUser(t, "gina", `{}`)

	_, err := f.svc.Today(context.Background(), "gina")
	assert.ErrorContains(t, err, "disk full")

	_, err = f.svc.Refresh(context.Background(), "gina")
	assert.ErrorContains(t, err, "disk full")

	_, err = f.svc.Regenerate(context.Background(), "gina")
	assert.ErrorContains(t, err, "disk full")
}

func TestServiceUnknownUser(t *testing.T) {
	f := newFixture(t, newStubGenerator(10))

	_, err := f.svc.Today(context.Background(), "nobody")
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.Equal(t, 0, f.gen.Calls())
}

func TestWithTodayHoldsLockAcrossCallback(t *testing.T) {
	f := newFixture(t, newStubGenerator(10))
	f.createUser(t, "alice", `{"currentStreak": 2}`)
	ctx := context.Background()

	acquired := make(chan struct{})
	err := f.svc.WithToday(ctx, "alice", func(item Item) error {
		go func() {
			unlock := f.svc.Lock("alice")
			close(acquired)
			unlock()
		}()

		select {
		case <-acquired:
			t.Error("user lock released before the callback returned")
		case <-time.After(50 * time.Millisecond):
		}

		fields := f.fields(t, "alice")
		var stored Item
		require.NoError(t, json.Unmarshal(fields[FieldDailyMotivation], &stored))
		assertSameItem(t, item, stored)
		assert.JSONEq(t, `2`, string(fields["currentStreak"]))
		return nil
	})
	require.NoError(t, err)
	<-acquired

	boom := errors.New("boom")
	assert.ErrorIs(t, f.svc.WithToday(ctx, "alice", func(Item) error { return boom }), boom)

	called := false
	err = f.svc.WithToday(ctx, "nobody", func(Item) error { called = true; return nil })
	assert.ErrorIs(t, err, store.ErrUserNotFound)
	assert.False(t, called)
	assert.Zero(t, f.svc.locks.Len())
}

func TestServiceRegenerate(t *testing.T) {
	f := newFixture(t, newStubGenerator(8))
	f.createUser(t, "hank", `{}`)
	ctx := context.Background()

	before, err := f.svc.Today(ctx, "hank")
	require.NoError(t, err)

	n, err := f.svc.Regenerate(ctx, "hank")
	require.NoError(t, err)
	assert.Equal(t, 8, n)

	st := f.state(t, "hank")
	assert.Equal(t, 0, st.Queue.Position)
	assert.Equal(t, "batch2 verse 0", st.Queue.Items[0].Verse.Text)
	require.NotNil(t, st.DailyMotivation)
	assert.Equal(t, before.Verse, st.DailyMotivation.Verse)

	_, err = newFixture(t, nil).svc.Regenerate(ctx, "hank")
	assert.ErrorIs(t, err, ErrGeneratorUnavailable)
}

func TestInitial(t *testing.T) {
	f := newFixture(t, nil)
	assert.Equal(t, DefaultPool().SelectDaily(morning, morning), f.svc.Initial())
	assert.False(t, f.svc.GeneratorConfigured())
}

func TestStale(t *testing.T) {
	clk := newClock(morning)
	withGen := NewOrchestrator(NewManager(nil, newStubGenerator(10), nil, clk.Now), clk.Now, time.Local)
	noGen := NewOrchestrator(NewManager(nil, nil, nil, clk.Now), clk.Now, time.Local)

	today := &Item{ServedAt: morning.Add(-time.Hour)}
	yesterday := &Item{ServedAt: morning.AddDate(0, 0, -1)}
	active := &Queue{Items: makeBatch("q", 10), Position: 2}

	tests := []struct {
		name string
		o    *Orchestrator
		st   *State
		want bool
	}{
		{"fresh with queue", withGen, &State{DailyMotivation: today, Queue: active}, false},
		{"fresh without queue", withGen, &State{DailyMotivation: today}, true},
		{"fresh empty queue no generator", noGen, &State{DailyMotivation: today, Queue: &Queue{}}, false},
		{"yesterday", withGen, &State{DailyMotivation: yesterday, Queue: active}, true},
		{"missing motivation", noGen, &State{}, true},
		{"zero served time", noGen, &State{DailyMotivation: &Item{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.o.Stale(tt.st))
		})
	}
}

func TestDecodeState(t *testing.T) {
	valid, err := json.Marshal(makeBatch("q", 3))
	require.NoError(t, err)

	tests := []struct {
		name      string
		doc       string
		wantQueue *Queue
		wantDaily bool
	}{
		{"empty document", `{}`, nil, false},
		{"null queue", `{"quoteQueue": null}`, nil, false},
		{"empty queue", `{"quoteQueue": []}`, &Queue{Items: []Pair{}}, false},
		{"queue without position", `{"quoteQueue": ` + string(valid) + `}`, &Queue{Items: makeBatch("q", 3)}, false},
		{"queue with position", `{"quoteQueue": ` + string(valid) + `, "queuePosition": 2}`, &Queue{Items: makeBatch("q", 3), Position: 2}, false},
		{"bad position", `{"quoteQueue": ` + string(valid) + `, "queuePosition": "two"}`, &Queue{Items: makeBatch("q", 3), Position: 3}, false},
		{"incomplete queued item", `{"quoteQueue": [{"verse": {"text": "a", "reference": "b"}}]}`, nil, false},
		{"queue not an array", `{"quoteQueue": {"a": 1}}`, nil, false},
		{"daily motivation", `{"dailyMotivation": {"verse": {"text": "a", "reference": "b"}, "quote": {"text": "c", "author": "d"}, "servedAt": "2025-06-02T08:00:00Z"}}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := DecodeState(json.RawMessage(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.wantQueue, st.Queue)
			assert.Equal(t, tt.wantDaily, st.DailyMotivation != nil)
		})
	}

	_, err = DecodeState(json.RawMessage(`[1]`))
	assert.ErrorIs(t, err, store.ErrInvalidDocument)
}

func TestDecodeStateServedAt(t *testing.T) {
	tests := map[string]time.Time{
		`"2025-06-02T08:00:00Z"`:       time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC),
		`"2025-06-02T08:00:00.123456"`: time.Date(2025, 6, 2, 8, 0, 0, 123456000, time.Local),
		`"yesterday"`:                  {},
		`null`:                         {},
	}
	for servedAt, want := range tests {
		doc := `{"dailyMotivation": {"verse": {}, "quote": {}, "servedAt": ` + servedAt + `}}`
		st, err := DecodeState(json.RawMessage(doc))
		require.NoError(t, err)
		require.NotNil(t, st.DailyMotivation, servedAt)
		assert.True(t, want.Equal(st.DailyMotivation.ServedAt), "%s decoded as %v", servedAt, st.DailyMotivation.ServedAt)
	}
}

// legacyQueue renders pairs the way older documents stored them, with the
// verse under bibleVerse.
func legacyQueue(t *testing.T, pairs []Pair) string {
	t.Helper()
	items := make([]map[string]any, len(pairs))
	for i, p := range pairs {
		items[i] = map[string]any{"bibleVerse": p.Verse, "quote": p.Quote}
	}
	return string(mustJSON(t, items))
}

func TestDecodeStateLegacyFields(t *testing.T) {
	doc := `{
		"dailyMotivation": {
			"bibleVerse": {"text": "a", "reference": "b"},
			"quote": {"text": "c", "author": "d"},
			"date": "2025-06-01T08:00:00.5"
		},
		"quoteQueue": ` + legacyQueue(t, makeBatch("old", 3)) + `,
		"queuePosition": 1
	}`

	st, err := DecodeState(json.RawMessage(doc))
	require.NoError(t, err)

	require.NotNil(t, st.DailyMotivation)
	assert.Equal(t, Verse{Text: "a", Reference: "b"}, st.DailyMotivation.Verse)
	assert.Equal(t, Quote{Text: "c", Author: "d"}, st.DailyMotivation.Quote)
	assert.True(t, time.Date(2025, 6, 1, 8, 0, 0, 5e8, time.Local).Equal(st.DailyMotivation.ServedAt))
	assert.Equal(t, &Queue{Items: makeBatch("old", 3), Position: 1}, st.Queue)

	st, err = DecodeState(json.RawMessage(`{"dailyMotivation": {"verse": {"text": "new"}, "bibleVerse": {"text": "old"}, "servedAt": "2025-06-02T08:00:00Z", "date": "2020-01-01T00:00:00Z"}}`))
	require.NoError(t, err)
	assert.Equal(t, "new", st.DailyMotivation.Verse.Text)
	assert.Equal(t, 2025, st.DailyMotivation.ServedAt.Year())
}

func TestLegacyQueueIsServedWithoutGenerating(t *testing.T) {
	gen := newStubGenerator(10)
	f := newFixture(t, gen)
	f.createUser(t, "ruth", `{
		"dailyMotivation": {"bibleVerse": {"text": "a", "reference": "b"}, "quote": {"text": "c", "author": "d"}, "date": "2025-06-01T08:00:00"},
		"quoteQueue": `+legacyQueue(t, makeBatch("old", 3))+`,
		"queuePosition": 2
	}`)

	item, err := f.svc.Today(context.Background(), "ruth")
	require.NoError(t, err)
	assert.Equal(t, makeBatch("old", 3)[2], item.Pair())
	assert.Zero(t, gen.Calls())

	st := f.state(t, "ruth")
	assert.Equal(t, 3, st.Queue.Position)
	assert.Equal(t, makeBatch("old", 3), st.Queue.Items)
	assert.Contains(t, string(f.fields(t, "ruth")[FieldQuoteQueue]), `"verse"`)
}

func TestEncodeState(t *testing.T) {
	fields, err := EncodeState(&State{})
	require.NoError(t, err)
	assert.JSONEq(t, `null`, string(fields[FieldDailyMotivation]))
	assert.JSONEq(t, `[]`, string(fields[FieldQuoteQueue]))
	assert.JSONEq(t, `0`, string(fields[FieldQueuePosition]))

	item := makeBatch("e", 1)[0].Serve(time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC))
	st := &State{DailyMotivation: &item, Queue: &Queue{Items: makeBatch("e", 2), Position: 1}}
	fields, err = EncodeState(st)
	require.NoError(t, err)

	assert.Len(t, fields, 3)
	back, err := DecodeState(mustJSON(t, fields))
	require.NoError(t, err)
	assert.Equal(t, st.Queue, back.Queue)
	assert.True(t, item.ServedAt.Equal(back.DailyMotivation.ServedAt))
}

// assertSameItem compares instants with time.Equal; decoded times may carry
// a different *time.Location.
func assertSameItem(t *testing.T, want, got Item) {
	t.Helper()
	assert.Equal(t, want.Verse, got.Verse)
	assert.Equal(t, want.Quote, got.Quote)
	assert.True(t, want.ServedAt.Equal(got.ServedAt), "servedAt %v != %v", got.ServedAt, want.ServedAt)
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}
