package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/taiwoajasa245/streak-api/internal/database"
	"github.com/taiwoajasa245/streak-api/internal/store"
	"github.com/taiwoajasa245/streak-api/pkg/config"
)

func newFileStore(t *testing.T) store.Store {
	t.Helper()
	s := store.NewFile(filepath.Join(t.TempDir(), "users_data.json"))
	require.NoError(t, s.Init(context.Background()))
	return s
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	db, err := database.Open("sqlite", config.StorageSQLite, database.SQLiteDSN(filepath.Join(t.TempDir(), "streak.db")))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := store.NewSQLite(db.DB())
	require.NoError(t, s.Init(context.Background()))
	return s
}

func newPostgresStore(t *testing.T) store.Store {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres container skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("streak"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { testcontainers.TerminateContainer(container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open("pgx", config.StoragePostgres, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := store.NewPostgres(db.DB())
	require.NoError(t, s.Init(ctx))
	return s
}

func TestStores(t *testing.T) {
	backends := map[string]func(*testing.T) store.Store{
		"file":     newFileStore,
		"sqlite":   newSQLiteStore,
		"postgres": newPostgresStore,
	}

	for name, open := range backends {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Run("create and get", func(t *testing.T) { testCreateAndGet(t, s) })
			t.Run("duplicate username", func(t *testing.T) { testDuplicate(t, s) })
			t.Run("missing user", func(t *testing.T) { testMissing(t, s) })
			t.Run("merge keeps other fields", func(t *testing.T) { testMerge(t, s) })
			t.Run("replace document", func(t *testing.T) { testReplace(t, s) })
			t.Run("update passcode", func(t *testing.T) { testUpdatePasscode(t, s) })
			t.Run("list users", func(t *testing.T) { testList(t, s) })
			t.Run("concurrent merges", func(t *testing.T) { testConcurrentMerge(t, s) })
		})
	}
}

func testCreateAndGet(t *testing.T, s store.Store) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)

	require.NoError(t, s.CreateUser(ctx, store.User{
		Username: "alice",
		Passcode: "hash",
		Created:  created,
		Data:     json.RawMessage(`{"currentStreak": 3}`),
	}))

	u, err := s.GetUser(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, "hash", u.Passcode)
	assert.True(t, created.Equal(u.Created), "created %v != %v", u.Created, created)
	assert.JSONEq(t, `{"currentStreak": 3}`, string(u.Data))
}

func testDuplicate(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, store.User{Username: "bob", Passcode: "a"}))

	err := s.CreateUser(ctx, store.User{Username: "bob", Passcode: "b"})
	assert.ErrorIs(t, err, store.ErrUserAlreadyExists)

	u, err := s.GetUser(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "a", u.Passcode)
}

func testMissing(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetUser(ctx, "ghost")
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	err = s.ReplaceData(ctx, "ghost", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, store.ErrUserNotFound)

	err = s.MergeData(ctx, "ghost", map[string]json.RawMessage{"a": json.RawMessage(`1`)})
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func testMerge(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, store.User{
		Username: "carol",
		Passcode: "x",
		Data:     json.RawMessage(`{"categories": [{"name": "General"}], "queuePosition": 1}`),
	}))

	require.NoError(t, s.MergeData(ctx, "carol", map[string]json.RawMessage{
		"queuePosition": json.RawMessage(`2`),
		"quoteQueue":    json.RawMessage(`[{"verse": {"text": "t", "reference": "r"}}]`),
	}))

	u, err := s.GetUser(ctx, "carol")
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"categories": [{"name": "General"}],
		"queuePosition": 2,
		"quoteQueue": [{"verse": {"text": "t", "reference": "r"}}]
	}`, string(u.Data))
}

func testReplace(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, store.User{
		Username: "dave",
		Passcode: "x",
		Data:     json.RawMessage(`{"a": 1, "b": 2}`),
	}))

	require.NoError(t, s.ReplaceData(ctx, "dave", json.RawMessage(`{"c": 3}`)))
	assert.ErrorIs(t, s.ReplaceData(ctx, "dave", json.RawMessage(`[1, 2]`)), store.ErrInvalidDocument)

	u, err := s.GetUser(ctx, "dave")
	require.NoError(t, err)
	assert.JSONEq(t, `{"c": 3}`, string(u.Data))
}

func testUpdatePasscode(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, store.User{
		Username: "fern",
		Passcode: "1234",
		Data:     json.RawMessage(`{"a": 1}`),
	}))

	require.NoError(t, s.UpdatePasscode(ctx, "fern", "$2a$04$hashed"))
	assert.ErrorIs(t, s.UpdatePasscode(ctx, "ghost", "x"), store.ErrUserNotFound)

	u, err := s.GetUser(ctx, "fern")
	require.NoError(t, err)
	assert.Equal(t, "$2a$04$hashed", u.Passcode)
	assert.JSONEq(t, `{"a": 1}`, string(u.Data))
}

func testList(t *testing.T, s store.Store) {
	ctx := context.Background()
	for _, name := range []string{"zoe", "amy", "max"} {
		require.NoError(t, s.CreateUser(ctx, store.User{Username: name, Passcode: "x"}))
	}

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.Username)
	}
	assert.Subset(t, names, []string{"amy", "max", "zoe"})
	assert.True(t, sort.StringsAreSorted(names), "users not ordered: %v", names)
}

func testConcurrentMerge(t *testing.T, s store.Store) {
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, store.User{Username: "erin", Passcode: "x"}))

	fields := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	var wg sync.WaitGroup
	for _, f := range fields {
		wg.Add(1)
		go func(field string) {
			defer wg.Done()
			assert.NoError(t, s.MergeData(ctx, "erin", map[string]json.RawMessage{field: json.RawMessage(`true`)}))
		}(f)
	}
	wg.Wait()

	u, err := s.GetUser(ctx, "erin")
	require.NoError(t, err)
	got, err := store.Fields(u.Data)
	require.NoError(t, err)
	for _, f := range fields {
		assert.Contains(t, got, f)
	}
}

func TestFileStoreReadsLegacyTimestamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users_data.json")
	legacy := `{
		"grace": {
			"passcode": "1234",
			"username": "grace",
			"created": "2025-01-15T09:45:12.123456",
			"data": {"currentStreak": 0}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	s := store.NewFile(path)
	u, err := s.GetUser(context.Background(), "grace")
	require.NoError(t, err)
	assert.Equal(t, 2025, u.Created.Year())
	assert.Equal(t, 15, u.Created.Day())
	assert.Equal(t, "1234", u.Passcode)
}

func TestFields(t *testing.T) {
	fields, err := store.Fields(nil)
	require.NoError(t, err)
	assert.Empty(t, fields)

	_, err = store.Fields(json.RawMessage(`"text"`))
	assert.ErrorIs(t, err, store.ErrInvalidDocument)

	fields, err = store.Fields(json.RawMessage(`{"x": [1]}`))
	require.NoError(t, err)
	assert.JSONEq(t, `[1]`, string(fields["x"]))
}
