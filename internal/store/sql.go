package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// dialect holds the queries that differ between Postgres and SQLite.
// Every query takes its arguments in the same order on both.
type dialect struct {
	name       string
	schema     string
	insert     string
	get        string
	list       string
	replace    string
	passcode   string
	merge      string // empty: merge in Go inside a transaction
	selectData string
	timeArg    func(time.Time) any
}

var postgresDialect = dialect{
	name: "postgres",
	schema: `
		CREATE TABLE IF NOT EXISTS users (
			username VARCHAR(255) PRIMARY KEY,
			passcode TEXT NOT NULL,
			created TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			data JSONB NOT NULL DEFAULT '{}'::jsonb
		)
	`,
	insert: `
		INSERT INTO users (username, passcode, created, data)
		VALUES ($1, $2, $3, $4::jsonb)
		ON CONFLICT (username) DO NOTHING
	`,
	get:        `SELECT username, passcode, created, data FROM users WHERE username = $1`,
	list:       `SELECT username, passcode, created, data FROM users ORDER BY username`,
	replace:    `UPDATE users SET data = $1::jsonb WHERE username = $2`,
	passcode:   `UPDATE users SET passcode = $1 WHERE username = $2`,
	merge:      `UPDATE users SET data = data || $1::jsonb WHERE username = $2`,
	selectData: `SELECT data FROM users WHERE username = $1 FOR UPDATE`,
	timeArg:    func(t time.Time) any { return t.UTC() },
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `
		CREATE TABLE IF NOT EXISTS users (
			username TEXT PRIMARY KEY,
			passcode TEXT NOT NULL,
			created TEXT NOT NULL,
			data TEXT NOT NULL DEFAULT '{}'
		)
	`,
	insert: `
		INSERT INTO users (username, passcode, created, data)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (username) DO NOTHING
	`,
	get:        `SELECT username, passcode, created, data FROM users WHERE username = ?`,
	list:       `SELECT username, passcode, created, data FROM users ORDER BY username`,
	replace:    `UPDATE users SET data = ? WHERE username = ?`,
	passcode:   `UPDATE users SET passcode = ? WHERE username = ?`,
	selectData: `SELECT data FROM users WHERE username = ?`,
	timeArg:    func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

type sqlStore struct {
	db *sql.DB
	d  dialect
}

// NewPostgres returns a Store over a pgx-backed *sql.DB.
func NewPostgres(db *sql.DB) Store {
	return &sqlStore{db: db, d: postgresDialect}
}

// NewSQLite returns a Store over a modernc sqlite *sql.DB.
func NewSQLite(db *sql.DB) Store {
	return &sqlStore{db: db, d: sqliteDialect}
}

func (s *sqlStore) Init(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, s.d.schema); err != nil {
		return fmt.Errorf("failed to create users table (%s): %w", s.d.name, err)
	}
	return nil
}

func (s *sqlStore) CreateUser(ctx context.Context, user User) error {
	data := user.Data
	if len(data) == 0 {
		data = json.RawMessage(`{}`)
	}
	if err := validDocument(data); err != nil {
		return err
	}
	if user.Created.IsZero() {
		user.Created = time.Now()
	}

	res, err := s.db.ExecContext(ctx, s.d.insert, user.Username, user.Passcode, s.d.timeArg(user.Created), string(data))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if n == 0 {
		return ErrUserAlreadyExists
	}
	return nil
}

func (s *sqlStore) GetUser(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, s.d.get, username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return u, nil
}

func (s *sqlStore) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := s.db.QueryContext(ctx, s.d.list)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (s *sqlStore) ReplaceData(ctx context.Context, username string, data json.RawMessage) error {
	if err := validDocument(data); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.d.replace, string(data), username)
	if err != nil {
		return fmt.Errorf("failed to save user data: %w", err)
	}
	return requireRow(res)
}

func (s *sqlStore) UpdatePasscode(ctx context.Context, username, passcode string) error {
	res, err := s.db.ExecContext(ctx, s.d.passcode, passcode, username)
	if err != nil {
		return fmt.Errorf("failed to update passcode: %w", err)
	}
	return requireRow(res)
}

func (s *sqlStore) MergeData(ctx context.Context, username string, fields map[string]json.RawMessage) error {
	if len(fields) == 0 {
		return nil
	}
	patch, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode user data patch: %w", err)
	}

	if s.d.merge != "" {
		res, err := s.db.ExecContext(ctx, s.d.merge, string(patch), username)
		if err != nil {
			return fmt.Errorf("failed to merge user data: %w", err)
		}
		return requireRow(res)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var raw []byte
	if err := tx.QueryRowContext(ctx, s.d.selectData, username).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to read user data: %w", err)
	}

	current, err := Fields(raw)
	if err != nil {
		return err
	}
	for k, v := range fields {
		current[k] = v
	}
	merged, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to encode user data: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.d.replace, string(merged), username); err != nil {
		return fmt.Errorf("failed to merge user data: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Close is a no-op; the *sql.DB belongs to database.Service.
func (s *sqlStore) Close() error {
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u       User
		created any
		data    []byte
	)
	if err := row.Scan(&u.Username, &u.Passcode, &created, &data); err != nil {
		return nil, err
	}

	t, err := parseTime(created)
	if err != nil {
		return nil, err
	}
	u.Created = t
	u.Data = json.RawMessage(data)
	return &u, nil
}

func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		return time.Parse(time.RFC3339Nano, t)
	case []byte:
		return time.Parse(time.RFC3339Nano, string(t))
	case nil:
		return time.Time{}, nil
	}
	return time.Time{}, fmt.Errorf("unsupported created column type %T", v)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
