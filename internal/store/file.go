package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// fileRecord is one entry of the users JSON file, keyed by username.
type fileRecord struct {
	Passcode string          `json:"passcode"`
	Username string          `json:"username"`
	Created  string          `json:"created"`
	Data     json.RawMessage `json:"data"`
}

// createdLayouts are tried in order; the last two accept timestamps written
// without a zone.
var createdLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// fileStore keeps every user in a single JSON file for local development.
// Each call reads the file and each write replaces it atomically.
type fileStore struct {
	path string
	mu   sync.Mutex
}

// NewFile returns a Store backed by the JSON file at path.
func NewFile(path string) Store {
	return &fileStore{path: path}
}

func (s *fileStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to stat %s: %w", s.path, err)
	}
	return s.write(map[string]fileRecord{})
}

func (s *fileStore) CreateUser(ctx context.Context, user User) error {
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

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return err
	}
	if _, exists := users[user.Username]; exists {
		return ErrUserAlreadyExists
	}
	users[user.Username] = fileRecord{
		Passcode: user.Passcode,
		Username: user.Username,
		Created:  user.Created.Format(time.RFC3339Nano),
		Data:     data,
	}
	return s.write(users)
}

func (s *fileStore) GetUser(ctx context.Context, username string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return nil, err
	}
	rec, ok := users[username]
	if !ok {
		return nil, ErrUserNotFound
	}
	u := toUser(username, rec)
	return &u, nil
}

func (s *fileStore) ListUsers(ctx context.Context) ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]User, 0, len(names))
	for _, name := range names {
		list = append(list, toUser(name, users[name]))
	}
	return list, nil
}

func (s *fileStore) ReplaceData(ctx context.Context, username string, data json.RawMessage) error {
	if err := validDocument(data); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return err
	}
	rec, ok := users[username]
	if !ok {
		return ErrUserNotFound
	}
	rec.Data = data
	users[username] = rec
	return s.write(users)
}

func (s *fileStore) UpdatePasscode(ctx context.Context, username, passcode string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return err
	}
	rec, ok := users[username]
	if !ok {
		return ErrUserNotFound
	}
	rec.Passcode = passcode
	users[username] = rec
	return s.write(users)
}

func (s *fileStore) MergeData(ctx context.Context, username string, fields map[string]json.RawMessage) error {
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return err
	}
	rec, ok := users[username]
	if !ok {
		return ErrUserNotFound
	}

	current, err := Fields(rec.Data)
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
	rec.Data = merged
	users[username] = rec
	return s.write(users)
}

func (s *fileStore) Close() error {
	return nil
}

func (s *fileStore) read() (map[string]fileRecord, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]fileRecord{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", s.path, err)
	}

	users := map[string]fileRecord{}
	if len(raw) == 0 {
		return users, nil
	}
	if err := json.Unmarshal(raw, &users); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", s.path, err)
	}
	return users, nil
}

func (s *fileStore) write(users map[string]fileRecord) error {
	raw, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode users: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to save users: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save users: %w", err)
	}
	return nil
}

func toUser(username string, rec fileRecord) User {
	u := User{
		Username: username,
		Passcode: rec.Passcode,
		Data:     rec.Data,
	}
	for _, layout := range createdLayouts {
		if t, err := time.ParseInLocation(layout, rec.Created, time.Local); err == nil {
			u.Created = t
			break
		}
	}
	return u
}
