// Package store persists user accounts and their JSON documents.
//
// A user's document is opaque to the store. Callers either replace it whole
// or merge top-level fields into it, so a writer only clobbers the fields it
// names.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrInvalidDocument   = errors.New("user data must be a JSON object")
)

type User struct {
	Username string          `json:"username"`
	Passcode string          `json:"passcode"`
	Created  time.Time       `json:"created"`
	Data     json.RawMessage `json:"data"`
}

// Store is implemented by the SQL and JSON file backends.
type Store interface {
	// Init creates the backing table or file if missing.
	Init(ctx context.Context) error
	CreateUser(ctx context.Context, user User) error
	GetUser(ctx context.Context, username string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
	// ReplaceData overwrites the whole document.
	ReplaceData(ctx context.Context, username string, data json.RawMessage) error
	// MergeData sets the given top-level fields and keeps all others.
	MergeData(ctx context.Context, username string, fields map[string]json.RawMessage) error
	// UpdatePasscode overwrites the stored passcode hash.
	UpdatePasscode(ctx context.Context, username, passcode string) error
	Close() error
}

// Fields decodes a document into its top-level fields.
func Fields(data json.RawMessage) (map[string]json.RawMessage, error) {
	if len(data) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	if fields == nil {
		fields = map[string]json.RawMessage{}
	}
	return fields, nil
}

// validDocument checks that data is a JSON object.
func validDocument(data json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil || obj == nil {
		return ErrInvalidDocument
	}
	return nil
}
