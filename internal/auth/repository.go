package auth

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/taiwoajasa245/streak-api/internal/store"
)

// Repository defines the storage operations the auth module needs.
type Repository interface {
	CreateUser(ctx context.Context, user User, doc Document) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	UpdatePasscode(ctx context.Context, username, hashed string) error
}

type repository struct {
	store store.Store
}

func NewRepository(s store.Store) Repository {
	return &repository{store: s}
}

func (r *repository) CreateUser(ctx context.Context, user User, doc Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode initial document: %w", err)
	}

	return r.store.CreateUser(ctx, store.User{
		Username: user.Username,
		Passcode: user.Passcode,
		Created:  user.CreatedAt,
		Data:     data,
	})
}

func (r *repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	u, err := r.store.GetUser(ctx, username)
	if err != nil {
		return nil, err
	}
	return &User{
		Username:  u.Username,
		Passcode:  u.Passcode,
		CreatedAt: u.Created,
	}, nil
}

func (r *repository) UpdatePasscode(ctx context.Context, username, hashed string) error {
	return r.store.UpdatePasscode(ctx, username, hashed)
}
