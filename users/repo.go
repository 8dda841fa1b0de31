package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrAlreadyExists = errors.New("user already exists")
)

// UserRepo is the user directory. Create must return ErrAlreadyExists when a
// record with the same ExternalID exists, including when it lost a race with
// a concurrent Create.
type UserRepo interface {
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Create(ctx context.Context, user *User) (*User, error)
}
