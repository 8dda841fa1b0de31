package fakeuserrepo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-sso-bridge/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users   map[string]*users.User // external id to user
	creates int
	err     error
	lock    sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users: make(map[string]*users.User),
	}
}

func (ur *FakeUserRepo) GetByExternalID(_ context.Context, externalID string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if ur.err != nil {
		return nil, ur.err
	}
	u, ok := ur.users[externalID]
	if !ok {
		return nil, users.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (ur *FakeUserRepo) Create(_ context.Context, user *users.User) (*users.User, error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if ur.err != nil {
		return nil, ur.err
	}
	if _, ok := ur.users[user.ExternalID]; ok {
		return nil, users.ErrAlreadyExists
	}

	stored := *user
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}
	ur.users[stored.ExternalID] = &stored
	ur.creates++

	clone := stored
	return &clone, nil
}

// Len returns the number of stored users.
func (ur *FakeUserRepo) Len() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users)
}

// Creates returns how many Create calls stored a record.
func (ur *FakeUserRepo) Creates() int {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return ur.creates
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (ur *FakeUserRepo) FailWith(err error) {
	ur.lock.Lock()
	defer ur.lock.Unlock()
	ur.err = err
}
