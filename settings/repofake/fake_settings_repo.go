package fakesettingsrepo

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-sso-bridge/settings"
)

var _ settings.Repo = (*FakeSettingsRepo)(nil)

type settingKey struct {
	namespace string
	key       string
}

type FakeSettingsRepo struct {
	values map[settingKey]string
	gets   map[settingKey]int
	err    error
	lock   sync.RWMutex
}

func NewFakeSettingsRepo() *FakeSettingsRepo {
	return &FakeSettingsRepo{
		values: make(map[settingKey]string),
		gets:   make(map[settingKey]int),
	}
}

func (r *FakeSettingsRepo) Get(_ context.Context, namespace, key string) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	k := settingKey{namespace, key}
	r.gets[k]++
	if r.err != nil {
		return "", r.err
	}
	v, ok := r.values[k]
	if !ok {
		return "", settings.ErrNotFound
	}
	return v, nil
}

func (r *FakeSettingsRepo) Put(_ context.Context, namespace, key, value string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.err != nil {
		return r.err
	}
	r.values[settingKey{namespace, key}] = value
	return nil
}

// Delete removes a setting.
func (r *FakeSettingsRepo) Delete(namespace, key string) {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.values, settingKey{namespace, key})
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (r *FakeSettingsRepo) FailWith(err error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.err = err
}

// Gets reports how many times a setting was read.
func (r *FakeSettingsRepo) Gets(namespace, key string) int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.gets[settingKey{namespace, key}]
}
