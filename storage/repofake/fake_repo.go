package repofake

import (
	"context"
	"errors"
	"sync"

	"github.com/jrsteele09/go-platform-client/storage"
)

var _ storage.Repo = (*FakeRepo)(nil)

// FakeRepo is an in-memory storage.Repo. FailPuts makes every Put fail, to
// exercise persistence error paths.
type FakeRepo struct {
	values   map[string][]byte
	lock     sync.RWMutex
	FailPuts bool
	puts     int
}

func NewFakeRepo() *FakeRepo {
	return &FakeRepo{
		values: make(map[string][]byte),
	}
}

func (r *FakeRepo) Get(_ context.Context, key string) ([]byte, bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	value, ok := r.values[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), value...), true, nil
}

func (r *FakeRepo) Put(_ context.Context, key string, value []byte) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.FailPuts {
		return errors.New("put failed")
	}
	r.values[key] = append([]byte(nil), value...)
	r.puts++
	return nil
}

func (r *FakeRepo) Delete(_ context.Context, key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	delete(r.values, key)
	return nil
}

// Puts returns the number of successful writes.
func (r *FakeRepo) Puts() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.puts
}
