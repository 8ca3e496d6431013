package service

import (
	"context"
	"errors"
	"sync"

	"github.com/authgate/authgate/database/model"
)

// memStore is an in-memory CredentialStore with a unique email constraint.
type memStore struct {
	mu     sync.Mutex
	nextId int
	users  map[int]*model.User

	// skipPrecheck makes ExistsByEmail always report false, leaving the
	// constraint at insert as the only guard.
	skipPrecheck bool
	failWith     error
}

func newMemStore() *memStore {
	return &memStore{users: map[int]*model.User{}}
}

func (m *memStore) FindByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) FindByID(_ context.Context, id int) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return nil, m.failWith
	}
	if u, ok := m.users[id]; ok {
		c := *u
		return &c, nil
	}
	return nil, nil
}

func (m *memStore) Insert(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWith != nil {
		return m.failWith
	}
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailTaken
		}
	}
	m.nextId++
	user.Id = m.nextId
	c := *user
	m.users[user.Id] = &c
	return nil
}

func (m *memStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	if m.skipPrecheck {
		return false, nil
	}
	u, err := m.FindByEmail(ctx, email)
	return u != nil, err
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memStore) setAdmin(id int, admin bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[id].IsAdmin = admin
}

func (m *memStore) remove(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.users, id)
}

var errBackendDown = errors.New("connection refused")
