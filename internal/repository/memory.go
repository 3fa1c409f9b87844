package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/google/uuid"
)

// MemoryStore keeps users and transactions in process memory.
// It is safe for concurrent use.
type MemoryStore struct {
	mu    sync.Mutex
	users []models.User
	txs   []models.Transaction
	now   func() time.Time
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{now: time.Now}
}

// Ping always succeeds
func (m *MemoryStore) Ping(context.Context) error {
	return nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(user.Email)
	for _, u := range m.users {
		if u.Email == email {
			return ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	user.Email = email
	user.CreatedAt = m.now().UTC()
	m.users = append(m.users, *user)
	return nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	email = strings.ToLower(email)
	for _, u := range m.users {
		if u.Email == email {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNoRecord
}

func (m *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.ID == id {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNoRecord
}

func (m *MemoryStore) ListUsers(context.Context) ([]models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.User{}, m.users...), nil
}

func (m *MemoryStore) CreateTransaction(_ context.Context, tx *models.Transaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx.ID = uuid.NewString()
	tx.CreatedAt = m.now().UTC()
	m.txs = append(m.txs, *tx)
	return nil
}

func (m *MemoryStore) ListTransactions(_ context.Context, owner, month string) ([]models.Transaction, error) {
	m.mu.Lock()
	out := []models.Transaction{}
	for _, tx := range m.txs {
		if tx.Owner != owner || (month != "" && tx.Month != month) {
			continue
		}
		out = append(out, tx)
	}
	m.mu.Unlock()

	// ISO dates sort lexically.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryStore) DeleteTransaction(_ context.Context, owner, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, tx := range m.txs {
		if tx.ID == id && tx.Owner == owner {
			m.txs = append(m.txs[:i], m.txs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *MemoryStore) DeleteAllTransactions(_ context.Context, owner string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.txs[:0]
	var deleted int64
	for _, tx := range m.txs {
		if tx.Owner == owner {
			deleted++
			continue
		}
		kept = append(kept, tx)
	}
	m.txs = kept
	return deleted, nil
}
