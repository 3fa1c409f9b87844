package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTx(owner, date string) *models.Transaction {
	return &models.Transaction{
		Owner:    owner,
		Title:    "t",
		Amount:   decimal.NewFromInt(10),
		Type:     models.Expense,
		Category: "Food",
		Date:     date,
		Month:    date[:7],
	}
}

func TestMemoryStoreTransactionsAreOwnerScoped(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	a := newTx("alice", "2024-01-15")
	require.NoError(t, store.CreateTransaction(ctx, a))
	require.NoError(t, store.CreateTransaction(ctx, newTx("bob", "2024-01-16")))
	assert.NotEmpty(t, a.ID)

	bobs, err := store.ListTransactions(ctx, "bob", "")
	require.NoError(t, err)
	require.Len(t, bobs, 1)
	assert.NotEqual(t, a.ID, bobs[0].ID)

	ok, err := store.DeleteTransaction(ctx, "bob", a.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.DeleteTransaction(ctx, "alice", a.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	alices, err := store.ListTransactions(ctx, "alice", "")
	require.NoError(t, err)
	assert.Empty(t, alices)
	assert.NotNil(t, alices)
}

func TestMemoryStoreListOrderAndMonthFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	for _, d := range []string{"2024-01-15", "2024-02-01", "2024-01-20", "2024-01-20"} {
		require.NoError(t, store.CreateTransaction(ctx, newTx("alice", d)))
	}

	all, err := store.ListTransactions(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "2024-02-01", all[0].Date)
	assert.Equal(t, "2024-01-20", all[1].Date)
	assert.True(t, all[1].CreatedAt.After(all[2].CreatedAt))
	assert.Equal(t, "2024-01-15", all[3].Date)

	jan, err := store.ListTransactions(ctx, "alice", "2024-01")
	require.NoError(t, err)
	assert.Len(t, jan, 3)
}

func TestMemoryStoreDeleteAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateTransaction(ctx, newTx("alice", "2024-01-01")))
	}
	require.NoError(t, store.CreateTransaction(ctx, newTx("bob", "2024-01-01")))

	n, err := store.DeleteAllTransactions(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	bobs, err := store.ListTransactions(ctx, "bob", "")
	require.NoError(t, err)
	assert.Len(t, bobs, 1)
}

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	u := &models.User{Email: "Ann@Example.com", Name: "Ann", PasswordHash: "x"}
	require.NoError(t, store.CreateUser(ctx, u))
	assert.Equal(t, "ann@example.com", u.Email)

	err := store.CreateUser(ctx, &models.User{Email: "ann@example.COM"})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := store.FindUserByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, found.ID)

	_, err = store.FindUserByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNoRecord)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
