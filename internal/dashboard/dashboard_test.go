package dashboard

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/Dan9191/finance-tracker/internal/client"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI keeps one user's transactions in memory
type fakeAPI struct {
	token     string
	txs       []models.Transaction
	nextID    int
	listCalls int
	listErr   error
	deleteErr map[string]error
	created   []models.TransactionInput
}

func (f *fakeAPI) SetToken(token string) { f.token = token }

func (f *fakeAPI) Register(_ context.Context, email, _, _ string) (client.AuthResult, error) {
	return client.AuthResult{Token: "tok-" + email}, nil
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (client.AuthResult, error) {
	if password != "password123" {
		return client.AuthResult{}, client.ErrUnauthenticated
	}
	return client.AuthResult{Token: "tok-" + email}, nil
}

func (f *fakeAPI) List(context.Context, string) ([]models.Transaction, error) {
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Transaction{}, f.txs...), nil
}

func (f *fakeAPI) Create(_ context.Context, in models.TransactionInput) (*models.Transaction, error) {
	f.created = append(f.created, in)
	f.nextID++
	tx := models.Transaction{
		ID: fmt.Sprint(f.nextID), Title: in.Title, Amount: in.Amount, Type: in.Type,
		Category: in.Category, Date: in.Date, Month: in.Date[:7],
	}
	f.txs = append([]models.Transaction{tx}, f.txs...)
	return &tx, nil
}

func (f *fakeAPI) Delete(_ context.Context, id string) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	for i, tx := range f.txs {
		if tx.ID == id {
			f.txs = append(f.txs[:i], f.txs[i+1:]...)
			return nil
		}
	}
	return client.ErrNotFound
}

func (f *fakeAPI) DeleteAll(context.Context) (int64, error) {
	n := int64(len(f.txs))
	f.txs = nil
	return n, nil
}

type memTokens struct{ token string }

func (m *memTokens) Load() (string, error)   { return m.token, nil }
func (m *memTokens) Save(token string) error { m.token = token; return nil }
func (m *memTokens) Clear() error            { m.token = ""; return nil }

func tx(id, month string, typ models.TransactionType, amount int64, category string) models.Transaction {
	return models.Transaction{
		ID: id, Title: category, Amount: decimal.NewFromInt(amount), Type: typ,
		Category: category, Date: month + "-01", Month: month,
	}
}

func loggedIn(t *testing.T, api *fakeAPI) (*Dashboard, *memTokens) {
	t.Helper()
	tokens := &memTokens{}
	d, err := New(api, tokens)
	require.NoError(t, err)
	require.Equal(t, Unauthenticated, d.State())
	require.NoError(t, d.Login(context.Background(), "ann@example.com", "password123"))
	require.Equal(t, Ready, d.State())
	return d, tokens
}

func TestNewRestoresCachedToken(t *testing.T) {
	api := &fakeAPI{}
	d, err := New(api, &memTokens{token: "cached"})
	require.NoError(t, err)
	assert.Equal(t, Loading, d.State())
	assert.Equal(t, "cached", api.token)

	require.NoError(t, d.Load(context.Background()))
	assert.Equal(t, Ready, d.State())
}

func TestLoginFailureStaysUnauthenticated(t *testing.T) {
	d, err := New(&fakeAPI{}, &memTokens{})
	require.NoError(t, err)
	err = d.Login(context.Background(), "ann@example.com", "wrong")
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Equal(t, Unauthenticated, d.State())
	assert.ErrorIs(t, d.Delete(context.Background(), "1"), ErrNotReady)
}

func TestAuthFailureDuringFetchLogsOut(t *testing.T) {
	api := &fakeAPI{txs: []models.Transaction{tx("1", "2024-01", models.Income, 10, "Salary")}}
	d, tokens := loggedIn(t, api)
	require.NotEmpty(t, tokens.token)

	api.listErr = client.ErrUnauthenticated
	err := d.Load(context.Background())
	assert.ErrorIs(t, err, client.ErrUnauthenticated)
	assert.Equal(t, Unauthenticated, d.State())
	assert.Empty(t, tokens.token)
	assert.Empty(t, api.token)
	assert.Empty(t, d.Transactions())
}

func TestMutationRefetches(t *testing.T) {
	api := &fakeAPI{}
	d, _ := loggedIn(t, api)
	ctx := context.Background()
	calls := api.listCalls

	require.NoError(t, d.AddIncome(ctx, "Salary", decimal.NewFromInt(5000), "2024-01-15"))
	require.NoError(t, d.AddExpense(ctx, "Food", decimal.NewFromInt(1200), "", "2024-01-20"))
	assert.Equal(t, calls+2, api.listCalls)
	assert.Equal(t, Ready, d.State())

	assert.Equal(t, "Salary Income", api.created[0].Title)
	assert.Equal(t, "Salary", api.created[0].Category)
	assert.Equal(t, "Food", api.created[1].Title)
	assert.Len(t, d.Transactions(), 2)
}

func TestStaleLoadIsDiscarded(t *testing.T) {
	api := &fakeAPI{}
	d, _ := loggedIn(t, api)

	older, err := d.beginLoad()
	require.NoError(t, err)
	newer, err := d.beginLoad()
	require.NoError(t, err)

	fresh := []models.Transaction{tx("2", "2024-02", models.Expense, 5, "Food")}
	stale := []models.Transaction{tx("1", "2024-01", models.Expense, 5, "Food")}

	require.NoError(t, d.finishLoad(newer, fresh, nil))
	require.NoError(t, d.finishLoad(older, stale, nil))

	assert.Equal(t, fresh, d.Transactions())
	assert.Equal(t, []string{"2024-02"}, d.Months())
	assert.Equal(t, Ready, d.State())
}

func TestMonthSelectionPreserved(t *testing.T) {
	api := &fakeAPI{txs: []models.Transaction{
		tx("1", "2024-02", models.Expense, 100, "Food"),
		tx("2", "2024-01", models.Income, 5000, "Salary"),
		tx("3", "2024-02", models.Income, 50, "Gift"),
	}}
	d, _ := loggedIn(t, api)
	ctx := context.Background()

	assert.Equal(t, []string{"2024-02", "2024-01"}, d.Months())
	d.SelectMonth("2024-01")
	assert.Equal(t, "2024-01", d.SelectedMonth())

	require.NoError(t, d.Delete(ctx, "1"))
	assert.Equal(t, "2024-01", d.SelectedMonth())

	require.NoError(t, d.Delete(ctx, "2"))
	assert.Equal(t, "", d.SelectedMonth())

	d.SelectMonth("1999-01")
	assert.Equal(t, "", d.SelectedMonth())
}

func TestResetBatchAndSequential(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{txs: []models.Transaction{
		tx("1", "2024-01", models.Expense, 1, "Food"),
		tx("2", "2024-01", models.Expense, 1, "Food"),
		tx("3", "2024-01", models.Expense, 1, "Food"),
	}}
	d, _ := loggedIn(t, api)

	api.deleteErr = map[string]error{"2": client.ErrNotFound}
	res, err := d.Reset(ctx, true)
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Deleted)
	assert.Equal(t, []string{"2"}, res.Failed)
	assert.Len(t, d.Transactions(), 1)

	api.deleteErr = nil
	res, err = d.Reset(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Deleted)
	assert.Empty(t, d.Transactions())
}

func TestSequentialResetStopsWhenServerUnreachable(t *testing.T) {
	ctx := context.Background()
	api := &fakeAPI{txs: []models.Transaction{
		tx("1", "2024-01", models.Expense, 1, "Food"),
		tx("2", "2024-01", models.Expense, 1, "Food"),
		tx("3", "2024-01", models.Expense, 1, "Food"),
		tx("4", "2024-01", models.Expense, 1, "Food"),
	}}
	d, _ := loggedIn(t, api)

	api.deleteErr = map[string]error{"2": client.ErrNotFound, "3": client.ErrUnreachable}
	res, err := d.Reset(ctx, true)
	assert.ErrorIs(t, err, client.ErrUnreachable)
	assert.EqualValues(t, 1, res.Deleted)
	assert.Equal(t, []string{"2"}, res.Failed)
	assert.Len(t, d.Transactions(), 3)
	assert.Equal(t, Ready, d.State())

	res, err = d.Reset(ctx, false)
	require.NoError(t, err)
	assert.EqualValues(t, 3, res.Deleted)
	assert.Empty(t, d.Transactions())
}

func TestDeleteNotFoundStillRefetches(t *testing.T) {
	api := &fakeAPI{}
	d, _ := loggedIn(t, api)
	calls := api.listCalls

	err := d.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, client.ErrNotFound)
	assert.Equal(t, calls+1, api.listCalls)
	assert.Equal(t, Ready, d.State())
}

func TestLoadErrorKeepsSnapshot(t *testing.T) {
	api := &fakeAPI{txs: []models.Transaction{tx("1", "2024-01", models.Income, 10, "Salary")}}
	d, _ := loggedIn(t, api)

	api.listErr = client.ErrUnreachable
	assert.ErrorIs(t, d.Load(context.Background()), client.ErrUnreachable)
	assert.Equal(t, Ready, d.State())
	assert.Len(t, d.Transactions(), 1)
}

func TestLogout(t *testing.T) {
	d, tokens := loggedIn(t, &fakeAPI{})
	require.NoError(t, d.Logout())
	assert.Equal(t, Unauthenticated, d.State())
	assert.Empty(t, tokens.token)
}

func TestFileTokenStore(t *testing.T) {
	s := NewFileTokenStore(filepath.Join(t.TempDir(), "tracker", "token"))

	token, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, s.Save("abc"))
	token, err = s.Load()
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	require.NoError(t, s.Clear())
	require.NoError(t, s.Clear())
	token, err = s.Load()
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestViewAndRender(t *testing.T) {
	api := &fakeAPI{txs: []models.Transaction{
		{ID: "e1", Title: "Groceries", Amount: decimal.NewFromInt(1200), Type: models.Expense, Category: "Food", Date: "2024-01-20", Month: "2024-01"},
		{ID: "i1", Title: "Salary Income", Amount: decimal.NewFromInt(5000), Type: models.Income, Category: "Salary", Date: "2024-01-15", Month: "2024-01"},
	}}
	d, _ := loggedIn(t, api)
	d.SelectMonth("2024-01")

	first := d.View()
	second := d.View()
	assert.NotSame(t, first.Overview, second.Overview)
	require.NotNil(t, first.Categories)
	assert.Equal(t, "#FF6384", first.Categories.Segments[0].Color)
	assert.Equal(t, "-₹1,200", first.Rows[0].Amount)
	assert.True(t, first.Monthly.Income.Equal(decimal.NewFromInt(5000)))

	var buf bytes.Buffer
	require.NoError(t, Renderer{}.Render(&buf, first))
	out := buf.String()
	assert.Contains(t, out, "Balance: ₹3,800   Income: ₹5,000   Expense: ₹1,200")
	assert.Contains(t, out, "Groceries (Food)")
	assert.Contains(t, out, "+₹5,000")
	assert.Contains(t, out, "Month: [2024-01]")
	assert.Contains(t, out, "(100.0%)")
	assert.NotContains(t, out, "\x1b[")

	buf.Reset()
	require.NoError(t, Renderer{Color: true}.Render(&buf, first))
	assert.Contains(t, buf.String(), "\x1b[38;2;255;99;132m")
}

func TestRenderWithoutExpenses(t *testing.T) {
	api := &fakeAPI{txs: []models.Transaction{tx("1", "2024-01", models.Income, 10, "Salary")}}
	d, _ := loggedIn(t, api)

	v := d.View()
	assert.Nil(t, v.Categories)

	var buf bytes.Buffer
	require.NoError(t, Renderer{}.Render(&buf, v))
	assert.Contains(t, buf.String(), "Month (none selected): 2024-01")
	assert.Contains(t, buf.String(), "Monthly income: ₹0")
}

func TestRenderUnauthenticated(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Renderer{}.Render(&buf, View{State: Unauthenticated}))
	assert.Contains(t, buf.String(), "Not logged in")
}
