// Package dashboard holds the client-side view state: the fetched
// transactions, the month selection and the login state. Every mutation is
// followed by a full re-fetch; nothing is updated optimistically.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Dan9191/finance-tracker/internal/aggregate"
	"github.com/Dan9191/finance-tracker/internal/client"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
)

// State is the lifecycle of the dashboard
type State int

const (
	Unauthenticated State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// ErrNotReady is returned for a mutation attempted while not logged in
var ErrNotReady = errors.New("not logged in")

// API is the part of the tracker API the dashboard uses
type API interface {
	SetToken(token string)
	Register(ctx context.Context, email, password, name string) (client.AuthResult, error)
	Login(ctx context.Context, email, password string) (client.AuthResult, error)
	List(ctx context.Context, month string) ([]models.Transaction, error)
	Create(ctx context.Context, in models.TransactionInput) (*models.Transaction, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

// Dashboard is safe for concurrent use
type Dashboard struct {
	api    API
	tokens TokenStore

	mu       sync.Mutex
	state    State
	issued   uint64
	applied  uint64
	txs      []models.Transaction
	months   []string
	selected string
}

// New restores a cached credential if one exists. The dashboard starts
// Loading with a credential and Unauthenticated without one.
func New(api API, tokens TokenStore) (*Dashboard, error) {
	d := &Dashboard{api: api, tokens: tokens, state: Unauthenticated}
	token, err := tokens.Load()
	if err != nil {
		return nil, err
	}
	if token != "" {
		api.SetToken(token)
		d.state = Loading
	}
	return d, nil
}

// State returns the current lifecycle state
func (d *Dashboard) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Transactions returns a copy of the last applied snapshot
func (d *Dashboard) Transactions() []models.Transaction {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.txs)
}

// Months returns the month selector options
func (d *Dashboard) Months() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.months)
}

// SelectedMonth returns the selected month or "" when none is selected
func (d *Dashboard) SelectedMonth() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// SelectMonth changes the month used for the monthly figures. A month that
// is not among the options clears the selection.
func (d *Dashboard) SelectMonth(month string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !slices.Contains(d.months, month) {
		month = ""
	}
	d.selected = month
}

// Register creates an account and loads its (empty) transaction list
func (d *Dashboard) Register(ctx context.Context, email, password, name string) error {
	res, err := d.api.Register(ctx, email, password, name)
	if err != nil {
		return err
	}
	return d.authenticated(ctx, res.Token)
}

// Login authenticates and loads the transaction list
func (d *Dashboard) Login(ctx context.Context, email, password string) error {
	res, err := d.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	return d.authenticated(ctx, res.Token)
}

func (d *Dashboard) authenticated(ctx context.Context, token string) error {
	if err := d.tokens.Save(token); err != nil {
		return err
	}
	d.api.SetToken(token)
	d.mu.Lock()
	d.state = Loading
	d.mu.Unlock()
	return d.Load(ctx)
}

// Logout forgets the credential and the fetched data
func (d *Dashboard) Logout() error {
	d.api.SetToken("")
	d.mu.Lock()
	d.state = Unauthenticated
	d.txs, d.months, d.selected = nil, nil, ""
	d.mu.Unlock()
	return d.tokens.Clear()
}

// Load fetches the full transaction list and recomputes the view
func (d *Dashboard) Load(ctx context.Context) error {
	gen, err := d.beginLoad()
	if err != nil {
		return err
	}
	txs, err := d.api.List(ctx, "")
	return d.finishLoad(gen, txs, err)
}

// beginLoad enters Loading and tags the fetch with a new generation
func (d *Dashboard) beginLoad() (uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state == Unauthenticated {
		return 0, ErrNotReady
	}
	d.state = Loading
	d.issued++
	return d.issued, nil
}

// finishLoad applies the result of fetch gen. Results older than the
// latest applied generation are dropped.
func (d *Dashboard) finishLoad(gen uint64, txs []models.Transaction, err error) error {
	if errors.Is(err, client.ErrUnauthenticated) {
		d.expire()
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if gen < d.applied {
		return nil
	}
	if err != nil {
		if gen == d.issued && d.state == Loading {
			// Keep the previous snapshot visible.
			d.state = Ready
		}
		return err
	}

	d.applied = gen
	d.txs = txs
	d.months = aggregate.DistinctMonths(txs)
	if !slices.Contains(d.months, d.selected) {
		d.selected = ""
	}
	if gen == d.issued {
		d.state = Ready
	}
	return nil
}

func (d *Dashboard) expire() {
	d.api.SetToken("")
	d.tokens.Clear()
	d.mu.Lock()
	d.state = Unauthenticated
	d.txs, d.months, d.selected = nil, nil, ""
	d.mu.Unlock()
}

// AddIncome records income from source, titled "<source> Income"
func (d *Dashboard) AddIncome(ctx context.Context, source string, amount decimal.Decimal, date string) error {
	source = strings.TrimSpace(source)
	title := "Income"
	if source != "" {
		title = source + " Income"
	}
	return d.create(ctx, models.TransactionInput{
		Title:    title,
		Amount:   amount,
		Type:     models.Income,
		Category: source,
		Date:     date,
	})
}

// AddExpense records an expense titled by note, or by category when note is empty
func (d *Dashboard) AddExpense(ctx context.Context, category string, amount decimal.Decimal, note, date string) error {
	title := strings.TrimSpace(note)
	if title == "" {
		title = category
	}
	return d.create(ctx, models.TransactionInput{
		Title:    title,
		Amount:   amount,
		Type:     models.Expense,
		Category: category,
		Date:     date,
	})
}

func (d *Dashboard) create(ctx context.Context, in models.TransactionInput) error {
	return d.mutate(ctx, func() error {
		_, err := d.api.Create(ctx, in)
		return err
	})
}

// Delete removes one transaction by id
func (d *Dashboard) Delete(ctx context.Context, id string) error {
	return d.mutate(ctx, func() error {
		return d.api.Delete(ctx, id)
	})
}

// ResetResult reports the outcome of Reset
type ResetResult struct {
	Deleted int64
	Failed  []string
}

// Reset deletes every transaction. By default one batch request is used.
// With sequential set, each loaded transaction is deleted on its own and a
// rejected delete is recorded while the rest are still attempted. Losing the
// server stops the run; what was already deleted stays deleted.
func (d *Dashboard) Reset(ctx context.Context, sequential bool) (ResetResult, error) {
	var res ResetResult
	err := d.mutate(ctx, func() error {
		if !sequential {
			n, err := d.api.DeleteAll(ctx)
			res.Deleted = n
			return err
		}
		for _, tx := range d.Transactions() {
			if err := d.api.Delete(ctx, tx.ID); err != nil {
				if errors.Is(err, client.ErrUnauthenticated) || errors.Is(err, client.ErrUnreachable) {
					return err
				}
				res.Failed = append(res.Failed, tx.ID)
				continue
			}
			res.Deleted++
		}
		return nil
	})
	return res, err
}

// mutate runs op from Ready, then always re-fetches the full list
func (d *Dashboard) mutate(ctx context.Context, op func() error) error {
	d.mu.Lock()
	if d.state == Unauthenticated {
		d.mu.Unlock()
		return ErrNotReady
	}
	d.state = Loading
	d.mu.Unlock()

	opErr := op()
	if errors.Is(opErr, client.ErrUnauthenticated) {
		d.expire()
		return opErr
	}
	if err := d.Load(ctx); err != nil {
		return errors.Join(opErr, err)
	}
	return opErr
}
