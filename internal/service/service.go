package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Dan9191/finance-tracker/internal/aggregate"
	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const maxTitleLength = 200

// maxAmount is the largest value a NUMERIC(14,2) column holds
var maxAmount = decimal.RequireFromString("999999999999.99")

// TransactionStore persists transactions. Every method is scoped by owner.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	ListTransactions(ctx context.Context, owner, month string) ([]models.Transaction, error)
	DeleteTransaction(ctx context.Context, owner, id string) (bool, error)
	DeleteAllTransactions(ctx context.Context, owner string) (int64, error)
}

// EventPublisher receives a notification after each successful mutation
type EventPublisher interface {
	Publish(ctx context.Context, event models.TransactionEvent) error
}

// Service handles transaction business logic
type Service struct {
	store     TransactionStore
	publisher EventPublisher
	log       *logrus.Logger
	now       func() time.Time
}

// NewService initializes a new service. A nil publisher disables events.
func NewService(store TransactionStore, publisher EventPublisher, log *logrus.Logger) *Service {
	return &Service{store: store, publisher: publisher, log: log, now: time.Now}
}

// List returns all transactions owned by owner, most recent date first
func (s *Service) List(ctx context.Context, owner string) ([]models.Transaction, error) {
	return s.ListMonth(ctx, owner, "")
}

// ListMonth returns owner's transactions whose month equals month exactly.
// An empty month lists everything.
func (s *Service) ListMonth(ctx context.Context, owner, month string) ([]models.Transaction, error) {
	txs, err := s.store.ListTransactions(ctx, owner, month)
	if err != nil {
		s.log.WithError(err).WithField("owner", owner).Error("Failed to list transactions")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if txs == nil {
		txs = []models.Transaction{}
	}
	return txs, nil
}

// Create validates in and stores it as a transaction owned by owner.
// Any owner or month supplied in the input is ignored.
func (s *Service) Create(ctx context.Context, owner string, in models.TransactionInput) (*models.Transaction, error) {
	tx, err := buildTransaction(owner, in)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		s.log.WithError(err).WithField("owner", owner).Error("Failed to create transaction")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s.log.WithFields(logrus.Fields{
		"owner": owner,
		"id":    tx.ID,
		"type":  tx.Type,
		"month": tx.Month,
	}).Info("Transaction created")
	s.publish(ctx, models.TransactionEvent{Kind: models.EventCreated, Owner: owner, TransactionID: tx.ID, Transaction: tx})
	return tx, nil
}

// Delete removes the transaction id if owner owns it. A missing id and a
// foreign id both yield ErrNotFound.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
	deleted, err := s.store.DeleteTransaction(ctx, owner, id)
	if err != nil {
		s.log.WithError(err).WithField("owner", owner).Error("Failed to delete transaction")
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !deleted {
		return ErrNotFound
	}

	s.log.WithFields(logrus.Fields{"owner": owner, "id": id}).Info("Transaction deleted")
	s.publish(ctx, models.TransactionEvent{Kind: models.EventDeleted, Owner: owner, TransactionID: id})
	return nil
}

// DeleteAll removes every transaction owned by owner in a single store call
func (s *Service) DeleteAll(ctx context.Context, owner string) (int64, error) {
	n, err := s.store.DeleteAllTransactions(ctx, owner)
	if err != nil {
		s.log.WithError(err).WithField("owner", owner).Error("Failed to reset transactions")
		return 0, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	s.log.Infof("Deleted %d transactions for %s", n, owner)
	s.publish(ctx, models.TransactionEvent{Kind: models.EventReset, Owner: owner, Count: n})
	return n, nil
}

// Summary aggregates all of owner's transactions; month selects the monthly figures
func (s *Service) Summary(ctx context.Context, owner, month string) (models.Summary, error) {
	txs, err := s.List(ctx, owner)
	if err != nil {
		return models.Summary{}, err
	}
	return aggregate.Summarize(txs, month), nil
}

func (s *Service) publish(ctx context.Context, event models.TransactionEvent) {
	if s.publisher == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.WithError(err).WithField("kind", event.Kind).Warn("Failed to publish transaction event")
	}
}

func buildTransaction(owner string, in models.TransactionInput) (*models.Transaction, error) {
	if owner == "" {
		return nil, ErrUnauthenticated
	}
	if !in.Type.Valid() {
		return nil, invalid("type", "must be income or expense")
	}

	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, invalid("amount", "must be greater than zero")
	}
	if amount.GreaterThan(maxAmount) {
		return nil, invalid("amount", "is too large")
	}

	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "Other"
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = category
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, invalid("title", fmt.Sprintf("must be at most %d characters", maxTitleLength))
	}

	return &models.Transaction{
		Title:    title,
		Amount:   amount,
		Type:     in.Type,
		Category: category,
		Date:     date,
		Month:    date[:7],
		Owner:    owner,
	}, nil
}

// ParseDate normalizes a YYYY-MM-DD date
func ParseDate(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", invalid("date", "is required")
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return "", invalid("date", "must be formatted YYYY-MM-DD")
	}
	return t.Format("2006-01-02"), nil
}

// ValidMonth reports whether month is formatted YYYY-MM
func ValidMonth(month string) bool {
	_, err := time.Parse("2006-01", month)
	return err == nil
}
