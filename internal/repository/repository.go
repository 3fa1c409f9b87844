package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	// ErrNoRecord is returned when a lookup matches nothing
	ErrNoRecord = errors.New("no matching record")
	// ErrDuplicate is returned when a unique key already exists
	ErrDuplicate = errors.New("duplicate record")
)

const uniqueViolation = "23505"

// Repository provides PostgreSQL storage for users and transactions
type Repository struct {
	db *sql.DB
}

// NewRepository initializes a new repository
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Ping checks database connectivity
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, name, password_hash, created_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, strings.ToLower(user.Email), user.Name, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByEmail retrieves a user by email
func (r *Repository) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE email = $1`
	return r.findUser(ctx, query, strings.ToLower(email))
}

// FindUserByID retrieves a user by id
func (r *Repository) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNoRecord
	}
	query := `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE id = $1`
	return r.findUser(ctx, query, id)
}

func (r *Repository) findUser(ctx context.Context, query string, arg string) (*models.User, error) {
	user := &models.User{}
	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoRecord
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// ListUsers returns every registered user ordered by creation time
func (r *Repository) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateTransaction stores tx and fills in its id and creation time
func (r *Repository) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	query := `
		INSERT INTO transactions (owner_id, title, amount, type, category, date, month, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query, tx.Owner, tx.Title, tx.Amount, string(tx.Type), tx.Category, tx.Date, tx.Month).
		Scan(&tx.ID, &tx.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// ListTransactions returns owner's transactions, newest date first.
// An empty month returns every month.
func (r *Repository) ListTransactions(ctx context.Context, owner, month string) ([]models.Transaction, error) {
	txs := []models.Transaction{}
	if _, err := uuid.Parse(owner); err != nil {
		return txs, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, title, amount, type, category, date, month, created_at
		FROM transactions
		WHERE owner_id = $1 AND ($2::text = '' OR month = $2::text)
		ORDER BY date DESC, created_at DESC`, owner, month)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			tx   models.Transaction
			typ  string
			date time.Time
		)
		if err := rows.Scan(&tx.ID, &tx.Owner, &tx.Title, &tx.Amount, &typ, &tx.Category, &date, &tx.Month, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		tx.Type = models.TransactionType(typ)
		tx.Date = date.Format("2006-01-02")
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

// DeleteTransaction removes the transaction only if it belongs to owner.
// It reports false when no such record exists.
func (r *Repository) DeleteTransaction(ctx context.Context, owner, id string) (bool, error) {
	if _, err := uuid.Parse(id); err != nil {
		return false, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1 AND owner_id = $2`, id, owner)
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete transaction: %w", err)
	}
	return n > 0, nil
}

// DeleteAllTransactions removes every transaction of owner in one statement
func (r *Repository) DeleteAllTransactions(ctx context.Context, owner string) (int64, error) {
	if _, err := uuid.Parse(owner); err != nil {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE owner_id = $1`, owner)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return res.RowsAffected()
}
