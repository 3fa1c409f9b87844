package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// UserStore persists user accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
}

// AuthService registers users and issues and verifies bearer tokens
type AuthService struct {
	users  UserStore
	secret []byte
	ttl    time.Duration
	log    *logrus.Logger
	now    func() time.Time
}

// NewAuthService initializes the identity provider
func NewAuthService(users UserStore, secret string, ttl time.Duration, log *logrus.Logger) *AuthService {
	return &AuthService{users: users, secret: []byte(secret), ttl: ttl, log: log, now: time.Now}
}

// Register creates a new user with a hashed password and returns a token for it
func (a *AuthService) Register(ctx context.Context, email, password, name string) (*models.User, string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, "", invalid("email", "is not a valid address")
	}
	if len(password) < minPasswordLength {
		return nil, "", invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        addr.Address,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hashedPassword),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	token, err := a.issue(user)
	if err != nil {
		return nil, "", err
	}
	a.log.Infof("User registered: %s", user.Email)
	return user, token, nil
}

// Login authenticates a user and returns a JWT token
func (a *AuthService) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := a.users.FindUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, repository.ErrNoRecord) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := a.issue(user)
	if err != nil {
		return nil, "", err
	}
	a.log.Infof("User logged in: %s", user.Email)
	return user, token, nil
}

// Authenticate resolves a bearer token to exactly one user id or fails
func (a *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrUnauthenticated
	}

	user, err := a.users.FindUserByID(ctx, claims.Subject)
	if errors.Is(err, repository.ErrNoRecord) {
		return "", ErrUnauthenticated
	}
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return user.ID, nil
}

// Users lists every registered user
func (a *AuthService) Users(ctx context.Context) ([]models.User, error) {
	users, err := a.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return users, nil
}

func (a *AuthService) issue(user *models.User) (string, error) {
	now := a.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
	})
	tokenString, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}
