// Package client is a typed HTTP client for the tracker API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
)

var (
	// ErrUnauthenticated is returned for any 401 response
	ErrUnauthenticated = errors.New("not logged in or session expired")
	// ErrNotFound is returned for any 404 response
	ErrNotFound = errors.New("transaction not found or not yours")
	// ErrUnreachable is returned when the API cannot be reached at all
	ErrUnreachable = errors.New("service unreachable")
)

// APIError is any other non-2xx response
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// AuthResult is the response to register and login
type AuthResult struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// Export is a downloaded export file
type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Client talks to one API base URL with an optional bearer token
type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

// New returns a client for baseURL. A nil httpClient uses a 10s timeout client.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// SetToken sets the bearer token sent with every request
func (c *Client) SetToken(token string) {
	c.token = token
}

func (c *Client) Register(ctx context.Context, email, password, name string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password, "name": name}
	err := c.do(ctx, http.MethodPost, "/api/auth/register", body, &out)
	return out, err
}

func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	var out AuthResult
	body := map[string]string{"email": email, "password": password}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", body, &out)
	return out, err
}

// List fetches the caller's transactions. An empty month fetches all of them.
func (c *Client) List(ctx context.Context, month string) ([]models.Transaction, error) {
	var out []models.Transaction
	if err := c.do(ctx, http.MethodGet, "/api/transactions"+monthQuery(month), nil, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []models.Transaction{}
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, in models.TransactionInput) (*models.Transaction, error) {
	var out models.Transaction
	if err := c.do(ctx, http.MethodPost, "/api/transactions", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+url.PathEscape(id), nil, nil)
}

// DeleteAll removes every transaction of the caller in one request
func (c *Client) DeleteAll(ctx context.Context) (int64, error) {
	var out struct {
		Deleted int64 `json:"deleted"`
	}
	err := c.do(ctx, http.MethodDelete, "/api/transactions", nil, &out)
	return out.Deleted, err
}

func (c *Client) Summary(ctx context.Context, month string) (models.Summary, error) {
	var out models.Summary
	err := c.do(ctx, http.MethodGet, "/api/summary"+monthQuery(month), nil, &out)
	return out, err
}

// Export downloads the caller's transactions in format (csv, xlsx or xml)
func (c *Client) Export(ctx context.Context, format, month string) (*Export, error) {
	q := url.Values{"format": {format}}
	if month != "" {
		q.Set("month", month)
	}
	resp, err := c.send(ctx, http.MethodGet, "/api/transactions/export?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	filename := "transactions." + format
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil && params["filename"] != "" {
		filename = params["filename"]
	}
	return &Export{Filename: filename, ContentType: resp.Header.Get("Content-Type"), Data: data}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// send performs one request and maps failures to the package errors.
// The caller closes the body of a successful response.
func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	var msg struct {
		Message string `json:"message"`
	}
	json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&msg)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return nil, ErrUnauthenticated
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, ErrUnreachable
	}
	if msg.Message == "" {
		msg.Message = http.StatusText(resp.StatusCode)
	}
	return nil, &APIError{Status: resp.StatusCode, Message: msg.Message}
}

func monthQuery(month string) string {
	if month == "" {
		return ""
	}
	return "?month=" + url.QueryEscape(month)
}
