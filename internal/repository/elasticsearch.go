package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/google/uuid"
)

const (
	// esPageSize is the number of hits fetched per search_after page
	esPageSize = 1000

	transactionMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "keyword"},
      "owner":      {"type": "keyword"},
      "title":      {"type": "text"},
      "amount":     {"type": "scaled_float", "scaling_factor": 100},
      "type":       {"type": "keyword"},
      "category":   {"type": "keyword"},
      "date":       {"type": "date", "format": "yyyy-MM-dd"},
      "month":      {"type": "keyword"},
      "created_at": {"type": "date"}
    }
  }
}`

	userMapping = `{
  "mappings": {
    "properties": {
      "id":            {"type": "keyword"},
      "email":         {"type": "keyword"},
      "name":          {"type": "text"},
      "password_hash": {"type": "keyword", "index": false},
      "created_at":    {"type": "date"}
    }
  }
}`
)

// ElasticStore keeps transactions and users as Elasticsearch documents.
// Users are keyed by lower-cased email so that creation enforces uniqueness.
type ElasticStore struct {
	es         *elasticsearch.Client
	index      string
	usersIndex string
	pageSize   int
	now        func() time.Time
}

type userDoc struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

type searchHit struct {
	Source json.RawMessage   `json:"_source"`
	Sort   []json.RawMessage `json:"sort"`
}

type searchResponse struct {
	Hits struct {
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// NewElasticStore creates a client for the given cluster addresses.
// Transactions live in index, users in index + "-users".
func NewElasticStore(addresses []string, index string) (*ElasticStore, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    addresses,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}
	return &ElasticStore{
		es:         es,
		index:      index,
		usersIndex: index + "-users",
		pageSize:   esPageSize,
		now:        time.Now,
	}, nil
}

// Ping checks cluster connectivity
func (e *ElasticStore) Ping(ctx context.Context) error {
	res, err := e.es.Ping(e.es.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to ping elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("ping elasticsearch", res)
	}
	return nil
}

// EnsureIndices creates the transaction and user indices when missing
func (e *ElasticStore) EnsureIndices(ctx context.Context) error {
	for name, mapping := range map[string]string{e.index: transactionMapping, e.usersIndex: userMapping} {
		res, err := e.es.Indices.Exists([]string{name}, e.es.Indices.Exists.WithContext(ctx))
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", name, err)
		}
		res.Body.Close()
		if res.StatusCode == http.StatusOK {
			continue
		}

		res, err = e.es.Indices.Create(name,
			e.es.Indices.Create.WithBody(strings.NewReader(mapping)),
			e.es.Indices.Create.WithContext(ctx),
		)
		if err != nil {
			return fmt.Errorf("failed to create index %s: %w", name, err)
		}
		if res.IsError() {
			err = responseError("create index "+name, res)
		}
		res.Body.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *ElasticStore) CreateUser(ctx context.Context, user *models.User) error {
	doc := userDoc{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(user.Email),
		Name:         user.Name,
		PasswordHash: user.PasswordHash,
		CreatedAt:    e.now().UTC(),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode user: %w", err)
	}

	res, err := e.es.Index(e.usersIndex, bytes.NewReader(body),
		e.es.Index.WithDocumentID(doc.Email),
		e.es.Index.WithOpType("create"),
		e.es.Index.WithRefresh("wait_for"),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusConflict {
		return ErrDuplicate
	}
	if res.IsError() {
		return responseError("create user", res)
	}

	user.ID, user.Email, user.CreatedAt = doc.ID, doc.Email, doc.CreatedAt
	return nil
}

func (e *ElasticStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	res, err := e.es.Get(e.usersIndex, strings.ToLower(email), e.es.Get.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, ErrNoRecord
	}
	if res.IsError() {
		return nil, responseError("find user", res)
	}

	var got struct {
		Source userDoc `json:"_source"`
	}
	if err := json.NewDecoder(res.Body).Decode(&got); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return got.Source.user(), nil
}

func (e *ElasticStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	hits, err := e.search(ctx, e.usersIndex, map[string]any{
		"query": map[string]any{"term": map[string]any{"id": id}},
		"size":  1,
	})
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return nil, ErrNoRecord
	}
	var doc userDoc
	if err := json.Unmarshal(hits[0].Source, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return doc.user(), nil
}

func (e *ElasticStore) ListUsers(ctx context.Context) ([]models.User, error) {
	hits, err := e.searchAll(ctx, e.usersIndex,
		map[string]any{"match_all": map[string]any{}},
		[]any{
			map[string]any{"created_at": "asc"},
			map[string]any{"id": "asc"},
		})
	if err != nil {
		return nil, err
	}
	users := make([]models.User, 0, len(hits))
	for _, h := range hits {
		var doc userDoc
		if err := json.Unmarshal(h, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode user: %w", err)
		}
		users = append(users, *doc.user())
	}
	return users, nil
}

func (e *ElasticStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	tx.ID = uuid.NewString()
	tx.CreatedAt = e.now().UTC()
	body, err := json.Marshal(tx)
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}

	res, err := e.es.Index(e.index, bytes.NewReader(body),
		e.es.Index.WithDocumentID(tx.ID),
		e.es.Index.WithRefresh("wait_for"),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return responseError("create transaction", res)
	}
	return nil
}

func (e *ElasticStore) ListTransactions(ctx context.Context, owner, month string) ([]models.Transaction, error) {
	filter := []any{map[string]any{"term": map[string]any{"owner": owner}}}
	if month != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"month": month}})
	}
	hits, err := e.searchAll(ctx, e.index,
		map[string]any{"bool": map[string]any{"filter": filter}},
		[]any{
			map[string]any{"date": "desc"},
			map[string]any{"created_at": "desc"},
			map[string]any{"id": "asc"},
		})
	if err != nil {
		return nil, err
	}

	txs := make([]models.Transaction, 0, len(hits))
	for _, h := range hits {
		var tx models.Transaction
		if err := json.Unmarshal(h, &tx); err != nil {
			return nil, fmt.Errorf("failed to decode transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func (e *ElasticStore) DeleteTransaction(ctx context.Context, owner, id string) (bool, error) {
	n, err := e.deleteByQuery(ctx, []any{
		map[string]any{"ids": map[string]any{"values": []string{id}}},
		map[string]any{"term": map[string]any{"owner": owner}},
	})
	return n > 0, err
}

func (e *ElasticStore) DeleteAllTransactions(ctx context.Context, owner string) (int64, error) {
	return e.deleteByQuery(ctx, []any{
		map[string]any{"term": map[string]any{"owner": owner}},
	})
}

func (e *ElasticStore) deleteByQuery(ctx context.Context, filter []any) (int64, error) {
	body, err := json.Marshal(map[string]any{
		"query": map[string]any{"bool": map[string]any{"filter": filter}},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := e.es.DeleteByQuery([]string{e.index}, bytes.NewReader(body),
		e.es.DeleteByQuery.WithRefresh(true),
		e.es.DeleteByQuery.WithContext(ctx),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, responseError("delete transactions", res)
	}

	var out struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("failed to decode delete response: %w", err)
	}
	return out.Deleted, nil
}

// searchAll pages through every hit of query with search_after.
// sort must end with a unique field so pages never overlap.
func (e *ElasticStore) searchAll(ctx context.Context, index string, query map[string]any, sort []any) ([]json.RawMessage, error) {
	var (
		out   []json.RawMessage
		after []json.RawMessage
	)
	for {
		body := map[string]any{
			"query":            query,
			"sort":             sort,
			"size":             e.pageSize,
			"track_total_hits": false,
		}
		if after != nil {
			body["search_after"] = after
		}

		hits, err := e.search(ctx, index, body)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			out = append(out, h.Source)
		}
		if len(hits) < e.pageSize {
			return out, nil
		}

		after = hits[len(hits)-1].Sort
		if len(after) == 0 {
			return nil, fmt.Errorf("failed to page %s: hit without sort values", index)
		}
	}
}

func (e *ElasticStore) search(ctx context.Context, index string, query map[string]any) ([]searchHit, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query: %w", err)
	}

	res, err := e.es.Search(
		e.es.Search.WithIndex(index),
		e.es.Search.WithBody(bytes.NewReader(body)),
		e.es.Search.WithContext(ctx),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError("search "+index, res)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode search response: %w", err)
	}
	return sr.Hits.Hits, nil
}

func (d userDoc) user() *models.User {
	return &models.User{
		ID:           d.ID,
		Email:        d.Email,
		Name:         d.Name,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
	}
}

func responseError(op string, res *esapi.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(res.Body, 1024))
	return fmt.Errorf("failed to %s: %s %s", op, res.Status(), strings.TrimSpace(string(msg)))
}
