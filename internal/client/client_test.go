package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListSendsTokenAndMonth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/transactions", r.URL.Path)
		assert.Equal(t, "2024-01", r.URL.Query().Get("month"))
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "1", "title": "Salary", "amount": 5000, "type": "income", "date": "2024-01-15", "month": "2024-01"},
		})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", nil)
	c.SetToken("tok")
	txs, err := c.List(context.Background(), "2024-01")
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, txs[0].Amount.Equal(decimal.NewFromInt(5000)))
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, ErrUnauthenticated},
		{http.StatusNotFound, ErrNotFound},
		{http.StatusServiceUnavailable, ErrUnreachable},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(`{"message":"nope"}`))
			}))
			defer srv.Close()

			err := New(srv.URL, nil).Delete(context.Background(), "abc")
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAPIErrorCarriesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"amount: must be greater than zero"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, nil).Create(context.Background(), models.TransactionInput{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "amount: must be greater than zero", apiErr.Message)
}

func TestUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, nil).List(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestDeleteAllAndExport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodDelete:
			w.Write([]byte(`{"message":"ok","deleted":4}`))
		case r.URL.Path == "/api/transactions/export":
			assert.Equal(t, "xml", r.URL.Query().Get("format"))
			w.Header().Set("Content-Type", "application/xml")
			w.Header().Set("Content-Disposition", `attachment; filename="transactions_20240101.xml"`)
			w.Write([]byte("<transactions/>"))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, nil)
	n, err := c.DeleteAll(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)

	exp, err := c.Export(context.Background(), "xml", "")
	require.NoError(t, err)
	assert.Equal(t, "transactions_20240101.xml", exp.Filename)
	assert.Equal(t, "<transactions/>", string(exp.Data))
}
