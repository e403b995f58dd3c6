package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrder_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/orders/order-1", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		w.Write([]byte(`{
			"data": {
				"id": "order-1",
				"attributes": {
					"status": "paid",
					"total": 15,
					"currency": "GBP",
					"user_email": "ada@example.com"
				}
			}
		}`))
	}))
	defer srv.Close()

	sut := NewClient(srv.URL, "test-key")
	order, err := sut.GetOrder(context.Background(), "order-1")
	require.NoError(t, err)

	assert.Equal(t, "order-1", order.ID)
	assert.Equal(t, "paid", order.Status)
	assert.Equal(t, 15.0, order.Total)
	assert.Equal(t, "ada@example.com", order.Email)
}

func TestGetOrder_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	sut := NewClient(srv.URL, "test-key")
	_, err := sut.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestGetOrder_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sut := NewClient(srv.URL, "test-key")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := sut.GetOrder(ctx, "order-1")
		require.Error(t, err)
	}

	// Breaker is open now; the request never reaches the server
	_, err := sut.GetOrder(ctx, "order-1")
	assert.ErrorIs(t, err, ErrUnavailable)
}
