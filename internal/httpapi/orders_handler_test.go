package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kynaruniverse/storefront/internal/orders"
)

type purchaseListerMock struct {
	purchases []*orders.Purchase
	err       error
}

func (m *purchaseListerMock) ListPurchases(_ context.Context, _ string) ([]*orders.Purchase, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.purchases, nil
}

func TestListLibrary(t *testing.T) {
	mock := &purchaseListerMock{purchases: []*orders.Purchase{
		{
			ID:              "pur-1",
			UserID:          "user-1",
			ProviderOrderID: "ord-1",
			Total:           15,
			Currency:        "GBP",
			Status:          "completed",
		},
	}}
	h := NewOrdersHandler(mock, 5*time.Second)

	request := httptest.NewRequest("GET", "/library", nil)
	request = request.WithContext(context.WithValue(request.Context(), userIDKey, "user-1"))
	recorder := httptest.NewRecorder()
	h.ListLibrary(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)

	var resp struct {
		Purchases []PurchaseDTO `json:"purchases"`
	}
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&resp))
	require.Len(t, resp.Purchases, 1)
	assert.Equal(t, "pur-1", resp.Purchases[0].ID)
	assert.Equal(t, "£15.00", resp.Purchases[0].TotalDisplay)
}

func TestListLibrary_Anonymous(t *testing.T) {
	h := NewOrdersHandler(&purchaseListerMock{}, 5*time.Second)

	recorder := httptest.NewRecorder()
	h.ListLibrary(recorder, httptest.NewRequest("GET", "/library", nil))

	assert.Equal(t, http.StatusUnauthorized, recorder.Code)
}

func TestListLibrary_Error(t *testing.T) {
	h := NewOrdersHandler(&purchaseListerMock{err: assert.AnError}, 5*time.Second)

	request := httptest.NewRequest("GET", "/library", nil)
	request = request.WithContext(context.WithValue(request.Context(), userIDKey, "user-1"))
	recorder := httptest.NewRecorder()
	h.ListLibrary(recorder, request)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
