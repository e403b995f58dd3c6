package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kynaruniverse/storefront/internal/catalog"
)

type catalogAdminMock struct {
	products map[string]*catalog.Product
	err      error
}

func newCatalogAdminMock() *catalogAdminMock {
	return &catalogAdminMock{products: make(map[string]*catalog.Product)}
}

func (m *catalogAdminMock) ListAll(context.Context) ([]*catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *catalogAdminMock) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, catalog.ErrProductNotFound
}

func (m *catalogAdminMock) Create(_ context.Context, p *catalog.Product) error {
	if m.err != nil {
		return m.err
	}
	if p.ID == "" {
		p.ID = "generated-id"
	}
	m.products[p.ID] = p
	return nil
}

func (m *catalogAdminMock) Update(_ context.Context, p *catalog.Product) error {
	if m.err != nil {
		return m.err
	}
	if _, ok := m.products[p.ID]; !ok {
		return catalog.ErrProductNotFound
	}
	m.products[p.ID] = p
	return nil
}

func (m *catalogAdminMock) Delete(_ context.Context, id string) error {
	if _, ok := m.products[id]; !ok {
		return catalog.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *catalogAdminMock) SetPublished(_ context.Context, id string, published bool) error {
	p, ok := m.products[id]
	if !ok {
		return catalog.ErrProductNotFound
	}
	p.Published = published
	return nil
}

func validProductBody() string {
	body, _ := json.Marshal(ProductRequestDTO{
		Title:            "Deep Work Desk Setup",
		Slug:             "deep-work-desk-setup",
		World:            catalog.WorldTools,
		Category:         "productivity",
		PriceID:          "ls_p_789",
		ShortDescription: "A complete desk setup guide",
		Description:      "Everything you need to build a distraction-free workspace",
		Tags:             []string{"focus"},
		FileTypes:        []string{"pdf"},
		Published:        true,
	})
	return string(body)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestAdminCreateProduct(t *testing.T) {
	mock := newCatalogAdminMock()
	h := NewAdminHandler(mock, 5*time.Second)

	request := httptest.NewRequest("POST", "/admin/products", strings.NewReader(validProductBody()))
	recorder := httptest.NewRecorder()
	h.CreateProduct(recorder, request)

	require.Equal(t, http.StatusCreated, recorder.Code)
	assert.Len(t, mock.products, 1)
}

func TestAdminCreateProduct_ValidationFailed(t *testing.T) {
	mock := newCatalogAdminMock()
	h := NewAdminHandler(mock, 5*time.Second)

	request := httptest.NewRequest("POST", "/admin/products", strings.NewReader(`{"title":"ab"}`))
	recorder := httptest.NewRecorder()
	h.CreateProduct(recorder, request)

	require.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "validation_failed")
	assert.Empty(t, mock.products)
}

func TestAdminUpdateProduct_NotFound(t *testing.T) {
	mock := newCatalogAdminMock()
	h := NewAdminHandler(mock, 5*time.Second)

	request := httptest.NewRequest("PUT", "/admin/products/missing", strings.NewReader(validProductBody()))
	request = withURLParam(request, "id", "missing")
	recorder := httptest.NewRecorder()
	h.UpdateProduct(recorder, request)

	assert.Equal(t, http.StatusNotFound, recorder.Code)
}

func TestAdminDeleteProduct(t *testing.T) {
	mock := newCatalogAdminMock()
	mock.products["prod-1"] = &catalog.Product{ID: "prod-1"}
	h := NewAdminHandler(mock, 5*time.Second)

	request := withURLParam(httptest.NewRequest("DELETE", "/admin/products/prod-1", nil), "id", "prod-1")
	recorder := httptest.NewRecorder()
	h.DeleteProduct(recorder, request)

	assert.Equal(t, http.StatusNoContent, recorder.Code)
	assert.Empty(t, mock.products)
}

func TestAdminSetPublished(t *testing.T) {
	mock := newCatalogAdminMock()
	mock.products["prod-1"] = &catalog.Product{ID: "prod-1"}
	h := NewAdminHandler(mock, 5*time.Second)

	request := withURLParam(
		httptest.NewRequest("PATCH", "/admin/products/prod-1/published", strings.NewReader(`{"published":true}`)),
		"id", "prod-1",
	)
	recorder := httptest.NewRecorder()
	h.SetPublished(recorder, request)

	require.Equal(t, http.StatusOK, recorder.Code)
	assert.True(t, mock.products["prod-1"].Published)
}

func TestAdminMiddleware(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	guarded := AdminMiddleware("secret-token")(next)

	t.Run("valid token", func(t *testing.T) {
		request := httptest.NewRequest("GET", "/admin/products", nil)
		request.Header.Set("Authorization", "Bearer secret-token")
		recorder := httptest.NewRecorder()
		guarded.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusOK, recorder.Code)
	})

	t.Run("wrong token", func(t *testing.T) {
		request := httptest.NewRequest("GET", "/admin/products", nil)
		request.Header.Set("Authorization", "Bearer nope")
		recorder := httptest.NewRecorder()
		guarded.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("missing header", func(t *testing.T) {
		request := httptest.NewRequest("GET", "/admin/products", nil)
		recorder := httptest.NewRecorder()
		guarded.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusUnauthorized, recorder.Code)
	})

	t.Run("unconfigured", func(t *testing.T) {
		disabled := AdminMiddleware("")(next)
		request := httptest.NewRequest("GET", "/admin/products", nil)
		recorder := httptest.NewRecorder()
		disabled.ServeHTTP(recorder, request)
		assert.Equal(t, http.StatusForbidden, recorder.Code)
	})
}

func TestSessionMiddleware(t *testing.T) {
	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = getSessionID(r.Context())
	})
	wrapped := SessionMiddleware(next)

	t.Run("header wins", func(t *testing.T) {
		request := httptest.NewRequest("GET", "/", nil)
		request.Header.Set("X-Session-ID", "sess-from-header")
		wrapped.ServeHTTP(httptest.NewRecorder(), request)
		assert.Equal(t, "sess-from-header", seen)
	})

	t.Run("cookie fallback", func(t *testing.T) {
		request := httptest.NewRequest("GET", "/", nil)
		request.AddCookie(&http.Cookie{Name: SessionCookie, Value: "sess-from-cookie"})
		wrapped.ServeHTTP(httptest.NewRecorder(), request)
		assert.Equal(t, "sess-from-cookie", seen)
	})

	t.Run("minted for new visitors", func(t *testing.T) {
		request := httptest.NewRequest("GET", "/", nil)
		recorder := httptest.NewRecorder()
		wrapped.ServeHTTP(recorder, request)
		assert.NotEmpty(t, seen)

		cookies := recorder.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, SessionCookie, cookies[0].Name)
		assert.Equal(t, seen, cookies[0].Value)
	})
}
