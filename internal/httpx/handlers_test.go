package httpx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/romix/stock-api/internal/catalog"
	"github.com/romix/stock-api/internal/orders"
	"github.com/romix/stock-api/internal/stock"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{orders.ErrInvalidItem, http.StatusBadRequest},
		{fmt.Errorf("no items: %w", orders.ErrInvalidItem), http.StatusBadRequest},
		{catalog.ErrInvalidRestock, http.StatusBadRequest},
		{orders.ErrOrderNotFound, http.StatusNotFound},
		{fmt.Errorf("Shirt Black/M: %w", stock.ErrUnknownVariant), http.StatusNotFound},
		{fmt.Errorf("reserved -> paid: %w", orders.ErrUnsupportedTransition), http.StatusConflict},
		{fmt.Errorf("Shirt Black/M: %w", &stock.InsufficientStockError{Requested: 5, Available: 2}), http.StatusConflict},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, statusFor(c.err), "err=%v", c.err)
	}
}

func TestWriteErrCarriesAvailable(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErr(rec, fmt.Errorf("Shirt Black/M: %w", &stock.InsufficientStockError{Requested: 5, Available: 2}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.JSONEq(t, `{"error":"Shirt Black/M: insufficient stock: requested 5, available 2","available":2}`, rec.Body.String())
}

func TestRouterCORSAndHealth(t *testing.T) {
	r := NewRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/orders", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
