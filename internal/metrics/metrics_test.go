package metrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/testutil"
	"github.com/HerbHall/atelier/pkg/models"
)

func TestOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeOK},
		{collection.ErrNotFound, OutcomeNotFound},
		{&collection.Error{Kind: collection.ErrValidation, Err: errors.New("title required")}, OutcomeValidation},
		{context.Canceled, OutcomeCanceled},
		{errors.New("connection reset"), OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.err), "Outcome(%v)", tt.err)
	}
}

func TestInstrument(t *testing.T) {
	rec := NewRecorder(nil)
	mem := collection.NewMemoryResource("services", testutil.Services(2)...)
	res := Instrument[models.Service](mem, rec)
	ctx := context.Background()

	assert.Equal(t, "services", res.Name())

	_, err := res.List(ctx, collection.SortOrderField)
	require.NoError(t, err)
	_, err = res.Insert(ctx, collection.Fields{"title": "C"})
	require.NoError(t, err)
	err = res.Update(ctx, "missing", collection.Fields{"title": "x"})
	require.ErrorIs(t, err, collection.ErrNotFound)
	mem.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpDelete {
			return errors.New("remote unavailable")
		}
		return nil
	})
	require.Error(t, res.Delete(ctx, "1"))

	assert.Equal(t, 1.0, promtest.ToFloat64(rec.requests.WithLabelValues("services", "list", OutcomeOK)))
	assert.Equal(t, 1.0, promtest.ToFloat64(rec.requests.WithLabelValues("services", "insert", OutcomeOK)))
	assert.Equal(t, 1.0, promtest.ToFloat64(rec.requests.WithLabelValues("services", "update", OutcomeNotFound)))
	assert.Equal(t, 1.0, promtest.ToFloat64(rec.requests.WithLabelValues("services", "delete", OutcomeError)))
	assert.Equal(t, 4, promtest.CollectAndCount(rec.requests))
	assert.Equal(t, 4, promtest.CollectAndCount(rec.duration))
}

func TestInstrument_NilRecorder(t *testing.T) {
	mem := collection.NewMemoryResource[models.Service]("services")
	assert.Same(t, mem, Instrument[models.Service](mem, nil))
}

func TestHandlerAndMiddleware(t *testing.T) {
	rec := NewRecorder(nil)
	api := rec.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))
	api.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/services/records", nil))

	assert.Equal(t, 1.0, promtest.ToFloat64(rec.httpRequests.WithLabelValues("201", "post")))

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(w.Body)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(string(body), "atelier_http_requests_total"))
}
