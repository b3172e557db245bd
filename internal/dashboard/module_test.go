package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/HerbHall/atelier/internal/auth"
	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/guard"
	"github.com/HerbHall/atelier/internal/plugin"
	"github.com/HerbHall/atelier/internal/site"
	"github.com/HerbHall/atelier/internal/testutil"
	"github.com/HerbHall/atelier/pkg/models"
)

var errBackend = errors.New("backend unavailable")

func seedServices() []models.Service {
	return []models.Service{
		{ID: "a", Title: "Alpha", SortOrder: 0},
		{ID: "b", Title: "Beta", SortOrder: 1},
		{ID: "c", Title: "Gamma", SortOrder: 2},
	}
}

// mount serves routes the way the server does, under /api/v1/{name}.
func mount(mux *http.ServeMux, name string, routes []plugin.Route) {
	for _, rt := range routes {
		mux.HandleFunc(rt.Method+" /api/v1/"+name+rt.Path, rt.Handler)
	}
}

type fixture struct {
	module   *Module[models.Service]
	res      *collection.MemoryResource[models.Service]
	sessions *guard.Sessions
	mux      *http.ServeMux
	logs     *observer.ObservedLogs
}

func newFixture(t *testing.T, def site.Collection[models.Service]) *fixture {
	t.Helper()
	f := &fixture{
		res:      collection.NewMemoryResource("services", seedServices()...),
		sessions: guard.NewSessions(),
		mux:      http.NewServeMux(),
	}
	f.module = NewModule(def, f.res, f.sessions)
	logger, logs := testutil.ObservedLogger(zapcore.DebugLevel)
	f.logs = logs
	require.NoError(t, f.module.Init(nil, logger))
	require.NoError(t, f.module.Start(context.Background()))
	t.Cleanup(func() { _ = f.module.Stop() })
	mount(f.mux, def.Name, f.module.Routes())
	return f
}

func (f *fixture) do(t *testing.T, subject, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{Subject: subject, Role: auth.RoleAdmin}))
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

type listBody struct {
	Items []models.Service `json:"items"`
	Total int              `json:"total"`
}

func titles(items []models.Service) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func decode[V any](t *testing.T, rec *httptest.ResponseRecorder) V {
	t.Helper()
	var v V
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestModuleInfoAndHealth(t *testing.T) {
	f := newFixture(t, site.Services)
	assert.Equal(t, "services", f.module.Info().Name)
	assert.Equal(t, plugin.StatusHealthy, f.module.Health(context.Background()).Status)

	f.res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpList {
			return errBackend
		}
		return nil
	})
	_, err := f.module.Store().FetchAll(context.Background())
	require.Error(t, err)
	h := f.module.Health(context.Background())
	assert.Equal(t, plugin.StatusDegraded, h.Status)
	assert.Contains(t, h.Message, "backend unavailable")
}

func TestSubject(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, Anonymous, Subject(req))
	req = req.WithContext(auth.WithPrincipal(req.Context(), auth.Principal{Subject: "u1"}))
	assert.Equal(t, "u1", Subject(req))
}

func TestRecordsLifecycle(t *testing.T) {
	f := newFixture(t, site.Services)

	rec := f.do(t, "", http.MethodGet, "/api/v1/services/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listBody](t, rec)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, titles(list.Items))

	rec = f.do(t, "", http.MethodPost, "/api/v1/services/records", `{"title":"Delta"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[models.Service](t, rec)
	assert.Equal(t, "Delta", created.Title)
	assert.Equal(t, 3, created.SortOrder)
	assert.NotEmpty(t, created.ID)

	rec = f.do(t, "", http.MethodPatch, "/api/v1/services/records/a", `{"title":"Alpha 2"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "", http.MethodDelete, "/api/v1/services/records/b", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "", http.MethodDelete, "/api/v1/services/records/b", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	assert.Equal(t, []string{"Alpha 2", "Gamma", "Delta"}, titles(f.module.Store().Items()))
}

func TestRecordsBadBody(t *testing.T) {
	f := newFixture(t, site.Services)
	rec := f.do(t, "", http.MethodPost, "/api/v1/services/records", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordsWriteSucceedsRefreshFails(t *testing.T) {
	f := newFixture(t, site.Services)
	f.res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpList {
			return errBackend
		}
		return nil
	})

	rec := f.do(t, "", http.MethodPost, "/api/v1/services/records", `{"title":"Delta"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Warning"))

	rec = f.do(t, "", http.MethodGet, "/api/v1/services/records", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestPublicServesLoadedRecords(t *testing.T) {
	f := newFixture(t, site.Services)
	calls := f.res.Calls(collection.OpList)

	rec := f.do(t, "", http.MethodGet, "/api/v1/services/public", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, decode[listBody](t, rec).Total)
	assert.Equal(t, calls, f.res.Calls(collection.OpList))
}

func TestOrder(t *testing.T) {
	f := newFixture(t, site.Services)

	rec := f.do(t, "", http.MethodPut, "/api/v1/services/order", `{"ids":["c","a","b"]}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"Gamma", "Alpha", "Beta"}, titles(decode[listBody](t, rec).Items))

	for _, body := range []string{
		`{"ids":["a","a","b"]}`,
		`{"ids":["a","b"]}`,
		`{"ids":["a","b","x"]}`,
	} {
		rec = f.do(t, "", http.MethodPut, "/api/v1/services/order", body)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
	}
	assert.Equal(t, []string{"Gamma", "Alpha", "Beta"}, titles(f.module.Store().Items()))
}

func TestOrderNotSortable(t *testing.T) {
	def := site.Services
	def.Schema.Sortable = false
	f := newFixture(t, def)

	rec := f.do(t, "", http.MethodPut, "/api/v1/services/order", `{"ids":["c","a","b"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = f.do(t, "", http.MethodPost, "/api/v1/services/records/b/move?dir=up", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 0, f.res.Calls(collection.OpUpdate))
}

func TestMove(t *testing.T) {
	f := newFixture(t, site.Services)

	rec := f.do(t, "", http.MethodPost, "/api/v1/services/records/b/move?dir=up&wait=1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[moveResponse[models.Service]](t, rec)
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma"}, titles(body.Items))
	assert.Equal(t, "settled", body.State)

	writes := f.res.Calls(collection.OpUpdate)
	rec = f.do(t, "", http.MethodPost, "/api/v1/services/records/b/move?dir=up", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, writes, f.res.Calls(collection.OpUpdate), "moving the first record up writes nothing")

	rec = f.do(t, "", http.MethodPost, "/api/v1/services/records/b/move?dir=left", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, "", http.MethodPost, "/api/v1/services/records/zz/move?dir=down", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMoveAnswersBeforeWriteSettles(t *testing.T) {
	f := newFixture(t, site.Services)
	release := make(chan struct{})
	f.res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpUpdate {
			<-release
		}
		return nil
	})

	rec := f.do(t, "", http.MethodPost, "/api/v1/services/records/b/move?dir=up", "")
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	body := decode[moveResponse[models.Service]](t, rec)
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma"}, titles(body.Items))
	assert.Equal(t, "optimistic_pending", body.State)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, titles(f.module.Store().Items()), "not yet persisted")

	rec = f.do(t, "", http.MethodPost, "/api/v1/services/records/c/move?dir=up", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	close(release)
	assert.Eventually(t, func() bool { return !f.module.ctrl.Pending() }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma"}, titles(f.module.Store().Items()))
}

func TestOrderAndMoveShareOneSlot(t *testing.T) {
	f := newFixture(t, site.Services)
	release := make(chan struct{})
	f.res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpUpdate {
			<-release
		}
		return nil
	})

	orderDone := make(chan *httptest.ResponseRecorder, 1)
	go func() {
		orderDone <- f.do(t, "", http.MethodPut, "/api/v1/services/order", `{"ids":["c","b","a"]}`)
	}()
	require.Eventually(t, f.module.ctrl.Pending, 5*time.Second, 5*time.Millisecond)

	rec := f.do(t, "", http.MethodPost, "/api/v1/services/records/a/move?dir=down", "")
	assert.Equal(t, http.StatusConflict, rec.Code, "move while an order is being written")
	rec = f.do(t, "", http.MethodPut, "/api/v1/services/order", `{"ids":["a","b","c"]}`)
	assert.Equal(t, http.StatusConflict, rec.Code, "second order while the first is being written")

	close(release)
	rec = <-orderDone
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := f.module.Store().Items()
	assert.Equal(t, []string{"Gamma", "Beta", "Alpha"}, titles(got))
	for i, it := range got {
		assert.Equal(t, i, it.SortOrder)
	}
}

func TestMoveFailureKeepsSwappedOrder(t *testing.T) {
	f := newFixture(t, site.Services)
	var fail atomic.Bool
	fail.Store(true)
	f.res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpUpdate && fail.Load() {
			return errBackend
		}
		return nil
	})

	rec := f.do(t, "", http.MethodPost, "/api/v1/services/records/c/move?dir=up&wait=1", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, []string{"Alpha", "Gamma", "Beta"}, titles(f.module.ctrl.Rows()))
	assert.False(t, f.module.ctrl.Pending())

	fail.Store(false)
	rec = f.do(t, "", http.MethodGet, "/api/v1/services/records", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Alpha", "Beta", "Gamma"}, titles(f.module.ctrl.Rows()))
}

func TestTablePage(t *testing.T) {
	f := newFixture(t, site.Services)

	rec := f.do(t, "alice", http.MethodGet, "/api/v1/services/table", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	html := rec.Body.String()
	assert.Contains(t, html, "<h1>Services</h1>")
	assert.Contains(t, html, "Alpha")
	assert.Contains(t, html, `/api/v1/services/table/move?id=b&amp;dir=up`)
	assert.Contains(t, html, `/api/v1/services/table/edit?id=a`)
	assert.Contains(t, html, `action="/api/v1/services/table/edit"><button type="submit">Add</button>`)
	assert.NotContains(t, html, "Delete this item?")
}

func TestTableMove(t *testing.T) {
	f := newFixture(t, site.Services)

	rec := f.do(t, "alice", http.MethodPost, "/api/v1/services/table/move?id=b&dir=up", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/api/v1/services/table", rec.Header().Get("Location"))
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma"}, titles(f.module.ctrl.Rows()))
	assert.Eventually(t, func() bool { return !f.module.ctrl.Pending() }, 5*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"Beta", "Alpha", "Gamma"}, titles(f.module.Store().Items()))

	rec = f.do(t, "alice", http.MethodPost, "/api/v1/services/table/move?id=zz&dir=up", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTableDeleteFlow(t *testing.T) {
	f := newFixture(t, site.Services)

	rec := f.do(t, "alice", http.MethodPost, "/api/v1/services/table/delete?id=b", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delete this item?")
	assert.Equal(t, 0, f.res.Calls(collection.OpDelete), "requesting a delete never deletes")

	// Another admin's dialog is separate.
	rec = f.do(t, "bob", http.MethodGet, "/api/v1/services/table", "")
	assert.NotContains(t, rec.Body.String(), "Delete this item?")

	f.res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpDelete {
			return errBackend
		}
		return nil
	})
	rec = f.do(t, "alice", http.MethodPost, "/api/v1/services/table/delete/confirm", "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Delete this item?")
	assert.Contains(t, rec.Body.String(), "backend unavailable")
	assert.Len(t, f.module.Store().Items(), 3)

	f.res.SetIntercept(nil)
	rec = f.do(t, "alice", http.MethodPost, "/api/v1/services/table/delete/confirm", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, []string{"Alpha", "Gamma"}, titles(f.module.Store().Items()))

	rec = f.do(t, "alice", http.MethodPost, "/api/v1/services/table/delete/confirm", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestTableDeleteCancel(t *testing.T) {
	f := newFixture(t, site.Services)

	f.do(t, "alice", http.MethodPost, "/api/v1/services/table/delete?id=a", "")
	rec := f.do(t, "alice", http.MethodPost, "/api/v1/services/table/delete/cancel", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	rec = f.do(t, "alice", http.MethodGet, "/api/v1/services/table", "")
	assert.NotContains(t, rec.Body.String(), "Delete this item?")
	assert.Equal(t, 0, f.res.Calls(collection.OpDelete))
}

func TestTableShowsLoadError(t *testing.T) {
	f := newFixture(t, site.Services)
	f.res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpList {
			return errBackend
		}
		return nil
	})
	_, _ = f.module.Store().FetchAll(context.Background())

	rec := f.do(t, "alice", http.MethodGet, "/api/v1/services/table", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `role="alert"`)
	assert.Contains(t, rec.Body.String(), "Alpha", "previously loaded rows stay visible")
}
