// Package dashboard serves the admin dashboard of the studio site. Each
// content collection is mounted as its own plugin with a JSON API for the
// records, an HTML list page and a per-admin editing form. The session and
// contact plugins serve the unsaved-changes signal and the contact details.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/auth"
	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/config"
	"github.com/HerbHall/atelier/internal/editor"
	"github.com/HerbHall/atelier/internal/guard"
	"github.com/HerbHall/atelier/internal/plugin"
	"github.com/HerbHall/atelier/internal/site"
	"github.com/HerbHall/atelier/internal/table"
	"github.com/HerbHall/atelier/internal/version"
)

// Anonymous is the subject of requests that carry no principal.
const Anonymous = "anonymous"

// Compile-time interface guards.
var (
	_ plugin.Plugin        = (*Module[anyRecord])(nil)
	_ plugin.HTTPProvider  = (*Module[anyRecord])(nil)
	_ plugin.HealthChecker = (*Module[anyRecord])(nil)
)

type anyRecord struct{}

func (anyRecord) RecordID() string     { return "" }
func (anyRecord) RecordSortOrder() int { return 0 }

// workspace is the editing state of one admin within one collection.
type workspace[T collection.Record] struct {
	surface *editor.Surface[T]
	dialog  *table.DeleteDialog
}

// Module serves one collection. The store and reorder controller are shared
// by every admin; forms and delete dialogs are per admin.
type Module[T collection.Record] struct {
	def      site.Collection[T]
	res      collection.Resource[T]
	sessions *guard.Sessions
	logger   *zap.Logger

	store   *collection.Store[T]
	ctrl    *collection.Controller[T]
	origins []string

	mu         sync.Mutex
	workspaces map[string]*workspace[T]
}

// NewModule returns the plugin for def backed by res. sessions is shared
// with the session plugin so navigation sees every form's dirty state.
func NewModule[T collection.Record](def site.Collection[T], res collection.Resource[T], sessions *guard.Sessions) *Module[T] {
	if sessions == nil {
		sessions = guard.NewSessions()
	}
	return &Module[T]{
		def:        def,
		res:        res,
		sessions:   sessions,
		logger:     zap.NewNop(),
		workspaces: make(map[string]*workspace[T]),
	}
}

func (m *Module[T]) Info() plugin.Info {
	return plugin.Info{
		Name:        m.def.Name,
		Version:     version.Short(),
		Description: m.def.Title + " collection",
	}
}

// Init reads the plugin's origins key: host patterns allowed to open the
// events stream cross-origin.
func (m *Module[T]) Init(cfg *config.Config, logger *zap.Logger) error {
	if logger != nil {
		m.logger = logger
	}
	m.origins = cfg.GetStringSlice("origins")
	opts := []collection.Option{collection.WithLogger(m.logger)}
	if m.def.Sortable() {
		opts = append(opts, collection.WithSortable())
	}
	m.store = collection.NewStore(m.res, opts...)
	m.ctrl = collection.NewController(m.store)
	return nil
}

// Start loads the collection. A failed first load is logged and retried by
// the next request that needs the records.
func (m *Module[T]) Start(ctx context.Context) error {
	if _, err := m.store.FetchAll(ctx); err != nil {
		m.logger.Warn("initial load failed", zap.String("collection", m.def.Name), zap.Error(err))
	}
	return nil
}

func (m *Module[T]) Stop() error {
	m.ctrl.Close()
	m.store.Close()
	return nil
}

// Health implements plugin.HealthChecker.
func (m *Module[T]) Health(_ context.Context) plugin.HealthStatus {
	if err := m.store.LastError(); err != nil {
		return plugin.HealthStatus{Status: plugin.StatusDegraded, Message: err.Error()}
	}
	if !m.store.Loaded() {
		return plugin.HealthStatus{Status: plugin.StatusDegraded, Message: "not loaded"}
	}
	return plugin.HealthStatus{
		Status:  plugin.StatusHealthy,
		Message: fmt.Sprintf("%d records", len(m.store.Items())),
	}
}

// Store returns the shared store.
func (m *Module[T]) Store() *collection.Store[T] { return m.store }

// Routes implements plugin.HTTPProvider.
func (m *Module[T]) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "GET", Path: "/records", Handler: m.handleList},
		{Method: "POST", Path: "/records", Handler: m.handleCreate},
		{Method: "PATCH", Path: "/records/{id}", Handler: m.handleUpdate},
		{Method: "DELETE", Path: "/records/{id}", Handler: m.handleDelete},
		{Method: "PUT", Path: "/order", Handler: m.handleOrder},
		{Method: "POST", Path: "/records/{id}/move", Handler: m.handleMove},
		{Method: "GET", Path: "/events", Handler: m.handleEvents},
		{Method: "GET", Path: "/public", Handler: m.handlePublic, Public: true},

		{Method: "GET", Path: "/table", Handler: m.handleTable},
		{Method: "POST", Path: "/table/move", Handler: m.handleTableMove},
		{Method: "POST", Path: "/table/delete", Handler: m.handleTableDelete},
		{Method: "POST", Path: "/table/delete/confirm", Handler: m.handleTableConfirm},
		{Method: "POST", Path: "/table/delete/cancel", Handler: m.handleTableCancel},
		{Method: "POST", Path: "/table/edit", Handler: m.handleTableEdit},
		{Method: "GET", Path: "/table/form", Handler: m.handleTableForm},
		{Method: "POST", Path: "/table/form", Handler: m.handleTableFormPost},

		{Method: "GET", Path: "/drafts", Handler: m.handleDraft},
		{Method: "POST", Path: "/drafts", Handler: m.handleOpenDraft},
		{Method: "PATCH", Path: "/drafts", Handler: m.handlePatchDraft},
		{Method: "POST", Path: "/drafts/save", Handler: m.handleSaveDraft},
		{Method: "POST", Path: "/drafts/close", Handler: m.handleCloseDraft},
		{Method: "POST", Path: "/drafts/discard", Handler: m.handleDiscardDraft},
		{Method: "POST", Path: "/drafts/keep", Handler: m.handleKeepDraft},
	}
}

// Subject returns the principal subject of r, or Anonymous.
func Subject(r *http.Request) string {
	if p, ok := auth.FromContext(r.Context()); ok && p.Subject != "" {
		return p.Subject
	}
	return Anonymous
}

func (m *Module[T]) workspace(subject string) *workspace[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.workspaces[subject]
	if !ok {
		ws = &workspace[T]{
			surface: editor.NewSurface(m.store, m.sessions.Get(subject), m.def.Name, m.def.Editable),
			dialog:  &table.DeleteDialog{},
		}
		m.workspaces[subject] = ws
	}
	return ws
}

// view returns the table definition wired to ws. Each hook performs its row
// action and passes the outcome to report.
func (m *Module[T]) view(ctx context.Context, ws *workspace[T], report func(error)) table.View[T] {
	if report == nil {
		report = func(error) {}
	}
	v := table.View[T]{
		Columns:   m.def.Columns,
		EmptyText: m.def.EmptyText,
		OnEdit:    func(id string) { report(ws.surface.OpenEditID(id)) },
		OnDelete:  ws.dialog.Request,
	}
	if m.store.Sortable() {
		v.OnReorder = func(index int, dir collection.Direction) {
			var id string
			if rows := m.ctrl.Rows(); index >= 0 && index < len(rows) {
				id = rows[index].RecordID()
			}
			done, err := m.ctrl.Move(ctx, index, dir)
			if err == nil {
				m.settleInBackground(done, id)
			}
			report(err)
		}
	}
	return v
}

// await waits for the outcome of a reorder. A nil done is a no-op move.
func await(ctx context.Context, done <-chan error) error {
	if done == nil {
		return nil
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// settleInBackground logs the outcome of a reorder nobody waits for.
func (m *Module[T]) settleInBackground(done <-chan error, id string) {
	if done == nil {
		return
	}
	go func() {
		err := <-done
		switch {
		case err == nil:
		case errors.Is(err, collection.ErrFetch):
			m.logger.Warn("refresh after move failed", zap.String("id", id), zap.Error(err))
		default:
			m.logger.Warn("move not persisted", zap.String("collection", m.def.Name), zap.String("id", id), zap.Error(err))
		}
	}()
}

// indexOf returns the displayed position of id, or -1.
func (m *Module[T]) indexOf(id string) int {
	for i, rec := range m.ctrl.Rows() {
		if rec.RecordID() == id {
			return i
		}
	}
	return -1
}

// ensureLoaded fetches the collection when nothing has been loaded yet.
func (m *Module[T]) ensureLoaded(ctx context.Context) error {
	if m.store.Loaded() {
		return nil
	}
	_, err := m.store.FetchAll(ctx)
	return err
}

// deleteRecord deletes id. A delete whose refresh fails still counts as done.
func (m *Module[T]) deleteRecord(ctx context.Context, id string) error {
	err := m.store.Delete(ctx, id)
	if errors.Is(err, collection.ErrFetch) {
		m.logger.Warn("refresh after delete failed", zap.String("id", id), zap.Error(err))
		return nil
	}
	return err
}

func (m *Module[T]) notFound(id string) error {
	return &collection.Error{Op: "lookup", Collection: m.def.Name, ID: id, Kind: collection.ErrNotFound}
}
