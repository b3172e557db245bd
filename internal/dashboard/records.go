package dashboard

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/collection"
	"github.com/HerbHall/atelier/internal/server"
	"github.com/HerbHall/atelier/internal/services"
)

// orderRequest is the JSON body for PUT /order.
type orderRequest struct {
	IDs []string `json:"ids"`
}

// moveResponse is returned by POST /records/{id}/move.
type moveResponse[T any] struct {
	Items []T    `json:"items"`
	State string `json:"state"`
}

// handleList refreshes the collection and returns it in display order.
func (m *Module[T]) handleList(w http.ResponseWriter, r *http.Request) {
	items, err := m.store.FetchAll(r.Context())
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.NewListResult(items))
}

// handlePublic serves the records to the public site. It reuses the loaded
// contents and only fetches when nothing is loaded yet.
func (m *Module[T]) handlePublic(w http.ResponseWriter, r *http.Request) {
	if err := m.ensureLoaded(r.Context()); err != nil {
		server.WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.NewListResult(m.store.Items()))
}

// handleCreate inserts a record. A new record without sort_order goes last.
func (m *Module[T]) handleCreate(w http.ResponseWriter, r *http.Request) {
	var fields collection.Fields
	if err := decodeJSON(w, r, &fields, false); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	rec, err := m.store.Add(r.Context(), fields)
	if err != nil && !errors.Is(err, collection.ErrFetch) {
		server.WriteError(w, r, err)
		return
	}
	if err != nil {
		m.logger.Warn("refresh after insert failed", zap.Error(err))
		warn(w, err)
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleUpdate applies a partial update.
func (m *Module[T]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var fields collection.Fields
	if err := decodeJSON(w, r, &fields, false); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	err := m.store.Update(r.Context(), id, fields)
	if err != nil && !errors.Is(err, collection.ErrFetch) {
		server.WriteError(w, r, err)
		return
	}
	if err != nil {
		m.logger.Warn("refresh after update failed", zap.String("id", id), zap.Error(err))
		warn(w, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Module[T]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := m.store.Delete(r.Context(), id)
	if err != nil && !errors.Is(err, collection.ErrFetch) {
		server.WriteError(w, r, err)
		return
	}
	if err != nil {
		m.logger.Warn("refresh after delete failed", zap.String("id", id), zap.Error(err))
		warn(w, err)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOrder persists a complete new order and waits for it. The IDs must
// be exactly the loaded records. It shares the reorder slot with moves, so
// it fails with 409 while a move is in flight and blocks moves until done.
func (m *Module[T]) handleOrder(w http.ResponseWriter, r *http.Request) {
	if !m.store.Sortable() {
		server.WriteError(w, r, &collection.Error{Op: "reorder", Collection: m.def.Name, Kind: collection.ErrNotSortable})
		return
	}
	var req orderRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if err := m.ensureLoaded(r.Context()); err != nil {
		server.WriteError(w, r, err)
		return
	}
	ordered, err := permute(m.store.Items(), req.IDs)
	if err != nil {
		server.UnprocessableEntity(w, err.Error(), r.URL.Path)
		return
	}
	done, err := m.ctrl.Apply(r.Context(), ordered)
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	err = await(r.Context(), done)
	if err != nil && !errors.Is(err, collection.ErrFetch) {
		server.WriteError(w, r, err)
		return
	}
	if err != nil {
		warn(w, err)
	}
	writeJSON(w, http.StatusOK, services.NewListResult(m.store.Items()))
}

// permute returns items in the order of ids, which must name each item once.
func permute[T collection.Record](items []T, ids []string) ([]T, error) {
	if len(ids) != len(items) {
		return nil, fmt.Errorf("order names %d records, collection has %d", len(ids), len(items))
	}
	byID := make(map[string]T, len(items))
	for _, rec := range items {
		byID[rec.RecordID()] = rec
	}
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		rec, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("order names unknown or repeated record %q", id)
		}
		delete(byID, id)
		out = append(out, rec)
	}
	return out, nil
}

// handleMove swaps a record with its neighbour (?dir=up|down). The swapped
// order is returned at once with 202 while the write runs in the
// background; GET /events reports when it settles. With ?wait=1 the
// handler waits for the write and answers 200. A failed write keeps the
// swapped order displayed.
func (m *Module[T]) handleMove(w http.ResponseWriter, r *http.Request) {
	dir, err := collection.ParseDirection(r.URL.Query().Get("dir"))
	if err != nil {
		server.BadRequest(w, err.Error(), r.URL.Path)
		return
	}
	if err := m.ensureLoaded(r.Context()); err != nil {
		server.WriteError(w, r, err)
		return
	}
	id := r.PathValue("id")
	index := m.indexOf(id)
	if index < 0 {
		server.WriteError(w, r, m.notFound(id))
		return
	}
	done, err := m.ctrl.Move(r.Context(), index, dir)
	if err != nil {
		server.WriteError(w, r, err)
		return
	}
	status := http.StatusOK
	switch {
	case done == nil:
	case waitRequested(r):
		err = await(r.Context(), done)
		if err != nil && !errors.Is(err, collection.ErrFetch) {
			server.WriteError(w, r, err)
			return
		}
		if err != nil {
			warn(w, err)
		}
	default:
		m.settleInBackground(done, id)
		status = http.StatusAccepted
	}
	items := m.ctrl.Rows()
	if items == nil {
		items = []T{}
	}
	writeJSON(w, status, moveResponse[T]{Items: items, State: m.ctrl.State().String()})
}

func waitRequested(r *http.Request) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get("wait"))
	return err == nil && v
}
