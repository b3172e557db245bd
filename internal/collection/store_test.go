package collection_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HerbHall/atelier/internal/collection"
)

type item struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SortOrder int    `json:"sort_order"`
}

func (i item) RecordID() string     { return i.ID }
func (i item) RecordSortOrder() int { return i.SortOrder }

func abc() []item {
	return []item{
		{ID: "1", Title: "A", SortOrder: 0},
		{ID: "2", Title: "B", SortOrder: 1},
		{ID: "3", Title: "C", SortOrder: 2},
	}
}

func newStore(t *testing.T, opts ...collection.Option) (*collection.Store[item], *collection.MemoryResource[item]) {
	t.Helper()
	res := collection.NewMemoryResource("services", abc()...)
	s := collection.NewStore[item](res, opts...)
	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	return s, res
}

func titles(items []item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Title
	}
	return out
}

func TestFetchAll_OrdersBySortOrder(t *testing.T) {
	res := collection.NewMemoryResource("services",
		item{ID: "x", Title: "C", SortOrder: 9},
		item{ID: "y", Title: "A", SortOrder: 1},
		item{ID: "z", Title: "B", SortOrder: 4},
	)
	s := collection.NewStore[item](res)

	assert.False(t, s.Loaded())
	assert.Empty(t, s.Items())

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, titles(got))
	assert.True(t, s.Loaded())
}

func TestFetchAll_Idempotent(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	first, err := s.FetchAll(ctx)
	require.NoError(t, err)
	second, err := s.FetchAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestFetchAll_FailureKeepsItems(t *testing.T) {
	s, res := newStore(t)
	boom := errors.New("connection reset")
	res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpList {
			return boom
		}
		return nil
	})

	_, err := s.FetchAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, collection.ErrFetch)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, abc(), s.Items())
	assert.ErrorIs(t, s.LastError(), collection.ErrFetch)

	res.SetIntercept(nil)
	_, err = s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.NoError(t, s.LastError())
}

func TestAdd_RefetchesWithServerID(t *testing.T) {
	s, res := newStore(t)
	listsBefore := res.Calls(collection.OpList)

	rec, err := s.Add(context.Background(), collection.Fields{"title": "D", "id": "client-id"})
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.NotEqual(t, "client-id", rec.ID)
	assert.Equal(t, 3, rec.SortOrder)
	assert.Equal(t, listsBefore+1, res.Calls(collection.OpList))

	items := s.Items()
	require.Len(t, items, 4)
	assert.Equal(t, rec.ID, items[3].ID)
	assert.Equal(t, "D", items[3].Title)
}

func TestAdd_KeepsCallerSortOrder(t *testing.T) {
	s, _ := newStore(t)

	rec, err := s.Add(context.Background(), collection.Fields{"title": "first", "sort_order": -1})
	require.NoError(t, err)
	assert.Equal(t, rec.ID, s.Items()[0].ID)
}

func TestAdd_FailureLeavesItems(t *testing.T) {
	s, res := newStore(t)
	res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpInsert {
			return collection.ErrValidation
		}
		return nil
	})
	lists := res.Calls(collection.OpList)

	_, err := s.Add(context.Background(), collection.Fields{"title": "D"})
	assert.ErrorIs(t, err, collection.ErrValidation)
	assert.Equal(t, abc(), s.Items())
	assert.Equal(t, lists, res.Calls(collection.OpList), "no refetch after failed insert")
}

func TestUpdate(t *testing.T) {
	s, _ := newStore(t)

	require.NoError(t, s.Update(context.Background(), "2", collection.Fields{"title": "B2"}))
	assert.Equal(t, []string{"A", "B2", "C"}, titles(s.Items()))
}

func TestUpdate_NotFound(t *testing.T) {
	s, _ := newStore(t)

	err := s.Update(context.Background(), "missing", collection.Fields{"title": "x"})
	assert.ErrorIs(t, err, collection.ErrNotFound)

	var cerr *collection.Error
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "missing", cerr.ID)
	assert.Equal(t, "services", cerr.Collection)
}

func TestDelete(t *testing.T) {
	s, _ := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.Delete(ctx, "3"))
	assert.Equal(t, []string{"A", "B"}, titles(s.Items()))

	err := s.Delete(ctx, "3")
	assert.ErrorIs(t, err, collection.ErrNotFound)
	assert.Equal(t, []string{"A", "B"}, titles(s.Items()))
}

func TestDelete_RemoteFailure(t *testing.T) {
	s, res := newStore(t)
	res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpDelete {
			return errors.New("permission denied")
		}
		return nil
	})

	err := s.Delete(context.Background(), "1")
	assert.ErrorIs(t, err, collection.ErrRemote)
	assert.Len(t, s.Items(), 3)
}

func TestReorder_WritesContiguousPositions(t *testing.T) {
	s, res := newStore(t, collection.WithSortable())
	items := s.Items()
	ordered := []item{items[2], items[0], items[1]}

	require.NoError(t, s.Reorder(context.Background(), ordered))
	assert.Equal(t, 3, res.Calls(collection.OpUpdate))

	got := s.Items()
	assert.Equal(t, []string{"C", "A", "B"}, titles(got))
	for i, it := range got {
		assert.Equal(t, i, it.SortOrder)
	}
}

func TestReorder_PartialFailure(t *testing.T) {
	s, res := newStore(t, collection.WithSortable())
	res.SetIntercept(func(op collection.Op, id string) error {
		if op == collection.OpUpdate && id == "2" {
			return errors.New("timeout")
		}
		return nil
	})
	lists := res.Calls(collection.OpList)
	items := s.Items()

	err := s.Reorder(context.Background(), []item{items[1], items[0], items[2]})
	assert.ErrorIs(t, err, collection.ErrRemote)
	assert.Equal(t, 3, res.Calls(collection.OpUpdate), "every write resolves")
	assert.Equal(t, lists, res.Calls(collection.OpList))
	assert.Equal(t, abc(), s.Items())
}

func TestReorder_NotSortable(t *testing.T) {
	s, res := newStore(t)

	err := s.Reorder(context.Background(), s.Items())
	assert.ErrorIs(t, err, collection.ErrNotSortable)
	assert.Zero(t, res.Calls(collection.OpUpdate))
}

func TestSubscribe(t *testing.T) {
	s, _ := newStore(t)

	var mu sync.Mutex
	var seen [][]item
	cancel := s.Subscribe(func(items []item) {
		mu.Lock()
		seen = append(seen, items)
		mu.Unlock()
	})

	_, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	cancel()
	cancel()
	_, err = s.FetchAll(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, seen, 1)
	assert.Equal(t, abc(), seen[0])
}

func TestClose_IgnoresLateResponse(t *testing.T) {
	s, res := newStore(t)
	release := make(chan struct{})
	entered := make(chan struct{})
	res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpList {
			close(entered)
			<-release
		}
		return nil
	})
	require.NoError(t, res.Delete(context.Background(), "1"))

	errc := make(chan error, 1)
	go func() {
		_, err := s.FetchAll(context.Background())
		errc <- err
	}()
	<-entered
	s.Close()
	close(release)

	assert.ErrorIs(t, <-errc, collection.ErrClosed)
	assert.Len(t, s.Items(), 3, "late response not applied")

	_, err := s.Add(context.Background(), collection.Fields{"title": "x"})
	assert.ErrorIs(t, err, collection.ErrClosed)
}

func TestError_Message(t *testing.T) {
	s, _ := newStore(t)

	err := s.Delete(context.Background(), "nope")
	assert.Equal(t, "services: delete nope: not found", err.Error())
}

func TestAdd_LoadsBeforePlacingLast(t *testing.T) {
	res := collection.NewMemoryResource("services", abc()...)
	s := collection.NewStore[item](res)

	rec, err := s.Add(context.Background(), collection.Fields{"title": "D"})
	require.NoError(t, err)
	assert.Equal(t, 3, rec.SortOrder)
	assert.Equal(t, []string{"A", "B", "C", "D"}, titles(s.Items()))
}

func TestAdd_FirstLoadFailureInsertsNothing(t *testing.T) {
	res := collection.NewMemoryResource("services", abc()...)
	s := collection.NewStore[item](res)
	res.SetIntercept(func(op collection.Op, _ string) error {
		if op == collection.OpList {
			return errors.New("connection refused")
		}
		return nil
	})

	_, err := s.Add(context.Background(), collection.Fields{"title": "D"})
	assert.ErrorIs(t, err, collection.ErrRemote)
	assert.NotErrorIs(t, err, collection.ErrFetch, "insert did not happen")
	assert.Zero(t, res.Calls(collection.OpInsert))
}

func TestFetchAll_EqualPositionsOrderByID(t *testing.T) {
	res := collection.NewMemoryResource("services",
		item{ID: "c", Title: "C", SortOrder: 1},
		item{ID: "a", Title: "A", SortOrder: 1},
		item{ID: "b", Title: "B", SortOrder: 0},
	)
	s := collection.NewStore[item](res)

	got, err := s.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, titles(got))
}

func TestReorder_ConcurrentCallsDoNotInterleave(t *testing.T) {
	s, res := newStore(t, collection.WithSortable())
	items := s.Items()

	var (
		mu       sync.Mutex
		inFlight int
		overlap  bool
	)
	res.SetIntercept(func(op collection.Op, _ string) error {
		if op != collection.OpUpdate {
			return nil
		}
		mu.Lock()
		inFlight++
		if inFlight > len(items) {
			overlap = true
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		inFlight--
		mu.Unlock()
		return nil
	})

	var wg sync.WaitGroup
	for _, ordered := range [][]item{
		{items[2], items[1], items[0]},
		{items[1], items[2], items[0]},
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Reorder(context.Background(), ordered))
		}()
	}
	wg.Wait()

	assert.False(t, overlap, "writes of two reorders overlapped")
	for i, it := range s.Items() {
		assert.Equal(t, i, it.SortOrder)
	}
}
