package dashboard

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/HerbHall/atelier/internal/collection"
)

const eventWriteTimeout = 10 * time.Second

// Event types sent on the events stream.
const (
	EventSnapshot = "snapshot"
	EventChange   = "change"
)

// orderEvent is one message on GET /events.
type orderEvent[T any] struct {
	Type  string `json:"type"`
	Items []T    `json:"items"`
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

func newOrderEvent[T collection.Record](typ string, ch collection.Change[T]) orderEvent[T] {
	ev := orderEvent[T]{Type: typ, Items: ch.Rows, State: ch.State.String()}
	if ev.Items == nil {
		ev.Items = []T{}
	}
	if ch.Err != nil {
		ev.Error = ch.Err.Error()
	}
	return ev
}

// handleEvents streams the displayed order over a websocket: a snapshot on
// connect, then the latest order after every move, refresh or settled
// write. A slow reader only ever sees the newest change.
func (m *Module[T]) handleEvents(w http.ResponseWriter, r *http.Request) {
	// The server's read and write timeouts would cut the stream short.
	rc := http.NewResponseController(w)
	_ = rc.SetReadDeadline(time.Time{})
	_ = rc.SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: m.origins})
	if err != nil {
		m.logger.Debug("events upgrade rejected", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	latest := make(chan collection.Change[T], 1)
	stop := m.ctrl.Watch(func(ch collection.Change[T]) {
		select {
		case <-latest:
		default:
		}
		latest <- ch
	})
	defer stop()

	ctx := conn.CloseRead(r.Context())
	snapshot := collection.Change[T]{Rows: m.ctrl.Rows(), State: m.ctrl.State()}
	if err := m.writeEvent(ctx, conn, newOrderEvent(EventSnapshot, snapshot)); err != nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "")
			return
		case ch := <-latest:
			if err := m.writeEvent(ctx, conn, newOrderEvent(EventChange, ch)); err != nil {
				return
			}
		}
	}
}

func (m *Module[T]) writeEvent(ctx context.Context, conn *websocket.Conn, ev orderEvent[T]) error {
	ctx, cancel := context.WithTimeout(ctx, eventWriteTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, ev); err != nil {
		m.logger.Debug("events write failed", zap.String("collection", m.def.Name), zap.Error(err))
		return err
	}
	return nil
}
