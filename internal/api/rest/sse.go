package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/clubhundred/club100/internal/app/notification"
)

// sseStream writes notifications as server-sent events. Send is called
// from the broadcaster's goroutine while the handler goroutine owns the
// connection, so writes are serialized with a mutex.
type sseStream struct {
	mu sync.Mutex
	w  *echo.Response
}

func newSSEStream(w *echo.Response) *sseStream {
	return &sseStream{w: w}
}

// Send writes one event frame and flushes it to the client.
func (s *sseStream) Send(n *notification.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", n.Type, data); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

// events streams game notifications over SSE until the client
// disconnects. The first frame is the session snapshot so late joiners
// see the current round immediately.
func (h *Handler) events(c echo.Context) error {
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	stream := newSSEStream(w)
	if err := stream.Send(h.session.Snapshot()); err != nil {
		return nil
	}

	notifier := h.session.Notifier()
	id := notifier.Subscribe(stream)
	defer notifier.Unsubscribe(id)

	<-c.Request().Context().Done()
	return nil
}
