package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"ms-checkin/internal/logger"
	"ms-checkin/internal/metrics"
	"ms-checkin/internal/models"
)

const clientBuffer = 10

// CheckinEventEmitter fans check-in events out to the live dashboards of an
// event.
type CheckinEventEmitter struct {
	clients map[string][]chan models.CheckinEvent
	mu      sync.RWMutex
}

func NewCheckinEventEmitter() *CheckinEventEmitter {
	return &CheckinEventEmitter{clients: make(map[string][]chan models.CheckinEvent)}
}

// SubscribeToEvent registers a client until ctx is done; the channel is
// closed on removal.
func (e *CheckinEventEmitter) SubscribeToEvent(ctx context.Context, eventID string) <-chan models.CheckinEvent {
	ch := make(chan models.CheckinEvent, clientBuffer)

	e.mu.Lock()
	e.clients[eventID] = append(e.clients[eventID], ch)
	e.mu.Unlock()

	go func() {
		<-ctx.Done()
		e.remove(eventID, ch)
	}()
	return ch
}

// Emit never blocks: a client whose buffer is full misses the event.
func (e *CheckinEventEmitter) Emit(eventID string, ev models.CheckinEvent) {
	if e == nil {
		return
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, ch := range e.clients[eventID] {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of clients following eventID.
func (e *CheckinEventEmitter) Subscribers(eventID string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.clients[eventID])
}

func (e *CheckinEventEmitter) remove(eventID string, ch chan models.CheckinEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()

	clients := e.clients[eventID]
	for i, c := range clients {
		if c == ch {
			e.clients[eventID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(e.clients[eventID]) == 0 {
		delete(e.clients, eventID)
	}
}

// Stream writes the event's check-ins to w as text/event-stream until the
// request ends. Access checks are the caller's job.
func Stream(w http.ResponseWriter, r *http.Request, emitter *CheckinEventEmitter, eventID string, log *logger.Logger, m *metrics.Metrics) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	setupHeaders(w)
	// the server's write timeout would otherwise cut long-lived streams
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})
	ctx := r.Context()
	events := emitter.SubscribeToEvent(ctx, eventID)

	m.DashboardConnected()
	defer m.DashboardDisconnected()

	fmt.Fprintf(w, "event: connected\ndata: {\"status\":\"connected\",\"eventId\":%q}\n\n", eventID)
	flusher.Flush()
	if log != nil {
		log.Info("SSE", fmt.Sprintf("Live dashboard connected for event %s (%d viewer(s))", eventID, emitter.Subscribers(eventID)))
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				if log != nil {
					log.Error("SSE", fmt.Sprintf("Failed to serialize check-in event: %v", err))
				}
				continue
			}
			fmt.Fprintf(w, "event: checkin\ndata: %s\n\n", data)
			flusher.Flush()
		case <-ctx.Done():
			if log != nil {
				log.Debug("SSE", fmt.Sprintf("Live dashboard disconnected for event %s", eventID))
			}
			return
		}
	}
}

func setupHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream;charset=UTF-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, max-age=0, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("X-Accel-Buffering", "no")
}
