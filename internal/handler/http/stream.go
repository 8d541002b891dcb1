package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rookgm/brewtrack/internal/models"
	"github.com/rookgm/brewtrack/internal/notifier"
	"github.com/rookgm/brewtrack/internal/session"
	"go.uber.org/zap"
)

const heartbeatInterval = 15 * time.Second

// StreamHandler streams snapshots and notifications over server-sent events.
// Every connection runs its own synchronization session.
type StreamHandler struct {
	fetcher  session.Fetcher
	feed     session.Feed
	interval time.Duration
	log      *zap.Logger
}

// NewStreamHandler creates new StreamHandler instance. feed may be nil.
func NewStreamHandler(fetcher session.Fetcher, feed session.Feed, interval time.Duration, log *zap.Logger) *StreamHandler {
	return &StreamHandler{
		fetcher:  fetcher,
		feed:     feed,
		interval: interval,
		log:      log,
	}
}

// Customer streams viewer's own orders, or one order with ?order=id
func (sh *StreamHandler) Customer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload, ok := getAuthPayload(r.Context(), authPayloadKey)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		if orderID := r.URL.Query().Get("order"); orderID != "" {
			sh.stream(w, r, orderScope(payload, orderID), true)
			return
		}
		sh.stream(w, r, viewerScope(payload), false)
	}
}

// Staff streams every order
func (sh *StreamHandler) Staff() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sh.stream(w, r, models.StaffScope(), false)
	}
}

func (sh *StreamHandler) stream(w http.ResponseWriter, r *http.Request, scope models.Scope, itemLevel bool) {
	if err := scope.Validate(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// latest snapshot wins, a slow client skips intermediate ones
	snaps := make(chan session.Snapshot, 1)
	onSnapshot := func(snap session.Snapshot) {
		for {
			select {
			case snaps <- snap:
				return
			default:
			}
			select {
			case <-snaps:
			default:
			}
		}
	}

	opts := []session.Option{
		session.WithPollInterval(sh.interval),
		session.WithLogger(sh.log),
	}
	if sh.feed != nil {
		opts = append(opts, session.WithFeed(sh.feed))
	}
	s, err := session.Start(r.Context(), sh.fetcher, scope, onSnapshot, opts...)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer s.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	view := session.NewView()
	notes := notifier.New(notifier.WithItemLevel(itemLevel))
	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case snap := <-snaps:
			if !view.Apply(snap) {
				continue
			}
			if err := writeEvent(w, "snapshot", snap.Orders); err != nil {
				sh.log.Debug("write snapshot", zap.Error(err))
				return
			}
			for _, n := range notes.Observe(snap.Orders) {
				if err := writeEvent(w, "notification", n); err != nil {
					return
				}
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
