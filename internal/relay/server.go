// Package relay is a small deployable webhook receiver: it verifies Partner
// API webhook signatures and stores the events durably so downstream systems
// can consume them without racing the vendor's retry schedule.
package relay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/OpenMoove/partnerapi/webhook"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
	maxBodySize     = 1 << 20
)

var eventsReceived = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "relay_webhook_events_total",
		Help: "Webhook deliveries by event type and outcome",
	},
	[]string{"type", "outcome"},
)

// EventStore is the storage the relay writes verified events to.
type EventStore interface {
	Insert(ctx context.Context, evt webhook.Event, payload []byte) error
	List(ctx context.Context, limit, offset int) ([]StoredEvent, int, error)
}

// Server receives, verifies, and stores Partner API webhooks.
type Server struct {
	router chi.Router
	logger zerolog.Logger
	signer *webhook.Signer
	store  EventStore
}

// NewServer creates a relay server verifying with secret and writing to
// store.
func NewServer(secret string, store EventStore, logger zerolog.Logger) *Server {
	s := &Server{
		router: chi.NewRouter(),
		logger: logger.With().Str("component", "relay").Logger(),
		signer: webhook.NewSigner(secret),
		store:  store,
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)

	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	s.router.Post("/webhooks/openmoove", s.handleWebhook)
	s.router.Get("/events", s.handleListEvents)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "unreadable body"})
		return
	}

	signature := r.Header.Get(webhook.SignatureHeader)
	if signature == "" || !s.signer.Verify(body, signature) {
		eventsReceived.WithLabelValues("unknown", "bad_signature").Inc()
		s.logger.Warn().Str("remote", r.RemoteAddr).Msg("rejected webhook with bad signature")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "invalid signature"})
		return
	}

	var evt webhook.Event
	if err := json.Unmarshal(body, &evt); err != nil || evt.ID == "" {
		eventsReceived.WithLabelValues("unknown", "bad_envelope").Inc()
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid event envelope"})
		return
	}

	if err := s.store.Insert(r.Context(), evt, body); err != nil {
		eventsReceived.WithLabelValues(evt.Type, "store_error").Inc()
		s.logger.Error().Err(err).Str("event_id", evt.ID).Msg("failed to store webhook event")
		// 5xx makes the vendor redeliver; intake is idempotent on event ID.
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "storage failure"})
		return
	}

	eventsReceived.WithLabelValues(evt.Type, "stored").Inc()
	s.logger.Info().Str("event_id", evt.ID).Str("type", evt.Type).Msg("webhook event stored")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			page = n
		}
	}
	pageSize := defaultPageSize
	if v := r.URL.Query().Get("page_size"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			pageSize = n
		}
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	events, count, err := s.store.List(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list webhook events")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "storage failure"})
		return
	}

	if events == nil {
		events = []StoredEvent{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   count,
		"results": events,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
