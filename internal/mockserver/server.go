// Package mockserver is a local stand-in for the OpenMoove Partner API. It
// implements the documented wire contract (X-API-Key auth, offset
// pagination, the detail/field-error envelope, rate-limit headers, and
// signed webhook delivery with exponential retries) against in-memory
// fixtures, so integrations can be developed and tested without touching
// the vendor.
package mockserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/OpenMoove/partnerapi"
	"github.com/OpenMoove/partnerapi/webhook"
)

// Config controls the mock server's behavior.
type Config struct {
	// APIKey is the only key the server accepts.
	APIKey string

	// RateLimit is the request quota per window. Zero disables throttling.
	RateLimit int
	// RateWindow defaults to one minute.
	RateWindow time.Duration

	// WebhookURL, when set, receives signed events (client.created,
	// property.created) after mutations.
	WebhookURL    string
	WebhookSecret string
	// WebhookRetrySchedule overrides the delivery retry delays. The default
	// mirrors the documented vendor schedule.
	WebhookRetrySchedule []time.Duration

	// SeedDemoData preloads a property with milestones, handy for read-only
	// exploration.
	SeedDemoData bool
}

// Server is the mock Partner API. Use it directly as an http.Handler or
// behind httptest.NewServer.
type Server struct {
	router     chi.Router
	logger     zerolog.Logger
	cfg        Config
	signer     *webhook.Signer
	httpClient *http.Client

	mu         sync.Mutex
	products   []partnerapi.Product
	clients    map[int64]partnerapi.ClientRecord
	properties map[int64]*partnerapi.Property
	milestones map[int64][]partnerapi.Milestone
	chats      map[int64][]partnerapi.ChatMessage
	nextID     int64

	rlCount       int
	rlWindowStart time.Time
}

// New creates a mock Partner API server.
func New(cfg Config, logger zerolog.Logger) *Server {
	if cfg.RateWindow == 0 {
		cfg.RateWindow = time.Minute
	}
	if cfg.WebhookRetrySchedule == nil {
		cfg.WebhookRetrySchedule = []time.Duration{0, 30 * time.Second, 2 * time.Minute, 10 * time.Minute, time.Hour}
	}

	s := &Server{
		router:     chi.NewRouter(),
		logger:     logger.With().Str("component", "mock-partner-api").Logger(),
		cfg:        cfg,
		signer:     webhook.NewSigner(cfg.WebhookSecret),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		products:   defaultProducts(),
		clients:    make(map[int64]partnerapi.ClientRecord),
		properties: make(map[int64]*partnerapi.Property),
		milestones: make(map[int64][]partnerapi.Milestone),
		chats:      make(map[int64][]partnerapi.ChatMessage),
		nextID:     1000,
	}

	if cfg.SeedDemoData {
		s.seedDemoData()
	}

	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.authMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	s.router.Get("/products/", s.handleListProducts)
	s.router.Post("/clients/", s.handleCreateClient)
	s.router.Get("/properties/", s.handleListProperties)
	s.router.Get("/properties/{id}/", s.handleGetProperty)
	s.router.Get("/properties/{id}/milestones/", s.handleListMilestones)
	s.router.Get("/properties/{id}/chat/", s.handleListChat)
	s.router.Post("/properties/{id}/chat/", s.handleSendChat)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(partnerapi.APIKeyHeader)
		if key == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Authentication credentials were not provided.",
			})
			return
		}
		if key != s.cfg.APIKey {
			writeJSON(w, http.StatusForbidden, map[string]string{
				"detail": "Invalid API key.",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware enforces a fixed per-window quota and reports it via
// X-RateLimit-* headers, matching the documented vendor behavior.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.RateLimit <= 0 {
			next.ServeHTTP(w, r)
			return
		}

		s.mu.Lock()
		now := time.Now()
		if s.rlWindowStart.IsZero() || now.Sub(s.rlWindowStart) >= s.cfg.RateWindow {
			s.rlWindowStart = now
			s.rlCount = 0
		}
		s.rlCount++
		remaining := s.cfg.RateLimit - s.rlCount
		reset := s.rlWindowStart.Add(s.cfg.RateWindow)
		s.mu.Unlock()

		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(s.cfg.RateLimit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if s.rlCount > s.cfg.RateLimit {
			retryAfter := int(time.Until(reset).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, map[string]string{
				"detail": "Request was throttled.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
