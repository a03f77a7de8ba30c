package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rs/zerolog"
)

// maxBodySize caps webhook request bodies at 1 MiB.
const maxBodySize = 1 << 20

// HandlerFunc processes a verified webhook event. Returning an error makes
// the handler respond 5xx, which tells the vendor to redeliver.
type HandlerFunc func(ctx context.Context, evt Event) error

// Handler is an http.Handler that verifies webhook signatures and
// dispatches events to registered callbacks. Register callbacks with On
// before serving; registration is not safe concurrently with serving.
type Handler struct {
	signer   *Signer
	logger   zerolog.Logger
	handlers map[string]HandlerFunc
}

// NewHandler creates a webhook handler verifying with the given secret.
func NewHandler(secret string, logger zerolog.Logger) *Handler {
	return &Handler{
		signer:   NewSigner(secret),
		logger:   logger.With().Str("component", "webhook").Logger(),
		handlers: make(map[string]HandlerFunc),
	}
}

// On registers a callback for an event type.
func (h *Handler) On(eventType string, fn HandlerFunc) {
	h.handlers[eventType] = fn
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		h.logger.Warn().Err(err).Msg("failed to read webhook body")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	signature := r.Header.Get(SignatureHeader)
	if signature == "" || !h.signer.Verify(body, signature) {
		h.logger.Warn().Str("remote", r.RemoteAddr).Msg("rejected webhook with bad signature")
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		h.logger.Warn().Err(err).Msg("failed to decode webhook envelope")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	fn, ok := h.handlers[evt.Type]
	if !ok {
		// Unknown types are acknowledged so the vendor stops retrying them.
		h.logger.Debug().Str("type", evt.Type).Str("id", evt.ID).Msg("ignoring unhandled event type")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := fn(r.Context(), evt); err != nil {
		// Non-2xx makes the vendor redeliver on its backoff schedule.
		h.logger.Error().Err(err).Str("type", evt.Type).Str("id", evt.ID).Msg("webhook handler failed")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("type", evt.Type).Str("id", evt.ID).Msg("webhook processed")
	w.WriteHeader(http.StatusOK)
}
