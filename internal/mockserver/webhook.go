package mockserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/OpenMoove/partnerapi"
	"github.com/OpenMoove/partnerapi/webhook"
)

func (s *Server) emitClientCreated(rec partnerapi.ClientRecord) {
	s.emit(webhook.TypeClientCreated, webhook.ClientCreated{
		ClientID:   rec.ID,
		PropertyID: rec.PropertyID,
		Email:      rec.Email,
	})
}

func (s *Server) emitPropertyCreated(prop *partnerapi.Property) {
	s.emit(webhook.TypePropertyCreated, webhook.PropertyCreated{
		PropertyID: prop.ID,
		Reference:  prop.Reference,
	})
}

func (s *Server) emit(eventType string, payload any) {
	if s.cfg.WebhookURL == "" {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Msg("failed to marshal webhook payload")
		return
	}
	evt := webhook.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		CreatedAt: time.Now().UTC(),
		Data:      data,
	}
	body, err := json.Marshal(evt)
	if err != nil {
		s.logger.Error().Err(err).Str("type", eventType).Msg("failed to marshal webhook event")
		return
	}

	go s.deliver(evt, body)
}

// deliver POSTs the signed event, walking the retry schedule until a 2xx,
// like the documented vendor behavior.
func (s *Server) deliver(evt webhook.Event, body []byte) {
	signature := s.signer.Sign(body)

	for attempt, delay := range s.cfg.WebhookRetrySchedule {
		time.Sleep(delay)

		req, err := http.NewRequest(http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to build webhook request")
			return
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(webhook.SignatureHeader, signature)

		resp, err := s.httpClient.Do(req)
		if err != nil {
			s.logger.Warn().Err(err).Int("attempt", attempt+1).Str("event_id", evt.ID).Msg("webhook delivery failed")
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.logger.Info().Str("event_id", evt.ID).Str("type", evt.Type).Int("attempt", attempt+1).Msg("webhook delivered")
			return
		}
		s.logger.Warn().Int("status", resp.StatusCode).Int("attempt", attempt+1).Str("event_id", evt.ID).Msg("webhook rejected")
	}

	s.logger.Error().Str("event_id", evt.ID).Str("type", evt.Type).Msg("webhook delivery exhausted retries")
}
