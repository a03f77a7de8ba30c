package webhook

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func deliver(t *testing.T, h *Handler, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/openmoove", strings.NewReader(body))
	if sign {
		req.Header.Set(SignatureHeader, NewSigner(testSecret).Sign([]byte(body)))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandler_DispatchesEvent(t *testing.T) {
	h := NewHandler(testSecret, zerolog.Nop())

	var got ClientCreated
	h.On(TypeClientCreated, func(ctx context.Context, evt Event) error {
		assert.Equal(t, "evt_1", evt.ID)
		return evt.DecodeData(&got)
	})

	body := `{"id":"evt_1","type":"client.created","created_at":"2026-08-01T10:00:00Z","data":{"client_id":17,"property_id":1001,"email":"jane@example.com"}}`
	rec := deliver(t, h, body, true)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 17, got.ClientID)
	assert.EqualValues(t, 1001, got.PropertyID)
	assert.Equal(t, "jane@example.com", got.Email)
}

func TestHandler_RejectsMissingSignature(t *testing.T) {
	h := NewHandler(testSecret, zerolog.Nop())
	h.On(TypeClientCreated, func(ctx context.Context, evt Event) error {
		t.Error("unsigned delivery must not be dispatched")
		return nil
	})

	rec := deliver(t, h, `{"id":"evt_1","type":"client.created"}`, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RejectsBadSignature(t *testing.T) {
	h := NewHandler(testSecret, zerolog.Nop())

	body := `{"id":"evt_1","type":"client.created"}`
	req := httptest.NewRequest(http.MethodPost, "/webhooks/openmoove", strings.NewReader(body))
	req.Header.Set(SignatureHeader, NewSigner("wrong-secret").Sign([]byte(body)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandler_RejectsNonPost(t *testing.T) {
	h := NewHandler(testSecret, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/webhooks/openmoove", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHandler_RejectsMalformedEnvelope(t *testing.T) {
	h := NewHandler(testSecret, zerolog.Nop())
	rec := deliver(t, h, `not json`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_AcknowledgesUnknownType(t *testing.T) {
	h := NewHandler(testSecret, zerolog.Nop())
	rec := deliver(t, h, `{"id":"evt_2","type":"something.else","data":{}}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandler_HandlerErrorTriggersRedelivery(t *testing.T) {
	h := NewHandler(testSecret, zerolog.Nop())
	h.On(TypeMilestoneUpdated, func(ctx context.Context, evt Event) error {
		return errors.New("database unavailable")
	})

	body := `{"id":"evt_3","type":"milestone.updated","data":{"property_id":1001,"milestone_key":"searches_ordered","status":"completed"}}`
	rec := deliver(t, h, body, true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEvent_DecodeData_BadPayload(t *testing.T) {
	evt := Event{Type: TypePropertyCreated, Data: []byte(`"not an object"`)}
	var payload PropertyCreated
	err := evt.DecodeData(&payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "property.created")
}
