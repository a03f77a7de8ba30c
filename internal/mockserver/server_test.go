package mockserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenMoove/partnerapi"
	"github.com/OpenMoove/partnerapi/webhook"
)

const testAPIKey = "test-key"

func newTestServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	if cfg.APIKey == "" {
		cfg.APIKey = testAPIKey
	}
	srv := httptest.NewServer(New(cfg, zerolog.Nop()))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *partnerapi.Client {
	return partnerapi.New(testAPIKey,
		partnerapi.WithBaseURL(srv.URL),
		partnerapi.WithRetryPolicy(partnerapi.NoRetry()),
	)
}

func TestServer_AuthRequired(t *testing.T) {
	srv := newTestServer(t, Config{})

	resp, err := http.Get(srv.URL + "/products/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var envelope map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "Authentication credentials were not provided.", envelope["detail"])
}

func TestServer_WrongKeyForbidden(t *testing.T) {
	srv := newTestServer(t, Config{})

	client := partnerapi.New("wrong-key",
		partnerapi.WithBaseURL(srv.URL),
		partnerapi.WithRetryPolicy(partnerapi.NoRetry()),
	)
	_, err := client.ListProducts(context.Background(), partnerapi.ListOptions{})
	require.Error(t, err)
	assert.True(t, partnerapi.IsForbidden(err))
	assert.Contains(t, err.Error(), "Invalid API key.")
}

func TestServer_ListProducts(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newTestClient(srv)

	products, err := client.AllProducts(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, products)

	codes := make(map[string]bool, len(products))
	for _, p := range products {
		codes[p.Code] = true
	}
	assert.True(t, codes["moove-ready-sale"])
}

func TestServer_CreateClientFlow(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newTestClient(srv)
	ctx := context.Background()

	rec, err := client.CreateClient(ctx, partnerapi.CreateClientRequest{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		ProductCode: "moove-ready-sale",
		Address: partnerapi.Address{
			Line1:    "1 High Street",
			City:     "London",
			Postcode: "SW1A 1AA",
		},
		TransactionType:  "sale",
		EstateAgentEmail: "agent@example.com",
	})
	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.NotZero(t, rec.PropertyID)

	prop, err := client.GetProperty(ctx, rec.PropertyID)
	require.NoError(t, err)
	assert.Regexp(t, `^MV-\d{6}$`, prop.Reference)
	assert.Equal(t, "sale", prop.TransactionType)
	assert.Equal(t, "SW1A 1AA", prop.Address.Postcode)

	milestones, err := client.AllMilestones(ctx, rec.PropertyID)
	require.NoError(t, err)
	require.NotEmpty(t, milestones)
	assert.Equal(t, "instruction", milestones[0].Key)
	for _, m := range milestones[1:] {
		assert.Equal(t, partnerapi.MilestonePending, m.Status)
	}
}

func TestServer_CreateClient_UnknownProductCode(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newTestClient(srv)

	req := partnerapi.CreateClientRequest{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		ProductCode: "does-not-exist",
		Address: partnerapi.Address{
			Line1:    "1 High Street",
			City:     "London",
			Postcode: "SW1A 1AA",
		},
		TransactionType:  "sale",
		EstateAgentEmail: "agent@example.com",
	}
	_, err := client.CreateClient(context.Background(), req)
	require.Error(t, err)
	assert.True(t, partnerapi.IsValidation(err))

	var apiErr *partnerapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, []string{"Unknown product code."}, apiErr.FieldErrors["product_code"])
}

func TestServer_GetProperty_NotFound(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newTestClient(srv)

	_, err := client.GetProperty(context.Background(), 424242)
	require.Error(t, err)
	assert.True(t, partnerapi.IsNotFound(err))
}

func TestServer_Pagination(t *testing.T) {
	srv := newTestServer(t, Config{})
	client := newTestClient(srv)

	page, err := client.ListProducts(context.Background(), partnerapi.ListOptions{PageSize: 2})
	require.NoError(t, err)
	assert.Len(t, page.Results, 2)
	assert.Greater(t, page.Count, 2)
	require.NotNil(t, page.Next)
	assert.Nil(t, page.Previous)

	// The iterator must walk every page through the next links.
	all, err := client.AllProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, page.Count)
}

func TestServer_RateLimiting(t *testing.T) {
	srv := newTestServer(t, Config{RateLimit: 2, RateWindow: time.Minute})
	client := newTestClient(srv)
	ctx := context.Background()

	for range 2 {
		_, err := client.ListProducts(ctx, partnerapi.ListOptions{})
		require.NoError(t, err)
	}

	rl := client.RateLimit()
	assert.Equal(t, 2, rl.Limit)
	assert.Equal(t, 0, rl.Remaining)
	assert.True(t, rl.Exhausted())

	_, err := client.ListProducts(ctx, partnerapi.ListOptions{})
	require.Error(t, err)
	assert.True(t, partnerapi.IsRateLimited(err))

	var apiErr *partnerapi.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Request was throttled.", apiErr.Detail)
	assert.Greater(t, apiErr.RetryAfter, time.Duration(0))
}

func TestServer_Chat(t *testing.T) {
	srv := newTestServer(t, Config{SeedDemoData: true})
	client := newTestClient(srv)
	ctx := context.Background()

	props, err := client.AllProperties(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, props)
	propID := props[0].ID

	msg, err := client.SendChatMessage(ctx, propID, partnerapi.ChatMessageRequest{Body: "Any update on searches?"})
	require.NoError(t, err)
	assert.Equal(t, "Any update on searches?", msg.Body)
	assert.Equal(t, "partner", msg.Sender)

	page, err := client.ListChatMessages(ctx, propID, partnerapi.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, msg.ID, page.Results[0].ID)
}

func TestServer_DeliversSignedWebhooks(t *testing.T) {
	type delivery struct {
		signature string
		body      []byte
	}
	deliveries := make(chan delivery, 4)
	sink := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		deliveries <- delivery{signature: r.Header.Get(webhook.SignatureHeader), body: body}
		w.WriteHeader(http.StatusOK)
	}))
	defer sink.Close()

	srv := newTestServer(t, Config{
		WebhookURL:           sink.URL,
		WebhookSecret:        "whsec_test",
		WebhookRetrySchedule: []time.Duration{0},
	})
	client := newTestClient(srv)

	_, err := client.CreateClient(context.Background(), partnerapi.CreateClientRequest{
		FirstName:   "Jane",
		LastName:    "Doe",
		Email:       "jane@example.com",
		ProductCode: "moove-ready-sale",
		Address: partnerapi.Address{
			Line1:    "1 High Street",
			City:     "London",
			Postcode: "SW1A 1AA",
		},
		TransactionType:  "sale",
		EstateAgentEmail: "agent@example.com",
	})
	require.NoError(t, err)

	// client.created and property.created are emitted asynchronously.
	signer := webhook.NewSigner("whsec_test")
	types := make(map[string]bool)
	for range 2 {
		select {
		case d := <-deliveries:
			assert.True(t, signer.Verify(d.body, d.signature))

			var evt struct {
				ID   string `json:"id"`
				Type string `json:"type"`
			}
			require.NoError(t, json.Unmarshal(d.body, &evt))
			assert.NotEmpty(t, evt.ID)
			types[evt.Type] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for webhook delivery")
		}
	}
	assert.True(t, types[webhook.TypeClientCreated])
	assert.True(t, types[webhook.TypePropertyCreated])
}
