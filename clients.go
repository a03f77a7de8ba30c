package partnerapi

import (
	"context"
	"net/http"
)

// CreateClient creates a client and opens their property transaction in a
// single call. The request is validated locally before any network I/O;
// validation failures come back as a 400-shaped *APIError with per-field
// messages and, for the professional-contact rule, a non_field_errors entry.
func (c *Client) CreateClient(ctx context.Context, req CreateClientRequest) (*ClientRecord, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var rec ClientRecord
	if err := c.doJSON(ctx, "create_client", http.MethodPost, "/clients/", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Validate checks the request against the API's validation rules without
// sending it. Failures are returned as a 400-shaped *APIError.
func (r CreateClientRequest) Validate() error {
	err := validateRequest(r)

	// Cross-field rule enforced by the API: a transaction must involve at
	// least one professional.
	if r.EstateAgentEmail == "" && r.ConveyancerEmail == "" && r.MortgageBrokerEmail == "" {
		apiErr, ok := err.(*APIError)
		if !ok {
			apiErr = &APIError{StatusCode: http.StatusBadRequest}
			err = apiErr
		}
		apiErr.NonFieldErrors = append(apiErr.NonFieldErrors,
			"At least one professional contact email is required.")
	}
	return err
}
