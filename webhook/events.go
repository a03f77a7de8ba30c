package webhook

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event types delivered by the Partner API.
const (
	TypeClientCreated    = "client.created"
	TypePropertyCreated  = "property.created"
	TypeMilestoneUpdated = "milestone.updated"
)

// Event is the webhook delivery envelope. Data holds the type-specific
// payload; use DecodeData with the matching payload struct.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Data      json.RawMessage `json:"data"`
}

// DecodeData unmarshals the event payload into v.
func (e Event) DecodeData(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

// ClientCreated is the payload of client.created events.
type ClientCreated struct {
	ClientID   int64  `json:"client_id"`
	PropertyID int64  `json:"property_id"`
	Email      string `json:"email"`
}

// PropertyCreated is the payload of property.created events.
type PropertyCreated struct {
	PropertyID int64  `json:"property_id"`
	Reference  string `json:"reference"`
}

// MilestoneUpdated is the payload of milestone.updated events.
type MilestoneUpdated struct {
	PropertyID   int64  `json:"property_id"`
	MilestoneKey string `json:"milestone_key"`
	Status       string `json:"status"`
}
