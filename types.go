package partnerapi

import (
	"encoding/json"
	"time"
)

// Product is a purchasable conveyancing product. The catalogue is read-only.
type Product struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Active      bool   `json:"active"`
}

// Address is a UK property address.
type Address struct {
	Line1    string `json:"address_line_1" validate:"required"`
	Line2    string `json:"address_line_2,omitempty"`
	City     string `json:"city" validate:"required"`
	Postcode string `json:"postcode" validate:"required"`
}

// CreateClientRequest creates a client and their property transaction in a
// single call. At least one professional contact email (estate agent,
// conveyancer, or mortgage broker) is required; the API enforces this as a
// cross-field rule and the SDK checks it before sending.
type CreateClientRequest struct {
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,e164"`

	ProductCode string `json:"product_code" validate:"required"`

	Address         Address `json:"address"`
	TransactionType string  `json:"transaction_type" validate:"required,oneof=sale purchase remortgage"`

	EstateAgentEmail    string `json:"estate_agent_email,omitempty" validate:"omitempty,email"`
	ConveyancerEmail    string `json:"conveyancer_email,omitempty" validate:"omitempty,email"`
	MortgageBrokerEmail string `json:"mortgage_broker_email,omitempty" validate:"omitempty,email"`
}

// ClientRecord is a created client and the property transaction opened for
// them.
type ClientRecord struct {
	ID         int64     `json:"id"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone,omitempty"`
	PropertyID int64     `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Property is a property transaction.
type Property struct {
	ID              int64     `json:"id"`
	Reference       string    `json:"reference"`
	Address         Address   `json:"address"`
	TransactionType string    `json:"transaction_type"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// PDTF holds Property Data Trust Framework claims as published by the
	// vendor. The schema is owned by the PDTF standard, so it is kept raw.
	PDTF json.RawMessage `json:"pdtf_data,omitempty"`
}

// Milestone statuses.
const (
	MilestonePending    = "pending"
	MilestoneInProgress = "in_progress"
	MilestoneCompleted  = "completed"
)

// Milestone is a vendor-defined step in a property transaction's lifecycle.
// Milestones are read-only.
type Milestone struct {
	ID          int64      `json:"id"`
	PropertyID  int64      `json:"property_id"`
	Key         string     `json:"key"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChatMessageRequest posts a message to a property's chat thread.
type ChatMessageRequest struct {
	Body string `json:"body" validate:"required"`
}

// ChatMessage is a message in a property's chat thread. The vendor documents
// this resource as mocked: messages are accepted and echoed but not
// delivered anywhere.
type ChatMessage struct {
	ID         int64     `json:"id"`
	PropertyID int64     `json:"property_id"`
	Sender     string    `json:"sender"`
	Body       string    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}
