package mockserver

import (
	"time"

	"github.com/OpenMoove/partnerapi"
)

func defaultProducts() []partnerapi.Product {
	return []partnerapi.Product{
		{ID: 1, Code: "moove-ready-sale", Name: "Moove Ready Pack (Sale)", Description: "Upfront property information pack for sellers", Active: true},
		{ID: 2, Code: "moove-ready-purchase", Name: "Moove Ready Pack (Purchase)", Description: "Buyer onboarding and milestone tracking", Active: true},
		{ID: 3, Code: "moove-remortgage", Name: "Remortgage Pack", Description: "Remortgage conveyancing support", Active: true},
		{ID: 4, Code: "moove-legacy", Name: "Legacy Pack", Description: "Discontinued bundle", Active: false},
	}
}

// defaultMilestones is the lifecycle the vendor instantiates for every new
// transaction. All steps start pending.
func defaultMilestones(propertyID int64, now time.Time) []partnerapi.Milestone {
	keys := []struct {
		key  string
		name string
	}{
		{"instruction", "Instruction received"},
		{"id_checks", "ID checks complete"},
		{"searches_ordered", "Searches ordered"},
		{"enquiries_raised", "Enquiries raised"},
		{"contracts_exchanged", "Contracts exchanged"},
		{"completion", "Completion"},
	}

	milestones := make([]partnerapi.Milestone, 0, len(keys))
	for i, k := range keys {
		milestones = append(milestones, partnerapi.Milestone{
			ID:         propertyID*100 + int64(i),
			PropertyID: propertyID,
			Key:        k.key,
			Name:       k.name,
			Status:     partnerapi.MilestonePending,
			UpdatedAt:  now,
		})
	}
	return milestones
}

func (s *Server) seedDemoData() {
	now := time.Now().UTC()
	propertyID := s.allocID()

	prop := &partnerapi.Property{
		ID:        propertyID,
		Reference: "MV-DEMO-1",
		Address: partnerapi.Address{
			Line1:    "1 Demo Street",
			City:     "London",
			Postcode: "SW1A 1AA",
		},
		TransactionType: "sale",
		Status:          "active",
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	s.properties[propertyID] = prop

	milestones := defaultMilestones(propertyID, now)
	milestones[0].Status = partnerapi.MilestoneCompleted
	completed := now.Add(-24 * time.Hour)
	milestones[0].CompletedAt = &completed
	milestones[1].Status = partnerapi.MilestoneInProgress
	s.milestones[propertyID] = milestones
}
