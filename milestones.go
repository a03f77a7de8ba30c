package partnerapi

import (
	"context"
	"fmt"
)

// ListMilestones returns a page of the milestones for a property
// transaction. Milestones are read-only; the vendor updates them as the
// transaction progresses.
func (c *Client) ListMilestones(ctx context.Context, propertyID int64, opts ListOptions) (*Page[Milestone], error) {
	var page Page[Milestone]
	path := fmt.Sprintf("/properties/%d/milestones/", propertyID)
	if err := c.get(ctx, "list_milestones", path, opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllMilestones returns every milestone for a property, following
// pagination.
func (c *Client) AllMilestones(ctx context.Context, propertyID int64) ([]Milestone, error) {
	path := fmt.Sprintf("/properties/%d/milestones/", propertyID)
	return collectAll(ctx, NewPageIterator[Milestone](c, path, ListOptions{}))
}
