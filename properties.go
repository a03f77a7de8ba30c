package partnerapi

import (
	"context"
	"fmt"
)

// ListProperties returns a page of the partner's property transactions.
func (c *Client) ListProperties(ctx context.Context, opts ListOptions) (*Page[Property], error) {
	var page Page[Property]
	if err := c.get(ctx, "list_properties", "/properties/", opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllProperties returns all property transactions, following pagination.
func (c *Client) AllProperties(ctx context.Context) ([]Property, error) {
	return collectAll(ctx, NewPageIterator[Property](c, "/properties/", ListOptions{}))
}

// GetProperty returns a single property transaction, including its PDTF
// claim data.
func (c *Client) GetProperty(ctx context.Context, id int64) (*Property, error) {
	var p Property
	if err := c.get(ctx, "get_property", fmt.Sprintf("/properties/%d/", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
