package partnerapi

import "context"

// ListProducts returns a page of the product catalogue.
func (c *Client) ListProducts(ctx context.Context, opts ListOptions) (*Page[Product], error) {
	var page Page[Product]
	if err := c.get(ctx, "list_products", "/products/", opts.query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// AllProducts returns the full product catalogue, following pagination.
func (c *Client) AllProducts(ctx context.Context) ([]Product, error) {
	return collectAll(ctx, NewPageIterator[Product](c, "/products/", ListOptions{}))
}
