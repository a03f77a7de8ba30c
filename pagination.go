package partnerapi

import (
	"context"
	"net/url"
	"strconv"
)

// Page is the Partner API's offset pagination envelope.
type Page[T any] struct {
	Count    int     `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  []T     `json:"results"`
}

// ListOptions selects a page of results. The zero value uses the server
// defaults.
type ListOptions struct {
	Page     int
	PageSize int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(o.PageSize))
	}
	return q
}

// PageIterator walks a paginated collection by following "next" links. Each
// fetch goes through the client's usual auth, retry, and rate-limit
// handling.
//
//	it := partnerapi.NewPageIterator[partnerapi.Property](client, "/properties/", opts)
//	for it.Next(ctx) {
//		for _, p := range it.Page().Results {
//			...
//		}
//	}
//	if err := it.Err(); err != nil { ... }
type PageIterator[T any] struct {
	client *Client
	op     string
	path   string
	query  url.Values

	page    *Page[T]
	started bool
	done    bool
	err     error
}

// NewPageIterator creates an iterator over the collection at path.
func NewPageIterator[T any](c *Client, path string, opts ListOptions) *PageIterator[T] {
	return &PageIterator[T]{
		client: c,
		op:     "paginate",
		path:   path,
		query:  opts.query(),
	}
}

// Next fetches the next page, returning false when the collection is
// exhausted or an error occurred.
func (it *PageIterator[T]) Next(ctx context.Context) bool {
	if it.done || it.err != nil {
		return false
	}

	target := it.path
	query := it.query
	if it.started {
		if it.page.Next == nil {
			it.done = true
			return false
		}
		target = *it.page.Next
		query = nil
	}

	var page Page[T]
	if err := it.client.get(ctx, it.op, target, query, &page); err != nil {
		it.err = err
		return false
	}

	it.started = true
	it.page = &page
	return true
}

// Page returns the most recently fetched page.
func (it *PageIterator[T]) Page() *Page[T] {
	return it.page
}

// Err returns the error that stopped iteration, if any.
func (it *PageIterator[T]) Err() error {
	return it.err
}

// collectAll drains an iterator into a single slice.
func collectAll[T any](ctx context.Context, it *PageIterator[T]) ([]T, error) {
	var all []T
	for it.Next(ctx) {
		all = append(all, it.Page().Results...)
	}
	if err := it.Err(); err != nil {
		return nil, err
	}
	return all, nil
}
