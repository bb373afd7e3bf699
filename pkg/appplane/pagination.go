package appplane

import (
	"context"
	"errors"
	"fmt"
	"iter"
)

// Page is one page of a cursor-paginated listing.
type Page[T any] struct {
	Items         []T    `json:"items"           yaml:"items"`
	NextPageToken string `json:"next_page_token" yaml:"next_page_token"`
}

// HasNext reports whether another page can be requested.
func (p *Page[T]) HasNext() bool {
	return p.NextPageToken != ""
}

// FetchPageFunc returns the page for cursor. The first call receives an
// empty cursor.
type FetchPageFunc[T any] func(ctx context.Context, cursor string) (*Page[T], error)

// PaginatorOption configures a Paginator.
type PaginatorOption func(*paginatorOptions)

type paginatorOptions struct {
	maxPages int
}

// WithMaxPages stops iteration with ErrPageLimitExceeded once n pages have
// been fetched and the gateway still returns a cursor. Zero means no limit.
func WithMaxPages(n int) PaginatorOption {
	return func(o *paginatorOptions) {
		if n >= 0 {
			o.maxPages = n
		}
	}
}

// Paginator lazily walks a cursor-paginated listing.
//
// Only the current page is held in memory; the next page is requested
// once the current one is exhausted, and only if it carried a cursor.
// A Paginator is single use.
type Paginator[T any] struct {
	ctx     context.Context
	fetch   FetchPageFunc[T]
	options paginatorOptions

	items  []T
	index  int
	cursor string
	pages  int
	done   bool
	err    error
	failed error
}

// NewPaginator creates a paginator over fetch.
func NewPaginator[T any](ctx context.Context, fetch FetchPageFunc[T], opts ...PaginatorOption) *Paginator[T] {
	paginator := &Paginator[T]{
		ctx:   ctx,
		fetch: fetch,
	}

	for _, opt := range opts {
		opt(&paginator.options)
	}

	return paginator
}

// HasNext reports whether Next will return an item or an error. It may
// fetch the next page.
func (p *Paginator[T]) HasNext() bool {
	p.fill()

	return p.err != nil || p.index < len(p.items)
}

// Next returns the next item, ErrNoMoreItems once the listing is
// exhausted, or the error that stopped iteration.
func (p *Paginator[T]) Next() (T, error) {
	var zero T

	p.fill()

	if p.err != nil {
		err := p.err
		p.err = nil
		p.failed = err
		p.done = true
		p.items = nil

		return zero, err
	}

	if p.index >= len(p.items) {
		return zero, ErrNoMoreItems
	}

	item := p.items[p.index]
	p.index++

	return item, nil
}

// All yields the remaining items. Iteration stops after the first error,
// which is yielded with a zero item.
func (p *Paginator[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for {
			item, err := p.Next()
			if errors.Is(err, ErrNoMoreItems) {
				return
			}

			if !yield(item, err) || err != nil {
				return
			}
		}
	}
}

// Err returns the error that stopped iteration, if any.
func (p *Paginator[T]) Err() error {
	if p.err != nil {
		return p.err
	}

	return p.failed
}

// Pages returns how many pages have been fetched.
func (p *Paginator[T]) Pages() int {
	return p.pages
}

// fill fetches pages until an item is buffered, the listing ends, or an
// error occurs. Empty pages that still carry a cursor are skipped.
func (p *Paginator[T]) fill() {
	for !p.done && p.err == nil && p.index >= len(p.items) {
		if p.pages > 0 && p.cursor == "" {
			p.done = true

			return
		}

		if p.options.maxPages > 0 && p.pages >= p.options.maxPages {
			p.err = fmt.Errorf("%w: %d pages", ErrPageLimitExceeded, p.pages)

			return
		}

		page, err := p.fetch(p.ctx, p.cursor)
		if err != nil {
			p.err = err

			return
		}

		if page == nil {
			p.err = ErrNilPage

			return
		}

		p.pages++
		p.items = page.Items
		p.index = 0
		p.cursor = page.NextPageToken
	}
}

// Iterate walks every item of the listing behind fetch.
func Iterate[T any](ctx context.Context, fetch FetchPageFunc[T], opts ...PaginatorOption) iter.Seq2[T, error] {
	return NewPaginator(ctx, fetch, opts...).All()
}

// Collect drains the listing behind fetch into a slice.
func Collect[T any](ctx context.Context, fetch FetchPageFunc[T], opts ...PaginatorOption) ([]T, error) {
	var all []T

	for item, err := range Iterate(ctx, fetch, opts...) {
		if err != nil {
			return all, err
		}

		all = append(all, item)
	}

	return all, nil
}
