package appclient

import (
	"context"
	"net/http"

	"github.com/fivetwenty-io/appplane-client/internal/constants"
	"github.com/fivetwenty-io/appplane-client/pkg/appplane"
)

// ListPages returns a fetcher that GETs path, passing the cursor as the
// page_token query parameter and decoding the page envelope.
func ListPages[T any](c *Client, path string, opts ...CallOption) appplane.FetchPageFunc[T] {
	return func(ctx context.Context, cursor string) (*appplane.Page[T], error) {
		callOpts := make([]CallOption, 0, len(opts)+1)
		callOpts = append(callOpts, opts...)

		if cursor != "" {
			callOpts = append(callOpts, WithQueryParam(constants.PageTokenParam, cursor))
		}

		page, err := Do[appplane.Page[T]](ctx, c, http.MethodGet, path, callOpts...)
		if err != nil {
			return nil, err
		}

		return &page, nil
	}
}

// Paginate lazily walks the listing at path.
func Paginate[T any](ctx context.Context, c *Client, path string, opts ...CallOption) *appplane.Paginator[T] {
	return appplane.NewPaginator(ctx, ListPages[T](c, path, opts...))
}

// CollectAll reads the whole listing at path. Use Paginate for listings
// that may not fit in memory.
func CollectAll[T any](ctx context.Context, c *Client, path string, opts ...CallOption) ([]T, error) {
	return appplane.Collect(ctx, ListPages[T](c, path, opts...))
}
