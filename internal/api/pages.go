package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// maxPages bounds how many pages one list call follows.
const maxPages = 50

// listAll reads every page of a collection by following the next links.
// Next links keep the path and carry the page and filters in the query.
func listAll[T any](ctx context.Context, c *Client, path string, query url.Values) ([]T, error) {
	out := make([]T, 0)
	q := query
	for i := 0; i < maxPages; i++ {
		var page Page[T]
		if err := c.doGet(ctx, path, q, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if page.Next == nil || *page.Next == "" {
			return out, nil
		}
		next, err := url.Parse(*page.Next)
		if err != nil {
			return nil, &RequestFailedError{
				Status: http.StatusOK,
				Err:    &ShapeError{Endpoint: routeLabel(http.MethodGet, path), Err: fmt.Errorf("next link: %w", err)},
			}
		}
		q = next.Query()
	}
	c.logger.Warn().Str("path", path).Int("pages", maxPages).Msg("list truncated")
	return out, nil
}
