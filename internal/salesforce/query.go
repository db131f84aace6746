package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/pricing-engine/internal/models"
)

// Query runs a SOQL query and returns its first page.
func (c *Client) Query(ctx context.Context, soql string) (*QueryResult, error) {
	params := url.Values{}
	params.Set("q", soql)

	var result QueryResult
	if err := c.do(ctx, http.MethodGet, c.dataPath("/query"), params, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// QueryMore follows a nextRecordsUrl returned by a previous page.
func (c *Client) QueryMore(ctx context.Context, nextRecordsURL string) (*QueryResult, error) {
	if !strings.HasPrefix(nextRecordsURL, "/") {
		return nil, fmt.Errorf("invalid next records url %q", nextRecordsURL)
	}

	var result QueryResult
	if err := c.do(ctx, http.MethodGet, nextRecordsURL, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// QueryAll runs a query and follows continuation cursors until the API reports done.
// Records are returned in server order. Any failure is wrapped with models.ErrQuery
// and no partial result is returned.
func (c *Client) QueryAll(ctx context.Context, soql string) ([]json.RawMessage, error) {
	page, err := c.Query(ctx, soql)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrQuery, err)
	}

	records := make([]json.RawMessage, 0, page.TotalSize)
	pages := 1
	for {
		records = append(records, page.Records...)
		if page.Done {
			break
		}
		if page.NextRecordsURL == "" {
			return nil, fmt.Errorf("%w: page %d not done but has no next records url", models.ErrQuery, pages)
		}

		page, err = c.QueryMore(ctx, page.NextRecordsURL)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %w", models.ErrQuery, pages+1, err)
		}
		pages++
	}

	if c.logger != nil {
		c.logger.Debug().
			Int("records", len(records)).
			Int("pages", pages).
			Msg("Query drained")
	}

	return records, nil
}
