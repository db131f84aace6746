package salesforce

import (
	"context"
	"net/http"
	"net/url"
)

// DescribeSObject returns metadata for an sObject (standard, custom or platform event).
func (c *Client) DescribeSObject(ctx context.Context, name string) (*DescribeResult, error) {
	var result DescribeResult
	path := c.dataPath("/sobjects/" + url.PathEscape(name) + "/describe")
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Describe reports whether an sObject exists and is accessible to the session.
func (c *Client) Describe(ctx context.Context, name string) error {
	_, err := c.DescribeSObject(ctx, name)
	return err
}
