package salesforce

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ternarybob/pricing-engine/internal/models"
)

// Create inserts up to MaxBatchSize records in one composite call with allOrNone=false,
// so individual records can fail without rolling back the rest. Results are in request order.
func (c *Client) Create(ctx context.Context, requests []models.CreateRequest) ([]models.CreateResult, error) {
	if len(requests) == 0 {
		return nil, nil
	}
	if len(requests) > MaxBatchSize {
		return nil, fmt.Errorf("create of %d records exceeds the limit of %d", len(requests), MaxBatchSize)
	}

	body := compositeRequest{
		AllOrNone: false,
		Records:   make([]map[string]any, 0, len(requests)),
	}
	for _, req := range requests {
		record := make(map[string]any, len(req.Fields)+1)
		for k, v := range req.Fields {
			record[k] = v
		}
		record["attributes"] = Attributes{Type: req.EntityKind}
		body.Records = append(body.Records, record)
	}

	var results []models.CreateResult
	if err := c.do(ctx, http.MethodPost, c.dataPath("/composite/sobjects"), nil, body, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Delete removes up to MaxBatchSize records by id with allOrNone=false.
func (c *Client) Delete(ctx context.Context, ids []string) ([]models.CreateResult, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxBatchSize {
		return nil, fmt.Errorf("delete of %d records exceeds the limit of %d", len(ids), MaxBatchSize)
	}

	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("allOrNone", "false")

	var results []models.CreateResult
	if err := c.do(ctx, http.MethodDelete, c.dataPath("/composite/sobjects"), params, nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}
