package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/ternarybob/pricing-engine/internal/models"
)

// opportunityRecord is the shape of one row returned by the opportunity query
type opportunityRecord struct {
	ID        string        `json:"Id"`
	LineItems *subqueryPage `json:"OpportunityLineItems"`
}

// subqueryPage is a nested relationship result; it is null when there are no children
type subqueryPage struct {
	Records []json.RawMessage `json:"records"`
}

type lineItemRecord struct {
	Attributes *struct {
		Type string `json:"type"`
	} `json:"attributes"`
	ID               string   `json:"Id"`
	Product2ID       string   `json:"Product2Id"`
	Quantity         *float64 `json:"Quantity"`
	UnitPrice        *float64 `json:"UnitPrice"`
	PricebookEntryID string   `json:"PricebookEntryId"`
}

// DecodeOpportunities turns raw query records into typed parent records, keeping order.
// Nested entries that are not OpportunityLineItem records, or that lack quantity or price,
// are skipped.
func DecodeOpportunities(raw []json.RawMessage) ([]models.ParentRecord, error) {
	parents := make([]models.ParentRecord, 0, len(raw))
	for i, data := range raw {
		var opp opportunityRecord
		if err := json.Unmarshal(data, &opp); err != nil {
			return nil, fmt.Errorf("%w: record %d: %w", models.ErrQuery, i, err)
		}
		if opp.ID == "" {
			return nil, fmt.Errorf("%w: record %d has no Id", models.ErrQuery, i)
		}

		parent := models.ParentRecord{ID: opp.ID}
		if opp.LineItems != nil {
			for _, childData := range opp.LineItems.Records {
				child, ok := decodeLineItem(childData)
				if !ok {
					continue
				}
				parent.Children = append(parent.Children, child)
			}
		}
		parents = append(parents, parent)
	}
	return parents, nil
}

func decodeLineItem(data json.RawMessage) (models.ChildSourceRow, bool) {
	var item lineItemRecord
	if err := json.Unmarshal(data, &item); err != nil {
		return models.ChildSourceRow{}, false
	}
	if item.Attributes != nil && item.Attributes.Type != "" && item.Attributes.Type != "OpportunityLineItem" {
		return models.ChildSourceRow{}, false
	}
	if item.Quantity == nil || item.UnitPrice == nil {
		return models.ChildSourceRow{}, false
	}
	return models.ChildSourceRow{
		ID:               item.ID,
		Product2ID:       item.Product2ID,
		Quantity:         *item.Quantity,
		UnitPrice:        *item.UnitPrice,
		PricebookEntryID: item.PricebookEntryID,
	}, true
}
