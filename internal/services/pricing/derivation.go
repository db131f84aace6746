package pricing

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/models"
)

// Field names written on created records
const (
	FieldName             = "Name"
	FieldOpportunityID    = "OpportunityId"
	FieldQuoteID          = "QuoteId"
	FieldPricebookEntryID = "PricebookEntryId"
	FieldQuantity         = "Quantity"
	FieldUnitPrice        = "UnitPrice"
)

// BuildQuoteRequests derives one quote per parent, in parent order
func BuildQuoteRequests(parents []models.ParentRecord, quoteName string) []models.CreateRequest {
	requests := make([]models.CreateRequest, 0, len(parents))
	for _, parent := range parents {
		requests = append(requests, models.NewCreateRequest(models.EntityQuote, map[string]any{
			FieldName:          quoteName,
			FieldOpportunityID: parent.ID,
		}))
	}
	return requests
}

// Correlate maps each parent to the id of its created quote. results must be positionally
// aligned with parents; failed results are logged and left out of the map.
func Correlate(parents []models.ParentRecord, results []models.CreateResult, logger arbor.ILogger) models.CorrelationMap {
	correlation := make(models.CorrelationMap, len(parents))
	for i, parent := range parents {
		if i >= len(results) {
			logger.Error().
				Str("parent_id", parent.ID).
				Msg("Missing quote result for opportunity")
			continue
		}

		result := results[i]
		if !result.Success || result.ID == "" {
			logger.Error().
				Err(models.ErrRecordCreate).
				Str("parent_id", parent.ID).
				Str("error", result.ErrorMessage()).
				Msg("Failed to create Quote for Opportunity")
			continue
		}
		correlation[parent.ID] = result.ID
	}
	return correlation
}

// BuildLineItemRequests derives discounted quote line items for every parent present in the
// correlation map, walking parents in their original order. Parents without a quote
// contribute nothing. Rows with a non-positive quantity are skipped and logged.
func BuildLineItemRequests(parents []models.ParentRecord, correlation models.CorrelationMap, discountRate float64, logger arbor.ILogger) []models.CreateRequest {
	var requests []models.CreateRequest
	for _, parent := range parents {
		quoteID, ok := correlation[parent.ID]
		if !ok {
			continue
		}

		for _, row := range parent.Children {
			unitPrice, err := DiscountedUnitPrice(row.Quantity, row.UnitPrice, discountRate)
			if err != nil {
				logger.Warn().
					Err(err).
					Str("parent_id", parent.ID).
					Str("line_item_id", row.ID).
					Float64("quantity", row.Quantity).
					Msg("Skipping line item")
				continue
			}

			requests = append(requests, models.NewCreateRequest(models.EntityQuoteLineItem, map[string]any{
				FieldQuoteID:          quoteID,
				FieldPricebookEntryID: row.PricebookEntryID,
				FieldQuantity:         row.Quantity,
				FieldUnitPrice:        unitPrice,
			}))
		}
	}
	return requests
}
