package models

import "strings"

// Entity kinds created by the pricing pipeline
const (
	EntityQuote         = "Quote"
	EntityQuoteLineItem = "QuoteLineItem"
	EntityOpportunity   = "Opportunity"
)

// ParentRecord is a queried opportunity together with its line items, in server order
type ParentRecord struct {
	ID       string
	Children []ChildSourceRow
}

// ChildSourceRow is one opportunity line item nested under a ParentRecord
type ChildSourceRow struct {
	ID               string
	Product2ID       string
	Quantity         float64
	UnitPrice        float64
	PricebookEntryID string
}

// CreateRequest describes one record to create. Position within its batch is significant:
// results are correlated back by index.
type CreateRequest struct {
	EntityKind string
	Fields     map[string]any
}

// NewCreateRequest builds a CreateRequest for the given entity kind
func NewCreateRequest(kind string, fields map[string]any) CreateRequest {
	if fields == nil {
		fields = make(map[string]any)
	}
	return CreateRequest{EntityKind: kind, Fields: fields}
}

// ResultError is a single error reported by the external store for a record
type ResultError struct {
	StatusCode string   `json:"statusCode"`
	Message    string   `json:"message"`
	Fields     []string `json:"fields,omitempty"`
}

// CreateResult is the outcome of one CreateRequest (or delete), 1:1 and order-preserving
type CreateResult struct {
	ID      string        `json:"id"`
	Success bool          `json:"success"`
	Errors  []ResultError `json:"errors"`
}

// ErrorMessage returns the first reported error message, if any
func (r CreateResult) ErrorMessage() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// FailedResult builds a failure result carrying the given status code and message
func FailedResult(statusCode, message string) CreateResult {
	return CreateResult{
		Success: false,
		Errors:  []ResultError{{StatusCode: statusCode, Message: message}},
	}
}

// CorrelationMap maps an original parent id to the id assigned to its created quote.
// Only successful phase-1 results have an entry.
type CorrelationMap map[string]string

// CountFailures returns how many results were not successful
func CountFailures(results []CreateResult) int {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	return failed
}

// JoinErrorMessages flattens all error messages of a result for logging
func JoinErrorMessages(r CreateResult) string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		if e.StatusCode != "" {
			msgs = append(msgs, e.StatusCode+": "+e.Message)
			continue
		}
		msgs = append(msgs, e.Message)
	}
	return strings.Join(msgs, "; ")
}
