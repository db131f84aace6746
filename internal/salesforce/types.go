package salesforce

import (
	"encoding/json"
	"fmt"
)

// MaxBatchSize is the record limit of one composite sobjects call
const MaxBatchSize = 200

// QueryResult is one page of a SOQL query
type QueryResult struct {
	TotalSize      int               `json:"totalSize"`
	Done           bool              `json:"done"`
	NextRecordsURL string            `json:"nextRecordsUrl,omitempty"`
	Records        []json.RawMessage `json:"records"`
}

// Attributes is the metadata block carried by every sObject
type Attributes struct {
	Type string `json:"type"`
	URL  string `json:"url,omitempty"`
}

// compositeRequest is the body of a composite sobjects create
type compositeRequest struct {
	AllOrNone bool             `json:"allOrNone"`
	Records   []map[string]any `json:"records"`
}

// DescribeResult is the subset of describe metadata the worker reads
type DescribeResult struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	Createable bool   `json:"createable"`
	Queryable  bool   `json:"queryable"`
}

// apiErrorBody is the error element returned by the REST API
type apiErrorBody struct {
	ErrorCode string   `json:"errorCode"`
	Message   string   `json:"message"`
	Fields    []string `json:"fields,omitempty"`
}

// APIError represents a non-2xx response from the REST API
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("salesforce API error: %s: %s (status %d, endpoint: %s)", e.Code, e.Message, e.StatusCode, e.Endpoint)
	}
	return fmt.Sprintf("salesforce API error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}
