package salesforce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, "token-123", WithLogger(arbor.NewNoOpLogger()), WithAPIVersion("v62.0"))
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("https://example.my.salesforce.com", "")
	assert.Error(t, err)

	_, err = NewClient("example.my.salesforce.com", "token")
	assert.Error(t, err)

	_, err = NewClient("ftp://example.com", "token")
	assert.Error(t, err)

	client, err := NewClient("https://example.my.salesforce.com/some/path", "token")
	require.NoError(t, err)
	assert.Equal(t, "https://example.my.salesforce.com", client.InstanceURL())
}

func TestQueryAll_FollowsPagination(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token-123", r.Header.Get("Authorization"))

		switch r.URL.Path {
		case "/services/data/v62.0/query":
			assert.Equal(t, "SELECT Id FROM Opportunity", r.URL.Query().Get("q"))
			writeJSON(w, http.StatusOK, map[string]any{
				"totalSize":      3,
				"done":           false,
				"nextRecordsUrl": "/services/data/v62.0/query/01g-2000",
				"records":        []any{map[string]any{"Id": "a"}, map[string]any{"Id": "b"}},
			})
		case "/services/data/v62.0/query/01g-2000":
			writeJSON(w, http.StatusOK, map[string]any{
				"totalSize": 3,
				"done":      true,
				"records":   []any{map[string]any{"Id": "c"}},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	records, err := client.QueryAll(context.Background(), "SELECT Id FROM Opportunity")
	require.NoError(t, err)
	require.Len(t, records, 3)

	var ids []string
	for _, raw := range records {
		var rec struct{ Id string }
		require.NoError(t, json.Unmarshal(raw, &rec))
		ids = append(ids, rec.Id)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestQueryAll_ErrorIsQueryError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, []map[string]string{
			{"errorCode": "MALFORMED_QUERY", "message": "unexpected token"},
		})
	})

	_, err := client.QueryAll(context.Background(), "SELECT")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrQuery)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "MALFORMED_QUERY", apiErr.Code)
	assert.Equal(t, "unexpected token", apiErr.Message)
}

func TestQueryAll_MissingCursor(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"done": false, "records": []any{}})
	})

	_, err := client.QueryAll(context.Background(), "SELECT Id FROM Opportunity")
	assert.ErrorIs(t, err, models.ErrQuery)
}

func TestDescribe(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/services/data/v62.0/sobjects/JobProgress__e/describe" {
			writeJSON(w, http.StatusOK, map[string]any{"name": "JobProgress__e", "createable": true})
			return
		}
		writeJSON(w, http.StatusNotFound, []map[string]string{{"errorCode": "NOT_FOUND", "message": "The requested resource does not exist"}})
	})

	assert.NoError(t, client.Describe(context.Background(), "JobProgress__e"))

	err := client.Describe(context.Background(), "Missing__e")
	assert.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestCreate_SendsCompositeRequest(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/services/data/v62.0/composite/sobjects", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body struct {
			AllOrNone bool             `json:"allOrNone"`
			Records   []map[string]any `json:"records"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.AllOrNone)
		require.Len(t, body.Records, 2)
		assert.Equal(t, map[string]any{"type": "Quote"}, body.Records[0]["attributes"])
		assert.Equal(t, "opp-1", body.Records[0]["OpportunityId"])

		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "q-1", "success": true, "errors": []any{}},
			{"success": false, "errors": []any{map[string]any{"statusCode": "REQUIRED_FIELD_MISSING", "message": "Name missing", "fields": []string{"Name"}}}},
		})
	})

	results, err := client.Create(context.Background(), []models.CreateRequest{
		models.NewCreateRequest(models.EntityQuote, map[string]any{"Name": "New Quote", "OpportunityId": "opp-1"}),
		models.NewCreateRequest(models.EntityQuote, map[string]any{"OpportunityId": "opp-2"}),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.Equal(t, "q-1", results[0].ID)
	assert.False(t, results[1].Success)
	assert.Equal(t, "Name missing", results[1].ErrorMessage())
	assert.Equal(t, []string{"Name"}, results[1].Errors[0].Fields)
}

func TestCreate_Limits(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, []any{})
	})

	results, err := client.Create(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, results)

	tooMany := make([]models.CreateRequest, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = models.NewCreateRequest(models.EntityQuote, nil)
	}
	_, err = client.Create(context.Background(), tooMany)
	assert.Error(t, err)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestDelete_SendsIDs(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "q1,q2", r.URL.Query().Get("ids"))
		assert.Equal(t, "false", r.URL.Query().Get("allOrNone"))
		writeJSON(w, http.StatusOK, []map[string]any{
			{"id": "q1", "success": true},
			{"id": "q2", "success": true},
		})
	})

	results, err := client.Delete(context.Background(), []string{"q1", "q2"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	tooMany := make([]string, MaxBatchSize+1)
	for i := range tooMany {
		tooMany[i] = fmt.Sprintf("id-%d", i)
	}
	_, err = client.Delete(context.Background(), tooMany)
	assert.Error(t, err)
}

func TestAPIError_NonJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("maintenance"))
	})

	err := client.Describe(context.Background(), "Quote")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
	assert.Equal(t, "maintenance", apiErr.Message)
	assert.Contains(t, apiErr.Error(), "status 503")
}
