package sampledata

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/models"
	"github.com/ternarybob/pricing-engine/internal/services/batch"
	"github.com/ternarybob/pricing-engine/internal/testutil"
)

func newTestService(store *testutil.FakeRecordStore, chunkSize int) *Service {
	config := common.NewDefaultConfig()
	logger := arbor.NewNoOpLogger()
	svc := NewService(&testutil.FakeSessions{Store: store}, batch.NewExecutor(chunkSize, 4, logger), config.Salesforce, logger)
	svc.now = func() time.Time { return time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		payload string
		want    Command
		wantErr bool
	}{
		{"create:100", Command{Name: "create", Count: 100}, false},
		{" CREATE: 5 ", Command{Name: "create", Count: 5}, false},
		{"delete", Command{Name: "delete"}, false},
		{"create", Command{}, true},
		{"create:0", Command{}, true},
		{"create:abc", Command{}, true},
		{"truncate", Command{}, true},
		{"", Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.payload, func(t *testing.T) {
			got, err := ParseCommand(tt.payload)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownCommand)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExecute_Create(t *testing.T) {
	store := &testutil.FakeRecordStore{}
	svc := newTestService(store, 200)

	err := svc.Execute(context.Background(), &models.Job{ID: "job-1", Kind: "dataQueue", Selector: "create:450"})
	require.NoError(t, err)

	opps := store.CreatedOf(models.EntityOpportunity)
	require.Len(t, opps, 450)
	assert.Len(t, store.CreateCallsOf(models.EntityOpportunity), 3)
	assert.Equal(t, "Prospecting", opps[0].Fields["StageName"])
	assert.Equal(t, "2026-02-14", opps[0].Fields["CloseDate"])
	assert.Contains(t, opps[0].Fields["Name"], "Sample Opportunity")

	// Started marker is not sent for data jobs; three chunk events are
	assert.Len(t, store.CreatedOf("JobProgress__e"), 3)
}

func TestExecute_Delete(t *testing.T) {
	raw := make([]json.RawMessage, 250)
	for i := range raw {
		raw[i] = testutil.Record(map[string]any{"Id": fmt.Sprintf("0Q0-%d", i)})
	}
	store := &testutil.FakeRecordStore{QueryRecords: raw}
	svc := newTestService(store, 200)

	err := svc.Execute(context.Background(), &models.Job{ID: "job-2", Kind: "dataQueue", Selector: "delete"})
	require.NoError(t, err)

	require.Len(t, store.Queries, 1)
	assert.Equal(t, "SELECT Id FROM Quote WHERE Name = 'New Quote'", store.Queries[0])
	require.Len(t, store.DeleteCalls, 2)
	assert.Len(t, store.DeleteCalls[0], 200)
	assert.Len(t, store.DeleteCalls[1], 50)
}

func TestExecute_DeleteNothing(t *testing.T) {
	store := &testutil.FakeRecordStore{}
	svc := newTestService(store, 200)

	require.NoError(t, svc.Execute(context.Background(), &models.Job{ID: "job-3", Selector: "delete"}))
	assert.Empty(t, store.DeleteCalls)
}

func TestExecute_UnknownCommandMakesNoCallsAndReleasesCredentials(t *testing.T) {
	store := &testutil.FakeRecordStore{}
	sessions := &testutil.FakeSessions{Store: store}
	logger := arbor.NewNoOpLogger()
	svc := NewService(sessions, batch.NewExecutor(200, 4, logger), common.NewDefaultConfig().Salesforce, logger)

	err := svc.Execute(context.Background(), &models.Job{ID: "job-4", Selector: "drop"})

	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Zero(t, store.CallCount())
	assert.Equal(t, []string{"job-4"}, sessions.Released)
}
