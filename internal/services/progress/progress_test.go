package progress

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/models"
	"github.com/ternarybob/pricing-engine/internal/testutil"
)

func TestAvailable(t *testing.T) {
	store := &testutil.FakeRecordStore{}
	assert.True(t, Available(context.Background(), store, "JobProgress__e", arbor.NewNoOpLogger()))
	assert.Equal(t, []string{"JobProgress__e"}, store.Describes)

	store = &testutil.FakeRecordStore{DescribeErr: errors.New("NOT_FOUND")}
	assert.False(t, Available(context.Background(), store, "JobProgress__e", arbor.NewNoOpLogger()))
}

func TestPublisher_CreatesEvent(t *testing.T) {
	store := &testutil.FakeRecordStore{}
	p := NewPublisher(store, "job-1", "JobProgress__e", true, arbor.NewNoOpLogger())

	p.Publish(context.Background(), 42.5)

	require.Len(t, store.CreateCalls, 1)
	require.Len(t, store.CreateCalls[0], 1)
	event := store.CreateCalls[0][0]
	assert.Equal(t, "JobProgress__e", event.EntityKind)
	assert.Equal(t, "job-1", event.Fields[FieldJobID])
	assert.Equal(t, 42.5, event.Fields[FieldProgress])
}

func TestPublisher_DisabledIsNoOp(t *testing.T) {
	store := &testutil.FakeRecordStore{}
	p := NewPublisher(store, "job-1", "JobProgress__e", false, arbor.NewNoOpLogger())

	p.Publish(context.Background(), 10)

	assert.False(t, p.Enabled())
	assert.Nil(t, p.Sink(context.Background()))
	assert.Zero(t, store.CallCount())
}

func TestPublisher_SwallowsFailures(t *testing.T) {
	cases := map[string]func([]models.CreateRequest) ([]models.CreateResult, error){
		"transport error": func([]models.CreateRequest) ([]models.CreateResult, error) {
			return nil, errors.New("timeout")
		},
		"empty response": func([]models.CreateRequest) ([]models.CreateResult, error) {
			return nil, nil
		},
		"unsuccessful result": func([]models.CreateRequest) ([]models.CreateResult, error) {
			return []models.CreateResult{models.FailedResult("INVALID_FIELD", "no such field")}, nil
		},
		"panic": func([]models.CreateRequest) ([]models.CreateResult, error) {
			panic("boom")
		},
	}

	for name, hook := range cases {
		t.Run(name, func(t *testing.T) {
			store := &testutil.FakeRecordStore{CreateFunc: hook}
			p := NewPublisher(store, "job-1", "JobProgress__e", true, arbor.NewNoOpLogger())

			assert.NotPanics(t, func() { p.Publish(context.Background(), 50) })
			assert.Len(t, store.CreateCalls, 1)
		})
	}
}

func TestPublisher_Sink(t *testing.T) {
	store := &testutil.FakeRecordStore{}
	p := NewPublisher(store, "job-1", "JobProgress__e", true, arbor.NewNoOpLogger())

	sink := p.Sink(context.Background())
	require.NotNil(t, sink)
	sink(25)
	sink(50)

	assert.Len(t, store.CreatedOf("JobProgress__e"), 2)
}
