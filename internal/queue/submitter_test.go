package queue

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/common"
	"github.com/ternarybob/pricing-engine/internal/models"
	"github.com/ternarybob/pricing-engine/internal/services/kv"
	"github.com/ternarybob/pricing-engine/internal/services/session"
	"github.com/ternarybob/pricing-engine/internal/storage/badger"
)

type failingQueue struct{}

func (failingQueue) Publish(ctx context.Context, channel, body string) error {
	return errors.New("broker down")
}

func (failingQueue) Receive(ctx context.Context) (*models.QueueMessage, func() error, error) {
	return nil, nil, models.ErrNoMessage
}

func (failingQueue) Close() error { return nil }

func newBadger(t *testing.T) (*badger.BadgerDB, *session.Service) {
	t.Helper()
	logger := arbor.NewNoOpLogger()
	db, err := badger.NewBadgerDB(logger, &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, session.NewService(kv.NewService(badger.NewKVStorage(db, logger), logger), logger)
}

func TestSubmit_StashesAndPublishes(t *testing.T) {
	ctx := context.Background()
	logger := arbor.NewNoOpLogger()
	db, sessions := newBadger(t)
	jobQueue, err := badger.NewQueueStorage(db, "pricing_jobs", time.Minute, 1, logger)
	require.NoError(t, err)

	creds := session.Credentials{SessionToken: "token", Endpoint: "https://acme.my.salesforce.com"}
	jobID, err := NewSubmitter(jobQueue, sessions, logger).Submit(ctx, "quoteQueue", "StageName = 'Closed Won'", creds)
	require.NoError(t, err)
	assert.NotEmpty(t, jobID)

	stored, err := sessions.Lookup(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, creds, stored)

	msg, _, err := jobQueue.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "quoteQueue", msg.Channel)
	assert.True(t, strings.HasPrefix(msg.Body, jobID+":"))

	job, err := models.ParseJob(msg.Channel, msg.Body)
	require.NoError(t, err)
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, "StageName = 'Closed Won'", job.Selector)
}

func TestSubmit_PublishFailureReleasesCredentials(t *testing.T) {
	ctx := context.Background()
	_, sessions := newBadger(t)

	_, err := NewSubmitter(failingQueue{}, sessions, arbor.NewNoOpLogger()).Submit(ctx, "quoteQueue", "x",
		session.Credentials{SessionToken: "token", Endpoint: "https://acme.my.salesforce.com"})

	assert.Error(t, err)
}
