package interfaces

import (
	"context"
	"encoding/json"

	"github.com/ternarybob/pricing-engine/internal/models"
)

// RecordStore is an authorized connection to the external transactional store.
// Implementations must be safe for concurrent use by batch workers.
type RecordStore interface {
	// QueryAll runs a query and drains every continuation page, returning raw records in server order
	QueryAll(ctx context.Context, query string) ([]json.RawMessage, error)

	// Describe looks up entity metadata; an error means the entity is absent or inaccessible
	Describe(ctx context.Context, entity string) error

	// Create performs one bulk create. Results are 1:1 and order-preserving with requests.
	Create(ctx context.Context, requests []models.CreateRequest) ([]models.CreateResult, error)

	// Delete performs one bulk delete. Results are 1:1 and order-preserving with ids.
	Delete(ctx context.Context, ids []string) ([]models.CreateResult, error)
}

// SessionProvider rebuilds a RecordStore connection for a job from stashed credentials
type SessionProvider interface {
	Reconstruct(ctx context.Context, jobID string) (RecordStore, error)
	Release(ctx context.Context, jobID string)
}

// JobExecutor runs one job received on a queue channel
type JobExecutor interface {
	Execute(ctx context.Context, job *models.Job) error
}
