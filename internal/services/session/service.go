// Package session rebuilds an authorized external store connection for a job from the
// credentials the intake side stashed under the job id.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
	"github.com/ternarybob/pricing-engine/internal/salesforce"
	"github.com/ternarybob/pricing-engine/internal/services/kv"
)

// SessionKey is where the intake side stores the session token for a job
func SessionKey(jobID string) string {
	return "salesforce:session:" + jobID
}

// InstanceKey is where the intake side stores the instance URL for a job
func InstanceKey(jobID string) string {
	return "salesforce:instance:" + jobID
}

// Credentials is the pair needed to connect on behalf of the caller
type Credentials struct {
	SessionToken string
	Endpoint     string
}

// Service reconstructs connections from stashed credentials
type Service struct {
	kv      *kv.Service
	options []salesforce.ClientOption
	logger  arbor.ILogger
}

var _ interfaces.SessionProvider = (*Service)(nil)

// NewService creates a session service. options are applied to every client it builds.
func NewService(kvService *kv.Service, logger arbor.ILogger, options ...salesforce.ClientOption) *Service {
	return &Service{
		kv:      kvService,
		options: options,
		logger:  logger,
	}
}

// Stash stores credentials for a job. Used by the submitter and tests.
func (s *Service) Stash(ctx context.Context, jobID string, creds Credentials) error {
	if err := s.kv.Set(ctx, SessionKey(jobID), creds.SessionToken, "session token for job "+jobID); err != nil {
		return fmt.Errorf("failed to stash session token: %w", err)
	}
	if err := s.kv.Set(ctx, InstanceKey(jobID), creds.Endpoint, "instance url for job "+jobID); err != nil {
		return fmt.Errorf("failed to stash instance url: %w", err)
	}
	return nil
}

// Lookup reads the stashed credentials for a job. Either value missing or blank
// is reported as models.ErrSessionUnavailable.
func (s *Service) Lookup(ctx context.Context, jobID string) (Credentials, error) {
	token, err := s.kv.Get(ctx, SessionKey(jobID))
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: session token for job %s: %w", models.ErrSessionUnavailable, jobID, err)
	}
	endpoint, err := s.kv.Get(ctx, InstanceKey(jobID))
	if err != nil {
		return Credentials{}, fmt.Errorf("%w: instance url for job %s: %w", models.ErrSessionUnavailable, jobID, err)
	}
	if strings.TrimSpace(token) == "" || strings.TrimSpace(endpoint) == "" {
		return Credentials{}, fmt.Errorf("%w: empty credentials for job %s", models.ErrSessionUnavailable, jobID)
	}
	return Credentials{SessionToken: token, Endpoint: endpoint}, nil
}

// Reconstruct builds a live connection for a job. No request is sent to the store.
func (s *Service) Reconstruct(ctx context.Context, jobID string) (interfaces.RecordStore, error) {
	creds, err := s.Lookup(ctx, jobID)
	if err != nil {
		return nil, err
	}

	opts := append([]salesforce.ClientOption{salesforce.WithLogger(s.logger)}, s.options...)
	client, err := salesforce.NewClient(creds.Endpoint, creds.SessionToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: job %s: %w", models.ErrSessionUnavailable, jobID, err)
	}

	s.logger.Debug().
		Str("job_id", jobID).
		Str("instance", client.InstanceURL()).
		Msg("Reconnected to Salesforce")

	return client, nil
}

// Release removes the stashed credentials once a job is finished
func (s *Service) Release(ctx context.Context, jobID string) {
	for _, key := range []string{SessionKey(jobID), InstanceKey(jobID)} {
		if err := s.kv.Delete(ctx, key); err != nil {
			s.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to remove stashed credentials")
		}
	}
}
