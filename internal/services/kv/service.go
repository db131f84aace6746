// -----------------------------------------------------------------------
// Last Modified: Thursday, 15th October 2026 10:40:00 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/pricing-engine/internal/interfaces"
)

// Service provides logging key/value operations over a storage backend
type Service struct {
	storage interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewService creates a new key/value service
func NewService(storage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Get retrieves a value by key
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	value, err := s.storage.Get(ctx, key)
	if err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			s.logger.Debug().Str("key", key).Msg("Key not found")
		} else {
			s.logger.Error().Err(err).Str("key", key).Msg("Failed to get key/value pair")
		}
		return "", err
	}

	s.logger.Debug().Str("key", key).Msg("Retrieved key/value pair")
	return value, nil
}

// Set stores or updates a key/value pair
func (s *Service) Set(ctx context.Context, key string, value string, description string) error {
	if key == "" {
		return fmt.Errorf("key cannot be empty")
	}

	if err := s.storage.Set(ctx, key, value, description); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to store key/value pair")
		return err
	}

	s.logger.Debug().Str("key", key).Msg("Stored key/value pair")
	return nil
}

// Delete removes a key/value pair. A missing key is not an error.
func (s *Service) Delete(ctx context.Context, key string) error {
	err := s.storage.Delete(ctx, key)
	if err != nil && !errors.Is(err, interfaces.ErrKeyNotFound) {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to delete key/value pair")
		return err
	}

	s.logger.Debug().Str("key", key).Msg("Deleted key/value pair")
	return nil
}
