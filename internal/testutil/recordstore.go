// Package testutil provides in-memory fakes of the external store used across package tests.
package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ternarybob/pricing-engine/internal/interfaces"
	"github.com/ternarybob/pricing-engine/internal/models"
)

// FakeRecordStore records every call and answers creates with sequential ids.
// Hooks override the default behaviour per operation.
type FakeRecordStore struct {
	mu sync.Mutex

	QueryRecords []json.RawMessage
	QueryErr     error
	DescribeErr  error

	// CreateFunc replaces the default create behaviour when set
	CreateFunc func(requests []models.CreateRequest) ([]models.CreateResult, error)
	// DeleteFunc replaces the default delete behaviour when set
	DeleteFunc func(ids []string) ([]models.CreateResult, error)

	Queries     []string
	Describes   []string
	CreateCalls [][]models.CreateRequest
	DeleteCalls [][]string

	nextID int
}

var _ interfaces.RecordStore = (*FakeRecordStore)(nil)

func (f *FakeRecordStore) QueryAll(ctx context.Context, query string) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Queries = append(f.Queries, query)
	if f.QueryErr != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrQuery, f.QueryErr)
	}
	return f.QueryRecords, nil
}

func (f *FakeRecordStore) Describe(ctx context.Context, entity string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Describes = append(f.Describes, entity)
	return f.DescribeErr
}

func (f *FakeRecordStore) Create(ctx context.Context, requests []models.CreateRequest) ([]models.CreateResult, error) {
	f.mu.Lock()
	f.CreateCalls = append(f.CreateCalls, requests)
	hook := f.CreateFunc
	f.mu.Unlock()

	if hook != nil {
		return hook(requests)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]models.CreateResult, len(requests))
	for i, req := range requests {
		f.nextID++
		results[i] = models.CreateResult{ID: fmt.Sprintf("%s-%d", req.EntityKind, f.nextID), Success: true}
	}
	return results, nil
}

func (f *FakeRecordStore) Delete(ctx context.Context, ids []string) ([]models.CreateResult, error) {
	f.mu.Lock()
	f.DeleteCalls = append(f.DeleteCalls, ids)
	hook := f.DeleteFunc
	f.mu.Unlock()

	if hook != nil {
		return hook(ids)
	}

	results := make([]models.CreateResult, len(ids))
	for i, id := range ids {
		results[i] = models.CreateResult{ID: id, Success: true}
	}
	return results, nil
}

// CreatedOf returns every create request of the given entity kind, in call order
func (f *FakeRecordStore) CreatedOf(kind string) []models.CreateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.CreateRequest
	for _, call := range f.CreateCalls {
		for _, req := range call {
			if req.EntityKind == kind {
				out = append(out, req)
			}
		}
	}
	return out
}

// CreateCallsOf returns the create calls whose first request is of the given kind
func (f *FakeRecordStore) CreateCallsOf(kind string) [][]models.CreateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out [][]models.CreateRequest
	for _, call := range f.CreateCalls {
		if len(call) > 0 && call[0].EntityKind == kind {
			out = append(out, call)
		}
	}
	return out
}

// CallCount returns the total number of calls made against the store
func (f *FakeRecordStore) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Queries) + len(f.Describes) + len(f.CreateCalls) + len(f.DeleteCalls)
}

// FakeSessions hands out a fixed store, or fails with Err
type FakeSessions struct {
	mu       sync.Mutex
	Store    interfaces.RecordStore
	Err      error
	Released []string
}

var _ interfaces.SessionProvider = (*FakeSessions)(nil)

func (s *FakeSessions) Reconstruct(ctx context.Context, jobID string) (interfaces.RecordStore, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Store, nil
}

func (s *FakeSessions) Release(ctx context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Released = append(s.Released, jobID)
}

// Record marshals a map into a raw query record
func Record(fields map[string]any) json.RawMessage {
	data, err := json.Marshal(fields)
	if err != nil {
		panic(err)
	}
	return data
}
