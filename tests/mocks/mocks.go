// Package mocks provides test doubles for the optimizer's collaborator
// interfaces, used by the API and job handler test suites.
package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/repository"
)

// MockReferenceDataRepository is an in-memory repository.ReferenceDataRepository
// double that returns a canned dataset or a canned error per date.
type MockReferenceDataRepository struct {
	mu       sync.RWMutex
	byDate   map[string]*entity.ReferenceData
	loadErr  error
	loadCalls int
}

// NewMockReferenceDataRepository creates an empty mock repository.
func NewMockReferenceDataRepository() *MockReferenceDataRepository {
	return &MockReferenceDataRepository{byDate: make(map[string]*entity.ReferenceData)}
}

// Seed registers the reference data to return for date.
func (m *MockReferenceDataRepository) Seed(date time.Time, ref *entity.ReferenceData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byDate[dateKey(date)] = ref
}

// SetLoadError forces every subsequent Load call to return err.
func (m *MockReferenceDataRepository) SetLoadError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

// LoadCalls returns how many times Load has been invoked.
func (m *MockReferenceDataRepository) LoadCalls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadCalls
}

// Load implements repository.ReferenceDataRepository.
func (m *MockReferenceDataRepository) Load(_ context.Context, date time.Time) (*entity.ReferenceData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls++

	if m.loadErr != nil {
		return nil, m.loadErr
	}
	ref, ok := m.byDate[dateKey(date)]
	if !ok {
		return nil, &repository.NotFoundError{ResourceType: "reference_data", ResourceID: dateKey(date)}
	}
	return ref, nil
}

func dateKey(date time.Time) string {
	return date.UTC().Format("2006-01-02")
}
