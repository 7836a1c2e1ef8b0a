package mocks

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schedcu/surgopt/internal/entity"
	"github.com/schedcu/surgopt/internal/repository"
)

func TestMockReferenceDataRepositoryReturnsSeededData(t *testing.T) {
	repo := NewMockReferenceDataRepository()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	ref := entity.NewReferenceData(date, []entity.Surgery{{ID: 1}}, nil, nil, nil, nil, nil, nil, nil)
	repo.Seed(date, ref)

	got, err := repo.Load(context.Background(), date)
	require.NoError(t, err)
	assert.Same(t, ref, got)
	assert.Equal(t, 1, repo.LoadCalls())
}

func TestMockReferenceDataRepositoryReturnsNotFoundForUnseededDate(t *testing.T) {
	repo := NewMockReferenceDataRepository()
	_, err := repo.Load(context.Background(), time.Now())
	assert.True(t, repository.IsNotFound(err))
}

func TestMockReferenceDataRepositoryHonorsForcedError(t *testing.T) {
	repo := NewMockReferenceDataRepository()
	boom := assert.AnError
	repo.SetLoadError(boom)

	_, err := repo.Load(context.Background(), time.Now())
	assert.ErrorIs(t, err, boom)
}
