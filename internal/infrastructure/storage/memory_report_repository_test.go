package storage

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"card-grader/internal/domain/entity"
)

func TestMemoryReportRepository_SaveAndGet(t *testing.T) {
	repo := NewMemoryReportRepository(0)
	ctx := context.Background()

	_, err := repo.Latest(ctx)
	require.ErrorIs(t, err, entity.ErrReportNotFound)

	report := &entity.GradingReport{RunID: uuid.New(), Mode: entity.CompositeOverlay}
	require.NoError(t, repo.Save(ctx, report))

	got, err := repo.Get(ctx, report.RunID)
	require.NoError(t, err)
	require.Same(t, report, got)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.Same(t, report, latest)

	_, err = repo.Get(ctx, uuid.New())
	require.ErrorIs(t, err, entity.ErrReportNotFound)
}

func TestMemoryReportRepository_EvictsOldest(t *testing.T) {
	repo := NewMemoryReportRepository(2)
	ctx := context.Background()

	first := &entity.GradingReport{RunID: uuid.New()}
	second := &entity.GradingReport{RunID: uuid.New()}
	third := &entity.GradingReport{RunID: uuid.New()}
	for _, r := range []*entity.GradingReport{first, second, third} {
		require.NoError(t, repo.Save(ctx, r))
	}

	require.Equal(t, 2, repo.Len())
	_, err := repo.Get(ctx, first.RunID)
	require.ErrorIs(t, err, entity.ErrReportNotFound)

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, third.RunID, latest.RunID)
}

func TestMemoryReportRepository_ResaveKeepsOrder(t *testing.T) {
	repo := NewMemoryReportRepository(4)
	ctx := context.Background()

	report := &entity.GradingReport{RunID: uuid.New()}
	require.NoError(t, repo.Save(ctx, report))
	require.NoError(t, repo.Save(ctx, report))
	require.Equal(t, 1, repo.Len())

	require.Error(t, repo.Save(ctx, nil))
}
