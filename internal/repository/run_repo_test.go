package repository

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/models"
	"github.com/nvoss/leakscope/pkg/database"
)

func newTestRepo(t *testing.T) *RunRepository {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, database.NewMigrator(db, logger).RunMigrations("../../migrations"))
	return NewRunRepository(db.DB, logger)
}

func TestRunRepositoryCreateAndGet(t *testing.T) {
	repo := newTestRepo(t)

	run := &models.AnalysisRun{
		ID:               uuid.NewString(),
		FileName:         "week1.csv",
		Category:         models.CategoryPaymentReport,
		Confidence:       0.92,
		TotalRevenue:     5200,
		NetProfit:        3985,
		TotalRecoverable: 128,
		IsEstimate:       true,
		IssueCount:       2,
	}
	require.NoError(t, repo.Create(run))

	got, err := repo.GetByID(run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, run.FileName, got.FileName)
	assert.Equal(t, run.Category, got.Category)
	assert.Equal(t, run.TotalRecoverable, got.TotalRecoverable)
	assert.True(t, got.IsEstimate)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestRunRepositoryGetMissing(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetByID(uuid.NewString())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRunRepositoryList(t *testing.T) {
	repo := newTestRepo(t)

	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		require.NoError(t, repo.Create(&models.AnalysisRun{
			ID:       uuid.NewString(),
			FileName: name,
			Category: models.CategoryOther,
		}))
	}

	runs, err := repo.List(2, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)

	rest, err := repo.List(10, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}
