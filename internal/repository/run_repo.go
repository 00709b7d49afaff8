package repository

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/nvoss/leakscope/internal/models"
)

// RunRepository persists analysis run summaries for the monitoring surface.
type RunRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *sql.DB, logger *zap.Logger) *RunRepository {
	return &RunRepository{db: db, logger: logger}
}

// Create inserts a new analysis run record.
func (r *RunRepository) Create(run *models.AnalysisRun) error {
	query := `
		INSERT INTO analysis_runs (
			id, file_name, category, confidence, total_revenue,
			net_profit, total_recoverable, is_estimate, issue_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		run.ID,
		run.FileName,
		run.Category,
		run.Confidence,
		run.TotalRevenue,
		run.NetProfit,
		run.TotalRecoverable,
		run.IsEstimate,
		run.IssueCount,
	)
	if err != nil {
		r.logger.Error("Failed to create analysis run", zap.Error(err))
		return fmt.Errorf("failed to create analysis run: %w", err)
	}

	return nil
}

// List returns the most recent runs, newest first.
func (r *RunRepository) List(limit, offset int) ([]*models.AnalysisRun, error) {
	query := `
		SELECT id, file_name, category, confidence, total_revenue,
			net_profit, total_recoverable, is_estimate, issue_count, created_at
		FROM analysis_runs
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list analysis runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.AnalysisRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetByID retrieves a single run, or nil when absent.
func (r *RunRepository) GetByID(id string) (*models.AnalysisRun, error) {
	query := `
		SELECT id, file_name, category, confidence, total_revenue,
			net_profit, total_recoverable, is_estimate, issue_count, created_at
		FROM analysis_runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get analysis run: %w", err)
	}
	return run, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*models.AnalysisRun, error) {
	var run models.AnalysisRun
	err := row.Scan(
		&run.ID,
		&run.FileName,
		&run.Category,
		&run.Confidence,
		&run.TotalRevenue,
		&run.NetProfit,
		&run.TotalRecoverable,
		&run.IsEstimate,
		&run.IssueCount,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &run, nil
}
