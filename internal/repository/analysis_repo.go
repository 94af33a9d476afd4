package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"lexassist-backend/internal/models"
)

type AnalysisRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisRepo(pool *pgxpool.Pool) *AnalysisRepo {
	return &AnalysisRepo{pool: pool}
}

func (r *AnalysisRepo) Create(ctx context.Context, a *models.AnalysisRecord) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.KeyFindings == nil {
		a.KeyFindings = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}

	query := `INSERT INTO document_analyses
		(id, file_name, document_type, risk_assessment, key_findings, recommendations, summary)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		a.ID, a.FileName, a.DocumentType, string(a.RiskAssessment), a.KeyFindings, a.Recommendations, a.Summary,
	).Scan(&a.CreatedAt)
}

// ListRecent returns up to limit analyses, newest first.
func (r *AnalysisRepo) ListRecent(ctx context.Context, limit int) ([]*models.AnalysisRecord, error) {
	query := `SELECT id, file_name, document_type, risk_assessment, key_findings, recommendations, summary, created_at
		FROM document_analyses ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.AnalysisRecord
	for rows.Next() {
		a := &models.AnalysisRecord{}
		var risk string
		if err := rows.Scan(
			&a.ID, &a.FileName, &a.DocumentType, &risk, &a.KeyFindings, &a.Recommendations, &a.Summary, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.RiskAssessment = models.RiskLevel(risk)
		records = append(records, a)
	}

	return records, rows.Err()
}
