package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// ProspectRepositoryInterface defines methods used by services
type ProspectRepositoryInterface interface {
	GetByID(ctx context.Context, id string) (*model.Prospect, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)
	Upsert(ctx context.Context, prospects []model.Prospect) ([]model.Prospect, error)
	UpdatePipelineStatus(ctx context.Context, accountID, id string, status model.PipelineStatus) error
}

type ProspectRepository struct {
	DB *sqlx.DB
}

const prospectColumns = `id, account_id, first_name, last_name, company, title, email, linkedin_url, notes, pipeline_status, created_at`

// GetByID fetches a prospect by ID
func (r *ProspectRepository) GetByID(ctx context.Context, id string) (*model.Prospect, error) {
	var p model.Prospect
	err := db.Conn(ctx, r.DB).GetContext(ctx, &p, `SELECT `+prospectColumns+` FROM prospects WHERE id=$1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("prospect", id)
		}
		return nil, err
	}
	return &p, nil
}

func (r *ProspectRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := db.Conn(ctx, r.DB).GetContext(ctx, &count, `SELECT COUNT(*) FROM prospects WHERE account_id=$1`, accountID)
	return count, err
}

// Upsert inserts or refreshes prospects keyed by (account_id, email) and
// returns the stored rows in input order.
func (r *ProspectRepository) Upsert(ctx context.Context, prospects []model.Prospect) ([]model.Prospect, error) {
	query := `
        INSERT INTO prospects (id, account_id, first_name, last_name, company, title, email, linkedin_url, notes, pipeline_status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (account_id, email) DO UPDATE SET
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            company = EXCLUDED.company,
            title = EXCLUDED.title,
            linkedin_url = EXCLUDED.linkedin_url,
            notes = EXCLUDED.notes
        RETURNING ` + prospectColumns

	conn := db.Conn(ctx, r.DB)
	stored := make([]model.Prospect, 0, len(prospects))
	for _, p := range prospects {
		var out model.Prospect
		err := conn.QueryRowxContext(ctx, query,
			p.ID, p.AccountID, p.FirstName, p.LastName, p.Company, p.Title, p.Email,
			p.LinkedInURL, p.Notes, p.PipelineStatus, p.CreatedAt,
		).StructScan(&out)
		if err != nil {
			return nil, err
		}
		stored = append(stored, out)
	}
	return stored, nil
}

func (r *ProspectRepository) UpdatePipelineStatus(ctx context.Context, accountID, id string, status model.PipelineStatus) error {
	res, err := db.Conn(ctx, r.DB).ExecContext(ctx,
		`UPDATE prospects SET pipeline_status=$1 WHERE id=$2 AND account_id=$3`, status, id, accountID)
	if err != nil {
		return err
	}
	return requireAffected(res, "prospect", id)
}

var _ ProspectRepositoryInterface = (*ProspectRepository)(nil)
