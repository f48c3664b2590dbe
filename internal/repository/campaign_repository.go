package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	// Campaigns
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	CountByAccount(ctx context.Context, accountID string) (int, error)

	// Sequence steps
	CreateSteps(ctx context.Context, steps []model.SequenceStep) error
	GetStep(ctx context.Context, campaignID string, stepNumber int) (*model.SequenceStep, error)

	// Campaign-prospect links
	LinkProspects(ctx context.Context, links []model.CampaignProspect) error
	UpdateLinkStatus(ctx context.Context, campaignID, prospectID string, status model.LinkStatus, at time.Time) error
	MarkLinkOpened(ctx context.Context, campaignID, prospectID string, at time.Time) error
	SetConnectionStatus(ctx context.Context, campaignID, prospectID string, status model.ConnectionStatus) (bool, error)
}

type CampaignRepository struct {
	DB *sqlx.DB
}

// ====================== Campaigns ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	query := `
        INSERT INTO campaigns (id, account_id, name, objective, language, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, c.ID, c.AccountID, c.Name, c.Objective, c.Language, c.CreatedAt)
	return err
}

func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `
        SELECT id, account_id, name, objective, language, created_at
        FROM campaigns WHERE id=$1
    `
	var c model.Campaign
	if err := db.Conn(ctx, r.DB).GetContext(ctx, &c, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) CountByAccount(ctx context.Context, accountID string) (int, error) {
	var count int
	err := db.Conn(ctx, r.DB).GetContext(ctx, &count, `SELECT COUNT(*) FROM campaigns WHERE account_id=$1`, accountID)
	return count, err
}

// ====================== Sequence steps ======================

func (r *CampaignRepository) CreateSteps(ctx context.Context, steps []model.SequenceStep) error {
	if len(steps) == 0 {
		return nil
	}
	query := `
        INSERT INTO email_sequences (campaign_id, step_number, delay_hours, purpose, ai_prompt_template)
        VALUES (:campaign_id, :step_number, :delay_hours, :purpose, :ai_prompt_template)
    `
	_, err := db.Conn(ctx, r.DB).NamedExecContext(ctx, query, steps)
	return err
}

// GetStep returns nil without error when the campaign has no such step.
func (r *CampaignRepository) GetStep(ctx context.Context, campaignID string, stepNumber int) (*model.SequenceStep, error) {
	query := `
        SELECT campaign_id, step_number, delay_hours, purpose, ai_prompt_template
        FROM email_sequences
        WHERE campaign_id=$1 AND step_number=$2
    `
	var s model.SequenceStep
	if err := db.Conn(ctx, r.DB).GetContext(ctx, &s, query, campaignID, stepNumber); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ====================== Links ======================

// LinkProspects is idempotent per (campaign, prospect).
func (r *CampaignRepository) LinkProspects(ctx context.Context, links []model.CampaignProspect) error {
	if len(links) == 0 {
		return nil
	}
	query := `
        INSERT INTO campaign_prospects (campaign_id, prospect_id, status, connection_status, last_event_at)
        VALUES (:campaign_id, :prospect_id, :status, :connection_status, :last_event_at)
        ON CONFLICT (campaign_id, prospect_id) DO NOTHING
    `
	_, err := db.Conn(ctx, r.DB).NamedExecContext(ctx, query, links)
	return err
}

func (r *CampaignRepository) UpdateLinkStatus(ctx context.Context, campaignID, prospectID string, status model.LinkStatus, at time.Time) error {
	query := `UPDATE campaign_prospects SET status=$1, last_event_at=$2 WHERE campaign_id=$3 AND prospect_id=$4`
	res, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, status, at, campaignID, prospectID)
	if err != nil {
		return err
	}
	return requireAffected(res, "campaign prospect", campaignID+"/"+prospectID)
}

// MarkLinkOpened only advances links that are currently "sent".
func (r *CampaignRepository) MarkLinkOpened(ctx context.Context, campaignID, prospectID string, at time.Time) error {
	query := `
        UPDATE campaign_prospects SET status='opened', last_event_at=$1
        WHERE campaign_id=$2 AND prospect_id=$3 AND status='sent'
    `
	_, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, at, campaignID, prospectID)
	return err
}

// SetConnectionStatus reports whether the stored status actually changed.
func (r *CampaignRepository) SetConnectionStatus(ctx context.Context, campaignID, prospectID string, status model.ConnectionStatus) (bool, error) {
	conn := db.Conn(ctx, r.DB)
	query := `
        UPDATE campaign_prospects SET connection_status=$1
        WHERE campaign_id=$2 AND prospect_id=$3 AND connection_status IS DISTINCT FROM $1
    `
	res, err := conn.ExecContext(ctx, query, status, campaignID, prospectID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n > 0 {
		return true, nil
	}

	var exists bool
	err = conn.QueryRowxContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM campaign_prospects WHERE campaign_id=$1 AND prospect_id=$2)`,
		campaignID, prospectID).Scan(&exists)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, appErrors.NewNotFound("campaign prospect", campaignID+"/"+prospectID)
	}
	return false, nil
}

func requireAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewNotFound(kind, id)
	}
	return nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
