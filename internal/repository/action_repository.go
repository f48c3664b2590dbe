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

type ActionRepositoryInterface interface {
	Create(ctx context.Context, actions []model.LinkedAction) error
	CreateFollowUp(ctx context.Context, a *model.LinkedAction) (bool, error)
	GetByID(ctx context.Context, accountID, id string) (*model.LinkedAction, error)
	Complete(ctx context.Context, accountID, id string, status model.ActionStatus, at time.Time) (bool, error)
	Reschedule(ctx context.Context, accountID, id string, dueAt time.Time) (bool, error)
	SetMessage(ctx context.Context, id, text string) error
	CountDoneSince(ctx context.Context, accountID string, since time.Time) (int, error)
	ListDuePending(ctx context.Context, now time.Time, limit int) ([]model.LinkedAction, error)
	CountPendingDueBetween(ctx context.Context, start, end time.Time) ([]GroupCount, error)
	CountDoneBetween(ctx context.Context, start, end time.Time) ([]GroupCount, error)
}

// GroupCount is a count for one (account, campaign) pair, optionally per type.
type GroupCount struct {
	AccountID  string  `db:"account_id"`
	CampaignID *string `db:"campaign_id"`
	Type       string  `db:"type"`
	Count      int     `db:"count"`
}

type ActionRepository struct {
	DB *sqlx.DB
}

const actionColumns = `id, account_id, campaign_id, prospect_id, action_type, due_at, status, ai_message, done_at, created_at`

func (r *ActionRepository) Create(ctx context.Context, actions []model.LinkedAction) error {
	if len(actions) == 0 {
		return nil
	}
	query := `
        INSERT INTO linkedin_actions (id, account_id, campaign_id, prospect_id, action_type, due_at, status, created_at)
        VALUES (:id, :account_id, :campaign_id, :prospect_id, :action_type, :due_at, :status, :created_at)
    `
	_, err := db.Conn(ctx, r.DB).NamedExecContext(ctx, query, actions)
	return err
}

// CreateFollowUp inserts a follow-up action unless one already exists for the
// same link; the partial unique index on follow_up_msg enforces this.
func (r *ActionRepository) CreateFollowUp(ctx context.Context, a *model.LinkedAction) (bool, error) {
	query := `
        INSERT INTO linkedin_actions (id, account_id, campaign_id, prospect_id, action_type, due_at, status, created_at)
        VALUES ($1, $2, $3, $4, 'follow_up_msg', $5, 'pending', $6)
        ON CONFLICT (campaign_id, prospect_id) WHERE action_type = 'follow_up_msg' DO NOTHING
    `
	res, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, a.ID, a.AccountID, a.CampaignID, a.ProspectID, a.DueAt, a.CreatedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *ActionRepository) GetByID(ctx context.Context, accountID, id string) (*model.LinkedAction, error) {
	var a model.LinkedAction
	err := db.Conn(ctx, r.DB).GetContext(ctx, &a,
		`SELECT `+actionColumns+` FROM linkedin_actions WHERE id=$1 AND account_id=$2`, id, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("action", id)
		}
		return nil, err
	}
	return &a, nil
}

// Complete moves a pending action to a terminal status. It reports false when
// the action was no longer pending.
func (r *ActionRepository) Complete(ctx context.Context, accountID, id string, status model.ActionStatus, at time.Time) (bool, error) {
	var doneAt *time.Time
	if status == model.ActionDone {
		doneAt = &at
	}
	query := `
        UPDATE linkedin_actions SET status=$1, done_at=$2
        WHERE id=$3 AND account_id=$4 AND status='pending'
    `
	return affectedOne(db.Conn(ctx, r.DB).ExecContext(ctx, query, status, doneAt, id, accountID))
}

func (r *ActionRepository) Reschedule(ctx context.Context, accountID, id string, dueAt time.Time) (bool, error) {
	query := `UPDATE linkedin_actions SET due_at=$1 WHERE id=$2 AND account_id=$3 AND status='pending'`
	return affectedOne(db.Conn(ctx, r.DB).ExecContext(ctx, query, dueAt, id, accountID))
}

func (r *ActionRepository) SetMessage(ctx context.Context, id, text string) error {
	res, err := db.Conn(ctx, r.DB).ExecContext(ctx, `UPDATE linkedin_actions SET ai_message=$1 WHERE id=$2`, text, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "action", id)
}

func (r *ActionRepository) CountDoneSince(ctx context.Context, accountID string, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM linkedin_actions WHERE account_id=$1 AND status='done' AND done_at >= $2`
	err := db.Conn(ctx, r.DB).GetContext(ctx, &count, query, accountID, since)
	return count, err
}

func (r *ActionRepository) ListDuePending(ctx context.Context, now time.Time, limit int) ([]model.LinkedAction, error) {
	query := `
        SELECT ` + actionColumns + `
        FROM linkedin_actions
        WHERE status='pending' AND due_at <= $1
        ORDER BY due_at ASC
        LIMIT $2
    `
	actions := []model.LinkedAction{}
	err := db.Conn(ctx, r.DB).SelectContext(ctx, &actions, query, now, limit)
	return actions, err
}

func (r *ActionRepository) CountPendingDueBetween(ctx context.Context, start, end time.Time) ([]GroupCount, error) {
	query := `
        SELECT account_id, campaign_id, '' AS type, COUNT(*) AS count
        FROM linkedin_actions
        WHERE status='pending' AND due_at >= $1 AND due_at < $2
        GROUP BY account_id, campaign_id
        ORDER BY account_id, campaign_id
    `
	counts := []GroupCount{}
	err := db.Conn(ctx, r.DB).SelectContext(ctx, &counts, query, start, end)
	return counts, err
}

func (r *ActionRepository) CountDoneBetween(ctx context.Context, start, end time.Time) ([]GroupCount, error) {
	query := `
        SELECT account_id, campaign_id, '' AS type, COUNT(*) AS count
        FROM linkedin_actions
        WHERE status='done' AND done_at >= $1 AND done_at < $2
        GROUP BY account_id, campaign_id
        ORDER BY account_id, campaign_id
    `
	counts := []GroupCount{}
	err := db.Conn(ctx, r.DB).SelectContext(ctx, &counts, query, start, end)
	return counts, err
}

func affectedOne(res sql.Result, err error) (bool, error) {
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var _ ActionRepositoryInterface = (*ActionRepository)(nil)
