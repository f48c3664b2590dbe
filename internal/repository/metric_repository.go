package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type MetricRepositoryInterface interface {
	Upsert(ctx context.Context, m *model.DailyMetric) error
	DeleteDay(ctx context.Context, day string) error
	ListByCampaign(ctx context.Context, campaignID string) ([]model.DailyMetric, error)
	ListByDay(ctx context.Context, day string) ([]model.DailyMetric, error)
}

type MetricRepository struct {
	DB *sqlx.DB
}

const metricColumns = `account_id, campaign_id, to_char(day, 'YYYY-MM-DD') AS day, emails_scheduled, emails_sent,
        opens, replies, bounces, linkedin_pending, linkedin_done`

// Upsert overwrites the row for (account, campaign-or-null, day). The
// conflict target matches the expression index metrics_daily_key.
func (r *MetricRepository) Upsert(ctx context.Context, m *model.DailyMetric) error {
	query := `
        INSERT INTO metrics_daily (account_id, campaign_id, day, emails_scheduled, emails_sent, opens, replies,
            bounces, linkedin_pending, linkedin_done)
        VALUES (:account_id, :campaign_id, CAST(:day AS date), :emails_scheduled, :emails_sent, :opens, :replies,
            :bounces, :linkedin_pending, :linkedin_done)
        ON CONFLICT (account_id, (COALESCE(campaign_id, '')), day) DO UPDATE SET
            emails_scheduled = EXCLUDED.emails_scheduled,
            emails_sent = EXCLUDED.emails_sent,
            opens = EXCLUDED.opens,
            replies = EXCLUDED.replies,
            bounces = EXCLUDED.bounces,
            linkedin_pending = EXCLUDED.linkedin_pending,
            linkedin_done = EXCLUDED.linkedin_done
    `
	_, err := db.Conn(ctx, r.DB).NamedExecContext(ctx, query, m)
	return err
}

// DeleteDay clears every row of a day ahead of a full recompute.
func (r *MetricRepository) DeleteDay(ctx context.Context, day string) error {
	_, err := db.Conn(ctx, r.DB).ExecContext(ctx, `DELETE FROM metrics_daily WHERE day=CAST($1 AS date)`, day)
	return err
}

func (r *MetricRepository) ListByCampaign(ctx context.Context, campaignID string) ([]model.DailyMetric, error) {
	rows := []model.DailyMetric{}
	query := `SELECT ` + metricColumns + ` FROM metrics_daily WHERE campaign_id=$1 ORDER BY day ASC`
	err := db.Conn(ctx, r.DB).SelectContext(ctx, &rows, query, campaignID)
	return rows, err
}

func (r *MetricRepository) ListByDay(ctx context.Context, day string) ([]model.DailyMetric, error) {
	rows := []model.DailyMetric{}
	query := `SELECT ` + metricColumns + ` FROM metrics_daily WHERE day=CAST($1 AS date) ORDER BY account_id, campaign_id NULLS LAST`
	err := db.Conn(ctx, r.DB).SelectContext(ctx, &rows, query, day)
	return rows, err
}

var _ MetricRepositoryInterface = (*MetricRepository)(nil)
