package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type EntitlementRepositoryInterface interface {
	Get(ctx context.Context, accountID string) (*model.Entitlement, error)
	Upsert(ctx context.Context, ent *model.Entitlement) error
	GetPlan(ctx context.Context, accountID string) (model.Plan, error)
	UpsertSubscription(ctx context.Context, sub *model.Subscription) error
	MarkPlanEventProcessed(ctx context.Context, eventID string, at time.Time) (bool, error)
}

type EntitlementRepository struct {
	DB *sqlx.DB
}

// Get returns nil without error when no override row exists.
func (r *EntitlementRepository) Get(ctx context.Context, accountID string) (*model.Entitlement, error) {
	var ent model.Entitlement
	query := `
        SELECT account_id, emails_per_hour, campaigns_max, prospects_max, linkedin_actions_per_day
        FROM entitlements WHERE account_id=$1
    `
	if err := db.Conn(ctx, r.DB).GetContext(ctx, &ent, query, accountID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &ent, nil
}

func (r *EntitlementRepository) Upsert(ctx context.Context, ent *model.Entitlement) error {
	query := `
        INSERT INTO entitlements (account_id, emails_per_hour, campaigns_max, prospects_max, linkedin_actions_per_day)
        VALUES (:account_id, :emails_per_hour, :campaigns_max, :prospects_max, :linkedin_actions_per_day)
        ON CONFLICT (account_id) DO UPDATE SET
            emails_per_hour = EXCLUDED.emails_per_hour,
            campaigns_max = EXCLUDED.campaigns_max,
            prospects_max = EXCLUDED.prospects_max,
            linkedin_actions_per_day = EXCLUDED.linkedin_actions_per_day
    `
	_, err := db.Conn(ctx, r.DB).NamedExecContext(ctx, query, ent)
	return err
}

// GetPlan returns the subscribed plan, or starter when there is no subscription.
func (r *EntitlementRepository) GetPlan(ctx context.Context, accountID string) (model.Plan, error) {
	var plan model.Plan
	err := db.Conn(ctx, r.DB).GetContext(ctx, &plan, `SELECT plan FROM subscriptions WHERE account_id=$1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PlanStarter, nil
		}
		return "", err
	}
	return plan, nil
}

func (r *EntitlementRepository) UpsertSubscription(ctx context.Context, sub *model.Subscription) error {
	query := `
        INSERT INTO subscriptions (account_id, plan, status, updated_at)
        VALUES (:account_id, :plan, :status, :updated_at)
        ON CONFLICT (account_id) DO UPDATE SET
            plan = EXCLUDED.plan,
            status = EXCLUDED.status,
            updated_at = EXCLUDED.updated_at
    `
	_, err := db.Conn(ctx, r.DB).NamedExecContext(ctx, query, sub)
	return err
}

// MarkPlanEventProcessed records a plan-change delivery id. It reports false
// when the id was already recorded.
func (r *EntitlementRepository) MarkPlanEventProcessed(ctx context.Context, eventID string, at time.Time) (bool, error) {
	query := `
        INSERT INTO processed_plan_events (event_id, processed_at) VALUES ($1, $2)
        ON CONFLICT (event_id) DO NOTHING
    `
	return affectedOne(db.Conn(ctx, r.DB).ExecContext(ctx, query, eventID, at))
}

var _ EntitlementRepositoryInterface = (*EntitlementRepository)(nil)
