package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
)

// EventRepositoryInterface is the append-only event log.
type EventRepositoryInterface interface {
	// Append inserts one event; events are never updated or deleted
	Append(ctx context.Context, e *model.Event) error

	// CountByType counts an account's events of one type created at or after since
	CountByType(ctx context.Context, accountID string, eventType model.EventType, since time.Time) (int, error)

	// CountBetween groups events in [start, end) by account, campaign and type
	CountBetween(ctx context.Context, start, end time.Time) ([]GroupCount, error)
}

type EventRepository struct {
	DB *sqlx.DB
}

func (r *EventRepository) Append(ctx context.Context, e *model.Event) error {
	meta := e.Meta
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	query := `
        INSERT INTO events (id, account_id, campaign_id, prospect_id, type, meta, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, e.ID, e.AccountID, e.CampaignID, e.ProspectID, e.Type, meta, e.CreatedAt)
	return err
}

func (r *EventRepository) CountByType(ctx context.Context, accountID string, eventType model.EventType, since time.Time) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM events WHERE account_id=$1 AND type=$2 AND created_at >= $3`
	err := db.Conn(ctx, r.DB).GetContext(ctx, &count, query, accountID, eventType, since)
	return count, err
}

func (r *EventRepository) CountBetween(ctx context.Context, start, end time.Time) ([]GroupCount, error) {
	query := `
        SELECT account_id, campaign_id, type, COUNT(*) AS count
        FROM events
        WHERE created_at >= $1 AND created_at < $2
        GROUP BY account_id, campaign_id, type
        ORDER BY account_id, campaign_id, type
    `
	counts := []GroupCount{}
	err := db.Conn(ctx, r.DB).SelectContext(ctx, &counts, query, start, end)
	return counts, err
}

var _ EventRepositoryInterface = (*EventRepository)(nil)
