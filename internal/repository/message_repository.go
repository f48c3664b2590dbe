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

type MessageRepositoryInterface interface {
	Create(ctx context.Context, msgs []model.ScheduledMessage) error
	ListDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]model.ScheduledMessage, error)
	Claim(ctx context.Context, msg *model.ScheduledMessage, now time.Time) (bool, error)
	Release(ctx context.Context, id string) error
	MarkSent(ctx context.Context, id string, sentAt time.Time, token, subject, body string) error
	MarkFailed(ctx context.Context, id, reason string) error
	GetByToken(ctx context.Context, token string) (*model.ScheduledMessage, error)
	MarkOpened(ctx context.Context, id string, at time.Time) (bool, error)
	StatusCounts(ctx context.Context, campaignID string) (map[string]int, error)
}

// MessageRepository stores scheduled outreach emails.
type MessageRepository struct {
	DB *sqlx.DB
}

const messageColumns = `id, campaign_id, prospect_id, sequence_step, scheduled_at, status, subject, body_html,
        tracking_token, error, claimed_at, sent_at, opened_at, created_at`

func (r *MessageRepository) Create(ctx context.Context, msgs []model.ScheduledMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	query := `
        INSERT INTO email_messages (id, campaign_id, prospect_id, sequence_step, scheduled_at, status, created_at)
        VALUES (:id, :campaign_id, :prospect_id, :sequence_step, :scheduled_at, :status, :created_at)
    `
	_, err := db.Conn(ctx, r.DB).NamedExecContext(ctx, query, msgs)
	return err
}

// ListDue returns scheduled messages due at now, plus claims older than
// staleBefore left behind by an interrupted invocation, earliest first.
func (r *MessageRepository) ListDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]model.ScheduledMessage, error) {
	query := `
        SELECT ` + messageColumns + `
        FROM email_messages
        WHERE (status='scheduled' AND scheduled_at <= $1)
           OR (status='sending' AND claimed_at < $2)
        ORDER BY scheduled_at ASC
        LIMIT $3
    `
	msgs := []model.ScheduledMessage{}
	err := db.Conn(ctx, r.DB).SelectContext(ctx, &msgs, query, now, staleBefore, limit)
	return msgs, err
}

// Claim moves a message into the provisional "sending" state. The update only
// applies when the row still holds the status and claim time that were read,
// so exactly one concurrent invocation wins.
func (r *MessageRepository) Claim(ctx context.Context, msg *model.ScheduledMessage, now time.Time) (bool, error) {
	query := `
        UPDATE email_messages SET status='sending', claimed_at=$1
        WHERE id=$2 AND status=$3 AND claimed_at IS NOT DISTINCT FROM $4
    `
	res, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, now, msg.ID, msg.Status, msg.ClaimedAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// Release returns a claimed message to the scheduled pool.
func (r *MessageRepository) Release(ctx context.Context, id string) error {
	query := `UPDATE email_messages SET status='scheduled', claimed_at=NULL WHERE id=$1 AND status='sending'`
	_, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, id)
	return err
}

func (r *MessageRepository) MarkSent(ctx context.Context, id string, sentAt time.Time, token, subject, body string) error {
	query := `
        UPDATE email_messages
        SET status='sent', sent_at=$1, tracking_token=$2, subject=$3, body_html=$4, error=NULL
        WHERE id=$5
    `
	res, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, sentAt, token, subject, body, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "message", id)
}

func (r *MessageRepository) MarkFailed(ctx context.Context, id, reason string) error {
	query := `UPDATE email_messages SET status='failed', error=$1 WHERE id=$2`
	res, err := db.Conn(ctx, r.DB).ExecContext(ctx, query, reason, id)
	if err != nil {
		return err
	}
	return requireAffected(res, "message", id)
}

func (r *MessageRepository) GetByToken(ctx context.Context, token string) (*model.ScheduledMessage, error) {
	var msg model.ScheduledMessage
	err := db.Conn(ctx, r.DB).GetContext(ctx, &msg,
		`SELECT `+messageColumns+` FROM email_messages WHERE tracking_token=$1`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewNotFound("message", token)
		}
		return nil, err
	}
	return &msg, nil
}

// MarkOpened records the first open only; later hits report false.
func (r *MessageRepository) MarkOpened(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := db.Conn(ctx, r.DB).ExecContext(ctx,
		`UPDATE email_messages SET opened_at=$1 WHERE id=$2 AND opened_at IS NULL`, at, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *MessageRepository) StatusCounts(ctx context.Context, campaignID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM email_messages WHERE campaign_id=$1 GROUP BY status`
	rows, err := db.Conn(ctx, r.DB).QueryxContext(ctx, query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"total": 0, "scheduled": 0, "sending": 0, "sent": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
		stats["total"] += count
	}
	return stats, rows.Err()
}

var _ MessageRepositoryInterface = (*MessageRepository)(nil)
