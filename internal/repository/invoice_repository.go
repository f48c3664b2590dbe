package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type InvoiceRepositoryInterface interface {
	ListOverdue(ctx context.Context, today time.Time) ([]model.Invoice, error)
	MarkOverdue(ctx context.Context, id string) (bool, error)
}

type InvoiceRepository struct {
	DB *sqlx.DB
}

// ListOverdue returns draft or sent invoices whose due date is before today.
func (r *InvoiceRepository) ListOverdue(ctx context.Context, today time.Time) ([]model.Invoice, error) {
	query := `
        SELECT id, account_id, number, status, due_date, total
        FROM invoices
        WHERE status IN ('draft', 'sent') AND due_date < CAST($1 AS date)
        ORDER BY due_date ASC
    `
	invoices := []model.Invoice{}
	err := db.Conn(ctx, r.DB).SelectContext(ctx, &invoices, query, today.UTC().Format("2006-01-02"))
	return invoices, err
}

func (r *InvoiceRepository) MarkOverdue(ctx context.Context, id string) (bool, error) {
	query := `UPDATE invoices SET status='overdue' WHERE id=$1 AND status IN ('draft', 'sent')`
	return affectedOne(db.Conn(ctx, r.DB).ExecContext(ctx, query, id))
}

var _ InvoiceRepositoryInterface = (*InvoiceRepository)(nil)
