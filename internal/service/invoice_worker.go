package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

type OverdueResult struct {
	Updated int `json:"updated"`
}

// OverdueDetector flags draft and sent invoices whose due date has passed.
type OverdueDetector struct {
	Invoices repository.InvoiceRepositoryInterface
	Events   repository.EventRepositoryInterface
	Provider db.Provider
	Log      *zap.Logger
	Now      func() time.Time
}

func (d *OverdueDetector) Run(ctx context.Context) (OverdueResult, error) {
	now := d.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	invoices, err := d.Invoices.ListOverdue(ctx, today)
	if err != nil {
		return OverdueResult{}, fmt.Errorf("list overdue invoices: %w", err)
	}

	var result OverdueResult
	for _, inv := range invoices {
		updated := false
		err := d.Provider.Transact(ctx, func(ctx context.Context) error {
			ok, err := d.Invoices.MarkOverdue(ctx, inv.ID)
			if err != nil || !ok {
				return err
			}
			updated = true
			meta, _ := json.Marshal(map[string]string{"invoice_id": inv.ID, "total": inv.Total.StringFixed(2)})
			return d.Events.Append(ctx, &model.Event{
				ID:        uuid.NewString(),
				AccountID: inv.AccountID,
				Type:      model.EventInvoiceOverdue,
				Meta:      meta,
				CreatedAt: now,
			})
		})
		if err != nil {
			d.Log.Error("Marking invoice overdue failed", zap.String("invoice_id", inv.ID), zap.Error(err))
			continue
		}
		if updated {
			result.Updated++
		}
	}
	return result, nil
}
