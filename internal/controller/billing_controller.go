package controller

import (
	"context"
	"net/http"

	"github.com/unclebandit/outreach-backend/internal/service"
)

type PlanChanger interface {
	ApplyPlanChange(ctx context.Context, change service.PlanChange) (bool, error)
}

var _ PlanChanger = (*service.QuotaService)(nil)

// BillingController receives plan changes from the subscription provider.
type BillingController struct {
	Plans PlanChanger
}

func (c *BillingController) PlanChange(w http.ResponseWriter, r *http.Request) {
	var body service.PlanChange
	if err := decode(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	applied, err := c.Plans.ApplyPlanChange(r.Context(), body)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true, "applied": applied})
}
