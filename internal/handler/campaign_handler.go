// internal/handler/campaign_handler.go
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/controller"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type CampaignReporter interface {
	Report(ctx context.Context, accountID, campaignID string) (*service.CampaignReport, error)
}

var _ CampaignReporter = (*service.CampaignService)(nil)

// CampaignHandler serves read-only campaign views.
type CampaignHandler struct {
	Reports CampaignReporter
	Log     *zap.Logger
}

func NewCampaignHandler(reports CampaignReporter, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{Reports: reports, Log: log}
}

// GetCampaignReport returns the campaign with message status counts and daily metrics.
func (h *CampaignHandler) GetCampaignReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := h.Reports.Report(r.Context(), controller.AccountID(r.Context()), id)
	if err != nil {
		h.Log.Debug("Campaign report failed", zap.String("campaign_id", id), zap.Error(err))
		controller.WriteError(w, err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, report)
}
