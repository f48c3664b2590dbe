// internal/controller/campaign_controller.go
package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/service"
)

// CampaignManager is the campaign surface of the service layer.
type CampaignManager interface {
	CreateCampaign(ctx context.Context, accountID string, in service.CreateCampaignInput) (string, error)
	Resend(ctx context.Context, accountID, campaignID, prospectID string) (*model.ScheduledMessage, error)
	MarkReplied(ctx context.Context, accountID, campaignID, prospectID string) error
	SetLinkStatus(ctx context.Context, accountID, campaignID, prospectID string, status model.LinkStatus) error
	UpdatePipeline(ctx context.Context, accountID, prospectID string, status model.PipelineStatus, campaignID *string) error
}

type ConnectionTracker interface {
	OnConnectionStatus(ctx context.Context, accountID, campaignID, prospectID string, status model.ConnectionStatus) (bool, error)
}

var (
	_ CampaignManager   = (*service.CampaignService)(nil)
	_ ConnectionTracker = (*service.ActionService)(nil)
)

type CampaignController struct {
	Campaigns   CampaignManager
	Connections ConnectionTracker
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if err := decode(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	id, err := c.Campaigns.CreateCampaign(r.Context(), AccountID(r.Context()), body)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"campaign_id": id})
}

func (c *CampaignController) SetConnection(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status model.ConnectionStatus `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	created, err := c.Connections.OnConnectionStatus(r.Context(), AccountID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "prospect_id"), body.Status)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "follow_up_created": created})
}

func (c *CampaignController) Resend(w http.ResponseWriter, r *http.Request) {
	msg, err := c.Campaigns.Resend(r.Context(), AccountID(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "prospect_id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ok": true, "message_id": msg.ID, "scheduled_at": msg.ScheduledAt})
}

func (c *CampaignController) MarkReplied(w http.ResponseWriter, r *http.Request) {
	err := c.Campaigns.MarkReplied(r.Context(), AccountID(r.Context()), chi.URLParam(r, "id"), chi.URLParam(r, "prospect_id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (c *CampaignController) SetStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status model.LinkStatus `json:"status"`
	}
	if err := decode(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	err := c.Campaigns.SetLinkStatus(r.Context(), AccountID(r.Context()),
		chi.URLParam(r, "id"), chi.URLParam(r, "prospect_id"), body.Status)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (c *CampaignController) UpdatePipeline(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status     model.PipelineStatus `json:"status"`
		CampaignID *string              `json:"campaign_id,omitempty"`
	}
	if err := decode(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	err := c.Campaigns.UpdatePipeline(r.Context(), AccountID(r.Context()), chi.URLParam(r, "id"), body.Status, body.CampaignID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
