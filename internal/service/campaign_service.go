// internal/service/campaign_service.go
package service

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

var emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type CampaignService struct {
	Campaigns repository.CampaignRepositoryInterface
	Prospects repository.ProspectRepositoryInterface
	Messages  repository.MessageRepositoryInterface
	Actions   repository.ActionRepositoryInterface
	Events    repository.EventRepositoryInterface
	Metrics   repository.MetricRepositoryInterface
	Quota     *QuotaService
	Sequencer *Sequencer
	Provider  db.Provider
	Log       *zap.Logger
	Now       func() time.Time

	// DefaultEmailsPerHour spaces sends when an entitlement carries no rate.
	DefaultEmailsPerHour int
}

type ProspectInput struct {
	FirstName   string  `json:"first_name"`
	LastName    string  `json:"last_name"`
	Company     string  `json:"company"`
	Title       string  `json:"title"`
	Email       string  `json:"email"`
	LinkedInURL *string `json:"linkedin_url,omitempty"`
	Notes       *string `json:"notes,omitempty"`
}

type StepInput struct {
	StepNumber     int     `json:"step_number"`
	DelayHours     int     `json:"delay_hours"`
	Purpose        *string `json:"purpose,omitempty"`
	PromptTemplate *string `json:"ai_prompt_template,omitempty"`
}

type CreateCampaignInput struct {
	Name      string          `json:"name"`
	Objective string          `json:"objective"`
	Language  string          `json:"language"`
	Prospects []ProspectInput `json:"prospects"`
	Sequence  []StepInput     `json:"sequence"`
}

// CreateCampaign checks quotas, then writes the campaign, its sequence,
// prospects, links, step-1 messages, the secondary-channel plan and the
// scheduled event in a single transaction.
func (s *CampaignService) CreateCampaign(ctx context.Context, accountID string, in CreateCampaignInput) (string, error) {
	if strings.TrimSpace(in.Name) == "" {
		return "", appErrors.NewValidation("name", "is required")
	}
	if strings.TrimSpace(in.Language) == "" {
		return "", appErrors.NewValidation("language", "is required")
	}
	for i, st := range in.Sequence {
		if st.StepNumber <= 0 {
			in.Sequence[i].StepNumber = i + 1
		}
		if st.DelayHours < 0 {
			return "", appErrors.NewValidation("sequence", "delay_hours must not be negative")
		}
	}

	if err := s.Quota.Require(ctx, accountID, model.ResourceCampaigns, 1); err != nil {
		return "", err
	}

	now := s.Now().UTC()
	prospects := validProspects(accountID, in.Prospects, now)
	if err := s.Quota.Require(ctx, accountID, model.ResourceProspects, len(prospects)); err != nil {
		return "", err
	}

	ent, err := s.Quota.GetEntitlements(ctx, accountID)
	if err != nil {
		return "", appErrors.NewDependency("store", err)
	}
	perHour := s.DefaultEmailsPerHour
	if ent != nil {
		perHour = ent.EmailsPerHour
	}

	campaign := &model.Campaign{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Name:      strings.TrimSpace(in.Name),
		Objective: in.Objective,
		Language:  in.Language,
		CreatedAt: now,
	}

	err = s.Provider.Transact(ctx, func(ctx context.Context) error {
		if err := s.Campaigns.Create(ctx, campaign); err != nil {
			return err
		}

		steps := make([]model.SequenceStep, 0, len(in.Sequence))
		for _, st := range in.Sequence {
			steps = append(steps, model.SequenceStep{
				CampaignID:     campaign.ID,
				StepNumber:     st.StepNumber,
				DelayHours:     st.DelayHours,
				Purpose:        st.Purpose,
				PromptTemplate: st.PromptTemplate,
			})
		}
		if len(steps) > 0 {
			if err := s.Campaigns.CreateSteps(ctx, steps); err != nil {
				return err
			}
		}

		if len(prospects) == 0 {
			return nil
		}
		stored, err := s.Prospects.Upsert(ctx, prospects)
		if err != nil {
			return err
		}

		links := make([]model.CampaignProspect, 0, len(stored))
		for _, p := range stored {
			links = append(links, model.CampaignProspect{
				CampaignID:       campaign.ID,
				ProspectID:       p.ID,
				Status:           model.LinkQueued,
				ConnectionStatus: model.ConnectionNone,
			})
		}
		if err := s.Campaigns.LinkProspects(ctx, links); err != nil {
			return err
		}

		msgs := s.Sequencer.PlanMessages(campaign.ID, stored, perHour, now)
		if err := s.Messages.Create(ctx, msgs); err != nil {
			return err
		}
		if actions := s.Sequencer.PlanActions(accountID, campaign.ID, stored, now); len(actions) > 0 {
			if err := s.Actions.Create(ctx, actions); err != nil {
				return err
			}
		}

		meta, _ := json.Marshal(map[string]int{"count": len(msgs)})
		return s.Events.Append(ctx, &model.Event{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			CampaignID: &campaign.ID,
			Type:       model.EventScheduled,
			Meta:       meta,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return "", appErrors.NewDependency("store", err)
	}

	s.Log.Info("Campaign created",
		zap.String("campaign_id", campaign.ID),
		zap.String("account_id", accountID),
		zap.Int("prospects", len(prospects)))
	return campaign.ID, nil
}

// validProspects drops rows without a usable email and keeps the first
// occurrence of each address.
func validProspects(accountID string, in []ProspectInput, now time.Time) []model.Prospect {
	seen := map[string]bool{}
	out := make([]model.Prospect, 0, len(in))
	for _, p := range in {
		email := strings.ToLower(strings.TrimSpace(p.Email))
		if !emailRe.MatchString(email) || seen[email] {
			continue
		}
		seen[email] = true
		out = append(out, model.Prospect{
			ID:             uuid.NewString(),
			AccountID:      accountID,
			FirstName:      strings.TrimSpace(p.FirstName),
			LastName:       strings.TrimSpace(p.LastName),
			Company:        strings.TrimSpace(p.Company),
			Title:          strings.TrimSpace(p.Title),
			Email:          email,
			LinkedInURL:    p.LinkedInURL,
			Notes:          p.Notes,
			PipelineStatus: model.PipelineCold,
			CreatedAt:      now,
		})
	}
	return out
}

func (s *CampaignService) ownedCampaign(ctx context.Context, accountID, campaignID string) (*model.Campaign, error) {
	campaign, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.AccountID != accountID {
		return nil, appErrors.NewCampaignNotFound(campaignID)
	}
	return campaign, nil
}

// Resend queues a fresh step-1 message for the prospect, due now.
func (s *CampaignService) Resend(ctx context.Context, accountID, campaignID, prospectID string) (*model.ScheduledMessage, error) {
	if _, err := s.ownedCampaign(ctx, accountID, campaignID); err != nil {
		return nil, err
	}
	prospect, err := s.Prospects.GetByID(ctx, prospectID)
	if err != nil {
		return nil, err
	}
	if prospect.AccountID != accountID {
		return nil, appErrors.NewNotFound("prospect", prospectID)
	}

	now := s.Now().UTC()
	msg := model.ScheduledMessage{
		ID:           uuid.NewString(),
		CampaignID:   campaignID,
		ProspectID:   prospectID,
		SequenceStep: 1,
		ScheduledAt:  now,
		Status:       model.MessageScheduled,
		CreatedAt:    now,
	}
	if err := s.Messages.Create(ctx, []model.ScheduledMessage{msg}); err != nil {
		return nil, appErrors.NewDependency("store", err)
	}
	return &msg, nil
}

// MarkReplied sets the link to replied and records a manual_reply event.
func (s *CampaignService) MarkReplied(ctx context.Context, accountID, campaignID, prospectID string) error {
	if _, err := s.ownedCampaign(ctx, accountID, campaignID); err != nil {
		return err
	}
	now := s.Now().UTC()
	return s.Provider.Transact(ctx, func(ctx context.Context) error {
		if err := s.Campaigns.UpdateLinkStatus(ctx, campaignID, prospectID, model.LinkReplied, now); err != nil {
			return err
		}
		return s.Events.Append(ctx, &model.Event{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			CampaignID: &campaignID,
			ProspectID: &prospectID,
			Type:       model.EventManualReply,
			CreatedAt:  now,
		})
	})
}

func (s *CampaignService) SetLinkStatus(ctx context.Context, accountID, campaignID, prospectID string, status model.LinkStatus) error {
	if !status.Valid() {
		return appErrors.NewValidation("status", "unknown link status "+string(status))
	}
	if _, err := s.ownedCampaign(ctx, accountID, campaignID); err != nil {
		return err
	}
	return s.Campaigns.UpdateLinkStatus(ctx, campaignID, prospectID, status, s.Now().UTC())
}

// UpdatePipeline moves a prospect between cold, warm and hot. Reaching hot
// records a pipeline_hot event, attributed to campaignID when given.
func (s *CampaignService) UpdatePipeline(ctx context.Context, accountID, prospectID string, status model.PipelineStatus, campaignID *string) error {
	if !status.Valid() {
		return appErrors.NewValidation("status", "unknown pipeline status "+string(status))
	}
	if campaignID != nil && *campaignID == "" {
		campaignID = nil
	}
	if campaignID != nil {
		if _, err := s.ownedCampaign(ctx, accountID, *campaignID); err != nil {
			return err
		}
	}

	return s.Provider.Transact(ctx, func(ctx context.Context) error {
		if err := s.Prospects.UpdatePipelineStatus(ctx, accountID, prospectID, status); err != nil {
			return err
		}
		if status != model.PipelineHot {
			return nil
		}
		return s.Events.Append(ctx, &model.Event{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			CampaignID: campaignID,
			ProspectID: &prospectID,
			Type:       model.EventPipelineHot,
			CreatedAt:  s.Now().UTC(),
		})
	})
}

type CampaignReport struct {
	Campaign      *model.Campaign     `json:"campaign"`
	MessageCounts map[string]int      `json:"message_counts"`
	Daily         []model.DailyMetric `json:"daily"`
}

func (s *CampaignService) Report(ctx context.Context, accountID, campaignID string) (*CampaignReport, error) {
	campaign, err := s.ownedCampaign(ctx, accountID, campaignID)
	if err != nil {
		return nil, err
	}
	counts, err := s.Messages.StatusCounts(ctx, campaignID)
	if err != nil {
		return nil, appErrors.NewDependency("store", err)
	}
	daily, err := s.Metrics.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, appErrors.NewDependency("store", err)
	}
	return &CampaignReport{Campaign: campaign, MessageCounts: counts, Daily: daily}, nil
}
