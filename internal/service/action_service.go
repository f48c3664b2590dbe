package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/metrics"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/textgen"
)

type ActionOp string

const (
	OpDone       ActionOp = "done"
	OpSkip       ActionOp = "skip"
	OpReschedule ActionOp = "reschedule"
	OpRegenerate ActionOp = "regenerate"
)

type ActionRequest struct {
	Op    ActionOp   `json:"op"`
	DueAt *time.Time `json:"due_at,omitempty"`
}

// ActionResult is the response shape of a lifecycle operation. Only the
// fields relevant to the op are set.
type ActionResult struct {
	OK     bool               `json:"ok,omitempty"`
	ID     string             `json:"id,omitempty"`
	Status model.ActionStatus `json:"status,omitempty"`
	DueAt  *time.Time         `json:"due_at,omitempty"`
	Text   *string            `json:"text,omitempty"`
}

// ActionService mutates secondary-channel actions. pending moves to done or
// skipped once; reschedule keeps it pending.
type ActionService struct {
	Actions   repository.ActionRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
	Prospects repository.ProspectRepositoryInterface
	Accounts  repository.AccountRepositoryInterface
	Quota     *QuotaService
	Templates *TemplateResolver
	Provider  db.Provider
	Generator textgen.Generator
	Secrets   SecretOpener
	Metrics   *metrics.Metrics
	Log       *zap.Logger
	Now       func() time.Time
}

func (s *ActionService) Apply(ctx context.Context, accountID, actionID string, req ActionRequest) (*ActionResult, error) {
	var (
		res *ActionResult
		err error
	)
	switch req.Op {
	case OpDone:
		res, err = s.markDone(ctx, accountID, actionID)
	case OpSkip:
		res, err = s.skip(ctx, accountID, actionID)
	case OpReschedule:
		res, err = s.reschedule(ctx, accountID, actionID, req.DueAt)
	case OpRegenerate:
		res, err = s.regenerate(ctx, accountID, actionID)
	default:
		return nil, appErrors.NewValidation("op", "must be one of done, skip, reschedule, regenerate")
	}

	result := "ok"
	if err != nil {
		result = "error"
		var q *appErrors.QuotaExceededError
		if errors.As(err, &q) {
			result = "quota_exceeded"
		}
	}
	s.Metrics.ActionOp(string(req.Op), result)
	return res, err
}

func (s *ActionService) pending(ctx context.Context, accountID, actionID string) (*model.LinkedAction, error) {
	action, err := s.Actions.GetByID(ctx, accountID, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != model.ActionPending {
		return nil, appErrors.NewValidation("status", fmt.Sprintf("action is already %s", action.Status))
	}
	return action, nil
}

func (s *ActionService) markDone(ctx context.Context, accountID, actionID string) (*ActionResult, error) {
	if _, err := s.pending(ctx, accountID, actionID); err != nil {
		return nil, err
	}
	if err := s.Quota.Require(ctx, accountID, model.ResourceLinkedInPerDay, 1); err != nil {
		return nil, err
	}
	return s.complete(ctx, accountID, actionID, model.ActionDone)
}

func (s *ActionService) skip(ctx context.Context, accountID, actionID string) (*ActionResult, error) {
	if _, err := s.pending(ctx, accountID, actionID); err != nil {
		return nil, err
	}
	return s.complete(ctx, accountID, actionID, model.ActionSkipped)
}

func (s *ActionService) complete(ctx context.Context, accountID, actionID string, status model.ActionStatus) (*ActionResult, error) {
	ok, err := s.Actions.Complete(ctx, accountID, actionID, status, s.Now().UTC())
	if err != nil {
		return nil, appErrors.NewDependency("store", err)
	}
	if !ok {
		return nil, appErrors.NewValidation("status", "action is no longer pending")
	}
	s.Log.Info("Action completed", zap.String("action_id", actionID), zap.String("status", string(status)))
	return &ActionResult{OK: true}, nil
}

func (s *ActionService) reschedule(ctx context.Context, accountID, actionID string, dueAt *time.Time) (*ActionResult, error) {
	if dueAt == nil || dueAt.IsZero() {
		return nil, appErrors.NewValidation("due_at", "is required for reschedule")
	}
	if _, err := s.pending(ctx, accountID, actionID); err != nil {
		return nil, err
	}
	due := dueAt.UTC()
	ok, err := s.Actions.Reschedule(ctx, accountID, actionID, due)
	if err != nil {
		return nil, appErrors.NewDependency("store", err)
	}
	if !ok {
		return nil, appErrors.NewValidation("status", "action is no longer pending")
	}
	return &ActionResult{ID: actionID, Status: model.ActionPending, DueAt: &due}, nil
}

// regenerate replaces the cached note only when generation succeeds.
func (s *ActionService) regenerate(ctx context.Context, accountID, actionID string) (*ActionResult, error) {
	action, err := s.Actions.GetByID(ctx, accountID, actionID)
	if err != nil {
		return nil, err
	}
	campaign, err := s.Campaigns.GetByID(ctx, action.CampaignID)
	if err != nil {
		return nil, err
	}
	prospect, err := s.Prospects.GetByID(ctx, action.ProspectID)
	if err != nil {
		return nil, err
	}

	sealedKey, err := s.Accounts.GetOpenAIKey(ctx, accountID)
	if err != nil {
		return nil, appErrors.NewDependency("store", err)
	}
	if sealedKey == "" {
		return nil, appErrors.NewDependency("text generation", errors.New(ReasonOpenAIKeyMissing))
	}
	apiKey, err := s.Secrets.Open(sealedKey)
	if err != nil {
		return nil, appErrors.NewDependency("text generation", err)
	}

	fallback, ok := DefaultActionTemplates[action.ActionType]
	if !ok {
		fallback = DefaultActionTemplates[model.ActionSendConnection]
	}
	tmpl, err := s.Templates.Resolve(ctx, accountID, model.ScopeLinkedIn, campaign.Language, nil, fallback)
	if err != nil {
		return nil, appErrors.NewDependency("store", err)
	}

	text, err := s.Generator.Generate(ctx, textgen.Request{
		APIKey: apiKey,
		System: textgen.LinkedInSystemPrompt,
		Prompt: RenderTemplate(tmpl, ProspectVars(prospect, campaign.Language)),
	})
	if err != nil {
		s.Log.Warn("Regenerate failed, keeping previous message", zap.String("action_id", actionID), zap.Error(err))
		return nil, appErrors.NewDependency("text generation", err)
	}
	if err := s.Actions.SetMessage(ctx, actionID, text); err != nil {
		return nil, appErrors.NewDependency("store", err)
	}
	return &ActionResult{Text: &text}, nil
}

// OnConnectionStatus records a connection signal for a campaign link. Every
// accepted signal ensures one follow-up message exists, due 24h after the
// signal that created it; the per-link unique follow-up makes repeats no-ops.
func (s *ActionService) OnConnectionStatus(ctx context.Context, accountID, campaignID, prospectID string, status model.ConnectionStatus) (bool, error) {
	if !status.Valid() {
		return false, appErrors.NewValidation("status", "unknown connection status "+string(status))
	}
	campaign, err := s.Campaigns.GetByID(ctx, campaignID)
	if err != nil {
		return false, err
	}
	if campaign.AccountID != accountID {
		return false, appErrors.NewCampaignNotFound(campaignID)
	}

	var created bool
	err = s.Provider.Transact(ctx, func(ctx context.Context) error {
		if _, err := s.Campaigns.SetConnectionStatus(ctx, campaignID, prospectID, status); err != nil {
			return err
		}
		if status != model.ConnectionAccepted {
			return nil
		}
		now := s.Now().UTC()
		created, err = s.Actions.CreateFollowUp(ctx, &model.LinkedAction{
			ID:         uuid.NewString(),
			AccountID:  accountID,
			CampaignID: campaignID,
			ProspectID: prospectID,
			ActionType: model.ActionFollowUpMsg,
			DueAt:      now.Add(FollowUpDelay),
			Status:     model.ActionPending,
			CreatedAt:  now,
		})
		if err != nil {
			return appErrors.NewDependency("store", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	if created {
		s.Log.Info("Follow-up scheduled",
			zap.String("campaign_id", campaignID),
			zap.String("prospect_id", prospectID))
	}
	return created, nil
}
