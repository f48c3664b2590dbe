package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

const (
	ReasonCampaignLimit = "Campaign limit reached"
	ReasonProspectLimit = "Prospect limit reached"
	ReasonEmailsPerHour = "Emails per hour limit"
	ReasonLinkedInDaily = "Daily LinkedIn actions limit"
)

// QuotaService resolves entitlements and answers advisory quota questions.
// Checks are read-then-decide and give no atomicity to the caller.
type QuotaService struct {
	Entitlements repository.EntitlementRepositoryInterface
	Campaigns    repository.CampaignRepositoryInterface
	Prospects    repository.ProspectRepositoryInterface
	Actions      repository.ActionRepositoryInterface
	Provider     db.Provider
	Log          *zap.Logger
	Now          func() time.Time
}

func NewQuotaService(
	entitlements repository.EntitlementRepositoryInterface,
	campaigns repository.CampaignRepositoryInterface,
	prospects repository.ProspectRepositoryInterface,
	actions repository.ActionRepositoryInterface,
	provider db.Provider,
	log *zap.Logger,
) *QuotaService {
	return &QuotaService{
		Entitlements: entitlements,
		Campaigns:    campaigns,
		Prospects:    prospects,
		Actions:      actions,
		Provider:     provider,
		Log:          log,
		Now:          time.Now,
	}
}

// GetEntitlements returns the stored override, or the defaults of the
// account's plan when none is stored.
func (s *QuotaService) GetEntitlements(ctx context.Context, accountID string) (*model.Entitlement, error) {
	ent, err := s.Entitlements.Get(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load entitlements: %w", err)
	}
	if ent != nil {
		return ent, nil
	}
	plan, err := s.Entitlements.GetPlan(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	def := model.DefaultsFor(accountID, plan)
	return &def, nil
}

func (s *QuotaService) CheckQuota(ctx context.Context, accountID string, resource model.ResourceType, amount int) (model.QuotaResult, error) {
	ent, err := s.GetEntitlements(ctx, accountID)
	if err != nil {
		return model.QuotaResult{}, err
	}

	switch resource {
	case model.ResourceCampaigns:
		count, err := s.Campaigns.CountByAccount(ctx, accountID)
		if err != nil {
			return model.QuotaResult{}, fmt.Errorf("count campaigns: %w", err)
		}
		return decide(count < ent.CampaignsMax, ReasonCampaignLimit, ent.CampaignsMax), nil

	case model.ResourceProspects:
		count, err := s.Prospects.CountByAccount(ctx, accountID)
		if err != nil {
			return model.QuotaResult{}, fmt.Errorf("count prospects: %w", err)
		}
		return decide(count+amount <= ent.ProspectsMax, ReasonProspectLimit, ent.ProspectsMax), nil

	case model.ResourceEmailsPerHour:
		if amount <= 0 {
			amount = 1
		}
		return decide(amount <= ent.EmailsPerHour, ReasonEmailsPerHour, ent.EmailsPerHour), nil

	case model.ResourceLinkedInPerDay:
		if amount <= 0 {
			amount = 1
		}
		since := s.Now().Add(-24 * time.Hour)
		count, err := s.Actions.CountDoneSince(ctx, accountID, since)
		if err != nil {
			return model.QuotaResult{}, fmt.Errorf("count done actions: %w", err)
		}
		return decide(count+amount <= ent.LinkedInActionsPerDay, ReasonLinkedInDaily, ent.LinkedInActionsPerDay), nil
	}

	return model.QuotaResult{}, appErrors.NewValidation("resource", "unknown resource type "+string(resource))
}

// Require turns a denied check into a QuotaExceededError.
func (s *QuotaService) Require(ctx context.Context, accountID string, resource model.ResourceType, amount int) error {
	res, err := s.CheckQuota(ctx, accountID, resource, amount)
	if err != nil {
		return err
	}
	if !res.Allowed {
		return appErrors.NewQuotaExceeded(string(resource), res.Reason, res.Limit)
	}
	return nil
}

func decide(allowed bool, reason string, limit int) model.QuotaResult {
	if allowed {
		return model.QuotaResult{Allowed: true}
	}
	return model.QuotaResult{Allowed: false, Reason: reason, Limit: limit}
}

type PlanChange struct {
	EventID   string     `json:"event_id"`
	AccountID string     `json:"account_id"`
	Plan      model.Plan `json:"plan"`
}

// ApplyPlanChange upserts the subscription and the recomputed entitlement row
// in one transaction. A redelivered event id is a no-op and reports false.
func (s *QuotaService) ApplyPlanChange(ctx context.Context, change PlanChange) (bool, error) {
	if change.EventID == "" {
		return false, appErrors.NewValidation("event_id", "is required")
	}
	if change.AccountID == "" {
		return false, appErrors.NewValidation("account_id", "is required")
	}
	if !change.Plan.Valid() {
		return false, appErrors.NewValidation("plan", "unknown plan "+string(change.Plan))
	}

	now := s.Now().UTC()
	applied := false
	err := s.Provider.Transact(ctx, func(ctx context.Context) error {
		first, err := s.Entitlements.MarkPlanEventProcessed(ctx, change.EventID, now)
		if err != nil {
			return err
		}
		if !first {
			return nil
		}
		sub := &model.Subscription{AccountID: change.AccountID, Plan: change.Plan, Status: "active", UpdatedAt: now}
		if err := s.Entitlements.UpsertSubscription(ctx, sub); err != nil {
			return err
		}
		ent := model.DefaultsFor(change.AccountID, change.Plan)
		if err := s.Entitlements.Upsert(ctx, &ent); err != nil {
			return err
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, appErrors.NewDependency("store", err)
	}

	if applied {
		s.Log.Info("Plan change applied",
			zap.String("event_id", change.EventID),
			zap.String("account_id", change.AccountID),
			zap.String("plan", string(change.Plan)))
	} else {
		s.Log.Info("Duplicate plan change ignored", zap.String("event_id", change.EventID))
	}
	return applied, nil
}
