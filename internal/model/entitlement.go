// internal/model/entitlement.go
package model

import "time"

type Plan string

const (
	PlanStarter  Plan = "starter"
	PlanPro      Plan = "pro"
	PlanBusiness Plan = "business"
)

func (p Plan) Valid() bool {
	_, ok := PlanDefaults[p]
	return ok
}

type ResourceType string

const (
	ResourceCampaigns      ResourceType = "campaigns"
	ResourceProspects      ResourceType = "prospects"
	ResourceEmailsPerHour  ResourceType = "emails_per_hour"
	ResourceLinkedInPerDay ResourceType = "linkedin_actions_per_day"
)

// Entitlement holds the resolved resource limits of one account.
type Entitlement struct {
	AccountID             string `db:"account_id" json:"account_id"`
	EmailsPerHour         int    `db:"emails_per_hour" json:"emails_per_hour"`
	CampaignsMax          int    `db:"campaigns_max" json:"campaigns_max"`
	ProspectsMax          int    `db:"prospects_max" json:"prospects_max"`
	LinkedInActionsPerDay int    `db:"linkedin_actions_per_day" json:"linkedin_actions_per_day"`
}

var PlanDefaults = map[Plan]Entitlement{
	PlanStarter:  {EmailsPerHour: 20, CampaignsMax: 1, ProspectsMax: 100, LinkedInActionsPerDay: 20},
	PlanPro:      {EmailsPerHour: 60, CampaignsMax: 10, ProspectsMax: 5000, LinkedInActionsPerDay: 80},
	PlanBusiness: {EmailsPerHour: 200, CampaignsMax: 50, ProspectsMax: 50000, LinkedInActionsPerDay: 200},
}

// DefaultsFor returns the plan-tier limits for an account. Unknown plans fall back to starter.
func DefaultsFor(accountID string, plan Plan) Entitlement {
	ent, ok := PlanDefaults[plan]
	if !ok {
		ent = PlanDefaults[PlanStarter]
	}
	ent.AccountID = accountID
	return ent
}

type Subscription struct {
	AccountID string    `db:"account_id" json:"account_id"`
	Plan      Plan      `db:"plan" json:"plan"`
	Status    string    `db:"status" json:"status"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// QuotaResult is the advisory answer of a quota check.
type QuotaResult struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Limit   int    `json:"limit,omitempty"`
}
