package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach-backend/internal/model"
)

const (
	ConnectionDelay = 15 * time.Minute
	LikePostDelay   = 48 * time.Hour
	FollowUpDelay   = 24 * time.Hour
)

// Sequencer computes due times at campaign creation.
type Sequencer struct {
	NewID func() string
}

func NewSequencer() *Sequencer {
	return &Sequencer{NewID: uuid.NewString}
}

// SendInterval is ceil(1h / perHour), in whole milliseconds.
func SendInterval(perHour int) time.Duration {
	if perHour <= 0 {
		perHour = 1
	}
	const hourMs = int64(time.Hour / time.Millisecond)
	ms := (hourMs + int64(perHour) - 1) / int64(perHour)
	return time.Duration(ms) * time.Millisecond
}

// ScheduleTimes spaces count sends evenly from start. Other campaigns of the
// same account are not taken into account.
func ScheduleTimes(count, perHour int, start time.Time) []time.Time {
	interval := SendInterval(perHour)
	times := make([]time.Time, count)
	for i := range times {
		times[i] = start.Add(time.Duration(i) * interval)
	}
	return times
}

// PlanMessages returns one step-1 message per prospect, in input order.
func (s *Sequencer) PlanMessages(campaignID string, prospects []model.Prospect, perHour int, start time.Time) []model.ScheduledMessage {
	times := ScheduleTimes(len(prospects), perHour, start)
	msgs := make([]model.ScheduledMessage, 0, len(prospects))
	for i, p := range prospects {
		msgs = append(msgs, model.ScheduledMessage{
			ID:           s.NewID(),
			CampaignID:   campaignID,
			ProspectID:   p.ID,
			SequenceStep: 1,
			ScheduledAt:  times[i],
			Status:       model.MessageScheduled,
			CreatedAt:    start,
		})
	}
	return msgs
}

// PlanActions materializes the fixed secondary-channel plan for every
// prospect with a profile URL.
func (s *Sequencer) PlanActions(accountID, campaignID string, prospects []model.Prospect, start time.Time) []model.LinkedAction {
	plan := []struct {
		actionType model.ActionType
		delay      time.Duration
	}{
		{model.ActionVisitProfile, 0},
		{model.ActionSendConnection, ConnectionDelay},
		{model.ActionLikeRecentPost, LikePostDelay},
	}

	var actions []model.LinkedAction
	for _, p := range prospects {
		if !p.HasProfile() {
			continue
		}
		for _, step := range plan {
			actions = append(actions, model.LinkedAction{
				ID:         s.NewID(),
				AccountID:  accountID,
				CampaignID: campaignID,
				ProspectID: p.ID,
				ActionType: step.actionType,
				DueAt:      start.Add(step.delay),
				Status:     model.ActionPending,
				CreatedAt:  start,
			})
		}
	}
	return actions
}
