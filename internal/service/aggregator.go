package service

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/metrics"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

const DayLayout = "2006-01-02"

type AggregateResult struct {
	Upserted int    `json:"upserted"`
	Day      string `json:"day"`
}

// Aggregator rolls one UTC day of events and actions into daily metric rows.
// A run replaces the whole day, so re-running it is idempotent.
type Aggregator struct {
	Events   repository.EventRepositoryInterface
	Actions  repository.ActionRepositoryInterface
	Metrics  repository.MetricRepositoryInterface
	Provider db.Provider
	Stats    *metrics.Metrics
	Log      *zap.Logger
	Now      func() time.Time
}

// DayBounds parses a YYYY-MM-DD day into its half-open UTC window.
func DayBounds(day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(DayLayout, day, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.NewValidation("day", "must be YYYY-MM-DD")
	}
	return start, start.AddDate(0, 0, 1), nil
}

// Run aggregates the given day, or the current UTC day when day is empty.
func (a *Aggregator) Run(ctx context.Context, day string) (AggregateResult, error) {
	if day == "" {
		day = a.Now().UTC().Format(DayLayout)
	}
	start, end, err := DayBounds(day)
	if err != nil {
		return AggregateResult{}, err
	}

	events, err := a.Events.CountBetween(ctx, start, end)
	if err != nil {
		return AggregateResult{}, appErrors.NewDependency("store", err)
	}
	pending, err := a.Actions.CountPendingDueBetween(ctx, start, end)
	if err != nil {
		return AggregateResult{}, appErrors.NewDependency("store", err)
	}
	done, err := a.Actions.CountDoneBetween(ctx, start, end)
	if err != nil {
		return AggregateResult{}, appErrors.NewDependency("store", err)
	}

	rows := BuildDailyMetrics(day, events, pending, done)
	err = a.Provider.Transact(ctx, func(ctx context.Context) error {
		// Keys that disappeared since the last run must not survive it.
		if err := a.Metrics.DeleteDay(ctx, day); err != nil {
			return err
		}
		for i := range rows {
			if err := a.Metrics.Upsert(ctx, &rows[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return AggregateResult{}, appErrors.NewDependency("store", err)
	}

	a.Stats.MetricRowsUpserted(len(rows))
	a.Log.Info("Daily metrics aggregated", zap.String("day", day), zap.Int("rows", len(rows)))
	return AggregateResult{Upserted: len(rows), Day: day}, nil
}

// RunRecent aggregates the previous and the current UTC day. The previous
// day is repeated so activity after its last intraday run is still counted.
func (a *Aggregator) RunRecent(ctx context.Context) ([]AggregateResult, error) {
	today := a.Now().UTC()
	days := []string{today.AddDate(0, 0, -1).Format(DayLayout), today.Format(DayLayout)}
	results := make([]AggregateResult, 0, len(days))
	for _, day := range days {
		res, err := a.Run(ctx, day)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

type metricKey struct {
	account  string
	campaign string
}

// BuildDailyMetrics produces one row per (account, campaign) seen in the
// input plus one global row per account holding their sum. Counts without a
// campaign are not attributed to any row. Output order is deterministic.
func BuildDailyMetrics(day string, events, pending, done []repository.GroupCount) []model.DailyMetric {
	perCampaign := map[metricKey]*model.DailyMetric{}
	row := func(g repository.GroupCount) *model.DailyMetric {
		if g.CampaignID == nil || *g.CampaignID == "" {
			return nil
		}
		k := metricKey{account: g.AccountID, campaign: *g.CampaignID}
		m, ok := perCampaign[k]
		if !ok {
			campaign := *g.CampaignID
			m = &model.DailyMetric{AccountID: g.AccountID, CampaignID: &campaign, Day: day}
			perCampaign[k] = m
		}
		return m
	}

	for _, g := range events {
		m := row(g)
		if m == nil {
			continue
		}
		switch model.EventType(g.Type) {
		case model.EventScheduled:
			m.EmailsScheduled += g.Count
		case model.EventSent:
			m.EmailsSent += g.Count
		case model.EventOpen:
			m.Opens += g.Count
		case model.EventManualReply, "reply":
			m.Replies += g.Count
		case model.EventBounce:
			m.Bounces += g.Count
		}
	}
	for _, g := range pending {
		if m := row(g); m != nil {
			m.LinkedInPending += g.Count
		}
	}
	for _, g := range done {
		if m := row(g); m != nil {
			m.LinkedInDone += g.Count
		}
	}

	keys := make([]metricKey, 0, len(perCampaign))
	for k := range perCampaign {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].account != keys[j].account {
			return keys[i].account < keys[j].account
		}
		return keys[i].campaign < keys[j].campaign
	})

	var out []model.DailyMetric
	for i, k := range keys {
		out = append(out, *perCampaign[k])
		if i == len(keys)-1 || keys[i+1].account != k.account {
			global := model.DailyMetric{AccountID: k.account, Day: day}
			for _, kk := range keys {
				if kk.account == k.account {
					global.Add(perCampaign[kk])
				}
			}
			out = append(out, global)
		}
	}
	return out
}
