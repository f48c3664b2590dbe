package service_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/service"
)

func createInput() service.CreateCampaignInput {
	return service.CreateCampaignInput{
		Name:      "Q2 outbound",
		Objective: "book demos",
		Language:  "en",
		Prospects: []service.ProspectInput{
			{FirstName: "Ada", Company: "Acme", Email: "ada@acme.test", LinkedInURL: strPtr("https://linkedin.test/ada")},
			{FirstName: "Bob", Company: "Beta", Email: "bob@beta.test"},
			{FirstName: "Cy", Company: "Corp", Email: "cy@corp.test"},
		},
		Sequence: []service.StepInput{
			{StepNumber: 1, DelayHours: 0, PromptTemplate: strPtr("Write to {{first_name}}")},
			{StepNumber: 2, DelayHours: 72},
		},
	}
}

func TestCreateCampaign_SchedulesEverything(t *testing.T) {
	f := newFixture()
	f.store.plans["acc"] = model.PlanPro

	id, err := f.campaigns.CreateCampaign(context.Background(), "acc", createInput())

	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, 1, f.provider.calls, "all writes share one transaction")
	assert.Len(t, f.store.steps, 2)
	assert.Len(t, f.store.prospects, 3)
	assert.Len(t, f.store.links, 3)

	var times []time.Time
	for _, m := range f.store.messages {
		assert.Equal(t, model.MessageScheduled, m.Status)
		assert.Equal(t, id, m.CampaignID)
		times = append(times, m.ScheduledAt)
	}
	assert.ElementsMatch(t, []time.Time{t0, t0.Add(60 * time.Second), t0.Add(120 * time.Second)}, times)

	for _, l := range f.store.links {
		assert.Equal(t, model.LinkQueued, l.Status)
	}
	assert.Len(t, f.store.actions, 3, "only the prospect with a profile gets the action plan")

	scheduled := f.store.eventsOf(model.EventScheduled)
	require.Len(t, scheduled, 1)
	var meta map[string]int
	require.NoError(t, json.Unmarshal(scheduled[0].Meta, &meta))
	assert.Equal(t, 3, meta["count"])
}

func TestCreateCampaign_FiltersInvalidAndDuplicateEmails(t *testing.T) {
	f := newFixture()
	in := createInput()
	in.Prospects = append(in.Prospects,
		service.ProspectInput{FirstName: "No", Email: "not-an-email"},
		service.ProspectInput{FirstName: "Dup", Email: "ADA@acme.test "},
	)

	_, err := f.campaigns.CreateCampaign(context.Background(), "acc", in)

	require.NoError(t, err)
	assert.Len(t, f.store.prospects, 3)
	assert.Len(t, f.store.messages, 3)
}

func TestCreateCampaign_Validation(t *testing.T) {
	f := newFixture()
	var v *appErrors.ValidationError

	in := createInput()
	in.Name = " "
	_, err := f.campaigns.CreateCampaign(context.Background(), "acc", in)
	assert.ErrorAs(t, err, &v)

	in = createInput()
	in.Language = ""
	_, err = f.campaigns.CreateCampaign(context.Background(), "acc", in)
	assert.ErrorAs(t, err, &v)
	assert.Empty(t, f.store.campaigns)
}

func TestCreateCampaign_QuotaDenials(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.campaigns.CreateCampaign(ctx, "acc", createInput())
	require.NoError(t, err)

	// Starter allows a single campaign.
	_, err = f.campaigns.CreateCampaign(ctx, "acc", createInput())
	var q *appErrors.QuotaExceededError
	require.ErrorAs(t, err, &q)
	assert.Equal(t, service.ReasonCampaignLimit, q.Reason)
	assert.Len(t, f.store.campaigns, 1)

	f2 := newFixture()
	f2.store.entitlements["acc"] = &model.Entitlement{AccountID: "acc", CampaignsMax: 5, ProspectsMax: 2, EmailsPerHour: 20}
	_, err = f2.campaigns.CreateCampaign(ctx, "acc", createInput())
	require.ErrorAs(t, err, &q)
	assert.Equal(t, service.ReasonProspectLimit, q.Reason)
	assert.Empty(t, f2.store.campaigns)
	assert.Equal(t, 0, f2.provider.calls)
}

func TestCampaignSignals(t *testing.T) {
	f := newFixture()
	f.seedCampaign("acc", "c1", "p1")
	ctx := context.Background()

	require.NoError(t, f.campaigns.MarkReplied(ctx, "acc", "c1", "p1"))
	assert.Equal(t, model.LinkReplied, f.store.links[linkKey("c1", "p1")].Status)
	assert.Len(t, f.store.eventsOf(model.EventManualReply), 1)

	require.NoError(t, f.campaigns.SetLinkStatus(ctx, "acc", "c1", "p1", model.LinkOpened))
	assert.Equal(t, model.LinkOpened, f.store.links[linkKey("c1", "p1")].Status)

	var v *appErrors.ValidationError
	assert.ErrorAs(t, f.campaigns.SetLinkStatus(ctx, "acc", "c1", "p1", "lost"), &v)

	var nf *appErrors.NotFoundError
	assert.ErrorAs(t, f.campaigns.MarkReplied(ctx, "intruder", "c1", "p1"), &nf)
	assert.ErrorAs(t, f.campaigns.MarkReplied(ctx, "acc", "c1", "nobody"), &nf)
}

func TestResend_QueuesStepOneNow(t *testing.T) {
	f := newFixture()
	f.seedCampaign("acc", "c1", "p1")

	msg, err := f.campaigns.Resend(context.Background(), "acc", "c1", "p1")

	require.NoError(t, err)
	stored := f.store.message(msg.ID)
	assert.Equal(t, 1, stored.SequenceStep)
	assert.Equal(t, t0, stored.ScheduledAt)
	assert.Equal(t, model.MessageScheduled, stored.Status)
}

func TestUpdatePipeline_HotRecordsEvent(t *testing.T) {
	f := newFixture()
	f.seedCampaign("acc", "c1", "p1")
	ctx := context.Background()

	require.NoError(t, f.campaigns.UpdatePipeline(ctx, "acc", "p1", model.PipelineWarm, nil))
	assert.Empty(t, f.store.eventsOf(model.EventPipelineHot))

	require.NoError(t, f.campaigns.UpdatePipeline(ctx, "acc", "p1", model.PipelineHot, strPtr("c1")))
	hot := f.store.eventsOf(model.EventPipelineHot)
	require.Len(t, hot, 1)
	assert.Equal(t, "c1", *hot[0].CampaignID)
	assert.Equal(t, model.PipelineHot, f.store.prospects["p1"].PipelineStatus)

	var v *appErrors.ValidationError
	assert.ErrorAs(t, f.campaigns.UpdatePipeline(ctx, "acc", "p1", "boiling", nil), &v)
}

func TestReport(t *testing.T) {
	f := newFixture()
	f.seedCampaign("acc", "c1", "p1")
	f.seedMessage("m1", "c1", "p1", t0)
	f.store.metrics["acc|c1|2026-03-01"] = model.DailyMetric{AccountID: "acc", CampaignID: strPtr("c1"), Day: "2026-03-01", EmailsSent: 4}

	report, err := f.campaigns.Report(context.Background(), "acc", "c1")

	require.NoError(t, err)
	assert.Equal(t, "c1", report.Campaign.ID)
	assert.Equal(t, 1, report.MessageCounts["scheduled"])
	assert.Equal(t, 1, report.MessageCounts["total"])
	require.Len(t, report.Daily, 1)
	assert.Equal(t, 4, report.Daily[0].EmailsSent)
}
