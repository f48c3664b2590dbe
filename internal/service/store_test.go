package service_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/mailer"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/service"
	"github.com/unclebandit/outreach-backend/internal/textgen"
)

// store is an in-memory stand-in for the Postgres tables the services touch.
type store struct {
	mu sync.Mutex

	campaigns     map[string]*model.Campaign
	steps         []model.SequenceStep
	links         map[string]*model.CampaignProspect
	prospects     map[string]*model.Prospect
	messages      map[string]*model.ScheduledMessage
	actions       map[string]*model.LinkedAction
	events        []model.Event
	entitlements  map[string]*model.Entitlement
	plans         map[string]model.Plan
	planEvents    map[string]bool
	metrics       map[string]model.DailyMetric
	smtp          map[string]*model.SMTPCredential
	openAIKeys    map[string]string
	templates     []model.Template
	notifications []model.Notification
	invoices      map[string]*model.Invoice

	failAppend    error
	failFollowUps int
}

func newStore() *store {
	return &store{
		campaigns:    map[string]*model.Campaign{},
		links:        map[string]*model.CampaignProspect{},
		prospects:    map[string]*model.Prospect{},
		messages:     map[string]*model.ScheduledMessage{},
		actions:      map[string]*model.LinkedAction{},
		entitlements: map[string]*model.Entitlement{},
		plans:        map[string]model.Plan{},
		planEvents:   map[string]bool{},
		metrics:      map[string]model.DailyMetric{},
		smtp:         map[string]*model.SMTPCredential{},
		openAIKeys:   map[string]string{},
		invoices:     map[string]*model.Invoice{},
	}
}

func linkKey(campaignID, prospectID string) string { return campaignID + "/" + prospectID }

func (s *store) eventsOf(t model.EventType) []model.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *store) message(id string) model.ScheduledMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.messages[id]
}

func (s *store) action(id string) model.LinkedAction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.actions[id]
}

// campaigns

type campaignRepo struct{ s *store }

func (r campaignRepo) Create(_ context.Context, c *model.Campaign) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *c
	r.s.campaigns[c.ID] = &cp
	return nil
}

func (r campaignRepo) GetByID(_ context.Context, id string) (*model.Campaign, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (r campaignRepo) CountByAccount(_ context.Context, accountID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, c := range r.s.campaigns {
		if c.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (r campaignRepo) CreateSteps(_ context.Context, steps []model.SequenceStep) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.steps = append(r.s.steps, steps...)
	return nil
}

func (r campaignRepo) GetStep(_ context.Context, campaignID string, stepNumber int) (*model.SequenceStep, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, st := range r.s.steps {
		if st.CampaignID == campaignID && st.StepNumber == stepNumber {
			cp := st
			return &cp, nil
		}
	}
	return nil, nil
}

func (r campaignRepo) LinkProspects(_ context.Context, links []model.CampaignProspect) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, l := range links {
		k := linkKey(l.CampaignID, l.ProspectID)
		if _, ok := r.s.links[k]; !ok {
			cp := l
			r.s.links[k] = &cp
		}
	}
	return nil
}

func (r campaignRepo) UpdateLinkStatus(_ context.Context, campaignID, prospectID string, status model.LinkStatus, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[linkKey(campaignID, prospectID)]
	if !ok {
		return appErrors.NewNotFound("campaign prospect", linkKey(campaignID, prospectID))
	}
	l.Status = status
	l.LastEventAt = &at
	return nil
}

func (r campaignRepo) MarkLinkOpened(_ context.Context, campaignID, prospectID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if l, ok := r.s.links[linkKey(campaignID, prospectID)]; ok && l.Status == model.LinkSent {
		l.Status = model.LinkOpened
		l.LastEventAt = &at
	}
	return nil
}

func (r campaignRepo) SetConnectionStatus(_ context.Context, campaignID, prospectID string, status model.ConnectionStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	l, ok := r.s.links[linkKey(campaignID, prospectID)]
	if !ok {
		return false, appErrors.NewNotFound("campaign prospect", linkKey(campaignID, prospectID))
	}
	if l.ConnectionStatus == status {
		return false, nil
	}
	l.ConnectionStatus = status
	return true, nil
}

// prospects

type prospectRepo struct{ s *store }

func (r prospectRepo) GetByID(_ context.Context, id string) (*model.Prospect, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.prospects[id]
	if !ok {
		return nil, appErrors.NewNotFound("prospect", id)
	}
	cp := *p
	return &cp, nil
}

func (r prospectRepo) CountByAccount(_ context.Context, accountID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, p := range r.s.prospects {
		if p.AccountID == accountID {
			n++
		}
	}
	return n, nil
}

func (r prospectRepo) Upsert(_ context.Context, prospects []model.Prospect) ([]model.Prospect, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]model.Prospect, 0, len(prospects))
	for _, p := range prospects {
		var existing *model.Prospect
		for _, q := range r.s.prospects {
			if q.AccountID == p.AccountID && q.Email == p.Email {
				existing = q
			}
		}
		if existing != nil {
			existing.FirstName, existing.Company, existing.Title = p.FirstName, p.Company, p.Title
			existing.LinkedInURL = p.LinkedInURL
			out = append(out, *existing)
			continue
		}
		cp := p
		r.s.prospects[p.ID] = &cp
		out = append(out, cp)
	}
	return out, nil
}

func (r prospectRepo) UpdatePipelineStatus(_ context.Context, accountID, id string, status model.PipelineStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.prospects[id]
	if !ok || p.AccountID != accountID {
		return appErrors.NewNotFound("prospect", id)
	}
	p.PipelineStatus = status
	return nil
}

// messages

type messageRepo struct {
	s          *store
	loseClaims bool
}

func (r *messageRepo) Create(_ context.Context, msgs []model.ScheduledMessage) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range msgs {
		cp := m
		r.s.messages[m.ID] = &cp
	}
	return nil
}

func (r *messageRepo) ListDue(_ context.Context, now, staleBefore time.Time, limit int) ([]model.ScheduledMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.ScheduledMessage
	for _, m := range r.s.messages {
		due := m.Status == model.MessageScheduled && !m.ScheduledAt.After(now)
		stale := m.Status == model.MessageSending && m.ClaimedAt != nil && m.ClaimedAt.Before(staleBefore)
		if due || stale {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledAt.Before(out[j].ScheduledAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *messageRepo) Claim(_ context.Context, msg *model.ScheduledMessage, now time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.loseClaims {
		return false, nil
	}
	m := r.s.messages[msg.ID]
	if m == nil || m.Status != msg.Status {
		return false, nil
	}
	m.Status = model.MessageSending
	m.ClaimedAt = &now
	return true, nil
}

func (r *messageRepo) Release(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m := r.s.messages[id]; m != nil && m.Status == model.MessageSending {
		m.Status = model.MessageScheduled
		m.ClaimedAt = nil
	}
	return nil
}

func (r *messageRepo) MarkSent(_ context.Context, id string, sentAt time.Time, token, subject, body string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.s.messages[id]
	m.Status = model.MessageSent
	m.SentAt = &sentAt
	m.TrackingToken = &token
	m.Subject = &subject
	m.BodyHTML = &body
	return nil
}

func (r *messageRepo) MarkFailed(_ context.Context, id, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.s.messages[id]
	m.Status = model.MessageFailed
	m.Error = &reason
	return nil
}

func (r *messageRepo) GetByToken(_ context.Context, token string) (*model.ScheduledMessage, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, m := range r.s.messages {
		if m.TrackingToken != nil && *m.TrackingToken == token {
			cp := *m
			return &cp, nil
		}
	}
	return nil, appErrors.NewNotFound("message", token)
}

func (r *messageRepo) MarkOpened(_ context.Context, id string, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m := r.s.messages[id]
	if m.OpenedAt != nil {
		return false, nil
	}
	m.OpenedAt = &at
	return true, nil
}

func (r *messageRepo) StatusCounts(_ context.Context, campaignID string) (map[string]int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := map[string]int{"total": 0}
	for _, m := range r.s.messages {
		if m.CampaignID == campaignID {
			stats[string(m.Status)]++
			stats["total"]++
		}
	}
	return stats, nil
}

// actions

type actionRepo struct{ s *store }

func (r actionRepo) Create(_ context.Context, actions []model.LinkedAction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range actions {
		cp := a
		r.s.actions[a.ID] = &cp
	}
	return nil
}

func (r actionRepo) CreateFollowUp(_ context.Context, a *model.LinkedAction) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failFollowUps > 0 {
		r.s.failFollowUps--
		return false, errors.New("insert follow-up: connection reset")
	}
	for _, x := range r.s.actions {
		if x.CampaignID == a.CampaignID && x.ProspectID == a.ProspectID && x.ActionType == model.ActionFollowUpMsg {
			return false, nil
		}
	}
	cp := *a
	r.s.actions[a.ID] = &cp
	return true, nil
}

func (r actionRepo) GetByID(_ context.Context, accountID, id string) (*model.LinkedAction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.actions[id]
	if !ok || a.AccountID != accountID {
		return nil, appErrors.NewNotFound("linkedin action", id)
	}
	cp := *a
	return &cp, nil
}

func (r actionRepo) Complete(_ context.Context, accountID, id string, status model.ActionStatus, at time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.actions[id]
	if !ok || a.AccountID != accountID || a.Status != model.ActionPending {
		return false, nil
	}
	a.Status = status
	if status == model.ActionDone {
		a.DoneAt = &at
	}
	return true, nil
}

func (r actionRepo) Reschedule(_ context.Context, accountID, id string, dueAt time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a, ok := r.s.actions[id]
	if !ok || a.AccountID != accountID || a.Status != model.ActionPending {
		return false, nil
	}
	a.DueAt = dueAt
	return true, nil
}

func (r actionRepo) SetMessage(_ context.Context, id, text string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.actions[id].AIMessage = &text
	return nil
}

func (r actionRepo) CountDoneSince(_ context.Context, accountID string, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, a := range r.s.actions {
		if a.AccountID == accountID && a.Status == model.ActionDone && a.DoneAt != nil && !a.DoneAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r actionRepo) ListDuePending(_ context.Context, now time.Time, limit int) ([]model.LinkedAction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.LinkedAction
	for _, a := range r.s.actions {
		if a.Status == model.ActionPending && !a.DueAt.After(now) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(out[j].DueAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r actionRepo) countBetween(start, end time.Time, match func(a *model.LinkedAction) *time.Time) []repository.GroupCount {
	counts := map[string]*repository.GroupCount{}
	for _, a := range r.s.actions {
		at := match(a)
		if at == nil || at.Before(start) || !at.Before(end) {
			continue
		}
		k := a.AccountID + "|" + a.CampaignID
		if counts[k] == nil {
			campaign := a.CampaignID
			counts[k] = &repository.GroupCount{AccountID: a.AccountID, CampaignID: &campaign}
		}
		counts[k].Count++
	}
	out := make([]repository.GroupCount, 0, len(counts))
	for _, g := range counts {
		out = append(out, *g)
	}
	return out
}

func (r actionRepo) CountPendingDueBetween(_ context.Context, start, end time.Time) ([]repository.GroupCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.countBetween(start, end, func(a *model.LinkedAction) *time.Time {
		if a.Status != model.ActionPending {
			return nil
		}
		return &a.DueAt
	}), nil
}

func (r actionRepo) CountDoneBetween(_ context.Context, start, end time.Time) ([]repository.GroupCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.countBetween(start, end, func(a *model.LinkedAction) *time.Time {
		if a.Status != model.ActionDone {
			return nil
		}
		return a.DoneAt
	}), nil
}

// events

type eventRepo struct{ s *store }

func (r eventRepo) Append(_ context.Context, e *model.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failAppend != nil {
		return r.s.failAppend
	}
	r.s.events = append(r.s.events, *e)
	return nil
}

func (r eventRepo) CountByType(_ context.Context, accountID string, eventType model.EventType, since time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for _, e := range r.s.events {
		if e.AccountID == accountID && e.Type == eventType && !e.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (r eventRepo) CountBetween(_ context.Context, start, end time.Time) ([]repository.GroupCount, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	counts := map[string]*repository.GroupCount{}
	var order []string
	for _, e := range r.s.events {
		if e.CreatedAt.Before(start) || !e.CreatedAt.Before(end) {
			continue
		}
		campaign := ""
		if e.CampaignID != nil {
			campaign = *e.CampaignID
		}
		k := strings.Join([]string{e.AccountID, campaign, string(e.Type)}, "|")
		if counts[k] == nil {
			counts[k] = &repository.GroupCount{AccountID: e.AccountID, CampaignID: e.CampaignID, Type: string(e.Type)}
			order = append(order, k)
		}
		counts[k].Count++
	}
	out := make([]repository.GroupCount, 0, len(order))
	for _, k := range order {
		out = append(out, *counts[k])
	}
	return out, nil
}

// entitlements

type entitlementRepo struct{ s *store }

func (r entitlementRepo) Get(_ context.Context, accountID string) (*model.Entitlement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entitlements[accountID]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (r entitlementRepo) Upsert(_ context.Context, ent *model.Entitlement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *ent
	r.s.entitlements[ent.AccountID] = &cp
	return nil
}

func (r entitlementRepo) GetPlan(_ context.Context, accountID string) (model.Plan, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p, ok := r.s.plans[accountID]; ok {
		return p, nil
	}
	return model.PlanStarter, nil
}

func (r entitlementRepo) UpsertSubscription(_ context.Context, sub *model.Subscription) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.plans[sub.AccountID] = sub.Plan
	return nil
}

func (r entitlementRepo) MarkPlanEventProcessed(_ context.Context, eventID string, _ time.Time) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.planEvents[eventID] {
		return false, nil
	}
	r.s.planEvents[eventID] = true
	return true, nil
}

// daily metrics

type metricRepo struct{ s *store }

func metricKey(m *model.DailyMetric) string {
	campaign := ""
	if m.CampaignID != nil {
		campaign = *m.CampaignID
	}
	return m.AccountID + "|" + campaign + "|" + m.Day
}

func (r metricRepo) Upsert(_ context.Context, m *model.DailyMetric) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.metrics[metricKey(m)] = *m
	return nil
}

func (r metricRepo) DeleteDay(_ context.Context, day string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for k, m := range r.s.metrics {
		if m.Day == day {
			delete(r.s.metrics, k)
		}
	}
	return nil
}

func (r metricRepo) ListByCampaign(_ context.Context, campaignID string) ([]model.DailyMetric, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.DailyMetric
	for _, m := range r.s.metrics {
		if m.CampaignID != nil && *m.CampaignID == campaignID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r metricRepo) ListByDay(_ context.Context, day string) ([]model.DailyMetric, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.DailyMetric
	for _, m := range r.s.metrics {
		if m.Day == day {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return metricKey(&out[i]) < metricKey(&out[j]) })
	return out, nil
}

// accounts

type accountRepo struct{ s *store }

func (r accountRepo) GetSMTPCredential(_ context.Context, accountID string) (*model.SMTPCredential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.smtp[accountID], nil
}

func (r accountRepo) GetOpenAIKey(_ context.Context, accountID string) (string, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.openAIKeys[accountID], nil
}

func (r accountRepo) FindAccountTemplate(_ context.Context, accountID string, scope model.TemplateScope, language string) (*model.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.templates {
		if t.AccountID != nil && *t.AccountID == accountID && t.Scope == scope && t.Language == language {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r accountRepo) FindGlobalTemplate(_ context.Context, scope model.TemplateScope, language string) (*model.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.templates {
		if t.AccountID == nil && t.Scope == scope && t.Language == language {
			cp := t
			return &cp, nil
		}
	}
	return nil, nil
}

func (r accountRepo) InsertNotification(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.notifications = append(r.s.notifications, *n)
	return nil
}

// invoices

type invoiceRepo struct{ s *store }

func (r invoiceRepo) ListOverdue(_ context.Context, today time.Time) ([]model.Invoice, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.s.invoices {
		if (inv.Status == model.InvoiceDraft || inv.Status == model.InvoiceSent) && inv.DueDate.Before(today) {
			out = append(out, *inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r invoiceRepo) MarkOverdue(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv := r.s.invoices[id]
	if inv == nil || inv.Status == model.InvoiceOverdue || inv.Status == model.InvoicePaid {
		return false, nil
	}
	inv.Status = model.InvoiceOverdue
	return true, nil
}

// collaborators

// inlineProvider runs fn without a real transaction.
type inlineProvider struct{ calls int }

func (p *inlineProvider) Transact(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

// plainSecrets treats "sealed:<value>" as the encrypted form of value.
type plainSecrets struct{}

func (plainSecrets) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, "sealed:") {
		return "", errors.New("not sealed")
	}
	return strings.TrimPrefix(sealed, "sealed:"), nil
}

type mockTransport struct{ mock.Mock }

func (m *mockTransport) Send(ctx context.Context, server mailer.Server, msg mailer.Message) error {
	args := m.Called(ctx, server, msg)
	return args.Error(0)
}

type mockGenerator struct{ mock.Mock }

func (m *mockGenerator) Generate(ctx context.Context, req textgen.Request) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

type recordingPublisher struct {
	topics   []string
	payloads []any
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, payload any) error {
	p.topics = append(p.topics, topic)
	p.payloads = append(p.payloads, payload)
	return nil
}

var (
	_ repository.CampaignRepositoryInterface    = campaignRepo{}
	_ repository.ProspectRepositoryInterface    = prospectRepo{}
	_ repository.MessageRepositoryInterface     = (*messageRepo)(nil)
	_ repository.ActionRepositoryInterface      = actionRepo{}
	_ repository.EventRepositoryInterface       = eventRepo{}
	_ repository.EntitlementRepositoryInterface = entitlementRepo{}
	_ repository.MetricRepositoryInterface      = metricRepo{}
	_ repository.AccountRepositoryInterface     = accountRepo{}
	_ repository.InvoiceRepositoryInterface     = invoiceRepo{}
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// fixture wires every service over one store with a controllable clock.
type fixture struct {
	store     *store
	messages  *messageRepo
	provider  *inlineProvider
	transport *mockTransport
	generator *mockGenerator
	publisher *recordingPublisher
	now       time.Time

	quota     *service.QuotaService
	campaigns *service.CampaignService
	dispatch  *service.DispatchWorker
	actions   *service.ActionService
	aggregate *service.Aggregator
	tracking  *service.TrackingService
	notifier  *service.DueActionNotifier
	overdue   *service.OverdueDetector
}

func newFixture() *fixture {
	f := &fixture{
		store:     newStore(),
		provider:  &inlineProvider{},
		transport: &mockTransport{},
		generator: &mockGenerator{},
		publisher: &recordingPublisher{},
		now:       t0,
	}
	f.messages = &messageRepo{s: f.store}
	clock := func() time.Time { return f.now }
	log := zap.NewNop()

	campaigns := campaignRepo{f.store}
	prospects := prospectRepo{f.store}
	actions := actionRepo{f.store}
	events := eventRepo{f.store}
	accounts := accountRepo{f.store}
	templates := &service.TemplateResolver{Accounts: accounts}

	f.quota = service.NewQuotaService(entitlementRepo{f.store}, campaigns, prospects, actions, f.provider, log)
	f.quota.Now = clock

	f.campaigns = &service.CampaignService{
		Campaigns: campaigns, Prospects: prospects, Messages: f.messages, Actions: actions,
		Events: events, Metrics: metricRepo{f.store}, Quota: f.quota, Sequencer: service.NewSequencer(),
		Provider: f.provider, Log: log, Now: clock, DefaultEmailsPerHour: 20,
	}
	f.dispatch = &service.DispatchWorker{
		Messages: f.messages, Campaigns: campaigns, Prospects: prospects, Accounts: accounts,
		Events: events, Quota: f.quota, Templates: templates, Provider: f.provider,
		Transport: f.transport, Generator: f.generator, Secrets: plainSecrets{}, Log: log,
		Options: service.DispatchOptions{BatchSize: 25, ClaimLease: 10 * time.Minute, DefaultEmailsPerHour: 20, PublicBaseURL: "https://app.test"},
		Now:     clock,
	}
	f.actions = &service.ActionService{
		Actions: actions, Campaigns: campaigns, Prospects: prospects, Accounts: accounts,
		Quota: f.quota, Templates: templates, Provider: f.provider, Generator: f.generator, Secrets: plainSecrets{},
		Log: log, Now: clock,
	}
	f.aggregate = &service.Aggregator{
		Events: events, Actions: actions, Metrics: metricRepo{f.store}, Provider: f.provider, Log: log, Now: clock,
	}
	f.tracking = &service.TrackingService{
		Messages: f.messages, Campaigns: campaigns, Events: events, Provider: f.provider, Log: log, Now: clock,
	}
	f.notifier = &service.DueActionNotifier{
		Actions: actions, Accounts: accounts, Publisher: f.publisher, Transport: f.transport,
		Secrets: plainSecrets{}, Log: log, Limit: 200, Now: clock,
	}
	f.overdue = &service.OverdueDetector{
		Invoices: invoiceRepo{f.store}, Events: events, Provider: f.provider, Log: log, Now: clock,
	}
	return f
}

// seedCampaign stores a campaign with linked prospects directly.
func (f *fixture) seedCampaign(accountID, campaignID string, prospectIDs ...string) {
	f.store.campaigns[campaignID] = &model.Campaign{ID: campaignID, AccountID: accountID, Name: "c", Language: "en"}
	for _, id := range prospectIDs {
		url := "https://linkedin.test/" + id
		f.store.prospects[id] = &model.Prospect{
			ID: id, AccountID: accountID, FirstName: "Ada", Company: "Acme", Title: "CTO",
			Email: id + "@acme.test", LinkedInURL: &url, PipelineStatus: model.PipelineCold,
		}
		f.store.links[linkKey(campaignID, id)] = &model.CampaignProspect{
			CampaignID: campaignID, ProspectID: id, Status: model.LinkQueued, ConnectionStatus: model.ConnectionNone,
		}
	}
}

func (f *fixture) seedSMTP(accountID string) {
	f.store.smtp[accountID] = &model.SMTPCredential{
		AccountID: accountID, Host: "smtp.test", Port: 587, Username: "bot",
		PasswordEncrypted: "sealed:pw", FromEmail: "bot@acme.test",
	}
}

func (f *fixture) seedMessage(id, campaignID, prospectID string, at time.Time) {
	f.store.messages[id] = &model.ScheduledMessage{
		ID: id, CampaignID: campaignID, ProspectID: prospectID, SequenceStep: 1,
		ScheduledAt: at, Status: model.MessageScheduled,
	}
}

func (f *fixture) seedSentEvents(accountID, campaignID string, n int, at time.Time) {
	for i := 0; i < n; i++ {
		f.store.events = append(f.store.events, model.Event{
			AccountID: accountID, CampaignID: &campaignID, Type: model.EventSent, CreatedAt: at,
		})
	}
}

func strPtr(s string) *string { return &s }
