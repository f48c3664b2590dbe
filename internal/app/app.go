// Package app wires configuration, storage, collaborators and services into
// one graph shared by the server, worker and seeder binaries.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/config"
	"github.com/unclebandit/outreach-backend/internal/controller"
	"github.com/unclebandit/outreach-backend/internal/db"
	"github.com/unclebandit/outreach-backend/internal/handler"
	"github.com/unclebandit/outreach-backend/internal/mailer"
	"github.com/unclebandit/outreach-backend/internal/metrics"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/secret"
	"github.com/unclebandit/outreach-backend/internal/service"
	"github.com/unclebandit/outreach-backend/internal/textgen"
)

type App struct {
	Config   *config.Config
	Log      *zap.Logger
	DB       *sqlx.DB
	Registry *prometheus.Registry
	Sealer   *secret.Sealer

	Quota      *service.QuotaService
	Campaigns  *service.CampaignService
	Dispatch   *service.DispatchWorker
	Actions    *service.ActionService
	Aggregator *service.Aggregator
	Tracking   *service.TrackingService
	Notifier   *service.DueActionNotifier
	Overdue    *service.OverdueDetector

	closers []func() error
}

func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	sealer, err := secret.NewSealer(cfg.EncryptionSecret)
	if err != nil {
		return nil, fmt.Errorf("credential sealer: %w", err)
	}

	conn, err := db.Connect(ctx, cfg.DB, log)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Log: log, DB: conn, Sealer: sealer}
	a.closers = append(a.closers, conn.Close)

	publisher, err := a.publisher()
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	stats := metrics.New(a.Registry)

	provider := db.NewProvider(conn)
	campaigns := &repository.CampaignRepository{DB: conn}
	prospects := &repository.ProspectRepository{DB: conn}
	messages := &repository.MessageRepository{DB: conn}
	actions := &repository.ActionRepository{DB: conn}
	events := &repository.EventRepository{DB: conn}
	entitlements := &repository.EntitlementRepository{DB: conn}
	dailyMetrics := &repository.MetricRepository{DB: conn}
	accounts := &repository.AccountRepository{DB: conn}
	invoices := &repository.InvoiceRepository{DB: conn}

	transport := mailer.NewSMTPTransport(30 * time.Second)
	generator := textgen.NewOpenAIGenerator(cfg.OpenAIModel)
	templates := &service.TemplateResolver{Accounts: accounts}

	a.Quota = service.NewQuotaService(entitlements, campaigns, prospects, actions, provider, log)
	a.Campaigns = &service.CampaignService{
		Campaigns:            campaigns,
		Prospects:            prospects,
		Messages:             messages,
		Actions:              actions,
		Events:               events,
		Metrics:              dailyMetrics,
		Quota:                a.Quota,
		Sequencer:            service.NewSequencer(),
		Provider:             provider,
		Log:                  log.Named("campaigns"),
		Now:                  time.Now,
		DefaultEmailsPerHour: cfg.Dispatch.DefaultEmailsPerHour,
	}
	a.Dispatch = &service.DispatchWorker{
		Messages:  messages,
		Campaigns: campaigns,
		Prospects: prospects,
		Accounts:  accounts,
		Events:    events,
		Quota:     a.Quota,
		Templates: templates,
		Provider:  provider,
		Transport: transport,
		Generator: generator,
		Secrets:   sealer,
		Metrics:   stats,
		Log:       log.Named("dispatch"),
		Options: service.DispatchOptions{
			BatchSize:            cfg.Dispatch.BatchSize,
			ClaimLease:           cfg.Dispatch.ClaimLease,
			DefaultEmailsPerHour: cfg.Dispatch.DefaultEmailsPerHour,
			PublicBaseURL:        cfg.PublicBaseURL,
		},
		Now: time.Now,
	}
	a.Actions = &service.ActionService{
		Actions:   actions,
		Campaigns: campaigns,
		Prospects: prospects,
		Accounts:  accounts,
		Quota:     a.Quota,
		Templates: templates,
		Provider:  provider,
		Generator: generator,
		Secrets:   sealer,
		Metrics:   stats,
		Log:       log.Named("actions"),
		Now:       time.Now,
	}
	a.Aggregator = &service.Aggregator{
		Events:   events,
		Actions:  actions,
		Metrics:  dailyMetrics,
		Provider: provider,
		Stats:    stats,
		Log:      log.Named("aggregate"),
		Now:      time.Now,
	}
	a.Tracking = &service.TrackingService{
		Messages:  messages,
		Campaigns: campaigns,
		Events:    events,
		Provider:  provider,
		Log:       log.Named("tracking"),
		Now:       time.Now,
	}
	a.Notifier = &service.DueActionNotifier{
		Actions:   actions,
		Accounts:  accounts,
		Publisher: publisher,
		Transport: transport,
		Secrets:   sealer,
		Stats:     stats,
		Log:       log.Named("notify"),
		Limit:     cfg.Dispatch.DueActionsLimit,
		Now:       time.Now,
	}
	a.Overdue = &service.OverdueDetector{
		Invoices: invoices,
		Events:   events,
		Provider: provider,
		Log:      log.Named("invoices"),
		Now:      time.Now,
	}
	return a, nil
}

// publisher prefers the broker and falls back to the in-process queue.
func (a *App) publisher() (queue.Publisher, error) {
	if a.Config.AMQP.URL == "" {
		q := queue.NewInMemoryQueue(a.Log.Named("queue"))
		if err := queue.StartNotificationLogger(q, a.Log); err != nil {
			return nil, err
		}
		a.Log.Info("AMQP_URL not set, using in-memory notification queue")
		return q, nil
	}
	p, err := queue.NewAMQPPublisher(a.Config.AMQP.URL, a.Config.AMQP.NotificationQueue)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, p.Close)
	return p, nil
}

// Close releases resources in reverse acquisition order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Log.Warn("Close failed", zap.Error(err))
		}
	}
}

// Handlers groups the HTTP endpoints mounted by NewRouter.
type Handlers struct {
	Campaigns *controller.CampaignController
	Actions   *controller.ActionController
	Billing   *controller.BillingController
	Reports   *handler.CampaignHandler
	Workers   *handler.WorkerHandler
	Tracking  *handler.TrackingHandler
	Metrics   http.Handler
	// WebhookSecret verifies signed plan-change notifications.
	WebhookSecret string
}

func (a *App) Handlers() Handlers {
	return Handlers{
		Campaigns: &controller.CampaignController{Campaigns: a.Campaigns, Connections: a.Actions},
		Actions:   &controller.ActionController{Actions: a.Actions},
		Billing:   &controller.BillingController{Plans: a.Quota},
		Reports:   handler.NewCampaignHandler(a.Campaigns, a.Log),
		Workers: &handler.WorkerHandler{
			Dispatch:  a.Dispatch,
			Aggregate: a.Aggregator,
			Notify:    a.Notifier,
			Overdue:   a.Overdue,
			Log:       a.Log,
		},
		Tracking: &handler.TrackingHandler{Opens: a.Tracking, Log: a.Log},
		Metrics:  promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}),

		WebhookSecret: a.Config.BillingWebhookSecret,
	}
}

func NewRouter(h Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", handler.Health)
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/t.gif", h.Tracking.Pixel)

		r.Route("/worker", func(r chi.Router) {
			r.Get("/send-due-emails", h.Workers.SendDueEmails)
			r.Get("/aggregate-daily", h.Workers.AggregateDaily)
			r.Get("/notify-linkedin-due", h.Workers.NotifyLinkedInDue)
			r.Get("/invoices-overdue-detection", h.Workers.InvoicesOverdue)
		})

		r.With(controller.RequireSignature(h.WebhookSecret)).Post("/billing/plan-change", h.Billing.PlanChange)

		r.Group(func(r chi.Router) {
			r.Use(controller.RequireAccount)

			r.Post("/campaigns", h.Campaigns.CreateCampaign)
			r.Get("/campaigns/{id}", h.Reports.GetCampaignReport)
			r.Route("/campaigns/{id}/prospects/{prospect_id}", func(r chi.Router) {
				r.Post("/connection", h.Campaigns.SetConnection)
				r.Post("/resend", h.Campaigns.Resend)
				r.Post("/mark-replied", h.Campaigns.MarkReplied)
				r.Post("/set-status", h.Campaigns.SetStatus)
			})
			r.Post("/prospects/{id}/pipeline", h.Campaigns.UpdatePipeline)
			r.Post("/linkedin-actions/{action_id}", h.Actions.Mutate)
		})
	})
	return r
}

// Jobs lists the periodic background jobs run by cmd/worker.
func (a *App) Jobs() []service.Job {
	d := a.Config.Dispatch
	return []service.Job{
		{Name: "send-due-emails", Interval: d.PollInterval, Run: func(ctx context.Context) error {
			_, err := a.Dispatch.Run(ctx)
			return err
		}},
		{Name: "aggregate-daily", Interval: d.AggregateInterval, Run: func(ctx context.Context) error {
			_, err := a.Aggregator.RunRecent(ctx)
			return err
		}},
		{Name: "notify-linkedin-due", Interval: d.NotifyInterval, Run: func(ctx context.Context) error {
			_, err := a.Notifier.Run(ctx)
			return err
		}},
		{Name: "invoices-overdue-detection", Interval: d.NotifyInterval, Run: func(ctx context.Context) error {
			_, err := a.Overdue.Run(ctx)
			return err
		}},
	}
}
