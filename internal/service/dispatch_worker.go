package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/mailer"
	"github.com/unclebandit/outreach-backend/internal/metrics"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
	"github.com/unclebandit/outreach-backend/internal/textgen"
)

const (
	ReasonCampaignMissing  = "campaign not found"
	ReasonProspectMissing  = "prospect not found"
	ReasonSMTPMissing      = "missing SMTP credentials"
	ReasonOpenAIKeyMissing = "missing OpenAI API key"
)

// SecretOpener decrypts stored provider credentials.
type SecretOpener interface {
	Open(sealed string) (string, error)
}

type dispatchOutcome string

const (
	outcomeSent      dispatchOutcome = "sent"
	outcomeFailed    dispatchOutcome = "failed"
	outcomeThrottled dispatchOutcome = "throttled"
	outcomeSkipped   dispatchOutcome = "skipped"
)

type DispatchResult struct {
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Throttled int `json:"throttled"`
	Skipped   int `json:"skipped"`
}

type DispatchOptions struct {
	BatchSize            int
	ClaimLease           time.Duration
	DefaultEmailsPerHour int
	PublicBaseURL        string
}

// DispatchWorker sends due scheduled messages. One invocation is a bounded
// batch; every message is handled in isolation.
type DispatchWorker struct {
	Messages  repository.MessageRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
	Prospects repository.ProspectRepositoryInterface
	Accounts  repository.AccountRepositoryInterface
	Events    repository.EventRepositoryInterface
	Quota     *QuotaService
	Templates *TemplateResolver
	Provider  db.Provider
	Transport mailer.Transport
	Generator textgen.Generator
	Secrets   SecretOpener
	Metrics   *metrics.Metrics
	Log       *zap.Logger
	Options   DispatchOptions
	Now       func() time.Time
	NewToken  func() string
}

// failure is a terminal problem with a single message.
type failure struct {
	reason string
}

func (f *failure) Error() string { return f.reason }

func terminal(format string, args ...any) error {
	return &failure{reason: fmt.Sprintf(format, args...)}
}

// Run processes one batch of due messages, earliest first.
func (w *DispatchWorker) Run(ctx context.Context) (DispatchResult, error) {
	var result DispatchResult
	now := w.Now().UTC()

	due, err := w.Messages.ListDue(ctx, now, now.Add(-w.Options.ClaimLease), w.Options.BatchSize)
	if err != nil {
		return result, appErrors.NewDependency("store", fmt.Errorf("list due messages: %w", err))
	}

	for i := range due {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		outcome := w.process(ctx, &due[i])
		w.Metrics.DispatchOutcome(string(outcome))
		switch outcome {
		case outcomeSent:
			result.Sent++
		case outcomeFailed:
			result.Failed++
		case outcomeThrottled:
			result.Throttled++
		default:
			result.Skipped++
		}
	}

	w.Log.Info("Dispatch batch finished",
		zap.Int("due", len(due)),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
		zap.Int("throttled", result.Throttled))
	return result, nil
}

func (w *DispatchWorker) process(ctx context.Context, msg *model.ScheduledMessage) dispatchOutcome {
	log := w.Log.With(zap.String("message_id", msg.ID))

	campaign, err := w.Campaigns.GetByID(ctx, msg.CampaignID)
	var nf *appErrors.NotFoundError
	if errors.As(err, &nf) {
		return w.claimAndFail(ctx, log, msg, ReasonCampaignMissing)
	}
	if err != nil {
		log.Warn("Campaign lookup failed, leaving message for next poll", zap.Error(err))
		return outcomeSkipped
	}

	throttled, err := w.throttled(ctx, campaign.AccountID)
	if err != nil {
		log.Warn("Send rate lookup failed, leaving message for next poll", zap.Error(err))
		return outcomeSkipped
	}
	if throttled {
		log.Debug("Hourly send limit reached", zap.String("account_id", campaign.AccountID))
		return outcomeThrottled
	}

	claimed, err := w.Messages.Claim(ctx, msg, w.Now().UTC())
	if err != nil {
		log.Warn("Claim failed", zap.Error(err))
		return outcomeSkipped
	}
	if !claimed {
		log.Debug("Message claimed elsewhere")
		return outcomeSkipped
	}

	if err := w.deliver(ctx, log, campaign, msg); err != nil {
		var f *failure
		if errors.As(err, &f) {
			w.fail(ctx, log, msg.ID, f.reason)
			return outcomeFailed
		}
		// Transient: hand the message back to the polling loop.
		log.Warn("Dispatch interrupted, releasing claim", zap.Error(err))
		if relErr := w.Messages.Release(ctx, msg.ID); relErr != nil {
			log.Error("Release failed", zap.Error(relErr))
		}
		return outcomeSkipped
	}
	return outcomeSent
}

// throttled re-counts sent events in the trailing hour on every call, so
// sends earlier in the same batch are included.
func (w *DispatchWorker) throttled(ctx context.Context, accountID string) (bool, error) {
	ent, err := w.Quota.GetEntitlements(ctx, accountID)
	if err != nil {
		return false, err
	}
	// A resolved entitlement is authoritative, zero included.
	limit := w.Options.DefaultEmailsPerHour
	if ent != nil {
		limit = ent.EmailsPerHour
	}
	sent, err := w.Events.CountByType(ctx, accountID, model.EventSent, w.Now().UTC().Add(-time.Hour))
	if err != nil {
		return false, err
	}
	return sent >= limit, nil
}

func (w *DispatchWorker) deliver(ctx context.Context, log *zap.Logger, campaign *model.Campaign, msg *model.ScheduledMessage) error {
	prospect, err := w.Prospects.GetByID(ctx, msg.ProspectID)
	var nf *appErrors.NotFoundError
	if errors.As(err, &nf) {
		return terminal(ReasonProspectMissing)
	}
	if err != nil {
		return err
	}

	cred, err := w.Accounts.GetSMTPCredential(ctx, campaign.AccountID)
	if err != nil {
		return err
	}
	if cred == nil {
		return terminal(ReasonSMTPMissing)
	}
	password, err := w.Secrets.Open(cred.PasswordEncrypted)
	if err != nil {
		return terminal("cannot decrypt SMTP password: %v", err)
	}

	subject, body, err := w.content(ctx, campaign, prospect, msg)
	if err != nil {
		return err
	}

	token := w.trackingToken(msg)

	fromName := ""
	if cred.FromName != nil {
		fromName = *cred.FromName
	}
	err = w.Transport.Send(ctx, mailer.Server{
		Host:     cred.Host,
		Port:     cred.Port,
		Username: cred.Username,
		Password: password,
	}, mailer.Message{
		FromName:  fromName,
		FromEmail: cred.FromEmail,
		To:        prospect.Email,
		Subject:   subject,
		HTML:      InjectTrackingPixel(body, token, w.Options.PublicBaseURL),
	})
	if err != nil {
		return terminal("%v", err)
	}

	sentAt := w.Now().UTC()
	err = w.Provider.Transact(ctx, func(ctx context.Context) error {
		if err := w.Messages.MarkSent(ctx, msg.ID, sentAt, token, subject, body); err != nil {
			return err
		}
		if err := w.Campaigns.UpdateLinkStatus(ctx, msg.CampaignID, msg.ProspectID, model.LinkSent, sentAt); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]string{"message_id": msg.ID})
		return w.Events.Append(ctx, &model.Event{
			ID:         uuid.NewString(),
			AccountID:  campaign.AccountID,
			CampaignID: &msg.CampaignID,
			ProspectID: &msg.ProspectID,
			Type:       model.EventSent,
			Meta:       meta,
			CreatedAt:  sentAt,
		})
	})
	if err != nil {
		// The mail is out; the row stays claimed and is retried after the
		// lease expires.
		log.Error("Recording sent message failed", zap.Error(err))
		return nil
	}
	log.Info("Message sent", zap.String("campaign_id", msg.CampaignID))
	return nil
}

// content returns the cached subject and body, or generates them.
func (w *DispatchWorker) content(ctx context.Context, campaign *model.Campaign, prospect *model.Prospect, msg *model.ScheduledMessage) (string, string, error) {
	if msg.HasContent() {
		return *msg.Subject, *msg.BodyHTML, nil
	}

	sealedKey, err := w.Accounts.GetOpenAIKey(ctx, campaign.AccountID)
	if err != nil {
		return "", "", err
	}
	if sealedKey == "" {
		return "", "", terminal(ReasonOpenAIKeyMissing)
	}
	apiKey, err := w.Secrets.Open(sealedKey)
	if err != nil {
		return "", "", terminal("cannot decrypt OpenAI API key: %v", err)
	}

	step, err := w.Campaigns.GetStep(ctx, msg.CampaignID, msg.SequenceStep)
	if err != nil {
		return "", "", err
	}
	var stepTemplate *string
	if step != nil {
		stepTemplate = step.PromptTemplate
	}
	tmpl, err := w.Templates.Resolve(ctx, campaign.AccountID, model.ScopeEmail, campaign.Language, stepTemplate, DefaultEmailTemplate)
	if err != nil {
		return "", "", err
	}

	text, err := w.Generator.Generate(ctx, textgen.Request{
		APIKey: apiKey,
		System: textgen.EmailSystemPrompt,
		Prompt: RenderTemplate(tmpl, ProspectVars(prospect, campaign.Language)),
	})
	if err != nil {
		return "", "", terminal("text generation: %v", err)
	}
	return EmailSubject(prospect), WrapEmailBody(text), nil
}

func (w *DispatchWorker) trackingToken(msg *model.ScheduledMessage) string {
	if msg.TrackingToken != nil && *msg.TrackingToken != "" {
		return *msg.TrackingToken
	}
	if w.NewToken != nil {
		return w.NewToken()
	}
	return uuid.NewString()
}

func (w *DispatchWorker) claimAndFail(ctx context.Context, log *zap.Logger, msg *model.ScheduledMessage, reason string) dispatchOutcome {
	claimed, err := w.Messages.Claim(ctx, msg, w.Now().UTC())
	if err != nil || !claimed {
		return outcomeSkipped
	}
	w.fail(ctx, log, msg.ID, reason)
	return outcomeFailed
}

func (w *DispatchWorker) fail(ctx context.Context, log *zap.Logger, id, reason string) {
	log.Warn("Message failed", zap.String("reason", reason))
	if err := w.Messages.MarkFailed(ctx, id, reason); err != nil {
		log.Error("Marking message failed did not persist", zap.Error(err))
	}
}
