package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/mailer"
	"github.com/unclebandit/outreach-backend/internal/metrics"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/queue"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

const NotificationLinkedInDue = "linkedin_due"

type NotifyResult struct {
	NotifiedUsers int `json:"notified_users"`
}

// DueActionNotifier tells each account how many secondary-channel actions
// are waiting. The email copy goes to the account's own sender address and
// is best effort.
type DueActionNotifier struct {
	Actions   repository.ActionRepositoryInterface
	Accounts  repository.AccountRepositoryInterface
	Publisher queue.Publisher
	Transport mailer.Transport
	Secrets   SecretOpener
	Stats     *metrics.Metrics
	Log       *zap.Logger
	Limit     int
	Now       func() time.Time
}

func (n *DueActionNotifier) Run(ctx context.Context) (NotifyResult, error) {
	due, err := n.Actions.ListDuePending(ctx, n.Now().UTC(), n.Limit)
	if err != nil {
		return NotifyResult{}, fmt.Errorf("list due actions: %w", err)
	}

	counts := map[string]int{}
	for _, a := range due {
		counts[a.AccountID]++
	}
	accounts := make([]string, 0, len(counts))
	for id := range counts {
		accounts = append(accounts, id)
	}
	sort.Strings(accounts)

	var result NotifyResult
	for _, accountID := range accounts {
		note := &model.Notification{AccountID: accountID, Type: NotificationLinkedInDue, Count: counts[accountID]}
		log := n.Log.With(zap.String("account_id", accountID))

		if err := n.Accounts.InsertNotification(ctx, note); err != nil {
			log.Error("Storing notification failed", zap.Error(err))
			continue
		}
		if n.Publisher != nil {
			if err := n.Publisher.Publish(ctx, queue.TopicDueActions, note); err != nil {
				log.Warn("Publishing notification failed", zap.Error(err))
			}
		}
		n.email(ctx, log, note)
		result.NotifiedUsers++
	}

	n.Stats.AccountsNotified(result.NotifiedUsers)
	return result, nil
}

func (n *DueActionNotifier) email(ctx context.Context, log *zap.Logger, note *model.Notification) {
	if n.Transport == nil {
		return
	}
	cred, err := n.Accounts.GetSMTPCredential(ctx, note.AccountID)
	if err != nil || cred == nil {
		return
	}
	password, err := n.Secrets.Open(cred.PasswordEncrypted)
	if err != nil {
		log.Warn("Cannot decrypt SMTP password", zap.Error(err))
		return
	}
	err = n.Transport.Send(ctx, mailer.Server{
		Host:     cred.Host,
		Port:     cred.Port,
		Username: cred.Username,
		Password: password,
	}, mailer.Message{
		FromEmail: cred.FromEmail,
		To:        cred.FromEmail,
		Subject:   "LinkedIn actions due",
		HTML:      fmt.Sprintf("<p>You have %d LinkedIn actions due.</p>", note.Count),
	})
	if err != nil {
		log.Warn("Notification email failed", zap.Error(err))
	}
}
