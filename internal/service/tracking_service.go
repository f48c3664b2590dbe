package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/db"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/repository"
)

// TransparentGIF is the 1x1 image served for every tracking hit.
var TransparentGIF, _ = base64.StdEncoding.DecodeString("R0lGODlhAQABAPAAAAAAAAAAACH5BAEAAAAALAAAAAABAAEAAAICRAEAOw==")

type TrackingService struct {
	Messages  repository.MessageRepositoryInterface
	Campaigns repository.CampaignRepositoryInterface
	Events    repository.EventRepositoryInterface
	Provider  db.Provider
	Log       *zap.Logger
	Now       func() time.Time
}

// RecordOpen stores the first open of a sent message. Unknown tokens and
// repeated hits are ignored and report false.
func (s *TrackingService) RecordOpen(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	msg, err := s.Messages.GetByToken(ctx, token)
	var nf *appErrors.NotFoundError
	if errors.As(err, &nf) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if msg.Status != model.MessageSent || msg.OpenedAt != nil {
		return false, nil
	}

	campaign, err := s.Campaigns.GetByID(ctx, msg.CampaignID)
	if err != nil {
		return false, err
	}

	now := s.Now().UTC()
	first := false
	err = s.Provider.Transact(ctx, func(ctx context.Context) error {
		ok, err := s.Messages.MarkOpened(ctx, msg.ID, now)
		if err != nil || !ok {
			return err
		}
		first = true
		if err := s.Campaigns.MarkLinkOpened(ctx, msg.CampaignID, msg.ProspectID, now); err != nil {
			return err
		}
		meta, _ := json.Marshal(map[string]string{"message_id": msg.ID})
		return s.Events.Append(ctx, &model.Event{
			ID:         uuid.NewString(),
			AccountID:  campaign.AccountID,
			CampaignID: &msg.CampaignID,
			ProspectID: &msg.ProspectID,
			Type:       model.EventOpen,
			Meta:       meta,
			CreatedAt:  now,
		})
	})
	if err != nil {
		return false, err
	}
	if first {
		s.Log.Debug("Open recorded", zap.String("message_id", msg.ID))
	}
	return first, nil
}
