package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/controller"
	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type Dispatcher interface {
	Run(ctx context.Context) (service.DispatchResult, error)
}

type DailyAggregator interface {
	Run(ctx context.Context, day string) (service.AggregateResult, error)
}

type DueNotifier interface {
	Run(ctx context.Context) (service.NotifyResult, error)
}

type OverdueMarker interface {
	Run(ctx context.Context) (service.OverdueResult, error)
}

var (
	_ Dispatcher      = (*service.DispatchWorker)(nil)
	_ DailyAggregator = (*service.Aggregator)(nil)
	_ DueNotifier     = (*service.DueActionNotifier)(nil)
	_ OverdueMarker   = (*service.OverdueDetector)(nil)
)

// WorkerHandler exposes each background worker as a stateless GET trigger.
type WorkerHandler struct {
	Dispatch  Dispatcher
	Aggregate DailyAggregator
	Notify    DueNotifier
	Overdue   OverdueMarker
	Log       *zap.Logger
}

func (h *WorkerHandler) fail(w http.ResponseWriter, worker string, err error) {
	status := http.StatusInternalServerError
	var v *appErrors.ValidationError
	if errors.As(err, &v) {
		status = http.StatusBadRequest
	} else {
		h.Log.Error("Worker trigger failed", zap.String("worker", worker), zap.Error(err))
	}
	controller.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func (h *WorkerHandler) SendDueEmails(w http.ResponseWriter, r *http.Request) {
	res, err := h.Dispatch.Run(r.Context())
	if err != nil {
		h.fail(w, "send-due-emails", err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, res)
}

func (h *WorkerHandler) AggregateDaily(w http.ResponseWriter, r *http.Request) {
	res, err := h.Aggregate.Run(r.Context(), r.URL.Query().Get("day"))
	if err != nil {
		h.fail(w, "aggregate-daily", err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, res)
}

func (h *WorkerHandler) NotifyLinkedInDue(w http.ResponseWriter, r *http.Request) {
	res, err := h.Notify.Run(r.Context())
	if err != nil {
		h.fail(w, "notify-linkedin-due", err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, res)
}

func (h *WorkerHandler) InvoicesOverdue(w http.ResponseWriter, r *http.Request) {
	res, err := h.Overdue.Run(r.Context())
	if err != nil {
		h.fail(w, "invoices-overdue-detection", err)
		return
	}
	controller.WriteJSON(w, http.StatusOK, res)
}

func Health(w http.ResponseWriter, _ *http.Request) {
	controller.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
