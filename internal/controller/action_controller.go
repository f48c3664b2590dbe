package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/outreach-backend/internal/service"
)

type ActionApplier interface {
	Apply(ctx context.Context, accountID, actionID string, req service.ActionRequest) (*service.ActionResult, error)
}

var _ ActionApplier = (*service.ActionService)(nil)

type ActionController struct {
	Actions ActionApplier
}

// Mutate handles {op: done|skip|reschedule|regenerate, due_at?}.
func (c *ActionController) Mutate(w http.ResponseWriter, r *http.Request) {
	var body service.ActionRequest
	if err := decode(r, &body); err != nil {
		WriteError(w, err)
		return
	}

	res, err := c.Actions.Apply(r.Context(), AccountID(r.Context()), chi.URLParam(r, "action_id"), body)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}
