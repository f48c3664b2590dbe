package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

// AccountHeader carries the caller's account id, set by the session layer
// in front of this service.
const AccountHeader = "X-Account-ID"

type accountKey struct{}

// RequireAccount rejects requests without an account header.
func RequireAccount(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID := r.Header.Get(AccountHeader)
		if accountID == "" {
			WriteError(w, &appErrors.UnauthorizedError{})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), accountKey{}, accountID)))
	})
}

func AccountID(ctx context.Context) string {
	id, _ := ctx.Value(accountKey{}).(string)
	return id
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error      string `json:"error"`
	UpgradeURL string `json:"upgradeUrl,omitempty"`
}

// WriteError maps typed errors to a status code and the {error, upgradeUrl?} body.
func WriteError(w http.ResponseWriter, err error) {
	var (
		validation   *appErrors.ValidationError
		unauthorized *appErrors.UnauthorizedError
		quota        *appErrors.QuotaExceededError
		notFound     *appErrors.NotFoundError
	)
	switch {
	case errors.As(err, &validation):
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: validation.Error()})
	case errors.As(err, &unauthorized):
		WriteJSON(w, http.StatusUnauthorized, errorBody{Error: unauthorized.Error()})
	case errors.As(err, &quota):
		WriteJSON(w, http.StatusPaymentRequired, errorBody{Error: quota.Reason, UpgradeURL: appErrors.UpgradeURL})
	case errors.As(err, &notFound):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: notFound.Error()})
	default:
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
	}
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return appErrors.NewValidation("body", "invalid JSON: "+err.Error())
	}
	return nil
}
