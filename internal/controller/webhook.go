package controller

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"strings"

	appErrors "github.com/unclebandit/outreach-backend/internal/errors"
)

// SignatureHeader carries "sha256=<hex HMAC of the raw body>".
const SignatureHeader = "X-Webhook-Signature"

const maxWebhookBody = 1 << 20

// WebhookSignature returns the header value a sender must attach to body.
func WebhookSignature(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// RequireSignature rejects requests whose body is not signed with secret.
// With an empty secret every request is rejected.
func RequireSignature(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
			if err != nil {
				WriteError(w, appErrors.NewValidation("body", "unreadable body"))
				return
			}
			got := strings.TrimSpace(r.Header.Get(SignatureHeader))
			if secret == "" || got == "" || !hmac.Equal([]byte(got), []byte(WebhookSignature(secret, body))) {
				WriteError(w, &appErrors.UnauthorizedError{})
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}
