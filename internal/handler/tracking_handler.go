package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/service"
)

type OpenRecorder interface {
	RecordOpen(ctx context.Context, token string) (bool, error)
}

var _ OpenRecorder = (*service.TrackingService)(nil)

type TrackingHandler struct {
	Opens OpenRecorder
	Log   *zap.Logger
}

// Pixel always answers with the transparent GIF; recording errors are only logged.
func (h *TrackingHandler) Pixel(w http.ResponseWriter, r *http.Request) {
	if token := r.URL.Query().Get("m"); token != "" && h.Opens != nil {
		if _, err := h.Opens.RecordOpen(r.Context(), token); err != nil {
			h.Log.Warn("Recording open failed", zap.Error(err))
		}
	}
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Cache-Control", "no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(service.TransparentGIF)
}
