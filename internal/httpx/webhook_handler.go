package httpx

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/emioop/vallyfab-api/internal/razorpay"
	"github.com/emioop/vallyfab-api/internal/settlement"
)

// WebhookHandler terminates Razorpay's settlement notifications. Error
// responses stay payload-free: this endpoint is unauthenticated and must not
// leak whether an order exists.
type WebhookHandler struct {
	Service *settlement.Service
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/api/webhook/razorpay", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	// raw bytes first: the signature covers exactly what was sent
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	signature := r.Header.Get(razorpay.SignatureHeader)

	out, err := h.Service.HandleNotification(r.Context(), body, signature)
	switch {
	case err == nil:
		if out.Ignored {
			writeJSON(w, http.StatusOK, map[string]string{"message": "success"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"order": out.Order})
	case errors.Is(err, settlement.ErrInvalidSignature),
		errors.Is(err, settlement.ErrBadEvent),
		errors.Is(err, settlement.ErrOrderNotFound):
		writeError(w, http.StatusBadRequest, "rejected")
	default:
		// 5xx so the gateway redelivers; the reconciler is safe to re-invoke
		log.Printf("webhook: %v", err)
		writeError(w, http.StatusInternalServerError, "error")
	}
}
