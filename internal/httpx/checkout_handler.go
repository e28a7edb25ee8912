package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emioop/vallyfab-api/internal/checkout"
)

type CheckoutHandler struct {
	Service *checkout.Service
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/api/checkout", RequireAuth(h.createCheckout))
}

func (h *CheckoutHandler) createCheckout(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var req checkout.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.Service.CreateCheckout(ctx, id.UserID, req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, checkout.ErrInvalidRequest), errors.Is(err, checkout.ErrProductNotFound):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, checkout.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized Request")
	default:
		log.Printf("checkout: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal Server Error")
	}
}
