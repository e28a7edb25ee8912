package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/emioop/vallyfab-api/internal/auth"
	"github.com/emioop/vallyfab-api/internal/orders"
	"github.com/emioop/vallyfab-api/internal/redisx"
)

type OrdersHandler struct {
	Repo  *orders.Repo
	Redis *redis.Client
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/api/orders/user", RequireAuth(h.listUserOrders))
	r.Get("/api/orders/{id}/status", RequireAuth(h.getStatus))
	r.Patch("/api/orders/{id}/status", RequireAdmin(h.updateStatus))
}

func (h *OrdersHandler) listUserOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	os, err := h.Repo.ListByUser(ctx, id.UserID)
	if err != nil {
		log.Printf("list user orders: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": os})
}

// getStatus serves the order/payment state pair, cached briefly in Redis so
// polling clients stay off Postgres.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	var info orders.StatusInfo
	cached := false
	if h.Redis != nil {
		if b, err := h.Redis.Get(ctx, key).Bytes(); err == nil && json.Unmarshal(b, &info) == nil {
			cached = true
		}
	}
	if !cached {
		var err error
		info, err = h.Repo.GetStatus(ctx, orderID)
		if errors.Is(err, orders.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if err != nil {
			log.Printf("get order status: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if h.Redis != nil {
			if b, err := json.Marshal(info); err == nil {
				_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
			}
		}
	}

	// owners and admins only; answer 404 so existence is not revealed
	if info.UserID != id.UserID && id.Role != auth.RoleAdmin {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         info.Status,
		"payment_status": info.PaymentStatus,
	})
}

// updateStatus drives fulfillment transitions from the admin panel. The
// conditional update refuses moves the state machine forbids.
func (h *OrdersHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		From orders.Status `json:"from"`
		To   orders.Status `json:"to"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if !orders.ValidStatus(in.From) || !orders.ValidStatus(in.To) || !orders.CanTransition(in.From, in.To) {
		writeError(w, http.StatusBadRequest, "illegal status transition")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	applied, err := h.Repo.UpdateStatus(ctx, chi.URLParam(r, "id"), in.From, in.To)
	if err != nil {
		log.Printf("update order status: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if !applied {
		writeError(w, http.StatusConflict, "order not in expected status")
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, chi.URLParam(r, "id"))).Err()
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}
