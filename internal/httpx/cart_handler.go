package httpx

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emioop/vallyfab-api/internal/cart"
	"github.com/emioop/vallyfab-api/internal/catalog"
)

type CartHandler struct {
	Repo *cart.Repo
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/api/cart", RequireAuth(h.getCart))
	r.Put("/api/cart/items", RequireAuth(h.setItem))
	r.Delete("/api/cart/items/{productId}/{size}", RequireAuth(h.removeItem))
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Repo.Items(ctx, id.UserID)
	if err != nil {
		log.Printf("get cart: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *CartHandler) setItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	var in struct {
		ProductID string `json:"product_id"`
		Size      string `json:"size"`
		Qty       int    `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.ProductID == "" || in.Qty < 1 || !catalog.ValidSize(catalog.Size(in.Size)) {
		writeError(w, http.StatusBadRequest, "product_id, size and qty >= 1 required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Repo.SetItem(ctx, id.UserID, in.ProductID, in.Size, in.Qty); err != nil {
		log.Printf("set cart item: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "cart updated"})
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, _ := IdentityFrom(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Repo.RemoveItem(ctx, id.UserID, chi.URLParam(r, "productId"), chi.URLParam(r, "size")); err != nil {
		log.Printf("remove cart item: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "item removed"})
}
