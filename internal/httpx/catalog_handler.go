package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/emioop/vallyfab-api/internal/catalog"
)

type CatalogHandler struct {
	Repo *catalog.Repo
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Get("/api/products", h.listProducts)
	r.Get("/api/products/{id}", h.getProduct)
	r.Post("/api/products", RequireAdmin(h.createProduct))
	r.Put("/api/products/{id}", RequireAdmin(h.updateProduct))
	r.Delete("/api/products/{id}", RequireAdmin(h.deleteProduct))

	r.Get("/api/categories", h.listCategories)
	r.Post("/api/categories", RequireAdmin(h.createCategory))
	r.Delete("/api/categories/{id}", RequireAdmin(h.deleteCategory))
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Repo.ListProducts(ctx, page, limit, q.Get("query"))
	if err != nil {
		log.Printf("list products: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if len(ps) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No products found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": ps})
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Repo.FindProductByID(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Product not found"})
		return
	}
	if err != nil {
		log.Printf("get product: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch product")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func decodeProductInput(r *http.Request) (catalog.ProductInput, string) {
	var in catalog.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return in, "invalid json"
	}
	if in.Name == "" || in.PriceCents <= 0 || in.CategoryID == "" || in.Brand == "" ||
		in.ImageURL == "" || in.Stock < 0 {
		return in, "All fields are required"
	}
	if !catalog.ValidSize(in.Size) {
		return in, "invalid size"
	}
	return in, ""
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	in, msg := decodeProductInput(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.CreateProduct(ctx, in)
	if err != nil {
		log.Printf("create product: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": p})
}

func (h *CatalogHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	in, msg := decodeProductInput(r)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	p, err := h.Repo.UpdateProduct(ctx, chi.URLParam(r, "id"), in)
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		log.Printf("update product: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"product": p})
}

func (h *CatalogHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Repo.DeleteProduct(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}
	if err != nil {
		log.Printf("delete product: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Product deleted successfully"})
}

func (h *CatalogHandler) listCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	cs, err := h.Repo.ListCategories(ctx)
	if err != nil {
		log.Printf("list categories: %v", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	if len(cs) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "No categories found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": cs})
}

func (h *CatalogHandler) createCategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil || in.Name == "" || in.Description == "" {
		writeError(w, http.StatusBadRequest, "All fields are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	c, err := h.Repo.CreateCategory(ctx, in.Name, in.Description)
	if errors.Is(err, catalog.ErrDuplicateName) {
		writeError(w, http.StatusBadRequest, "Category name already exists")
		return
	}
	if err != nil {
		log.Printf("create category: %v", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"category": c})
}

func (h *CatalogHandler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	err := h.Repo.DeleteCategory(ctx, chi.URLParam(r, "id"))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, "Category not found")
	case errors.Is(err, catalog.ErrCategoryInUse):
		writeError(w, http.StatusConflict, "Category still has products")
	default:
		log.Printf("delete category: %v", err)
		writeError(w, http.StatusInternalServerError, "Something went wrong")
	}
}
