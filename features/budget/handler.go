package budget

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"finrag/features/transaction"
	"finrag/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type request struct {
	Category   *string          `json:"category"`
	Limit      *decimal.Decimal `json:"limit"`
	PeriodType *Period          `json:"period_type"`
	StartDate  *string          `json:"start_date"`
	EndDate    *string          `json:"end_date"`
}

func (req request) patch() (Patch, error) {
	p := Patch{Category: req.Category, Limit: req.Limit, PeriodType: req.PeriodType}
	if req.StartDate != nil {
		d, err := transaction.ParseDate(*req.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &d
	}
	if req.EndDate != nil {
		d, err := transaction.ParseDate(*req.EndDate)
		if err != nil {
			return p, err
		}
		p.EndDate = &d
	}
	return p, nil
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (Patch, bool) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return Patch{}, false
	}
	p, err := req.patch()
	if err != nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
		return Patch{}, false
	}
	return p, true
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}
	if p.Limit == nil {
		h.writeError(r.Context(), w, "VALIDATION_ERROR", "Limit is required", http.StatusBadRequest)
		return
	}

	b := &Budget{UserID: r.PathValue("userID")}
	p.Apply(b)
	if err := h.service.Create(r.Context(), b); err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusCreated, map[string]interface{}{"data": b})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	budgets, err := h.service.List(r.Context(), r.PathValue("userID"))
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{
		"data": budgets,
		"meta": map[string]int{"count": len(budgets)},
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	st, err := h.service.Get(r.Context(), r.PathValue("userID"), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{"data": st})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := h.decode(w, r)
	if !ok {
		return
	}
	b, err := h.service.Update(r.Context(), r.PathValue("userID"), r.PathValue("id"), p)
	if err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	h.writeJSON(r.Context(), w, http.StatusOK, map[string]interface{}{"data": b})
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), r.PathValue("userID"), r.PathValue("id")); err != nil {
		h.writeServiceError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeError(ctx, w, "NOT_FOUND", "Budget not found", http.StatusNotFound)
	case errors.Is(err, ErrInvalid):
		h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
	default:
		slog.ErrorContext(ctx, "budget operation failed", "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
	}
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	h.writeJSON(ctx, w, status, map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	})
}
