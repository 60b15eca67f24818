package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"finrag/internal/middleware"
)

// Counter is satisfied by the transaction and failed-job repositories.
type Counter interface {
	Count(ctx context.Context) (int, error)
}

type VectorStore interface {
	CountChunks(ctx context.Context) (int, error)
}

type Handler struct {
	transactions Counter
	jobs         Counter
	vectors      VectorStore
}

func NewHandler(t Counter, j Counter, v VectorStore) *Handler {
	return &Handler{transactions: t, jobs: j, vectors: v}
}

type StatsResponse struct {
	Transactions int `json:"transactions"`
	Vectors      int `json:"vectors"`
	FailedJobs   int `json:"failed_jobs"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	slog.InfoContext(ctx, "getting stats")

	var resp StatsResponse
	counts := []struct {
		what string
		fn   func(context.Context) (int, error)
		dst  *int
	}{
		{"transactions", h.transactions.Count, &resp.Transactions},
		{"failed jobs", h.jobs.Count, &resp.FailedJobs},
		{"vectors", h.vectors.CountChunks, &resp.Vectors},
	}
	for _, c := range counts {
		n, err := c.fn(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to count "+c.what, "error", err)
			h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count "+c.what, http.StatusInternalServerError)
			return
		}
		*c.dst = n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
