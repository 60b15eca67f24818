package reindex

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"finrag/internal/middleware"
	"finrag/internal/pipeline"
	"finrag/internal/report"
	"finrag/internal/retrieval"
)

type Runner interface {
	Run(ctx context.Context, userID string) (*pipeline.Result, error)
}

type Searcher interface {
	Search(ctx context.Context, userID, query string, limit int) ([]retrieval.SearchResult, error)
}

// Handler exposes the per-user pipeline outputs: a synchronous reindex,
// the generated PDF report and semantic search over the indexed chunks.
type Handler struct {
	runner    Runner
	searcher  Searcher
	outputDir string
}

func NewHandler(r Runner, s Searcher, outputDir string) *Handler {
	return &Handler{runner: r, searcher: s, outputDir: outputDir}
}

func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("userID")

	res, err := h.runner.Run(ctx, userID)
	if err != nil {
		slog.ErrorContext(ctx, "reindex failed", "user_id", userID, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{"data": res})
}

func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	path := report.Path(h.outputDir, r.PathValue("userID"))

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			h.writeError(ctx, w, "NOT_FOUND", "Report not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(ctx, "failed to open report", "path", path, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		slog.ErrorContext(ctx, "failed to stat report", "path", path, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename=\""+filepath.Base(path)+"\"")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := r.PathValue("userID")
	query := r.URL.Query().Get("q")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			h.writeError(ctx, w, "VALIDATION_ERROR", "limit must be an integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	results, err := h.searcher.Search(ctx, userID, query, limit)
	if err != nil {
		if errors.Is(err, retrieval.ErrEmptyQuery) {
			h.writeError(ctx, w, "VALIDATION_ERROR", err.Error(), http.StatusBadRequest)
			return
		}
		slog.ErrorContext(ctx, "search failed", "user_id", userID, "error", err)
		h.writeError(ctx, w, "INTERNAL_ERROR", "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(ctx, w, http.StatusOK, map[string]interface{}{
		"data": results,
		"meta": map[string]int{"count": len(results)},
	})
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
