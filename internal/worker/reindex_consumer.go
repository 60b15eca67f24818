package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nsqio/go-nsq"

	"finrag/features/job"
	"finrag/features/transaction"
	"finrag/internal/middleware"
	"finrag/internal/pipeline"
)

const handlerName = "reindex-worker"

// ReindexConsumer runs the pipeline for each reindex request on the topic.
// Failed runs are recorded as failed jobs and the message is finished;
// retries go through the jobs API instead of NSQ requeue.
type ReindexConsumer struct {
	runner   Runner
	jobs     JobStore
	notifier FailureNotifier
}

func NewReindexConsumer(r Runner, j JobStore, n FailureNotifier) *ReindexConsumer {
	return &ReindexConsumer{runner: r, jobs: j, notifier: n}
}

func (h *ReindexConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var req transaction.ReindexRequest
	err := json.Unmarshal(m.Body, &req)

	correlationID := req.CorrelationID
	if correlationID == "" {
		correlationID = uuid.New().String()
	}
	ctx := middleware.WithCorrelationID(context.Background(), correlationID)

	if err != nil {
		slog.ErrorContext(ctx, "invalid message format", "error", err)
		return nil // poison pill
	}
	if req.UserID == "" {
		slog.ErrorContext(ctx, "missing user_id, dropping")
		return nil
	}
	ctx = middleware.WithUserID(ctx, req.UserID)

	res, err := h.runner.Run(ctx, req.UserID)
	if err != nil {
		h.recordFailure(ctx, req.UserID, m.Body, err)
		return nil
	}

	slog.InfoContext(ctx, "reindex completed", "chunks", res.ChunkCount, "pdf", res.PDFPath)
	if err := h.jobs.DeleteByUser(ctx, req.UserID); err != nil {
		slog.WarnContext(ctx, "failed to clear failed job", "error", err)
	}
	return nil
}

func (h *ReindexConsumer) recordFailure(ctx context.Context, userID string, body []byte, runErr error) {
	stage := string(pipeline.StageFailed)
	var se *pipeline.StageError
	if errors.As(runErr, &se) {
		stage = string(se.Stage)
	}
	slog.ErrorContext(ctx, "reindex failed", "stage", stage, "error", runErr)

	failed := &job.Job{
		UserID:  userID,
		Handler: handlerName,
		Stage:   stage,
		Payload: json.RawMessage(body),
		Error:   runErr.Error(),
	}
	if err := h.jobs.Save(ctx, failed); err != nil {
		slog.ErrorContext(ctx, "failed to save failed job", "error", err)
	} else {
		slog.InfoContext(ctx, "saved failed job for retry", "job_id", failed.ID, "retries", failed.Retries)
	}

	if h.notifier == nil {
		return
	}
	if err := h.notifier.NotifyFailure(ctx, userID, stage, runErr); err != nil {
		slog.WarnContext(ctx, "failed to send failure notification", "error", err)
	}
}
