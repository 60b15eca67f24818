package worker

import (
	"context"

	"finrag/features/job"
	"finrag/internal/pipeline"
)

type Runner interface {
	Run(ctx context.Context, userID string) (*pipeline.Result, error)
}

type JobStore interface {
	Save(ctx context.Context, j *job.Job) error
	DeleteByUser(ctx context.Context, userID string) error
}

// FailureNotifier alerts an operator channel about a failed run.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userID, stage string, cause error) error
}
