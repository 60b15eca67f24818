package job

import (
	"context"
	"log/slog"

	"finrag/internal/config"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo   Repository
	pub    EventPublisher
	logger *slog.Logger
}

func NewService(repo Repository, pub EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, pub: pub, logger: logger}
}

func (s *Service) List(ctx context.Context, userID string) ([]Job, error) {
	return s.repo.List(ctx, userID)
}

// Retry republishes the job's original reindex request. The row stays until a
// run for that user succeeds; a repeat failure bumps its retry count.
func (s *Service) Retry(ctx context.Context, id string) (*Job, error) {
	job, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.pub.Publish(config.TopicReindex, job.Payload); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "job requeued", "job_id", id, "user_id", job.UserID)
	return job, nil
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
