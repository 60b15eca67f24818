package transaction

import (
	"context"
	"encoding/json"
	"log/slog"

	"finrag/internal/config"
	"finrag/internal/middleware"
)

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

type Service struct {
	repo Repository
	pub  EventPublisher
}

func NewService(repo Repository, pub EventPublisher) *Service {
	return &Service{repo: repo, pub: pub}
}

func (s *Service) Create(ctx context.Context, t *Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.repo.Save(ctx, t); err != nil {
		return err
	}
	s.requestReindex(ctx, t.UserID)
	return nil
}

func (s *Service) Get(ctx context.Context, userID, id string) (*Transaction, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID string, f Filter) (*Summary, error) {
	txs, err := s.repo.List(ctx, userID, f)
	if err != nil {
		return nil, err
	}
	sum := Summarize(txs)
	return &sum, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, p Patch) (*Transaction, error) {
	t, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p.Apply(t)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	s.requestReindex(ctx, userID)
	return t, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.requestReindex(ctx, userID)
	return nil
}

// requestReindex enqueues a pipeline run for userID. Publish failures are
// logged and never fail the originating write.
func (s *Service) requestReindex(ctx context.Context, userID string) {
	payload, _ := json.Marshal(ReindexRequest{
		UserID:        userID,
		CorrelationID: middleware.GetCorrelationID(ctx),
	})
	if err := s.pub.Publish(config.TopicReindex, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish reindex event", "error", err, "user_id", userID)
		return
	}
	slog.InfoContext(ctx, "published reindex event", "user_id", userID)
}
