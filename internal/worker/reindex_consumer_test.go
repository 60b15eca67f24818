package worker_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"finrag/features/job"
	"finrag/internal/middleware"
	"finrag/internal/pipeline"
	"finrag/internal/worker"
)

func TestReindexConsumer_Success(t *testing.T) {
	r := new(MockRunner)
	j := new(MockJobStore)
	n := new(MockNotifier)
	consumer := worker.NewReindexConsumer(r, j, n)

	r.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		return middleware.GetCorrelationID(ctx) == "corr-1"
	}), "u1").Return(&pipeline.Result{ChunkCount: 3, PDFPath: "/tmp/u1-report.pdf"}, nil)
	j.On("DeleteByUser", mock.Anything, "u1").Return(nil)

	err := consumer.HandleMessage(&nsq.Message{Body: []byte(`{"user_id":"u1","correlation_id":"corr-1"}`)})
	assert.NoError(t, err)

	r.AssertExpectations(t)
	j.AssertExpectations(t)
	n.AssertNotCalled(t, "NotifyFailure", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestReindexConsumer_GeneratesCorrelationID(t *testing.T) {
	r := new(MockRunner)
	j := new(MockJobStore)
	consumer := worker.NewReindexConsumer(r, j, nil)

	r.On("Run", mock.MatchedBy(func(ctx context.Context) bool {
		return middleware.GetCorrelationID(ctx) != ""
	}), "u1").Return(&pipeline.Result{}, nil)
	j.On("DeleteByUser", mock.Anything, "u1").Return(nil)

	assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: []byte(`{"user_id":"u1"}`)}))
	r.AssertExpectations(t)
}

func TestReindexConsumer_Failure_SavesJobAndNotifies(t *testing.T) {
	r := new(MockRunner)
	j := new(MockJobStore)
	n := new(MockNotifier)
	consumer := worker.NewReindexConsumer(r, j, n)

	runErr := &pipeline.StageError{Stage: pipeline.StageEmbedding, Err: errors.New("quota exceeded")}
	body := []byte(`{"user_id":"u1"}`)

	r.On("Run", mock.Anything, "u1").Return(nil, runErr)
	j.On("Save", mock.Anything, mock.MatchedBy(func(fj *job.Job) bool {
		return fj.UserID == "u1" &&
			fj.Handler == "reindex-worker" &&
			fj.Stage == "embedding" &&
			string(fj.Payload) == string(body) &&
			fj.Error == runErr.Error()
	})).Return(nil)
	n.On("NotifyFailure", mock.Anything, "u1", "embedding", runErr).Return(nil)

	err := consumer.HandleMessage(&nsq.Message{Body: body})
	assert.NoError(t, err, "failed runs are finished, not requeued")

	j.AssertExpectations(t)
	n.AssertExpectations(t)
	j.AssertNotCalled(t, "DeleteByUser", mock.Anything, mock.Anything)
}

func TestReindexConsumer_Failure_UnknownStage(t *testing.T) {
	r := new(MockRunner)
	j := new(MockJobStore)
	n := new(MockNotifier)
	consumer := worker.NewReindexConsumer(r, j, n)

	r.On("Run", mock.Anything, "u1").Return(nil, errors.New("boom"))
	j.On("Save", mock.Anything, mock.MatchedBy(func(fj *job.Job) bool {
		return fj.Stage == "failed"
	})).Return(errors.New("db down"))
	n.On("NotifyFailure", mock.Anything, "u1", "failed", mock.Anything).Return(errors.New("webhook down"))

	assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: []byte(`{"user_id":"u1"}`)}))
	j.AssertExpectations(t)
	n.AssertExpectations(t)
}

func TestReindexConsumer_PoisonPills(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"Empty", ""},
		{"InvalidJSON", "{not json"},
		{"MissingUserID", `{"correlation_id":"c"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := new(MockRunner)
			j := new(MockJobStore)
			consumer := worker.NewReindexConsumer(r, j, nil)

			assert.NoError(t, consumer.HandleMessage(&nsq.Message{Body: []byte(tt.body)}))
			r.AssertNotCalled(t, "Run", mock.Anything, mock.Anything)
		})
	}
}
