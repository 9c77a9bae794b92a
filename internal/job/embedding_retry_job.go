package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type EmbeddingRetrier interface {
	RetryEmbeddings(ctx context.Context) (int, error)
	PendingEmbeddings() int
}

// EmbeddingRetryJob gives processed blocks whose embedding failed another
// chance to enter the corpus.
type EmbeddingRetryJob struct {
	retrier EmbeddingRetrier
}

func NewEmbeddingRetryJob(retrier EmbeddingRetrier) *EmbeddingRetryJob {
	return &EmbeddingRetryJob{retrier: retrier}
}

func (j *EmbeddingRetryJob) Name() string {
	return "embedding_retry"
}

func (j *EmbeddingRetryJob) Run(ctx context.Context) error {
	if j.retrier == nil || j.retrier.PendingEmbeddings() == 0 {
		return nil
	}
	committed, err := j.retrier.RetryEmbeddings(ctx)
	logutil.GetLogger(ctx).Debug("embedding retry done",
		zap.Int("committed", committed),
		zap.Int("pending", j.retrier.PendingEmbeddings()),
	)
	return err
}
