package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRetrier struct {
	pending int
	calls   int
	err     error
}

func (f *fakeRetrier) RetryEmbeddings(ctx context.Context) (int, error) {
	f.calls++
	if f.err != nil {
		return 0, f.err
	}
	n := f.pending
	f.pending = 0
	return n, nil
}

func (f *fakeRetrier) PendingEmbeddings() int {
	return f.pending
}

func TestEmbeddingRetryJob(t *testing.T) {
	r := &fakeRetrier{}
	j := NewEmbeddingRetryJob(r)
	require.Equal(t, "embedding_retry", j.Name())

	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 0, r.calls)

	r.pending = 2
	require.NoError(t, j.Run(context.Background()))
	require.Equal(t, 1, r.calls)
	require.Equal(t, 0, r.pending)

	r.pending = 1
	r.err = errors.New("embed down")
	require.Error(t, j.Run(context.Background()))

	require.NoError(t, NewEmbeddingRetryJob(nil).Run(context.Background()))
}
