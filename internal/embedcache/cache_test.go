package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string, taskType string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 1}, nil
}

func (c *countingEmbedder) ModelName() string {
	return "counting"
}

func TestEmbedder_CachesByTextAndTaskType(t *testing.T) {
	next := &countingEmbedder{}
	c := New(next, 16, time.Minute)
	ctx := context.Background()

	v1, err := c.Embed(ctx, "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	v1[0] = 99
	v2, err := c.Embed(ctx, "hello", "RETRIEVAL_DOCUMENT")
	require.NoError(t, err)
	require.Equal(t, []float32{5, 1}, v2)
	require.Equal(t, 1, next.calls)

	_, err = c.Embed(ctx, "hello", "RETRIEVAL_QUERY")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
	require.Equal(t, Stats{Hits: 1, Misses: 2}, c.Stats())
	require.Equal(t, "counting", c.ModelName())
}

func TestEmbedder_ErrorsNotCached(t *testing.T) {
	next := &countingEmbedder{err: errors.New("down")}
	c := New(next, 16, time.Minute)
	_, err := c.Embed(context.Background(), "x", "")
	require.Error(t, err)
	_, err = c.Embed(context.Background(), "x", "")
	require.Error(t, err)
	require.Equal(t, 2, next.calls)
}

func TestWrap_Disabled(t *testing.T) {
	next := &countingEmbedder{}
	require.Same(t, next, Wrap(next, 0, time.Minute).(*countingEmbedder))
	require.Same(t, next, Wrap(next, 10, 0).(*countingEmbedder))
	require.IsType(t, &Embedder{}, Wrap(next, 10, time.Minute))
}
