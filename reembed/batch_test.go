package reembed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/ponderosa/ai/mock"
)

func TestBatchProcessorProcess(t *testing.T) {
	repo := newTestRepository(t)
	records := seedInsights(t, repo, 3)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		assert.Len(t, texts, 3)
		vectors := make([][]float32, len(texts))
		for i := range vectors {
			vectors[i] = []float32{2, 0, 0} // normalized to {1, 0, 0}
		}
		return vectors, nil
	}

	processor := NewBatchProcessor(repo, embedder, 1, time.Millisecond)
	require.NoError(t, processor.Process(context.Background(), records))

	stored, err := repo.GetInsightRecords(context.Background(), records[0].Id, records[1].Id, records[2].Id)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	for _, record := range stored {
		assert.Equal(t, []float32{1, 0, 0}, record.Vector)
	}
}

func TestBatchProcessorEmptyBatch(t *testing.T) {
	repo := newTestRepository(t)
	embedder := mock.NewMockEmbedder()

	processor := NewBatchProcessor(repo, embedder, 1, time.Millisecond)
	require.NoError(t, processor.Process(context.Background(), nil))
	assert.Equal(t, 0, embedder.CallCount())
}

func TestBatchProcessorCountMismatch(t *testing.T) {
	repo := newTestRepository(t)
	records := seedInsights(t, repo, 2)

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 0, 0}}, nil
	}

	processor := NewBatchProcessor(repo, embedder, 1, time.Millisecond)
	err := processor.Process(context.Background(), records)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding count mismatch")
}
