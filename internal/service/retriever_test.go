package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/archiva-labs/doclib/internal/domain"
	"github.com/archiva-labs/doclib/internal/index"
)

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockEmbeddingClient) ModelVersion() string {
	args := m.Called()
	return args.String(0)
}

type MockSearchIndex struct {
	mock.Mock
}

func (m *MockSearchIndex) Search(query []float32, k int, filter index.Filter) ([]index.Result, error) {
	args := m.Called(query, k, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]index.Result), args.Error(1)
}

func TestRetriever_Retrieve(t *testing.T) {
	embedding := []float32{0.1, 0.2, 0.3}

	t.Run("returns scored chunks above the floor", func(t *testing.T) {
		mockEmbed := new(MockEmbeddingClient)
		mockIndex := new(MockSearchIndex)

		mockEmbed.On("GenerateEmbedding", mock.Anything, "what is go").Return(embedding, nil)
		mockIndex.On("Search", embedding, 5, index.Filter{}).Return([]index.Result{
			{ChunkID: "c1", Score: 0.9, Payload: index.Payload{DocumentID: "d1", ChunkIndex: 0, Content: "go is a language", Page: 1, Filename: "go.pdf"}},
			{ChunkID: "c2", Score: 0.4, Payload: index.Payload{DocumentID: "d1", ChunkIndex: 1, Content: "more go"}},
			{ChunkID: "c3", Score: 0.1, Payload: index.Payload{DocumentID: "d2", Content: "unrelated"}},
		}, nil)

		retriever := NewRetriever(mockEmbed, mockIndex, DefaultRetrieverConfig())
		chunks, err := retriever.Retrieve(context.Background(), "what is go", 5, index.Filter{})

		require.NoError(t, err)
		require.Len(t, chunks, 2, "chunks below the similarity floor are dropped")
		assert.Equal(t, "c1", chunks[0].ChunkID)
		assert.Equal(t, "d1", chunks[0].DocumentID)
		assert.Equal(t, "go is a language", chunks[0].Content)
		assert.Equal(t, "go.pdf", chunks[0].Filename)
		assert.Equal(t, float32(0.9), chunks[0].Score)
		assert.Equal(t, "c2", chunks[1].ChunkID)
		mockEmbed.AssertExpectations(t)
		mockIndex.AssertExpectations(t)
	})

	t.Run("empty question is rejected", func(t *testing.T) {
		retriever := NewRetriever(new(MockEmbeddingClient), new(MockSearchIndex), DefaultRetrieverConfig())

		_, err := retriever.Retrieve(context.Background(), "   ", 5, index.Filter{})
		assert.ErrorIs(t, err, domain.ErrMissingRequiredField)
	})

	t.Run("question is trimmed before embedding", func(t *testing.T) {
		mockEmbed := new(MockEmbeddingClient)
		mockIndex := new(MockSearchIndex)

		mockEmbed.On("GenerateEmbedding", mock.Anything, "what is go").Return(embedding, nil)
		mockIndex.On("Search", embedding, 5, index.Filter{}).Return([]index.Result{}, nil)

		retriever := NewRetriever(mockEmbed, mockIndex, DefaultRetrieverConfig())
		_, err := retriever.Retrieve(context.Background(), "  what is go  ", 5, index.Filter{})

		require.NoError(t, err)
		mockEmbed.AssertExpectations(t)
	})

	t.Run("k defaults and clamps", func(t *testing.T) {
		tests := []struct {
			name      string
			requested int
			expected  int
		}{
			{name: "zero uses default", requested: 0, expected: DefaultTopK},
			{name: "negative uses default", requested: -3, expected: DefaultTopK},
			{name: "above max is clamped", requested: 100, expected: MaxTopK},
			{name: "in range passes through", requested: 7, expected: 7},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				mockEmbed := new(MockEmbeddingClient)
				mockIndex := new(MockSearchIndex)

				mockEmbed.On("GenerateEmbedding", mock.Anything, "q").Return(embedding, nil)
				mockIndex.On("Search", embedding, tt.expected, index.Filter{}).Return([]index.Result{}, nil)

				retriever := NewRetriever(mockEmbed, mockIndex, DefaultRetrieverConfig())
				_, err := retriever.Retrieve(context.Background(), "q", tt.requested, index.Filter{})

				require.NoError(t, err)
				mockIndex.AssertExpectations(t)
			})
		}
	})

	t.Run("filter is passed through to the index", func(t *testing.T) {
		mockEmbed := new(MockEmbeddingClient)
		mockIndex := new(MockSearchIndex)
		filter := index.Filter{DocumentID: "d1", Category: "science"}

		mockEmbed.On("GenerateEmbedding", mock.Anything, "q").Return(embedding, nil)
		mockIndex.On("Search", embedding, 5, filter).Return([]index.Result{}, nil)

		retriever := NewRetriever(mockEmbed, mockIndex, DefaultRetrieverConfig())
		_, err := retriever.Retrieve(context.Background(), "q", 5, filter)

		require.NoError(t, err)
		mockIndex.AssertExpectations(t)
	})

	t.Run("embedding failure propagates", func(t *testing.T) {
		mockEmbed := new(MockEmbeddingClient)
		mockIndex := new(MockSearchIndex)

		mockEmbed.On("GenerateEmbedding", mock.Anything, "q").Return(nil, domain.ErrEmbeddingService)

		retriever := NewRetriever(mockEmbed, mockIndex, DefaultRetrieverConfig())
		_, err := retriever.Retrieve(context.Background(), "q", 5, index.Filter{})

		assert.ErrorIs(t, err, domain.ErrEmbeddingService)
		mockIndex.AssertNotCalled(t, "Search", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("search failure propagates", func(t *testing.T) {
		mockEmbed := new(MockEmbeddingClient)
		mockIndex := new(MockSearchIndex)
		searchErr := errors.New("index unavailable")

		mockEmbed.On("GenerateEmbedding", mock.Anything, "q").Return(embedding, nil)
		mockIndex.On("Search", embedding, 5, index.Filter{}).Return(nil, searchErr)

		retriever := NewRetriever(mockEmbed, mockIndex, DefaultRetrieverConfig())
		_, err := retriever.Retrieve(context.Background(), "q", 5, index.Filter{})

		assert.ErrorIs(t, err, searchErr)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		mockEmbed := new(MockEmbeddingClient)
		mockIndex := new(MockSearchIndex)

		mockEmbed.On("GenerateEmbedding", mock.Anything, "q").Return(embedding, nil)
		mockIndex.On("Search", embedding, 5, index.Filter{}).Return([]index.Result{}, nil)

		retriever := NewRetriever(mockEmbed, mockIndex, DefaultRetrieverConfig())
		chunks, err := retriever.Retrieve(context.Background(), "q", 5, index.Filter{})

		require.NoError(t, err)
		assert.Empty(t, chunks)
	})
}

func TestNewRetriever_FloorDefault(t *testing.T) {
	retriever := NewRetriever(new(MockEmbeddingClient), new(MockSearchIndex), RetrieverConfig{})
	assert.Equal(t, float32(DefaultSimilarityFloor), retriever.cfg.SimilarityFloor)
}
