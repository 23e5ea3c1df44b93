package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caldermed/triage/internal/domain"
)

// MockFetcher is a mock implementation of Fetcher
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Fetch(ctx context.Context) ([]byte, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockParser is a mock implementation of DocumentParser
type MockParser struct {
	mock.Mock
}

func (m *MockParser) Parse(data []byte) ([]PageText, error) {
	args := m.Called(data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]PageText), args.Error(1)
}

// MockEmbedder is a mock implementation of Embedder
type MockEmbedder struct {
	mock.Mock
}

func (m *MockEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// MockChunkStore is a mock implementation of ChunkStore
type MockChunkStore struct {
	mock.Mock
}

func (m *MockChunkStore) Upsert(ctx context.Context, chunk *domain.GuidelineChunk) (bool, error) {
	args := m.Called(ctx, chunk)
	return args.Bool(0), args.Error(1)
}

func TestIngestIndexesOneChunkPerShortPage(t *testing.T) {
	data := []byte("guideline document bytes")
	version := DocVersion(data)

	fetcher := new(MockFetcher)
	parser := new(MockParser)
	embedder := new(MockEmbedder)
	store := new(MockChunkStore)

	fetcher.On("Fetch", mock.Anything).Return(data, nil)
	parser.On("Parse", data).Return([]PageText{
		{Page: 1, Text: "Referral criteria for suspected lung cancer"},
		{Page: 2, Text: "Criteria for suspected colorectal cancer"},
		{Page: 3, Text: "Safety netting and follow-up advice"},
	}, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2}, nil)

	var stored []*domain.GuidelineChunk
	store.On("Upsert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = append(stored, args.Get(1).(*domain.GuidelineChunk))
	}).Return(true, nil)

	svc := NewService(fetcher, parser, embedder, store, "ng12", DefaultChunkConfig())
	report, err := svc.Ingest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, report.Pages)
	assert.Equal(t, 3, report.ChunksCreated)
	assert.Equal(t, 0, report.ChunksSkipped)
	assert.Equal(t, 0, report.ChunksFailed)
	assert.Equal(t, version, report.DocVersion)

	require.Len(t, stored, 3)
	for i, chunk := range stored {
		assert.Equal(t, fmt.Sprintf("chunk_%s_p%03d_00", version, i+1), chunk.ID)
		assert.Equal(t, i+1, chunk.Page)
		assert.Equal(t, 0, chunk.ChunkIndex)
		assert.Equal(t, "ng12", chunk.DocID)
	}
}

func TestIngestIsIdempotentOnUnchangedDocument(t *testing.T) {
	data := []byte("unchanged document")

	fetcher := new(MockFetcher)
	parser := new(MockParser)
	embedder := new(MockEmbedder)
	store := new(MockChunkStore)

	fetcher.On("Fetch", mock.Anything).Return(data, nil)
	parser.On("Parse", data).Return([]PageText{
		{Page: 1, Text: "Referral criteria for suspected lung cancer"},
	}, nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	// Conflicting chunk id means the identical chunk is already indexed.
	store.On("Upsert", mock.Anything, mock.Anything).Return(false, nil)

	svc := NewService(fetcher, parser, embedder, store, "ng12", DefaultChunkConfig())
	report, err := svc.Ingest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.ChunksCreated)
	assert.Equal(t, 1, report.ChunksSkipped)
}

func TestIngestCountsEmbeddingFailuresAndContinues(t *testing.T) {
	data := []byte("doc")

	fetcher := new(MockFetcher)
	parser := new(MockParser)
	embedder := new(MockEmbedder)
	store := new(MockChunkStore)

	fetcher.On("Fetch", mock.Anything).Return(data, nil)
	parser.On("Parse", data).Return([]PageText{
		{Page: 1, Text: "first page text"},
		{Page: 2, Text: "second page text"},
	}, nil)

	embedder.On("GenerateEmbedding", mock.Anything, "first page text").
		Return(nil, errors.New("upstream unavailable"))
	embedder.On("GenerateEmbedding", mock.Anything, "second page text").
		Return([]float32{0.5}, nil)
	store.On("Upsert", mock.Anything, mock.Anything).Return(true, nil)

	svc := NewService(fetcher, parser, embedder, store, "ng12", DefaultChunkConfig())
	report, err := svc.Ingest(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.ChunksFailed)
	assert.Equal(t, 1, report.ChunksCreated)
	embedder.AssertNumberOfCalls(t, "GenerateEmbedding", embedMaxAttempts+1)
}

func TestIngestFailsWhenDocumentCannotBeParsed(t *testing.T) {
	fetcher := new(MockFetcher)
	parser := new(MockParser)

	fetcher.On("Fetch", mock.Anything).Return([]byte("not a pdf"), nil)
	parser.On("Parse", mock.Anything).
		Return(nil, fmt.Errorf("%w: bad header", domain.ErrDocumentParse))

	svc := NewService(fetcher, parser, new(MockEmbedder), new(MockChunkStore), "ng12", DefaultChunkConfig())
	report, err := svc.Ingest(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDocumentParse)
	assert.Nil(t, report)
}

func TestIngestFailsWhenFetchFails(t *testing.T) {
	fetcher := new(MockFetcher)
	fetcher.On("Fetch", mock.Anything).Return(nil, errors.New("connection refused"))

	svc := NewService(fetcher, new(MockParser), new(MockEmbedder), new(MockChunkStore), "ng12", DefaultChunkConfig())
	_, err := svc.Ingest(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to fetch document")
}

func TestDocVersionIsStableAndContentSensitive(t *testing.T) {
	a := DocVersion([]byte("document a"))
	b := DocVersion([]byte("document b"))

	assert.Len(t, a, 12)
	assert.Equal(t, a, DocVersion([]byte("document a")))
	assert.NotEqual(t, a, b)
}
