package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/caldermed/triage/internal/ingest"
)

// MockProcessor is a mock implementation of Processor
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Run(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockIngestor is a mock implementation of Ingestor
type MockIngestor struct {
	mock.Mock
}

func (m *MockIngestor) Ingest(ctx context.Context) (*ingest.Report, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ingest.Report), args.Error(1)
}

// TestWorker_StartStop tests the worker start and stop functionality
func TestWorker_StartStop(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("Run", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	// Let it run for a bit
	time.Sleep(250 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	mockProcessor.AssertCalled(t, "Run", mock.Anything)
}

// TestWorker_ContextCancellation tests worker stops on context cancellation
func TestWorker_ContextCancellation(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("Run", mock.Anything).Return(nil)

	worker := NewWorker(mockProcessor, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(150 * time.Millisecond)

	cancel()
	wg.Wait()

	mockProcessor.AssertCalled(t, "Run", mock.Anything)
}

// TestWorker_ContinuesAfterProcessorError tests that a failing tick does not
// stop the loop
func TestWorker_ContinuesAfterProcessorError(t *testing.T) {
	mockProcessor := new(MockProcessor)
	mockProcessor.On("Run", mock.Anything).Return(errors.New("refresh failed"))

	worker := NewWorker(mockProcessor, 50*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		worker.Start(ctx)
	}()

	time.Sleep(200 * time.Millisecond)

	worker.Stop()
	wg.Wait()

	assert.GreaterOrEqual(t, len(mockProcessor.Calls), 2)
}

func TestRefreshProcessor_Run(t *testing.T) {
	mockIngestor := new(MockIngestor)
	mockIngestor.On("Ingest", mock.Anything).Return(&ingest.Report{
		DocID:         "ng12",
		DocVersion:    "abc123def456",
		Pages:         3,
		ChunksCreated: 2,
		ChunksSkipped: 1,
	}, nil)

	processor := NewRefreshProcessor(mockIngestor)
	err := processor.Run(context.Background())

	assert.NoError(t, err)
	mockIngestor.AssertExpectations(t)
}

func TestRefreshProcessor_Run_IngestError(t *testing.T) {
	mockIngestor := new(MockIngestor)
	mockIngestor.On("Ingest", mock.Anything).Return(nil, errors.New("download failed"))

	processor := NewRefreshProcessor(mockIngestor)
	err := processor.Run(context.Background())

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "download failed")
	mockIngestor.AssertExpectations(t)
}
