package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/caldermed/triage/internal/domain"
	"github.com/caldermed/triage/internal/session"
)

// MockGenerator is a mock implementation of Generator
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	args := m.Called(ctx, system, prompt, temperature)
	return args.String(0), args.Error(1)
}

func chatPassages() []domain.RetrievedPassage {
	return []domain.RetrievedPassage{
		{ChunkID: "chunk_abc_p010_00", Content: "Refer people aged 40 and over with unexplained haemoptysis.", Page: 10, SectionTitle: "Lung cancer", Score: 0.88},
	}
}

const chatAnswerJSON = `{
	"answer": "Patients aged 40 and over with unexplained haemoptysis should be referred urgently [NG12 p.10].",
	"citations": [{"source": "NG12 PDF", "page": 10, "chunk_id": "chunk_abc_p010_00", "excerpt": "unexplained haemoptysis"}]
}`

func TestChatAnswersWithCitationsAndCommitsTurns(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	sessions := session.NewStore()

	retriever.On("Retrieve", mock.Anything, "When should haemoptysis be referred?", 5).
		Return(chatPassages(), nil)
	generator.On("Generate", mock.Anything, mock.Anything, mock.Anything, float32(0.2)).
		Return(chatAnswerJSON, nil)

	o := NewChatOrchestrator(generator, retriever, sessions, DefaultChatConfig())
	result, err := o.Handle(context.Background(), "s1", "When should haemoptysis be referred?", 5)

	require.NoError(t, err)
	assert.Contains(t, result.Answer, "[NG12 p.10]")
	require.Len(t, result.Citations, 1)
	assert.Equal(t, "chunk_abc_p010_00", result.Citations[0].ChunkID)

	// The prompt carries the labeled passage and the user question.
	prompt := generator.Calls[0].Arguments.String(2)
	assert.Contains(t, prompt, "CONTEXT:")
	assert.Contains(t, prompt, "[chunk_abc_p010_00] Page 10 | Lung cancer")
	assert.Contains(t, prompt, "USER QUESTION: When should haemoptysis be referred?")

	history := sessions.History("s1")
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChatRoleUser, history[0].Role)
	assert.Equal(t, domain.ChatRoleAssistant, history[1].Role)
}

func TestChatEmptyRetrievalRefusesWithoutModelCall(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	sessions := session.NewStore()

	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).
		Return([]domain.RetrievedPassage{}, nil)

	o := NewChatOrchestrator(generator, retriever, sessions, DefaultChatConfig())
	result, err := o.Handle(context.Background(), "s1", "What about a question with no evidence?", 5)

	require.NoError(t, err)
	assert.Equal(t, RefusalAnswer, result.Answer)
	assert.Empty(t, result.Citations)
	generator.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	// The refusal exchange is still recorded.
	assert.Len(t, sessions.History("s1"), 2)
}

func TestChatTwoTurnsAccumulateFourHistoryEntries(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	sessions := session.NewStore()

	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).Return(chatPassages(), nil)
	generator.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(chatAnswerJSON, nil)

	o := NewChatOrchestrator(generator, retriever, sessions, DefaultChatConfig())

	_, err := o.Handle(context.Background(), "s1", "first question", 5)
	require.NoError(t, err)
	_, err = o.Handle(context.Background(), "s1", "second question", 5)
	require.NoError(t, err)

	history := sessions.History("s1")
	require.Len(t, history, 4)
	assert.Equal(t, "first question", history[0].Text)
	assert.Equal(t, domain.ChatRoleAssistant, history[1].Role)
	assert.Equal(t, "second question", history[2].Text)
	assert.Equal(t, domain.ChatRoleAssistant, history[3].Role)

	// The second turn's prompt includes the first exchange.
	secondPrompt := generator.Calls[1].Arguments.String(2)
	assert.Contains(t, secondPrompt, "CONVERSATION HISTORY:")
	assert.Contains(t, secondPrompt, "USER: first question")
}

func TestChatSchemaViolationRetriesOnce(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	sessions := session.NewStore()

	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).Return(chatPassages(), nil)
	generator.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("plain text, not json", nil).Once()
	generator.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(chatAnswerJSON, nil).Once()

	o := NewChatOrchestrator(generator, retriever, sessions, DefaultChatConfig())
	result, err := o.Handle(context.Background(), "s1", "question", 5)

	require.NoError(t, err)
	assert.Contains(t, result.Answer, "[NG12 p.10]")
	generator.AssertNumberOfCalls(t, "Generate", 2)
}

func TestChatRepeatedSchemaViolationFailsWithoutCommittingTurns(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	sessions := session.NewStore()

	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).Return(chatPassages(), nil)
	generator.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("still not json", nil)

	o := NewChatOrchestrator(generator, retriever, sessions, DefaultChatConfig())
	_, err := o.Handle(context.Background(), "s1", "question", 5)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeSchemaViolation, domainErr.Code)

	// Partial turns are only committed after the full cycle validates.
	assert.Empty(t, sessions.History("s1"))
}

func TestChatEmptyMessageIsRejected(t *testing.T) {
	o := NewChatOrchestrator(new(MockGenerator), new(MockRetriever), session.NewStore(), DefaultChatConfig())

	_, err := o.Handle(context.Background(), "s1", "   ", 5)

	var domainErr *domain.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.ErrCodeValidation, domainErr.Code)
}

func TestChatHistoryWindowTruncatesOldTurns(t *testing.T) {
	retriever := new(MockRetriever)
	generator := new(MockGenerator)
	sessions := session.NewStore()

	for i := 0; i < 15; i++ {
		require.NoError(t, sessions.Append("s1", domain.ChatTurn{Role: domain.ChatRoleUser, Text: "old user turn"}))
		require.NoError(t, sessions.Append("s1", domain.ChatTurn{Role: domain.ChatRoleAssistant, Text: "old assistant turn"}))
	}

	retriever.On("Retrieve", mock.Anything, mock.Anything, 5).Return(chatPassages(), nil)
	generator.On("Generate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(chatAnswerJSON, nil)

	cfg := DefaultChatConfig()
	cfg.HistoryWindow = 4
	o := NewChatOrchestrator(generator, retriever, sessions, cfg)

	_, err := o.Handle(context.Background(), "s1", "new question", 5)
	require.NoError(t, err)

	prompt := generator.Calls[0].Arguments.String(2)
	// Only the trailing window appears in the prompt; the store keeps all turns.
	assert.Equal(t, 4, strings.Count(prompt, "old "))
	assert.Len(t, sessions.History("s1"), 32)
}
