package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/caldermed/triage/internal/domain"
	"github.com/caldermed/triage/internal/session"
	"github.com/caldermed/triage/internal/telemetry"
)

const maxContextPassageChars = 3000

// Generator issues a single generative call with no tools.
type Generator interface {
	Generate(ctx context.Context, system, prompt string, temperature float32) (string, error)
}

// SessionLog is the chat orchestrator's view of the session store.
type SessionLog interface {
	Append(sessionID string, turn domain.ChatTurn) error
	History(sessionID string) []domain.ChatTurn
}

// ChatConfig bounds one chat turn.
type ChatConfig struct {
	Temperature   float32
	HistoryWindow int
	Timeout       time.Duration
}

func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		Temperature:   0.2,
		HistoryWindow: 20,
		Timeout:       60 * time.Second,
	}
}

// ChatOrchestrator answers free-form guideline questions. Retrieval runs
// once per user turn; the passages, a trailing window of history, and the
// new message go into a single generative call.
type ChatOrchestrator struct {
	generator Generator
	retriever Retriever
	sessions  SessionLog
	cfg       ChatConfig
}

func NewChatOrchestrator(generator Generator, retriever Retriever, sessions SessionLog, cfg ChatConfig) *ChatOrchestrator {
	if cfg.HistoryWindow <= 0 {
		cfg = DefaultChatConfig()
	}
	return &ChatOrchestrator{
		generator: generator,
		retriever: retriever,
		sessions:  sessions,
		cfg:       cfg,
	}
}

// Handle answers one user message. Empty retrieval short-circuits to the
// refusal answer without a model call, since no passage could support any
// answer. Both turns are appended to the session only after the result
// validates, so an abandoned request never commits a partial exchange.
func (o *ChatOrchestrator) Handle(ctx context.Context, sessionID, message string, topK int) (*domain.ChatResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "ChatOrchestrator.Handle", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "chat",
	})
	defer span.End()

	message = strings.TrimSpace(message)
	if message == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "message is required")
	}

	passages, err := o.retriever.Retrieve(ctx, message, topK)
	if err != nil {
		return nil, fmt.Errorf("chat retrieval failed: %w", err)
	}

	if len(passages) == 0 {
		result := &domain.ChatResult{
			Answer:    RefusalAnswer,
			Citations: []domain.ChatCitation{},
		}
		if err := o.commitTurns(sessionID, message, result.Answer); err != nil {
			return nil, err
		}
		return result, nil
	}

	history := session.Window(o.sessions.History(sessionID), o.cfg.HistoryWindow)
	prompt := buildChatPrompt(passages, history, message)

	text, err := o.generator.Generate(ctx, chatSystemPrompt, prompt, o.cfg.Temperature)
	if err != nil {
		return nil, fmt.Errorf("chat generation failed: %w", err)
	}

	result, parseErr := parseChatResult(text)
	if parseErr != nil {
		log.Printf("Chat %s output failed validation, retrying once: %v", sessionID, parseErr)
		text, err = o.generator.Generate(ctx, chatSystemPrompt, prompt+"\n\n"+chatCorrectivePrompt, o.cfg.Temperature)
		if err != nil {
			return nil, fmt.Errorf("chat corrective retry failed: %w", err)
		}
		result, parseErr = parseChatResult(text)
		if parseErr != nil {
			err := domain.NewDomainErrorWithCause(domain.ErrCodeSchemaViolation,
				"model output failed schema validation after retry", parseErr)
			span.SetError(err)
			return nil, err
		}
	}

	if err := o.commitTurns(sessionID, message, result.Answer); err != nil {
		return nil, err
	}
	return result, nil
}

func (o *ChatOrchestrator) commitTurns(sessionID, userText, assistantText string) error {
	if err := o.sessions.Append(sessionID, domain.ChatTurn{Role: domain.ChatRoleUser, Text: userText}); err != nil {
		return fmt.Errorf("failed to record user turn: %w", err)
	}
	if err := o.sessions.Append(sessionID, domain.ChatTurn{Role: domain.ChatRoleAssistant, Text: assistantText}); err != nil {
		return fmt.Errorf("failed to record assistant turn: %w", err)
	}
	return nil
}

// buildChatPrompt assembles the CONTEXT block, the trailing history
// window, and the new user question into one prompt.
func buildChatPrompt(passages []domain.RetrievedPassage, history []domain.ChatTurn, message string) string {
	var b strings.Builder
	b.WriteString("CONTEXT:")
	for _, p := range passages {
		content := p.Content
		if runes := []rune(content); len(runes) > maxContextPassageChars {
			content = string(runes[:maxContextPassageChars])
		}
		section := p.SectionTitle
		if section == "" {
			section = "Unknown"
		}
		fmt.Fprintf(&b, "\n\n--- [%s] Page %d | %s ---\n%s", p.ChunkID, p.Page, section, content)
	}

	if len(history) > 0 {
		b.WriteString("\n\nCONVERSATION HISTORY:")
		for _, turn := range history {
			fmt.Fprintf(&b, "\n%s: %s", strings.ToUpper(string(turn.Role)), turn.Text)
		}
	}

	fmt.Fprintf(&b, "\n\nUSER QUESTION: %s", message)
	return b.String()
}
