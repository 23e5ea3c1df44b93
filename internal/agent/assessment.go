// Package agent implements the two orchestration modes over the retrieval
// layer: the multi-step tool-calling assessment loop and the single-shot
// context-injected chat loop.
package agent

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/caldermed/triage/internal/domain"
	"github.com/caldermed/triage/internal/telemetry"
)

// PatientLookup resolves patient records by id.
type PatientLookup interface {
	Get(patientID string) (*domain.PatientRecord, error)
}

// Retriever returns the best-matching guideline passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]domain.RetrievedPassage, error)
}

// ToolConversation is one in-flight tool-calling exchange with the model.
type ToolConversation interface {
	Send(ctx context.Context, text string) (*domain.ModelTurn, error)
	SendToolResults(ctx context.Context, results []domain.ToolResult) (*domain.ModelTurn, error)
}

// ToolGateway opens tool-calling conversations with the generative model.
type ToolGateway interface {
	StartToolConversation(system string, tools []domain.ToolSpec, temperature float32) ToolConversation
}

// assessmentState tracks loop progress. Guideline searches issued before
// the patient record has been fetched are rejected.
type assessmentState int

const (
	stateAwaitPatient assessmentState = iota
	stateAwaitGuideline
)

// AssessmentConfig bounds one assessment request.
type AssessmentConfig struct {
	MaxToolCalls int
	Temperature  float32
	Timeout      time.Duration
}

func DefaultAssessmentConfig() AssessmentConfig {
	return AssessmentConfig{
		MaxToolCalls: 8,
		Temperature:  0.1,
		Timeout:      120 * time.Second,
	}
}

// AssessmentOrchestrator drives the bounded tool-calling loop that
// produces a structured risk decision. Each request owns its own model
// conversation; concurrent requests share no mutable state.
type AssessmentOrchestrator struct {
	gateway   ToolGateway
	patients  PatientLookup
	retriever Retriever
	cfg       AssessmentConfig
}

func NewAssessmentOrchestrator(gateway ToolGateway, patients PatientLookup, retriever Retriever, cfg AssessmentConfig) *AssessmentOrchestrator {
	if cfg.MaxToolCalls <= 0 {
		cfg = DefaultAssessmentConfig()
	}
	return &AssessmentOrchestrator{
		gateway:   gateway,
		patients:  patients,
		retriever: retriever,
		cfg:       cfg,
	}
}

// Assess classifies a patient into a risk tier with citations. The model
// decides which tools to call; the orchestrator executes them through a
// closed dispatch, enforces the invocation budget, and validates the final
// output against the result schema with one corrective retry.
func (o *AssessmentOrchestrator) Assess(ctx context.Context, patientID string) (*domain.AssessmentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	ctx, span := telemetry.StartSpan(ctx, "AssessmentOrchestrator.Assess", telemetry.SpanAttributes{
		PatientID: patientID,
		Operation: "assess",
	})
	defer span.End()

	// Unknown patients fail before the first model call.
	if _, err := o.patients.Get(patientID); err != nil {
		return nil, err
	}

	conv := o.gateway.StartToolConversation(assessmentSystemPrompt, assessmentTools(), o.cfg.Temperature)

	turn, err := conv.Send(ctx, fmt.Sprintf(
		"Assess the cancer risk for patient %s. Start by retrieving their data, "+
			"then search the NG12 guidelines based on their symptoms, and provide "+
			"your structured JSON assessment.", patientID))
	if err != nil {
		return nil, fmt.Errorf("assessment conversation failed: %w", err)
	}

	state := stateAwaitPatient
	used := 0
	for len(turn.ToolCalls) > 0 {
		if used >= o.cfg.MaxToolCalls {
			// Budget exhausted: force one synthesis attempt from what the
			// model has gathered so far.
			turn, err = conv.Send(ctx,
				"You have reached the tool invocation limit. Provide your final "+
					"JSON assessment now using the information already gathered.")
			if err != nil {
				return nil, fmt.Errorf("forced synthesis failed: %w", err)
			}
			if len(turn.ToolCalls) > 0 {
				span.SetError(domain.ErrToolLoopExceeded)
				return nil, domain.ErrToolLoopExceeded
			}
			break
		}

		results := make([]domain.ToolResult, 0, len(turn.ToolCalls))
		for _, call := range turn.ToolCalls {
			used++
			log.Printf("Assessment %s tool call %d/%d: %s", patientID, used, o.cfg.MaxToolCalls, call.Name)
			results = append(results, o.dispatch(ctx, &state, call))
		}

		turn, err = conv.SendToolResults(ctx, results)
		if err != nil {
			return nil, fmt.Errorf("assessment conversation failed: %w", err)
		}
	}

	result, parseErr := parseAssessment(patientID, turn.Text)
	if parseErr != nil {
		log.Printf("Assessment %s output failed validation, retrying once: %v", patientID, parseErr)
		turn, err = conv.Send(ctx, assessmentCorrectivePrompt)
		if err != nil {
			return nil, fmt.Errorf("corrective retry failed: %w", err)
		}
		result, parseErr = parseAssessment(patientID, turn.Text)
		if parseErr != nil {
			err := domain.NewDomainErrorWithCause(domain.ErrCodeSchemaViolation,
				"model output failed schema validation after retry", parseErr)
			span.SetError(err)
			return nil, err
		}
	}

	result.Timestamp = time.Now().UTC()
	return result, nil
}

// dispatch executes one tool call from the closed set. Failures become
// error responses the model can recover from rather than aborting the
// conversation.
func (o *AssessmentOrchestrator) dispatch(ctx context.Context, state *assessmentState, call domain.ToolCall) domain.ToolResult {
	switch call.Name {
	case ToolGetPatientRecord:
		id, ok := stringArg(call.Args, "patient_id")
		if !ok {
			return toolError(call.Name, "patient_id is required")
		}
		record, err := o.patients.Get(id)
		if err != nil {
			return toolError(call.Name, fmt.Sprintf("patient %s not found", id))
		}
		value, err := toJSONValue(record)
		if err != nil {
			return toolError(call.Name, "failed to encode patient record")
		}
		if *state == stateAwaitPatient {
			*state = stateAwaitGuideline
		}
		return domain.ToolResult{Name: call.Name, Response: map[string]any{"result": value}}

	case ToolSearchGuidelines:
		if *state == stateAwaitPatient {
			return toolError(call.Name, "retrieve the patient record before searching the guidelines")
		}
		query, ok := stringArg(call.Args, "query")
		if !ok {
			return toolError(call.Name, "query is required")
		}
		passages, err := o.retriever.Retrieve(ctx, query, intArg(call.Args, "top_k"))
		if err != nil {
			return toolError(call.Name, "guideline search failed")
		}
		value, err := toJSONValue(passages)
		if err != nil {
			return toolError(call.Name, "failed to encode search results")
		}
		response := map[string]any{"result": value}
		if len(passages) == 0 {
			response["note"] = "no guideline passages cleared the similarity floor; treat as insufficient evidence"
		}
		return domain.ToolResult{Name: call.Name, Response: response}

	default:
		return toolError(call.Name, fmt.Sprintf("unknown tool: %s", call.Name))
	}
}
