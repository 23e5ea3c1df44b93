// Package gemini implements the generative model gateway on top of the
// Google Generative AI SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/caldermed/triage/internal/domain"
)

const (
	// DefaultModel is the generative model used for both orchestration modes.
	DefaultModel = "gemini-2.0-flash"

	maxOutputTokens = 4096
)

// Client wraps a genai.Client for tool-calling conversations and
// single-shot generation.
type Client struct {
	client *genai.Client
	model  string
}

type Config struct {
	APIKey string
	Model  string
}

// NewClient creates a gateway client. Close must be called on shutdown.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Client{client: client, model: model}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// Generate issues a single generative call with no tools and returns the
// response text.
func (c *Client) Generate(ctx context.Context, system, prompt string, temperature float32) (string, error) {
	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxOutputTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return "", fmt.Errorf("gemini returned an empty response")
	}
	return text, nil
}

// StartToolConversation opens a chat session with the given system
// instruction and declared tools.
func (c *Client) StartToolConversation(system string, tools []domain.ToolSpec, temperature float32) *Conversation {
	model := c.client.GenerativeModel(c.model)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(system)},
	}
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(maxOutputTokens)
	if len(tools) > 0 {
		model.Tools = []*genai.Tool{{FunctionDeclarations: declarations(tools)}}
	}

	return &Conversation{session: model.StartChat()}
}

// Conversation is one in-flight tool-calling exchange. Each assessment
// request owns its own conversation; there is no shared state between them.
type Conversation struct {
	session *genai.ChatSession
}

// Send submits a user text message and returns the model's turn.
func (c *Conversation) Send(ctx context.Context, text string) (*domain.ModelTurn, error) {
	resp, err := c.session.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini send failed: %w", err)
	}
	return toModelTurn(resp), nil
}

// SendToolResults returns executed tool results to the model and reads the
// next turn.
func (c *Conversation) SendToolResults(ctx context.Context, results []domain.ToolResult) (*domain.ModelTurn, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		parts = append(parts, genai.FunctionResponse{
			Name:     r.Name,
			Response: r.Response,
		})
	}

	resp, err := c.session.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("gemini tool response failed: %w", err)
	}
	return toModelTurn(resp), nil
}

func declarations(tools []domain.ToolSpec) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		props := make(map[string]*genai.Schema, len(t.Params))
		var required []string
		for _, p := range t.Params {
			props[p.Name] = &genai.Schema{
				Type:        schemaType(p.Type),
				Description: p.Description,
			}
			if p.Required {
				required = append(required, p.Name)
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters: &genai.Schema{
				Type:       genai.TypeObject,
				Properties: props,
				Required:   required,
			},
		})
	}
	return decls
}

func schemaType(t string) genai.Type {
	switch t {
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

func toModelTurn(resp *genai.GenerateContentResponse) *domain.ModelTurn {
	turn := &domain.ModelTurn{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return turn
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			text.WriteString(string(p))
		case genai.FunctionCall:
			turn.ToolCalls = append(turn.ToolCalls, domain.ToolCall{
				Name: p.Name,
				Args: p.Args,
			})
		}
	}
	turn.Text = text.String()
	return turn
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
