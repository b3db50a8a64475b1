package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"google.golang.org/api/option"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
	"github.com/Rajat-malhotra0/draw-agent/internal/snapshot"
)

const geminiTestPrompt = `Say "Hello from Gemini!"`

// GeminiCompleter is the alternative provider, selected with AI_PROVIDER=gemini.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

func (g *GeminiCompleter) Close() {
	g.client.Close()
}

func (g *GeminiCompleter) Name() string { return "gemini" }

func (g *GeminiCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	// Settings differ per request, so every call gets its own model handle.
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(req.Temperature)
	model.SetMaxOutputTokens(int32(req.MaxTokens))
	model.SetTopP(1)
	if req.WithDrawTool {
		model.Tools = []*genai.Tool{drawTool()}
		model.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: genai.FunctionCallingAuto},
		}
	}

	parts := []genai.Part{genai.Text(req.Prompt)}
	if req.ImageURL != "" {
		img, err := snapshot.Decode(req.ImageURL)
		if err != nil {
			return nil, fmt.Errorf("gemini image: %w", err)
		}
		parts = append(parts, genai.ImageData(img.Format(), img.Data))
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	return g.toCompletion(resp), nil
}

func (g *GeminiCompleter) Ping(ctx context.Context) (*Completion, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetMaxOutputTokens(testMaxTokens)

	resp, err := model.GenerateContent(ctx, genai.Text(geminiTestPrompt))
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	return g.toCompletion(resp), nil
}

func (g *GeminiCompleter) toCompletion(resp *genai.GenerateContentResponse) *Completion {
	c := &Completion{
		Text:      extractText(resp),
		Model:     g.model,
		ToolCalls: make([]models.ToolCall, 0),
	}
	if resp.UsageMetadata != nil {
		c.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			fc, ok := part.(genai.FunctionCall)
			if !ok {
				continue
			}
			args, _ := json.Marshal(fc.Args)
			c.ToolCalls = append(c.ToolCalls, models.ToolCall{
				ID:   "call_" + uuid.NewString(),
				Type: "function",
				Function: models.FunctionCall{
					Name:      fc.Name,
					Arguments: string(args),
				},
			})
		}
	}
	return c
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}

func drawTool() *genai.Tool {
	number := &genai.Schema{Type: genai.TypeNumber}
	point := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: map[string]*genai.Schema{"x": number, "y": number},
	}
	return &genai.Tool{
		FunctionDeclarations: []*genai.FunctionDeclaration{{
			Name:        drawToolName,
			Description: drawToolDescription,
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"action": {
						Type:        genai.TypeString,
						Format:      "enum",
						Enum:        []string{models.ActionLine, models.ActionText, models.ActionClear},
						Description: "The drawing action to perform",
					},
					"data": {
						Type:        genai.TypeObject,
						Description: "Drawing data based on action",
						Properties: map[string]*genai.Schema{
							"from":  point,
							"to":    point,
							"text":  {Type: genai.TypeString},
							"x":     number,
							"y":     number,
							"color": {Type: genai.TypeString},
							"width": number,
							"size":  number,
						},
					},
				},
				Required: []string{"action", "data"},
			},
		}},
	}
}
