package services

import (
	"context"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
)

const (
	defaultTemperature float32 = 0.3
	defaultMaxTokens           = 2000
	testMaxTokens              = 50

	drawToolName        = "draw_on_canvas"
	drawToolDescription = "Draw lines, shapes, or text on the canvas to visualize or annotate the solution"

	stepByStepPrompt = "Analyze this mathematical problem. Solve it step by step and explain your reasoning clearly. " +
		"Format your response with clear step numbers. If you need to draw or annotate the solution, use the draw_on_canvas tool."
	directPrompt = "Solve this mathematical problem and provide the answer. " +
		"If you need to draw or annotate, use the draw_on_canvas tool."
	testPrompt = `Say "Hello from Groq!"`
)

// CompletionRequest is one provider-neutral chat completion with an optional
// image attached to the user turn.
type CompletionRequest struct {
	Prompt       string
	ImageURL     string
	Temperature  float32
	MaxTokens    int
	WithDrawTool bool
}

type Completion struct {
	Text       string
	ToolCalls  []models.ToolCall
	TokensUsed int
	Model      string
}

// Completer is implemented by every LLM backend the solver can talk to.
type Completer interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (*Completion, error)
	// Ping runs the provider's cheap connectivity check.
	Ping(ctx context.Context) (*Completion, error)
}

func promptFor(opts models.SolveOptions) string {
	if opts.StepByStep {
		return stepByStepPrompt
	}
	return directPrompt
}

// drawToolParameters is the JSON schema of the draw_on_canvas arguments.
func drawToolParameters() map[string]any {
	point := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"x": map[string]any{"type": "number"},
			"y": map[string]any{"type": "number"},
		},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"action": map[string]any{
				"type":        "string",
				"enum":        []string{models.ActionLine, models.ActionText, models.ActionClear},
				"description": "The drawing action to perform",
			},
			"data": map[string]any{
				"type":        "object",
				"description": "Drawing data based on action",
				"properties": map[string]any{
					"from":  point,
					"to":    point,
					"text":  map[string]any{"type": "string"},
					"x":     map[string]any{"type": "number"},
					"y":     map[string]any{"type": "number"},
					"color": map[string]any{"type": "string"},
					"width": map[string]any{"type": "number"},
					"size":  map[string]any{"type": "number"},
				},
			},
		},
		"required": []string{"action", "data"},
	}
}
