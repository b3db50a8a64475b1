package services

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Rajat-malhotra0/draw-agent/internal/models"
)

// GroqCompleter talks to Groq through its OpenAI-compatible endpoint.
type GroqCompleter struct {
	client      *openai.Client
	visionModel string
	testModel   string
}

func NewGroqCompleter(apiKey, baseURL, visionModel, testModel string) *GroqCompleter {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &GroqCompleter{
		client:      openai.NewClientWithConfig(cfg),
		visionModel: visionModel,
		testModel:   testModel,
	}
}

func (g *GroqCompleter) Name() string { return "groq" }

func (g *GroqCompleter) Complete(ctx context.Context, req CompletionRequest) (*Completion, error) {
	resp, err := g.client.CreateChatCompletion(ctx, g.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("groq chat completion: %w", err)
	}
	return toCompletion(resp), nil
}

func (g *GroqCompleter) Ping(ctx context.Context) (*Completion, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.testModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: testPrompt},
		},
		MaxTokens: testMaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("groq ping: %w", err)
	}
	return toCompletion(resp), nil
}

func (g *GroqCompleter) buildRequest(req CompletionRequest) openai.ChatCompletionRequest {
	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
	}
	if req.ImageURL != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: req.ImageURL},
		})
	}

	out := openai.ChatCompletionRequest{
		Model: g.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, MultiContent: parts},
		},
		Temperature:         req.Temperature,
		MaxCompletionTokens: req.MaxTokens,
		TopP:                1,
	}
	if req.WithDrawTool {
		out.Tools = []openai.Tool{{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        drawToolName,
				Description: drawToolDescription,
				Parameters:  drawToolParameters(),
			},
		}}
		out.ToolChoice = "auto"
	}
	return out
}

func toCompletion(resp openai.ChatCompletionResponse) *Completion {
	c := &Completion{
		Model:      resp.Model,
		TokensUsed: resp.Usage.TotalTokens,
		ToolCalls:  make([]models.ToolCall, 0),
	}
	if len(resp.Choices) == 0 {
		return c
	}

	msg := resp.Choices[0].Message
	c.Text = msg.Content
	for _, tc := range msg.ToolCalls {
		c.ToolCalls = append(c.ToolCalls, models.ToolCall{
			ID:   tc.ID,
			Type: string(tc.Type),
			Function: models.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return c
}

// providerMessage prefers the message the provider wrote over the wrapped
// error chain.
func providerMessage(err error) string {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
