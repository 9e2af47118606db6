// Package llm drafts multiple-choice questions through an OpenAI-compatible
// API. Drafts are suggestions only; nothing is written to the question bank
// until an admin reviews and submits them through the normal create path.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shacademia/estudy/internal/llm/prompts"
	"github.com/shacademia/estudy/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("LLM endpoint check: %w", err)
	}
	return nil
}

type draftResponse struct {
	Questions []model.QuestionDraft `json:"questions"`
}

// DraftQuestions asks the model for count multiple-choice questions on the
// given subject/topic at the given difficulty. Drafts whose correct-option
// index falls outside the option list are discarded.
func (c *Client) DraftQuestions(ctx context.Context, subject, topic string, difficulty model.Difficulty, count int) ([]model.QuestionDraft, error) {
	systemPrompt := prompts.DraftSystemPrompt(subject, topic, difficulty, count)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Generate the questions now."},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM draft response", "raw", raw)

	var parsed draftResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}

	var drafts []model.QuestionDraft
	for _, d := range parsed.Questions {
		if len(d.Options) < 2 || d.CorrectOption < 0 || d.CorrectOption >= len(d.Options) {
			slog.Warn("discarding malformed draft", "content", d.Content)
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}
