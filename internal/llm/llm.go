// Package llm talks to an OpenAI-compatible chat API to score essay answers
// and to draft exam questions.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/pavelanni/examdesk/internal/llm/prompts"
	"github.com/pavelanni/examdesk/internal/model"
	"github.com/pavelanni/examdesk/internal/scoring"

	openai "github.com/sashabaranov/go-openai"
)

// jsonObject extracts the outermost JSON object from a reply that may carry
// surrounding prose.
var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// EssayResult is the model's assessment of a single essay answer.
type EssayResult struct {
	Score    *float64 `json:"score"`
	Feedback string   `json:"feedback"`
}

type generated struct {
	Questions []model.Question `json:"questions"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api     *openai.Client
	model   string
	prompts *prompts.Set
	variant prompts.PromptVariant
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithVariant selects the grading prompt variant.
func WithVariant(v prompts.PromptVariant) Option { return func(c *Client) { c.variant = v } }

// WithTimeout bounds every API call. Zero means no extra bound.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithPrompts replaces the compiled-in prompt templates.
func WithPrompts(s *prompts.Set) Option { return func(c *Client) { c.prompts = s } }

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string, opts ...Option) (*Client, error) {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c := &Client{
		api:     openai.NewClientWithConfig(config),
		model:   modelName,
		variant: prompts.PromptStandard,
	}
	for _, o := range opts {
		o(c)
	}
	if !prompts.IsValidVariant(string(c.variant)) {
		return nil, fmt.Errorf("invalid prompt variant %q", c.variant)
	}
	if c.prompts == nil {
		set, err := prompts.Default()
		if err != nil {
			return nil, fmt.Errorf("load prompts: %w", err)
		}
		c.prompts = set
	}
	return c, nil
}

// EvaluateEssay scores one essay answer. It implements scoring.EssayEvaluator.
func (c *Client) EvaluateEssay(ctx context.Context, in scoring.EssayInput) (scoring.Evaluation, error) {
	prompt, err := c.prompts.BuildEvalPrompt(c.variant, in.Question, in.StudentAnswer)
	if err != nil {
		return scoring.Evaluation{}, fmt.Errorf("build eval prompt: %w", err)
	}

	raw, err := c.complete(ctx, prompt, 0.1)
	if err != nil {
		return scoring.Evaluation{}, err
	}

	var result EssayResult
	if err := decodeJSON(raw, &result); err != nil {
		return scoring.Evaluation{}, fmt.Errorf("parse grading response: %w (raw: %s)", err, raw)
	}
	if result.Score == nil {
		return scoring.Evaluation{}, fmt.Errorf("grading response has no score (raw: %s)", raw)
	}

	score := math.Max(0, math.Min(*result.Score, in.Question.Points))
	if score != *result.Score {
		slog.Warn("LLM score out of range, clamped",
			"question_id", in.Question.ID, "score", *result.Score, "max", in.Question.Points)
	}
	return scoring.Evaluation{Points: score, Feedback: strings.TrimSpace(result.Feedback)}, nil
}

// GenerateQuestions asks the model for n questions about topic. The returned
// questions are not validated.
func (c *Client) GenerateQuestions(ctx context.Context, topic string, summaries []string, n int) ([]model.Question, error) {
	prompt, err := c.prompts.BuildGeneratePrompt(topic, summaries, n)
	if err != nil {
		return nil, fmt.Errorf("build generate prompt: %w", err)
	}

	raw, err := c.complete(ctx, prompt, 0.7)
	if err != nil {
		return nil, err
	}

	var out generated
	if err := decodeJSON(raw, &out); err != nil {
		return nil, fmt.Errorf("parse generated questions: %w", err)
	}
	if len(out.Questions) == 0 {
		return nil, errors.New("LLM returned no questions")
	}
	return out.Questions, nil
}

// Ping checks that the API is reachable with the configured credentials.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM API unreachable: %w", err)
	}
	return nil
}

func (c *Client) complete(ctx context.Context, prompt string, temperature float32) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: temperature,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "model", c.model, "elapsed", time.Since(start), "raw", raw)
	return raw, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func decodeJSON(raw string, v any) error {
	obj := jsonObject.FindString(raw)
	if obj == "" {
		return errors.New("response contains no JSON object")
	}
	return json.Unmarshal([]byte(obj), v)
}
