package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/spec-kit/ticket-intake/internal/config"
	"github.com/spec-kit/ticket-intake/internal/domain"
)

const systemPrompt = "You are a support ticket triage system. Analyze tickets and categorize, prioritize, and summarize them accurately."

// OpenAI classifies tickets through an OpenAI-compatible chat completions API.
type OpenAI struct {
	client *resty.Client
	model  string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float64        `json:"temperature"`
	MaxTokens      int            `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type completionPayload struct {
	Category   string   `json:"category"`
	Priority   string   `json:"priority"`
	Summary    string   `json:"summary"`
	Confidence *float64 `json:"confidence"`
}

// NewOpenAI builds the HTTP-backed classifier. Retries apply only to transport
// errors, 429 and 5xx responses, and only when MaxRetries > 0.
func NewOpenAI(cfg config.AIConfig) *OpenAI {
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(cfg.Timeout()).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		})
	return &OpenAI{client: client, model: cfg.Model}
}

func (o *OpenAI) Model() string {
	return o.model
}

// Classify sends one chat completion request and decodes the JSON answer.
func (o *OpenAI) Classify(ctx context.Context, subject, description string) (Result, error) {
	body := chatRequest{
		Model: o.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildPrompt(subject, description)},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    0.3,
		MaxTokens:      300,
	}

	var out chatResponse
	resp, err := o.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return Result{}, fmt.Errorf("chat completion: %w", err)
	}
	if resp.IsError() {
		return Result{}, fmt.Errorf("chat completion: unexpected status %d", resp.StatusCode())
	}

	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return Result{}, errors.New("no response from AI")
	}

	var payload completionPayload
	if err := json.Unmarshal([]byte(out.Choices[0].Message.Content), &payload); err != nil {
		return Result{}, fmt.Errorf("decode classification: %w", err)
	}

	return Result{
		Category:   payload.Category,
		Priority:   payload.Priority,
		Summary:    payload.Summary,
		Confidence: payload.Confidence,
	}, nil
}

func buildPrompt(subject, description string) string {
	var b strings.Builder
	b.WriteString("Analyze the following support ticket and provide:\n")
	fmt.Fprintf(&b, "1. Category (one of: %s)\n", strings.Join(domain.CategoryNames(), ", "))
	fmt.Fprintf(&b, "2. Priority (one of: %s)\n", strings.Join(domain.PriorityNames(), ", "))
	b.WriteString("3. A concise 2-3 sentence summary\n\n")
	fmt.Fprintf(&b, "Ticket Subject: %s\n", subject)
	fmt.Fprintf(&b, "Ticket Description: %s\n\n", description)
	b.WriteString(`Return your response as JSON with this exact structure:
{
  "category": "category_name",
  "priority": "priority_level",
  "summary": "2-3 sentence summary here",
  "confidence": 0.95
}`)
	return b.String()
}
