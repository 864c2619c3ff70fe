// Package classifier triages ticket text into a category, priority and summary.
//
// Output from any Classifier is untrusted: callers re-validate every field
// before it reaches storage.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-intake/internal/config"
)

// ErrDisabled is returned by a classifier that was not configured.
var ErrDisabled = errors.New("AI service disabled")

// Result is the raw classifier output.
type Result struct {
	Category   string
	Priority   string
	Summary    string
	Confidence *float64
}

// Classifier turns a ticket subject and description into a Result.
type Classifier interface {
	Classify(ctx context.Context, subject, description string) (Result, error)
	// Model names the backing model for logs and metrics.
	Model() string
}

// New picks the network-backed classifier when an API key is configured and
// the disabled one otherwise.
func New(cfg config.AIConfig, logger *zap.Logger) Classifier {
	if !cfg.Enabled() {
		logger.Warn("OPENAI_API_KEY not set, tickets will use default classification")
		return NewDisabled("OPENAI_API_KEY not configured")
	}
	logger.Info("ticket classifier enabled", zap.String("model", cfg.Model), zap.String("base_url", cfg.BaseURL))
	return NewOpenAI(cfg)
}

// Disabled always fails with ErrDisabled.
type Disabled struct {
	reason string
}

// NewDisabled returns a classifier that reports reason on every call.
func NewDisabled(reason string) *Disabled {
	return &Disabled{reason: reason}
}

func (d *Disabled) Classify(context.Context, string, string) (Result, error) {
	return Result{}, fmt.Errorf("%w: %s", ErrDisabled, d.reason)
}

func (d *Disabled) Model() string {
	return "disabled"
}
