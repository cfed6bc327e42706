package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/semi-weekly/app/article"
	"github.com/lysyi3m/semi-weekly/app/llm"
)

type Input struct {
	Title   string
	URL     string
	Date    string
	Author  string
	Content string
}

type Result struct {
	Category article.Category
	Summary  string
	RawJSON  string // validated payload as stored
}

type attemptState int

const (
	attemptNormal attemptState = iota
	attemptRepair
	attemptFailed
)

func (s attemptState) String() string {
	switch s {
	case attemptNormal:
		return "normal"
	case attemptRepair:
		return "repair"
	default:
		return "failed"
	}
}

type Classifier struct {
	client       llm.ChatClient
	retrier      llm.Retrier
	excerptChars int
}

func NewClassifier(client llm.ChatClient, retrier llm.Retrier, excerptChars int) *Classifier {
	if excerptChars <= 0 {
		excerptChars = DefaultExcerptChars
	}
	return &Classifier{client: client, retrier: retrier, excerptChars: excerptChars}
}

// Classify asks the model for a category and summary. An invalid reply gets
// exactly one repair request; transport failures are returned after the
// retrier gives up and never trigger a repair.
func (c *Classifier) Classify(ctx context.Context, in Input) (*Result, error) {
	req, err := BuildRequest(in, c.excerptChars)
	if err != nil {
		return nil, err
	}

	state := attemptNormal
	var lastErr error

	for state != attemptFailed {
		text, err := c.retrier.Complete(ctx, c.client, req)
		if err != nil {
			return nil, fmt.Errorf("chat completion failed (%s attempt): %w", state, err)
		}

		result, err := parseResult(text)
		if err == nil {
			return result, nil
		}

		slog.Debug("Model output rejected", "url", in.URL, "attempt", state.String(), "error", err)
		lastErr = err
		state, req = nextAttempt(state, text)
	}

	return nil, fmt.Errorf("model output still invalid after repair: %w", lastErr)
}

func nextAttempt(state attemptState, failedText string) (attemptState, llm.Request) {
	if state == attemptNormal {
		return attemptRepair, BuildRepairRequest(failedText)
	}
	return attemptFailed, llm.Request{}
}

func parseResult(text string) (*Result, error) {
	obj, err := ParseJSONObject(text)
	if err != nil {
		return nil, err
	}

	category, summary, err := Validate(obj)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(struct {
		Category string `json:"category"`
		Summary  string `json:"summary"`
	}{string(category), summary})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal validated output: %w", err)
	}

	return &Result{Category: category, Summary: summary, RawJSON: string(raw)}, nil
}
