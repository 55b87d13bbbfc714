package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoImage            = errors.New("no image provided")
	ErrFailedConversation = errors.New("cannot redo queries from a failed initial request")
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

// Extraction is the outcome of an initial analysis or a redo. An empty
// Queries slice means no clothing was found and is not an error.
type Extraction struct {
	Queries      []string
	Conversation Conversation
	Usage        Usage
	Cached       bool
}

// QueryExtractor turns outfit images into shopping search queries.
type QueryExtractor interface {
	// Extract runs the initial analysis of an image.
	Extract(ctx context.Context, image []byte, mimeType string) (*Extraction, error)
	// Redo continues a previous conversation with feedback. An empty
	// feedback string selects DefaultFeedback.
	Redo(ctx context.Context, conv Conversation, feedback string) (*Extraction, error)
}

// ParseError means the model answered but not with a JSON array of strings.
type ParseError struct {
	Raw          string
	Conversation Conversation
	Err          error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse model response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// UpstreamError wraps a failed model API call.
type UpstreamError struct {
	Model string
	Err   error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model %s call failed: %v", e.Model, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// generator sends a whole conversation to a model and returns its text reply.
type generator interface {
	generate(ctx context.Context, conv Conversation) (string, Usage, error)
	model() string
}

// Extractor implements QueryExtractor on top of a model backend.
type Extractor struct {
	gen          generator
	systemPrompt string
}

func newExtractor(gen generator, brandHints bool) *Extractor {
	return &Extractor{gen: gen, systemPrompt: SystemPrompt(brandHints)}
}

func (e *Extractor) Extract(ctx context.Context, image []byte, mimeType string) (*Extraction, error) {
	if len(image) == 0 {
		return nil, ErrNoImage
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	conv := newConversation(e.gen.model(), e.systemPrompt, mimeType, image)
	text, usage, err := e.gen.generate(ctx, conv)
	if err != nil {
		return nil, &UpstreamError{Model: conv.Model, Err: err}
	}
	text = strings.TrimSpace(text)
	conv = conv.extend(textTurn(RoleModel, text))

	queries, err := parseQueries(text)
	if err != nil {
		conv.Failed = true
		return nil, &ParseError{Raw: text, Conversation: conv, Err: err}
	}

	return &Extraction{Queries: queries, Conversation: conv, Usage: usage}, nil
}

func (e *Extractor) Redo(ctx context.Context, conv Conversation, feedback string) (*Extraction, error) {
	if conv.Failed || len(conv.History) == 0 {
		return nil, ErrFailedConversation
	}
	if len(conv.Image()) == 0 {
		return nil, ErrNoImage
	}
	if strings.TrimSpace(feedback) == "" {
		feedback = DefaultFeedback
	}

	pending := conv.extend(textTurn(RoleUser, feedback))
	text, usage, err := e.gen.generate(ctx, pending)
	if err != nil {
		return nil, &UpstreamError{Model: conv.Model, Err: err}
	}
	text = strings.TrimSpace(text)

	next := pending.extend(textTurn(RoleModel, text))
	next.FeedbackUsed = feedback

	queries, err := parseQueries(text)
	if err != nil {
		return nil, &ParseError{Raw: text, Conversation: next, Err: err}
	}

	return &Extraction{Queries: queries, Conversation: next, Usage: usage}, nil
}

func calculateCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}
