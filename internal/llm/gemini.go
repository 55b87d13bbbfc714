package llm

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

const DefaultGeminiModel = "gemini-2.5-flash"

// Gemini 2.5 Flash pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

// contentGenerator is the subset of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiBackend struct {
	models    contentGenerator
	modelName string
}

// NewGeminiExtractor creates a query extractor backed by Gemini.
func NewGeminiExtractor(ctx context.Context, apiKey, model string, brandHints bool) (*Extractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	return newExtractor(&geminiBackend{models: client.Models, modelName: model}, brandHints), nil
}

func (g *geminiBackend) model() string { return g.modelName }

func (g *geminiBackend) generate(ctx context.Context, conv Conversation) (string, Usage, error) {
	contents := geminiContents(conv)
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(conv.SystemPrompt, genai.RoleUser),
	}

	result, err := g.models.GenerateContent(ctx, conv.Model, contents, config)
	if err != nil {
		return "", Usage{}, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", Usage{}, fmt.Errorf("no response from Gemini")
	}

	usage := Usage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int64(result.UsageMetadata.TotalTokenCount)
		usage.CostUSD = calculateCost(usage.InputTokens, usage.OutputTokens, geminiInputPricePerMillion, geminiOutputPricePerMillion)
	}

	log.Info().
		Str("model", conv.Model).
		Int("turns", len(contents)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("vision llm call")

	return result.Text(), usage, nil
}

// geminiContents replays the history, splicing the real image bytes into the
// turn that carries the placeholder.
func geminiContents(conv Conversation) []*genai.Content {
	contents := make([]*genai.Content, 0, len(conv.History))
	imageSent := false
	for _, turn := range conv.History {
		parts := make([]*genai.Part, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p == ImagePlaceholder && turn.Role == RoleUser && !imageSent {
				parts = append(parts, &genai.Part{
					InlineData: &genai.Blob{Data: conv.Image(), MIMEType: conv.MIMEType},
				})
				imageSent = true
				continue
			}
			parts = append(parts, genai.NewPartFromText(p))
		}
		role := genai.Role(genai.RoleUser)
		if turn.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromParts(parts, role))
	}
	return contents
}
