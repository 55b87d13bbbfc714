package llm

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog/log"
)

const DefaultOpenAIModel = "gpt-4o-mini"

// gpt-4o-mini pricing (per million tokens)
const (
	openaiInputPricePerMillion  = 0.15
	openaiOutputPricePerMillion = 0.60
)

type openaiBackend struct {
	client    openai.Client
	modelName string
}

// NewOpenAIExtractor creates a query extractor backed by an OpenAI-compatible
// chat completions API. baseURL may point at any compatible server.
func NewOpenAIExtractor(apiKey, baseURL, model string, brandHints bool, opts ...option.RequestOption) *Extractor {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	if model == "" {
		model = DefaultOpenAIModel
	}
	return newExtractor(&openaiBackend{client: openai.NewClient(reqOpts...), modelName: model}, brandHints)
}

func (o *openaiBackend) model() string { return o.modelName }

func (o *openaiBackend) generate(ctx context.Context, conv Conversation) (string, Usage, error) {
	resp, err := o.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    conv.Model,
		Messages: openaiMessages(conv),
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", Usage{}, fmt.Errorf("no response from OpenAI")
	}

	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		TotalTokens:  resp.Usage.TotalTokens,
		CostUSD:      calculateCost(resp.Usage.PromptTokens, resp.Usage.CompletionTokens, openaiInputPricePerMillion, openaiOutputPricePerMillion),
	}

	log.Info().
		Str("model", conv.Model).
		Int("turns", len(conv.History)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("vision llm call")

	return resp.Choices[0].Message.Content, usage, nil
}

func openaiMessages(conv Conversation) []openai.ChatCompletionMessageParamUnion {
	msgs := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(conv.SystemPrompt)}
	imageSent := false
	for _, turn := range conv.History {
		if turn.Role == RoleModel {
			for _, p := range turn.Parts {
				msgs = append(msgs, openai.AssistantMessage(p))
			}
			continue
		}
		parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(turn.Parts))
		for _, p := range turn.Parts {
			if p == ImagePlaceholder && !imageSent {
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL(conv.MIMEType, conv.Image()),
				}))
				imageSent = true
				continue
			}
			parts = append(parts, openai.TextContentPart(p))
		}
		msgs = append(msgs, openai.UserMessage(parts))
	}
	return msgs
}

func dataURL(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}
