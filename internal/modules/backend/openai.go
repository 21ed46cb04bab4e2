package backend

import (
	"context"
	"errors"

	"github.com/compresso/core/internal/models"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"go.uber.org/zap"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	summarySystemRole  = "You are a helpful assistant that creates concise and accurate summaries."
)

type openaiBackend struct {
	client openai.Client
	logger *zap.Logger
}

func newOpenAIBackend(apiKey string, logger *zap.Logger) *openaiBackend {
	return &openaiBackend{
		client: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithMaxRetries(0),
		),
		logger: logger,
	}
}

func (b *openaiBackend) Summarize(ctx context.Context, text string, opts models.SummaryOptions, promptTemplate string) (string, error) {
	model := opts.ModelName()
	if model == "" {
		model = defaultOpenAIModel
	}

	b.logger.Info("calling openai", zap.String("model", model))

	resp, err := b.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summarySystemRole),
			openai.UserMessage(renderPrompt(promptTemplate, text)),
		},
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(maxOutputTokens(opts.Detail)),
	})
	if err != nil {
		return "", &models.BackendError{Provider: "openai", Cause: err}
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", &models.BackendError{Provider: "openai", Cause: errors.New("empty response")}
	}

	b.logger.Info("openai call succeeded",
		zap.String("model", model),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}
