package openai

import (
	"context"
	"fmt"

	"github.com/youruser/chatdoc/internal/conf"
	"github.com/youruser/chatdoc/internal/models"
	"github.com/youruser/chatdoc/internal/vendors/generic"
)

const ChatURL = "https://api.openai.com/v1/chat/completions"

// curated list, the live /v1/models catalog is mostly fine-tune noise
var modelList = []string{
	"gpt-5.2",
	"gpt-5.2-pro",
	"gpt-5-mini",
	"gpt-5-nano",
	"o4-mini",
	"o3",
	"o3-mini",
	"o3-pro",
}

type OpenAI struct {
	generic.StreamCompleter
	apiKey string
}

func New(cfg conf.Config, model string, temperature float64) *OpenAI {
	o := &OpenAI{apiKey: cfg.OpenAIKey()}
	o.Model = model
	o.Temperature = temperature
	o.URL = ChatURL
	o.AuthHeader = "Authorization"
	o.AuthValue = fmt.Sprintf("Bearer %v", o.apiKey)
	o.Setup()
	return o
}

func (o *OpenAI) ID() string {
	return "openai"
}

func (o *OpenAI) StreamCompletions(ctx context.Context, chat models.Chat) (chan models.CompletionEvent, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("openai api key not set: %w", models.ErrConfiguration)
	}
	return o.StreamCompleter.StreamCompletions(ctx, chat)
}

func (o *OpenAI) ListModels(ctx context.Context) ([]string, error) {
	return modelList, nil
}
