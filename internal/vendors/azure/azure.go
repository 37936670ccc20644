// Package azure adapts Azure OpenAI. The wire protocol is the OpenAI
// one, but requests are routed per-deployment and authed with an
// api-key header instead of a bearer token.
package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/youruser/chatdoc/internal/conf"
	"github.com/youruser/chatdoc/internal/models"
	"github.com/youruser/chatdoc/internal/vendors/generic"
)

const apiVersion = "2024-02-01"

type Azure struct {
	generic.StreamCompleter
	apiKey      string
	endpoint    string
	deployments []string
}

func New(cfg conf.Config, model string, temperature float64) *Azure {
	a := &Azure{
		apiKey:      cfg.AzureKey(),
		endpoint:    strings.TrimSuffix(cfg.AzureEndpoint, "/"),
		deployments: cfg.AzureDeployments,
	}
	a.Model = model
	a.Temperature = temperature
	a.URL = fmt.Sprintf("%v/openai/deployments/%v/chat/completions?api-version=%v", a.endpoint, model, apiVersion)
	a.AuthHeader = "api-key"
	a.AuthValue = a.apiKey
	a.Setup()
	return a
}

func (a *Azure) ID() string {
	return "azure"
}

func (a *Azure) StreamCompletions(ctx context.Context, chat models.Chat) (chan models.CompletionEvent, error) {
	if a.apiKey == "" || a.endpoint == "" {
		return nil, fmt.Errorf("azure api key or endpoint not set: %w", models.ErrConfiguration)
	}
	return a.StreamCompleter.StreamCompletions(ctx, chat)
}

// ListModels returns the user-configured deployment names, there is no
// free catalog endpoint on Azure.
func (a *Azure) ListModels(ctx context.Context) ([]string, error) {
	return a.deployments, nil
}
