// Package vendors routes fully-qualified model strings to the provider
// adapter which serves them. A model string is "provider/model", a bare
// model name goes to ollama.
package vendors

import (
	"context"
	"fmt"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/youruser/chatdoc/internal/conf"
	"github.com/youruser/chatdoc/internal/models"
	"github.com/youruser/chatdoc/internal/vendors/anthropic"
	"github.com/youruser/chatdoc/internal/vendors/azure"
	"github.com/youruser/chatdoc/internal/vendors/gemini"
	"github.com/youruser/chatdoc/internal/vendors/ollama"
	"github.com/youruser/chatdoc/internal/vendors/openai"
	"golang.org/x/exp/slices"
)

// Resolve picks the provider adapter for modelString and returns it
// together with the bare model name the adapter should use.
func Resolve(modelString string, temperature float64, cfg conf.Config) (models.Provider, string, error) {
	providerID, model, found := strings.Cut(modelString, "/")
	if !found {
		return ollama.New(cfg, modelString, temperature), modelString, nil
	}
	switch providerID {
	case "ollama":
		return ollama.New(cfg, model, temperature), model, nil
	case "openai":
		return openai.New(cfg, model, temperature), model, nil
	case "anthropic":
		return anthropic.New(cfg, model, temperature), model, nil
	case "gemini":
		return gemini.New(cfg, model, temperature), model, nil
	case "azure":
		return azure.New(cfg, model, temperature), model, nil
	default:
		return nil, "", fmt.Errorf("no provider named '%v': %w", providerID, models.ErrUnknownProvider)
	}
}

// ListVisible aggregates every provider's models into sorted
// "provider/model" strings, dropping the ones the visibility map hides.
// A provider which fails to list, ollama being down most commonly, is
// skipped with a warning rather than failing the whole listing.
func ListVisible(ctx context.Context, cfg conf.Config) []string {
	providers := []models.Provider{
		ollama.New(cfg, "", cfg.DefaultTemperature),
		openai.New(cfg, "", cfg.DefaultTemperature),
		anthropic.New(cfg, "", cfg.DefaultTemperature),
		gemini.New(cfg, "", cfg.DefaultTemperature),
		azure.New(cfg, "", cfg.DefaultTemperature),
	}
	var out []string
	for _, p := range providers {
		names, err := p.ListModels(ctx)
		if err != nil {
			ancli.PrintWarn(fmt.Sprintf("failed to list models for '%v': %v\n", p.ID(), err))
			continue
		}
		for _, name := range names {
			modelID := fmt.Sprintf("%v/%v", p.ID(), name)
			if cfg.IsVisible(modelID) {
				out = append(out, modelID)
			}
		}
	}
	slices.Sort(out)
	return out
}
