// Package notebook drives a chat exchange end to end: decode the
// document into turns, stream the completion back into it and close the
// turn with a fresh user marker.
package notebook

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/youruser/chatdoc/internal/conf"
	"github.com/youruser/chatdoc/internal/models"
	"github.com/youruser/chatdoc/internal/tokens"
	"github.com/youruser/chatdoc/internal/turns"
	"github.com/youruser/chatdoc/internal/utils"
	"github.com/youruser/chatdoc/internal/vendors"
)

type ResolveFunc func(modelString string, temperature float64, cfg conf.Config) (models.Provider, string, error)

type Notebook struct {
	Cfg      conf.Config
	Extract  turns.ImageExtractor
	Resolve  ResolveFunc
	Registry *Registry
	Debug    bool
	// OnFragment observes each streamed fragment as it is appended to
	// the document. Optional, used by the CLI to mirror the stream.
	OnFragment func(fragment string)
}

func New(cfg conf.Config, extract turns.ImageExtractor) *Notebook {
	return &Notebook{
		Cfg:      cfg,
		Extract:  extract,
		Resolve:  vendors.Resolve,
		Registry: NewRegistry(),
	}
}

const summarizeInstruction = "Summarize this conversation in six words or less. Respond with only the summary."

var defaultNameRe = regexp.MustCompile(`^Chat - \d{4}-\d{2}-\d{2}( \d+)?$`)

// Submit runs one exchange against doc. Submitting while the document
// is already streaming cancels the running stream instead.
func (n *Notebook) Submit(ctx context.Context, doc Document) error {
	if n.Registry.Cancel(doc.ID()) {
		ancli.PrintOK(fmt.Sprintf("stopped stream for '%v'\n", doc.Name()))
		return nil
	}
	streamCtx, cancel := context.WithCancel(ctx)
	if !n.Registry.Begin(doc.ID(), cancel) {
		cancel()
		return nil
	}
	defer n.Registry.End(doc.ID())
	defer cancel()

	content, err := doc.Read()
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}
	chat := n.decode(content)
	meta := turns.Frontmatter(content)
	modelString := n.Cfg.DefaultModel
	if meta.Model != "" {
		modelString = meta.Model
	}
	temperature := n.Cfg.DefaultTemperature
	if meta.Temp != nil {
		temperature = *meta.Temp
	}
	provider, modelName, err := n.Resolve(modelString, temperature, n.Cfg)
	if err != nil {
		return fmt.Errorf("failed to resolve provider: %w", err)
	}
	if n.Debug {
		if estimate, err := tokens.Estimate(chat); err == nil {
			ancli.PrintOK(fmt.Sprintf("estimated prompt tokens: %v\n", estimate))
		}
	}
	assistantsBefore := chat.AmountOfRole(models.RoleAssistant)

	events, err := provider.StreamCompletions(streamCtx, chat)
	if err != nil {
		return fmt.Errorf("failed to start stream: %w", err)
	}
	qualifiedModel := fmt.Sprintf("%v/%v", provider.ID(), modelName)
	fragments := 0
	var reply strings.Builder
	var streamErr error
	for ev := range events {
		switch v := ev.(type) {
		case string:
			if fragments == 0 {
				if err := doc.Append(turns.EncodeMarker(models.RoleAssistant, qualifiedModel, &temperature)); err != nil {
					return fmt.Errorf("failed to append marker: %w", err)
				}
			}
			if err := doc.Append(v); err != nil {
				return fmt.Errorf("failed to append fragment: %w", err)
			}
			if n.OnFragment != nil {
				n.OnFragment(v)
			}
			reply.WriteString(v)
			fragments++
		case error:
			streamErr = v
		case models.NoopEvent, models.StopEvent:
		}
	}
	if streamCtx.Err() != nil {
		// cancelled, partial text stays put and the turn stays open
		return nil
	}
	if streamErr != nil {
		return fmt.Errorf("stream failed: %w", streamErr)
	}
	if fragments == 0 {
		return nil
	}
	if err := doc.Append(turns.EncodeMarker(models.RoleUser, "", nil)); err != nil {
		return fmt.Errorf("failed to append marker: %w", err)
	}
	n.maybeRename(streamCtx, doc, provider, chat, assistantsBefore, reply.String())
	return nil
}

func (n *Notebook) decode(content string) models.Chat {
	chat := models.Chat{Turns: turns.Decode(content, n.Extract)}
	if n.Cfg.SystemPrompt == "" {
		return chat
	}
	if _, err := chat.FirstSystemMessage(); err == nil {
		return chat
	}
	chat.Turns = append([]models.Turn{
		{Role: models.RoleSystem, Content: n.Cfg.SystemPrompt},
	}, chat.Turns...)
	return chat
}

// maybeRename titles the document off a silent summary request. It only
// fires on the second completed assistant turn of a document which
// still carries its auto-generated name.
func (n *Notebook) maybeRename(ctx context.Context, doc Document, provider models.Provider, chat models.Chat, assistantsBefore int, reply string) {
	if assistantsBefore != 1 || !defaultNameRe.MatchString(doc.Name()) {
		return
	}
	sumChat := models.Chat{Turns: append(append([]models.Turn{}, chat.Turns...),
		models.Turn{Role: models.RoleAssistant, Content: reply},
		models.Turn{Role: models.RoleUser, Content: summarizeInstruction},
	)}
	events, err := provider.StreamCompletions(ctx, sumChat)
	if err != nil {
		ancli.PrintWarn(fmt.Sprintf("failed to summarize for rename: %v\n", err))
		return
	}
	var summary strings.Builder
	for ev := range events {
		if s, ok := ev.(string); ok {
			summary.WriteString(s)
		}
	}
	title := utils.SanitizeTitle(summary.String())
	if title == "" {
		return
	}
	if err := doc.Rename(title); err != nil {
		ancli.PrintWarn(fmt.Sprintf("failed to rename document: %v\n", err))
	}
}
