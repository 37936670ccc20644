// Package gemini adapts the Gemini generateContent streaming API.
// Role naming differs from the other vendors: the assistant role is
// called "model" and images ride along as inline_data parts.
package gemini

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/baalimago/go_away_boilerplate/pkg/ancli"
	"github.com/baalimago/go_away_boilerplate/pkg/debug"
	"github.com/baalimago/go_away_boilerplate/pkg/misc"
	"github.com/youruser/chatdoc/internal/conf"
	"github.com/youruser/chatdoc/internal/models"
	"golang.org/x/net/context"
)

const BaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

var modelList = []string{
	"gemini-3-pro-preview",
	"gemini-3-flash-preview",
}

type Gemini struct {
	Model       string
	Temperature float64
	URL         string
	apiKey      string
	client      *http.Client
	debug       bool
}

func New(cfg conf.Config, model string, temperature float64) *Gemini {
	return &Gemini{
		Model:       model,
		Temperature: temperature,
		URL:         BaseURL,
		apiKey:      cfg.GeminiKey(),
		client:      &http.Client{},
		debug:       misc.Truthy(os.Getenv("DEBUG")),
	}
}

func (g *Gemini) ID() string {
	return "gemini"
}

func (g *Gemini) ListModels(ctx context.Context) ([]string, error) {
	return modelList, nil
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) StreamCompletions(ctx context.Context, chat models.Chat) (chan models.CompletionEvent, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("gemini api key not set: %w", models.ErrConfiguration)
	}
	req, err := g.createRequest(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %v, body: %v", resp.Status, string(body))
	}
	return g.handleStreamResponse(ctx, resp), nil
}

func (g *Gemini) createRequest(ctx context.Context, chat models.Chat) (*http.Request, error) {
	reqData := generateRequest{
		Contents:         geminifyTurns(chat.Turns),
		GenerationConfig: generationConfig{Temperature: g.Temperature},
	}
	if g.debug {
		ancli.PrintOK(fmt.Sprintf("generate request: %v\n", debug.IndentedJsonFmt(reqData)))
	}
	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	url := fmt.Sprintf("%v/%v:streamGenerateContent?alt=sse&key=%v", g.URL, g.Model, g.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func geminifyTurns(turns []models.Turn) []content {
	out := make([]content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		parts := []part{{Text: t.Content}}
		for _, img := range t.Images {
			parts = append(parts, part{
				InlineData: &inlineData{MimeType: img.MimeType, Data: img.Data},
			})
		}
		out = append(out, content{Role: role, Parts: parts})
	}
	return out
}

func (g *Gemini) handleStreamResponse(ctx context.Context, resp *http.Response) chan models.CompletionEvent {
	outChan := make(chan models.CompletionEvent)
	go func() {
		br := bufio.NewReader(resp.Body)
		defer func() {
			resp.Body.Close()
			close(outChan)
		}()
		for {
			if ctx.Err() != nil {
				return
			}
			line, err := br.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					select {
					case outChan <- models.StopEvent{}:
					case <-ctx.Done():
					}
				} else if ctx.Err() == nil {
					outChan <- fmt.Errorf("failed to read line: %w", err)
				}
				return
			}
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var chunk generateResponse
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &chunk); err != nil {
				ancli.PrintWarn(fmt.Sprintf("failed to unmarshal chunk: '%v', error: %v\n", line, err))
				continue
			}
			if len(chunk.Candidates) == 0 || len(chunk.Candidates[0].Content.Parts) == 0 {
				continue
			}
			text := chunk.Candidates[0].Content.Parts[0].Text
			if text == "" {
				continue
			}
			select {
			case outChan <- text:
			case <-ctx.Done():
				return
			}
		}
	}()
	return outChan
}
