// Package anthropic adapts the Anthropic messages API. The system
// prompt travels as a separate top-level field and payload only arrives
// in content_block_delta events, every other event type is ignored.
package anthropic

import (
	"bufio"
	"bytes"
	"context"
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
)

const (
	MessagesURL      = "https://api.anthropic.com/v1/messages"
	anthropicVersion = "2023-06-01"
	maxTokens        = 4096
)

var modelList = []string{
	"claude-opus-4-6",
	"claude-sonnet-4-5",
	"claude-haiku-4-5",
}

type Claude struct {
	Model       string
	Temperature float64
	URL         string
	apiKey      string
	client      *http.Client
	debug       bool
}

func New(cfg conf.Config, model string, temperature float64) *Claude {
	return &Claude{
		Model:       model,
		Temperature: temperature,
		URL:         MessagesURL,
		apiKey:      cfg.AnthropicKey(),
		client:      &http.Client{},
		debug:       misc.Truthy(os.Getenv("DEBUG")),
	}
}

func (c *Claude) ID() string {
	return "anthropic"
}

func (c *Claude) ListModels(ctx context.Context) ([]string, error) {
	return modelList, nil
}

type messagesRequest struct {
	Model       string       `json:"model"`
	System      string       `json:"system,omitempty"`
	Messages    []apiMessage `json:"messages"`
	Stream      bool         `json:"stream"`
	MaxTokens   int          `json:"max_tokens"`
	Temperature float64      `json:"temperature"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

func (c *Claude) StreamCompletions(ctx context.Context, chat models.Chat) (chan models.CompletionEvent, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("anthropic api key not set: %w", models.ErrConfiguration)
	}
	req, err := c.createRequest(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %v, body: %v", resp.Status, string(body))
	}
	return c.handleStreamResponse(ctx, resp), nil
}

func (c *Claude) createRequest(ctx context.Context, chat models.Chat) (*http.Request, error) {
	// the system role only exists as a separate request field
	sysMsg, _ := chat.FirstSystemMessage()
	reqData := messagesRequest{
		Model:       c.Model,
		System:      sysMsg.Content,
		Messages:    claudifyTurns(chat.Turns),
		Stream:      true,
		MaxTokens:   maxTokens,
		Temperature: c.Temperature,
	}
	if c.debug {
		ancli.PrintOK(fmt.Sprintf("messages request: %v\n", debug.IndentedJsonFmt(reqData)))
	}
	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	return req, nil
}

func claudifyTurns(turns []models.Turn) []apiMessage {
	out := make([]apiMessage, 0, len(turns))
	for _, t := range turns {
		if t.Role == models.RoleSystem {
			continue
		}
		if len(t.Images) == 0 {
			out = append(out, apiMessage{Role: t.Role, Content: t.Content})
			continue
		}
		parts := []contentPart{{Type: "text", Text: t.Content}}
		for _, img := range t.Images {
			parts = append(parts, contentPart{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: img.MimeType,
					Data:      img.Data,
				},
			})
		}
		out = append(out, apiMessage{Role: t.Role, Content: parts})
	}
	return out
}

func (c *Claude) handleStreamResponse(ctx context.Context, resp *http.Response) chan models.CompletionEvent {
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
				if ctx.Err() == nil && err != io.EOF {
					outChan <- fmt.Errorf("failed to read line: %w", err)
				}
				return
			}
			line = strings.TrimSpace(line)
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var ev streamEvent
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev); err != nil {
				ancli.PrintWarn(fmt.Sprintf("failed to unmarshal event: '%v', error: %v\n", line, err))
				continue
			}
			switch ev.Type {
			case "content_block_delta":
				if ev.Delta.Text == "" {
					continue
				}
				select {
				case outChan <- ev.Delta.Text:
				case <-ctx.Done():
					return
				}
			case "message_stop":
				select {
				case outChan <- models.StopEvent{}:
				case <-ctx.Done():
				}
				return
			}
		}
	}()
	return outChan
}
