// Package ollama is the local-HTTP adapter. It talks to an Ollama
// server's /api/chat endpoint, which frames its stream as
// newline-delimited JSON objects rather than SSE.
package ollama

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

type Ollama struct {
	Model       string
	Temperature float64
	URL         string
	client      *http.Client
	debug       bool
}

func New(cfg conf.Config, model string, temperature float64) *Ollama {
	return &Ollama{
		Model:       model,
		Temperature: temperature,
		URL:         strings.TrimSuffix(cfg.OllamaURL, "/"),
		client:      &http.Client{},
		debug:       misc.Truthy(os.Getenv("DEBUG")),
	}
}

func (o *Ollama) ID() string {
	return "ollama"
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type options struct {
	Temperature float64 `json:"temperature"`
}

type chatChunk struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

func (o *Ollama) StreamCompletions(ctx context.Context, chat models.Chat) (chan models.CompletionEvent, error) {
	if o.URL == "" {
		return nil, fmt.Errorf("ollama url not set: %w", models.ErrConfiguration)
	}
	reqData := chatRequest{
		Model:    o.Model,
		Messages: ollamaMessages(chat),
		Stream:   true,
		Options:  options{Temperature: o.Temperature},
	}
	if o.debug {
		ancli.PrintOK(fmt.Sprintf("chat request: %v\n", debug.IndentedJsonFmt(reqData)))
	}
	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL+"/api/chat", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %v, body: %v", resp.Status, string(body))
	}
	return o.handleStreamResponse(ctx, resp), nil
}

// ollamaMessages flattens turns into ollama's shape, raw base64 image
// strings inline per message.
func ollamaMessages(chat models.Chat) []chatMessage {
	out := make([]chatMessage, 0, len(chat.Turns))
	for _, t := range chat.Turns {
		msg := chatMessage{Role: t.Role, Content: t.Content}
		for _, img := range t.Images {
			msg.Images = append(msg.Images, img.Data)
		}
		out = append(out, msg)
	}
	return out
}

func (o *Ollama) handleStreamResponse(ctx context.Context, resp *http.Response) chan models.CompletionEvent {
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
			if line == "" {
				continue
			}
			var chunk chatChunk
			if err := json.Unmarshal([]byte(line), &chunk); err != nil {
				ancli.PrintWarn(fmt.Sprintf("failed to unmarshal chunk: '%v', error: %v\n", line, err))
				continue
			}
			if chunk.Message.Content != "" {
				select {
				case outChan <- chunk.Message.Content:
				case <-ctx.Done():
					return
				}
			}
			if chunk.Done {
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

// ListModels asks the local server for its live catalog. An unreachable
// server is an error for the caller to soften, not a crash.
func (o *Ollama) ListModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.URL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list ollama models: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %v", resp.Status)
	}
	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("failed to decode tags: %w", err)
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, nil
}
