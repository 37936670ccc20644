// Package generic implements the OpenAI-compatible chat/completions
// streaming protocol, shared by the openai and azure adapters.
package generic

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
	"github.com/youruser/chatdoc/internal/models"
)

const dataPrefix = "data: "

// StreamCompleter issues a streaming chat/completions request and
// decodes the SSE frames back into plain text fragments. The auth
// header differs between vendors (OpenAI bearer token, Azure api-key),
// so both header name and value are injected.
type StreamCompleter struct {
	Model       string
	Temperature float64
	URL         string
	AuthHeader  string
	AuthValue   string
	client      *http.Client
	debug       bool
}

func (s *StreamCompleter) Setup() {
	s.client = &http.Client{}
	if misc.Truthy(os.Getenv("DEBUG")) {
		s.debug = true
	}
}

// StreamCompletions opens the lazy completion sequence. The returned
// channel yields string fragments, then a StopEvent, and is closed by
// the producer goroutine. Cancelling ctx aborts the in-flight request.
func (s *StreamCompleter) StreamCompletions(ctx context.Context, chat models.Chat) (chan models.CompletionEvent, error) {
	req, err := s.createRequest(ctx, chat)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %v, body: %v", resp.Status, string(body))
	}
	return s.handleStreamResponse(ctx, resp), nil
}

func (s *StreamCompleter) createRequest(ctx context.Context, chat models.Chat) (*http.Request, error) {
	reqData := completionRequest{
		Model:       s.Model,
		Messages:    apiMessages(chat),
		Stream:      true,
		Temperature: s.Temperature,
	}
	if s.debug {
		ancli.PrintOK(fmt.Sprintf("completion request: %v\n", debug.IndentedJsonFmt(reqData)))
	}
	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode JSON: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(s.AuthHeader, s.AuthValue)
	req.Header.Set("Accept", "text/event-stream")
	return req, nil
}

func (s *StreamCompleter) handleStreamResponse(ctx context.Context, resp *http.Response) chan models.CompletionEvent {
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
			ev := s.handleLine(line)
			if _, isNoop := ev.(models.NoopEvent); isNoop {
				continue
			}
			select {
			case outChan <- ev:
			case <-ctx.Done():
				return
			}
			if _, isStop := ev.(models.StopEvent); isStop {
				return
			}
		}
	}()
	return outChan
}

func (s *StreamCompleter) handleLine(line string) models.CompletionEvent {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, dataPrefix) {
		return models.NoopEvent{}
	}
	payload := strings.TrimPrefix(line, dataPrefix)
	if payload == "[DONE]" {
		return models.StopEvent{}
	}
	var chunk completionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		ancli.PrintWarn(fmt.Sprintf("failed to unmarshal chunk: '%v', error: %v\n", payload, err))
		return models.NoopEvent{}
	}
	if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
		return models.NoopEvent{}
	}
	return chunk.Choices[0].Delta.Content
}
