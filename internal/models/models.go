package models

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var (
	// ErrConfiguration marks a missing credential or endpoint. It is
	// always detected before any network call is made.
	ErrConfiguration = errors.New("missing provider configuration")
	// ErrUnknownProvider is returned when a model string carries a
	// provider prefix which no adapter claims.
	ErrUnknownProvider = errors.New("unknown provider")
)

// Image is one inline attachment of a Turn, base64 encoded. Images are
// derived data, recomputed from the document on every parse.
type Image struct {
	Data     string `json:"data"`
	MimeType string `json:"mimeType"`
}

// Turn is one message in the conversation. Turns are transient parse
// results, they are never stored between submissions.
type Turn struct {
	Role        string   `json:"role"`
	Content     string   `json:"content"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temp,omitempty"`
	Images      []Image  `json:"images,omitempty"`
}

type Chat struct {
	Turns []Turn `json:"turns"`
}

// FirstSystemMessage returns the first encountered Turn with role 'system'
func (c *Chat) FirstSystemMessage() (Turn, error) {
	for _, t := range c.Turns {
		if t.Role == RoleSystem {
			return t, nil
		}
	}
	return Turn{}, errors.New("failed to find any system message")
}

// AmountOfRole counts the turns carrying the given role.
func (c *Chat) AmountOfRole(role string) int {
	amount := 0
	for _, t := range c.Turns {
		if t.Role == role {
			amount++
		}
	}
	return amount
}

// CompletionEvent is pushed by adapters during streaming. It is either a
// string fragment, an error, a NoopEvent or a StopEvent.
type CompletionEvent any

// NoopEvent is a frame which carried no payload, such as an SSE keepalive.
type NoopEvent struct{}

// StopEvent signals that the vendor finished the completion normally.
type StopEvent struct{}

// Provider is one vendor adapter. StreamCompletions is a single-consumer
// lazy sequence: the returned channel yields events until the stream ends
// or ctx is cancelled, at which point the producer closes it. Model and
// temperature are carried by the adapter itself, set during resolution.
type Provider interface {
	ID() string
	ListModels(ctx context.Context) ([]string, error)
	StreamCompletions(ctx context.Context, chat Chat) (chan CompletionEvent, error)
}
