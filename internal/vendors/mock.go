package vendors

import (
	"context"

	"github.com/youruser/chatdoc/internal/models"
)

// Mock is a scriptable provider for tests. Events are replayed in
// order, respecting context cancellation between sends.
type Mock struct {
	Name       string
	Models     []string
	Events     []models.CompletionEvent
	StreamErr  error
	GotChats   []models.Chat
	SendSignal chan struct{}
}

func (m *Mock) ID() string {
	if m.Name == "" {
		return "mock"
	}
	return m.Name
}

func (m *Mock) ListModels(ctx context.Context) ([]string, error) {
	return m.Models, nil
}

func (m *Mock) StreamCompletions(ctx context.Context, chat models.Chat) (chan models.CompletionEvent, error) {
	if m.StreamErr != nil {
		return nil, m.StreamErr
	}
	m.GotChats = append(m.GotChats, chat)
	outChan := make(chan models.CompletionEvent)
	go func() {
		defer close(outChan)
		for _, ev := range m.Events {
			if m.SendSignal != nil {
				select {
				case <-m.SendSignal:
				case <-ctx.Done():
					return
				}
			}
			select {
			case outChan <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return outChan, nil
}
