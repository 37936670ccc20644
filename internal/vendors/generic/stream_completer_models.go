package generic

import (
	"fmt"

	"github.com/youruser/chatdoc/internal/models"
)

type completionRequest struct {
	Model       string       `json:"model"`
	Messages    []apiMessage `json:"messages"`
	Stream      bool         `json:"stream"`
	Temperature float64      `json:"temperature"`
}

// apiMessage carries either a plain string or, when images are
// attached, an array of content parts. The any-typed Content mirrors
// the vendor's polymorphic field.
type apiMessage struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type completionChunk struct {
	Choices []choice `json:"choices"`
}

type choice struct {
	Delta        delta  `json:"delta"`
	FinishReason string `json:"finish_reason"`
}

type delta struct {
	Content string `json:"content"`
}

// apiMessages translates turns into the wire shape. Images become
// data-URI content parts, text-only turns stay plain strings.
func apiMessages(chat models.Chat) []apiMessage {
	out := make([]apiMessage, 0, len(chat.Turns))
	for _, t := range chat.Turns {
		if len(t.Images) == 0 {
			out = append(out, apiMessage{Role: t.Role, Content: t.Content})
			continue
		}
		parts := []contentPart{{Type: "text", Text: t.Content}}
		for _, img := range t.Images {
			parts = append(parts, contentPart{
				Type: "image_url",
				ImageURL: &imageURL{
					URL: fmt.Sprintf("data:%v;base64,%v", img.MimeType, img.Data),
				},
			})
		}
		out = append(out, apiMessage{Role: t.Role, Content: parts})
	}
	return out
}
