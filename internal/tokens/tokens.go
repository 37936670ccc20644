// Package tokens estimates prompt size. The cl100k encoding is close
// enough for every vendor we talk to, exact counts are not needed since
// this only feeds debug output.
package tokens

import (
	"fmt"

	"github.com/tiktoken-go/tokenizer"
	"github.com/youruser/chatdoc/internal/models"
)

// Estimate counts the tokens of every turn's content concatenated.
// Image payloads are excluded, their token cost is vendor-specific.
func Estimate(chat models.Chat) (int, error) {
	enc, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return 0, fmt.Errorf("failed to get tokenizer: %w", err)
	}
	total := 0
	for _, t := range chat.Turns {
		ids, _, err := enc.Encode(t.Content)
		if err != nil {
			return 0, fmt.Errorf("failed to encode turn: %w", err)
		}
		total += len(ids)
	}
	return total, nil
}
