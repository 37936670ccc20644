package utils

import (
	"regexp"
	"strings"
)

var (
	illegalFilenameChars = regexp.MustCompile(`[/\\:*?"<>|]`)
	whitespaceRuns       = regexp.MustCompile(`\s+`)
)

const maxTitleLength = 60

// SanitizeTitle makes a model-produced summary safe to use as a file
// name: filesystem-illegal characters are stripped, newlines and other
// whitespace runs collapse to single spaces, and the result is capped
// in length.
func SanitizeTitle(title string) string {
	title = illegalFilenameChars.ReplaceAllString(title, "")
	title = whitespaceRuns.ReplaceAllString(title, " ")
	title = strings.TrimSpace(title)
	if len(title) > maxTitleLength {
		title = strings.TrimSpace(title[:maxTitleLength])
	}
	return title
}
