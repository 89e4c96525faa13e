package llm

import (
	"regexp"
	"strings"
)

var channelTags = regexp.MustCompile(`<#[^>]*>`)

// FilterResponse removes artifacts some models leak into their text before
// it is shown to users.
func FilterResponse(text, model string) string {
	if strings.HasPrefix(model, "gemma3") {
		text = strings.ReplaceAll(text, "<start_of_image>", "")
	}
	text = channelTags.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
