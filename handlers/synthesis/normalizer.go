package synthesis

import (
	"regexp"
	"strings"
)

// normalizeForSpeech prepares display text for the synthesis device. Markdown
// markers and emoji read terribly when spoken, so they are stripped; the
// displayed text is left untouched by the caller.
func normalizeForSpeech(text string) string {
	text = markdownReplacer.Replace(text)
	text = emojiRegex.ReplaceAllString(text, "")
	text = multipleSpacesRegex.ReplaceAllString(text, " ")
	return trimWhitespaceRegex.ReplaceAllString(text, "")
}

// The double markers must come before their single-character forms.
var markdownReplacer = strings.NewReplacer("**", "", "*", "", "__", "", "~~", "", "`", "")

var (
	// emojiRegex covers the pictograph, symbol, dingbat, regional-indicator
	// and variation-selector blocks. Letters in any script pass through.
	emojiRegex = regexp.MustCompile(`[` +
		`\x{1F300}-\x{1F5FF}` +
		`\x{1F600}-\x{1F64F}` +
		`\x{1F680}-\x{1F6FF}` +
		`\x{1F700}-\x{1F77F}` +
		`\x{1F780}-\x{1F7FF}` +
		`\x{1F800}-\x{1F8FF}` +
		`\x{1F900}-\x{1F9FF}` +
		`\x{1FA70}-\x{1FAFF}` +
		`\x{1F1E6}-\x{1F1FF}` +
		`\x{2600}-\x{26FF}` +
		`\x{2700}-\x{27BF}` +
		`\x{FE00}-\x{FE0F}` +
		`]`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
	trimWhitespaceRegex = regexp.MustCompile(`^\s+|\s+$`)
)
