package runtime

import (
	"regexp"
	"strings"
)

// separators splits on runs of whitespace, or on one of , ; ? ! . - together
// with the whitespace that follows it. Whitespace is anything unicode.IsSpace
// accepts: ASCII spacing including \v, NEL and the Z categories.
var separators = regexp.MustCompile(`[\s\v\x{85}\p{Z}]+|[,;?!.\-][\s\v\x{85}\p{Z}]*`)

// Tokenize normalizes one user utterance into lowercase word tokens.
// Empty fragments between adjacent separators are dropped.
func Tokenize(raw string) []string {
	parts := separators.Split(strings.ToLower(raw), -1)
	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tokens = append(tokens, p)
		}
	}
	return tokens
}
