package generator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrLowQuality marks completion output rejected before persistence.
var ErrLowQuality = errors.New("generated content failed validation")

// ValidateFunc judges completion output. Returning an error aborts the
// generation before anything is written.
type ValidateFunc func(content string) error

const minContentLength = 200

// refusalPhrases are scanned case-insensitively over the first 200 characters.
// A refusal always opens the response, so scanning the head avoids false
// positives on articles that legitimately quote these phrases later.
var refusalPhrases = []string{
	"i'm sorry",
	"i am sorry",
	"i apologize",
	"i cannot",
	"i can't",
	"i'm unable",
	"as an ai",
	"without more context",
	"please provide",
}

// DefaultValidate rejects output that is too short to be an article or that
// opens with a completion-service refusal.
func DefaultValidate(content string) error {
	trimmed := strings.TrimSpace(content)
	if len(trimmed) < minContentLength {
		return fmt.Errorf("%w: %d characters", ErrLowQuality, len(trimmed))
	}
	head := strings.ToLower(trimmed)
	if len(head) > 200 {
		head = head[:200]
	}
	for _, phrase := range refusalPhrases {
		if strings.Contains(head, phrase) {
			return fmt.Errorf("%w: refusal phrase %q", ErrLowQuality, phrase)
		}
	}
	return nil
}
