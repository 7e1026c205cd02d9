// Package llm provides the text-completion surface used by every generation
// stage. The service is a black box: a prompt and a temperature in, text out.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CompletionService is the only outbound AI call surface the pipeline needs.
// Implementations may fail or return low-quality text; callers must validate.
type CompletionService interface {
	Complete(ctx context.Context, prompt string, temperature float32) (string, error)
}

// ExtractJSONArray parses the first JSON array found in a model response into
// v. It tolerates markdown code fences and surrounding prose; anything without
// a parsable [...] block is an error the caller is expected to swallow.
func ExtractJSONArray(raw string, v any) error {
	return extractJSON(raw, "[", "]", v)
}

// ExtractJSONObject is ExtractJSONArray for a single {...} object.
func ExtractJSONObject(raw string, v any) error {
	return extractJSON(raw, "{", "}", v)
}

func extractJSON(raw, open, closing string, v any) error {
	raw = strings.TrimSpace(raw)

	// Handle markdown code block wrapping.
	if strings.HasPrefix(raw, "```") {
		if idx := strings.Index(raw[3:], "\n"); idx >= 0 {
			raw = raw[3+idx+1:]
		}
		if strings.HasSuffix(raw, "```") {
			raw = raw[:len(raw)-3]
		}
		raw = strings.TrimSpace(raw)
	}

	start := strings.Index(raw, open)
	end := strings.LastIndex(raw, closing)
	if start < 0 || end <= start {
		return fmt.Errorf("no JSON %s%s block in response", open, closing)
	}

	if err := json.Unmarshal([]byte(raw[start:end+1]), v); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}
