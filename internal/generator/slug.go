package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/citegap/citegap/internal/core"
)

var (
	slugStrip  = regexp.MustCompile(`[^a-z0-9\s-]+`)
	forPattern = regexp.MustCompile(`(?i)for\s+(.+)$`)
)

// sanitizeSlug lowercases, strips punctuation, collapses whitespace to single
// hyphens, and trims the result to 50 characters.
func sanitizeSlug(s string) string {
	s = slugStrip.ReplaceAllString(strings.ToLower(s), "")
	s = strings.Join(strings.Fields(s), "-")
	if len(s) > 50 {
		s = strings.Trim(s[:50], "-")
	}
	return s
}

// derivation is the deterministic identity of a memo: same inputs always
// produce the same slug, which is what makes regeneration an upsert.
type derivation struct {
	Slug  string
	Title string
	Topic string
}

func derive(memoType core.MemoType, brand *core.Brand, competitor *core.Competitor, queryText, topicHint string) derivation {
	switch memoType {
	case core.MemoComparison:
		return derivation{
			Slug:  "vs/" + sanitizeSlug(competitor.Name),
			Title: fmt.Sprintf("%s vs %s: An Honest Comparison", brand.Name, competitor.Name),
			Topic: competitor.Name,
		}
	case core.MemoAlternative:
		return derivation{
			Slug:  "alternatives-to/" + sanitizeSlug(competitor.Name),
			Title: fmt.Sprintf("%s as an Alternative to %s", brand.Name, competitor.Name),
			Topic: competitor.Name,
		}
	case core.MemoIndustry:
		industry := resolveIndustry(topicHint, queryText, brand)
		return derivation{
			Slug:  "for/" + sanitizeSlug(industry),
			Title: fmt.Sprintf("%s for %s", brand.Name, titleCase(industry)),
			Topic: industry,
		}
	case core.MemoHowTo:
		topic := imperativeTopic(firstNonEmpty(topicHint, queryText))
		return derivation{
			Slug:  "how/" + sanitizeSlug(topic),
			Title: "How to " + topic,
			Topic: topic,
		}
	default:
		text := firstNonEmpty(queryText, topicHint)
		return derivation{
			Slug:  sanitizeSlug(text),
			Title: titleCase(strings.TrimSuffix(strings.TrimSpace(text), "?")),
			Topic: text,
		}
	}
}

// resolveIndustry picks the industry for a "for/" memo: explicit hint, then a
// "for <industry>" tail in the source query, then the brand's first market,
// then the literal "business".
func resolveIndustry(topicHint, queryText string, brand *core.Brand) string {
	if topicHint != "" {
		return topicHint
	}
	if m := forPattern.FindStringSubmatch(queryText); m != nil {
		return strings.TrimSuffix(strings.TrimSpace(m[1]), "?")
	}
	if len(brand.Context.Markets) > 0 {
		return brand.Context.Markets[0]
	}
	return "business"
}

var interrogativePrefixes = []string{
	"how to ",
	"how can i ",
	"how do i ",
	"what are the best ways to ",
	"why should i ",
}

var actionVerbs = map[string]bool{
	"implement": true, "set": true, "setup": true, "choose": true,
	"build": true, "create": true, "improve": true, "reduce": true,
	"manage": true, "automate": true, "track": true, "monitor": true,
	"optimize": true, "integrate": true, "migrate": true, "secure": true,
	"scale": true, "use": true, "start": true, "deploy": true,
	"configure": true, "evaluate": true, "select": true, "measure": true,
	"adopt": true, "run": true, "plan": true,
}

// imperativeTopic turns a question into an imperative topic phrase: strip
// leading interrogatives and the trailing "?", and if the remainder still
// doesn't begin with an action verb, rewrite it with pattern substitutions so
// "IoT solutions for farms" becomes "implement IoT solutions for farms".
func imperativeTopic(source string) string {
	t := strings.TrimSuffix(strings.TrimSpace(source), "?")
	lower := strings.ToLower(t)
	for _, p := range interrogativePrefixes {
		if strings.HasPrefix(lower, p) {
			t = strings.TrimSpace(t[len(p):])
			break
		}
	}
	lower = strings.ToLower(t)

	first, _, _ := strings.Cut(lower, " ")
	if actionVerbs[first] {
		return t
	}
	const effective = "effective methods for "
	if strings.HasPrefix(lower, effective) {
		return "effectively " + t[len(effective):]
	}
	for _, kw := range []string{"monitoring", "tracking", "compliance", "reporting", "management"} {
		if strings.Contains(lower, kw) {
			return "set up " + t
		}
	}
	return "implement " + t
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
