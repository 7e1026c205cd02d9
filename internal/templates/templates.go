// Package templates renders the type-specific generation prompts for memos.
// Every template enforces the same output contract: third-person voice, a
// fixed publish year, a word-count target, a banned-phrase list, no title
// heading, a "Last verified" byline, typed section headers and a trailing
// Sources list.
package templates

import (
	"fmt"
	"strings"
	"time"

	"github.com/citegap/citegap/internal/core"
)

// BannedPhrases are marketing clichés the templates instruct the model to
// avoid. The validation layer does not enforce these; they shape tone only.
var BannedPhrases = []string{
	"game-changer",
	"revolutionary",
	"cutting-edge",
	"best-in-class",
	"seamless",
	"unlock",
	"supercharge",
	"in today's fast-paced world",
	"look no further",
}

// WordTarget returns the word-count target for a memo type. Targets range
// 600-1200 depending on how much ground the type has to cover.
func WordTarget(t core.MemoType) int {
	switch t {
	case core.MemoComparison:
		return 1200
	case core.MemoAlternative:
		return 1000
	case core.MemoIndustry:
		return 900
	case core.MemoHowTo:
		return 1000
	case core.MemoResponse:
		return 600
	default:
		return 800
	}
}

// PromptData carries everything a memo template substitutes.
type PromptData struct {
	Brand       *core.Brand
	Competitor  *core.Competitor // nil unless comparison/alternative
	Others      []core.Competitor
	Topic       string // resolved industry or how-to topic
	QueryText   string
	Title       string
	Quotes      []core.VoiceQuote
	Today       time.Time
}

// Render builds the full generation prompt for a memo type.
func Render(memoType core.MemoType, data PromptData) string {
	var b strings.Builder

	b.WriteString(typeBrief(memoType, data))
	b.WriteString("\n\n")
	b.WriteString(brandBlock(data))
	if data.Competitor != nil {
		b.WriteString(competitorBlock(data.Competitor))
	}
	if quotes := quoteBlock(data.Quotes); quotes != "" {
		b.WriteString(quotes)
	}
	b.WriteString(contract(memoType, data))

	return b.String()
}

func typeBrief(memoType core.MemoType, data PromptData) string {
	brand := data.Brand.Name
	switch memoType {
	case core.MemoComparison:
		return fmt.Sprintf(
			"Write a factual comparison article between %s and %s for buyers evaluating both. Cover positioning, core capabilities, pricing approach, and which kinds of teams each fits best. Be fair to both; favor specifics over adjectives.",
			brand, data.Competitor.Name)
	case core.MemoAlternative:
		return fmt.Sprintf(
			"Write an article for buyers looking for alternatives to %s, presenting %s as a candidate. Explain honestly when %s is the better fit and when it is not.",
			data.Competitor.Name, brand, brand)
	case core.MemoIndustry:
		return fmt.Sprintf(
			"Write an article about how companies in the %s industry use products like %s. Anchor every claim in concrete workflows of that industry.",
			data.Topic, brand)
	case core.MemoHowTo:
		return fmt.Sprintf(
			"Write a practical step-by-step guide on how to %s, referencing %s where it genuinely helps a step.",
			data.Topic, brand)
	case core.MemoResponse:
		return fmt.Sprintf(
			"Write a direct, citable answer to the question %q, mentioning %s where relevant.",
			data.QueryText, brand)
	default:
		return fmt.Sprintf(
			"Write a reference article that answers %q with %s as a worked example.",
			data.QueryText, brand)
	}
}

func brandBlock(data PromptData) string {
	var b strings.Builder
	ctx := data.Brand.Context

	b.WriteString(fmt.Sprintf("About %s (%s):\n", data.Brand.Name, data.Brand.Domain))
	if ctx.Description != "" {
		b.WriteString(ctx.Description + "\n")
	}
	if len(ctx.Products) > 0 {
		b.WriteString("Products: " + strings.Join(ctx.Products, ", ") + "\n")
	}
	if len(ctx.Markets) > 0 {
		b.WriteString("Markets: " + strings.Join(ctx.Markets, ", ") + "\n")
	}
	if len(data.Others) > 0 {
		names := make([]string, 0, len(data.Others))
		for _, c := range data.Others {
			names = append(names, c.Name)
		}
		b.WriteString("Other competitors in the space: " + strings.Join(names, ", ") + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func competitorBlock(c *core.Competitor) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("About %s", c.Name))
	if c.Domain != "" {
		b.WriteString(" (" + c.Domain + ")")
	}
	b.WriteString(":\n")
	if len(c.Context.Products) > 0 {
		b.WriteString("Products: " + strings.Join(c.Context.Products, ", ") + "\n")
	}
	if len(c.Context.Differentiators) > 0 {
		b.WriteString("Known differentiators: " + strings.Join(c.Context.Differentiators, ", ") + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

func quoteBlock(quotes []core.VoiceQuote) string {
	if len(quotes) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Verified quotes you may weave in (attribute exactly as given, never invent new ones):\n")
	for _, q := range quotes {
		attribution := q.Author
		if q.Role != "" {
			attribution += ", " + q.Role
		}
		b.WriteString(fmt.Sprintf("- %q — %s\n", q.Text, attribution))
	}
	b.WriteString("\n")
	return b.String()
}

func contract(memoType core.MemoType, data PromptData) string {
	var b strings.Builder
	tone := data.Brand.Context.Tone
	if tone == "" {
		tone = "plain, concrete, and helpful"
	}

	b.WriteString("OUTPUT REQUIREMENTS:\n")
	b.WriteString(fmt.Sprintf("- Around %d words\n", WordTarget(memoType)))
	b.WriteString("- Third person throughout; never \"we\" or \"our\"\n")
	b.WriteString(fmt.Sprintf("- Tone: %s\n", tone))
	b.WriteString(fmt.Sprintf("- Treat %d as the current year; date nothing beyond it\n", data.Today.Year()))
	b.WriteString(fmt.Sprintf("- Never use these phrases: %s\n", strings.Join(BannedPhrases, "; ")))
	b.WriteString("- Do NOT write a top-level title heading; the title is attached separately\n")
	if data.Title != "" {
		b.WriteString(fmt.Sprintf("- The attached title is %q; write the body to deliver on it\n", data.Title))
	}
	b.WriteString(fmt.Sprintf("- First line: *Last verified: %s*\n", data.Today.Format("January 2, 2006")))
	b.WriteString("- Use ## section headers appropriate to the article type\n")
	b.WriteString("- End with a \"## Sources\" section listing the references used\n")
	b.WriteString("- Markdown only, no preamble or commentary before or after the article\n")
	return b.String()
}
