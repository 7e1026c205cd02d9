// Package redundancy gates memo generation: before spending a completion call
// it scores topical overlap between the proposed memo and the brand's
// already-indexed site pages. This is a heuristic keyword scorer, not a
// semantic search; the weights are empirically tuned constants exposed as
// configuration and pinned by table-driven tests.
package redundancy

import (
	"regexp"
	"strings"

	"github.com/citegap/citegap/internal/config"
	"github.com/citegap/citegap/internal/core"
)

// Request describes the memo a caller intends to generate.
type Request struct {
	MemoType         core.MemoType
	Competitor       string   // comparison/alternative memos
	IndustryKeywords []string // industry memos
	TopicKeywords    []string // how_to memos
	Topics           []string // all candidate topic strings for the memo
}

// Overlap is the gate decision. MatchingPage is the best-scoring page and is
// only meaningful when Score > 0.
type Overlap struct {
	HasOverlap   bool
	MatchingPage *core.SitePage
	Score        int
}

// Checker scores proposed memos against a brand's existing pages.
type Checker struct {
	weights config.Redundancy
}

// NewChecker creates a checker with the given weight configuration.
func NewChecker(weights config.Redundancy) *Checker {
	return &Checker{weights: weights}
}

// DefaultWeights returns the tuned production weights.
func DefaultWeights() config.Redundancy {
	return config.Redundancy{
		Threshold:            50,
		TopicCompetitorMatch: 50,
		TitleCompetitorMatch: 30,
		SlugCompetitorMatch:  20,
		ComparisonKeyword:    10,
		IndustryTopicMatch:   30,
		IndustryTitleMatch:   20,
		IndustryURLMatch:     15,
		IndustryPageBonus:    20,
		HowToTopicMatch:      25,
		HowToTitleMatch:      15,
		HowToGuideKeyword:    10,
		ExactTopicMatch:      20,
		PartialTopicMatch:    10,
	}
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// normalize lowercases and strips everything that is not a letter or digit,
// so "What's the Best CRM?" and "whats the best crm" compare equal.
func normalize(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

func hyphenate(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), "-")
}

// Check scores the request against every existing page and returns the best
// match. A total at or above the configured threshold flags redundancy and
// the caller must skip generation.
func (c *Checker) Check(req Request, pages []core.SitePage) Overlap {
	best := Overlap{}
	for i := range pages {
		score := c.scorePage(req, &pages[i])
		if score > best.Score {
			best.Score = score
			best.MatchingPage = &pages[i]
		}
	}
	best.HasOverlap = best.Score >= c.weights.Threshold
	return best
}

func (c *Checker) scorePage(req Request, page *core.SitePage) int {
	score := 0
	titleNorm := normalize(page.Title)
	titleLower := strings.ToLower(page.Title)
	urlLower := strings.ToLower(page.URL)

	switch req.MemoType {
	case core.MemoComparison, core.MemoAlternative:
		if req.Competitor != "" {
			compNorm := normalize(req.Competitor)
			for _, topic := range page.Topics {
				topicNorm := normalize(topic)
				if topicNorm != "" && (strings.Contains(topicNorm, compNorm) || strings.Contains(compNorm, topicNorm)) {
					score += c.weights.TopicCompetitorMatch
					break
				}
			}
			if compNorm != "" && strings.Contains(titleNorm, compNorm) {
				score += c.weights.TitleCompetitorMatch
			}
			if hyph := hyphenate(req.Competitor); hyph != "" && strings.Contains(urlLower, hyph) {
				score += c.weights.SlugCompetitorMatch
			}
			for _, kw := range []string{"vs", "alternative", "compare"} {
				if strings.Contains(urlLower, kw) || strings.Contains(titleLower, kw) {
					score += c.weights.ComparisonKeyword
				}
			}
		}

	case core.MemoIndustry:
		for _, kw := range req.IndustryKeywords {
			kwNorm := normalize(kw)
			if kwNorm == "" {
				continue
			}
			if containsNormalized(page.Topics, kwNorm) {
				score += c.weights.IndustryTopicMatch
			}
			if strings.Contains(titleNorm, kwNorm) {
				score += c.weights.IndustryTitleMatch
			}
			if strings.Contains(normalize(page.URL), kwNorm) {
				score += c.weights.IndustryURLMatch
			}
		}
		if page.ContentType == "industry" {
			score += c.weights.IndustryPageBonus
		}

	case core.MemoHowTo:
		for _, kw := range req.TopicKeywords {
			kwNorm := normalize(kw)
			if kwNorm == "" {
				continue
			}
			if containsNormalized(page.Topics, kwNorm) {
				score += c.weights.HowToTopicMatch
			}
			if strings.Contains(titleNorm, kwNorm) {
				score += c.weights.HowToTitleMatch
			}
		}
		for _, kw := range []string{"how", "guide", "tutorial"} {
			if strings.Contains(titleLower, kw) {
				score += c.weights.HowToGuideKeyword
				break
			}
		}
	}

	// Universal topic matching for every memo type. The page title counts as
	// a topic of the page here.
	pageTopics := append([]string{page.Title}, page.Topics...)
	exact, partial := false, false
	for _, memoTopic := range req.Topics {
		mt := normalize(memoTopic)
		if mt == "" {
			continue
		}
		for _, pageTopic := range pageTopics {
			pt := normalize(pageTopic)
			if pt == "" {
				continue
			}
			if mt == pt {
				exact = true
			} else if strings.Contains(mt, pt) || strings.Contains(pt, mt) {
				partial = true
			}
		}
	}
	if exact {
		score += c.weights.ExactTopicMatch
	} else if partial {
		score += c.weights.PartialTopicMatch
	}

	return score
}

func containsNormalized(topics []string, kwNorm string) bool {
	for _, t := range topics {
		if strings.Contains(normalize(t), kwNorm) {
			return true
		}
	}
	return false
}
