package app

import (
	"regexp"
	"strings"
)

// Strategy is the answer strategy chosen for a question.
type Strategy string

const (
	StrategyMetadataTitle     Strategy = "METADATA_TITLE"
	StrategyMetadataPageCount Strategy = "METADATA_PAGE_COUNT"
	StrategyOverview          Strategy = "OVERVIEW"
	StrategyFullRAG           Strategy = "FULL_RAG"
)

type routeRule struct {
	strategy Strategy
	patterns []*regexp.Regexp
}

// Rules are evaluated in order and the first match wins, so the narrow
// metadata rules shadow the broader overview patterns. Patterns run against
// normalized text: lower-cased, punctuation stripped.
var routeRules = []routeRule{
	{
		strategy: StrategyMetadataTitle,
		patterns: compile(
			`\btitle\b`,
			`\bname of (this|the) paper\b`,
			`\bwhat is (this|the) paper called\b`,
		),
	},
	{
		strategy: StrategyMetadataPageCount,
		patterns: compile(
			`\bhow many pages\b`,
			`\bpage count\b`,
			`\bnumber of pages\b`,
			`\bhow long is (this|the) paper\b`,
			`\blength of (this|the) paper\b`,
		),
	},
	{
		strategy: StrategyOverview,
		patterns: compile(
			`\bwhat is (this|the) paper about\b`,
			`\bwhats (this|the) paper about\b`,
			`\bwhat does (this|the) paper (do|propose)\b`,
			`\bwhat is proposed in (this|the) paper\b`,
			`\bsummar(y|ize|ise)\b`,
			`\boverview\b`,
			`\bmain idea\b`,
		),
	},
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9\s]+`)

// ClassifyQuestion maps a question to its answer strategy; FULL_RAG is the
// default when nothing matches.
func ClassifyQuestion(text string) Strategy {
	normalized := normalizeQuestion(text)
	for _, rule := range routeRules {
		for _, p := range rule.patterns {
			if p.MatchString(normalized) {
				return rule.strategy
			}
		}
	}
	return StrategyFullRAG
}

func normalizeQuestion(text string) string {
	lowered := strings.ToLower(text)
	stripped := nonAlnum.ReplaceAllString(lowered, "")
	return strings.Join(strings.Fields(stripped), " ")
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}
