package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyQuestion(t *testing.T) {
	cases := []struct {
		name     string
		question string
		want     Strategy
	}{
		{"title direct", "What is the title of this paper?", StrategyMetadataTitle},
		{"title paper called", "what is the paper called", StrategyMetadataTitle},
		{"title name of paper", "Name of the paper?", StrategyMetadataTitle},
		{"page count how many", "How many pages does it have?", StrategyMetadataPageCount},
		{"page count phrase", "page count?", StrategyMetadataPageCount},
		{"page count how long", "how long is the paper", StrategyMetadataPageCount},
		{"overview about", "What is this paper about?", StrategyOverview},
		{"overview contraction", "What's the paper about?", StrategyOverview},
		{"overview summarize", "Summarize the methodology", StrategyOverview},
		{"overview main idea", "what is the main idea here", StrategyOverview},
		{"full rag specific", "What accuracy does the model reach on ImageNet?", StrategyFullRAG},
		{"full rag definitional", "How does the attention mechanism work?", StrategyFullRAG},
		{"empty question", "", StrategyFullRAG},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClassifyQuestion(tc.question))
		})
	}
}

// When a question matches more than one rule the earlier rule wins, so the
// narrow metadata rules always beat the broad overview patterns.
func TestClassifyQuestion_FirstMatchWins(t *testing.T) {
	got := ClassifyQuestion("What is the title and how long is this paper?")
	assert.Equal(t, StrategyMetadataTitle, got)
}

func TestNormalizeQuestion(t *testing.T) {
	assert.Equal(t, "whats the papers title", normalizeQuestion("  What's THE paper's  title?! "))
}
