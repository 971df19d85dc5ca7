package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/studylens/studylens/internal/domain"
)

func TestBuildPrompt_WithHits(t *testing.T) {
	hits := []domain.SearchHit{
		{SubjectName: "Equipment Manual", Content: "The warranty period is 24 months.", Similarity: 0.82, Source: domain.MatchVector},
		{SubjectName: "FAQ", Content: "Warranty claims need a receipt.", Similarity: 0.44, Source: domain.MatchKeyword},
	}

	prompt := BuildPrompt("how long is the warranty?", domain.QueryContext{}, hits)

	assert.Contains(t, prompt, "how long is the warranty?")
	assert.Contains(t, prompt, `Excerpt 1 from "Equipment Manual" (semantic match, similarity 0.82)`)
	assert.Contains(t, prompt, `Excerpt 2 from "FAQ" (keyword match, similarity 0.44)`)
	assert.Contains(t, prompt, "The warranty period is 24 months.")
	assert.NotContains(t, prompt, "No relevant study material")
}

func TestBuildPrompt_LearningContext(t *testing.T) {
	qctx := domain.QueryContext{
		LearningStage: "reviewing chapter 3",
		KeyPoints:     []string{"warranty terms", "maintenance schedule"},
	}

	prompt := BuildPrompt("question?", qctx, nil)

	assert.Contains(t, prompt, "reviewing chapter 3")
	assert.Contains(t, prompt, "- warranty terms")
	assert.Contains(t, prompt, "- maintenance schedule")
}

func TestBuildPrompt_NoHitsStatesItExplicitly(t *testing.T) {
	prompt := BuildPrompt("anything?", domain.QueryContext{}, nil)
	assert.Contains(t, prompt, "No relevant study material was found")
	assert.Contains(t, prompt, "Do not invent an answer.")
}

func TestBuildPrompt_FallsBackToSubjectID(t *testing.T) {
	hits := []domain.SearchHit{{SubjectID: "doc-9", Content: "Some content here.", Similarity: 0.5}}
	prompt := BuildPrompt("q?", domain.QueryContext{}, hits)
	assert.Contains(t, prompt, `"doc-9"`)
}
