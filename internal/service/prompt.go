package service

import (
	"fmt"
	"strings"

	"github.com/studylens/studylens/internal/domain"
)

const systemPreamble = `You are StudyLens AI, a patient study assistant. Answer the student's question using only the study material provided below.
Be precise and cite the source material you used. If the material does not cover the question, say so honestly instead of guessing.`

const noContentNotice = `No relevant study material was found for this question. Tell the student honestly that their indexed documents do not cover it, and suggest what material they could add. Do not invent an answer.`

// BuildPrompt assembles the augmented prompt: the question, the learning
// context if any, and each retrieved chunk labeled with its source and
// similarity. With zero hits the prompt states that explicitly.
func BuildPrompt(question string, qctx domain.QueryContext, hits []domain.SearchHit) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n")

	if section := learningContext(qctx); section != "" {
		b.WriteString(section)
		b.WriteString("\n")
	}

	if len(hits) == 0 {
		b.WriteString(noContentNotice)
		b.WriteString("\n")
	} else {
		b.WriteString("Study material:\n")
		for i, h := range hits {
			b.WriteString(formatHit(i+1, h))
		}
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

func learningContext(qctx domain.QueryContext) string {
	var b strings.Builder
	if qctx.LearningStage != "" {
		fmt.Fprintf(&b, "The student is currently at this stage: %s\n", qctx.LearningStage)
	}
	if len(qctx.KeyPoints) > 0 {
		b.WriteString("Key points the student is focusing on:\n")
		for _, kp := range qctx.KeyPoints {
			fmt.Fprintf(&b, "- %s\n", kp)
		}
	}
	return b.String()
}

func formatHit(n int, h domain.SearchHit) string {
	label := h.SubjectName
	if label == "" {
		label = h.SubjectID
	}
	method := "semantic match"
	if h.Source == domain.MatchKeyword {
		method = "keyword match"
	}
	return fmt.Sprintf("\n--- Excerpt %d from %q (%s, similarity %.2f) ---\n%s\n", n, label, method, h.Similarity, h.Content)
}
