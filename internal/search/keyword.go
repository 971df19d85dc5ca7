package search

import (
	"context"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/studylens/studylens/internal/domain"
)

const (
	// DefaultKeywordTopK is the default result count for keyword search.
	DefaultKeywordTopK = 3
	// keywordScoreCap keeps keyword matches from outranking genuine
	// high-confidence vector matches.
	keywordScoreCap = 0.8
	// maxKeywords bounds how many distinct query terms are matched.
	maxKeywords = 10
)

var keywordTokenRe = regexp.MustCompile(`[\p{L}\p{N}]+`)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "but": {}, "if": {},
	"for": {}, "to": {}, "of": {}, "in": {}, "on": {}, "at": {}, "by": {},
	"with": {}, "as": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "it": {}, "this": {}, "that": {}, "what": {}, "how": {},
	"why": {}, "when": {}, "where": {}, "which": {}, "who": {}, "do": {},
	"does": {}, "can": {}, "will": {}, "about": {}, "from": {},
	"的": {}, "了": {}, "是": {}, "在": {}, "和": {}, "有": {}, "我": {},
	"什么": {}, "怎么": {}, "如何": {}, "请问": {},
}

// KeywordSearch scores chunks by term-frequency overlap with the query.
// It is the fallback stage the orchestrator triggers when vector search
// returns too few hits; its scores never exceed keywordScoreCap.
func (e *Engine) KeywordSearch(ctx context.Context, query, scopeSubjectID string, topK int) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = DefaultKeywordTopK
	}
	keywords := ExtractKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	records, err := e.candidates(ctx, scopeSubjectID)
	if err != nil {
		return nil, err
	}

	var hits []domain.SearchHit
	for _, rec := range records {
		for _, ch := range rec.Chunks {
			score := keywordScore(ch.Content, keywords)
			if score <= 0 {
				continue
			}
			hits = append(hits, domain.SearchHit{
				SubjectID:   rec.SubjectID,
				SubjectName: rec.SubjectName,
				ChunkID:     ch.ID,
				Content:     ch.Content,
				Similarity:  score,
				Source:      domain.MatchKeyword,
				Metadata:    ch.Metadata,
			})
		}
	}

	sortHits(hits)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ExtractKeywords pulls salient terms from a query: lowercase
// alphanumeric/CJK tokens longer than one rune, stopwords stripped,
// capped at maxKeywords distinct terms in order of appearance.
func ExtractKeywords(query string) []string {
	tokens := keywordTokenRe.FindAllString(strings.ToLower(query), -1)
	seen := make(map[string]struct{}, len(tokens))
	var out []string
	for _, tok := range tokens {
		if utf8.RuneCountInString(tok) <= 1 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
		if len(out) == maxKeywords {
			break
		}
	}
	return out
}

// keywordScore counts case-insensitive keyword occurrences weighted by
// keyword length, normalized to a similarity-like value below the cap.
func keywordScore(content string, keywords []string) float64 {
	lower := strings.ToLower(content)
	var raw float64
	for _, kw := range keywords {
		if n := strings.Count(lower, kw); n > 0 {
			raw += float64(n) * float64(utf8.RuneCountInString(kw))
		}
	}
	if raw == 0 {
		return 0
	}
	score := raw / (raw + 10)
	if score > keywordScoreCap {
		score = keywordScoreCap
	}
	return score
}

// MergeHits combines vector and keyword results, dropping keyword hits
// whose (subject, chunk) identity was already found by vector search.
// The merged set is re-sorted by descending similarity.
func MergeHits(vectorHits, keywordHits []domain.SearchHit) []domain.SearchHit {
	type key struct{ subject, chunk string }
	seen := make(map[key]struct{}, len(vectorHits))
	merged := make([]domain.SearchHit, 0, len(vectorHits)+len(keywordHits))
	for _, h := range vectorHits {
		seen[key{h.SubjectID, h.ChunkID}] = struct{}{}
		merged = append(merged, h)
	}
	for _, h := range keywordHits {
		if _, dup := seen[key{h.SubjectID, h.ChunkID}]; dup {
			continue
		}
		merged = append(merged, h)
	}
	sortHits(merged)
	return merged
}
