package usecase

import (
	"strings"

	"github.com/nsmelov/exam-insights/internal/core/domain"
)

// ApplyFilters derives a filtered view of an immutable result. Filters
// are conjunctive. With no filters set the original is returned as-is,
// including its backing slices. Topics of the view are the subset of
// the original topic list still referenced by a surviving question;
// the view never invents topics absent from the original aggregate.
func ApplyFilters(original domain.AnalysisResult, filters domain.Filters) domain.AnalysisResult {
	if filters.Empty() {
		return original
	}

	topic := strings.ToLower(strings.TrimSpace(filters.Topic))
	keyword := strings.ToLower(strings.TrimSpace(filters.Keyword))

	filtered := make([]domain.Question, 0, len(original.Questions))
	for _, q := range original.Questions {
		if filters.Year != "" && q.Year != filters.Year {
			continue
		}
		if topic != "" && !hasNameFold(q, topic) {
			continue
		}
		if keyword != "" && !matchesKeyword(q, keyword) {
			continue
		}
		filtered = append(filtered, q)
	}

	referenced := make(map[string]struct{})
	for _, q := range filtered {
		for _, name := range q.Topics {
			referenced[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
		}
		for _, name := range q.Keywords {
			referenced[strings.ToLower(strings.TrimSpace(name))] = struct{}{}
		}
	}

	topics := make([]domain.QuestionTopic, 0, len(original.Topics))
	for _, t := range original.Topics {
		key := strings.ToLower(strings.TrimSpace(t.Name))
		if _, ok := referenced[key]; !ok {
			continue
		}
		count := countReferencing(filtered, key)
		if count == 0 {
			continue
		}
		topics = append(topics, domain.QuestionTopic{Name: t.Name, QuestionCount: count})
	}

	return domain.AnalysisResult{Questions: filtered, Topics: topics}
}

// hasNameFold reports whether the topic filter matches one of the
// question's topics or keywords exactly, ignoring case.
func hasNameFold(q domain.Question, lowered string) bool {
	for _, name := range q.Topics {
		if strings.ToLower(strings.TrimSpace(name)) == lowered {
			return true
		}
	}
	for _, name := range q.Keywords {
		if strings.ToLower(strings.TrimSpace(name)) == lowered {
			return true
		}
	}
	return false
}

// matchesKeyword is a case-insensitive substring match across the
// question text, keywords and topics.
func matchesKeyword(q domain.Question, lowered string) bool {
	if strings.Contains(strings.ToLower(q.Text), lowered) {
		return true
	}
	for _, name := range q.Keywords {
		if strings.Contains(strings.ToLower(name), lowered) {
			return true
		}
	}
	for _, name := range q.Topics {
		if strings.Contains(strings.ToLower(name), lowered) {
			return true
		}
	}
	return false
}

func countReferencing(questions []domain.Question, lowered string) int {
	count := 0
	for _, q := range questions {
		if hasNameFold(q, lowered) {
			count++
		}
	}
	return count
}
