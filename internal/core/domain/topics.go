package domain

import (
	"sort"
	"strings"
)

// ComputeTopics aggregates topic and keyword names across a question set.
// Each question contributes at most once to a given topic. Names are
// matched case-insensitively; the first-seen spelling is kept.
func ComputeTopics(questions []Question) []QuestionTopic {
	counts := make(map[string]int)
	names := make(map[string]string)

	for _, q := range questions {
		seen := make(map[string]struct{})
		for _, name := range append(append([]string{}, q.Topics...), q.Keywords...) {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			key := strings.ToLower(name)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			if _, ok := names[key]; !ok {
				names[key] = name
			}
			counts[key]++
		}
	}

	topics := make([]QuestionTopic, 0, len(counts))
	for key, count := range counts {
		topics = append(topics, QuestionTopic{Name: names[key], QuestionCount: count})
	}
	sort.Slice(topics, func(i, j int) bool {
		if topics[i].QuestionCount != topics[j].QuestionCount {
			return topics[i].QuestionCount > topics[j].QuestionCount
		}
		return topics[i].Name < topics[j].Name
	})
	return topics
}
