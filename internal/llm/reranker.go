package llm

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

// VideoReranker orders candidate video summaries by relevance to a topic,
// e.g. to pick which uploads back a given rebuttal slide. On any failure it
// keeps the original order.
type VideoReranker struct {
	LLM LLMClient
}

func NewVideoReranker(client LLMClient) *VideoReranker {
	return &VideoReranker{LLM: client}
}

func (r *VideoReranker) Rank(ctx context.Context, topic string, docs []string) ([]int, error) {
	if len(docs) == 0 {
		return nil, nil
	}
	if len(docs) == 1 {
		return []int{0}, nil
	}

	docList := ""
	for i, d := range docs {
		content := d
		if len(content) > 200 {
			content = content[:200] + "..."
		}
		docList += fmt.Sprintf("[%d] %s\n", i, content)
	}

	prompt := fmt.Sprintf(`You are a search relevance optimization system.
Topic: %s

Video summaries:
%s

Rank the summaries above by how directly they bear on the topic.
Output ONLY the indices in order of relevance, separated by commas.
Example: 0, 2, 1
Do not output any other text.`, topic, docList)

	resp, err := r.LLM.Generate(ctx, prompt, Options{})
	if err != nil {
		indices := make([]int, len(docs))
		for i := range indices {
			indices[i] = i
		}
		return indices, nil
	}

	indices := parseIndices(resp, len(docs))
	if len(indices) == 0 {
		indices = make([]int, len(docs))
		for i := range indices {
			indices[i] = i
		}
	}
	return indices, nil
}

var indexRe = regexp.MustCompile(`\d+`)

func parseIndices(s string, n int) []int {
	matches := indexRe.FindAllString(s, -1)
	seen := make(map[int]bool, n)
	var indices []int
	for _, m := range matches {
		i, err := strconv.Atoi(m)
		if err != nil || i < 0 || i >= n || seen[i] {
			continue
		}
		seen[i] = true
		indices = append(indices, i)
	}
	return indices
}
