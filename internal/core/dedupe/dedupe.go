package dedupe

import (
	"context"
	"fmt"
	"math"

	"counterpoint/internal/core/common"
	"counterpoint/internal/core/model"
	"counterpoint/internal/llm"
)

// Deduplicator merges near-duplicate theme nodes after graph extraction.
// Candidate pairs come from embedding similarity when an embedder is
// available; the LLM confirms which pairs really are the same theme.
type Deduplicator struct {
	LLM      llm.LLMClient
	Embedder llm.EmbedderClient

	// Threshold is the cosine similarity above which a pair becomes a
	// candidate. Ignored when no embedder is configured (every pair is
	// then a candidate, which is fine at theme-graph sizes).
	Threshold float64
}

func NewDeduplicator(llmClient llm.LLMClient, embedder llm.EmbedderClient, threshold float64) *Deduplicator {
	return &Deduplicator{
		LLM:       llmClient,
		Embedder:  embedder,
		Threshold: threshold,
	}
}

// MergeThemes collapses duplicate nodes in place. Links pointing at a dropped
// node are re-pointed at the survivor; the analysis is re-normalized before
// returning so merged self-links and duplicates wash out.
func (d *Deduplicator) MergeThemes(ctx context.Context, a *model.Analysis) error {
	if len(a.Nodes) < 2 {
		return nil
	}

	candidates, err := d.candidatePairs(ctx, a.Nodes)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}

	confirmed, err := d.confirmPairs(ctx, a.Nodes, candidates)
	if err != nil {
		return err
	}
	if len(confirmed) == 0 {
		return nil
	}

	byID := make(map[string]bool, len(a.Nodes))
	for _, n := range a.Nodes {
		byID[n.ID] = true
	}

	replace := make(map[string]string)
	for _, pair := range confirmed {
		if !byID[pair.KeepID] || !byID[pair.DropID] || pair.KeepID == pair.DropID {
			continue
		}
		if pair.Confidence < 0.5 {
			continue
		}
		replace[pair.DropID] = pair.KeepID
	}
	if len(replace) == 0 {
		return nil
	}

	// Resolve chains (a->b, b->c) before rewriting.
	resolve := func(id string) string {
		for i := 0; i < len(replace); i++ {
			next, ok := replace[id]
			if !ok {
				return id
			}
			id = next
		}
		return id
	}

	nodes := a.Nodes[:0]
	for _, n := range a.Nodes {
		if _, dropped := replace[n.ID]; dropped {
			continue
		}
		nodes = append(nodes, n)
	}
	a.Nodes = nodes

	for i := range a.Links {
		a.Links[i].Source = resolve(a.Links[i].Source)
		a.Links[i].Target = resolve(a.Links[i].Target)
	}

	a.Normalize()
	return nil
}

type pair struct{ i, j int }

func (d *Deduplicator) candidatePairs(ctx context.Context, nodes []model.ThemeNode) ([]pair, error) {
	if d.Embedder == nil {
		return d.withoutEmbedder(nodes), nil
	}

	vecs := make([][]float32, len(nodes))
	for i, n := range nodes {
		v, err := d.Embedder.Embed(ctx, n.Description)
		if err != nil {
			// Embedding is a prefilter only; degrade to full pairing.
			return d.withoutEmbedder(nodes), nil
		}
		vecs[i] = v
	}

	var out []pair
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			if cosine(vecs[i], vecs[j]) >= d.Threshold {
				out = append(out, pair{i, j})
			}
		}
	}
	return out, nil
}

func (d *Deduplicator) withoutEmbedder(nodes []model.ThemeNode) []pair {
	all := make([]pair, 0, len(nodes)*(len(nodes)-1)/2)
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			all = append(all, pair{i, j})
		}
	}
	return all
}

func (d *Deduplicator) confirmPairs(ctx context.Context, nodes []model.ThemeNode, candidates []pair) ([]model.DuplicatePair, error) {
	var listing string
	for _, p := range candidates {
		a, b := nodes[p.i], nodes[p.j]
		listing += fmt.Sprintf("- %q (%s) vs %q (%s)\n", a.ID, a.Description, b.ID, b.Description)
	}

	prompt := fmt.Sprintf(`The following pairs of themes were extracted from one channel analysis
and may be duplicates of each other:

%s
For each pair that describes the SAME underlying theme, emit an entry with
"keep_id" (the better-described theme), "drop_id", and "confidence" (0-1).
Pairs that are merely related are NOT duplicates.

Return a JSON object: {"duplicates": [{"keep_id": "...", "drop_id": "...", "confidence": 0.9}]}
If none, return {"duplicates": []}.`, listing)

	response, err := d.LLM.Generate(ctx, prompt, llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate dedupe result: %w", err)
	}

	result, err := common.ParseJSON[model.DuplicateThemes](response)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dedupe result: %w", err)
	}
	return result.Duplicates, nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
