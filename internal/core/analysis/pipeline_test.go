package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counterpoint/internal/config"
	"counterpoint/internal/core/common"
	"counterpoint/internal/llm"
)

// mockLLM answers Generate and GenerateStructured from one shared queue and
// records every prompt and option set it saw.
type mockLLM struct {
	Queue   []string
	Err     error
	Prompts []string
	Opts    []llm.Options
}

func (m *mockLLM) next() string {
	if len(m.Queue) == 0 {
		return ""
	}
	resp := m.Queue[0]
	m.Queue = m.Queue[1:]
	return resp
}

func (m *mockLLM) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	m.Opts = append(m.Opts, opts)
	if m.Err != nil {
		return "", m.Err
	}
	return m.next(), nil
}

func (m *mockLLM) GenerateStructured(ctx context.Context, prompt string, schema *llm.Schema, opts llm.Options) (string, error) {
	return m.Generate(ctx, prompt, opts)
}

func testPrompts() config.PipelinePrompts {
	p := config.Default().Pipeline
	p.ThinkingBudget = 1024
	return p
}

const videosJSON = `{"videos": [{"title": "Ep 1", "summary": "Claims X.", "url": "https://v/1"}]}`

const graphJSON = `{
  "nodes": [
    {"id": "gold", "group": 1, "description": "gold standard", "relevance": 9, "popularity": 40},
    {"id": "fiat", "group": 2, "description": "fiat collapse", "relevance": 7, "popularity": 6}
  ],
  "links": [
    {"source": "gold", "target": "fiat", "weight": 9},
    {"source": "gold", "target": "missing", "weight": 3}
  ]
}`

func TestPipeline_RunThreadsStageOutputs(t *testing.T) {
	mock := &mockLLM{Queue: []string{
		"DISCOVERY-OUTPUT",
		"DEEP-OUTPUT",
		videosJSON,
		graphJSON,
	}}
	p := NewPipeline(mock, mock, testPrompts())

	var stages []Stage
	a, err := p.Run(context.Background(), "https://example.com/@chan", func(s Stage) {
		stages = append(stages, s)
	})
	require.NoError(t, err)

	assert.Equal(t, []Stage{StageDiscovery, StageDeepAnalysis, StageVideos, StageGraph}, stages)
	require.Len(t, mock.Prompts, 4)

	// Stage 1 gets the channel URL; stage 2 gets stage 1's output; stages
	// 3 and 4 get the accumulated free text.
	assert.Contains(t, mock.Prompts[0], "https://example.com/@chan")
	assert.Contains(t, mock.Prompts[1], "DISCOVERY-OUTPUT")
	assert.Contains(t, mock.Prompts[2], "DISCOVERY-OUTPUT")
	assert.Contains(t, mock.Prompts[2], "DEEP-OUTPUT")
	assert.Contains(t, mock.Prompts[3], "DEEP-OUTPUT")

	// Discovery is the grounded call, deep analysis the thinking call.
	assert.True(t, mock.Opts[0].UseSearch)
	assert.False(t, mock.Opts[1].UseSearch)
	assert.Equal(t, int32(1024), mock.Opts[1].ThinkingBudget)

	assert.Equal(t, "https://example.com/@chan", a.ChannelURL)
	require.Len(t, a.Videos, 1)
	assert.Equal(t, "Ep 1", a.Videos[0].Title)
}

func TestPipeline_RunNormalizesGraph(t *testing.T) {
	mock := &mockLLM{Queue: []string{"d", "a", videosJSON, graphJSON}}
	p := NewPipeline(mock, mock, testPrompts())

	a, err := p.Run(context.Background(), "u", nil)
	require.NoError(t, err)

	require.Len(t, a.Nodes, 2)
	assert.Equal(t, 10, a.Nodes[0].Popularity) // clamped from 40
	require.Len(t, a.Links, 1)                 // dangling link pruned
	assert.Equal(t, 5, a.Links[0].Weight)      // clamped from 9
}

func TestPipeline_RepairsTruncatedGraph(t *testing.T) {
	truncated := `{"nodes": [{"id": "a", "group": 1, "description": "thing", "relevance": 5, "popularity": 5}], "links": [{"source": "a", "target": "a", "weight": 2`
	mock := &mockLLM{Queue: []string{"d", "a", videosJSON, truncated}}
	p := NewPipeline(mock, mock, testPrompts())

	a, err := p.Run(context.Background(), "u", nil)
	require.NoError(t, err)
	assert.Len(t, a.Nodes, 1)
}

func TestPipeline_ParseFailureIsErrParse(t *testing.T) {
	mock := &mockLLM{Queue: []string{"d", "a", "not json at all", graphJSON}}
	p := NewPipeline(mock, mock, testPrompts())

	_, err := p.Run(context.Background(), "u", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrParse))
	assert.True(t, strings.Contains(err.Error(), "video extraction"))
}

func TestPipeline_GenerateErrorIsNotErrParse(t *testing.T) {
	mock := &mockLLM{Err: errors.New("503 from provider")}
	p := NewPipeline(mock, mock, testPrompts())

	_, err := p.Run(context.Background(), "u", nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrParse))
}
