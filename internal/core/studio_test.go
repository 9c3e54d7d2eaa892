package core

import (
	"context"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"counterpoint/internal/config"
	"counterpoint/internal/core/model"
	"counterpoint/internal/driver"
	"counterpoint/internal/llm"
)

type MockDriver struct {
	Queries []string
	Params  []map[string]interface{}
	Results map[string]neo4j.EagerResult
	Err     error
}

func (m *MockDriver) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (neo4j.EagerResult, error) {
	m.Queries = append(m.Queries, query)
	m.Params = append(m.Params, params)
	if m.Err != nil {
		return neo4j.EagerResult{}, m.Err
	}
	if res, ok := m.Results[query]; ok {
		return res, nil
	}
	return neo4j.EagerResult{}, nil
}

func (m *MockDriver) BuildIndices(ctx context.Context) error {
	return nil
}

func (m *MockDriver) Close(ctx context.Context) error {
	return nil
}

type MockLLM struct {
	ResponseQueue []string
	Err           error
}

func (m *MockLLM) next() (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.ResponseQueue) == 0 {
		return "", nil
	}
	resp := m.ResponseQueue[0]
	m.ResponseQueue = m.ResponseQueue[1:]
	return resp, nil
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts llm.Options) (string, error) {
	return m.next()
}

func (m *MockLLM) GenerateStructured(ctx context.Context, prompt string, schema *llm.Schema, opts llm.Options) (string, error) {
	return m.next()
}

const videosJSON = `{"videos": [{"title": "Ep 1", "summary": "Claims A."}]}`

const graphJSON = `{
	"nodes": [
		{"id": "theme-a", "group": 1, "description": "a", "relevance": 9, "popularity": 8},
		{"id": "theme-b", "group": 2, "description": "b", "relevance": 5, "popularity": 4}
	],
	"links": [{"source": "theme-a", "target": "theme-b", "weight": 4}]
}`

func testStudio(drv driver.GraphDriver) *Studio {
	cfg := config.Default()
	cfg.Dedupe.Enabled = false
	mock := &MockLLM{ResponseQueue: []string{"discovery notes", "deep analysis", videosJSON, graphJSON}}
	clients := &llm.Clients{Text: mock, Structured: mock}
	return NewStudio(cfg, clients, drv)
}

func TestAnalyzeChannel_PersistsAndClusters(t *testing.T) {
	drv := &MockDriver{}
	s := testStudio(drv)

	a, err := s.AnalyzeChannel(context.Background(), "https://example.com/@chan", nil)
	require.NoError(t, err)

	require.Len(t, a.Nodes, 2)
	assert.False(t, a.AnalyzedAt.IsZero())
	// Two connected themes form one community.
	assert.Equal(t, 1, a.Nodes[0].Cluster)
	assert.Equal(t, 1, a.Nodes[1].Cluster)

	assert.Contains(t, drv.Queries, driver.DeleteChannelGraphQuery)
	assert.Contains(t, drv.Queries, driver.SaveChannelQuery)
	assert.Contains(t, drv.Queries, driver.SaveThemeNodeQuery)
	assert.Contains(t, drv.Queries, driver.SaveThemeLinkQuery)
	assert.Contains(t, drv.Queries, driver.SaveVideoQuery)
}

func TestAnalyzeChannel_NoDriver(t *testing.T) {
	s := testStudio(nil)

	a, err := s.AnalyzeChannel(context.Background(), "https://example.com/@chan", nil)
	require.NoError(t, err)
	assert.Len(t, a.Videos, 1)
}

func TestSaveAnalysis_ClearsBeforeSaving(t *testing.T) {
	drv := &MockDriver{}
	s := &Studio{Driver: drv}

	a := &model.Analysis{
		ChannelURL: "https://example.com/@chan",
		Nodes:      []model.ThemeNode{{ID: "theme-a", Group: 1, Description: "a", Relevance: 5, Popularity: 5}},
	}
	require.NoError(t, s.SaveAnalysis(context.Background(), a))

	require.NotEmpty(t, drv.Queries)
	assert.Equal(t, driver.DeleteChannelGraphQuery, drv.Queries[0])
	// Every theme row carries a generated uuid and the owning channel.
	last := drv.Params[len(drv.Params)-1]
	assert.NotEmpty(t, last["uuid"])
	assert.Equal(t, "https://example.com/@chan", last["channel_url"])
}

func TestSaveAnalysis_RequiresDriver(t *testing.T) {
	s := &Studio{}
	err := s.SaveAnalysis(context.Background(), &model.Analysis{ChannelURL: "x"})
	require.Error(t, err)
}

func TestLoadAnalysis_UnknownChannel(t *testing.T) {
	drv := &MockDriver{}
	s := &Studio{Driver: drv}

	a, err := s.LoadAnalysis(context.Background(), "https://example.com/@nobody")
	require.NoError(t, err)
	assert.Nil(t, a)
}

func record(keys []string, values []interface{}) *neo4j.Record {
	return &neo4j.Record{Keys: keys, Values: values}
}

func TestLoadAnalysis_RebuildsAnalysis(t *testing.T) {
	drv := &MockDriver{Results: map[string]neo4j.EagerResult{
		driver.GetChannelQuery: {Records: []*neo4j.Record{
			record([]string{"url", "analyzed_at"}, []interface{}{"https://example.com/@chan", "2026-03-14T09:26:53Z"}),
		}},
		driver.GetThemeNodesQuery: {Records: []*neo4j.Record{
			record(
				[]string{"theme_id", "group", "description", "detail", "relevance", "popularity", "cluster"},
				[]interface{}{"theme-a", int64(1), "a", "", int64(9), int64(8), int64(1)},
			),
			record(
				[]string{"theme_id", "group", "description", "detail", "relevance", "popularity", "cluster"},
				[]interface{}{"theme-b", int64(2), "b", "deeper", int64(5), int64(4), int64(1)},
			),
		}},
		driver.GetThemeLinksQuery: {Records: []*neo4j.Record{
			record([]string{"source_id", "target_id", "weight"}, []interface{}{"theme-a", "theme-b", int64(4)}),
		}},
		driver.GetVideosQuery: {Records: []*neo4j.Record{
			record([]string{"title", "summary", "url", "date"}, []interface{}{"Ep 1", "Claims A.", "", "2026-01-02"}),
		}},
	}}
	s := &Studio{Driver: drv}

	a, err := s.LoadAnalysis(context.Background(), "https://example.com/@chan")
	require.NoError(t, err)
	require.NotNil(t, a)

	assert.Equal(t, "https://example.com/@chan", a.ChannelURL)
	assert.Equal(t, 2026, a.AnalyzedAt.Year())
	require.Len(t, a.Nodes, 2)
	assert.Equal(t, "theme-a", a.Nodes[0].ID)
	assert.Equal(t, 9, a.Nodes[0].Relevance)
	require.Len(t, a.Links, 1)
	assert.Equal(t, 4, a.Links[0].Weight)
	require.Len(t, a.Videos, 1)
	assert.Equal(t, "Ep 1", a.Videos[0].Title)
}
