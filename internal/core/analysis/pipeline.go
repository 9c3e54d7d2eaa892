package analysis

import (
	"context"
	"fmt"
	"time"

	"counterpoint/internal/config"
	"counterpoint/internal/core/common"
	"counterpoint/internal/core/model"
	"counterpoint/internal/llm"
)

// Stage identifies one step of the analysis chain, in execution order.
type Stage int

const (
	StageDiscovery Stage = iota
	StageDeepAnalysis
	StageVideos
	StageGraph
	stageCount
)

func (s Stage) String() string {
	switch s {
	case StageDiscovery:
		return "discovery"
	case StageDeepAnalysis:
		return "deep_analysis"
	case StageVideos:
		return "videos"
	case StageGraph:
		return "graph"
	}
	return "unknown"
}

// Stages is the number of sequential model calls one analysis makes.
const Stages = int(stageCount)

// Pipeline runs the four-stage prompt chain against a channel URL. Calls are
// strictly sequential; each stage's output is threaded into the next prompt.
type Pipeline struct {
	Text       llm.LLMClient
	Structured llm.StructuredClient
	Prompts    config.PipelinePrompts
}

func NewPipeline(text llm.LLMClient, structured llm.StructuredClient, prompts config.PipelinePrompts) *Pipeline {
	return &Pipeline{
		Text:       text,
		Structured: structured,
		Prompts:    prompts,
	}
}

// Run executes the chain. onStage, when non-nil, is invoked as each stage
// begins. The returned analysis is already normalized.
func (p *Pipeline) Run(ctx context.Context, channelURL string, onStage func(Stage)) (*model.Analysis, error) {
	enter := func(s Stage) {
		if onStage != nil {
			onStage(s)
		}
	}

	// Stage 1: search-grounded discovery.
	enter(StageDiscovery)
	discovery, err := p.Text.Generate(ctx, fmt.Sprintf(p.Prompts.Discovery, channelURL), llm.Options{
		UseSearch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery stage: %w", err)
	}

	// Stage 2: deep analysis with a thinking budget.
	enter(StageDeepAnalysis)
	deep, err := p.Text.Generate(ctx, fmt.Sprintf(p.Prompts.DeepAnalysis, discovery), llm.Options{
		ThinkingBudget: p.Prompts.ThinkingBudget,
	})
	if err != nil {
		return nil, fmt.Errorf("deep analysis stage: %w", err)
	}

	// The extraction stages see the whole accumulated context.
	accumulated := discovery + "\n\n" + deep

	// Stage 3: structured video list.
	enter(StageVideos)
	videosRaw, err := p.Structured.GenerateStructured(ctx, fmt.Sprintf(p.Prompts.Videos, accumulated), VideoListSchema(), llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("video extraction stage: %w", err)
	}
	videos, err := common.ParseJSON[model.ExtractedVideos](videosRaw)
	if err != nil {
		return nil, fmt.Errorf("video extraction stage: %w", err)
	}

	// Stage 4: structured theme graph.
	enter(StageGraph)
	graphRaw, err := p.Structured.GenerateStructured(ctx, fmt.Sprintf(p.Prompts.Graph, accumulated), GraphSchema(), llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("graph extraction stage: %w", err)
	}
	graph, err := common.ParseJSON[model.ExtractedGraph](graphRaw)
	if err != nil {
		return nil, fmt.Errorf("graph extraction stage: %w", err)
	}

	result := &model.Analysis{
		ChannelURL: channelURL,
		AnalyzedAt: time.Now().UTC(),
		Videos:     videos.Videos,
		Nodes:      graph.Nodes,
		Links:      graph.Links,
	}
	result.Normalize()
	return result, nil
}
