package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type LLMConfig struct {
	Provider       string `toml:"provider"`
	Model          string `toml:"model"`
	EmbeddingModel string `toml:"embedding_model"`
	ImageModel     string `toml:"image_model"`
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri"`
	User     string `toml:"user"`
	Password string `toml:"password"`
}

// PipelinePrompts are the fmt templates for the four analysis stages.
// Discovery takes the channel URL; the later stages take the accumulated
// output of the stages before them.
type PipelinePrompts struct {
	Discovery      string `toml:"discovery"`
	DeepAnalysis   string `toml:"deep_analysis"`
	Videos         string `toml:"videos"`
	Graph          string `toml:"graph"`
	ThinkingBudget int32  `toml:"thinking_budget"`
}

type DeckPrompts struct {
	Outline    string `toml:"outline"`
	ImageStyle string `toml:"image_style"`
	MaxSlides  int    `toml:"max_slides"`
}

type DedupeConfig struct {
	Enabled   bool    `toml:"enabled"`
	Threshold float64 `toml:"threshold"`
}

type Config struct {
	LLM      LLMConfig       `toml:"llm"`
	Memgraph MemgraphConfig  `toml:"memgraph"`
	Pipeline PipelinePrompts `toml:"pipeline"`
	Deck     DeckPrompts     `toml:"deck"`
	Dedupe   DedupeConfig    `toml:"dedupe"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides file values with environment variables when present.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_EMBEDDING_MODEL"); v != "" {
		c.LLM.EmbeddingModel = v
	}
	if v := os.Getenv("LLM_IMAGE_MODEL"); v != "" {
		c.LLM.ImageModel = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("MEMGRAPH_URI"); v != "" {
		c.Memgraph.URI = v
	}
	if v := os.Getenv("MEMGRAPH_USER"); v != "" {
		c.Memgraph.User = v
	}
	if v := os.Getenv("MEMGRAPH_PASSWORD"); v != "" {
		c.Memgraph.Password = v
	}
}

// Default returns a runnable configuration with the shipped prompt set, so
// the binaries work without a config file. A config file overrides whichever
// sections it carries.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:       "gemini",
			Model:          "gemini-2.5-flash",
			EmbeddingModel: "gemini-embedding-001",
			ImageModel:     "gemini-2.0-flash-preview-image-generation",
		},
		Memgraph: MemgraphConfig{
			URI: "bolt://localhost:7687",
		},
		Pipeline: PipelinePrompts{
			ThinkingBudget: 4096,
			Discovery: `You are a media researcher. Research the content creator channel at %s.
Describe, in plain prose: who runs the channel, its overall subject matter,
its publishing cadence, its approximate audience size, and the general tone
and rhetorical style of the content. Cite what you find through search where
possible. Do not speculate beyond what you can ground.`,
			DeepAnalysis: `You are an argumentation analyst. Below is background research on a
content creator channel.

<RESEARCH>
%s
</RESEARCH>

Work through the channel's body of work and identify its recurring themes,
the claims it repeats most often, the argumentative patterns it relies on,
and the relationships between those themes. Write a thorough free-text
analysis. Be specific: name themes, quote typical claims, note which themes
feed which.`,
			Videos: `Below is an analysis of a content creator channel.

<ANALYSIS>
%s
</ANALYSIS>

List the individual videos the analysis drew on. For each: title, a two or
three sentence summary of its argument, the URL if known, and the publish
date if known. Return JSON only, matching the requested schema.`,
			Graph: `Below is an analysis of a content creator channel.

<ANALYSIS>
%s
</ANALYSIS>

Extract the channel's recurring themes as a knowledge graph. Each node:
a short unique id, a group tier (1 = core recurring position, 2 = supporting
argument, 3 = peripheral topic), a one-line description, a longer detail
paragraph, a relevance score 1-10, and a popularity score 1-10. Each link:
source id, target id, and a weight 1-5 for how strongly the two themes are
connected. Return JSON only, matching the requested schema.`,
		},
		Deck: DeckPrompts{
			MaxSlides: 8,
			Outline: `You are preparing a rebuttal presentation responding to a content
creator channel. Its recurring themes:

<THEMES>
%s
</THEMES>

Representative videos:

<VIDEOS>
%s
</VIDEOS>

Produce a slide deck of at most %d slides that rebuts the channel's core
positions. For each slide: a title, exactly three labeled bullet points
(label plus text), a rebuttal paragraph, speaker notes, and a vivid scene
description usable as an image-generation prompt for the slide background.
Return JSON only, matching the requested schema.`,
			ImageStyle: "Abstract editorial illustration, muted palette, no text, no faces. Scene: %s",
		},
		Dedupe: DedupeConfig{
			Enabled:   true,
			Threshold: 0.88,
		},
	}
}
