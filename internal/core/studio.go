package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"counterpoint/internal/config"
	"counterpoint/internal/core/analysis"
	"counterpoint/internal/core/community"
	"counterpoint/internal/core/deck"
	"counterpoint/internal/core/dedupe"
	"counterpoint/internal/core/model"
	"counterpoint/internal/driver"
	"counterpoint/internal/llm"
)

// Studio ties the stages together: pipeline, dedupe, clustering, deck
// generation and graph persistence. The driver is optional; without one the
// studio still analyzes, it just cannot save or reload.
type Studio struct {
	Driver       driver.GraphDriver
	Pipeline     *analysis.Pipeline
	Deduplicator *dedupe.Deduplicator
	Decks        *deck.Builder
}

func NewStudio(cfg *config.Config, clients *llm.Clients, drv driver.GraphDriver) *Studio {
	s := &Studio{
		Driver:   drv,
		Pipeline: analysis.NewPipeline(clients.Text, clients.Structured, cfg.Pipeline),
	}

	if cfg.Dedupe.Enabled {
		s.Deduplicator = dedupe.NewDeduplicator(clients.Text, clients.Embedder, cfg.Dedupe.Threshold)
	}

	var reranker *llm.VideoReranker
	if clients.Text != nil {
		reranker = llm.NewVideoReranker(clients.Text)
	}
	s.Decks = deck.NewBuilder(clients.Structured, clients.Image, reranker, cfg.Deck)

	return s
}

func (s *Studio) BuildIndices(ctx context.Context) error {
	if s.Driver == nil {
		return nil
	}
	return s.Driver.BuildIndices(ctx)
}

// AnalyzeChannel runs the full pipeline for a channel and post-processes the
// result: merge duplicate themes, assign clusters, persist when a driver is
// attached. onStage is forwarded to the pipeline for progress reporting.
func (s *Studio) AnalyzeChannel(ctx context.Context, channelURL string, onStage func(analysis.Stage)) (*model.Analysis, error) {
	a, err := s.Pipeline.Run(ctx, channelURL, onStage)
	if err != nil {
		return nil, err
	}
	a.AnalyzedAt = time.Now().UTC()

	if s.Deduplicator != nil {
		if err := s.Deduplicator.MergeThemes(ctx, a); err != nil {
			return nil, fmt.Errorf("merge themes: %w", err)
		}
	}

	community.Assign(a)

	if s.Driver != nil {
		if err := s.SaveAnalysis(ctx, a); err != nil {
			return nil, fmt.Errorf("save analysis: %w", err)
		}
	}

	return a, nil
}

// GenerateDeck builds the rebuttal deck for a finished analysis.
func (s *Studio) GenerateDeck(ctx context.Context, a *model.Analysis, onSlide func(int, int)) (*model.Deck, error) {
	return s.Decks.Build(ctx, a, onSlide)
}

// SaveAnalysis replaces the stored graph for the channel with the given
// analysis. A re-analysis of the same channel overwrites rather than merges.
func (s *Studio) SaveAnalysis(ctx context.Context, a *model.Analysis) error {
	if s.Driver == nil {
		return fmt.Errorf("no graph driver configured")
	}

	_, err := s.Driver.ExecuteQuery(ctx, driver.DeleteChannelGraphQuery, map[string]interface{}{
		"url": a.ChannelURL,
	})
	if err != nil {
		return fmt.Errorf("clear previous analysis: %w", err)
	}

	_, err = s.Driver.ExecuteQuery(ctx, driver.SaveChannelQuery, map[string]interface{}{
		"url":         a.ChannelURL,
		"analyzed_at": a.AnalyzedAt.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("save channel: %w", err)
	}

	for _, n := range a.Nodes {
		params := map[string]interface{}{
			"uuid":        uuid.New().String(),
			"theme_id":    n.ID,
			"channel_url": a.ChannelURL,
			"group":       n.Group,
			"description": n.Description,
			"detail":      n.Detail,
			"relevance":   n.Relevance,
			"popularity":  n.Popularity,
			"cluster":     n.Cluster,
		}
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveThemeNodeQuery, params); err != nil {
			return fmt.Errorf("save theme %s: %w", n.ID, err)
		}
	}

	for _, l := range a.Links {
		params := map[string]interface{}{
			"source_id":   l.Source,
			"target_id":   l.Target,
			"channel_url": a.ChannelURL,
			"weight":      l.Weight,
		}
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveThemeLinkQuery, params); err != nil {
			return fmt.Errorf("save link %s->%s: %w", l.Source, l.Target, err)
		}
	}

	for _, v := range a.Videos {
		params := map[string]interface{}{
			"uuid":        uuid.New().String(),
			"channel_url": a.ChannelURL,
			"title":       v.Title,
			"summary":     v.Summary,
			"url":         v.URL,
			"date":        v.Date,
		}
		if _, err := s.Driver.ExecuteQuery(ctx, driver.SaveVideoQuery, params); err != nil {
			return fmt.Errorf("save video %s: %w", v.Title, err)
		}
	}

	return nil
}

// LoadAnalysis reloads a previously saved channel graph. Returns nil with no
// error when the channel has never been analyzed.
func (s *Studio) LoadAnalysis(ctx context.Context, channelURL string) (*model.Analysis, error) {
	if s.Driver == nil {
		return nil, fmt.Errorf("no graph driver configured")
	}

	res, err := s.Driver.ExecuteQuery(ctx, driver.GetChannelQuery, map[string]interface{}{"url": channelURL})
	if err != nil {
		return nil, err
	}
	if len(res.Records) == 0 {
		return nil, nil
	}

	a := &model.Analysis{ChannelURL: channelURL}
	if at, ok := res.Records[0].Get("analyzed_at"); ok {
		if str, ok := at.(string); ok {
			if t, err := time.Parse(time.RFC3339, str); err == nil {
				a.AnalyzedAt = t
			}
		}
	}

	res, err = s.Driver.ExecuteQuery(ctx, driver.GetThemeNodesQuery, map[string]interface{}{"url": channelURL})
	if err != nil {
		return nil, err
	}
	for _, rec := range res.Records {
		id, _ := rec.Get("theme_id")
		group, _ := rec.Get("group")
		description, _ := rec.Get("description")
		detail, _ := rec.Get("detail")
		relevance, _ := rec.Get("relevance")
		popularity, _ := rec.Get("popularity")
		cluster, _ := rec.Get("cluster")
		a.Nodes = append(a.Nodes, model.ThemeNode{
			ID:          asString(id),
			Group:       asInt(group),
			Description: asString(description),
			Detail:      asString(detail),
			Relevance:   asInt(relevance),
			Popularity:  asInt(popularity),
			Cluster:     asInt(cluster),
		})
	}

	res, err = s.Driver.ExecuteQuery(ctx, driver.GetThemeLinksQuery, map[string]interface{}{"url": channelURL})
	if err != nil {
		return nil, err
	}
	for _, rec := range res.Records {
		source, _ := rec.Get("source_id")
		target, _ := rec.Get("target_id")
		weight, _ := rec.Get("weight")
		a.Links = append(a.Links, model.ThemeLink{
			Source: asString(source),
			Target: asString(target),
			Weight: asInt(weight),
		})
	}

	res, err = s.Driver.ExecuteQuery(ctx, driver.GetVideosQuery, map[string]interface{}{"url": channelURL})
	if err != nil {
		return nil, err
	}
	for _, rec := range res.Records {
		title, _ := rec.Get("title")
		summary, _ := rec.Get("summary")
		url, _ := rec.Get("url")
		date, _ := rec.Get("date")
		a.Videos = append(a.Videos, model.Video{
			Title:   asString(title),
			Summary: asString(summary),
			URL:     asString(url),
			Date:    asString(date),
		})
	}

	a.Normalize()
	return a, nil
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}
