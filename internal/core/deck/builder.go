package deck

import (
	"context"
	"fmt"
	"log"
	"strings"

	"counterpoint/internal/config"
	"counterpoint/internal/core/analysis"
	"counterpoint/internal/core/common"
	"counterpoint/internal/core/model"
	"counterpoint/internal/llm"
)

// Builder turns a finished analysis into a rebuttal deck: one structured
// outline call, then one image call per slide. Image calls run sequentially
// and their failures are non-fatal; a slide without art still presents.
type Builder struct {
	Structured llm.StructuredClient
	Image      llm.ImageClient
	Reranker   *llm.VideoReranker
	Prompts    config.DeckPrompts
}

func NewBuilder(structured llm.StructuredClient, image llm.ImageClient, reranker *llm.VideoReranker, prompts config.DeckPrompts) *Builder {
	return &Builder{
		Structured: structured,
		Image:      image,
		Reranker:   reranker,
		Prompts:    prompts,
	}
}

// Build generates the deck. onSlide, when non-nil, is invoked before each
// slide's image generation with the slide index.
func (b *Builder) Build(ctx context.Context, a *model.Analysis, onSlide func(int, int)) (*model.Deck, error) {
	videos := a.Videos
	if b.Reranker != nil && len(videos) > 1 {
		videos = b.rankedVideos(ctx, a)
	}

	prompt := fmt.Sprintf(b.Prompts.Outline, themeContext(a), videoContext(videos), b.Prompts.MaxSlides)

	response, err := b.Structured.GenerateStructured(ctx, prompt, analysis.DeckSchema(), llm.Options{})
	if err != nil {
		return nil, fmt.Errorf("deck outline: %w", err)
	}

	outline, err := common.ParseJSON[model.ExtractedDeck](response)
	if err != nil {
		return nil, fmt.Errorf("deck outline: %w", err)
	}
	if len(outline.Slides) == 0 {
		return nil, fmt.Errorf("%w: outline has no slides", common.ErrParse)
	}
	if b.Prompts.MaxSlides > 0 && len(outline.Slides) > b.Prompts.MaxSlides {
		outline.Slides = outline.Slides[:b.Prompts.MaxSlides]
	}

	deck := &model.Deck{
		ChannelURL: a.ChannelURL,
		Title:      outline.Title,
		Slides:     outline.Slides,
	}

	for i := range deck.Slides {
		normalizeSlide(&deck.Slides[i])
	}

	if b.Image != nil {
		for i := range deck.Slides {
			if onSlide != nil {
				onSlide(i, len(deck.Slides))
			}
			b.renderArt(ctx, &deck.Slides[i])
		}
	}

	return deck, nil
}

func (b *Builder) renderArt(ctx context.Context, s *model.Slide) {
	if s.ImagePrompt == "" {
		return
	}
	prompt := s.ImagePrompt
	if b.Prompts.ImageStyle != "" {
		prompt = fmt.Sprintf(b.Prompts.ImageStyle, s.ImagePrompt)
	}
	data, _, err := b.Image.GenerateImage(ctx, prompt)
	if err != nil {
		log.Printf("slide art failed for %q: %v", s.Title, err)
		return
	}
	s.ImageData = data
}

// normalizeSlide enforces the three-bullet convention the layout assumes:
// extra bullets are dropped, missing ones padded with empty-labeled blanks.
func normalizeSlide(s *model.Slide) {
	if len(s.Bullets) > model.SlideBullets {
		s.Bullets = s.Bullets[:model.SlideBullets]
	}
	for len(s.Bullets) < model.SlideBullets {
		s.Bullets = append(s.Bullets, model.Bullet{})
	}
}

func themeContext(a *model.Analysis) string {
	var sb strings.Builder
	for _, n := range a.Nodes {
		if n.Group != model.GroupCore {
			continue
		}
		fmt.Fprintf(&sb, "- %s: %s (relevance %d, popularity %d)\n", n.ID, n.Description, n.Relevance, n.Popularity)
	}
	if sb.Len() == 0 {
		// No core tier; fall back to everything.
		for _, n := range a.Nodes {
			fmt.Fprintf(&sb, "- %s: %s\n", n.ID, n.Description)
		}
	}
	return sb.String()
}

func videoContext(videos []model.Video) string {
	var sb strings.Builder
	for _, v := range videos {
		fmt.Fprintf(&sb, "- %s: %s\n", v.Title, v.Summary)
	}
	return sb.String()
}

// rankedVideos orders the video list by relevance to the channel's core
// themes so the most load-bearing uploads lead the outline context. Rank
// failures fall back to the original order inside the reranker.
func (b *Builder) rankedVideos(ctx context.Context, a *model.Analysis) []model.Video {
	docs := make([]string, len(a.Videos))
	for i, v := range a.Videos {
		docs[i] = v.Title + ": " + v.Summary
	}

	order, err := b.Reranker.Rank(ctx, themeContext(a), docs)
	if err != nil || len(order) == 0 {
		return a.Videos
	}

	out := make([]model.Video, 0, len(a.Videos))
	seen := make(map[int]bool, len(order))
	for _, i := range order {
		out = append(out, a.Videos[i])
		seen[i] = true
	}
	for i, v := range a.Videos {
		if !seen[i] {
			out = append(out, v)
		}
	}
	return out
}
