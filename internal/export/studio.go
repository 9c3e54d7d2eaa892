// Package export reads and writes studio files: a TOML snapshot of a full
// channel analysis that survives outside the graph store. The format is
// deliberately editable by hand, so imports always re-normalize.
package export

import (
	"fmt"
	"io"
	"time"

	"github.com/pelletier/go-toml/v2"

	"counterpoint/internal/core/model"
)

type studioFile struct {
	Channel channelSection `toml:"channel"`
	Videos  []videoSection `toml:"video"`
	Nodes   []nodeSection  `toml:"node"`
	Links   []linkSection  `toml:"link"`
}

type channelSection struct {
	URL      string    `toml:"url"`
	Analyzed time.Time `toml:"analyzed"`
}

type videoSection struct {
	Title   string `toml:"title"`
	Summary string `toml:"summary"`
	URL     string `toml:"url,omitempty"`
	Date    string `toml:"date,omitempty"`
}

type nodeSection struct {
	ID          string `toml:"id"`
	Group       int    `toml:"group"`
	Description string `toml:"description"`
	Detail      string `toml:"detail,omitempty"`
	Relevance   int    `toml:"relevance"`
	Popularity  int    `toml:"popularity"`
	Cluster     int    `toml:"cluster,omitempty"`
}

type linkSection struct {
	Source string `toml:"source"`
	Target string `toml:"target"`
	Weight int    `toml:"weight"`
}

// Write serializes the analysis as a studio file.
func Write(w io.Writer, a *model.Analysis) error {
	file := studioFile{
		Channel: channelSection{URL: a.ChannelURL, Analyzed: a.AnalyzedAt},
		Videos:  make([]videoSection, 0, len(a.Videos)),
		Nodes:   make([]nodeSection, 0, len(a.Nodes)),
		Links:   make([]linkSection, 0, len(a.Links)),
	}
	for _, v := range a.Videos {
		file.Videos = append(file.Videos, videoSection(v))
	}
	for _, n := range a.Nodes {
		file.Nodes = append(file.Nodes, nodeSection{
			ID:          n.ID,
			Group:       n.Group,
			Description: n.Description,
			Detail:      n.Detail,
			Relevance:   n.Relevance,
			Popularity:  n.Popularity,
			Cluster:     n.Cluster,
		})
	}
	for _, l := range a.Links {
		file.Links = append(file.Links, linkSection(l))
	}

	enc := toml.NewEncoder(w)
	if err := enc.Encode(file); err != nil {
		return fmt.Errorf("encode studio file: %w", err)
	}
	return nil
}

// Read parses a studio file back into an analysis. The result is normalized,
// so hand-edited files with out-of-range scores or dangling links load
// cleanly instead of failing.
func Read(r io.Reader) (*model.Analysis, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read studio file: %w", err)
	}

	var file studioFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse studio file: %w", err)
	}
	if file.Channel.URL == "" {
		return nil, fmt.Errorf("studio file has no channel url")
	}

	a := &model.Analysis{
		ChannelURL: file.Channel.URL,
		AnalyzedAt: file.Channel.Analyzed,
		Videos:     make([]model.Video, 0, len(file.Videos)),
		Nodes:      make([]model.ThemeNode, 0, len(file.Nodes)),
		Links:      make([]model.ThemeLink, 0, len(file.Links)),
	}
	for _, v := range file.Videos {
		a.Videos = append(a.Videos, model.Video(v))
	}
	for _, n := range file.Nodes {
		a.Nodes = append(a.Nodes, model.ThemeNode{
			ID:          n.ID,
			Group:       n.Group,
			Description: n.Description,
			Detail:      n.Detail,
			Relevance:   n.Relevance,
			Popularity:  n.Popularity,
			Cluster:     n.Cluster,
		})
	}
	for _, l := range file.Links {
		a.Links = append(a.Links, model.ThemeLink(l))
	}

	a.Normalize()
	return a, nil
}
