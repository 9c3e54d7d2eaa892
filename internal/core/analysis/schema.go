package analysis

import "counterpoint/internal/llm"

// Response schemas for the structured stages. Kept in one place so the
// prompt templates and the enforced shapes stay in sync.

func VideoListSchema() *llm.Schema {
	return &llm.Schema{
		Type:     llm.TypeObject,
		Required: []string{"videos"},
		Properties: map[string]*llm.Schema{
			"videos": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type:     llm.TypeObject,
					Required: []string{"title", "summary"},
					Properties: map[string]*llm.Schema{
						"title":   {Type: llm.TypeString},
						"summary": {Type: llm.TypeString},
						"url":     {Type: llm.TypeString},
						"date":    {Type: llm.TypeString, Description: "publish date, YYYY-MM-DD when known"},
					},
				},
			},
		},
	}
}

func GraphSchema() *llm.Schema {
	return &llm.Schema{
		Type:     llm.TypeObject,
		Required: []string{"nodes", "links"},
		Properties: map[string]*llm.Schema{
			"nodes": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type:     llm.TypeObject,
					Required: []string{"id", "group", "description", "relevance", "popularity"},
					Properties: map[string]*llm.Schema{
						"id":          {Type: llm.TypeString, Description: "short unique identifier"},
						"group":       {Type: llm.TypeInteger, Description: "tier: 1 core, 2 supporting, 3 peripheral"},
						"description": {Type: llm.TypeString},
						"detail":      {Type: llm.TypeString},
						"relevance":   {Type: llm.TypeInteger, Description: "1-10"},
						"popularity":  {Type: llm.TypeInteger, Description: "1-10"},
					},
				},
			},
			"links": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type:     llm.TypeObject,
					Required: []string{"source", "target", "weight"},
					Properties: map[string]*llm.Schema{
						"source": {Type: llm.TypeString},
						"target": {Type: llm.TypeString},
						"weight": {Type: llm.TypeInteger, Description: "1-5"},
					},
				},
			},
		},
	}
}

func DeckSchema() *llm.Schema {
	return &llm.Schema{
		Type:     llm.TypeObject,
		Required: []string{"title", "slides"},
		Properties: map[string]*llm.Schema{
			"title": {Type: llm.TypeString},
			"slides": {
				Type: llm.TypeArray,
				Items: &llm.Schema{
					Type:     llm.TypeObject,
					Required: []string{"title", "bullets", "rebuttal", "speaker_notes", "image_prompt"},
					Properties: map[string]*llm.Schema{
						"title": {Type: llm.TypeString},
						"bullets": {
							Type:        llm.TypeArray,
							Description: "exactly three labeled points",
							Items: &llm.Schema{
								Type:     llm.TypeObject,
								Required: []string{"label", "text"},
								Properties: map[string]*llm.Schema{
									"label": {Type: llm.TypeString},
									"text":  {Type: llm.TypeString},
								},
							},
						},
						"rebuttal":      {Type: llm.TypeString},
						"speaker_notes": {Type: llm.TypeString},
						"image_prompt":  {Type: llm.TypeString},
					},
				},
			},
		},
	}
}
