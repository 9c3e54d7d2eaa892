package model

import "time"

// Group tiers for theme nodes. The extraction prompt asks the model to sort
// every theme into one of three tiers.
const (
	GroupCore      = 1 // central, recurring positions of the channel
	GroupSupport   = 2 // arguments and framings used to back the core themes
	GroupPeriphery = 3 // occasional or tangential topics
)

const (
	MinScore  = 1
	MaxScore  = 10
	MinWeight = 1
	MaxWeight = 5
)

// Video is one analyzed upload of the channel. Produced once by the pipeline
// and immutable afterwards.
type Video struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
	URL     string `json:"url,omitempty"`
	Date    string `json:"date,omitempty"`
}

// ThemeNode is a recurring theme of the channel.
type ThemeNode struct {
	ID          string `json:"id"`
	Group       int    `json:"group"`
	Description string `json:"description"`
	Detail      string `json:"detail,omitempty"`
	Relevance   int    `json:"relevance"`
	Popularity  int    `json:"popularity"`

	// Cluster is assigned after extraction by label propagation. Zero means
	// unclustered (singleton).
	Cluster int `json:"cluster,omitempty"`
}

// CollisionRadius is the node radius the frontend force layout uses for
// collision detection: the two bounded scores summed.
func (n ThemeNode) CollisionRadius() int {
	return n.Relevance + n.Popularity
}

// ThemeLink connects two theme nodes. Endpoints reference ThemeNode.ID.
type ThemeLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Weight int    `json:"weight"`
}

// Distance is the link distance the frontend force layout uses: inversely
// related to weight, so strongly linked themes sit closer together.
func (l ThemeLink) Distance() float64 {
	w := l.Weight
	if w < MinWeight {
		w = MinWeight
	}
	return 200.0 / float64(w)
}

// Analysis is the full synthesized result for one channel.
type Analysis struct {
	ChannelURL string      `json:"channel_url"`
	AnalyzedAt time.Time   `json:"analyzed_at"`
	Videos     []Video     `json:"videos"`
	Nodes      []ThemeNode `json:"nodes"`
	Links      []ThemeLink `json:"links"`
}

// Normalize clamps all bounded fields into range and prunes structurally
// invalid entries: duplicate node ids (first occurrence wins) and links whose
// endpoints do not resolve to a node. Model output lands here before anything
// downstream sees it.
func (a *Analysis) Normalize() {
	seen := make(map[string]bool, len(a.Nodes))
	nodes := a.Nodes[:0]
	for _, n := range a.Nodes {
		if n.ID == "" || seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		n.Relevance = clamp(n.Relevance, MinScore, MaxScore)
		n.Popularity = clamp(n.Popularity, MinScore, MaxScore)
		if n.Group < GroupCore || n.Group > GroupPeriphery {
			n.Group = GroupPeriphery
		}
		nodes = append(nodes, n)
	}
	a.Nodes = nodes

	links := a.Links[:0]
	for _, l := range a.Links {
		if !seen[l.Source] || !seen[l.Target] || l.Source == l.Target {
			continue
		}
		l.Weight = clamp(l.Weight, MinWeight, MaxWeight)
		links = append(links, l)
	}
	a.Links = links
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
