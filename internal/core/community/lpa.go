package community

import (
	"sort"

	"counterpoint/internal/core/model"
)

// LabelPropagationDetector clusters theme nodes by propagating labels across
// links, with link weight driving the label counts. Clusters feed the
// dashboard's "related themes" grouping.
type LabelPropagationDetector struct {
	MaxIterations int
}

func NewLabelPropagationDetector() *LabelPropagationDetector {
	return &LabelPropagationDetector{
		MaxIterations: 20,
	}
}

// Detect returns the clusters with two or more members. Singletons are not
// reported.
func (d *LabelPropagationDetector) Detect(nodes []model.ThemeNode, links []model.ThemeLink) [][]model.ThemeNode {
	if len(nodes) == 0 {
		return nil
	}

	adj := make(map[string]map[string]int, len(nodes))
	nodeMap := make(map[string]model.ThemeNode, len(nodes))
	for _, n := range nodes {
		nodeMap[n.ID] = n
		adj[n.ID] = make(map[string]int)
	}

	for _, l := range links {
		if _, ok := nodeMap[l.Source]; !ok {
			continue
		}
		if _, ok := nodeMap[l.Target]; !ok {
			continue
		}
		w := l.Weight
		if w < 1 {
			w = 1
		}
		adj[l.Source][l.Target] += w
		adj[l.Target][l.Source] += w // undirected
	}

	// Every node starts with its own label.
	labels := make(map[string]string, len(nodes))
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		labels[n.ID] = n.ID
		ids[i] = n.ID
	}

	for iter := 0; iter < d.MaxIterations; iter++ {
		changed := 0

		for _, u := range ids {
			neighbors := adj[u]
			if len(neighbors) == 0 {
				continue
			}

			counts := make(map[string]int)
			maxCount := 0
			for v, weight := range neighbors {
				label := labels[v]
				counts[label] += weight
				if counts[label] > maxCount {
					maxCount = counts[label]
				}
			}

			var candidates []string
			for label, count := range counts {
				if count == maxCount {
					candidates = append(candidates, label)
				}
			}

			// Deterministic tie-break: lexicographically largest.
			sort.Strings(candidates)
			best := candidates[len(candidates)-1]

			if labels[u] != best {
				labels[u] = best
				changed++
			}
		}

		if changed == 0 {
			break
		}
	}

	clusters := make(map[string][]model.ThemeNode)
	for id, label := range labels {
		clusters[label] = append(clusters[label], nodeMap[id])
	}

	var out [][]model.ThemeNode
	for _, cluster := range clusters {
		if len(cluster) >= 2 {
			sort.Slice(cluster, func(i, j int) bool { return cluster[i].ID < cluster[j].ID })
			out = append(out, cluster)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0].ID < out[j][0].ID })
	return out
}

// Assign runs detection and writes 1-based cluster numbers onto the nodes of
// the analysis. Singleton nodes keep cluster 0.
func Assign(a *model.Analysis) {
	det := NewLabelPropagationDetector()
	clusters := det.Detect(a.Nodes, a.Links)

	byID := make(map[string]int)
	for i, cluster := range clusters {
		for _, n := range cluster {
			byID[n.ID] = i + 1
		}
	}

	for i := range a.Nodes {
		a.Nodes[i].Cluster = byID[a.Nodes[i].ID]
	}
}
