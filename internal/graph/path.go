package graph

import (
	"sort"

	"github.com/investigate/case-graph/internal/domain"
)

// ShortestPath finds the fewest-hop chain of identifiers between from and to over the
// call links, ignoring direction. Ties resolve to the lexicographically smaller neighbour.
// A nil result means the two are not connected.
func ShortestPath(links []domain.CallLink, from, to string) []string {
	adj := make(map[string][]string)
	for _, l := range links {
		adj[l.SourceIdentifier] = append(adj[l.SourceIdentifier], l.TargetIdentifier)
		adj[l.TargetIdentifier] = append(adj[l.TargetIdentifier], l.SourceIdentifier)
	}
	if _, ok := adj[from]; !ok {
		return nil
	}
	if from == to {
		return []string{from}
	}
	for k := range adj {
		sort.Strings(adj[k])
	}

	prev := map[string]string{from: from}
	queue := []string{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, next := range adj[cur] {
			if _, seen := prev[next]; seen {
				continue
			}
			prev[next] = cur
			if next == to {
				path := []string{to}
				for n := cur; n != from; n = prev[n] {
					path = append(path, n)
				}
				path = append(path, from)
				for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
					path[i], path[j] = path[j], path[i]
				}
				return path
			}
			queue = append(queue, next)
		}
	}
	return nil
}
