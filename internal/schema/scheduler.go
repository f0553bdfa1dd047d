package schema

import "sort"

// InferenceOrder sorts the missing columns so each one is visited after
// the columns it can be derived from.
//
// Each missing column contributes one edge per rule: an extracted rule
// reaches the available data directly when context passages exist, and
// a derived rule reaches the available data when every dependency is
// already present, otherwise its first missing dependency. Breadth-first
// distance to the available data then gives the visit order. Ties keep
// schema declaration order, and columns no rule can reach sort last so
// their defaults apply after every inference has run. Dependency cycles
// leave their members unreachable rather than erroring.
func (s *Schema) InferenceOrder(missing []string, contextAvailable bool) []ColumnSpec {
	missingSet := make(map[string]bool, len(missing))
	for _, name := range missing {
		missingSet[name] = true
	}

	var cols []ColumnSpec
	index := make(map[string]int)
	for _, col := range s.Columns {
		if missingSet[col.Name] {
			index[col.Name] = len(cols)
			cols = append(cols, col)
		}
	}

	const available = -1
	edges := make([][]int, len(cols))
	for i, col := range cols {
		for _, rule := range col.Rules {
			if rule.Kind() == RuleExtracted {
				if contextAvailable {
					edges[i] = append(edges[i], available)
				}
				continue
			}
			target := available
			for _, dep := range rule.DependsOn() {
				if j, ok := index[dep]; ok {
					target = j
					break
				}
			}
			edges[i] = append(edges[i], target)
		}
	}

	const unreachable = int(^uint(0) >> 1)
	dist := make([]int, len(cols))
	rev := make([][]int, len(cols))
	var queue []int
	for i := range dist {
		dist[i] = unreachable
	}
	for i, targets := range edges {
		for _, j := range targets {
			if j == available {
				if dist[i] == unreachable {
					dist[i] = 1
					queue = append(queue, i)
				}
			} else {
				rev[j] = append(rev[j], i)
			}
		}
	}
	for len(queue) > 0 {
		j := queue[0]
		queue = queue[1:]
		for _, i := range rev[j] {
			if dist[i] == unreachable {
				dist[i] = dist[j] + 1
				queue = append(queue, i)
			}
		}
	}

	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return dist[order[a]] < dist[order[b]]
	})

	sorted := make([]ColumnSpec, len(cols))
	for k, i := range order {
		sorted[k] = cols[i]
	}
	return sorted
}
