package executor

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	catalog "apitest-backend"
)

var ErrDependencyCycle = errors.New("dependency cycle")

// Order sorts tests so every test runs after the test it depends on. Ties are
// broken by ascending id, which makes the order deterministic. Dependencies on
// tests outside the batch do not constrain the order.
func Order(tests []catalog.TestCase) ([]catalog.TestCase, error) {
	byID := make(map[int64]catalog.TestCase, len(tests))
	for _, tc := range tests {
		byID[tc.ID] = tc
	}
	indegree := make(map[int64]int, len(byID))
	dependents := make(map[int64][]int64, len(byID))
	for id, tc := range byID {
		indegree[id] = 0
		if tc.DependencyID == nil {
			continue
		}
		dep := *tc.DependencyID
		if _, ok := byID[dep]; !ok {
			continue
		}
		indegree[id]++
		dependents[dep] = append(dependents[dep], id)
	}

	ready := []int64{}
	for id, n := range indegree {
		if n == 0 {
			ready = append(ready, id)
		}
	}
	sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })

	ordered := make([]catalog.TestCase, 0, len(byID))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		ordered = append(ordered, byID[id])
		for _, next := range dependents[id] {
			indegree[next]--
			if indegree[next] == 0 {
				ready = insertSorted(ready, next)
			}
		}
	}
	if len(ordered) != len(byID) {
		return nil, fmt.Errorf("%w: %s", ErrDependencyCycle, describeCycle(byID, indegree))
	}
	return ordered, nil
}

func insertSorted(ids []int64, id int64) []int64 {
	i := sort.Search(len(ids), func(i int) bool { return ids[i] >= id })
	ids = append(ids, 0)
	copy(ids[i+1:], ids[i:])
	ids[i] = id
	return ids
}

// describeCycle walks dependency links from the lowest blocked id until one
// repeats. Each test has at most one dependency, so the walk ends on a cycle.
func describeCycle(byID map[int64]catalog.TestCase, indegree map[int64]int) string {
	start := int64(-1)
	for id, n := range indegree {
		if n > 0 && (start == -1 || id < start) {
			start = id
		}
	}
	seen := map[int64]int{}
	path := []int64{}
	for id := start; ; {
		if at, ok := seen[id]; ok {
			path = append(path[at:], id)
			break
		}
		seen[id] = len(path)
		path = append(path, id)
		id = *byID[id].DependencyID
	}
	parts := make([]string, len(path))
	for i, id := range path {
		parts[i] = fmt.Sprint(id)
	}
	return "ids " + strings.Join(parts, " -> ")
}
