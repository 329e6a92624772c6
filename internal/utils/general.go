package utils

import (
	"hash/fnv"

	"github.com/emirpasic/gods/sets/treeset"
)

func Hash(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32())
}

// NewNodeSet returns an ordered set of node ids.
func NewNodeSet(nodes ...string) *treeset.Set {
	set := treeset.NewWithStringComparator()
	for _, node := range nodes {
		set.Add(node)
	}

	return set
}

// NodeSetValues returns the ids of a node set in ascending order.
func NodeSetValues(set *treeset.Set) []string {
	values := set.Values()
	ret := make([]string, 0, len(values))
	for _, v := range values {
		ret = append(ret, v.(string))
	}

	return ret
}

// Dedupe keeps the first occurrence of every string, preserving order.
func Dedupe(s []string) []string {
	seen := make(map[string]bool)
	ret := make([]string, 0, len(s))
	for _, v := range s {
		if seen[v] {
			continue
		}
		seen[v] = true
		ret = append(ret, v)
	}

	return ret
}
