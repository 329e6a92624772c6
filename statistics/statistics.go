// Package statistics counts what happened during one planning pass, keyed by
// free-form labels such as rejection reasons.
package statistics

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

type Tally struct {
	dataMap map[string]int

	mutex sync.Mutex
}

func New() *Tally {
	return &Tally{
		dataMap: make(map[string]int),
	}
}

func (t *Tally) Set(key string, value int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.dataMap[key] = value
}

func (t *Tally) Change(key string, value int) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	t.dataMap[key] += value
}

func (t *Tally) Get(key string) int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	return t.dataMap[key]
}

// Snapshot returns a copy of the counters.
func (t *Tally) Snapshot() map[string]int {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	ret := make(map[string]int, len(t.dataMap))
	for key, value := range t.dataMap {
		ret[key] = value
	}

	return ret
}

func (t *Tally) Display() string {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	keys := make([]string, 0, len(t.dataMap))
	for key := range t.dataMap {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Statistics results are:\n")
	for _, key := range keys {
		fmt.Fprintf(&b, "Number of %s is %d\n", key, t.dataMap[key])
	}

	return b.String()
}
