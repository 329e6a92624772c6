package model

import (
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

type Reason int

const (
	ACCEPTED Reason = iota
	REJECT_CAPACITY
	REJECT_CEILING
	REJECT_UNREACHABLE
	REJECT_UNKNOWN
	REJECT_UNSTABLE
	REJECT_SCORE
)

var reasonNames = map[Reason]string{
	ACCEPTED:           "accepted",
	REJECT_CAPACITY:    "insufficient_capacity",
	REJECT_CEILING:     "ceiling_exceeded",
	REJECT_UNREACHABLE: "unreachable",
	REJECT_UNKNOWN:     "unknown_resources",
	REJECT_UNSTABLE:    "unstable",
	REJECT_SCORE:       "outscored",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}

	return fmt.Sprintf("reason(%d)", int(r))
}

func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// ReportEntry records one candidate considered during a pass and why it was
// kept or rejected.
type ReportEntry struct {
	Subject string  `json:"subject" yaml:"subject"`
	Node    string  `json:"node,omitempty" yaml:"node,omitempty"`
	VNF     string  `json:"vnf,omitempty" yaml:"vnf,omitempty"`
	Reason  Reason  `json:"reason" yaml:"reason"`
	Score   float64 `json:"score,omitempty" yaml:"score,omitempty"`
	Detail  string  `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Report is the audit trail of a placement or migration pass. It is safe for
// concurrent use.
type Report struct {
	Entries []ReportEntry `json:"entries" yaml:"entries"`

	mutex sync.Mutex
}

func NewReport() *Report {
	return &Report{}
}

func (r *Report) Add(entry ReportEntry) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.Entries = append(r.Entries, entry)
}

// Merge appends the entries of o in order.
func (r *Report) Merge(o *Report) {
	if o == nil {
		return
	}

	o.mutex.Lock()
	entries := append([]ReportEntry(nil), o.Entries...)
	o.mutex.Unlock()

	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.Entries = append(r.Entries, entries...)
}

// Filter returns the entries with the given reason.
func (r *Report) Filter(reason Reason) []ReportEntry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var ret []ReportEntry
	for _, entry := range r.Entries {
		if entry.Reason == reason {
			ret = append(ret, entry)
		}
	}

	return ret
}

// ForNode returns the entries about one node.
func (r *Report) ForNode(node string) []ReportEntry {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var ret []ReportEntry
	for _, entry := range r.Entries {
		if entry.Node == node {
			ret = append(ret, entry)
		}
	}

	return ret
}

func (r *Report) String() string {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	bytes, _ := yaml.Marshal(struct {
		Entries []ReportEntry `yaml:"entries"`
	}{r.Entries})
	return string(bytes)
}
