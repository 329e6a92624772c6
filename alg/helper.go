package alg

import (
	"github.com/amsen20/leovnf/internal/model"
	"github.com/amsen20/leovnf/logging"
	"github.com/amsen20/leovnf/statistics"
	"github.com/emirpasic/gods/trees/binaryheap"
)

var log = logging.Get()

// candidate is one scored option. index is its discovery order and breaks
// score ties.
type candidate[Obj any] struct {
	index  int
	score  float64
	object Obj
}

func candidateComparator[Obj any](a, b interface{}) int {
	candA := a.(*candidate[Obj])
	candB := b.(*candidate[Obj])

	if candA.score < candB.score {
		return -1
	}
	if candA.score > candB.score {
		return 1
	}

	// equal scores, first discovered goes first
	return candA.index - candB.index
}

// rankCandidates returns the candidates from best to worst: lowest score
// first, ties by discovery order.
func rankCandidates[Obj any](candidates []*candidate[Obj]) []*candidate[Obj] {
	orderer := binaryheap.NewWith(candidateComparator[Obj])
	for _, cand := range candidates {
		orderer.Push(cand)
	}

	ret := make([]*candidate[Obj], 0, len(candidates))
	for !orderer.Empty() {
		first, _ := orderer.Pop()
		ret = append(ret, first.(*candidate[Obj]))
	}

	return ret
}

// record adds an entry to the report and counts its reason.
func record(report *model.Report, tally *statistics.Tally, entry model.ReportEntry) {
	report.Add(entry)
	tally.Change(entry.Reason.String(), 1)
}
