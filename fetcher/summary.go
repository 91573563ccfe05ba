package fetcher

import (
	"sort"

	"dirpack/model"
)

// Summary aggregates the outcomes of a run.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
	Bytes     int64
	ByKind    map[model.ErrorKind]int
	// Failures is sorted by repository path.
	Failures []model.DownloadOutcome
}

func Summarize(outcomes []model.DownloadOutcome) Summary {
	s := Summary{
		Total:  len(outcomes),
		ByKind: make(map[model.ErrorKind]int),
	}
	for _, o := range outcomes {
		s.Bytes += o.Bytes
		if o.Success {
			s.Succeeded++
			continue
		}
		s.Failed++
		s.ByKind[o.Kind]++
		s.Failures = append(s.Failures, o)
	}
	sort.Slice(s.Failures, func(i, j int) bool {
		return s.Failures[i].Task.Path < s.Failures[j].Task.Path
	})
	return s
}

// OK reports whether every task succeeded.
func (s Summary) OK() bool {
	return s.Failed == 0
}
