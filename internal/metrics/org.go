package metrics

import (
	"sort"

	"github.com/maturity-tools/maturityd/internal/database"
)

// AggregateOrg folds the latest per-repo metric rows into organization-level
// samples. Integer metrics sum across repositories, float metrics take the
// median, and text metrics are dropped as non-aggregatable. A repo_count
// sample records how many repositories contributed.
func AggregateOrg(perRepo map[int64][]database.MetricRecord) []Sample {
	type key struct {
		scope string
		name  string
	}
	ints := make(map[key]int64)
	floats := make(map[key][]float64)

	for _, records := range perRepo {
		for _, m := range records {
			k := key{scope: m.Scope, name: m.Name}
			switch {
			case m.ValueInt != nil:
				ints[k] += *m.ValueInt
			case m.ValueFloat != nil:
				floats[k] = append(floats[k], *m.ValueFloat)
			}
		}
	}

	samples := make([]Sample, 0, len(ints)+len(floats)+1)
	for k, total := range ints {
		samples = append(samples, Sample{Scope: k.scope, Name: k.name, Value: total})
	}
	for k, values := range floats {
		samples = append(samples, Sample{Scope: k.scope, Name: k.name, Value: median(values)})
	}
	sort.Slice(samples, func(i, j int) bool {
		si, sj := samples[i], samples[j]
		if si.Scope != sj.Scope {
			return si.Scope < sj.Scope
		}
		return si.Name < sj.Name
	})

	samples = append(samples, Sample{Scope: "org", Name: "repo_count", Value: len(perRepo)})
	return samples
}
