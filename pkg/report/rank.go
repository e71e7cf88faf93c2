package report

import (
	"fmt"
	"sort"
	"strings"
)

// Rank orders records by descending reliability score.  Ties break by
// ascending standard deviation, then by earlier start time.  The input is
// not modified.
func Rank(records []*Record) []*Record {
	ranked := make([]*Record, len(records))
	copy(ranked, records)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i].Analysis, ranked[j].Analysis
		if a.ReliabilityScore != b.ReliabilityScore {
			return a.ReliabilityScore > b.ReliabilityScore
		}
		if a.StdDev != b.StdDev {
			return a.StdDev < b.StdDev
		}
		return ranked[i].Metadata.StartTime.Before(ranked[j].Metadata.StartTime)
	})
	return ranked
}

// Summary renders a text report over a result history: per-device aggregate
// statistics and the ranking of individual runs.
func Summary(records []*Record) string {
	if len(records) == 0 {
		return "No test results found."
	}

	byType := make(map[string][]*Record)
	for _, rec := range records {
		t := rec.Metadata.DeviceType
		byType[t] = append(byType[t], rec)
	}
	types := make([]string, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Strings(types)

	var b strings.Builder
	rule := strings.Repeat("=", 60)
	fmt.Fprintf(&b, "%s\nAMMETER TEST RESULTS SUMMARY\n%s\n\n", rule, rule)
	fmt.Fprintf(&b, "Total runs: %d\n", len(records))

	for _, t := range types {
		recs := byType[t]
		var meanSum, sdSum, scoreSum float64
		outlierSum := 0
		for _, rec := range recs {
			meanSum += rec.Analysis.Mean
			sdSum += rec.Analysis.StdDev
			scoreSum += rec.Analysis.ReliabilityScore
			outlierSum += len(rec.Analysis.Outliers)
		}
		n := float64(len(recs))
		fmt.Fprintf(&b, "\n%s:\n", strings.ToUpper(t))
		fmt.Fprintf(&b, "  Runs: %d\n", len(recs))
		fmt.Fprintf(&b, "  Average mean current: %.3f A\n", meanSum/n)
		fmt.Fprintf(&b, "  Average std dev: %.3f A\n", sdSum/n)
		fmt.Fprintf(&b, "  Average outliers per run: %.1f\n", float64(outlierSum)/n)
		fmt.Fprintf(&b, "  Average reliability score: %.3f\n", scoreSum/n)
	}

	ranked := Rank(records)
	fmt.Fprintf(&b, "\n%s\nRANKING (most reliable first)\n%s\n", rule, rule)
	for i, rec := range ranked {
		fmt.Fprintf(&b, "%2d. %-10s score=%.3f stddev=%.3f run=%s\n",
			i+1, rec.Metadata.DeviceType, rec.Analysis.ReliabilityScore,
			rec.Analysis.StdDev, rec.Metadata.RunID)
	}
	return b.String()
}
