package diff

import (
	"fmt"
	"strings"
)

// DefaultMergeImpactRatio is the share of changed lines above which a merge
// is flagged for review.
const DefaultMergeImpactRatio = 0.5

// SignificantChanges lists changed lines that deserve attention.
type SignificantChanges struct {
	HasBreakingChanges bool     `json:"hasBreakingChanges"`
	BreakingChanges    []string `json:"breakingChanges"`
	Warnings           []string `json:"warnings"`
}

// DetectSignificantChanges scans the changed lines of r. Method signature
// and interface changes are breaking; dependency and configuration changes
// are warnings. A warning is also added when more than impactRatio of all
// lines changed; impactRatio <= 0 uses DefaultMergeImpactRatio.
func DetectSignificantChanges(r *Result, impactRatio float64) SignificantChanges {
	if impactRatio <= 0 {
		impactRatio = DefaultMergeImpactRatio
	}
	sc := SignificantChanges{BreakingChanges: []string{}, Warnings: []string{}}

	for _, d := range r.Diffs {
		if d.Type == Unchanged {
			continue
		}
		line := strings.TrimSpace(d.Content)

		if strings.Contains(d.Content, "(") && strings.Contains(d.Content, ")") && (d.Type == Modified || d.Type == Removed) {
			sc.BreakingChanges = append(sc.BreakingChanges, fmt.Sprintf("method signature changed at line %d: %s", d.LineNumber, line))
		}
		if strings.Contains(d.Content, "interface") || strings.Contains(d.Content, "export") {
			sc.BreakingChanges = append(sc.BreakingChanges, fmt.Sprintf("interface changed at line %d: %s", d.LineNumber, line))
		}
		if strings.Contains(d.Content, "import") || strings.Contains(d.Content, "from") {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("dependency changed at line %d: %s", d.LineNumber, line))
		}
		if strings.Contains(d.Content, "@") || strings.Contains(d.Content, "config") {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("configuration changed at line %d: %s", d.LineNumber, line))
		}
	}

	if n := len(r.Diffs); n > 0 {
		ratio := float64(r.TotalChanges) / float64(n)
		if ratio > impactRatio {
			sc.Warnings = append(sc.Warnings, fmt.Sprintf("%.0f%% of lines changed; review the merge result", ratio*100))
		}
	}

	sc.HasBreakingChanges = len(sc.BreakingChanges) > 0
	return sc
}

// Priority ranks a Recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Recommendation is a merge hint derived from a Result summary.
type Recommendation struct {
	Section  string   `json:"section"`
	Message  string   `json:"message"`
	Priority Priority `json:"priority"`
	Action   string   `json:"action"`
}

// Recommendations turns the summary of r into merge hints.
func Recommendations(r *Result) []Recommendation {
	recs := []Recommendation{}
	s := r.Summary

	if n := len(s.AddedMethods); n > 0 {
		recs = append(recs, Recommendation{
			Section:  "methods",
			Message:  fmt.Sprintf("%d method(s) exist only in biz; keep them in the biz layer", n),
			Priority: PriorityHigh,
			Action:   "keep_biz_methods",
		})
	}
	if n := len(s.ModifiedMethods); n > 0 {
		recs = append(recs, Recommendation{
			Section:  "methods",
			Message:  fmt.Sprintf("%d method(s) were modified; review them before merging", n),
			Priority: PriorityHigh,
			Action:   "review_modified_methods",
		})
	}
	if n := len(s.AddedImports); n > 0 {
		recs = append(recs, Recommendation{
			Section:  "imports",
			Message:  fmt.Sprintf("%d import(s) exist only in biz; merge them", n),
			Priority: PriorityMedium,
			Action:   "merge_imports",
		})
	}
	return recs
}
