package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bamsammich/fcp/internal/fserr"
	"github.com/bamsammich/fcp/internal/stats"
)

// CompletionSummary builds the final summary line.
// Format: done ✓  entries 48,917  dirs 312  size 2.1 GiB  avg 641 MiB/s  time 3m 17s  failed 0
func CompletionSummary(r stats.Result) string {
	avgSpeed := 0.0
	if r.Elapsed.Seconds() > 0 {
		avgSpeed = float64(r.Bytes()) / r.Elapsed.Seconds()
	}

	icon := "✓"
	if r.Failed > 0 {
		icon = "✗"
	}

	base := fmt.Sprintf("done %s  entries %s  dirs %s  size %s  avg %s  time %s",
		icon,
		FormatCount(r.Succeeded),
		FormatCount(r.DirsCreated),
		FormatBytes(r.Bytes()),
		FormatRate(avgSpeed),
		FormatDuration(r.Elapsed),
	)
	if r.Hardlinks > 0 {
		base += "  hardlinks " + FormatCount(r.Hardlinks)
	}
	if r.Warnings > 0 {
		base += "  warnings " + FormatCount(r.Warnings)
	}
	if r.Dropped > 0 {
		base += "  interrupted " + FormatCount(r.Dropped)
	}
	return base + "  failed " + FormatCount(r.Failed)
}

// FailureReport lists failure counts by kind, then the stored failure
// records. Returns "" when nothing failed.
func FailureReport(r stats.Result) string {
	if r.Failed == 0 {
		return ""
	}

	var b strings.Builder
	kinds := make([]fserr.Kind, 0, len(r.ByKind))
	for k := range r.ByKind {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return r.ByKind[kinds[i]] > r.ByKind[kinds[j]] })

	b.WriteString("failures:\n")
	for _, k := range kinds {
		fmt.Fprintf(&b, "  %-21s %s\n", k, FormatCount(r.ByKind[k]))
	}
	for _, f := range r.Failures {
		fmt.Fprintf(&b, "  %s: %v\n", f.Path, f.Err)
	}
	if r.Suppressed > 0 {
		fmt.Fprintf(&b, "  ... and %s more failures not shown\n", FormatCount(r.Suppressed))
	}
	return b.String()
}
