package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/fcp/internal/fserr"
	"github.com/bamsammich/fcp/internal/stats"
)

func TestCompletionSummary(t *testing.T) {
	s := CompletionSummary(stats.Result{
		Succeeded:     1200,
		DirsCreated:   3,
		BytesZeroCopy: 1 << 20,
		Elapsed:       2 * time.Second,
	})
	assert.True(t, strings.HasPrefix(s, "done ✓"))
	assert.Contains(t, s, "entries 1,200")
	assert.Contains(t, s, "dirs 3")
	assert.Contains(t, s, "size 1.0 MiB")
	assert.Contains(t, s, "avg 512 KiB/s")
	assert.Contains(t, s, "failed 0")
	assert.NotContains(t, s, "warnings")
}

func TestCompletionSummaryFailed(t *testing.T) {
	s := CompletionSummary(stats.Result{Failed: 2, Warnings: 1, Dropped: 5})
	assert.True(t, strings.HasPrefix(s, "done ✗"))
	assert.Contains(t, s, "warnings 1")
	assert.Contains(t, s, "interrupted 5")
	assert.Contains(t, s, "failed 2")
}

func TestFailureReport(t *testing.T) {
	assert.Empty(t, FailureReport(stats.Result{}))

	r := stats.Result{
		Failed: 5,
		ByKind: map[fserr.Kind]int64{
			fserr.PermissionDenied: 4,
			fserr.TypeMismatch:     1,
		},
		Failures: []stats.Failure{
			{Path: "/src/a", Kind: fserr.PermissionDenied, Err: errors.New("open /src/a: permission denied")},
			{Path: "/src/b", Kind: fserr.TypeMismatch, Err: errors.New("collide /dst/b: source is regular, destination is directory")},
		},
		Suppressed: 3,
	}
	report := FailureReport(r)
	lines := strings.Split(strings.TrimSpace(report), "\n")

	assert.Equal(t, "failures:", lines[0])
	assert.Contains(t, lines[1], "PermissionDenied")
	assert.Contains(t, lines[1], "4")
	assert.Contains(t, lines[2], "TypeMismatch")
	assert.Contains(t, report, "/src/a: open /src/a: permission denied")
	assert.Equal(t, "  ... and 3 more failures not shown", lines[len(lines)-1])
}
