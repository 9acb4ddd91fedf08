package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/fcp/internal/event"
	"github.com/bamsammich/fcp/internal/stats"
)

// plainPresenter prints failures to stderr as they happen, one line per
// completed entry to stdout in verbose mode, and a single rewritten progress
// line on a terminal.
type plainPresenter struct {
	w        io.Writer
	errW     io.Writer
	stats    *stats.Collector
	dstRoot  string
	width    int
	interval time.Duration
	progress bool
	verbose  bool
	drawn    bool
}

func (p *plainPresenter) Run(events <-chan event.Event) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clearProgress()
				return nil
			}
			logEvent(ev)
			p.handleEvent(ev)
		case <-ticker.C:
			if p.stats != nil {
				p.stats.Tick()
			}
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev event.Event) {
	path := StripRoot(p.dstRoot, ev.DstPath)
	if path == "" {
		path = ev.Path
	}
	switch ev.Type {
	case event.Failed:
		p.clearProgress()
		fmt.Fprintf(p.errW, "fcp: %s: %v\n", ev.Kind(), ev.Error)
	case event.MetadataWarning:
		if p.verbose {
			p.clearProgress()
			fmt.Fprintf(p.errW, "warning: %s: %v\n", path, ev.Error)
		}
	case event.FileCompleted:
		if p.verbose {
			p.clearProgress()
			fmt.Fprintf(p.w, "%s  %s\n", path, FormatBytes(ev.Size))
		}
	case event.SymlinkCreated, event.SpecialCreated, event.HardlinkCreated, event.DirCreated:
		if p.verbose {
			p.clearProgress()
			fmt.Fprintf(p.w, "%s  %s\n", path, ev.Type)
		}
	case event.VerifyStarted:
		p.clearProgress()
		fmt.Fprintln(p.w, "verifying...")
	case event.VerifyFailed:
		p.clearProgress()
		fmt.Fprintf(p.w, "MISMATCH: %s\n", ev.Path)
	case event.DirFinalized, event.VerifyOK:
		// silent in plain mode
	}
}

func (p *plainPresenter) printProgress() {
	if !p.progress || p.stats == nil {
		return
	}
	snap := p.stats.Snapshot()
	line := fmt.Sprintf("%s entries  %s  %s  failed %s",
		FormatCount(snap.Succeeded),
		FormatBytes(snap.Bytes()),
		FormatRate(p.stats.RollingSpeed(5)),
		FormatCount(snap.Failed),
	)
	fmt.Fprintf(p.errW, "\r\033[K%s", Truncate(line, p.width))
	p.drawn = true
}

func (p *plainPresenter) clearProgress() {
	if p.drawn {
		fmt.Fprint(p.errW, "\r\033[K")
		p.drawn = false
	}
}
