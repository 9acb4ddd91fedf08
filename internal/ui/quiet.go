package ui

import "github.com/bamsammich/fcp/internal/event"

// quietPresenter consumes events but produces no output. Events still reach
// the log.
type quietPresenter struct{}

func (p *quietPresenter) Run(events <-chan event.Event) error {
	for ev := range events {
		logEvent(ev)
	}
	return nil
}
