package hotplug

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSettle is how long the card set must stay quiet before a change is reported.
const DefaultSettle = 500 * time.Millisecond

// Source produces uevents. Monitor is the netlink implementation.
type Source interface {
	Run(ctx context.Context, events chan<- Event) error
}

// Watch runs src and calls onChange once per burst of card events, after the card set has
// been quiet for settle. It blocks until ctx is done or src fails, and returns src's error.
func Watch(ctx context.Context, src Source, settle time.Duration, logger *slog.Logger, onChange func(Event)) error {
	if settle <= 0 {
		settle = DefaultSettle
	}
	events := make(chan Event, 16)
	errc := make(chan error, 1)
	go func() { errc <- src.Run(ctx, events) }()

	var pending *Event
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return <-errc
			}
			if !ev.ChangesEndpoints() {
				continue
			}
			card, _ := ev.Card()
			logger.Debug("Sound card event", "action", ev.Action, "card", card, "kobj", ev.KObj)
			pending = &ev
			timer.Reset(settle)
		case <-timer.C:
			if pending != nil {
				onChange(*pending)
				pending = nil
			}
		}
	}
}
