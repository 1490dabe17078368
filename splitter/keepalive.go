package splitter

import (
	"context"
	"log/slog"
	"time"
)

// Keepalive defaults. The interval matches the 5ms endpoint poll interval of
// a full-speed HID interrupt endpoint.
const (
	DefaultInterval   = 5 * time.Millisecond
	DefaultBurstCount = 5
	DefaultBurstPause = 10 * time.Millisecond
)

// Keepalive periodically retransmits every device's current report,
// independent of key events. Many host HID stacks stop considering a
// multi-report-ID interface present when it never emits traffic after
// enumeration; the keepalive guarantees liveness even while idle.
type Keepalive struct {
	splitter   *Splitter
	interval   time.Duration
	burstCount int
	burstPause time.Duration
	logger     *slog.Logger
}

// NewKeepalive builds a scheduler around s. A zero interval selects
// DefaultInterval.
func NewKeepalive(s *Splitter, interval time.Duration, logger *slog.Logger) *Keepalive {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Keepalive{
		splitter:   s,
		interval:   interval,
		burstCount: DefaultBurstCount,
		burstPause: DefaultBurstPause,
		logger:     logger,
	}
}

// Run transmits a startup burst and then ticks until ctx is cancelled.
// The burst sends several full snapshots with short pauses in between: hosts
// may drop the very first reports while still building their report
// descriptor tables, and the repeats paper over that enumeration race.
// Run must not be called from a time-critical path; give it its own
// goroutine.
func (k *Keepalive) Run(ctx context.Context) error {
	k.logger.Debug("keepalive started", "interval", k.interval, "burst", k.burstCount)
	for i := 0; i < k.burstCount; i++ {
		k.splitter.TransmitAll()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(k.burstPause):
		}
	}

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			k.logger.Debug("keepalive stopped")
			return ctx.Err()
		case <-ticker.C:
			k.splitter.TransmitAll()
		}
	}
}
