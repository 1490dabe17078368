package splitter_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splithid/splitter"
	"splithid/transport/null"
)

func TestKeepaliveTransmitsEveryDeviceWithoutKeyEvents(t *testing.T) {
	tr := null.New()
	s, err := splitter.New(splitter.DefaultMapping(), tr, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	ka := splitter.NewKeepalive(s, time.Millisecond, nil)
	done := make(chan error, 1)
	go func() { done <- ka.Run(ctx) }()

	// Two full rounds, burst included, is enough to prove periodic liveness.
	require.Eventually(t, func() bool {
		return len(tr.Transmissions()) >= 2*s.DeviceCount()
	}, 2*time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	sent := tr.Transmissions()
	require.GreaterOrEqual(t, len(sent), 2*s.DeviceCount())

	// Every round covers all devices in ascending report ID order, so the
	// stream is a repeating 0x10..0x14 cycle of all-zero snapshots.
	for i, tx := range sent {
		assert.Equal(t, uint8(0x10+i%s.DeviceCount()), tx.ReportID, "transmission %d", i)
		assert.Len(t, tx.Report, splitter.ReportSize)
		assert.Equal(t, tx.ReportID, tx.Report[0])
		for _, b := range tx.Report[1:] {
			assert.Equal(t, uint8(0), b)
		}
	}
}

func TestKeepaliveStartupBurst(t *testing.T) {
	tr := null.New()
	s, err := splitter.New(splitter.DefaultMapping(), tr, nil)
	require.NoError(t, err)

	// A long interval isolates the startup burst from periodic ticks.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ka := splitter.NewKeepalive(s, time.Hour, nil)
	go ka.Run(ctx)

	want := splitter.DefaultBurstCount * s.DeviceCount()
	require.Eventually(t, func() bool {
		return len(tr.Transmissions()) >= want
	}, 2*time.Second, time.Millisecond, "startup burst must retransmit several full snapshots")
}
