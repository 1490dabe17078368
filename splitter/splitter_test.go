package splitter_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"splithid/splitter"
	"splithid/transport/null"
)

func newTestSplitter(t *testing.T) (*splitter.Splitter, *null.Transport) {
	t.Helper()
	tr := null.New()
	s, err := splitter.New(splitter.DefaultMapping(), tr, nil)
	require.NoError(t, err)
	return s, tr
}

func TestPositionPressEndToEnd(t *testing.T) {
	s, tr := newTestSplitter(t)

	// Position 18 routes to device 1 under the default mapping.
	require.NoError(t, s.PositionPress(18, 0x1B))

	sent := tr.Transmissions()
	require.Len(t, sent, 1)
	assert.Equal(t, uint8(0x11), sent[0].ReportID)

	want := make([]byte, splitter.ReportSize)
	want[0] = 0x11 // BaseID + 1
	want[3] = 0x1B
	assert.Equal(t, want, sent[0].Report)

	// Releasing the position restores the all-zero report, same report ID.
	require.NoError(t, s.PositionRelease(18))
	sent = tr.Transmissions()
	require.Len(t, sent, 2)
	assert.Equal(t, uint8(0x11), sent[1].ReportID)
	want[3] = 0
	assert.Equal(t, want, sent[1].Report)
}

func TestPositionReleaseUsesRecordedKey(t *testing.T) {
	s, _ := newTestSplitter(t)

	// The key code routed at press time must be retracted on release even
	// though the upstream keymap would now resolve something else.
	require.NoError(t, s.PositionPress(24, splitter.KeyH))

	require.NoError(t, s.PositionRelease(24))
	r, err := s.Snapshot(2)
	require.NoError(t, err)
	assert.Equal(t, [splitter.MaxKeys]uint8{}, r.Keys)

	// A second release for the same position has no outstanding press.
	require.NoError(t, s.PositionRelease(24))
}

func TestPositionDoublePressSupersedes(t *testing.T) {
	s, _ := newTestSplitter(t)

	require.NoError(t, s.PositionPress(24, splitter.KeyH))
	// Same position pressed again with a layer-shifted key code; the newer
	// key supersedes the tracked one.
	require.NoError(t, s.PositionPress(24, splitter.KeyF1))

	require.NoError(t, s.PositionRelease(24))
	r, err := s.Snapshot(2)
	require.NoError(t, err)
	// KeyF1 was retracted; the stale KeyH stays until cleared.
	assert.Equal(t, uint8(splitter.KeyH), r.Keys[0])
	assert.Equal(t, uint8(0), r.Keys[1])
}

func TestRolloverDropsKeystroke(t *testing.T) {
	s, _ := newTestSplitter(t)

	for i := 0; i < splitter.MaxKeys; i++ {
		require.NoError(t, s.Press(0, splitter.KeyA+uint8(i)))
	}
	before, err := s.Snapshot(0)
	require.NoError(t, err)

	err = s.Press(0, splitter.KeyA+splitter.MaxKeys)
	assert.ErrorIs(t, err, splitter.ErrRollover)

	after, err := s.Snapshot(0)
	require.NoError(t, err)
	assert.Equal(t, before, after, "a rejected press must leave slots untouched")
}

func TestRolloverClearsTrackingEntry(t *testing.T) {
	s, tr := newTestSplitter(t)

	// Fill device 0 (positions 0-17) to capacity via positions.
	for i := 0; i < splitter.MaxKeys; i++ {
		require.NoError(t, s.PositionPress(uint16(i%18), splitter.KeyA+uint8(i)))
	}
	err := s.Press(0, splitter.KeyGrave)
	require.ErrorIs(t, err, splitter.ErrRollover)

	// An overflowing position press is dropped and not tracked: its release
	// must be a silent no-op with no transmission.
	require.ErrorIs(t, s.PositionPress(3, splitter.KeyEnter), splitter.ErrRollover)
	n := len(tr.Transmissions())
	require.NoError(t, s.PositionRelease(3))
	assert.Len(t, tr.Transmissions(), n, "release of a dropped keystroke must not transmit")
}

func TestModifiers(t *testing.T) {
	s, tr := newTestSplitter(t)

	require.NoError(t, s.RegisterModifier(1, splitter.ModLeftShift))
	require.NoError(t, s.RegisterModifier(1, splitter.ModLeftShift)) // idempotent
	require.NoError(t, s.RegisterModifier(1, splitter.ModRightAlt))

	r, err := s.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(splitter.ModLeftShift|splitter.ModRightAlt), r.Modifiers)

	require.NoError(t, s.UnregisterModifier(1, splitter.ModLeftShift))
	r, err = s.Snapshot(1)
	require.NoError(t, err)
	assert.Equal(t, uint8(splitter.ModRightAlt), r.Modifiers)

	// Every modifier mutation transmits.
	assert.Len(t, tr.Transmissions(), 4)
}

func TestClearAllPreservesModifiers(t *testing.T) {
	s, tr := newTestSplitter(t)

	require.NoError(t, s.RegisterModifier(0, splitter.ModLeftCtrl))
	require.NoError(t, s.Press(0, splitter.KeyA))
	require.NoError(t, s.Press(4, splitter.KeyB))
	tr.Reset()

	s.ClearAll()

	sent := tr.Transmissions()
	require.Len(t, sent, 5, "clear_all must transmit once per device, in order")
	for i, tx := range sent {
		assert.Equal(t, uint8(0x10+i), tx.ReportID, "devices must be cleared in ascending order")
	}
	r, err := s.Snapshot(0)
	require.NoError(t, err)
	assert.Equal(t, [splitter.MaxKeys]uint8{}, r.Keys)
	assert.Equal(t, uint8(splitter.ModLeftCtrl), r.Modifiers, "clear must not touch modifiers")
}

func TestInvalidArguments(t *testing.T) {
	s, tr := newTestSplitter(t)
	tr.Reset()

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"press bad device", func() error { return s.Press(9, splitter.KeyA) }, splitter.ErrInvalidDevice},
		{"release bad device", func() error { return s.Release(9, splitter.KeyA) }, splitter.ErrInvalidDevice},
		{"register mod bad device", func() error { return s.RegisterModifier(9, 1) }, splitter.ErrInvalidDevice},
		{"unregister mod bad device", func() error { return s.UnregisterModifier(9, 1) }, splitter.ErrInvalidDevice},
		{"clear bad device", func() error { return s.Clear(9) }, splitter.ErrInvalidDevice},
		{"snapshot bad device", func() error { _, err := s.Snapshot(9); return err }, splitter.ErrInvalidDevice},
		{"press bad position", func() error { return s.PositionPress(splitter.MaxPositions, splitter.KeyA) }, splitter.ErrInvalidPosition},
		{"release bad position", func() error { return s.PositionRelease(splitter.MaxPositions) }, splitter.ErrInvalidPosition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.call(), tt.want)
			assert.Empty(t, tr.Transmissions(), "rejected calls must have no side effects")
		})
	}
}

func TestRedundantOperationsAreSuccesses(t *testing.T) {
	s, tr := newTestSplitter(t)

	require.NoError(t, s.Press(0, splitter.KeyA))
	tr.Reset()
	assert.NoError(t, s.Press(0, splitter.KeyA), "double press is not an error")
	assert.NoError(t, s.Release(0, splitter.KeyZ), "releasing an up key is not an error")
	assert.NoError(t, s.PositionRelease(50), "release with no prior press is not an error")
	assert.Empty(t, tr.Transmissions(), "redundant operations must not retransmit")
}

func TestSetActiveTransitions(t *testing.T) {
	s, tr := newTestSplitter(t)
	require.True(t, s.Active(), "splitter must start active")

	require.NoError(t, s.Press(0, splitter.KeyA))
	tr.Reset()

	// Redundant activation has zero side effects.
	s.SetActive(true)
	assert.Empty(t, tr.Transmissions())

	// Deactivation clears every device once.
	s.SetActive(false)
	assert.False(t, s.Active())
	assert.Len(t, tr.Transmissions(), 5)
	r, err := s.Snapshot(0)
	require.NoError(t, err)
	assert.Equal(t, [splitter.MaxKeys]uint8{}, r.Keys)

	// While inactive, position events are dropped without error.
	tr.Reset()
	require.NoError(t, s.PositionPress(0, splitter.KeyA))
	assert.Empty(t, tr.Transmissions())

	// Activation clears and then snapshots every device so a freshly
	// enumerated host sees traffic immediately.
	s.SetActive(true)
	assert.Len(t, tr.Transmissions(), 10)

	// And again: the repeated toggle is a no-op.
	tr.Reset()
	s.SetActive(true)
	assert.Empty(t, tr.Transmissions())
}

func TestTransportFailureDoesNotRollBackState(t *testing.T) {
	s, tr := newTestSplitter(t)
	tr.FailWith(errors.New("wire unplugged"))

	require.NoError(t, s.Press(2, splitter.KeyJ), "transport failures must not surface from mutations")
	r, err := s.Snapshot(2)
	require.NoError(t, err)
	assert.Equal(t, uint8(splitter.KeyJ), r.Keys[0], "state stays authoritative after a failed transmit")

	// Once the wire recovers, the next send converges.
	tr.FailWith(nil)
	tr.Reset()
	s.TransmitAll()
	sent := tr.Transmissions()
	require.Len(t, sent, 5)
	assert.Equal(t, uint8(splitter.KeyJ), sent[2].Report[3])
}

func TestReconfigureSwapsClassifier(t *testing.T) {
	s, tr := newTestSplitter(t)

	require.NoError(t, s.PositionPress(18, splitter.KeyY))
	tr.Reset()

	m := splitter.DefaultMapping()
	// Re-route the first right-hand cluster to the catch-all device.
	m.Groups = m.Groups[:1]
	require.NoError(t, s.Reconfigure(m))

	assert.Len(t, tr.Transmissions(), 5, "a swap clears every device")
	assert.Equal(t, uint8(4), s.Classify(18))

	// Held keys were cleared with the swap; the stale release is a no-op.
	n := len(tr.Transmissions())
	require.NoError(t, s.PositionRelease(18))
	assert.Len(t, tr.Transmissions(), n)
}

func TestReconfigureRejectsShapeChanges(t *testing.T) {
	s, _ := newTestSplitter(t)

	m := splitter.DefaultMapping()
	m.Devices = 4
	m.CatchAll = 3
	m.Groups = m.Groups[:3]
	err := s.Reconfigure(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restart required")

	m = splitter.DefaultMapping()
	m.BaseID = 0x30
	err = s.Reconfigure(m)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restart required")
}
