package deployment

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeHistory struct {
	mtp     map[uint64]int64
	signals map[uint64]uint64 // height -> signal count for the window ending there
}

func (h *fakeHistory) WindowStart(height uint64, minerWindow uint64) uint64 {
	return (height / minerWindow) * minerWindow
}

func (h *fakeHistory) SignalCount(_ BitNumber, height uint64, minerWindow uint64) uint64 {
	return h.signals[height]
}

func (h *fakeHistory) MTPAt(height uint64) int64 {
	return h.mtp[height]
}

func TestFlagsHas(t *testing.T) {
	f := ScriptP2SH | ScriptDERSig
	require.True(t, f.Has(ScriptP2SH))
	require.True(t, f.Has(ScriptP2SH|ScriptDERSig))
	require.False(t, f.Has(ScriptLowS))
}

func TestStandardFlagsSupersetOfMandatory(t *testing.T) {
	require.True(t, Flags(StandardFlags).Has(MandatoryFlags))
}

func TestVersionBitsStateProgression(t *testing.T) {
	RegisterDeployment(BitNumber(99), 1000, 2000, 3, 10)

	hist := &fakeHistory{
		mtp:     map[uint64]int64{0: 500, 10: 500},
		signals: map[uint64]uint64{19: 0},
	}
	cache := NewVersionBitsCache()
	require.Equal(t, ThresholdDefined, cache.State(BitNumber(99), 15, 0, hist))

	hist.mtp[10] = 1500
	cache2 := NewVersionBitsCache()
	require.Equal(t, ThresholdStarted, cache2.State(BitNumber(99), 15, 0, hist))
}

func TestVersionBitsLocksInOnThreshold(t *testing.T) {
	RegisterDeployment(BitNumber(98), 1000, 5000, 2, 10)
	hist := &fakeHistory{
		mtp:     map[uint64]int64{0: 1500, 10: 1600},
		signals: map[uint64]uint64{19: 2},
	}
	cache := NewVersionBitsCache()
	state := cache.State(BitNumber(98), 15, 0, hist)
	require.Equal(t, ThresholdLockedIn, state)
}
