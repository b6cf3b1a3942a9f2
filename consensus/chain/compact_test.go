package chain

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompactToBigKnownValues(t *testing.T) {
	require.Equal(t, big.NewInt(0), CompactToBig(0))
	require.Equal(t, big.NewInt(0x123456), CompactToBig(0x03123456))
	require.Equal(t, big.NewInt(0x12345600), CompactToBig(0x04123456))
}

func TestCompactToBigNegative(t *testing.T) {
	got := CompactToBig(0x04800056)
	require.Equal(t, -1, got.Sign())
	require.Equal(t, big.NewInt(-0x5600), got)
}

func TestCompactRoundTrip(t *testing.T) {
	cases := []uint32{0x1d00ffff, 0x1b0404cb, 0x207fffff, 0x04123456, 0x03123456}
	for _, compact := range cases {
		n := CompactToBig(compact)
		got := BigToCompact(n)
		require.Equal(t, compact, got, "round trip for 0x%08x", compact)
	}
}

func TestBigToCompactZero(t *testing.T) {
	require.EqualValues(t, 0, BigToCompact(big.NewInt(0)))
}
