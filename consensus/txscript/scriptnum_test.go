package txscript

import (
	"bytes"
	"testing"

	"github.com/bchcore/node/consensus/scripterror"
	"github.com/stretchr/testify/require"
)

func TestScriptNumBytesRoundTrip(t *testing.T) {
	tests := []int64{
		0, 1, -1, 127, 128, -128, 129, 255, 256, -256,
		32767, 32768, -32768, 1 << 20, -(1 << 20),
		2147483647, -2147483647,
	}
	for _, v := range tests {
		n := scriptNum(v)
		encoded := n.Bytes()
		decoded, err := makeScriptNum(encoded, true, maxScriptNumLen)
		require.NoError(t, err)
		require.Equal(t, v, decoded.Int64(), "round trip of %d via %x", v, encoded)
	}
}

func TestScriptNumMinimalEncodingRequired(t *testing.T) {
	// 0x0100 is not minimally encoded: it could be represented as a
	// single byte 0x00 is wrong (that's zero); the non-minimal case is a
	// redundant high zero byte, e.g. {0x01, 0x00} could drop to {0x01}.
	nonMinimal := []byte{0x01, 0x00}
	_, err := makeScriptNum(nonMinimal, true, defaultScriptNumLen)
	require.Error(t, err)
	require.True(t, scripterror.Is(err, scripterror.ErrInvalidNumberRange))

	// Without the minimality requirement it must decode fine.
	n, err := makeScriptNum(nonMinimal, false, defaultScriptNumLen)
	require.NoError(t, err)
	require.Equal(t, int64(1), n.Int64())
}

func TestScriptNumExceedsMaxLen(t *testing.T) {
	buf := bytes.Repeat([]byte{0xff}, maxScriptNumLen+1)
	_, err := makeScriptNum(buf, false, maxScriptNumLen)
	require.Error(t, err)
	require.True(t, scripterror.Is(err, scripterror.ErrInvalidNumberRange))
}

func TestScriptNumZeroIsEmpty(t *testing.T) {
	require.Equal(t, 0, len(scriptNum(0).Bytes()))
	n, err := makeScriptNum(nil, true, defaultScriptNumLen)
	require.NoError(t, err)
	require.Equal(t, int64(0), n.Int64())
}
