package txscript

import (
	"testing"

	"github.com/bchcore/node/consensus/scripterror"
	"github.com/stretchr/testify/require"
)

func TestStackPushPopByteArray(t *testing.T) {
	s := &stack{}
	s.PushByteArray([]byte{1, 2, 3})
	s.PushByteArray([]byte{4, 5})
	require.Equal(t, 2, s.Depth())

	top, err := s.PopByteArray()
	require.NoError(t, err)
	require.Equal(t, []byte{4, 5}, top)
	require.Equal(t, 1, s.Depth())
}

func TestStackPushPopBool(t *testing.T) {
	s := &stack{}
	s.PushBool(true)
	s.PushBool(false)

	v, err := s.PopBool()
	require.NoError(t, err)
	require.False(t, v)

	v, err = s.PopBool()
	require.NoError(t, err)
	require.True(t, v)
}

func TestStackNegativeZeroIsFalse(t *testing.T) {
	s := &stack{}
	s.PushByteArray([]byte{0x80})
	v, err := s.PopBool()
	require.NoError(t, err)
	require.False(t, v)
}

func TestStackPeekDoesNotRemove(t *testing.T) {
	s := &stack{}
	s.PushByteArray([]byte{1})
	s.PushByteArray([]byte{2})

	so, err := s.PeekByteArray(1)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, so)
	require.Equal(t, 2, s.Depth())
}

func TestStackOutOfRange(t *testing.T) {
	s := &stack{}
	s.PushByteArray([]byte{1})
	_, err := s.PeekByteArray(5)
	require.Error(t, err)
	require.True(t, scripterror.Is(err, scripterror.ErrInvalidStackOperation))
}

func TestStackNipN(t *testing.T) {
	s := &stack{}
	s.PushByteArray([]byte{1})
	s.PushByteArray([]byte{2})
	s.PushByteArray([]byte{3})

	require.NoError(t, s.NipN(1))
	require.Equal(t, 2, s.Depth())
	top, err := s.PeekByteArray(0)
	require.NoError(t, err)
	require.Equal(t, []byte{3}, top)
	bottom, err := s.PeekByteArray(1)
	require.NoError(t, err)
	require.Equal(t, []byte{1}, bottom)
}

func TestStackRotN(t *testing.T) {
	s := &stack{}
	s.PushByteArray([]byte{1})
	s.PushByteArray([]byte{2})
	s.PushByteArray([]byte{3})

	require.NoError(t, s.RotN(1))
	// 1 2 3 -> 2 3 1
	top, _ := s.PeekByteArray(0)
	require.Equal(t, []byte{1}, top)
	mid, _ := s.PeekByteArray(1)
	require.Equal(t, []byte{3}, mid)
	bot, _ := s.PeekByteArray(2)
	require.Equal(t, []byte{2}, bot)
}

func TestStackPickAndRoll(t *testing.T) {
	s := &stack{}
	s.PushByteArray([]byte{1})
	s.PushByteArray([]byte{2})
	s.PushByteArray([]byte{3})

	require.NoError(t, s.PickN(2))
	top, _ := s.PeekByteArray(0)
	require.Equal(t, []byte{1}, top)
	require.Equal(t, 4, s.Depth())

	require.NoError(t, s.RollN(3))
	top, _ = s.PeekByteArray(0)
	require.Equal(t, []byte{1}, top)
	require.Equal(t, 4, s.Depth())
}

func TestStackTuck(t *testing.T) {
	s := &stack{}
	s.PushByteArray([]byte{1})
	s.PushByteArray([]byte{2})

	require.NoError(t, s.Tuck())
	require.Equal(t, 3, s.Depth())
	a, _ := s.PeekByteArray(2)
	require.Equal(t, []byte{2}, a)
	b, _ := s.PeekByteArray(1)
	require.Equal(t, []byte{1}, b)
	c, _ := s.PeekByteArray(0)
	require.Equal(t, []byte{2}, c)
}
