package chaindb

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bchcore/node/consensus/chain"
	"github.com/bchcore/node/consensus/txscript"
)

func TestEncodeDecodeEntryRoundTrip(t *testing.T) {
	entry := &chain.ChainEntry{
		Hash:      chain.Hash{1, 2, 3},
		PrevHash:  chain.Hash{4, 5, 6},
		Height:    42,
		Time:      1700000000,
		Bits:      0x1d00ffff,
		Version:   4,
		Chainwork: big.NewInt(123456789),
	}
	got, err := decodeEntry(encodeEntry(entry))
	require.NoError(t, err)
	require.Equal(t, entry, got)
}

func TestEncodeDecodeEntryZeroChainwork(t *testing.T) {
	entry := &chain.ChainEntry{Hash: chain.Hash{9}, Chainwork: big.NewInt(0)}
	got, err := decodeEntry(encodeEntry(entry))
	require.NoError(t, err)
	require.Equal(t, 0, got.Chainwork.Sign())
}

func TestEncodeDecodeBlockRoundTrip(t *testing.T) {
	block := &chain.Block{
		Header: chain.Header{
			PrevHash:   chain.Hash{1},
			MerkleRoot: chain.Hash{2},
			Time:       1700000600,
			Bits:       0x1d00ffff,
			Version:    1,
			Nonce:      99,
		},
		Txs: []*txscript.Tx{
			{
				Version: 1,
				TxIn: []*txscript.TxIn{
					{PreviousOutpoint: txscript.Outpoint{Hash: [32]byte{7}, Index: 0xffffffff}, SignatureScript: []byte{0x51}, Sequence: 0xffffffff},
				},
				TxOut: []*txscript.TxOut{
					{Value: 5000000000, PkScript: []byte{0x76, 0xa9}},
				},
				LockTime: 0,
			},
			{
				Version: 2,
				TxIn: []*txscript.TxIn{
					{PreviousOutpoint: txscript.Outpoint{Hash: [32]byte{3}, Index: 1}, SignatureScript: nil, Sequence: 1},
				},
				TxOut: []*txscript.TxOut{
					{Value: 1000, PkScript: []byte{}},
					{Value: 2000, PkScript: []byte{0x01, 0x02, 0x03}},
				},
				LockTime: 500000,
			},
		},
	}
	got, err := decodeBlock(encodeBlock(block))
	require.NoError(t, err)
	require.Equal(t, block.Header, got.Header)
	require.Len(t, got.Txs, 2)
	require.Equal(t, block.Txs[0].TxIn[0].PreviousOutpoint, got.Txs[0].TxIn[0].PreviousOutpoint)
	require.Equal(t, block.Txs[1].TxOut[1].PkScript, got.Txs[1].TxOut[1].PkScript)
	require.Equal(t, block.Txs[1].LockTime, got.Txs[1].LockTime)
}

func TestEncodeDecodeCoinRoundTrip(t *testing.T) {
	coin := &chain.Coin{
		Output:     &txscript.TxOut{Value: 42, PkScript: []byte{0xde, 0xad, 0xbe, 0xef}},
		Height:     17,
		IsCoinbase: true,
	}
	got, err := decodeCoin(encodeCoin(coin))
	require.NoError(t, err)
	require.Equal(t, coin, got)
}

func TestEncodeDecodeUndoRoundTrip(t *testing.T) {
	undo := &undoRecord{
		Added: []txscript.Outpoint{{Hash: [32]byte{1}, Index: 0}},
		Removed: []undoRemoval{
			{
				Op:   txscript.Outpoint{Hash: [32]byte{2}, Index: 1},
				Coin: &chain.Coin{Output: &txscript.TxOut{Value: 100, PkScript: []byte{0x01}}, Height: 5, IsCoinbase: false},
			},
		},
	}
	got, err := decodeUndo(encodeUndo(undo))
	require.NoError(t, err)
	require.Equal(t, undo, got)
}

func TestDecodeEntryTruncatedReturnsError(t *testing.T) {
	_, err := decodeEntry([]byte{1, 2, 3})
	require.Error(t, err)
}
