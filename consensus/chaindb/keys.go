package chaindb

import (
	"encoding/binary"

	"github.com/bchcore/node/consensus/deployment"
)

// Key prefixes, one byte each, keeping every record family in its own
// lexicographic range so prefix iteration (Prune, Scan) stays
// cheap and so a height-ordered key never collides with a hash-ordered one.
const (
	prefixTip         byte = 0x01
	prefixEntry       byte = 0x02 // entry:<hash32>        -> encoded ChainEntry
	prefixEntryHeight byte = 0x03 // entryHeight:<height8> -> hash32 (best-chain entry at height)
	prefixBlock       byte = 0x04 // block:<hash32>        -> encoded Block
	prefixCoin        byte = 0x05 // coin:<hash32><index4> -> encoded Coin
	prefixCachedState byte = 0x06 // state:<bit1><hash32>  -> state byte
	prefixUndo        byte = 0x07 // undo:<hash32>         -> encoded undo record
)

func tipKey() []byte { return []byte{prefixTip} }

func entryKey(hash [32]byte) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixEntry
	copy(k[1:], hash[:])
	return k
}

func entryHeightKey(height uint64) []byte {
	k := make([]byte, 1+8)
	k[0] = prefixEntryHeight
	binary.BigEndian.PutUint64(k[1:], height)
	return k
}

func blockKey(hash [32]byte) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixBlock
	copy(k[1:], hash[:])
	return k
}

func coinKey(hash [32]byte, index uint32) []byte {
	k := make([]byte, 1+32+4)
	k[0] = prefixCoin
	copy(k[1:33], hash[:])
	binary.BigEndian.PutUint32(k[33:], index)
	return k
}

func cachedStateKey(bit deployment.BitNumber, hash [32]byte) []byte {
	k := make([]byte, 1+1+32)
	k[0] = prefixCachedState
	k[1] = byte(bit)
	copy(k[2:], hash[:])
	return k
}

func undoKey(hash [32]byte) []byte {
	k := make([]byte, 1+32)
	k[0] = prefixUndo
	copy(k[1:], hash[:])
	return k
}

// entryHeightKey uses big-endian height so lexicographic byte order matches
// numeric order, the way height-ordered keys are encoded across the pack's
// leveldb-backed stores (e.g. blockdag's block-index keys) so a range scan
// walks entries from genesis upward without a secondary sort.
