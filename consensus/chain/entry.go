package chain

import (
	"math/big"

	"github.com/bchcore/node/consensus/txscript"
)

// Hash is a double-SHA256 block identifier, little-endian like every other
// hash in this core.
type Hash [32]byte

// Header is the subset of a block header the chain validates and stores
// per entry.
type Header struct {
	PrevHash   Hash
	MerkleRoot Hash
	Time       int64
	Bits       uint32
	Version    int32
	Nonce      uint64
}

// Block is a full header plus its transactions, the unit Chain.Add
// consumes.
type Block struct {
	Header Header
	Txs    []*txscript.Tx
}

// Hash computes the block's identifying hash. Placeholder double-SHA256
// over the header fields the way every Bitcoin-family header hash works;
// real serialization wiring is left to the caller's wire-format module
// (out of this core's scope per spec.md §1's non-goals).
func (b *Block) Hash() Hash {
	return hashHeader(b.Header)
}

// ChainEntry is one link in the accepted chain: everything needed to
// recompute chainwork and reconstruct DeploymentState without touching the
// full block body.
type ChainEntry struct {
	Hash      Hash
	PrevHash  Hash
	Height    uint64
	Time      int64
	Bits      uint32
	Version   int32
	Chainwork *big.Int
}

// newEntry builds the ChainEntry for block given its (already validated)
// parent entry, accumulating chainwork.
func newEntry(block *Block, prev *ChainEntry) *ChainEntry {
	work := calcWork(block.Header.Bits)
	total := new(big.Int)
	if prev != nil {
		total.Set(prev.Chainwork)
	}
	total.Add(total, work)

	height := uint64(0)
	if prev != nil {
		height = prev.Height + 1
	}

	return &ChainEntry{
		Hash:      block.Hash(),
		PrevHash:  block.Header.PrevHash,
		Height:    height,
		Time:      block.Header.Time,
		Bits:      block.Header.Bits,
		Version:   block.Header.Version,
		Chainwork: total,
	}
}

// calcWork computes a single block's proof-of-work contribution,
// 2^256 / (target+1), the standard Bitcoin chainwork measure.
func calcWork(bits uint32) *big.Int {
	target := CompactToBig(bits)
	if target.Sign() <= 0 {
		return big.NewInt(0)
	}
	// (2^256) / (target + 1)
	denominator := new(big.Int).Add(target, bigOne)
	numerator := new(big.Int).Lsh(bigOne, 256)
	return numerator.Div(numerator, denominator)
}

var bigOne = big.NewInt(1)
