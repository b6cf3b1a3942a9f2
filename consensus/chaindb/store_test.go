package chaindb

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bchcore/node/consensus/chain"
	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/events"
	"github.com/bchcore/node/consensus/txscript"
)

func outpointAt(hash chain.Hash, index uint32) txscript.Outpoint {
	return txscript.Outpoint{Hash: hash, Index: index}
}

func fakeTxOut(value int64) *txscript.TxOut {
	return &txscript.TxOut{Value: value}
}

func testParams() *deployment.Params {
	p := deployment.MainnetParams
	p.CheckpointsEnabled = false
	return &p
}

func seedGenesis(t *testing.T, db *MemStore, params *deployment.Params, baseTime int64) *chain.ChainEntry {
	t.Helper()
	genesisBlock := &chain.Block{Header: chain.Header{Time: baseTime, Bits: params.PowLimitBits, Version: 1}}
	hash := genesisBlock.Hash()
	params.GenesisHash = hash

	genesis := &chain.ChainEntry{Hash: hash, Height: 0, Time: baseTime, Bits: params.PowLimitBits, Version: 1, Chainwork: big.NewInt(1)}
	require.NoError(t, db.Save(genesis, genesisBlock, nil))
	return genesis
}

// TestMemStoreSatisfiesChainDB exercises MemStore through the real Chain
// type the way production code would use it, confirming Save/GetTip/
// GetPrevious round-trip correctly through the codec and key scheme.
func TestMemStoreSatisfiesChainDB(t *testing.T) {
	params := testParams()
	db := NewMemStore()
	baseTime := int64(1700000000)
	genesis := seedGenesis(t, db, params, baseTime)

	c := chain.New(params, db, events.NewBus(), 10, nil)
	require.NoError(t, c.Open())
	require.Equal(t, genesis.Hash, c.Tip().Hash)

	b1 := &chain.Block{Header: chain.Header{PrevHash: genesis.Hash, Time: baseTime + 600, Bits: params.PowLimitBits, Version: 1, Nonce: 1}}
	require.NoError(t, c.Add(b1, 0, "peer"))
	require.Equal(t, b1.Hash(), c.Tip().Hash)

	tip, ok := db.GetTip()
	require.True(t, ok)
	require.Equal(t, b1.Hash(), tip.Hash)

	prev, ok := db.GetPrevious(tip)
	require.True(t, ok)
	require.Equal(t, genesis.Hash, prev.Hash)

	storedBlock, ok := db.GetBlock(b1.Hash())
	require.True(t, ok)
	require.Equal(t, b1.Header, storedBlock.Header)
}

// TestMemStoreDisconnectRestoresSpentCoin checks the undo-record round trip
// directly: a coin spent while connecting a block must reappear with its
// original value once that block is disconnected.
func TestMemStoreDisconnectRestoresSpentCoin(t *testing.T) {
	db := NewMemStore()
	entry := &chain.ChainEntry{Hash: chain.Hash{1}, Height: 1}
	block := &chain.Block{Header: chain.Header{PrevHash: chain.Hash{0}}}

	op := outpointAt(chain.Hash{9}, 0)
	existing := &chain.Coin{Output: fakeTxOut(500), Height: 0, IsCoinbase: false}
	require.NoError(t, db.Save(&chain.ChainEntry{Hash: chain.Hash{0}, Height: 0}, &chain.Block{}, nil))
	db.put(coinKey(op.Hash, op.Index), encodeCoin(existing))

	view := chain.NewCoinView(db)
	view.Spend(op)
	newOp := outpointAt(chain.Hash{2}, 0)
	view.AddCoin(newOp, &chain.Coin{Output: fakeTxOut(999), Height: 1})

	require.NoError(t, db.Save(entry, block, view))
	require.False(t, db.HasCoin(op), "the spent coin should no longer be visible")
	require.True(t, db.HasCoin(newOp))

	_, err := db.Disconnect(entry, block)
	require.NoError(t, err)

	require.True(t, db.HasCoin(op), "disconnecting the block should restore the coin it spent")
	require.False(t, db.HasCoin(newOp), "disconnecting the block should remove the coin it created")

	restored, err := db.ReadCoin(op)
	require.NoError(t, err)
	require.Equal(t, existing, restored)
}

func TestMemStorePruneRemovesOldBlockBodiesOnly(t *testing.T) {
	db := NewMemStore()
	for h := uint64(0); h < 5; h++ {
		entry := &chain.ChainEntry{Hash: chain.Hash{byte(h)}, Height: h}
		block := &chain.Block{Header: chain.Header{Nonce: h}}
		require.NoError(t, db.Save(entry, block, nil))
	}
	require.NoError(t, db.Prune(3))

	_, ok := db.GetBlock(chain.Hash{0})
	require.False(t, ok, "blocks below keepHeight should be pruned")
	_, ok = db.GetBlock(chain.Hash{4})
	require.True(t, ok, "blocks at or above keepHeight should survive")

	_, ok = db.GetEntry(chain.Hash{0})
	require.True(t, ok, "entries are never pruned, only block bodies")
}

func TestMemStoreScanWalksInHeightOrder(t *testing.T) {
	db := NewMemStore()
	for _, h := range []uint64{2, 0, 1} {
		entry := &chain.ChainEntry{Hash: chain.Hash{byte(h)}, Height: h}
		require.NoError(t, db.Save(entry, &chain.Block{}, nil))
	}
	var heights []uint64
	require.NoError(t, db.Scan(func(e *chain.ChainEntry) error {
		heights = append(heights, e.Height)
		return nil
	}))
	require.Equal(t, []uint64{0, 1, 2}, heights)
}

func TestMemStoreCachedStateRoundTrip(t *testing.T) {
	db := NewMemStore()
	hash := chain.Hash{5}
	_, ok := db.GetCachedState(3, hash)
	require.False(t, ok)

	db.SetCachedState(3, hash, deployment.ThresholdLockedIn)
	state, ok := db.GetCachedState(3, hash)
	require.True(t, ok)
	require.Equal(t, deployment.ThresholdLockedIn, state)
}
