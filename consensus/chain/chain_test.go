package chain

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/require"

	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/events"
)

// dumpReorgState logs the competing chains' blocks via spew once a reorg
// assertion has already failed, so a CI failure shows the full before/after
// shape instead of just a bare "not equal" on hashes or counters.
func dumpReorgState(t *testing.T, before, after []*Block) {
	t.Helper()
	if !t.Failed() {
		return
	}
	t.Logf("disconnected chain:\n%s", spew.Sdump(before))
	t.Logf("reconnected chain:\n%s", spew.Sdump(after))
}

func testParamsForChain() *deployment.Params {
	p := deployment.MainnetParams
	p.CheckpointsEnabled = false
	return &p
}

// seedGenesis builds a genesis block from baseTime/bits, points params at
// its real hash, and inserts the corresponding entry directly into db
// (bypassing Chain.Add, which always rejects the genesis hash).
func seedGenesis(t *testing.T, db *memDB, params *deployment.Params, baseTime int64) *ChainEntry {
	t.Helper()
	genesisBlock := &Block{Header: Header{Time: baseTime, Bits: params.PowLimitBits, Version: 1}}
	hash := genesisBlock.Hash()
	params.GenesisHash = hash

	genesis := &ChainEntry{
		Hash:      hash,
		Height:    0,
		Time:      baseTime,
		Bits:      params.PowLimitBits,
		Version:   1,
		Chainwork: calcWork(params.PowLimitBits),
	}
	db.entries[genesis.Hash] = genesis
	db.byHeight[0] = append(db.byHeight[0], genesis)
	db.blocks[genesis.Hash] = genesisBlock
	db.tip = genesis
	return genesis
}

func TestChainAddExtendsTipLinearly(t *testing.T) {
	params := testParamsForChain()
	db := newMemDB()
	baseTime := int64(1700000000)
	genesis := seedGenesis(t, db, params, baseTime)

	c := New(params, db, events.NewBus(), 10, nil)
	require.NoError(t, c.Open())
	require.Equal(t, genesis.Hash, c.Tip().Hash)

	b1 := &Block{Header: Header{PrevHash: genesis.Hash, Time: baseTime + 600, Bits: params.PowLimitBits, Version: 1, Nonce: 1}}
	require.NoError(t, c.Add(b1, 0, "peer"))
	require.Equal(t, b1.Hash(), c.Tip().Hash)
	require.EqualValues(t, 1, c.Tip().Height)

	b2 := &Block{Header: Header{PrevHash: b1.Hash(), Time: baseTime + 1200, Bits: params.PowLimitBits, Version: 1, Nonce: 2}}
	require.NoError(t, c.Add(b2, 0, "peer"))
	require.Equal(t, b2.Hash(), c.Tip().Hash)
	require.EqualValues(t, 2, c.Tip().Height)
}

func TestChainAddOrphanWaitsForParent(t *testing.T) {
	params := testParamsForChain()
	db := newMemDB()
	baseTime := int64(1700000000)
	genesis := seedGenesis(t, db, params, baseTime)

	var tipEvents int
	bus := events.NewBus()
	bus.Subscribe(func(ev events.Event) {
		if ev.Type == events.Tip {
			tipEvents++
		}
	})

	c := New(params, db, bus, 10, nil)
	require.NoError(t, c.Open())

	b1 := &Block{Header: Header{PrevHash: genesis.Hash, Time: baseTime + 600, Bits: params.PowLimitBits, Version: 1, Nonce: 1}}
	b2 := &Block{Header: Header{PrevHash: b1.Hash(), Time: baseTime + 1200, Bits: params.PowLimitBits, Version: 1, Nonce: 2}}

	// b2 arrives before its parent b1: it should become an orphan, not the
	// new tip.
	require.NoError(t, c.Add(b2, 0, "peer"))
	require.Equal(t, genesis.Hash, c.Tip().Hash)
	require.Equal(t, 0, tipEvents)

	// Once b1 connects, handleOrphans should pull b2 in right behind it.
	require.NoError(t, c.Add(b1, 0, "peer"))
	require.Equal(t, b2.Hash(), c.Tip().Hash)
	require.EqualValues(t, 2, c.Tip().Height)
	require.Equal(t, 2, tipEvents)
}

// TestChainReorganizesToHeavierCompetitor mirrors spec.md §8's worked
// example: chain A (G -> a1 -> a2 -> a3) is current; a competing chain B
// (G -> b1 -> b2 -> b3 -> b4) arrives with greater chainwork (it is one
// block longer at equal difficulty) and should become the new tip,
// disconnecting A's three blocks, reconnecting b1..b3 in order and then
// connecting b4 itself.
func TestChainReorganizesToHeavierCompetitor(t *testing.T) {
	params := testParamsForChain()
	db := newMemDB()
	baseTime := int64(1700000000)
	genesis := seedGenesis(t, db, params, baseTime)

	var disconnects, reconnects, reorgs int
	bus := events.NewBus()
	bus.Subscribe(func(ev events.Event) {
		switch ev.Type {
		case events.Disconnect:
			disconnects++
		case events.Reconnect:
			reconnects++
		case events.Reorganize:
			reorgs++
		}
	})

	c := New(params, db, bus, 10, nil)
	require.NoError(t, c.Open())

	mk := func(prev Hash, nonce uint64, t int64) *Block {
		return &Block{Header: Header{PrevHash: prev, Time: t, Bits: params.PowLimitBits, Version: 1, Nonce: nonce}}
	}

	a1 := mk(genesis.Hash, 101, baseTime+600)
	require.NoError(t, c.Add(a1, 0, "peerA"))
	a2 := mk(a1.Hash(), 102, baseTime+1200)
	require.NoError(t, c.Add(a2, 0, "peerA"))
	a3 := mk(a2.Hash(), 103, baseTime+1800)
	require.NoError(t, c.Add(a3, 0, "peerA"))

	require.Equal(t, a3.Hash(), c.Tip().Hash)
	require.EqualValues(t, 3, c.Tip().Height)

	b1 := mk(genesis.Hash, 201, baseTime+601)
	require.NoError(t, c.Add(b1, 0, "peerB"))
	// b1 has less chainwork than a1..a3's combined tip, so it should be
	// saved as a competitor, not adopted.
	require.Equal(t, a3.Hash(), c.Tip().Hash)

	b2 := mk(b1.Hash(), 202, baseTime+1201)
	require.NoError(t, c.Add(b2, 0, "peerB"))
	require.Equal(t, a3.Hash(), c.Tip().Hash)

	b3 := mk(b2.Hash(), 203, baseTime+1801)
	require.NoError(t, c.Add(b3, 0, "peerB"))
	require.Equal(t, a3.Hash(), c.Tip().Hash)

	b4 := mk(b3.Hash(), 204, baseTime+2401)
	require.NoError(t, c.Add(b4, 0, "peerB"))

	defer dumpReorgState(t, []*Block{a1, a2, a3}, []*Block{b1, b2, b3, b4})

	require.Equal(t, b4.Hash(), c.Tip().Hash, "the longer, heavier chain should become the new tip")
	require.EqualValues(t, 4, c.Tip().Height)
	require.Equal(t, 1, reorgs)
	require.Equal(t, 3, disconnects, "a1, a2, a3 should each be disconnected")
	// b1..b3 are reconnected by the reorg walk; b4 itself (the block that
	// triggered the reorg) connects directly afterward, not as a reconnect.
	require.Equal(t, 3, reconnects, "b1, b2, b3 should each be reconnected in order")
}

func TestChainRejectsDuplicateBlock(t *testing.T) {
	params := testParamsForChain()
	db := newMemDB()
	baseTime := int64(1700000000)
	genesis := seedGenesis(t, db, params, baseTime)

	c := New(params, db, events.NewBus(), 10, nil)
	require.NoError(t, c.Open())

	b1 := &Block{Header: Header{PrevHash: genesis.Hash, Time: baseTime + 600, Bits: params.PowLimitBits, Version: 1, Nonce: 1}}
	require.NoError(t, c.Add(b1, 0, "peer"))

	err := c.Add(b1, 0, "peer")
	require.Error(t, err)
	verr, ok := err.(*VerifyError)
	require.True(t, ok)
	require.Equal(t, KindDuplicate, verr.Kind)
}

func TestChainRejectsGenesisReadd(t *testing.T) {
	params := testParamsForChain()
	db := newMemDB()
	baseTime := int64(1700000000)
	genesis := seedGenesis(t, db, params, baseTime)

	c := New(params, db, events.NewBus(), 10, nil)
	require.NoError(t, c.Open())

	genesisBlock := &Block{Header: Header{Time: baseTime, Bits: params.PowLimitBits, Version: 1}}
	require.Equal(t, genesis.Hash, genesisBlock.Hash())

	err := c.Add(genesisBlock, 0, "peer")
	require.Error(t, err)
}
