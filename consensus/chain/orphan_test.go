package chain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func orphanBlockWithNonce(prev Hash, nonce uint64) *Block {
	return &Block{Header: Header{PrevHash: prev, Nonce: nonce}}
}

func TestOrphanPoolStoreAndHas(t *testing.T) {
	p := newOrphanPool(0)
	var parent Hash
	parent[0] = 1
	b := orphanBlockWithNonce(parent, 1)

	p.store(b, "peer1", time.Now())
	require.True(t, p.has(b.Hash()))
}

func TestOrphanPoolOneSlotPerPrevHash(t *testing.T) {
	p := newOrphanPool(0)
	var parent Hash
	parent[0] = 2

	first := orphanBlockWithNonce(parent, 1)
	second := orphanBlockWithNonce(parent, 2)

	now := time.Now()
	p.store(first, "peer1", now)
	p.store(second, "peer2", now)

	require.False(t, p.has(first.Hash()))
	require.True(t, p.has(second.Hash()))
}

func TestOrphanPoolEvictsOldestAtCapacity(t *testing.T) {
	p := newOrphanPool(2)
	now := time.Now()

	var parentA, parentB, parentC Hash
	parentA[0], parentB[0], parentC[0] = 1, 2, 3

	a := orphanBlockWithNonce(parentA, 1)
	b := orphanBlockWithNonce(parentB, 2)
	c := orphanBlockWithNonce(parentC, 3)

	p.store(a, "peer", now)
	p.store(b, "peer", now.Add(time.Minute))
	require.True(t, p.has(a.Hash()))
	require.True(t, p.has(b.Hash()))

	p.store(c, "peer", now.Add(2*time.Minute))

	require.False(t, p.has(a.Hash()), "oldest orphan should have been evicted")
	require.True(t, p.has(b.Hash()))
	require.True(t, p.has(c.Hash()))
}

func TestOrphanPoolEvictsExpiredEntry(t *testing.T) {
	p := newOrphanPool(2)
	base := time.Now()

	var parentA, parentB, parentC Hash
	parentA[0], parentB[0], parentC[0] = 10, 20, 30

	a := orphanBlockWithNonce(parentA, 1)
	b := orphanBlockWithNonce(parentB, 2)
	c := orphanBlockWithNonce(parentC, 3)

	p.store(a, "peer", base)
	p.store(b, "peer", base.Add(10*time.Minute))

	// a is now 65 minutes old, past orphanExpiry; b is only 55 minutes old.
	p.store(c, "peer", base.Add(65*time.Minute))

	require.False(t, p.has(a.Hash()), "the expired orphan should have been evicted")
	require.True(t, p.has(b.Hash()))
	require.True(t, p.has(c.Hash()))
}

func TestOrphanPoolChildrenOfRemovesEntry(t *testing.T) {
	p := newOrphanPool(0)
	var parent Hash
	parent[0] = 5
	child := orphanBlockWithNonce(parent, 1)
	p.store(child, "peer", time.Now())

	children := p.childrenOf(parent)
	require.Len(t, children, 1)
	require.False(t, p.has(child.Hash()))
	require.Empty(t, p.childrenOf(parent))
}

func TestOrphanPoolPurge(t *testing.T) {
	p := newOrphanPool(0)
	var parent Hash
	parent[0] = 7
	p.store(orphanBlockWithNonce(parent, 1), "peer", time.Now())

	p.purge()

	require.Empty(t, p.byHash)
	require.Empty(t, p.byPrevHash)
}
