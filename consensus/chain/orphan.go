package chain

import "time"

const (
	defaultMaxOrphans = 20
	orphanExpiry      = time.Hour
)

// orphanBlock is a received block whose parent is not yet known, held
// until the parent arrives or the pool evicts it. Grounded on
// blockdag/orphans.go's orphanBlock{block, expiration} plus the
// per-prev-hash single-slot rule spec.md requires.
type orphanBlock struct {
	block      *Block
	peerID     string
	receivedAt time.Time
}

// orphanPool is Chain's bounded collection of not-yet-connectable blocks,
// keyed both by the orphan's own hash and by its claimed parent hash so
// handleOrphans can resolve children in O(1) once the parent connects.
type orphanPool struct {
	maxOrphans int
	byHash     map[Hash]*orphanBlock
	byPrevHash map[Hash]Hash // prevHash -> orphan hash occupying that slot
}

func newOrphanPool(maxOrphans int) *orphanPool {
	if maxOrphans <= 0 {
		maxOrphans = defaultMaxOrphans
	}
	return &orphanPool{
		maxOrphans: maxOrphans,
		byHash:     make(map[Hash]*orphanBlock),
		byPrevHash: make(map[Hash]Hash),
	}
}

func (p *orphanPool) has(hash Hash) bool {
	_, ok := p.byHash[hash]
	return ok
}

// store inserts block as an orphan, evicting whatever orphan previously
// claimed the same parent (spec.md: "exactly one orphan per prev-hash").
// If the pool is at capacity, it makes room first via evict.
func (p *orphanPool) store(block *Block, peerID string, now time.Time) {
	prevHash := block.Header.PrevHash
	if existingHash, ok := p.byPrevHash[prevHash]; ok {
		delete(p.byHash, existingHash)
	}
	if len(p.byHash) >= p.maxOrphans {
		p.evict(now)
	}

	hash := block.Hash()
	p.byHash[hash] = &orphanBlock{block: block, peerID: peerID, receivedAt: now}
	p.byPrevHash[prevHash] = hash
}

// evict removes the first expired orphan it finds, or the single oldest
// orphan if none has expired yet.
func (p *orphanPool) evict(now time.Time) {
	var oldestHash Hash
	var oldestTime time.Time
	first := true

	for hash, o := range p.byHash {
		if now.Sub(o.receivedAt) >= orphanExpiry {
			p.remove(hash)
			return
		}
		if first || o.receivedAt.Before(oldestTime) {
			oldestHash, oldestTime = hash, o.receivedAt
			first = false
		}
	}
	if !first {
		p.remove(oldestHash)
	}
}

func (p *orphanPool) remove(hash Hash) {
	o, ok := p.byHash[hash]
	if !ok {
		return
	}
	delete(p.byHash, hash)
	if p.byPrevHash[o.block.Header.PrevHash] == hash {
		delete(p.byPrevHash, o.block.Header.PrevHash)
	}
}

// childrenOf returns every orphan directly waiting on parentHash, removing
// them from the pool as it returns them; used by handleOrphans to walk the
// orphan chain as each parent connects.
func (p *orphanPool) childrenOf(parentHash Hash) []*orphanBlock {
	hash, ok := p.byPrevHash[parentHash]
	if !ok {
		return nil
	}
	o := p.byHash[hash]
	p.remove(hash)
	return []*orphanBlock{o}
}

// purge empties the pool, used by Chain.Reset.
func (p *orphanPool) purge() {
	p.byHash = make(map[Hash]*orphanBlock)
	p.byPrevHash = make(map[Hash]Hash)
}
