package chain

import (
	"sync"
	"time"

	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/events"
	"github.com/bchcore/node/consensus/workerpool"
	"github.com/pkg/errors"
)

// Invalid is a bounded LRU of hashes known invalid (or descendants of an
// invalid hash), so a peer re-offering a bad block is rejected without
// re-validating it.
type Invalid struct {
	mu       sync.Mutex
	order    []Hash
	max      int
	contains map[Hash]bool
}

func newInvalidSet(max int) *Invalid {
	return &Invalid{max: max, contains: make(map[Hash]bool)}
}

// Mark records hash as invalid, evicting the oldest entry if at capacity.
func (s *Invalid) Mark(hash Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contains[hash] {
		return
	}
	if len(s.order) >= s.max {
		oldest := s.order[0]
		s.order = s.order[1:]
		delete(s.contains, oldest)
	}
	s.order = append(s.order, hash)
	s.contains[hash] = true
}

// Has reports whether hash has been marked invalid, either directly or, by
// Add, as a block whose parent was already marked invalid.
func (s *Invalid) Has(hash Hash) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.contains[hash]
}

// Chain is the block acceptor, orphan pool, fork resolver, difficulty
// calculator, and reorg engine (spec.md §4.3). One mutex admits only one
// mutating operation at a time; Add additionally takes a per-hash lock so
// concurrent arrivals of the same block from multiple peers collapse into
// one validation.
type Chain struct {
	params *deployment.Params
	db     DB
	events *events.Bus

	// pool is a borrowed script-verification worker pool (spec.md §5): Chain
	// neither owns nor closes it. A nil pool means verifyInputs falls back
	// to running script checks sequentially, which every existing caller
	// that has no pool handy (tests, chaindb's store tests) relies on.
	pool *workerpool.Pool

	mu sync.Mutex

	pendingMu sync.Mutex
	pending   map[Hash]bool

	orphans *orphanPool
	invalid *Invalid

	versionBits *deployment.VersionBitsCache

	tip   *ChainEntry
	state *deployment.State

	pendingEvents []events.Event
}

// New constructs a Chain bound to db and params. pool is an optional
// borrowed worker pool used to parallelize per-input script verification
// (nil runs script checks sequentially). Callers must call Open before Add.
func New(params *deployment.Params, db DB, bus *events.Bus, maxOrphans int, pool *workerpool.Pool) *Chain {
	return &Chain{
		params:      params,
		db:          db,
		events:      bus,
		pool:        pool,
		pending:     make(map[Hash]bool),
		orphans:     newOrphanPool(maxOrphans),
		invalid:     newInvalidSet(4096),
		versionBits: deployment.NewVersionBitsCache(),
	}
}

// Open loads the current tip (if any) and computes its DeploymentState.
func (c *Chain) Open() error {
	if err := c.db.Open(); err != nil {
		return errors.Wrap(err, "failed to open chain database")
	}
	tip, ok := c.db.GetTip()
	if !ok {
		return nil
	}
	c.tip = tip
	c.state = c.deploymentStateAt(tip)
	return nil
}

// Close releases the underlying database.
func (c *Chain) Close() error {
	return c.db.Close()
}

// Tip returns the current best-chain entry, or nil if the chain is empty.
func (c *Chain) Tip() *ChainEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tip
}

func (c *Chain) deploymentStateAt(entry *ChainEntry) *deployment.State {
	mtp := c.medianTimePast(entry)
	return deployment.GetDeployments(c.params, entry.Height+1, mtp, c.versionBits, c)
}

// medianTimePast computes the median timestamp of the 11 blocks ending at
// entry (inclusive).
func (c *Chain) medianTimePast(entry *ChainEntry) int64 {
	const window = 11
	times := make([]int64, 0, window)
	cur := entry
	for i := 0; i < window && cur != nil; i++ {
		times = append(times, cur.Time)
		prev, ok := c.db.GetPrevious(cur)
		if !ok {
			break
		}
		cur = prev
	}
	// Insertion sort; window is tiny.
	for i := 1; i < len(times); i++ {
		for j := i; j > 0 && times[j-1] > times[j]; j-- {
			times[j-1], times[j] = times[j], times[j-1]
		}
	}
	return times[len(times)/2]
}

// WindowStart implements deployment.VersionBitsHistory.
func (c *Chain) WindowStart(height uint64, minerWindow uint64) uint64 {
	return (height / minerWindow) * minerWindow
}

// SignalCount implements deployment.VersionBitsHistory.
func (c *Chain) SignalCount(bit deployment.BitNumber, height uint64, minerWindow uint64) uint64 {
	if c.tip == nil || height > c.tip.Height {
		return 0
	}
	var count uint64
	entry, ok := c.db.GetAncestor(c.tip, height)
	if !ok {
		return 0
	}
	for i := uint64(0); i < minerWindow && entry != nil; i++ {
		if entry.Version&(1<<uint(bit)) != 0 {
			count++
		}
		prev, ok := c.db.GetPrevious(entry)
		if !ok {
			break
		}
		entry = prev
	}
	return count
}

// MTPAt implements deployment.VersionBitsHistory.
func (c *Chain) MTPAt(height uint64) int64 {
	entry, ok := c.db.GetEntryByHeight(height)
	if !ok {
		return 0
	}
	return c.medianTimePast(entry)
}

// AncestorAtHeight implements EntrySource against the database.
func (c *Chain) AncestorAtHeight(tip *ChainEntry, height uint64) (*ChainEntry, bool) {
	return c.db.GetAncestor(tip, height)
}

// Add is Chain's primary entry point: validate block (duplicate/orphan/
// invalid checks, PoW, parent resolution), connect it if its parent is
// known, and recursively connect any orphans waiting on it.
func (c *Chain) Add(block *Block, flags deployment.Flags, peerID string) error {
	hash := block.Hash()

	if c.isGenesisHash(hash) {
		return newVerifyError(KindDuplicate, "duplicate-of-genesis", 0)
	}
	if !c.claimPending(hash) {
		return newVerifyError(KindDuplicate, "duplicate-pending", 0)
	}
	defer c.releasePending(hash)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.flushEvents()

	if c.orphans.has(hash) {
		return newVerifyError(KindDuplicate, "duplicate-orphan", 0)
	}
	if c.invalid.Has(hash) {
		return newVerifyError(KindInvalid, "duplicate-invalid", 100)
	}
	if c.invalid.Has(block.Header.PrevHash) {
		c.invalid.Mark(hash)
		return newVerifyError(KindInvalid, "bad-prevblk", 100)
	}
	if c.db.HasEntry(hash) {
		return newVerifyError(KindDuplicate, "duplicate", 0)
	}

	if flags.Has(deployment.ScriptVerifyPoW) {
		if err := checkProofOfWork(block, c.params); err != nil {
			return err
		}
	} else {
		if err := checkHighHash(block); err != nil {
			return err
		}
	}

	prev, ok := c.db.GetEntry(block.Header.PrevHash)
	if !ok {
		c.orphans.store(block, peerID, time.Now())
		c.queueEvent(events.Orphan, events.OrphanData{Hash: hash})
		return nil
	}

	if err := c.connect(prev, block, flags); err != nil {
		return err
	}

	c.handleOrphans(hash, flags, peerID)
	return nil
}

func (c *Chain) isGenesisHash(hash Hash) bool {
	return Hash(c.params.GenesisHash) == hash
}

func (c *Chain) claimPending(hash Hash) bool {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if c.pending[hash] {
		return false
	}
	c.pending[hash] = true
	return true
}

func (c *Chain) releasePending(hash Hash) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	delete(c.pending, hash)
}

// connect builds the candidate ChainEntry and routes it to either the
// best-chain path or the alternate/competitor path based on chainwork.
func (c *Chain) connect(prev *ChainEntry, block *Block, flags deployment.Flags) error {
	entry := newEntry(block, prev)

	if c.tip != nil && entry.Chainwork.Cmp(c.tip.Chainwork) <= 0 {
		return c.saveAlternate(entry, block, flags)
	}
	return c.setBestChain(entry, block, flags)
}

// saveAlternate verifies a block that does not extend the best chain
// without connecting its inputs, persisting it so a later reorg can adopt
// it without re-downloading.
func (c *Chain) saveAlternate(entry *ChainEntry, block *Block, flags deployment.Flags) error {
	state := c.deploymentStateAt(entry)
	if err := c.verify(entry, block, state, flags); err != nil {
		if !err.Malleated {
			c.invalid.Mark(entry.Hash)
		}
		return err
	}
	if err := c.db.Save(entry, block, nil); err != nil {
		return errors.Wrap(err, "failed to persist alternate block")
	}
	c.queueEvent(events.Competitor, events.CompetitorData{Hash: entry.Hash})
	return nil
}

// setBestChain makes entry the new tip, reorganizing first if it does not
// directly extend the current tip.
func (c *Chain) setBestChain(entry *ChainEntry, block *Block, flags deployment.Flags) error {
	oldTip := c.tip

	if oldTip != nil && entry.PrevHash != oldTip.Hash {
		if err := c.reorganize(entry, flags); err != nil {
			return err
		}
	}

	state := c.deploymentStateAt(entry)
	view, verr := c.verifyContext(entry, block, state, flags)
	if verr != nil {
		if !verr.Malleated {
			c.invalid.Mark(entry.Hash)
		}
		return verr
	}

	if err := c.db.Save(entry, block, view); err != nil {
		return errors.Wrap(err, "failed to persist best-chain block")
	}

	c.tip = entry
	c.state = state

	c.queueEvent(events.Tip, events.TipData{Hash: entry.Hash})
	c.queueEvent(events.Block, entry.Hash)
	c.queueEvent(events.Connect, entry.Hash)
	return nil
}

// reorganize walks the competitor's chain back to the lowest common
// ancestor with the current tip, disconnects the old best-chain suffix,
// and reconnects the competitor's suffix up to (but not including) entry
// itself, which the caller connects afterward.
func (c *Chain) reorganize(entry *ChainEntry, flags deployment.Flags) error {
	fork, competitorPath, err := c.findForkPoint(entry)
	if err != nil {
		return err
	}

	oldTip := c.tip
	c.queueEvent(events.Reorganize, events.ReorganizeData{OldTip: oldTip.Hash, NewTip: entry.Hash})

	cur := c.tip
	for cur != nil && cur.Hash != fork.Hash {
		block, _ := c.db.GetBlock(cur.Hash)
		view, err := c.db.Disconnect(cur, block)
		if err != nil {
			return errors.Wrap(err, "failed to disconnect block during reorganize")
		}
		c.queueEvent(events.Disconnect, disconnectData{Entry: cur, View: view})
		prev, ok := c.db.GetPrevious(cur)
		if !ok {
			break
		}
		cur = prev
	}
	c.tip = fork
	c.state = c.deploymentStateAt(fork)

	for _, candidate := range competitorPath {
		block, ok := c.db.GetBlock(candidate.Hash)
		if !ok {
			return newVerifyError(KindMalformed, "missing-alternate-block", 100)
		}
		state := c.deploymentStateAt(candidate)
		view, verr := c.verifyContext(candidate, block, state, flags)
		if verr != nil {
			if !verr.Malleated {
				c.invalid.Mark(candidate.Hash)
			}
			return verr
		}
		if err := c.db.Reconnect(candidate, block, view); err != nil {
			return errors.Wrap(err, "failed to reconnect block during reorganize")
		}
		c.tip = candidate
		c.state = state
		c.queueEvent(events.Reconnect, candidate.Hash)
	}

	return nil
}

type disconnectData struct {
	Entry *ChainEntry
	View  *CoinView
}

// findForkPoint walks back from entry to the lowest common ancestor with
// the current tip, returning that ancestor and the competitor's path from
// just after it up to (but excluding) entry.
func (c *Chain) findForkPoint(entry *ChainEntry) (*ChainEntry, []*ChainEntry, error) {
	var path []*ChainEntry
	cur, ok := c.db.GetPrevious(entry)
	if !ok {
		return nil, nil, newVerifyError(KindMalformed, "missing-ancestor", 100)
	}
	for cur.Height > c.tip.Height {
		path = append([]*ChainEntry{cur}, path...)
		prev, ok := c.db.GetPrevious(cur)
		if !ok {
			return nil, nil, newVerifyError(KindMalformed, "missing-ancestor", 100)
		}
		cur = prev
	}

	tipCursor := c.tip
	for tipCursor.Height > cur.Height {
		prev, ok := c.db.GetPrevious(tipCursor)
		if !ok {
			return nil, nil, newVerifyError(KindMalformed, "missing-ancestor", 100)
		}
		tipCursor = prev
	}

	for cur.Hash != tipCursor.Hash {
		path = append([]*ChainEntry{cur}, path...)
		prevCur, ok1 := c.db.GetPrevious(cur)
		prevTip, ok2 := c.db.GetPrevious(tipCursor)
		if !ok1 || !ok2 {
			return nil, nil, newVerifyError(KindMalformed, "missing-ancestor", 100)
		}
		cur, tipCursor = prevCur, prevTip
	}

	return cur, path, nil
}

// handleOrphans recursively connects every orphan chain rooted at hash.
func (c *Chain) handleOrphans(hash Hash, flags deployment.Flags, peerID string) {
	queue := []Hash{hash}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		for _, o := range c.orphans.childrenOf(parent) {
			prev, ok := c.db.GetEntry(o.block.Header.PrevHash)
			if !ok {
				continue
			}
			if err := c.connect(prev, o.block, flags); err != nil {
				c.queueEvent(events.BadOrphan, events.BadOrphanData{Err: err, PeerID: o.peerID})
				continue
			}
			queue = append(queue, o.block.Hash())
		}
	}
}

func (c *Chain) queueEvent(t events.Type, data interface{}) {
	c.pendingEvents = append(c.pendingEvents, events.Event{Type: t, Data: data})
}

// flushEvents delivers every event queued during the just-completed
// mutating call, after the chain's in-memory state has fully settled, per
// §5's reentrancy note: a subscriber may call back into Add, and must
// observe the chain in a consistent post-update state when it does. The
// caller holds c.mu; it is released while the events are emitted and
// taken again before returning.
func (c *Chain) flushEvents() {
	pending := c.pendingEvents
	c.pendingEvents = nil
	c.mu.Unlock()
	defer c.mu.Lock()
	for _, ev := range pending {
		c.events.Emit(ev)
	}
}

// Reset rewinds the best chain to hashOrHeight, purging the orphan pool.
func (c *Chain) Reset(hash Hash, height uint64, byHeight bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.flushEvents()

	tip, err := c.db.Reset(hash, height, byHeight)
	if err != nil {
		return errors.Wrap(err, "failed to reset chain")
	}
	c.tip = tip
	c.state = c.deploymentStateAt(tip)
	c.orphans.purge()
	c.queueEvent(events.Reset, events.ResetData{Tip: tip.Hash})
	return nil
}

// Invalidate marks hash as invalid: a later Add of hash, or of any block
// whose parent is marked invalid, is rejected (and that block is marked in
// turn). Blocks already connected are not disconnected.
func (c *Chain) Invalidate(hash Hash) {
	c.invalid.Mark(hash)
}

// GetLocator builds a block locator for entry: a strictly-decreasing list
// of ancestor hashes, dense near the tip and exponentially sparser toward
// genesis, the standard getblocks/getheaders seed.
func (c *Chain) GetLocator(entry *ChainEntry) []Hash {
	var locator []Hash
	step := uint64(1)
	cur := entry
	for cur != nil {
		locator = append(locator, cur.Hash)
		if cur.Height == 0 {
			break
		}
		var targetHeight uint64
		if cur.Height > step {
			targetHeight = cur.Height - step
		} else {
			targetHeight = 0
		}
		next, ok := c.db.GetAncestor(entry, targetHeight)
		if !ok {
			break
		}
		cur = next
		if len(locator) >= 10 {
			step *= 2
		}
	}
	return locator
}
