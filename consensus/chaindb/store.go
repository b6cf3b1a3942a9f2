// Package chaindb provides concrete consensus/chain.DB implementations: a
// goleveldb-backed Store for production use and an in-memory MemStore for
// tests and short-lived tools, grounded on database2/ffldb/ldb's thin
// goleveldb wrapper and infrastructure/db/database/ldb's option set.
package chaindb

import (
	"github.com/pkg/errors"

	"github.com/bchcore/node/consensus/chain"
	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/txscript"
)

// Store is a goleveldb-backed chain.DB. The zero value is not usable; build
// one with New and call Open.
type Store struct {
	path string
	db   *levelDB
}

// New returns a Store rooted at path. Call Open before using it.
func New(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Open() error {
	db, err := openLevelDB(s.path)
	if err != nil {
		return err
	}
	s.db = db
	log.Infof("opened chaindb at %s", s.path)
	return nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) GetTip() (*chain.ChainEntry, bool) {
	hashBytes, err := s.db.Get(tipKey())
	if err != nil || hashBytes == nil {
		return nil, false
	}
	var hash [32]byte
	copy(hash[:], hashBytes)
	return s.GetEntry(hash)
}

func (s *Store) GetEntry(hash chain.Hash) (*chain.ChainEntry, bool) {
	data, err := s.db.Get(entryKey(hash))
	if err != nil || data == nil {
		return nil, false
	}
	entry, err := decodeEntry(data)
	if err != nil {
		log.Warnf("corrupt entry record for %x: %s", hash, err)
		return nil, false
	}
	return entry, true
}

func (s *Store) GetEntryByHeight(height uint64) (*chain.ChainEntry, bool) {
	hashBytes, err := s.db.Get(entryHeightKey(height))
	if err != nil || hashBytes == nil {
		return nil, false
	}
	var hash [32]byte
	copy(hash[:], hashBytes)
	return s.GetEntry(hash)
}

func (s *Store) GetAncestor(entry *chain.ChainEntry, height uint64) (*chain.ChainEntry, bool) {
	cur := entry
	for cur != nil {
		if cur.Height == height {
			return cur, true
		}
		if cur.Height < height {
			return nil, false
		}
		prev, ok := s.GetPrevious(cur)
		if !ok {
			return nil, false
		}
		cur = prev
	}
	return nil, false
}

func (s *Store) GetPrevious(entry *chain.ChainEntry) (*chain.ChainEntry, bool) {
	if entry.Height == 0 {
		return nil, false
	}
	return s.GetEntry(entry.PrevHash)
}

// GetNext reports entry's best-chain successor: the entry one height above
// it whose PrevHash still points back at it. A successor that has since
// been disconnected by a reorg is not reachable this way, matching the
// "best chain only" scope of the entryHeight index.
func (s *Store) GetNext(entry *chain.ChainEntry) (*chain.ChainEntry, bool) {
	next, ok := s.GetEntryByHeight(entry.Height + 1)
	if !ok || next.PrevHash != entry.Hash {
		return nil, false
	}
	return next, true
}

func (s *Store) HasEntry(hash chain.Hash) bool {
	ok, err := s.db.Has(entryKey(hash))
	return err == nil && ok
}

func (s *Store) GetBlock(hash chain.Hash) (*chain.Block, bool) {
	data, err := s.db.Get(blockKey(hash))
	if err != nil || data == nil {
		return nil, false
	}
	block, err := decodeBlock(data)
	if err != nil {
		log.Warnf("corrupt block record for %x: %s", hash, err)
		return nil, false
	}
	return block, true
}

func (s *Store) GetRawBlock(hash chain.Hash) ([]byte, bool) {
	data, err := s.db.Get(blockKey(hash))
	if err != nil || data == nil {
		return nil, false
	}
	return data, true
}

func (s *Store) GetBlockView(block *chain.Block) (*chain.CoinView, error) {
	return chain.NewCoinView(s), nil
}

func (s *Store) HasCoin(op txscript.Outpoint) bool {
	ok, err := s.db.Has(coinKey(op.Hash, op.Index))
	return err == nil && ok
}

func (s *Store) ReadCoin(op txscript.Outpoint) (*chain.Coin, error) {
	data, err := s.db.Get(coinKey(op.Hash, op.Index))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	return decodeCoin(data)
}

// Save persists entry, its block, and the coin changes recorded in view,
// writing an undo record first so a later Disconnect can exactly reverse
// the UTXO mutation.
func (s *Store) Save(entry *chain.ChainEntry, block *chain.Block, view *chain.CoinView) error {
	if err := s.writeUndo(entry.Hash, view); err != nil {
		return err
	}
	if err := s.applyView(view); err != nil {
		return err
	}
	if err := s.db.Put(entryKey(entry.Hash), encodeEntry(entry)); err != nil {
		return errors.Wrap(err, "failed to save entry")
	}
	if err := s.db.Put(blockKey(entry.Hash), encodeBlock(block)); err != nil {
		return errors.Wrap(err, "failed to save block")
	}
	if err := s.db.Put(entryHeightKey(entry.Height), entry.Hash[:]); err != nil {
		return errors.Wrap(err, "failed to save height index")
	}
	if err := s.db.Put(tipKey(), entry.Hash[:]); err != nil {
		return errors.Wrap(err, "failed to advance tip")
	}
	return nil
}

// Reconnect re-applies a previously saved alternate-chain entry onto the
// best chain; its entry/block records already exist from when it was first
// saved as a competitor, so only the height index, tip, and UTXO set move.
func (s *Store) Reconnect(entry *chain.ChainEntry, block *chain.Block, view *chain.CoinView) error {
	if err := s.writeUndo(entry.Hash, view); err != nil {
		return err
	}
	if err := s.applyView(view); err != nil {
		return err
	}
	if err := s.db.Put(entryHeightKey(entry.Height), entry.Hash[:]); err != nil {
		return errors.Wrap(err, "failed to save height index")
	}
	if err := s.db.Put(tipKey(), entry.Hash[:]); err != nil {
		return errors.Wrap(err, "failed to advance tip")
	}
	return nil
}

// Disconnect removes entry from the best chain, replaying its undo record
// to restore whatever coins it spent and delete whatever coins it created,
// and returns a view describing that reversal for the caller's event log.
func (s *Store) Disconnect(entry *chain.ChainEntry, block *chain.Block) (*chain.CoinView, error) {
	data, err := s.db.Get(undoKey(entry.Hash))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, errNoUndoRecord
	}
	undo, err := decodeUndo(data)
	if err != nil {
		return nil, err
	}

	view := chain.NewCoinView(s)
	for _, op := range undo.Added {
		if err := s.db.Delete(coinKey(op.Hash, op.Index)); err != nil {
			return nil, errors.Wrap(err, "failed to delete disconnected coin")
		}
		view.Spend(op)
	}
	for _, rm := range undo.Removed {
		if err := s.db.Put(coinKey(rm.Op.Hash, rm.Op.Index), encodeCoin(rm.Coin)); err != nil {
			return nil, errors.Wrap(err, "failed to restore disconnected coin")
		}
		view.AddCoin(rm.Op, rm.Coin)
	}

	if err := s.db.Delete(undoKey(entry.Hash)); err != nil {
		return nil, errors.Wrap(err, "failed to clear undo record")
	}
	return view, nil
}

// Reset rewinds the tip pointer to hashOrHeight without touching entry,
// block, or coin records; Chain is expected to call Disconnect for every
// block being unwound before (or instead of) calling Reset directly.
func (s *Store) Reset(hash chain.Hash, height uint64, byHeight bool) (*chain.ChainEntry, error) {
	var target *chain.ChainEntry
	var ok bool
	if byHeight {
		target, ok = s.GetEntryByHeight(height)
	} else {
		target, ok = s.GetEntry(hash)
	}
	if !ok {
		return nil, errResetTargetMissing
	}
	if err := s.db.Put(tipKey(), target.Hash[:]); err != nil {
		return nil, err
	}
	return target, nil
}

// Prune deletes block bodies below keepHeight, keeping chain entries (and
// therefore chainwork/locator reconstruction) intact indefinitely.
func (s *Store) Prune(keepHeight uint64) error {
	var toDelete [][]byte
	err := s.db.iteratePrefix([]byte{prefixEntryHeight}, func(key, value []byte) error {
		height := heightFromKey(key)
		if height >= keepHeight {
			return nil
		}
		var hash [32]byte
		copy(hash[:], value)
		toDelete = append(toDelete, blockKey(hash))
		return nil
	})
	if err != nil {
		return err
	}
	for _, key := range toDelete {
		if err := s.db.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

func heightFromKey(key []byte) uint64 {
	var height uint64
	for _, b := range key[1:9] {
		height = height<<8 | uint64(b)
	}
	return height
}

// Scan walks every chain entry in height order, the way a locator rebuild
// or an integrity check would.
func (s *Store) Scan(visit func(entry *chain.ChainEntry) error) error {
	return s.db.iteratePrefix([]byte{prefixEntryHeight}, func(key, value []byte) error {
		var hash [32]byte
		copy(hash[:], value)
		entry, ok := s.GetEntry(hash)
		if !ok {
			return errors.Errorf("chaindb: dangling height index at height %d", heightFromKey(key))
		}
		return visit(entry)
	})
}

func (s *Store) GetCachedState(bit deployment.BitNumber, entryHash chain.Hash) (deployment.ThresholdState, bool) {
	data, err := s.db.Get(cachedStateKey(bit, entryHash))
	if err != nil || len(data) != 1 {
		return deployment.ThresholdDefined, false
	}
	return deployment.ThresholdState(data[0]), true
}

func (s *Store) SetCachedState(bit deployment.BitNumber, entryHash chain.Hash, state deployment.ThresholdState) {
	if err := s.db.Put(cachedStateKey(bit, entryHash), []byte{byte(state)}); err != nil {
		log.Warnf("failed to cache versionbits state: %s", err)
	}
}

func (s *Store) writeUndo(hash chain.Hash, view *chain.CoinView) error {
	if view == nil {
		return nil
	}
	undo := &undoRecord{}
	for op := range view.Added() {
		undo.Added = append(undo.Added, op)
	}
	for op := range view.Spent() {
		prior, err := s.ReadCoin(op)
		if err != nil {
			return errors.Wrap(err, "failed to read coin for undo record")
		}
		if prior == nil {
			continue
		}
		undo.Removed = append(undo.Removed, undoRemoval{Op: op, Coin: prior})
	}
	return errors.Wrap(s.db.Put(undoKey(hash), encodeUndo(undo)), "failed to save undo record")
}

func (s *Store) applyView(view *chain.CoinView) error {
	if view == nil {
		return nil
	}
	for op := range view.Spent() {
		if err := s.db.Delete(coinKey(op.Hash, op.Index)); err != nil {
			return errors.Wrap(err, "failed to spend coin")
		}
	}
	for op, coin := range view.Added() {
		if err := s.db.Put(coinKey(op.Hash, op.Index), encodeCoin(coin)); err != nil {
			return errors.Wrap(err, "failed to add coin")
		}
	}
	return nil
}
