package chaindb

import (
	"sync"

	"github.com/bchcore/node/consensus/chain"
	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/txscript"
)

// MemStore is an in-memory chain.DB, the encode/decode round trip of Store
// run against a map instead of goleveldb. It exists for tests and for
// short-lived tools (cmd/chaincheck's dry-run mode) that don't want a
// leveldb directory on disk; it shares Store's key scheme and codec so the
// two can be swapped without touching call sites.
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemStore returns a ready-to-use in-memory chain.DB.
func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Open() error  { return nil }
func (m *MemStore) Close() error { return nil }

func (m *MemStore) get(key []byte) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[string(key)]
	if !ok {
		return nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp
}

func (m *MemStore) put(key, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = append([]byte(nil), value...)
}

func (m *MemStore) delete(key []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, string(key))
}

func (m *MemStore) has(key []byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[string(key)]
	return ok
}

func (m *MemStore) GetTip() (*chain.ChainEntry, bool) {
	hashBytes := m.get(tipKey())
	if hashBytes == nil {
		return nil, false
	}
	var hash chain.Hash
	copy(hash[:], hashBytes)
	return m.GetEntry(hash)
}

func (m *MemStore) GetEntry(hash chain.Hash) (*chain.ChainEntry, bool) {
	data := m.get(entryKey(hash))
	if data == nil {
		return nil, false
	}
	entry, err := decodeEntry(data)
	if err != nil {
		return nil, false
	}
	return entry, true
}

func (m *MemStore) GetEntryByHeight(height uint64) (*chain.ChainEntry, bool) {
	hashBytes := m.get(entryHeightKey(height))
	if hashBytes == nil {
		return nil, false
	}
	var hash chain.Hash
	copy(hash[:], hashBytes)
	return m.GetEntry(hash)
}

func (m *MemStore) GetAncestor(entry *chain.ChainEntry, height uint64) (*chain.ChainEntry, bool) {
	cur := entry
	for cur != nil {
		if cur.Height == height {
			return cur, true
		}
		if cur.Height < height {
			return nil, false
		}
		prev, ok := m.GetPrevious(cur)
		if !ok {
			return nil, false
		}
		cur = prev
	}
	return nil, false
}

func (m *MemStore) GetPrevious(entry *chain.ChainEntry) (*chain.ChainEntry, bool) {
	if entry.Height == 0 {
		return nil, false
	}
	return m.GetEntry(entry.PrevHash)
}

func (m *MemStore) GetNext(entry *chain.ChainEntry) (*chain.ChainEntry, bool) {
	next, ok := m.GetEntryByHeight(entry.Height + 1)
	if !ok || next.PrevHash != entry.Hash {
		return nil, false
	}
	return next, true
}

func (m *MemStore) HasEntry(hash chain.Hash) bool { return m.has(entryKey(hash)) }

func (m *MemStore) GetBlock(hash chain.Hash) (*chain.Block, bool) {
	data := m.get(blockKey(hash))
	if data == nil {
		return nil, false
	}
	block, err := decodeBlock(data)
	if err != nil {
		return nil, false
	}
	return block, true
}

func (m *MemStore) GetRawBlock(hash chain.Hash) ([]byte, bool) {
	data := m.get(blockKey(hash))
	return data, data != nil
}

func (m *MemStore) GetBlockView(block *chain.Block) (*chain.CoinView, error) {
	return chain.NewCoinView(m), nil
}

func (m *MemStore) HasCoin(op txscript.Outpoint) bool {
	return m.has(coinKey(op.Hash, op.Index))
}

func (m *MemStore) ReadCoin(op txscript.Outpoint) (*chain.Coin, error) {
	data := m.get(coinKey(op.Hash, op.Index))
	if data == nil {
		return nil, nil
	}
	return decodeCoin(data)
}

func (m *MemStore) Save(entry *chain.ChainEntry, block *chain.Block, view *chain.CoinView) error {
	m.writeUndo(entry.Hash, view)
	m.applyView(view)
	m.put(entryKey(entry.Hash), encodeEntry(entry))
	m.put(blockKey(entry.Hash), encodeBlock(block))
	m.put(entryHeightKey(entry.Height), entry.Hash[:])
	m.put(tipKey(), entry.Hash[:])
	return nil
}

func (m *MemStore) Reconnect(entry *chain.ChainEntry, block *chain.Block, view *chain.CoinView) error {
	m.writeUndo(entry.Hash, view)
	m.applyView(view)
	m.put(entryHeightKey(entry.Height), entry.Hash[:])
	m.put(tipKey(), entry.Hash[:])
	return nil
}

func (m *MemStore) Disconnect(entry *chain.ChainEntry, block *chain.Block) (*chain.CoinView, error) {
	data := m.get(undoKey(entry.Hash))
	if data == nil {
		return nil, errNoUndoRecord
	}
	undo, err := decodeUndo(data)
	if err != nil {
		return nil, err
	}
	view := chain.NewCoinView(m)
	for _, op := range undo.Added {
		m.delete(coinKey(op.Hash, op.Index))
		view.Spend(op)
	}
	for _, rm := range undo.Removed {
		m.put(coinKey(rm.Op.Hash, rm.Op.Index), encodeCoin(rm.Coin))
		view.AddCoin(rm.Op, rm.Coin)
	}
	m.delete(undoKey(entry.Hash))
	return view, nil
}

func (m *MemStore) Reset(hash chain.Hash, height uint64, byHeight bool) (*chain.ChainEntry, error) {
	var target *chain.ChainEntry
	var ok bool
	if byHeight {
		target, ok = m.GetEntryByHeight(height)
	} else {
		target, ok = m.GetEntry(hash)
	}
	if !ok {
		return nil, errResetTargetMissing
	}
	m.put(tipKey(), target.Hash[:])
	return target, nil
}

func (m *MemStore) Prune(keepHeight uint64) error {
	m.mu.Lock()
	var blockKeys [][]byte
	for key := range m.data {
		k := []byte(key)
		if len(k) == 0 || k[0] != prefixEntryHeight {
			continue
		}
		if heightFromKey(k) >= keepHeight {
			continue
		}
		hashBytes := m.data[key]
		var hash chain.Hash
		copy(hash[:], hashBytes)
		blockKeys = append(blockKeys, blockKey(hash))
	}
	m.mu.Unlock()
	for _, key := range blockKeys {
		m.delete(key)
	}
	return nil
}

func (m *MemStore) Scan(visit func(entry *chain.ChainEntry) error) error {
	m.mu.Lock()
	var heights []uint64
	for key := range m.data {
		k := []byte(key)
		if len(k) == 0 || k[0] != prefixEntryHeight {
			continue
		}
		heights = append(heights, heightFromKey(k))
	}
	m.mu.Unlock()
	sortUint64s(heights)
	for _, height := range heights {
		entry, ok := m.GetEntryByHeight(height)
		if !ok {
			continue
		}
		if err := visit(entry); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemStore) GetCachedState(bit deployment.BitNumber, entryHash chain.Hash) (deployment.ThresholdState, bool) {
	data := m.get(cachedStateKey(bit, entryHash))
	if len(data) != 1 {
		return deployment.ThresholdDefined, false
	}
	return deployment.ThresholdState(data[0]), true
}

func (m *MemStore) SetCachedState(bit deployment.BitNumber, entryHash chain.Hash, state deployment.ThresholdState) {
	m.put(cachedStateKey(bit, entryHash), []byte{byte(state)})
}

func (m *MemStore) writeUndo(hash chain.Hash, view *chain.CoinView) {
	if view == nil {
		return
	}
	undo := &undoRecord{}
	for op := range view.Added() {
		undo.Added = append(undo.Added, op)
	}
	for op := range view.Spent() {
		prior, _ := m.ReadCoin(op)
		if prior == nil {
			continue
		}
		undo.Removed = append(undo.Removed, undoRemoval{Op: op, Coin: prior})
	}
	m.put(undoKey(hash), encodeUndo(undo))
}

func (m *MemStore) applyView(view *chain.CoinView) {
	if view == nil {
		return
	}
	for op := range view.Spent() {
		m.delete(coinKey(op.Hash, op.Index))
	}
	for op, coin := range view.Added() {
		m.put(coinKey(op.Hash, op.Index), encodeCoin(coin))
	}
}

func sortUint64s(s []uint64) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j-1] > s[j]; j-- {
			s[j-1], s[j] = s[j], s[j-1]
		}
	}
}
