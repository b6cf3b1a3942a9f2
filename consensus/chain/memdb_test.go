package chain

import (
	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/txscript"
)

// memDB is a minimal in-memory DB for exercising Chain without a real
// storage backend, the way a hand-rolled fake stands in for goleveldb in
// unit tests across the pack.
type memDB struct {
	entries  map[Hash]*ChainEntry
	byHeight map[uint64][]*ChainEntry // best-chain entry is appended last
	blocks   map[Hash]*Block
	coins    map[txscript.Outpoint]*Coin
	tip      *ChainEntry
}

func newMemDB() *memDB {
	return &memDB{
		entries:  make(map[Hash]*ChainEntry),
		byHeight: make(map[uint64][]*ChainEntry),
		blocks:   make(map[Hash]*Block),
		coins:    make(map[txscript.Outpoint]*Coin),
	}
}

func (d *memDB) Open() error  { return nil }
func (d *memDB) Close() error { return nil }

func (d *memDB) GetTip() (*ChainEntry, bool) { return d.tip, d.tip != nil }

func (d *memDB) GetEntry(hash Hash) (*ChainEntry, bool) {
	e, ok := d.entries[hash]
	return e, ok
}

func (d *memDB) GetEntryByHeight(height uint64) (*ChainEntry, bool) {
	entries := d.byHeight[height]
	if len(entries) == 0 {
		return nil, false
	}
	return entries[len(entries)-1], true
}

func (d *memDB) GetAncestor(entry *ChainEntry, height uint64) (*ChainEntry, bool) {
	cur := entry
	for cur != nil {
		if cur.Height == height {
			return cur, true
		}
		if cur.Height < height {
			return nil, false
		}
		prev, ok := d.GetPrevious(cur)
		if !ok {
			return nil, false
		}
		cur = prev
	}
	return nil, false
}

func (d *memDB) GetPrevious(entry *ChainEntry) (*ChainEntry, bool) {
	if entry.Height == 0 {
		return nil, false
	}
	e, ok := d.entries[entry.PrevHash]
	return e, ok
}

func (d *memDB) GetNext(entry *ChainEntry) (*ChainEntry, bool) { return nil, false }

func (d *memDB) HasEntry(hash Hash) bool {
	_, ok := d.entries[hash]
	return ok
}

func (d *memDB) GetBlock(hash Hash) (*Block, bool) {
	b, ok := d.blocks[hash]
	return b, ok
}

func (d *memDB) GetRawBlock(hash Hash) ([]byte, bool) { return nil, false }

func (d *memDB) GetBlockView(block *Block) (*CoinView, error) { return NewCoinView(d), nil }

func (d *memDB) HasCoin(op txscript.Outpoint) bool {
	_, ok := d.coins[op]
	return ok
}

func (d *memDB) ReadCoin(op txscript.Outpoint) (*Coin, error) {
	return d.coins[op], nil
}

func (d *memDB) save(entry *ChainEntry, block *Block, view *CoinView) {
	d.entries[entry.Hash] = entry
	d.blocks[entry.Hash] = block
	d.byHeight[entry.Height] = append(d.byHeight[entry.Height], entry)
	d.tip = entry
	if view == nil {
		return
	}
	for op := range view.Spent() {
		delete(d.coins, op)
	}
	for op, coin := range view.Added() {
		d.coins[op] = coin
	}
}

func (d *memDB) Save(entry *ChainEntry, block *Block, view *CoinView) error {
	d.save(entry, block, view)
	return nil
}

func (d *memDB) Reconnect(entry *ChainEntry, block *Block, view *CoinView) error {
	d.save(entry, block, view)
	return nil
}

func (d *memDB) Disconnect(entry *ChainEntry, block *Block) (*CoinView, error) {
	view := NewCoinView(d)
	for i, tx := range block.Txs {
		if i == 0 {
			continue
		}
		for _, in := range tx.TxIn {
			view.Spend(in.PreviousOutpoint)
		}
	}
	for op := range view.Spent() {
		delete(d.coins, op)
	}
	return view, nil
}

func (d *memDB) Reset(hash Hash, height uint64, byHeight bool) (*ChainEntry, error) {
	var target *ChainEntry
	if byHeight {
		target, _ = d.GetEntryByHeight(height)
	} else {
		target, _ = d.GetEntry(hash)
	}
	d.tip = target
	return target, nil
}

func (d *memDB) Prune(keepHeight uint64) error { return nil }

func (d *memDB) Scan(visit func(entry *ChainEntry) error) error { return nil }

func (d *memDB) GetCachedState(bit deployment.BitNumber, entryHash Hash) (deployment.ThresholdState, bool) {
	return deployment.ThresholdDefined, false
}

func (d *memDB) SetCachedState(bit deployment.BitNumber, entryHash Hash, state deployment.ThresholdState) {
}
