package chain

import "github.com/bchcore/node/consensus/txscript"

// Coin is a single unspent output plus the metadata spend-maturity and
// coinbase rules need.
type Coin struct {
	Output      *txscript.TxOut
	Height      uint64
	IsCoinbase  bool
}

// CoinView is a copy-on-write overlay of UTXO changes produced while
// connecting one block or one reorg step, narrowed from
// blockdag.UTXODiff/UTXOSet's DAG-diff semantics (toAdd/toRemove sets
// layered over a base) to plain linear-chain spend/add bookkeeping.
type CoinView struct {
	base    CoinSource
	spent   map[txscript.Outpoint]bool
	added   map[txscript.Outpoint]*Coin
}

// CoinSource is the read-only coin lookup a CoinView falls back to for
// outputs it hasn't itself added or spent; ChainDB implements it.
type CoinSource interface {
	HasCoin(op txscript.Outpoint) bool
	ReadCoin(op txscript.Outpoint) (*Coin, error)
}

// NewCoinView wraps base in a fresh overlay with no pending changes.
func NewCoinView(base CoinSource) *CoinView {
	return &CoinView{
		base:  base,
		spent: make(map[txscript.Outpoint]bool),
		added: make(map[txscript.Outpoint]*Coin),
	}
}

// HasCoin reports whether op is spendable in this view: present (added
// here or in base) and not already spent here.
func (v *CoinView) HasCoin(op txscript.Outpoint) bool {
	if v.spent[op] {
		return false
	}
	if _, ok := v.added[op]; ok {
		return true
	}
	return v.base.HasCoin(op)
}

// FetchCoin resolves op to its Coin, checking the local overlay before
// falling back to base.
func (v *CoinView) FetchCoin(op txscript.Outpoint) (*Coin, error) {
	if v.spent[op] {
		return nil, errCoinSpent
	}
	if c, ok := v.added[op]; ok {
		return c, nil
	}
	return v.base.ReadCoin(op)
}

// Spend marks op consumed in this view. Callers must have already checked
// HasCoin; Spend itself does not re-validate.
func (v *CoinView) Spend(op txscript.Outpoint) {
	delete(v.added, op)
	v.spent[op] = true
}

// AddTX records every output of tx as newly created at height, marking
// coinbase specially for the maturity rule.
func (v *CoinView) AddTX(tx *txscript.Tx, height uint64) {
	isCoinbase := tx.IsCoinbase()
	hash := txHash(tx)
	for i, out := range tx.TxOut {
		op := txscript.Outpoint{Hash: hash, Index: uint32(i)}
		v.added[op] = &Coin{Output: out, Height: height, IsCoinbase: isCoinbase}
		delete(v.spent, op)
	}
}

// AddCoin records a single coin as newly created at op, the same
// bookkeeping AddTX performs per output but for a caller that already has a
// decoded Coin on hand (e.g. a DB restoring a coin undone by a disconnect).
func (v *CoinView) AddCoin(op txscript.Outpoint, coin *Coin) {
	v.added[op] = coin
	delete(v.spent, op)
}

// Added returns every outpoint newly created in this view, for callers
// persisting the view to a durable ChainDB.
func (v *CoinView) Added() map[txscript.Outpoint]*Coin { return v.added }

// Spent returns every outpoint consumed in this view.
func (v *CoinView) Spent() map[txscript.Outpoint]bool { return v.spent }

var errCoinSpent = newVerifyError(KindInvalid, "bad-txns-inputs-missingorspent", 100)

// txHash is a placeholder transaction identifier; real wire serialization
// is out of this core's scope (spec.md §1 non-goals), so tests supply
// Tx values with distinguishable LockTime/Version to avoid collisions.
func txHash(tx *txscript.Tx) [32]byte {
	var h [32]byte
	h[0] = byte(tx.Version)
	h[1] = byte(tx.LockTime)
	for i, in := range tx.TxIn {
		if i >= 30 {
			break
		}
		h[2+i] = in.PreviousOutpoint.Hash[0] ^ byte(in.PreviousOutpoint.Index)
	}
	return h
}
