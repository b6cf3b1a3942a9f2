package chain

import "github.com/bchcore/node/consensus/deployment"

// DB is the persistent-storage collaborator contract Chain depends on
// (spec.md §6's "ChainDB"). It is defined here, in the consumer package,
// the way domain/consensus's model interfaces are defined beside the
// processes that use them rather than beside their implementations;
// consensus/chaindb provides concrete goleveldb-backed and in-memory
// implementations.
type DB interface {
	Open() error
	Close() error

	GetTip() (*ChainEntry, bool)
	GetEntry(hash Hash) (*ChainEntry, bool)
	GetEntryByHeight(height uint64) (*ChainEntry, bool)
	GetAncestor(entry *ChainEntry, height uint64) (*ChainEntry, bool)
	GetPrevious(entry *ChainEntry) (*ChainEntry, bool)
	GetNext(entry *ChainEntry) (*ChainEntry, bool)
	HasEntry(hash Hash) bool

	GetBlock(hash Hash) (*Block, bool)
	GetRawBlock(hash Hash) ([]byte, bool)
	GetBlockView(block *Block) (*CoinView, error)

	CoinSource

	// Save persists a newly connected best-chain entry, its block, and the
	// CoinView produced while verifying it.
	Save(entry *ChainEntry, block *Block, view *CoinView) error
	// Reconnect re-applies a previously-saved alternate-chain entry onto
	// the best chain during a reorg.
	Reconnect(entry *ChainEntry, block *Block, view *CoinView) error
	// Disconnect reverses entry's UTXO changes in the store (restoring the
	// coins it spent, deleting the coins it created) and returns a view
	// describing that reversal. The stored tip and height index are left
	// for the following Reconnect/Save to move.
	Disconnect(entry *ChainEntry, block *Block) (*CoinView, error)
	// Reset rewinds the best chain to hashOrHeight, returning the new tip.
	Reset(hash Hash, height uint64, byHeight bool) (*ChainEntry, error)

	Prune(keepHeight uint64) error
	Scan(visit func(entry *ChainEntry) error) error

	// StateCache persists per-(bit,entry) versionbits threshold states
	// across restarts.
	GetCachedState(bit deployment.BitNumber, entryHash Hash) (state deployment.ThresholdState, ok bool)
	SetCachedState(bit deployment.BitNumber, entryHash Hash, state deployment.ThresholdState)
}
