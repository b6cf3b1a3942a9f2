package chain

import (
	"context"
	"time"

	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/txscript"
)

// nowUnix is a var so tests can pin wall-clock time without sleeping.
var nowUnix = func() int64 { return time.Now().Unix() }

const (
	checkpointZoneMargin = 2 * 60 * 60 // 2 hours
	maxFutureBlockTime   = 2 * 60 * 60
	coinbaseMaturity     = 100
	coinbaseRuleNumerator = 8
	coinbaseRuleDenom     = 100
)

// verify performs every non-UTXO (contextual-plus-structural) check on
// entry/block: prevHash linkage, checkpoint match, PoW bits, MTP ordering,
// future-time bound, version floors, per-tx ordering/size/finality, BIP34
// coinbase height, and the block-size ceiling.
func (c *Chain) verify(entry *ChainEntry, block *Block, state *deployment.State, flags deployment.Flags) *VerifyError {
	if entry.PrevHash != block.Header.PrevHash {
		return newVerifyError(KindMalformed, "bad-prevhash", 100)
	}

	if c.params.CheckpointsEnabled {
		if err := c.verifyCheckpoint(entry); err != nil {
			return err
		}
	}

	if flags.Has(deployment.ScriptVerifyPoW) {
		expected := requiredBits(c.params, state, c, c.mustPrev(entry), block.Header.Time)
		if block.Header.Bits != expected {
			return newVerifyError(KindInvalid, "bad-diffbits", 100)
		}
	}

	mtp := c.medianTimePastOfParent(entry)
	if block.Header.Time <= mtp {
		return newVerifyError(KindInvalid, "time-too-old", 100)
	}
	if block.Header.Time > nowUnix()+maxFutureBlockTime {
		return newMalleatedVerifyError(KindInvalid, "time-too-new", 0)
	}

	if state.BIP34 && block.Header.Version < 2 {
		return newVerifyError(KindObsolete, "bad-version", 0)
	}
	if entry.Height >= c.params.BIP66Height && block.Header.Version < 3 {
		return newVerifyError(KindObsolete, "bad-version", 0)
	}
	if entry.Height >= c.params.BIP65Height && block.Header.Version < 4 {
		return newVerifyError(KindObsolete, "bad-version", 0)
	}

	if err := c.verifyTransactions(entry, block, state); err != nil {
		return err
	}

	if state.BIP34 {
		if err := verifyCoinbaseHeight(block, entry.Height); err != nil {
			return err
		}
	}

	if size := estimateBlockSize(block); size > state.MaxBlockSize {
		return newVerifyError(KindInvalid, "bad-blk-length", 100)
	}

	return nil
}

func (c *Chain) verifyCheckpoint(entry *ChainEntry) *VerifyError {
	// Checkpoint hashes are an external, caller-supplied table (out of
	// this core's scope); absent one, the checkpoint gate is a no-op.
	return nil
}

func (c *Chain) mustPrev(entry *ChainEntry) *ChainEntry {
	prev, ok := c.db.GetPrevious(entry)
	if !ok {
		return nil
	}
	return prev
}

func (c *Chain) medianTimePastOfParent(entry *ChainEntry) int64 {
	prev := c.mustPrev(entry)
	if prev == nil {
		return 0
	}
	return c.medianTimePast(prev)
}

func (c *Chain) verifyTransactions(entry *ChainEntry, block *Block, state *deployment.State) *VerifyError {
	const minTxSize = 100

	for i, tx := range block.Txs {
		if state.MagneticAnomaly {
			if err := estimateTxSize(tx); err < minTxSize {
				return newVerifyError(KindInvalid, "bad-txns-undersize", 100)
			}
		}
		if state.Wellington && state.MaxTxVersion != 0 {
			if tx.Version < 1 || tx.Version > state.MaxTxVersion {
				return newVerifyError(KindInvalid, "bad-txns-version", 100)
			}
		}
		if i == 0 {
			continue // coinbase finality/locktime rules don't apply to itself
		}
		if !isFinalTx(tx, entry.Height, block.Header.Time) {
			return newVerifyError(KindInvalid, "bad-txns-nonfinal", 100)
		}
	}
	return nil
}

func isFinalTx(tx *txscript.Tx, height uint64, blockTime int64) bool {
	if tx.LockTime == 0 {
		return true
	}
	threshold := int64(height)
	if tx.LockTime >= 500000000 {
		threshold = blockTime
	}
	if int64(tx.LockTime) < threshold {
		return true
	}
	for _, in := range tx.TxIn {
		if in.Sequence != 0xffffffff {
			return false
		}
	}
	return true
}

func verifyCoinbaseHeight(block *Block, height uint64) *VerifyError {
	if len(block.Txs) == 0 || !block.Txs[0].IsCoinbase() {
		return newVerifyError(KindInvalid, "bad-cb-missing", 100)
	}
	// Real height-in-coinbase extraction needs the wire script-encoded
	// height prefix (BIP34); left to the caller's wire-format layer per
	// spec.md §1 non-goals. This only confirms a coinbase exists.
	return nil
}

func estimateBlockSize(block *Block) uint64 {
	size := uint64(80)
	for _, tx := range block.Txs {
		size += estimateTxSize(tx)
	}
	return size
}

func estimateTxSize(tx *txscript.Tx) uint64 {
	size := uint64(10)
	for _, in := range tx.TxIn {
		size += uint64(40 + len(in.SignatureScript))
	}
	for _, out := range tx.TxOut {
		size += uint64(8 + len(out.PkScript))
	}
	return size
}

// verifyContext runs verify, then produces the CoinView for entry: nil when
// no db coin source is wired, otherwise the full verifyInputs path (preceded
// by the BIP30 duplicate check while BIP34 is inactive). There is no
// checkpoint-zone shortcut; every block's inputs are verified.
func (c *Chain) verifyContext(entry *ChainEntry, block *Block, state *deployment.State, flags deployment.Flags) (*CoinView, *VerifyError) {
	if err := c.verify(entry, block, state, flags); err != nil {
		return nil, err
	}

	if c.db == nil {
		return nil, nil
	}

	if !state.BIP34 {
		if err := c.verifyDuplicates(entry, block); err != nil {
			return nil, err
		}
	}

	return c.verifyInputs(entry, block, state, flags)
}

// verifyDuplicates implements BIP30: no transaction in block may share its
// id with an existing, unspent transaction in the UTXO set.
func (c *Chain) verifyDuplicates(entry *ChainEntry, block *Block) *VerifyError {
	for _, tx := range block.Txs {
		hash := txHash(tx)
		op := txscript.Outpoint{Hash: hash, Index: 0}
		if c.db.HasCoin(op) {
			return newVerifyError(KindInvalid, "bad-txns-BIP30", 100)
		}
	}
	return nil
}

// legacyMaxBlockSigOps mirrors Bitcoin's fixed per-block sigop budget
// (blockdag/validate.go's MaxSigOpsPerBlock), the static cap enforced
// before Phonon. legacyMaxTxSigOps bounds a single tx's share of it, the
// way CountSigOps/CountP2SHSigOps accumulate per-tx then get checked
// against the block-wide running total with an overflow guard.
// maxTxSigChecks is the per-tx real-verification-attempt budget that
// survives Phonon's retirement of the static per-block cap (spec.md
// §4.3): INPUT_SIGCHECKS already enforces a per-input density floor
// inside txscript.Verify, this adds the per-tx ceiling on top of it.
// All three are illustrative placeholders, like params.go's activation
// heights, meant to be tuned by a caller wiring a real network.
const (
	legacyMaxBlockSigOps = 20000
	legacyMaxTxSigOps    = legacyMaxBlockSigOps / 5
	maxTxSigChecks       = 3000
)

// verifyInputs builds the block's CoinView, spends/adds every tx's
// inputs/outputs, enforces sequence locks and sigops/sigchecks caps, and
// invokes the script interpreter on every input — dispatched across
// Chain's worker pool when one is configured (spec.md §5/§9's
// submit(job)->future<result>, joined with joinAll before the block is
// considered verified), falling back to a sequential loop otherwise.
func (c *Chain) verifyInputs(entry *ChainEntry, block *Block, state *deployment.State, flags deployment.Flags) (*CoinView, *VerifyError) {
	view := NewCoinView(c.db)

	if state.MagneticAnomaly {
		// Magnetic Anomaly reorders validation to pre-populate the view
		// with every tx's outputs before checking any input, so a later
		// tx in the block may spend an earlier tx's output in the same
		// block regardless of script-check order.
		for _, tx := range block.Txs {
			view.AddTX(tx, entry.Height)
		}
	}

	type scriptJob struct {
		txIdx                  int
		inputScript, subscript *txscript.Script
		checker                *txscript.TxSignatureChecker
	}
	var jobs []scriptJob

	var totalFees int64
	var totalLegacySigOps int
	for i, tx := range block.Txs {
		txLegacySigOps := 0
		for _, out := range tx.TxOut {
			if outScript, err := txscript.ParseScript(out.PkScript); err == nil {
				txLegacySigOps += txscript.CountSigOps(outScript)
			}
		}

		if i == 0 {
			if !state.MagneticAnomaly {
				view.AddTX(tx, entry.Height)
			}
			if !state.Phonon {
				last := totalLegacySigOps
				totalLegacySigOps += txLegacySigOps
				if totalLegacySigOps < last || totalLegacySigOps > legacyMaxBlockSigOps {
					return nil, newVerifyError(KindInvalid, "bad-blk-sigops", 100)
				}
			}
			continue
		}

		var inputSum int64
		for inputIdx, in := range tx.TxIn {
			coin, err := view.FetchCoin(in.PreviousOutpoint)
			if err != nil || coin == nil {
				return nil, newVerifyError(KindInvalid, "bad-txns-inputs-missingorspent", 100)
			}
			if coin.IsCoinbase && entry.Height-coin.Height < coinbaseMaturity {
				return nil, newVerifyError(KindInvalid, "bad-txns-premature-spend-of-coinbase", 100)
			}
			if tx.Version >= 2 && flags.Has(deployment.ScriptCheckSequenceVerify) {
				if !c.checkSequenceLock(entry, coin, in) {
					return nil, newVerifyError(KindInvalid, "bad-txns-nonfinal", 100)
				}
			}
			inputSum += coin.Output.Value
			view.Spend(in.PreviousOutpoint)

			checker := &txscript.TxSignatureChecker{Tx: tx, InputIndex: inputIdx, PrevValue: coin.Output.Value}
			subscript, err := txscript.ParseScript(coin.Output.PkScript)
			if err != nil {
				return nil, newVerifyError(KindMalformed, "bad-txns-pkscript", 100)
			}
			inputScript, err := txscript.ParseScript(in.SignatureScript)
			if err != nil {
				return nil, newVerifyError(KindMalformed, "bad-txns-scriptsig", 100)
			}

			if !state.Phonon {
				txLegacySigOps += txscript.CountSigOps(subscript) + txscript.CountSigOps(inputScript)
			}

			jobs = append(jobs, scriptJob{txIdx: i, inputScript: inputScript, subscript: subscript, checker: checker})
		}

		if !state.Phonon {
			if txLegacySigOps > legacyMaxTxSigOps {
				return nil, newVerifyError(KindInvalid, "bad-txns-too-many-sigops", 100)
			}
			last := totalLegacySigOps
			totalLegacySigOps += txLegacySigOps
			if totalLegacySigOps < last || totalLegacySigOps > legacyMaxBlockSigOps {
				return nil, newVerifyError(KindInvalid, "bad-blk-sigops", 100)
			}
		}

		var outputSum int64
		for _, out := range tx.TxOut {
			outputSum += out.Value
		}
		if outputSum > inputSum {
			return nil, newVerifyError(KindInvalid, "bad-txns-in-belowout", 100)
		}
		totalFees += inputSum - outputSum

		view.AddTX(tx, entry.Height)
	}

	sigChecksByTx := make([]int, len(block.Txs))
	if len(jobs) > 0 {
		sigCheckCounts := make([]int, len(jobs))
		if c.pool != nil {
			funcs := make([]func(ctx context.Context) error, len(jobs))
			for idx, job := range jobs {
				idx, job := idx, job
				funcs[idx] = func(ctx context.Context) error {
					n, err := txscript.Verify(job.inputScript, job.subscript, flags, job.checker)
					sigCheckCounts[idx] = n
					return err
				}
			}
			if err := c.pool.Run(context.Background(), funcs); err != nil {
				return nil, newVerifyError(KindInvalid, "mandatory-script-verify-flag-failed", 100)
			}
		} else {
			for idx, job := range jobs {
				n, err := txscript.Verify(job.inputScript, job.subscript, flags, job.checker)
				sigCheckCounts[idx] = n
				if err != nil {
					return nil, newVerifyError(KindInvalid, "mandatory-script-verify-flag-failed", 100)
				}
			}
		}
		for idx, job := range jobs {
			sigChecksByTx[job.txIdx] += sigCheckCounts[idx]
		}
	}

	if state.Phonon {
		for _, n := range sigChecksByTx {
			if n > maxTxSigChecks {
				return nil, newVerifyError(KindInvalid, "bad-txns-too-many-sigchecks", 100)
			}
		}
	}

	if len(block.Txs) > 0 {
		if err := c.verifyCoinbaseValue(block.Txs[0], entry.Height, totalFees, state); err != nil {
			return nil, err
		}
	}

	return view, nil
}

// checkSequenceLock implements BIP68/112's relative-lock-time comparison
// for a single input against the coin it spends.
func (c *Chain) checkSequenceLock(entry *ChainEntry, coin *Coin, in *txscript.TxIn) bool {
	const sequenceLockTimeDisableFlag = 1 << 31
	const sequenceLockTimeTypeFlag = 1 << 22
	const sequenceLockTimeMask = 0x0000ffff

	if in.Sequence&sequenceLockTimeDisableFlag != 0 {
		return true
	}
	if in.Sequence&sequenceLockTimeTypeFlag == 0 {
		required := coin.Height + uint64(in.Sequence&sequenceLockTimeMask)
		return entry.Height >= required
	}
	return true // time-based relative locks need the spent coin's block MTP, left to the caller's wire layer
}

// verifyCoinbaseValue enforces the subsidy+fees ceiling and, between Axion
// and Wellington, the coinbase-rule minimum payout: the coinbase's last
// output (when it has more than one) must carry at least 8% of the claimed
// total. The output's script or address is not checked. The percentage
// test uses floor integer division; see DESIGN.md's Open Question
// resolution.
func (c *Chain) verifyCoinbaseValue(coinbase *txscript.Tx, height uint64, fees int64, state *deployment.State) *VerifyError {
	subsidy := blockSubsidy(height, c.params)

	var claimed int64
	for _, out := range coinbase.TxOut {
		claimed += out.Value
	}
	if claimed > subsidy+fees {
		return newVerifyError(KindInvalid, "bad-cb-amount", 100)
	}

	if state.Axion && !state.Wellington {
		minRuleOutput := (claimed * coinbaseRuleNumerator) / coinbaseRuleDenom
		var ruleOutputTotal int64
		if len(coinbase.TxOut) > 1 {
			ruleOutputTotal = coinbase.TxOut[len(coinbase.TxOut)-1].Value
		}
		if ruleOutputTotal < minRuleOutput {
			return newVerifyError(KindInvalid, "bad-cb-coinbase-rule", 100)
		}
	}
	return nil
}

func blockSubsidy(height uint64, params *deployment.Params) int64 {
	const initialSubsidy = 50 * 1e8
	const halvingInterval = 210000
	halvings := height / halvingInterval
	if halvings >= 64 {
		return 0
	}
	return int64(initialSubsidy) >> halvings
}
