package chain

import (
	"math/big"

	"github.com/bchcore/node/consensus/deployment"
)

// checkProofOfWork verifies block's hash satisfies the difficulty target
// encoded in its own bits field, and that those bits do not exceed the
// network's proof-of-work ceiling.
func checkProofOfWork(block *Block, params *deployment.Params) *VerifyError {
	target := CompactToBig(block.Header.Bits)
	if target.Sign() <= 0 || target.Cmp(params.PowLimit) > 0 {
		return newVerifyError(KindInvalid, "bad-diffbits", 100)
	}

	hash := block.Hash()
	hashNum := hashToBig(hash)
	if hashNum.Cmp(target) > 0 {
		return newVerifyError(KindInvalid, "high-hash", 50)
	}
	return nil
}

// checkHighHash is the degraded check used when VERIFY_POW is disabled
// (e.g. a trusted checkpoint-only replay): it only confirms the bits field
// decodes to a sane positive target, per spec.md's "else high-hash" branch.
func checkHighHash(block *Block) *VerifyError {
	target := CompactToBig(block.Header.Bits)
	if target.Sign() <= 0 {
		return newVerifyError(KindInvalid, "high-hash", 50)
	}
	return nil
}

// hashToBig interprets a block hash as a big-endian unsigned integer after
// reversing its little-endian byte order, the standard Bitcoin-family
// hash-as-target comparison.
func hashToBig(h Hash) *big.Int {
	reversed := make([]byte, len(h))
	for i := range h {
		reversed[i] = h[len(h)-1-i]
	}
	return new(big.Int).SetBytes(reversed)
}
