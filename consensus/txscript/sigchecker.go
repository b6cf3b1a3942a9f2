// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "crypto/sha256"

// TxSignatureChecker implements SignatureChecker against a concrete
// transaction and input index, the way every teacher package resolves
// CHECKSIG against the spending transaction rather than an abstract
// interface — kept here as an interface so tests can substitute a stub.
type TxSignatureChecker struct {
	Tx         *Tx
	InputIndex int
	PrevValue  int64
}

// CheckSig verifies sigWithHashType (a signature with its trailing hashtype
// byte) against pubKey over the signature hash computed for subscript.
// Empty sigs are not dispatched here; callers skip the call and treat the
// result as false per spec's "empty sig is allowed, simply yields false".
func (c *TxSignatureChecker) CheckSig(sigWithHashType, pubKey []byte, subscript *Script) (bool, error) {
	hashType := sigWithHashType[len(sigWithHashType)-1]
	sig := sigWithHashType[:len(sigWithHashType)-1]

	hash, err := CalcSignatureHash(subscript, hashType, c.Tx, c.InputIndex, c.PrevValue)
	if err != nil {
		return false, err
	}
	if len(sig) == 64 {
		return verifySchnorr(sig, pubKey, hash[:])
	}
	return verifyECDSA(sig, pubKey, hash[:])
}

// CheckDataSig verifies a bare signature (no hashtype byte, no subscript)
// against SHA256(msg), as used by CHECKDATASIG.
func (c *TxSignatureChecker) CheckDataSig(sig, msg, pubKey []byte) (bool, error) {
	h := sha256.Sum256(msg)
	if len(sig) == 64 {
		return verifySchnorr(sig, pubKey, h[:])
	}
	return verifyECDSA(sig, pubKey, h[:])
}

// CheckLockTime implements BIP65: the candidate locktime must share the
// height-vs-time domain with the transaction's own locktime, be no greater
// than it, and the spent input's sequence must not be final (otherwise
// locktime has no effect at all).
func (c *TxSignatureChecker) CheckLockTime(lockTime int64) bool {
	txLockTime := int64(c.Tx.LockTime)

	sameDomain := (txLockTime < lockTimeThreshold && lockTime < lockTimeThreshold) ||
		(txLockTime >= lockTimeThreshold && lockTime >= lockTimeThreshold)
	if !sameDomain {
		return false
	}
	if lockTime > txLockTime {
		return false
	}
	if c.Tx.TxIn[c.InputIndex].Sequence == 0xffffffff {
		return false
	}
	return true
}

// CheckSequence implements BIP112 relative locktime comparison between the
// candidate sequence operand and the spending input's own nSequence.
func (c *TxSignatureChecker) CheckSequence(sequence int64) bool {
	if c.Tx.Version < 2 {
		return false
	}
	txSequence := int64(c.Tx.TxIn[c.InputIndex].Sequence)
	if txSequence&sequenceLockTimeDisableFlag != 0 {
		return false
	}

	mask := int64(sequenceLockTimeTypeFlag | sequenceLockTimeMask)
	txMasked := txSequence & mask
	wantMasked := sequence & mask

	sameDomain := (txMasked < sequenceLockTimeTypeFlag && wantMasked < sequenceLockTimeTypeFlag) ||
		(txMasked >= sequenceLockTimeTypeFlag && wantMasked >= sequenceLockTimeTypeFlag)
	if !sameDomain {
		return false
	}
	return wantMasked <= txMasked
}
