// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"math/big"

	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/scripterror"
)

// CountSigOps returns script's static (non-executing) legacy signature-
// operation count, the way GetSigOpCount scans a scriptSig/scriptPubKey
// without running it: CHECKSIG/CHECKSIGVERIFY and CHECKDATASIG/
// CHECKDATASIGVERIFY each count as one; CHECKMULTISIG/CHECKMULTISIGVERIFY
// count as maxPubKeysPerMultisig unless immediately preceded by a
// small-integer push (OP_1..OP_16), in which case that pushed key count is
// used instead. Malformed trailing pushes are skipped, not counted.
func CountSigOps(script *Script) int {
	total := 0
	var prevValue byte
	for _, op := range script.Opcodes() {
		if op.IsMalformed() {
			continue
		}
		switch op.Value() {
		case OP_CHECKSIG, OP_CHECKSIGVERIFY, OP_CHECKDATASIG, OP_CHECKDATASIGVERIFY:
			total++
		case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
			if prevValue >= OP_1 && prevValue <= OP_16 {
				total += int(prevValue-OP_1) + 1
			} else {
				total += maxPubKeysPerMultisig
			}
		}
		prevValue = op.Value()
	}
	return total
}

// halfOrder is half the secp256k1 group order; a valid low-S signature has
// its S component at or below this value.
var halfOrder = new(big.Int).Rsh(secp256k1Order(), 1)

func secp256k1Order() *big.Int {
	order, _ := new(big.Int).SetString("fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141", 16)
	return order
}

func (vm *Interpreter) opCheckSig(verify bool) error {
	if vm.checker == nil {
		return scripterror.New(scripterror.ErrUnknownError, "no transaction context for CHECKSIG")
	}

	pubKey, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	sig, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	subscript := vm.script.subscript(vm.lastCodeSeparator)
	if len(sig) != 0 {
		hashType := sig[len(sig)-1]
		if hashType&SigHashForkID == 0 {
			subscript = subscript.findAndDelete(sig)
		}
		if err := vm.checkSignatureEncoding(sig); err != nil {
			return err
		}
	}
	if err := vm.checkPubKeyEncoding(pubKey); err != nil {
		return err
	}

	var ok bool
	if len(sig) != 0 {
		vm.sigChecks++
		ok, _ = vm.checker.CheckSig(sig, pubKey, subscript)
	}

	if !ok && len(sig) != 0 && vm.flags.Has(deployment.ScriptNullFail) {
		return scripterror.New(scripterror.ErrNullFail, "signature verification failed with non-empty signature")
	}

	if verify {
		if !ok {
			return scripterror.New(scripterror.ErrCheckSigVerify, "OP_CHECKSIGVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(ok)
	return nil
}

func (vm *Interpreter) opCheckDataSig(verify bool) error {
	if vm.checker == nil {
		return scripterror.New(scripterror.ErrUnknownError, "no transaction context for CHECKDATASIG")
	}
	if !vm.flags.Has(deployment.ScriptCheckDataSig) {
		return scripterror.New(scripterror.ErrBadOpcode, "CHECKDATASIG is not yet active")
	}

	pubKey, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	msg, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	sig, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	if len(sig) != 0 {
		if err := vm.checkDataSignatureEncoding(sig); err != nil {
			return err
		}
	}
	if err := vm.checkPubKeyEncoding(pubKey); err != nil {
		return err
	}

	var ok bool
	if len(sig) != 0 {
		vm.sigChecks++
		ok, _ = vm.checker.CheckDataSig(sig, msg, pubKey)
	}

	if !ok && len(sig) != 0 && vm.flags.Has(deployment.ScriptNullFail) {
		return scripterror.New(scripterror.ErrNullFail, "data signature verification failed with non-empty signature")
	}

	if verify {
		if !ok {
			return scripterror.New(scripterror.ErrCheckDataSigVerify, "OP_CHECKDATASIGVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(ok)
	return nil
}

func (vm *Interpreter) opCheckMultiSig(verify bool) error {
	if vm.checker == nil {
		return scripterror.New(scripterror.ErrUnknownError, "no transaction context for CHECKMULTISIG")
	}

	nKeysNum, err := vm.popNum()
	if err != nil {
		return err
	}
	nKeys := int(nKeysNum.Int64())
	if nKeys < 0 || nKeys > maxPubKeysPerMultisig {
		return scripterror.New(scripterror.ErrPubKeyCount, "public key count out of range")
	}
	vm.opCount += nKeys
	if vm.opCount > maxOpsPerScript {
		return scripterror.New(scripterror.ErrOpCount, "exceeded max operation limit")
	}

	keys := make([][]byte, nKeys)
	for i := 0; i < nKeys; i++ {
		k, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		keys[i] = k
	}

	nSigsNum, err := vm.popNum()
	if err != nil {
		return err
	}
	nSigs := int(nSigsNum.Int64())
	if nSigs < 0 || nSigs > nKeys {
		return scripterror.New(scripterror.ErrSigCount, "signature count out of range")
	}

	sigs := make([][]byte, nSigs)
	for i := 0; i < nSigs; i++ {
		s, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		sigs[i] = s
	}

	dummy, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	var ok bool
	if vm.flags.Has(deployment.ScriptSchnorrMultisig) && len(dummy) != 0 {
		ok, err = vm.schnorrMultisig(dummy, sigs, keys)
	} else {
		if vm.flags.Has(deployment.ScriptNullDummy) && len(dummy) != 0 {
			return scripterror.New(scripterror.ErrSigPushOnly, "multisig dummy element must be empty")
		}
		ok, err = vm.legacyMultisig(sigs, keys)
	}
	if err != nil {
		return err
	}

	if !ok && vm.flags.Has(deployment.ScriptNullFail) {
		if len(dummy) != 0 {
			return scripterror.New(scripterror.ErrNullFail, "failed multisig must have an empty dummy element")
		}
		for _, s := range sigs {
			if len(s) != 0 {
				return scripterror.New(scripterror.ErrNullFail, "failed multisig must have only empty signatures")
			}
		}
	}

	if verify {
		if !ok {
			return scripterror.New(scripterror.ErrCheckMultiSigVerify, "OP_CHECKMULTISIGVERIFY failed")
		}
		return nil
	}
	vm.dstack.PushBool(ok)
	return nil
}

// legacyMultisig implements the pre-Schnorr-multisig "Satoshi bug" algorithm:
// signatures and keys are each matched greedily in their popped order, a
// signature allowed to skip non-matching keys but never go backwards.
func (vm *Interpreter) legacyMultisig(sigs, keys [][]byte) (bool, error) {
	subscript := vm.script.subscript(vm.lastCodeSeparator)
	for _, sig := range sigs {
		if len(sig) == 0 {
			continue
		}
		if sig[len(sig)-1]&SigHashForkID == 0 {
			subscript = subscript.findAndDelete(sig)
		}
	}

	sigIdx, keyIdx := 0, 0
	nSigs, nKeys := len(sigs), len(keys)
	for nSigs > 0 {
		if nKeys == 0 {
			return false, nil
		}
		sig := sigs[sigIdx]
		key := keys[keyIdx]

		if len(sig) != 0 {
			if err := vm.checkSignatureEncoding(sig); err != nil {
				return false, err
			}
		}
		if err := vm.checkPubKeyEncoding(key); err != nil {
			return false, err
		}

		matched := false
		if len(sig) != 0 {
			vm.sigChecks++
			matched, _ = vm.checker.CheckSig(sig, key, subscript)
		}
		if matched {
			sigIdx++
			nSigs--
		}
		keyIdx++
		nKeys--
		if nSigs > nKeys {
			return false, nil
		}
	}
	return true, nil
}

// schnorrMultisig implements the bitfield-indexed path: dummy is a
// big-endian bitfield over the nKeys candidate keys (bit i of its integer
// value selects keys[i]) selecting exactly nSigs of them, each matched
// positionally to the next Schnorr signature.
func (vm *Interpreter) schnorrMultisig(bitfield []byte, sigs, keys [][]byte) (bool, error) {
	nKeys := len(keys)
	nSigs := len(sigs)
	wantBytes := (nKeys + 7) / 8
	if len(bitfield) != wantBytes {
		return false, scripterror.New(scripterror.ErrInvalidBitfieldSize, "bitfield size does not match key count")
	}

	selected := make([]bool, nKeys)
	popcount := 0
	for i := 0; i < nKeys; i++ {
		byteIdx := wantBytes - 1 - i/8
		bitIdx := uint(i % 8)
		if bitfield[byteIdx]&(1<<bitIdx) != 0 {
			selected[i] = true
			popcount++
		}
	}
	if rem := nKeys % 8; rem != 0 && wantBytes > 0 {
		mask := byte(0xff) << uint(rem)
		if bitfield[0]&mask != 0 {
			return false, scripterror.New(scripterror.ErrBitRange, "bitfield sets a bit beyond the key count")
		}
	}
	if popcount != nSigs {
		return false, scripterror.New(scripterror.ErrInvalidBitCount, "selected key count does not match signature count")
	}

	subscript := vm.script.subscript(vm.lastCodeSeparator)
	sigIdx := 0
	for i := 0; i < nKeys; i++ {
		if !selected[i] {
			continue
		}
		sig := sigs[sigIdx]
		key := keys[i]
		if len(sig) != 65 {
			return false, scripterror.New(scripterror.ErrSigBadLength, "Schnorr multisig signatures must be 64 bytes plus hashtype")
		}
		if err := vm.checkSignatureEncoding(sig); err != nil {
			return false, err
		}
		if err := vm.checkPubKeyEncoding(key); err != nil {
			return false, err
		}
		vm.sigChecks++
		ok, _ := vm.checker.CheckSig(sig, key, subscript)
		if !ok {
			return false, nil
		}
		sigIdx++
	}
	return true, nil
}

// checkSignatureEncoding validates the hashtype-suffixed signature used by
// CHECKSIG/CHECKMULTISIG: hashtype byte legality under SIGHASH_FORKID, then
// either the 64-byte Schnorr form or strict-DER-plus-low-S.
func (vm *Interpreter) checkSignatureEncoding(sig []byte) error {
	hashType := sig[len(sig)-1]
	rawSig := sig[:len(sig)-1]

	if vm.flags.Has(deployment.ScriptSigHashForkID) {
		if hashType&SigHashForkID == 0 {
			return scripterror.New(scripterror.ErrMustUseForkID, "signature must set SIGHASH_FORKID")
		}
	} else if hashType&SigHashForkID != 0 {
		return scripterror.New(scripterror.ErrIllegalForkID, "signature must not set SIGHASH_FORKID")
	}

	if vm.flags.Has(deployment.ScriptStrictEnc) {
		baseType := hashType &^ (SigHashForkID | SigHashAnyOneCanPay)
		if baseType < SigHashAll || baseType > SigHashSingle {
			return scripterror.New(scripterror.ErrSigHashType, "invalid hashtype byte")
		}
	}

	return vm.checkDataSignatureEncoding(rawSig)
}

// checkDataSignatureEncoding validates a bare signature with no hashtype
// byte, as used by CHECKDATASIG.
func (vm *Interpreter) checkDataSignatureEncoding(sig []byte) error {
	if len(sig) == 64 {
		if vm.flags.Has(deployment.ScriptStrictEnc) && !vm.flags.Has(deployment.ScriptSchnorr) {
			return scripterror.New(scripterror.ErrSigNonSchnorr, "Schnorr signatures not yet permitted")
		}
		return nil
	}

	if vm.flags.Has(deployment.ScriptDERSig) || vm.flags.Has(deployment.ScriptLowS) || vm.flags.Has(deployment.ScriptStrictEnc) {
		if err := checkDERSignature(sig); err != nil {
			return err
		}
	}
	if vm.flags.Has(deployment.ScriptLowS) {
		if err := checkLowS(sig); err != nil {
			return err
		}
	}
	return nil
}

func (vm *Interpreter) checkPubKeyEncoding(pubKey []byte) error {
	if !vm.flags.Has(deployment.ScriptStrictEnc) && !vm.flags.Has(deployment.ScriptCompressedPubKeyType) {
		return nil
	}
	if len(pubKey) == 33 && (pubKey[0] == 0x02 || pubKey[0] == 0x03) {
		return nil
	}
	if len(pubKey) == 65 && pubKey[0] == 0x04 {
		if vm.flags.Has(deployment.ScriptCompressedPubKeyType) {
			return scripterror.New(scripterror.ErrNonCompressedPubkey, "uncompressed public keys are disallowed")
		}
		return nil
	}
	return scripterror.New(scripterror.ErrPubKeyType, "unrecognized public key encoding")
}

// checkDERSignature enforces the strict DER grammar: SEQUENCE { INTEGER r,
// INTEGER s } with no trailing bytes, matching the canonical encoding
// consensus requires once DERSIG/LOW_S/STRICTENC is active.
func checkDERSignature(sig []byte) error {
	if len(sig) < 8 || len(sig) > 72 {
		return scripterror.New(scripterror.ErrSigDER, "signature length out of range")
	}
	if sig[0] != 0x30 {
		return scripterror.New(scripterror.ErrSigDER, "signature does not start with a DER sequence tag")
	}
	if int(sig[1]) != len(sig)-2 {
		return scripterror.New(scripterror.ErrSigDER, "DER sequence length mismatch")
	}

	rLen := int(sig[3])
	if 4+rLen >= len(sig) {
		return scripterror.New(scripterror.ErrSigDER, "DER R length out of bounds")
	}
	if sig[2] != 0x02 {
		return scripterror.New(scripterror.ErrSigDER, "DER R is not an integer")
	}
	sLenOffset := 4 + rLen
	if sig[sLenOffset] != 0x02 {
		return scripterror.New(scripterror.ErrSigDER, "DER S is not an integer")
	}
	sLen := int(sig[sLenOffset+1])
	if sLenOffset+2+sLen != len(sig) {
		return scripterror.New(scripterror.ErrSigDER, "DER S length mismatch")
	}

	if rLen == 0 || sLen == 0 {
		return scripterror.New(scripterror.ErrSigDER, "DER R or S has zero length")
	}
	rBytes := sig[4 : 4+rLen]
	sBytes := sig[sLenOffset+2 : sLenOffset+2+sLen]
	if rBytes[0]&0x80 != 0 || sBytes[0]&0x80 != 0 {
		return scripterror.New(scripterror.ErrSigDER, "DER R or S is negative")
	}
	if rLen > 1 && rBytes[0] == 0 && rBytes[1]&0x80 == 0 {
		return scripterror.New(scripterror.ErrSigDER, "DER R has excessive padding")
	}
	if sLen > 1 && sBytes[0] == 0 && sBytes[1]&0x80 == 0 {
		return scripterror.New(scripterror.ErrSigDER, "DER S has excessive padding")
	}
	return nil
}

// checkLowS requires the DER signature's S component be at most half the
// group order, the canonical form enforced once LOW_S is active.
func checkLowS(sig []byte) error {
	if len(sig) < 8 {
		return scripterror.New(scripterror.ErrSigHighS, "signature too short to contain S")
	}
	rLen := int(sig[3])
	sLenOffset := 4 + rLen
	if sLenOffset+1 >= len(sig) {
		return scripterror.New(scripterror.ErrSigHighS, "malformed signature")
	}
	sLen := int(sig[sLenOffset+1])
	sBytes := sig[sLenOffset+2 : sLenOffset+2+sLen]
	s := new(big.Int).SetBytes(sBytes)
	if s.Cmp(halfOrder) > 0 {
		return scripterror.New(scripterror.ErrSigHighS, "signature S value is higher than half the group order")
	}
	return nil
}
