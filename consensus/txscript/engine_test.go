// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha256"
	"testing"

	"github.com/bchcore/node/consensus/deployment"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ripemd160"
)

// stubChecker lets engine tests exercise CHECKSIG/CHECKMULTISIG control flow
// without real secp256k1 signatures: it answers CheckSig for a fixed sig/key
// pair, and never touches locktime.
type stubChecker struct {
	valid map[string]bool // key: string(sig)+"|"+string(pubKey)
}

func newStubChecker() *stubChecker { return &stubChecker{valid: map[string]bool{}} }

func (c *stubChecker) allow(sig, pubKey []byte) {
	c.valid[string(sig)+"|"+string(pubKey)] = true
}

func (c *stubChecker) CheckSig(sigWithHashType, pubKey []byte, _ *Script) (bool, error) {
	return c.valid[string(sigWithHashType)+"|"+string(pubKey)], nil
}

func (c *stubChecker) CheckDataSig(sig, _, pubKey []byte) (bool, error) {
	return c.valid[string(sig)+"|"+string(pubKey)], nil
}

func (c *stubChecker) CheckLockTime(int64) bool { return true }
func (c *stubChecker) CheckSequence(int64) bool { return true }

func hash160(b []byte) []byte {
	sh := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sh[:])
	return h.Sum(nil)
}

func mustScript(t *testing.T, b *ScriptBuilder) *Script {
	t.Helper()
	raw, err := b.Script()
	require.NoError(t, err)
	s, err := ParseScript(raw)
	require.NoError(t, err)
	return s
}

func TestVerifyTrivialPush(t *testing.T) {
	inputScript := mustScript(t, NewScriptBuilder().AddInt64(1))
	outputScript := mustScript(t, NewScriptBuilder().AddInt64(1).AddOp(OP_EQUAL))

	_, err := Verify(inputScript, outputScript, deployment.StandardFlags, nil)
	require.NoError(t, err)
}

func TestVerifyTrivialPushFalse(t *testing.T) {
	inputScript := mustScript(t, NewScriptBuilder().AddInt64(1))
	outputScript := mustScript(t, NewScriptBuilder().AddInt64(2).AddOp(OP_EQUAL))

	_, err := Verify(inputScript, outputScript, deployment.StandardFlags, nil)
	require.Error(t, err)
}

func TestVerifyP2PKHValidSignature(t *testing.T) {
	pubKey := make([]byte, 33)
	pubKey[0] = 0x02
	for i := 1; i < len(pubKey); i++ {
		pubKey[i] = byte(i)
	}
	sig := append([]byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01}, byte(SigHashAll)|byte(SigHashForkID))

	checker := newStubChecker()
	checker.allow(sig, pubKey)

	pkh := hash160(pubKey)
	outputScript := mustScript(t, NewScriptBuilder().
		AddOp(OP_DUP).AddOp(OP_HASH160).AddData(pkh).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG))
	inputScript := mustScript(t, NewScriptBuilder().AddData(sig).AddData(pubKey))

	flags := deployment.StandardFlags &^ deployment.ScriptStrictEnc &^ deployment.ScriptDERSig &^ deployment.ScriptLowS
	_, err := Verify(inputScript, outputScript, flags, checker)
	require.NoError(t, err)
}

func TestVerifyP2PKHFlippedSignatureFails(t *testing.T) {
	pubKey := make([]byte, 33)
	pubKey[0] = 0x02
	for i := 1; i < len(pubKey); i++ {
		pubKey[i] = byte(i)
	}
	sig := append([]byte{0x30, 0x06, 0x02, 0x01, 0x01, 0x02, 0x01, 0x01}, byte(SigHashAll)|byte(SigHashForkID))
	badSig := append([]byte{}, sig...)
	badSig[4] ^= 0xff // flip a byte inside the signature payload

	checker := newStubChecker()
	checker.allow(sig, pubKey) // only the original signature validates

	pkh := hash160(pubKey)
	outputScript := mustScript(t, NewScriptBuilder().
		AddOp(OP_DUP).AddOp(OP_HASH160).AddData(pkh).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG))
	inputScript := mustScript(t, NewScriptBuilder().AddData(badSig).AddData(pubKey))

	flags := deployment.StandardFlags &^ deployment.ScriptStrictEnc &^ deployment.ScriptDERSig &^ deployment.ScriptLowS
	_, err := Verify(inputScript, outputScript, flags, checker)
	require.Error(t, err)
}

func TestVerifyP2PKHNullFailRejectsFailedSignature(t *testing.T) {
	pubKey := make([]byte, 33)
	pubKey[0] = 0x03
	for i := 1; i < len(pubKey); i++ {
		pubKey[i] = byte(200 - i)
	}
	sig := append([]byte{0x30, 0x06, 0x02, 0x01, 0x02, 0x02, 0x01, 0x02}, byte(SigHashAll)|byte(SigHashForkID))

	checker := newStubChecker() // nothing allowed: CheckSig always returns false

	pkh := hash160(pubKey)
	outputScript := mustScript(t, NewScriptBuilder().
		AddOp(OP_DUP).AddOp(OP_HASH160).AddData(pkh).AddOp(OP_EQUALVERIFY).AddOp(OP_CHECKSIG))
	inputScript := mustScript(t, NewScriptBuilder().AddData(sig).AddData(pubKey))

	flags := deployment.StandardFlags &^ deployment.ScriptStrictEnc &^ deployment.ScriptDERSig &^ deployment.ScriptLowS
	_, err := Verify(inputScript, outputScript, flags, checker)
	require.Error(t, err) // NULLFAIL: a non-empty signature that fails must error, not just leave false
}

func TestVerifyCheckMultisig2of3(t *testing.T) {
	pubKeys := make([][]byte, 3)
	sigs := make([][]byte, 2)
	checker := newStubChecker()
	for i := range pubKeys {
		pk := make([]byte, 33)
		pk[0] = 0x02
		pk[1] = byte(i + 1)
		pubKeys[i] = pk
	}
	for i := range sigs {
		s := append([]byte{0x30, 0x06, 0x02, 0x01, byte(i + 1), 0x02, 0x01, byte(i + 1)}, byte(SigHashAll)|byte(SigHashForkID))
		sigs[i] = s
		checker.allow(s, pubKeys[i])
	}

	outputScript := mustScript(t, NewScriptBuilder().
		AddInt64(2).
		AddData(pubKeys[0]).AddData(pubKeys[1]).AddData(pubKeys[2]).
		AddInt64(3).AddOp(OP_CHECKMULTISIG))

	// Correct form: a bogus OP_0 dummy element precedes the signatures.
	inputScript := mustScript(t, NewScriptBuilder().
		AddOp(OP_0).AddData(sigs[0]).AddData(sigs[1]))

	flags := deployment.StandardFlags &^ deployment.ScriptStrictEnc &^ deployment.ScriptDERSig &^ deployment.ScriptLowS &^ deployment.ScriptNullDummy
	_, err := Verify(inputScript, outputScript, flags, checker)
	require.NoError(t, err)
}

func TestVerifyCheckMultisigNullDummyRejectsNonEmptyDummy(t *testing.T) {
	pubKeys := make([][]byte, 3)
	sigs := make([][]byte, 2)
	checker := newStubChecker()
	for i := range pubKeys {
		pk := make([]byte, 33)
		pk[0] = 0x02
		pk[1] = byte(i + 1)
		pubKeys[i] = pk
	}
	for i := range sigs {
		s := append([]byte{0x30, 0x06, 0x02, 0x01, byte(i + 1), 0x02, 0x01, byte(i + 1)}, byte(SigHashAll)|byte(SigHashForkID))
		sigs[i] = s
		checker.allow(s, pubKeys[i])
	}

	outputScript := mustScript(t, NewScriptBuilder().
		AddInt64(2).
		AddData(pubKeys[0]).AddData(pubKeys[1]).AddData(pubKeys[2]).
		AddInt64(3).AddOp(OP_CHECKMULTISIG))

	// NULLDUMMY violation: dummy element is non-empty.
	inputScript := mustScript(t, NewScriptBuilder().
		AddInt64(1).AddData(sigs[0]).AddData(sigs[1]))

	flags := deployment.StandardFlags &^ deployment.ScriptStrictEnc &^ deployment.ScriptDERSig &^ deployment.ScriptLowS
	_, err := Verify(inputScript, outputScript, flags, checker)
	require.Error(t, err)
}

func TestVerifySchnorrMultisigBitfield(t *testing.T) {
	pubKeys := make([][]byte, 3)
	sigs := make([][]byte, 3)
	checker := newStubChecker()
	for i := range pubKeys {
		pk := make([]byte, 33)
		pk[0] = 0x02
		pk[1] = byte(i + 1)
		pubKeys[i] = pk

		s := make([]byte, 65)
		s[0] = byte(i + 1)
		s[64] = byte(SigHashAll) | byte(SigHashForkID)
		sigs[i] = s
		checker.allow(s, pk)
	}

	outputScript := mustScript(t, NewScriptBuilder().
		AddInt64(2).
		AddData(pubKeys[0]).AddData(pubKeys[1]).AddData(pubKeys[2]).
		AddInt64(3).AddOp(OP_CHECKMULTISIG))

	// Bitfield selecting keys 0 and 2 (0b101), matching signatures for those keys.
	inputScript := mustScript(t, NewScriptBuilder().
		AddData([]byte{0x05}).AddData(sigs[0]).AddData(sigs[2]))

	flags := deployment.StandardFlags | deployment.ScriptSchnorrMultisig
	flags &^= deployment.ScriptStrictEnc | deployment.ScriptDERSig | deployment.ScriptLowS | deployment.ScriptNullDummy
	_, err := Verify(inputScript, outputScript, flags, checker)
	require.NoError(t, err)
}

func TestVerifySchnorrMultisigBitfieldWrongSignatureCountFails(t *testing.T) {
	pubKeys := make([][]byte, 3)
	checker := newStubChecker()
	for i := range pubKeys {
		pk := make([]byte, 33)
		pk[0] = 0x02
		pk[1] = byte(i + 1)
		pubKeys[i] = pk
	}

	outputScript := mustScript(t, NewScriptBuilder().
		AddInt64(2).
		AddData(pubKeys[0]).AddData(pubKeys[1]).AddData(pubKeys[2]).
		AddInt64(3).AddOp(OP_CHECKMULTISIG))

	// Bitfield claims 2 signers but only one signature is supplied.
	bogusSig := make([]byte, 64)
	inputScript := mustScript(t, NewScriptBuilder().
		AddData([]byte{0x05}).AddData(bogusSig))

	flags := deployment.StandardFlags | deployment.ScriptSchnorrMultisig
	flags &^= deployment.ScriptStrictEnc | deployment.ScriptDERSig | deployment.ScriptLowS | deployment.ScriptNullDummy
	_, err := Verify(inputScript, outputScript, flags, checker)
	require.Error(t, err)
}

func TestVerifyP2SHRedeemScript(t *testing.T) {
	checker := newStubChecker()
	redeemScript := mustScript(t, NewScriptBuilder().AddInt64(1).AddOp(OP_EQUAL))
	redeemBytes := redeemScript.Bytes()

	scriptHash := hash160(redeemBytes)
	outputScript := mustScript(t, NewScriptBuilder().
		AddOp(OP_HASH160).AddData(scriptHash).AddOp(OP_EQUAL))
	inputScript := mustScript(t, NewScriptBuilder().
		AddInt64(1).AddData(redeemBytes))

	_, err := Verify(inputScript, outputScript, deployment.StandardFlags, checker)
	require.NoError(t, err)
}

func TestVerifyCleanStackRejectsExtraData(t *testing.T) {
	inputScript := mustScript(t, NewScriptBuilder().AddInt64(1).AddInt64(1).AddInt64(1))
	outputScript := mustScript(t, NewScriptBuilder().AddOp(OP_EQUAL))

	_, err := Verify(inputScript, outputScript, deployment.StandardFlags, nil)
	require.Error(t, err) // leftover element on the stack violates CLEANSTACK
}
