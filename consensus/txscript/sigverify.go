// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/kaspanet/go-secp256k1"
)

// verifySchnorr checks a 64-byte Schnorr signature, the way
// domain/consensus/utils/txscript/sign.go signs with the same library's
// SchnorrKeyPair/SchnorrSign pair, mirrored here on the verify side.
func verifySchnorr(sigBytes, pubKeyBytes, hash []byte) (bool, error) {
	var sigArr [64]byte
	copy(sigArr[:], sigBytes)
	sig := secp256k1.DeserializeSchnorrSignature((*secp256k1.SerializedSchnorrSignature)(&sigArr))
	pubKey, err := secp256k1.DeserializeSchnorrPubKey(pubKeyBytes)
	if err != nil {
		return false, err
	}
	var msgHash secp256k1.Hash
	copy(msgHash[:], hash)
	return pubKey.SchnorrVerify(&msgHash, sig), nil
}

// verifyECDSA checks a DER-encoded ECDSA signature. The teacher's package
// only ever signs with Schnorr; this is an adaptation that exercises the
// same library's lower-level ECDSA primitives for the DER-signature path
// spec.md §4.2 still requires.
func verifyECDSA(sigBytes, pubKeyBytes, hash []byte) (bool, error) {
	sig, err := secp256k1.DeserializeECDSASignatureFromDER(sigBytes)
	if err != nil {
		return false, err
	}
	pubKey, err := secp256k1.DeserializeECDSAPubKey(pubKeyBytes)
	if err != nil {
		return false, err
	}
	var msgHash secp256k1.Hash
	copy(msgHash[:], hash)
	return pubKey.ECDSAVerify(&msgHash, sig), nil
}
