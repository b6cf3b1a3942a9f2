// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
)

var errSigHashSingleIndex = errors.New("SIGHASH_SINGLE requires a matching output index")

// Signature hash types, encoded as the low byte appended to every signature.
const (
	SigHashOld          = 0x0
	SigHashAll          = 0x1
	SigHashNone         = 0x2
	SigHashSingle       = 0x3
	SigHashForkID       = 0x40
	SigHashAnyOneCanPay = 0x80

	sigHashMask = 0x1f
)

func doubleSha256(b []byte) [32]byte {
	first := sha256.Sum256(b)
	return sha256.Sum256(first[:])
}

func putUint32LE(buf []byte, v uint32) { binary.LittleEndian.PutUint32(buf, v) }
func putUint64LE(buf []byte, v uint64) { binary.LittleEndian.PutUint64(buf, v) }

func writeVarInt(buf []byte, n uint64) []byte {
	switch {
	case n < 0xfd:
		return append(buf, byte(n))
	case n <= 0xffff:
		b := make([]byte, 3)
		b[0] = 0xfd
		binary.LittleEndian.PutUint16(b[1:], uint16(n))
		return append(buf, b...)
	case n <= 0xffffffff:
		b := make([]byte, 5)
		b[0] = 0xfe
		binary.LittleEndian.PutUint32(b[1:], uint32(n))
		return append(buf, b...)
	default:
		b := make([]byte, 9)
		b[0] = 0xff
		binary.LittleEndian.PutUint64(b[1:], n)
		return append(buf, b...)
	}
}

func serializeOutpoint(buf []byte, op Outpoint) []byte {
	buf = append(buf, op.Hash[:]...)
	idx := make([]byte, 4)
	putUint32LE(idx, op.Index)
	return append(buf, idx...)
}

func serializeTxOut(buf []byte, out *TxOut) []byte {
	v := make([]byte, 8)
	putUint64LE(v, uint64(out.Value))
	buf = append(buf, v...)
	buf = writeVarInt(buf, uint64(len(out.PkScript)))
	return append(buf, out.PkScript...)
}

// CalcSignatureHash computes the 32-byte digest signed over by a CHECKSIG
// family opcode. When hashType carries SIGHASH_FORKID it uses the BIP143-
// style replay-protected preimage (version, prevouts digest, sequence
// digest, outpoint, subscript, prevValue, sequence, outputs digest,
// locktime, hashtype); otherwise it falls back to the legacy
// whole-transaction-with-substitution algorithm.
func CalcSignatureHash(subscript *Script, hashType byte, tx *Tx, inputIndex int, prevValue int64) ([32]byte, error) {
	if hashType&SigHashForkID != 0 {
		return calcForkIDSignatureHash(subscript, hashType, tx, inputIndex, prevValue), nil
	}
	return calcLegacySignatureHash(subscript, hashType, tx, inputIndex)
}

func calcForkIDSignatureHash(subscript *Script, hashType byte, tx *Tx, inputIndex int, prevValue int64) [32]byte {
	anyoneCanPay := hashType&SigHashAnyOneCanPay != 0
	sigHashType := hashType & sigHashMask

	var hashPrevouts, hashSequence, hashOutputs [32]byte

	if !anyoneCanPay {
		var buf []byte
		for _, in := range tx.TxIn {
			buf = serializeOutpoint(buf, in.PreviousOutpoint)
		}
		hashPrevouts = doubleSha256(buf)
	}

	if !anyoneCanPay && sigHashType != SigHashSingle && sigHashType != SigHashNone {
		var buf []byte
		for _, in := range tx.TxIn {
			seq := make([]byte, 4)
			putUint32LE(seq, in.Sequence)
			buf = append(buf, seq...)
		}
		hashSequence = doubleSha256(buf)
	}

	if sigHashType != SigHashSingle && sigHashType != SigHashNone {
		var buf []byte
		for _, out := range tx.TxOut {
			buf = serializeTxOut(buf, out)
		}
		hashOutputs = doubleSha256(buf)
	} else if sigHashType == SigHashSingle && inputIndex < len(tx.TxOut) {
		hashOutputs = doubleSha256(serializeTxOut(nil, tx.TxOut[inputIndex]))
	}

	var buf []byte
	ver := make([]byte, 4)
	putUint32LE(ver, uint32(tx.Version))
	buf = append(buf, ver...)
	buf = append(buf, hashPrevouts[:]...)
	buf = append(buf, hashSequence[:]...)
	buf = serializeOutpoint(buf, tx.TxIn[inputIndex].PreviousOutpoint)
	buf = writeVarInt(buf, uint64(len(subscript.Bytes())))
	buf = append(buf, subscript.Bytes()...)
	val := make([]byte, 8)
	putUint64LE(val, uint64(prevValue))
	buf = append(buf, val...)
	seq := make([]byte, 4)
	putUint32LE(seq, tx.TxIn[inputIndex].Sequence)
	buf = append(buf, seq...)
	buf = append(buf, hashOutputs[:]...)
	lt := make([]byte, 4)
	putUint32LE(lt, tx.LockTime)
	buf = append(buf, lt...)
	ht := make([]byte, 4)
	putUint32LE(ht, uint32(hashType))
	buf = append(buf, ht...)

	return doubleSha256(buf)
}

// calcLegacySignatureHash implements the pre-UAHF algorithm: the whole
// transaction is serialized with the signed input's script replaced by
// subscript, every other input's script emptied, and outputs trimmed or
// zeroed per SIGHASH_NONE/SIGHASH_SINGLE before being hashed with the
// hashtype appended.
func calcLegacySignatureHash(subscript *Script, hashType byte, tx *Tx, inputIndex int) ([32]byte, error) {
	sigHashType := hashType & sigHashMask

	txCopy := &Tx{
		Version:  tx.Version,
		LockTime: tx.LockTime,
	}

	if sigHashType == SigHashNone {
		txCopy.TxOut = nil
	} else if sigHashType == SigHashSingle {
		if inputIndex >= len(tx.TxOut) {
			var zero [32]byte
			return zero, errSigHashSingleIndex
		}
		txCopy.TxOut = make([]*TxOut, inputIndex+1)
		for i := 0; i < inputIndex; i++ {
			txCopy.TxOut[i] = &TxOut{Value: -1}
		}
		txCopy.TxOut[inputIndex] = tx.TxOut[inputIndex]
	} else {
		txCopy.TxOut = tx.TxOut
	}

	if hashType&SigHashAnyOneCanPay != 0 {
		txCopy.TxIn = []*TxIn{{
			PreviousOutpoint: tx.TxIn[inputIndex].PreviousOutpoint,
			SignatureScript:  subscript.Bytes(),
			Sequence:         tx.TxIn[inputIndex].Sequence,
		}}
	} else {
		txCopy.TxIn = make([]*TxIn, len(tx.TxIn))
		for i, in := range tx.TxIn {
			seq := in.Sequence
			script := []byte(nil)
			if i == inputIndex {
				script = subscript.Bytes()
			} else if sigHashType == SigHashNone || sigHashType == SigHashSingle {
				seq = 0
			}
			txCopy.TxIn[i] = &TxIn{
				PreviousOutpoint: in.PreviousOutpoint,
				SignatureScript:  script,
				Sequence:         seq,
			}
		}
	}

	var buf []byte
	ver := make([]byte, 4)
	putUint32LE(ver, uint32(txCopy.Version))
	buf = append(buf, ver...)
	buf = writeVarInt(buf, uint64(len(txCopy.TxIn)))
	for _, in := range txCopy.TxIn {
		buf = serializeOutpoint(buf, in.PreviousOutpoint)
		buf = writeVarInt(buf, uint64(len(in.SignatureScript)))
		buf = append(buf, in.SignatureScript...)
		seq := make([]byte, 4)
		putUint32LE(seq, in.Sequence)
		buf = append(buf, seq...)
	}
	buf = writeVarInt(buf, uint64(len(txCopy.TxOut)))
	for _, out := range txCopy.TxOut {
		buf = serializeTxOut(buf, out)
	}
	lt := make([]byte, 4)
	putUint32LE(lt, txCopy.LockTime)
	buf = append(buf, lt...)
	ht := make([]byte, 4)
	putUint32LE(ht, uint32(hashType))
	buf = append(buf, ht...)

	return doubleSha256(buf), nil
}
