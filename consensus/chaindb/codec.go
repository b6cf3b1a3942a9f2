package chaindb

import (
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"

	"github.com/bchcore/node/consensus/chain"
	"github.com/bchcore/node/consensus/txscript"
)

// This package rolls its own fixed-layout binary codec rather than reaching
// for a generic serialization library: the on-disk record shapes here are
// an internal storage format, not the Bitcoin wire protocol (out of scope
// per the core's own non-goals), and every field is already fixed-width or
// length-prefixed, the same style consensus/chain/hash.go uses for header
// hashing. There is nothing a reflection-based encoder would buy here.

func putUint32(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func putUint64(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func putInt64(buf []byte, v int64) []byte { return putUint64(buf, uint64(v)) }

func putBytes(buf []byte, v []byte) []byte {
	buf = putUint32(buf, uint32(len(v)))
	return append(buf, v...)
}

type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) uint32() uint32 {
	if r.err != nil || r.off+4 > len(r.b) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint32(r.b[r.off:])
	r.off += 4
	return v
}

func (r *reader) uint64() uint64 {
	if r.err != nil || r.off+8 > len(r.b) {
		r.fail()
		return 0
	}
	v := binary.LittleEndian.Uint64(r.b[r.off:])
	r.off += 8
	return v
}

func (r *reader) int64() int64 { return int64(r.uint64()) }

func (r *reader) fixed(n int) []byte {
	if r.err != nil || r.off+n > len(r.b) {
		r.fail()
		return nil
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v
}

func (r *reader) bytes() []byte {
	n := r.uint32()
	return r.fixed(int(n))
}

func (r *reader) fail() {
	if r.err == nil {
		r.err = errors.New("chaindb: truncated record")
	}
}

// encodeEntry serializes a ChainEntry: fixed-width fields plus the
// variable-length chainwork big.Int.
func encodeEntry(e *chain.ChainEntry) []byte {
	buf := make([]byte, 0, 32+32+8+8+4+4+32)
	buf = append(buf, e.Hash[:]...)
	buf = append(buf, e.PrevHash[:]...)
	buf = putUint64(buf, e.Height)
	buf = putInt64(buf, e.Time)
	buf = putUint32(buf, e.Bits)
	buf = putUint32(buf, uint32(e.Version))
	work := e.Chainwork
	if work == nil {
		work = new(big.Int)
	}
	buf = putBytes(buf, work.Bytes())
	return buf
}

func decodeEntry(data []byte) (*chain.ChainEntry, error) {
	r := &reader{b: data}
	var hash, prevHash [32]byte
	copy(hash[:], r.fixed(32))
	copy(prevHash[:], r.fixed(32))
	height := r.uint64()
	t := r.int64()
	bits := r.uint32()
	version := r.uint32()
	workBytes := r.bytes()
	if r.err != nil {
		return nil, r.err
	}
	return &chain.ChainEntry{
		Hash:      hash,
		PrevHash:  prevHash,
		Height:    height,
		Time:      t,
		Bits:      bits,
		Version:   int32(version),
		Chainwork: new(big.Int).SetBytes(workBytes),
	}, nil
}

// encodeBlock serializes a Block's header plus its transactions.
func encodeBlock(b *chain.Block) []byte {
	buf := make([]byte, 0, 256)
	buf = putUint32(buf, uint32(b.Header.Version))
	buf = append(buf, b.Header.PrevHash[:]...)
	buf = append(buf, b.Header.MerkleRoot[:]...)
	buf = putInt64(buf, b.Header.Time)
	buf = putUint32(buf, b.Header.Bits)
	buf = putUint64(buf, b.Header.Nonce)
	buf = putUint32(buf, uint32(len(b.Txs)))
	for _, tx := range b.Txs {
		buf = encodeTx(buf, tx)
	}
	return buf
}

func encodeTx(buf []byte, tx *txscript.Tx) []byte {
	buf = putUint32(buf, uint32(tx.Version))
	buf = putUint32(buf, uint32(len(tx.TxIn)))
	for _, in := range tx.TxIn {
		buf = append(buf, in.PreviousOutpoint.Hash[:]...)
		buf = putUint32(buf, in.PreviousOutpoint.Index)
		buf = putBytes(buf, in.SignatureScript)
		buf = putUint32(buf, in.Sequence)
	}
	buf = putUint32(buf, uint32(len(tx.TxOut)))
	for _, out := range tx.TxOut {
		buf = putInt64(buf, out.Value)
		buf = putBytes(buf, out.PkScript)
	}
	buf = putUint32(buf, tx.LockTime)
	return buf
}

func decodeBlock(data []byte) (*chain.Block, error) {
	r := &reader{b: data}
	var header chain.Header
	header.Version = int32(r.uint32())
	copy(header.PrevHash[:], r.fixed(32))
	copy(header.MerkleRoot[:], r.fixed(32))
	header.Time = r.int64()
	header.Bits = r.uint32()
	header.Nonce = r.uint64()
	txCount := r.uint32()
	if r.err != nil {
		return nil, r.err
	}
	txs := make([]*txscript.Tx, 0, txCount)
	for i := uint32(0); i < txCount; i++ {
		tx, err := decodeTx(r)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return &chain.Block{Header: header, Txs: txs}, nil
}

func decodeTx(r *reader) (*txscript.Tx, error) {
	tx := &txscript.Tx{Version: int32(r.uint32())}
	inCount := r.uint32()
	tx.TxIn = make([]*txscript.TxIn, 0, inCount)
	for i := uint32(0); i < inCount; i++ {
		in := &txscript.TxIn{}
		copy(in.PreviousOutpoint.Hash[:], r.fixed(32))
		in.PreviousOutpoint.Index = r.uint32()
		in.SignatureScript = append([]byte(nil), r.bytes()...)
		in.Sequence = r.uint32()
		tx.TxIn = append(tx.TxIn, in)
	}
	outCount := r.uint32()
	tx.TxOut = make([]*txscript.TxOut, 0, outCount)
	for i := uint32(0); i < outCount; i++ {
		out := &txscript.TxOut{Value: r.int64()}
		out.PkScript = append([]byte(nil), r.bytes()...)
		tx.TxOut = append(tx.TxOut, out)
	}
	tx.LockTime = r.uint32()
	if r.err != nil {
		return nil, r.err
	}
	return tx, nil
}

// encodeCoin serializes a single UTXO entry.
func encodeCoin(c *chain.Coin) []byte {
	buf := make([]byte, 0, 32)
	buf = putInt64(buf, c.Output.Value)
	buf = putBytes(buf, c.Output.PkScript)
	buf = putUint64(buf, c.Height)
	if c.IsCoinbase {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

func decodeCoin(data []byte) (*chain.Coin, error) {
	r := &reader{b: data}
	value := r.int64()
	pkScript := append([]byte(nil), r.bytes()...)
	height := r.uint64()
	flag := r.fixed(1)
	if r.err != nil {
		return nil, r.err
	}
	return &chain.Coin{
		Output:     &txscript.TxOut{Value: value, PkScript: pkScript},
		Height:     height,
		IsCoinbase: flag[0] == 1,
	}, nil
}

// undoRemoval is one coin restored to the UTXO set when a block is
// disconnected: the outpoint it used to live at, plus its pre-spend value.
type undoRemoval struct {
	Op   txscript.Outpoint
	Coin *chain.Coin
}

// undoRecord is everything Disconnect needs to exactly reverse one Save: the
// outpoints the block newly created (to delete) and the coins it spent
// (to restore), recorded at connect time since a spent coin's prior value
// can't be recovered once overwritten.
type undoRecord struct {
	Added   []txscript.Outpoint
	Removed []undoRemoval
}

func encodeUndo(u *undoRecord) []byte {
	buf := make([]byte, 0, 64)
	buf = putUint32(buf, uint32(len(u.Added)))
	for _, op := range u.Added {
		buf = append(buf, op.Hash[:]...)
		buf = putUint32(buf, op.Index)
	}
	buf = putUint32(buf, uint32(len(u.Removed)))
	for _, rm := range u.Removed {
		buf = append(buf, rm.Op.Hash[:]...)
		buf = putUint32(buf, rm.Op.Index)
		buf = putBytes(buf, encodeCoin(rm.Coin))
	}
	return buf
}

func decodeUndo(data []byte) (*undoRecord, error) {
	r := &reader{b: data}
	addedCount := r.uint32()
	added := make([]txscript.Outpoint, 0, addedCount)
	for i := uint32(0); i < addedCount; i++ {
		var op txscript.Outpoint
		copy(op.Hash[:], r.fixed(32))
		op.Index = r.uint32()
		added = append(added, op)
	}
	removedCount := r.uint32()
	removed := make([]undoRemoval, 0, removedCount)
	for i := uint32(0); i < removedCount; i++ {
		var op txscript.Outpoint
		copy(op.Hash[:], r.fixed(32))
		op.Index = r.uint32()
		coinBytes := r.bytes()
		if r.err != nil {
			return nil, r.err
		}
		coin, err := decodeCoin(coinBytes)
		if err != nil {
			return nil, err
		}
		removed = append(removed, undoRemoval{Op: op, Coin: coin})
	}
	if r.err != nil {
		return nil, r.err
	}
	return &undoRecord{Added: added, Removed: removed}, nil
}
