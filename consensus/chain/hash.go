package chain

import (
	"crypto/sha256"
	"encoding/binary"
)

// hashHeader double-SHA256s a fixed little-endian serialization of the
// header fields, mirroring the Bitcoin header-hash layout narrowed to the
// fields this core models.
func hashHeader(h Header) Hash {
	buf := make([]byte, 0, 4+32+32+8+4+8)
	buf = appendUint32LE(buf, uint32(h.Version))
	buf = append(buf, h.PrevHash[:]...)
	buf = append(buf, h.MerkleRoot[:]...)
	buf = appendInt64LE(buf, h.Time)
	buf = appendUint32LE(buf, h.Bits)
	buf = appendUint64LE(buf, h.Nonce)

	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	return Hash(second)
}

func appendUint32LE(buf []byte, v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return append(buf, b[:]...)
}

func appendUint64LE(buf []byte, v uint64) []byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	return append(buf, b[:]...)
}

func appendInt64LE(buf []byte, v int64) []byte {
	return appendUint64LE(buf, uint64(v))
}
