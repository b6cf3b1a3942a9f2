// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import "fmt"

// Opcode byte values. Numeric identities match Bitcoin-Cash consensus.
const (
	OP_0         = 0x00
	OP_FALSE     = 0x00
	OP_PUSHDATA1 = 0x4c
	OP_PUSHDATA2 = 0x4d
	OP_PUSHDATA4 = 0x4e
	OP_1NEGATE   = 0x4f
	OP_RESERVED  = 0x50
	OP_1         = 0x51
	OP_TRUE      = 0x51
	OP_2         = 0x52
	OP_3         = 0x53
	OP_4         = 0x54
	OP_5         = 0x55
	OP_6         = 0x56
	OP_7         = 0x57
	OP_8         = 0x58
	OP_9         = 0x59
	OP_10        = 0x5a
	OP_11        = 0x5b
	OP_12        = 0x5c
	OP_13        = 0x5d
	OP_14        = 0x5e
	OP_15        = 0x5f
	OP_16        = 0x60

	OP_NOP         = 0x61
	OP_VER         = 0x62
	OP_IF          = 0x63
	OP_NOTIF       = 0x64
	OP_VERIF       = 0x65
	OP_VERNOTIF    = 0x66
	OP_ELSE        = 0x67
	OP_ENDIF       = 0x68
	OP_VERIFY      = 0x69
	OP_RETURN      = 0x6a
	OP_TOALTSTACK   = 0x6b
	OP_FROMALTSTACK = 0x6c
	OP_2DROP       = 0x6d
	OP_2DUP        = 0x6e
	OP_3DUP        = 0x6f
	OP_2OVER       = 0x70
	OP_2ROT        = 0x71
	OP_2SWAP       = 0x72
	OP_IFDUP       = 0x73
	OP_DEPTH       = 0x74
	OP_DROP        = 0x75
	OP_DUP         = 0x76
	OP_NIP         = 0x77
	OP_OVER        = 0x78
	OP_PICK        = 0x79
	OP_ROLL        = 0x7a
	OP_ROT         = 0x7b
	OP_SWAP        = 0x7c
	OP_TUCK        = 0x7d

	OP_CAT        = 0x7e
	OP_SPLIT      = 0x7f
	OP_NUM2BIN    = 0x80
	OP_BIN2NUM    = 0x81
	OP_SIZE       = 0x82

	OP_INVERT = 0x83
	OP_AND    = 0x84
	OP_OR     = 0x85
	OP_XOR    = 0x86
	OP_EQUAL  = 0x87
	OP_EQUALVERIFY = 0x88
	OP_RESERVED1   = 0x89
	OP_RESERVED2   = 0x8a

	OP_1ADD      = 0x8b
	OP_1SUB      = 0x8c
	OP_2MUL      = 0x8d
	OP_2DIV      = 0x8e
	OP_NEGATE    = 0x8f
	OP_ABS       = 0x90
	OP_NOT       = 0x91
	OP_0NOTEQUAL = 0x92

	OP_ADD    = 0x93
	OP_SUB    = 0x94
	OP_MUL    = 0x95
	OP_DIV    = 0x96
	OP_MOD    = 0x97
	OP_LSHIFT = 0x98
	OP_RSHIFT = 0x99

	OP_BOOLAND            = 0x9a
	OP_BOOLOR             = 0x9b
	OP_NUMEQUAL           = 0x9c
	OP_NUMEQUALVERIFY     = 0x9d
	OP_NUMNOTEQUAL        = 0x9e
	OP_LESSTHAN           = 0x9f
	OP_GREATERTHAN        = 0xa0
	OP_LESSTHANOREQUAL    = 0xa1
	OP_GREATERTHANOREQUAL = 0xa2
	OP_MIN                = 0xa3
	OP_MAX                = 0xa4
	OP_WITHIN             = 0xa5

	OP_RIPEMD160        = 0xa6
	OP_SHA1             = 0xa7
	OP_SHA256           = 0xa8
	OP_HASH160          = 0xa9
	OP_HASH256          = 0xaa
	OP_CODESEPARATOR    = 0xab
	OP_CHECKSIG         = 0xac
	OP_CHECKSIGVERIFY   = 0xad
	OP_CHECKMULTISIG    = 0xae
	OP_CHECKMULTISIGVERIFY = 0xaf

	OP_NOP1                = 0xb0
	OP_CHECKLOCKTIMEVERIFY = 0xb1
	OP_CHECKSEQUENCEVERIFY = 0xb2
	OP_NOP4                = 0xb3
	OP_NOP5                = 0xb4
	OP_NOP6                = 0xb5
	OP_NOP7                = 0xb6
	OP_NOP8                = 0xb7
	OP_NOP9                = 0xb8
	OP_NOP10               = 0xb9

	OP_CHECKDATASIG       = 0xba
	OP_CHECKDATASIGVERIFY = 0xbb
	OP_REVERSEBYTES       = 0xbc

	OP_INVALIDOPCODE = 0xff
)

// opcodeInfo describes a single opcode: its canonical name and its encoded
// length (1 for a single-byte opcode; N+1 for a direct push of N bytes; 0
// for a byte value with no named opcode; the negative sentinels select a
// PUSHDATA length-prefix form).
type opcodeInfo struct {
	value  byte
	name   string
	length int
}

const (
	lenPushData1 = -1
	lenPushData2 = -2
	lenPushData4 = -4
)

var opcodeArray [256]opcodeInfo

func init() {
	for i := 0; i < 256; i++ {
		opcodeArray[i] = opcodeInfo{value: byte(i), name: fmt.Sprintf("OP_UNKNOWN%d", i), length: 0}
	}
	opcodeArray[OP_0] = opcodeInfo{OP_0, "OP_0", 1}
	for i := 1; i <= 75; i++ {
		opcodeArray[i] = opcodeInfo{byte(i), fmt.Sprintf("OP_DATA_%d", i), i + 1}
	}
	opcodeArray[OP_PUSHDATA1] = opcodeInfo{OP_PUSHDATA1, "OP_PUSHDATA1", lenPushData1}
	opcodeArray[OP_PUSHDATA2] = opcodeInfo{OP_PUSHDATA2, "OP_PUSHDATA2", lenPushData2}
	opcodeArray[OP_PUSHDATA4] = opcodeInfo{OP_PUSHDATA4, "OP_PUSHDATA4", lenPushData4}
	opcodeArray[OP_1NEGATE] = opcodeInfo{OP_1NEGATE, "OP_1NEGATE", 1}
	opcodeArray[OP_RESERVED] = opcodeInfo{OP_RESERVED, "OP_RESERVED", 1}
	for i := OP_1; i <= OP_16; i++ {
		opcodeArray[i] = opcodeInfo{byte(i), fmt.Sprintf("OP_%d", i-OP_1+1), 1}
	}

	names := map[byte]string{
		OP_NOP: "OP_NOP", OP_VER: "OP_VER", OP_IF: "OP_IF", OP_NOTIF: "OP_NOTIF",
		OP_VERIF: "OP_VERIF", OP_VERNOTIF: "OP_VERNOTIF", OP_ELSE: "OP_ELSE", OP_ENDIF: "OP_ENDIF",
		OP_VERIFY: "OP_VERIFY", OP_RETURN: "OP_RETURN",
		OP_TOALTSTACK: "OP_TOALTSTACK", OP_FROMALTSTACK: "OP_FROMALTSTACK",
		OP_2DROP: "OP_2DROP", OP_2DUP: "OP_2DUP", OP_3DUP: "OP_3DUP", OP_2OVER: "OP_2OVER",
		OP_2ROT: "OP_2ROT", OP_2SWAP: "OP_2SWAP", OP_IFDUP: "OP_IFDUP", OP_DEPTH: "OP_DEPTH",
		OP_DROP: "OP_DROP", OP_DUP: "OP_DUP", OP_NIP: "OP_NIP", OP_OVER: "OP_OVER",
		OP_PICK: "OP_PICK", OP_ROLL: "OP_ROLL", OP_ROT: "OP_ROT", OP_SWAP: "OP_SWAP", OP_TUCK: "OP_TUCK",
		OP_CAT: "OP_CAT", OP_SPLIT: "OP_SPLIT", OP_NUM2BIN: "OP_NUM2BIN", OP_BIN2NUM: "OP_BIN2NUM",
		OP_SIZE: "OP_SIZE", OP_INVERT: "OP_INVERT", OP_AND: "OP_AND", OP_OR: "OP_OR", OP_XOR: "OP_XOR",
		OP_EQUAL: "OP_EQUAL", OP_EQUALVERIFY: "OP_EQUALVERIFY",
		OP_RESERVED1: "OP_RESERVED1", OP_RESERVED2: "OP_RESERVED2",
		OP_1ADD: "OP_1ADD", OP_1SUB: "OP_1SUB", OP_2MUL: "OP_2MUL", OP_2DIV: "OP_2DIV",
		OP_NEGATE: "OP_NEGATE", OP_ABS: "OP_ABS", OP_NOT: "OP_NOT", OP_0NOTEQUAL: "OP_0NOTEQUAL",
		OP_ADD: "OP_ADD", OP_SUB: "OP_SUB", OP_MUL: "OP_MUL", OP_DIV: "OP_DIV", OP_MOD: "OP_MOD",
		OP_LSHIFT: "OP_LSHIFT", OP_RSHIFT: "OP_RSHIFT",
		OP_BOOLAND: "OP_BOOLAND", OP_BOOLOR: "OP_BOOLOR", OP_NUMEQUAL: "OP_NUMEQUAL",
		OP_NUMEQUALVERIFY: "OP_NUMEQUALVERIFY", OP_NUMNOTEQUAL: "OP_NUMNOTEQUAL",
		OP_LESSTHAN: "OP_LESSTHAN", OP_GREATERTHAN: "OP_GREATERTHAN",
		OP_LESSTHANOREQUAL: "OP_LESSTHANOREQUAL", OP_GREATERTHANOREQUAL: "OP_GREATERTHANOREQUAL",
		OP_MIN: "OP_MIN", OP_MAX: "OP_MAX", OP_WITHIN: "OP_WITHIN",
		OP_RIPEMD160: "OP_RIPEMD160", OP_SHA1: "OP_SHA1", OP_SHA256: "OP_SHA256",
		OP_HASH160: "OP_HASH160", OP_HASH256: "OP_HASH256", OP_CODESEPARATOR: "OP_CODESEPARATOR",
		OP_CHECKSIG: "OP_CHECKSIG", OP_CHECKSIGVERIFY: "OP_CHECKSIGVERIFY",
		OP_CHECKMULTISIG: "OP_CHECKMULTISIG", OP_CHECKMULTISIGVERIFY: "OP_CHECKMULTISIGVERIFY",
		OP_NOP1: "OP_NOP1", OP_CHECKLOCKTIMEVERIFY: "OP_CHECKLOCKTIMEVERIFY",
		OP_CHECKSEQUENCEVERIFY: "OP_CHECKSEQUENCEVERIFY", OP_NOP4: "OP_NOP4", OP_NOP5: "OP_NOP5",
		OP_NOP6: "OP_NOP6", OP_NOP7: "OP_NOP7", OP_NOP8: "OP_NOP8", OP_NOP9: "OP_NOP9", OP_NOP10: "OP_NOP10",
		OP_CHECKDATASIG: "OP_CHECKDATASIG", OP_CHECKDATASIGVERIFY: "OP_CHECKDATASIGVERIFY",
		OP_REVERSEBYTES: "OP_REVERSEBYTES",
	}
	for v, n := range names {
		opcodeArray[v] = opcodeInfo{v, n, 1}
	}
}

// disabledOpcodes are opcodes consensus disables unconditionally; scripts
// containing them fail DISABLED_OPCODE the moment they are scanned, even
// inside an untaken conditional branch.
var disabledOpcodes = map[byte]bool{
	OP_INVERT:   true,
	OP_2MUL:     true,
	OP_2DIV:     true,
	OP_MUL:      true,
	OP_LSHIFT:   true,
	OP_RSHIFT:   true,
	OP_VERIF:    true,
	OP_VERNOTIF: true,
}

func isDisabled(value byte) bool {
	return disabledOpcodes[value]
}

// ParsedOpcode is the tagged union described by the data model: either a
// plain opcode, a push of literal data, or — at the tail of a malformed
// script whose push claims more bytes than remain — a sentinel Malformed
// entry. Any scan over a script's opcodes MUST stop at a Malformed entry;
// it never has a well-defined Value or Data.
type ParsedOpcode struct {
	info      opcodeInfo
	Data      []byte
	malformed bool
	tail      []byte
}

// Value returns the opcode byte. Calling this on a malformed sentinel is a
// programming error; check IsMalformed first.
func (po *ParsedOpcode) Value() byte { return po.info.value }

// Name returns the human-readable opcode name.
func (po *ParsedOpcode) Name() string { return po.info.name }

// IsMalformed reports whether this is the sentinel entry representing a
// truncated push at the tail of the script (spec's Opcode value == -1).
func (po *ParsedOpcode) IsMalformed() bool { return po.malformed }

// IsPush reports whether the opcode is a direct or length-prefixed data
// push carrying its payload in Data (OP_0 through OP_PUSHDATA4). The small-
// integer opcodes OP_1NEGATE/OP_1..OP_16 also push but encode their value
// in the opcode itself; they are handled by the interpreter's opcode
// dispatch rather than through Data.
func (po *ParsedOpcode) IsPush() bool {
	return po.info.value <= OP_PUSHDATA4
}

// IsBranch reports whether the opcode is one of IF/NOTIF/ELSE/ENDIF, the
// only opcodes ever executed while inside a negated conditional branch.
func (po *ParsedOpcode) IsBranch() bool {
	switch po.info.value {
	case OP_IF, OP_NOTIF, OP_ELSE, OP_ENDIF:
		return true
	}
	return false
}

// bytes returns the serialized encoding of this single opcode (opcode byte
// plus, for pushes, any length prefix and the data itself).
func (po *ParsedOpcode) bytes() []byte {
	var retbytes []byte
	if po.info.length <= 1 {
		retbytes = []byte{po.info.value}
	} else {
		retbytes = make([]byte, 1, po.info.length)
		retbytes[0] = po.info.value
	}

	switch {
	case po.info.length > 0 && po.info.value >= OP_0+1 && po.info.value <= 75:
		retbytes = append(retbytes, po.Data...)
	case po.info.value == OP_PUSHDATA1:
		retbytes = append(retbytes, byte(len(po.Data)))
		retbytes = append(retbytes, po.Data...)
	case po.info.value == OP_PUSHDATA2:
		buf := make([]byte, 2)
		buf[0] = byte(len(po.Data))
		buf[1] = byte(len(po.Data) >> 8)
		retbytes = append(retbytes, buf...)
		retbytes = append(retbytes, po.Data...)
	case po.info.value == OP_PUSHDATA4:
		buf := make([]byte, 4)
		buf[0] = byte(len(po.Data))
		buf[1] = byte(len(po.Data) >> 8)
		buf[2] = byte(len(po.Data) >> 16)
		buf[3] = byte(len(po.Data) >> 24)
		retbytes = append(retbytes, buf...)
		retbytes = append(retbytes, po.Data...)
	}
	return retbytes
}

// isMinimalPush reports whether the push opcode uses the most economical
// encoding possible for po.Data, including the small-integer and
// OP_1NEGATE special cases.
func (po *ParsedOpcode) isMinimalPush() bool {
	data := po.Data
	value := po.info.value

	if value > OP_16 {
		return true // not a push opcode at all
	}

	switch {
	case value == OP_0 && len(data) != 0:
		return false
	case value != OP_0 && len(data) == 0:
		return false
	case value <= 75 && len(data) == 1 && (data[0] == 0x81 || (data[0] >= 1 && data[0] <= 16)):
		return false // must use OP_1NEGATE or OP_1..OP_16
	case value == OP_1NEGATE:
		return len(data) == 1 && data[0] == 0x81
	case value >= OP_1 && value <= OP_16:
		return len(data) == 1 && data[0] == value-OP_1+1
	case value <= 75:
		return int(value) == len(data)
	case value == OP_PUSHDATA1:
		return len(data) >= 76 && len(data) <= 255
	case value == OP_PUSHDATA2:
		return len(data) > 255 && len(data) <= 65535
	case value == OP_PUSHDATA4:
		return len(data) > 65535
	}
	return true
}

// newDataPush builds the ParsedOpcode that pushes data using the shortest
// possible encoding, choosing OP_0/OP_1NEGATE/OP_1..OP_16 for the special
// single-byte values and a direct or PUSHDATA* opcode otherwise.
func newDataPush(data []byte) ParsedOpcode {
	switch {
	case len(data) == 0:
		return ParsedOpcode{info: opcodeArray[OP_0]}
	case len(data) == 1 && data[0] == 0x81:
		return ParsedOpcode{info: opcodeArray[OP_1NEGATE]}
	case len(data) == 1 && data[0] >= 1 && data[0] <= 16:
		return ParsedOpcode{info: opcodeArray[OP_1+int(data[0])-1]}
	case len(data) <= 75:
		return ParsedOpcode{info: opcodeArray[len(data)], Data: data}
	case len(data) <= 255:
		return ParsedOpcode{info: opcodeArray[OP_PUSHDATA1], Data: data}
	case len(data) <= 65535:
		return ParsedOpcode{info: opcodeArray[OP_PUSHDATA2], Data: data}
	default:
		return ParsedOpcode{info: opcodeArray[OP_PUSHDATA4], Data: data}
	}
}

// fromSmall builds the dedicated opcode for integers -1..16, or nil if n is
// out of that range (callers fall back to newDataPush(scriptNum(n).Bytes())).
func fromSmall(n int) (ParsedOpcode, bool) {
	switch {
	case n == -1:
		return ParsedOpcode{info: opcodeArray[OP_1NEGATE]}, true
	case n == 0:
		return ParsedOpcode{info: opcodeArray[OP_0]}, true
	case n >= 1 && n <= 16:
		return ParsedOpcode{info: opcodeArray[OP_1+n-1]}, true
	}
	return ParsedOpcode{}, false
}
