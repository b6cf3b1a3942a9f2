// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/bchcore/node/consensus/scripterror"
)

// defaultScriptNumLen is the default number of bytes data being interpreted
// as an integer may be. The arithmetic opcodes all use this value unless
// an alternate is specified (CHECKLOCKTIMEVERIFY/CHECKSEQUENCEVERIFY use 5).
const defaultScriptNumLen = 4

// maxScriptNumLen bounds the largest operand ever legal for any arithmetic
// or locktime opcode.
const maxScriptNumLen = 5

// scriptNum represents a numeric value used in the scripting engine with
// special handling to deal with the subtle semantics required by consensus.
//
// All numbers are stored on the stack as little endian with a sign bit. Due
// to the rules for number parsing, all numbers that are put on the stack
// must be encodeable minimally: the shortest byte string that still
// represents the value. The zero value is represented by an empty byte
// string.
type scriptNum int64

// checkMinimalDataEncoding returns whether or not the passed byte array is
// minimally encoded.
func checkMinimalDataEncoding(v []byte) error {
	if len(v) == 0 {
		return nil
	}

	// Check that the number is encoded with the minimum possible number
	// of bytes. If the most significant byte isn't the sign bit and is
	// zero, the number could have been encoded with one fewer byte.
	if v[len(v)-1]&0x7f == 0 {
		// Exception: if there are more than one byte and the second
		// to last byte has the high bit set, then the last byte is
		// required to hold the sign bit.
		if len(v) == 1 || v[len(v)-2]&0x80 == 0 {
			return scripterror.New(scripterror.ErrInvalidNumberRange,
				"numeric value encoded is not minimally encoded")
		}
	}

	return nil
}

// makeScriptNum interprets the passed serialized bytes as a little-endian,
// sign-magnitude integer and returns the resulting script number.
//
// Since the consensus rules dictate that serialized bytes interpreted as
// numbers are only allowed to be up to maxNumLen bytes, the first argument
// allows the caller to indicate how many bytes of maximum integer width are
// necessary for a given opcode. requireMinimal enforces that the provided
// bytes are minimally encoded, failing INVALID_NUMBER_RANGE otherwise.
func makeScriptNum(v []byte, requireMinimal bool, maxNumLen int) (scriptNum, error) {
	// Enforce maxNumLen length.
	if len(v) > maxNumLen {
		return 0, scripterror.New(scripterror.ErrInvalidNumberRange,
			fmt.Sprintf("numeric value encoded as %x is longer than the max "+
				"allowed of %d bytes", v, maxNumLen))
	}

	if requireMinimal {
		if err := checkMinimalDataEncoding(v); err != nil {
			return 0, err
		}
	}

	// Zero is encoded as an empty byte slice.
	if len(v) == 0 {
		return 0, nil
	}

	var result int64
	for i, b := range v {
		result |= int64(b) << uint8(8*i)
	}

	// The high bit of the most significant byte, once masked off, holds
	// the sign bit.
	if v[len(v)-1]&0x80 != 0 {
		result &= ^(int64(0x80) << uint8(8*(len(v)-1)))
		return scriptNum(-result), nil
	}

	return scriptNum(result), nil
}

// Bytes returns the canonical, minimally-encoded little-endian
// byte representation of the script number.
func (n scriptNum) Bytes() []byte {
	if n == 0 {
		return nil
	}

	isNegative := n < 0
	absoluteValue := n
	if isNegative {
		absoluteValue = -n
	}

	result := make([]byte, 0, maxScriptNumLen+1)
	for absoluteValue > 0 {
		result = append(result, byte(absoluteValue&0xff))
		absoluteValue >>= 8
	}

	// When the most significant byte already has the high bit set, an
	// additional byte is required to hold the sign, so that the value
	// remains unambiguous with the magnitude.
	if result[len(result)-1]&0x80 != 0 {
		extraByte := byte(0x00)
		if isNegative {
			extraByte = 0x80
		}
		result = append(result, extraByte)
	} else if isNegative {
		result[len(result)-1] |= 0x80
	}

	return result
}

// Int32 returns the script number clamped to the range of a int32.
func (n scriptNum) Int32() int32 {
	if n > scriptNum(0x7fffffff) {
		return 0x7fffffff
	}
	if n < scriptNum(-0x7fffffff) {
		return -0x7fffffff
	}
	return int32(n)
}

func (n scriptNum) Int64() int64 { return int64(n) }
