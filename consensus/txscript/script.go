// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"encoding/binary"

	"github.com/bchcore/node/consensus/scripterror"
)

// MaxScriptSize is the consensus limit on the serialized length of a
// script, enforced both for the locking and unlocking side.
const MaxScriptSize = 10000

// MaxScriptElementSize is the consensus limit on the size of a single
// item pushed onto the stack.
const MaxScriptElementSize = 520

// Script is an ordered sequence of opcodes plus its canonical serialized
// form. The invariant from the data model holds: raw is always exactly the
// concatenation of each opcode's own serialization; mutating parsed without
// recompiling invalidates raw.
type Script struct {
	parsed []ParsedOpcode
	raw    []byte
}

// ParseScript decodes raw into its opcode sequence. Decoding never fails:
// a push that claims more bytes than remain in the script yields a single
// trailing Malformed ParsedOpcode and parsing stops there, matching the
// "sentinel -1" behavior spec'd for truncated scripts. Scripts over
// MaxScriptSize are rejected outright.
func ParseScript(raw []byte) (*Script, error) {
	if len(raw) > MaxScriptSize {
		return nil, scripterror.New(scripterror.ErrScriptSize, "script is too long")
	}

	var parsed []ParsedOpcode
	i := 0
	for i < len(raw) {
		value := raw[i]
		info := opcodeArray[value]

		switch {
		case info.length == 1:
			parsed = append(parsed, ParsedOpcode{info: info})
			i++

		case info.length > 1:
			// Direct push of info.length-1 bytes.
			if i+info.length > len(raw) {
				parsed = append(parsed, ParsedOpcode{malformed: true, tail: raw[i:]})
				i = len(raw)
				break
			}
			parsed = append(parsed, ParsedOpcode{info: info, Data: raw[i+1 : i+info.length]})
			i += info.length

		case info.length == lenPushData1:
			if i+2 > len(raw) {
				parsed = append(parsed, ParsedOpcode{malformed: true, tail: raw[i:]})
				i = len(raw)
				break
			}
			dataLen := int(raw[i+1])
			start := i + 2
			if start+dataLen > len(raw) {
				parsed = append(parsed, ParsedOpcode{malformed: true, tail: raw[i:]})
				i = len(raw)
				break
			}
			parsed = append(parsed, ParsedOpcode{info: info, Data: raw[start : start+dataLen]})
			i = start + dataLen

		case info.length == lenPushData2:
			if i+3 > len(raw) {
				parsed = append(parsed, ParsedOpcode{malformed: true, tail: raw[i:]})
				i = len(raw)
				break
			}
			dataLen := int(binary.LittleEndian.Uint16(raw[i+1 : i+3]))
			start := i + 3
			if start+dataLen > len(raw) {
				parsed = append(parsed, ParsedOpcode{malformed: true, tail: raw[i:]})
				i = len(raw)
				break
			}
			parsed = append(parsed, ParsedOpcode{info: info, Data: raw[start : start+dataLen]})
			i = start + dataLen

		case info.length == lenPushData4:
			if i+5 > len(raw) {
				parsed = append(parsed, ParsedOpcode{malformed: true, tail: raw[i:]})
				i = len(raw)
				break
			}
			dataLen := int(binary.LittleEndian.Uint32(raw[i+1 : i+5]))
			start := i + 5
			if start+dataLen > len(raw) {
				parsed = append(parsed, ParsedOpcode{malformed: true, tail: raw[i:]})
				i = len(raw)
				break
			}
			parsed = append(parsed, ParsedOpcode{info: info, Data: raw[start : start+dataLen]})
			i = start + dataLen

		default:
			// A byte value with no named opcode (length 0) parses as a
			// single-byte opcode.
			parsed = append(parsed, ParsedOpcode{info: info})
			i++
		}
	}

	return &Script{parsed: parsed, raw: append([]byte(nil), raw...)}, nil
}

// Opcodes returns the parsed opcode sequence. Any scan MUST stop at (and
// including) the first Malformed entry, if one is present.
func (s *Script) Opcodes() []ParsedOpcode { return s.parsed }

// Bytes returns the canonical serialized form. ParseScript(s.Bytes())
// round-trips to an equal opcode sequence for every well-formed script.
func (s *Script) Bytes() []byte { return s.raw }

// recompile rebuilds s.raw from s.parsed, restoring the serialization
// invariant after parsed has been mutated (e.g. by findAndDelete).
func (s *Script) recompile() {
	var buf []byte
	for i := range s.parsed {
		if s.parsed[i].IsMalformed() {
			buf = append(buf, s.parsed[i].tail...)
			break
		}
		buf = append(buf, s.parsed[i].bytes()...)
	}
	s.raw = buf
}

// isPushOnly reports whether every opcode in the script is a data push
// (OP_0..OP_16 inclusive), used by SIGPUSHONLY and the P2SH redeem-script
// gate.
func (s *Script) isPushOnly() bool {
	for i := range s.parsed {
		po := &s.parsed[i]
		if po.IsMalformed() {
			return false
		}
		if po.info.value > OP_16 {
			return false
		}
	}
	return true
}

// ScriptBuilder incrementally assembles a Script from pushes and raw
// opcodes, always choosing the minimal push encoding.
type ScriptBuilder struct {
	ops []ParsedOpcode
	err error
}

// NewScriptBuilder returns an empty builder.
func NewScriptBuilder() *ScriptBuilder { return &ScriptBuilder{} }

// AddOp appends a single non-push opcode.
func (b *ScriptBuilder) AddOp(op byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	b.ops = append(b.ops, ParsedOpcode{info: opcodeArray[op]})
	return b
}

// AddData appends the minimal-encoding push of data.
func (b *ScriptBuilder) AddData(data []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if len(data) > MaxScriptElementSize {
		b.err = scripterror.New(scripterror.ErrPushSize, "pushed data too large")
		return b
	}
	b.ops = append(b.ops, newDataPush(data))
	return b
}

// AddInt64 appends the minimal-encoding push of n.
func (b *ScriptBuilder) AddInt64(n int64) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	if po, ok := fromSmall(int(n)); ok {
		b.ops = append(b.ops, po)
		return b
	}
	return b.AddData(scriptNum(n).Bytes())
}

// AddOps appends every opcode already in other's parsed sequence, used
// when splicing a subscript into a larger one (e.g. P2SH redeem-script
// reassembly).
func (b *ScriptBuilder) AddOps(raw []byte) *ScriptBuilder {
	if b.err != nil {
		return b
	}
	other, err := ParseScript(raw)
	if err != nil {
		b.err = err
		return b
	}
	b.ops = append(b.ops, other.parsed...)
	return b
}

// Script finalizes the builder into a serialized script.
func (b *ScriptBuilder) Script() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	var buf []byte
	for i := range b.ops {
		buf = append(buf, b.ops[i].bytes()...)
	}
	return buf, nil
}
