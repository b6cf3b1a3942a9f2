// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

// subscript returns the portion of the script running from the opcode at
// index from to the end, recompiled into its own Script. This is the
// "subscript" the glossary defines: the slice signed over by CHECKSIG,
// bounded below by the most recent OP_CODESEPARATOR.
func (s *Script) subscript(from int) *Script {
	if from >= len(s.parsed) {
		return &Script{}
	}
	tail := append([]ParsedOpcode(nil), s.parsed[from:]...)
	sub := &Script{parsed: tail}
	sub.recompile()
	return sub
}

// findAndDelete returns a copy of s with every occurrence of data, pushed
// via its minimal-encoding opcode, removed from the opcode sequence. Used
// to strip a just-verified signature out of the subscript before hashing
// it for a second signature check in the same script (legacy, non-FORKID
// signing only).
func (s *Script) findAndDelete(data []byte) *Script {
	target := newDataPush(data)
	targetBytes := target.bytes()

	out := make([]ParsedOpcode, 0, len(s.parsed))
	for i := range s.parsed {
		po := &s.parsed[i]
		if po.IsMalformed() {
			out = append(out, *po)
			continue
		}
		if bytesEqual(po.bytes(), targetBytes) {
			continue
		}
		out = append(out, *po)
	}
	result := &Script{parsed: out}
	result.recompile()
	return result
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
