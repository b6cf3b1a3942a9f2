// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"fmt"

	"github.com/bchcore/node/consensus/scripterror"
)

// maxStackSize is the maximum combined number of elements the value stack
// and the alt stack may hold at any instruction boundary.
const maxStackSize = 1000

// stack represents the VM's push-down stack of byte strings. Negative
// indexing is never done via operator overload; callers reach into the
// middle of the stack only through the explicit helpers below, matching
// the design note against sign-dependent index operators.
type stack struct {
	stk [][]byte
}

func (s *stack) Depth() int { return len(s.stk) }

// PushByteArray pushes the given byte slice onto the stack.
func (s *stack) PushByteArray(so []byte) {
	s.stk = append(s.stk, so)
}

// PushBool pushes the canonical boolean encoding: empty for false, {1} for
// true.
func (s *stack) PushBool(val bool) {
	if val {
		s.PushByteArray([]byte{1})
		return
	}
	s.PushByteArray(nil)
}

// PushInt pushes the minimal encoding of a scriptNum.
func (s *stack) PushInt(val scriptNum) {
	s.PushByteArray(val.Bytes())
}

// PopByteArray pops the top element off the stack.
func (s *stack) PopByteArray() ([]byte, error) {
	return s.nipN(0)
}

// PopBool pops the top element and interprets it as a boolean: any byte
// string other than all-zero (with the single exception of a final
// 0x80-only negative-zero sign byte) is true.
func (s *stack) PopBool() (bool, error) {
	so, err := s.PopByteArray()
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

func asBool(so []byte) bool {
	for i := range so {
		if so[i] != 0 {
			// The negative-zero encoding {0x80} is still considered
			// false, matching the reference semantics for bool
			// coercion of a byte string.
			if i == len(so)-1 && so[i] == 0x80 {
				return false
			}
			return true
		}
	}
	return false
}

// PopInt pops the top element and interprets it as a scriptNum, bounded to
// the given maximum operand length and minimality requirement.
func (s *stack) PopInt(requireMinimal bool, maxNumLen int) (scriptNum, error) {
	so, err := s.PopByteArray()
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, requireMinimal, maxNumLen)
}

// PeekByteArray returns a copy-free view of the n'th-from-top item without
// removing it.
func (s *stack) PeekByteArray(idx int) ([]byte, error) {
	sz := len(s.stk)
	if idx < 0 || idx >= sz {
		return nil, scripterror.New(scripterror.ErrInvalidStackOperation, "stack index out of range")
	}
	return s.stk[sz-idx-1], nil
}

// PeekBool is PeekByteArray coerced to a boolean.
func (s *stack) PeekBool(idx int) (bool, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return false, err
	}
	return asBool(so), nil
}

// PeekInt is PeekByteArray coerced to a scriptNum.
func (s *stack) PeekInt(idx int, requireMinimal bool, maxNumLen int) (scriptNum, error) {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return 0, err
	}
	return makeScriptNum(so, requireMinimal, maxNumLen)
}

// nipN removes the n'th-from-top item from the stack and returns it.
func (s *stack) nipN(idx int) ([]byte, error) {
	sz := len(s.stk)
	if idx < 0 || idx >= sz {
		return nil, scripterror.New(scripterror.ErrInvalidStackOperation, "stack index out of range")
	}
	so := s.stk[sz-idx-1]
	if idx == 0 {
		s.stk = s.stk[:sz-1]
		return so, nil
	}
	copy(s.stk[sz-idx-1:], s.stk[sz-idx:])
	s.stk = s.stk[:sz-1]
	return so, nil
}

// NipN is the exported form of nipN, named per the design note's
// eraseFromTop(k) helper.
func (s *stack) NipN(idx int) error {
	_, err := s.nipN(idx)
	return err
}

// Tuck inserts a copy of the top item below the second item:
// before: ... x1 x2    after: ... x2 x1 x2
func (s *stack) Tuck() error {
	so2, err := s.PopByteArray()
	if err != nil {
		return err
	}
	so1, err := s.PopByteArray()
	if err != nil {
		return err
	}
	s.PushByteArray(so2)
	s.PushByteArray(so1)
	s.PushByteArray(so2)
	return nil
}

// DropN drops the top n items.
func (s *stack) DropN(n int) error {
	if n < 1 {
		return scripterror.New(scripterror.ErrInvalidStackOperation, "attempt to drop < 1 elements")
	}
	for ; n > 0; n-- {
		if _, err := s.PopByteArray(); err != nil {
			return err
		}
	}
	return nil
}

// DupN duplicates the top n items, preserving order.
func (s *stack) DupN(n int) error {
	if n < 1 {
		return scripterror.New(scripterror.ErrInvalidStackOperation, "attempt to dup < 1 elements")
	}
	for i := n; i > 0; i-- {
		so, err := s.PeekByteArray(n - 1)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

// RotN rotates the top 3n items n times, taking the bottom-most group of n
// to the top.
func (s *stack) RotN(n int) error {
	if n < 1 {
		return scripterror.New(scripterror.ErrInvalidStackOperation, "attempt to rotate < 1 elements")
	}
	entry := 3*n - 1
	for i := 0; i < n; i++ {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

// SwapN swaps the top n items with the n items below them.
func (s *stack) SwapN(n int) error {
	if n < 1 {
		return scripterror.New(scripterror.ErrInvalidStackOperation, "attempt to swap < 1 elements")
	}
	entry := 2*n - 1
	for i := 0; i < n; i++ {
		so, err := s.nipN(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

// OverN duplicates the n items starting 2n-1 items back.
func (s *stack) OverN(n int) error {
	if n < 1 {
		return scripterror.New(scripterror.ErrInvalidStackOperation, "attempt to perform OVER on < 1 elements")
	}
	entry := 2*n - 1
	for i := 0; i < n; i++ {
		so, err := s.PeekByteArray(entry)
		if err != nil {
			return err
		}
		s.PushByteArray(so)
	}
	return nil
}

// PickN copies the n'th-from-top item to the top without removing it from
// its original position.
func (s *stack) PickN(idx int) error {
	so, err := s.PeekByteArray(idx)
	if err != nil {
		return err
	}
	s.PushByteArray(so)
	return nil
}

// RollN moves the n'th-from-top item to the top, removing it from its
// original position.
func (s *stack) RollN(idx int) error {
	so, err := s.nipN(idx)
	if err != nil {
		return err
	}
	s.PushByteArray(so)
	return nil
}

// String dumps the stack contents, top first, for diagnostics.
func (s *stack) String() string {
	var result string
	for i := len(s.stk) - 1; i >= 0; i-- {
		result += fmt.Sprintf("%02d  %x\n", len(s.stk)-i-1, s.stk[i])
	}
	return result
}

// snapshot captures the current stack contents for later restore, used by
// P2SH evaluation to replay the signature-script pushes against the redeem
// script.
func (s *stack) snapshot() [][]byte {
	return append([][]byte(nil), s.stk...)
}

// restore replaces the stack contents with a previously captured snapshot.
func (s *stack) restore(snap [][]byte) {
	s.stk = append([][]byte(nil), snap...)
}
