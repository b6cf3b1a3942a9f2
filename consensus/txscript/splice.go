// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/scripterror"
)

func (vm *Interpreter) opCat() error {
	b, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if len(a)+len(b) > MaxScriptElementSize {
		return scripterror.New(scripterror.ErrPushSize, "concatenation exceeds the maximum element size")
	}
	vm.dstack.PushByteArray(append(append([]byte(nil), a...), b...))
	return nil
}

func (vm *Interpreter) opSplit() error {
	n, err := vm.dstack.PopInt(vm.flags.Has(deployment.ScriptMinimalData), defaultScriptNumLen)
	if err != nil {
		return err
	}
	data, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	pos := int(n.Int64())
	if pos < 0 || pos > len(data) {
		return scripterror.New(scripterror.ErrInvalidSplitRange, "split position out of range")
	}
	left := append([]byte(nil), data[:pos]...)
	right := append([]byte(nil), data[pos:]...)
	vm.dstack.PushByteArray(left)
	vm.dstack.PushByteArray(right)
	return nil
}

func (vm *Interpreter) opNum2Bin() error {
	sizeNum, err := vm.dstack.PopInt(vm.flags.Has(deployment.ScriptMinimalData), defaultScriptNumLen)
	if err != nil {
		return err
	}
	size := int(sizeNum.Int64())
	if size < 0 || size > MaxScriptElementSize {
		return scripterror.New(scripterror.ErrPushSize, "NUM2BIN target size out of range")
	}
	raw, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}

	n, err := makeScriptNum(raw, false, maxScriptNumLen)
	if err != nil {
		return err
	}
	encoded := n.Bytes()
	if len(encoded) > size {
		return scripterror.New(scripterror.ErrImpossibleEncoding, "minimal encoding does not fit in target size")
	}
	if len(encoded) == size {
		vm.dstack.PushByteArray(encoded)
		return nil
	}

	var signBit byte
	if len(encoded) > 0 {
		signBit = encoded[len(encoded)-1] & 0x80
		encoded[len(encoded)-1] &^= 0x80
	}

	padded := make([]byte, size)
	copy(padded, encoded)
	if signBit != 0 {
		padded[size-1] |= 0x80
	}
	vm.dstack.PushByteArray(padded)
	return nil
}

func (vm *Interpreter) opBin2Num() error {
	raw, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	n, err := makeScriptNum(raw, false, len(raw))
	if err != nil {
		return err
	}
	encoded := n.Bytes()
	if len(encoded) > defaultScriptNumLen {
		return scripterror.New(scripterror.ErrInvalidNumberRange, "BIN2NUM result exceeds 4 bytes")
	}
	vm.dstack.PushByteArray(encoded)
	return nil
}

func (vm *Interpreter) opBitwise(op byte) error {
	b, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	a, err := vm.dstack.PopByteArray()
	if err != nil {
		return err
	}
	if len(a) != len(b) {
		return scripterror.New(scripterror.ErrInvalidOperandSize, "bitwise operands must be equal length")
	}
	result := make([]byte, len(a))
	for i := range a {
		switch op {
		case OP_AND:
			result[i] = a[i] & b[i]
		case OP_OR:
			result[i] = a[i] | b[i]
		case OP_XOR:
			result[i] = a[i] ^ b[i]
		}
	}
	vm.dstack.PushByteArray(result)
	return nil
}
