// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/scripterror"
)

func (vm *Interpreter) popNum() (scriptNum, error) {
	return vm.dstack.PopInt(vm.flags.Has(deployment.ScriptMinimalData), defaultScriptNumLen)
}

func (vm *Interpreter) opUnaryNum(op byte) error {
	n, err := vm.popNum()
	if err != nil {
		return err
	}

	var result scriptNum
	switch op {
	case OP_1ADD:
		result = n + 1
	case OP_1SUB:
		result = n - 1
	case OP_NEGATE:
		result = -n
	case OP_ABS:
		if n < 0 {
			result = -n
		} else {
			result = n
		}
	case OP_NOT:
		vm.dstack.PushBool(n == 0)
		return nil
	case OP_0NOTEQUAL:
		vm.dstack.PushBool(n != 0)
		return nil
	}
	vm.dstack.PushInt(result)
	return nil
}

func (vm *Interpreter) opBinaryNum(op byte) error {
	b, err := vm.popNum()
	if err != nil {
		return err
	}
	a, err := vm.popNum()
	if err != nil {
		return err
	}

	switch op {
	case OP_ADD:
		vm.dstack.PushInt(a + b)
	case OP_SUB:
		vm.dstack.PushInt(a - b)
	case OP_DIV:
		if b == 0 {
			return scripterror.New(scripterror.ErrDivByZero, "division by zero")
		}
		vm.dstack.PushInt(a / b)
	case OP_MOD:
		if b == 0 {
			return scripterror.New(scripterror.ErrModByZero, "modulo by zero")
		}
		vm.dstack.PushInt(a % b)
	case OP_BOOLAND:
		vm.dstack.PushBool(a != 0 && b != 0)
	case OP_BOOLOR:
		vm.dstack.PushBool(a != 0 || b != 0)
	case OP_NUMEQUAL:
		vm.dstack.PushBool(a == b)
	case OP_NUMEQUALVERIFY:
		if a != b {
			return scripterror.New(scripterror.ErrNumEqualVerify, "OP_NUMEQUALVERIFY failed")
		}
	case OP_NUMNOTEQUAL:
		vm.dstack.PushBool(a != b)
	case OP_LESSTHAN:
		vm.dstack.PushBool(a < b)
	case OP_GREATERTHAN:
		vm.dstack.PushBool(a > b)
	case OP_LESSTHANOREQUAL:
		vm.dstack.PushBool(a <= b)
	case OP_GREATERTHANOREQUAL:
		vm.dstack.PushBool(a >= b)
	case OP_MIN:
		if a < b {
			vm.dstack.PushInt(a)
		} else {
			vm.dstack.PushInt(b)
		}
	case OP_MAX:
		if a > b {
			vm.dstack.PushInt(a)
		} else {
			vm.dstack.PushInt(b)
		}
	}
	return nil
}

func (vm *Interpreter) opWithin() error {
	max, err := vm.popNum()
	if err != nil {
		return err
	}
	min, err := vm.popNum()
	if err != nil {
		return err
	}
	x, err := vm.popNum()
	if err != nil {
		return err
	}
	vm.dstack.PushBool(x >= min && x < max)
	return nil
}

func (vm *Interpreter) opCheckLockTimeVerify() error {
	if !vm.flags.Has(deployment.ScriptCheckLockTimeVerify) {
		if vm.flags.Has(deployment.ScriptDiscourageUpgradableNOPs) {
			return scripterror.New(scripterror.ErrDiscourageUpgradableNOPs, "CHECKLOCKTIMEVERIFY not yet active")
		}
		return nil
	}
	n, err := vm.dstack.PeekInt(0, vm.flags.Has(deployment.ScriptMinimalData), maxScriptNumLen)
	if err != nil {
		return err
	}
	if n < 0 {
		return scripterror.New(scripterror.ErrNegativeLockTime, "negative locktime")
	}
	if vm.checker == nil || !vm.checker.CheckLockTime(int64(n)) {
		return scripterror.New(scripterror.ErrUnsatisfiedLockTime, "locktime requirement not satisfied")
	}
	return nil
}

func (vm *Interpreter) opCheckSequenceVerify() error {
	if !vm.flags.Has(deployment.ScriptCheckSequenceVerify) {
		if vm.flags.Has(deployment.ScriptDiscourageUpgradableNOPs) {
			return scripterror.New(scripterror.ErrDiscourageUpgradableNOPs, "CHECKSEQUENCEVERIFY not yet active")
		}
		return nil
	}
	n, err := vm.dstack.PeekInt(0, vm.flags.Has(deployment.ScriptMinimalData), maxScriptNumLen)
	if err != nil {
		return err
	}
	if n < 0 {
		return scripterror.New(scripterror.ErrNegativeLockTime, "negative sequence")
	}
	if int64(n)&sequenceLockTimeDisableFlag != 0 {
		return nil
	}
	if vm.checker == nil || !vm.checker.CheckSequence(int64(n)) {
		return scripterror.New(scripterror.ErrUnsatisfiedLockTime, "sequence requirement not satisfied")
	}
	return nil
}
