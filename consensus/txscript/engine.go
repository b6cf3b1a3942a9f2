// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"bytes"
	"crypto/sha1"
	"crypto/sha256"

	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/scripterror"
	"golang.org/x/crypto/ripemd160"
)

const (
	maxOpsPerScript    = 201
	maxPubKeysPerMultisig = 20
	lockTimeThreshold  = 500000000 // below this, locktime is a block height
	sequenceLockTimeDisableFlag = 1 << 31
	sequenceLockTimeTypeFlag    = 1 << 22
	sequenceLockTimeMask        = 0x0000ffff
)

// Condition levels for the IF/NOTIF/ELSE/ENDIF state machine. A level is
// Skip once any enclosing level is not currently executing; ELSE can still
// flip True<->False but never touches a Skip level.
type condState int

const (
	condFalse condState = iota
	condTrue
	condSkip
)

// SignatureChecker decouples the interpreter from any one transaction
// encoding: it answers every signature- and locktime-related question the
// CHECKSIG family and CLTV/CSV opcodes need.
type SignatureChecker interface {
	CheckSig(sigWithHashType, pubKey []byte, subscript *Script) (bool, error)
	CheckDataSig(sigWithHashType, msg, pubKey []byte) (bool, error)
	CheckLockTime(lockTime int64) bool
	CheckSequence(sequence int64) bool
}

// Interpreter executes a single script against a value stack under a flag
// mask. One Interpreter is used per verify call; it holds no state that
// outlives that call other than the per-verify sigcheck counter.
type Interpreter struct {
	flags     deployment.Flags
	dstack    stack
	astack    stack
	condStack []condState

	script            *Script
	scriptIdx         int
	opCount           int
	lastCodeSeparator int

	checker   SignatureChecker
	sigChecks int
}

// NewInterpreter constructs an Interpreter ready to execute scripts under
// flags, resolving signature/locktime opcodes against checker. checker may
// be nil for scripts known not to use CHECKSIG/CHECKLOCKTIMEVERIFY/
// CHECKSEQUENCEVERIFY (e.g. pure arithmetic fixtures in tests).
func NewInterpreter(flags deployment.Flags, checker SignatureChecker) *Interpreter {
	return &Interpreter{flags: flags, checker: checker}
}

// SigChecks returns the number of non-empty-signature verification attempts
// made by all Execute calls on this Interpreter so far.
func (vm *Interpreter) SigChecks() int { return vm.sigChecks }

func (vm *Interpreter) isBranchExecuting() bool {
	if len(vm.condStack) == 0 {
		return true
	}
	return vm.condStack[len(vm.condStack)-1] == condTrue
}

func (vm *Interpreter) combinedStackSize() int { return vm.dstack.Depth() + vm.astack.Depth() }

// Execute runs script starting from a fresh program counter and condition
// stack, consuming dstack/astack as both input and output. A value stack
// already populated by a prior Execute call on the same Interpreter (e.g.
// input script then output script) carries over by design; callers wanting
// isolation should use a new Interpreter.
func (vm *Interpreter) Execute(script *Script) error {
	if len(script.Bytes()) > MaxScriptSize {
		return scripterror.New(scripterror.ErrScriptSize, "script is too long")
	}

	vm.script = script
	vm.scriptIdx = 0
	vm.opCount = 0
	vm.lastCodeSeparator = 0
	vm.condStack = nil

	ops := script.Opcodes()
	for vm.scriptIdx < len(ops) {
		po := &ops[vm.scriptIdx]
		if po.IsMalformed() {
			return scripterror.New(scripterror.ErrBadOpcode, "opcode claims more bytes than the script contains")
		}

		if po.IsPush() {
			if len(po.Data) > MaxScriptElementSize {
				return scripterror.New(scripterror.ErrPushSize, "element size exceeds the maximum allowed")
			}
		}

		executing := vm.isBranchExecuting()

		if po.Value() > OP_16 {
			vm.opCount++
			if vm.opCount > maxOpsPerScript {
				return scripterror.New(scripterror.ErrOpCount, "exceeded max operation limit")
			}
		}

		if isDisabled(po.Value()) {
			return scripterror.New(scripterror.ErrDisabledOpcode, po.Name()+" is disabled")
		}

		if !executing && !po.IsBranch() {
			vm.scriptIdx++
			if vm.combinedStackSize() > maxStackSize {
				return scripterror.New(scripterror.ErrStackSize, "combined stack size exceeds limit")
			}
			continue
		}

		if executing && po.IsPush() {
			if vm.flags.Has(deployment.ScriptMinimalData) && !po.isMinimalPush() {
				return scripterror.New(scripterror.ErrMinimalData, "not minimally encoded push")
			}
			vm.dstack.PushByteArray(po.Data)
		} else if executing || po.IsBranch() {
			if err := vm.step(po); err != nil {
				return err
			}
		}

		if vm.combinedStackSize() > maxStackSize {
			return scripterror.New(scripterror.ErrStackSize, "combined stack size exceeds limit")
		}

		vm.scriptIdx++
	}

	if len(vm.condStack) != 0 {
		return scripterror.New(scripterror.ErrUnbalancedConditional, "unbalanced conditional at end of script")
	}
	return nil
}

// step dispatches a single non-push opcode.
func (vm *Interpreter) step(po *ParsedOpcode) error {
	switch po.Value() {
	case OP_0:
		vm.dstack.PushByteArray(nil)
	case OP_1NEGATE:
		vm.dstack.PushInt(scriptNum(-1))
	case OP_1, OP_2, OP_3, OP_4, OP_5, OP_6, OP_7, OP_8, OP_9, OP_10,
		OP_11, OP_12, OP_13, OP_14, OP_15, OP_16:
		vm.dstack.PushInt(scriptNum(int64(po.Value()) - int64(OP_1) + 1))

	case OP_NOP, OP_NOP4, OP_NOP5, OP_NOP6, OP_NOP7, OP_NOP8, OP_NOP9, OP_NOP10:
		if vm.flags.Has(deployment.ScriptDiscourageUpgradableNOPs) {
			return scripterror.New(scripterror.ErrDiscourageUpgradableNOPs, "NOPx reserved for soft-fork upgrades")
		}

	case OP_IF, OP_NOTIF:
		return vm.opIf(po)
	case OP_ELSE:
		return vm.opElse()
	case OP_ENDIF:
		return vm.opEndif()
	case OP_VERIFY:
		ok, err := vm.dstack.PopBool()
		if err != nil {
			return err
		}
		if !ok {
			return scripterror.New(scripterror.ErrVerify, "OP_VERIFY failed")
		}
	case OP_RETURN:
		return scripterror.New(scripterror.ErrOpReturn, "OP_RETURN encountered")

	case OP_TOALTSTACK:
		so, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		vm.astack.PushByteArray(so)
	case OP_FROMALTSTACK:
		so, err := vm.astack.PopByteArray()
		if err != nil {
			return scripterror.New(scripterror.ErrInvalidAltStackOperation, "alt stack is empty")
		}
		vm.dstack.PushByteArray(so)

	case OP_2DROP:
		return vm.dstack.DropN(2)
	case OP_2DUP:
		return vm.dstack.DupN(2)
	case OP_3DUP:
		return vm.dstack.DupN(3)
	case OP_2OVER:
		return vm.dstack.OverN(2)
	case OP_2ROT:
		return vm.dstack.RotN(2)
	case OP_2SWAP:
		return vm.dstack.SwapN(2)
	case OP_IFDUP:
		ok, err := vm.dstack.PeekBool(0)
		if err != nil {
			return err
		}
		if ok {
			return vm.dstack.DupN(1)
		}
	case OP_DEPTH:
		vm.dstack.PushInt(scriptNum(vm.dstack.Depth()))
	case OP_DROP:
		return vm.dstack.DropN(1)
	case OP_DUP:
		return vm.dstack.DupN(1)
	case OP_NIP:
		return vm.dstack.NipN(1)
	case OP_OVER:
		return vm.dstack.OverN(1)
	case OP_PICK, OP_ROLL:
		n, err := vm.dstack.PopInt(vm.flags.Has(deployment.ScriptMinimalData), defaultScriptNumLen)
		if err != nil {
			return err
		}
		idx := int(n.Int32())
		if idx < 0 {
			return scripterror.New(scripterror.ErrInvalidStackOperation, "negative pick/roll index")
		}
		if po.Value() == OP_PICK {
			return vm.dstack.PickN(idx)
		}
		return vm.dstack.RollN(idx)
	case OP_ROT:
		return vm.dstack.RotN(1)
	case OP_SWAP:
		return vm.dstack.SwapN(1)
	case OP_TUCK:
		return vm.dstack.Tuck()

	case OP_CAT:
		return vm.opCat()
	case OP_SPLIT:
		return vm.opSplit()
	case OP_NUM2BIN:
		return vm.opNum2Bin()
	case OP_BIN2NUM:
		return vm.opBin2Num()
	case OP_SIZE:
		top, err := vm.dstack.PeekByteArray(0)
		if err != nil {
			return err
		}
		vm.dstack.PushInt(scriptNum(len(top)))
	case OP_REVERSEBYTES:
		top, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		rev := make([]byte, len(top))
		for i := range top {
			rev[len(top)-1-i] = top[i]
		}
		vm.dstack.PushByteArray(rev)

	case OP_EQUAL, OP_EQUALVERIFY:
		a, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		b, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		equal := bytes.Equal(a, b)
		if po.Value() == OP_EQUALVERIFY {
			if !equal {
				return scripterror.New(scripterror.ErrEqualVerify, "OP_EQUALVERIFY failed")
			}
			return nil
		}
		vm.dstack.PushBool(equal)

	case OP_AND, OP_OR, OP_XOR:
		return vm.opBitwise(po.Value())

	case OP_1ADD, OP_1SUB, OP_NEGATE, OP_ABS, OP_NOT, OP_0NOTEQUAL:
		return vm.opUnaryNum(po.Value())
	case OP_ADD, OP_SUB, OP_BOOLAND, OP_BOOLOR, OP_NUMEQUAL, OP_NUMEQUALVERIFY,
		OP_NUMNOTEQUAL, OP_LESSTHAN, OP_GREATERTHAN, OP_LESSTHANOREQUAL,
		OP_GREATERTHANOREQUAL, OP_MIN, OP_MAX, OP_DIV, OP_MOD:
		return vm.opBinaryNum(po.Value())
	case OP_WITHIN:
		return vm.opWithin()

	case OP_RIPEMD160:
		top, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		h := ripemd160.New()
		h.Write(top)
		vm.dstack.PushByteArray(h.Sum(nil))
	case OP_SHA1:
		top, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		h := sha1.Sum(top)
		vm.dstack.PushByteArray(h[:])
	case OP_SHA256:
		top, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		h := sha256.Sum256(top)
		vm.dstack.PushByteArray(h[:])
	case OP_HASH160:
		top, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		sh := sha256.Sum256(top)
		rh := ripemd160.New()
		rh.Write(sh[:])
		vm.dstack.PushByteArray(rh.Sum(nil))
	case OP_HASH256:
		top, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		h := doubleSha256(top)
		vm.dstack.PushByteArray(h[:])
	case OP_CODESEPARATOR:
		vm.lastCodeSeparator = vm.scriptIdx + 1

	case OP_CHECKSIG, OP_CHECKSIGVERIFY:
		return vm.opCheckSig(po.Value() == OP_CHECKSIGVERIFY)
	case OP_CHECKDATASIG, OP_CHECKDATASIGVERIFY:
		return vm.opCheckDataSig(po.Value() == OP_CHECKDATASIGVERIFY)
	case OP_CHECKMULTISIG, OP_CHECKMULTISIGVERIFY:
		return vm.opCheckMultiSig(po.Value() == OP_CHECKMULTISIGVERIFY)

	case OP_CHECKLOCKTIMEVERIFY:
		return vm.opCheckLockTimeVerify()
	case OP_CHECKSEQUENCEVERIFY:
		return vm.opCheckSequenceVerify()

	case OP_RESERVED, OP_VER, OP_RESERVED1, OP_RESERVED2:
		return scripterror.New(scripterror.ErrBadOpcode, po.Name()+" is reserved")

	default:
		return scripterror.New(scripterror.ErrBadOpcode, "unimplemented opcode "+po.Name())
	}
	return nil
}

func (vm *Interpreter) opIf(po *ParsedOpcode) error {
	state := condFalse
	if vm.isBranchExecuting() {
		raw, err := vm.dstack.PopByteArray()
		if err != nil {
			return err
		}
		if vm.flags.Has(deployment.ScriptMinimalIf) {
			if len(raw) > 1 || (len(raw) == 1 && raw[0] != 1) {
				return scripterror.New(scripterror.ErrMinimalIf, "IF/NOTIF argument must be minimally encoded")
			}
		}
		ok := asBool(raw)
		if po.Value() == OP_NOTIF {
			ok = !ok
		}
		if ok {
			state = condTrue
		}
	} else {
		state = condSkip
	}
	vm.condStack = append(vm.condStack, state)
	return nil
}

func (vm *Interpreter) opElse() error {
	if len(vm.condStack) == 0 {
		return scripterror.New(scripterror.ErrUnbalancedConditional, "ELSE without matching IF")
	}
	top := len(vm.condStack) - 1
	switch vm.condStack[top] {
	case condTrue:
		vm.condStack[top] = condFalse
	case condFalse:
		vm.condStack[top] = condTrue
	case condSkip:
		// stays Skip: an enclosing level is not executing.
	}
	return nil
}

func (vm *Interpreter) opEndif() error {
	if len(vm.condStack) == 0 {
		return scripterror.New(scripterror.ErrUnbalancedConditional, "ENDIF without matching IF")
	}
	vm.condStack = vm.condStack[:len(vm.condStack)-1]
	return nil
}
