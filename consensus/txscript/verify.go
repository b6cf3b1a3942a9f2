// Copyright (c) 2013-2017 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txscript

import (
	"github.com/bchcore/node/consensus/deployment"
	"github.com/bchcore/node/consensus/scripterror"
)

// Verify is the top-level input validator: it runs inputScript then
// outputScript against a shared stack, handling the P2SH redeem-script
// re-execution and the segwit-recovery carve-out, and enforces CLEANSTACK
// and INPUT_SIGCHECKS once the scripts have run. It returns the number of
// non-empty-signature verification attempts the interpreter made, threaded
// back to the caller rather than kept on a package-level counter, per
// spec.md's own sigcheck-accumulator recommendation (DESIGN.md's Open
// Question resolution) — callers that enforce a per-tx/per-block sigcheck
// budget (consensus/chain.verifyInputs) sum this return value themselves.
func Verify(inputScript, outputScript *Script, flags deployment.Flags, checker SignatureChecker) (sigChecks int, err error) {
	if flags.Has(deployment.ScriptSigPushOnly) && !inputScript.isPushOnly() {
		return 0, scripterror.New(scripterror.ErrSigPushOnly, "signature script must contain only push operations")
	}
	if flags.Has(deployment.ScriptSigHashForkID) {
		flags |= deployment.ScriptStrictEnc
	}

	vm := NewInterpreter(flags, checker)
	if err := vm.Execute(inputScript); err != nil {
		return 0, err
	}

	usesP2SH := flags.Has(deployment.ScriptP2SH)
	var snapshot [][]byte
	if usesP2SH {
		snapshot = vm.dstack.snapshot()
	}

	if err := vm.Execute(outputScript); err != nil {
		return vm.SigChecks(), err
	}
	if err := requireTrueTop(&vm.dstack); err != nil {
		return vm.SigChecks(), err
	}

	if usesP2SH && isP2SHTemplate(outputScript) {
		if !inputScript.isPushOnly() {
			return vm.SigChecks(), scripterror.New(scripterror.ErrSigPushOnly, "P2SH signature script must contain only push operations")
		}
		vm.dstack.restore(snapshot)

		redeemBytes, err := vm.dstack.PopByteArray()
		if err != nil {
			return vm.SigChecks(), err
		}
		redeemScript, err := ParseScript(redeemBytes)
		if err != nil {
			return vm.SigChecks(), err
		}

		recoverable := vm.dstack.Depth() == 0 && isWitnessProgramScript(redeemScript) &&
			!flags.Has(deployment.ScriptDisallowSegwitRecovery)
		if recoverable {
			return vm.SigChecks(), nil
		}

		if err := vm.Execute(redeemScript); err != nil {
			return vm.SigChecks(), err
		}
		if err := requireTrueTop(&vm.dstack); err != nil {
			return vm.SigChecks(), err
		}
	}

	if flags.Has(deployment.ScriptCleanStack) {
		if vm.dstack.Depth() != 1 {
			return vm.SigChecks(), scripterror.New(scripterror.ErrCleanStack, "final stack must contain exactly one element")
		}
	}

	if flags.Has(deployment.ScriptInputSigChecks) {
		if len(inputScript.Bytes()) < vm.sigChecks*43-60 {
			return vm.SigChecks(), scripterror.New(scripterror.ErrInputSigChecks, "signature script too small for its sigcheck count")
		}
	}

	return vm.SigChecks(), nil
}

func requireTrueTop(s *stack) error {
	ok, err := s.PeekBool(0)
	if err != nil {
		return scripterror.New(scripterror.ErrEvalFalse, "stack is empty at end of script execution")
	}
	if !ok {
		return scripterror.New(scripterror.ErrEvalFalse, "top of stack is false at end of script execution")
	}
	return nil
}

func isP2SHTemplate(s *Script) bool {
	ops := s.Opcodes()
	if len(ops) != 3 {
		return false
	}
	for i := range ops {
		if ops[i].IsMalformed() {
			return false
		}
	}
	return ops[0].Value() == OP_HASH160 && ops[1].IsPush() && len(ops[1].Data) == 20 &&
		ops[2].Value() == OP_EQUAL
}

func isWitnessProgramScript(s *Script) bool {
	ops := s.Opcodes()
	if len(ops) != 2 {
		return false
	}
	if ops[0].IsMalformed() || ops[1].IsMalformed() {
		return false
	}
	v := ops[0].Value()
	isVersionPush := v == OP_0 || (v >= OP_1 && v <= OP_16)
	if !isVersionPush || !ops[1].IsPush() {
		return false
	}
	n := len(ops[1].Data)
	return n >= 2 && n <= 40
}
