// Package deployment derives the set of consensus rules active at a given
// block height/time and exposes the flag bitmask the interpreter gates
// opcode behavior on.
package deployment

// Flags is the caller-visible, OR-combinable bitmask that gates interpreter
// and contextual-validation behavior. Numeric values are local to this
// module; they carry no wire meaning.
type Flags uint32

const (
	ScriptP2SH Flags = 1 << iota
	ScriptStrictEnc
	ScriptDERSig
	ScriptLowS
	ScriptNullDummy
	ScriptSigPushOnly
	ScriptMinimalData
	ScriptDiscourageUpgradableNOPs
	ScriptCleanStack
	ScriptCheckLockTimeVerify
	ScriptCheckSequenceVerify
	ScriptMinimalIf
	ScriptNullFail
	ScriptCompressedPubKeyType
	ScriptSigHashForkID
	ScriptCheckDataSig
	ScriptSchnorr
	ScriptSchnorrMultisig
	ScriptDisallowSegwitRecovery
	ScriptInputSigChecks
	ScriptReportSigChecks
	ScriptZeroSigOps
	ScriptVerifyPoW
	ScriptVerifyBody
)

// Has reports whether every bit in want is set in f.
func (f Flags) Has(want Flags) bool { return f&want == want }

// StandardFlags is the flag set applied to relayed, not-yet-mined
// transactions: every flag that has graduated to mandatory plus a handful
// of policy-only restrictions.
const StandardFlags = MandatoryFlags |
	ScriptDERSig |
	ScriptLowS |
	ScriptNullDummy |
	ScriptSigPushOnly |
	ScriptDiscourageUpgradableNOPs |
	ScriptCleanStack |
	ScriptCheckLockTimeVerify |
	ScriptCheckSequenceVerify |
	ScriptMinimalIf |
	ScriptNullFail |
	ScriptCompressedPubKeyType |
	ScriptInputSigChecks

// MandatoryFlags is the flag set enforced for every block, standard or not.
const MandatoryFlags = ScriptP2SH |
	ScriptStrictEnc |
	ScriptMinimalData |
	ScriptSigHashForkID |
	ScriptCheckDataSig |
	ScriptSchnorr |
	ScriptVerifyPoW
