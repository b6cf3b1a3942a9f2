// Package scripterror defines the typed ScriptError taxonomy produced by
// the script interpreter. Errors are local and deterministic: they never
// trigger recovery, and are surfaced verbatim to the caller.
package scripterror

// Code identifies a specific script-evaluation failure.
type Code int

// These constants identify every consensus-visible script failure. One
// Code per condition, never a bare string, so callers can switch on it.
const (
	ErrOK Code = iota
	ErrScriptSize
	ErrPushSize
	ErrOpCount
	ErrStackSize
	ErrBadOpcode
	ErrDisabledOpcode
	ErrMinimalData
	ErrMinimalIf
	ErrVerify
	ErrEqualVerify
	ErrNumEqualVerify
	ErrCheckSigVerify
	ErrCheckDataSigVerify
	ErrCheckMultiSigVerify
	ErrUnbalancedConditional
	ErrInvalidStackOperation
	ErrInvalidAltStackOperation
	ErrNegativeLockTime
	ErrUnsatisfiedLockTime
	ErrDiscourageUpgradableNOPs
	ErrDivByZero
	ErrModByZero
	ErrInvalidSplitRange
	ErrInvalidOperandSize
	ErrImpossibleEncoding
	ErrInvalidNumberRange
	ErrPubKeyType
	ErrNonCompressedPubkey
	ErrSigDER
	ErrSigHighS
	ErrSigHashType
	ErrSigBadLength
	ErrSigNonSchnorr
	ErrSigPushOnly
	ErrIllegalForkID
	ErrMustUseForkID
	ErrNullFail
	ErrPubKeyCount
	ErrSigCount
	ErrInvalidBitfieldSize
	ErrBitfieldSize
	ErrBitRange
	ErrInvalidBitCount
	ErrInvalidBitRange
	ErrCleanStack
	ErrEvalFalse
	ErrOpReturn
	ErrInputSigChecks
	ErrUnknownError
)

var codeStrings = map[Code]string{
	ErrOK:                       "ErrOK",
	ErrScriptSize:               "SCRIPT_SIZE",
	ErrPushSize:                 "PUSH_SIZE",
	ErrOpCount:                  "OP_COUNT",
	ErrStackSize:                "STACK_SIZE",
	ErrBadOpcode:                "BAD_OPCODE",
	ErrDisabledOpcode:           "DISABLED_OPCODE",
	ErrMinimalData:              "MINIMALDATA",
	ErrMinimalIf:                "MINIMALIF",
	ErrVerify:                   "VERIFY",
	ErrEqualVerify:              "EQUALVERIFY",
	ErrNumEqualVerify:           "NUMEQUALVERIFY",
	ErrCheckSigVerify:           "CHECKSIGVERIFY",
	ErrCheckDataSigVerify:       "CHECKDATASIGVERIFY",
	ErrCheckMultiSigVerify:      "CHECKMULTISIGVERIFY",
	ErrUnbalancedConditional:    "UNBALANCED_CONDITIONAL",
	ErrInvalidStackOperation:    "INVALID_STACK_OPERATION",
	ErrInvalidAltStackOperation: "INVALID_ALTSTACK_OPERATION",
	ErrNegativeLockTime:         "NEGATIVE_LOCKTIME",
	ErrUnsatisfiedLockTime:      "UNSATISFIED_LOCKTIME",
	ErrDiscourageUpgradableNOPs: "DISCOURAGE_UPGRADABLE_NOPS",
	ErrDivByZero:                "DIV_BY_ZERO",
	ErrModByZero:                "MOD_BY_ZERO",
	ErrInvalidSplitRange:        "INVALID_SPLIT_RANGE",
	ErrInvalidOperandSize:       "INVALID_OPERAND_SIZE",
	ErrImpossibleEncoding:       "IMPOSSIBLE_ENCODING",
	ErrInvalidNumberRange:       "INVALID_NUMBER_RANGE",
	ErrPubKeyType:               "PUBKEYTYPE",
	ErrNonCompressedPubkey:      "NONCOMPRESSED_PUBKEY",
	ErrSigDER:                   "SIG_DER",
	ErrSigHighS:                 "SIG_HIGH_S",
	ErrSigHashType:              "SIG_HASHTYPE",
	ErrSigBadLength:             "SIG_BADLENGTH",
	ErrSigNonSchnorr:            "SIG_NONSCHNORR",
	ErrSigPushOnly:              "SIG_PUSHONLY",
	ErrIllegalForkID:            "ILLEGAL_FORKID",
	ErrMustUseForkID:            "MUST_USE_FORKID",
	ErrNullFail:                 "NULLFAIL",
	ErrPubKeyCount:              "PUBKEY_COUNT",
	ErrSigCount:                 "SIG_COUNT",
	ErrInvalidBitfieldSize:      "INVALID_BITFIELD_SIZE",
	ErrBitfieldSize:             "BITFIELD_SIZE",
	ErrBitRange:                 "BIT_RANGE",
	ErrInvalidBitCount:          "INVALID_BIT_COUNT",
	ErrInvalidBitRange:          "INVALID_BIT_RANGE",
	ErrCleanStack:               "CLEANSTACK",
	ErrEvalFalse:                "EVAL_FALSE",
	ErrOpReturn:                 "OP_RETURN",
	ErrInputSigChecks:           "INPUT_SIGCHECKS",
	ErrUnknownError:             "UNKNOWN_ERROR",
}

// String returns the human-readable identifier for the code, matching the
// wire-level names used in spec §7.
func (c Code) String() string {
	if s, ok := codeStrings[c]; ok {
		return s
	}
	return "UNKNOWN_ERROR"
}

// Error identifies a script-evaluation rule violation. Callers use
// errors.As to recover the Code and react programmatically; it is never
// meant to trigger recovery on its own.
type Error struct {
	Code    Code
	message string
}

// Error satisfies the error interface.
func (e Error) Error() string {
	if e.message == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.message
}

// New constructs a scripterror.Error for the given code with an optional
// human-readable detail.
func New(code Code, message string) error {
	return Error{Code: code, message: message}
}

// Is reports whether err is a scripterror.Error with the given code, the
// idiom used throughout the interpreter for asserting test expectations.
func Is(err error, code Code) bool {
	se, ok := err.(Error)
	return ok && se.Code == code
}
