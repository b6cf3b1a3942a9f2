package chain

import "fmt"

// VerifyErrorKind classifies a VerifyError the way the spec's §7 taxonomy
// requires: callers branch on Kind to decide whether to mark a hash
// permanently invalid.
type VerifyErrorKind string

const (
	KindInvalid    VerifyErrorKind = "invalid"
	KindObsolete   VerifyErrorKind = "obsolete"
	KindCheckpoint VerifyErrorKind = "checkpoint"
	KindMalformed  VerifyErrorKind = "malformed"
	KindDuplicate  VerifyErrorKind = "duplicate"
)

// VerifyError is the chain-level error type returned by verify/verifyContext
// and propagated out of connect/add. Reason is a stable machine-checkable
// identifier (e.g. "bad-txns-inputs-missingorspent"); Score estimates the
// misbehavior severity a peer-banning layer would apply (0..100); Malleated
// marks an error whose cause might be fixed by a different but
// hash-distinct serialization of the same block, so the hash must NOT be
// placed in the invalid set.
type VerifyError struct {
	Kind      VerifyErrorKind
	Reason    string
	Score     int
	Malleated bool
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

func newVerifyError(kind VerifyErrorKind, reason string, score int) *VerifyError {
	return &VerifyError{Kind: kind, Reason: reason, Score: score}
}

func newMalleatedVerifyError(kind VerifyErrorKind, reason string, score int) *VerifyError {
	return &VerifyError{Kind: kind, Reason: reason, Score: score, Malleated: true}
}
