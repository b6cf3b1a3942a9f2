package chaindb

import "github.com/pkg/errors"

var (
	errNoUndoRecord       = errors.New("chaindb: missing undo record")
	errResetTargetMissing = errors.New("chaindb: reset target not found")
)
