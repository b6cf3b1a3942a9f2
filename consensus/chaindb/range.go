package chaindb

import "github.com/syndtr/goleveldb/leveldb/util"

// newPrefixRange builds the [prefix, prefix+1) byte range goleveldb's
// iterator needs to walk every key sharing prefix, the same
// util.BytesPrefix helper the teacher's ldb package reaches for instead of
// hand-rolling an upper bound.
func newPrefixRange(prefix []byte) *util.Range {
	return util.BytesPrefix(prefix)
}
