package chaindb

import "github.com/bchcore/node/internal/logs"

var log = logs.Get(logs.SubsystemTags.CDB)
