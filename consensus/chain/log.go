package chain

import "github.com/bchcore/node/internal/logs"

var log = logs.Get(logs.SubsystemTags.CHAN)
