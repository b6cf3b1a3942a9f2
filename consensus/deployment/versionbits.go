package deployment

// ThresholdState is one state of the BIP9 versionbits state machine for a
// single deployment bit.
type ThresholdState int

const (
	ThresholdDefined ThresholdState = iota
	ThresholdStarted
	ThresholdLockedIn
	ThresholdActive
	ThresholdFailed
)

func (s ThresholdState) String() string {
	switch s {
	case ThresholdDefined:
		return "defined"
	case ThresholdStarted:
		return "started"
	case ThresholdLockedIn:
		return "locked_in"
	case ThresholdActive:
		return "active"
	case ThresholdFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// BitNumber identifies a versionbits deployment, e.g. BitCSV for BIP68/112/113.
type BitNumber uint8

const BitCSV BitNumber = 0

// VersionBitsHistory answers the three questions the threshold-state
// transition needs about the chain: where the minerWindow-sized window
// containing a height starts, how many of the minerWindow blocks up to and
// including a height signal the bit, and the median-time-past at a height.
// Already-computed states are kept by VersionBitsCache, not here. Chain
// implements this against its ChainEntry store.
type VersionBitsHistory interface {
	// WindowStart returns the height of the first block in the
	// minerWindow-sized retarget window containing height.
	WindowStart(height uint64, minerWindow uint64) uint64
	// SignalCount returns how many of the minerWindow blocks ending at
	// height (inclusive) set bit in their version field.
	SignalCount(bit BitNumber, height uint64, minerWindow uint64) uint64
	// MTPAt returns the median-time-past of the block at height.
	MTPAt(height uint64) int64
}

// versionBitsEntry caches the computed state for one (bit, window-start
// height) pair, since states only change at window boundaries.
type versionBitsEntry struct {
	state  ThresholdState
	height uint64
}

// VersionBitsCache memoizes per-bit threshold state across window
// boundaries, the way the spec requires ("transitions cached per
// (bit, entry)") without recomputing the whole history chain on every
// block.
type VersionBitsCache struct {
	cache map[BitNumber]map[uint64]versionBitsEntry
}

// NewVersionBitsCache returns an empty cache.
func NewVersionBitsCache() *VersionBitsCache {
	return &VersionBitsCache{cache: make(map[BitNumber]map[uint64]versionBitsEntry)}
}

// State walks the threshold state machine from DEFINED forward to the
// window containing height, returning the state applicable at height.
// StartTime/Timeout/Threshold/MinerWindow come from the parameters
// registered for bit with RegisterDeployment; an unregistered bit is always
// Defined.
func (c *VersionBitsCache) State(bit BitNumber, height uint64, mtp int64, hist VersionBitsHistory) ThresholdState {
	dep, ok := deploymentsByBit[bit]
	if !ok {
		return ThresholdDefined
	}

	windowStart := hist.WindowStart(height, dep.MinerWindow)
	if cached, ok := c.lookup(bit, windowStart); ok {
		return cached
	}

	state := c.walk(bit, dep, windowStart, hist)
	c.store(bit, windowStart, state)
	return state
}

func (c *VersionBitsCache) lookup(bit BitNumber, windowStart uint64) (ThresholdState, bool) {
	byHeight, ok := c.cache[bit]
	if !ok {
		return 0, false
	}
	e, ok := byHeight[windowStart]
	if !ok {
		return 0, false
	}
	return e.state, true
}

func (c *VersionBitsCache) store(bit BitNumber, windowStart uint64, state ThresholdState) {
	if c.cache[bit] == nil {
		c.cache[bit] = make(map[uint64]versionBitsEntry)
	}
	c.cache[bit][windowStart] = versionBitsEntry{state: state, height: windowStart}
}

// bip9Deployment carries the start/expire times and activation threshold
// for one versionbits deployment, mirroring dagconfig.ConsensusDeployment's
// shape narrowed to BIP9's actual fields.
type bip9Deployment struct {
	StartTime   int64
	Timeout     int64
	Threshold   uint64
	MinerWindow uint64
}

var deploymentsByBit = map[BitNumber]bip9Deployment{}

// RegisterDeployment installs the start/timeout/threshold parameters for a
// bit, called once from Params construction.
func RegisterDeployment(bit BitNumber, startTime, timeout int64, threshold, minerWindow uint64) {
	deploymentsByBit[bit] = bip9Deployment{
		StartTime:   startTime,
		Timeout:     timeout,
		Threshold:   threshold,
		MinerWindow: minerWindow,
	}
}

func (c *VersionBitsCache) walk(bit BitNumber, dep bip9Deployment, windowStart uint64, hist VersionBitsHistory) ThresholdState {
	if windowStart < dep.MinerWindow {
		return ThresholdDefined
	}

	mtp := hist.MTPAt(windowStart)
	switch {
	case mtp < dep.StartTime:
		return ThresholdDefined
	case mtp >= dep.Timeout:
		// A window that already locked in before timeout stays active;
		// only an un-started or still-counting window can fail.
		prev := windowStart - dep.MinerWindow
		prevState := c.recallOrWalk(bit, dep, prev, hist)
		if prevState == ThresholdLockedIn || prevState == ThresholdActive {
			return ThresholdActive
		}
		return ThresholdFailed
	}

	prev := windowStart - dep.MinerWindow
	prevState := c.recallOrWalk(bit, dep, prev, hist)

	switch prevState {
	case ThresholdFailed:
		return ThresholdFailed
	case ThresholdActive:
		return ThresholdActive
	case ThresholdLockedIn:
		return ThresholdActive
	default: // Defined or Started
		count := hist.SignalCount(bit, windowStart+dep.MinerWindow-1, dep.MinerWindow)
		if count >= dep.Threshold {
			return ThresholdLockedIn
		}
		if prevState == ThresholdDefined && mtp < dep.StartTime {
			return ThresholdDefined
		}
		return ThresholdStarted
	}
}

func (c *VersionBitsCache) recallOrWalk(bit BitNumber, dep bip9Deployment, windowStart uint64, hist VersionBitsHistory) ThresholdState {
	if cached, ok := c.lookup(bit, windowStart); ok {
		return cached
	}
	state := c.walk(bit, dep, windowStart, hist)
	c.store(bit, windowStart, state)
	return state
}
