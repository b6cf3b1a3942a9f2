package deployment

import "math/big"

// Params is the network-parameter object every height/time-based
// activation rule and the difficulty retargeter read from, narrowed from
// dagconfig.Params' GHOSTDAG-era field set down to the linear-chain
// upgrade schedule this core validates against.
type Params struct {
	Name string

	GenesisHash [32]byte

	PowLimit    *big.Int
	PowLimitBits uint32

	TargetSpacingSeconds int64 // seconds between blocks, e.g. 600
	RetargetWindow       int64 // legacy retarget window, e.g. 2016

	// Height/time at which each upgrade activates. A zero height means
	// "active from genesis"; BIP16Time/AsertActivationTime/WellingtonTime
	// gate on median-time-past rather than height, matching upstream's
	// own mixed height/time activation style.
	BIP16Time             int64
	BIP34Height           uint64
	BIP65Height           uint64
	BIP66Height           uint64
	UAHFHeight            uint64
	DAAHeight             uint64
	MagneticAnomalyHeight uint64
	GreatWallHeight       uint64
	GravitonHeight        uint64
	PhononHeight          uint64
	AsertActivationTime   int64
	AxionHeight           uint64
	TachyonHeight         uint64
	SelectronHeight       uint64
	GluonHeight           uint64
	JeffersonHeight       uint64
	WellingtonTime        int64

	// ASERT anchor: the reference block the exponential schedule is
	// pinned to.
	AsertRefHeight        uint64
	AsertRefBits          uint32
	AsertRefAncestorTime  int64
	AsertHalfLifeSeconds  int64

	RuleChangeActivationThreshold uint64
	MinerConfirmationWindow       uint64

	CheckpointsEnabled bool
}

var bigOne = big.NewInt(1)

// MainnetParams mirrors dagconfig.MainnetParams' role: the default network
// this core validates against absent an explicit override. Heights below
// are illustrative placeholders for a from-scratch chain and are meant to
// be overridden by a caller wiring a real network's activation schedule.
var MainnetParams = Params{
	Name:                 "mainnet",
	PowLimit:             new(big.Int).Sub(new(big.Int).Lsh(bigOne, 224), bigOne),
	PowLimitBits:          0x1d00ffff,
	TargetSpacingSeconds: 600,
	RetargetWindow:       2016,

	BIP16Time:   1333238400,
	BIP34Height: 227931,
	BIP65Height: 388381,
	BIP66Height: 363725,

	UAHFHeight:            478559,
	DAAHeight:             504031,
	MagneticAnomalyHeight: 556767,
	GreatWallHeight:       566670,
	GravitonHeight:        582680,
	PhononHeight:          606648,
	AsertActivationTime:   1605441600,
	AxionHeight:           650000,
	TachyonHeight:         700000,
	SelectronHeight:       750000,
	GluonHeight:           800000,
	JeffersonHeight:       850000,
	WellingtonTime:        1700000000,

	AsertRefHeight:       661648,
	AsertRefBits:         0x1802210c,
	AsertRefAncestorTime: 1605447844,
	AsertHalfLifeSeconds: 172800,

	RuleChangeActivationThreshold: 1916,
	MinerConfirmationWindow:       2016,

	CheckpointsEnabled: true,
}

// TestnetParams mirrors dagconfig.TestnetParams' role: the test network's
// own activation heights, a lower versionbits threshold (1512 of a
// 2016-block window), and checkpoints disabled since testnets reorg more
// readily than mainnet.
var TestnetParams = Params{
	Name:                 "testnet",
	PowLimit:             new(big.Int).Sub(new(big.Int).Lsh(bigOne, 236), bigOne),
	PowLimitBits:         0x1d00ffff,
	TargetSpacingSeconds: 600,
	RetargetWindow:       2016,

	BIP16Time:   1333238400,
	BIP34Height: 21111,
	BIP65Height: 581885,
	BIP66Height: 330776,

	UAHFHeight:            1155875,
	DAAHeight:             1188697,
	MagneticAnomalyHeight: 1267996,
	GreatWallHeight:       1284010,
	GravitonHeight:        1421481,
	PhononHeight:          1425038,
	AsertActivationTime:   1605441600,
	AxionHeight:           1500000,
	TachyonHeight:         1550000,
	SelectronHeight:       1600000,
	GluonHeight:           1650000,
	JeffersonHeight:       1700000,
	WellingtonTime:        1700000000,

	AsertRefHeight:       1421481,
	AsertRefBits:         0x1d00ffff,
	AsertRefAncestorTime: 1605447844,
	AsertHalfLifeSeconds: 172800,

	RuleChangeActivationThreshold: 1512,
	MinerConfirmationWindow:       2016,

	CheckpointsEnabled: false,
}

// RegtestParams mirrors dagconfig.RegressionNetParams' role: a
// locally-mined network with every height- and time-activated upgrade
// active from genesis and the widest possible PoW limit, for deterministic
// single-process tests and tool dry runs. CSV still follows the BIP9
// deployment registered in init, with mainnet's window and threshold.
var RegtestParams = Params{
	Name:                 "regtest",
	PowLimit:             new(big.Int).Sub(new(big.Int).Lsh(bigOne, 255), bigOne),
	PowLimitBits:         0x207fffff,
	TargetSpacingSeconds: 600,
	RetargetWindow:       2016,

	RuleChangeActivationThreshold: 108,
	MinerConfirmationWindow:       144,

	CheckpointsEnabled: false,
}

func init() {
	RegisterDeployment(BitCSV, 1462060800, 1493596800,
		MainnetParams.RuleChangeActivationThreshold, MainnetParams.MinerConfirmationWindow)
}
