package chain

import (
	"math/big"
	"testing"

	"github.com/bchcore/node/consensus/deployment"
	"github.com/stretchr/testify/require"
)

type fakeEntrySource struct {
	byHeight map[uint64]*ChainEntry
}

func (f *fakeEntrySource) AncestorAtHeight(tip *ChainEntry, height uint64) (*ChainEntry, bool) {
	e, ok := f.byHeight[height]
	return e, ok
}

func newTestParams() *deployment.Params {
	p := deployment.MainnetParams
	p.PowLimit = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 224), big.NewInt(1))
	p.PowLimitBits = BigToCompact(p.PowLimit)
	p.TargetSpacingSeconds = 600
	p.RetargetWindow = 2016
	return &p
}

func chainSpan(params *deployment.Params, count uint64, spacing int64, bits uint32) *fakeEntrySource {
	src := &fakeEntrySource{byHeight: make(map[uint64]*ChainEntry)}
	var t int64 = 1600000000
	for h := uint64(0); h < count; h++ {
		src.byHeight[h] = &ChainEntry{Height: h, Time: t, Bits: bits}
		t += spacing
	}
	return src
}

func TestLegacyBitsUnchangedMidWindow(t *testing.T) {
	params := newTestParams()
	src := chainSpan(params, 3000, 600, params.PowLimitBits)
	tip := src.byHeight[2014]

	state := &deployment.State{}
	got := requiredBits(params, state, src, tip, tip.Time+600)
	require.Equal(t, tip.Bits, got, "non-retarget heights should keep the tip's bits absent EDA")
}

func TestLegacyBitsRetargetsAtWindowBoundary(t *testing.T) {
	params := newTestParams()
	// Blocks arrive twice as fast as targetSpacing, so the retarget should
	// tighten (lower) the next target.
	src := chainSpan(params, 2017, 300, params.PowLimitBits)
	tip := src.byHeight[2015]

	state := &deployment.State{}
	got := requiredBits(params, state, src, tip, tip.Time+300)

	gotTarget := CompactToBig(got)
	require.Equal(t, -1, gotTarget.Cmp(params.PowLimit), "retargeted difficulty should tighten below powLimit")
}

func TestDAABitsProducesSaneTarget(t *testing.T) {
	params := newTestParams()
	src := chainSpan(params, 300, 600, params.PowLimitBits)
	tip := src.byHeight[200]

	state := &deployment.State{DAA: true}
	got := requiredBits(params, state, src, tip, tip.Time+600)

	gotTarget := CompactToBig(got)
	require.True(t, gotTarget.Sign() > 0)
	require.True(t, gotTarget.Cmp(params.PowLimit) <= 0)
}

func TestAsertBitsHoldsSteadyAtIdealSpacing(t *testing.T) {
	params := newTestParams()
	params.AsertRefHeight = 100
	params.AsertRefBits = params.PowLimitBits
	params.AsertRefAncestorTime = 1600000000
	params.AsertHalfLifeSeconds = 172800

	src := &fakeEntrySource{byHeight: make(map[uint64]*ChainEntry)}
	tip := &ChainEntry{Height: 150, Time: params.AsertRefAncestorTime + (150-99)*params.TargetSpacingSeconds, Bits: params.PowLimitBits}

	state := &deployment.State{Asert: true}
	newBlockTime := tip.Time + params.TargetSpacingSeconds
	got := requiredBits(params, state, src, tip, newBlockTime)

	gotTarget := CompactToBig(got)
	refTarget := CompactToBig(params.AsertRefBits)
	// At exactly ideal spacing the retarget should reproduce (within
	// fixed-point rounding) the reference target.
	diff := new(big.Int).Sub(gotTarget, refTarget)
	diff.Abs(diff)
	tolerance := new(big.Int).Rsh(refTarget, 10)
	require.True(t, diff.Cmp(tolerance) <= 0, "asert target should stay close to ref target at ideal spacing")
}

func TestRequiredBitsNilTipUsesPowLimit(t *testing.T) {
	params := newTestParams()
	state := &deployment.State{}
	got := requiredBits(params, state, &fakeEntrySource{byHeight: map[uint64]*ChainEntry{}}, nil, 1234)
	require.Equal(t, params.PowLimitBits, got)
}
