package chain

import (
	"math/big"

	"github.com/bchcore/node/consensus/deployment"
)

// EntrySource is the ancestor-lookup capability the difficulty retargeter
// needs from the chain it's extending; Chain itself satisfies it via its
// ChainDB.
type EntrySource interface {
	AncestorAtHeight(tip *ChainEntry, height uint64) (*ChainEntry, bool)
}

// requiredBits selects and runs the retargeting algorithm appropriate for
// the block that would extend tip, per spec.md §4.3's three-algorithm
// schedule (legacy -> DAA -> ASERT).
func requiredBits(params *deployment.Params, state *deployment.State, src EntrySource, tip *ChainEntry, newBlockTime int64) uint32 {
	if tip == nil {
		return params.PowLimitBits
	}

	if state.Asert {
		return asertBits(params, src, tip, newBlockTime)
	}
	if state.DAA {
		return daaBits(params, src, tip)
	}
	return legacyBits(params, src, tip, newBlockTime)
}

// legacyBits implements the pre-DAA 2016-block retarget with a ±4x clamp,
// plus the emergency-difficulty-adjustment rule: if the timestamp span over
// the last 6 blocks (see edaTriggered) reaches 12 hours, the next block's
// target is loosened by 1.25x.
func legacyBits(params *deployment.Params, src EntrySource, tip *ChainEntry, newBlockTime int64) uint32 {
	height := tip.Height + 1
	window := uint64(params.RetargetWindow)

	if height%window != 0 {
		if edaTriggered(src, tip) {
			target := CompactToBig(tip.Bits)
			target.Mul(target, big.NewInt(5))
			target.Div(target, big.NewInt(4))
			return clampToPowLimit(params, target)
		}
		return tip.Bits
	}

	firstHeight := tip.Height + 1 - window
	first, ok := src.AncestorAtHeight(tip, firstHeight)
	if !ok {
		return params.PowLimitBits
	}

	actualTimespan := tip.Time - first.Time
	targetTimespan := params.TargetSpacingSeconds * int64(window)
	actualTimespan = clampInt64(actualTimespan, targetTimespan/4, targetTimespan*4)

	target := CompactToBig(tip.Bits)
	target.Mul(target, big.NewInt(actualTimespan))
	target.Div(target, big.NewInt(targetTimespan))
	return clampToPowLimit(params, target)
}

// edaTriggered reports whether tip's timestamp is at least 12 hours after
// the timestamp of its ancestor six heights below, the emergency-
// difficulty-adjustment trigger. It compares the two blocks' own
// timestamps; median-time-past values are not computed here.
func edaTriggered(src EntrySource, tip *ChainEntry) bool {
	if tip.Height < 6 {
		return false
	}
	sixBack, ok := src.AncestorAtHeight(tip, tip.Height-6)
	if !ok {
		return false
	}
	const twelveHours = 12 * 60 * 60
	return tip.Time-sixBack.Time >= twelveHours
}

// daaBits implements the Cash DAA: a 144-block work/time average anchored
// at a "suitable block" (the median-by-timestamp of three candidates) at
// both ends of the window, clamping actualTimespan to [0.5x, 2x] of
// 144*targetSpacing.
func daaBits(params *deployment.Params, src EntrySource, tip *ChainEntry) uint32 {
	const windowSize = 144

	last, ok := suitableBlock(src, tip)
	if !ok {
		return params.PowLimitBits
	}
	firstAnchor, ok := src.AncestorAtHeight(tip, tip.Height-windowSize)
	if !ok {
		return params.PowLimitBits
	}
	first, ok := suitableBlock(src, firstAnchor)
	if !ok {
		return params.PowLimitBits
	}

	work := new(big.Int)
	for h := first.Height + 1; h <= last.Height; h++ {
		entry, ok := src.AncestorAtHeight(tip, h)
		if !ok {
			break
		}
		work.Add(work, calcWork(entry.Bits))
	}

	actualTimespan := last.Time - first.Time
	targetTimespan := int64(windowSize) * params.TargetSpacingSeconds
	actualTimespan = clampInt64(actualTimespan, targetTimespan/2, targetTimespan*2)

	work.Mul(work, big.NewInt(params.TargetSpacingSeconds))
	if actualTimespan == 0 {
		actualTimespan = 1
	}
	work.Div(work, big.NewInt(actualTimespan))

	target := new(big.Int).Lsh(bigOne, 256)
	target.Div(target, work)
	target.Sub(target, bigOne)

	return clampToPowLimit(params, target)
}

// suitableBlock picks the median-by-timestamp of {entry, entry-1, entry-2},
// the DAA's noise-reduction step against single-block timestamp outliers.
func suitableBlock(src EntrySource, entry *ChainEntry) (*ChainEntry, bool) {
	if entry.Height < 2 {
		return entry, true
	}
	a := entry
	b, ok := src.AncestorAtHeight(entry, entry.Height-1)
	if !ok {
		return entry, true
	}
	c, ok := src.AncestorAtHeight(entry, entry.Height-2)
	if !ok {
		return entry, true
	}

	candidates := []*ChainEntry{a, b, c}
	// Insertion-sort three elements by timestamp, return the middle one.
	if candidates[0].Time > candidates[1].Time {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}
	if candidates[1].Time > candidates[2].Time {
		candidates[1], candidates[2] = candidates[2], candidates[1]
	}
	if candidates[0].Time > candidates[1].Time {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}
	return candidates[1], true
}

// asertBits implements the anchored exponential retarget: the target at
// evalTime/evalHeight is refTarget scaled by 2^((timeDelta - idealDelta) /
// halfLife), computed with a cubic fixed-point approximation of 2^x for the
// fractional exponent.
func asertBits(params *deployment.Params, src EntrySource, tip *ChainEntry, newBlockTime int64) uint32 {
	refTarget := CompactToBig(params.AsertRefBits)
	evalHeight := tip.Height + 1

	timeDelta := newBlockTime - params.AsertRefAncestorTime
	heightDelta := int64(evalHeight) - int64(params.AsertRefHeight) + 1
	idealDelta := params.TargetSpacingSeconds * heightDelta

	exponent := ((timeDelta - idealDelta) << 16) / params.AsertHalfLifeSeconds

	shifts := exponent >> 16
	frac := exponent - (shifts << 16)
	if frac < 0 {
		frac += 1 << 16
		shifts--
	}

	// Cubic approximation of 2^(frac/65536) in Q16, per spec.md's
	// constants: (195766423245049*e + 971821376*e^2 + 5127*e^3 + 2^47) >> 48.
	e := big.NewInt(frac)
	e2 := new(big.Int).Mul(e, e)
	e3 := new(big.Int).Mul(e2, e)

	term1 := new(big.Int).Mul(big.NewInt(195766423245049), e)
	term2 := new(big.Int).Mul(big.NewInt(971821376), e2)
	term3 := new(big.Int).Mul(big.NewInt(5127), e3)

	sum := new(big.Int).Add(term1, term2)
	sum.Add(sum, term3)
	sum.Add(sum, new(big.Int).Lsh(bigOne, 47))
	sum.Rsh(sum, 48)

	factor := new(big.Int).Add(sum, new(big.Int).Lsh(bigOne, 16))

	target := new(big.Int).Mul(refTarget, factor)
	if shifts >= 0 {
		target.Lsh(target, uint(shifts))
	} else {
		target.Rsh(target, uint(-shifts))
	}
	target.Rsh(target, 16)

	if target.Sign() <= 0 {
		return BigToCompact(big.NewInt(1))
	}
	return clampToPowLimit(params, target)
}

func clampToPowLimit(params *deployment.Params, target *big.Int) uint32 {
	if target.Cmp(params.PowLimit) > 0 {
		target = params.PowLimit
	}
	return BigToCompact(target)
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
