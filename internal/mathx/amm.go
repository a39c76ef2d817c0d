package mathx

import "github.com/holiman/uint256"

// CurveState is the minimal pool state the constant-sum bonding curve needs
// to quote a price or a trade. It is a pure value — no persistence, no
// side-channel lookups — so every quote here is a deterministic function of
// its inputs, matching spec's "views are pure with respect to storage".
type CurveState struct {
	YesSupply         *uint256.Int // real yes shares outstanding, scaled
	NoSupply          *uint256.Int // real no shares outstanding, scaled
	VirtualLiquidity  *uint256.Int // VL, added to both sides
	PoolBalance       *uint256.Int // real wei held by the market
}

// effective returns (Y, N, T) = (yes_supply+VL, no_supply+VL, Y+N).
func (c CurveState) effective() (y, n, t *uint256.Int) {
	y = Add(c.YesSupply, c.VirtualLiquidity)
	n = Add(c.NoSupply, c.VirtualLiquidity)
	t = Add(y, n)
	return
}

// Price returns (P_yes, P_no) such that P_yes+P_no = UnitPrice exactly.
// P_no is derived by subtraction from UnitPrice rather than recomputed, so
// the sum invariant holds even where integer division would otherwise let
// the two independently-floored quotients miss each other by one unit.
func (c CurveState) Price() (pYes, pNo *uint256.Int, err error) {
	y, _, t := c.effective()
	pYes, err = MulDivFloor(UnitPrice, y, t)
	if err != nil {
		return nil, nil, err
	}
	pNo = Sub(UnitPrice, pYes)
	return pYes, pNo, nil
}

// Side selects which outstanding supply a quote or trade applies to.
type Side int

const (
	SideYes Side = iota
	SideNo
)

// BuyQuote computes shares_out for bnbIn wei spent on side, after peeling off
// platformFeeBps+creatorFeeBps. Division floors, favoring the pool per spec §4.1.
func (c CurveState) BuyQuote(bnbIn *uint256.Int, side Side, platformFeeBps, creatorFeeBps uint64) (sharesOut, netIn *uint256.Int, err error) {
	totalFeeBps := platformFeeBps + creatorFeeBps
	feeFactor := Sub(BpsDenominator, FromUint64(totalFeeBps))
	netIn, err = MulDivFloor(bnbIn, feeFactor, BpsDenominator)
	if err != nil {
		return nil, nil, err
	}

	y, n, t := c.effective()
	sVirtual := y
	if side == SideNo {
		sVirtual = n
	}

	num, err := MulDivFloor(netIn, t, sVirtual)
	if err != nil {
		return nil, nil, err
	}
	sharesOut, err = MulDivFloor(num, ShareScale, UnitPrice)
	if err != nil {
		return nil, nil, err
	}
	return sharesOut, netIn, nil
}

// SellQuote computes the gross proceeds (before fees) of selling sharesIn of
// side, priced at the *post*-sale state — the concave pricing that makes
// draining the pool at the instantaneous price impossible.
func (c CurveState) SellQuote(sharesIn *uint256.Int, side Side) (bnbGross *uint256.Int, err error) {
	yesAfter, noAfter := c.YesSupply, c.NoSupply
	if side == SideYes {
		yesAfter = SubBounded(c.YesSupply, sharesIn)
	} else {
		noAfter = SubBounded(c.NoSupply, sharesIn)
	}
	after := CurveState{YesSupply: yesAfter, NoSupply: noAfter, VirtualLiquidity: c.VirtualLiquidity}
	yA, nA, tA := after.effective()
	sVirtualAfter := yA
	if side == SideNo {
		sVirtualAfter = nA
	}

	num, err := MulDivFloor(sharesIn, UnitPrice, ShareScale)
	if err != nil {
		return nil, err
	}
	bnbGross, err = MulDivFloor(num, sVirtualAfter, tA)
	if err != nil {
		return nil, err
	}
	return bnbGross, nil
}

// MaxSellable binary-searches the largest sharesIn ≤ userShares whose
// SellQuote(sharesIn, side) does not exceed poolBalance, returning that share
// amount and the bnb it would yield. SellQuote is not monotone in sharesIn:
// it rises, then can fall as sharesIn nears the whole side supply. Once the
// fast path has ruled out userShares, the search keeps an amount that fits
// (lo) and narrows hi past amounts that do not, so the result fits the pool
// and the next unit above it does not.
func (c CurveState) MaxSellable(userShares *uint256.Int, side Side) (maxShares, bnbOut *uint256.Int, err error) {
	if userShares.IsZero() {
		return Zero(), Zero(), nil
	}

	// Fast path: selling everything already fits.
	full, err := c.SellQuote(userShares, side)
	if err != nil {
		return nil, nil, err
	}
	if !GreaterThan(full, c.PoolBalance) {
		return userShares.Clone(), full, nil
	}

	lo, hi := Zero(), userShares.Clone()
	var bestShares, bestOut = Zero(), Zero()
	for i := 0; i < 256 && LessThan(lo, hi); i++ {
		mid := Add(lo, hi)
		mid = Add(mid, FromUint64(1))
		mid = mid.Rsh(mid, 1) // ceil((lo+hi+1)/2) to make progress toward hi

		out, qerr := c.SellQuote(mid, side)
		if qerr != nil {
			return nil, nil, qerr
		}
		if GreaterThan(out, c.PoolBalance) {
			hi = Sub(mid, FromUint64(1))
		} else {
			lo = mid.Clone()
			bestShares, bestOut = mid.Clone(), out
		}
	}
	return bestShares, bestOut, nil
}
