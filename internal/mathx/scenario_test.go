package mathx_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/streetconsensus/settlement/internal/mathx"
)

// TestScenarioSingleBuyerLiquidityCap replicates the seeded scenario
// "single-buyer liquidity cap": a market opens with VL=100 coin and no real
// activity. Alice buys 1 coin of YES, then immediately tries to sell her
// entire position back.
//
//	Before buy:  Y = N = 100 coin (virtual only), pool = 0
//	Buy 1 coin (no fees): sharesOut = netIn * T / Y, in share units
//	After buy:   yes_supply = sharesOut, pool = 1 coin
//	Selling 100% of sharesOut prices against the post-sale curve, which
//	(with pool only 1 coin deep) quotes more than the pool holds — it must
//	revert InsufficientPoolBalance. max_sellable instead finds the largest
//	sell that fits the 1-coin pool, expected to land near 74% of her shares.
func TestScenarioSingleBuyerLiquidityCap(t *testing.T) {
	vl := mulShareScale(100)
	oneCoin := mulShareScale(1)

	c := mathx.CurveState{
		YesSupply:        mathx.Zero(),
		NoSupply:         mathx.Zero(),
		VirtualLiquidity: vl,
		PoolBalance:      mathx.Zero(),
	}

	sharesOut, netIn, err := c.BuyQuote(oneCoin, mathx.SideYes, 0, 0)
	if err != nil {
		t.Fatalf("BuyQuote error: %v", err)
	}
	if sharesOut.IsZero() {
		t.Fatalf("BuyQuote returned 0 shares for a 1-coin buy against a 100-coin VL pool")
	}

	after := mathx.CurveState{
		YesSupply:        sharesOut,
		NoSupply:         mathx.Zero(),
		VirtualLiquidity: vl,
		PoolBalance:      netIn,
	}

	fullSell, err := after.SellQuote(sharesOut, mathx.SideYes)
	if err != nil {
		t.Fatalf("SellQuote error: %v", err)
	}
	if !mathx.GreaterThan(fullSell, after.PoolBalance) {
		t.Fatalf("selling 100%% of shares should exceed the 1-coin pool: quoted %s, pool %s", fullSell, after.PoolBalance)
	}

	maxShares, bnbOut, err := after.MaxSellable(sharesOut, mathx.SideYes)
	if err != nil {
		t.Fatalf("MaxSellable error: %v", err)
	}
	if mathx.GreaterThan(bnbOut, after.PoolBalance) {
		t.Errorf("max_sellable proceeds %s exceed pool balance %s", bnbOut, after.PoolBalance)
	}

	// Expect roughly 74% of her shares sellable, per the scenario's seed figure.
	pct, err := mathx.MulDivFloor(maxShares, uint256.NewInt(100), sharesOut)
	if err != nil {
		t.Fatalf("MulDivFloor error: %v", err)
	}
	low, high := uint256.NewInt(60), uint256.NewInt(85)
	if mathx.LessThan(pct, low) || mathx.GreaterThan(pct, high) {
		t.Errorf("max_sellable = %s%% of shares, want roughly 74%% (60-85%% tolerance)", pct)
	}
}

// TestScenarioTwoSidedRoundTripFeeCost replicates "two-sided round-trip fee
// cost": Alice buys 1 coin of YES, Bob buys 1 coin of NO, then Alice sells
// all her YES shares. She must receive strictly less than what she paid —
// fees plus concave-pricing slippage both work against a same-state
// round trip — and the pool must still cover Bob's full potential payout.
func TestScenarioTwoSidedRoundTripFeeCost(t *testing.T) {
	oneCoin := mulShareScale(1)
	const platformFeeBps, creatorFeeBps = 200, 50 // 2% + 0.5%

	c := mathx.CurveState{
		YesSupply:        mathx.Zero(),
		NoSupply:         mathx.Zero(),
		VirtualLiquidity: mulShareScale(50),
		PoolBalance:      mathx.Zero(),
	}

	aliceShares, aliceNetIn, err := c.BuyQuote(oneCoin, mathx.SideYes, platformFeeBps, creatorFeeBps)
	if err != nil {
		t.Fatalf("Alice BuyQuote error: %v", err)
	}
	c.YesSupply = aliceShares
	c.PoolBalance = mathx.Add(c.PoolBalance, aliceNetIn)

	bobShares, bobNetIn, err := c.BuyQuote(oneCoin, mathx.SideNo, platformFeeBps, creatorFeeBps)
	if err != nil {
		t.Fatalf("Bob BuyQuote error: %v", err)
	}
	c.NoSupply = bobShares
	c.PoolBalance = mathx.Add(c.PoolBalance, bobNetIn)

	aliceProceeds, err := c.SellQuote(aliceShares, mathx.SideYes)
	if err != nil {
		t.Fatalf("Alice SellQuote error: %v", err)
	}
	if !mathx.LessThan(aliceProceeds, oneCoin) {
		t.Errorf("Alice's round-trip proceeds %s should be strictly less than her 1-coin stake", aliceProceeds)
	}

	// Pool must still cover Bob's payout if NO resolves true — his shares
	// redeem 1:1 against UnitPrice out of the pool.
	bobPotentialPayout, err := mathx.MulDivFloor(bobShares, mathx.UnitPrice, mathx.ShareScale)
	if err != nil {
		t.Fatalf("MulDivFloor error: %v", err)
	}
	poolAfterAliceExit := mathx.Sub(c.PoolBalance, aliceProceeds)
	if mathx.LessThan(poolAfterAliceExit, bobPotentialPayout) {
		t.Errorf("pool balance %s after Alice's exit is below Bob's potential payout %s", poolAfterAliceExit, bobPotentialPayout)
	}
}

func mulShareScale(units uint64) *uint256.Int {
	return mathx.Mul(uint256.NewInt(units), mathx.ShareScale)
}
