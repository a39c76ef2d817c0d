package mathx_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/streetconsensus/settlement/internal/mathx"
)

// TestPriceSumsToUnitPrice validates the constant-sum invariant
// P_yes + P_no == UnitPrice holds exactly, for both a balanced and a
// skewed pool, since P_no is derived by subtraction rather than
// recomputed independently.
func TestPriceSumsToUnitPrice(t *testing.T) {
	cases := []struct {
		name       string
		yesSupply  uint64
		noSupply   uint64
		virtualLiq uint64
	}{
		{"balanced", 1000, 1000, 500},
		{"yes-heavy", 9000, 1000, 500},
		{"no-heavy", 500, 8000, 200},
		{"zero-supply", 0, 0, 1000},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := mathx.CurveState{
				YesSupply:        uint256.NewInt(tc.yesSupply),
				NoSupply:         uint256.NewInt(tc.noSupply),
				VirtualLiquidity: uint256.NewInt(tc.virtualLiq),
				PoolBalance:      uint256.NewInt(1_000_000),
			}
			pYes, pNo, err := c.Price()
			if err != nil {
				t.Fatalf("Price() error: %v", err)
			}
			sum := mathx.Add(pYes, pNo)
			if sum.Cmp(mathx.UnitPrice) != 0 {
				t.Errorf("pYes+pNo = %s, want %s", sum, mathx.UnitPrice)
			}
		})
	}
}

// TestBuyQuotePeelsFees checks that BuyQuote's netIn reflects exactly
// (1 - totalFeeBps/10000) of bnbIn, and that sharesOut is zero only when
// netIn is zero.
func TestBuyQuotePeelsFees(t *testing.T) {
	c := mathx.CurveState{
		YesSupply:        uint256.NewInt(0),
		NoSupply:         uint256.NewInt(0),
		VirtualLiquidity: uint256.NewInt(1_000_000_000_000_000_000),
		PoolBalance:      uint256.NewInt(0),
	}
	bnbIn := uint256.NewInt(1_000_000_000_000_000_000) // 1 unit
	sharesOut, netIn, err := c.BuyQuote(bnbIn, mathx.SideYes, 200, 30) // 2% + 0.3%
	if err != nil {
		t.Fatalf("BuyQuote error: %v", err)
	}

	wantNetIn, err := mathx.MulDivFloor(bnbIn, uint256.NewInt(10000-230), mathx.BpsDenominator)
	if err != nil {
		t.Fatalf("MulDivFloor error: %v", err)
	}
	if netIn.Cmp(wantNetIn) != 0 {
		t.Errorf("netIn = %s, want %s", netIn, wantNetIn)
	}
	if sharesOut.IsZero() {
		t.Errorf("sharesOut should be > 0 for a non-trivial buy")
	}
}

// TestSellQuoteMonotone checks SellQuote is non-decreasing in sharesIn,
// the property MaxSellable's binary search depends on.
func TestSellQuoteMonotone(t *testing.T) {
	c := mathx.CurveState{
		YesSupply:        uint256.NewInt(100_000),
		NoSupply:         uint256.NewInt(50_000),
		VirtualLiquidity: uint256.NewInt(10_000),
		PoolBalance:      uint256.NewInt(1_000_000_000),
	}

	prev := mathx.Zero()
	for _, shares := range []uint64{0, 1000, 5000, 20000, 50000, 100000} {
		out, err := c.SellQuote(uint256.NewInt(shares), mathx.SideYes)
		if err != nil {
			t.Fatalf("SellQuote(%d) error: %v", shares, err)
		}
		if mathx.LessThan(out, prev) {
			t.Errorf("SellQuote not monotone: shares=%d out=%s < prev=%s", shares, out, prev)
		}
		prev = out
	}
}

// TestMaxSellableRespectsPoolBalance ensures the binary-searched result
// never quotes more than the pool actually holds.
func TestMaxSellableRespectsPoolBalance(t *testing.T) {
	c := mathx.CurveState{
		YesSupply:        uint256.NewInt(1_000_000),
		NoSupply:         uint256.NewInt(1_000_000),
		VirtualLiquidity: uint256.NewInt(100_000),
		PoolBalance:      uint256.NewInt(500), // tiny pool, forces the binary search path
	}
	userShares := uint256.NewInt(1_000_000)

	maxShares, bnbOut, err := c.MaxSellable(userShares, mathx.SideYes)
	if err != nil {
		t.Fatalf("MaxSellable error: %v", err)
	}
	if mathx.GreaterThan(bnbOut, c.PoolBalance) {
		t.Errorf("bnbOut = %s exceeds pool balance %s", bnbOut, c.PoolBalance)
	}
	if mathx.GreaterThan(maxShares, userShares) {
		t.Errorf("maxShares = %s exceeds userShares %s", maxShares, userShares)
	}

	// One unit further should have exceeded the pool (sanity on the search).
	if maxShares.Cmp(userShares) != 0 {
		over, err := c.SellQuote(mathx.Add(maxShares, mathx.FromUint64(1)), mathx.SideYes)
		if err != nil {
			t.Fatalf("SellQuote over error: %v", err)
		}
		if !mathx.GreaterThan(over, c.PoolBalance) {
			t.Errorf("maxShares+1 = %s should have exceeded pool balance, quoted %s", mathx.Add(maxShares, mathx.FromUint64(1)), over)
		}
	}
}

// TestMaxSellableZero confirms a zero-share holder can sell nothing.
func TestMaxSellableZero(t *testing.T) {
	c := mathx.CurveState{
		YesSupply:        uint256.NewInt(1000),
		NoSupply:         uint256.NewInt(1000),
		VirtualLiquidity: uint256.NewInt(1000),
		PoolBalance:      uint256.NewInt(1000),
	}
	maxShares, bnbOut, err := c.MaxSellable(mathx.Zero(), mathx.SideYes)
	if err != nil {
		t.Fatalf("MaxSellable error: %v", err)
	}
	if !maxShares.IsZero() || !bnbOut.IsZero() {
		t.Errorf("MaxSellable(0) = (%s, %s), want (0, 0)", maxShares, bnbOut)
	}
}
