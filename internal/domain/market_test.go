package domain_test

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/mathx"
)

// TestSideWonRequiresResolvedStatus checks SideWon never reports a winner on
// a market that hasn't actually resolved, even if Outcome happens to be set
// to a matching value from a stale or pending proposal.
func TestSideWonRequiresResolvedStatus(t *testing.T) {
	m := &domain.Market{Status: domain.StatusProposed, Outcome: true}

	if m.SideWon(true) {
		t.Errorf("SideWon(true) = true for a non-Resolved market, want false")
	}

	m.Status = domain.StatusResolved
	if !m.SideWon(true) {
		t.Errorf("SideWon(true) = false for a Resolved market with Outcome=true, want true")
	}
	if m.SideWon(false) {
		t.Errorf("SideWon(false) = true for a Resolved market with Outcome=true, want false")
	}
}

// TestMarketCurveProjectsAMMFields checks Curve copies exactly the four
// fields mathx's pure functions operate on, with no extra transformation.
func TestMarketCurveProjectsAMMFields(t *testing.T) {
	m := &domain.Market{
		YesSupply:        mathx.NewU256(uint256.NewInt(111)),
		NoSupply:         mathx.NewU256(uint256.NewInt(222)),
		VirtualLiquidity: mathx.NewU256(uint256.NewInt(333)),
		PoolBalance:      mathx.NewU256(uint256.NewInt(444)),
	}

	c := m.Curve()
	if c.YesSupply.Cmp(m.YesSupply.Int) != 0 {
		t.Errorf("Curve().YesSupply = %s, want %s", c.YesSupply, m.YesSupply)
	}
	if c.NoSupply.Cmp(m.NoSupply.Int) != 0 {
		t.Errorf("Curve().NoSupply = %s, want %s", c.NoSupply, m.NoSupply)
	}
	if c.VirtualLiquidity.Cmp(m.VirtualLiquidity.Int) != 0 {
		t.Errorf("Curve().VirtualLiquidity = %s, want %s", c.VirtualLiquidity, m.VirtualLiquidity)
	}
	if c.PoolBalance.Cmp(m.PoolBalance.Int) != 0 {
		t.Errorf("Curve().PoolBalance = %s, want %s", c.PoolBalance, m.PoolBalance)
	}
}
