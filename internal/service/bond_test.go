package service

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/mathx"
)

// TestRequiredBondForFloor checks the bond floor wins when the dynamic
// pool-proportional bond would be smaller, the common case for small or
// freshly-created markets (spec §4.4).
func TestRequiredBondForFloor(t *testing.T) {
	m := &domain.Market{PoolBalance: mathx.NewU256(uint256.NewInt(1_000))}
	params := domain.Params{
		BondFloor:      mathx.NewU256(uint256.NewInt(50_000)),
		DynamicBondBps: 100, // 1% of a 1000 pool = 10, far below the floor
	}

	got, err := requiredBondFor(m, params)
	if err != nil {
		t.Fatalf("requiredBondFor error: %v", err)
	}
	if got.Cmp(params.BondFloor.Int) != 0 {
		t.Errorf("requiredBondFor = %s, want floor %s", got, params.BondFloor)
	}
}

// TestRequiredBondForDynamic checks the dynamic bond wins once the pool is
// large enough that its bps-proportional share exceeds the floor.
func TestRequiredBondForDynamic(t *testing.T) {
	m := &domain.Market{PoolBalance: mathx.NewU256(uint256.NewInt(10_000_000))}
	params := domain.Params{
		BondFloor:      mathx.NewU256(uint256.NewInt(50_000)),
		DynamicBondBps: 100, // 1% of 10,000,000 = 100,000
	}

	got, err := requiredBondFor(m, params)
	if err != nil {
		t.Fatalf("requiredBondFor error: %v", err)
	}
	want := uint256.NewInt(100_000)
	if got.Cmp(want) != 0 {
		t.Errorf("requiredBondFor = %s, want %s", got, want)
	}
}
