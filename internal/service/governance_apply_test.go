package service

import (
	"testing"

	"github.com/streetconsensus/settlement/internal/domain"
)

func actionWithArgs(kind domain.ActionKind, args string) *domain.GovernanceAction {
	return &domain.GovernanceAction{Kind: kind, Args: args}
}

// TestApplyGovernanceActionBondFloorBounds checks set_bond_floor is rejected
// outside the governed 0.01-0.1 coin range (spec §3/§8 "governance safety"),
// the gap a bond floor with no declared bounds used to leave open.
func TestApplyGovernanceActionBondFloorBounds(t *testing.T) {
	cases := []struct {
		name    string
		amount  string
		wantErr bool
	}{
		{"below floor", "9999999999999999", true},
		{"at floor", domain.MinBondFloor.Int.Dec(), false},
		{"at ceiling", domain.MaxBondFloor.Int.Dec(), false},
		{"above ceiling", "100000000000000001", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := domain.DefaultParams()
			a := actionWithArgs(domain.ActionSetBondFloor, `{"amount":"`+tc.amount+`"}`)
			err := applyGovernanceAction(&params, a)
			if tc.wantErr && err != domain.ErrOutOfRange {
				t.Fatalf("amount %s: got err %v, want ErrOutOfRange", tc.amount, err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("amount %s: unexpected error %v", tc.amount, err)
			}
		})
	}
}

// TestApplyGovernanceActionPlatformFeeBounds exercises an existing bps
// bounds check for contrast with the amount-based one above.
func TestApplyGovernanceActionPlatformFeeBounds(t *testing.T) {
	params := domain.DefaultParams()
	a := actionWithArgs(domain.ActionSetPlatformFeeBps, `{"bps":501}`)
	if err := applyGovernanceAction(&params, a); err != domain.ErrOutOfRange {
		t.Fatalf("got err %v, want ErrOutOfRange", err)
	}
	a = actionWithArgs(domain.ActionSetPlatformFeeBps, `{"bps":300}`)
	if err := applyGovernanceAction(&params, a); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if params.PlatformFeeBps != 300 {
		t.Errorf("PlatformFeeBps = %d, want 300", params.PlatformFeeBps)
	}
}
