package domain_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/streetconsensus/settlement/internal/domain"
)

// TestGovernanceActionHasApproved checks the linear membership scan used to
// reject a signer's second confirmation of the same action (spec §4.6's
// one-signer-one-vote rule).
func TestGovernanceActionHasApproved(t *testing.T) {
	a := &domain.GovernanceAction{
		Approvals: []string{"0xaaa", "0xbbb"},
	}

	if !a.HasApproved("0xaaa") {
		t.Errorf("HasApproved(0xaaa) = false, want true")
	}
	if a.HasApproved("0xccc") {
		t.Errorf("HasApproved(0xccc) = true, want false")
	}
	if a.ApprovalCount() != 2 {
		t.Errorf("ApprovalCount() = %d, want 2", a.ApprovalCount())
	}
}

// TestGovernanceActionIsExpired checks the expiry boundary is inclusive:
// an action expires the instant now reaches its ExpiryTS, not strictly after.
func TestGovernanceActionIsExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		expiry  time.Time
		wantExp bool
	}{
		{"future", now.Add(time.Hour), false},
		{"exact boundary", now, true},
		{"past", now.Add(-time.Hour), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := &domain.GovernanceAction{ID: uuid.New(), ExpiryTS: tc.expiry}
			if got := a.IsExpired(now); got != tc.wantExp {
				t.Errorf("IsExpired() = %v, want %v", got, tc.wantExp)
			}
		})
	}
}
