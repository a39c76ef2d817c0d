package domain

import (
	"time"

	"github.com/google/uuid"
)

// ActionKind enumerates the governance action kinds in spec §4.6.
type ActionKind string

const (
	ActionSetPlatformFeeBps   ActionKind = "set_platform_fee_bps"
	ActionSetResolutionFeeBps ActionKind = "set_resolution_fee_bps"
	ActionSetBondFloor        ActionKind = "set_bond_floor"
	ActionSetDynamicBondBps   ActionKind = "set_dynamic_bond_bps"
	ActionSetBondWinnerShare  ActionKind = "set_bond_winner_share_bps"
	ActionSetMinBet           ActionKind = "set_min_bet"
	ActionSetTreasury         ActionKind = "set_treasury"
	ActionPause               ActionKind = "pause"
	ActionUnpause             ActionKind = "unpause"
)

// GovernanceAction is a queued, M-of-N-gated parameter change or pause
// toggle (spec §3/§4.6). IDs are UUIDs: governance actions are transient and
// never need the monotone ordering market IDs require.
type GovernanceAction struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	Kind       ActionKind `db:"kind" json:"kind"`
	Args       string     `db:"args" json:"args"` // JSON-encoded kind-specific payload
	Proposer   string     `db:"proposer" json:"proposer"`
	Approvals  []string   `db:"-" json:"approvals"` // signer addresses that confirmed
	ExpiryTS   time.Time  `db:"expiry_ts" json:"expiry_ts"`
	Executed   bool       `db:"executed" json:"executed"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// ApprovalCount returns how many distinct signers have confirmed.
func (a *GovernanceAction) ApprovalCount() int { return len(a.Approvals) }

// HasApproved reports whether signer already confirmed this action.
func (a *GovernanceAction) HasApproved(signer string) bool {
	for _, s := range a.Approvals {
		if s == signer {
			return true
		}
	}
	return false
}

// IsExpired reports whether now is at or past the action's expiry.
func (a *GovernanceAction) IsExpired(now time.Time) bool {
	return !now.Before(a.ExpiryTS)
}
