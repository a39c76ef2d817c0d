package domain

import (
	"time"

	"github.com/streetconsensus/settlement/internal/mathx"
)

// Non-configurable protocol constants, fixed by spec §3.
const (
	CreatorPriorityWindow = 600 * time.Second
	DisputeWindow         = 1800 * time.Second
	VotingWindow          = 3600 * time.Second
	EmergencyRefundDelay  = 86400 * time.Second
	ActionExpiry          = 3600 * time.Second

	// CreatorFeeBps is a hard constant per spec §3 (not governance-mutable).
	CreatorFeeBps uint64 = 50
)

// Parameter bounds, enforced by GovernanceService before any execute_action
// write lands (spec §8 "Governance safety").
const (
	MinPlatformFeeBps uint64 = 0
	MaxPlatformFeeBps uint64 = 500

	MinResolutionFeeBps uint64 = 0
	MaxResolutionFeeBps uint64 = 100

	MinDynamicBondBps uint64 = 50
	MaxDynamicBondBps uint64 = 500

	MinBondWinnerShareBps uint64 = 2000
	MaxBondWinnerShareBps uint64 = 8000
)

// BondFloor's governed range, spec §3: 0.01-0.1 coin, in wei.
var (
	MinBondFloor = mathx.NewU256(mathx.FromUint64(10_000_000_000_000_000))  // 0.01 coin
	MaxBondFloor = mathx.NewU256(mathx.FromUint64(100_000_000_000_000_000)) // 0.1 coin
)

// Params is the mutable global parameter set, changed only via
// GovernanceService.ExecuteAction (spec §4.6).
type Params struct {
	PlatformFeeBps   uint64 // 0-500
	ResolutionFeeBps uint64 // 0-100
	BondFloor        mathx.U256
	DynamicBondBps   uint64 // 50-500
	BondWinnerShareBps uint64 // 2000-8000
	MinBet           mathx.U256
	Paused           bool
	Treasury         string
}

// HeatLevelVL maps a HeatLevel preset to its fixed virtual liquidity, scaled
// by mathx.ShareScale. Larger VL = colder market, per the GLOSSARY.
var HeatLevelVL = map[HeatLevel]uint64{
	HeatCold:   500,
	HeatNormal: 100,
	HeatHot:    20,
}

// DefaultParams returns the engine's out-of-the-box parameter set.
func DefaultParams() Params {
	return Params{
		PlatformFeeBps:     200, // 2%
		ResolutionFeeBps:   30,  // 0.3%, matches scenario 3 in spec §8
		BondFloor:          mathx.NewU256(mathx.FromUint64(10_000_000_000_000_000)), // 0.01 coin
		DynamicBondBps:     200, // 2% of pool
		BondWinnerShareBps: 5000, // 50%, see DESIGN.md open-question pin
		MinBet:             mathx.NewU256(mathx.FromUint64(1_000_000_000_000_000)), // 0.001 coin
		Paused:             false,
		Treasury:           "",
	}
}
