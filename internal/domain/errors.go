package domain

import "errors"

// Sentinel errors, grouped by the error kinds in spec §7. Handlers map these
// kinds to HTTP status codes via the IsXxx predicates below, the same shape
// the teacher uses for IsNotFound/IsConflict/IsAuthError.

// Authorization errors: caller lacks the right to perform the action.
var (
	ErrNotCreatorInWindow = errors.New("caller must be the market creator during the priority window")
	ErrSelfDispute        = errors.New("proposer cannot dispute their own proposal")
	ErrNotCreator         = errors.New("caller is not this market's creator")
	ErrNotSigner          = errors.New("caller is not a governance signer")
)

// Timing errors: a time window is open when it must be closed, or vice versa.
var (
	ErrNotExpired    = errors.New("market has not yet expired")
	ErrWindowClosed  = errors.New("action window has closed")
	ErrWindowOpen    = errors.New("action window is still open")
	ErrActionExpired = errors.New("governance action has expired")
)

// State errors: the entity is not in the status the operation requires, or
// the operation has already been performed once (idempotence guards).
var (
	ErrMarketNotFound  = errors.New("market not found")
	ErrExpired         = errors.New("market trading window has closed")
	ErrResolved        = errors.New("market is already resolved")
	ErrNotProposed     = errors.New("market has no pending proposal")
	ErrNotDisputed     = errors.New("market is not in a disputed state")
	ErrNotResolved     = errors.New("market is not resolved")
	ErrAlreadyVoted    = errors.New("caller has already voted on this market")
	ErrAlreadyClaimed  = errors.New("position already claimed")
	ErrAlreadyRefunded = errors.New("position already refunded")
	ErrAlreadyExecuted = errors.New("governance action already executed")
	ErrAlreadyResolved = errors.New("market already has a recorded outcome")
	ErrNotEligible     = errors.New("market is not eligible for emergency refund")
	ErrQuorumNotMet    = errors.New("governance action has not reached quorum")
)

// Economic errors: the trade or bond does not meet the protocol's financial
// preconditions.
var (
	ErrBelowMinBet             = errors.New("amount is below the minimum bet")
	ErrSlippageExceeded        = errors.New("trade would exceed the caller's slippage tolerance")
	ErrInsufficientBond        = errors.New("bond value is below the required amount")
	ErrInsufficientPoolBalance = errors.New("sell would require more than the pool holds")
	ErrNoShares                = errors.New("caller holds no shares in this market")
	ErrNoWinningShares         = errors.New("caller holds no shares on the winning side")
	ErrZeroBalance             = errors.New("ledger balance is zero")
)

// Input errors: malformed or out-of-range request data.
var (
	ErrInvalidExpiry  = errors.New("expiry must be in the future")
	ErrStringTooLong  = errors.New("field exceeds its maximum length")
	ErrOutOfRange     = errors.New("parameter value is outside its allowed range")
	ErrInvalidAddress = errors.New("address is empty or malformed")
)

// Solvency guard errors: the engine refuses a transition that would leave an
// un-resolvable or unsafe market state.
var (
	ErrNoActivity     = errors.New("market has no trading activity to resolve")
	ErrOneSidedMarket = errors.New("market has activity on only one side")
)

// External errors: the final interaction step of a transition failed.
var (
	ErrTransferFailed = errors.New("ledger transfer failed")
)

// Engine-wide.
var ErrPaused = errors.New("engine is paused")

// Ambient auth errors: these sit outside the protocol's own error-kind
// taxonomy above (spec §7 only classifies settlement-engine errors) since
// they belong to the login/JWT layer the engine is mounted behind.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountInactive    = errors.New("account is deactivated")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrAccountNotFound    = errors.New("account not found")
)

var (
	authorizationErrors = []error{ErrNotCreatorInWindow, ErrSelfDispute, ErrNotCreator, ErrNotSigner}
	timingErrors        = []error{ErrNotExpired, ErrWindowClosed, ErrWindowOpen, ErrActionExpired}
	stateErrors         = []error{
		ErrMarketNotFound, ErrExpired, ErrResolved, ErrNotProposed, ErrNotDisputed,
		ErrNotResolved, ErrAlreadyVoted, ErrAlreadyClaimed, ErrAlreadyRefunded,
		ErrAlreadyExecuted, ErrAlreadyResolved, ErrNotEligible, ErrQuorumNotMet,
	}
	economicErrors = []error{
		ErrBelowMinBet, ErrSlippageExceeded, ErrInsufficientBond,
		ErrInsufficientPoolBalance, ErrNoShares, ErrNoWinningShares, ErrZeroBalance,
	}
	inputErrors         = []error{ErrInvalidExpiry, ErrStringTooLong, ErrOutOfRange, ErrInvalidAddress}
	solvencyGuardErrors = []error{ErrNoActivity, ErrOneSidedMarket}
	externalErrors      = []error{ErrTransferFailed}
)

func matchesAny(err error, set []error) bool {
	for _, candidate := range set {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

// IsAuthorization reports whether err is an authorization-kind error.
func IsAuthorization(err error) bool { return matchesAny(err, authorizationErrors) }

// IsTiming reports whether err is a timing-kind error.
func IsTiming(err error) bool { return matchesAny(err, timingErrors) }

// IsState reports whether err is a state-kind error.
func IsState(err error) bool { return matchesAny(err, stateErrors) }

// IsEconomic reports whether err is an economic-kind error.
func IsEconomic(err error) bool { return matchesAny(err, economicErrors) }

// IsInput reports whether err is an input-kind error.
func IsInput(err error) bool { return matchesAny(err, inputErrors) }

// IsSolvencyGuard reports whether err is a solvency-guard-kind error.
func IsSolvencyGuard(err error) bool { return matchesAny(err, solvencyGuardErrors) }

// IsExternal reports whether err is an external-kind error.
func IsExternal(err error) bool { return matchesAny(err, externalErrors) }
