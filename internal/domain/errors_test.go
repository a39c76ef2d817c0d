package domain_test

import (
	"fmt"
	"testing"

	"github.com/streetconsensus/settlement/internal/domain"
)

// predicates lists every IsXxx error-kind predicate alongside a name used
// only for test failure messages.
var predicates = map[string]func(error) bool{
	"authorization": domain.IsAuthorization,
	"timing":        domain.IsTiming,
	"state":         domain.IsState,
	"economic":      domain.IsEconomic,
	"input":         domain.IsInput,
	"solvency":      domain.IsSolvencyGuard,
	"external":      domain.IsExternal,
}

// TestErrorKindPredicates checks that each sentinel error is classified by
// exactly the one IsXxx predicate matching its kind, and rejected by every
// other predicate, mirroring the kind-to-status mapping in the HTTP layer.
func TestErrorKindPredicates(t *testing.T) {
	cases := []struct {
		err  error
		kind string
	}{
		{domain.ErrNotCreatorInWindow, "authorization"},
		{domain.ErrSelfDispute, "authorization"},
		{domain.ErrNotCreator, "authorization"},
		{domain.ErrNotSigner, "authorization"},

		{domain.ErrNotExpired, "timing"},
		{domain.ErrWindowClosed, "timing"},
		{domain.ErrWindowOpen, "timing"},
		{domain.ErrActionExpired, "timing"},

		{domain.ErrMarketNotFound, "state"},
		{domain.ErrExpired, "state"},
		{domain.ErrResolved, "state"},
		{domain.ErrNotProposed, "state"},
		{domain.ErrNotDisputed, "state"},
		{domain.ErrNotResolved, "state"},
		{domain.ErrAlreadyVoted, "state"},
		{domain.ErrAlreadyClaimed, "state"},
		{domain.ErrAlreadyRefunded, "state"},
		{domain.ErrAlreadyExecuted, "state"},
		{domain.ErrAlreadyResolved, "state"},
		{domain.ErrNotEligible, "state"},
		{domain.ErrQuorumNotMet, "state"},

		{domain.ErrBelowMinBet, "economic"},
		{domain.ErrSlippageExceeded, "economic"},
		{domain.ErrInsufficientBond, "economic"},
		{domain.ErrInsufficientPoolBalance, "economic"},
		{domain.ErrNoShares, "economic"},
		{domain.ErrNoWinningShares, "economic"},
		{domain.ErrZeroBalance, "economic"},

		{domain.ErrInvalidExpiry, "input"},
		{domain.ErrStringTooLong, "input"},
		{domain.ErrOutOfRange, "input"},
		{domain.ErrInvalidAddress, "input"},

		{domain.ErrNoActivity, "solvency"},
		{domain.ErrOneSidedMarket, "solvency"},

		{domain.ErrTransferFailed, "external"},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			for name, is := range predicates {
				want := name == tc.kind
				if got := is(tc.err); got != want {
					t.Errorf("%s(%v) = %v, want %v", name, tc.err, got, want)
				}
			}
		})
	}
}

// TestErrorKindPredicatesWrappedError checks the predicates see through
// fmt.Errorf's %w wrapping via errors.Is, the way the service layer returns
// wrapped sentinels up to the handler.
func TestErrorKindPredicatesWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("propose outcome: %w", domain.ErrWindowClosed)
	if !domain.IsTiming(wrapped) {
		t.Errorf("IsTiming(%v) = false, want true for a wrapped ErrWindowClosed", wrapped)
	}
	if domain.IsState(wrapped) {
		t.Errorf("IsState(%v) = true, want false", wrapped)
	}
}

// TestErrorKindPredicatesRejectAmbientAndUnclassified checks that errors
// outside the protocol's own taxonomy - the ambient auth sentinels, the
// engine-wide pause sentinel, and an arbitrary unrelated error - match none
// of the kind predicates, since the HTTP layer maps those separately.
func TestErrorKindPredicatesRejectAmbientAndUnclassified(t *testing.T) {
	others := []error{
		domain.ErrPaused,
		domain.ErrInvalidCredentials,
		domain.ErrAccountInactive,
		domain.ErrTokenInvalid,
		domain.ErrAccountNotFound,
		fmt.Errorf("some unrelated failure"),
	}

	for _, err := range others {
		for name, is := range predicates {
			if is(err) {
				t.Errorf("%s(%v) = true, want false", name, err)
			}
		}
	}
}
