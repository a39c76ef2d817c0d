package service_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/streetconsensus/settlement/internal/domain"
)

// TestConcurrentGovernanceConfirmIdempotent simulates N signers racing to
// confirm the same governance action, guarded the way GovernanceService
// guards it: a single mutex standing in for the row-level FOR UPDATE lock
// the repository takes around GetForUpdate+AddApproval. Only the first
// confirmation from each distinct signer should count, and a signer who
// fires twice must only be counted once (spec §4.6 one-signer-one-vote).
func TestConcurrentGovernanceConfirmIdempotent(t *testing.T) {
	const signers = 10
	action := &domain.GovernanceAction{Approvals: []string{}}
	var mu sync.Mutex
	var rejected int64

	var wg sync.WaitGroup
	for i := 0; i < signers; i++ {
		// Each signer fires twice concurrently, simulating a retried request.
		for attempt := 0; attempt < 2; attempt++ {
			wg.Add(1)
			go func(signer string) {
				defer wg.Done()
				mu.Lock()
				defer mu.Unlock()
				if action.HasApproved(signer) {
					atomic.AddInt64(&rejected, 1)
					return
				}
				action.Approvals = append(action.Approvals, signer)
			}(signerAddr(i))
		}
	}
	wg.Wait()

	if action.ApprovalCount() != signers {
		t.Errorf("ApprovalCount() = %d, want %d", action.ApprovalCount(), signers)
	}
	if rejected != signers {
		t.Errorf("rejected = %d, want %d (one duplicate confirm per signer)", rejected, signers)
	}
}

func signerAddr(i int) string {
	const hex = "0123456789abcdef"
	b := make([]byte, 4)
	for j := range b {
		b[j] = hex[(i+j)%len(hex)]
	}
	return "0xsigner" + string(b)
}

// TestConcurrentClaimIdempotent mirrors the teacher's exit-once guard,
// adapted to the settlement engine's claim path: exactly one of many
// concurrent callers may transition a position from unclaimed to claimed.
func TestConcurrentClaimIdempotent(t *testing.T) {
	const workers = 30
	pos := &domain.Position{}
	var mu sync.Mutex
	var wins, losses int64

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			if pos.Claimed {
				atomic.AddInt64(&losses, 1)
				return
			}
			pos.Claimed = true
			atomic.AddInt64(&wins, 1)
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Errorf("exactly 1 goroutine should have claimed, got %d", wins)
	}
	if losses != workers-1 {
		t.Errorf("expected %d rejected claims, got %d", workers-1, losses)
	}
}
