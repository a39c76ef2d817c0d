// Package scheduler manages the two background goroutines that keep
// WS clients live without ever gating or mutating settlement state:
//  1. sweepLoop          – surfaces markets the clock alone has moved past
//     Active, and flags markets that have become emergency-refund
//     eligible, purely by reading timestamps.
//  2. eventBroadcastLoop – tails the committed event log and republishes
//     each row, replacing the old priceBroadcastLoop.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/events"
	"github.com/streetconsensus/settlement/internal/repository"
)

// ──────────────────────────────────────────────────────────────────────────────
// WsHub interface — minimally required from the Hub
// ──────────────────────────────────────────────────────────────────────────────

// WsHub defines the broadcast operation the Scheduler needs from the
// WebSocket hub. Declared here so the scheduler package does not import
// the ws/hub.go implementation and cause a circular dependency.
type WsHub interface {
	BroadcastEvent(kind, payload string)
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

// Scheduler wires together the repositories and runs the two background
// goroutines. Call Start(ctx) once from main(); cancel the context to shut
// it down gracefully. Neither loop mutates FSM state: both are read-only
// notifiers over state the clock, or a prior committed transaction, already
// made true.
type Scheduler struct {
	marketRepo  *repository.MarketRepository
	eventsStore *events.Store
	hub         WsHub
	log         *slog.Logger

	lastEventID uint64
}

// NewScheduler creates a Scheduler.
func NewScheduler(
	marketRepo *repository.MarketRepository,
	eventsStore *events.Store,
	hub WsHub,
	log *slog.Logger,
) *Scheduler {
	return &Scheduler{
		marketRepo:  marketRepo,
		eventsStore: eventsStore,
		hub:         hub,
		log:         log,
	}
}

// Start launches the two background goroutines. It returns immediately;
// both loops run until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	go s.sweepLoop(ctx)
	go s.eventBroadcastLoop(ctx)
	s.log.Info("scheduler started")
}

// ──────────────────────────────────────────────────────────────────────────────
// sweepLoop
// ──────────────────────────────────────────────────────────────────────────────

const (
	sweepInterval = 10 * time.Second

	expiredNoticeKind           = "MarketExpiredNotice"
	emergencyRefundEligibleKind = "EmergencyRefundEligible"
)

// sweepLoop polls for Active markets whose expiry the clock has already
// passed — the Active→Expired transition is pure clock arithmetic, it
// needs no transaction to become true — and for markets that have sat
// past expiry long enough to qualify for emergency_refund. Both checks
// only broadcast a notice; nothing here calls into the FSM.
func (s *Scheduler) sweepLoop(ctx context.Context) {
	defer s.recoverAndLog("sweepLoop")

	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("sweepLoop: shutting down")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	now := time.Now().UTC()

	markets, err := s.marketRepo.GetExpiredActive(ctx, now)
	if err != nil {
		s.log.Error("sweepLoop: GetExpiredActive", "err", err)
		return
	}
	for _, m := range markets {
		s.notify(expiredNoticeKind, m.ID)

		deadline := m.ExpiryTS.Add(domain.EmergencyRefundDelay)
		if !now.Before(deadline) {
			s.notify(emergencyRefundEligibleKind, m.ID)
		}
	}
}

func (s *Scheduler) notify(kind string, marketID uint64) {
	if s.hub == nil {
		return
	}
	s.hub.BroadcastEvent(kind, fmt.Sprintf(`{"market_id":%d}`, marketID))
}

// ──────────────────────────────────────────────────────────────────────────────
// eventBroadcastLoop
// ──────────────────────────────────────────────────────────────────────────────

const eventPollInterval = 1 * time.Second
const eventBatchSize = 200

// eventBroadcastLoop tails newly committed internal/events rows in commit
// order and republishes each to the WS hub. Services already publish
// in-process for low request-path latency; this loop is the durable,
// replay-safe source of truth that survives a hub restart or a dropped
// in-process publish.
func (s *Scheduler) eventBroadcastLoop(ctx context.Context) {
	defer s.recoverAndLog("eventBroadcastLoop")

	ticker := time.NewTicker(eventPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("eventBroadcastLoop: shutting down")
			return
		case <-ticker.C:
			s.tailEvents(ctx)
		}
	}
}

func (s *Scheduler) tailEvents(ctx context.Context) {
	rows, err := s.eventsStore.Since(ctx, s.lastEventID, eventBatchSize)
	if err != nil {
		s.log.Error("eventBroadcastLoop: Since", "err", err)
		return
	}
	for _, ev := range rows {
		if s.hub != nil {
			s.hub.BroadcastEvent(string(ev.Kind), ev.Payload)
		}
		s.lastEventID = ev.ID
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Panic recovery
// ──────────────────────────────────────────────────────────────────────────────

// recoverAndLog is deferred inside each goroutine so a panic in one loop
// is logged rather than taking down the process; the other loop keeps running.
func (s *Scheduler) recoverAndLog(loop string) {
	if r := recover(); r != nil {
		s.log.Error("panic recovered in scheduler loop", "loop", loop, "panic", r)
	}
}
