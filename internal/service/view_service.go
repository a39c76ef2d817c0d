package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/mathx"
	"github.com/streetconsensus/settlement/internal/repository"
)

// ViewService implements C7's pure, storage-read-only views (spec §4.7):
// quote_buy, quote_sell, max_sellable, required_bond, market_status and
// can_emergency_refund, plus the supplemented TreasuryReport.
type ViewService struct {
	db         *sqlx.DB
	marketRepo *repository.MarketRepository
	params     *paramsCache
}

// NewViewService constructs a ViewService.
func NewViewService(db *sqlx.DB, marketRepo *repository.MarketRepository, paramsRepo *repository.ParamsRepository) *ViewService {
	return &ViewService{db: db, marketRepo: marketRepo, params: newParamsCache(paramsRepo)}
}

// QuoteResult mirrors BuyQuote/SellQuote's return shape as strings, for API
// responses that must preserve exact u256 precision.
type QuoteResult struct {
	SharesOut string `json:"shares_out,omitempty"`
	BnbNet    string `json:"bnb_net,omitempty"`
	BnbGross  string `json:"bnb_gross,omitempty"`
}

// QuoteBuy implements quote_buy: a pure projection of BuyQuote against the
// market's current on-chain state, charging the live platform/creator fees.
func (v *ViewService) QuoteBuy(ctx context.Context, marketID uint64, side mathx.Side, bnbIn mathx.U256) (QuoteResult, error) {
	m, err := v.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return QuoteResult{}, err
	}
	params, err := v.params.Get(ctx)
	if err != nil {
		return QuoteResult{}, err
	}
	sharesOut, netIn, err := m.Curve().BuyQuote(bnbIn.Int, side, params.PlatformFeeBps, domain.CreatorFeeBps)
	if err != nil {
		return QuoteResult{}, err
	}
	return QuoteResult{SharesOut: sharesOut.Dec(), BnbNet: netIn.Dec()}, nil
}

// QuoteSell implements quote_sell.
func (v *ViewService) QuoteSell(ctx context.Context, marketID uint64, side mathx.Side, sharesIn mathx.U256) (QuoteResult, error) {
	m, err := v.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return QuoteResult{}, err
	}
	bnbGross, err := m.Curve().SellQuote(sharesIn.Int, side)
	if err != nil {
		return QuoteResult{}, err
	}
	return QuoteResult{BnbGross: bnbGross.Dec()}, nil
}

// MaxSellableResult bundles max_sellable's two return values.
type MaxSellableResult struct {
	MaxShares string `json:"max_shares"`
	BnbOut    string `json:"bnb_out"`
}

// MaxSellable implements max_sellable against a caller's current holdings.
func (v *ViewService) MaxSellable(ctx context.Context, marketID uint64, side mathx.Side, userShares mathx.U256) (MaxSellableResult, error) {
	m, err := v.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return MaxSellableResult{}, err
	}
	maxShares, bnbOut, err := m.Curve().MaxSellable(userShares.Int, side)
	if err != nil {
		return MaxSellableResult{}, err
	}
	return MaxSellableResult{MaxShares: maxShares.Dec(), BnbOut: bnbOut.Dec()}, nil
}

// RequiredBond implements required_bond: max(bond_floor, pool_balance*dynamic_bond_bps/10000).
func (v *ViewService) RequiredBond(ctx context.Context, marketID uint64) (mathx.U256, error) {
	m, err := v.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return mathx.U256{}, err
	}
	params, err := v.params.Get(ctx)
	if err != nil {
		return mathx.U256{}, err
	}
	bond, err := requiredBondFor(m, params)
	if err != nil {
		return mathx.U256{}, err
	}
	return mathx.NewU256(bond), nil
}

// MarketStatus implements market_status: the market's FSM status as it
// currently reads from storage, without side effects — a market whose
// expiry has passed is reported as Expired here even though the stored row
// still says Active (nothing writes Expired to the row), matching how
// finalize_market itself treats that window (spec §4.4 transition 1).
func (v *ViewService) MarketStatus(ctx context.Context, marketID uint64) (domain.MarketStatus, error) {
	m, err := v.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return "", err
	}
	if m.Status == domain.StatusActive && !time.Now().Before(m.ExpiryTS) {
		return domain.StatusExpired, nil
	}
	return m.Status, nil
}

// CanEmergencyRefund implements can_emergency_refund: reports whether the
// market is (or will become) refundable, and how many seconds remain until
// it would — 0 once eligible now. Mirrors transition 7's full condition
// (spec §4.4): elapsed time is mandatory, then at least one of no active
// proposer / paused / proposed-winning-side empty must also hold, the same
// three-way clause finalizeProposed/finalizeEmergency check before actually
// releasing a market to Refundable.
func (v *ViewService) CanEmergencyRefund(ctx context.Context, marketID uint64) (bool, int64, error) {
	m, err := v.marketRepo.GetByID(ctx, marketID)
	if err != nil {
		return false, 0, err
	}
	if m.Status == domain.StatusRefundable {
		return true, 0, nil
	}
	if m.Status == domain.StatusResolved {
		return false, 0, nil
	}
	deadline := m.ExpiryTS.Add(domain.EmergencyRefundDelay)
	remaining := time.Until(deadline)
	if remaining > 0 {
		return false, int64(remaining.Seconds()), nil
	}

	switch m.Status {
	case domain.StatusActive, domain.StatusExpired:
		// No proposer exists yet: finalizeEmergency refunds on elapsed time
		// alone, no further condition to check.
		return true, 0, nil
	case domain.StatusProposed:
		params, err := v.params.Get(ctx)
		if err != nil {
			return false, 0, err
		}
		winningSideEmpty := (m.ProposedOutcome && m.YesSupply.Int.IsZero()) || (!m.ProposedOutcome && m.NoSupply.Int.IsZero())
		if params.Paused || winningSideEmpty {
			return true, 0, nil
		}
		return false, 0, nil
	default:
		// Disputed: finalizeDisputed always resolves through the vote
		// outcome or a tie once the voting window closes, with no emergency
		// shortcut — reporting true here would contradict what
		// finalize_market actually does.
		return false, 0, nil
	}
}

// TreasuryReport is the supplemented finance view, grounded on the teacher's
// FinanceReport/GetFinanceReport: an aggregate snapshot of pool balances,
// accrued creator fees and market counts by status, with amounts as exact
// decimal strings. Platform and resolution fees credited to the treasury
// ledger are not included.
type TreasuryReport struct {
	TotalPoolBalance      string `json:"total_pool_balance" db:"total_pool_balance"`
	TotalCreatorFees      string `json:"total_creator_fees_accrued" db:"total_creator_fees_accrued"`
	MarketCount           int64  `json:"market_count" db:"market_count"`
	ActiveMarketCount     int64  `json:"active_market_count" db:"active_market_count"`
	ResolvedMarketCount   int64  `json:"resolved_market_count" db:"resolved_market_count"`
	RefundableMarketCount int64  `json:"refundable_market_count" db:"refundable_market_count"`
}

// TreasuryReport aggregates pool balances and accrued creator fees across
// every market, the settlement-engine analogue of the teacher's
// finance-report backoffice endpoint.
func (v *ViewService) TreasuryReport(ctx context.Context) (TreasuryReport, error) {
	var r TreasuryReport
	err := v.db.GetContext(ctx, &r, `
		SELECT
			COALESCE(SUM(pool_balance::numeric), 0)::text AS total_pool_balance,
			COALESCE(SUM(creator_fees_accrued::numeric), 0)::text AS total_creator_fees_accrued,
			COUNT(*) AS market_count,
			COUNT(*) FILTER (WHERE status = 'active') AS active_market_count,
			COUNT(*) FILTER (WHERE status = 'resolved') AS resolved_market_count,
			COUNT(*) FILTER (WHERE status = 'refundable') AS refundable_market_count
		FROM markets`)
	if err != nil {
		return TreasuryReport{}, fmt.Errorf("view_service.TreasuryReport: %w", err)
	}
	return r, nil
}
