package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/streetconsensus/settlement/internal/domain"
	"github.com/streetconsensus/settlement/internal/events"
	"github.com/streetconsensus/settlement/internal/mathx"
	"github.com/streetconsensus/settlement/internal/repository"
)

// maxStringLen bounds the opaque text fields on a market, per spec §6 StringTooLong.
const maxStringLen = 2048

// Broadcaster is implemented by the WS hub; declared here (not imported from
// internal/ws) to avoid an import cycle, the same pattern the teacher uses
// for its Refunder/Rebalancer/Broadcaster interfaces.
type Broadcaster interface {
	BroadcastEvent(kind, payload string)
}

// MarketService implements C2 (market store) and C3 (AMM engine): market
// creation and the buy/sell contracts of spec §4.2/§4.3.
type MarketService struct {
	db          *sqlx.DB
	marketRepo  *repository.MarketRepository
	positionRepo *repository.PositionRepository
	ledgerRepo  *repository.LedgerRepository
	params      *paramsCache
	log         *slog.Logger
	broadcaster Broadcaster
}

// NewMarketService constructs a MarketService.
func NewMarketService(
	db *sqlx.DB,
	marketRepo *repository.MarketRepository,
	positionRepo *repository.PositionRepository,
	ledgerRepo *repository.LedgerRepository,
	paramsRepo *repository.ParamsRepository,
	log *slog.Logger,
) *MarketService {
	return &MarketService{
		db:           db,
		marketRepo:   marketRepo,
		positionRepo: positionRepo,
		ledgerRepo:   ledgerRepo,
		params:       newParamsCache(paramsRepo),
		log:          log,
	}
}

// SetBroadcaster wires the WS hub after construction, breaking the
// service<->ws circular dependency exactly as the teacher wires Hub into
// BetService post-construction in main().
func (s *MarketService) SetBroadcaster(b Broadcaster) { s.broadcaster = b }

// CreateMarketInput bundles create_market's string/config inputs.
type CreateMarketInput struct {
	Creator  string
	Question string
	Evidence string
	Rules    string
	ImageURL string
	ExpiryTS time.Time
	Heat     domain.HeatLevel
}

func validateCreateInput(in CreateMarketInput, now time.Time) error {
	if !in.ExpiryTS.After(now) {
		return domain.ErrInvalidExpiry
	}
	for _, s := range []string{in.Question, in.Evidence, in.Rules, in.ImageURL} {
		if len(s) > maxStringLen {
			return domain.ErrStringTooLong
		}
	}
	if in.Address() == "" {
		return domain.ErrInvalidAddress
	}
	return nil
}

// Address exists so validateCreateInput can treat Creator uniformly with
// other address fields without a special case.
func (in CreateMarketInput) Address() string { return in.Creator }

// CreateMarket implements create_market (spec §6): reject while paused, then
// reject invalid expiry or oversized strings; VL is chosen from the
// heat-level table. Emits MarketCreated.
func (s *MarketService) CreateMarket(ctx context.Context, in CreateMarketInput) (*domain.Market, error) {
	now := time.Now()
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params.Paused {
		return nil, domain.ErrPaused
	}
	if err := validateCreateInput(in, now); err != nil {
		return nil, err
	}

	vl, ok := domain.HeatLevelVL[in.Heat]
	if !ok {
		return nil, domain.ErrOutOfRange
	}

	m := &domain.Market{
		Creator:            in.Creator,
		Question:           in.Question,
		Evidence:            in.Evidence,
		Rules:               in.Rules,
		ImageURL:            in.ImageURL,
		ExpiryTS:            in.ExpiryTS,
		Heat:                in.Heat,
		VirtualLiquidity:    mathx.NewU256(mathx.Mul(mathx.FromUint64(vl), mathx.ShareScale)),
		YesSupply:           mathx.ZeroU256(),
		NoSupply:            mathx.ZeroU256(),
		PoolBalance:         mathx.ZeroU256(),
		Status:              domain.StatusActive,
		ProposerVotes:       mathx.ZeroU256(),
		DisputerVotes:       mathx.ZeroU256(),
		CreatorFeesAccrued:  mathx.ZeroU256(),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := s.marketRepo.Create(ctx, m); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket begin: %w", err)
	}
	defer tx.Rollback()
	if err := events.Emit(ctx, tx, events.MarketCreated, m.ID, in.Creator, map[string]any{
		"question": m.Question, "expiry_ts": m.ExpiryTS, "heat": m.Heat,
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_service.CreateMarket commit: %w", err)
	}

	s.log.Info("market created", "market_id", m.ID, "creator", in.Creator, "heat", in.Heat)
	s.publish(events.MarketCreated, m.ID)
	return m, nil
}

// CreateMarketAndBuy implements create_market_and_buy (spec §4.2): creates
// the market and executes the caller's first buy in the same transaction,
// so no other trade can be interleaved between creation and that first
// trade — the atomicity is what prevents front-running it.
func (s *MarketService) CreateMarketAndBuy(ctx context.Context, in CreateMarketInput, side mathx.Side, bnbIn, minSharesOut mathx.U256) (*domain.Market, *domain.Position, error) {
	now := time.Now()
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	if params.Paused {
		return nil, nil, domain.ErrPaused
	}
	if err := validateCreateInput(in, now); err != nil {
		return nil, nil, err
	}
	if mathx.LessThan(bnbIn.Int, params.MinBet.Int) {
		return nil, nil, domain.ErrBelowMinBet
	}
	vl, ok := domain.HeatLevelVL[in.Heat]
	if !ok {
		return nil, nil, domain.ErrOutOfRange
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("market_service.CreateMarketAndBuy begin: %w", err)
	}
	defer tx.Rollback()

	m := &domain.Market{
		Creator:            in.Creator,
		Question:           in.Question,
		Evidence:           in.Evidence,
		Rules:              in.Rules,
		ImageURL:           in.ImageURL,
		ExpiryTS:           in.ExpiryTS,
		Heat:               in.Heat,
		VirtualLiquidity:   mathx.NewU256(mathx.Mul(mathx.FromUint64(vl), mathx.ShareScale)),
		YesSupply:          mathx.ZeroU256(),
		NoSupply:           mathx.ZeroU256(),
		PoolBalance:        mathx.ZeroU256(),
		Status:             domain.StatusActive,
		ProposerVotes:      mathx.ZeroU256(),
		DisputerVotes:      mathx.ZeroU256(),
		CreatorFeesAccrued: mathx.ZeroU256(),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	// Insert via the raw tx (not marketRepo.Create, which opens no tx of its
	// own but would run outside this one) so the id allocation and the
	// first trade commit or abort together.
	row := tx.QueryRowxContext(ctx, `
		INSERT INTO markets
			(creator, question, evidence, rules, image_url, expiry_ts, heat,
			 virtual_liquidity, yes_supply, no_supply, pool_balance,
			 status, proposer_votes, disputer_votes, creator_fees_accrued, created_at, updated_at)
		VALUES
			($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING id`,
		m.Creator, m.Question, m.Evidence, m.Rules, m.ImageURL, m.ExpiryTS, m.Heat,
		m.VirtualLiquidity, m.YesSupply, m.NoSupply, m.PoolBalance,
		m.Status, m.ProposerVotes, m.DisputerVotes, m.CreatorFeesAccrued, m.CreatedAt, m.UpdatedAt)
	if err := row.Scan(&m.ID); err != nil {
		return nil, nil, fmt.Errorf("market_service.CreateMarketAndBuy insert: %w", err)
	}
	if err := events.Emit(ctx, tx, events.MarketCreated, m.ID, in.Creator, map[string]any{
		"question": m.Question, "expiry_ts": m.ExpiryTS, "heat": m.Heat,
	}); err != nil {
		return nil, nil, err
	}

	sharesOut, netIn, err := m.Curve().BuyQuote(bnbIn.Int, side, params.PlatformFeeBps, domain.CreatorFeeBps)
	if err != nil {
		return nil, nil, err
	}
	if mathx.LessThan(sharesOut, minSharesOut.Int) {
		return nil, nil, domain.ErrSlippageExceeded
	}
	platformFee, err := mathx.BpsOf(bnbIn.Int, params.PlatformFeeBps)
	if err != nil {
		return nil, nil, err
	}
	creatorFee, err := mathx.BpsOf(bnbIn.Int, domain.CreatorFeeBps)
	if err != nil {
		return nil, nil, err
	}

	m.PoolBalance = mathx.NewU256(mathx.Add(m.PoolBalance.Int, netIn))
	if side == mathx.SideYes {
		m.YesSupply = mathx.NewU256(mathx.Add(m.YesSupply.Int, sharesOut))
	} else {
		m.NoSupply = mathx.NewU256(mathx.Add(m.NoSupply.Int, sharesOut))
	}
	m.CreatorFeesAccrued = mathx.NewU256(mathx.Add(m.CreatorFeesAccrued.Int, creatorFee))
	if err := s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, nil, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerTreasury, params.Treasury, 0, mathx.NewU256(platformFee)); err != nil {
		return nil, nil, err
	}
	if err := events.Emit(ctx, tx, events.WithdrawalCredited, m.ID, params.Treasury, map[string]any{
		"kind": domain.LedgerTreasury, "amount": platformFee.Dec(),
	}); err != nil {
		return nil, nil, err
	}

	pos := domain.ZeroPosition(m.ID, in.Creator)
	applyBuyToPosition(pos, side, sharesOut, bnbIn.Int)
	if err := s.positionRepo.Upsert(ctx, tx, pos); err != nil {
		return nil, nil, err
	}
	if err := events.Emit(ctx, tx, events.Trade, m.ID, in.Creator, map[string]any{
		"side": side, "is_buy": true, "shares": sharesOut.Dec(), "bnb_in": bnbIn.String(), "bnb_net": netIn.Dec(),
	}); err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("market_service.CreateMarketAndBuy commit: %w", err)
	}
	s.log.Info("market created and bought", "market_id", m.ID, "creator", in.Creator)
	s.publish(events.MarketCreated, m.ID)
	s.publish(events.Trade, m.ID)
	return m, pos, nil
}

// BuyInput bundles buy_yes/buy_no's inputs.
type BuyInput struct {
	MarketID      uint64
	Trader        string
	Side          mathx.Side
	BnbIn         mathx.U256
	MinSharesOut  mathx.U256
}

// Buy implements the buy contract (spec §4.3): checks, then effects in
// order (fee split, pool credit, supply credit, position update), then one
// Trade event — all inside a single transaction holding the market row lock.
func (s *MarketService) Buy(ctx context.Context, in BuyInput) (*domain.Position, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params.Paused {
		return nil, domain.ErrPaused
	}
	if mathx.LessThan(in.BnbIn.Int, params.MinBet.Int) {
		return nil, domain.ErrBelowMinBet
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("market_service.Buy begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, in.MarketID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if m.Status != domain.StatusActive || !now.Before(m.ExpiryTS) {
		return nil, domain.ErrExpired
	}

	sharesOut, netIn, err := m.Curve().BuyQuote(in.BnbIn.Int, in.Side, params.PlatformFeeBps, domain.CreatorFeeBps)
	if err != nil {
		return nil, err
	}
	if mathx.LessThan(sharesOut, in.MinSharesOut.Int) {
		return nil, domain.ErrSlippageExceeded
	}

	platformFee, err := mathx.BpsOf(in.BnbIn.Int, params.PlatformFeeBps)
	if err != nil {
		return nil, err
	}
	creatorFee, err := mathx.BpsOf(in.BnbIn.Int, domain.CreatorFeeBps)
	if err != nil {
		return nil, err
	}

	m.PoolBalance = mathx.NewU256(mathx.Add(m.PoolBalance.Int, netIn))
	if in.Side == mathx.SideYes {
		m.YesSupply = mathx.NewU256(mathx.Add(m.YesSupply.Int, sharesOut))
	} else {
		m.NoSupply = mathx.NewU256(mathx.Add(m.NoSupply.Int, sharesOut))
	}
	m.CreatorFeesAccrued = mathx.NewU256(mathx.Add(m.CreatorFeesAccrued.Int, creatorFee))

	if err := s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerTreasury, params.Treasury, 0, mathx.NewU256(platformFee)); err != nil {
		return nil, err
	}
	if err := events.Emit(ctx, tx, events.WithdrawalCredited, m.ID, params.Treasury, map[string]any{
		"kind": domain.LedgerTreasury, "amount": platformFee.Dec(),
	}); err != nil {
		return nil, err
	}

	pos, err := s.positionRepo.GetForUpdate(ctx, tx, in.MarketID, in.Trader)
	if err != nil {
		return nil, err
	}
	applyBuyToPosition(pos, in.Side, sharesOut, in.BnbIn.Int)
	if err := s.positionRepo.Upsert(ctx, tx, pos); err != nil {
		return nil, err
	}

	if err := events.Emit(ctx, tx, events.Trade, m.ID, in.Trader, map[string]any{
		"side": in.Side, "is_buy": true, "shares": sharesOut.Dec(),
		"bnb_in": in.BnbIn.String(), "bnb_net": netIn.Dec(),
	}); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_service.Buy commit: %w", err)
	}
	s.log.Info("buy executed", "market_id", m.ID, "trader", in.Trader, "side", in.Side, "shares_out", sharesOut.Dec())
	s.publish(events.Trade, m.ID)
	return pos, nil
}

func applyBuyToPosition(pos *domain.Position, side mathx.Side, sharesOut, bnbIn *mathx.Int) {
	pos.TotalInvested = mathx.NewU256(mathx.Add(pos.TotalInvested.Int, bnbIn))
	if side == mathx.SideYes {
		pos.YesShares = mathx.NewU256(mathx.Add(pos.YesShares.Int, sharesOut))
	} else {
		pos.NoShares = mathx.NewU256(mathx.Add(pos.NoShares.Int, sharesOut))
	}
}

// SellInput bundles sell_yes/sell_no's inputs.
type SellInput struct {
	MarketID   uint64
	Trader     string
	Side       mathx.Side
	SharesIn   mathx.U256
	MinBnbOut  mathx.U256
}

// Sell implements the sell contract (spec §4.3): post-sale pricing, pool
// guard, fee split from gross proceeds, ledger credit of net.
func (s *MarketService) Sell(ctx context.Context, in SellInput) (*domain.Position, error) {
	params, err := s.params.Get(ctx)
	if err != nil {
		return nil, err
	}
	if params.Paused {
		return nil, domain.ErrPaused
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("market_service.Sell begin: %w", err)
	}
	defer tx.Rollback()

	m, err := s.marketRepo.GetForUpdate(ctx, tx, in.MarketID)
	if err != nil {
		return nil, err
	}
	if m.Status != domain.StatusActive && m.Status != domain.StatusExpired {
		return nil, domain.ErrResolved
	}

	pos, err := s.positionRepo.GetForUpdate(ctx, tx, in.MarketID, in.Trader)
	if err != nil {
		return nil, err
	}
	held := pos.YesShares.Int
	if in.Side == mathx.SideNo {
		held = pos.NoShares.Int
	}
	if mathx.LessThan(held, in.SharesIn.Int) {
		return nil, domain.ErrNoShares
	}

	bnbGross, err := m.Curve().SellQuote(in.SharesIn.Int, in.Side)
	if err != nil {
		return nil, err
	}
	if mathx.GreaterThan(bnbGross, m.PoolBalance.Int) {
		return nil, domain.ErrInsufficientPoolBalance
	}

	platformFee, err := mathx.BpsOf(bnbGross, params.PlatformFeeBps)
	if err != nil {
		return nil, err
	}
	creatorFee, err := mathx.BpsOf(bnbGross, domain.CreatorFeeBps)
	if err != nil {
		return nil, err
	}
	netOut := mathx.SubBounded(mathx.SubBounded(bnbGross, platformFee), creatorFee)
	if mathx.LessThan(netOut, in.MinBnbOut.Int) {
		return nil, domain.ErrSlippageExceeded
	}

	if in.Side == mathx.SideYes {
		m.YesSupply = mathx.NewU256(mathx.SubBounded(m.YesSupply.Int, in.SharesIn.Int))
	} else {
		m.NoSupply = mathx.NewU256(mathx.SubBounded(m.NoSupply.Int, in.SharesIn.Int))
	}
	m.PoolBalance = mathx.NewU256(mathx.SubBounded(m.PoolBalance.Int, bnbGross))
	m.CreatorFeesAccrued = mathx.NewU256(mathx.Add(m.CreatorFeesAccrued.Int, creatorFee))
	if err := s.marketRepo.Save(ctx, tx, m); err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerTreasury, params.Treasury, 0, mathx.NewU256(platformFee)); err != nil {
		return nil, err
	}
	if err := events.Emit(ctx, tx, events.WithdrawalCredited, m.ID, params.Treasury, map[string]any{
		"kind": domain.LedgerTreasury, "amount": platformFee.Dec(),
	}); err != nil {
		return nil, err
	}

	reduceSoldFraction(pos, in.Side, in.SharesIn.Int, held)
	if err := s.positionRepo.Upsert(ctx, tx, pos); err != nil {
		return nil, err
	}
	if err := s.ledgerRepo.Credit(ctx, tx, domain.LedgerWithdrawable, in.Trader, 0, mathx.NewU256(netOut)); err != nil {
		return nil, err
	}

	if err := events.Emit(ctx, tx, events.Trade, m.ID, in.Trader, map[string]any{
		"side": in.Side, "is_buy": false, "shares": in.SharesIn.String(),
		"bnb_gross": bnbGross.Dec(), "bnb_net": netOut.Dec(),
	}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("market_service.Sell commit: %w", err)
	}
	s.log.Info("sell executed", "market_id", m.ID, "trader", in.Trader, "side", in.Side, "bnb_net", netOut.Dec())
	s.publish(events.Trade, m.ID)
	return pos, nil
}

// reduceSoldFraction reduces position.total_invested proportionally to the
// fraction of held shares sold, per spec §4.3 "reduce position.total_invested
// proportionally (by sold_fraction of cost basis)".
func reduceSoldFraction(pos *domain.Position, side mathx.Side, sharesIn, held *mathx.Int) {
	if side == mathx.SideYes {
		pos.YesShares = mathx.NewU256(mathx.SubBounded(pos.YesShares.Int, sharesIn))
	} else {
		pos.NoShares = mathx.NewU256(mathx.SubBounded(pos.NoShares.Int, sharesIn))
	}
	if held.IsZero() {
		return
	}
	reduced, err := mathx.MulDivFloor(pos.TotalInvested.Int, sharesIn, held)
	if err != nil {
		return
	}
	pos.TotalInvested = mathx.NewU256(mathx.SubBounded(pos.TotalInvested.Int, reduced))
}

// GetMarket fetches a market by id.
func (s *MarketService) GetMarket(ctx context.Context, id uint64) (*domain.Market, error) {
	return s.marketRepo.GetByID(ctx, id)
}

// ListMarkets returns a paginated, optionally status-filtered slice of markets.
func (s *MarketService) ListMarkets(ctx context.Context, limit, offset int, status string) ([]*domain.Market, int, error) {
	return s.marketRepo.List(ctx, limit, offset, status)
}

// GetPosition fetches a user's position in a market.
func (s *MarketService) GetPosition(ctx context.Context, marketID uint64, address string) (*domain.Position, error) {
	return s.positionRepo.Get(ctx, marketID, address)
}

func (s *MarketService) publish(kind events.Kind, marketID uint64) {
	if s.broadcaster == nil {
		return
	}
	s.broadcaster.BroadcastEvent(string(kind), fmt.Sprintf(`{"market_id":%d}`, marketID))
}
