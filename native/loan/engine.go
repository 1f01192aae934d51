package loan

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/definex/definex-libs/core/events"
	"github.com/definex/definex-libs/native/assets"
	"github.com/definex/definex-libs/native/common"
	"github.com/definex/definex-libs/observability/metrics"
)

// ModuleName identifies the loan module on pause switches and log lines.
const ModuleName = "loan"

// Ledger is the asset collaborator contract the engine settles value against.
// The production implementation is *assets.Ledger.
type Ledger interface {
	FreeBalance(assetID uint32, addr [20]byte) (*big.Int, error)
	Transfer(assetID uint32, from, to [20]byte, amount *big.Int) error
	Mint(assetID uint32, to [20]byte, amount *big.Int) error
	Burn(assetID uint32, from [20]byte, amount *big.Int) error
}

// Engine drives the collateralized loan lifecycle: package registry, loan
// book-keeping, health scanning and liquidation settlement. Every mutating
// entry point serializes on an internal mutex, so the persisted book only
// ever sees one writer.
type Engine struct {
	mu      sync.Mutex
	state   engineState
	ledger  Ledger
	emitter events.Emitter
	pauses  common.PauseView
	metrics *metrics.LoanMetrics
	log     *slog.Logger
	nowFn   func() int64
}

// NewEngine constructs a loan engine with no state or ledger bound. Callers
// must wire both before invoking any operation.
func NewEngine() *Engine {
	return &Engine{
		emitter: events.NoopEmitter{},
		log:     slog.Default(),
		nowFn:   func() int64 { return time.Now().UnixMilli() },
	}
}

// SetState wires the persistent loan state.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetLedger wires the asset ledger collaborator.
func (e *Engine) SetLedger(ledger Ledger) { e.ledger = ledger }

// SetEmitter configures the event emitter used by the engine. Passing nil
// resets the engine back to the no-op emitter.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires an external pause view consulted alongside the module's own
// persisted pause switch.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetMetrics wires the prometheus collectors. A nil receiver disables
// recording.
func (e *Engine) SetMetrics(m *metrics.LoanMetrics) { e.metrics = m }

// SetLogger overrides the engine logger.
func (e *Engine) SetLogger(log *slog.Logger) {
	if log != nil {
		e.log = log
	}
}

// SetNowFunc overrides the engine clock. The function must return unix
// milliseconds. Passing nil restores the real clock.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().UnixMilli() }
		return
	}
	e.nowFn = now
}

func (e *Engine) now() uint64 {
	ts := e.nowFn()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

func (e *Engine) readyForWrite() error {
	if e.state == nil {
		return ErrNilState
	}
	if e.ledger == nil {
		return ErrNilLedger
	}
	paused, err := e.state.Paused()
	if err != nil {
		return err
	}
	if paused {
		return fmt.Errorf("%s: %w", ModuleName, common.ErrModulePaused)
	}
	return common.Guard(e.pauses, ModuleName)
}

// normalizeCollateralLoan fills in whichever side of the (collateral, loan)
// pair was left zero and enforces the global LTV limit on the result.
func (e *Engine) normalizeCollateralLoan(params *Params, collateral, loanAmount *big.Int) (*CollateralLoan, error) {
	if collateral == nil {
		collateral = big.NewInt(0)
	}
	if loanAmount == nil {
		loanAmount = big.NewInt(0)
	}
	if collateral.Sign() < 0 || loanAmount.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount", ErrInvalidParameter)
	}
	switch {
	case collateral.Sign() == 0 && loanAmount.Sign() == 0:
		return nil, ErrBothAmountsZero
	case collateral.Sign() == 0:
		required, err := RequiredCollateral(loanAmount, params.GlobalLTVLimit, params.CurrentPrice)
		if err != nil {
			return nil, err
		}
		return &CollateralLoan{CollateralAmount: required, LoanAmount: new(big.Int).Set(loanAmount)}, nil
	case loanAmount.Sign() == 0:
		maxLoan := MaxLoanAmount(collateral, params.GlobalLTVLimit, params.CurrentPrice)
		return &CollateralLoan{CollateralAmount: new(big.Int).Set(collateral), LoanAmount: maxLoan}, nil
	default:
		ltv, err := ComputeLTV(collateral, loanAmount, params.CurrentPrice)
		if err != nil {
			return nil, err
		}
		if ltv > params.GlobalLTVLimit {
			return nil, ErrOverLTVLimit
		}
		return &CollateralLoan{CollateralAmount: new(big.Int).Set(collateral), LoanAmount: new(big.Int).Set(loanAmount)}, nil
	}
}

// CollateralLoanFor previews the normalized (collateral, loan) pair for the
// current price and LTV limit without touching any state.
func (e *Engine) CollateralLoanFor(collateral, loanAmount *big.Int) (*CollateralLoan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	params, err := e.state.Params()
	if err != nil {
		return nil, err
	}
	return e.normalizeCollateralLoan(params, collateral, loanAmount)
}

// Apply opens a loan under the given package. Zero collateral or zero loan
// amount is filled in from the other side at the global LTV limit. The caller
// locks the normalized collateral with the pawn shop; the up-front interest
// is minted to the profit pool and the remainder of the principal to the
// caller. Any settlement failure is fully compensated before returning.
func (e *Engine) Apply(who [20]byte, packageID uint64, collateral, loanAmount *big.Int) (*Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyForWrite(); err != nil {
		return nil, err
	}

	pkg, ok, err := e.state.GetActivePackage(packageID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, exists, lookupErr := e.state.GetPackage(packageID); lookupErr != nil {
			return nil, lookupErr
		} else if exists {
			return nil, ErrPackageInactive
		}
		return nil, ErrPackageNotFound
	}

	params, err := e.state.Params()
	if err != nil {
		return nil, err
	}
	totals, err := e.state.Totals()
	if err != nil {
		return nil, err
	}

	pair, err := e.normalizeCollateralLoan(params, collateral, loanAmount)
	if err != nil {
		return nil, err
	}
	if pkg.Min != nil && pair.LoanAmount.Cmp(pkg.Min) < 0 {
		return nil, ErrBelowMinLoan
	}
	if pair.CollateralAmount.Cmp(params.MinimumCollateral) < 0 {
		return nil, ErrBelowMinCollateral
	}
	if params.LoanCap != nil {
		projected := new(big.Int).Add(totals.TotalLoan, pair.LoanAmount)
		if projected.Cmp(params.LoanCap) > 0 {
			return nil, ErrReachLoanCap
		}
	}

	interest := pkg.Interest(pair.LoanAmount)
	if interest.Cmp(pair.LoanAmount) >= 0 {
		return nil, ErrInterestTooHigh
	}
	disbursed := new(big.Int).Sub(pair.LoanAmount, interest)

	settle := newSaga().
		then("lock collateral",
			func() error {
				return e.ledger.Transfer(params.CollateralAssetID, who, params.PawnShop, pair.CollateralAmount)
			},
			func() error {
				return e.ledger.Transfer(params.CollateralAssetID, params.PawnShop, who, pair.CollateralAmount)
			})
	if interest.Sign() > 0 {
		settle.then("mint interest",
			func() error { return e.ledger.Mint(params.LoanAssetID, params.ProfitPool, interest) },
			func() error { return e.ledger.Burn(params.LoanAssetID, params.ProfitPool, interest) })
	}
	settle.then("mint principal",
		func() error { return e.ledger.Mint(params.LoanAssetID, who, disbursed) },
		func() error { return e.ledger.Burn(params.LoanAssetID, who, disbursed) })
	if err := settle.execute(); err != nil {
		return nil, err
	}

	id, err := e.state.NextLoanID()
	if err != nil {
		return nil, err
	}
	due, dueExtend := pkg.Dues(e.now())
	record := &Loan{
		ID:                  id,
		PackageID:           pkg.ID,
		Owner:               who,
		Due:                 due,
		DueExtend:           dueExtend,
		CollateralOriginal:  new(big.Int).Set(pair.CollateralAmount),
		CollateralAvailable: new(big.Int).Set(pair.CollateralAmount),
		LoanBalanceTotal:    new(big.Int).Set(pair.LoanAmount),
		Health:              LoanHealth{State: HealthWell},
	}
	if err := e.state.PutLoan(record); err != nil {
		return nil, err
	}
	if err := e.state.AddOwnerLoan(who, id); err != nil {
		return nil, err
	}
	totals.TotalLoan = new(big.Int).Add(totals.TotalLoan, pair.LoanAmount)
	totals.TotalCollateral = new(big.Int).Add(totals.TotalCollateral, pair.CollateralAmount)
	totals.TotalProfit = new(big.Int).Add(totals.TotalProfit, interest)
	if err := e.state.PutTotals(totals); err != nil {
		return nil, err
	}
	e.metrics.ObserveLoanOpened()
	e.emitter.Emit(NewLoanCreatedEvent(record))
	e.log.Info("loan opened", "loanId", id, "packageId", pkg.ID,
		"collateral", record.CollateralAvailable.String(), "loan", record.LoanBalanceTotal.String())
	return record.Clone(), nil
}

// Draw borrows additional principal against a loan's spare collateral value.
// The package interest on the drawn amount is charged up front: minted to the
// profit pool, with the remainder minted to the owner.
func (e *Engine) Draw(who [20]byte, loanID uint64, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyForWrite(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: draw amount must be positive", ErrInvalidParameter)
	}

	record, ok, err := e.state.GetLoan(loanID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoanNotFound
	}
	if record.Owner != who {
		return ErrNotOwner
	}
	if record.IsLiquidating() {
		return ErrLoanInLiquidation
	}
	params, err := e.state.Params()
	if err != nil {
		return err
	}
	pkg, ok, err := e.state.GetPackage(record.PackageID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPackageNotFound
	}

	credit := MaxLoanAmount(record.CollateralAvailable, params.GlobalLTVLimit, params.CurrentPrice)
	credit.Sub(credit, record.LoanBalanceTotal)
	if credit.Sign() < 0 {
		credit.SetInt64(0)
	}
	if amount.Cmp(credit) > 0 {
		return ErrInsufficientCredit
	}

	interest := pkg.Interest(amount)
	if interest.Cmp(amount) >= 0 {
		return ErrInterestTooHigh
	}
	disbursed := new(big.Int).Sub(amount, interest)

	settle := newSaga()
	if interest.Sign() > 0 {
		settle.then("mint interest",
			func() error { return e.ledger.Mint(params.LoanAssetID, params.ProfitPool, interest) },
			func() error { return e.ledger.Burn(params.LoanAssetID, params.ProfitPool, interest) })
	}
	settle.then("mint principal",
		func() error { return e.ledger.Mint(params.LoanAssetID, who, disbursed) },
		func() error { return e.ledger.Burn(params.LoanAssetID, who, disbursed) })
	if err := settle.execute(); err != nil {
		return err
	}

	record.LoanBalanceTotal = new(big.Int).Add(record.LoanBalanceTotal, amount)
	if err := e.state.PutLoan(record); err != nil {
		return err
	}
	totals, err := e.state.Totals()
	if err != nil {
		return err
	}
	totals.TotalLoan = new(big.Int).Add(totals.TotalLoan, amount)
	totals.TotalProfit = new(big.Int).Add(totals.TotalProfit, interest)
	if err := e.state.PutTotals(totals); err != nil {
		return err
	}
	e.emitter.Emit(NewLoanDrawnEvent(record, amount))
	e.log.Info("loan drawn", "loanId", loanID, "amount", amount.String())
	return nil
}

// Repay settles the outstanding balance in full and closes the loan. The
// owner pays LoanBalanceTotal of the loan asset to the pawn shop, which burns
// it; the remaining collateral is returned. Partial repayment is not
// supported.
func (e *Engine) Repay(who [20]byte, loanID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyForWrite(); err != nil {
		return err
	}

	record, ok, err := e.state.GetLoan(loanID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoanNotFound
	}
	if record.Owner != who {
		return ErrNotOwner
	}
	if record.IsLiquidating() {
		return ErrLoanInLiquidation
	}
	params, err := e.state.Params()
	if err != nil {
		return err
	}

	ownerBalance, err := e.ledger.FreeBalance(params.LoanAssetID, who)
	if err != nil {
		return err
	}
	if ownerBalance.Cmp(record.LoanBalanceTotal) < 0 {
		return fmt.Errorf("repay balance: %w", assets.ErrInsufficientBalance)
	}
	shopCollateral, err := e.ledger.FreeBalance(params.CollateralAssetID, params.PawnShop)
	if err != nil {
		return err
	}
	if shopCollateral.Cmp(record.CollateralAvailable) < 0 {
		return fmt.Errorf("pawn shop collateral: %w", assets.ErrInsufficientBalance)
	}

	totals, err := e.state.Totals()
	if err != nil {
		return err
	}

	// Optimistic removal: take the loan out of the book first, restore it
	// wholesale if settlement fails.
	if err := e.state.RemoveLoan(loanID); err != nil {
		return err
	}
	if err := e.state.RemoveOwnerLoan(who, loanID); err != nil {
		return err
	}
	adjusted := totals.Clone()
	adjusted.TotalLoan = new(big.Int).Sub(adjusted.TotalLoan, record.LoanBalanceTotal)
	adjusted.TotalCollateral = new(big.Int).Sub(adjusted.TotalCollateral, record.CollateralAvailable)
	if err := e.state.PutTotals(adjusted); err != nil {
		return err
	}
	restore := func() {
		if putErr := e.state.PutLoan(record); putErr != nil {
			e.log.Error("restore loan after failed repay", "loanId", loanID, "error", putErr)
		}
		if idxErr := e.state.AddOwnerLoan(who, loanID); idxErr != nil {
			e.log.Error("restore owner index after failed repay", "loanId", loanID, "error", idxErr)
		}
		if totErr := e.state.PutTotals(totals); totErr != nil {
			e.log.Error("restore totals after failed repay", "loanId", loanID, "error", totErr)
		}
	}

	settle := newSaga().
		then("collect principal",
			func() error {
				return e.ledger.Transfer(params.LoanAssetID, who, params.PawnShop, record.LoanBalanceTotal)
			},
			func() error {
				return e.ledger.Transfer(params.LoanAssetID, params.PawnShop, who, record.LoanBalanceTotal)
			})
	if record.CollateralAvailable.Sign() > 0 {
		settle.then("release collateral",
			func() error {
				return e.ledger.Transfer(params.CollateralAssetID, params.PawnShop, who, record.CollateralAvailable)
			},
			func() error {
				return e.ledger.Transfer(params.CollateralAssetID, who, params.PawnShop, record.CollateralAvailable)
			})
	}
	settle.then("burn principal",
		func() error { return e.ledger.Burn(params.LoanAssetID, params.PawnShop, record.LoanBalanceTotal) },
		nil)
	if err := settle.execute(); err != nil {
		restore()
		return err
	}

	e.emitter.Emit(NewLoanRepaidEvent(record))
	e.log.Info("loan repaid", "loanId", loanID, "balance", record.LoanBalanceTotal.String())
	return nil
}

// AddCollateral tops up a loan's collateral, lowering its LTV. Both the
// original and available collateral grow by the amount.
func (e *Engine) AddCollateral(who [20]byte, loanID uint64, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyForWrite(); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("%w: collateral amount must be positive", ErrInvalidParameter)
	}

	record, ok, err := e.state.GetLoan(loanID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoanNotFound
	}
	if record.Owner != who {
		return ErrNotOwner
	}
	if record.IsLiquidating() {
		return ErrLoanInLiquidation
	}
	params, err := e.state.Params()
	if err != nil {
		return err
	}

	if err := e.ledger.Transfer(params.CollateralAssetID, who, params.PawnShop, amount); err != nil {
		return err
	}
	record.CollateralOriginal = new(big.Int).Add(record.CollateralOriginal, amount)
	record.CollateralAvailable = new(big.Int).Add(record.CollateralAvailable, amount)
	if err := e.state.PutLoan(record); err != nil {
		return err
	}
	totals, err := e.state.Totals()
	if err != nil {
		return err
	}
	totals.TotalCollateral = new(big.Int).Add(totals.TotalCollateral, amount)
	if err := e.state.PutTotals(totals); err != nil {
		return err
	}
	e.emitter.Emit(NewCollateralAddedEvent(record, amount))
	e.log.Info("collateral added", "loanId", loanID, "amount", amount.String())
	return nil
}
