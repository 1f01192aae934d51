package loan

import (
	"fmt"
	"math/big"

	"github.com/definex/definex-libs/native/assets"
)

// MarkLiquidated settles a liquidated loan with the auction proceeds reported
// by the liquidation account. The outstanding balance is collected from the
// agent and burned; any leftover is split between a liquidation penalty for
// the profit pool and a refund to the borrower. The loan is then closed and
// the aggregate counters adjusted. Settlement is fully compensated on
// failure.
func (e *Engine) MarkLiquidated(agent [20]byte, loanID uint64, auctionBalance *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyForWrite(); err != nil {
		return err
	}
	if auctionBalance == nil || auctionBalance.Sign() < 0 {
		return fmt.Errorf("%w: auction balance must be non-negative", ErrInvalidParameter)
	}
	params, err := e.state.Params()
	if err != nil {
		return err
	}
	if agent != params.LiquidationAccount {
		return ErrNotLiquidationAccount
	}
	record, ok, err := e.state.GetLoan(loanID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrLoanNotFound
	}
	if !record.IsLiquidating() {
		return ErrNotInLiquidation
	}

	agentBalance, err := e.ledger.FreeBalance(params.LoanAssetID, agent)
	if err != nil {
		return err
	}
	if agentBalance.Cmp(auctionBalance) < 0 {
		return fmt.Errorf("auction proceeds: %w", assets.ErrInsufficientBalance)
	}

	penalty := big.NewInt(0)
	refund := big.NewInt(0)
	leftover := new(big.Int).Sub(auctionBalance, record.LoanBalanceTotal)
	if leftover.Sign() > 0 {
		penalty = new(big.Int).Mul(leftover, new(big.Int).SetUint64(uint64(params.LiquidationPenalty)))
		penalty.Quo(penalty, ltvPrec)
		refund = new(big.Int).Sub(leftover, penalty)
	}

	settle := newSaga().
		then("collect principal",
			func() error {
				return e.ledger.Transfer(params.LoanAssetID, agent, params.PawnShop, record.LoanBalanceTotal)
			},
			func() error {
				return e.ledger.Transfer(params.LoanAssetID, params.PawnShop, agent, record.LoanBalanceTotal)
			})
	if penalty.Sign() > 0 {
		settle.then("pay liquidation penalty",
			func() error { return e.ledger.Transfer(params.LoanAssetID, agent, params.ProfitPool, penalty) },
			func() error { return e.ledger.Transfer(params.LoanAssetID, params.ProfitPool, agent, penalty) })
	}
	if refund.Sign() > 0 {
		settle.then("refund borrower",
			func() error { return e.ledger.Transfer(params.LoanAssetID, agent, record.Owner, refund) },
			func() error { return e.ledger.Transfer(params.LoanAssetID, record.Owner, agent, refund) })
	}
	settle.then("burn principal",
		func() error { return e.ledger.Burn(params.LoanAssetID, params.PawnShop, record.LoanBalanceTotal) },
		nil)
	if err := settle.execute(); err != nil {
		return err
	}

	if err := e.state.RemoveLoan(loanID); err != nil {
		return err
	}
	if err := e.state.RemoveOwnerLoan(record.Owner, loanID); err != nil {
		return err
	}
	if err := e.state.RemoveLiquidatingLoan(loanID); err != nil {
		return err
	}
	totals, err := e.state.Totals()
	if err != nil {
		return err
	}
	totals.TotalLoan = new(big.Int).Sub(totals.TotalLoan, record.LoanBalanceTotal)
	totals.TotalCollateral = new(big.Int).Sub(totals.TotalCollateral, record.CollateralAvailable)
	totals.TotalProfit = new(big.Int).Add(totals.TotalProfit, penalty)
	if err := e.state.PutTotals(totals); err != nil {
		return err
	}
	e.metrics.ObserveLiquidationSettled()
	e.emitter.Emit(NewLiquidatedEvent(record, auctionBalance))
	e.log.Info("loan liquidated", "loanId", loanID,
		"auctionBalance", auctionBalance.String(), "penalty", penalty.String(), "refund", refund.String())
	return nil
}
