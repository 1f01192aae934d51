package loan

import (
	"math"
	"math/big"
)

// RunCycle walks the loan book once and reclassifies every loan that is not
// already liquidating. Per-loan outcomes:
//
//   - LTV at or above the liquidation threshold: flag liquidating.
//   - LTV at or above the warning threshold: advisory warning.
//   - Inside the grace window past the primary due date: advisory extension
//     notice.
//   - Past the extended due date: charge the expiration penalty plus interest
//     in collateral units, roll the due dates one full term forward, then
//     re-check the post-charge LTV; a loan that no longer supports its
//     balance is flagged liquidating instead and the charge is discarded.
//
// Accrued expiration fees are swept from the pawn shop to the profit pool
// after the walk. The sweep is skipped, with a log line, when it would drive
// TotalCollateral negative or when the transfer itself fails; the next cycle
// retries nothing because the charges only persist together with their loan
// extension. RunCycle is idempotent between state changes and returns errors
// only for storage faults.
func (e *Engine) RunCycle() error {
	e.mu.Lock()
	defer e.mu.Unlock()
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
		e.log.Debug("scan cycle skipped, module paused")
		return nil
	}
	params, err := e.state.Params()
	if err != nil {
		return err
	}
	ids, err := e.state.LoanIDs()
	if err != nil {
		return err
	}
	liquidatingIDs, err := e.state.LiquidatingLoanIDs()
	if err != nil {
		return err
	}
	liquidating := make(map[uint64]struct{}, len(liquidatingIDs))
	for _, id := range liquidatingIDs {
		liquidating[id] = struct{}{}
	}

	now := e.now()
	sweep := big.NewInt(0)

	for _, id := range ids {
		if _, flagged := liquidating[id]; flagged {
			continue
		}
		record, ok, err := e.state.GetLoan(id)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		ltv := scanLTV(record.CollateralAvailable, record.LoanBalanceTotal, params.CurrentPrice)
		switch {
		case ltv >= params.GlobalLiquidationThreshold:
			if err := e.flagLiquidating(record, ltv); err != nil {
				return err
			}
		case ltv >= params.GlobalWarningThreshold:
			record.Health = LoanHealth{State: HealthWarning, LTV: ltv}
			if err := e.state.PutLoan(record); err != nil {
				return err
			}
			e.emitter.Emit(NewWarningEvent(id, ltv))
		case now >= record.DueExtend:
			charged, err := e.expireLoan(record, params, now)
			if err != nil {
				return err
			}
			if charged != nil {
				sweep.Add(sweep, charged)
			}
		case now >= record.Due:
			record.Health = LoanHealth{State: HealthExtended, LTV: ltv}
			if err := e.state.PutLoan(record); err != nil {
				return err
			}
			e.emitter.Emit(NewExtendedEvent(record))
		}
	}

	if sweep.Sign() > 0 {
		if err := e.sweepExpirationFees(params, sweep); err != nil {
			return err
		}
	}
	e.metrics.ObserveScanCycle()
	return nil
}

// scanLTV classifies defensively: a loan whose collateral value cannot be
// computed (zero collateral or zero price) against a live balance is treated
// as maximally unhealthy rather than skipped.
func scanLTV(collateral, balance *big.Int, price uint64) uint64 {
	ltv, err := ComputeLTV(collateral, balance, price)
	if err != nil {
		if balance != nil && balance.Sign() > 0 {
			return math.MaxUint64
		}
		return 0
	}
	return ltv
}

func (e *Engine) flagLiquidating(record *Loan, ltv uint64) error {
	record.Health = LoanHealth{State: HealthLiquidating, LTV: ltv}
	if err := e.state.PutLoan(record); err != nil {
		return err
	}
	if err := e.state.AddLiquidatingLoan(record.ID); err != nil {
		return err
	}
	e.metrics.ObserveLiquidationFlagged()
	e.emitter.Emit(NewLiquidatingEvent(record))
	e.log.Warn("loan flagged for liquidation", "loanId", record.ID, "ltv", ltv)
	return nil
}

// expireLoan charges the expiration penalty plus interest against a clone of
// the loan and re-checks health on the result. Only when the extension
// actually persists does the charge count toward the post-scan sweep; the
// escalation paths leave the stored loan untouched apart from its health.
func (e *Engine) expireLoan(record *Loan, params *Params, now uint64) (*big.Int, error) {
	pkg, ok := e.scanPackage(record.PackageID)
	if !ok {
		e.log.Error("loan references missing package, skipping", "loanId", record.ID, "packageId", record.PackageID)
		return nil, nil
	}
	penalty := ExpirationPenalty(record.CollateralAvailable, params.PenaltyRate)
	interest, err := record.ExpirationInterest(pkg, params.CurrentPrice)
	if err != nil {
		interest = big.NewInt(0)
	}

	candidate := record.Clone()
	candidate.ExpireThenExtend(pkg, now, penalty, interest)
	ltv := scanLTV(candidate.CollateralAvailable, candidate.LoanBalanceTotal, params.CurrentPrice)
	switch {
	case ltv >= params.GlobalLiquidationThreshold:
		return nil, e.flagLiquidating(record, ltv)
	case ltv >= params.GlobalWarningThreshold:
		record.Health = LoanHealth{State: HealthWarning, LTV: ltv}
		if err := e.state.PutLoan(record); err != nil {
			return nil, err
		}
		e.emitter.Emit(NewWarningEvent(record.ID, ltv))
		return nil, nil
	default:
		candidate.Health = LoanHealth{State: HealthExpired, LTV: ltv}
		if err := e.state.PutLoan(candidate); err != nil {
			return nil, err
		}
		e.metrics.ObserveExpirationExtended()
		e.emitter.Emit(NewExpiredEvent(candidate))
		e.log.Info("expired loan extended", "loanId", record.ID,
			"penalty", penalty.String(), "interest", interest.String())
		return new(big.Int).Add(penalty, interest), nil
	}
}

func (e *Engine) scanPackage(id uint64) (*LoanPackage, bool) {
	pkg, ok, err := e.state.GetPackage(id)
	if err != nil || !ok {
		return nil, false
	}
	return pkg, true
}

// sweepExpirationFees moves the cycle's accrued expiration charges, in
// collateral units, from the pawn shop to the profit pool and shrinks
// TotalCollateral accordingly.
func (e *Engine) sweepExpirationFees(params *Params, fee *big.Int) error {
	totals, err := e.state.Totals()
	if err != nil {
		return err
	}
	if totals.TotalCollateral.Cmp(fee) < 0 {
		e.log.Error("expiration sweep skipped, total collateral underflow",
			"fee", fee.String(), "totalCollateral", totals.TotalCollateral.String())
		return nil
	}
	if err := e.ledger.Transfer(params.CollateralAssetID, params.PawnShop, params.ProfitPool, fee); err != nil {
		e.log.Error("expiration sweep transfer failed", "fee", fee.String(), "error", err)
		return nil
	}
	totals.TotalCollateral = new(big.Int).Sub(totals.TotalCollateral, fee)
	if err := e.state.PutTotals(totals); err != nil {
		return err
	}
	e.metrics.ObservePenaltySwept(fee)
	return nil
}
