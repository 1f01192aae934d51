package loan

import (
	"fmt"
	"math/big"
)

// Administrative parameter setters. These bypass the pause switch so the
// module can be reconfigured, paused and resumed while halted.

func (e *Engine) updateParams(mutate func(*Params) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNilState
	}
	params, err := e.state.Params()
	if err != nil {
		return err
	}
	if err := mutate(params); err != nil {
		return err
	}
	return e.state.PutParams(params)
}

// InitParams seeds the full parameter set at genesis.
func (e *Engine) InitParams(params *Params) error {
	if params == nil {
		return ErrInvalidParameter
	}
	return e.updateParams(func(current *Params) error {
		*current = *params.Clone()
		current.ensureDefaults()
		return nil
	})
}

// SetPrice updates the oracle price of the collateral asset, scaled by
// PricePrecision.
func (e *Engine) SetPrice(price uint64) error {
	if price == 0 {
		return fmt.Errorf("%w: price must be positive", ErrInvalidParameter)
	}
	return e.updateParams(func(p *Params) error {
		p.CurrentPrice = price
		return nil
	})
}

// SetGlobalLTVLimit updates the maximum LTV accepted when opening or drawing
// against a loan.
func (e *Engine) SetGlobalLTVLimit(limit uint64) error {
	if limit == 0 {
		return fmt.Errorf("%w: LTV limit must be positive", ErrInvalidParameter)
	}
	return e.updateParams(func(p *Params) error {
		p.GlobalLTVLimit = limit
		return nil
	})
}

// SetGlobalWarningThreshold updates the LTV at which the scanner starts
// emitting warnings.
func (e *Engine) SetGlobalWarningThreshold(threshold uint64) error {
	return e.updateParams(func(p *Params) error {
		p.GlobalWarningThreshold = threshold
		return nil
	})
}

// SetGlobalLiquidationThreshold updates the LTV at which the scanner flags
// loans for liquidation.
func (e *Engine) SetGlobalLiquidationThreshold(threshold uint64) error {
	return e.updateParams(func(p *Params) error {
		p.GlobalLiquidationThreshold = threshold
		return nil
	})
}

// SetLoanCap bounds the aggregate outstanding principal. A nil or
// non-positive cap removes the bound.
func (e *Engine) SetLoanCap(limit *big.Int) error {
	return e.updateParams(func(p *Params) error {
		if limit == nil || limit.Sign() <= 0 {
			p.LoanCap = nil
			return nil
		}
		p.LoanCap = new(big.Int).Set(limit)
		return nil
	})
}

// SetLiquidationAccount designates the account allowed to report liquidation
// proceeds.
func (e *Engine) SetLiquidationAccount(account [20]byte) error {
	return e.updateParams(func(p *Params) error {
		p.LiquidationAccount = account
		return nil
	})
}

// SetPenaltyRate updates the collateral cut applied on expiration, scaled by
// LTVPrecision.
func (e *Engine) SetPenaltyRate(rate uint32) error {
	if uint64(rate) >= LTVPrecision {
		return fmt.Errorf("%w: penalty rate out of range", ErrInvalidParameter)
	}
	return e.updateParams(func(p *Params) error {
		p.PenaltyRate = rate
		return nil
	})
}

// SetLiquidationPenalty updates the cut taken from liquidation leftovers,
// scaled by LTVPrecision.
func (e *Engine) SetLiquidationPenalty(penalty uint32) error {
	if uint64(penalty) >= LTVPrecision {
		return fmt.Errorf("%w: liquidation penalty out of range", ErrInvalidParameter)
	}
	return e.updateParams(func(p *Params) error {
		p.LiquidationPenalty = penalty
		return nil
	})
}

// SetMinimumCollateral updates the smallest collateral accepted when opening
// a loan.
func (e *Engine) SetMinimumCollateral(minimum *big.Int) error {
	if minimum == nil || minimum.Sign() < 0 {
		return fmt.Errorf("%w: minimum collateral must be non-negative", ErrInvalidParameter)
	}
	return e.updateParams(func(p *Params) error {
		p.MinimumCollateral = new(big.Int).Set(minimum)
		return nil
	})
}

// SetCollateralAsset points the module at the asset locked as collateral.
func (e *Engine) SetCollateralAsset(assetID uint32) error {
	return e.updateParams(func(p *Params) error {
		p.CollateralAssetID = assetID
		return nil
	})
}

// SetLoanAsset points the module at the asset minted as principal.
func (e *Engine) SetLoanAsset(assetID uint32) error {
	return e.updateParams(func(p *Params) error {
		p.LoanAssetID = assetID
		return nil
	})
}

// Pause halts every lifecycle entry point until Resume.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNilState
	}
	return e.state.SetPaused(true)
}

// Resume lifts the module pause switch.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return ErrNilState
	}
	return e.state.SetPaused(false)
}

// IsPaused implements common.PauseView over the persisted pause switch.
// Read errors report as paused so a broken backend fails closed.
func (e *Engine) IsPaused(module string) bool {
	if module != ModuleName {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return true
	}
	paused, err := e.state.Paused()
	if err != nil {
		return true
	}
	return paused
}

// Read-only queries.

// Loan returns a copy of the loan record.
func (e *Engine) Loan(id uint64) (*Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	record, ok, err := e.state.GetLoan(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrLoanNotFound
	}
	return record.Clone(), nil
}

// Loans returns every live loan in insertion order.
func (e *Engine) Loans() ([]*Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	ids, err := e.state.LoanIDs()
	if err != nil {
		return nil, err
	}
	return e.loadLoans(ids)
}

// LoansByOwner returns the live loans held by the owner.
func (e *Engine) LoansByOwner(owner [20]byte) ([]*Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	ids, err := e.state.OwnerLoanIDs(owner)
	if err != nil {
		return nil, err
	}
	return e.loadLoans(ids)
}

// LiquidatingLoans returns the loans currently flagged for liquidation.
func (e *Engine) LiquidatingLoans() ([]*Loan, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	ids, err := e.state.LiquidatingLoanIDs()
	if err != nil {
		return nil, err
	}
	return e.loadLoans(ids)
}

func (e *Engine) loadLoans(ids []uint64) ([]*Loan, error) {
	loans := make([]*Loan, 0, len(ids))
	for _, id := range ids {
		record, ok, err := e.state.GetLoan(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		loans = append(loans, record.Clone())
	}
	return loans, nil
}

// Package returns a copy of the package definition.
func (e *Engine) Package(id uint64) (*LoanPackage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	pkg, ok, err := e.state.GetPackage(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPackageNotFound
	}
	return pkg.Clone(), nil
}

// Packages returns every package ever created, in id order.
func (e *Engine) Packages() ([]*LoanPackage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	count, err := e.state.PackageCount()
	if err != nil {
		return nil, err
	}
	packages := make([]*LoanPackage, 0, count)
	for id := uint64(1); id <= count; id++ {
		pkg, ok, err := e.state.GetPackage(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		packages = append(packages, pkg.Clone())
	}
	return packages, nil
}

// ActivePackages returns the packages accepting new loans.
func (e *Engine) ActivePackages() ([]*LoanPackage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	ids, err := e.state.ActivePackageIDs()
	if err != nil {
		return nil, err
	}
	packages := make([]*LoanPackage, 0, len(ids))
	for _, id := range ids {
		pkg, ok, err := e.state.GetActivePackage(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		packages = append(packages, pkg.Clone())
	}
	return packages, nil
}

// TotalsView returns a copy of the aggregate counters.
func (e *Engine) TotalsView() (*Totals, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	totals, err := e.state.Totals()
	if err != nil {
		return nil, err
	}
	return totals.Clone(), nil
}

// ParamsView returns a copy of the module parameters.
func (e *Engine) ParamsView() (*Params, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == nil {
		return nil, ErrNilState
	}
	params, err := e.state.Params()
	if err != nil {
		return nil, err
	}
	return params.Clone(), nil
}
