package loan

import (
	"fmt"
	"math/big"
)

// CreatePackage publishes a new loan package with the module's configured
// asset pair. It returns the allocated package id.
func (e *Engine) CreatePackage(terms uint32, interestRateHourly uint32, minLoanAmount *big.Int) (uint64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyForWrite(); err != nil {
		return 0, err
	}
	if terms == 0 {
		return 0, fmt.Errorf("%w: terms must be positive", ErrInvalidParameter)
	}
	if interestRateHourly == 0 || uint64(interestRateHourly) >= InterestRatePrecision {
		return 0, fmt.Errorf("%w: hourly interest rate out of range", ErrInvalidParameter)
	}
	if minLoanAmount == nil || minLoanAmount.Sign() <= 0 {
		return 0, fmt.Errorf("%w: minimum loan amount must be positive", ErrInvalidParameter)
	}
	params, err := e.state.Params()
	if err != nil {
		return 0, err
	}
	id, err := e.state.NextPackageID()
	if err != nil {
		return 0, err
	}
	pkg := &LoanPackage{
		ID:                 id,
		Status:             PackageActive,
		Terms:              terms,
		Min:                new(big.Int).Set(minLoanAmount),
		InterestRateHourly: interestRateHourly,
		CollateralAssetID:  params.CollateralAssetID,
		LoanAssetID:        params.LoanAssetID,
	}
	if err := e.state.PutPackage(pkg); err != nil {
		return 0, err
	}
	if err := e.state.PutActivePackage(pkg); err != nil {
		return 0, err
	}
	e.emitter.Emit(NewPackageCreatedEvent(pkg))
	e.log.Info("loan package created", "packageId", id, "terms", terms, "rate", interestRateHourly)
	return id, nil
}

// DisablePackage stops a package from accepting new loans. Existing loans
// keep referencing it for interest and due-date math. Disabling twice is a
// no-op.
func (e *Engine) DisablePackage(id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.readyForWrite(); err != nil {
		return err
	}
	pkg, ok, err := e.state.GetPackage(id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPackageNotFound
	}
	if pkg.Status == PackageInactive {
		return nil
	}
	pkg.Status = PackageInactive
	if err := e.state.PutPackage(pkg); err != nil {
		return err
	}
	if err := e.state.RemoveActivePackage(id); err != nil {
		return err
	}
	e.emitter.Emit(NewPackageDisabledEvent(id))
	e.log.Info("loan package disabled", "packageId", id)
	return nil
}
