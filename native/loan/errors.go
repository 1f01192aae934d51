package loan

import "errors"

var (
	// Wiring errors.
	ErrNilState  = errors.New("loan engine: state not configured")
	ErrNilLedger = errors.New("loan engine: asset ledger not configured")

	// Validation errors, rejected before any mutation.
	ErrInvalidParameter = errors.New("loan engine: invalid parameter")
	ErrBothAmountsZero  = errors.New("loan engine: collateral and loan amounts are both zero")

	// Lookup errors.
	ErrPackageNotFound = errors.New("loan engine: package not found")
	ErrLoanNotFound    = errors.New("loan engine: loan not found")

	// Authorisation errors.
	ErrNotOwner              = errors.New("loan engine: caller does not own the loan")
	ErrNotLiquidationAccount = errors.New("loan engine: liquidation account only")

	// Financial policy errors.
	ErrOverLTVLimit       = errors.New("loan engine: over LTV limit")
	ErrInsufficientCredit = errors.New("loan engine: short of available credit")
	ErrInterestTooHigh    = errors.New("loan engine: interest is too high")
	ErrReachLoanCap       = errors.New("loan engine: reach loan cap")
	ErrBelowMinLoan       = errors.New("loan engine: below package minimum loan amount")
	ErrBelowMinCollateral = errors.New("loan engine: below minimum collateral amount")

	// Loan state errors.
	ErrPackageInactive   = errors.New("loan engine: package is inactive")
	ErrLoanInLiquidation = errors.New("loan engine: loan is in liquidation")
	ErrNotInLiquidation  = errors.New("loan engine: loan is not in liquidation")

	// Arithmetic guards.
	ErrZeroCollateralValue = errors.New("loan engine: collateral value is zero")
	ErrValueOverflow       = errors.New("loan engine: computed ratio overflows")
)
