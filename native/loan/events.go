package loan

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"github.com/definex/definex-libs/core/types"
)

const (
	EventTypePackageCreated  = "loan.package_created"
	EventTypePackageDisabled = "loan.package_disabled"
	EventTypeLoanCreated     = "loan.created"
	EventTypeLoanDrawn       = "loan.drawn"
	EventTypeLoanRepaid      = "loan.repaid"
	EventTypeCollateralAdded = "loan.collateral_added"
	EventTypeLoanWarning     = "loan.warning"
	EventTypeLoanExtended    = "loan.extended"
	EventTypeLoanExpired     = "loan.expired"
	EventTypeLoanLiquidating = "loan.liquidating"
	EventTypeLoanLiquidated  = "loan.liquidated"
)

// NewPackageCreatedEvent returns the canonical payload for a newly published
// loan package.
func NewPackageCreatedEvent(pkg *LoanPackage) *types.Event {
	attrs := make(map[string]string)
	if pkg != nil {
		attrs["packageId"] = strconv.FormatUint(pkg.ID, 10)
		attrs["terms"] = strconv.FormatUint(uint64(pkg.Terms), 10)
		attrs["interestRateHourly"] = strconv.FormatUint(uint64(pkg.InterestRateHourly), 10)
		if pkg.Min != nil {
			attrs["min"] = pkg.Min.String()
		}
	}
	return &types.Event{Type: EventTypePackageCreated, Attributes: attrs}
}

// NewPackageDisabledEvent returns the payload emitted when a package stops
// accepting new loans.
func NewPackageDisabledEvent(id uint64) *types.Event {
	return &types.Event{Type: EventTypePackageDisabled, Attributes: map[string]string{
		"packageId": strconv.FormatUint(id, 10),
	}}
}

// NewLoanCreatedEvent returns the payload for a freshly opened loan.
func NewLoanCreatedEvent(l *Loan) *types.Event {
	return newLoanEvent(EventTypeLoanCreated, l)
}

// NewLoanDrawnEvent returns the payload emitted when additional principal is
// drawn against an existing loan.
func NewLoanDrawnEvent(l *Loan, amount *big.Int) *types.Event {
	evt := newLoanEvent(EventTypeLoanDrawn, l)
	if amount != nil {
		evt.Attributes["amount"] = amount.String()
	}
	return evt
}

// NewLoanRepaidEvent returns the payload emitted when a loan is settled in
// full and closed.
func NewLoanRepaidEvent(l *Loan) *types.Event {
	return newLoanEvent(EventTypeLoanRepaid, l)
}

// NewCollateralAddedEvent returns the payload emitted when an owner tops up
// collateral.
func NewCollateralAddedEvent(l *Loan, amount *big.Int) *types.Event {
	evt := newLoanEvent(EventTypeCollateralAdded, l)
	if amount != nil {
		evt.Attributes["amount"] = amount.String()
	}
	return evt
}

// NewWarningEvent returns the advisory payload emitted when a loan crosses
// the warning threshold.
func NewWarningEvent(id uint64, ltv uint64) *types.Event {
	return &types.Event{Type: EventTypeLoanWarning, Attributes: map[string]string{
		"loanId": strconv.FormatUint(id, 10),
		"ltv":    strconv.FormatUint(ltv, 10),
	}}
}

// NewExtendedEvent returns the payload emitted when a loan enters the grace
// window past its primary due date.
func NewExtendedEvent(l *Loan) *types.Event {
	return newLoanEvent(EventTypeLoanExtended, l)
}

// NewExpiredEvent returns the payload emitted when a loan passes its extended
// due date and is rolled into a new term.
func NewExpiredEvent(l *Loan) *types.Event {
	return newLoanEvent(EventTypeLoanExpired, l)
}

// NewLiquidatingEvent returns the payload emitted when a loan is flagged for
// liquidation.
func NewLiquidatingEvent(l *Loan) *types.Event {
	return newLoanEvent(EventTypeLoanLiquidating, l)
}

// NewLiquidatedEvent returns the payload emitted once auction proceeds have
// been settled and the loan closed.
func NewLiquidatedEvent(l *Loan, auctionBalance *big.Int) *types.Event {
	evt := newLoanEvent(EventTypeLoanLiquidated, l)
	if auctionBalance != nil {
		evt.Attributes["auctionBalance"] = auctionBalance.String()
	}
	return evt
}

func newLoanEvent(eventType string, l *Loan) *types.Event {
	attrs := make(map[string]string)
	if l == nil {
		return &types.Event{Type: eventType, Attributes: attrs}
	}
	attrs["loanId"] = strconv.FormatUint(l.ID, 10)
	attrs["packageId"] = strconv.FormatUint(l.PackageID, 10)
	attrs["owner"] = hex.EncodeToString(l.Owner[:])
	attrs["due"] = strconv.FormatUint(l.Due, 10)
	attrs["dueExtend"] = strconv.FormatUint(l.DueExtend, 10)
	attrs["health"] = l.Health.State.String()
	attrs["ltv"] = strconv.FormatUint(l.Health.LTV, 10)
	if l.CollateralOriginal != nil {
		attrs["collateralOriginal"] = l.CollateralOriginal.String()
	}
	if l.CollateralAvailable != nil {
		attrs["collateralAvailable"] = l.CollateralAvailable.String()
	}
	if l.LoanBalanceTotal != nil {
		attrs["loanBalanceTotal"] = l.LoanBalanceTotal.String()
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
