package loan

import "math/big"

// LoanPackageStatus tracks whether a package accepts new loans.
type LoanPackageStatus uint8

const (
	PackageActive LoanPackageStatus = iota
	PackageInactive
)

func (s LoanPackageStatus) String() string {
	switch s {
	case PackageActive:
		return "active"
	case PackageInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// HealthState is the classification assigned to a loan by the health scanner.
type HealthState uint8

const (
	HealthWell HealthState = iota
	HealthWarning
	HealthLiquidating
	HealthExtended
	HealthExpired
)

func (s HealthState) String() string {
	switch s {
	case HealthWell:
		return "well"
	case HealthWarning:
		return "warning"
	case HealthLiquidating:
		return "liquidating"
	case HealthExtended:
		return "extended"
	case HealthExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// LoanHealth pairs the scanner classification with the LTV observed when it
// was assigned.
type LoanHealth struct {
	State HealthState
	LTV   uint64
}

// LoanPackage is an immutable product definition. Terms is the loan duration
// in terms units and InterestRateHourly the up-front rate scaled by
// InterestRatePrecision.
type LoanPackage struct {
	ID                 uint64
	Status             LoanPackageStatus
	Terms              uint32
	Min                *big.Int
	InterestRateHourly uint32
	CollateralAssetID  uint32
	LoanAssetID        uint32
}

// Interest returns the up-front interest charged on a principal amount:
// amount * terms * 24 * rate / InterestRatePrecision, truncating.
func (p *LoanPackage) Interest(amount *big.Int) *big.Int {
	if p == nil || amount == nil || amount.Sign() <= 0 {
		return big.NewInt(0)
	}
	hours := uint64(p.Terms) * 24
	interest := new(big.Int).Mul(amount, new(big.Int).SetUint64(hours))
	interest.Mul(interest, new(big.Int).SetUint64(uint64(p.InterestRateHourly)))
	return interest.Quo(interest, interestRatePrec)
}

// Dues returns the primary and extended due timestamps, in unix milliseconds,
// for a loan opened at nowMs under this package.
func (p *LoanPackage) Dues(nowMs uint64) (due uint64, dueExtend uint64) {
	termMs := uint64(p.Terms) * TermsUnitSeconds * 1000
	due = nowMs + termMs
	dueExtend = due + DueExtendUnits*TermsUnitSeconds*1000
	return due, dueExtend
}

// Clone returns a deep copy of the package.
func (p *LoanPackage) Clone() *LoanPackage {
	if p == nil {
		return nil
	}
	clone := *p
	if p.Min != nil {
		clone.Min = new(big.Int).Set(p.Min)
	}
	return &clone
}

// Loan is a live borrowing position. Due and DueExtend are unix millisecond
// timestamps. CollateralAvailable never exceeds CollateralOriginal; penalties
// shave it while the original stays fixed for reporting.
type Loan struct {
	ID                  uint64
	PackageID           uint64
	Owner               [20]byte
	Due                 uint64
	DueExtend           uint64
	CollateralOriginal  *big.Int
	CollateralAvailable *big.Int
	LoanBalanceTotal    *big.Int
	Health              LoanHealth
}

// Clone returns a deep copy of the loan.
func (l *Loan) Clone() *Loan {
	if l == nil {
		return nil
	}
	clone := *l
	if l.CollateralOriginal != nil {
		clone.CollateralOriginal = new(big.Int).Set(l.CollateralOriginal)
	}
	if l.CollateralAvailable != nil {
		clone.CollateralAvailable = new(big.Int).Set(l.CollateralAvailable)
	}
	if l.LoanBalanceTotal != nil {
		clone.LoanBalanceTotal = new(big.Int).Set(l.LoanBalanceTotal)
	}
	return &clone
}

// IsLiquidating reports whether the loan has been flagged for liquidation.
func (l *Loan) IsLiquidating() bool {
	return l != nil && l.Health.State == HealthLiquidating
}

// ExpirationInterest converts the package interest on the outstanding balance
// into collateral units at the given price.
func (l *Loan) ExpirationInterest(pkg *LoanPackage, price uint64) (*big.Int, error) {
	if price == 0 {
		return nil, ErrZeroCollateralValue
	}
	interest := pkg.Interest(l.LoanBalanceTotal)
	interest.Mul(interest, pricePrec)
	return interest.Quo(interest, new(big.Int).SetUint64(price)), nil
}

// ExpireThenExtend applies an expiration fee to the loan in place and rolls
// the due dates forward one full package term from nowMs. The fee is floored
// at the available collateral; the loan never goes negative.
func (l *Loan) ExpireThenExtend(pkg *LoanPackage, nowMs uint64, penalty, interest *big.Int) {
	fee := new(big.Int).Add(penalty, interest)
	if fee.Cmp(l.CollateralAvailable) > 0 {
		l.CollateralAvailable = big.NewInt(0)
	} else {
		l.CollateralAvailable = new(big.Int).Sub(l.CollateralAvailable, fee)
	}
	l.Due, l.DueExtend = pkg.Dues(nowMs)
}

// CollateralLoan is a normalized (collateral, loan) amount pair satisfying the
// global LTV limit at the current price.
type CollateralLoan struct {
	CollateralAmount *big.Int
	LoanAmount       *big.Int
}

// Totals are the module-wide aggregate counters.
type Totals struct {
	TotalLoan       *big.Int
	TotalCollateral *big.Int
	TotalProfit     *big.Int
}

// Clone returns a deep copy of the totals.
func (t *Totals) Clone() *Totals {
	if t == nil {
		return nil
	}
	return &Totals{
		TotalLoan:       new(big.Int).Set(t.TotalLoan),
		TotalCollateral: new(big.Int).Set(t.TotalCollateral),
		TotalProfit:     new(big.Int).Set(t.TotalProfit),
	}
}

func newTotals() *Totals {
	return &Totals{
		TotalLoan:       big.NewInt(0),
		TotalCollateral: big.NewInt(0),
		TotalProfit:     big.NewInt(0),
	}
}
