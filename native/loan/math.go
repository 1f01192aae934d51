package loan

import "math/big"

// Precision constants shared by every ratio computed in this package. All
// scaled divisions truncate toward zero (big.Int.Quo), consistently.
const (
	// InterestRatePrecision scales the hourly interest rate carried by a
	// loan package.
	InterestRatePrecision uint64 = 100_000_000
	// LTVPrecision scales every loan-to-value ratio and penalty rate.
	LTVPrecision uint64 = 10_000
	// PricePrecision scales the oracle price of the collateral asset.
	PricePrecision uint64 = 10_000
	// TermsUnitSeconds is one package terms unit, a.k.a one day.
	TermsUnitSeconds uint64 = 86_400
	// DueExtendUnits is the grace window appended after the primary due
	// date, in terms units.
	DueExtendUnits uint64 = 2
)

var (
	interestRatePrec = new(big.Int).SetUint64(InterestRatePrecision)
	ltvPrec          = new(big.Int).SetUint64(LTVPrecision)
	pricePrec        = new(big.Int).SetUint64(PricePrecision)
)

// ComputeLTV returns loan * PricePrecision * LTVPrecision / (collateral *
// price). Callers must guard against zero collateral and zero price; both fail
// with ErrZeroCollateralValue.
func ComputeLTV(collateral, loanBalance *big.Int, price uint64) (uint64, error) {
	if collateral == nil || collateral.Sign() == 0 || price == 0 {
		return 0, ErrZeroCollateralValue
	}
	if loanBalance == nil || loanBalance.Sign() == 0 {
		return 0, nil
	}
	num := new(big.Int).Mul(loanBalance, pricePrec)
	num.Mul(num, ltvPrec)
	den := new(big.Int).Mul(collateral, new(big.Int).SetUint64(price))
	num.Quo(num, den)
	if !num.IsUint64() {
		return 0, ErrValueOverflow
	}
	return num.Uint64(), nil
}

// RequiredCollateral returns the collateral needed to keep a loan of
// loanAmount at or under maxLTV given the current price.
func RequiredCollateral(loanAmount *big.Int, maxLTV, price uint64) (*big.Int, error) {
	if maxLTV == 0 || price == 0 {
		return nil, ErrZeroCollateralValue
	}
	num := new(big.Int).Mul(loanAmount, ltvPrec)
	num.Mul(num, pricePrec)
	den := new(big.Int).Mul(new(big.Int).SetUint64(price), new(big.Int).SetUint64(maxLTV))
	return num.Quo(num, den), nil
}

// MaxLoanAmount returns the largest loan the collateral can carry at maxLTV
// given the current price.
func MaxLoanAmount(collateral *big.Int, maxLTV, price uint64) *big.Int {
	num := new(big.Int).Mul(collateral, new(big.Int).SetUint64(price))
	num.Mul(num, new(big.Int).SetUint64(maxLTV))
	den := new(big.Int).Mul(ltvPrec, pricePrec)
	return num.Quo(num, den)
}

// ExpirationPenalty returns the collateral cut applied when a loan passes its
// extended due date: collateralAvailable * penaltyRate / LTVPrecision.
func ExpirationPenalty(collateralAvailable *big.Int, penaltyRate uint32) *big.Int {
	if collateralAvailable == nil || collateralAvailable.Sign() == 0 || penaltyRate == 0 {
		return big.NewInt(0)
	}
	penalty := new(big.Int).Mul(collateralAvailable, new(big.Int).SetUint64(uint64(penaltyRate)))
	return penalty.Quo(penalty, ltvPrec)
}
