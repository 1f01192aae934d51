package loan

import "math/big"

// Params is the runtime configuration of the loan module. Thresholds and
// rates are scaled by LTVPrecision; CurrentPrice by PricePrecision. A nil
// LoanCap means the aggregate principal is uncapped.
type Params struct {
	PawnShop           [20]byte
	ProfitPool         [20]byte
	LiquidationAccount [20]byte

	CollateralAssetID uint32
	LoanAssetID       uint32

	GlobalLTVLimit             uint64
	GlobalWarningThreshold     uint64
	GlobalLiquidationThreshold uint64

	PenaltyRate        uint32
	LiquidationPenalty uint32

	MinimumCollateral *big.Int
	LoanCap           *big.Int

	CurrentPrice uint64
}

// Clone returns a deep copy of the params.
func (p *Params) Clone() *Params {
	if p == nil {
		return nil
	}
	clone := *p
	if p.MinimumCollateral != nil {
		clone.MinimumCollateral = new(big.Int).Set(p.MinimumCollateral)
	}
	if p.LoanCap != nil {
		clone.LoanCap = new(big.Int).Set(p.LoanCap)
	}
	return &clone
}

func (p *Params) ensureDefaults() {
	if p.MinimumCollateral == nil {
		p.MinimumCollateral = big.NewInt(0)
	}
}
