package loan

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// Config is the TOML-facing shape of the module parameters. Accounts are
// hex-encoded 20-byte addresses; amounts are decimal strings so they survive
// any magnitude.
type Config struct {
	PawnShop           string `toml:"PawnShop"`
	ProfitPool         string `toml:"ProfitPool"`
	LiquidationAccount string `toml:"LiquidationAccount"`

	CollateralAssetID uint32 `toml:"CollateralAssetID"`
	LoanAssetID       uint32 `toml:"LoanAssetID"`

	GlobalLTVLimit             uint64 `toml:"GlobalLTVLimit"`
	GlobalWarningThreshold     uint64 `toml:"GlobalWarningThreshold"`
	GlobalLiquidationThreshold uint64 `toml:"GlobalLiquidationThreshold"`

	PenaltyRate        uint32 `toml:"PenaltyRate"`
	LiquidationPenalty uint32 `toml:"LiquidationPenalty"`

	MinimumCollateral string `toml:"MinimumCollateral"`
	LoanCap           string `toml:"LoanCap"`

	CurrentPrice uint64 `toml:"CurrentPrice"`
}

// Params validates the config and converts it into runtime parameters.
func (c Config) Params() (*Params, error) {
	params := &Params{
		CollateralAssetID:          c.CollateralAssetID,
		LoanAssetID:                c.LoanAssetID,
		GlobalLTVLimit:             c.GlobalLTVLimit,
		GlobalWarningThreshold:     c.GlobalWarningThreshold,
		GlobalLiquidationThreshold: c.GlobalLiquidationThreshold,
		PenaltyRate:                c.PenaltyRate,
		LiquidationPenalty:         c.LiquidationPenalty,
		CurrentPrice:               c.CurrentPrice,
	}
	var err error
	if params.PawnShop, err = parseAddress("PawnShop", c.PawnShop); err != nil {
		return nil, err
	}
	if params.ProfitPool, err = parseAddress("ProfitPool", c.ProfitPool); err != nil {
		return nil, err
	}
	if params.LiquidationAccount, err = parseAddress("LiquidationAccount", c.LiquidationAccount); err != nil {
		return nil, err
	}
	if params.MinimumCollateral, err = parseAmount("MinimumCollateral", c.MinimumCollateral); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.LoanCap) != "" {
		if params.LoanCap, err = parseAmount("LoanCap", c.LoanCap); err != nil {
			return nil, err
		}
	}
	if params.GlobalLTVLimit == 0 {
		return nil, fmt.Errorf("%w: GlobalLTVLimit must be positive", ErrInvalidParameter)
	}
	if params.GlobalWarningThreshold > params.GlobalLiquidationThreshold {
		return nil, fmt.Errorf("%w: warning threshold above liquidation threshold", ErrInvalidParameter)
	}
	if params.CurrentPrice == 0 {
		return nil, fmt.Errorf("%w: CurrentPrice must be positive", ErrInvalidParameter)
	}
	params.ensureDefaults()
	return params, nil
}

func parseAddress(field, value string) ([20]byte, error) {
	var addr [20]byte
	cleaned := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if cleaned == "" {
		return addr, fmt.Errorf("%w: %s is required", ErrInvalidParameter, field)
	}
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return addr, fmt.Errorf("%w: %s is not valid hex", ErrInvalidParameter, field)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("%w: %s must be %d bytes", ErrInvalidParameter, field, len(addr))
	}
	copy(addr[:], raw)
	return addr, nil
}

func parseAmount(field, value string) (*big.Int, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(cleaned, 10)
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s must be a non-negative decimal", ErrInvalidParameter, field)
	}
	return amount, nil
}
