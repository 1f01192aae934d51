package loan

import (
	"encoding/binary"
	"fmt"
	"math/big"
)

// Storage abstracts the subset of state manager functionality the loan store
// relies on.
type Storage interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	KVDelete(key []byte) error
	KVAppend(key []byte, value []byte) error
	KVRemove(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// engineState is the narrow view of persistent loan state the engine mutates.
type engineState interface {
	Params() (*Params, error)
	PutParams(*Params) error
	Paused() (bool, error)
	SetPaused(bool) error

	NextPackageID() (uint64, error)
	GetPackage(id uint64) (*LoanPackage, bool, error)
	PutPackage(*LoanPackage) error
	GetActivePackage(id uint64) (*LoanPackage, bool, error)
	PutActivePackage(*LoanPackage) error
	RemoveActivePackage(id uint64) error
	ActivePackageIDs() ([]uint64, error)
	PackageCount() (uint64, error)

	NextLoanID() (uint64, error)
	GetLoan(id uint64) (*Loan, bool, error)
	PutLoan(*Loan) error
	RemoveLoan(id uint64) error
	LoanIDs() ([]uint64, error)
	OwnerLoanIDs(owner [20]byte) ([]uint64, error)
	AddOwnerLoan(owner [20]byte, id uint64) error
	RemoveOwnerLoan(owner [20]byte, id uint64) error

	LiquidatingLoanIDs() ([]uint64, error)
	AddLiquidatingLoan(id uint64) error
	RemoveLiquidatingLoan(id uint64) error

	Totals() (*Totals, error)
	PutTotals(*Totals) error
}

// Store persists loan module state behind a Storage backend. Fresh stores
// hand out package and loan ids starting at 1.
type Store struct {
	state Storage
}

// NewStore wraps the storage backend in the loan state schema.
func NewStore(state Storage) *Store {
	return &Store{state: state}
}

var (
	keyParams        = []byte("loan/params")
	keyPaused        = []byte("loan/paused")
	keyNextPackageID = []byte("loan/nextPackageID")
	keyNextLoanID    = []byte("loan/nextLoanID")
	keyLoanIndex     = []byte("loan/index")
	keyLiquidating   = []byte("loan/liquidating")
	keyActiveIndex   = []byte("loan/package/active/index")
	keyTotals        = []byte("loan/totals")
)

func packageKey(id uint64) []byte {
	return []byte(fmt.Sprintf("loan/package/%d", id))
}

func activePackageKey(id uint64) []byte {
	return []byte(fmt.Sprintf("loan/package/active/%d", id))
}

func loanKey(id uint64) []byte {
	return []byte(fmt.Sprintf("loan/record/%d", id))
}

func ownerKey(owner [20]byte) []byte {
	return []byte(fmt.Sprintf("loan/owner/%x", owner))
}

func idBytes(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func idsFromBytes(raw [][]byte) []uint64 {
	ids := make([]uint64, 0, len(raw))
	for _, entry := range raw {
		if len(entry) != 8 {
			continue
		}
		ids = append(ids, binary.BigEndian.Uint64(entry))
	}
	return ids
}

func (s *Store) idList(key []byte) ([]uint64, error) {
	var raw [][]byte
	if err := s.state.KVGetList(key, &raw); err != nil {
		return nil, err
	}
	return idsFromBytes(raw), nil
}

// storedParams mirrors Params for serialization. LoanCap is carried as a
// separate presence flag because the codec cannot express a nil big integer.
type storedParams struct {
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
	HasLoanCap        bool
	LoanCap           *big.Int

	CurrentPrice uint64
}

// Params returns the stored module parameters, zero-valued when none have
// been written yet.
func (s *Store) Params() (*Params, error) {
	var stored storedParams
	ok, err := s.state.KVGet(keyParams, &stored)
	if err != nil {
		return nil, err
	}
	if !ok {
		params := &Params{}
		params.ensureDefaults()
		return params, nil
	}
	params := &Params{
		PawnShop:                   stored.PawnShop,
		ProfitPool:                 stored.ProfitPool,
		LiquidationAccount:         stored.LiquidationAccount,
		CollateralAssetID:          stored.CollateralAssetID,
		LoanAssetID:                stored.LoanAssetID,
		GlobalLTVLimit:             stored.GlobalLTVLimit,
		GlobalWarningThreshold:     stored.GlobalWarningThreshold,
		GlobalLiquidationThreshold: stored.GlobalLiquidationThreshold,
		PenaltyRate:                stored.PenaltyRate,
		LiquidationPenalty:         stored.LiquidationPenalty,
		MinimumCollateral:          stored.MinimumCollateral,
		CurrentPrice:               stored.CurrentPrice,
	}
	if stored.HasLoanCap {
		params.LoanCap = stored.LoanCap
	}
	params.ensureDefaults()
	return params, nil
}

// PutParams persists the module parameters.
func (s *Store) PutParams(params *Params) error {
	if params == nil {
		return ErrInvalidParameter
	}
	clone := params.Clone()
	clone.ensureDefaults()
	stored := storedParams{
		PawnShop:                   clone.PawnShop,
		ProfitPool:                 clone.ProfitPool,
		LiquidationAccount:         clone.LiquidationAccount,
		CollateralAssetID:          clone.CollateralAssetID,
		LoanAssetID:                clone.LoanAssetID,
		GlobalLTVLimit:             clone.GlobalLTVLimit,
		GlobalWarningThreshold:     clone.GlobalWarningThreshold,
		GlobalLiquidationThreshold: clone.GlobalLiquidationThreshold,
		PenaltyRate:                clone.PenaltyRate,
		LiquidationPenalty:         clone.LiquidationPenalty,
		MinimumCollateral:          clone.MinimumCollateral,
		CurrentPrice:               clone.CurrentPrice,
		LoanCap:                    big.NewInt(0),
	}
	if clone.LoanCap != nil {
		stored.HasLoanCap = true
		stored.LoanCap = clone.LoanCap
	}
	return s.state.KVPut(keyParams, &stored)
}

// Paused reports whether the module pause switch is set.
func (s *Store) Paused() (bool, error) {
	var paused bool
	ok, err := s.state.KVGet(keyPaused, &paused)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	return paused, nil
}

// SetPaused flips the module pause switch.
func (s *Store) SetPaused(paused bool) error {
	return s.state.KVPut(keyPaused, paused)
}

func (s *Store) nextID(key []byte) (uint64, error) {
	var next uint64
	ok, err := s.state.KVGet(key, &next)
	if err != nil {
		return 0, err
	}
	if !ok {
		next = 1
	}
	if err := s.state.KVPut(key, next+1); err != nil {
		return 0, err
	}
	return next, nil
}

// NextPackageID allocates the next package id.
func (s *Store) NextPackageID() (uint64, error) {
	return s.nextID(keyNextPackageID)
}

// NextLoanID allocates the next loan id.
func (s *Store) NextLoanID() (uint64, error) {
	return s.nextID(keyNextLoanID)
}

// PackageCount returns the number of packages created so far.
func (s *Store) PackageCount() (uint64, error) {
	var next uint64
	ok, err := s.state.KVGet(keyNextPackageID, &next)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return next - 1, nil
}

// GetPackage loads a package by id.
func (s *Store) GetPackage(id uint64) (*LoanPackage, bool, error) {
	var pkg LoanPackage
	ok, err := s.state.KVGet(packageKey(id), &pkg)
	if err != nil || !ok {
		return nil, false, err
	}
	return &pkg, true, nil
}

// PutPackage persists a package under its id.
func (s *Store) PutPackage(pkg *LoanPackage) error {
	if pkg == nil {
		return ErrInvalidParameter
	}
	return s.state.KVPut(packageKey(pkg.ID), pkg)
}

// GetActivePackage loads a package from the active set.
func (s *Store) GetActivePackage(id uint64) (*LoanPackage, bool, error) {
	var pkg LoanPackage
	ok, err := s.state.KVGet(activePackageKey(id), &pkg)
	if err != nil || !ok {
		return nil, false, err
	}
	return &pkg, true, nil
}

// PutActivePackage records a package in the active set.
func (s *Store) PutActivePackage(pkg *LoanPackage) error {
	if pkg == nil {
		return ErrInvalidParameter
	}
	if err := s.state.KVPut(activePackageKey(pkg.ID), pkg); err != nil {
		return err
	}
	return s.state.KVAppend(keyActiveIndex, idBytes(pkg.ID))
}

// RemoveActivePackage drops a package from the active set.
func (s *Store) RemoveActivePackage(id uint64) error {
	if err := s.state.KVDelete(activePackageKey(id)); err != nil {
		return err
	}
	return s.state.KVRemove(keyActiveIndex, idBytes(id))
}

// ActivePackageIDs lists the ids of packages accepting new loans.
func (s *Store) ActivePackageIDs() ([]uint64, error) {
	return s.idList(keyActiveIndex)
}

// GetLoan loads a loan by id.
func (s *Store) GetLoan(id uint64) (*Loan, bool, error) {
	var loan Loan
	ok, err := s.state.KVGet(loanKey(id), &loan)
	if err != nil || !ok {
		return nil, false, err
	}
	return &loan, true, nil
}

// PutLoan persists a loan and keeps it indexed. Re-putting an existing id is
// an update; the index append deduplicates.
func (s *Store) PutLoan(loan *Loan) error {
	if loan == nil {
		return ErrInvalidParameter
	}
	if err := s.state.KVPut(loanKey(loan.ID), loan); err != nil {
		return err
	}
	return s.state.KVAppend(keyLoanIndex, idBytes(loan.ID))
}

// RemoveLoan deletes a loan record and its index entry.
func (s *Store) RemoveLoan(id uint64) error {
	if err := s.state.KVDelete(loanKey(id)); err != nil {
		return err
	}
	return s.state.KVRemove(keyLoanIndex, idBytes(id))
}

// LoanIDs lists every live loan id in insertion order.
func (s *Store) LoanIDs() ([]uint64, error) {
	return s.idList(keyLoanIndex)
}

// OwnerLoanIDs lists the loan ids held by the owner.
func (s *Store) OwnerLoanIDs(owner [20]byte) ([]uint64, error) {
	return s.idList(ownerKey(owner))
}

// AddOwnerLoan indexes a loan id under its owner.
func (s *Store) AddOwnerLoan(owner [20]byte, id uint64) error {
	return s.state.KVAppend(ownerKey(owner), idBytes(id))
}

// RemoveOwnerLoan drops a loan id from the owner index.
func (s *Store) RemoveOwnerLoan(owner [20]byte, id uint64) error {
	return s.state.KVRemove(ownerKey(owner), idBytes(id))
}

// LiquidatingLoanIDs lists loans flagged for liquidation.
func (s *Store) LiquidatingLoanIDs() ([]uint64, error) {
	return s.idList(keyLiquidating)
}

// AddLiquidatingLoan flags a loan id as liquidating.
func (s *Store) AddLiquidatingLoan(id uint64) error {
	return s.state.KVAppend(keyLiquidating, idBytes(id))
}

// RemoveLiquidatingLoan clears the liquidating flag for a loan id.
func (s *Store) RemoveLiquidatingLoan(id uint64) error {
	return s.state.KVRemove(keyLiquidating, idBytes(id))
}

// Totals returns the aggregate counters, zeroed when unset.
func (s *Store) Totals() (*Totals, error) {
	var totals Totals
	ok, err := s.state.KVGet(keyTotals, &totals)
	if err != nil {
		return nil, err
	}
	if !ok {
		return newTotals(), nil
	}
	return &totals, nil
}

// PutTotals persists the aggregate counters.
func (s *Store) PutTotals(totals *Totals) error {
	if totals == nil || totals.TotalLoan == nil || totals.TotalCollateral == nil || totals.TotalProfit == nil {
		return ErrInvalidParameter
	}
	if totals.TotalLoan.Sign() < 0 || totals.TotalCollateral.Sign() < 0 || totals.TotalProfit.Sign() < 0 {
		return ErrInvalidParameter
	}
	return s.state.KVPut(keyTotals, totals)
}
