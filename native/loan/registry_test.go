package loan

import (
	"errors"
	"math/big"
	"testing"
)

func TestCreatePackageValidation(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.engine.CreatePackage(0, 100, big.NewInt(1)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("zero terms: %v", err)
	}
	if _, err := env.engine.CreatePackage(10, 0, big.NewInt(1)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("zero rate: %v", err)
	}
	if _, err := env.engine.CreatePackage(10, uint32(InterestRatePrecision), big.NewInt(1)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("rate at precision: %v", err)
	}
	if _, err := env.engine.CreatePackage(10, 100, big.NewInt(0)); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("zero minimum: %v", err)
	}
}

func TestCreatePackageSnapshotsAssets(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPackage(t)

	pkg, err := env.engine.Package(id)
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	if pkg.CollateralAssetID != collateralAssetID || pkg.LoanAssetID != loanAssetID {
		t.Fatalf("asset pairing not snapshotted: %+v", pkg)
	}
	if pkg.Status != PackageActive {
		t.Fatalf("status = %v, want active", pkg.Status)
	}

	// Changing the module asset after the fact must not touch the package.
	if err := env.engine.SetLoanAsset(9); err != nil {
		t.Fatalf("set loan asset: %v", err)
	}
	pkg, err = env.engine.Package(id)
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	if pkg.LoanAssetID != loanAssetID {
		t.Fatalf("package asset mutated: %d", pkg.LoanAssetID)
	}
}

func TestDisablePackage(t *testing.T) {
	env := newTestEnv(t)
	id := env.createPackage(t)

	active, err := env.engine.ActivePackages()
	if err != nil || len(active) != 1 {
		t.Fatalf("active = %d err = %v", len(active), err)
	}

	if err := env.engine.DisablePackage(id); err != nil {
		t.Fatalf("disable: %v", err)
	}
	active, err = env.engine.ActivePackages()
	if err != nil || len(active) != 0 {
		t.Fatalf("active after disable = %d err = %v", len(active), err)
	}
	pkg, err := env.engine.Package(id)
	if err != nil {
		t.Fatalf("package: %v", err)
	}
	if pkg.Status != PackageInactive {
		t.Fatalf("status = %v, want inactive", pkg.Status)
	}

	// Disabling again is a no-op, unknown ids fail.
	if err := env.engine.DisablePackage(id); err != nil {
		t.Fatalf("re-disable: %v", err)
	}
	if err := env.engine.DisablePackage(99); !errors.Is(err, ErrPackageNotFound) {
		t.Fatalf("expected ErrPackageNotFound, got %v", err)
	}
	if !env.lastEventOfType(EventTypePackageDisabled) {
		t.Fatalf("missing %s event", EventTypePackageDisabled)
	}
}

func TestPackagesListing(t *testing.T) {
	env := newTestEnv(t)
	env.createPackage(t)
	second, err := env.engine.CreatePackage(30, 50, big.NewInt(10))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if second != 2 {
		t.Fatalf("second package id = %d, want 2", second)
	}

	all, err := env.engine.Packages()
	if err != nil {
		t.Fatalf("packages: %v", err)
	}
	if len(all) != 2 || all[0].ID != 1 || all[1].ID != 2 {
		t.Fatalf("packages = %+v", all)
	}
}
