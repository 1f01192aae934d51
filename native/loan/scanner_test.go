package loan

import (
	"math/big"
	"testing"
)

const dayMs = int64(TermsUnitSeconds * 1000)

func TestScanWellLoanUntouched(t *testing.T) {
	env := newTestEnv(t)
	before := env.openScenarioLoan(t)

	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	after, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if after.Health.State != HealthWell || after.Due != before.Due {
		t.Fatalf("well loan mutated: %+v", after.Health)
	}
}

func TestScanFlagsLiquidating(t *testing.T) {
	env := newTestEnv(t)
	env.openScenarioLoan(t)

	if err := env.engine.SetPrice(1); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	record, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if record.Health.State != HealthLiquidating {
		t.Fatalf("health = %v, want liquidating", record.Health.State)
	}
	flagged, err := env.engine.LiquidatingLoans()
	if err != nil {
		t.Fatalf("liquidating: %v", err)
	}
	if len(flagged) != 1 || flagged[0].ID != 1 {
		t.Fatalf("liquidating set = %v, want exactly loan 1", flagged)
	}
	if !env.lastEventOfType(EventTypeLoanLiquidating) {
		t.Fatalf("missing %s event", EventTypeLoanLiquidating)
	}

	// A flagged loan is excluded from subsequent scans.
	env.events.Reset()
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if env.lastEventOfType(EventTypeLoanLiquidating) {
		t.Fatalf("flagged loan rescanned")
	}
}

func TestScanWarning(t *testing.T) {
	env := newTestEnv(t)
	env.openScenarioLoan(t)

	// 4000_00000000 * 1e8 / (1_00000000 * 47058823) truncates to 8500.
	if err := env.engine.SetPrice(47058823); err != nil {
		t.Fatalf("set price: %v", err)
	}
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	record, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if record.Health.State != HealthWarning || record.Health.LTV != 8500 {
		t.Fatalf("health = %+v, want warning at 8500", record.Health)
	}
	if !env.lastEventOfType(EventTypeLoanWarning) {
		t.Fatalf("missing %s event", EventTypeLoanWarning)
	}
	env.requireReconciled(t)
}

func TestScanExtendedNotice(t *testing.T) {
	env := newTestEnv(t)
	env.openScenarioLoan(t)

	env.advance(t, 11*dayMs) // past due, inside the two-day grace window
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	record, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if record.Health.State != HealthExtended {
		t.Fatalf("health = %v, want extended", record.Health.State)
	}
	if record.CollateralAvailable.Cmp(big.NewInt(1_00000000)) != 0 {
		t.Fatalf("grace notice must not charge collateral: %s", record.CollateralAvailable)
	}
	if !env.lastEventOfType(EventTypeLoanExtended) {
		t.Fatalf("missing %s event", EventTypeLoanExtended)
	}
}

func TestScanExpiredExtendsWithPenalty(t *testing.T) {
	env := newTestEnv(t)
	env.openScenarioLoan(t)

	env.advance(t, 13*dayMs) // past dueExtend
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	record, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	// penalty = 1_00000000 * 200 / 1e4; interest = 96000000 * 1e4 / 8000_0000.
	wantCollateral := int64(1_00000000 - 2000000 - 12000)
	if record.CollateralAvailable.Cmp(big.NewInt(wantCollateral)) != 0 {
		t.Fatalf("collateral = %s, want %d", record.CollateralAvailable, wantCollateral)
	}
	if record.Health.State != HealthExpired {
		t.Fatalf("health = %v, want expired", record.Health.State)
	}
	wantDue := uint64(env.now) + 10*TermsUnitSeconds*1000
	if record.Due != wantDue {
		t.Fatalf("due = %d, want %d", record.Due, wantDue)
	}

	// The accumulated fee is swept to the profit pool in collateral units.
	env.requireBalance(t, collateralAssetID, profitPool, 2012000)
	env.requireBalance(t, collateralAssetID, pawnShop, 1_00000000-2012000)
	env.requireReconciled(t)
	if !env.lastEventOfType(EventTypeLoanExpired) {
		t.Fatalf("missing %s event", EventTypeLoanExpired)
	}
}

func TestScanIdempotentWithinCycle(t *testing.T) {
	env := newTestEnv(t)
	env.openScenarioLoan(t)
	env.advance(t, 13*dayMs)

	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	first, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	firstTotals, err := env.engine.TotalsView()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}

	// Same clock reading, same price: the second pass must not re-penalize.
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("second scan: %v", err)
	}
	second, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if second.CollateralAvailable.Cmp(first.CollateralAvailable) != 0 {
		t.Fatalf("double penalization: %s then %s", first.CollateralAvailable, second.CollateralAvailable)
	}
	if second.Due != first.Due {
		t.Fatalf("due moved again: %d then %d", first.Due, second.Due)
	}
	secondTotals, err := env.engine.TotalsView()
	if err != nil {
		t.Fatalf("totals: %v", err)
	}
	if secondTotals.TotalCollateral.Cmp(firstTotals.TotalCollateral) != 0 {
		t.Fatalf("totals drifted: %s then %s", firstTotals.TotalCollateral, secondTotals.TotalCollateral)
	}
	env.requireBalance(t, collateralAssetID, profitPool, 2012000)
}

func TestScanExpiredEscalatesToLiquidating(t *testing.T) {
	env := newTestEnv(t)
	env.openScenarioLoan(t)
	// A 50% expiration penalty pushes the post-charge LTV past the
	// liquidation threshold.
	if err := env.engine.SetPenaltyRate(5000); err != nil {
		t.Fatalf("set penalty rate: %v", err)
	}

	env.advance(t, 13*dayMs)
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	record, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if record.Health.State != HealthLiquidating {
		t.Fatalf("health = %v, want liquidating", record.Health.State)
	}
	// Escalation discards the charge: collateral stays intact and nothing
	// is swept.
	if record.CollateralAvailable.Cmp(big.NewInt(1_00000000)) != 0 {
		t.Fatalf("escalated loan charged: %s", record.CollateralAvailable)
	}
	env.requireBalance(t, collateralAssetID, profitPool, 0)
	env.requireReconciled(t)
}

func TestScanExpiredWarningStallsExtension(t *testing.T) {
	env := newTestEnv(t)
	before := env.openScenarioLoan(t)
	// A 40% penalty lands the post-charge LTV between the warning and
	// liquidation thresholds; the extension must not persist.
	if err := env.engine.SetPenaltyRate(4000); err != nil {
		t.Fatalf("set penalty rate: %v", err)
	}

	env.advance(t, 13*dayMs)
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	record, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if record.Health.State != HealthWarning {
		t.Fatalf("health = %v, want warning", record.Health.State)
	}
	if record.CollateralAvailable.Cmp(big.NewInt(1_00000000)) != 0 {
		t.Fatalf("warning path charged collateral: %s", record.CollateralAvailable)
	}
	if record.Due != before.Due {
		t.Fatalf("warning path extended due date: %d", record.Due)
	}
	env.requireBalance(t, collateralAssetID, profitPool, 0)
	if !env.lastEventOfType(EventTypeLoanWarning) {
		t.Fatalf("missing %s event", EventTypeLoanWarning)
	}
}

func TestScanSkippedWhilePaused(t *testing.T) {
	env := newTestEnv(t)
	env.openScenarioLoan(t)
	env.advance(t, 13*dayMs)

	if err := env.engine.Pause(); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := env.engine.RunCycle(); err != nil {
		t.Fatalf("scan while paused: %v", err)
	}
	record, err := env.engine.Loan(1)
	if err != nil {
		t.Fatalf("loan: %v", err)
	}
	if record.CollateralAvailable.Cmp(big.NewInt(1_00000000)) != 0 {
		t.Fatalf("paused scan mutated loan: %s", record.CollateralAvailable)
	}
}
