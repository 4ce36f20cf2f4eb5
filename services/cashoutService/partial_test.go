package cashoutService

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/gorm"

	"stormStakes/models"
)

func pendingWager(id uint, stake int64, odds float64) *models.Wager {
	return &models.Wager{
		Model:    gorm.Model{ID: id, CreatedAt: time.Now()},
		PublicID: "w-partial",
		UserID:   1,
		Kind:     models.WagerKindSingle,
		Stake:    stake,
		Odds:     odds,
		Result:   models.ResultPending,
	}
}

func TestApplyPartialHalfAtSeventyPercent(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wagers`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `partial_cashouts`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// potentialWin = 1000, valuated at 70% -> 700; 50% partial.
	wager := pendingWager(3, 500, 2.0)
	entry, err := ApplyPartial(db, wager, 700, 50, time.Now())
	if err != nil {
		t.Fatal(err)
	}

	if entry.WalletAmount != 350 {
		t.Errorf("expected payout 350, got %d", entry.WalletAmount)
	}
	if entry.RemainingStake != 250 {
		t.Errorf("expected remaining stake 250, got %d", entry.RemainingStake)
	}
	if wager.Stake != 250 {
		t.Errorf("wager stake should be reduced in memory, got %d", wager.Stake)
	}
	if wager.Result != models.ResultPending {
		t.Errorf("wager should stay pending, got %s", wager.Result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestApplyPartialFloorsOddAmounts(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wagers`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `partial_cashouts`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	wager := pendingWager(3, 333, 1.5)
	entry, err := ApplyPartial(db, wager, 101, 33, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if entry.WalletAmount != 33 { // floor(101*33/100)
		t.Errorf("expected payout 33, got %d", entry.WalletAmount)
	}
	if entry.RemainingStake != 223 { // floor(333*67/100)
		t.Errorf("expected remaining stake 223, got %d", entry.RemainingStake)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestApplyPartialDrainedStakeClosesWager(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `wagers`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO `partial_cashouts`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("UPDATE `users`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT COALESCE\\(SUM\\(wallet_amount\\), 0\\)").
		WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow(99))
	mock.ExpectExec("UPDATE `wagers`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Stake 1 wagers drain to zero on any partial: floor(1*(100-99)/100) = 0.
	wager := pendingWager(3, 1, 2.0)
	_, err := ApplyPartial(db, wager, 100, 99, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if wager.Result != models.ResultCashedOut {
		t.Errorf("drained wager should close as cashed_out, got %s", wager.Result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestApplyPartialRejectsBadPercentage(t *testing.T) {
	db, _ := newMockDB(t)
	wager := pendingWager(3, 500, 2.0)

	for _, pct := range []int{0, -5, 100, 150} {
		if _, err := ApplyPartial(db, wager, 700, pct, time.Now()); !errors.Is(err, ErrInvalidPercentage) {
			t.Errorf("percentage %d: expected ErrInvalidPercentage, got %v", pct, err)
		}
	}
}

func TestApplyPartialRejectsClosedWager(t *testing.T) {
	db, _ := newMockDB(t)
	wager := pendingWager(3, 500, 2.0)
	wager.Result = models.ResultCashedOut

	if _, err := ApplyPartial(db, wager, 700, 50, time.Now()); !errors.Is(err, ErrWagerClosed) {
		t.Errorf("expected ErrWagerClosed, got %v", err)
	}
}

func TestApplyPartialConflictOnStaleStake(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	// Another settlement already touched the wager: conditional update
	// on (result, stake) misses and the whole transaction rolls back.
	mock.ExpectExec("UPDATE `wagers`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	wager := pendingWager(3, 500, 2.0)
	if _, err := ApplyPartial(db, wager, 700, 50, time.Now()); !errors.Is(err, ErrSettlementConflict) {
		t.Errorf("expected ErrSettlementConflict, got %v", err)
	}
	if wager.Stake != 500 {
		t.Errorf("stake must be untouched after conflict, got %d", wager.Stake)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// Partial payouts plus a final full settlement of the remainder can
// never exceed the original potential win, because each event is valued
// at its own moment against the already-reduced stake.
func TestPartialThenFullStaysUnderPotentialWin(t *testing.T) {
	originalPotentialWin := int64(1000)

	// 50% partial at a 70% valuation of the full stake: payout 350.
	firstPayout := int64(700) * 50 / 100
	remainingStake := int64(500) * (100 - 50) / 100

	// The remainder later cashes out fully at the cap, valued against
	// the reduced stake only.
	remainderPotentialWin := int64(float64(remainingStake) * 2.0)
	secondPayout := int64(float64(remainderPotentialWin) * SingleCap)

	total := firstPayout + secondPayout
	if total >= originalPotentialWin {
		t.Errorf("total payouts %d must stay below original potential win %d", total, originalPotentialWin)
	}
}
