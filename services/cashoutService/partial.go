package cashoutService

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"stormStakes/models"
)

// ApplyPartial cashes out a slice of a pending wager at the current
// valuation. percentage must be 1-99; a 100% request is a full cash-out
// and goes through CashOutFull instead.
//
// The payout is valued at this moment only: the ledger entry is
// immutable and later cycles valuate the wager at its reduced stake, so
// no retroactive recomputation ever happens. The stake update is
// conditional on the stake the caller read, which rejects interleaved
// partial settlements of the same wager.
func ApplyPartial(db *gorm.DB, wager *models.Wager, valuationAmount int64, percentage int, now time.Time) (*models.PartialCashout, error) {
	if percentage < 1 || percentage > 99 {
		return nil, fmt.Errorf("percentage %d: %w", percentage, ErrInvalidPercentage)
	}
	if wager.Result != models.ResultPending {
		return nil, fmt.Errorf("wager %s: %w", wager.PublicID, ErrWagerClosed)
	}

	payout := valuationAmount * int64(percentage) / 100
	remaining := wager.Stake * int64(100-percentage) / 100

	entry := &models.PartialCashout{
		PublicID:       uuid.NewString(),
		WagerID:        wager.ID,
		WalletAmount:   payout,
		Percentage:     percentage,
		RemainingStake: remaining,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Wager{}).
			Where("id = ? AND result = ? AND stake = ?", wager.ID, models.ResultPending, wager.Stake).
			Update("stake", remaining)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("wager %s: %w", wager.PublicID, ErrSettlementConflict)
		}

		if err := tx.Create(entry).Error; err != nil {
			return err
		}
		if err := creditUser(tx, wager.UserID, payout); err != nil {
			return err
		}

		if remaining == 0 {
			return closeFullyDrained(tx, wager, now)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	wager.Stake = remaining
	if remaining == 0 {
		wager.Result = models.ResultCashedOut
	}
	return entry, nil
}

// closeFullyDrained transitions a wager whose stake hit zero through
// partials into cashed_out, recording the sum of all partial payouts.
func closeFullyDrained(tx *gorm.DB, wager *models.Wager, now time.Time) error {
	var total int64
	err := tx.Model(&models.PartialCashout{}).
		Where("wager_id = ?", wager.ID).
		Select("COALESCE(SUM(wallet_amount), 0)").
		Scan(&total).Error
	if err != nil {
		return err
	}

	res := tx.Model(&models.Wager{}).
		Where("id = ? AND result = ?", wager.ID, models.ResultPending).
		Updates(map[string]interface{}{
			"result":         models.ResultCashedOut,
			"cashout_amount": total,
			"cashed_out_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("wager %s: %w", wager.PublicID, ErrSettlementConflict)
	}
	return nil
}
