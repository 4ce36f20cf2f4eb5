package cashoutService

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"stormStakes/models"
)

// CashOutFull settles a pending wager at the offered amount and credits
// the user's points, in one transaction. The wager update is guarded on
// result=pending so a wager that resolved naturally (or was settled by
// a concurrent action) yields ErrSettlementConflict with no writes.
func CashOutFull(db *gorm.DB, wager *models.Wager, amount int64, now time.Time) error {
	return db.Transaction(func(tx *gorm.DB) error {
		return settleWager(tx, wager, amount, now)
	})
}

func settleWager(tx *gorm.DB, wager *models.Wager, amount int64, now time.Time) error {
	res := tx.Model(&models.Wager{}).
		Where("id = ? AND result = ?", wager.ID, models.ResultPending).
		Updates(map[string]interface{}{
			"result":         models.ResultCashedOut,
			"cashout_amount": amount,
			"cashed_out_at":  now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("wager %s: %w", wager.PublicID, ErrSettlementConflict)
	}

	if err := creditUser(tx, wager.UserID, amount); err != nil {
		return err
	}

	wager.Result = models.ResultCashedOut
	wager.CashoutAmount = &amount
	wager.CashedOutAt = &now
	return nil
}

func creditUser(tx *gorm.DB, userID uint, amount int64) error {
	return tx.Model(&models.User{}).
		Where("id = ?", userID).
		Update("points", gorm.Expr("points + ?", amount)).Error
}
