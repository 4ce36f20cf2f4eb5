package cashoutService

import (
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stormStakes/models"
)

// Notifier delivers user-facing notifications. Failures are logged and
// never influence a committed settlement.
type Notifier interface {
	Notify(userID uint, title, body, refID, refType string) error
}

// RuleSatisfied is the pure predicate for one rule against the latest
// valuation of its wager. All comparisons are inclusive.
func RuleSatisfied(rule *models.AutoCashoutRule, v *CashoutValuation) bool {
	switch rule.RuleType {
	case models.RulePercentageAbove:
		return float64(v.Percentage) >= rule.ThresholdValue
	case models.RulePercentageBelow:
		return float64(v.Percentage) <= rule.ThresholdValue
	case models.RuleWeatherBonusAbove:
		return float64(v.WeatherBonusPct) >= rule.ThresholdValue
	case models.RuleWeatherBonusBelow:
		return float64(v.WeatherBonusPct) <= rule.ThresholdValue
	case models.RuleTimeBonusAbove:
		return float64(v.TimeBonusPct) >= rule.ThresholdValue
	case models.RuleTimeBonusBelow:
		return float64(v.TimeBonusPct) <= rule.ThresholdValue
	case models.RuleAmountAbove:
		return float64(v.Amount) >= rule.ThresholdValue
	default:
		return false
	}
}

// EvaluateRules runs every active, never-triggered rule against the
// cycle's valuation map and settles the wagers whose rules fired.
// A rule whose wager has no valuation this cycle is simply deferred.
// Returns the rules that fired.
func EvaluateRules(db *gorm.DB, logger *logrus.Logger, notifier Notifier, valuations map[uint]*CashoutValuation) []models.AutoCashoutRule {
	var rules []models.AutoCashoutRule
	result := db.Where("is_active = ? AND triggered_at IS NULL", true).Find(&rules)
	if result.Error != nil {
		logger.WithError(result.Error).Error("loading auto cash-out rules")
		return nil
	}

	var fired []models.AutoCashoutRule
	for i := range rules {
		rule := &rules[i]
		valuation, ok := valuations[rule.WagerID]
		if !ok {
			// No valuation this cycle; evaluate again next pass.
			continue
		}
		if !RuleSatisfied(rule, valuation) {
			continue
		}

		if err := fireRule(db, logger, rule, valuation); err != nil {
			if !errors.Is(err, ErrSettlementConflict) {
				logger.WithError(err).WithField("rule_id", rule.ID).Error("firing auto cash-out rule")
			}
			continue
		}
		fired = append(fired, *rule)

		// Notification is outside the settlement boundary: a delivery
		// failure must not roll back the committed transaction.
		if notifier != nil {
			title := "Auto cash-out executed"
			body := fmt.Sprintf("Rule %s hit its threshold; cashed out for %d points.", rule.RuleType, valuation.Amount)
			if err := notifier.Notify(rule.UserID, title, body, valuation.PublicID, rule.BetType); err != nil {
				logger.WithError(err).WithField("rule_id", rule.ID).Warn("auto cash-out notification failed")
			}
		}
	}
	return fired
}

// fireRule marks the rule triggered and settles the wager in one
// transaction. The rule update is guarded on is_active and a null
// triggered_at, so a slow settlement cannot double-fire on the next
// cycle, and the wager settlement is guarded on result=pending.
func fireRule(db *gorm.DB, logger *logrus.Logger, rule *models.AutoCashoutRule, valuation *CashoutValuation) error {
	now := time.Now()
	return db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.AutoCashoutRule{}).
			Where("id = ? AND is_active = ? AND triggered_at IS NULL", rule.ID, true).
			Updates(map[string]interface{}{
				"is_active":      false,
				"triggered_at":   now,
				"cashout_amount": valuation.Amount,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("rule %d already fired: %w", rule.ID, ErrSettlementConflict)
		}

		var wager models.Wager
		if err := tx.First(&wager, rule.WagerID).Error; err != nil {
			return err
		}
		if err := settleWager(tx, &wager, valuation.Amount, now); err != nil {
			return err
		}

		rule.IsActive = false
		rule.TriggeredAt = &now
		rule.CashoutAmount = &valuation.Amount
		logger.WithFields(logrus.Fields{
			"rule_id": rule.ID,
			"wager":   wager.PublicID,
			"amount":  valuation.Amount,
		}).Info("auto cash-out rule fired")
		return nil
	})
}
