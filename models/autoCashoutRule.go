package models

import (
	"gorm.io/gorm"
	"time"
)

// Rule types for automatic cash-out triggers
const (
	RulePercentageAbove   = "percentage_above"
	RulePercentageBelow   = "percentage_below"
	RuleWeatherBonusAbove = "weather_bonus_above"
	RuleWeatherBonusBelow = "weather_bonus_below"
	RuleTimeBonusAbove    = "time_bonus_above"
	RuleTimeBonusBelow    = "time_bonus_below"
	RuleAmountAbove       = "amount_above"
)

// AutoCashoutRule fires at most once. TriggeredAt and CashoutAmount are
// set on firing and the rule is inert afterwards regardless of IsActive.
type AutoCashoutRule struct {
	gorm.Model
	ID             uint `gorm:"primaryKey"`
	UserID         uint
	WagerID        uint   `gorm:"index"`
	BetType        string `gorm:"size:16"` // single, parlay, combined_bet
	RuleType       string `gorm:"size:32"`
	ThresholdValue float64
	IsActive       bool `gorm:"default:true"`
	TriggeredAt    *time.Time
	CashoutAmount  *int64
}
