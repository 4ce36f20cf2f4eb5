package models

import (
	"gorm.io/gorm"
	"time"
)

// Wager kinds
const (
	WagerKindSingle   = "single"
	WagerKindParlay   = "parlay"
	WagerKindCombined = "combined_bet"
)

// Wager results
const (
	ResultPending   = "pending"
	ResultWin       = "win"
	ResultLoss      = "loss"
	ResultPartial   = "partial"
	ResultCashedOut = "cashed_out"
)

// Prediction types carried by a leg
const (
	PredictionRain      = "rain"
	PredictionTempRange = "temperature_range"
	PredictionTempExact = "temperature_exact"
	PredictionWindRange = "wind_range"
	PredictionWindExact = "wind_exact"
)

type Wager struct {
	gorm.Model
	ID            uint   `gorm:"primaryKey"`
	PublicID      string `gorm:"uniqueIndex; size:36"`
	UserID        uint
	User          User   `gorm:"foreignKey:UserID"`
	Kind          string `gorm:"size:16"` // single, parlay, combined_bet
	Stake         int64  // points, minor units
	Odds          float64
	ExpiresAt     *time.Time // nil means a 1-hour window from creation
	Result        string     `gorm:"size:16; default:pending; index"`
	CashoutAmount *int64
	CashedOutAt   *time.Time
	Legs          []WagerLeg
}

type WagerLeg struct {
	gorm.Model
	ID              uint `gorm:"primaryKey"`
	WagerID         uint `gorm:"index"`
	City            string
	PredictionType  string `gorm:"size:32"`
	PredictionValue string `gorm:"size:32"` // "yes"/"no", "20-25", "23"
	LegOdds         float64
}

// PotentialWin is the payout if the wager resolves as a full win.
func (w *Wager) PotentialWin() int64 {
	return int64(float64(w.Stake) * w.Odds)
}

// ValuationWindow returns the window used for time-decay. A wager with
// no expiry gets a synthetic 1-hour window from creation.
func (w *Wager) ValuationWindow() (time.Time, time.Time) {
	start := w.CreatedAt
	if w.ExpiresAt != nil {
		return start, *w.ExpiresAt
	}
	return start, start.Add(time.Hour)
}

// IsMultiLeg reports whether the worst-leg aggregation rule applies.
func (w *Wager) IsMultiLeg() bool {
	return w.Kind != WagerKindSingle
}
