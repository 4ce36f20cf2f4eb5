package cashoutService

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"stormStakes/models"
	"stormStakes/services/weatherService"
)

// Trend directions between successive valuations of the same wager.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

// CashoutValuation is ephemeral: recomputed from scratch every cycle,
// never persisted as a source of truth.
type CashoutValuation struct {
	WagerID         uint      `json:"-"`
	PublicID        string    `json:"wager_id"`
	Amount          int64     `json:"amount"`
	Percentage      int       `json:"percentage"`
	TimeBonusPct    int       `json:"time_bonus_pct"`
	WeatherBonusPct int       `json:"weather_bonus_pct"`
	Reasoning       string    `json:"reasoning"`
	Trend           string    `json:"trend"`
	LastUpdated     time.Time `json:"last_updated"`
}

// Engine computes cash-out offers. It is stateless; trend annotation is
// the tracker's job.
type Engine struct {
	provider weatherService.ObservationProvider
	logger   *logrus.Logger
	now      func() time.Time
}

func NewEngine(provider weatherService.ObservationProvider, logger *logrus.Logger) *Engine {
	return &Engine{provider: provider, logger: logger, now: time.Now}
}

// Valuate computes the current cash-out offer for a pending wager.
//
// Single wagers use the single base rate and cap. Multi-leg wagers use
// the lower base and cap, one time bonus from the aggregate window, and
// the minimum weather bonus across legs: a parlay is only as strong as
// its worst-performing leg.
func (e *Engine) Valuate(ctx context.Context, wager *models.Wager) (*CashoutValuation, error) {
	if wager.Stake <= 0 || wager.Odds < 1.0 {
		return nil, fmt.Errorf("wager %s: %w", wager.PublicID, ErrInvalidWager)
	}
	if wager.Result != models.ResultPending {
		return nil, fmt.Errorf("wager %s: %w", wager.PublicID, ErrWagerClosed)
	}

	base, ceiling := SingleBaseRate, SingleCap
	if wager.IsMultiLeg() {
		base, ceiling = MultiBaseRate, MultiCap
	}

	now := e.now()
	start, end := wager.ValuationWindow()
	timeBonus := TimeBonus(start, end, now)
	weatherBonus := e.aggregateWeatherBonus(ctx, wager)

	total := base + timeBonus + weatherBonus
	if total > ceiling {
		total = ceiling
	}

	potentialWin := wager.PotentialWin()
	amount := int64(math.Floor(float64(potentialWin) * total))

	return &CashoutValuation{
		WagerID:         wager.ID,
		PublicID:        wager.PublicID,
		Amount:          amount,
		Percentage:      int(math.Round(total * 100)),
		TimeBonusPct:    int(math.Round(timeBonus * 100)),
		WeatherBonusPct: int(math.Round(weatherBonus * 100)),
		Reasoning:       buildReasoning(timeBonus, weatherBonus, total),
		Trend:           TrendStable,
		LastUpdated:     now,
	}, nil
}

// aggregateWeatherBonus fetches each leg's observation and applies the
// weakest-link rule. A failed fetch degrades that leg to zero rather
// than failing the valuation.
func (e *Engine) aggregateWeatherBonus(ctx context.Context, wager *models.Wager) float64 {
	if len(wager.Legs) == 0 {
		return 0
	}

	minBonus := math.MaxFloat64
	for _, leg := range wager.Legs {
		obs, err := e.provider.GetObservation(ctx, leg.City)
		if err != nil {
			e.logger.WithError(err).WithField("city", leg.City).
				Warn("observation unavailable, leg scored zero")
			obs = nil
		}
		bonus := WeatherBonus(obs, leg.PredictionType, leg.PredictionValue)
		if bonus < minBonus {
			minBonus = bonus
		}
	}
	return minBonus
}

// buildReasoning is a pure function of the bonus magnitudes and final
// percentage, so the same inputs always produce the same explanation.
func buildReasoning(timeBonus, weatherBonus, total float64) string {
	return fmt.Sprintf("Time held %s cashing out; current weather %s your prediction. Offer quality: %s.",
		describeBonus(timeBonus), describeBonus(weatherBonus), describeQuality(total))
}

func describeBonus(bonus float64) string {
	switch {
	case bonus >= 0.20:
		return "strongly favors"
	case bonus >= 0.10:
		return "somewhat favors"
	default:
		return "is uncertain for"
	}
}

func describeQuality(total float64) string {
	switch {
	case total >= 0.85:
		return "excellent"
	case total >= 0.75:
		return "good"
	case total >= 0.65:
		return "fair"
	default:
		return "early"
	}
}
