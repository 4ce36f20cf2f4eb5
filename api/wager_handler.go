package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stormStakes/models"
)

// WagerHandler is the thin placement/listing surface. Odds computation
// from forecasts happens upstream; this endpoint only validates and
// stores what the client submits.
type WagerHandler struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewWagerHandler(db *gorm.DB, logger *logrus.Logger) *WagerHandler {
	return &WagerHandler{db: db, logger: logger}
}

type placeLegRequest struct {
	City            string  `json:"city" binding:"required"`
	PredictionType  string  `json:"prediction_type" binding:"required"`
	PredictionValue string  `json:"prediction_value" binding:"required"`
	LegOdds         float64 `json:"leg_odds" binding:"required"`
}

type placeWagerRequest struct {
	Kind      string            `json:"kind"`
	Stake     int64             `json:"stake" binding:"required"`
	ExpiresAt *time.Time        `json:"expires_at"`
	Legs      []placeLegRequest `json:"legs" binding:"required,min=1"`
}

// ListWagers returns the caller's open wagers.
// GET /api/wagers
func (h *WagerHandler) ListWagers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var wagers []models.Wager
	err := h.db.Preload("Legs").
		Where("user_id = ? AND result = ?", userID, models.ResultPending).
		Order("created_at DESC").
		Find(&wagers).Error
	if err != nil {
		h.logger.WithError(err).Error("ListWagers failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list wagers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"wagers": wagers})
}

// PlaceWager stores a new pending wager.
// POST /api/wagers
func (h *WagerHandler) PlaceWager(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req placeWagerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Stake <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stake must be positive"})
		return
	}

	odds := 1.0
	legs := make([]models.WagerLeg, 0, len(req.Legs))
	for _, leg := range req.Legs {
		if leg.LegOdds < 1.0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "leg odds must be >= 1.0"})
			return
		}
		odds *= leg.LegOdds
		legs = append(legs, models.WagerLeg{
			City:            leg.City,
			PredictionType:  leg.PredictionType,
			PredictionValue: leg.PredictionValue,
			LegOdds:         leg.LegOdds,
		})
	}

	kind := req.Kind
	if kind == "" {
		kind = models.WagerKindSingle
		if len(legs) > 1 {
			kind = models.WagerKindParlay
		}
	}
	if kind != models.WagerKindSingle && kind != models.WagerKindParlay && kind != models.WagerKindCombined {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown wager kind"})
		return
	}
	if kind == models.WagerKindSingle && len(legs) != 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "single wagers carry exactly one leg"})
		return
	}

	wager := models.Wager{
		PublicID:  uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Stake:     req.Stake,
		Odds:      odds,
		ExpiresAt: req.ExpiresAt,
		Result:    models.ResultPending,
		Legs:      legs,
	}
	if err := h.db.Create(&wager).Error; err != nil {
		h.logger.WithError(err).Error("PlaceWager failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not place wager"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"wager": wager})
}
