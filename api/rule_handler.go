package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stormStakes/models"
)

// RuleHandler manages auto cash-out rules. Deleting a rule is terminal,
// as is firing: a triggered rule is never evaluated again.
type RuleHandler struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewRuleHandler(db *gorm.DB, logger *logrus.Logger) *RuleHandler {
	return &RuleHandler{db: db, logger: logger}
}

var validRuleTypes = map[string]bool{
	models.RulePercentageAbove:   true,
	models.RulePercentageBelow:   true,
	models.RuleWeatherBonusAbove: true,
	models.RuleWeatherBonusBelow: true,
	models.RuleTimeBonusAbove:    true,
	models.RuleTimeBonusBelow:    true,
	models.RuleAmountAbove:       true,
}

type createRuleRequest struct {
	WagerID        string  `json:"wager_id" binding:"required"`
	RuleType       string  `json:"rule_type" binding:"required"`
	ThresholdValue float64 `json:"threshold_value" binding:"required"`
}

// ListRules returns the caller's rules, fired ones included so the UI
// can show history.
// GET /api/cashout-rules
func (h *RuleHandler) ListRules(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var rules []models.AutoCashoutRule
	if err := h.db.Where("user_id = ?", userID).Find(&rules).Error; err != nil {
		h.logger.WithError(err).Error("ListRules failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

// CreateRule attaches a trigger to one of the caller's pending wagers.
// POST /api/cashout-rules
func (h *RuleHandler) CreateRule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validRuleTypes[req.RuleType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown rule type"})
		return
	}

	var wager models.Wager
	err := h.db.Where("public_id = ? AND user_id = ? AND result = ?",
		req.WagerID, userID, models.ResultPending).First(&wager).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "pending wager not found"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("CreateRule wager lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create rule"})
		return
	}

	rule := models.AutoCashoutRule{
		UserID:         userID,
		WagerID:        wager.ID,
		BetType:        wager.Kind,
		RuleType:       req.RuleType,
		ThresholdValue: req.ThresholdValue,
		IsActive:       true,
	}
	if err := h.db.Create(&rule).Error; err != nil {
		h.logger.WithError(err).Error("CreateRule failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create rule"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// DeleteRule removes a rule permanently.
// DELETE /api/cashout-rules/:id
func (h *RuleHandler) DeleteRule(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	res := h.db.Where("id = ? AND user_id = ?", c.Param("id"), userID).
		Delete(&models.AutoCashoutRule{})
	if res.Error != nil {
		h.logger.WithError(res.Error).Error("DeleteRule failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete rule"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "rule not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
