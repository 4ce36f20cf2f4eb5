package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stormStakes/models"
	"stormStakes/services/cashoutService"
	"stormStakes/services/common"
)

// CashoutHandler exposes valuations and the imperative cash-out
// operations.
type CashoutHandler struct {
	db       *gorm.DB
	logger   *logrus.Logger
	orch     *cashoutService.Orchestrator
	engine   *cashoutService.Engine
	notifier cashoutService.Notifier
}

func NewCashoutHandler(db *gorm.DB, logger *logrus.Logger, orch *cashoutService.Orchestrator, engine *cashoutService.Engine, notifier cashoutService.Notifier) *CashoutHandler {
	return &CashoutHandler{db: db, logger: logger, orch: orch, engine: engine, notifier: notifier}
}

func (h *CashoutHandler) loadWager(c *gin.Context, userID uint) (*models.Wager, bool) {
	var wager models.Wager
	err := h.db.Preload("Legs").
		Where("public_id = ? AND user_id = ?", c.Param("id"), userID).
		First(&wager).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "wager not found"})
		return nil, false
	}
	if err != nil {
		h.logger.WithError(err).Error("loading wager")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load wager"})
		return nil, false
	}
	return &wager, true
}

// GetValuation returns the current cash-out offer for one wager. The
// last published polling result is preferred; a wager not yet covered
// by a pass is valued on demand without disturbing the trend sequence.
// GET /api/cashout/:id
func (h *CashoutHandler) GetValuation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	wager, ok := h.loadWager(c, userID)
	if !ok {
		return
	}

	if valuation, ok := h.orch.LatestFor(wager.ID); ok {
		c.JSON(http.StatusOK, gin.H{"valuation": valuation})
		return
	}

	valuation, err := h.engine.Valuate(c.Request.Context(), wager)
	if err != nil {
		h.respondValuationError(c, err)
		return
	}
	valuation.Trend = h.orch.Trends().Compare(wager.ID, valuation.Amount)
	c.JSON(http.StatusOK, gin.H{"valuation": valuation})
}

// ListValuations returns the latest consolidated result map filtered to
// the caller's wagers.
// GET /api/cashouts
func (h *CashoutHandler) ListValuations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var ids []uint
	err := h.db.Model(&models.Wager{}).
		Where("user_id = ? AND result = ?", userID, models.ResultPending).
		Pluck("id", &ids).Error
	if err != nil {
		h.logger.WithError(err).Error("ListValuations failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list valuations"})
		return
	}

	latest := h.orch.Latest()
	valuations := make([]*cashoutService.CashoutValuation, 0, len(ids))
	for _, id := range ids {
		if valuation, ok := latest[id]; ok {
			valuations = append(valuations, valuation)
		}
	}
	c.JSON(http.StatusOK, gin.H{"valuations": valuations})
}

// CashOutFull settles the whole wager at the freshly computed offer.
// POST /api/cashout/:id/full
func (h *CashoutHandler) CashOutFull(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	wager, ok := h.loadWager(c, userID)
	if !ok {
		return
	}

	valuation, err := h.engine.Valuate(c.Request.Context(), wager)
	if err != nil {
		h.respondValuationError(c, err)
		return
	}

	if err := cashoutService.CashOutFull(h.db, wager, valuation.Amount, time.Now()); err != nil {
		h.respondSettlementError(c, err)
		return
	}
	h.orch.Trends().Reset(wager.ID)

	h.notify(userID, "Cash-out complete",
		fmt.Sprintf("Your wager was cashed out for %d points (%d%% of potential win).", valuation.Amount, valuation.Percentage),
		wager.PublicID, wager.Kind)

	c.JSON(http.StatusOK, gin.H{"amount": valuation.Amount, "percentage": valuation.Percentage})
}

type partialRequest struct {
	Percentage int `json:"percentage" binding:"required"`
}

// CashOutPartial settles a percentage of the wager; 100 delegates to
// the full-settlement path.
// POST /api/cashout/:id/partial
func (h *CashoutHandler) CashOutPartial(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req partialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Percentage == 100 {
		h.CashOutFull(c)
		return
	}

	wager, ok := h.loadWager(c, userID)
	if !ok {
		return
	}

	valuation, err := h.engine.Valuate(c.Request.Context(), wager)
	if err != nil {
		h.respondValuationError(c, err)
		return
	}

	entry, err := cashoutService.ApplyPartial(h.db, wager, valuation.Amount, req.Percentage, time.Now())
	if err != nil {
		h.respondSettlementError(c, err)
		return
	}
	if wager.Result != models.ResultPending {
		h.orch.Trends().Reset(wager.ID)
	}

	h.notify(userID, "Partial cash-out complete",
		fmt.Sprintf("Cashed out %d%% for %d points; %d stake remains in play.", req.Percentage, entry.WalletAmount, entry.RemainingStake),
		wager.PublicID, wager.Kind)

	c.JSON(http.StatusOK, gin.H{
		"payout_amount":   entry.WalletAmount,
		"remaining_stake": entry.RemainingStake,
		"ledger_id":       entry.PublicID,
	})
}

func (h *CashoutHandler) notify(userID uint, title, body, refID, refType string) {
	if h.notifier == nil {
		return
	}
	if err := h.notifier.Notify(userID, title, body, refID, refType); err != nil {
		h.logger.WithError(err).Warn("cash-out notification failed")
	}
}

func (h *CashoutHandler) respondValuationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cashoutService.ErrWagerClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "bet no longer eligible for cash-out"})
	case errors.Is(err, cashoutService.ErrInvalidWager):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		common.SendError(h.db, h.logger, "cashout_valuation", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cash-out failed, please retry"})
	}
}

func (h *CashoutHandler) respondSettlementError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, cashoutService.ErrSettlementConflict), errors.Is(err, cashoutService.ErrWagerClosed):
		c.JSON(http.StatusConflict, gin.H{"error": "bet no longer eligible for cash-out"})
	case errors.Is(err, cashoutService.ErrInvalidPercentage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		common.SendError(h.db, h.logger, "cashout_settlement", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Cash-out failed, please retry"})
	}
}
