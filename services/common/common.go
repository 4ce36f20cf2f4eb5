package common

import (
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"stormStakes/models"
)

// SendError logs an operational error and records it in the error_logs
// table so failures survive process restarts.
func SendError(db *gorm.DB, logger *logrus.Logger, scope string, err error) {
	if err == nil {
		return
	}
	logger.WithError(err).WithField("scope", scope).Error("operation failed")

	errLog := models.ErrorLog{
		Scope:   scope,
		Message: err.Error(),
	}
	if dbErr := db.Create(&errLog).Error; dbErr != nil {
		logger.WithError(dbErr).Warn("writing error log entry")
	}
}
