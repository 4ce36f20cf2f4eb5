package models

import "gorm.io/gorm"

type User struct {
	gorm.Model
	ID       uint   `gorm:"primaryKey"`
	Email    string `gorm:"uniqueIndex; size:255"`
	Points   int64
	Username *string
}
