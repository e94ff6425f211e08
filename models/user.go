package models

import "time"

// User is an operator account for the out-of-band admin surface
// (retraining, metrics reset).
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex" json:"email"`
	Password  string    `json:"-"`
	Role      string    `gorm:"default:operator" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
