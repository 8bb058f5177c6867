package models

import "time"

// UserCredit holds the spendable credit balance of a user. The row is created
// by the first grant.
type UserCredit struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    uint      `gorm:"not null;uniqueIndex" json:"userId"`
	Amount    int64     `gorm:"not null;default:0" json:"amount"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
