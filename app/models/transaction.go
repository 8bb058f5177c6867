package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	TransactionStatusPending = "PENDING"
	TransactionStatusSuccess = "SUCCESS"
	TransactionStatusFailed  = "FAILED"
)

// Transaction is one payment attempt. It is created PENDING before the user
// pays and moves to SUCCESS or FAILED exactly once.
type Transaction struct {
	ID        string    `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index:idx_transactions_lookup,priority:2" json:"userId"`
	Amount    int64     `gorm:"not null" json:"amount"`
	Currency  string    `gorm:"type:varchar(8);not null" json:"currency"`
	PaymentID *string   `gorm:"type:varchar(191);default:null" json:"paymentId"`
	OrderID   string    `gorm:"type:varchar(191);not null;index:idx_transactions_lookup,priority:1" json:"orderId"`
	Provider  string    `gorm:"type:varchar(20);not null" json:"provider"`
	Plan      string    `gorm:"type:varchar(20);not null" json:"plan"`
	Status    string    `gorm:"type:varchar(16);not null;default:'PENDING';index:idx_transactions_lookup,priority:3" json:"status"`
	IsAnnual  bool      `gorm:"default:false" json:"isAnnual"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = TransactionStatusPending
	}
	return nil
}

// IsTerminal reports whether the transaction has left PENDING.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TransactionStatusSuccess || t.Status == TransactionStatusFailed
}
