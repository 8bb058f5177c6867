// Package events delivers credit balance changes to interested subscribers.
package events

import (
	"context"
	"fmt"
	"time"
)

// CreditUpdate is published after a purchase settled and credits were granted.
type CreditUpdate struct {
	UserID        uint      `json:"userId"`
	Balance       int64     `json:"credits"`
	TransactionID string    `json:"transactionId"`
	At            time.Time `json:"at"`
}

// Bus is a publish/subscribe channel for credit updates, partitioned by user.
type Bus interface {
	Publish(ctx context.Context, update CreditUpdate) error
	// Subscribe returns a channel of updates for userID and a cancel func that
	// must be called to release the subscription.
	Subscribe(ctx context.Context, userID uint) (<-chan CreditUpdate, func(), error)
}

func creditChannel(userID uint) string {
	return fmt.Sprintf("credits:user:%d", userID)
}
