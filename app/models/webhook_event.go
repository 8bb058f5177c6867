package models

import (
	"time"

	"gorm.io/datatypes"
)

const WebhookSourceClerk = "clerk"

// WebhookEvent stores inbound webhook deliveries with deduplication metadata
// for idempotent processing.
type WebhookEvent struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	Source          string         `gorm:"type:varchar(20);not null;index:ux_webhook_events_source_delivery,unique,priority:1" json:"source"`
	DeliveryID      string         `gorm:"type:varchar(191);not null;index:ux_webhook_events_source_delivery,unique,priority:2" json:"delivery_id"`
	EventType       string         `gorm:"type:varchar(100);not null;default:'';index" json:"event_type"`
	Payload         datatypes.JSON `json:"payload"`
	SignatureValid  bool           `gorm:"default:false" json:"signature_valid"`
	ProcessedAt     *time.Time     `gorm:"default:null" json:"processed_at,omitempty"`
	ProcessingError string         `gorm:"type:text" json:"processing_error"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

// Succeeded reports whether the delivery was already applied without error.
func (e *WebhookEvent) Succeeded() bool {
	return e.ProcessedAt != nil && e.ProcessingError == ""
}
