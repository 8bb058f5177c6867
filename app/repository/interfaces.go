package repository

import (
	"context"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"gorm.io/gorm"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	GetByExternalID(ctx context.Context, externalID string) (*models.User, error)
	// UpsertByExternalID inserts the user or updates name, email and profile
	// picture of the row with the same external id.
	UpsertByExternalID(ctx context.Context, user *models.User) error
	// DeleteByExternalID hard-deletes the user and reports whether a row existed.
	DeleteByExternalID(ctx context.Context, externalID string) (bool, error)
}

// WebhookEventRepository stores inbound webhook deliveries for deduplication.
type WebhookEventRepository interface {
	// CreateIfNotExists records the delivery unless (source, delivery id) is
	// already known and returns the stored row.
	CreateIfNotExists(ctx context.Context, event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}

// Repositories bundles all repositories
type Repositories struct {
	User         UserRepository
	WebhookEvent WebhookEventRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:         NewUserRepository(db),
		WebhookEvent: NewWebhookEventRepository(db),
	}
}
