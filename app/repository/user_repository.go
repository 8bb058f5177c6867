package repository

import (
	"context"
	"strings"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepository implements the UserRepository interface
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// GetByExternalID retrieves a user by their identity-provider id
func (r *userRepository) GetByExternalID(ctx context.Context, externalID string) (*models.User, error) {
	id := strings.TrimSpace(externalID)
	if id == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var user models.User
	err := r.db.WithContext(ctx).Where("external_id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpsertByExternalID(ctx context.Context, user *models.User) error {
	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "external_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"name",
			"email",
			"profile_picture",
			"updated_at",
		}),
	}).Create(user).Error; err != nil {
		return err
	}

	// Ensure ID is populated after upsert.
	return db.Where("external_id = ?", user.ExternalID).First(user).Error
}

func (r *userRepository) DeleteByExternalID(ctx context.Context, externalID string) (bool, error) {
	res := r.db.WithContext(ctx).Where("external_id = ?", externalID).Delete(&models.User{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
