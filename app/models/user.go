package models

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// User mirrors an identity-provider account. The provider is authoritative for
// every field; rows are upserted and deleted only by identity webhooks.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ExternalID     string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"external_id" validate:"required,max=191"`
	Name           string    `gorm:"type:varchar(150);default:''" json:"name" validate:"max=150"`
	Email          string    `gorm:"type:varchar(200);default:''" json:"email" validate:"omitempty,email,max=200"`
	ProfilePicture string    `gorm:"type:varchar(512);default:''" json:"profile_picture" validate:"max=512"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) Validate() error {
	v := validator.New()

	return v.Struct(u)
}

// DisplayName joins first and last name the way the identity provider shows them.
func DisplayName(firstName, lastName string) string {
	return strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
}
