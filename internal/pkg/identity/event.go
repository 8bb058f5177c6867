package identity

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ManuelReschke/PhotoAI/app/models"
	"github.com/ManuelReschke/PhotoAI/internal/pkg/utils"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event is the envelope of an identity webhook delivery.
type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// UserData is the user object carried by user.* events.
type UserData struct {
	ID              string         `json:"id"`
	FirstName       *string        `json:"first_name"`
	LastName        *string        `json:"last_name"`
	EmailAddresses  []EmailAddress `json:"email_addresses"`
	ProfileImageURL string         `json:"profile_image_url"`
}

type EmailAddress struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
}

func parseEvent(body []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	evt.Type = strings.TrimSpace(evt.Type)
	if evt.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", ErrInvalidPayload)
	}
	return &evt, nil
}

func parseUserData(raw json.RawMessage) (*UserData, error) {
	var data UserData
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: missing data", ErrInvalidPayload)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	data.ID = strings.TrimSpace(data.ID)
	if data.ID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrInvalidPayload)
	}
	return &data, nil
}

// PrimaryEmail is the first listed address, empty if none.
func (d *UserData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return strings.TrimSpace(d.EmailAddresses[0].EmailAddress)
}

// ToUser maps the event payload onto the local user mirror. Accounts without
// a profile image get a Gravatar for their primary email.
func (d *UserData) ToUser() *models.User {
	email := d.PrimaryEmail()
	picture := strings.TrimSpace(d.ProfileImageURL)
	if picture == "" {
		picture = utils.FallbackAvatarURL(email, 0)
	}
	return &models.User{
		ExternalID:     d.ID,
		Name:           models.DisplayName(deref(d.FirstName), deref(d.LastName)),
		Email:          email,
		ProfilePicture: picture,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
