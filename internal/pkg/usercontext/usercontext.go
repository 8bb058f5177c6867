package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext represents the authenticated caller of a request
type UserContext struct {
	UserID     uint   `json:"user_id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// SetUserContext stores the user context and the legacy per-field locals.
func SetUserContext(c *fiber.Ctx, uc UserContext) {
	c.Locals(localsKey, uc)
	c.Locals(KeyUserID, uc.UserID)
	c.Locals(KeyExternalID, uc.ExternalID)
}

// GetUserContext retrieves the user context from fiber context
// Returns a default anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if ctx, ok := c.Locals(localsKey).(UserContext); ok {
		return ctx
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the current user is authenticated
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetUserID returns the current user's ID, or 0 if not authenticated
func GetUserID(c *fiber.Ctx) uint {
	return GetUserContext(c).UserID
}
