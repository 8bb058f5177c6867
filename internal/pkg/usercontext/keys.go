package usercontext

// Shared Locals keys used across controllers and middlewares
const (
	localsKey     = "USER_CONTEXT"
	KeyUserID     = "user_id"
	KeyExternalID = "external_id"
)
