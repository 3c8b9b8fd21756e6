package usercontext

import "github.com/gofiber/fiber/v2"

// UserContext is the authenticated caller of a request
type UserContext struct {
	Subject    string `json:"subject"`
	Email      string `json:"email,omitempty"`
	TokenUse   string `json:"token_use,omitempty"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// Set stores uc on the request
func Set(c *fiber.Ctx, uc UserContext) {
	c.Locals(KeyUserContext, uc)
	c.Locals(KeySubject, uc.Subject)
	c.Locals(KeyFromProtected, uc.IsLoggedIn)
}

// GetUserContext retrieves the user context from fiber context
// Returns an anonymous context if none is set
func GetUserContext(c *fiber.Ctx) UserContext {
	if uc, ok := c.Locals(KeyUserContext).(UserContext); ok {
		return uc
	}
	return UserContext{IsLoggedIn: false}
}

// IsLoggedIn checks if the request carried a valid token
func IsLoggedIn(c *fiber.Ctx) bool {
	return GetUserContext(c).IsLoggedIn
}

// GetSubject returns the caller's subject, or "" when anonymous
func GetSubject(c *fiber.Ctx) string {
	return GetUserContext(c).Subject
}
