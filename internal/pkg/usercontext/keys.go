package usercontext

// Locals keys set by the bearer middleware
const (
	KeyUserContext   = "USER_CONTEXT"
	KeySubject       = "subject"
	KeyFromProtected = "from_protected"
)
