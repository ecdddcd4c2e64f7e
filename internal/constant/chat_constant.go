package constant

// Chat message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Document ingestion statuses.
const (
	DocumentStatusPending = "pending"
	DocumentStatusReady   = "ready"
	DocumentStatusFailed  = "failed"
)

// DefaultSessionTitle is used until the first user message names the session.
const DefaultSessionTitle = "New Conversation"

// SessionTitleMaxLen caps the auto-generated title taken from the first message.
const SessionTitleMaxLen = 80
