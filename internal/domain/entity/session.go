package entity

// Session identifies who is driving a chat session. It is passed explicitly
// to everything that needs the current user.
type Session struct {
	CurrentUserID string `json:"currentUserId"`
	DisplayName   string `json:"displayName,omitempty"`
}
