package entity

// Notification is a push addressed to one device token.
type Notification struct {
	Token string
	Title string
	Body  string
}
