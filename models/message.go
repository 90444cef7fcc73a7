package models

import "time"

// SenderAnonymous identifies messages submitted without an account.
const SenderAnonymous = "anonymous"

// Message is an individual communication between admins and a user. Publish
// requests are system-generated messages linked to a tournament and flagged
// as requiring action.
type Message struct {
	ID             int       `json:"id" db:"id"`
	Body           string    `json:"body" db:"body"`
	UserID         *int      `json:"user_id,omitempty" db:"user_id"`
	Read           bool      `json:"read" db:"read"`
	FromAdmin      bool      `json:"from_admin" db:"from_admin"`
	RequiresAction bool      `json:"requires_action" db:"requires_action"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	User *User `json:"user,omitempty" db:"-"`
}

// Sender is the identity a message is grouped under in the admin inbox.
func (m *Message) Sender() string {
	if m.UserID == nil || m.User == nil {
		return SenderAnonymous
	}
	return m.User.Email
}
