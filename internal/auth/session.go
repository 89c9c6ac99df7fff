package auth

import "time"

// Session is one active login of a user. The opaque Value is what travels
// in the Authorization header; it is never logged.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Value     string    `json:"-"`
	CreatedAt time.Time `json:"createdAt"`
}
